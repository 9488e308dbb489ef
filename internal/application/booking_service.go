package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/evymii/pineder-sub001/internal/identity"
)

// BookingRepository captures the persistence interactions needed by the
// booking service.
type BookingRepository interface {
	CreateBooking(ctx context.Context, booking Booking) (Booking, error)
	GetBooking(ctx context.Context, id string) (Booking, error)
	UpdateBooking(ctx context.Context, booking Booking) (Booking, error)
	ListBookings(ctx context.Context, filter BookingRepositoryFilter) ([]Booking, error)
}

// BookingRepositoryFilter narrows queries issued to the booking repository.
type BookingRepositoryFilter struct {
	LearnerID string
	MentorID  string
	Status    BookingStatus
}

// SlotDirectory exposes availability lookups needed to validate that a
// booking targets a real declared slot.
type SlotDirectory interface {
	SlotExists(ctx context.Context, mentorID string, dayOfWeek time.Weekday, startTime string) (bool, error)
}

// MeetingProvisioner obtains a joinable meeting reference for an approved
// booking. A provisioning failure aborts the approval: a booking is never
// approved without a usable reference.
type MeetingProvisioner interface {
	ProvisionMeeting(ctx context.Context, req MeetingRequest) (string, error)
}

// MeetingRequest carries the details the provisioning collaborator needs.
type MeetingRequest struct {
	BookingID string
	MentorID  string
	LearnerID string
	Start     time.Time
}

// BookingService drives the one-on-one booking state machine:
// requested -> approved -> completed, requested -> denied, and
// requested/approved -> cancelled.
type BookingService struct {
	bookings    BookingRepository
	slots       SlotDirectory
	meetings    MeetingProvisioner
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewBookingService wires dependencies for booking operations.
func NewBookingService(bookings BookingRepository, slots SlotDirectory, meetings MeetingProvisioner, idGenerator func() string, now func() time.Time) *BookingService {
	return NewBookingServiceWithLogger(bookings, slots, meetings, idGenerator, now, nil)
}

// NewBookingServiceWithLogger constructs a booking service with a specified logger.
func NewBookingServiceWithLogger(bookings BookingRepository, slots SlotDirectory, meetings MeetingProvisioner, idGenerator func() string, now func() time.Time, logger *slog.Logger) *BookingService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &BookingService{
		bookings:    bookings,
		slots:       slots,
		meetings:    meetings,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *BookingService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "BookingService", operation, attrs...)
}

// BookSession creates a booking request from a learner against a mentor's
// declared availability slot.
func (s *BookingService) BookSession(ctx context.Context, params BookSessionParams) (booking Booking, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}

	logger := s.loggerWith(ctx, "BookSession",
		"principal_id", params.Principal.UserID,
		"mentor_id", params.Input.MentorID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to book session", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("booking_id", booking.ID).InfoContext(ctx, "session requested")
	}()

	if params.Principal.Role != identity.RoleLearner {
		err = ErrUnauthorized
		return
	}

	input := params.Input
	vErr := validateBookingInput(input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	if err = s.ensureSlotDeclared(ctx, input); err != nil {
		return
	}

	createdAt := s.now()
	booking = Booking{
		ID:        s.idGenerator(),
		LearnerID: params.Principal.UserID,
		MentorID:  strings.TrimSpace(input.MentorID),
		Topic:     strings.TrimSpace(input.Topic),
		Start:     input.Start,
		End:       input.End,
		Status:    BookingStatusRequested,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}

	if s.bookings == nil {
		return
	}

	var persisted Booking
	persisted, err = s.bookings.CreateBooking(ctx, booking)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	booking = persisted
	return
}

// Approve transitions a requested booking to approved. Only the addressed
// mentor may approve, only from the requested state, and the meeting
// reference is provisioned before the transition is persisted.
func (s *BookingService) Approve(ctx context.Context, principal Principal, bookingID string) (booking Booking, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}
	if s.bookings == nil {
		err = fmt.Errorf("booking repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "Approve",
		"principal_id", principal.UserID,
		"booking_id", bookingID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to approve booking", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "booking approved")
	}()

	var existing Booking
	existing, err = s.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	if existing.MentorID != principal.UserID {
		err = ErrUnauthorized
		return
	}
	if existing.Status != BookingStatusRequested {
		err = ErrInvalidState
		return
	}

	var link string
	if s.meetings != nil {
		link, err = s.meetings.ProvisionMeeting(ctx, MeetingRequest{
			BookingID: existing.ID,
			MentorID:  existing.MentorID,
			LearnerID: existing.LearnerID,
			Start:     existing.Start,
		})
		if err != nil {
			err = fmt.Errorf("%w: meeting provisioning failed: %v", ErrBackendUnavailable, err)
			return
		}
		if strings.TrimSpace(link) == "" {
			err = fmt.Errorf("%w: meeting provisioning returned no reference", ErrBackendUnavailable)
			return
		}
	}

	updated := existing
	updated.Status = BookingStatusApproved
	if link != "" {
		updated.MeetingLink = &link
	}
	updated.UpdatedAt = s.now()

	booking, err = s.bookings.UpdateBooking(ctx, updated)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	return
}

// Deny transitions a requested booking to denied. The reason is advisory
// text and is stored unvalidated.
func (s *BookingService) Deny(ctx context.Context, params DenyBookingParams) (booking Booking, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}
	if s.bookings == nil {
		err = fmt.Errorf("booking repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "Deny",
		"principal_id", params.Principal.UserID,
		"booking_id", params.BookingID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to deny booking", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "booking denied")
	}()

	var existing Booking
	existing, err = s.bookings.GetBooking(ctx, params.BookingID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	if existing.MentorID != params.Principal.UserID {
		err = ErrUnauthorized
		return
	}
	if existing.Status != BookingStatusRequested {
		err = ErrInvalidState
		return
	}

	updated := existing
	updated.Status = BookingStatusDenied
	if reason := strings.TrimSpace(params.Reason); reason != "" {
		updated.DenialReason = &reason
	}
	updated.UpdatedAt = s.now()

	booking, err = s.bookings.UpdateBooking(ctx, updated)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	return
}

// Cancel abandons a booking. Either party may cancel while the request is
// requested or approved.
func (s *BookingService) Cancel(ctx context.Context, principal Principal, bookingID string) (booking Booking, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}
	if s.bookings == nil {
		err = fmt.Errorf("booking repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "Cancel",
		"principal_id", principal.UserID,
		"booking_id", bookingID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to cancel booking", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "booking cancelled")
	}()

	var existing Booking
	existing, err = s.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	if existing.LearnerID != principal.UserID && existing.MentorID != principal.UserID {
		err = ErrUnauthorized
		return
	}
	if existing.Status != BookingStatusRequested && existing.Status != BookingStatusApproved {
		err = ErrInvalidState
		return
	}

	updated := existing
	updated.Status = BookingStatusCancelled
	updated.UpdatedAt = s.now()

	booking, err = s.bookings.UpdateBooking(ctx, updated)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	return
}

// Complete transitions an approved booking to completed once its scheduled
// end has passed.
func (s *BookingService) Complete(ctx context.Context, principal Principal, bookingID string) (booking Booking, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}
	if s.bookings == nil {
		err = fmt.Errorf("booking repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "Complete",
		"principal_id", principal.UserID,
		"booking_id", bookingID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to complete booking", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "booking completed")
	}()

	var existing Booking
	existing, err = s.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	if existing.LearnerID != principal.UserID && existing.MentorID != principal.UserID {
		err = ErrUnauthorized
		return
	}
	if existing.Status != BookingStatusApproved {
		err = ErrInvalidState
		return
	}
	if s.now().Before(existing.End) {
		err = ErrInvalidState
		return
	}

	updated := existing
	updated.Status = BookingStatusCompleted
	updated.UpdatedAt = s.now()

	booking, err = s.bookings.UpdateBooking(ctx, updated)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	return
}

// GetBooking returns a booking visible to one of its parties.
func (s *BookingService) GetBooking(ctx context.Context, principal Principal, bookingID string) (Booking, error) {
	if s == nil {
		return Booking{}, fmt.Errorf("BookingService is nil")
	}
	if s.bookings == nil {
		return Booking{}, ErrNotFound
	}

	booking, err := s.bookings.GetBooking(ctx, bookingID)
	if err != nil {
		return Booking{}, mapRepoError(err)
	}
	if booking.LearnerID != principal.UserID && booking.MentorID != principal.UserID {
		return Booking{}, ErrUnauthorized
	}
	return booking, nil
}

// ListBookings enumerates the caller's own bookings, newest first.
func (s *BookingService) ListBookings(ctx context.Context, params ListBookingsParams) (bookings []Booking, err error) {
	if s == nil {
		err = fmt.Errorf("BookingService is nil")
		return
	}
	if s.bookings == nil {
		return nil, nil
	}

	filter := BookingRepositoryFilter{Status: params.Status}
	switch params.Principal.Role {
	case identity.RoleMentor:
		filter.MentorID = params.Principal.UserID
	default:
		filter.LearnerID = params.Principal.UserID
	}

	raw, err := s.bookings.ListBookings(ctx, filter)
	if err != nil {
		if isNotFoundError(err) {
			return nil, nil
		}
		err = mapRepoError(err)
		return
	}

	bookings = make([]Booking, len(raw))
	copy(bookings, raw)
	sort.SliceStable(bookings, func(i, j int) bool {
		if bookings[i].CreatedAt.Equal(bookings[j].CreatedAt) {
			return bookings[i].ID < bookings[j].ID
		}
		return bookings[i].CreatedAt.After(bookings[j].CreatedAt)
	})

	return
}

func (s *BookingService) ensureSlotDeclared(ctx context.Context, input BookingInput) error {
	if s.slots == nil {
		return nil
	}
	exists, err := s.slots.SlotExists(ctx, strings.TrimSpace(input.MentorID), input.Start.Weekday(), input.Start.Format("15:04"))
	if err != nil {
		return mapRepoError(err)
	}
	if exists {
		return nil
	}
	vErr := &ValidationError{}
	vErr.add("start", "mentor has no matching availability slot")
	return vErr
}

func validateBookingInput(input BookingInput) *ValidationError {
	vErr := &ValidationError{}

	if strings.TrimSpace(input.MentorID) == "" {
		vErr.add("mentor_id", "mentor id is required")
	}
	if strings.TrimSpace(input.Topic) == "" {
		vErr.add("topic", "topic is required")
	}
	if input.Start.IsZero() {
		vErr.add("start", "start is required")
	}
	if input.End.IsZero() {
		vErr.add("end", "end is required")
	}
	if !input.Start.IsZero() && !input.End.IsZero() && !input.Start.Before(input.End) {
		vErr.add("time", "start must be before end")
	}

	return vErr
}
