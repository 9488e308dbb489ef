package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/evymii/pineder-sub001/internal/application"
)

var errInvalidBookingID = errors.New("The booking id in the request path is invalid.")

// BookingService describes the one-on-one booking operations the handler
// depends on.
type BookingService interface {
	BookSession(ctx context.Context, params application.BookSessionParams) (application.Booking, error)
	Approve(ctx context.Context, principal application.Principal, bookingID string) (application.Booking, error)
	Deny(ctx context.Context, params application.DenyBookingParams) (application.Booking, error)
	Cancel(ctx context.Context, principal application.Principal, bookingID string) (application.Booking, error)
	Complete(ctx context.Context, principal application.Principal, bookingID string) (application.Booking, error)
	GetBooking(ctx context.Context, principal application.Principal, bookingID string) (application.Booking, error)
	ListBookings(ctx context.Context, params application.ListBookingsParams) ([]application.Booking, error)
}

// BookingHandler serves the one-on-one booking endpoints.
type BookingHandler struct {
	service   BookingService
	responder responder
	logger    *slog.Logger
}

// NewBookingHandler constructs a BookingHandler.
func NewBookingHandler(service BookingService, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{
		service:   service,
		responder: newResponder(logger),
		logger:    logger,
	}
}

func (h *BookingHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "BookingHandler", operation, attrs...)
}

type bookingRequest struct {
	MentorID string    `json:"mentor_id"`
	Topic    string    `json:"topic"`
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
}

type bookingDTO struct {
	ID           string  `json:"id"`
	LearnerID    string  `json:"learner_id"`
	MentorID     string  `json:"mentor_id"`
	Topic        string  `json:"topic"`
	Start        string  `json:"start"`
	End          string  `json:"end"`
	Status       string  `json:"status"`
	DenialReason *string `json:"denial_reason,omitempty"`
	MeetingLink  *string `json:"meeting_link,omitempty"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`
}

func toBookingDTO(booking application.Booking) bookingDTO {
	return bookingDTO{
		ID:           booking.ID,
		LearnerID:    booking.LearnerID,
		MentorID:     booking.MentorID,
		Topic:        booking.Topic,
		Start:        booking.Start.Format(time.RFC3339Nano),
		End:          booking.End.Format(time.RFC3339Nano),
		Status:       string(booking.Status),
		DenialReason: booking.DenialReason,
		MeetingLink:  booking.MeetingLink,
		CreatedAt:    booking.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt:    booking.UpdatedAt.Format(time.RFC3339Nano),
	}
}

func (h *BookingHandler) bookingIDFromPath(ctx context.Context, w http.ResponseWriter, r *http.Request) (string, bool) {
	bookingID := strings.TrimSpace(mux.Vars(r)["bookingID"])
	if bookingID == "" {
		h.responder.writeError(ctx, w, http.StatusBadRequest, errInvalidBookingID)
		return "", false
	}
	return bookingID, true
}

// Create handles POST /bookings.
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.service == nil {
		h.responder.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "Booking handling is not configured."})
		return
	}

	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		h.responder.writeError(ctx, w, http.StatusUnauthorized, errMissingToken)
		return
	}

	var req bookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(ctx, "create").WarnContext(ctx, "failed to decode request body", "error", err)
		h.responder.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	booking, err := h.service.BookSession(ctx, application.BookSessionParams{
		Principal: principal,
		Input: application.BookingInput{
			MentorID: req.MentorID,
			Topic:    req.Topic,
			Start:    req.Start,
			End:      req.End,
		},
	})
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	h.responder.writeJSON(ctx, w, http.StatusCreated, toBookingDTO(booking))
}

// Get handles GET /bookings/{bookingID}.
func (h *BookingHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.service == nil {
		h.responder.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "Booking handling is not configured."})
		return
	}

	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		h.responder.writeError(ctx, w, http.StatusUnauthorized, errMissingToken)
		return
	}

	bookingID, ok := h.bookingIDFromPath(ctx, w, r)
	if !ok {
		return
	}

	booking, err := h.service.GetBooking(ctx, principal, bookingID)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	h.responder.writeJSON(ctx, w, http.StatusOK, toBookingDTO(booking))
}

// List handles GET /bookings. Results are scoped to the caller's own side of
// each booking.
func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.service == nil {
		h.responder.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "Booking handling is not configured."})
		return
	}

	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		h.responder.writeError(ctx, w, http.StatusUnauthorized, errMissingToken)
		return
	}

	bookings, err := h.service.ListBookings(ctx, application.ListBookingsParams{
		Principal: principal,
		Status:    application.BookingStatus(r.URL.Query().Get("status")),
	})
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	dtos := make([]bookingDTO, 0, len(bookings))
	for _, booking := range bookings {
		dtos = append(dtos, toBookingDTO(booking))
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, dtos)
}

// Approve handles POST /bookings/{bookingID}/approve.
func (h *BookingHandler) Approve(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.service == nil {
		h.responder.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "Booking handling is not configured."})
		return
	}

	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		h.responder.writeError(ctx, w, http.StatusUnauthorized, errMissingToken)
		return
	}

	bookingID, ok := h.bookingIDFromPath(ctx, w, r)
	if !ok {
		return
	}

	booking, err := h.service.Approve(ctx, principal, bookingID)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	h.responder.writeJSON(ctx, w, http.StatusOK, toBookingDTO(booking))
}

type denyBookingRequest struct {
	Reason string `json:"reason"`
}

// Deny handles POST /bookings/{bookingID}/deny.
func (h *BookingHandler) Deny(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.service == nil {
		h.responder.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "Booking handling is not configured."})
		return
	}

	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		h.responder.writeError(ctx, w, http.StatusUnauthorized, errMissingToken)
		return
	}

	bookingID, ok := h.bookingIDFromPath(ctx, w, r)
	if !ok {
		return
	}

	var req denyBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(ctx, "deny", "booking_id", bookingID).WarnContext(ctx, "failed to decode request body", "error", err)
		h.responder.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	booking, err := h.service.Deny(ctx, application.DenyBookingParams{
		Principal: principal,
		BookingID: bookingID,
		Reason:    req.Reason,
	})
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	h.responder.writeJSON(ctx, w, http.StatusOK, toBookingDTO(booking))
}

// Cancel handles POST /bookings/{bookingID}/cancel.
func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.service == nil {
		h.responder.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "Booking handling is not configured."})
		return
	}

	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		h.responder.writeError(ctx, w, http.StatusUnauthorized, errMissingToken)
		return
	}

	bookingID, ok := h.bookingIDFromPath(ctx, w, r)
	if !ok {
		return
	}

	booking, err := h.service.Cancel(ctx, principal, bookingID)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	h.responder.writeJSON(ctx, w, http.StatusOK, toBookingDTO(booking))
}

// Complete handles POST /bookings/{bookingID}/complete.
func (h *BookingHandler) Complete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.service == nil {
		h.responder.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "Booking handling is not configured."})
		return
	}

	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		h.responder.writeError(ctx, w, http.StatusUnauthorized, errMissingToken)
		return
	}

	bookingID, ok := h.bookingIDFromPath(ctx, w, r)
	if !ok {
		return
	}

	booking, err := h.service.Complete(ctx, principal, bookingID)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	h.responder.writeJSON(ctx, w, http.StatusOK, toBookingDTO(booking))
}
