package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/evymii/pineder-sub001/internal/identity"
)

// AvailabilityRepository captures the persistence interactions needed by the
// availability service. ReplaceSlots writes a mentor's full grid atomically.
type AvailabilityRepository interface {
	ReplaceSlots(ctx context.Context, mentorID string, slots []AvailabilitySlot) error
	ListSlots(ctx context.Context, mentorID string) ([]AvailabilitySlot, error)
}

// RetryPolicy bounds the retry loop applied to backend-unavailable failures.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultRetryPolicy returns the retry bounds used when none are configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:    3,
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      5 * time.Second,
		BackoffFactor: 2.0,
	}
}

// AvailabilityService manages each mentor's weekly grid of bookable slots.
// Toggles apply optimistically to a write buffer; the authoritative grid is
// only what a successful flush has persisted.
type AvailabilityService struct {
	grid   AvailabilityRepository
	buffer *slotBuffer
	retry  RetryPolicy
	sleep  func(ctx context.Context, d time.Duration) error
	now    func() time.Time
	logger *slog.Logger
}

// NewAvailabilityService wires dependencies for availability operations.
func NewAvailabilityService(grid AvailabilityRepository, retry RetryPolicy, now func() time.Time) *AvailabilityService {
	return NewAvailabilityServiceWithLogger(grid, retry, now, nil)
}

// NewAvailabilityServiceWithLogger constructs an availability service with a
// specified logger.
func NewAvailabilityServiceWithLogger(grid AvailabilityRepository, retry RetryPolicy, now func() time.Time, logger *slog.Logger) *AvailabilityService {
	if now == nil {
		now = time.Now
	}
	if retry.MaxRetries <= 0 {
		retry = DefaultRetryPolicy()
	}
	return &AvailabilityService{
		grid:   grid,
		buffer: newSlotBuffer(now),
		retry:  retry,
		sleep:  sleepWithContext,
		now:    now,
		logger: defaultLogger(logger),
	}
}

func (s *AvailabilityService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AvailabilityService", operation, attrs...)
}

// ToggleSlot flips a slot's availability in the mentor's own grid. A slot
// that does not yet exist is created available; toggling twice returns the
// grid to its original state. The change lands in the write buffer and is
// durable only after a flush succeeds.
func (s *AvailabilityService) ToggleSlot(ctx context.Context, params ToggleSlotParams) (slot AvailabilitySlot, err error) {
	if s == nil {
		err = fmt.Errorf("AvailabilityService is nil")
		return
	}

	logger := s.loggerWith(ctx, "ToggleSlot",
		"principal_id", params.Principal.UserID,
		"day", int(params.DayOfWeek),
		"start", params.StartTime,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to toggle slot", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "slot toggled", "available", slot.Available)
	}()

	if params.Principal.Role != identity.RoleMentor {
		err = ErrUnauthorized
		return
	}

	vErr := validateSlotParams(params)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	mentorID := params.Principal.UserID
	start := strings.TrimSpace(params.StartTime)

	slots, err := s.currentGrid(ctx, mentorID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	found := false
	for i := range slots {
		if slots[i].DayOfWeek == params.DayOfWeek && slots[i].StartTime == start {
			slots[i].Available = !slots[i].Available
			slots[i].UpdatedAt = s.now()
			slot = slots[i]
			found = true
			break
		}
	}
	if !found {
		end := strings.TrimSpace(params.EndTime)
		if end == "" {
			end = defaultSlotEnd(start)
		}
		slot = AvailabilitySlot{
			MentorID:  mentorID,
			DayOfWeek: params.DayOfWeek,
			StartTime: start,
			EndTime:   end,
			Available: true,
			UpdatedAt: s.now(),
		}
		slots = append(slots, slot)
	}

	sortSlots(slots)
	s.buffer.Put(mentorID, slots)
	return
}

// ListAvailability returns a mentor's grid ordered by day then start time.
// Reads are public: learners need visibility to book. Pending unflushed
// changes are included so the owner sees their own optimistic state.
func (s *AvailabilityService) ListAvailability(ctx context.Context, mentorID string) (slots []AvailabilitySlot, err error) {
	if s == nil {
		err = fmt.Errorf("AvailabilityService is nil")
		return
	}
	if strings.TrimSpace(mentorID) == "" {
		vErr := &ValidationError{}
		vErr.add("mentor_id", "mentor id is required")
		err = vErr
		return
	}

	slots, err = s.currentGrid(ctx, mentorID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	sortSlots(slots)
	return
}

// Flush writes the mentor's pending grid to the backend. Backend-unavailable
// failures are retried with exponential backoff; when retries are exhausted
// or the write is rejected outright, the pending grid is discarded so local
// state reverts to the backend's authoritative view, and the result says so.
func (s *AvailabilityService) Flush(ctx context.Context, mentorID string) (result FlushResult, err error) {
	if s == nil {
		return FlushResult{}, fmt.Errorf("AvailabilityService is nil")
	}
	if s.grid == nil {
		return FlushResult{}, fmt.Errorf("availability repository not configured")
	}

	logger := s.loggerWith(ctx, "Flush", "mentor_id", mentorID)

	slots, ok := s.buffer.BeginFlush(mentorID)
	if !ok {
		return FlushResult{Outcome: FlushNoop}, nil
	}
	// Keeps the snapshot visible to toggles until the write is confirmed;
	// a revert discards it so reads fall back to the backend grid.
	defer s.buffer.EndFlush(mentorID)

	delay := s.retry.InitialDelay
	var lastErr error
	for attempt := 0; attempt <= s.retry.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := s.sleep(ctx, delay); err != nil {
				lastErr = err
				break
			}
			delay = time.Duration(float64(delay) * s.retry.BackoffFactor)
			if delay > s.retry.MaxDelay {
				delay = s.retry.MaxDelay
			}
		}

		lastErr = s.grid.ReplaceSlots(ctx, mentorID, slots)
		if lastErr == nil {
			logger.InfoContext(ctx, "availability flushed", "slot_count", len(slots), "attempts", attempt+1)
			return FlushResult{Outcome: FlushApplied}, nil
		}
		if !errors.Is(mapRepoError(lastErr), ErrBackendUnavailable) {
			break
		}
	}

	err = mapRepoError(lastErr)
	logger.ErrorContext(ctx, "availability flush reverted", "error", err, "error_kind", ErrorKind(err))
	return FlushResult{Outcome: FlushReverted, Reason: err.Error()}, err
}

// FlushAll flushes every mentor with pending changes. Used by the timer
// driven flush loop; per-mentor failures do not block the others.
func (s *AvailabilityService) FlushAll(ctx context.Context) map[string]FlushResult {
	if s == nil {
		return nil
	}
	results := make(map[string]FlushResult)
	for _, mentorID := range s.buffer.DirtyMentors() {
		result, _ := s.Flush(ctx, mentorID)
		results[mentorID] = result
	}
	return results
}

// FlushLoop periodically flushes pending grids until the context ends.
func (s *AvailabilityService) FlushLoop(ctx context.Context, interval time.Duration) {
	if s == nil || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.FlushAll(ctx)
		}
	}
}

// HasPending reports whether a mentor has unflushed changes.
func (s *AvailabilityService) HasPending(mentorID string) bool {
	if s == nil {
		return false
	}
	_, ok := s.buffer.Get(mentorID)
	return ok
}

func (s *AvailabilityService) currentGrid(ctx context.Context, mentorID string) ([]AvailabilitySlot, error) {
	if pending, ok := s.buffer.Get(mentorID); ok {
		return pending, nil
	}
	if s.grid == nil {
		return nil, nil
	}
	slots, err := s.grid.ListSlots(ctx, mentorID)
	if err != nil {
		if isNotFoundError(err) {
			return nil, nil
		}
		return nil, err
	}
	return slots, nil
}

func validateSlotParams(params ToggleSlotParams) *ValidationError {
	vErr := &ValidationError{}

	if params.DayOfWeek < time.Sunday || params.DayOfWeek > time.Saturday {
		vErr.add("day_of_week", "day must be between 0 and 6")
	}
	if !isClockTime(params.StartTime) {
		vErr.add("start_time", "start time must be HH:MM")
	}
	if strings.TrimSpace(params.EndTime) != "" && !isClockTime(params.EndTime) {
		vErr.add("end_time", "end time must be HH:MM")
	}

	return vErr
}

func isClockTime(value string) bool {
	_, err := time.Parse("15:04", strings.TrimSpace(value))
	return err == nil
}

func defaultSlotEnd(start string) string {
	parsed, err := time.Parse("15:04", start)
	if err != nil {
		return start
	}
	return parsed.Add(time.Hour).Format("15:04")
}

func sortSlots(slots []AvailabilitySlot) {
	sort.SliceStable(slots, func(i, j int) bool {
		if slots[i].DayOfWeek != slots[j].DayOfWeek {
			return slots[i].DayOfWeek < slots[j].DayOfWeek
		}
		return slots[i].StartTime < slots[j].StartTime
	})
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
