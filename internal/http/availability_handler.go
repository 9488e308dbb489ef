package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/evymii/pineder-sub001/internal/application"
)

// AvailabilityService describes the availability grid operations the handler
// depends on.
type AvailabilityService interface {
	ToggleSlot(ctx context.Context, params application.ToggleSlotParams) (application.AvailabilitySlot, error)
	ListAvailability(ctx context.Context, mentorID string) ([]application.AvailabilitySlot, error)
	Flush(ctx context.Context, mentorID string) (application.FlushResult, error)
}

// AvailabilityHandler serves the mentor availability grid endpoints.
type AvailabilityHandler struct {
	service   AvailabilityService
	responder responder
	logger    *slog.Logger
}

// NewAvailabilityHandler constructs an AvailabilityHandler.
func NewAvailabilityHandler(service AvailabilityService, logger *slog.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{
		service:   service,
		responder: newResponder(logger),
		logger:    logger,
	}
}

func (h *AvailabilityHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "AvailabilityHandler", operation, attrs...)
}

type toggleSlotRequest struct {
	DayOfWeek int    `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time,omitempty"`
}

type availabilitySlotDTO struct {
	MentorID  string `json:"mentor_id"`
	DayOfWeek int    `json:"day_of_week"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Available bool   `json:"available"`
	UpdatedAt string `json:"updated_at"`
}

func toAvailabilitySlotDTO(slot application.AvailabilitySlot) availabilitySlotDTO {
	return availabilitySlotDTO{
		MentorID:  slot.MentorID,
		DayOfWeek: int(slot.DayOfWeek),
		StartTime: slot.StartTime,
		EndTime:   slot.EndTime,
		Available: slot.Available,
		UpdatedAt: slot.UpdatedAt.Format(time.RFC3339Nano),
	}
}

// Toggle handles POST /mentors/{mentorID}/availability/toggle. The write
// lands in the mentor's pending buffer; the response reflects the optimistic
// grid state. Mentors can only edit their own grid.
func (h *AvailabilityHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.service == nil {
		h.responder.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "Availability handling is not configured."})
		return
	}

	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		h.responder.writeError(ctx, w, http.StatusUnauthorized, errMissingToken)
		return
	}
	if mentorID := strings.TrimSpace(mux.Vars(r)["mentorID"]); mentorID != principal.UserID {
		h.responder.handleServiceError(ctx, w, application.ErrUnauthorized)
		return
	}

	var req toggleSlotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(ctx, "toggle").WarnContext(ctx, "failed to decode request body", "error", err)
		h.responder.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	slot, err := h.service.ToggleSlot(ctx, application.ToggleSlotParams{
		Principal: principal,
		DayOfWeek: time.Weekday(req.DayOfWeek),
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
	})
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	h.responder.writeJSON(ctx, w, http.StatusOK, toAvailabilitySlotDTO(slot))
}

// List handles GET /mentors/{mentorID}/availability. The returned grid merges
// the persisted slots with any writes still sitting in the pending buffer.
func (h *AvailabilityHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.service == nil {
		h.responder.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "Availability handling is not configured."})
		return
	}

	mentorID := strings.TrimSpace(mux.Vars(r)["mentorID"])
	if mentorID == "" {
		h.responder.writeError(ctx, w, http.StatusBadRequest, errInvalidMentorID)
		return
	}

	slots, err := h.service.ListAvailability(ctx, mentorID)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	dtos := make([]availabilitySlotDTO, 0, len(slots))
	for _, slot := range slots {
		dtos = append(dtos, toAvailabilitySlotDTO(slot))
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, dtos)
}

type flushResultDTO struct {
	Outcome string `json:"outcome"`
	Reason  string `json:"reason,omitempty"`
}

// Flush handles POST /mentors/{mentorID}/availability/flush. It forces the
// caller's pending buffer to the backend immediately instead of waiting for
// the debounce interval.
func (h *AvailabilityHandler) Flush(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.service == nil {
		h.responder.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "Availability handling is not configured."})
		return
	}

	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		h.responder.writeError(ctx, w, http.StatusUnauthorized, errMissingToken)
		return
	}
	if mentorID := strings.TrimSpace(mux.Vars(r)["mentorID"]); mentorID != principal.UserID {
		h.responder.handleServiceError(ctx, w, application.ErrUnauthorized)
		return
	}

	result, err := h.service.Flush(ctx, principal.UserID)
	if err != nil {
		h.log(ctx, "flush").WarnContext(ctx, "availability flush failed", "error", err, "outcome", string(result.Outcome))
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	h.responder.writeJSON(ctx, w, http.StatusOK, flushResultDTO{
		Outcome: string(result.Outcome),
		Reason:  result.Reason,
	})
}
