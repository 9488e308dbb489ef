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

var errInvalidSessionID = errors.New("The session id in the request path is invalid.")

// GroupSessionService describes the group session operations the handler
// depends on.
type GroupSessionService interface {
	CreateSession(ctx context.Context, params application.CreateGroupSessionParams) (application.GroupSession, error)
	JoinSession(ctx context.Context, params application.JoinSessionParams) (application.GroupSession, error)
	LeaveSession(ctx context.Context, principal application.Principal, sessionID string) (application.GroupSession, error)
	EditSession(ctx context.Context, params application.EditGroupSessionParams) (application.GroupSession, error)
	CancelSession(ctx context.Context, principal application.Principal, sessionID string) (application.GroupSession, error)
	TransitionStatus(ctx context.Context, params application.TransitionSessionParams) (application.GroupSession, error)
	GetSession(ctx context.Context, sessionID string) (application.GroupSession, error)
	ListSessions(ctx context.Context, filter application.GroupSessionRepositoryFilter) ([]application.GroupSession, error)
}

// GroupSessionHandler serves the group session endpoints.
type GroupSessionHandler struct {
	service   GroupSessionService
	responder responder
	logger    *slog.Logger
}

// NewGroupSessionHandler constructs a GroupSessionHandler.
func NewGroupSessionHandler(service GroupSessionService, logger *slog.Logger) *GroupSessionHandler {
	return &GroupSessionHandler{
		service:   service,
		responder: newResponder(logger),
		logger:    logger,
	}
}

func (h *GroupSessionHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "GroupSessionHandler", operation, attrs...)
}

type groupSessionRequest struct {
	TopicID         string    `json:"topic_id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	MaxParticipants int       `json:"max_participants"`
	StartsAt        time.Time `json:"starts_at"`
	DurationMinutes int       `json:"duration_minutes"`
	Location        string    `json:"location"`
	MeetingLink     string    `json:"meeting_link,omitempty"`
	MeetingAddress  string    `json:"meeting_address,omitempty"`
}

type participantDTO struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
	Status      string `json:"status"`
	JoinedAt    string `json:"joined_at"`
}

type groupSessionDTO struct {
	ID              string           `json:"id"`
	TopicID         string           `json:"topic_id"`
	HostMentorID    string           `json:"host_mentor_id"`
	Title           string           `json:"title"`
	Description     string           `json:"description"`
	MaxParticipants int              `json:"max_participants"`
	Status          string           `json:"status"`
	StartsAt        string           `json:"starts_at"`
	DurationMinutes int              `json:"duration_minutes"`
	Location        string           `json:"location"`
	MeetingLink     *string          `json:"meeting_link,omitempty"`
	MeetingAddress  *string          `json:"meeting_address,omitempty"`
	Participants    []participantDTO `json:"participants"`
	CreatedAt       string           `json:"created_at"`
	UpdatedAt       string           `json:"updated_at"`
}

func toGroupSessionDTO(session application.GroupSession) groupSessionDTO {
	participants := make([]participantDTO, 0, len(session.Participants))
	for _, participant := range session.Participants {
		participants = append(participants, participantDTO{
			ID:          participant.ID,
			DisplayName: participant.DisplayName,
			Role:        string(participant.Role),
			Status:      string(participant.Status),
			JoinedAt:    participant.JoinedAt.Format(time.RFC3339Nano),
		})
	}
	return groupSessionDTO{
		ID:              session.ID,
		TopicID:         session.TopicID,
		HostMentorID:    session.HostMentorID,
		Title:           session.Title,
		Description:     session.Description,
		MaxParticipants: session.MaxParticipants,
		Status:          string(session.Status),
		StartsAt:        session.StartsAt.Format(time.RFC3339Nano),
		DurationMinutes: int(session.Duration / time.Minute),
		Location:        string(session.Location),
		MeetingLink:     session.MeetingLink,
		MeetingAddress:  session.MeetingAddress,
		Participants:    participants,
		CreatedAt:       session.CreatedAt.Format(time.RFC3339Nano),
		UpdatedAt:       session.UpdatedAt.Format(time.RFC3339Nano),
	}
}

func (h *GroupSessionHandler) sessionIDFromPath(ctx context.Context, w http.ResponseWriter, r *http.Request) (string, bool) {
	sessionID := strings.TrimSpace(mux.Vars(r)["sessionID"])
	if sessionID == "" {
		h.responder.writeError(ctx, w, http.StatusBadRequest, errInvalidSessionID)
		return "", false
	}
	return sessionID, true
}

// Create handles POST /sessions.
func (h *GroupSessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.service == nil {
		h.responder.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "Session handling is not configured."})
		return
	}

	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		h.responder.writeError(ctx, w, http.StatusUnauthorized, errMissingToken)
		return
	}

	var req groupSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(ctx, "create").WarnContext(ctx, "failed to decode request body", "error", err)
		h.responder.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	session, err := h.service.CreateSession(ctx, application.CreateGroupSessionParams{
		Principal: principal,
		Input: application.GroupSessionInput{
			TopicID:         req.TopicID,
			Title:           req.Title,
			Description:     req.Description,
			MaxParticipants: req.MaxParticipants,
			StartsAt:        req.StartsAt,
			Duration:        time.Duration(req.DurationMinutes) * time.Minute,
			Location:        application.MeetingLocation(req.Location),
			MeetingLink:     req.MeetingLink,
			MeetingAddress:  req.MeetingAddress,
		},
	})
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	h.responder.writeJSON(ctx, w, http.StatusCreated, toGroupSessionDTO(session))
}

// Get handles GET /sessions/{sessionID}. Session details are public.
func (h *GroupSessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.service == nil {
		h.responder.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "Session handling is not configured."})
		return
	}

	sessionID, ok := h.sessionIDFromPath(ctx, w, r)
	if !ok {
		return
	}

	session, err := h.service.GetSession(ctx, sessionID)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	h.responder.writeJSON(ctx, w, http.StatusOK, toGroupSessionDTO(session))
}

// List handles GET /sessions.
func (h *GroupSessionHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.service == nil {
		h.responder.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "Session handling is not configured."})
		return
	}

	query := r.URL.Query()
	sessions, err := h.service.ListSessions(ctx, application.GroupSessionRepositoryFilter{
		HostMentorID: query.Get("host"),
		Status:       application.SessionStatus(query.Get("status")),
	})
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	dtos := make([]groupSessionDTO, 0, len(sessions))
	for _, session := range sessions {
		dtos = append(dtos, toGroupSessionDTO(session))
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, dtos)
}

type joinSessionRequest struct {
	Role string `json:"role,omitempty"`
}

// Join handles POST /sessions/{sessionID}/join. A full session places the
// caller on the waitlist instead of rejecting the join.
func (h *GroupSessionHandler) Join(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.service == nil {
		h.responder.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "Session handling is not configured."})
		return
	}

	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		h.responder.writeError(ctx, w, http.StatusUnauthorized, errMissingToken)
		return
	}

	sessionID, ok := h.sessionIDFromPath(ctx, w, r)
	if !ok {
		return
	}

	var req joinSessionRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.log(ctx, "join", "session_id", sessionID).WarnContext(ctx, "failed to decode request body", "error", err)
			h.responder.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
			return
		}
	}

	session, err := h.service.JoinSession(ctx, application.JoinSessionParams{
		Principal: principal,
		SessionID: sessionID,
		Role:      application.ParticipantRole(req.Role),
	})
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	h.responder.writeJSON(ctx, w, http.StatusOK, toGroupSessionDTO(session))
}

// Leave handles POST /sessions/{sessionID}/leave.
func (h *GroupSessionHandler) Leave(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.service == nil {
		h.responder.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "Session handling is not configured."})
		return
	}

	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		h.responder.writeError(ctx, w, http.StatusUnauthorized, errMissingToken)
		return
	}

	sessionID, ok := h.sessionIDFromPath(ctx, w, r)
	if !ok {
		return
	}

	session, err := h.service.LeaveSession(ctx, principal, sessionID)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	h.responder.writeJSON(ctx, w, http.StatusOK, toGroupSessionDTO(session))
}

type editSessionRequest struct {
	Title           *string    `json:"title,omitempty"`
	Description     *string    `json:"description,omitempty"`
	MaxParticipants *int       `json:"max_participants,omitempty"`
	StartsAt        *time.Time `json:"starts_at,omitempty"`
	DurationMinutes *int       `json:"duration_minutes,omitempty"`
	Location        *string    `json:"location,omitempty"`
	MeetingLink     *string    `json:"meeting_link,omitempty"`
	MeetingAddress  *string    `json:"meeting_address,omitempty"`
}

// Edit handles PUT /sessions/{sessionID}. Only fields present in the body
// are changed.
func (h *GroupSessionHandler) Edit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.service == nil {
		h.responder.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "Session handling is not configured."})
		return
	}

	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		h.responder.writeError(ctx, w, http.StatusUnauthorized, errMissingToken)
		return
	}

	sessionID, ok := h.sessionIDFromPath(ctx, w, r)
	if !ok {
		return
	}

	var req editSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(ctx, "edit", "session_id", sessionID).WarnContext(ctx, "failed to decode request body", "error", err)
		h.responder.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	patch := application.GroupSessionPatch{
		Title:           req.Title,
		Description:     req.Description,
		MaxParticipants: req.MaxParticipants,
		StartsAt:        req.StartsAt,
		MeetingLink:     req.MeetingLink,
		MeetingAddress:  req.MeetingAddress,
	}
	if req.DurationMinutes != nil {
		duration := time.Duration(*req.DurationMinutes) * time.Minute
		patch.Duration = &duration
	}
	if req.Location != nil {
		location := application.MeetingLocation(*req.Location)
		patch.Location = &location
	}

	session, err := h.service.EditSession(ctx, application.EditGroupSessionParams{
		Principal: principal,
		SessionID: sessionID,
		Patch:     patch,
	})
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	h.responder.writeJSON(ctx, w, http.StatusOK, toGroupSessionDTO(session))
}

// Cancel handles DELETE /sessions/{sessionID}.
func (h *GroupSessionHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.service == nil {
		h.responder.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "Session handling is not configured."})
		return
	}

	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		h.responder.writeError(ctx, w, http.StatusUnauthorized, errMissingToken)
		return
	}

	sessionID, ok := h.sessionIDFromPath(ctx, w, r)
	if !ok {
		return
	}

	session, err := h.service.CancelSession(ctx, principal, sessionID)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	h.responder.writeJSON(ctx, w, http.StatusOK, toGroupSessionDTO(session))
}

type transitionSessionRequest struct {
	Status string `json:"status"`
}

// Transition handles PUT /sessions/{sessionID}/status.
func (h *GroupSessionHandler) Transition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.service == nil {
		h.responder.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "Session handling is not configured."})
		return
	}

	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		h.responder.writeError(ctx, w, http.StatusUnauthorized, errMissingToken)
		return
	}

	sessionID, ok := h.sessionIDFromPath(ctx, w, r)
	if !ok {
		return
	}

	var req transitionSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(ctx, "transition", "session_id", sessionID).WarnContext(ctx, "failed to decode request body", "error", err)
		h.responder.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	session, err := h.service.TransitionStatus(ctx, application.TransitionSessionParams{
		Principal: principal,
		SessionID: sessionID,
		NewStatus: application.SessionStatus(req.Status),
	})
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	h.responder.writeJSON(ctx, w, http.StatusOK, toGroupSessionDTO(session))
}
