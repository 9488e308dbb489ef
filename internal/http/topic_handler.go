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

// TopicService describes the topic operations the handler depends on.
type TopicService interface {
	SubmitTopic(ctx context.Context, params application.SubmitTopicParams) (application.Topic, error)
	EditTopic(ctx context.Context, params application.EditTopicParams) (application.Topic, error)
	CastVote(ctx context.Context, params application.CastVoteParams) error
	RetractVote(ctx context.Context, principal application.Principal, topicID string) error
	ListTopics(ctx context.Context, params application.ListTopicsParams) ([]application.RankedTopic, error)
	TransitionStatus(ctx context.Context, params application.TransitionTopicParams) (application.Topic, error)
}

// TopicHandler serves the topic submission, voting and curation endpoints.
type TopicHandler struct {
	service   TopicService
	responder responder
	logger    *slog.Logger
}

// NewTopicHandler constructs a TopicHandler.
func NewTopicHandler(service TopicService, logger *slog.Logger) *TopicHandler {
	return &TopicHandler{
		service:   service,
		responder: newResponder(logger),
		logger:    logger,
	}
}

func (h *TopicHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "TopicHandler", operation, attrs...)
}

type topicRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Difficulty  string `json:"difficulty,omitempty"`
}

type topicDTO struct {
	ID                  string  `json:"id"`
	AuthorID            string  `json:"author_id"`
	AuthorDisplayName   string  `json:"author_display_name"`
	Title               string  `json:"title"`
	Description         string  `json:"description"`
	Category            string  `json:"category"`
	Difficulty          string  `json:"difficulty,omitempty"`
	Status              string  `json:"status"`
	EnhancedTitle       *string `json:"enhanced_title,omitempty"`
	EnhancedDescription *string `json:"enhanced_description,omitempty"`
	CuratorNotes        *string `json:"curator_notes,omitempty"`
	SubmittedAt         string  `json:"submitted_at"`
	UpdatedAt           string  `json:"updated_at"`
}

type rankedTopicDTO struct {
	topicDTO
	Score int `json:"score"`
}

func toTopicDTO(topic application.Topic) topicDTO {
	return topicDTO{
		ID:                  topic.ID,
		AuthorID:            topic.AuthorID,
		AuthorDisplayName:   topic.AuthorDisplayName,
		Title:               topic.Title,
		Description:         topic.Description,
		Category:            string(topic.Category),
		Difficulty:          string(topic.Difficulty),
		Status:              string(topic.Status),
		EnhancedTitle:       topic.EnhancedTitle,
		EnhancedDescription: topic.EnhancedDescription,
		CuratorNotes:        topic.CuratorNotes,
		SubmittedAt:         topic.SubmittedAt.Format(time.RFC3339Nano),
		UpdatedAt:           topic.UpdatedAt.Format(time.RFC3339Nano),
	}
}

// Submit handles POST /topics.
func (h *TopicHandler) Submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.service == nil {
		h.responder.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "Topic handling is not configured."})
		return
	}

	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		h.responder.writeError(ctx, w, http.StatusUnauthorized, errMissingToken)
		return
	}

	var req topicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(ctx, "submit").WarnContext(ctx, "failed to decode request body", "error", err)
		h.responder.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	topic, err := h.service.SubmitTopic(ctx, application.SubmitTopicParams{
		Principal: principal,
		Input: application.TopicInput{
			Title:       req.Title,
			Description: req.Description,
			Category:    application.TopicCategory(req.Category),
			Difficulty:  application.TopicDifficulty(req.Difficulty),
		},
	})
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	h.responder.writeJSON(ctx, w, http.StatusCreated, toTopicDTO(topic))
}

// Edit handles PUT /topics/{topicID}.
func (h *TopicHandler) Edit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.service == nil {
		h.responder.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "Topic handling is not configured."})
		return
	}

	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		h.responder.writeError(ctx, w, http.StatusUnauthorized, errMissingToken)
		return
	}

	topicID := strings.TrimSpace(mux.Vars(r)["topicID"])
	if topicID == "" {
		h.responder.writeError(ctx, w, http.StatusBadRequest, errInvalidTopicID)
		return
	}

	var req topicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(ctx, "edit", "topic_id", topicID).WarnContext(ctx, "failed to decode request body", "error", err)
		h.responder.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	topic, err := h.service.EditTopic(ctx, application.EditTopicParams{
		Principal: principal,
		TopicID:   topicID,
		Input: application.TopicInput{
			Title:       req.Title,
			Description: req.Description,
			Category:    application.TopicCategory(req.Category),
			Difficulty:  application.TopicDifficulty(req.Difficulty),
		},
	})
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	h.responder.writeJSON(ctx, w, http.StatusOK, toTopicDTO(topic))
}

type voteRequest struct {
	Kind string `json:"kind"`
}

// Vote handles POST /topics/{topicID}/votes.
func (h *TopicHandler) Vote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.service == nil {
		h.responder.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "Topic handling is not configured."})
		return
	}

	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		h.responder.writeError(ctx, w, http.StatusUnauthorized, errMissingToken)
		return
	}

	topicID := strings.TrimSpace(mux.Vars(r)["topicID"])
	if topicID == "" {
		h.responder.writeError(ctx, w, http.StatusBadRequest, errInvalidTopicID)
		return
	}

	var req voteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(ctx, "vote", "topic_id", topicID).WarnContext(ctx, "failed to decode request body", "error", err)
		h.responder.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	err := h.service.CastVote(ctx, application.CastVoteParams{
		Principal: principal,
		TopicID:   topicID,
		Kind:      application.VoteKind(req.Kind),
	})
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	h.responder.writeJSON(ctx, w, http.StatusNoContent, nil)
}

// Unvote handles DELETE /topics/{topicID}/votes.
func (h *TopicHandler) Unvote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.service == nil {
		h.responder.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "Topic handling is not configured."})
		return
	}

	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		h.responder.writeError(ctx, w, http.StatusUnauthorized, errMissingToken)
		return
	}

	topicID := strings.TrimSpace(mux.Vars(r)["topicID"])
	if topicID == "" {
		h.responder.writeError(ctx, w, http.StatusBadRequest, errInvalidTopicID)
		return
	}

	if err := h.service.RetractVote(ctx, principal, topicID); err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	h.responder.writeJSON(ctx, w, http.StatusNoContent, nil)
}

// List handles GET /topics. Results come back ranked by vote score.
func (h *TopicHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.service == nil {
		h.responder.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "Topic handling is not configured."})
		return
	}

	query := r.URL.Query()
	ranked, err := h.service.ListTopics(ctx, application.ListTopicsParams{
		Category:   application.TopicCategory(query.Get("category")),
		Difficulty: application.TopicDifficulty(query.Get("difficulty")),
		Status:     application.TopicStatus(query.Get("status")),
	})
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	dtos := make([]rankedTopicDTO, 0, len(ranked))
	for _, entry := range ranked {
		dtos = append(dtos, rankedTopicDTO{topicDTO: toTopicDTO(entry.Topic), Score: entry.Score})
	}
	h.responder.writeJSON(ctx, w, http.StatusOK, dtos)
}

type transitionTopicRequest struct {
	Status              string  `json:"status"`
	EnhancedTitle       *string `json:"enhanced_title,omitempty"`
	EnhancedDescription *string `json:"enhanced_description,omitempty"`
	Notes               *string `json:"notes,omitempty"`
}

// Transition handles PUT /topics/{topicID}/status.
func (h *TopicHandler) Transition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.service == nil {
		h.responder.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "Topic handling is not configured."})
		return
	}

	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		h.responder.writeError(ctx, w, http.StatusUnauthorized, errMissingToken)
		return
	}

	topicID := strings.TrimSpace(mux.Vars(r)["topicID"])
	if topicID == "" {
		h.responder.writeError(ctx, w, http.StatusBadRequest, errInvalidTopicID)
		return
	}

	var req transitionTopicRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(ctx, "transition", "topic_id", topicID).WarnContext(ctx, "failed to decode request body", "error", err)
		h.responder.writeError(ctx, w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	topic, err := h.service.TransitionStatus(ctx, application.TransitionTopicParams{
		Principal: principal,
		TopicID:   topicID,
		NewStatus: application.TopicStatus(req.Status),
		Annotations: application.TopicAnnotations{
			EnhancedTitle:       req.EnhancedTitle,
			EnhancedDescription: req.EnhancedDescription,
			Notes:               req.Notes,
		},
	})
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	h.responder.writeJSON(ctx, w, http.StatusOK, toTopicDTO(topic))
}
