package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/evymii/pineder-sub001/internal/identity"
	"github.com/evymii/pineder-sub001/internal/ranking"
)

// TopicRepository captures the persistence interactions needed by the
// topic service.
type TopicRepository interface {
	CreateTopic(ctx context.Context, topic Topic) (Topic, error)
	UpdateTopic(ctx context.Context, topic Topic) (Topic, error)
	GetTopic(ctx context.Context, id string) (Topic, error)
	ListTopics(ctx context.Context, filter TopicRepositoryFilter) ([]Topic, error)
	UpsertVote(ctx context.Context, vote Vote) error
	DeleteVote(ctx context.Context, topicID, voterID string) error
	ListVotes(ctx context.Context, topicIDs []string) ([]Vote, error)
}

// TopicRepositoryFilter narrows queries issued to the topic repository.
type TopicRepositoryFilter struct {
	Category   TopicCategory
	Difficulty TopicDifficulty
	Status     TopicStatus
	AuthorID   string
}

// TopicService orchestrates validation, authorization, and persistence for
// the topic and vote ledger.
type TopicService struct {
	topics      TopicRepository
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewTopicService wires dependencies for topic operations.
func NewTopicService(topics TopicRepository, idGenerator func() string, now func() time.Time) *TopicService {
	return NewTopicServiceWithLogger(topics, idGenerator, now, nil)
}

// NewTopicServiceWithLogger constructs a topic service with a specified logger.
func NewTopicServiceWithLogger(topics TopicRepository, idGenerator func() string, now func() time.Time, logger *slog.Logger) *TopicService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &TopicService{topics: topics, idGenerator: idGenerator, now: now, logger: defaultLogger(logger)}
}

func (s *TopicService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "TopicService", operation, attrs...)
}

// SubmitTopic validates and persists a new topic submission. New submissions
// always start pending.
func (s *TopicService) SubmitTopic(ctx context.Context, params SubmitTopicParams) (topic Topic, err error) {
	if s == nil {
		err = fmt.Errorf("TopicService is nil")
		return
	}

	logger := s.loggerWith(ctx, "SubmitTopic", "principal_id", params.Principal.UserID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to submit topic", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("topic_id", topic.ID).InfoContext(ctx, "topic submitted")
	}()

	if params.Principal.Role != identity.RoleLearner && params.Principal.Role != identity.RoleMentor {
		err = ErrUnauthorized
		return
	}

	vErr := validateTopicInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	submittedAt := s.now()
	topic = Topic{
		ID:                s.idGenerator(),
		AuthorID:          params.Principal.UserID,
		AuthorDisplayName: params.Principal.DisplayName,
		Title:             strings.TrimSpace(params.Input.Title),
		Description:       strings.TrimSpace(params.Input.Description),
		Category:          params.Input.Category,
		Difficulty:        params.Input.Difficulty,
		Status:            TopicStatusPending,
		SubmittedAt:       submittedAt,
		UpdatedAt:         submittedAt,
	}

	if s.topics == nil {
		return
	}

	var persisted Topic
	persisted, err = s.topics.CreateTopic(ctx, topic)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	topic = persisted
	return
}

// EditTopic applies author restricted edits to an existing submission.
func (s *TopicService) EditTopic(ctx context.Context, params EditTopicParams) (topic Topic, err error) {
	if s == nil {
		err = fmt.Errorf("TopicService is nil")
		return
	}
	if s.topics == nil {
		err = fmt.Errorf("topic repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "EditTopic",
		"principal_id", params.Principal.UserID,
		"topic_id", params.TopicID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to edit topic", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "topic edited")
	}()

	var existing Topic
	existing, err = s.topics.GetTopic(ctx, params.TopicID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	if existing.AuthorID != params.Principal.UserID {
		err = ErrUnauthorized
		return
	}

	vErr := validateTopicInput(params.Input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	updated := existing
	updated.Title = strings.TrimSpace(params.Input.Title)
	updated.Description = strings.TrimSpace(params.Input.Description)
	updated.Category = params.Input.Category
	updated.Difficulty = params.Input.Difficulty
	updated.UpdatedAt = s.now()

	topic, err = s.topics.UpdateTopic(ctx, updated)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	return
}

// CastVote records the voter's current vote on a topic. A new vote of a
// different kind replaces the prior vote; re-casting the same kind is a
// no-op at the ledger level.
func (s *TopicService) CastVote(ctx context.Context, params CastVoteParams) (err error) {
	if s == nil {
		return fmt.Errorf("TopicService is nil")
	}
	if s.topics == nil {
		return fmt.Errorf("topic repository not configured")
	}

	logger := s.loggerWith(ctx, "CastVote",
		"principal_id", params.Principal.UserID,
		"topic_id", params.TopicID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to cast vote", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "vote cast", "kind", string(params.Kind))
	}()

	if params.Principal.Role != identity.RoleLearner && params.Principal.Role != identity.RoleMentor {
		err = ErrUnauthorized
		return
	}

	if params.Kind != VoteKindUp && params.Kind != VoteKindDown {
		vErr := &ValidationError{}
		vErr.add("kind", "kind must be upvote or downvote")
		err = vErr
		return
	}

	if _, err = s.topics.GetTopic(ctx, params.TopicID); err != nil {
		err = mapRepoError(err)
		return
	}

	vote := Vote{
		ID:        s.idGenerator(),
		TopicID:   params.TopicID,
		VoterID:   params.Principal.UserID,
		Kind:      params.Kind,
		CreatedAt: s.now(),
	}

	if err = s.topics.UpsertVote(ctx, vote); err != nil {
		err = mapRepoError(err)
		return
	}

	return nil
}

// RetractVote removes the voter's vote on a topic if one exists.
func (s *TopicService) RetractVote(ctx context.Context, principal Principal, topicID string) (err error) {
	if s == nil {
		return fmt.Errorf("TopicService is nil")
	}
	if s.topics == nil {
		return fmt.Errorf("topic repository not configured")
	}

	logger := s.loggerWith(ctx, "RetractVote",
		"principal_id", principal.UserID,
		"topic_id", topicID,
	)

	if _, err = s.topics.GetTopic(ctx, topicID); err != nil {
		err = mapRepoError(err)
		logger.ErrorContext(ctx, "failed to retract vote", "error", err, "error_kind", ErrorKind(err))
		return
	}

	if err = s.topics.DeleteVote(ctx, topicID, principal.UserID); err != nil {
		if isNotFoundError(err) {
			return nil
		}
		err = mapRepoError(err)
		logger.ErrorContext(ctx, "failed to retract vote", "error", err, "error_kind", ErrorKind(err))
		return
	}

	logger.InfoContext(ctx, "vote retracted")
	return nil
}

// ListTopics returns topics matching the filters, ranked by score with
// deterministic tie-breaks. Reads are public.
func (s *TopicService) ListTopics(ctx context.Context, params ListTopicsParams) (ranked []RankedTopic, err error) {
	if s == nil {
		err = fmt.Errorf("TopicService is nil")
		return
	}
	if s.topics == nil {
		return nil, nil
	}

	logger := s.loggerWith(ctx, "ListTopics")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list topics", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("result_count", len(ranked)).InfoContext(ctx, "topics listed")
	}()

	topics, err := s.topics.ListTopics(ctx, TopicRepositoryFilter{
		Category:   params.Category,
		Difficulty: params.Difficulty,
		Status:     params.Status,
	})
	if err != nil {
		if isNotFoundError(err) {
			return nil, nil
		}
		err = mapRepoError(err)
		return
	}
	if len(topics) == 0 {
		return nil, nil
	}

	ids := make([]string, 0, len(topics))
	for _, topic := range topics {
		ids = append(ids, topic.ID)
	}

	votes, err := s.topics.ListVotes(ctx, ids)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	ranked = rankTopics(topics, votes)
	return
}

// TransitionStatus moves a topic between curation states. Only mentors may
// move a topic out of pending; rejected is terminal.
func (s *TopicService) TransitionStatus(ctx context.Context, params TransitionTopicParams) (topic Topic, err error) {
	if s == nil {
		err = fmt.Errorf("TopicService is nil")
		return
	}
	if s.topics == nil {
		err = fmt.Errorf("topic repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "TransitionStatus",
		"principal_id", params.Principal.UserID,
		"topic_id", params.TopicID,
		"new_status", string(params.NewStatus),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to transition topic", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "topic transitioned")
	}()

	if params.Principal.Role != identity.RoleMentor {
		err = ErrUnauthorized
		return
	}

	if !isTopicStatus(params.NewStatus) {
		vErr := &ValidationError{}
		vErr.add("status", "unknown topic status")
		err = vErr
		return
	}

	var existing Topic
	existing, err = s.topics.GetTopic(ctx, params.TopicID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	if !topicTransitionAllowed(existing.Status, params.NewStatus) {
		err = ErrInvalidState
		return
	}

	updated := existing
	updated.Status = params.NewStatus
	updated.UpdatedAt = s.now()
	if params.NewStatus == TopicStatusEnhanced {
		if params.Annotations.EnhancedTitle != nil {
			updated.EnhancedTitle = normalizeOptionalString(params.Annotations.EnhancedTitle)
		}
		if params.Annotations.EnhancedDescription != nil {
			updated.EnhancedDescription = normalizeOptionalString(params.Annotations.EnhancedDescription)
		}
	}
	if params.Annotations.Notes != nil {
		updated.CuratorNotes = normalizeOptionalString(params.Annotations.Notes)
	}

	topic, err = s.topics.UpdateTopic(ctx, updated)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	return
}

func rankTopics(topics []Topic, votes []Vote) []RankedTopic {
	entries := make([]ranking.Topic, 0, len(topics))
	byID := make(map[string]Topic, len(topics))
	for _, topic := range topics {
		entries = append(entries, ranking.Topic{ID: topic.ID, SubmittedAt: topic.SubmittedAt})
		byID[topic.ID] = topic
	}

	ballots := make([]ranking.Vote, 0, len(votes))
	for _, vote := range votes {
		ballots = append(ballots, ranking.Vote{
			TopicID: vote.TopicID,
			VoterID: vote.VoterID,
			Kind:    ranking.VoteKind(vote.Kind),
		})
	}

	ordered := ranking.Rank(entries, ballots)
	ranked := make([]RankedTopic, 0, len(ordered))
	for _, entry := range ordered {
		ranked = append(ranked, RankedTopic{Topic: byID[entry.Topic.ID], Score: entry.Score})
	}
	return ranked
}

func validateTopicInput(input TopicInput) *ValidationError {
	vErr := &ValidationError{}

	if strings.TrimSpace(input.Title) == "" {
		vErr.add("title", "title is required")
	}
	if strings.TrimSpace(input.Description) == "" {
		vErr.add("description", "description is required")
	}
	switch input.Category {
	case TopicCategoryFrontend, TopicCategoryBackend, TopicCategoryFullStack:
	case "":
		vErr.add("category", "category is required")
	default:
		vErr.add("category", "unknown category")
	}
	switch input.Difficulty {
	case "", TopicDifficultyBeginner, TopicDifficultyIntermediate, TopicDifficultyAdvanced:
	default:
		vErr.add("difficulty", "unknown difficulty")
	}

	return vErr
}

func isTopicStatus(status TopicStatus) bool {
	switch status {
	case TopicStatusPending, TopicStatusApproved, TopicStatusEnhanced, TopicStatusRejected:
		return true
	}
	return false
}

func topicTransitionAllowed(from, to TopicStatus) bool {
	if from == to {
		return false
	}
	switch from {
	case TopicStatusPending:
		return to == TopicStatusApproved || to == TopicStatusEnhanced || to == TopicStatusRejected
	case TopicStatusApproved:
		return to == TopicStatusEnhanced || to == TopicStatusRejected
	case TopicStatusEnhanced:
		return to == TopicStatusApproved || to == TopicStatusRejected
	case TopicStatusRejected:
		return false
	}
	return false
}

func normalizeOptionalString(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
