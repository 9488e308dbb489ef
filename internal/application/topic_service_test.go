package application

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/evymii/pineder-sub001/internal/identity"
	"github.com/evymii/pineder-sub001/internal/persistence"
)

type topicRepositoryStub struct {
	topics map[string]Topic
	votes  map[string]map[string]Vote

	createErr error
	updateErr error
	getErr    error
	listErr   error
	voteErr   error
}

func newTopicRepositoryStub() *topicRepositoryStub {
	return &topicRepositoryStub{
		topics: make(map[string]Topic),
		votes:  make(map[string]map[string]Vote),
	}
}

func (s *topicRepositoryStub) CreateTopic(_ context.Context, topic Topic) (Topic, error) {
	if s.createErr != nil {
		return Topic{}, s.createErr
	}
	s.topics[topic.ID] = topic
	return topic, nil
}

func (s *topicRepositoryStub) UpdateTopic(_ context.Context, topic Topic) (Topic, error) {
	if s.updateErr != nil {
		return Topic{}, s.updateErr
	}
	if _, ok := s.topics[topic.ID]; !ok {
		return Topic{}, persistence.ErrNotFound
	}
	s.topics[topic.ID] = topic
	return topic, nil
}

func (s *topicRepositoryStub) GetTopic(_ context.Context, id string) (Topic, error) {
	if s.getErr != nil {
		return Topic{}, s.getErr
	}
	topic, ok := s.topics[id]
	if !ok {
		return Topic{}, persistence.ErrNotFound
	}
	return topic, nil
}

func (s *topicRepositoryStub) ListTopics(_ context.Context, filter TopicRepositoryFilter) ([]Topic, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []Topic
	for _, topic := range s.topics {
		if filter.Category != "" && topic.Category != filter.Category {
			continue
		}
		if filter.Difficulty != "" && topic.Difficulty != filter.Difficulty {
			continue
		}
		if filter.Status != "" && topic.Status != filter.Status {
			continue
		}
		if filter.AuthorID != "" && topic.AuthorID != filter.AuthorID {
			continue
		}
		out = append(out, topic)
	}
	return out, nil
}

func (s *topicRepositoryStub) UpsertVote(_ context.Context, vote Vote) error {
	if s.voteErr != nil {
		return s.voteErr
	}
	byVoter, ok := s.votes[vote.TopicID]
	if !ok {
		byVoter = make(map[string]Vote)
		s.votes[vote.TopicID] = byVoter
	}
	byVoter[vote.VoterID] = vote
	return nil
}

func (s *topicRepositoryStub) DeleteVote(_ context.Context, topicID, voterID string) error {
	if s.voteErr != nil {
		return s.voteErr
	}
	byVoter, ok := s.votes[topicID]
	if !ok {
		return persistence.ErrNotFound
	}
	if _, ok := byVoter[voterID]; !ok {
		return persistence.ErrNotFound
	}
	delete(byVoter, voterID)
	return nil
}

func (s *topicRepositoryStub) ListVotes(_ context.Context, topicIDs []string) ([]Vote, error) {
	if s.voteErr != nil {
		return nil, s.voteErr
	}
	var out []Vote
	for _, id := range topicIDs {
		for _, vote := range s.votes[id] {
			out = append(out, vote)
		}
	}
	return out, nil
}

func sequentialIDs(prefix string) func() string {
	counter := 0
	return func() string {
		counter++
		return fmt.Sprintf("%s-%d", prefix, counter)
	}
}

func learnerPrincipal(id string) Principal {
	return Principal{UserID: id, Email: id + "@nest.edu.mn", DisplayName: "Learner " + id, Role: identity.RoleLearner}
}

func mentorPrincipal(id string) Principal {
	return Principal{UserID: id, Email: id + "@pineder.mn", DisplayName: "Mentor " + id, Role: identity.RoleMentor}
}

func TestTopicService_SubmitTopic(t *testing.T) {
	t.Parallel()

	t.Run("creates a pending topic with trimmed fields", func(t *testing.T) {
		t.Parallel()

		now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
		repo := newTopicRepositoryStub()
		svc := NewTopicService(repo, func() string { return "topic-1" }, func() time.Time { return now })

		topic, err := svc.SubmitTopic(context.Background(), SubmitTopicParams{
			Principal: learnerPrincipal("learner-1"),
			Input: TopicInput{
				Title:       "  Intro to goroutines  ",
				Description: " scheduling basics ",
				Category:    TopicCategoryBackend,
				Difficulty:  TopicDifficultyBeginner,
			},
		})
		if err != nil {
			t.Fatalf("SubmitTopic failed: %v", err)
		}

		if topic.Status != TopicStatusPending {
			t.Fatalf("expected pending status, got %s", topic.Status)
		}
		if topic.Title != "Intro to goroutines" {
			t.Fatalf("expected trimmed title, got %q", topic.Title)
		}
		if !topic.SubmittedAt.Equal(now) {
			t.Fatalf("expected submitted_at %v, got %v", now, topic.SubmittedAt)
		}
		if _, ok := repo.topics["topic-1"]; !ok {
			t.Fatal("expected topic to be persisted")
		}
	})

	t.Run("rejects principals outside the community", func(t *testing.T) {
		t.Parallel()

		svc := NewTopicService(newTopicRepositoryStub(), nil, nil)
		_, err := svc.SubmitTopic(context.Background(), SubmitTopicParams{
			Principal: Principal{UserID: "outsider", Role: identity.RoleOther},
			Input:     TopicInput{Title: "t", Description: "d", Category: TopicCategoryFrontend},
		})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("collects field level validation issues", func(t *testing.T) {
		t.Parallel()

		svc := NewTopicService(newTopicRepositoryStub(), nil, nil)
		_, err := svc.SubmitTopic(context.Background(), SubmitTopicParams{
			Principal: learnerPrincipal("learner-1"),
			Input:     TopicInput{Title: "   ", Category: "quantum"},
		})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := vErr.FieldErrors["title"]; !ok {
			t.Fatal("expected title error")
		}
		if _, ok := vErr.FieldErrors["category"]; !ok {
			t.Fatal("expected category error")
		}
	})

	t.Run("maps duplicate writes to ErrAlreadyExists", func(t *testing.T) {
		t.Parallel()

		repo := newTopicRepositoryStub()
		repo.createErr = persistence.ErrDuplicate
		svc := NewTopicService(repo, nil, nil)

		_, err := svc.SubmitTopic(context.Background(), SubmitTopicParams{
			Principal: learnerPrincipal("learner-1"),
			Input:     TopicInput{Title: "t", Description: "d", Category: TopicCategoryBackend},
		})
		if !errors.Is(err, ErrAlreadyExists) {
			t.Fatalf("expected ErrAlreadyExists, got %v", err)
		}
	})
}

func TestTopicService_EditTopic(t *testing.T) {
	t.Parallel()

	t.Run("lets the author edit their submission", func(t *testing.T) {
		t.Parallel()

		now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
		repo := newTopicRepositoryStub()
		repo.topics["topic-1"] = Topic{ID: "topic-1", AuthorID: "learner-1", Title: "old", Description: "old", Category: TopicCategoryBackend, Status: TopicStatusPending}
		svc := NewTopicService(repo, nil, func() time.Time { return now })

		topic, err := svc.EditTopic(context.Background(), EditTopicParams{
			Principal: learnerPrincipal("learner-1"),
			TopicID:   "topic-1",
			Input:     TopicInput{Title: "new title", Description: "new body", Category: TopicCategoryFrontend},
		})
		if err != nil {
			t.Fatalf("EditTopic failed: %v", err)
		}
		if topic.Title != "new title" || topic.Category != TopicCategoryFrontend {
			t.Fatalf("unexpected edit result: %#v", topic)
		}
		if !topic.UpdatedAt.Equal(now) {
			t.Fatalf("expected updated_at %v, got %v", now, topic.UpdatedAt)
		}
	})

	t.Run("rejects edits from anyone but the author", func(t *testing.T) {
		t.Parallel()

		repo := newTopicRepositoryStub()
		repo.topics["topic-1"] = Topic{ID: "topic-1", AuthorID: "learner-1", Status: TopicStatusPending}
		svc := NewTopicService(repo, nil, nil)

		_, err := svc.EditTopic(context.Background(), EditTopicParams{
			Principal: learnerPrincipal("learner-2"),
			TopicID:   "topic-1",
			Input:     TopicInput{Title: "t", Description: "d", Category: TopicCategoryBackend},
		})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("reports missing topics", func(t *testing.T) {
		t.Parallel()

		svc := NewTopicService(newTopicRepositoryStub(), nil, nil)
		_, err := svc.EditTopic(context.Background(), EditTopicParams{
			Principal: learnerPrincipal("learner-1"),
			TopicID:   "missing",
			Input:     TopicInput{Title: "t", Description: "d", Category: TopicCategoryBackend},
		})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestTopicService_Voting(t *testing.T) {
	t.Parallel()

	newSvc := func(repo *topicRepositoryStub) *TopicService {
		return NewTopicService(repo, sequentialIDs("vote"), func() time.Time {
			return time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
		})
	}

	t.Run("repeated votes of the same kind count once", func(t *testing.T) {
		t.Parallel()

		repo := newTopicRepositoryStub()
		repo.topics["topic-1"] = Topic{ID: "topic-1", Status: TopicStatusPending}
		svc := newSvc(repo)

		params := CastVoteParams{Principal: learnerPrincipal("learner-1"), TopicID: "topic-1", Kind: VoteKindUp}
		for i := 0; i < 3; i++ {
			if err := svc.CastVote(context.Background(), params); err != nil {
				t.Fatalf("CastVote failed: %v", err)
			}
		}

		if len(repo.votes["topic-1"]) != 1 {
			t.Fatalf("expected one stored vote, got %d", len(repo.votes["topic-1"]))
		}
	})

	t.Run("switching vote kind replaces the prior vote", func(t *testing.T) {
		t.Parallel()

		repo := newTopicRepositoryStub()
		repo.topics["topic-1"] = Topic{ID: "topic-1", Status: TopicStatusPending}
		svc := newSvc(repo)

		voter := learnerPrincipal("learner-1")
		if err := svc.CastVote(context.Background(), CastVoteParams{Principal: voter, TopicID: "topic-1", Kind: VoteKindUp}); err != nil {
			t.Fatalf("CastVote failed: %v", err)
		}
		if err := svc.CastVote(context.Background(), CastVoteParams{Principal: voter, TopicID: "topic-1", Kind: VoteKindDown}); err != nil {
			t.Fatalf("CastVote failed: %v", err)
		}

		stored := repo.votes["topic-1"][voter.UserID]
		if stored.Kind != VoteKindDown {
			t.Fatalf("expected downvote to replace upvote, got %s", stored.Kind)
		}
	})

	t.Run("rejects unknown vote kinds", func(t *testing.T) {
		t.Parallel()

		repo := newTopicRepositoryStub()
		repo.topics["topic-1"] = Topic{ID: "topic-1"}
		svc := newSvc(repo)

		err := svc.CastVote(context.Background(), CastVoteParams{Principal: learnerPrincipal("learner-1"), TopicID: "topic-1", Kind: "sideways"})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})

	t.Run("rejects votes on missing topics", func(t *testing.T) {
		t.Parallel()

		svc := newSvc(newTopicRepositoryStub())
		err := svc.CastVote(context.Background(), CastVoteParams{Principal: learnerPrincipal("learner-1"), TopicID: "missing", Kind: VoteKindUp})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("retracting an absent vote is a no-op", func(t *testing.T) {
		t.Parallel()

		repo := newTopicRepositoryStub()
		repo.topics["topic-1"] = Topic{ID: "topic-1"}
		svc := newSvc(repo)

		if err := svc.RetractVote(context.Background(), learnerPrincipal("learner-1"), "topic-1"); err != nil {
			t.Fatalf("expected nil for absent vote, got %v", err)
		}
	})
}

func TestTopicService_ListTopics(t *testing.T) {
	t.Parallel()

	t.Run("ranks by score with deterministic tie-breaks", func(t *testing.T) {
		t.Parallel()

		early := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
		late := early.Add(time.Hour)
		repo := newTopicRepositoryStub()
		repo.topics["a"] = Topic{ID: "a", SubmittedAt: late, Status: TopicStatusPending}
		repo.topics["b"] = Topic{ID: "b", SubmittedAt: early, Status: TopicStatusPending}
		repo.topics["c"] = Topic{ID: "c", SubmittedAt: early, Status: TopicStatusPending}
		repo.votes["a"] = map[string]Vote{
			"v1": {TopicID: "a", VoterID: "v1", Kind: VoteKindUp},
			"v2": {TopicID: "a", VoterID: "v2", Kind: VoteKindUp},
		}
		repo.votes["b"] = map[string]Vote{
			"v1": {TopicID: "b", VoterID: "v1", Kind: VoteKindUp},
		}
		repo.votes["c"] = map[string]Vote{
			"v1": {TopicID: "c", VoterID: "v1", Kind: VoteKindUp},
		}

		svc := NewTopicService(repo, nil, nil)
		ranked, err := svc.ListTopics(context.Background(), ListTopicsParams{})
		if err != nil {
			t.Fatalf("ListTopics failed: %v", err)
		}

		got := make([]string, 0, len(ranked))
		for _, r := range ranked {
			got = append(got, r.Topic.ID)
		}
		want := []string{"a", "b", "c"}
		if len(got) != len(want) {
			t.Fatalf("expected %d topics, got %d", len(want), len(got))
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("expected order %v, got %v", want, got)
			}
		}
		if ranked[0].Score != 2 {
			t.Fatalf("expected top score 2, got %d", ranked[0].Score)
		}
	})

	t.Run("applies filters before ranking", func(t *testing.T) {
		t.Parallel()

		repo := newTopicRepositoryStub()
		repo.topics["a"] = Topic{ID: "a", Category: TopicCategoryBackend, Status: TopicStatusApproved}
		repo.topics["b"] = Topic{ID: "b", Category: TopicCategoryFrontend, Status: TopicStatusApproved}

		svc := NewTopicService(repo, nil, nil)
		ranked, err := svc.ListTopics(context.Background(), ListTopicsParams{Category: TopicCategoryBackend})
		if err != nil {
			t.Fatalf("ListTopics failed: %v", err)
		}
		if len(ranked) != 1 || ranked[0].Topic.ID != "a" {
			t.Fatalf("expected only backend topic, got %#v", ranked)
		}
	})

	t.Run("returns nil for an empty ledger", func(t *testing.T) {
		t.Parallel()

		svc := NewTopicService(newTopicRepositoryStub(), nil, nil)
		ranked, err := svc.ListTopics(context.Background(), ListTopicsParams{})
		if err != nil {
			t.Fatalf("ListTopics failed: %v", err)
		}
		if ranked != nil {
			t.Fatalf("expected nil, got %#v", ranked)
		}
	})
}

func TestTopicService_TransitionStatus(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 3, 9, 0, 0, 0, time.UTC)

	t.Run("mentor approves a pending topic", func(t *testing.T) {
		t.Parallel()

		repo := newTopicRepositoryStub()
		repo.topics["topic-1"] = Topic{ID: "topic-1", Status: TopicStatusPending}
		svc := NewTopicService(repo, nil, func() time.Time { return now })

		topic, err := svc.TransitionStatus(context.Background(), TransitionTopicParams{
			Principal: mentorPrincipal("mentor-1"),
			TopicID:   "topic-1",
			NewStatus: TopicStatusApproved,
		})
		if err != nil {
			t.Fatalf("TransitionStatus failed: %v", err)
		}
		if topic.Status != TopicStatusApproved {
			t.Fatalf("expected approved, got %s", topic.Status)
		}
	})

	t.Run("applies curator annotations on enhancement", func(t *testing.T) {
		t.Parallel()

		repo := newTopicRepositoryStub()
		repo.topics["topic-1"] = Topic{ID: "topic-1", Status: TopicStatusPending}
		svc := NewTopicService(repo, nil, func() time.Time { return now })

		title := "Polished title"
		notes := "tightened the scope"
		topic, err := svc.TransitionStatus(context.Background(), TransitionTopicParams{
			Principal:   mentorPrincipal("mentor-1"),
			TopicID:     "topic-1",
			NewStatus:   TopicStatusEnhanced,
			Annotations: TopicAnnotations{EnhancedTitle: &title, Notes: &notes},
		})
		if err != nil {
			t.Fatalf("TransitionStatus failed: %v", err)
		}
		if topic.EnhancedTitle == nil || *topic.EnhancedTitle != title {
			t.Fatalf("expected enhanced title, got %#v", topic.EnhancedTitle)
		}
		if topic.CuratorNotes == nil || *topic.CuratorNotes != notes {
			t.Fatalf("expected curator notes, got %#v", topic.CuratorNotes)
		}
	})

	t.Run("learners cannot curate", func(t *testing.T) {
		t.Parallel()

		repo := newTopicRepositoryStub()
		repo.topics["topic-1"] = Topic{ID: "topic-1", Status: TopicStatusPending}
		svc := NewTopicService(repo, nil, nil)

		_, err := svc.TransitionStatus(context.Background(), TransitionTopicParams{
			Principal: learnerPrincipal("learner-1"),
			TopicID:   "topic-1",
			NewStatus: TopicStatusApproved,
		})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("rejected is terminal", func(t *testing.T) {
		t.Parallel()

		repo := newTopicRepositoryStub()
		repo.topics["topic-1"] = Topic{ID: "topic-1", Status: TopicStatusRejected}
		svc := NewTopicService(repo, nil, nil)

		_, err := svc.TransitionStatus(context.Background(), TransitionTopicParams{
			Principal: mentorPrincipal("mentor-1"),
			TopicID:   "topic-1",
			NewStatus: TopicStatusApproved,
		})
		if !errors.Is(err, ErrInvalidState) {
			t.Fatalf("expected ErrInvalidState, got %v", err)
		}
	})

	t.Run("same-state transitions are rejected", func(t *testing.T) {
		t.Parallel()

		repo := newTopicRepositoryStub()
		repo.topics["topic-1"] = Topic{ID: "topic-1", Status: TopicStatusApproved}
		svc := NewTopicService(repo, nil, nil)

		_, err := svc.TransitionStatus(context.Background(), TransitionTopicParams{
			Principal: mentorPrincipal("mentor-1"),
			TopicID:   "topic-1",
			NewStatus: TopicStatusApproved,
		})
		if !errors.Is(err, ErrInvalidState) {
			t.Fatalf("expected ErrInvalidState, got %v", err)
		}
	})
}
