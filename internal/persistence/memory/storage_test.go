package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/evymii/pineder-sub001/internal/persistence"
)

func TestStorage_Topics(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewStorage()

	topic := persistence.Topic{
		ID:          "topic-1",
		AuthorID:    "learner-1",
		Title:       "Generics in practice",
		Category:    "backend",
		Status:      "pending",
		SubmittedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	}

	if err := store.CreateTopic(ctx, topic); err != nil {
		t.Fatalf("CreateTopic failed: %v", err)
	}
	if err := store.CreateTopic(ctx, topic); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate on re-create, got %v", err)
	}

	got, err := store.GetTopic(ctx, "topic-1")
	if err != nil {
		t.Fatalf("GetTopic failed: %v", err)
	}
	if got.Title != topic.Title {
		t.Fatalf("unexpected topic: %#v", got)
	}

	got.Title = "mutated"
	fresh, _ := store.GetTopic(ctx, "topic-1")
	if fresh.Title == "mutated" {
		t.Fatal("expected stored topic to be isolated from returned copies")
	}

	if _, err := store.GetTopic(ctx, "missing"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStorage_Votes(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewStorage()
	if err := store.CreateTopic(ctx, persistence.Topic{ID: "topic-1", Status: "pending"}); err != nil {
		t.Fatalf("CreateTopic failed: %v", err)
	}

	if err := store.UpsertVote(ctx, persistence.Vote{TopicID: "missing", VoterID: "v1", Kind: "upvote"}); !errors.Is(err, persistence.ErrForeignKeyViolation) {
		t.Fatalf("expected ErrForeignKeyViolation, got %v", err)
	}

	if err := store.UpsertVote(ctx, persistence.Vote{TopicID: "topic-1", VoterID: "v1", Kind: "upvote"}); err != nil {
		t.Fatalf("UpsertVote failed: %v", err)
	}
	if err := store.UpsertVote(ctx, persistence.Vote{TopicID: "topic-1", VoterID: "v1", Kind: "downvote"}); err != nil {
		t.Fatalf("UpsertVote failed: %v", err)
	}

	votes, err := store.ListVotes(ctx, []string{"topic-1"})
	if err != nil {
		t.Fatalf("ListVotes failed: %v", err)
	}
	if len(votes) != 1 || votes[0].Kind != "downvote" {
		t.Fatalf("expected one replaced vote, got %#v", votes)
	}

	if err := store.DeleteVote(ctx, "topic-1", "v1"); err != nil {
		t.Fatalf("DeleteVote failed: %v", err)
	}
	if err := store.DeleteVote(ctx, "topic-1", "v1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestStorage_AvailabilitySlots(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewStorage()

	slots := []persistence.AvailabilitySlot{
		{MentorID: "mentor-1", DayOfWeek: 5, StartTime: "14:00", EndTime: "15:00", Available: true},
		{MentorID: "mentor-1", DayOfWeek: 1, StartTime: "09:00", EndTime: "10:00", Available: false},
	}
	if err := store.ReplaceSlots(ctx, "mentor-1", slots); err != nil {
		t.Fatalf("ReplaceSlots failed: %v", err)
	}

	listed, err := store.ListSlots(ctx, "mentor-1")
	if err != nil {
		t.Fatalf("ListSlots failed: %v", err)
	}
	if len(listed) != 2 || listed[0].DayOfWeek != 1 {
		t.Fatalf("expected day ordered slots, got %#v", listed)
	}

	exists, err := store.SlotExists(ctx, "mentor-1", 5, "14:00")
	if err != nil {
		t.Fatalf("SlotExists failed: %v", err)
	}
	if !exists {
		t.Fatal("expected available slot to exist")
	}

	exists, err = store.SlotExists(ctx, "mentor-1", 1, "09:00")
	if err != nil {
		t.Fatalf("SlotExists failed: %v", err)
	}
	if exists {
		t.Fatal("expected unavailable slot to be invisible to booking")
	}
}

func TestStorage_BookingSlotCollision(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewStorage()
	start := time.Date(2026, 3, 9, 9, 0, 0, 0, time.UTC)

	first := persistence.Booking{ID: "b1", LearnerID: "l1", MentorID: "m1", Start: start, End: start.Add(time.Hour), Status: "requested", CreatedAt: start}
	if err := store.CreateBooking(ctx, first); err != nil {
		t.Fatalf("CreateBooking failed: %v", err)
	}

	second := first
	second.ID = "b2"
	second.LearnerID = "l2"
	if err := store.CreateBooking(ctx, second); !errors.Is(err, persistence.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate for racing slot claim, got %v", err)
	}

	// A denied booking releases the slot.
	first.Status = "denied"
	if err := store.UpdateBooking(ctx, first); err != nil {
		t.Fatalf("UpdateBooking failed: %v", err)
	}
	if err := store.CreateBooking(ctx, second); err != nil {
		t.Fatalf("expected released slot to be bookable, got %v", err)
	}
}

func TestStorage_GroupSessions(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewStorage()
	if err := store.CreateTopic(ctx, persistence.Topic{ID: "topic-1", Status: "approved"}); err != nil {
		t.Fatalf("CreateTopic failed: %v", err)
	}

	session := persistence.GroupSession{
		ID:              "session-1",
		TopicID:         "topic-1",
		HostMentorID:    "mentor-1",
		Title:           "Pipelines",
		MaxParticipants: 3,
		Status:          "planning",
		StartsAt:        time.Date(2026, 3, 12, 18, 0, 0, 0, time.UTC),
		DurationMinutes: 90,
		Location:        "remote",
		Participants: []persistence.Participant{
			{ID: "mentor-1", Role: "mentor", Status: "active"},
		},
	}

	if err := store.CreateGroupSession(ctx, session); err != nil {
		t.Fatalf("CreateGroupSession failed: %v", err)
	}

	orphan := session
	orphan.ID = "session-2"
	orphan.TopicID = "missing"
	if err := store.CreateGroupSession(ctx, orphan); !errors.Is(err, persistence.ErrForeignKeyViolation) {
		t.Fatalf("expected ErrForeignKeyViolation, got %v", err)
	}

	got, err := store.GetGroupSession(ctx, "session-1")
	if err != nil {
		t.Fatalf("GetGroupSession failed: %v", err)
	}
	got.Participants[0].Status = "left"
	fresh, _ := store.GetGroupSession(ctx, "session-1")
	if fresh.Participants[0].Status == "left" {
		t.Fatal("expected roster to be isolated from returned copies")
	}
}
