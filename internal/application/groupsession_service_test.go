package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/evymii/pineder-sub001/internal/persistence"
)

type groupSessionRepositoryStub struct {
	sessions map[string]GroupSession

	createErr error
	updateErr error
	getErr    error
	listErr   error
}

func newGroupSessionRepositoryStub() *groupSessionRepositoryStub {
	return &groupSessionRepositoryStub{sessions: make(map[string]GroupSession)}
}

func (s *groupSessionRepositoryStub) CreateSession(_ context.Context, session GroupSession) (GroupSession, error) {
	if s.createErr != nil {
		return GroupSession{}, s.createErr
	}
	s.sessions[session.ID] = session
	return session, nil
}

func (s *groupSessionRepositoryStub) GetSession(_ context.Context, id string) (GroupSession, error) {
	if s.getErr != nil {
		return GroupSession{}, s.getErr
	}
	session, ok := s.sessions[id]
	if !ok {
		return GroupSession{}, persistence.ErrNotFound
	}
	return session, nil
}

func (s *groupSessionRepositoryStub) UpdateSession(_ context.Context, session GroupSession) (GroupSession, error) {
	if s.updateErr != nil {
		return GroupSession{}, s.updateErr
	}
	if _, ok := s.sessions[session.ID]; !ok {
		return GroupSession{}, persistence.ErrNotFound
	}
	s.sessions[session.ID] = session
	return session, nil
}

func (s *groupSessionRepositoryStub) ListSessions(_ context.Context, filter GroupSessionRepositoryFilter) ([]GroupSession, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []GroupSession
	for _, session := range s.sessions {
		if filter.HostMentorID != "" && session.HostMentorID != filter.HostMentorID {
			continue
		}
		if filter.Status != "" && session.Status != filter.Status {
			continue
		}
		out = append(out, session)
	}
	return out, nil
}

type topicDirectoryStub struct {
	exists bool
	err    error
}

func (s *topicDirectoryStub) TopicExists(_ context.Context, _ string) (bool, error) {
	return s.exists, s.err
}

func sessionInput() GroupSessionInput {
	return GroupSessionInput{
		TopicID:         "topic-1",
		Title:           "Concurrency patterns",
		Description:     "channels and pipelines",
		MaxParticipants: 3,
		StartsAt:        time.Date(2026, 3, 12, 18, 0, 0, 0, time.UTC),
		Duration:        90 * time.Minute,
		Location:        MeetingLocationRemote,
		MeetingLink:     "https://meet.example.com/xyz",
	}
}

func sessionFixture(capacity int, status SessionStatus) GroupSession {
	createdAt := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)
	link := "https://meet.example.com/xyz"
	return GroupSession{
		ID:              "session-1",
		TopicID:         "topic-1",
		HostMentorID:    "mentor-1",
		Title:           "Concurrency patterns",
		MaxParticipants: capacity,
		Status:          status,
		StartsAt:        createdAt.Add(48 * time.Hour),
		Duration:        time.Hour,
		Location:        MeetingLocationRemote,
		MeetingLink:     &link,
		Participants: []Participant{{
			ID: "mentor-1", Role: ParticipantRoleMentor, Status: ParticipantStatusActive, JoinedAt: createdAt,
		}},
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestGroupSessionService_CreateSession(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC)

	t.Run("seeds the host as an active mentor participant", func(t *testing.T) {
		t.Parallel()

		repo := newGroupSessionRepositoryStub()
		svc := NewGroupSessionService(repo, &topicDirectoryStub{exists: true}, func() string { return "session-1" }, func() time.Time { return now })

		session, err := svc.CreateSession(context.Background(), CreateGroupSessionParams{
			Principal: mentorPrincipal("mentor-1"),
			Input:     sessionInput(),
		})
		if err != nil {
			t.Fatalf("CreateSession failed: %v", err)
		}
		if session.Status != SessionStatusPlanning {
			t.Fatalf("expected planning, got %s", session.Status)
		}
		if len(session.Participants) != 1 {
			t.Fatalf("expected host on the roster, got %#v", session.Participants)
		}
		host := session.Participants[0]
		if host.ID != "mentor-1" || host.Role != ParticipantRoleMentor || host.Status != ParticipantStatusActive {
			t.Fatalf("unexpected host entry: %#v", host)
		}
	})

	t.Run("only mentors may host", func(t *testing.T) {
		t.Parallel()

		svc := NewGroupSessionService(newGroupSessionRepositoryStub(), &topicDirectoryStub{exists: true}, nil, nil)
		_, err := svc.CreateSession(context.Background(), CreateGroupSessionParams{
			Principal: learnerPrincipal("learner-1"),
			Input:     sessionInput(),
		})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})

	t.Run("rejects sessions for missing topics", func(t *testing.T) {
		t.Parallel()

		svc := NewGroupSessionService(newGroupSessionRepositoryStub(), &topicDirectoryStub{exists: false}, nil, nil)
		_, err := svc.CreateSession(context.Background(), CreateGroupSessionParams{
			Principal: mentorPrincipal("mentor-1"),
			Input:     sessionInput(),
		})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("remote sessions must carry exactly a link", func(t *testing.T) {
		t.Parallel()

		svc := NewGroupSessionService(newGroupSessionRepositoryStub(), &topicDirectoryStub{exists: true}, nil, nil)

		input := sessionInput()
		input.MeetingLink = ""
		input.MeetingAddress = "Room 4, Central Tower"
		_, err := svc.CreateSession(context.Background(), CreateGroupSessionParams{
			Principal: mentorPrincipal("mentor-1"),
			Input:     input,
		})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := vErr.FieldErrors["meeting_link"]; !ok {
			t.Fatalf("expected meeting_link error, got %#v", vErr.FieldErrors)
		}
		if _, ok := vErr.FieldErrors["meeting_address"]; !ok {
			t.Fatalf("expected meeting_address error, got %#v", vErr.FieldErrors)
		}
	})

	t.Run("capacity must be positive", func(t *testing.T) {
		t.Parallel()

		svc := NewGroupSessionService(newGroupSessionRepositoryStub(), &topicDirectoryStub{exists: true}, nil, nil)

		input := sessionInput()
		input.MaxParticipants = 0
		_, err := svc.CreateSession(context.Background(), CreateGroupSessionParams{
			Principal: mentorPrincipal("mentor-1"),
			Input:     input,
		})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})
}

func TestGroupSessionService_JoinSession(t *testing.T) {
	t.Parallel()

	clock := func(base time.Time) func() time.Time {
		offset := 0
		return func() time.Time {
			offset++
			return base.Add(time.Duration(offset) * time.Minute)
		}
	}

	t.Run("overflow joins land on the waitlist in order", func(t *testing.T) {
		t.Parallel()

		repo := newGroupSessionRepositoryStub()
		repo.sessions["session-1"] = sessionFixture(3, SessionStatusPlanning)
		svc := NewGroupSessionService(repo, nil, nil, clock(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)))

		for _, learner := range []string{"learner-1", "learner-2", "learner-3", "learner-4"} {
			if _, err := svc.JoinSession(context.Background(), JoinSessionParams{
				Principal: learnerPrincipal(learner),
				SessionID: "session-1",
			}); err != nil {
				t.Fatalf("JoinSession(%s) failed: %v", learner, err)
			}
		}

		session := repo.sessions["session-1"]
		if got := activeCount(session.Participants); got != 3 {
			t.Fatalf("expected 3 active participants, got %d", got)
		}
		waitlisted := 0
		for _, p := range session.Participants {
			if p.Status == ParticipantStatusWaitlist {
				waitlisted++
				if p.ID != "learner-3" && p.ID != "learner-4" {
					t.Fatalf("unexpected waitlisted participant %s", p.ID)
				}
			}
		}
		if waitlisted != 2 {
			t.Fatalf("expected 2 waitlisted, got %d", waitlisted)
		}
	})

	t.Run("joining twice is a no-op", func(t *testing.T) {
		t.Parallel()

		repo := newGroupSessionRepositoryStub()
		repo.sessions["session-1"] = sessionFixture(3, SessionStatusPlanning)
		svc := NewGroupSessionService(repo, nil, nil, clock(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)))

		params := JoinSessionParams{Principal: learnerPrincipal("learner-1"), SessionID: "session-1"}
		if _, err := svc.JoinSession(context.Background(), params); err != nil {
			t.Fatalf("JoinSession failed: %v", err)
		}
		if _, err := svc.JoinSession(context.Background(), params); err != nil {
			t.Fatalf("repeat JoinSession failed: %v", err)
		}

		session := repo.sessions["session-1"]
		if len(session.Participants) != 2 {
			t.Fatalf("expected host plus one learner, got %#v", session.Participants)
		}
	})

	t.Run("terminal sessions cannot be joined", func(t *testing.T) {
		t.Parallel()

		repo := newGroupSessionRepositoryStub()
		repo.sessions["session-1"] = sessionFixture(3, SessionStatusCancelled)
		svc := NewGroupSessionService(repo, nil, nil, nil)

		_, err := svc.JoinSession(context.Background(), JoinSessionParams{
			Principal: learnerPrincipal("learner-1"),
			SessionID: "session-1",
		})
		if !errors.Is(err, ErrInvalidState) {
			t.Fatalf("expected ErrInvalidState, got %v", err)
		}
	})

	t.Run("a member who left can rejoin", func(t *testing.T) {
		t.Parallel()

		repo := newGroupSessionRepositoryStub()
		repo.sessions["session-1"] = sessionFixture(3, SessionStatusPlanning)
		svc := NewGroupSessionService(repo, nil, nil, clock(time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)))

		params := JoinSessionParams{Principal: learnerPrincipal("learner-1"), SessionID: "session-1"}
		if _, err := svc.JoinSession(context.Background(), params); err != nil {
			t.Fatalf("JoinSession failed: %v", err)
		}
		if _, err := svc.LeaveSession(context.Background(), learnerPrincipal("learner-1"), "session-1"); err != nil {
			t.Fatalf("LeaveSession failed: %v", err)
		}
		if _, err := svc.JoinSession(context.Background(), params); err != nil {
			t.Fatalf("rejoin failed: %v", err)
		}

		session := repo.sessions["session-1"]
		idx := participantIndex(session.Participants, "learner-1")
		if idx < 0 || session.Participants[idx].Status != ParticipantStatusActive {
			t.Fatalf("expected rejoined learner to be active, got %#v", session.Participants)
		}
	})
}

func TestGroupSessionService_LeaveSession(t *testing.T) {
	t.Parallel()

	t.Run("promotes the earliest waitlisted participant", func(t *testing.T) {
		t.Parallel()

		base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
		fixture := sessionFixture(2, SessionStatusPlanning)
		fixture.Participants = append(fixture.Participants,
			Participant{ID: "learner-1", Role: ParticipantRoleLearner, Status: ParticipantStatusActive, JoinedAt: base},
			Participant{ID: "learner-2", Role: ParticipantRoleLearner, Status: ParticipantStatusWaitlist, JoinedAt: base.Add(time.Minute)},
			Participant{ID: "learner-3", Role: ParticipantRoleLearner, Status: ParticipantStatusWaitlist, JoinedAt: base.Add(2 * time.Minute)},
		)
		repo := newGroupSessionRepositoryStub()
		repo.sessions["session-1"] = fixture
		svc := NewGroupSessionService(repo, nil, nil, func() time.Time { return base.Add(time.Hour) })

		if _, err := svc.LeaveSession(context.Background(), learnerPrincipal("learner-1"), "session-1"); err != nil {
			t.Fatalf("LeaveSession failed: %v", err)
		}

		session := repo.sessions["session-1"]
		byID := make(map[string]ParticipantStatus)
		for _, p := range session.Participants {
			byID[p.ID] = p.Status
		}
		if byID["learner-1"] != ParticipantStatusLeft {
			t.Fatalf("expected learner-1 to have left, got %s", byID["learner-1"])
		}
		if byID["learner-2"] != ParticipantStatusActive {
			t.Fatalf("expected learner-2 promoted, got %s", byID["learner-2"])
		}
		if byID["learner-3"] != ParticipantStatusWaitlist {
			t.Fatalf("expected learner-3 still waitlisted, got %s", byID["learner-3"])
		}
	})

	t.Run("leaving from the waitlist promotes nobody", func(t *testing.T) {
		t.Parallel()

		base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
		fixture := sessionFixture(1, SessionStatusPlanning)
		fixture.Participants = append(fixture.Participants,
			Participant{ID: "learner-1", Role: ParticipantRoleLearner, Status: ParticipantStatusWaitlist, JoinedAt: base},
			Participant{ID: "learner-2", Role: ParticipantRoleLearner, Status: ParticipantStatusWaitlist, JoinedAt: base.Add(time.Minute)},
		)
		repo := newGroupSessionRepositoryStub()
		repo.sessions["session-1"] = fixture
		svc := NewGroupSessionService(repo, nil, nil, func() time.Time { return base.Add(time.Hour) })

		if _, err := svc.LeaveSession(context.Background(), learnerPrincipal("learner-1"), "session-1"); err != nil {
			t.Fatalf("LeaveSession failed: %v", err)
		}

		session := repo.sessions["session-1"]
		idx := participantIndex(session.Participants, "learner-2")
		if session.Participants[idx].Status != ParticipantStatusWaitlist {
			t.Fatal("expected learner-2 to remain waitlisted")
		}
	})

	t.Run("non-members cannot leave", func(t *testing.T) {
		t.Parallel()

		repo := newGroupSessionRepositoryStub()
		repo.sessions["session-1"] = sessionFixture(3, SessionStatusPlanning)
		svc := NewGroupSessionService(repo, nil, nil, nil)

		_, err := svc.LeaveSession(context.Background(), learnerPrincipal("learner-9"), "session-1")
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestGroupSessionService_EditSession(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC)

	t.Run("host applies a partial update", func(t *testing.T) {
		t.Parallel()

		repo := newGroupSessionRepositoryStub()
		repo.sessions["session-1"] = sessionFixture(3, SessionStatusPlanning)
		svc := NewGroupSessionService(repo, nil, nil, func() time.Time { return now })

		title := "Advanced concurrency"
		session, err := svc.EditSession(context.Background(), EditGroupSessionParams{
			Principal: mentorPrincipal("mentor-1"),
			SessionID: "session-1",
			Patch:     GroupSessionPatch{Title: &title},
		})
		if err != nil {
			t.Fatalf("EditSession failed: %v", err)
		}
		if session.Title != title {
			t.Fatalf("expected updated title, got %q", session.Title)
		}
	})

	t.Run("capacity cannot drop below the seated count", func(t *testing.T) {
		t.Parallel()

		base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
		fixture := sessionFixture(3, SessionStatusPlanning)
		fixture.Participants = append(fixture.Participants,
			Participant{ID: "learner-1", Role: ParticipantRoleLearner, Status: ParticipantStatusActive, JoinedAt: base},
			Participant{ID: "learner-2", Role: ParticipantRoleLearner, Status: ParticipantStatusActive, JoinedAt: base},
		)
		repo := newGroupSessionRepositoryStub()
		repo.sessions["session-1"] = fixture
		svc := NewGroupSessionService(repo, nil, nil, func() time.Time { return now })

		capacity := 2
		_, err := svc.EditSession(context.Background(), EditGroupSessionParams{
			Principal: mentorPrincipal("mentor-1"),
			SessionID: "session-1",
			Patch:     GroupSessionPatch{MaxParticipants: &capacity},
		})

		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})

	t.Run("raising capacity seats the waitlist", func(t *testing.T) {
		t.Parallel()

		base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
		fixture := sessionFixture(2, SessionStatusPlanning)
		fixture.Participants = append(fixture.Participants,
			Participant{ID: "learner-1", Role: ParticipantRoleLearner, Status: ParticipantStatusActive, JoinedAt: base},
			Participant{ID: "learner-2", Role: ParticipantRoleLearner, Status: ParticipantStatusWaitlist, JoinedAt: base.Add(time.Minute)},
		)
		repo := newGroupSessionRepositoryStub()
		repo.sessions["session-1"] = fixture
		svc := NewGroupSessionService(repo, nil, nil, func() time.Time { return now })

		capacity := 3
		session, err := svc.EditSession(context.Background(), EditGroupSessionParams{
			Principal: mentorPrincipal("mentor-1"),
			SessionID: "session-1",
			Patch:     GroupSessionPatch{MaxParticipants: &capacity},
		})
		if err != nil {
			t.Fatalf("EditSession failed: %v", err)
		}
		idx := participantIndex(session.Participants, "learner-2")
		if session.Participants[idx].Status != ParticipantStatusActive {
			t.Fatal("expected waitlisted learner to be seated")
		}
	})

	t.Run("only the host may edit", func(t *testing.T) {
		t.Parallel()

		repo := newGroupSessionRepositoryStub()
		repo.sessions["session-1"] = sessionFixture(3, SessionStatusPlanning)
		svc := NewGroupSessionService(repo, nil, nil, nil)

		title := "hijacked"
		_, err := svc.EditSession(context.Background(), EditGroupSessionParams{
			Principal: mentorPrincipal("mentor-2"),
			SessionID: "session-1",
			Patch:     GroupSessionPatch{Title: &title},
		})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})
}

func TestGroupSessionService_TransitionStatus(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 11, 10, 0, 0, 0, time.UTC)

	transition := func(t *testing.T, svc *GroupSessionService, to SessionStatus) error {
		t.Helper()
		_, err := svc.TransitionStatus(context.Background(), TransitionSessionParams{
			Principal: mentorPrincipal("mentor-1"),
			SessionID: "session-1",
			NewStatus: to,
		})
		return err
	}

	t.Run("walks the lifecycle in order", func(t *testing.T) {
		t.Parallel()

		repo := newGroupSessionRepositoryStub()
		repo.sessions["session-1"] = sessionFixture(3, SessionStatusPlanning)
		svc := NewGroupSessionService(repo, nil, nil, func() time.Time { return now })

		for _, status := range []SessionStatus{SessionStatusVoting, SessionStatusScheduled, SessionStatusActive, SessionStatusCompleted} {
			if err := transition(t, svc, status); err != nil {
				t.Fatalf("transition to %s failed: %v", status, err)
			}
		}
		if repo.sessions["session-1"].Status != SessionStatusCompleted {
			t.Fatalf("expected completed, got %s", repo.sessions["session-1"].Status)
		}
	})

	t.Run("skipping ahead is rejected", func(t *testing.T) {
		t.Parallel()

		repo := newGroupSessionRepositoryStub()
		repo.sessions["session-1"] = sessionFixture(3, SessionStatusPlanning)
		svc := NewGroupSessionService(repo, nil, nil, func() time.Time { return now })

		if err := transition(t, svc, SessionStatusActive); !errors.Is(err, ErrInvalidState) {
			t.Fatalf("expected ErrInvalidState, got %v", err)
		}
	})

	t.Run("cancel works from any non-terminal state", func(t *testing.T) {
		t.Parallel()

		for _, status := range []SessionStatus{SessionStatusPlanning, SessionStatusVoting, SessionStatusScheduled, SessionStatusActive} {
			repo := newGroupSessionRepositoryStub()
			repo.sessions["session-1"] = sessionFixture(3, status)
			svc := NewGroupSessionService(repo, nil, nil, func() time.Time { return now })

			if _, err := svc.CancelSession(context.Background(), mentorPrincipal("mentor-1"), "session-1"); err != nil {
				t.Fatalf("cancel from %s failed: %v", status, err)
			}
		}
	})

	t.Run("terminal states are immutable", func(t *testing.T) {
		t.Parallel()

		repo := newGroupSessionRepositoryStub()
		repo.sessions["session-1"] = sessionFixture(3, SessionStatusCompleted)
		svc := NewGroupSessionService(repo, nil, nil, func() time.Time { return now })

		if err := transition(t, svc, SessionStatusCancelled); !errors.Is(err, ErrInvalidState) {
			t.Fatalf("expected ErrInvalidState, got %v", err)
		}
	})

	t.Run("only the host may drive the lifecycle", func(t *testing.T) {
		t.Parallel()

		repo := newGroupSessionRepositoryStub()
		repo.sessions["session-1"] = sessionFixture(3, SessionStatusPlanning)
		svc := NewGroupSessionService(repo, nil, nil, nil)

		_, err := svc.TransitionStatus(context.Background(), TransitionSessionParams{
			Principal: mentorPrincipal("mentor-2"),
			SessionID: "session-1",
			NewStatus: SessionStatusVoting,
		})
		if !errors.Is(err, ErrUnauthorized) {
			t.Fatalf("expected ErrUnauthorized, got %v", err)
		}
	})
}
