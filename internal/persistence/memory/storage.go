// Package memory provides an in-memory persistence layer implementation,
// used by tests and local development.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/evymii/pineder-sub001/internal/persistence"
)

// Storage implements every persistence repository over in-process maps.
type Storage struct {
	mu       sync.RWMutex
	topics   map[string]persistence.Topic
	votes    map[string]map[string]persistence.Vote
	slots    map[string][]persistence.AvailabilitySlot
	bookings map[string]persistence.Booking
	sessions map[string]persistence.GroupSession
}

// NewStorage returns an empty in-memory storage.
func NewStorage() *Storage {
	return &Storage{
		topics:   make(map[string]persistence.Topic),
		votes:    make(map[string]map[string]persistence.Vote),
		slots:    make(map[string][]persistence.AvailabilitySlot),
		bookings: make(map[string]persistence.Booking),
		sessions: make(map[string]persistence.GroupSession),
	}
}

// Close releases resources held by the storage. No-op in memory.
func (s *Storage) Close() error {
	return nil
}

// CreateTopic stores a new topic.
func (s *Storage) CreateTopic(_ context.Context, topic persistence.Topic) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if topic.ID == "" {
		return persistence.ErrConstraintViolation
	}
	if _, exists := s.topics[topic.ID]; exists {
		return persistence.ErrDuplicate
	}
	s.topics[topic.ID] = cloneTopic(topic)
	return nil
}

// UpdateTopic rewrites an existing topic.
func (s *Storage) UpdateTopic(_ context.Context, topic persistence.Topic) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.topics[topic.ID]; !exists {
		return persistence.ErrNotFound
	}
	s.topics[topic.ID] = cloneTopic(topic)
	return nil
}

// GetTopic retrieves a topic by ID.
func (s *Storage) GetTopic(_ context.Context, id string) (persistence.Topic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	topic, exists := s.topics[id]
	if !exists {
		return persistence.Topic{}, persistence.ErrNotFound
	}
	return cloneTopic(topic), nil
}

// ListTopics returns topics matching the filter ordered by submission time.
func (s *Storage) ListTopics(_ context.Context, filter persistence.TopicFilter) ([]persistence.Topic, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var topics []persistence.Topic
	for _, topic := range s.topics {
		if filter.Category != "" && topic.Category != filter.Category {
			continue
		}
		if filter.Difficulty != "" && (topic.Difficulty == nil || *topic.Difficulty != filter.Difficulty) {
			continue
		}
		if filter.Status != "" && topic.Status != filter.Status {
			continue
		}
		if filter.AuthorID != "" && topic.AuthorID != filter.AuthorID {
			continue
		}
		topics = append(topics, cloneTopic(topic))
	}

	sort.Slice(topics, func(i, j int) bool {
		if topics[i].SubmittedAt.Equal(topics[j].SubmittedAt) {
			return topics[i].ID < topics[j].ID
		}
		return topics[i].SubmittedAt.Before(topics[j].SubmittedAt)
	})

	return topics, nil
}

// DeleteTopic removes a topic and its votes.
func (s *Storage) DeleteTopic(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.topics[id]; !exists {
		return persistence.ErrNotFound
	}
	delete(s.topics, id)
	delete(s.votes, id)
	return nil
}

// UpsertVote replaces any existing vote by the voter on the topic.
func (s *Storage) UpsertVote(_ context.Context, vote persistence.Vote) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if vote.TopicID == "" || vote.VoterID == "" {
		return persistence.ErrConstraintViolation
	}
	if _, exists := s.topics[vote.TopicID]; !exists {
		return persistence.ErrForeignKeyViolation
	}

	byVoter, ok := s.votes[vote.TopicID]
	if !ok {
		byVoter = make(map[string]persistence.Vote)
		s.votes[vote.TopicID] = byVoter
	}
	byVoter[vote.VoterID] = vote
	return nil
}

// DeleteVote removes a voter's vote on a topic.
func (s *Storage) DeleteVote(_ context.Context, topicID, voterID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	byVoter, ok := s.votes[topicID]
	if !ok {
		return persistence.ErrNotFound
	}
	if _, exists := byVoter[voterID]; !exists {
		return persistence.ErrNotFound
	}
	delete(byVoter, voterID)
	return nil
}

// ListVotes returns every vote cast on the given topics.
func (s *Storage) ListVotes(_ context.Context, topicIDs []string) ([]persistence.Vote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var votes []persistence.Vote
	for _, topicID := range topicIDs {
		for _, vote := range s.votes[topicID] {
			votes = append(votes, vote)
		}
	}

	sort.Slice(votes, func(i, j int) bool {
		if votes[i].TopicID == votes[j].TopicID {
			return votes[i].VoterID < votes[j].VoterID
		}
		return votes[i].TopicID < votes[j].TopicID
	})

	return votes, nil
}

// ReplaceSlots rewrites a mentor's full grid.
func (s *Storage) ReplaceSlots(_ context.Context, mentorID string, slots []persistence.AvailabilitySlot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if mentorID == "" {
		return persistence.ErrConstraintViolation
	}
	stored := make([]persistence.AvailabilitySlot, len(slots))
	copy(stored, slots)
	s.slots[mentorID] = stored
	return nil
}

// ListSlots returns a mentor's grid ordered by day then start time.
func (s *Storage) ListSlots(_ context.Context, mentorID string) ([]persistence.AvailabilitySlot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	slots := make([]persistence.AvailabilitySlot, len(s.slots[mentorID]))
	copy(slots, s.slots[mentorID])

	sort.Slice(slots, func(i, j int) bool {
		if slots[i].DayOfWeek != slots[j].DayOfWeek {
			return slots[i].DayOfWeek < slots[j].DayOfWeek
		}
		return slots[i].StartTime < slots[j].StartTime
	})

	return slots, nil
}

// SlotExists reports whether the mentor has an available slot at the given
// weekly position.
func (s *Storage) SlotExists(_ context.Context, mentorID string, dayOfWeek int, startTime string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, slot := range s.slots[mentorID] {
		if slot.DayOfWeek == dayOfWeek && slot.StartTime == startTime && slot.Available {
			return true, nil
		}
	}
	return false, nil
}

// CreateBooking stores a new booking. Live bookings claiming the same mentor
// and start collide like the SQLite partial unique index.
func (s *Storage) CreateBooking(_ context.Context, booking persistence.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if booking.ID == "" {
		return persistence.ErrConstraintViolation
	}
	if _, exists := s.bookings[booking.ID]; exists {
		return persistence.ErrDuplicate
	}
	for _, other := range s.bookings {
		if other.MentorID == booking.MentorID && other.Start.Equal(booking.Start) && isLiveBooking(other.Status) {
			return persistence.ErrDuplicate
		}
	}
	s.bookings[booking.ID] = cloneBooking(booking)
	return nil
}

// UpdateBooking rewrites an existing booking.
func (s *Storage) UpdateBooking(_ context.Context, booking persistence.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.bookings[booking.ID]; !exists {
		return persistence.ErrNotFound
	}
	s.bookings[booking.ID] = cloneBooking(booking)
	return nil
}

// GetBooking retrieves a booking by ID.
func (s *Storage) GetBooking(_ context.Context, id string) (persistence.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	booking, exists := s.bookings[id]
	if !exists {
		return persistence.Booking{}, persistence.ErrNotFound
	}
	return cloneBooking(booking), nil
}

// ListBookings returns bookings matching the filter, newest first.
func (s *Storage) ListBookings(_ context.Context, filter persistence.BookingFilter) ([]persistence.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var bookings []persistence.Booking
	for _, booking := range s.bookings {
		if filter.LearnerID != "" && booking.LearnerID != filter.LearnerID {
			continue
		}
		if filter.MentorID != "" && booking.MentorID != filter.MentorID {
			continue
		}
		if filter.Status != "" && booking.Status != filter.Status {
			continue
		}
		bookings = append(bookings, cloneBooking(booking))
	}

	sort.Slice(bookings, func(i, j int) bool {
		if bookings[i].CreatedAt.Equal(bookings[j].CreatedAt) {
			return bookings[i].ID < bookings[j].ID
		}
		return bookings[i].CreatedAt.After(bookings[j].CreatedAt)
	})

	return bookings, nil
}

// CreateGroupSession stores a new session with its roster.
func (s *Storage) CreateGroupSession(_ context.Context, session persistence.GroupSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if session.ID == "" {
		return persistence.ErrConstraintViolation
	}
	if _, exists := s.sessions[session.ID]; exists {
		return persistence.ErrDuplicate
	}
	if _, exists := s.topics[session.TopicID]; !exists {
		return persistence.ErrForeignKeyViolation
	}
	s.sessions[session.ID] = cloneGroupSession(session)
	return nil
}

// UpdateGroupSession rewrites an existing session and its roster.
func (s *Storage) UpdateGroupSession(_ context.Context, session persistence.GroupSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[session.ID]; !exists {
		return persistence.ErrNotFound
	}
	s.sessions[session.ID] = cloneGroupSession(session)
	return nil
}

// GetGroupSession retrieves a session with its roster.
func (s *Storage) GetGroupSession(_ context.Context, id string) (persistence.GroupSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, exists := s.sessions[id]
	if !exists {
		return persistence.GroupSession{}, persistence.ErrNotFound
	}
	return cloneGroupSession(session), nil
}

// ListGroupSessions returns every session ordered by start.
func (s *Storage) ListGroupSessions(_ context.Context) ([]persistence.GroupSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var sessions []persistence.GroupSession
	for _, session := range s.sessions {
		sessions = append(sessions, cloneGroupSession(session))
	}

	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].StartsAt.Equal(sessions[j].StartsAt) {
			return sessions[i].ID < sessions[j].ID
		}
		return sessions[i].StartsAt.Before(sessions[j].StartsAt)
	})

	return sessions, nil
}

// DeleteGroupSession removes a session and its roster.
func (s *Storage) DeleteGroupSession(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[id]; !exists {
		return persistence.ErrNotFound
	}
	delete(s.sessions, id)
	return nil
}

func isLiveBooking(status string) bool {
	return status == "requested" || status == "approved"
}

func cloneTopic(topic persistence.Topic) persistence.Topic {
	out := topic
	out.Difficulty = cloneStringPtr(topic.Difficulty)
	out.EnhancedTitle = cloneStringPtr(topic.EnhancedTitle)
	out.EnhancedDescription = cloneStringPtr(topic.EnhancedDescription)
	out.CuratorNotes = cloneStringPtr(topic.CuratorNotes)
	return out
}

func cloneBooking(booking persistence.Booking) persistence.Booking {
	out := booking
	out.DenialReason = cloneStringPtr(booking.DenialReason)
	out.MeetingLink = cloneStringPtr(booking.MeetingLink)
	return out
}

func cloneGroupSession(session persistence.GroupSession) persistence.GroupSession {
	out := session
	out.MeetingLink = cloneStringPtr(session.MeetingLink)
	out.MeetingAddress = cloneStringPtr(session.MeetingAddress)
	out.Participants = make([]persistence.Participant, len(session.Participants))
	copy(out.Participants, session.Participants)
	return out
}

func cloneStringPtr(value *string) *string {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}
