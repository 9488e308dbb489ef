package persistence

import "context"

// TopicFilter narrows topic queries.
type TopicFilter struct {
	Category   string
	Difficulty string
	Status     string
	AuthorID   string
}

// TopicRepository stores topic submissions and their votes.
type TopicRepository interface {
	CreateTopic(ctx context.Context, topic Topic) error
	UpdateTopic(ctx context.Context, topic Topic) error
	GetTopic(ctx context.Context, id string) (Topic, error)
	ListTopics(ctx context.Context, filter TopicFilter) ([]Topic, error)
	DeleteTopic(ctx context.Context, id string) error

	// UpsertVote replaces any existing vote by the same voter on the same
	// topic. Votes cascade when the topic is deleted.
	UpsertVote(ctx context.Context, vote Vote) error
	DeleteVote(ctx context.Context, topicID, voterID string) error
	ListVotes(ctx context.Context, topicIDs []string) ([]Vote, error)
}

// AvailabilityRepository stores each mentor's weekly slot grid. ReplaceSlots
// writes the full slot set for a mentor in one transaction so that coalesced
// flushes cannot interleave into a torn grid.
type AvailabilityRepository interface {
	ReplaceSlots(ctx context.Context, mentorID string, slots []AvailabilitySlot) error
	ListSlots(ctx context.Context, mentorID string) ([]AvailabilitySlot, error)
	SlotExists(ctx context.Context, mentorID string, dayOfWeek int, startTime string) (bool, error)
}

// BookingFilter narrows booking queries.
type BookingFilter struct {
	LearnerID string
	MentorID  string
	Status    string
}

// BookingRepository stores one-on-one booking requests.
type BookingRepository interface {
	CreateBooking(ctx context.Context, booking Booking) error
	UpdateBooking(ctx context.Context, booking Booking) error
	GetBooking(ctx context.Context, id string) (Booking, error)
	ListBookings(ctx context.Context, filter BookingFilter) ([]Booking, error)
}

// GroupSessionRepository stores group sessions and their rosters.
type GroupSessionRepository interface {
	CreateGroupSession(ctx context.Context, session GroupSession) error
	UpdateGroupSession(ctx context.Context, session GroupSession) error
	GetGroupSession(ctx context.Context, id string) (GroupSession, error)
	ListGroupSessions(ctx context.Context) ([]GroupSession, error)
	DeleteGroupSession(ctx context.Context, id string) error
}
