package persistence

import "time"

// Topic represents a learner submitted topic stored in persistence.
type Topic struct {
	ID                  string
	AuthorID            string
	AuthorDisplayName   string
	Title               string
	Description         string
	Category            string
	Difficulty          *string
	Status              string
	EnhancedTitle       *string
	EnhancedDescription *string
	CuratorNotes        *string
	SubmittedAt         time.Time
	UpdatedAt           time.Time
}

// Vote represents a voter's current vote on a topic. At most one row exists
// per (TopicID, VoterID) pair; re-voting replaces the row.
type Vote struct {
	ID        string
	TopicID   string
	VoterID   string
	Kind      string
	CreatedAt time.Time
}

// AvailabilitySlot represents one bookable weekly slot declared by a mentor.
// Rows are keyed by (MentorID, DayOfWeek, StartTime); marking a slot
// unavailable flags it rather than deleting the row.
type AvailabilitySlot struct {
	MentorID  string
	DayOfWeek int
	StartTime string
	EndTime   string
	Available bool
	UpdatedAt time.Time
}

// Booking represents a one-on-one session request between a learner and a
// mentor's declared slot.
type Booking struct {
	ID           string
	LearnerID    string
	MentorID     string
	Topic        string
	Start        time.Time
	End          time.Time
	Status       string
	DenialReason *string
	MeetingLink  *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// GroupSession represents a scheduled, capacity bounded collaborative
// session promoted from a topic.
type GroupSession struct {
	ID              string
	TopicID         string
	HostMentorID    string
	Title           string
	Description     string
	MaxParticipants int
	Status          string
	StartsAt        time.Time
	DurationMinutes int
	Location        string
	MeetingLink     *string
	MeetingAddress  *string
	Participants    []Participant
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Participant is one member of a group session roster.
type Participant struct {
	ID          string
	DisplayName string
	Role        string
	Status      string
	JoinedAt    time.Time
}
