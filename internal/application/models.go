package application

import (
	"time"

	"github.com/evymii/pineder-sub001/internal/identity"
)

// Principal represents the verified identity invoking a service method. The
// role is derived server-side from the verified email and never supplied by
// the caller.
type Principal struct {
	UserID      string
	Email       string
	DisplayName string
	Role        identity.Role
}

// TopicStatus is the curation lifecycle state of a topic submission.
type TopicStatus string

const (
	// TopicStatusPending is the state of every new submission.
	TopicStatusPending TopicStatus = "pending"
	// TopicStatusApproved marks a topic accepted by a mentor as-is.
	TopicStatusApproved TopicStatus = "approved"
	// TopicStatusEnhanced marks a topic accepted with curator annotations.
	TopicStatusEnhanced TopicStatus = "enhanced"
	// TopicStatusRejected is terminal.
	TopicStatusRejected TopicStatus = "rejected"
)

// TopicCategory buckets submissions for filtering.
type TopicCategory string

const (
	TopicCategoryFrontend  TopicCategory = "frontend"
	TopicCategoryBackend   TopicCategory = "backend"
	TopicCategoryFullStack TopicCategory = "full-stack"
)

// TopicDifficulty is an optional difficulty hint on a submission.
type TopicDifficulty string

const (
	TopicDifficultyBeginner     TopicDifficulty = "beginner"
	TopicDifficultyIntermediate TopicDifficulty = "intermediate"
	TopicDifficultyAdvanced     TopicDifficulty = "advanced"
)

// Topic represents a persisted topic submission.
type Topic struct {
	ID                  string
	AuthorID            string
	AuthorDisplayName   string
	Title               string
	Description         string
	Category            TopicCategory
	Difficulty          TopicDifficulty
	Status              TopicStatus
	EnhancedTitle       *string
	EnhancedDescription *string
	CuratorNotes        *string
	SubmittedAt         time.Time
	UpdatedAt           time.Time
}

// RankedTopic pairs a topic with its computed vote score.
type RankedTopic struct {
	Topic Topic
	Score int
}

// VoteKind is the direction of a cast vote.
type VoteKind string

const (
	VoteKindUp   VoteKind = "upvote"
	VoteKindDown VoteKind = "downvote"
)

// Vote is a voter's current vote on a topic.
type Vote struct {
	ID        string
	TopicID   string
	VoterID   string
	Kind      VoteKind
	CreatedAt time.Time
}

// TopicInput captures caller provided topic fields.
type TopicInput struct {
	Title       string
	Description string
	Category    TopicCategory
	Difficulty  TopicDifficulty
}

// SubmitTopicParams wraps the data required to submit a topic.
type SubmitTopicParams struct {
	Principal Principal
	Input     TopicInput
}

// EditTopicParams wraps the data required for an author to edit a topic.
type EditTopicParams struct {
	Principal Principal
	TopicID   string
	Input     TopicInput
}

// CastVoteParams wraps the data required to cast or switch a vote.
type CastVoteParams struct {
	Principal Principal
	TopicID   string
	Kind      VoteKind
}

// TopicAnnotations carries optional curator fields applied on transition.
type TopicAnnotations struct {
	EnhancedTitle       *string
	EnhancedDescription *string
	Notes               *string
}

// TransitionTopicParams wraps the data required to move a topic between
// curation states.
type TransitionTopicParams struct {
	Principal   Principal
	TopicID     string
	NewStatus   TopicStatus
	Annotations TopicAnnotations
}

// ListTopicsParams narrows and ranks topic listings. Filters are pure
// predicates applied before ranking.
type ListTopicsParams struct {
	Category   TopicCategory
	Difficulty TopicDifficulty
	Status     TopicStatus
}

// AvailabilitySlot represents one bookable weekly slot in a mentor's grid.
type AvailabilitySlot struct {
	MentorID  string
	DayOfWeek time.Weekday
	StartTime string
	EndTime   string
	Available bool
	UpdatedAt time.Time
}

// ToggleSlotParams wraps the data required to flip a slot.
type ToggleSlotParams struct {
	Principal Principal
	DayOfWeek time.Weekday
	StartTime string
	EndTime   string
}

// FlushOutcome describes how a pending availability write resolved.
type FlushOutcome string

const (
	// FlushApplied means the backend durably recorded the pending grid.
	FlushApplied FlushOutcome = "applied"
	// FlushReverted means retries were exhausted and the local pending
	// state was discarded in favour of the backend's authoritative grid.
	FlushReverted FlushOutcome = "reverted"
	// FlushNoop means there was nothing pending for the mentor.
	FlushNoop FlushOutcome = "noop"
)

// FlushResult reports the resolution of a flush so callers can reconcile
// optimistic local state instead of assuming success.
type FlushResult struct {
	Outcome FlushOutcome
	Reason  string
}

// BookingStatus is the lifecycle state of a one-on-one booking request.
type BookingStatus string

const (
	BookingStatusRequested BookingStatus = "requested"
	BookingStatusApproved  BookingStatus = "approved"
	BookingStatusDenied    BookingStatus = "denied"
	BookingStatusCompleted BookingStatus = "completed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// Booking represents a one-on-one session request between a learner and a
// mentor's declared availability slot.
type Booking struct {
	ID           string
	LearnerID    string
	MentorID     string
	Topic        string
	Start        time.Time
	End          time.Time
	Status       BookingStatus
	DenialReason *string
	MeetingLink  *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// BookingInput captures caller provided booking fields.
type BookingInput struct {
	MentorID string
	Topic    string
	Start    time.Time
	End      time.Time
}

// BookSessionParams wraps the data required to request a booking.
type BookSessionParams struct {
	Principal Principal
	Input     BookingInput
}

// DenyBookingParams wraps the data required to deny a booking. Reason is
// advisory text and is not validated.
type DenyBookingParams struct {
	Principal Principal
	BookingID string
	Reason    string
}

// ListBookingsParams narrows booking listings to the caller's own requests.
type ListBookingsParams struct {
	Principal Principal
	Status    BookingStatus
}

// SessionStatus is the lifecycle state of a group session.
type SessionStatus string

const (
	SessionStatusPlanning  SessionStatus = "planning"
	SessionStatusVoting    SessionStatus = "voting"
	SessionStatusScheduled SessionStatus = "scheduled"
	SessionStatusActive    SessionStatus = "active"
	SessionStatusCompleted SessionStatus = "completed"
	SessionStatusCancelled SessionStatus = "cancelled"
)

// MeetingLocation distinguishes remote and in-person sessions.
type MeetingLocation string

const (
	MeetingLocationRemote   MeetingLocation = "remote"
	MeetingLocationInPerson MeetingLocation = "in-person"
)

// ParticipantRole is a roster member's function within a session.
type ParticipantRole string

const (
	ParticipantRoleLearner   ParticipantRole = "learner"
	ParticipantRoleMentor    ParticipantRole = "mentor"
	ParticipantRoleAssistant ParticipantRole = "assistant"
)

// ParticipantStatus tracks a roster member's seat state.
type ParticipantStatus string

const (
	ParticipantStatusActive   ParticipantStatus = "active"
	ParticipantStatusWaitlist ParticipantStatus = "waitlist"
	ParticipantStatusLeft     ParticipantStatus = "left"
)

// Participant is one member of a group session roster.
type Participant struct {
	ID          string
	DisplayName string
	Role        ParticipantRole
	Status      ParticipantStatus
	JoinedAt    time.Time
}

// GroupSession represents a capacity bounded collaborative session promoted
// from a ranked topic.
type GroupSession struct {
	ID              string
	TopicID         string
	HostMentorID    string
	Title           string
	Description     string
	MaxParticipants int
	Status          SessionStatus
	StartsAt        time.Time
	Duration        time.Duration
	Location        MeetingLocation
	MeetingLink     *string
	MeetingAddress  *string
	Participants    []Participant
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// GroupSessionInput captures caller provided session fields.
type GroupSessionInput struct {
	TopicID         string
	Title           string
	Description     string
	MaxParticipants int
	StartsAt        time.Time
	Duration        time.Duration
	Location        MeetingLocation
	MeetingLink     string
	MeetingAddress  string
}

// CreateGroupSessionParams wraps the data required to promote a topic into a
// scheduled session.
type CreateGroupSessionParams struct {
	Principal Principal
	Input     GroupSessionInput
}

// GroupSessionPatch carries the host editable fields. Nil fields are left
// unchanged.
type GroupSessionPatch struct {
	Title           *string
	Description     *string
	MaxParticipants *int
	StartsAt        *time.Time
	Duration        *time.Duration
	Location        *MeetingLocation
	MeetingLink     *string
	MeetingAddress  *string
}

// EditGroupSessionParams wraps the data required to edit a session.
type EditGroupSessionParams struct {
	Principal Principal
	SessionID string
	Patch     GroupSessionPatch
}

// JoinSessionParams wraps the data required to join a session roster.
type JoinSessionParams struct {
	Principal Principal
	SessionID string
	Role      ParticipantRole
}

// TransitionSessionParams wraps the data required to move a session along
// its lifecycle.
type TransitionSessionParams struct {
	Principal Principal
	SessionID string
	NewStatus SessionStatus
}
