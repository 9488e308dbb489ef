package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/evymii/pineder-sub001/internal/application"
	"github.com/evymii/pineder-sub001/internal/identity"
	"github.com/evymii/pineder-sub001/internal/persistence"
)

var (
	topicCounter   uint64
	bookingCounter uint64
	sessionCounter uint64
)

var referenceTime = time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// LearnerPrincipal returns a principal whose email resolves to the learner
// role under the default policy.
func LearnerPrincipal(id string) application.Principal {
	return application.Principal{
		UserID:      id,
		Email:       fmt.Sprintf("%s@nest.edu.mn", id),
		DisplayName: id,
		Role:        identity.RoleLearner,
	}
}

// MentorPrincipal returns a principal whose email resolves to the mentor role
// under the default policy.
func MentorPrincipal(id string) application.Principal {
	return application.Principal{
		UserID:      id,
		Email:       fmt.Sprintf("%s@pineder.mn", id),
		DisplayName: id,
		Role:        identity.RoleMentor,
	}
}

// ----------------------------- Topic fixtures -----------------------------

// TopicFixture is a deterministic topic record that can be materialised for
// application or persistence tests.
type TopicFixture struct {
	ID                string
	AuthorID          string
	AuthorDisplayName string
	Title             string
	Description       string
	Category          application.TopicCategory
	Difficulty        application.TopicDifficulty
	Status            application.TopicStatus
	SubmittedAt       time.Time
	UpdatedAt         time.Time
}

// TopicOption configures the generated topic fixture.
type TopicOption func(*TopicFixture)

// NewTopicFixture returns a deterministic topic fixture with optional
// overrides.
func NewTopicFixture(opts ...TopicOption) TopicFixture {
	idx := atomic.AddUint64(&topicCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := TopicFixture{
		ID:                fmt.Sprintf("topic-%03d", idx),
		AuthorID:          fmt.Sprintf("learner-%03d", idx),
		AuthorDisplayName: fmt.Sprintf("Learner %03d", idx),
		Title:             fmt.Sprintf("Topic %03d", idx),
		Description:       fmt.Sprintf("Description for topic %03d", idx),
		Category:          application.TopicCategoryBackend,
		Status:            application.TopicStatusPending,
		SubmittedAt:       created,
		UpdatedAt:         created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithTopicID overrides the generated topic ID.
func WithTopicID(id string) TopicOption {
	return func(f *TopicFixture) {
		f.ID = id
	}
}

// WithTopicAuthor overrides the author identity on the fixture.
func WithTopicAuthor(id, displayName string) TopicOption {
	return func(f *TopicFixture) {
		f.AuthorID = id
		f.AuthorDisplayName = displayName
	}
}

// WithTopicStatus overrides the curation status.
func WithTopicStatus(status application.TopicStatus) TopicOption {
	return func(f *TopicFixture) {
		f.Status = status
	}
}

// WithTopicCategory overrides the category.
func WithTopicCategory(category application.TopicCategory) TopicOption {
	return func(f *TopicFixture) {
		f.Category = category
	}
}

// ToApplication converts the fixture into the application layer type.
func (f TopicFixture) ToApplication() application.Topic {
	return application.Topic{
		ID:                f.ID,
		AuthorID:          f.AuthorID,
		AuthorDisplayName: f.AuthorDisplayName,
		Title:             f.Title,
		Description:       f.Description,
		Category:          f.Category,
		Difficulty:        f.Difficulty,
		Status:            f.Status,
		SubmittedAt:       f.SubmittedAt,
		UpdatedAt:         f.UpdatedAt,
	}
}

// ToPersistence converts the fixture into the persistence layer type.
func (f TopicFixture) ToPersistence() persistence.Topic {
	var difficulty *string
	if f.Difficulty != "" {
		value := string(f.Difficulty)
		difficulty = &value
	}
	return persistence.Topic{
		ID:                f.ID,
		AuthorID:          f.AuthorID,
		AuthorDisplayName: f.AuthorDisplayName,
		Title:             f.Title,
		Description:       f.Description,
		Category:          string(f.Category),
		Difficulty:        difficulty,
		Status:            string(f.Status),
		SubmittedAt:       f.SubmittedAt,
		UpdatedAt:         f.UpdatedAt,
	}
}

// ---------------------------- Booking fixtures ----------------------------

// BookingFixture is a deterministic booking record.
type BookingFixture struct {
	ID        string
	LearnerID string
	MentorID  string
	Topic     string
	Start     time.Time
	End       time.Time
	Status    application.BookingStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// BookingOption configures the generated booking fixture.
type BookingOption func(*BookingFixture)

// NewBookingFixture returns a deterministic booking fixture with optional
// overrides. Start always lands on a Monday morning so the booking matches a
// weekday availability slot.
func NewBookingFixture(opts ...BookingOption) BookingFixture {
	idx := atomic.AddUint64(&bookingCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	start := time.Date(2026, time.March, 9, 9, 0, 0, 0, time.UTC).AddDate(0, 0, 7*int(idx-1))
	fixture := BookingFixture{
		ID:        fmt.Sprintf("booking-%03d", idx),
		LearnerID: fmt.Sprintf("learner-%03d", idx),
		MentorID:  fmt.Sprintf("mentor-%03d", idx),
		Topic:     fmt.Sprintf("Session topic %03d", idx),
		Start:     start,
		End:       start.Add(time.Hour),
		Status:    application.BookingStatusRequested,
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithBookingID overrides the generated booking ID.
func WithBookingID(id string) BookingOption {
	return func(f *BookingFixture) {
		f.ID = id
	}
}

// WithBookingParties overrides the learner and mentor on the fixture.
func WithBookingParties(learnerID, mentorID string) BookingOption {
	return func(f *BookingFixture) {
		f.LearnerID = learnerID
		f.MentorID = mentorID
	}
}

// WithBookingStatus overrides the lifecycle status.
func WithBookingStatus(status application.BookingStatus) BookingOption {
	return func(f *BookingFixture) {
		f.Status = status
	}
}

// WithBookingWindow overrides the start and end instants.
func WithBookingWindow(start, end time.Time) BookingOption {
	return func(f *BookingFixture) {
		f.Start = start
		f.End = end
	}
}

// ToApplication converts the fixture into the application layer type.
func (f BookingFixture) ToApplication() application.Booking {
	return application.Booking{
		ID:        f.ID,
		LearnerID: f.LearnerID,
		MentorID:  f.MentorID,
		Topic:     f.Topic,
		Start:     f.Start,
		End:       f.End,
		Status:    f.Status,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// ToPersistence converts the fixture into the persistence layer type.
func (f BookingFixture) ToPersistence() persistence.Booking {
	return persistence.Booking{
		ID:        f.ID,
		LearnerID: f.LearnerID,
		MentorID:  f.MentorID,
		Topic:     f.Topic,
		Start:     f.Start,
		End:       f.End,
		Status:    string(f.Status),
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// ------------------------- Group session fixtures -------------------------

// GroupSessionFixture is a deterministic group session record whose roster
// contains the hosting mentor.
type GroupSessionFixture struct {
	ID              string
	TopicID         string
	HostMentorID    string
	Title           string
	Description     string
	MaxParticipants int
	Status          application.SessionStatus
	StartsAt        time.Time
	Duration        time.Duration
	Location        application.MeetingLocation
	MeetingLink     string
	Participants    []application.Participant
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// GroupSessionOption configures the generated session fixture.
type GroupSessionOption func(*GroupSessionFixture)

// NewGroupSessionFixture returns a deterministic session fixture with
// optional overrides.
func NewGroupSessionFixture(opts ...GroupSessionOption) GroupSessionFixture {
	idx := atomic.AddUint64(&sessionCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	host := fmt.Sprintf("mentor-%03d", idx)
	fixture := GroupSessionFixture{
		ID:              fmt.Sprintf("session-%03d", idx),
		TopicID:         fmt.Sprintf("topic-%03d", idx),
		HostMentorID:    host,
		Title:           fmt.Sprintf("Group session %03d", idx),
		Description:     fmt.Sprintf("Description for session %03d", idx),
		MaxParticipants: 5,
		Status:          application.SessionStatusPlanning,
		StartsAt:        created.Add(7 * 24 * time.Hour),
		Duration:        90 * time.Minute,
		Location:        application.MeetingLocationRemote,
		MeetingLink:     fmt.Sprintf("https://meet.pineder.mn/rooms/session-%03d", idx),
		Participants: []application.Participant{
			{
				ID:          host,
				DisplayName: host,
				Role:        application.ParticipantRoleMentor,
				Status:      application.ParticipantStatusActive,
				JoinedAt:    created,
			},
		},
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithSessionID overrides the generated session ID.
func WithSessionID(id string) GroupSessionOption {
	return func(f *GroupSessionFixture) {
		f.ID = id
	}
}

// WithSessionHost overrides the hosting mentor and rewrites the seeded roster
// entry to match.
func WithSessionHost(mentorID string) GroupSessionOption {
	return func(f *GroupSessionFixture) {
		f.HostMentorID = mentorID
		for i := range f.Participants {
			if f.Participants[i].Role == application.ParticipantRoleMentor {
				f.Participants[i].ID = mentorID
				f.Participants[i].DisplayName = mentorID
			}
		}
	}
}

// WithSessionCapacity overrides the participant cap.
func WithSessionCapacity(max int) GroupSessionOption {
	return func(f *GroupSessionFixture) {
		f.MaxParticipants = max
	}
}

// WithSessionStatus overrides the lifecycle status.
func WithSessionStatus(status application.SessionStatus) GroupSessionOption {
	return func(f *GroupSessionFixture) {
		f.Status = status
	}
}

// WithSessionTopic overrides the promoted topic ID.
func WithSessionTopic(topicID string) GroupSessionOption {
	return func(f *GroupSessionFixture) {
		f.TopicID = topicID
	}
}

// WithSessionParticipants replaces the seeded roster.
func WithSessionParticipants(participants ...application.Participant) GroupSessionOption {
	return func(f *GroupSessionFixture) {
		f.Participants = participants
	}
}

// ToApplication converts the fixture into the application layer type.
func (f GroupSessionFixture) ToApplication() application.GroupSession {
	var link *string
	if f.MeetingLink != "" {
		value := f.MeetingLink
		link = &value
	}
	participants := make([]application.Participant, len(f.Participants))
	copy(participants, f.Participants)
	return application.GroupSession{
		ID:              f.ID,
		TopicID:         f.TopicID,
		HostMentorID:    f.HostMentorID,
		Title:           f.Title,
		Description:     f.Description,
		MaxParticipants: f.MaxParticipants,
		Status:          f.Status,
		StartsAt:        f.StartsAt,
		Duration:        f.Duration,
		Location:        f.Location,
		MeetingLink:     link,
		Participants:    participants,
		CreatedAt:       f.CreatedAt,
		UpdatedAt:       f.UpdatedAt,
	}
}

// ToPersistence converts the fixture into the persistence layer type.
func (f GroupSessionFixture) ToPersistence() persistence.GroupSession {
	var link *string
	if f.MeetingLink != "" {
		value := f.MeetingLink
		link = &value
	}
	participants := make([]persistence.Participant, 0, len(f.Participants))
	for _, participant := range f.Participants {
		participants = append(participants, persistence.Participant{
			ID:          participant.ID,
			DisplayName: participant.DisplayName,
			Role:        string(participant.Role),
			Status:      string(participant.Status),
			JoinedAt:    participant.JoinedAt,
		})
	}
	return persistence.GroupSession{
		ID:              f.ID,
		TopicID:         f.TopicID,
		HostMentorID:    f.HostMentorID,
		Title:           f.Title,
		Description:     f.Description,
		MaxParticipants: f.MaxParticipants,
		Status:          string(f.Status),
		StartsAt:        f.StartsAt,
		DurationMinutes: int(f.Duration / time.Minute),
		Location:        string(f.Location),
		MeetingLink:     link,
		Participants:    participants,
		CreatedAt:       f.CreatedAt,
		UpdatedAt:       f.UpdatedAt,
	}
}
