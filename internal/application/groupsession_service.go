package application

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/evymii/pineder-sub001/internal/identity"
)

// GroupSessionRepository captures the persistence interactions needed by the
// group session service. The full roster travels with the session so that
// capacity decisions are made against one consistent snapshot.
type GroupSessionRepository interface {
	CreateSession(ctx context.Context, session GroupSession) (GroupSession, error)
	GetSession(ctx context.Context, id string) (GroupSession, error)
	UpdateSession(ctx context.Context, session GroupSession) (GroupSession, error)
	ListSessions(ctx context.Context, filter GroupSessionRepositoryFilter) ([]GroupSession, error)
}

// GroupSessionRepositoryFilter narrows queries issued to the session repository.
type GroupSessionRepositoryFilter struct {
	HostMentorID string
	Status       SessionStatus
}

// TopicDirectory exposes the topic lookup needed when a session is promoted
// from a ranked topic.
type TopicDirectory interface {
	TopicExists(ctx context.Context, topicID string) (bool, error)
}

// GroupSessionService manages capacity bounded group sessions: creation from
// a topic, the participant roster with its waitlist, and the lifecycle
// planning -> voting -> scheduled -> active -> completed.
type GroupSessionService struct {
	sessions    GroupSessionRepository
	topics      TopicDirectory
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewGroupSessionService wires dependencies for group session operations.
func NewGroupSessionService(sessions GroupSessionRepository, topics TopicDirectory, idGenerator func() string, now func() time.Time) *GroupSessionService {
	return NewGroupSessionServiceWithLogger(sessions, topics, idGenerator, now, nil)
}

// NewGroupSessionServiceWithLogger constructs a group session service with a
// specified logger.
func NewGroupSessionServiceWithLogger(sessions GroupSessionRepository, topics TopicDirectory, idGenerator func() string, now func() time.Time, logger *slog.Logger) *GroupSessionService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &GroupSessionService{
		sessions:    sessions,
		topics:      topics,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *GroupSessionService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "GroupSessionService", operation, attrs...)
}

// CreateSession promotes a topic into a scheduled group session hosted by
// the calling mentor. The host is seeded into the roster as an active mentor
// participant.
func (s *GroupSessionService) CreateSession(ctx context.Context, params CreateGroupSessionParams) (session GroupSession, err error) {
	if s == nil {
		err = fmt.Errorf("GroupSessionService is nil")
		return
	}

	logger := s.loggerWith(ctx, "CreateSession",
		"principal_id", params.Principal.UserID,
		"topic_id", params.Input.TopicID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create session", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("session_id", session.ID).InfoContext(ctx, "session created")
	}()

	if params.Principal.Role != identity.RoleMentor {
		err = ErrUnauthorized
		return
	}

	input := params.Input
	vErr := validateGroupSessionInput(input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	if err = s.ensureTopicExists(ctx, input.TopicID); err != nil {
		return
	}

	createdAt := s.now()
	session = GroupSession{
		ID:              s.idGenerator(),
		TopicID:         strings.TrimSpace(input.TopicID),
		HostMentorID:    params.Principal.UserID,
		Title:           strings.TrimSpace(input.Title),
		Description:     strings.TrimSpace(input.Description),
		MaxParticipants: input.MaxParticipants,
		Status:          SessionStatusPlanning,
		StartsAt:        input.StartsAt,
		Duration:        input.Duration,
		Location:        input.Location,
		MeetingLink:     optionalString(input.MeetingLink),
		MeetingAddress:  optionalString(input.MeetingAddress),
		Participants: []Participant{{
			ID:          params.Principal.UserID,
			DisplayName: params.Principal.DisplayName,
			Role:        ParticipantRoleMentor,
			Status:      ParticipantStatusActive,
			JoinedAt:    createdAt,
		}},
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}

	if s.sessions == nil {
		return
	}

	var persisted GroupSession
	persisted, err = s.sessions.CreateSession(ctx, session)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	session = persisted
	return
}

// JoinSession adds the caller to a session roster. When active seats are
// exhausted the caller is placed on the waitlist instead. Joining a session
// one is already part of is a no-op.
func (s *GroupSessionService) JoinSession(ctx context.Context, params JoinSessionParams) (session GroupSession, err error) {
	if s == nil {
		err = fmt.Errorf("GroupSessionService is nil")
		return
	}
	if s.sessions == nil {
		err = fmt.Errorf("session repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "JoinSession",
		"principal_id", params.Principal.UserID,
		"session_id", params.SessionID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to join session", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "session joined")
	}()

	var existing GroupSession
	existing, err = s.sessions.GetSession(ctx, params.SessionID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	if sessionTerminal(existing.Status) {
		err = ErrInvalidState
		return
	}

	role := params.Role
	if role == "" {
		role = ParticipantRoleLearner
	}
	if !isParticipantRole(role) {
		vErr := &ValidationError{}
		vErr.add("role", fmt.Sprintf("unknown participant role: %s", role))
		err = vErr
		return
	}

	updated := existing
	updated.Participants = cloneParticipants(existing.Participants)

	idx := participantIndex(updated.Participants, params.Principal.UserID)
	if idx >= 0 && updated.Participants[idx].Status != ParticipantStatusLeft {
		// Already seated or queued.
		session = updated
		return
	}

	status := ParticipantStatusActive
	if activeCount(updated.Participants) >= updated.MaxParticipants {
		status = ParticipantStatusWaitlist
	}

	joined := Participant{
		ID:          params.Principal.UserID,
		DisplayName: params.Principal.DisplayName,
		Role:        role,
		Status:      status,
		JoinedAt:    s.now(),
	}
	if idx >= 0 {
		updated.Participants[idx] = joined
	} else {
		updated.Participants = append(updated.Participants, joined)
	}
	updated.UpdatedAt = s.now()

	session, err = s.sessions.UpdateSession(ctx, updated)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	return
}

// LeaveSession removes the caller from the roster. When an active seat frees
// up, the earliest joined waitlisted participant is promoted into it.
func (s *GroupSessionService) LeaveSession(ctx context.Context, principal Principal, sessionID string) (session GroupSession, err error) {
	if s == nil {
		err = fmt.Errorf("GroupSessionService is nil")
		return
	}
	if s.sessions == nil {
		err = fmt.Errorf("session repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "LeaveSession",
		"principal_id", principal.UserID,
		"session_id", sessionID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to leave session", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "session left")
	}()

	var existing GroupSession
	existing, err = s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	if sessionTerminal(existing.Status) {
		err = ErrInvalidState
		return
	}

	updated := existing
	updated.Participants = cloneParticipants(existing.Participants)

	idx := participantIndex(updated.Participants, principal.UserID)
	if idx < 0 || updated.Participants[idx].Status == ParticipantStatusLeft {
		err = ErrNotFound
		return
	}

	freedSeat := updated.Participants[idx].Status == ParticipantStatusActive
	updated.Participants[idx].Status = ParticipantStatusLeft

	if freedSeat {
		promoteFromWaitlist(updated.Participants)
	}
	updated.UpdatedAt = s.now()

	session, err = s.sessions.UpdateSession(ctx, updated)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	return
}

// EditSession applies a partial update to a session. Only the hosting mentor
// may edit, and sessions in a terminal state are immutable.
func (s *GroupSessionService) EditSession(ctx context.Context, params EditGroupSessionParams) (session GroupSession, err error) {
	if s == nil {
		err = fmt.Errorf("GroupSessionService is nil")
		return
	}
	if s.sessions == nil {
		err = fmt.Errorf("session repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "EditSession",
		"principal_id", params.Principal.UserID,
		"session_id", params.SessionID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to edit session", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "session updated")
	}()

	var existing GroupSession
	existing, err = s.sessions.GetSession(ctx, params.SessionID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	if existing.HostMentorID != params.Principal.UserID {
		err = ErrUnauthorized
		return
	}
	if sessionTerminal(existing.Status) {
		err = ErrInvalidState
		return
	}

	updated := existing
	updated.Participants = cloneParticipants(existing.Participants)
	applySessionPatch(&updated, params.Patch)

	vErr := validateEditedSession(updated)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	// Growing capacity seats queued participants in arrival order.
	for activeCount(updated.Participants) < updated.MaxParticipants {
		if !promoteFromWaitlist(updated.Participants) {
			break
		}
	}
	updated.UpdatedAt = s.now()

	session, err = s.sessions.UpdateSession(ctx, updated)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	return
}

// CancelSession moves a session to cancelled. Only the hosting mentor may
// cancel, from any non-terminal state.
func (s *GroupSessionService) CancelSession(ctx context.Context, principal Principal, sessionID string) (GroupSession, error) {
	if s == nil {
		return GroupSession{}, fmt.Errorf("GroupSessionService is nil")
	}
	return s.TransitionStatus(ctx, TransitionSessionParams{
		Principal: principal,
		SessionID: sessionID,
		NewStatus: SessionStatusCancelled,
	})
}

// TransitionStatus advances the session lifecycle. Forward transitions are
// strictly linear; cancelled is reachable from any non-terminal state.
func (s *GroupSessionService) TransitionStatus(ctx context.Context, params TransitionSessionParams) (session GroupSession, err error) {
	if s == nil {
		err = fmt.Errorf("GroupSessionService is nil")
		return
	}
	if s.sessions == nil {
		err = fmt.Errorf("session repository not configured")
		return
	}

	logger := s.loggerWith(ctx, "TransitionStatus",
		"principal_id", params.Principal.UserID,
		"session_id", params.SessionID,
		"new_status", string(params.NewStatus),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to transition session", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "session transitioned")
	}()

	if !isSessionStatus(params.NewStatus) {
		vErr := &ValidationError{}
		vErr.add("status", fmt.Sprintf("unknown session status: %s", params.NewStatus))
		err = vErr
		return
	}

	var existing GroupSession
	existing, err = s.sessions.GetSession(ctx, params.SessionID)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	if existing.HostMentorID != params.Principal.UserID {
		err = ErrUnauthorized
		return
	}
	if !sessionTransitionAllowed(existing.Status, params.NewStatus) {
		err = ErrInvalidState
		return
	}

	updated := existing
	updated.Participants = cloneParticipants(existing.Participants)
	updated.Status = params.NewStatus
	updated.UpdatedAt = s.now()

	session, err = s.sessions.UpdateSession(ctx, updated)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	return
}

// GetSession returns a single session. Sessions are publicly readable.
func (s *GroupSessionService) GetSession(ctx context.Context, sessionID string) (GroupSession, error) {
	if s == nil {
		return GroupSession{}, fmt.Errorf("GroupSessionService is nil")
	}
	if s.sessions == nil {
		return GroupSession{}, ErrNotFound
	}

	session, err := s.sessions.GetSession(ctx, sessionID)
	if err != nil {
		return GroupSession{}, mapRepoError(err)
	}
	return session, nil
}

// ListSessions enumerates sessions, soonest scheduled first.
func (s *GroupSessionService) ListSessions(ctx context.Context, filter GroupSessionRepositoryFilter) (sessions []GroupSession, err error) {
	if s == nil {
		err = fmt.Errorf("GroupSessionService is nil")
		return
	}
	if s.sessions == nil {
		return nil, nil
	}

	raw, err := s.sessions.ListSessions(ctx, filter)
	if err != nil {
		if isNotFoundError(err) {
			return nil, nil
		}
		err = mapRepoError(err)
		return
	}

	sessions = make([]GroupSession, len(raw))
	copy(sessions, raw)
	sort.SliceStable(sessions, func(i, j int) bool {
		if sessions[i].StartsAt.Equal(sessions[j].StartsAt) {
			return sessions[i].ID < sessions[j].ID
		}
		return sessions[i].StartsAt.Before(sessions[j].StartsAt)
	})

	return
}

func (s *GroupSessionService) ensureTopicExists(ctx context.Context, topicID string) error {
	if s.topics == nil {
		return nil
	}
	exists, err := s.topics.TopicExists(ctx, strings.TrimSpace(topicID))
	if err != nil {
		return mapRepoError(err)
	}
	if !exists {
		return ErrNotFound
	}
	return nil
}

func validateGroupSessionInput(input GroupSessionInput) *ValidationError {
	vErr := &ValidationError{}

	if strings.TrimSpace(input.TopicID) == "" {
		vErr.add("topic_id", "topic id is required")
	}
	if strings.TrimSpace(input.Title) == "" {
		vErr.add("title", "title is required")
	}
	if input.MaxParticipants <= 0 {
		vErr.add("max_participants", "max participants must be positive")
	}
	if input.StartsAt.IsZero() {
		vErr.add("starts_at", "start time is required")
	}
	if input.Duration <= 0 {
		vErr.add("duration", "duration must be positive")
	}

	switch input.Location {
	case MeetingLocationRemote:
		if strings.TrimSpace(input.MeetingLink) == "" {
			vErr.add("meeting_link", "remote sessions require a meeting link")
		}
		if strings.TrimSpace(input.MeetingAddress) != "" {
			vErr.add("meeting_address", "remote sessions must not carry an address")
		}
	case MeetingLocationInPerson:
		if strings.TrimSpace(input.MeetingAddress) == "" {
			vErr.add("meeting_address", "in-person sessions require an address")
		}
		if strings.TrimSpace(input.MeetingLink) != "" {
			vErr.add("meeting_link", "in-person sessions must not carry a link")
		}
	default:
		vErr.add("location", fmt.Sprintf("unknown meeting location: %s", input.Location))
	}

	return vErr
}

func validateEditedSession(session GroupSession) *ValidationError {
	vErr := &ValidationError{}

	if strings.TrimSpace(session.Title) == "" {
		vErr.add("title", "title is required")
	}
	if session.MaxParticipants <= 0 {
		vErr.add("max_participants", "max participants must be positive")
	}
	if session.MaxParticipants > 0 && activeCount(session.Participants) > session.MaxParticipants {
		vErr.add("max_participants", "capacity cannot drop below the seated participant count")
	}
	if session.Duration <= 0 {
		vErr.add("duration", "duration must be positive")
	}

	switch session.Location {
	case MeetingLocationRemote:
		if session.MeetingLink == nil {
			vErr.add("meeting_link", "remote sessions require a meeting link")
		}
	case MeetingLocationInPerson:
		if session.MeetingAddress == nil {
			vErr.add("meeting_address", "in-person sessions require an address")
		}
	default:
		vErr.add("location", fmt.Sprintf("unknown meeting location: %s", session.Location))
	}

	return vErr
}

func applySessionPatch(session *GroupSession, patch GroupSessionPatch) {
	if patch.Title != nil {
		session.Title = strings.TrimSpace(*patch.Title)
	}
	if patch.Description != nil {
		session.Description = strings.TrimSpace(*patch.Description)
	}
	if patch.MaxParticipants != nil {
		session.MaxParticipants = *patch.MaxParticipants
	}
	if patch.StartsAt != nil {
		session.StartsAt = *patch.StartsAt
	}
	if patch.Duration != nil {
		session.Duration = *patch.Duration
	}
	if patch.Location != nil {
		session.Location = *patch.Location
		// Switching venue kind clears the reference that no longer applies.
		switch *patch.Location {
		case MeetingLocationRemote:
			session.MeetingAddress = nil
		case MeetingLocationInPerson:
			session.MeetingLink = nil
		}
	}
	if patch.MeetingLink != nil {
		session.MeetingLink = optionalString(*patch.MeetingLink)
	}
	if patch.MeetingAddress != nil {
		session.MeetingAddress = optionalString(*patch.MeetingAddress)
	}
}

func sessionTransitionAllowed(from, to SessionStatus) bool {
	if from == to {
		return false
	}
	if sessionTerminal(from) {
		return false
	}
	if to == SessionStatusCancelled {
		return true
	}

	switch from {
	case SessionStatusPlanning:
		return to == SessionStatusVoting
	case SessionStatusVoting:
		return to == SessionStatusScheduled
	case SessionStatusScheduled:
		return to == SessionStatusActive
	case SessionStatusActive:
		return to == SessionStatusCompleted
	default:
		return false
	}
}

func sessionTerminal(status SessionStatus) bool {
	return status == SessionStatusCompleted || status == SessionStatusCancelled
}

func isSessionStatus(status SessionStatus) bool {
	switch status {
	case SessionStatusPlanning, SessionStatusVoting, SessionStatusScheduled,
		SessionStatusActive, SessionStatusCompleted, SessionStatusCancelled:
		return true
	default:
		return false
	}
}

func isParticipantRole(role ParticipantRole) bool {
	switch role {
	case ParticipantRoleLearner, ParticipantRoleMentor, ParticipantRoleAssistant:
		return true
	default:
		return false
	}
}

func participantIndex(participants []Participant, userID string) int {
	for i, p := range participants {
		if p.ID == userID {
			return i
		}
	}
	return -1
}

func activeCount(participants []Participant) int {
	count := 0
	for _, p := range participants {
		if p.Status == ParticipantStatusActive {
			count++
		}
	}
	return count
}

// promoteFromWaitlist seats the earliest joined waitlisted participant and
// reports whether anyone was promoted.
func promoteFromWaitlist(participants []Participant) bool {
	best := -1
	for i, p := range participants {
		if p.Status != ParticipantStatusWaitlist {
			continue
		}
		if best < 0 || p.JoinedAt.Before(participants[best].JoinedAt) {
			best = i
		}
	}
	if best < 0 {
		return false
	}
	participants[best].Status = ParticipantStatusActive
	return true
}

func optionalString(value string) *string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func cloneParticipants(participants []Participant) []Participant {
	if participants == nil {
		return nil
	}
	out := make([]Participant, len(participants))
	copy(out, participants)
	return out
}
