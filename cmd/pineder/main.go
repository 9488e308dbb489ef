package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/cors"

	"github.com/evymii/pineder-sub001/internal/application"
	"github.com/evymii/pineder-sub001/internal/config"
	httptransport "github.com/evymii/pineder-sub001/internal/http"
	"github.com/evymii/pineder-sub001/internal/identity"
	"github.com/evymii/pineder-sub001/internal/meeting"
	"github.com/evymii/pineder-sub001/internal/persistence"
	"github.com/evymii/pineder-sub001/internal/persistence/sqlite"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	pool, err := sqlite.Open(cfg.SQLiteDSN)
	if err != nil {
		logger.Error("failed to open storage", "error", err)
		os.Exit(1)
	}
	defer func() {
		if cerr := pool.Close(); cerr != nil {
			logger.Error("failed to close storage", "error", cerr)
		}
	}()

	idGenerator := uuid.NewString
	now := time.Now

	topicStore := sqlite.NewTopicRepository(pool)
	availabilityStore := sqlite.NewAvailabilityRepository(pool)
	bookingStore := sqlite.NewBookingRepository(pool)
	sessionStore := sqlite.NewGroupSessionRepository(pool)

	topicRepo := newTopicRepositoryAdapter(topicStore)
	availabilityGrid := newAvailabilityGridAdapter(availabilityStore)
	slotDirectory := newSlotDirectoryAdapter(availabilityStore)
	bookingRepo := newBookingRepositoryAdapter(bookingStore)
	sessionRepo := newGroupSessionRepositoryAdapter(sessionStore)
	topicDirectory := newTopicDirectoryAdapter(topicStore)

	provisioner, err := meeting.NewLinkProvisioner(cfg.MeetingBaseURL)
	if err != nil {
		logger.Error("failed to configure meeting provisioning", "error", err)
		os.Exit(1)
	}

	topicService := application.NewTopicServiceWithLogger(topicRepo, idGenerator, now, logger)
	availabilityService := application.NewAvailabilityServiceWithLogger(availabilityGrid, application.DefaultRetryPolicy(), now, logger)
	bookingService := application.NewBookingServiceWithLogger(bookingRepo, slotDirectory, provisioner, idGenerator, now, logger)
	sessionService := application.NewGroupSessionServiceWithLogger(sessionRepo, topicDirectory, idGenerator, now, logger)

	go availabilityService.FlushLoop(ctx, cfg.FlushInterval)

	verifier := identity.NewVerifier(
		[]byte(cfg.TokenSecret),
		identity.NewPolicy(cfg.LearnerDomains, cfg.MentorDomains),
		nil,
	)

	corsMiddleware := cors.New(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}).Handler

	handler := httptransport.NewRouter(httptransport.RouterConfig{
		Topics:        httptransport.NewTopicHandler(topicService, logger),
		Availability:  httptransport.NewAvailabilityHandler(availabilityService, logger),
		Bookings:      httptransport.NewBookingHandler(bookingService, logger),
		GroupSessions: httptransport.NewGroupSessionHandler(sessionService, logger),
		Verifier:      verifier,
		Logger:        logger,
		Middlewares:   []func(http.Handler) http.Handler{corsMiddleware},
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("failed to shutdown server", "error", err)
		}
	}()

	logger.Info("pineder API listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server encountered error", "error", err)
		os.Exit(1)
	}
}

type topicRepositoryAdapter struct {
	repo persistence.TopicRepository
}

func newTopicRepositoryAdapter(repo persistence.TopicRepository) *topicRepositoryAdapter {
	return &topicRepositoryAdapter{repo: repo}
}

func (a *topicRepositoryAdapter) CreateTopic(ctx context.Context, topic application.Topic) (application.Topic, error) {
	if err := a.repo.CreateTopic(ctx, toPersistenceTopic(topic)); err != nil {
		return application.Topic{}, err
	}
	stored, err := a.repo.GetTopic(ctx, topic.ID)
	if err != nil {
		return application.Topic{}, err
	}
	return toApplicationTopic(stored), nil
}

func (a *topicRepositoryAdapter) UpdateTopic(ctx context.Context, topic application.Topic) (application.Topic, error) {
	if err := a.repo.UpdateTopic(ctx, toPersistenceTopic(topic)); err != nil {
		return application.Topic{}, err
	}
	stored, err := a.repo.GetTopic(ctx, topic.ID)
	if err != nil {
		return application.Topic{}, err
	}
	return toApplicationTopic(stored), nil
}

func (a *topicRepositoryAdapter) GetTopic(ctx context.Context, id string) (application.Topic, error) {
	stored, err := a.repo.GetTopic(ctx, id)
	if err != nil {
		return application.Topic{}, err
	}
	return toApplicationTopic(stored), nil
}

func (a *topicRepositoryAdapter) ListTopics(ctx context.Context, filter application.TopicRepositoryFilter) ([]application.Topic, error) {
	models, err := a.repo.ListTopics(ctx, persistence.TopicFilter{
		Category:   string(filter.Category),
		Difficulty: string(filter.Difficulty),
		Status:     string(filter.Status),
		AuthorID:   filter.AuthorID,
	})
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	topics := make([]application.Topic, 0, len(models))
	for _, model := range models {
		topics = append(topics, toApplicationTopic(model))
	}
	return topics, nil
}

func (a *topicRepositoryAdapter) UpsertVote(ctx context.Context, vote application.Vote) error {
	return a.repo.UpsertVote(ctx, persistence.Vote{
		ID:        vote.ID,
		TopicID:   vote.TopicID,
		VoterID:   vote.VoterID,
		Kind:      string(vote.Kind),
		CreatedAt: vote.CreatedAt,
	})
}

func (a *topicRepositoryAdapter) DeleteVote(ctx context.Context, topicID, voterID string) error {
	return a.repo.DeleteVote(ctx, topicID, voterID)
}

func (a *topicRepositoryAdapter) ListVotes(ctx context.Context, topicIDs []string) ([]application.Vote, error) {
	models, err := a.repo.ListVotes(ctx, topicIDs)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	votes := make([]application.Vote, 0, len(models))
	for _, model := range models {
		votes = append(votes, application.Vote{
			ID:        model.ID,
			TopicID:   model.TopicID,
			VoterID:   model.VoterID,
			Kind:      application.VoteKind(model.Kind),
			CreatedAt: model.CreatedAt,
		})
	}
	return votes, nil
}

type topicDirectoryAdapter struct {
	repo persistence.TopicRepository
}

func newTopicDirectoryAdapter(repo persistence.TopicRepository) *topicDirectoryAdapter {
	return &topicDirectoryAdapter{repo: repo}
}

func (a *topicDirectoryAdapter) TopicExists(ctx context.Context, topicID string) (bool, error) {
	_, err := a.repo.GetTopic(ctx, topicID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

type availabilityGridAdapter struct {
	repo persistence.AvailabilityRepository
}

func newAvailabilityGridAdapter(repo persistence.AvailabilityRepository) *availabilityGridAdapter {
	return &availabilityGridAdapter{repo: repo}
}

func (a *availabilityGridAdapter) ReplaceSlots(ctx context.Context, mentorID string, slots []application.AvailabilitySlot) error {
	models := make([]persistence.AvailabilitySlot, 0, len(slots))
	for _, slot := range slots {
		models = append(models, persistence.AvailabilitySlot{
			MentorID:  slot.MentorID,
			DayOfWeek: int(slot.DayOfWeek),
			StartTime: slot.StartTime,
			EndTime:   slot.EndTime,
			Available: slot.Available,
			UpdatedAt: slot.UpdatedAt,
		})
	}
	return a.repo.ReplaceSlots(ctx, mentorID, models)
}

func (a *availabilityGridAdapter) ListSlots(ctx context.Context, mentorID string) ([]application.AvailabilitySlot, error) {
	models, err := a.repo.ListSlots(ctx, mentorID)
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	slots := make([]application.AvailabilitySlot, 0, len(models))
	for _, model := range models {
		slots = append(slots, application.AvailabilitySlot{
			MentorID:  model.MentorID,
			DayOfWeek: time.Weekday(model.DayOfWeek),
			StartTime: model.StartTime,
			EndTime:   model.EndTime,
			Available: model.Available,
			UpdatedAt: model.UpdatedAt,
		})
	}
	return slots, nil
}

type slotDirectoryAdapter struct {
	repo persistence.AvailabilityRepository
}

func newSlotDirectoryAdapter(repo persistence.AvailabilityRepository) *slotDirectoryAdapter {
	return &slotDirectoryAdapter{repo: repo}
}

func (a *slotDirectoryAdapter) SlotExists(ctx context.Context, mentorID string, dayOfWeek time.Weekday, startTime string) (bool, error) {
	return a.repo.SlotExists(ctx, mentorID, int(dayOfWeek), startTime)
}

type bookingRepositoryAdapter struct {
	repo persistence.BookingRepository
}

func newBookingRepositoryAdapter(repo persistence.BookingRepository) *bookingRepositoryAdapter {
	return &bookingRepositoryAdapter{repo: repo}
}

func (a *bookingRepositoryAdapter) CreateBooking(ctx context.Context, booking application.Booking) (application.Booking, error) {
	if err := a.repo.CreateBooking(ctx, toPersistenceBooking(booking)); err != nil {
		return application.Booking{}, err
	}
	stored, err := a.repo.GetBooking(ctx, booking.ID)
	if err != nil {
		return application.Booking{}, err
	}
	return toApplicationBooking(stored), nil
}

func (a *bookingRepositoryAdapter) UpdateBooking(ctx context.Context, booking application.Booking) (application.Booking, error) {
	if err := a.repo.UpdateBooking(ctx, toPersistenceBooking(booking)); err != nil {
		return application.Booking{}, err
	}
	stored, err := a.repo.GetBooking(ctx, booking.ID)
	if err != nil {
		return application.Booking{}, err
	}
	return toApplicationBooking(stored), nil
}

func (a *bookingRepositoryAdapter) GetBooking(ctx context.Context, id string) (application.Booking, error) {
	stored, err := a.repo.GetBooking(ctx, id)
	if err != nil {
		return application.Booking{}, err
	}
	return toApplicationBooking(stored), nil
}

func (a *bookingRepositoryAdapter) ListBookings(ctx context.Context, filter application.BookingRepositoryFilter) ([]application.Booking, error) {
	models, err := a.repo.ListBookings(ctx, persistence.BookingFilter{
		LearnerID: filter.LearnerID,
		MentorID:  filter.MentorID,
		Status:    string(filter.Status),
	})
	if err != nil {
		return nil, err
	}
	if len(models) == 0 {
		return nil, nil
	}
	bookings := make([]application.Booking, 0, len(models))
	for _, model := range models {
		bookings = append(bookings, toApplicationBooking(model))
	}
	return bookings, nil
}

type groupSessionRepositoryAdapter struct {
	repo persistence.GroupSessionRepository
}

func newGroupSessionRepositoryAdapter(repo persistence.GroupSessionRepository) *groupSessionRepositoryAdapter {
	return &groupSessionRepositoryAdapter{repo: repo}
}

func (a *groupSessionRepositoryAdapter) CreateSession(ctx context.Context, session application.GroupSession) (application.GroupSession, error) {
	if err := a.repo.CreateGroupSession(ctx, toPersistenceGroupSession(session)); err != nil {
		return application.GroupSession{}, err
	}
	stored, err := a.repo.GetGroupSession(ctx, session.ID)
	if err != nil {
		return application.GroupSession{}, err
	}
	return toApplicationGroupSession(stored), nil
}

func (a *groupSessionRepositoryAdapter) UpdateSession(ctx context.Context, session application.GroupSession) (application.GroupSession, error) {
	if err := a.repo.UpdateGroupSession(ctx, toPersistenceGroupSession(session)); err != nil {
		return application.GroupSession{}, err
	}
	stored, err := a.repo.GetGroupSession(ctx, session.ID)
	if err != nil {
		return application.GroupSession{}, err
	}
	return toApplicationGroupSession(stored), nil
}

func (a *groupSessionRepositoryAdapter) GetSession(ctx context.Context, id string) (application.GroupSession, error) {
	stored, err := a.repo.GetGroupSession(ctx, id)
	if err != nil {
		return application.GroupSession{}, err
	}
	return toApplicationGroupSession(stored), nil
}

func (a *groupSessionRepositoryAdapter) ListSessions(ctx context.Context, filter application.GroupSessionRepositoryFilter) ([]application.GroupSession, error) {
	models, err := a.repo.ListGroupSessions(ctx)
	if err != nil {
		return nil, err
	}
	sessions := make([]application.GroupSession, 0, len(models))
	for _, model := range models {
		session := toApplicationGroupSession(model)
		if filter.HostMentorID != "" && session.HostMentorID != filter.HostMentorID {
			continue
		}
		if filter.Status != "" && session.Status != filter.Status {
			continue
		}
		sessions = append(sessions, session)
	}
	if len(sessions) == 0 {
		return nil, nil
	}
	return sessions, nil
}

func toApplicationTopic(model persistence.Topic) application.Topic {
	difficulty := application.TopicDifficulty("")
	if model.Difficulty != nil {
		difficulty = application.TopicDifficulty(*model.Difficulty)
	}
	return application.Topic{
		ID:                  model.ID,
		AuthorID:            model.AuthorID,
		AuthorDisplayName:   model.AuthorDisplayName,
		Title:               model.Title,
		Description:         model.Description,
		Category:            application.TopicCategory(model.Category),
		Difficulty:          difficulty,
		Status:              application.TopicStatus(model.Status),
		EnhancedTitle:       cloneString(model.EnhancedTitle),
		EnhancedDescription: cloneString(model.EnhancedDescription),
		CuratorNotes:        cloneString(model.CuratorNotes),
		SubmittedAt:         model.SubmittedAt,
		UpdatedAt:           model.UpdatedAt,
	}
}

func toPersistenceTopic(topic application.Topic) persistence.Topic {
	var difficulty *string
	if topic.Difficulty != "" {
		value := string(topic.Difficulty)
		difficulty = &value
	}
	return persistence.Topic{
		ID:                  topic.ID,
		AuthorID:            topic.AuthorID,
		AuthorDisplayName:   topic.AuthorDisplayName,
		Title:               topic.Title,
		Description:         topic.Description,
		Category:            string(topic.Category),
		Difficulty:          difficulty,
		Status:              string(topic.Status),
		EnhancedTitle:       cloneString(topic.EnhancedTitle),
		EnhancedDescription: cloneString(topic.EnhancedDescription),
		CuratorNotes:        cloneString(topic.CuratorNotes),
		SubmittedAt:         topic.SubmittedAt,
		UpdatedAt:           topic.UpdatedAt,
	}
}

func toApplicationBooking(model persistence.Booking) application.Booking {
	return application.Booking{
		ID:           model.ID,
		LearnerID:    model.LearnerID,
		MentorID:     model.MentorID,
		Topic:        model.Topic,
		Start:        model.Start,
		End:          model.End,
		Status:       application.BookingStatus(model.Status),
		DenialReason: cloneString(model.DenialReason),
		MeetingLink:  cloneString(model.MeetingLink),
		CreatedAt:    model.CreatedAt,
		UpdatedAt:    model.UpdatedAt,
	}
}

func toPersistenceBooking(booking application.Booking) persistence.Booking {
	return persistence.Booking{
		ID:           booking.ID,
		LearnerID:    booking.LearnerID,
		MentorID:     booking.MentorID,
		Topic:        booking.Topic,
		Start:        booking.Start,
		End:          booking.End,
		Status:       string(booking.Status),
		DenialReason: cloneString(booking.DenialReason),
		MeetingLink:  cloneString(booking.MeetingLink),
		CreatedAt:    booking.CreatedAt,
		UpdatedAt:    booking.UpdatedAt,
	}
}

func toApplicationGroupSession(model persistence.GroupSession) application.GroupSession {
	participants := make([]application.Participant, 0, len(model.Participants))
	for _, participant := range model.Participants {
		participants = append(participants, application.Participant{
			ID:          participant.ID,
			DisplayName: participant.DisplayName,
			Role:        application.ParticipantRole(participant.Role),
			Status:      application.ParticipantStatus(participant.Status),
			JoinedAt:    participant.JoinedAt,
		})
	}
	return application.GroupSession{
		ID:              model.ID,
		TopicID:         model.TopicID,
		HostMentorID:    model.HostMentorID,
		Title:           model.Title,
		Description:     model.Description,
		MaxParticipants: model.MaxParticipants,
		Status:          application.SessionStatus(model.Status),
		StartsAt:        model.StartsAt,
		Duration:        time.Duration(model.DurationMinutes) * time.Minute,
		Location:        application.MeetingLocation(model.Location),
		MeetingLink:     cloneString(model.MeetingLink),
		MeetingAddress:  cloneString(model.MeetingAddress),
		Participants:    participants,
		CreatedAt:       model.CreatedAt,
		UpdatedAt:       model.UpdatedAt,
	}
}

func toPersistenceGroupSession(session application.GroupSession) persistence.GroupSession {
	participants := make([]persistence.Participant, 0, len(session.Participants))
	for _, participant := range session.Participants {
		participants = append(participants, persistence.Participant{
			ID:          participant.ID,
			DisplayName: participant.DisplayName,
			Role:        string(participant.Role),
			Status:      string(participant.Status),
			JoinedAt:    participant.JoinedAt,
		})
	}
	return persistence.GroupSession{
		ID:              session.ID,
		TopicID:         session.TopicID,
		HostMentorID:    session.HostMentorID,
		Title:           session.Title,
		Description:     session.Description,
		MaxParticipants: session.MaxParticipants,
		Status:          string(session.Status),
		StartsAt:        session.StartsAt,
		DurationMinutes: int(session.Duration / time.Minute),
		Location:        string(session.Location),
		MeetingLink:     cloneString(session.MeetingLink),
		MeetingAddress:  cloneString(session.MeetingAddress),
		Participants:    participants,
		CreatedAt:       session.CreatedAt,
		UpdatedAt:       session.UpdatedAt,
	}
}

func cloneString(value *string) *string {
	if value == nil {
		return nil
	}
	clone := *value
	return &clone
}
