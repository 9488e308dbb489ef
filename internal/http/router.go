package http

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
)

// RouterConfig bundles the handlers and middleware the router wires together.
type RouterConfig struct {
	Topics        *TopicHandler
	Availability  *AvailabilityHandler
	Bookings      *BookingHandler
	GroupSessions *GroupSessionHandler
	Verifier      TokenVerifier
	Logger        *slog.Logger
	// Middlewares are applied outermost first, before authentication.
	Middlewares []func(http.Handler) http.Handler
}

// NewRouter builds the API router. Topic and availability reads are public;
// everything else sits behind token verification.
func NewRouter(cfg RouterConfig) http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}).Methods(http.MethodGet)

	router.HandleFunc("/topics", cfg.Topics.List).Methods(http.MethodGet)
	router.HandleFunc("/mentors/{mentorID}/availability", cfg.Availability.List).Methods(http.MethodGet)

	api := router.NewRoute().Subrouter()
	api.Use(mux.MiddlewareFunc(RequireIdentity(cfg.Verifier, cfg.Logger)))

	api.HandleFunc("/topics", cfg.Topics.Submit).Methods(http.MethodPost)
	api.HandleFunc("/topics/{topicID}", cfg.Topics.Edit).Methods(http.MethodPut)
	api.HandleFunc("/topics/{topicID}/votes", cfg.Topics.Vote).Methods(http.MethodPost)
	api.HandleFunc("/topics/{topicID}/votes", cfg.Topics.Unvote).Methods(http.MethodDelete)
	api.HandleFunc("/topics/{topicID}/status", cfg.Topics.Transition).Methods(http.MethodPut)

	api.HandleFunc("/mentors/{mentorID}/availability/toggle", cfg.Availability.Toggle).Methods(http.MethodPost)
	api.HandleFunc("/mentors/{mentorID}/availability/flush", cfg.Availability.Flush).Methods(http.MethodPost)

	api.HandleFunc("/bookings", cfg.Bookings.Create).Methods(http.MethodPost)
	api.HandleFunc("/bookings", cfg.Bookings.List).Methods(http.MethodGet)
	api.HandleFunc("/bookings/{bookingID}", cfg.Bookings.Get).Methods(http.MethodGet)
	api.HandleFunc("/bookings/{bookingID}/approve", cfg.Bookings.Approve).Methods(http.MethodPost)
	api.HandleFunc("/bookings/{bookingID}/deny", cfg.Bookings.Deny).Methods(http.MethodPost)
	api.HandleFunc("/bookings/{bookingID}/cancel", cfg.Bookings.Cancel).Methods(http.MethodPost)
	api.HandleFunc("/bookings/{bookingID}/complete", cfg.Bookings.Complete).Methods(http.MethodPost)

	api.HandleFunc("/sessions", cfg.GroupSessions.Create).Methods(http.MethodPost)
	api.HandleFunc("/sessions", cfg.GroupSessions.List).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{sessionID}", cfg.GroupSessions.Get).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{sessionID}", cfg.GroupSessions.Edit).Methods(http.MethodPut)
	api.HandleFunc("/sessions/{sessionID}", cfg.GroupSessions.Cancel).Methods(http.MethodDelete)
	api.HandleFunc("/sessions/{sessionID}/join", cfg.GroupSessions.Join).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{sessionID}/leave", cfg.GroupSessions.Leave).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{sessionID}/status", cfg.GroupSessions.Transition).Methods(http.MethodPut)

	var handler http.Handler = router
	handler = RequestLogger(cfg.Logger)(handler)
	for i := len(cfg.Middlewares) - 1; i >= 0; i-- {
		handler = cfg.Middlewares[i](handler)
	}
	return handler
}
