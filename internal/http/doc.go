// Package http exposes the marketplace API over HTTP.
//
// Endpoints:
//
//	GET    /healthz                                   liveness check
//	GET    /topics                                    list topics ranked by vote score (public)
//	POST   /topics                                    submit a topic
//	PUT    /topics/{topicID}                          edit an owned topic
//	POST   /topics/{topicID}/votes                    cast or switch a vote
//	DELETE /topics/{topicID}/votes                    retract a vote
//	PUT    /topics/{topicID}/status                   curate a topic (mentors)
//	GET    /mentors/{mentorID}/availability           read a mentor's weekly grid (public)
//	POST   /mentors/{mentorID}/availability/toggle    flip one of the caller's own slots
//	POST   /mentors/{mentorID}/availability/flush     force pending slot writes
//	POST   /bookings                                  request a one-on-one session
//	GET    /bookings                                  list the caller's bookings
//	GET    /bookings/{bookingID}                      fetch a booking (parties only)
//	POST   /bookings/{bookingID}/approve              approve (addressed mentor)
//	POST   /bookings/{bookingID}/deny                 deny with an optional reason
//	POST   /bookings/{bookingID}/cancel               cancel (either party)
//	POST   /bookings/{bookingID}/complete             mark finished after its end
//	POST   /sessions                                  promote a topic into a session
//	GET    /sessions                                  list sessions
//	GET    /sessions/{sessionID}                      fetch a session
//	PUT    /sessions/{sessionID}                      edit a session (host)
//	DELETE /sessions/{sessionID}                      cancel a session (host)
//	POST   /sessions/{sessionID}/join                 join or enter the waitlist
//	POST   /sessions/{sessionID}/leave                leave and promote the waitlist
//	PUT    /sessions/{sessionID}/status               advance the lifecycle (host)
//
// Mutating endpoints require a bearer token. The caller's role is derived
// from the verified email domain, never from the request.
package http
