package http

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/evymii/pineder-sub001/internal/application"
	"github.com/evymii/pineder-sub001/internal/identity"
	"github.com/evymii/pineder-sub001/internal/logging"
)

// TokenVerifier validates a bearer token and resolves the caller's identity.
type TokenVerifier interface {
	Verify(token string) (identity.Identity, error)
}

// RequireIdentity verifies the bearer token on each request and injects the
// resulting principal into the request context. The role always comes from
// the verified email, never from anything the client sent.
func RequireIdentity(verifier TokenVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	responder := newResponder(logger)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractBearerToken(r)
			if token == "" {
				responder.writeError(r.Context(), w, http.StatusUnauthorized, errMissingToken)
				return
			}

			verified, err := verifier.Verify(token)
			if err != nil {
				switch {
				case errors.Is(err, identity.ErrTokenExpired):
					responder.writeJSON(r.Context(), w, http.StatusUnauthorized, errorResponse{Message: "Your session has expired. Please sign in again."})
				case errors.Is(err, identity.ErrInvalidToken):
					responder.writeJSON(r.Context(), w, http.StatusUnauthorized, errorResponse{Message: "The authentication token is invalid."})
				default:
					responder.writeJSON(r.Context(), w, http.StatusInternalServerError, errorResponse{Message: "Token verification failed."})
				}
				return
			}

			principal := application.Principal{
				UserID:      verified.UserID,
				Email:       verified.Email,
				DisplayName: displayNameFromEmail(verified.Email),
				Role:        verified.Role,
			}
			ctx := ContextWithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestLogger attaches a request scoped logger to the context and logs the
// request lifecycle.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	if base == nil {
		base = slog.Default()
	}
	var counter atomic.Uint64

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := counter.Add(1)
			logger := base.With(
				"request_id", id,
				"method", r.Method,
				"path", r.URL.Path,
			)

			ctx := logging.ContextWithLogger(r.Context(), logger)
			start := time.Now()
			logger.InfoContext(ctx, "request started")
			next.ServeHTTP(w, r.WithContext(ctx))
			logger.InfoContext(ctx, "request completed", "duration", time.Since(start))
		})
	}
}

func extractBearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return ""
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, prefix))
}

func displayNameFromEmail(email string) string {
	at := strings.Index(email, "@")
	if at <= 0 {
		return email
	}
	return email[:at]
}
