package identity

import (
	"errors"
	"testing"
	"time"
)

var tokenSecret = []byte("test-secret")

func TestVerifier(t *testing.T) {
	now := time.Date(2024, time.May, 1, 12, 0, 0, 0, time.UTC)
	verifier := NewVerifier(tokenSecret, DefaultPolicy(), func() time.Time { return now })

	t.Run("verifies a signed token and derives the role", func(t *testing.T) {
		token, err := Sign(tokenSecret, "user-1", "bat@nest.edu.mn", now.Add(time.Hour))
		if err != nil {
			t.Fatalf("failed to sign token: %v", err)
		}

		id, err := verifier.Verify(token)
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if id.UserID != "user-1" {
			t.Fatalf("expected user-1, got %q", id.UserID)
		}
		if id.Role != RoleLearner {
			t.Fatalf("expected learner role, got %q", id.Role)
		}
	})

	t.Run("rejects an expired token", func(t *testing.T) {
		token, err := Sign(tokenSecret, "user-1", "bat@nest.edu.mn", now.Add(-time.Minute))
		if err != nil {
			t.Fatalf("failed to sign token: %v", err)
		}

		if _, err := verifier.Verify(token); !errors.Is(err, ErrTokenExpired) {
			t.Fatalf("expected ErrTokenExpired, got %v", err)
		}
	})

	t.Run("rejects a token signed with a different secret", func(t *testing.T) {
		token, err := Sign([]byte("other-secret"), "user-1", "bat@nest.edu.mn", now.Add(time.Hour))
		if err != nil {
			t.Fatalf("failed to sign token: %v", err)
		}

		if _, err := verifier.Verify(token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("rejects garbage input", func(t *testing.T) {
		if _, err := verifier.Verify("not-a-token"); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken, got %v", err)
		}
		if _, err := verifier.Verify(""); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("rejects a token without a subject", func(t *testing.T) {
		token, err := Sign(tokenSecret, "", "bat@nest.edu.mn", now.Add(time.Hour))
		if err != nil {
			t.Fatalf("failed to sign token: %v", err)
		}

		if _, err := verifier.Verify(token); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("expected ErrInvalidToken, got %v", err)
		}
	})

	t.Run("unmatched email resolves to other", func(t *testing.T) {
		token, err := Sign(tokenSecret, "user-2", "stranger@gmail.com", now.Add(time.Hour))
		if err != nil {
			t.Fatalf("failed to sign token: %v", err)
		}

		id, err := verifier.Verify(token)
		if err != nil {
			t.Fatalf("expected success, got %v", err)
		}
		if id.Role != RoleOther {
			t.Fatalf("expected other role, got %q", id.Role)
		}
	})
}
