package identity

import (
	"errors"
	"strings"
	"time"

	"github.com/dgrijalva/jwt-go"
)

var (
	// ErrInvalidToken is returned when a token cannot be parsed or its
	// signature does not verify.
	ErrInvalidToken = errors.New("identity: invalid token")
	// ErrTokenExpired is returned when a token's validity window has passed.
	ErrTokenExpired = errors.New("identity: token expired")
)

// Claims is the payload the external identity provider signs for each
// principal. The role is deliberately absent: it is always derived
// server-side from the verified email so that callers cannot assign
// themselves privileges.
type Claims struct {
	UserID string `json:"uid"`
	Email  string `json:"email"`
	jwt.StandardClaims
}

// Verifier validates identity tokens and resolves the principal's role.
type Verifier struct {
	secret []byte
	policy Policy
	now    func() time.Time
}

// NewVerifier constructs a token verifier for the given HMAC secret and
// role resolution policy.
func NewVerifier(secret []byte, policy Policy, now func() time.Time) *Verifier {
	if now == nil {
		now = time.Now
	}
	return &Verifier{secret: secret, policy: policy, now: now}
}

// Identity is a verified principal with its derived role.
type Identity struct {
	UserID string
	Email  string
	Role   Role
}

// Verify parses and validates a bearer token and returns the verified
// identity. The signing method is pinned to HMAC to reject algorithm
// substitution.
func (v *Verifier) Verify(token string) (Identity, error) {
	if v == nil || len(v.secret) == 0 {
		return Identity{}, ErrInvalidToken
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, ErrInvalidToken
	}

	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return v.secret, nil
	})
	if err != nil {
		if vErr, ok := err.(*jwt.ValidationError); ok && vErr.Errors&jwt.ValidationErrorExpired != 0 {
			return Identity{}, ErrTokenExpired
		}
		return Identity{}, ErrInvalidToken
	}
	if !parsed.Valid {
		return Identity{}, ErrInvalidToken
	}
	if claims.ExpiresAt > 0 && v.now().Unix() >= claims.ExpiresAt {
		return Identity{}, ErrTokenExpired
	}
	if strings.TrimSpace(claims.UserID) == "" {
		return Identity{}, ErrInvalidToken
	}

	return Identity{
		UserID: claims.UserID,
		Email:  claims.Email,
		Role:   v.policy.Resolve(claims.Email),
	}, nil
}

// Sign issues a token for the given subject. Production tokens come from the
// external identity provider; this helper exists for local development and
// tests.
func Sign(secret []byte, userID, email string, expiresAt time.Time) (string, error) {
	claims := &Claims{
		UserID: userID,
		Email:  email,
		StandardClaims: jwt.StandardClaims{
			Subject: userID,
		},
	}
	if !expiresAt.IsZero() {
		claims.ExpiresAt = expiresAt.Unix()
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}
