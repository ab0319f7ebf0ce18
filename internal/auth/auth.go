// Package auth verifies HS256 bearer tokens and carries the authenticated
// uid through request contexts.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	apperr "github.com/oggyb/ravematch/internal/errors"
)

var (
	ErrMissingToken = errors.New("authorization header required")
	ErrInvalidToken = errors.New("invalid token")
)

// Verifier signs and checks tokens with one shared secret.
type Verifier struct {
	secret []byte
	issuer string
}

// NewVerifier returns nil for an empty secret, which disables auth.
func NewVerifier(secret, issuer string) *Verifier {
	if secret == "" {
		return nil
	}
	return &Verifier{secret: []byte(secret), issuer: issuer}
}

// Sign issues a token for uid valid for ttl.
func (v *Verifier) Sign(uid string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   uid,
		Issuer:    v.issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// Verify parses a raw token or an "Authorization" header value and returns
// the subject.
func (v *Verifier) Verify(header string) (string, error) {
	raw := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(header), "Bearer "))
	if raw == "" {
		return "", ErrMissingToken
	}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	var claims jwt.RegisteredClaims
	token, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}

type ctxKey struct{}

// WithUserID stores the authenticated uid on ctx.
func WithUserID(ctx context.Context, uid string) context.Context {
	return context.WithValue(ctx, ctxKey{}, uid)
}

// UserID returns the authenticated uid, if any.
func UserID(ctx context.Context) (string, bool) {
	uid, ok := ctx.Value(ctxKey{}).(string)
	return uid, ok && uid != ""
}

// CheckActor rejects requests acting on behalf of someone other than the
// authenticated user. Unauthenticated contexts pass (auth disabled).
func CheckActor(ctx context.Context, actorID string) error {
	uid, ok := UserID(ctx)
	if !ok || uid == actorID {
		return nil
	}
	return apperr.PermissionDenied("token subject does not match actor")
}
