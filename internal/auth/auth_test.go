package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	apperr "github.com/oggyb/ravematch/internal/errors"
)

func TestNewVerifierDisabledWithoutSecret(t *testing.T) {
	assert.Nil(t, NewVerifier("", "ravematch"))
}

func TestSignAndVerify(t *testing.T) {
	v := NewVerifier("secret", "ravematch")
	token, err := v.Sign("user1", time.Hour)
	require.NoError(t, err)

	uid, err := v.Verify("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, "user1", uid)

	uid, err = v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user1", uid)
}

func TestVerifyRejects(t *testing.T) {
	v := NewVerifier("secret", "ravematch")

	_, err := v.Verify("")
	assert.ErrorIs(t, err, ErrMissingToken)

	other, err := NewVerifier("other-secret", "ravematch").Sign("user1", time.Hour)
	require.NoError(t, err)
	_, err = v.Verify(other)
	assert.ErrorIs(t, err, ErrInvalidToken)

	wrongIssuer, err := NewVerifier("secret", "someone-else").Sign("user1", time.Hour)
	require.NoError(t, err)
	_, err = v.Verify(wrongIssuer)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired, err := v.Sign("user1", -time.Minute)
	require.NoError(t, err)
	_, err = v.Verify(expired)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestCheckActor(t *testing.T) {
	ctx := context.Background()
	assert.NoError(t, CheckActor(ctx, "anyone"))

	ctx = WithUserID(ctx, "user1")
	assert.NoError(t, CheckActor(ctx, "user1"))
	err := CheckActor(ctx, "user2")
	assert.True(t, apperr.IsCode(err, apperr.CodePermissionDenied))
}

func TestUnaryInterceptor(t *testing.T) {
	v := NewVerifier("secret", "")
	token, err := v.Sign("user1", time.Hour)
	require.NoError(t, err)

	var seen string
	handler := func(ctx context.Context, _ any) (any, error) {
		seen, _ = UserID(ctx)
		return "ok", nil
	}
	info := &grpc.UnaryServerInfo{FullMethod: "/ravematch.swipe.v1.SwipeService/GetProfile"}
	intercept := UnaryInterceptor(v)

	_, err = intercept(context.Background(), nil, info, handler)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer "+token))
	_, err = intercept(ctx, nil, info, handler)
	require.NoError(t, err)
	assert.Equal(t, "user1", seen)

	public := &grpc.UnaryServerInfo{FullMethod: "/grpc.health.v1.Health/Check"}
	_, err = intercept(context.Background(), nil, public, handler)
	assert.NoError(t, err)

	_, err = UnaryInterceptor(nil)(context.Background(), nil, info, handler)
	assert.NoError(t, err)
}

func TestMiddleware(t *testing.T) {
	v := NewVerifier("secret", "")
	token, err := v.Sign("user1", time.Hour)
	require.NoError(t, err)

	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	h := Middleware(v, "/health")(next)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/users/user1/profile", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "UNAUTHENTICATED")

	req := httptest.NewRequest(http.MethodGet, "/v1/users/user1/profile", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "user1", seen)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
