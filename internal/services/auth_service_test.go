package services

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xupload/internal/config"
	xupload_errors "xupload/pkg/errors"
	"xupload/pkg/logger"
)

// signToken mints a token the way the host application does.
func signToken(t *testing.T, secret string, id Identity, ttl time.Duration) string {
	t.Helper()
	now := time.Now()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessClaims{
		ProfileID: id.ProfileID,
		SessionID: id.SessionID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(id.UserID, 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestAccessTokenRoundTrip(t *testing.T) {
	svc := NewAuthService(config.AuthConfig{JWTSecret: "secret"})
	want := Identity{UserID: 7, ProfileID: 3, SessionID: "sess-1"}

	token := signToken(t, "secret", want, time.Minute)

	got, err := svc.ParseAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestParseAccessToken_Rejects(t *testing.T) {
	svc := NewAuthService(config.AuthConfig{JWTSecret: "secret"})

	foreign := signToken(t, "other", Identity{UserID: 7, SessionID: "s"}, time.Minute)
	expired := signToken(t, "secret", Identity{UserID: 7, SessionID: "s"}, -time.Minute)
	noSession := signToken(t, "secret", Identity{UserID: 7}, time.Minute)
	badSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, AccessClaims{
		SessionID:        "s",
		RegisteredClaims: jwt.RegisteredClaims{Subject: "alice"},
	}).SignedString([]byte("secret"))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"empty":       "",
		"garbage":     "not.a.token",
		"foreign":     foreign,
		"expired":     expired,
		"no session":  noSession,
		"bad subject": badSubject,
	} {
		_, err := svc.ParseAccessToken(token)
		assert.ErrorIs(t, err, xupload_errors.ErrUnauthorized, name)
	}
}

func TestIdentityContext(t *testing.T) {
	_, ok := IdentityFromContext(context.Background())
	assert.False(t, ok)

	ctx := WithIdentity(context.Background(), Identity{UserID: 7, SessionID: "s"})
	id, ok := IdentityFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, int64(7), id.UserID)

	userID, ok := UserIDFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, int64(7), userID)
	assert.Equal(t, int64(7), ctx.Value(logger.UserIdKey))
}

func TestHTTPStatus(t *testing.T) {
	assert.Equal(t, 401, HTTPStatus(xupload_errors.ErrUnauthorized))
	assert.Equal(t, 400, HTTPStatus(&ValidationError{}))
	assert.Equal(t, 500, HTTPStatus(xupload_errors.ErrFilesystem))
}
