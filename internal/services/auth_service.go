package services

import (
	"context"
	"errors"
	"strconv"

	"xupload/internal/config"
	xupload_errors "xupload/pkg/errors"
	"xupload/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
)

// AuthService verifies the access tokens issued by the host application.
type AuthService struct {
	jwtSecret []byte
}

func NewAuthService(cfg config.AuthConfig) *AuthService {
	return &AuthService{jwtSecret: []byte(cfg.JWTSecret)}
}

// AccessClaims carries the caller identity. sub is the numeric user id.
type AccessClaims struct {
	ProfileID int64  `json:"pid,omitempty"`
	SessionID string `json:"sid"`
	jwt.RegisteredClaims
}

// Identity is who is calling and which upload session they are in.
type Identity struct {
	UserID    int64
	ProfileID int64
	SessionID string
}

func (s *AuthService) ParseAccessToken(tokenString string) (Identity, error) {
	if tokenString == "" {
		return Identity{}, xupload_errors.ErrUnauthorized
	}

	parsed, err := jwt.ParseWithClaims(tokenString, &AccessClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, xupload_errors.ErrUnauthorized
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return Identity{}, xupload_errors.ErrUnauthorized
	}

	claims, ok := parsed.Claims.(*AccessClaims)
	if !ok || !parsed.Valid {
		return Identity{}, xupload_errors.ErrUnauthorized
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil || userID <= 0 || claims.SessionID == "" || claims.ProfileID < 0 {
		return Identity{}, xupload_errors.ErrUnauthorized
	}

	return Identity{UserID: userID, ProfileID: claims.ProfileID, SessionID: claims.SessionID}, nil
}

func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, xupload_errors.ErrInvalidInput), errors.Is(err, xupload_errors.ErrValidation):
		return 400
	case errors.Is(err, xupload_errors.ErrUnauthorized):
		return 401
	case errors.Is(err, xupload_errors.ErrNotFound):
		return 404
	case errors.Is(err, xupload_errors.ErrAlreadyExists):
		return 409
	case errors.Is(err, xupload_errors.ErrTooLarge):
		return 413
	default:
		return 500
	}
}

type ctxKey string

var identityKey ctxKey = "identity"

// WithIdentity stores id on ctx and tags the logger with the user id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	ctx = context.WithValue(ctx, identityKey, id)
	return context.WithValue(ctx, logger.UserIdKey, id.UserID)
}

func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := IdentityFromContext(ctx)
	if !ok {
		return 0, false
	}
	return id.UserID, true
}
