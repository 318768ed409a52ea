package middleware

import (
	"context"
	"net/http"
	"strings"

	apperrors "prepchat/pkg/errors"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const identityKey contextKey = "identity"

// Identity is the verified caller handed to this core by the auth system.
// Role is carried but not consulted for ownership checks.
type Identity struct {
	UserID string
	Role   string
}

// IdentityFrom pulls the verified caller out of a request context populated
// by AuthMiddleware.
func IdentityFrom(ctx context.Context) (Identity, error) {
	id, ok := ctx.Value(identityKey).(Identity)
	if !ok || id.UserID == "" {
		return Identity{}, apperrors.ErrNotAuthenticated
	}
	return id, nil
}

// WithIdentity injects a caller identity directly. Used by tests and by the
// websocket handshake once the token is verified.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// AuthMiddleware verifies the HS256 bearer token minted by the auth system
// and stores the (userId, role) pair on the request context. Token issuance
// happens elsewhere; this core only verifies.
func AuthMiddleware(secret string, next func(w http.ResponseWriter, r *http.Request)) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		identity, err := VerifyBearer(secret, r.Header.Get("Authorization"))
		if err != nil {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		next(w, r.WithContext(WithIdentity(r.Context(), identity)))
	}
}

// VerifyBearer checks an "Authorization: Bearer <token>" value and extracts
// the caller identity from the sub/role claims.
func VerifyBearer(secret, header string) (Identity, error) {
	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || raw == "" {
		return Identity{}, apperrors.ErrNotAuthenticated
	}

	token, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperrors.ErrNotAuthenticated
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return Identity{}, apperrors.ErrNotAuthenticated
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, apperrors.ErrNotAuthenticated
	}
	userID, _ := claims["sub"].(string)
	if userID == "" {
		return Identity{}, apperrors.ErrNotAuthenticated
	}
	role, _ := claims["role"].(string)

	return Identity{UserID: userID, Role: role}, nil
}
