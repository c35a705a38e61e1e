package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"sociable/internal/httputil"
	"sociable/internal/service"
)

// AuthUser is the authenticated caller attached to the request context.
type AuthUser struct {
	ID      uuid.UUID
	IsStaff bool
}

// Viewer converts the auth user to the service-layer viewer shape.
func (u *AuthUser) Viewer() service.Viewer {
	return service.Viewer{ID: u.ID, IsStaff: u.IsStaff}
}

type contextKey string

const userKey contextKey = "auth_user"

// UserFromContext returns the authenticated caller, if any.
func UserFromContext(ctx context.Context) (*AuthUser, bool) {
	user, ok := ctx.Value(userKey).(*AuthUser)
	return user, ok
}

// WithUser returns a context carrying the given auth user. Used by tests.
func WithUser(ctx context.Context, user *AuthUser) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// Auth authenticates requests by their Bearer access token.
type Auth struct {
	auth *service.AuthService
}

func NewAuth(auth *service.AuthService) *Auth {
	return &Auth{auth: auth}
}

// Required rejects requests without a valid access token.
func (a *Auth) Required(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := a.resolve(r)
		if !ok {
			httputil.WriteUnauthorized(w, "Authentication credentials were not provided or are invalid")
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// Optional attaches the caller when a valid token is present and lets the
// request through anonymously otherwise.
func (a *Auth) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if user, ok := a.resolve(r); ok {
			r = r.WithContext(WithUser(r.Context(), user))
		}
		next.ServeHTTP(w, r)
	})
}

func (a *Auth) resolve(r *http.Request) (*AuthUser, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, false
	}

	raw, found := strings.CutPrefix(header, "Bearer ")
	if !found || raw == "" {
		return nil, false
	}

	claims, err := a.auth.ParseAccessToken(raw)
	if err != nil {
		return nil, false
	}

	id, err := uuid.Parse(claims.UserID)
	if err != nil {
		return nil, false
	}

	return &AuthUser{ID: id, IsStaff: claims.IsStaff}, true
}
