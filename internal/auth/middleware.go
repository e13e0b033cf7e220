package auth

import (
	"context"
	"net/http"
	"strings"
)

// contextKey is an unexported type used for context keys in this package.
// Only this package can create a key of this type, so no other package can
// read or shadow the identity stored under it.
type contextKey string

const identityKey contextKey = "identity"

// Identity is the authenticated caller of a request.
type Identity struct {
	UserID  int64
	TokenID string
}

// Authenticator resolves a raw bearer token into the identity it belongs to.
// service.AuthService implements it; the check includes revocation, which a
// bare signature check cannot do.
type Authenticator interface {
	Authenticate(ctx context.Context, rawToken string) (Identity, error)
}

// RequireAuth rejects requests without a valid token with 401 and stores the
// caller's Identity in the context for the rest.
func RequireAuth(a Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := tokenFromHeader(r)
			if !ok {
				unauthorized(w, "authentication credentials were not provided")
				return
			}

			id, err := a.Authenticate(r.Context(), raw)
			if err != nil {
				unauthorized(w, "invalid or revoked token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// OptionalAuth attaches the Identity when a valid token is present and lets
// the request through anonymously otherwise. Public endpoints use it to
// compute per-viewer flags such as is_favorited.
func OptionalAuth(a Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if raw, ok := tokenFromHeader(r); ok {
				if id, err := a.Authenticate(r.Context(), raw); err == nil {
					r = r.WithContext(WithIdentity(r.Context(), id))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the caller set by RequireAuth or OptionalAuth.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok && id.UserID != 0
}

// UserIDFromContext returns the caller's user id, or 0 and false for an
// anonymous request.
func UserIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := IdentityFromContext(ctx)
	return id.UserID, ok
}

// tokenFromHeader reads "Authorization: Token <jwt>". "Bearer" is accepted
// as well for clients that only know the OAuth2 scheme name.
func tokenFromHeader(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found {
		return "", false
	}
	if !strings.EqualFold(scheme, "Token") && !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Token")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"unauthorized","message":"` + message + `"}`))
}
