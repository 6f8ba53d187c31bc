package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	h "eventhub/internal/delivery/http/helpers"
	"eventhub/internal/domain"
)

type contextKey string

const principalKey contextKey = "principal"

// SetPrincipal returns a context carrying the authenticated principal.
func SetPrincipal(ctx context.Context, p domain.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// SetUserID returns a context authenticated as userID with no roles.
func SetUserID(ctx context.Context, userID string) context.Context {
	return SetPrincipal(ctx, domain.Principal{UserID: userID})
}

// PrincipalFromContext returns the authenticated principal, if present.
func PrincipalFromContext(ctx context.Context) (domain.Principal, bool) {
	p, ok := ctx.Value(principalKey).(domain.Principal)
	return p, ok
}

// UserIDFromContext returns the authenticated user ID from the context, if present.
func UserIDFromContext(ctx context.Context) (string, bool) {
	p, ok := PrincipalFromContext(ctx)
	return p.UserID, ok
}

// RequireAuth returns a wrapper that validates the Bearer token and stores the
// principal in the request context. Tokens whose subject is not a UUID are
// rejected like any other invalid token. On failure it responds with 401 and
// does not call next.
func RequireAuth(verifier domain.TokenVerifier, logger *slog.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			token, msg := bearerToken(r)
			if msg != "" {
				h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, msg)
				return
			}
			p, err := verifier.Verify(token)
			if err == nil {
				err = uuid.Validate(p.UserID)
			}
			if err != nil {
				logger.DebugContext(r.Context(), "bearer token rejected", "path", r.URL.Path, "err", err)
				h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "invalid or expired token")
				return
			}

			trace.SpanFromContext(r.Context()).SetAttributes(attribute.String("enduser.id", p.UserID))
			next(w, r.WithContext(SetPrincipal(r.Context(), p)))
		}
	}
}

// RequireRole returns a wrapper that admits only principals granted role. It
// must run inside RequireAuth; a request without a principal gets 401 and one
// lacking the role gets 403.
func RequireRole(role string, logger *slog.Logger) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				h.WriteJSONError(w, http.StatusUnauthorized, h.ErrCodeUnauthorized, "authentication required")
				return
			}
			if !p.HasRole(role) {
				logger.WarnContext(r.Context(), "caller lacks role", "path", r.URL.Path, "user_id", p.UserID, "role", role)
				h.WriteJSONError(w, http.StatusForbidden, h.ErrCodeForbidden, "caller is not allowed to use this endpoint")
				return
			}
			next(w, r)
		}
	}
}

// bearerToken extracts the token from the Authorization header. A non-empty
// msg describes why the header is unusable.
func bearerToken(r *http.Request) (token, msg string) {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return "", "missing authorization header"
	}
	const prefix = "Bearer "
	if !strings.HasPrefix(auth, prefix) {
		return "", "invalid authorization format"
	}
	token = strings.TrimSpace(auth[len(prefix):])
	if token == "" {
		return "", "missing token"
	}
	return token, ""
}
