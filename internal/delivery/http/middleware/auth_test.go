package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"eventhub/internal/delivery/http/helpers"
	"eventhub/internal/domain"
)

const (
	attendeeID = "3f2a9c1e-5b7d-4e8f-a1b2-c3d4e5f60718"
	serviceID  = "9e8d7c6b-5a49-4382-b1a0-f9e8d7c6b5a4"
)

// tokenTable maps raw bearer tokens to principals.
type tokenTable map[string]domain.Principal

func (t tokenTable) Verify(token string) (domain.Principal, error) {
	p, ok := t[token]
	if !ok {
		return domain.Principal{}, errors.New("signature is invalid")
	}
	return p, nil
}

var tokens = tokenTable{
	"attendee":   {UserID: attendeeID},
	"service":    {UserID: serviceID, Roles: []string{domain.RoleEventService}},
	"not-a-uuid": {UserID: "mallory"},
	"empty-subj": {UserID: ""},
}

func decodeErrorCode(t *testing.T, body io.Reader) string {
	t.Helper()
	var envelope helpers.APIResponse
	require.NoError(t, json.NewDecoder(body).Decode(&envelope))
	require.NotNil(t, envelope.Error)
	return envelope.Error.Code
}

func TestRequireAuth(t *testing.T) {
	tests := []struct {
		name          string
		authHeader    string
		wantStatus    int
		wantPrincipal domain.Principal
		wantDebugLog  bool
	}{
		{
			name:          "attendee token reaches the rsvp handler",
			authHeader:    "Bearer attendee",
			wantStatus:    http.StatusCreated,
			wantPrincipal: domain.Principal{UserID: attendeeID},
		},
		{
			name:          "service token keeps its roles",
			authHeader:    "Bearer service",
			wantStatus:    http.StatusCreated,
			wantPrincipal: domain.Principal{UserID: serviceID, Roles: []string{domain.RoleEventService}},
		},
		{name: "missing authorization header", wantStatus: http.StatusUnauthorized},
		{name: "basic scheme", authHeader: "Basic abc", wantStatus: http.StatusUnauthorized},
		{name: "empty token after Bearer", authHeader: "Bearer ", wantStatus: http.StatusUnauthorized},
		{name: "unknown token", authHeader: "Bearer forged", wantStatus: http.StatusUnauthorized, wantDebugLog: true},
		{name: "subject is not a uuid", authHeader: "Bearer not-a-uuid", wantStatus: http.StatusUnauthorized, wantDebugLog: true},
		{name: "empty subject", authHeader: "Bearer empty-subj", wantStatus: http.StatusUnauthorized, wantDebugLog: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var logs bytes.Buffer
			logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

			var got domain.Principal
			nextCalled := false
			register := func(w http.ResponseWriter, r *http.Request) {
				nextCalled = true
				got, _ = PrincipalFromContext(r.Context())
				w.WriteHeader(http.StatusCreated)
			}

			req := httptest.NewRequest(http.MethodPost, "/events/7b0c2f0e-3a55-4a3e-9a43-6f1c1b3d9e21/rsvp", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rr := httptest.NewRecorder()
			RequireAuth(tokens, logger)(register)(rr, req)

			require.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantStatus == http.StatusCreated, nextCalled)
			if nextCalled {
				assert.Equal(t, tt.wantPrincipal, got)
			} else {
				assert.Equal(t, helpers.ErrCodeUnauthorized, decodeErrorCode(t, rr.Body))
			}
			assert.Equal(t, tt.wantDebugLog, bytes.Contains(logs.Bytes(), []byte("bearer token rejected")))
		})
	}
}

func TestRequireAuth_TagsSpanWithUser(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	ctx, span := tp.Tracer("test").Start(context.Background(), "GET /me/rsvps")

	req := httptest.NewRequest(http.MethodGet, "/me/rsvps", nil).WithContext(ctx)
	req.Header.Set("Authorization", "Bearer attendee")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	RequireAuth(tokens, logger)(func(w http.ResponseWriter, r *http.Request) {})(httptest.NewRecorder(), req)
	span.End()

	ended := rec.Ended()
	require.Len(t, ended, 1)
	assert.Contains(t, ended[0].Attributes(), attribute.String("enduser.id", attendeeID))
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name       string
		principal  *domain.Principal
		wantStatus int
		wantCode   string
	}{
		{
			name:       "event service may release",
			principal:  &domain.Principal{UserID: serviceID, Roles: []string{domain.RoleEventService}},
			wantStatus: http.StatusOK,
		},
		{
			name:       "attendee is forbidden",
			principal:  &domain.Principal{UserID: attendeeID},
			wantStatus: http.StatusForbidden,
			wantCode:   helpers.ErrCodeForbidden,
		},
		{
			name:       "other role is forbidden",
			principal:  &domain.Principal{UserID: attendeeID, Roles: []string{"admin"}},
			wantStatus: http.StatusForbidden,
			wantCode:   helpers.ErrCodeForbidden,
		},
		{
			name:       "unauthenticated request",
			wantStatus: http.StatusUnauthorized,
			wantCode:   helpers.ErrCodeUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			released := false
			release := func(w http.ResponseWriter, r *http.Request) {
				released = true
				w.WriteHeader(http.StatusOK)
			}

			req := httptest.NewRequest(http.MethodPost, "/internal/events/7b0c2f0e-3a55-4a3e-9a43-6f1c1b3d9e21/released", nil)
			if tt.principal != nil {
				req = req.WithContext(SetPrincipal(req.Context(), *tt.principal))
			}
			rr := httptest.NewRecorder()
			RequireRole(domain.RoleEventService, logger)(release)(rr, req)

			require.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantStatus == http.StatusOK, released)
			if tt.wantCode != "" {
				assert.Equal(t, tt.wantCode, decodeErrorCode(t, rr.Body))
			}
		})
	}
}

func TestUserIDFromContext(t *testing.T) {
	_, ok := UserIDFromContext(context.Background())
	assert.False(t, ok)

	id, ok := UserIDFromContext(SetUserID(context.Background(), attendeeID))
	assert.True(t, ok)
	assert.Equal(t, attendeeID, id)
}
