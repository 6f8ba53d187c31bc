package http

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventhub/internal/adapters/auth"
	"eventhub/internal/delivery/http/controllers"
	"eventhub/internal/delivery/http/middleware"
	"eventhub/internal/domain"
	"eventhub/internal/repository/memory"
	"eventhub/internal/services"
)

const (
	eventID   = "7b0c2f0e-3a55-4a3e-9a43-6f1c1b3d9e21"
	userID    = "3f2a9c1e-5b7d-4e8f-a1b2-c3d4e5f60718"
	serviceID = "9e8d7c6b-5a49-4382-b1a0-f9e8d7c6b5a4"
)

type stubVerifier struct{}

func (stubVerifier) Verify(token string) (domain.Principal, error) {
	switch token {
	case "good":
		return domain.Principal{UserID: userID}, nil
	case "service":
		return domain.Principal{UserID: serviceID, Roles: []string{domain.RoleEventService}}, nil
	}
	return domain.Principal{}, errors.New("bad token")
}

type stubRSVPService struct{ lastUser string }

func (s *stubRSVPService) Register(_ context.Context, eventID, userID string) (*domain.RSVP, error) {
	s.lastUser = userID
	return &domain.RSVP{ID: 1, EventID: eventID, UserID: userID, Status: domain.RSVPStatusConfirmed}, nil
}
func (s *stubRSVPService) Cancel(context.Context, string, string) error { return nil }
func (s *stubRSVPService) ListEventRSVPs(context.Context, string) ([]*domain.RSVP, error) {
	return nil, nil
}
func (s *stubRSVPService) ListUserRSVPs(context.Context, string) ([]*domain.RSVP, error) {
	return nil, nil
}
func (s *stubRSVPService) Availability(_ context.Context, eventID string) (*domain.Availability, error) {
	return &domain.Availability{EventID: eventID, Capacity: 1}, nil
}

type stubRipple struct{ calls int }

func (s *stubRipple) NotifyEventUpdated(context.Context, string) (int, error) {
	s.calls++
	return 0, nil
}

func (s *stubRipple) ReleaseEvent(context.Context, string) (int, error) {
	s.calls++
	return 0, nil
}

func newTestRouter(svc *stubRSVPService, ripple *stubRipple) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRouter(RouterConfig{
		Logger:         logger,
		Verifier:       stubVerifier{},
		AllowedOrigins: []string{"https://app.example"},
		RSVP:           controllers.NewRSVPController(logger, svc),
		Ripple:         controllers.NewRippleController(logger, ripple),
		Health:         controllers.NewHealthController(logger, nil),
	})
}

func TestRouter(t *testing.T) {
	tests := []struct {
		name       string
		method     string
		path       string
		token      string
		wantStatus int
		wantRipple bool
	}{
		{"register", http.MethodPost, "/events/" + eventID + "/rsvp", "good", http.StatusCreated, false},
		{"register without token", http.MethodPost, "/events/" + eventID + "/rsvp", "", http.StatusUnauthorized, false},
		{"register with bad token", http.MethodPost, "/events/" + eventID + "/rsvp", "nope", http.StatusUnauthorized, false},
		{"cancel", http.MethodDelete, "/events/" + eventID + "/rsvp", "good", http.StatusNoContent, false},
		{"list event rsvps", http.MethodGet, "/events/" + eventID + "/rsvps", "good", http.StatusOK, false},
		{"availability is public", http.MethodGet, "/events/" + eventID + "/availability", "", http.StatusOK, false},
		{"my rsvps", http.MethodGet, "/me/rsvps", "good", http.StatusOK, false},
		{"updated hook", http.MethodPost, "/internal/events/" + eventID + "/updated", "service", http.StatusOK, true},
		{"updated hook rejects attendee", http.MethodPost, "/internal/events/" + eventID + "/updated", "good", http.StatusForbidden, false},
		{"released hook", http.MethodPost, "/internal/events/" + eventID + "/released", "service", http.StatusOK, true},
		{"released hook rejects attendee", http.MethodPost, "/internal/events/" + eventID + "/released", "good", http.StatusForbidden, false},
		{"released hook requires auth", http.MethodPost, "/internal/events/" + eventID + "/released", "", http.StatusUnauthorized, false},
		{"healthz", http.MethodGet, "/healthz", "", http.StatusOK, false},
		{"wrong method", http.MethodPut, "/events/" + eventID + "/rsvp", "good", http.StatusMethodNotAllowed, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, ripple := &stubRSVPService{}, &stubRipple{}
			req := httptest.NewRequest(tt.method, tt.path, nil)
			if tt.token != "" {
				req.Header.Set("Authorization", "Bearer "+tt.token)
			}
			rr := httptest.NewRecorder()
			newTestRouter(svc, ripple).ServeHTTP(rr, req)

			require.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantRipple, ripple.calls == 1)
			assert.NotEmpty(t, rr.Header().Get(middleware.CorrelationHeader))
			if tt.name == "register" {
				assert.Equal(t, userID, svc.lastUser)
			}
		})
	}
}

func TestRouter_Preflight(t *testing.T) {
	req := httptest.NewRequest(http.MethodOptions, "/events/"+eventID+"/rsvp", nil)
	req.Header.Set("Origin", "https://app.example")
	rr := httptest.NewRecorder()
	newTestRouter(&stubRSVPService{}, &stubRipple{}).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Equal(t, "https://app.example", rr.Header().Get("Access-Control-Allow-Origin"))
}

type discardEmitter struct{}

func (discardEmitter) Enqueue(context.Context, domain.NotificationRequest) {}

func TestRouter_ReleaseHookOnlyForEventService(t *testing.T) {
	const (
		organizerID = "0b6f5a3c-1d2e-4f70-8a9b-0c1d2e3f4a5b"
		strangerID  = "c1d2e3f4-a5b6-4c7d-8e9f-0a1b2c3d4e5f"
	)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rsvps := memory.NewRSVPStore()
	events := memory.NewEventStore(&domain.Event{
		ID:          eventID,
		Title:       "Go Meetup",
		Capacity:    10,
		EventDate:   time.Now().Add(48 * time.Hour),
		Published:   true,
		OrganizerID: organizerID,
	})
	users := memory.NewUserStore(
		&domain.User{ID: userID, Email: "alice@example.com"},
		&domain.User{ID: strangerID, Email: "mallory@example.com"},
	)
	jwt := auth.NewJWT("router-secret")
	router := NewRouter(RouterConfig{
		Logger:   logger,
		Verifier: jwt,
		RSVP: controllers.NewRSVPController(logger,
			services.NewRSVPService(rsvps, events, users, discardEmitter{}, logger, time.Second)),
		Ripple: controllers.NewRippleController(logger,
			services.NewEventRippleService(rsvps, events, discardEmitter{}, logger, time.Second)),
		Health: controllers.NewHealthController(logger, nil),
	})

	issue := func(subject string, roles ...string) string {
		tok, err := jwt.Issue(subject, "", time.Hour, roles...)
		require.NoError(t, err)
		return tok
	}
	do := func(method, path, token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, req)
		return rr
	}
	remaining := func() int {
		list, err := rsvps.ListByEvent(context.Background(), eventID)
		require.NoError(t, err)
		return len(list)
	}

	require.Equal(t, http.StatusCreated, do(http.MethodPost, "/events/"+eventID+"/rsvp", issue(userID)).Code)

	for _, tok := range []string{issue(strangerID), issue(organizerID), issue(userID, "admin")} {
		rr := do(http.MethodPost, "/internal/events/"+eventID+"/released", tok)
		assert.Equal(t, http.StatusForbidden, rr.Code)
		assert.Equal(t, 1, remaining())
	}
	assert.Equal(t, http.StatusForbidden, do(http.MethodPost, "/internal/events/"+eventID+"/updated", issue(strangerID)).Code)

	rr := do(http.MethodPost, "/internal/events/"+eventID+"/released", issue(serviceID, domain.RoleEventService))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"data":{"event_id":"`+eventID+`","affected":1},"error":null}`, rr.Body.String())
	assert.Equal(t, 0, remaining())
}

func TestRouter_NonUUIDSubjectIsUnauthorized(t *testing.T) {
	jwt := auth.NewJWT("router-secret")
	tok, err := jwt.Issue("mallory", "", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/me/rsvps", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rr := httptest.NewRecorder()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	NewRouter(RouterConfig{
		Logger:   logger,
		Verifier: jwt,
		RSVP:     controllers.NewRSVPController(logger, &stubRSVPService{}),
		Ripple:   controllers.NewRippleController(logger, &stubRipple{}),
		Health:   controllers.NewHealthController(logger, nil),
	}).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}
