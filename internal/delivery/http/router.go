package http

import (
	"log/slog"
	"net/http"

	httpSwagger "github.com/swaggo/http-swagger"

	"eventhub/internal/delivery/http/controllers"
	"eventhub/internal/delivery/http/middleware"
	"eventhub/internal/domain"
)

// RouterConfig carries the controllers and cross-cutting dependencies for NewRouter.
type RouterConfig struct {
	Logger         *slog.Logger
	Verifier       domain.TokenVerifier
	AllowedOrigins []string

	RSVP   *controllers.RSVPController
	Ripple *controllers.RippleController
	Health *controllers.HealthController
}

// NewRouter initializes the HTTP router with all application routes and wraps
// it with correlation, access logging and CORS.
func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()
	auth := middleware.RequireAuth(cfg.Verifier, cfg.Logger)
	eventService := middleware.RequireRole(domain.RoleEventService, cfg.Logger)

	// RSVP
	mux.HandleFunc("POST /events/{eventID}/rsvp", auth(cfg.RSVP.Register))
	mux.HandleFunc("DELETE /events/{eventID}/rsvp", auth(cfg.RSVP.Cancel))
	mux.HandleFunc("GET /events/{eventID}/rsvps", auth(cfg.RSVP.ListEventRSVPs))
	mux.HandleFunc("GET /events/{eventID}/availability", cfg.RSVP.Availability)
	mux.HandleFunc("GET /me/rsvps", auth(cfg.RSVP.ListMyRSVPs))

	// Hooks for the event-management service
	mux.HandleFunc("POST /internal/events/{eventID}/updated", auth(eventService(cfg.Ripple.EventUpdated)))
	mux.HandleFunc("POST /internal/events/{eventID}/released", auth(eventService(cfg.Ripple.EventReleased)))

	mux.HandleFunc("GET /healthz", cfg.Health.Healthz)

	// Swagger
	mux.Handle("/swagger/", httpSwagger.WrapHandler)

	var h http.Handler = mux
	h = middleware.CORS(cfg.AllowedOrigins, h)
	h = middleware.LoggingMiddleware(cfg.Logger, h)
	return middleware.Correlation(h)
}
