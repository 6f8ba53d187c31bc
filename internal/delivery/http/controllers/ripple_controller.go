package controllers

import (
	"log/slog"
	"net/http"

	"eventhub/internal/delivery/http/helpers"
	"eventhub/internal/domain"
)

// RippleController exposes the hooks the event-management service calls when
// an event changes or is about to be removed. The router admits only tokens
// carrying domain.RoleEventService.
type RippleController struct {
	Logger  *slog.Logger
	Service domain.EventRippleService
}

func NewRippleController(logger *slog.Logger, svc domain.EventRippleService) *RippleController {
	return &RippleController{
		Logger:  logger,
		Service: svc,
	}
}

// RippleResult reports how many registrants an event-level change touched.
type RippleResult struct {
	EventID  string `json:"event_id"`
	Affected int    `json:"affected"`
}

// RippleSuccessResponse is the success response envelope for the internal event hooks (200).
type RippleSuccessResponse struct {
	Data  RippleResult      `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// EventUpdated godoc
// @Summary Notify registrants that an event changed
// @Description Sends an EVENT_UPDATE notification to every confirmed and waitlisted registrant.
// @Tags internal
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.RippleSuccessResponse "data.affected is the number of notifications queued"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (token lacks the event-service role)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /internal/events/{eventID}/updated [post]
func (c *RippleController) EventUpdated(w http.ResponseWriter, r *http.Request) {
	eventID, ok := eventIDParam(w, r)
	if !ok {
		return
	}
	n, err := c.Service.NotifyEventUpdated(r.Context(), eventID)
	if err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, RippleResult{EventID: eventID, Affected: n})
}

// EventReleased godoc
// @Summary Release all RSVPs of an event being removed
// @Description Deletes every RSVP of the event and sends EVENT_CANCELLED to each former registrant. No waitlist promotion happens.
// @Tags internal
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.RippleSuccessResponse "data.affected is the number of RSVPs removed"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (token lacks the event-service role)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 503 {object} helpers.APIResponse "error.code: unavailable"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /internal/events/{eventID}/released [post]
func (c *RippleController) EventReleased(w http.ResponseWriter, r *http.Request) {
	eventID, ok := eventIDParam(w, r)
	if !ok {
		return
	}
	n, err := c.Service.ReleaseEvent(r.Context(), eventID)
	if err != nil {
		writeServiceError(w, r, c.Logger, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, RippleResult{EventID: eventID, Affected: n})
}
