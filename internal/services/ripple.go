package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"eventhub/internal/domain"
)

type eventRippleService struct {
	rsvpRepo       domain.RSVPRepository
	eventRepo      domain.EventRepository
	emitter        domain.NotificationEmitter
	logger         *slog.Logger
	contextTimeout time.Duration
}

// NewEventRippleService creates the service the event-management side calls
// after it updates an event or before it removes one.
func NewEventRippleService(
	rsvpRepo domain.RSVPRepository,
	eventRepo domain.EventRepository,
	emitter domain.NotificationEmitter,
	logger *slog.Logger,
	timeout time.Duration,
) domain.EventRippleService {
	return &eventRippleService{
		rsvpRepo:       rsvpRepo,
		eventRepo:      eventRepo,
		emitter:        emitter,
		logger:         logger,
		contextTimeout: timeout,
	}
}

// NotifyEventUpdated sends one EVENT_UPDATE per registrant, confirmed and
// waitlisted alike. It returns the number of notifications emitted.
func (s *eventRippleService) NotifyEventUpdated(ctx context.Context, eventID string) (int, error) {
	ctx, span := tracer.Start(ctx, "ripple.NotifyEventUpdated", trace.WithAttributes(attribute.String("event.id", eventID)))
	defer span.End()
	ctx, cancel := withTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return 0, spanError(span, lookupError("get event", err, domain.ErrEventNotFound))
	}
	rsvps, err := s.rsvpRepo.ListByEvent(ctx, eventID)
	if err != nil {
		return 0, spanError(span, fmt.Errorf("list event rsvps: %w", err))
	}

	notices := make([]domain.NotificationRequest, 0, len(rsvps))
	for _, r := range rsvps {
		notices = append(notices, updatedNotice(r.UserID, event))
	}
	emitAll(ctx, s.emitter, notices...)
	s.logger.InfoContext(ctx, "event update rippled", "event_id", eventID, "recipients", len(notices))
	return len(notices), nil
}

// ReleaseEvent purges every RSVP of an event that is about to be removed.
// Registrants are snapshotted under the event lock before the purge and are
// notified with EVENT_CANCELLED once the purge commits. No promotion runs.
func (s *eventRippleService) ReleaseEvent(ctx context.Context, eventID string) (int, error) {
	ctx, span := tracer.Start(ctx, "ripple.ReleaseEvent", trace.WithAttributes(attribute.String("event.id", eventID)))
	defer span.End()
	ctx, cancel := withTimeout(ctx, s.contextTimeout)
	defer cancel()

	var (
		event    *domain.Event
		released []*domain.RSVP
	)
	err := runLocked(ctx, s.rsvpRepo, s.logger, eventID, func(ctx context.Context, tx domain.RSVPTx) error {
		ev, err := s.eventRepo.GetByID(ctx, eventID)
		if err != nil {
			return lookupError("get event", err, domain.ErrEventNotFound)
		}
		rsvps, err := tx.ListByEvent(ctx, eventID)
		if err != nil {
			return fmt.Errorf("list event rsvps: %w", err)
		}
		if _, err := tx.DeleteByEvent(ctx, eventID); err != nil {
			return fmt.Errorf("purge event rsvps: %w", err)
		}
		event, released = ev, rsvps
		return nil
	})
	if err != nil {
		return 0, spanError(span, err)
	}

	notices := make([]domain.NotificationRequest, 0, len(released))
	for _, r := range released {
		notices = append(notices, cancelledNotice(r.UserID, event))
	}
	emitAll(ctx, s.emitter, notices...)
	s.logger.InfoContext(ctx, "event released", "event_id", eventID, "rsvps_purged", len(released))
	return len(released), nil
}
