package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"eventhub/internal/domain"
)

var tracer = otel.Tracer("eventhub/internal/services")

type rsvpService struct {
	rsvpRepo       domain.RSVPRepository
	eventRepo      domain.EventRepository
	userRepo       domain.UserRepository
	emitter        domain.NotificationEmitter
	logger         *slog.Logger
	ledger         CapacityLedger
	promoter       WaitlistPromoter
	contextTimeout time.Duration
	now            func() time.Time
}

// RSVPOption customizes an RSVPService.
type RSVPOption func(*rsvpService)

// WithClock overrides the time source used for eligibility checks and createdAt.
func WithClock(now func() time.Time) RSVPOption {
	return func(s *rsvpService) { s.now = now }
}

// NewRSVPService creates the admission core on top of the given repositories.
func NewRSVPService(
	rsvpRepo domain.RSVPRepository,
	eventRepo domain.EventRepository,
	userRepo domain.UserRepository,
	emitter domain.NotificationEmitter,
	logger *slog.Logger,
	timeout time.Duration,
	opts ...RSVPOption,
) domain.RSVPService {
	s := &rsvpService{
		rsvpRepo:       rsvpRepo,
		eventRepo:      eventRepo,
		userRepo:       userRepo,
		emitter:        emitter,
		logger:         logger,
		contextTimeout: timeout,
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// withTimeout bounds ctx by d; a non-positive d only adds cancellation.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func (s *rsvpService) Register(ctx context.Context, eventID, userID string) (*domain.RSVP, error) {
	ctx, span := tracer.Start(ctx, "rsvp.Register", trace.WithAttributes(
		attribute.String("event.id", eventID),
		attribute.String("user.id", userID),
	))
	defer span.End()
	ctx, cancel := withTimeout(ctx, s.contextTimeout)
	defer cancel()

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, spanError(span, lookupError("get user", err, domain.ErrUserNotFound))
	}

	var (
		created *domain.RSVP
		event   *domain.Event
	)
	err = runLocked(ctx, s.rsvpRepo, s.logger, eventID, func(ctx context.Context, tx domain.RSVPTx) error {
		ev, err := s.eventRepo.GetByID(ctx, eventID)
		if err != nil {
			return lookupError("get event", err, domain.ErrEventNotFound)
		}

		if _, err := tx.FindByEventAndUser(ctx, eventID, userID); err == nil {
			return domain.ErrAlreadyRegistered
		} else if !errors.Is(err, domain.ErrRSVPNotFound) {
			return fmt.Errorf("find rsvp: %w", err)
		}
		if ev.OrganizerID == userID {
			return domain.ErrSelfRegistration
		}
		now := s.now()
		if ev.Elapsed(now) {
			return domain.ErrEventElapsed
		}
		if !ev.Published {
			return domain.ErrEventUnpublished
		}

		full, err := s.ledger.IsFull(ctx, tx, eventID, ev.Capacity)
		if err != nil {
			return err
		}
		status := domain.RSVPStatusConfirmed
		if full {
			status = domain.RSVPStatusWaitlist
		}
		rsvp := domain.NewRSVP(eventID, userID, status, now)
		if err := tx.Insert(ctx, rsvp); err != nil {
			if errors.Is(err, domain.ErrAlreadyRegistered) {
				return err
			}
			return fmt.Errorf("insert rsvp: %w", err)
		}
		created, event = rsvp, ev
		return nil
	})
	if err != nil {
		return nil, spanError(span, err)
	}

	span.SetAttributes(attribute.String("rsvp.status", string(created.Status)))
	s.logger.InfoContext(ctx, "rsvp admitted", "event_id", eventID, "user_id", userID, "status", created.Status, "rsvp_id", created.ID)
	emitAll(ctx, s.emitter, admissionNotice(user, event, created.Status))
	return created, nil
}

func (s *rsvpService) Cancel(ctx context.Context, eventID, userID string) error {
	ctx, span := tracer.Start(ctx, "rsvp.Cancel", trace.WithAttributes(
		attribute.String("event.id", eventID),
		attribute.String("user.id", userID),
	))
	defer span.End()
	ctx, cancel := withTimeout(ctx, s.contextTimeout)
	defer cancel()

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return spanError(span, lookupError("get user", err, domain.ErrUserNotFound))
	}

	var (
		removed  *domain.RSVP
		promoted *domain.RSVP
		event    *domain.Event
	)
	err = runLocked(ctx, s.rsvpRepo, s.logger, eventID, func(ctx context.Context, tx domain.RSVPTx) error {
		ev, err := s.eventRepo.GetByID(ctx, eventID)
		if err != nil {
			return lookupError("get event", err, domain.ErrEventNotFound)
		}
		rsvp, err := tx.FindByEventAndUser(ctx, eventID, userID)
		if err != nil {
			return lookupError("find rsvp", err, domain.ErrRSVPNotFound)
		}
		if err := tx.Delete(ctx, rsvp.ID); err != nil {
			return lookupError("delete rsvp", err, domain.ErrRSVPNotFound)
		}

		var next *domain.RSVP
		if rsvp.Status == domain.RSVPStatusConfirmed {
			next, err = s.promoter.Promote(ctx, tx, ev)
			if err != nil {
				return err
			}
		}
		removed, promoted, event = rsvp, next, ev
		return nil
	})
	if err != nil {
		return spanError(span, err)
	}

	s.logger.InfoContext(ctx, "rsvp cancelled", "event_id", eventID, "user_id", userID, "status", removed.Status)
	notices := []domain.NotificationRequest{leftNotice(user, event)}
	if promoted != nil {
		span.SetAttributes(attribute.String("rsvp.promoted_user_id", promoted.UserID))
		s.logger.InfoContext(ctx, "waitlist promoted", "event_id", eventID, "user_id", promoted.UserID, "rsvp_id", promoted.ID)
		notices = append(notices, promotedNotice(promoted.UserID, event))
	}
	emitAll(ctx, s.emitter, notices...)
	return nil
}

func (s *rsvpService) ListEventRSVPs(ctx context.Context, eventID string) ([]*domain.RSVP, error) {
	ctx, cancel := withTimeout(ctx, s.contextTimeout)
	defer cancel()

	if _, err := s.eventRepo.GetByID(ctx, eventID); err != nil {
		return nil, lookupError("get event", err, domain.ErrEventNotFound)
	}
	rsvps, err := s.rsvpRepo.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("list event rsvps: %w", err)
	}
	if rsvps == nil {
		rsvps = []*domain.RSVP{}
	}
	return rsvps, nil
}

func (s *rsvpService) ListUserRSVPs(ctx context.Context, userID string) ([]*domain.RSVP, error) {
	ctx, cancel := withTimeout(ctx, s.contextTimeout)
	defer cancel()

	rsvps, err := s.rsvpRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list user rsvps: %w", err)
	}
	if rsvps == nil {
		rsvps = []*domain.RSVP{}
	}
	return rsvps, nil
}

func (s *rsvpService) Availability(ctx context.Context, eventID string) (*domain.Availability, error) {
	ctx, cancel := withTimeout(ctx, s.contextTimeout)
	defer cancel()

	event, err := s.eventRepo.GetByID(ctx, eventID)
	if err != nil {
		return nil, lookupError("get event", err, domain.ErrEventNotFound)
	}
	return s.ledger.Availability(ctx, s.rsvpRepo, event)
}

// runLocked runs fn under the event lock and retries once on ErrConflict.
func runLocked(ctx context.Context, repo domain.RSVPRepository, logger *slog.Logger, eventID string, fn func(context.Context, domain.RSVPTx) error) error {
	err := repo.WithEventLock(ctx, eventID, fn)
	if !errors.Is(err, domain.ErrConflict) {
		return err
	}
	logger.WarnContext(ctx, "rsvp transaction conflict, retrying", "event_id", eventID, "err", err)
	err = repo.WithEventLock(ctx, eventID, fn)
	if errors.Is(err, domain.ErrConflict) {
		return fmt.Errorf("%w: %w", domain.ErrTransient, err)
	}
	return err
}

// lookupError passes the sentinel through untouched and wraps anything else.
func lookupError(op string, err, sentinel error) error {
	if errors.Is(err, sentinel) {
		return sentinel
	}
	return fmt.Errorf("%s: %w", op, err)
}

func spanError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
