// Package notify delivers notification requests produced by the RSVP core.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"eventhub/internal/domain"
	"eventhub/internal/platform/requestctx"
)

type envelope struct {
	ctx context.Context
	req domain.NotificationRequest
}

// Dispatcher is a fire-and-forget domain.NotificationEmitter. Enqueue never
// blocks: requests go to a bounded queue drained by worker goroutines that
// fan out to every sink. Failed or dropped deliveries are logged only.
type Dispatcher struct {
	sinks          []domain.NotificationSink
	queue          chan envelope
	workers        int
	deliverTimeout time.Duration
	logger         *slog.Logger

	mu     sync.RWMutex
	closed bool
}

// DispatcherConfig sizes the dispatcher.
type DispatcherConfig struct {
	QueueSize      int
	Workers        int
	DeliverTimeout time.Duration
}

// NewDispatcher returns a dispatcher for sinks. Call Run to start delivery.
func NewDispatcher(logger *slog.Logger, cfg DispatcherConfig, sinks ...domain.NotificationSink) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.DeliverTimeout <= 0 {
		cfg.DeliverTimeout = 10 * time.Second
	}
	return &Dispatcher{
		sinks:          sinks,
		queue:          make(chan envelope, cfg.QueueSize),
		workers:        cfg.Workers,
		deliverTimeout: cfg.DeliverTimeout,
		logger:         logger,
	}
}

var _ domain.NotificationEmitter = (*Dispatcher)(nil)

// Enqueue queues req for delivery. The request's context values are kept but
// its cancellation is not, so delivery outlives the originating request.
func (d *Dispatcher) Enqueue(ctx context.Context, req domain.NotificationRequest) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.logger.WarnContext(ctx, "notification dropped: dispatcher closed", "type", req.Type, "recipient_id", req.RecipientID)
		return
	}
	select {
	case d.queue <- envelope{ctx: context.WithoutCancel(ctx), req: req}:
	default:
		d.logger.WarnContext(ctx, "notification dropped: queue full", "type", req.Type, "recipient_id", req.RecipientID)
	}
}

// Run delivers queued requests until ctx is done, then stops intake and
// drains what is already queued before returning.
func (d *Dispatcher) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for range d.workers {
		wg.Go(func() {
			for env := range d.queue {
				d.deliver(env)
			}
		})
	}
	<-ctx.Done()
	d.Close()
	wg.Wait()
	return nil
}

// Close stops accepting new requests. Safe to call more than once.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.closed = true
	close(d.queue)
}

func (d *Dispatcher) deliver(env envelope) {
	for _, sink := range d.sinks {
		ctx, cancel := context.WithTimeout(env.ctx, d.deliverTimeout)
		err := sink.Deliver(ctx, env.req)
		cancel()
		if err != nil {
			d.logger.ErrorContext(env.ctx, "notification delivery failed",
				"sink", sink.Name(),
				"type", env.req.Type,
				"recipient_id", env.req.RecipientID,
				"correlation_id", requestctx.CorrelationID(env.ctx),
				"err", err,
			)
		}
	}
}
