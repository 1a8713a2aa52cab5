// Package alert fans flagged events out to notification channels.
//
// Dispatch is fire-and-forget from the recorder's perspective: a channel
// failure is logged and counted, never propagated back to the callback.
package alert

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/rsclarke/canaryd/internal/logging"
	"github.com/rsclarke/canaryd/internal/metrics"
)

// DefaultQueueSize bounds the dispatch backlog.
const DefaultQueueSize = 64

// attemptTimeout is an outer bound on a single channel delivery, on top of
// whatever timeout the channel itself applies.
const attemptTimeout = 30 * time.Second

// Alert is the structured payload delivered to every channel.
type Alert struct {
	Token            string  `json:"token"`
	Owner            string  `json:"owner"`
	EventID          int64   `json:"event_id"`
	ReceivedAt       string  `json:"received_at"`
	Method           string  `json:"method"`
	Path             string  `json:"path"`
	RemoteIP         string  `json:"remote_ip"`
	ResolvedHostname *string `json:"resolved_hostname,omitempty"`
	SuspicionReason  string  `json:"suspicion_reason"`
	TokenValid       bool    `json:"token_valid"`
	BodyPreview      string  `json:"body_preview,omitempty"`
}

// Notifier is a single delivery channel. Implementations must bound their
// own network operations; a returned error marks the attempt Failed.
type Notifier interface {
	Name() string
	Notify(ctx context.Context, a *Alert) error
}

// Dispatcher queues alerts and delivers each to all registered channels from
// a background worker. The queue is bounded; when it is full new alerts are
// rejected rather than evicting queued ones.
type Dispatcher struct {
	notifiers []Notifier
	queue     chan *Alert
	logger    *zap.Logger

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

// NewDispatcher creates a Dispatcher with the given queue capacity.
// A non-positive size falls back to DefaultQueueSize.
func NewDispatcher(queueSize int, logger *zap.Logger) *Dispatcher {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Dispatcher{
		queue:  make(chan *Alert, queueSize),
		logger: logger,
		done:   make(chan struct{}),
	}
}

// Register adds a delivery channel. Must be called before Start.
func (d *Dispatcher) Register(n Notifier) {
	d.notifiers = append(d.notifiers, n)
}

// Start launches the background worker.
func (d *Dispatcher) Start() {
	go func() {
		defer close(d.done)
		for a := range d.queue {
			d.dispatch(a)
		}
	}()
}

// Enqueue submits an alert for delivery without blocking. It reports false
// when the queue is full or the dispatcher is closed; the drop is logged and
// counted so it is never silent.
func (d *Dispatcher) Enqueue(a *Alert) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		metrics.AlertsDropped.Inc()
		d.logger.Warn("alert dropped, dispatcher closed",
			logging.Token(a.Token), logging.EventID(a.EventID))
		return false
	}

	select {
	case d.queue <- a:
		return true
	default:
		metrics.AlertsDropped.Inc()
		d.logger.Warn("alert dropped, queue full",
			logging.Token(a.Token), logging.EventID(a.EventID))
		return false
	}
}

// Close stops intake and drains the queue, waiting for in-flight deliveries
// to finish within their own timeouts or until ctx expires.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// dispatch attempts every channel independently and concurrently. Each
// attempt is Pending until it terminates Sent or Failed; both outcomes are
// logged and counted.
func (d *Dispatcher) dispatch(a *Alert) {
	g := new(errgroup.Group)
	for _, n := range d.notifiers {
		g.Go(func() error {
			attemptID := uuid.NewString()
			d.logger.Debug("alert attempt pending",
				logging.Channel(n.Name()),
				logging.Attempt(attemptID),
				logging.Token(a.Token),
				logging.EventID(a.EventID))

			ctx, cancel := context.WithTimeout(context.Background(), attemptTimeout)
			defer cancel()

			if err := n.Notify(ctx, a); err != nil {
				metrics.AlertAttempts.WithLabelValues(n.Name(), metrics.OutcomeFailed).Inc()
				d.logger.Warn("alert attempt failed",
					logging.Channel(n.Name()),
					logging.Attempt(attemptID),
					logging.Token(a.Token),
					logging.EventID(a.EventID),
					zap.Error(err))
				return nil
			}

			metrics.AlertAttempts.WithLabelValues(n.Name(), metrics.OutcomeSent).Inc()
			d.logger.Info("alert sent",
				logging.Channel(n.Name()),
				logging.Attempt(attemptID),
				logging.Token(a.Token),
				logging.EventID(a.EventID))
			return nil
		})
	}
	_ = g.Wait()
}
