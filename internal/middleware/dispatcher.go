package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"TradeDash/internal/domain/models"
	domrepo "TradeDash/internal/domain/repository"
)

// Dispatcher is the middleware between envelope production and subscriber
// fan-out. It validates at the boundary, buffers on a bounded queue, and
// drains from a single goroutine so delivery keeps publication order while
// producers never wait on slow subscribers. A full queue drops the newest
// envelope and records the drop; that policy is chosen here, not inherited
// from the execution model.
type Dispatcher struct {
	metrics domrepo.Metrics
	bufSize int
	bufCh   chan *models.Envelope
	stopCh  chan struct{}
	started bool
	mu      sync.Mutex

	subMu  sync.RWMutex
	subs   []subscriber
	nextID domrepo.SubscriptionID
}

type subscriber struct {
	id domrepo.SubscriptionID
	h  domrepo.EnvelopeHandler
}

type DispatcherOption func(*Dispatcher)

// WithQueueSize sets the bounded buffer between producers and the drain loop.
func WithQueueSize(n int) DispatcherOption {
	return func(d *Dispatcher) {
		if n > 0 {
			d.bufSize = n
		}
	}
}

// NewDispatcher creates a stopped dispatcher.
func NewDispatcher(metrics domrepo.Metrics, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		metrics: metrics,
		bufSize: 256,
		stopCh:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.bufCh = make(chan *models.Envelope, d.bufSize)
	return d
}

// Subscribe registers a handler. Handlers are invoked in registration order.
func (d *Dispatcher) Subscribe(h domrepo.EnvelopeHandler) domrepo.SubscriptionID {
	d.subMu.Lock()
	defer d.subMu.Unlock()
	d.nextID++
	id := d.nextID
	d.subs = append(d.subs, subscriber{id: id, h: h})
	if d.metrics != nil {
		d.metrics.SetSubscribers(len(d.subs))
	}
	return id
}

// Unsubscribe removes a handler; unknown ids are a no-op.
func (d *Dispatcher) Unsubscribe(id domrepo.SubscriptionID) {
	d.subMu.Lock()
	defer d.subMu.Unlock()
	for i, s := range d.subs {
		if s.id == id {
			d.subs = append(d.subs[:i], d.subs[i+1:]...)
			break
		}
	}
	if d.metrics != nil {
		d.metrics.SetSubscribers(len(d.subs))
	}
}

// SubscriberCount reports the current registry size.
func (d *Dispatcher) SubscriberCount() int {
	d.subMu.RLock()
	defer d.subMu.RUnlock()
	return len(d.subs)
}

// Start launches the drain loop. Starting a started dispatcher is a no-op.
// A stopped dispatcher restarts with a fresh queue; the subscriber registry
// survives restarts.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	if d.started {
		d.mu.Unlock()
		return
	}
	d.started = true
	d.stopCh = make(chan struct{})
	d.bufCh = make(chan *models.Envelope, d.bufSize)
	stopCh, bufCh := d.stopCh, d.bufCh
	d.mu.Unlock()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-stopCh:
				return
			case env := <-bufCh:
				if env == nil {
					continue
				}
				select {
				case <-stopCh:
					// stopped while buffered; nothing may be delivered now
					return
				default:
				}
				d.fanOut(env)
			}
		}
	}()
}

// Stop halts delivery. Buffered envelopes are discarded; a fan-out already
// in progress completes. Idempotent.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.started {
		return
	}
	d.started = false
	close(d.stopCh)
}

// Publish validates and enqueues one envelope. Envelopes failing the
// kind/payload check are dropped and counted rather than propagated into
// consumers. Publishing on a stopped dispatcher is an error.
func (d *Dispatcher) Publish(env *models.Envelope) error {
	if err := env.Validate(); err != nil {
		if d.metrics != nil {
			d.metrics.RecordError("envelope_invalid")
		}
		return fmt.Errorf("dispatch: %w", err)
	}

	d.mu.Lock()
	started, bufCh := d.started, d.bufCh
	d.mu.Unlock()
	if !started {
		return fmt.Errorf("dispatch: dispatcher stopped")
	}

	select {
	case bufCh <- env:
		return nil
	default:
		if d.metrics != nil {
			d.metrics.RecordError("dispatch_queue_full")
		}
		return fmt.Errorf("dispatch: queue full, envelope dropped")
	}
}

// fanOut delivers one envelope to every subscriber in registration order.
// A panicking subscriber is isolated: it never prevents delivery to the
// remaining subscribers or aborts the drain loop.
func (d *Dispatcher) fanOut(env *models.Envelope) {
	start := time.Now()

	d.subMu.RLock()
	subs := make([]subscriber, len(d.subs))
	copy(subs, d.subs)
	d.subMu.RUnlock()

	for _, s := range subs {
		d.invoke(s, env)
	}

	if d.metrics != nil {
		d.metrics.RecordEnvelope(string(env.Kind), string(env.Symbol()))
		d.metrics.RecordLatency("fan_out", time.Since(start).Seconds())
	}
}

func (d *Dispatcher) invoke(s subscriber, env *models.Envelope) {
	defer func() {
		if r := recover(); r != nil && d.metrics != nil {
			d.metrics.RecordError("subscriber_panic")
		}
	}()
	s.h(env)
}
