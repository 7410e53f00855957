package middleware

import (
	"context"
	"sync"
	"testing"
	"time"

	"TradeDash/internal/domain/models"
)

type spyMetrics struct {
	mu     sync.Mutex
	errors map[string]int
	subs   int
}

func newSpyMetrics() *spyMetrics {
	return &spyMetrics{errors: make(map[string]int)}
}

func (m *spyMetrics) RecordEnvelope(kind, symbol string) {}
func (m *spyMetrics) RecordError(kind string) {
	m.mu.Lock()
	m.errors[kind]++
	m.mu.Unlock()
}
func (m *spyMetrics) RecordLastPrice(symbol string, price float64) {}
func (m *spyMetrics) RecordLatency(op string, seconds float64)     {}
func (m *spyMetrics) SetSubscribers(n int) {
	m.mu.Lock()
	m.subs = n
	m.mu.Unlock()
}
func (m *spyMetrics) SetWSClients(n int) {}

func (m *spyMetrics) errCount(kind string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.errors[kind]
}

func marketEnv(price float64) *models.Envelope {
	return models.NewMarketEnvelope(&models.MarketData{
		Symbol:    models.PairBTCUSD,
		Price:     price,
		Volume:    100,
		Timestamp: time.Now().UTC(),
	})
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met in time")
}

func TestDispatcherDeliversInOrderToAllSubscribers(t *testing.T) {
	d := NewDispatcher(newSpyMetrics())
	d.Start(context.Background())
	defer d.Stop()

	var mu sync.Mutex
	var a, b []float64
	d.Subscribe(func(env *models.Envelope) {
		mu.Lock()
		a = append(a, env.Market.Price)
		mu.Unlock()
	})
	d.Subscribe(func(env *models.Envelope) {
		mu.Lock()
		b = append(b, env.Market.Price)
		mu.Unlock()
	})

	for i := 1; i <= 5; i++ {
		if err := d.Publish(marketEnv(float64(i))); err != nil {
			t.Fatalf("publish %d: %v", i, err)
		}
	}

	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(a) == 5 && len(b) == 5
	})

	mu.Lock()
	defer mu.Unlock()
	for i := 0; i < 5; i++ {
		want := float64(i + 1)
		if a[i] != want || b[i] != want {
			t.Fatalf("order broken: a[%d]=%v b[%d]=%v want %v", i, a[i], i, b[i], want)
		}
	}
}

func TestDispatcherUnsubscribeStopsDelivery(t *testing.T) {
	d := NewDispatcher(newSpyMetrics())
	d.Start(context.Background())
	defer d.Stop()

	var mu sync.Mutex
	var got int
	id := d.Subscribe(func(env *models.Envelope) {
		mu.Lock()
		got++
		mu.Unlock()
	})

	if err := d.Publish(marketEnv(1)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return got == 1
	})

	d.Unsubscribe(id)
	if d.SubscriberCount() != 0 {
		t.Fatalf("subscriber count = %d", d.SubscriberCount())
	}
	if err := d.Publish(marketEnv(2)); err != nil {
		t.Fatalf("publish after unsubscribe: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if got != 1 {
		t.Fatalf("delivery after unsubscribe: got %d", got)
	}
}

func TestDispatcherIsolatesPanickingSubscriber(t *testing.T) {
	m := newSpyMetrics()
	d := NewDispatcher(m)
	d.Start(context.Background())
	defer d.Stop()

	var mu sync.Mutex
	var got int
	d.Subscribe(func(env *models.Envelope) { panic("boom") })
	d.Subscribe(func(env *models.Envelope) {
		mu.Lock()
		got++
		mu.Unlock()
	})

	if err := d.Publish(marketEnv(1)); err != nil {
		t.Fatalf("publish: %v", err)
	}
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return got == 1
	})
	if m.errCount("subscriber_panic") != 1 {
		t.Fatalf("panic not recorded")
	}
}

func TestDispatcherRejectsInvalidEnvelope(t *testing.T) {
	m := newSpyMetrics()
	d := NewDispatcher(m)
	d.Start(context.Background())
	defer d.Stop()

	err := d.Publish(&models.Envelope{Kind: models.KindMarketData})
	if err == nil {
		t.Fatalf("expected invalid envelope error")
	}
	if m.errCount("envelope_invalid") != 1 {
		t.Fatalf("drop not recorded")
	}
}

func TestDispatcherStoppedRefusesPublish(t *testing.T) {
	d := NewDispatcher(newSpyMetrics())
	if err := d.Publish(marketEnv(1)); err == nil {
		t.Fatalf("expected error on never-started dispatcher")
	}

	d.Start(context.Background())
	d.Stop()
	d.Stop() // idempotent
	if err := d.Publish(marketEnv(1)); err == nil {
		t.Fatalf("expected error on stopped dispatcher")
	}
}

func TestDispatcherRestartKeepsRegistry(t *testing.T) {
	d := NewDispatcher(newSpyMetrics())
	var mu sync.Mutex
	var got int
	d.Subscribe(func(env *models.Envelope) {
		mu.Lock()
		got++
		mu.Unlock()
	})

	d.Start(context.Background())
	d.Stop()
	d.Start(context.Background())
	defer d.Stop()

	if err := d.Publish(marketEnv(1)); err != nil {
		t.Fatalf("publish after restart: %v", err)
	}
	waitFor(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return got == 1
	})
}

func TestDispatcherDropsNewestWhenQueueFull(t *testing.T) {
	m := newSpyMetrics()
	d := NewDispatcher(m, WithQueueSize(1))

	// started but with a blocked drain loop: subscribe a handler that parks
	// until released, then overfill the queue.
	release := make(chan struct{})
	d.Subscribe(func(env *models.Envelope) { <-release })
	d.Start(context.Background())
	defer d.Stop()
	defer close(release)

	// first publish is consumed by the drain loop and parks; second fills
	// the buffer; third must be dropped.
	var dropped bool
	for i := 0; i < 3; i++ {
		if err := d.Publish(marketEnv(float64(i + 1))); err != nil {
			dropped = true
		}
		time.Sleep(10 * time.Millisecond)
	}
	if !dropped {
		t.Fatalf("expected a drop on full queue")
	}
	if m.errCount("dispatch_queue_full") == 0 {
		t.Fatalf("queue full drop not recorded")
	}
}
