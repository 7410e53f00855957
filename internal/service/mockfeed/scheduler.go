package mockfeed

import (
	"container/heap"
	"time"

	"TradeDash/internal/domain/models"
)

// schedule owns the next-fire times for every tracked pair as a min-heap,
// driven by the connection's single run loop. One heap instead of one timer
// per pair keeps teardown a single cancel and removes per-pair leak risk.
type schedule struct {
	entries fireHeap
	period  time.Duration
}

type fireEntry struct {
	at   time.Time
	pair models.TradingPair
}

func newSchedule(pairs []models.TradingPair, period time.Duration, start time.Time) *schedule {
	s := &schedule{period: period}
	for _, p := range pairs {
		s.entries = append(s.entries, fireEntry{at: start.Add(period), pair: p})
	}
	heap.Init(&s.entries)
	return s
}

// nextAt reports when the earliest pair is due.
func (s *schedule) nextAt() time.Time {
	return s.entries[0].at
}

// due pops every pair due at or before now and reschedules each one period
// later. Pairs are returned in fire order.
func (s *schedule) due(now time.Time) []models.TradingPair {
	var fired []models.TradingPair
	for len(s.entries) > 0 && !s.entries[0].at.After(now) {
		e := heap.Pop(&s.entries).(fireEntry)
		fired = append(fired, e.pair)
		e.at = e.at.Add(s.period)
		heap.Push(&s.entries, e)
	}
	return fired
}

type fireHeap []fireEntry

func (h fireHeap) Len() int            { return len(h) }
func (h fireHeap) Less(i, j int) bool  { return h[i].at.Before(h[j].at) }
func (h fireHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *fireHeap) Push(x any) { *h = append(*h, x.(fireEntry)) }

func (h *fireHeap) Pop() any {
	old := *h
	n := len(old)
	e := old[n-1]
	*h = old[:n-1]
	return e
}
