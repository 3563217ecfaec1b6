// Package events is the outbound analytics pipeline: a bounded queue, a
// summarizer that folds feature evaluations into counters, a user-key
// dedup cache, and a bounded worker pool that posts flushed batches to
// the events endpoint.
package events

import (
	"sync"

	"github.com/flagcore/flagcore-go/pkg/ldevents"
	"github.com/flagcore/flagcore-go/pkg/ldlog"
	"github.com/flagcore/flagcore-go/pkg/metrics"
)

// queue is a lock-protected deque with a hard capacity: Push never blocks,
// and drops the incoming event once full, logging exactly one
// capacity-exceeded warning until the next successful push.
type queue struct {
	mu       sync.Mutex
	items    []ldevents.InputEvent
	capacity int
	dropped  bool
	log      ldlog.Loggers
	metrics  *metrics.Registry
}

func newQueue(capacity int, log ldlog.Loggers) *queue {
	return &queue{capacity: capacity, log: log}
}

// SetMetrics wires a metrics registry in after construction, so callers
// that don't care about observability (most tests) never have to touch it.
func (q *queue) SetMetrics(m *metrics.Registry) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.metrics = m
}

func (q *queue) Push(e ldevents.InputEvent) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) >= q.capacity {
		if !q.dropped {
			q.log.Warnf("event queue is full (capacity=%d), dropping events until the queue drains", q.capacity)
			q.dropped = true
		}
		if q.metrics != nil {
			q.metrics.EventsDropped.Inc()
		}
		return
	}
	q.items = append(q.items, e)
	q.dropped = false
	if q.metrics != nil {
		q.metrics.QueueDepth.Set(float64(len(q.items)))
	}
}

// DrainAll removes and returns every queued event. The drop-warning latch
// is untouched here; it resets on the next successful Push.
func (q *queue) DrainAll() []ldevents.InputEvent {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := q.items
	q.items = nil
	if q.metrics != nil {
		q.metrics.QueueDepth.Set(0)
	}
	return out
}

func (q *queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
