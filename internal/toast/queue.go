// Package toast keeps the queue of transient user-visible notices. Every
// entry expires on its own after its duration elapses.
package toast

import (
	"sync"
	"time"

	"github.com/danuputra/tokoku/pkg/metrics"
)

// DefaultDuration is applied when a notice is queued without one.
const DefaultDuration = 3 * time.Second

// Toast is a single transient notice. Error is empty for success notices.
type Toast struct {
	ID       int64
	Message  string
	Error    string
	Duration time.Duration
}

// Queue is a thread-safe auto-expiring notice queue.
type Queue struct {
	mu      sync.Mutex
	nextID  int64
	entries []Toast
	timers  map[int64]*time.Timer
}

// NewQueue constructs an empty queue.
func NewQueue() *Queue {
	return &Queue{timers: make(map[int64]*time.Timer)}
}

// Show queues a notice and schedules its removal. Returns the notice id.
func (q *Queue) Show(message, errorText string, duration time.Duration) int64 {
	if duration <= 0 {
		duration = DefaultDuration
	}

	kind := "success"
	if errorText != "" {
		kind = "error"
	}
	metrics.RecordToast(kind)

	q.mu.Lock()
	defer q.mu.Unlock()

	q.nextID++
	id := q.nextID

	q.entries = append(q.entries, Toast{
		ID:       id,
		Message:  message,
		Error:    errorText,
		Duration: duration,
	})

	q.timers[id] = time.AfterFunc(duration, func() {
		q.Remove(id)
	})

	return id
}

// Remove drops the notice with the given id, cancelling its expiry timer.
func (q *Queue) Remove(id int64) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if timer, ok := q.timers[id]; ok {
		timer.Stop()
		delete(q.timers, id)
	}

	kept := q.entries[:0]
	for _, entry := range q.entries {
		if entry.ID != id {
			kept = append(kept, entry)
		}
	}
	q.entries = kept
}

// Active returns a copy of the currently visible notices.
func (q *Queue) Active() []Toast {
	q.mu.Lock()
	defer q.mu.Unlock()

	return append([]Toast(nil), q.entries...)
}

// Close stops all pending expiry timers.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	for id, timer := range q.timers {
		timer.Stop()
		delete(q.timers, id)
	}
	q.entries = nil
}
