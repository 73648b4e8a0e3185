package crawler

import (
	"log/slog"
	"sync"
)

// Frontier is the dynamic, concurrent-safe queue of pending crawl
// tasks. It grows while being drained: expanding one task may enqueue
// more.
//
// Design decision: drainage is detected with two explicit counters
// (enqueued, processed) rather than queue emptiness alone. A dequeued
// task is still "in flight" until its whole fetch+expand+re-enqueue
// cycle finishes, and it may enqueue children during that window. The
// queue being momentarily empty therefore proves nothing; the counters
// do.
type Frontier struct {
	mu        sync.Mutex
	queue     []Task
	enqueued  int
	processed int
	logger    *slog.Logger
}

// NewFrontier creates an empty frontier. A nil logger falls back to
// slog.Default.
func NewFrontier(logger *slog.Logger) *Frontier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Frontier{logger: logger}
}

// Enqueue appends tasks to the frontier.
func (f *Frontier) Enqueue(tasks ...Task) {
	if len(tasks) == 0 {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = append(f.queue, tasks...)
	f.enqueued += len(tasks)
}

// TryDequeue removes and returns the oldest task. It never blocks; the
// second return value is false when the queue is currently empty.
func (f *Frontier) TryDequeue() (Task, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queue) == 0 {
		return nil, false
	}
	t := f.queue[0]
	f.queue = f.queue[1:]
	return t, true
}

// MarkProcessed signals that a dequeued task's entire fetch, expand and
// re-enqueue cycle has finished. Children must be enqueued before the
// call, or IsDrained can report true with work still pending.
func (f *Frontier) MarkProcessed() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.processed++
}

// IsDrained reports whether the frontier holds no tasks and every task
// ever enqueued has been fully processed. The predicate can flip back
// to false if queried concurrently with an in-flight task; callers
// re-check after each batch and trust a drained reading only when an
// immediately following TryDequeue comes up empty.
func (f *Frontier) IsDrained() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queue) > 0 {
		return false
	}
	if f.processed < f.enqueued {
		return false
	}
	if f.processed > f.enqueued {
		// Processing more tasks than were enqueued means a consumer
		// double-counted; the frontier's accounting is broken.
		f.logger.Error("frontier processed more tasks than enqueued",
			"processed", f.processed,
			"enqueued", f.enqueued,
		)
	}
	return true
}

// Counts returns the enqueued and processed totals.
func (f *Frontier) Counts() (enqueued, processed int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enqueued, f.processed
}

// Len returns the number of tasks currently queued.
func (f *Frontier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queue)
}

// Reset discards all state so the frontier can be reused for another
// drain cycle. Resetting while entries remain is a logic error; it is
// logged rather than silently ignored.
func (f *Frontier) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queue) > 0 {
		f.logger.Error("frontier reset while tasks remain queued",
			"queued", len(f.queue),
		)
	}
	f.queue = nil
	f.enqueued = 0
	f.processed = 0
}
