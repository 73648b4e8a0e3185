package crawler

import (
	"log/slog"
	"sync"

	"github.com/nao1215/phpbbdump/internal/model"
)

// pendingDocument is the merge state for one open document key: a slot
// array sized to the expected item count, filled by offset as shards
// arrive in arbitrary order.
type pendingDocument struct {
	slots     []any
	remaining int
	total     int
	path      model.Breadcrumbs
	save      SaveFunc
	key       string
}

// Merger assembles shard contributions into complete logical documents
// and saves each exactly once, the instant its remaining count reaches
// zero. It is the only shared mutable structure between parse workers.
//
// Design decision: one mutex guards the whole key map. Contributions
// are page-sized and the critical section is a slot copy, a decrement
// and the completion check plus save, so per-key locking buys nothing
// the crawl would notice. The save handler runs under the lock, which
// also serializes the write-once _meta.json chain for sibling topics.
type Merger struct {
	mu     sync.Mutex
	open   map[string]*pendingDocument
	saved  int
	logger *slog.Logger
}

// DocumentStat is a read-only snapshot of one open document, used for
// the final statistics summary.
type DocumentStat struct {
	// Key is the document key.
	Key string

	// Remaining is how many items are still missing.
	Remaining int

	// Total is the expected item count.
	Total int

	// Path is the document's breadcrumb path rendered for display.
	Path string
}

// NewMerger creates an empty merger. A nil logger falls back to
// slog.Default.
func NewMerger(logger *slog.Logger) *Merger {
	if logger == nil {
		logger = slog.Default()
	}
	return &Merger{
		open:   make(map[string]*pendingDocument),
		logger: logger,
	}
}

// OpenOrAppend applies one contribution. The first contribution for a
// key allocates the pending document sized to the reported total; every
// contribution writes its items at its offset and decrements the
// remaining count. When the count reaches zero the document is saved,
// removed, and any file tasks the save handler derived are returned for
// re-enqueueing.
func (m *Merger) OpenOrAppend(c *Contribution) []Task {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.open[c.Key]
	if !ok {
		doc = &pendingDocument{
			slots:     make([]any, c.Total),
			remaining: c.Total,
			total:     c.Total,
			path:      c.Path,
			save:      c.Save,
			key:       c.Key,
		}
		m.open[c.Key] = doc
	}

	items := c.Items
	if c.Offset > len(doc.slots) {
		// A shard landing past the slot array means the pagination
		// stride was under-estimated or the page count changed
		// mid-crawl. Dropping the overflow keeps the array intact.
		m.logger.Warn("contribution offset beyond document size",
			"key", c.Key,
			"offset", c.Offset,
			"total", doc.total,
		)
		return nil
	}
	if end := c.Offset + len(items); end > len(doc.slots) {
		m.logger.Warn("contribution truncated to document size",
			"key", c.Key,
			"offset", c.Offset,
			"items", len(items),
			"total", doc.total,
		)
		items = items[:len(doc.slots)-c.Offset]
	}
	copy(doc.slots[c.Offset:], items)
	doc.remaining -= len(items)

	if doc.remaining > 0 {
		return nil
	}

	delete(m.open, c.Key)
	m.saved++
	return doc.save(doc.key, doc.slots, doc.path)
}

// ForceFlush saves every still-open document with whatever shards it
// has, compacting out the empty slots in offset order. It is used only
// at shutdown, for documents whose expected count could never be fully
// observed (a page that 404'd mid-crawl). Returns the file tasks the
// save handlers derived.
func (m *Merger) ForceFlush() []Task {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.open) > 0 {
		m.logger.Info("force-saving unmerged documents", "count", len(m.open))
	}

	var tasks []Task
	for key, doc := range m.open {
		compact := make([]any, 0, doc.total-doc.remaining)
		for _, it := range doc.slots {
			if it != nil {
				compact = append(compact, it)
			}
		}
		tasks = append(tasks, doc.save(doc.key, compact, doc.path)...)
		m.saved++
		delete(m.open, key)
	}
	return tasks
}

// Stats returns a read-only snapshot of the open documents. It never
// mutates merger state.
func (m *Merger) Stats() []DocumentStat {
	m.mu.Lock()
	defer m.mu.Unlock()

	stats := make([]DocumentStat, 0, len(m.open))
	for key, doc := range m.open {
		path := doc.path.String()
		if path != "" {
			path += " / "
		}
		stats = append(stats, DocumentStat{
			Key:       key,
			Remaining: doc.remaining,
			Total:     doc.total,
			Path:      path + key,
		})
	}
	return stats
}

// Saved returns how many documents have been saved so far, forced
// flushes included.
func (m *Merger) Saved() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saved
}
