package crawler

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/nao1215/phpbbdump/internal/report"
	"golang.org/x/sync/errgroup"
)

// Journal records dropped tasks and incomplete documents so a subtree
// can be re-run manually later. Implementations must be safe for
// concurrent use. A nil Journal disables recording.
type Journal interface {
	// RecordDrop stores one dropped task with enough context to
	// re-investigate it.
	RecordDrop(ctx context.Context, kind, target, url, reason string) error

	// RecordIncomplete stores one document that was force-flushed with
	// shards still missing.
	RecordIncomplete(ctx context.Context, key, path string, remaining, total int) error
}

// Engine drives the two-phase crawl: a fixed-point drain loop over the
// frontier (fetch pool feeding the expand pool), then a forced flush of
// still-incomplete documents, then one more drain restricted to the
// file tasks the flush produced. Media fetches never produce further
// children, so the second phase always terminates.
type Engine struct {
	fetchWorkers int
	parseWorkers int
	fetcher      *Fetcher
	frontier     *Frontier
	merger       *Merger
	journal      Journal
	logger       *slog.Logger

	mu        sync.Mutex
	requests  int
	dropped   int
	parseFail int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger. Default is slog.Default.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithJournal sets the crawl journal for drop and incomplete-document
// records. Default is no journal.
func WithJournal(j Journal) Option {
	return func(e *Engine) {
		e.journal = j
	}
}

// WithWorkers sets the fetch and parse pool sizes.
func WithWorkers(fetch, parse int) Option {
	return func(e *Engine) {
		if fetch > 0 {
			e.fetchWorkers = fetch
		}
		if parse > 0 {
			e.parseWorkers = parse
		}
	}
}

// NewEngine creates an engine around the given fetcher.
func NewEngine(fetcher *Fetcher, opts ...Option) *Engine {
	e := &Engine{
		fetchWorkers: 10,
		parseWorkers: 4,
		fetcher:      fetcher,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	e.frontier = NewFrontier(e.logger)
	e.merger = NewMerger(e.logger)
	return e
}

// Merger exposes the engine's document merger for observability.
func (e *Engine) Merger() *Merger {
	return e.merger
}

// Run executes the crawl from the seed tasks to the terminal state and
// returns the run summary. Per-task failures are contained; the only
// error Run returns is context cancellation.
func (e *Engine) Run(ctx context.Context, seed []Task) (*report.Summary, error) {
	start := time.Now()

	e.frontier.Enqueue(seed...)
	if err := e.drain(ctx); err != nil {
		return e.summary(start), err
	}

	// Record documents left incomplete before the flush compacts them
	// away.
	incomplete := e.merger.Stats()
	for _, st := range incomplete {
		e.logger.Warn("document incomplete at shutdown",
			"key", st.Key,
			"remaining", st.Remaining,
			"total", st.Total,
			"path", st.Path,
		)
		if e.journal != nil {
			if err := e.journal.RecordIncomplete(ctx, st.Key, st.Path, st.Remaining, st.Total); err != nil {
				e.logger.Error("failed to journal incomplete document", "key", st.Key, "error", err)
			}
		}
	}

	// Media phase: the forced flush may surface file tasks from
	// documents saved with missing shards.
	if media := e.merger.ForceFlush(); len(media) > 0 {
		e.logger.Info("fetching media from force-flushed documents", "count", len(media))
		e.frontier.Reset()
		e.frontier.Enqueue(media...)
		if err := e.drain(ctx); err != nil {
			return e.summary(start), err
		}
	}

	s := e.summary(start)
	s.Incomplete = make([]report.IncompleteDocument, 0, len(incomplete))
	for _, st := range incomplete {
		s.Incomplete = append(s.Incomplete, report.IncompleteDocument{
			Path:      st.Path,
			Remaining: st.Remaining,
			Total:     st.Total,
		})
	}
	return s, nil
}

// drain runs the fixed-point loop: dequeue everything currently queued,
// process the batch through the fetch and expand pools, and re-check
// the drained predicate. Processing a batch may enqueue more work, so
// the predicate is re-evaluated after every pass; a drained reading is
// trusted only once a dequeue attempt comes up empty.
func (e *Engine) drain(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var batch []Task
		for {
			t, ok := e.frontier.TryDequeue()
			if !ok {
				break
			}
			batch = append(batch, t)
		}

		if len(batch) == 0 {
			if e.frontier.IsDrained() {
				return nil
			}
			// An empty dequeue without drainage means a consumer
			// forgot MarkProcessed; looping would spin forever.
			e.logger.Error("frontier empty but not drained, stopping drain loop")
			return nil
		}

		e.runBatch(ctx, batch)
	}
}

// fetched pairs a task with its fetch result or classified failure.
type fetched struct {
	task Task
	res  *FetchResult
	err  error
}

// runBatch pushes one batch through both worker pools. The fetch pool
// is I/O-bound and sized independently from the CPU-bound expand pool;
// results stream between them over a channel.
func (e *Engine) runBatch(ctx context.Context, batch []Task) {
	results := make(chan fetched, len(batch))

	var fetchers errgroup.Group
	fetchers.SetLimit(e.fetchWorkers)
	go func() {
		for _, t := range batch {
			t := t
			fetchers.Go(func() error {
				res, err := e.fetcher.Fetch(ctx, t)
				results <- fetched{task: t, res: res, err: err}
				return nil
			})
		}
		_ = fetchers.Wait() //nolint:errcheck // Workers never return errors; failures travel in the channel
		close(results)
	}()

	var parsers errgroup.Group
	parsers.SetLimit(e.parseWorkers)
	for f := range results {
		f := f
		parsers.Go(func() error {
			e.process(ctx, f)
			return nil
		})
	}
	_ = parsers.Wait() //nolint:errcheck // Workers never return errors
}

// process handles one fetch outcome: classify failures, expand
// successes, apply contributions, enqueue children, and mark the task
// processed. Everything here is contained at the task level; the crawl
// as a whole always reaches the drained state.
func (e *Engine) process(ctx context.Context, f fetched) {
	defer e.frontier.MarkProcessed()

	if f.err != nil {
		e.dropFetch(ctx, f.task, f.err)
		return
	}

	outcome, err := f.task.Expand(ctx, f.res)
	if err != nil {
		// Partial topic data is worse than none: a later merge could
		// not tell "missing because not fetched" from "missing because
		// malformed". The whole page is dropped.
		e.logger.Error("page failed to parse",
			"task", f.task.String(),
			"kind", f.task.Kind().String(),
			"error", err,
		)
		e.recordDrop(ctx, f.task, "parse failure: "+err.Error())
		e.mu.Lock()
		e.parseFail++
		e.dropped++
		e.mu.Unlock()
		return
	}

	e.frontier.Enqueue(outcome.Tasks...)

	var media []Task
	if outcome.Contribution != nil {
		media = e.merger.OpenOrAppend(outcome.Contribution)
		e.frontier.Enqueue(media...)
	}

	e.mu.Lock()
	e.requests++
	e.mu.Unlock()
}

// dropFetch logs and journals a task whose fetch terminally failed.
// Retries-exhausted media fetches log at debug; missing media is
// non-critical, while a dropped document loses its whole subtree.
func (e *Engine) dropFetch(ctx context.Context, t Task, err error) {
	switch {
	case errors.Is(err, ErrNotRetryable):
		e.logger.Debug("dropping non-retryable task",
			"task", t.String(),
			"error", err,
		)
	case errors.Is(err, ErrRetriesExhausted) && t.Kind() == KindFile:
		e.logger.Debug("failed to fetch file",
			"task", t.String(),
			"error", err,
		)
	default:
		e.logger.Warn("failed to fetch",
			"task", t.String(),
			"kind", t.Kind().String(),
			"error", err,
		)
	}

	e.recordDrop(ctx, t, err.Error())
	e.mu.Lock()
	e.dropped++
	e.mu.Unlock()
}

// recordDrop writes one drop record to the journal if one is attached.
func (e *Engine) recordDrop(ctx context.Context, t Task, reason string) {
	if e.journal == nil {
		return
	}
	taskURL := ""
	if req, err := t.BuildRequest(context.WithoutCancel(ctx)); err == nil {
		taskURL = req.URL.String()
	}
	if err := e.journal.RecordDrop(ctx, t.Kind().String(), t.String(), taskURL, reason); err != nil {
		e.logger.Error("failed to journal drop", "task", t.String(), "error", err)
	}
}

// summary builds the run summary from the engine counters.
func (e *Engine) summary(start time.Time) *report.Summary {
	e.mu.Lock()
	defer e.mu.Unlock()
	return &report.Summary{
		Duration:       time.Since(start),
		Requests:       e.requests,
		Dropped:        e.dropped,
		ParseFailures:  e.parseFail,
		DocumentsSaved: e.merger.Saved(),
	}
}
