package report

import (
	"io"
	"time"
)

// Summary is the final statistics of one crawl run.
type Summary struct {
	// URL is the forum base URL that was crawled.
	URL string

	// Duration is the total wall-clock run time.
	Duration time.Duration

	// Resumed is how many documents were skipped because the resume
	// index already held them.
	Resumed int

	// Requests is the number of tasks fully processed.
	Requests int

	// Dropped is the number of tasks dropped after fetch or parse
	// failure.
	Dropped int

	// ParseFailures is how many of the drops were whole-page parse
	// failures.
	ParseFailures int

	// DocumentsSaved is the number of logical documents persisted,
	// forced flushes included.
	DocumentsSaved int

	// FilesSaved is the number of media and attachment files written.
	FilesSaved int

	// Incomplete lists documents that were force-flushed with shards
	// still missing.
	Incomplete []IncompleteDocument
}

// IncompleteDocument is one document saved by forced flush before all
// of its shards arrived.
type IncompleteDocument struct {
	// Path is the document's breadcrumb path.
	Path string

	// Remaining is how many items were still missing at flush time.
	Remaining int

	// Total is the expected item count.
	Total int
}

// Writer renders a crawl summary to a destination.
//
// Design decision: an interface rather than a function so the CLI can
// pick text or Markdown output, and tests can render to a buffer, with
// the same call site.
type Writer interface {
	// Write renders the summary. Returns bytes written and any error.
	Write(s *Summary) (int, error)
}

// baseWriter holds the output destination shared by the writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
