package crawler

import (
	"context"
	"errors"
	"net/http"

	"github.com/nao1215/phpbbdump/internal/model"
)

// Kind identifies the crawl-target type of a Task.
type Kind int

// Task kinds, one per fetchable page type.
const (
	// KindForum is a forum listing page (id 0 is the board root).
	KindForum Kind = iota

	// KindTopic is one page of a topic's posts.
	KindTopic

	// KindUsers is one page of the member list.
	KindUsers

	// KindPassword is a forum/topic password form submission.
	KindPassword

	// KindFile is a media or attachment download.
	KindFile
)

// String returns the kind name used in logs and the crawl journal.
func (k Kind) String() string {
	switch k {
	case KindForum:
		return "forum"
	case KindTopic:
		return "topic"
	case KindUsers:
		return "users"
	case KindPassword:
		return "password"
	case KindFile:
		return "file"
	default:
		return "unknown"
	}
}

// Task is one fetchable unit of crawl work. Tasks are immutable value
// objects: ownership transfers into the Frontier on enqueue and into a
// fetch worker on dequeue.
//
// Design decision: Task is an interface with a shared
// BuildRequest/Expand capability rather than a struct with a kind
// switch. Each page type carries its own request construction and
// parse behavior, and adding a new page type cannot silently fall
// through an existing switch arm.
type Task interface {
	// Kind reports the crawl-target type.
	Kind() Kind

	// BuildRequest constructs the single HTTP request for this task.
	// An error wrapping ErrInternal means the task's own structural
	// assumptions are violated and the process must not continue.
	BuildRequest(ctx context.Context) (*http.Request, error)

	// Expand turns a fetched response into new frontier tasks and an
	// optional shard contribution. A returned error means the whole
	// page failed to parse and nothing from it may be used.
	Expand(ctx context.Context, res *FetchResult) (Outcome, error)

	// String identifies the task in logs.
	String() string
}

// SessionFree is implemented by tasks that must be fetched outside the
// shared forum session, with no cookies attached. Off-site media links
// fall in this category; sending the board session to a third-party
// host would leak it.
type SessionFree interface {
	SessionFree() bool
}

// FetchResult is a successful network response paired with the task
// that produced it. A non-200 status is still a FetchResult; the expand
// stage decides how to react (login wall, deleted topic, missing file).
type FetchResult struct {
	// Task is the originating task.
	Task Task

	// StatusCode is the HTTP status of the response.
	StatusCode int

	// Header holds the response headers.
	Header http.Header

	// Body is the response body. For document pages it has been
	// decoded to UTF-8; for file downloads it is the raw bytes.
	Body []byte
}

// Outcome is what expanding one fetched page produced: follow-up tasks
// for the frontier and at most one shard contribution for the merger.
type Outcome struct {
	// Tasks are new frontier entries discovered on the page.
	Tasks []Task

	// Contribution is this page's shard of a logical document, or nil
	// when the page contributes to no document.
	Contribution *Contribution
}

// SaveFunc persists a completed logical document and returns follow-up
// file-download tasks derived while saving (attachments, inline media).
type SaveFunc func(key string, items []any, path model.Breadcrumbs) []Task

// Contribution is one page's worth of a logical document's items,
// tagged with its position within the final item sequence.
//
// Every contribution carries Total, so whichever shard arrives first
// can open the pending document; pagination pages complete in arbitrary
// order.
type Contribution struct {
	// Key identifies the logical document: the topic id in decimal, or
	// the literal "users" for the member list.
	Key string

	// Total is the number of items the final document must contain, as
	// reported by the page's pagination summary.
	Total int

	// Offset is the starting index of Items within the document.
	Offset int

	// Items are the parsed records contributed by this page.
	Items []any

	// Path locates the document in the forum hierarchy.
	Path model.Breadcrumbs

	// Save persists the document once all items have arrived.
	Save SaveFunc
}

// Sentinel errors classifying fetch failures.
var (
	// ErrNotRetryable marks a request that can never succeed, such as
	// a malformed or non-http(s) URL. It is dropped without consuming
	// the retry budget.
	ErrNotRetryable = errors.New("request is not retryable")

	// ErrRetriesExhausted marks a task whose transient failures used
	// up the configured retry budget.
	ErrRetriesExhausted = errors.New("retry budget exhausted")

	// ErrInternal marks a violated internal invariant. It is fatal:
	// the crawl's model no longer matches the data it produced, and
	// continuing risks silently corrupting merge state.
	ErrInternal = errors.New("internal consistency violation")
)
