package crawler

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
)

// testTask is a synthetic task for exercising the frontier, fetcher and
// engine: it fetches a fixed URL and expands into pre-scripted children
// and an optional contribution.
type testTask struct {
	name        string
	kind        Kind
	url         string
	children    []Task
	contrib     *Contribution
	expandErr   error
	buildErr    error
	sessionFree bool

	builds  atomic.Int32
	expands atomic.Int32
}

func (t *testTask) Kind() Kind { return t.kind }

func (t *testTask) String() string { return "test " + t.name }

func (t *testTask) SessionFree() bool { return t.sessionFree }

func (t *testTask) BuildRequest(ctx context.Context) (*http.Request, error) {
	t.builds.Add(1)
	if t.buildErr != nil {
		return nil, t.buildErr
	}
	if t.url == "" {
		return nil, errors.New("test task without URL")
	}
	return http.NewRequestWithContext(ctx, http.MethodGet, t.url, nil)
}

func (t *testTask) Expand(_ context.Context, _ *FetchResult) (Outcome, error) {
	t.expands.Add(1)
	if t.expandErr != nil {
		return Outcome{}, t.expandErr
	}
	return Outcome{Tasks: t.children, Contribution: t.contrib}, nil
}
