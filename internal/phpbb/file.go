package phpbb

import (
	"context"
	"fmt"
	"net/http"

	"github.com/nao1215/phpbbdump/internal/crawler"
)

// FileTask downloads one attachment, inline image or avatar into the
// output tree. File tasks never expand into further work, which is what
// makes the post-flush media phase terminate.
type FileTask struct {
	site       *Site
	dirs       []string
	name       string
	url        string
	useSession bool
}

// NewFileTask creates a download task for one file. useSession controls
// whether the fetch rides the board session; off-site media must not.
func NewFileTask(site *Site, dirs []string, name, url string, useSession bool) *FileTask {
	return &FileTask{site: site, dirs: dirs, name: name, url: url, useSession: useSession}
}

// Kind implements crawler.Task.
func (t *FileTask) Kind() crawler.Kind {
	return crawler.KindFile
}

// String implements crawler.Task.
func (t *FileTask) String() string {
	return fmt.Sprintf("file %s from %s", t.name, t.url)
}

// SessionFree implements crawler.SessionFree.
func (t *FileTask) SessionFree() bool {
	return !t.useSession
}

// BuildRequest implements crawler.Task.
func (t *FileTask) BuildRequest(ctx context.Context) (*http.Request, error) {
	if t.useSession {
		return t.site.newRequest(ctx, http.MethodGet, t.url, nil)
	}
	return t.site.bareRequest(ctx, t.url)
}

// Expand writes the downloaded bytes to the store. A non-200 response
// is logged at debug and dropped; missing avatars and dead image links
// are routine.
func (t *FileTask) Expand(_ context.Context, res *crawler.FetchResult) (crawler.Outcome, error) {
	if res.StatusCode != http.StatusOK {
		t.site.logger.Debug("file not available", "url", t.url, "status", res.StatusCode)
		return crawler.Outcome{}, nil
	}
	if err := t.site.store.SaveFile(t.dirs, t.name, res.Body); err != nil {
		t.site.logger.Error("failed to save file", "file", t.name, "error", err)
	}
	return crawler.Outcome{}, nil
}
