package phpbb

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/nao1215/phpbbdump/internal/config"
	"github.com/nao1215/phpbbdump/internal/crawler"
	"github.com/nao1215/phpbbdump/internal/model"
	"github.com/nao1215/phpbbdump/internal/store"
)

// Site is the shared context every page object carries: the run
// configuration, the output store, the resume index, and the session id
// obtained from a password submission. It replaces the mutable global
// options bag of the classic scraper with one value constructed at
// startup.
type Site struct {
	cfg    *config.Config
	store  *store.Store
	resume *store.ResumeIndex
	logger *slog.Logger

	// mu guards sid, the only mutable field. A successful password
	// submission records the session id so every later URL carries it.
	mu  sync.Mutex
	sid string
}

// NewSite creates the shared page-object context. The resume index may
// be nil when forced re-scraping is requested; a nil logger falls back
// to slog.Default.
func NewSite(cfg *config.Config, st *store.Store, resume *store.ResumeIndex, logger *slog.Logger) *Site {
	if logger == nil {
		logger = slog.Default()
	}
	return &Site{
		cfg:    cfg,
		store:  st,
		resume: resume,
		logger: logger,
	}
}

// Seed builds the initial frontier from the configured targets, minus
// documents the resume index already holds. When nothing is targeted
// explicitly the whole board is crawled from the root forum. Returns
// the seed tasks and how many documents the resume index suppressed.
func (s *Site) Seed() (tasks []crawler.Task, skipped int) {
	if s.cfg.SaveUsers {
		if s.resume.Has(store.UsersKey) {
			skipped++
		} else {
			tasks = append(tasks, NewUsersTask(s, 0))
		}
	}

	for _, id := range s.cfg.Forums {
		tasks = append(tasks, NewForumTask(s, id, 0))
	}
	for _, id := range s.cfg.Topics {
		if s.resume.Has(strconv.Itoa(id)) {
			skipped++
			continue
		}
		tasks = append(tasks, NewTopicTask(s, id, 0))
	}

	if !s.cfg.SaveUsers && len(s.cfg.Forums) == 0 && len(s.cfg.Topics) == 0 {
		tasks = append(tasks, NewForumTask(s, 0, 0))
	}
	return tasks, skipped
}

// setSID records the session id discovered in a password form action.
func (s *Site) setSID(sid string) {
	if sid == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sid = sid
}

// sidValue returns the current session id, empty when none was seen.
func (s *Site) sidValue() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sid
}

// newRequest builds a request carrying the configured identification
// headers.
func (s *Site) newRequest(ctx context.Context, method, rawURL string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return nil, err
	}
	if s.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", s.cfg.UserAgent)
	}
	if s.cfg.Cookie != "" {
		req.Header.Set("Cookie", s.cfg.Cookie)
	}
	for k, v := range s.cfg.Headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

// bareRequest builds a request for off-site fetches: user agent only,
// no board cookies or custom headers.
func (s *Site) bareRequest(ctx context.Context, rawURL string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	if s.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", s.cfg.UserAgent)
	}
	return req, nil
}

// forumURL builds a viewforum.php URL. Forum id 0 with no session is
// the board root, which lives at the base URL itself.
func (s *Site) forumURL(forumID, start int) string {
	var args []string
	if sid := s.sidValue(); sid != "" {
		args = append(args, "sid="+sid)
	}
	if forumID != 0 {
		args = append(args, "f="+strconv.Itoa(forumID))
	}
	if start != 0 {
		args = append(args, "start="+strconv.Itoa(start))
	}
	if len(args) == 0 {
		return s.cfg.URL
	}
	return s.cfg.URL + "/viewforum.php?" + strings.Join(args, "&")
}

// topicURL builds a viewtopic.php URL.
func (s *Site) topicURL(topicID, start int) string {
	var args []string
	if sid := s.sidValue(); sid != "" {
		args = append(args, "sid="+sid)
	}
	if topicID != 0 {
		args = append(args, "t="+strconv.Itoa(topicID))
	}
	if start != 0 {
		args = append(args, "start="+strconv.Itoa(start))
	}
	return s.cfg.URL + "/viewtopic.php?" + strings.Join(args, "&")
}

// usersURL builds a memberlist.php URL.
func (s *Site) usersURL(start int) string {
	var args []string
	if sid := s.sidValue(); sid != "" {
		args = append(args, "sid="+sid)
	}
	if start != 0 {
		args = append(args, "start="+strconv.Itoa(start))
	}
	return s.cfg.URL + "/memberlist.php?" + strings.Join(args, "&")
}

// absoluteURL resolves a page-relative reference against the board base
// URL. phpBB templates emit "./download/file.php" and "../styles/..."
// forms; the relative hops are stripped rather than resolved, matching
// how the board lays out its tree.
func (s *Site) absoluteURL(ref string) string {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return ref
	}
	ref = strings.ReplaceAll(ref, "../", "")
	ref = strings.TrimPrefix(ref, "./")
	ref = strings.TrimPrefix(ref, "/")
	return s.cfg.URL + "/" + ref
}

// saveTopic persists a completed topic document and derives the file
// tasks for its attachments and inline media.
func (s *Site) saveTopic(key string, items []any, path model.Breadcrumbs) []crawler.Task {
	posts := make([]model.Post, 0, len(items))
	for _, it := range items {
		if p, ok := it.(model.Post); ok {
			posts = append(posts, p)
		}
	}

	if err := s.store.SaveTopic(path, key, posts); err != nil {
		s.logger.Error("failed to save topic", "topic", key, "error", err)
		return nil
	}

	if !s.cfg.SaveMedia && !s.cfg.SaveAttachments {
		return nil
	}

	dirs := store.MediaDirs(path, key)
	var tasks []crawler.Task
	for _, p := range posts {
		for _, f := range p.Files {
			if s.store.FileExists(dirs, f.Name) && s.cfg.Force != 2 {
				continue
			}
			tasks = append(tasks, NewFileTask(s, dirs, f.Name, f.URL, true))
		}
		for _, m := range p.Media {
			if s.store.FileExists(dirs, m.Name) && s.cfg.Force != 2 {
				continue
			}
			// Inline media usually points off-site; fetch it outside
			// the board session.
			tasks = append(tasks, NewFileTask(s, dirs, m.Name, m.URL, false))
		}
	}
	return tasks
}

// saveUsers persists the completed member list.
func (s *Site) saveUsers(_ string, items []any, _ model.Breadcrumbs) []crawler.Task {
	users := make([]model.User, 0, len(items))
	for _, it := range items {
		if u, ok := it.(model.User); ok {
			users = append(users, u)
		}
	}
	if err := s.store.SaveUsers(users); err != nil {
		s.logger.Error("failed to save users", "error", err)
	}
	return nil
}
