package phpbb

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/phpbbdump/internal/crawler"
)

// ForumTask fetches one page of a forum listing. Forum id 0 is the
// board root, which enumerates top-level forums instead of topics.
type ForumTask struct {
	site    *Site
	forumID int
	start   int
}

// NewForumTask creates a forum listing task for one page of forum id,
// starting at the given topic offset.
func NewForumTask(site *Site, forumID, start int) *ForumTask {
	return &ForumTask{site: site, forumID: forumID, start: start}
}

// Kind implements crawler.Task.
func (t *ForumTask) Kind() crawler.Kind {
	return crawler.KindForum
}

// String implements crawler.Task.
func (t *ForumTask) String() string {
	return fmt.Sprintf("forum %d @ %d", t.forumID, t.start)
}

// BuildRequest implements crawler.Task.
func (t *ForumTask) BuildRequest(ctx context.Context) (*http.Request, error) {
	return t.site.newRequest(ctx, http.MethodGet, t.site.forumURL(t.forumID, t.start), nil)
}

// Expand parses the forum listing: child forums on the root page,
// topic tasks otherwise, plus sibling listing pages when this is the
// first page of a paginated forum.
func (t *ForumTask) Expand(_ context.Context, res *crawler.FetchResult) (crawler.Outcome, error) {
	if res.StatusCode != http.StatusOK {
		t.site.logger.Debug("forum page not available", "task", t.String(), "status", res.StatusCode)
		return crawler.Outcome{}, nil
	}

	doc, err := parseDoc(res)
	if err != nil {
		return crawler.Outcome{}, err
	}

	if msg, ok := errorMessage(doc); ok {
		t.site.logger.Error("failed to fetch forum", "forum", t.forumID, "message", msg)
		return crawler.Outcome{}, nil
	}
	if hasLoginForm(doc) {
		t.site.logger.Error("login required to scrape forum", "forum", t.forumID)
		return crawler.Outcome{}, nil
	}
	if passwordRequired(doc) {
		password, ok := t.site.cfg.ForumPasswords[t.forumID]
		if !ok {
			t.site.logger.Error("password required to scrape forum", "forum", t.forumID)
			return crawler.Outcome{}, nil
		}
		pt, err := newPasswordTask(t.site, doc, password)
		if err != nil {
			return crawler.Outcome{}, err
		}
		return crawler.Outcome{Tasks: []crawler.Task{pt}}, nil
	}

	if t.forumID == 0 {
		return crawler.Outcome{Tasks: t.childForums(doc)}, nil
	}

	var tasks []crawler.Task
	doc.Find("div#page-body > div.forumbg li.row > dl > dt a.topictitle").Each(func(_ int, a *goquery.Selection) {
		tid, err := strconv.Atoi(queryParams(a.AttrOr("href", ""))["t"])
		if err != nil {
			return
		}
		if t.site.resume.Has(strconv.Itoa(tid)) {
			return
		}
		t.site.logger.Debug("queue topic", "forum", t.forumID, "topic", tid)
		tasks = append(tasks, NewTopicTask(t.site, tid, 0))
	})

	// Only the first listing page enumerates its siblings; letting
	// every page do so would enqueue each sibling many times over.
	if t.start != 0 {
		return crawler.Outcome{Tasks: tasks}, nil
	}

	info, err := paginate(doc)
	if err != nil {
		return crawler.Outcome{}, err
	}
	if !info.hasStart {
		return crawler.Outcome{Tasks: tasks}, nil
	}
	for i := 1; i < info.pages; i++ {
		tasks = append(tasks, NewForumTask(t.site, t.forumID, i*info.stride))
	}
	return crawler.Outcome{Tasks: tasks}, nil
}

// childForums enumerates the top-level forums listed on the board root.
func (t *ForumTask) childForums(doc *goquery.Document) []crawler.Task {
	var tasks []crawler.Task
	doc.Find("div#page-body > div.forabg li.row > dl > dt a.forumtitle").Each(func(_ int, a *goquery.Selection) {
		fid, err := strconv.Atoi(queryParams(a.AttrOr("href", ""))["f"])
		if err != nil {
			return
		}
		tasks = append(tasks, NewForumTask(t.site, fid, 0))
	})
	return tasks
}
