package phpbb

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/phpbbdump/internal/crawler"
	"github.com/nao1215/phpbbdump/internal/model"
	"github.com/nao1215/phpbbdump/internal/store"
)

// UsersTask fetches one page of the member list and contributes its
// rows to the single "users" document.
type UsersTask struct {
	site  *Site
	start int
}

// NewUsersTask creates a member list task starting at the given row
// offset.
func NewUsersTask(site *Site, start int) *UsersTask {
	return &UsersTask{site: site, start: start}
}

// Kind implements crawler.Task.
func (t *UsersTask) Kind() crawler.Kind {
	return crawler.KindUsers
}

// String implements crawler.Task.
func (t *UsersTask) String() string {
	return fmt.Sprintf("users @ %d", t.start)
}

// BuildRequest implements crawler.Task.
func (t *UsersTask) BuildRequest(ctx context.Context) (*http.Request, error) {
	return t.site.newRequest(ctx, http.MethodGet, t.site.usersURL(t.start), nil)
}

// Expand parses the member list rows into a shard of the users
// document, queues avatar downloads, and enumerates sibling pages when
// this is the first one.
func (t *UsersTask) Expand(_ context.Context, res *crawler.FetchResult) (crawler.Outcome, error) {
	if res.StatusCode != http.StatusOK {
		t.site.logger.Debug("member list not available", "task", t.String(), "status", res.StatusCode)
		return crawler.Outcome{}, nil
	}

	doc, err := parseDoc(res)
	if err != nil {
		return crawler.Outcome{}, err
	}

	if msg, ok := errorMessage(doc); ok {
		t.site.logger.Error("failed to fetch member list", "message", msg)
		return crawler.Outcome{}, nil
	}
	if hasLoginForm(doc) {
		t.site.logger.Error("login required to scrape member list")
		return crawler.Outcome{}, nil
	}

	var tasks []crawler.Task
	var users []model.User
	var rowErr error
	doc.Find("table#memberlist > tbody > tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		cells := row.Find("td")
		if cells.Length() < 2 {
			rowErr = errors.New("member row with too few cells")
			return false
		}
		profile := cells.First().Find("a").First()
		if profile.Length() == 0 {
			rowErr = errors.New("member row without a profile link")
			return false
		}
		uid, ok := queryParams(profile.AttrOr("href", ""))["u"]
		if !ok {
			rowErr = errors.New("profile link without a user id")
			return false
		}

		users = append(users, model.User{
			UID:  uid,
			Date: t.site.parseDate(strings.TrimSpace(cells.Last().Text())),
			User: strings.TrimSpace(profile.Text()),
		})

		if !t.site.cfg.SaveMedia && !t.site.cfg.SaveAttachments {
			return true
		}
		// Avatar extension is not listed anywhere; try the two the
		// board serves and let the 404 drop quietly.
		for _, ext := range []string{"png", "jpg"} {
			name := uid + "." + ext
			if t.site.store.FileExists(store.UsersMediaDirs(), name) && t.site.cfg.Force != 2 {
				continue
			}
			tasks = append(tasks, NewFileTask(t.site, store.UsersMediaDirs(), name,
				t.site.cfg.URL+"/download/file.php?avatar="+name, true))
		}
		return true
	})
	if rowErr != nil {
		return crawler.Outcome{}, rowErr
	}

	info, err := paginate(doc)
	if err != nil {
		return crawler.Outcome{}, err
	}
	if !info.found {
		return crawler.Outcome{}, errors.New("member list has no pagination bar")
	}

	items := make([]any, len(users))
	for i, u := range users {
		items[i] = u
	}
	outcome := crawler.Outcome{
		Tasks: tasks,
		Contribution: &crawler.Contribution{
			Key:    store.UsersKey,
			Total:  info.total,
			Offset: t.start,
			Items:  items,
			Save:   t.site.saveUsers,
		},
	}

	if t.start != 0 || !info.hasStart {
		return outcome, nil
	}
	for i := 1; i < info.pages; i++ {
		outcome.Tasks = append(outcome.Tasks, NewUsersTask(t.site, i*info.stride))
	}
	return outcome, nil
}
