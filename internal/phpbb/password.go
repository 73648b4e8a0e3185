package phpbb

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/phpbbdump/internal/crawler"
)

// PasswordTask submits a forum or topic password form. On success the
// response body is already the unlocked page, so Expand re-dispatches
// it through the matching forum or topic task instead of fetching it
// again.
type PasswordTask struct {
	site      *Site
	actionURL string
	form      url.Values
	forumID   int
	topicID   int
}

// newPasswordTask builds a submission from the password prompt page:
// the form action plus every hidden input, with the password and login
// button filled in. The session id embedded in the action is recorded
// on the site so every later URL carries it.
func newPasswordTask(site *Site, doc *goquery.Document, password string) (*PasswordTask, error) {
	f := doc.Find("form#login_forum").First()
	if f.Length() == 0 {
		return nil, errors.New("password form not found")
	}
	action, ok := f.Attr("action")
	if !ok || action == "" {
		return nil, errors.New("password form without action")
	}

	t := &PasswordTask{
		site:      site,
		actionURL: site.absoluteURL(action),
		form: url.Values{
			"password": {password},
			"login":    {"Login"},
		},
	}

	params := queryParams(t.actionURL)
	site.setSID(params["sid"])
	if v, ok := params["t"]; ok {
		if id, err := strconv.Atoi(v); err == nil {
			t.topicID = id
		}
	}

	f.Find(`input[type="hidden"]`).Each(func(_ int, input *goquery.Selection) {
		name, ok := input.Attr("name")
		if !ok {
			return
		}
		value := input.AttrOr("value", "")
		t.form.Set(name, value)
		if name == "f" {
			if id, err := strconv.Atoi(value); err == nil {
				t.forumID = id
			}
		}
	})

	return t, nil
}

// Kind implements crawler.Task.
func (t *PasswordTask) Kind() crawler.Kind {
	return crawler.KindPassword
}

// String implements crawler.Task.
func (t *PasswordTask) String() string {
	if t.topicID != 0 {
		return fmt.Sprintf("password for topic %d", t.topicID)
	}
	return fmt.Sprintf("password for forum %d", t.forumID)
}

// BuildRequest implements crawler.Task.
func (t *PasswordTask) BuildRequest(ctx context.Context) (*http.Request, error) {
	if t.actionURL == "" {
		return nil, fmt.Errorf("%w: password task without action URL", crawler.ErrInternal)
	}
	req, err := t.site.newRequest(ctx, http.MethodPost, t.actionURL, strings.NewReader(t.form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req, nil
}

// Expand checks the submission result and, when unlocked, parses the
// returned page as the forum or topic it belongs to.
func (t *PasswordTask) Expand(ctx context.Context, res *crawler.FetchResult) (crawler.Outcome, error) {
	doc, err := parseDoc(res)
	if err != nil {
		return crawler.Outcome{}, err
	}

	if msg, ok := errorMessage(doc); ok {
		t.site.logger.Error("password submission failed", "target", t.String(), "message", msg)
		return crawler.Outcome{}, nil
	}
	if hasLoginForm(doc) {
		t.site.logger.Error("login required", "target", t.String())
		return crawler.Outcome{}, nil
	}
	if passwordRequired(doc) {
		t.site.logger.Error("wrong password provided", "target", t.String())
		return crawler.Outcome{}, nil
	}

	if strings.Contains(t.actionURL, "viewforum.php") {
		return NewForumTask(t.site, t.forumID, 0).Expand(ctx, res)
	}
	return NewTopicTask(t.site, t.topicID, 0).Expand(ctx, res)
}
