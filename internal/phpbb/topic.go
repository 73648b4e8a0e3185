package phpbb

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nao1215/phpbbdump/internal/crawler"
	"github.com/nao1215/phpbbdump/internal/model"
)

// TopicTask fetches one page of a topic and contributes its posts to
// the topic's merged document.
type TopicTask struct {
	site    *Site
	topicID int
	start   int
}

// NewTopicTask creates a topic task for one page of topic id, starting
// at the given post offset.
func NewTopicTask(site *Site, topicID, start int) *TopicTask {
	return &TopicTask{site: site, topicID: topicID, start: start}
}

// Kind implements crawler.Task.
func (t *TopicTask) Kind() crawler.Kind {
	return crawler.KindTopic
}

// String implements crawler.Task.
func (t *TopicTask) String() string {
	return fmt.Sprintf("topic %d @ %d", t.topicID, t.start)
}

// BuildRequest implements crawler.Task.
func (t *TopicTask) BuildRequest(ctx context.Context) (*http.Request, error) {
	return t.site.newRequest(ctx, http.MethodGet, t.site.topicURL(t.topicID, t.start), nil)
}

// Expand parses the topic page into a shard contribution for the topic
// document, plus sibling page tasks when this is the first page. A
// parse failure anywhere on the page fails the whole page: a document
// merged from partially-parsed pages could not be told apart from a
// complete one.
func (t *TopicTask) Expand(_ context.Context, res *crawler.FetchResult) (crawler.Outcome, error) {
	if res.StatusCode != http.StatusOK {
		t.site.logger.Debug("topic page not available", "task", t.String(), "status", res.StatusCode)
		return crawler.Outcome{}, nil
	}

	doc, err := parseDoc(res)
	if err != nil {
		return crawler.Outcome{}, err
	}

	if msg, ok := errorMessage(doc); ok {
		t.site.logger.Error("failed to fetch topic", "topic", t.topicID, "message", msg)
		return crawler.Outcome{}, nil
	}
	if hasLoginForm(doc) {
		t.site.logger.Error("login required to scrape topic", "topic", t.topicID)
		return crawler.Outcome{}, nil
	}
	if passwordRequired(doc) {
		password, ok := t.site.cfg.TopicPasswords[t.topicID]
		if !ok {
			t.site.logger.Error("password required to scrape topic", "topic", t.topicID)
			return crawler.Outcome{}, nil
		}
		pt, err := newPasswordTask(t.site, doc, password)
		if err != nil {
			return crawler.Outcome{}, err
		}
		return crawler.Outcome{Tasks: []crawler.Task{pt}}, nil
	}

	title := doc.Find("div#page-body > h2.topic-title").First()
	if title.Length() == 0 {
		return crawler.Outcome{}, fmt.Errorf("topic %d has no title", t.topicID)
	}
	subject := strings.TrimSpace(title.Text())

	if doc.Find("div.action-bar > a > i.fa-lock").Length() != 0 {
		t.site.logger.Debug("topic is locked", "topic", t.topicID)
	}

	info, err := paginate(doc)
	if err != nil {
		return crawler.Outcome{}, err
	}
	if !info.found {
		return crawler.Outcome{}, fmt.Errorf("topic %d has no pagination bar", t.topicID)
	}
	if len(info.crumbs) == 0 {
		return crawler.Outcome{}, fmt.Errorf("topic %d has no breadcrumb path", t.topicID)
	}
	forum := info.crumbs[len(info.crumbs)-1]

	posts, err := t.parsePosts(doc, subject, forum)
	if err != nil {
		return crawler.Outcome{}, err
	}

	items := make([]any, len(posts))
	for i, p := range posts {
		items[i] = p
	}
	outcome := crawler.Outcome{
		Contribution: &crawler.Contribution{
			Key:    strconv.Itoa(t.topicID),
			Total:  info.total,
			Offset: t.start,
			Items:  items,
			Path:   info.crumbs,
			Save:   t.site.saveTopic,
		},
	}

	if t.start != 0 || !info.hasStart {
		return outcome, nil
	}
	for i := 1; i < info.pages; i++ {
		outcome.Tasks = append(outcome.Tasks, NewTopicTask(t.site, t.topicID, i*info.stride))
	}
	return outcome, nil
}

// parsePosts extracts every post on the page in display order.
func (t *TopicTask) parsePosts(doc *goquery.Document, subject string, forum model.Crumb) ([]model.Post, error) {
	var posts []model.Post
	var perr error
	doc.Find("div.post").EachWithBreak(func(_ int, p *goquery.Selection) bool {
		id := p.AttrOr("id", "")
		if len(id) < 2 {
			perr = fmt.Errorf("post element with malformed id %q", id)
			return false
		}
		pid := id[1:]
		msgID, err := strconv.Atoi(pid)
		if err != nil {
			perr = fmt.Errorf("post element with malformed id %q", id)
			return false
		}

		post := model.Post{
			MsgID:   msgID,
			Subject: subject,
			TopicID: t.topicID,
			Forum:   forum,
			Files:   []model.FileRef{},
		}

		if member := p.Find("div > dl.postprofile > dt > a").First(); member.Length() > 0 {
			uid, err := strconv.Atoi(queryParams(member.AttrOr("href", ""))["u"])
			if err != nil {
				perr = fmt.Errorf("post %s has a malformed profile link: %w", pid, err)
				return false
			}
			post.UID = uid
			post.User = strings.TrimSpace(member.Text())
		}

		author := p.Find("#post_content" + pid + " > p.author").First()
		if author.Length() == 0 {
			perr = fmt.Errorf("post %s has no author line", pid)
			return false
		}
		// The author line is "<permalink> by <user-span> » <date>";
		// dropping the permalink and the user span leaves the date.
		author.Find("a").First().Remove()
		author.Find("span").First().Remove()
		post.Date = t.site.parseDate(strings.TrimSpace(author.Text()))

		content := p.Find("#post_content" + pid + " > div.content").First()
		if content.Length() == 0 {
			perr = fmt.Errorf("post %s has no content", pid)
			return false
		}
		body, err := t.site.htmlToBBCode(content)
		if err != nil {
			perr = fmt.Errorf("failed to convert post %s: %w", pid, err)
			return false
		}
		post.Content = body.text
		post.Files = append(post.Files, body.files...)
		post.Media = body.media

		// Attachment boxes outside the content div (the "Attachments"
		// section under a post). Boxes inside the content were already
		// rendered as inline images.
		p.Find("dl.attachbox img.postimage").Each(func(_ int, img *goquery.Selection) {
			if img.Closest("div.content").Length() > 0 {
				return
			}
			post.Files = append(post.Files, model.FileRef{
				Name: img.AttrOr("alt", ""),
				URL:  t.site.absoluteURL(img.AttrOr("src", "")),
			})
		})

		posts = append(posts, post)
		return true
	})
	if perr != nil {
		return nil, perr
	}
	return posts, nil
}
