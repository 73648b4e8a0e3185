package phpbb

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/nao1215/phpbbdump/internal/config"
	"github.com/nao1215/phpbbdump/internal/crawler"
	"github.com/nao1215/phpbbdump/internal/model"
	"github.com/nao1215/phpbbdump/internal/store"
)

// testBoard serves a minimal phpBB board: one forum with three topics
// across two listing pages, one of the topics spanning two pages, and
// one downloadable attachment.
func testBoard(t *testing.T) *httptest.Server {
	t.Helper()

	crumbs := `<ul id="nav-breadcrumbs"><li class="breadcrumbs"><span class="crumb" data-forum-id="2"><a href="./viewforum.php?f=2"><span>General</span></a></span></li></ul>`

	forumBar := `<div class="action-bar bar-top"><div class="pagination">3 topics <ul><li class="active"><span>1</span></li><li><a class="button" href="./viewforum.php?f=2&amp;start=2">2</a></li></ul></div></div>`

	topicRow := func(id int, title string) string {
		return fmt.Sprintf(`<li class="row"><dl><dt><a class="topictitle" href="./viewtopic.php?f=2&amp;t=%d">%s</a></dt></dl></li>`, id, title)
	}

	topicPage := func(title, bar, posts string) string {
		return crumbs + bar + `<div id="page-body"><h2 class="topic-title"><a href="#">` + title + `</a></h2>` + posts + `</div>`
	}
	singleBar := `<div class="action-bar bar-top"><div class="pagination">1 post</div></div>`
	splitBar := `<div class="action-bar bar-top"><div class="pagination">4 posts <ul><li class="active"><span>1</span></li><li><a class="button" href="./viewtopic.php?t=301&amp;start=2">2</a></li></ul></div></div>`

	attachedPost := `
<div class="post" id="p3021">
 <div class="inner">
  <dl class="postprofile"><dt><a href="./memberlist.php?mode=viewprofile&amp;u=9" class="username">bob</a></dt></dl>
  <div class="postbody" id="post_content3021">
   <p class="author"><a class="unread" href="#p3021"><i class="icon"></i></a><span class="responsive-hide">by bob &raquo; </span>Sat Mar 14, 2020 3:02 pm</p>
   <div class="content">see attachment</div>
   <dl class="attachbox"><dt>Attachments</dt><dd><dl class="file"><dt><img class="postimage" src="./download/file.php?id=3" alt="diag.png"></dt></dl></dd></dl>
  </div>
 </div>
</div>`

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `<div id="page-body"><div class="forabg"><ul>`+
			`<li class="row"><dl><dt><a class="forumtitle" href="./viewforum.php?f=2">General</a></dt></dl></li>`+
			`</ul></div></div>`)
	})
	mux.HandleFunc("/viewforum.php", func(w http.ResponseWriter, r *http.Request) {
		rows := topicRow(301, "Alpha") + topicRow(302, "Beta")
		if r.URL.Query().Get("start") == "2" {
			rows = topicRow(303, "Gamma")
		}
		fmt.Fprint(w, crumbs+forumBar+`<div id="page-body"><div class="forumbg"><ul>`+rows+`</ul></div></div>`)
	})
	mux.HandleFunc("/viewtopic.php", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch q.Get("t") {
		case "301":
			base := 3010
			offset := 0
			if q.Get("start") == "2" {
				offset = 2
			}
			posts := postHTML(base+offset+1, 7, "alice", "Sat Mar 14, 2020 2:47 pm", fmt.Sprintf("post %d", offset+1)) +
				postHTML(base+offset+2, 7, "alice", "Sat Mar 14, 2020 2:48 pm", fmt.Sprintf("post %d", offset+2))
			fmt.Fprint(w, topicPage("Alpha", splitBar, posts))
		case "302":
			fmt.Fprint(w, topicPage("Beta", singleBar, attachedPost))
		case "303":
			fmt.Fprint(w, topicPage("Gamma", singleBar,
				postHTML(3031, 9, "bob", "Sun Mar 15, 2020 9:00 am", "last one")))
		default:
			http.NotFound(w, r)
		}
	})
	mux.HandleFunc("/download/file.php", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte{0x89, 'P', 'N', 'G'})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

// TestCrawlBoard crawls the test board end to end through the real
// fetcher, engine and store.
func TestCrawlBoard(t *testing.T) {
	t.Parallel()

	server := testBoard(t)
	out := t.TempDir()

	cfg := config.New()
	cfg.URL = server.URL
	cfg.SaveAttachments = true
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	st := store.New(out, logger)
	site := NewSite(cfg, st, nil, logger)
	engine := crawler.NewEngine(
		crawler.NewFetcher(cfg, logger),
		crawler.WithLogger(logger),
		crawler.WithWorkers(4, 2),
	)

	seed, skipped := site.Seed()
	if skipped != 0 {
		t.Fatalf("expected nothing skipped on a fresh crawl, got %d", skipped)
	}
	summary, err := engine.Run(context.Background(), seed)
	if err != nil {
		t.Fatalf("crawl failed: %v", err)
	}

	if summary.DocumentsSaved != 3 {
		t.Errorf("expected 3 documents saved, got %d", summary.DocumentsSaved)
	}
	if summary.Dropped != 0 || summary.ParseFailures != 0 {
		t.Errorf("expected no drops, got dropped=%d parseFailures=%d", summary.Dropped, summary.ParseFailures)
	}
	// Root + 2 listing pages + 4 topic pages + 1 attachment.
	if summary.Requests != 8 {
		t.Errorf("expected 8 processed requests, got %d", summary.Requests)
	}
	if len(summary.Incomplete) != 0 {
		t.Errorf("expected every document complete, got %v", summary.Incomplete)
	}

	// The split topic merged its two shards in offset order.
	data, err := os.ReadFile(filepath.Join(out, "2", "301.json"))
	if err != nil {
		t.Fatalf("expected topic 301 on disk: %v", err)
	}
	var posts []model.Post
	if err := json.Unmarshal(data, &posts); err != nil {
		t.Fatalf("failed to decode topic 301: %v", err)
	}
	if len(posts) != 4 {
		t.Fatalf("expected 4 merged posts, got %d", len(posts))
	}
	for i, want := range []int{3011, 3012, 3013, 3014} {
		if posts[i].MsgID != want {
			t.Errorf("post %d: expected msg id %d, got %d", i, want, posts[i].MsgID)
		}
	}

	for _, name := range []string{"2/_meta.json", "2/302.json", "2/303.json"} {
		if _, err := os.Stat(filepath.Join(out, filepath.FromSlash(name))); err != nil {
			t.Errorf("expected %s on disk: %v", name, err)
		}
	}

	// The attachment referenced by topic 302 was downloaded.
	if !st.FileExists([]string{"2", "302", "files"}, "diag.png") {
		t.Error("expected the attachment saved under the topic's files directory")
	}
	if st.FilesWritten() != 1 {
		t.Errorf("expected 1 file written, got %d", st.FilesWritten())
	}
}

// TestCrawlBoardResume re-crawls after a completed run and verifies the
// resume index suppresses finished topics.
func TestCrawlBoardResume(t *testing.T) {
	t.Parallel()

	server := testBoard(t)
	out := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	cfg := config.New()
	cfg.URL = server.URL

	run := func(resume *store.ResumeIndex) *crawler.Engine {
		t.Helper()
		site := NewSite(cfg, store.New(out, logger), resume, logger)
		engine := crawler.NewEngine(crawler.NewFetcher(cfg, logger), crawler.WithLogger(logger))
		seed, _ := site.Seed()
		if _, err := engine.Run(context.Background(), seed); err != nil {
			t.Fatalf("crawl failed: %v", err)
		}
		return engine
	}

	run(nil)

	// Second run: every topic is indexed, so no topic task is enqueued
	// and no document is saved again.
	engine := run(store.ScanOutput(out, logger))
	if saved := engine.Merger().Saved(); saved != 0 {
		t.Errorf("expected no documents re-saved on resume, got %d", saved)
	}
}
