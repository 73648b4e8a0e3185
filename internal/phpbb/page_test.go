package phpbb

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

// breadcrumbChrome is the breadcrumb fragment shared by the page
// fixtures: the board root, a category and the owning forum.
const breadcrumbChrome = `
<ul id="nav-breadcrumbs">
 <li class="breadcrumbs">
  <span class="crumb" data-forum-id="2"><a href="./viewforum.php?f=2"><span>General</span></a></span>
  <span class="crumb" data-forum-id="5"><a href="./viewforum.php?f=5"><span>Hardware</span></a></span>
 </li>
</ul>`

// parseFixture parses an HTML fixture into a goquery document.
func parseFixture(t *testing.T, body string) *goquery.Document {
	t.Helper()

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		t.Fatalf("failed to parse fixture: %v", err)
	}
	return doc
}

// TestPaginate tests breadcrumb and pagination extraction.
func TestPaginate(t *testing.T) {
	t.Parallel()

	t.Run("reads page count, stride and total from the bar", func(t *testing.T) {
		t.Parallel()

		doc := parseFixture(t, breadcrumbChrome+`
<div class="action-bar bar-top">
 <div class="pagination">
  45 posts
  <ul>
   <li class="active"><span>1</span></li>
   <li><a class="button" href="./viewtopic.php?t=77&amp;start=20">2</a></li>
   <li><a class="button" href="./viewtopic.php?t=77&amp;start=40">3</a></li>
   <li class="next"><a class="button" href="./viewtopic.php?t=77&amp;start=20">Next</a></li>
  </ul>
 </div>
</div>`)

		info, err := paginate(doc)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !info.found {
			t.Fatal("expected a pagination bar")
		}
		if info.pages != 3 || info.stride != 20 || info.total != 45 {
			t.Errorf("expected pages=3 stride=20 total=45, got %+v", info)
		}
		if !info.hasStart {
			t.Error("expected the last page link to carry a start offset")
		}
		if len(info.crumbs) != 2 || info.crumbs[1].ID != "5" || info.crumbs[1].Name != "Hardware" {
			t.Errorf("unexpected breadcrumbs: %v", info.crumbs)
		}
	})

	t.Run("infers the stride from elided page links", func(t *testing.T) {
		t.Parallel()

		// "1 … 7 8 9": adjacent visible links are several pages apart;
		// the smallest gap is the real per-page stride.
		doc := parseFixture(t, `
<div class="action-bar bar-top">
 <div class="pagination">
  170 posts
  <ul>
   <li class="active"><span>1</span></li>
   <li class="ellipsis"><span>…</span></li>
   <li><a class="button" href="./viewtopic.php?t=77&amp;start=120">7</a></li>
   <li><a class="button" href="./viewtopic.php?t=77&amp;start=140">8</a></li>
   <li><a class="button" href="./viewtopic.php?t=77&amp;start=160">9</a></li>
  </ul>
 </div>
</div>`)

		info, err := paginate(doc)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if info.pages != 9 || info.stride != 20 || info.total != 170 {
			t.Errorf("expected pages=9 stride=20 total=170, got %+v", info)
		}
	})

	t.Run("single page uses the total as stride", func(t *testing.T) {
		t.Parallel()

		doc := parseFixture(t, `
<div class="action-bar bar-top">
 <div class="pagination">7 posts • Page 1 of 1</div>
</div>`)

		info, err := paginate(doc)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !info.found || info.pages != 1 || info.total != 7 || info.stride != 7 {
			t.Errorf("expected a single 7-item page, got %+v", info)
		}
		if info.hasStart {
			t.Error("expected no start offset without page links")
		}
	})

	t.Run("missing bar is reported, not an error", func(t *testing.T) {
		t.Parallel()

		info, err := paginate(parseFixture(t, breadcrumbChrome))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if info.found || info.pages != 0 {
			t.Errorf("expected no pagination, got %+v", info)
		}
		if len(info.crumbs) != 2 {
			t.Errorf("expected breadcrumbs without a bar, got %v", info.crumbs)
		}
	})

	t.Run("bar without an item count is an error", func(t *testing.T) {
		t.Parallel()

		doc := parseFixture(t, `
<div class="action-bar bar-top">
 <div class="pagination"><ul><li><a class="button" href="./viewtopic.php?t=77&amp;start=20">2</a></li></ul></div>
</div>`)
		if _, err := paginate(doc); err == nil {
			t.Error("expected an error for a bar without an item count")
		}
	})

	t.Run("breadcrumb without a title is an error", func(t *testing.T) {
		t.Parallel()

		doc := parseFixture(t, `
<ul id="nav-breadcrumbs">
 <li class="breadcrumbs"><span class="crumb" data-forum-id="2"></span></li>
</ul>`)
		if _, err := paginate(doc); err == nil {
			t.Error("expected an error for a breadcrumb without a title")
		}
	})
}

// TestPageWalls tests recognition of error, login and password pages.
func TestPageWalls(t *testing.T) {
	t.Parallel()

	t.Run("error message", func(t *testing.T) {
		t.Parallel()

		doc := parseFixture(t, `<div id="message"><p>The requested topic does not exist.</p></div>`)
		msg, ok := errorMessage(doc)
		if !ok || msg != "The requested topic does not exist." {
			t.Errorf("expected the error text, got %q (%v)", msg, ok)
		}

		if _, ok := errorMessage(parseFixture(t, `<div id="page-body"></div>`)); ok {
			t.Error("expected no error message on a normal page")
		}
	})

	t.Run("login wall", func(t *testing.T) {
		t.Parallel()

		if !hasLoginForm(parseFixture(t, `<form id="login" action="./ucp.php?mode=login"></form>`)) {
			t.Error("expected login form detected")
		}
		if hasLoginForm(parseFixture(t, `<form id="search"></form>`)) {
			t.Error("expected no login form")
		}
	})

	t.Run("password prompt", func(t *testing.T) {
		t.Parallel()

		doc := parseFixture(t, `
<form id="login_forum" action="./viewforum.php?f=9&amp;sid=abc">
 <input type="password" id="password" name="password">
</form>`)
		if !passwordRequired(doc) {
			t.Error("expected password prompt detected")
		}

		// A login_forum form without a password field is something else.
		if passwordRequired(parseFixture(t, `<form id="login_forum"></form>`)) {
			t.Error("expected no password prompt without a password input")
		}
	})
}

// TestQueryParams tests query extraction from page-relative references.
func TestQueryParams(t *testing.T) {
	t.Parallel()

	q := queryParams("./viewtopic.php?f=5&t=77&start=20")
	if q["f"] != "5" || q["t"] != "77" || q["start"] != "20" {
		t.Errorf("unexpected params: %v", q)
	}
	if len(queryParams("://bad url")) != 0 {
		t.Error("expected empty params for an unparseable reference")
	}
}
