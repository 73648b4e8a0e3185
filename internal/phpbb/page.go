package phpbb

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/nao1215/phpbbdump/internal/crawler"
	"github.com/nao1215/phpbbdump/internal/model"
)

// firstNumber extracts the item count from the pagination bar text
// ("45 posts", "1234 members").
var firstNumber = regexp.MustCompile(`\d+`)

// parseDoc parses a fetched page body into a goquery document. The body
// has already been decoded to UTF-8 by the fetcher.
func parseDoc(res *crawler.FetchResult) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(res.Body))
	if err != nil {
		return nil, fmt.Errorf("failed to parse page: %w", err)
	}
	return doc, nil
}

// queryParams returns the query parameters of a URL reference, keeping
// the first value of each key. Unparseable references yield an empty
// map.
func queryParams(ref string) map[string]string {
	params := map[string]string{}
	u, err := url.Parse(ref)
	if err != nil {
		return params
	}
	for k, vs := range u.Query() {
		if len(vs) > 0 {
			params[k] = vs[0]
		}
	}
	return params
}

// pageInfo is what the shared page chrome yields: the breadcrumb path
// and the pagination figures needed to enumerate sibling pages and size
// the merged document.
type pageInfo struct {
	// crumbs is the breadcrumb path of forum (id, name) segments.
	crumbs model.Breadcrumbs

	// found reports whether the page carries a pagination bar at all.
	// Pages without one announce no item count.
	found bool

	// pages is the page count shown by the last page link, 1 when the
	// bar has no page links.
	pages int

	// stride is the item offset between consecutive pages, inferred as
	// the minimum delta between the page links' start parameters. A
	// single page uses total, keeping offset*stride arithmetic valid.
	stride int

	// total is the item count announced next to the page links.
	total int

	// hasStart reports whether the last page link carries a start
	// parameter; without one there are no sibling pages to enqueue.
	hasStart bool
}

// paginate extracts the breadcrumb path and pagination figures from the
// standard page chrome shared by forum, topic and member list pages.
func paginate(doc *goquery.Document) (pageInfo, error) {
	info := pageInfo{pages: 1}

	var crumbErr error
	doc.Find("#nav-breadcrumbs > li.breadcrumbs > span.crumb[data-forum-id]").Each(func(_ int, s *goquery.Selection) {
		name := s.Find("a span").First()
		if name.Length() == 0 {
			crumbErr = errors.New("breadcrumb without a title")
			return
		}
		info.crumbs = append(info.crumbs, model.Crumb{
			ID:   s.AttrOr("data-forum-id", ""),
			Name: strings.TrimSpace(name.Text()),
		})
	})
	if crumbErr != nil {
		return info, crumbErr
	}

	bar := doc.Find("div.action-bar.bar-top > div.pagination").First()
	if bar.Length() == 0 {
		info.pages = 0
		return info, nil
	}
	info.found = true

	links := bar.Find("ul > li:not(.next):not(.page-jump) > a.button")
	if links.Length() > 0 {
		last := links.Last()
		pages, err := strconv.Atoi(strings.TrimSpace(last.Text()))
		if err != nil {
			return info, fmt.Errorf("failed to parse page count: %w", err)
		}
		info.pages = pages
		_, info.hasStart = queryParams(last.AttrOr("href", ""))["start"]

		// Infer the per-page stride as the smallest gap between the
		// start offsets the page links expose. Boards elide middle
		// links ("1 ... 7 8 9"), so adjacent visible links may be
		// several pages apart; the minimum gap is the true stride.
		starts := map[int]struct{}{0: {}}
		links.Each(func(_ int, link *goquery.Selection) {
			q := queryParams(link.AttrOr("href", ""))
			if v, ok := q["start"]; ok {
				if n, err := strconv.Atoi(v); err == nil {
					starts[n] = struct{}{}
				}
			}
		})
		sorted := make([]int, 0, len(starts))
		for n := range starts {
			sorted = append(sorted, n)
		}
		sort.Ints(sorted)
		for i := 1; i < len(sorted); i++ {
			if d := sorted[i] - sorted[i-1]; info.stride == 0 || d < info.stride {
				info.stride = d
			}
		}
	}

	total, err := paginationTotal(bar)
	if err != nil {
		return info, err
	}
	info.total = total
	if info.pages == 1 {
		info.stride = info.total
	}
	return info, nil
}

// paginationTotal reads the item count announced in the pagination bar,
// skipping the page-link list and anchors so only the "N posts" text
// remains.
func paginationTotal(bar *goquery.Selection) (int, error) {
	if len(bar.Nodes) == 0 {
		return 0, errors.New("pagination bar missing")
	}

	var sb strings.Builder
	var collect func(n *html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "ul" || n.Data == "a") {
			return
		}
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	for c := bar.Nodes[0].FirstChild; c != nil; c = c.NextSibling {
		collect(c)
	}

	m := firstNumber.FindString(sb.String())
	if m == "" {
		return 0, errors.New("item count missing in pagination bar")
	}
	return strconv.Atoi(m)
}

// errorMessage returns the board error text ("The requested topic does
// not exist.") when the page is an error page.
func errorMessage(doc *goquery.Document) (string, bool) {
	p := doc.Find("#message p").First()
	if p.Length() == 0 {
		return "", false
	}
	return strings.TrimSpace(p.Text()), true
}

// hasLoginForm reports whether the page is a login wall.
func hasLoginForm(doc *goquery.Document) bool {
	return doc.Find("form#login").Length() > 0
}

// passwordRequired reports whether the page is a forum/topic password
// prompt.
func passwordRequired(doc *goquery.Document) bool {
	f := doc.Find("form#login_forum").First()
	return f.Length() > 0 && f.Find("input#password").Length() > 0
}
