package phpbb

import (
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/nao1215/phpbbdump/internal/model"
)

// postBody is the result of converting one post's content div: the
// BBCode text, the attachment references extracted from it, and the
// inline image references collected for media download.
type postBody struct {
	text  string
	files []model.FileRef
	media []model.FileRef
}

// htmlToBBCode converts a rendered post body back to BBCode-style
// markup. phpBB renders each BBCode construct as a fixed HTML shape, so
// the conversion walks the tree and reverses each shape it recognizes;
// unrecognized elements contribute their text only. Any structural
// surprise (a smiley without alt text, a link without href) fails the
// conversion and the caller drops the whole page.
func (s *Site) htmlToBBCode(content *goquery.Selection) (postBody, error) {
	if len(content.Nodes) == 0 {
		return postBody{}, errors.New("empty content selection")
	}

	r := &bbRenderer{site: s, skip: make(map[*html.Node]struct{})}

	// Inline attachments become file references instead of markup.
	thumbs := content.Find("div.inline-attachment > dl.thumbnail img.postimage")
	thumbs.Each(func(_ int, img *goquery.Selection) {
		r.body.files = append(r.body.files, model.FileRef{
			Name: img.AttrOr("alt", ""),
			URL:  s.absoluteURL(img.AttrOr("src", "")),
		})
	})
	thumbs.Remove()

	links := content.Find("div.inline-attachment > dl.file a.postlink")
	links.Each(func(_ int, a *goquery.Selection) {
		r.body.files = append(r.body.files, model.FileRef{
			Name: strings.TrimSpace(a.Text()),
			URL:  s.absoluteURL(a.AttrOr("href", "")),
		})
	})
	links.Remove()

	// Edit notices, spoiler buttons and signatures carry no content.
	content.Find("div.notice").Remove()
	content.Find("div > input.button2").Remove()
	content.Find("div.signature").Remove()

	var sb strings.Builder
	for c := content.Nodes[0].FirstChild; c != nil; c = c.NextSibling {
		if err := r.render(&sb, c, false); err != nil {
			return postBody{}, err
		}
	}
	r.body.text = sb.String()
	return r.body, nil
}

// bbRenderer walks a post content tree emitting BBCode. skip holds
// nodes consumed by an enclosing construct (quote citations, spoiler
// titles) that must not render again as children.
type bbRenderer struct {
	site *Site
	body postBody
	skip map[*html.Node]struct{}
}

// render emits the BBCode for one node. inCode preserves newlines in
// text; everywhere else raw newlines are layout artifacts of the HTML
// and only <br> produces a line break.
func (r *bbRenderer) render(sb *strings.Builder, n *html.Node, inCode bool) error {
	if _, ok := r.skip[n]; ok {
		return nil
	}

	switch n.Type {
	case html.TextNode:
		if inCode {
			sb.WriteString(n.Data)
		} else {
			sb.WriteString(strings.ReplaceAll(n.Data, "\n", ""))
		}
		return nil
	case html.ElementNode:
		// handled below
	default:
		return nil
	}

	switch n.Data {
	case "br":
		sb.WriteString("\n")
		return nil
	case "script", "style":
		return nil
	case "pre":
		return r.renderWrapped(sb, n, "[code]", "[/code]", true)
	case "div":
		return r.renderDiv(sb, n, inCode)
	case "span":
		return r.renderSpan(sb, n, inCode)
	case "strong":
		return r.renderWrapped(sb, n, "[b]", "[/b]", inCode)
	case "em":
		if hasClass(n, "text-italics") {
			return r.renderWrapped(sb, n, "[i]", "[/i]", inCode)
		}
		return r.renderChildren(sb, n, inCode)
	case "li":
		sb.WriteString("[*]")
		return r.renderChildren(sb, n, inCode)
	case "ol":
		style, _ := nodeAttr(n, "style")
		switch {
		case strings.Contains(style, "list-style-type:lower-alpha"):
			return r.renderWrapped(sb, n, "[list=a]", "[/list]", inCode)
		case strings.Contains(style, "list-style-type:decimal"):
			return r.renderWrapped(sb, n, "[list=1]", "[/list]", inCode)
		default:
			return r.renderChildren(sb, n, inCode)
		}
	case "ul":
		return r.renderWrapped(sb, n, "[list]", "[/list]", inCode)
	case "a":
		return r.renderAnchor(sb, n, inCode)
	case "img":
		return r.renderImage(sb, n)
	case "blockquote":
		return r.renderQuote(sb, n, inCode)
	default:
		return r.renderChildren(sb, n, inCode)
	}
}

// renderChildren renders every child of n in order.
func (r *bbRenderer) renderChildren(sb *strings.Builder, n *html.Node, inCode bool) error {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if err := r.render(sb, c, inCode); err != nil {
			return err
		}
	}
	return nil
}

// renderWrapped renders the children between an opening and closing
// marker.
func (r *bbRenderer) renderWrapped(sb *strings.Builder, n *html.Node, open, closing string, inCode bool) error {
	sb.WriteString(open)
	if err := r.renderChildren(sb, n, inCode); err != nil {
		return err
	}
	sb.WriteString(closing)
	return nil
}

// renderDiv handles code boxes and spoilers; any other div is
// transparent.
func (r *bbRenderer) renderDiv(sb *strings.Builder, n *html.Node, inCode bool) error {
	if hasClass(n, "codebox") {
		pre := firstDescendant(n, "pre")
		if pre == nil {
			return errors.New("code box without a pre block")
		}
		sb.WriteString("[code]")
		sb.WriteString(nodeText(pre))
		sb.WriteString("[/code]")
		return nil
	}

	if style, ok := nodeAttr(n, "style"); ok && strings.Contains(style, "padding:") {
		title := firstDescendant(n, "span")
		if title == nil {
			return errors.New("spoiler block without a title span")
		}
		r.skip[title] = struct{}{}
		open := "[spoiler=" + escapeClosing(strings.TrimSpace(nodeText(title))) + "]"
		return r.renderWrapped(sb, n, open, "[/spoiler]", inCode)
	}

	return r.renderChildren(sb, n, inCode)
}

// renderSpan reverses the style-driven constructs: underline, color,
// size. A span carrying several wins with the first in that order,
// matching how the board renders nested markup as nested spans.
func (r *bbRenderer) renderSpan(sb *strings.Builder, n *html.Node, inCode bool) error {
	style, _ := nodeAttr(n, "style")
	switch {
	case strings.Contains(style, "text-decoration:underline"):
		return r.renderWrapped(sb, n, "[u]", "[/u]", inCode)
	case strings.Contains(style, "color:"):
		v, ok := styleValue(style, "color")
		if !ok {
			// "background-color:" also matches the substring; there is
			// no color to reverse, so the span is transparent.
			return r.renderChildren(sb, n, inCode)
		}
		return r.renderWrapped(sb, n, "[color="+v+"]", "[/color]", inCode)
	case strings.Contains(style, "font-size:"):
		v, ok := styleValue(style, "font-size")
		if !ok {
			return r.renderChildren(sb, n, inCode)
		}
		v = strings.TrimSuffix(v, "%")
		return r.renderWrapped(sb, n, "[size="+v+"]", "[/size]", inCode)
	default:
		return r.renderChildren(sb, n, inCode)
	}
}

// renderAnchor reverses [url] links. Other anchors are transparent.
func (r *bbRenderer) renderAnchor(sb *strings.Builder, n *html.Node, inCode bool) error {
	if !hasClass(n, "postlink") {
		return r.renderChildren(sb, n, inCode)
	}
	href, ok := nodeAttr(n, "href")
	if !ok {
		return errors.New("post link without href")
	}
	open := "[url=" + href + "]"
	if c := n.FirstChild; c != nil && c.NextSibling == nil && c.Type == html.TextNode && c.Data == href {
		// The bare [url]http://...[/url] form renders its target as
		// the link text.
		open = "[url]"
	}
	return r.renderWrapped(sb, n, open, "[/url]", inCode)
}

// renderImage reverses smilies, [img] and the fixed-height [fimg]
// form, collecting inline image references for media download.
func (r *bbRenderer) renderImage(sb *strings.Builder, n *html.Node) error {
	if hasClass(n, "smilies") {
		alt, ok := nodeAttr(n, "alt")
		if !ok {
			return errors.New("smiley without alt text")
		}
		sb.WriteString(alt)
		return nil
	}

	if hasClass(n, "postimage") {
		src, ok := nodeAttr(n, "src")
		if !ok {
			return errors.New("post image without src")
		}
		sb.WriteString("[img]")
		sb.WriteString(r.collectMedia(src))
		sb.WriteString("[/img]")
		return nil
	}

	if height, ok := nodeAttr(n, "height"); ok {
		src, ok := nodeAttr(n, "src")
		if !ok {
			return errors.New("sized image without src")
		}
		sb.WriteString("[fimg=" + height + "]")
		sb.WriteString(r.collectMedia(src))
		sb.WriteString("[/fimg]")
		return nil
	}

	return nil
}

// collectMedia records one inline image for download when media saving
// is on, returning the URL to embed in the markup. The query string is
// stripped so the URL ends in a usable file name.
func (r *bbRenderer) collectMedia(src string) string {
	if !r.site.cfg.SaveMedia || src == "" {
		return src
	}
	if src[0] == '.' {
		src = r.site.absoluteURL(src)
	}
	if i := strings.IndexAny(src, "?&"); i >= 0 {
		src = src[:i]
	}
	r.body.media = append(r.body.media, model.FileRef{Name: path.Base(src), URL: src})
	return src
}

// renderQuote reverses [quote] blocks, reconstructing the attribution
// from the citation line: author name, user id from the profile link,
// and the quoted post's timestamp.
func (r *bbRenderer) renderQuote(sb *strings.Builder, n *html.Node, inCode bool) error {
	who := ""
	if cite := firstDescendant(n, "cite"); cite != nil {
		r.skip[cite] = struct{}{}

		if a := firstDescendant(cite, "a"); a != nil {
			href, _ := nodeAttr(a, "href")
			name := escapeClosing(strings.TrimSpace(nodeText(a)))
			if u, ok := queryParams(href)["u"]; ok {
				who = fmt.Sprintf("=%s user_id=%s", name, u)
			} else {
				who = "=" + name
			}
		} else if s := singleString(cite); s != "" {
			// A plain citation reads "Username wrote:"; the last word
			// is the verb, the rest the attribution.
			name := strings.TrimSpace(s)
			if i := strings.LastIndex(name, " "); i >= 0 {
				name = name[:i]
			}
			who = "=" + escapeClosing(name)
		} else if text := strings.TrimSpace(nodeText(cite)); text != "" {
			who = "=" + text
		}

		if pt := firstDescendantWithClass(cite, "div", "responsive-hide"); pt != nil {
			qdate := strings.TrimSpace(nodeText(pt))
			if r.site.cfg.ParseDate {
				if ts, err := parseForumDate(qdate); err == nil {
					qdate = strconv.FormatInt(ts.Unix(), 10)
				}
			}
			who += " time=" + qdate
		}
	}

	return r.renderWrapped(sb, n, "[quote"+who+"]", "[/quote]", inCode)
}

// escapeClosing escapes "]" so attribution text cannot terminate its
// own tag.
func escapeClosing(s string) string {
	return strings.ReplaceAll(s, "]", `\]`)
}

// nodeAttr returns the value of the named attribute.
func nodeAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

// hasClass reports whether the node's class attribute contains name.
func hasClass(n *html.Node, name string) bool {
	class, ok := nodeAttr(n, "class")
	if !ok {
		return false
	}
	for _, c := range strings.Fields(class) {
		if c == name {
			return true
		}
	}
	return false
}

// styleValue extracts one property value from an inline style
// attribute.
func styleValue(style, name string) (string, bool) {
	for _, part := range strings.Split(style, ";") {
		k, v, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}
		if strings.TrimSpace(k) == name {
			return strings.TrimSpace(v), true
		}
	}
	return "", false
}

// nodeText returns the concatenated text of the subtree rooted at n.
func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(m *html.Node) {
		if m.Type == html.TextNode {
			sb.WriteString(m.Data)
		}
		for c := m.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// firstDescendant returns the first element named tag under n in
// document order, or nil.
func firstDescendant(n *html.Node, tag string) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == tag {
			return c
		}
		if found := firstDescendant(c, tag); found != nil {
			return found
		}
	}
	return nil
}

// firstDescendantWithClass returns the first element named tag carrying
// the class, or nil.
func firstDescendantWithClass(n *html.Node, tag, class string) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && c.Data == tag && hasClass(c, class) {
			return c
		}
		if found := firstDescendantWithClass(c, tag, class); found != nil {
			return found
		}
	}
	return nil
}

// singleString returns the text of a subtree that contains exactly one
// text node along a single-child chain, empty otherwise.
func singleString(n *html.Node) string {
	c := n.FirstChild
	if c == nil || c.NextSibling != nil {
		return ""
	}
	switch c.Type {
	case html.TextNode:
		return c.Data
	case html.ElementNode:
		return singleString(c)
	default:
		return ""
	}
}
