package phpbb

import (
	"testing"

	"github.com/nao1215/phpbbdump/internal/config"
)

// TestHTMLToBBCode tests the reverse conversion of the shapes phpBB
// renders for each markup construct.
func TestHTMLToBBCode(t *testing.T) {
	t.Parallel()

	site := newTestSite(t, nil)

	cases := []struct {
		name string
		in   string
		want string
	}{
		{
			name: "plain text with line breaks",
			in:   "first line<br>\nsecond line",
			want: "first line\nsecond line",
		},
		{
			name: "bold and italics",
			in:   `some <strong class="text-strong">bold</strong> and <em class="text-italics">italic</em> words`,
			want: "some [b]bold[/b] and [i]italic[/i] words",
		},
		{
			name: "underline span",
			in:   `<span style="text-decoration:underline">underlined</span>`,
			want: "[u]underlined[/u]",
		},
		{
			name: "color span",
			in:   `<span style="color:#FF0000">red</span>`,
			want: "[color=#FF0000]red[/color]",
		},
		{
			name: "background color is not a color tag",
			in:   `<span style="background-color:#FFFF00">marked</span>`,
			want: "marked",
		},
		{
			name: "size span drops the percent sign",
			in:   `<span style="font-size:150%; line-height:normal">big</span>`,
			want: "[size=150]big[/size]",
		},
		{
			name: "code box",
			in: `<div class="codebox"><p>Code: <a href="#">Select all</a></p><pre><code>if err != nil {
	return err
}</code></pre></div>`,
			want: "[code]if err != nil {\n\treturn err\n}[/code]",
		},
		{
			name: "unordered list",
			in:   `<ul><li>first</li><li>second</li></ul>`,
			want: "[list][*]first[*]second[/list]",
		},
		{
			name: "ordered list variants",
			in:   `<ol style="list-style-type:decimal"><li>one</li></ol><ol style="list-style-type:lower-alpha"><li>a</li></ol>`,
			want: "[list=1][*]one[/list][list=a][*]a[/list]",
		},
		{
			name: "bare url renders its target as text",
			in:   `<a href="http://example.net/page" class="postlink">http://example.net/page</a>`,
			want: "[url]http://example.net/page[/url]",
		},
		{
			name: "named url",
			in:   `<a href="http://example.net/page" class="postlink">the page</a>`,
			want: "[url=http://example.net/page]the page[/url]",
		},
		{
			name: "plain anchor is transparent",
			in:   `<a href="./memberlist.php?mode=viewprofile&amp;u=7">alice</a>`,
			want: "alice",
		},
		{
			name: "smiley renders its code",
			in:   `<img class="smilies" src="./images/smilies/icon_e_smile.gif" alt=":)" title="Smile">`,
			want: ":)",
		},
		{
			name: "quote with profile link and timestamp",
			in: `<blockquote><div><cite><a href="./memberlist.php?mode=viewprofile&amp;u=7">alice</a> wrote: <div class="responsive-hide">Sat Mar 14, 2020 2:47 pm</div></cite>quoted text</div></blockquote>`,
			want: "[quote=alice user_id=7 time=Sat Mar 14, 2020 2:47 pm]quoted text[/quote]",
		},
		{
			name: "quote with a plain citation drops the verb",
			in:   `<blockquote><div><cite>Bob the Builder wrote:</cite>can we fix it</div></blockquote>`,
			want: "[quote=Bob the Builder]can we fix it[/quote]",
		},
		{
			name: "anonymous quote",
			in:   `<blockquote><div>just quoted</div></blockquote>`,
			want: "[quote]just quoted[/quote]",
		},
		{
			name: "spoiler block",
			in:   `<div style="padding: 5px;"><div><span><strong>Hint</strong></span></div><div>hidden text</div></div>`,
			want: "[spoiler=Hint]hidden text[/spoiler]",
		},
		{
			name: "edit notice and signature are dropped",
			in:   `kept<div class="notice">Last edited by alice.</div><div class="signature">-- alice</div>`,
			want: "kept",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			body, err := site.htmlToBBCode(contentOf(t, tc.in))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if body.text != tc.want {
				t.Errorf("expected %q, got %q", tc.want, body.text)
			}
		})
	}
}

// TestHTMLToBBCodeImages tests inline image handling and media
// collection.
func TestHTMLToBBCodeImages(t *testing.T) {
	t.Parallel()

	t.Run("post image collects media when saving is on", func(t *testing.T) {
		t.Parallel()

		site := newTestSite(t, func(cfg *config.Config) { cfg.SaveMedia = true })
		body, err := site.htmlToBBCode(contentOf(t, `<img class="postimage" src="http://cdn.example.net/pic.png?x=1" alt="Image">`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		// The query string is stripped so the URL ends in a file name.
		if body.text != "[img]http://cdn.example.net/pic.png[/img]" {
			t.Errorf("unexpected markup: %q", body.text)
		}
		if len(body.media) != 1 || body.media[0].Name != "pic.png" || body.media[0].URL != "http://cdn.example.net/pic.png" {
			t.Errorf("unexpected media: %v", body.media)
		}
	})

	t.Run("post image keeps its URL verbatim when saving is off", func(t *testing.T) {
		t.Parallel()

		site := newTestSite(t, nil)
		body, err := site.htmlToBBCode(contentOf(t, `<img class="postimage" src="http://cdn.example.net/pic.png?x=1" alt="Image">`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if body.text != "[img]http://cdn.example.net/pic.png?x=1[/img]" {
			t.Errorf("unexpected markup: %q", body.text)
		}
		if len(body.media) != 0 {
			t.Errorf("expected no media collected, got %v", body.media)
		}
	})

	t.Run("sized image renders the fixed-height form", func(t *testing.T) {
		t.Parallel()

		site := newTestSite(t, func(cfg *config.Config) { cfg.SaveMedia = true })
		body, err := site.htmlToBBCode(contentOf(t, `<img src="./images/banner.png" height="120">`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if body.text != "[fimg=120]http://board.example.net/images/banner.png[/fimg]" {
			t.Errorf("unexpected markup: %q", body.text)
		}
		if len(body.media) != 1 || body.media[0].Name != "banner.png" {
			t.Errorf("unexpected media: %v", body.media)
		}
	})

	t.Run("inline attachments become file references", func(t *testing.T) {
		t.Parallel()

		site := newTestSite(t, nil)
		body, err := site.htmlToBBCode(contentOf(t, `
before
<div class="inline-attachment">
 <dl class="thumbnail">
  <dt><a href="./download/file.php?id=5&amp;mode=view"><img class="postimage" src="./download/file.php?id=5&amp;t=1" alt="photo.jpg"></a></dt>
 </dl>
</div>
<div class="inline-attachment">
 <dl class="file">
  <dt><a class="postlink" href="./download/file.php?id=9">notes.txt</a></dt>
 </dl>
</div>
after`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if body.text != "beforeafter" {
			t.Errorf("expected attachments removed from markup, got %q", body.text)
		}
		if len(body.files) != 2 {
			t.Fatalf("expected 2 file references, got %v", body.files)
		}
		if body.files[0].Name != "photo.jpg" || body.files[0].URL != "http://board.example.net/download/file.php?id=5&t=1" {
			t.Errorf("unexpected thumbnail reference: %v", body.files[0])
		}
		if body.files[1].Name != "notes.txt" || body.files[1].URL != "http://board.example.net/download/file.php?id=9" {
			t.Errorf("unexpected file reference: %v", body.files[1])
		}
	})
}

// TestHTMLToBBCodeErrors tests that structural surprises fail the whole
// conversion.
func TestHTMLToBBCodeErrors(t *testing.T) {
	t.Parallel()

	site := newTestSite(t, nil)

	cases := []struct {
		name string
		in   string
	}{
		{"smiley without alt text", `<img class="smilies" src="./images/smilies/x.gif">`},
		{"post link without href", `<a class="postlink">dangling</a>`},
		{"code box without a pre block", `<div class="codebox"><p>Code:</p></div>`},
		{"spoiler without a title span", `<div style="padding: 5px;"><div>hidden</div></div>`},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if _, err := site.htmlToBBCode(contentOf(t, tc.in)); err == nil {
				t.Error("expected a conversion error")
			}
		})
	}
}
