package report

import (
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
)

// MarkdownWriter renders the summary as Markdown, for the --report
// file.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that writes to output.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{baseWriter: newBaseWriter(output)}
}

// Write renders the summary as a Markdown document.
func (w *MarkdownWriter) Write(s *Summary) (int, error) {
	md := markdown.NewMarkdown(w.output)

	md.H1("Crawl Summary")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Forum", "`" + s.URL + "`"},
			{"Duration", s.Duration.Round(time.Millisecond).String()},
			{"Requests", strconv.Itoa(s.Requests)},
			{"Already scraped", strconv.Itoa(s.Resumed)},
			{"Documents saved", strconv.Itoa(s.DocumentsSaved)},
			{"Files saved", strconv.Itoa(s.FilesSaved)},
			{"Dropped tasks", strconv.Itoa(s.Dropped)},
			{"Parse failures", strconv.Itoa(s.ParseFailures)},
		},
	})
	md.PlainText("")

	if len(s.Incomplete) == 0 {
		md.Tip("Every document merged completely.")
	} else {
		md.Warningf("%d document(s) were saved incomplete; re-run with --force to retry them.", len(s.Incomplete))
		md.PlainText("")
		md.H2("Incomplete Documents")
		md.PlainText("")

		rows := make([][]string, 0, len(s.Incomplete))
		for _, d := range s.Incomplete {
			rows = append(rows, []string{
				d.Path,
				strconv.Itoa(d.Remaining),
				strconv.Itoa(d.Total),
			})
		}
		md.Table(markdown.TableSet{
			Header: []string{"Document", "Missing", "Total"},
			Rows:   rows,
		})
	}

	return len(md.String()), md.Build()
}
