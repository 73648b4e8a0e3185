package report

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

// testSummary returns a populated summary for the writer tests.
func testSummary() *Summary {
	return &Summary{
		URL:            "http://board.example.net",
		Duration:       90*time.Second + 250*time.Millisecond,
		Resumed:        3,
		Requests:       128,
		Dropped:        2,
		ParseFailures:  1,
		DocumentsSaved: 12,
		FilesSaved:     7,
		Incomplete: []IncompleteDocument{
			{Path: "General / Hardware / 77", Remaining: 20, Total: 45},
		},
	}
}

// TestSimpleWriter tests the plain-text summary.
func TestSimpleWriter(t *testing.T) {
	t.Parallel()

	t.Run("renders every field", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		n, err := NewSimpleWriter(&buf).Write(testSummary())
		if err != nil {
			t.Fatalf("unexpected write error: %v", err)
		}
		if n != buf.Len() {
			t.Errorf("expected %d bytes reported, got %d", buf.Len(), n)
		}

		out := buf.String()
		for _, want := range []string{
			"http://board.example.net",
			"1m30.25s",
			"Requests:         128",
			"Already scraped:  3",
			"Documents saved:  12",
			"Files saved:      7",
			"Dropped tasks:    2 (1 parse failures)",
			"General / Hardware / 77",
			"20 of 45 missing",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in output:\n%s", want, out)
			}
		}
	})

	t.Run("omits optional sections when empty", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		s := testSummary()
		s.Resumed = 0
		s.ParseFailures = 0
		s.Incomplete = nil
		if _, err := NewSimpleWriter(&buf).Write(s); err != nil {
			t.Fatalf("unexpected write error: %v", err)
		}

		out := buf.String()
		for _, unwanted := range []string{"Already scraped", "parse failures", "Incomplete documents"} {
			if strings.Contains(out, unwanted) {
				t.Errorf("did not expect %q in output:\n%s", unwanted, out)
			}
		}
	})
}

// TestMarkdownWriter tests the Markdown summary.
func TestMarkdownWriter(t *testing.T) {
	t.Parallel()

	t.Run("renders the statistics table", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		if _, err := NewMarkdownWriter(&buf).Write(testSummary()); err != nil {
			t.Fatalf("unexpected write error: %v", err)
		}

		out := buf.String()
		for _, want := range []string{
			"# Crawl Summary",
			"`http://board.example.net`",
			"## Incomplete Documents",
			"General / Hardware / 77",
		} {
			if !strings.Contains(out, want) {
				t.Errorf("expected %q in output:\n%s", want, out)
			}
		}
	})

	t.Run("complete run renders a tip instead of the incomplete table", func(t *testing.T) {
		t.Parallel()

		var buf bytes.Buffer
		s := testSummary()
		s.Incomplete = nil
		if _, err := NewMarkdownWriter(&buf).Write(s); err != nil {
			t.Fatalf("unexpected write error: %v", err)
		}

		out := buf.String()
		if !strings.Contains(out, "Every document merged completely.") {
			t.Errorf("expected completion tip in output:\n%s", out)
		}
		if strings.Contains(out, "## Incomplete Documents") {
			t.Errorf("did not expect incomplete table in output:\n%s", out)
		}
	})
}
