package report

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// SimpleWriter renders the summary as plain text for terminal display.
type SimpleWriter struct {
	baseWriter
}

// NewSimpleWriter creates a SimpleWriter that writes to output.
func NewSimpleWriter(output io.Writer) *SimpleWriter {
	return &SimpleWriter{baseWriter: newBaseWriter(output)}
}

// Write renders the summary in human-readable form.
func (w *SimpleWriter) Write(s *Summary) (int, error) {
	var sb strings.Builder

	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 60))
	sb.WriteString("\n")
	sb.WriteString("CRAWL SUMMARY\n")
	sb.WriteString(strings.Repeat("=", 60))
	sb.WriteString("\n\n")

	fmt.Fprintf(&sb, "Forum:            %s\n", s.URL)
	fmt.Fprintf(&sb, "Duration:         %s\n", s.Duration.Round(time.Millisecond))
	fmt.Fprintf(&sb, "Requests:         %d\n", s.Requests)
	if s.Resumed > 0 {
		fmt.Fprintf(&sb, "Already scraped:  %d\n", s.Resumed)
	}
	fmt.Fprintf(&sb, "Documents saved:  %d\n", s.DocumentsSaved)
	fmt.Fprintf(&sb, "Files saved:      %d\n", s.FilesSaved)
	fmt.Fprintf(&sb, "Dropped tasks:    %d", s.Dropped)
	if s.ParseFailures > 0 {
		fmt.Fprintf(&sb, " (%d parse failures)", s.ParseFailures)
	}
	sb.WriteString("\n")

	if len(s.Incomplete) > 0 {
		sb.WriteString("\nIncomplete documents:\n")
		for _, d := range s.Incomplete {
			fmt.Fprintf(&sb, "  %s\t%d of %d missing\n", d.Path, d.Remaining, d.Total)
		}
	}

	sb.WriteString(strings.Repeat("=", 60))
	sb.WriteString("\n")

	return w.output.Write([]byte(sb.String()))
}
