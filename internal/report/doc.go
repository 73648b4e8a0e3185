// Package report renders the end-of-run crawl summary as plain text or
// Markdown.
package report
