// Package database persists the crawl journal: every dropped task and
// every force-flushed incomplete document, in a per-host SQLite file,
// so failed subtrees can be listed and re-run manually.
package database
