// Package crawler implements the crawl orchestration engine: a dynamic
// work frontier, a bounded-retry fetch stage, a parse/expand stage, and
// a keyed document merger that reassembles paginated pages into complete
// logical documents exactly once.
package crawler
