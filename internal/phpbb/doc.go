// Package phpbb implements the page objects for phpBB boards: forum
// listings, topic pages, the member list, password submissions and file
// downloads. Each page object knows how to build its request and how to
// expand its response into new crawl tasks and shard contributions,
// including the HTML-to-BBCode transformation of post bodies.
package phpbb
