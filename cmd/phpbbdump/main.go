// Package main provides the entry point for the phpbbdump CLI.
//
// phpbbdump crawls a phpBB board and archives it as a JSON directory
// tree: one file per topic, forum metadata along the way, and
// optionally attachments, inline media, and the member list.
//
// Usage:
//
//	phpbbdump scrape https://board.example.net/forum
//	phpbbdump scrape -f 5 -m -s https://board.example.net/forum
//
// See --help for all available options.
package main

// main is the entry point for phpbbdump.
func main() {
	Execute()
}
