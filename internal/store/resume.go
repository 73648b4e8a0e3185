package store

import (
	"io/fs"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
)

// ResumeIndex is the set of document ids already persisted under the
// output root. It is built once at startup and read-only afterwards;
// the crawl never re-checks the disk mid-run.
type ResumeIndex struct {
	ids map[string]struct{}
}

// ScanOutput walks the output tree once and collects the id of every
// per-document JSON file. _meta.json files name forum directories, not
// documents, and are skipped; anything else that is not an integer id
// or the users listing is ignored.
func ScanOutput(root string, logger *slog.Logger) *ResumeIndex {
	if logger == nil {
		logger = slog.Default()
	}

	idx := &ResumeIndex{ids: make(map[string]struct{})}

	logger.Info("searching for downloaded documents", "dir", root)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// A missing or unreadable subtree just means nothing to
			// resume there.
			return nil //nolint:nilerr // Walk continues past unreadable entries
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		if name == "_meta.json" || !strings.HasSuffix(name, ".json") {
			return nil
		}
		stem := strings.TrimSuffix(name, ".json")
		if stem == UsersKey {
			idx.ids[UsersKey] = struct{}{}
			return nil
		}
		if _, err := strconv.Atoi(stem); err == nil {
			idx.ids[stem] = struct{}{}
		}
		return nil
	})
	if err != nil {
		logger.Debug("resume scan stopped early", "error", err)
	}

	logger.Info("documents already scraped", "count", len(idx.ids))
	return idx
}

// Has reports whether the document id was already persisted. Nil-safe:
// a nil index (forced re-scrape) holds nothing.
func (r *ResumeIndex) Has(id string) bool {
	if r == nil {
		return false
	}
	_, ok := r.ids[id]
	return ok
}

// Len returns the number of indexed documents.
func (r *ResumeIndex) Len() int {
	if r == nil {
		return 0
	}
	return len(r.ids)
}
