package store

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/nao1215/phpbbdump/internal/model"
)

// UsersKey is the document key and directory name of the member list.
const UsersKey = "users"

// filesDir is the subdirectory holding a document's media downloads.
const filesDir = "files"

// unsafeChars are replaced with underscores in file names taken from
// page content.
var unsafeChars = regexp.MustCompile(`[/\\|:]`)

// Store writes the output tree under one root directory. Methods are
// safe for concurrent use; the only shared state is the write-once
// check for _meta.json files.
type Store struct {
	root   string
	logger *slog.Logger

	// mu serializes meta-chain writes so two topics completing in
	// sibling goroutines cannot both create the same _meta.json.
	mu sync.Mutex

	// filesWritten counts media/attachment files persisted.
	filesWritten atomic.Int64
}

// New creates a Store rooted at dir. A nil logger falls back to
// slog.Default.
func New(dir string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{root: dir, logger: logger}
}

// Root returns the output root directory.
func (s *Store) Root() string {
	return s.root
}

// FilesWritten returns how many media files have been saved.
func (s *Store) FilesWritten() int {
	return int(s.filesWritten.Load())
}

// SaveTopic persists a topic document: the posts array as
// <topic-id>.json inside the breadcrumb directory chain, with a
// _meta.json {id, name} written once per chain segment.
func (s *Store) SaveTopic(path model.Breadcrumbs, id string, posts []model.Post) error {
	dir := filepath.Join(append([]string{s.root}, path.Dirs()...)...)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create topic directory: %w", err)
	}
	if err := s.writeMetaChain(path); err != nil {
		return err
	}

	name := filepath.Join(dir, id+".json")
	s.logger.Info("saving topic", "posts", len(posts), "file", name)
	return writeJSON(name, posts)
}

// SaveUsers persists the member list as users/users.json.
func (s *Store) SaveUsers(users []model.User) error {
	dir := filepath.Join(s.root, UsersKey)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create users directory: %w", err)
	}

	name := filepath.Join(dir, UsersKey+".json")
	s.logger.Info("saving users", "users", len(users), "file", name)
	return writeJSON(name, users)
}

// SaveFile writes one downloaded media file under the given directory
// segments. The name is sanitized and given a ".unk" extension when it
// has none.
func (s *Store) SaveFile(dirs []string, name string, data []byte) error {
	full := s.FilePath(dirs, name)
	if err := os.MkdirAll(filepath.Dir(full), 0750); err != nil {
		return fmt.Errorf("failed to create file directory: %w", err)
	}
	if err := os.WriteFile(full, data, 0600); err != nil {
		return fmt.Errorf("failed to save file: %w", err)
	}
	s.filesWritten.Add(1)
	s.logger.Debug("saved file", "file", full, "bytes", len(data))
	return nil
}

// FileExists reports whether the sanitized path for a media file is
// already on disk.
func (s *Store) FileExists(dirs []string, name string) bool {
	info, err := os.Stat(s.FilePath(dirs, name))
	return err == nil && !info.IsDir()
}

// FilePath returns the on-disk path for a media file name under the
// given directory segments.
func (s *Store) FilePath(dirs []string, name string) string {
	return filepath.Join(append(append([]string{s.root}, dirs...), SanitizeName(name))...)
}

// MediaDirs returns the directory segments holding a document's media:
// the breadcrumb ids, the document key, then "files".
func MediaDirs(path model.Breadcrumbs, key string) []string {
	return append(append([]string{}, path.Dirs()...), key, filesDir)
}

// UsersMediaDirs returns the directory segments holding member avatars.
func UsersMediaDirs() []string {
	return []string{UsersKey, filesDir}
}

// SanitizeName makes a page-supplied file name safe for the local
// filesystem and guarantees it carries an extension.
func SanitizeName(name string) string {
	name = unsafeChars.ReplaceAllString(name, "_")
	i := strings.LastIndex(name, ".")
	if i < 0 || i == len(name)-1 {
		return strings.TrimSuffix(name, ".") + ".unk"
	}
	return name
}

// writeMetaChain writes a _meta.json {id, name} file for every segment
// of the breadcrumb path that does not already have one. Existing files
// are never overwritten; the first crawl to reach a forum names it.
func (s *Store) writeMetaChain(path model.Breadcrumbs) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := s.root
	for _, crumb := range path {
		dir = filepath.Join(dir, crumb.ID)
		name := filepath.Join(dir, "_meta.json")
		if _, err := os.Stat(name); err == nil {
			continue
		}
		meta := struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		}{ID: crumb.ID, Name: crumb.Name}
		if err := writeJSON(name, meta); err != nil {
			return fmt.Errorf("failed to create forum metadata %s: %w", name, err)
		}
	}
	return nil
}

// writeJSON marshals v and writes it to name.
func writeJSON(name string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	if err := os.WriteFile(name, data, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	return nil
}
