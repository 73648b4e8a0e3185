package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// TestLoadConfigFile tests YAML configuration loading and host merging.
func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("loads hosts and defaults", func(t *testing.T) {
		t.Parallel()

		path := filepath.Join(t.TempDir(), ".phpbbdump")
		content := `
defaults:
  userAgent: "archiver/1.0"
hosts:
  board.example.net:
    cookie: "phpbb3_sid=abc"
    charset: "windows-1251"
    forumPasswords:
      9: "secret"
`
		if err := os.WriteFile(path, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write fixture: %v", err)
		}

		cf, err := LoadConfigFile(path)
		if err != nil {
			t.Fatalf("unexpected load error: %v", err)
		}

		hc := cf.HostConfig("board.example.net")
		if hc.Cookie != "phpbb3_sid=abc" {
			t.Errorf("expected host cookie, got %q", hc.Cookie)
		}
		if hc.UserAgent != "archiver/1.0" {
			t.Errorf("expected default user agent to apply, got %q", hc.UserAgent)
		}
		if hc.ForumPasswords[9] != "secret" {
			t.Errorf("expected forum password, got %q", hc.ForumPasswords[9])
		}

		// Unknown hosts fall back to defaults alone.
		other := cf.HostConfig("other.example.net")
		if other.Cookie != "" || other.UserAgent != "archiver/1.0" {
			t.Errorf("expected bare defaults for unknown host, got %+v", other)
		}
	})

	t.Run("missing file is a sentinel error", func(t *testing.T) {
		t.Parallel()

		_, err := LoadConfigFile(filepath.Join(t.TempDir(), "nope"))
		if !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got: %v", err)
		}
	})
}

// TestApplyHostConfig tests the flags-win overlay.
func TestApplyHostConfig(t *testing.T) {
	t.Parallel()

	t.Run("fills only unset fields", func(t *testing.T) {
		t.Parallel()

		cfg := New()
		cfg.Cookie = "from-flag"

		cfg.ApplyHostConfig(HostConfig{
			Cookie:    "from-file",
			UserAgent: "file-agent",
			Charset:   "koi8-r",
			Headers:   map[string]string{"X-Forwarded-For": "10.0.0.1"},
		})

		if cfg.Cookie != "from-flag" {
			t.Errorf("flag cookie must win, got %q", cfg.Cookie)
		}
		if cfg.UserAgent != "file-agent" {
			t.Errorf("expected user agent filled from file, got %q", cfg.UserAgent)
		}
		if cfg.Charset != "koi8-r" {
			t.Errorf("expected charset filled from file, got %q", cfg.Charset)
		}
		if cfg.Headers["X-Forwarded-For"] != "10.0.0.1" {
			t.Errorf("expected header filled from file, got %v", cfg.Headers)
		}
	})

	t.Run("merges passwords without overriding flags", func(t *testing.T) {
		t.Parallel()

		cfg := New()
		cfg.ForumPasswords[9] = "from-flag"

		cfg.ApplyHostConfig(HostConfig{
			ForumPasswords: map[int]string{9: "from-file", 10: "extra"},
		})

		if cfg.ForumPasswords[9] != "from-flag" {
			t.Errorf("flag password must win, got %q", cfg.ForumPasswords[9])
		}
		if cfg.ForumPasswords[10] != "extra" {
			t.Errorf("expected file password merged in, got %q", cfg.ForumPasswords[10])
		}
	})
}
