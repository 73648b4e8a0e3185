package config

import (
	"errors"
	"testing"
)

// TestConfigValidate tests configuration validation.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	valid := func() *Config {
		cfg := New()
		cfg.URL = "https://board.example.net/forum"
		return cfg
	}

	t.Run("accepts a valid configuration", func(t *testing.T) {
		t.Parallel()

		if err := valid().Validate(); err != nil {
			t.Errorf("unexpected validation error: %v", err)
		}
	})

	t.Run("rejects a missing URL", func(t *testing.T) {
		t.Parallel()

		cfg := New()
		if err := cfg.Validate(); !errors.Is(err, ErrMissingURL) {
			t.Errorf("expected ErrMissingURL, got: %v", err)
		}
	})

	t.Run("rejects a non-http URL", func(t *testing.T) {
		t.Parallel()

		cfg := valid()
		cfg.URL = "ftp://board.example.net"
		if err := cfg.Validate(); !errors.Is(err, ErrInvalidURL) {
			t.Errorf("expected ErrInvalidURL, got: %v", err)
		}
	})

	t.Run("rejects non-positive worker counts", func(t *testing.T) {
		t.Parallel()

		cfg := valid()
		cfg.FetchWorkers = 0
		if err := cfg.Validate(); !errors.Is(err, ErrInvalidWorkers) {
			t.Errorf("expected ErrInvalidWorkers, got: %v", err)
		}
	})

	t.Run("rejects an out-of-range force level", func(t *testing.T) {
		t.Parallel()

		cfg := valid()
		cfg.Force = 3
		if err := cfg.Validate(); !errors.Is(err, ErrInvalidForce) {
			t.Errorf("expected ErrInvalidForce, got: %v", err)
		}
	})
}

// TestConfigOutputRoot tests output directory resolution.
func TestConfigOutputRoot(t *testing.T) {
	t.Parallel()

	t.Run("defaults to the URL host", func(t *testing.T) {
		t.Parallel()

		cfg := New()
		cfg.URL = "https://board.example.net/forum"
		if got := cfg.OutputRoot(); got != "board.example.net" {
			t.Errorf("expected host as output root, got %q", got)
		}
	})

	t.Run("an explicit output wins", func(t *testing.T) {
		t.Parallel()

		cfg := New()
		cfg.URL = "https://board.example.net/forum"
		cfg.Output = "archive"
		if got := cfg.OutputRoot(); got != "archive" {
			t.Errorf("expected explicit output, got %q", got)
		}
	})
}
