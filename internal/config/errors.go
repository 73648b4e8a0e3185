package config

import "errors"

// Sentinel errors returned by configuration validation and parsing.
// They are sentinels so the CLI layer can map them to exit codes with
// errors.Is instead of matching message text.
var (
	// ErrMissingURL is returned when no forum base URL was provided.
	ErrMissingURL = errors.New("forum base URL is required")

	// ErrInvalidURL is returned when the base URL cannot be parsed or
	// uses a scheme other than http/https.
	ErrInvalidURL = errors.New("forum base URL is not a valid http(s) URL")

	// ErrInvalidWorkers is returned when a worker count is not positive.
	ErrInvalidWorkers = errors.New("worker counts must be positive")

	// ErrInvalidRetries is returned when the retry bound is not positive.
	ErrInvalidRetries = errors.New("max retries must be positive")

	// ErrInvalidForce is returned when the force level is outside 0..2.
	ErrInvalidForce = errors.New("force level must be 0, 1 or 2")

	// ErrBadTargetRange is returned for malformed forum/topic id lists
	// such as "3-" or "5-2-9".
	ErrBadTargetRange = errors.New("malformed id range in target list")

	// ErrConfigNotFound is returned when an explicitly requested
	// configuration file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")
)
