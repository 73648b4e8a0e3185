package config

import (
	"net/url"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values. Where a value mirrors a knob of the
// classic scraper (retry bound, timeouts) the original default is kept
// so existing archives continue to grow under the same behavior.
const (
	// DefaultFetchWorkers is the number of concurrent HTTP fetches.
	// Forum software tolerates modest parallelism; raising this mostly
	// shifts load onto the remote host rather than speeding up parsing.
	DefaultFetchWorkers = 10

	// DefaultParseWorkers is the number of concurrent page expansions.
	// Parsing is CPU-bound; a small pool keeps the fetch pool fed
	// without oversubscribing the host.
	DefaultParseWorkers = 4

	// DefaultMaxRetries bounds attempts for transient connection
	// failures. Three attempts ride out brief hiccups without stalling
	// the crawl on a dead host.
	DefaultMaxRetries = 3

	// DefaultConnectTimeout is the TCP connect timeout per request.
	DefaultConnectTimeout = 500 * time.Millisecond

	// DefaultReadTimeout is the total per-request timeout covering the
	// response read. Large topic pages on slow boards need headroom.
	DefaultReadTimeout = 15 * time.Second

	// DefaultCharset is assumed for responses that declare no charset.
	// Legacy phpBB boards, particularly Russian-language ones, commonly
	// serve windows-1251 without saying so.
	DefaultCharset = "windows-1251"

	// DefaultMaxBodySize limits how much of a response body is read.
	// Topic pages are small; the limit mainly caps runaway media
	// downloads at something survivable.
	DefaultMaxBodySize = 64 * 1024 * 1024

	// AppName is the application name used for XDG directory paths.
	AppName = "phpbbdump"
)

// Config holds every option for a scrape run. It is built once from CLI
// flags plus the optional configuration file, validated, and then passed
// read-only to each component; nothing mutates it after startup.
type Config struct {
	// URL is the forum base URL, e.g. "https://board.example.net/forum".
	URL string

	// Output is the output directory root. Empty means the URL host.
	Output string

	// FetchWorkers is the size of the network fetch pool.
	FetchWorkers int

	// ParseWorkers is the size of the page expansion pool.
	ParseWorkers int

	// MaxRetries bounds in-place retries of transient fetch failures.
	MaxRetries int

	// ConnectTimeout is the TCP connect timeout per request.
	ConnectTimeout time.Duration

	// ReadTimeout is the total per-request timeout.
	ReadTimeout time.Duration

	// Force is the re-scrape level: 0 respects the resume index,
	// 1 ignores it for documents, 2 additionally re-downloads media
	// that already exists on disk.
	Force int

	// SaveMedia enables downloading of inline images referenced by posts.
	SaveMedia bool

	// SaveAttachments enables downloading of post attachments.
	SaveAttachments bool

	// SaveUsers enables scraping of the member list (and avatars, when
	// combined with SaveMedia or SaveAttachments).
	SaveUsers bool

	// ParseDate converts dates to epoch seconds instead of keeping the
	// raw forum strings.
	ParseDate bool

	// UserAgent overrides the User-Agent request header when non-empty.
	UserAgent string

	// Cookie is sent verbatim as the Cookie request header when non-empty.
	Cookie string

	// Headers are extra request headers from the configuration file.
	Headers map[string]string

	// Charset is assumed for responses without a declared charset.
	Charset string

	// MaxBodySize limits how many bytes of a response body are read.
	MaxBodySize int64

	// Verbose raises the log level: 0 warn, 1 info, 2+ debug.
	Verbose int

	// LogFile writes logs to a file instead of stderr when non-empty.
	LogFile string

	// ReportFile writes the final summary as Markdown to this path
	// instead of printing a plain-text summary to stdout.
	ReportFile string

	// Forums are the forum ids to scrape. Empty together with Topics
	// (and SaveUsers unset) means the whole board from the root.
	Forums []int

	// Topics are the individual topic ids to scrape.
	Topics []int

	// ForumPasswords maps forum id to the password unlocking it.
	ForumPasswords map[int]string

	// TopicPasswords maps topic id to the password unlocking it.
	TopicPasswords map[int]string
}

// New returns a Config with all defaults applied.
func New() *Config {
	return &Config{
		FetchWorkers:   DefaultFetchWorkers,
		ParseWorkers:   DefaultParseWorkers,
		MaxRetries:     DefaultMaxRetries,
		ConnectTimeout: DefaultConnectTimeout,
		ReadTimeout:    DefaultReadTimeout,
		Charset:        DefaultCharset,
		MaxBodySize:    DefaultMaxBodySize,
		Headers:        make(map[string]string),
		ForumPasswords: make(map[int]string),
		TopicPasswords: make(map[int]string),
	}
}

// Validate checks the configuration, returning the first problem found.
// It is called once after flag and file parsing, before any crawling.
func (c *Config) Validate() error {
	if c.URL == "" {
		return ErrMissingURL
	}
	u, err := url.Parse(c.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return ErrInvalidURL
	}
	if c.FetchWorkers <= 0 || c.ParseWorkers <= 0 {
		return ErrInvalidWorkers
	}
	if c.MaxRetries <= 0 {
		return ErrInvalidRetries
	}
	if c.Force < 0 || c.Force > 2 {
		return ErrInvalidForce
	}
	return nil
}

// Host returns the host part of the base URL. Validate must have passed.
func (c *Config) Host() string {
	u, err := url.Parse(c.URL)
	if err != nil {
		return ""
	}
	return u.Host
}

// OutputRoot returns the output directory, defaulting to the URL host.
func (c *Config) OutputRoot() string {
	if c.Output != "" {
		return c.Output
	}
	return c.Host()
}

// XDGDataDir returns the XDG data directory for phpbbdump. The crawl
// journal database lives here, one file per forum host.
// On Linux: ~/.local/share/phpbbdump
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}
