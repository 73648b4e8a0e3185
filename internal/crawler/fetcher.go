package crawler

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/cookiejar"

	"github.com/nao1215/phpbbdump/internal/config"
	"golang.org/x/net/html/charset"
	"golang.org/x/text/encoding/htmlindex"
)

// Fetcher is the network stage. It turns one Task into one FetchResult,
// retrying transient connection failures in place up to the configured
// bound. All document tasks share one cookie-jar client so the session
// id obtained from a password submission is visible to every worker;
// session-free file tasks use a separate bare client.
type Fetcher struct {
	// session is the shared forum client: cookie jar, keep-alive,
	// TLS verification disabled. Old boards run on expired or
	// self-signed certificates.
	session *http.Client

	// bare is a jar-less client for off-site media downloads.
	bare *http.Client

	maxRetries  int
	maxBodySize int64
	charset     string
	logger      *slog.Logger
}

// NewFetcher creates a Fetcher from the run configuration. A nil logger
// falls back to slog.Default.
func NewFetcher(cfg *config.Config, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}

	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: cfg.ConnectTimeout,
		}).DialContext,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: true, //nolint:gosec // Matches the scraper's permissive TLS policy for legacy boards
		},
	}

	jar, _ := cookiejar.New(nil) //nolint:errcheck // cookiejar.New never fails with nil options

	return &Fetcher{
		session: &http.Client{
			Transport: transport,
			Jar:       jar,
			Timeout:   cfg.ReadTimeout,
		},
		bare: &http.Client{
			Transport: transport,
			Timeout:   cfg.ReadTimeout,
		},
		maxRetries:  cfg.MaxRetries,
		maxBodySize: cfg.MaxBodySize,
		charset:     cfg.Charset,
		logger:      logger,
	}
}

// Session returns the shared forum client.
func (ft *Fetcher) Session() *http.Client {
	return ft.session
}

// Fetch issues the task's request and returns the response, retrying
// transient connection failures up to the retry bound. Errors are
// classified: ErrNotRetryable surfaces immediately without consuming
// the budget, ErrRetriesExhausted after the bound is spent. A request
// that cannot even be built because the task violates its own
// structural assumptions is fatal and panics; the crawl's internal
// model is inconsistent with the data it already produced.
func (ft *Fetcher) Fetch(ctx context.Context, t Task) (*FetchResult, error) {
	client := ft.session
	if sf, ok := t.(SessionFree); ok && sf.SessionFree() {
		client = ft.bare
	}

	var lastErr error
	for attempt := 0; attempt < ft.maxRetries; attempt++ {
		req, err := t.BuildRequest(ctx)
		if err != nil {
			if errors.Is(err, ErrInternal) {
				ft.logger.Error("internal consistency violation, aborting",
					"task", t.String(),
					"error", err,
				)
				panic(err)
			}
			return nil, fmt.Errorf("%w: %v", ErrNotRetryable, err)
		}
		if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
			ft.logger.Debug("unsupported URL scheme",
				"task", t.String(),
				"url", req.URL.String(),
			)
			return nil, fmt.Errorf("%w: unsupported scheme %q", ErrNotRetryable, req.URL.Scheme)
		}

		resp, err := client.Do(req)
		if err != nil {
			// Timeouts and connection-level failures count toward the
			// retry budget; the same task is retried in place.
			lastErr = err
			ft.logger.Debug("fetch attempt failed",
				"task", t.String(),
				"attempt", attempt+1,
				"error", err,
			)
			continue
		}

		body, err := io.ReadAll(io.LimitReader(resp.Body, ft.maxBodySize))
		_ = resp.Body.Close() //nolint:errcheck // Best effort close after full read
		if err != nil {
			lastErr = err
			continue
		}

		if t.Kind() != KindFile {
			body = ft.decode(body, resp.Header.Get("Content-Type"))
		}

		return &FetchResult{
			Task:       t,
			StatusCode: resp.StatusCode,
			Header:     resp.Header,
			Body:       body,
		}, nil
	}

	return nil, fmt.Errorf("%w after %d attempts: %v", ErrRetriesExhausted, ft.maxRetries, lastErr)
}

// decode converts a document body to UTF-8, honoring the Content-Type
// header and any meta charset found in the content. When neither
// declares an encoding the configured fallback applies; legacy phpBB
// boards commonly serve windows-1251 without saying so.
func (ft *Fetcher) decode(body []byte, contentType string) []byte {
	enc, name, certain := charset.DetermineEncoding(body, contentType)
	if !certain && name == "windows-1252" && ft.charset != "" {
		// windows-1252 is the sniffer's guess of last resort, not a
		// real detection. Prefer the configured board charset.
		if fallback, err := htmlindex.Get(ft.charset); err == nil {
			enc = fallback
		}
	}
	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return body
	}
	return decoded
}

