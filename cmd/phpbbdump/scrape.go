package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/nao1215/phpbbdump/internal/config"
	"github.com/nao1215/phpbbdump/internal/crawler"
	"github.com/nao1215/phpbbdump/internal/database"
	"github.com/nao1215/phpbbdump/internal/log"
	"github.com/nao1215/phpbbdump/internal/phpbb"
	"github.com/nao1215/phpbbdump/internal/report"
	"github.com/nao1215/phpbbdump/internal/store"
	"github.com/spf13/cobra"
)

// NewScrapeCmd creates the scrape command.
func NewScrapeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scrape <forum-url>",
		Short: "Crawl a phpBB board into a JSON archive",
		Long: `Scrape crawls a phpBB board and writes one JSON file per topic into a
directory tree mirroring the forum hierarchy.

Without -f or -t the whole board is crawled from the root. Documents
already on disk are skipped, so an interrupted run resumes where it
stopped; --force re-scrapes them, --force --force also re-downloads
files that already exist.

Forum and topic ids accept ranges and passwords:

  # Forums 1 through 4 plus 9
  phpbbdump scrape -f 1-4,9 https://board.example.net/forum

  # Topic 12345 behind a password
  phpbbdump scrape -t 12345:secret https://board.example.net/forum

  # Everything including attachments, media and the member list
  phpbbdump scrape -m -s -u https://board.example.net/forum

Configuration file (.phpbbdump) example:
  hosts:
    board.example.net:
      cookie: "phpbb3_sid=abc123"
      charset: "windows-1251"
      forumPasswords:
        9: "secret"`,
		Args: cobra.MaximumNArgs(1),
		RunE: runScrapeCmd,
	}

	// Target selection
	cmd.Flags().StringArrayP("forum", "f", nil,
		"Forum id(s) to scrape: '5', '1-4,9', '12:password' (repeatable)")
	cmd.Flags().StringArrayP("topic", "t", nil,
		"Topic id(s) to scrape, same syntax as --forum (repeatable)")
	cmd.Flags().BoolP("save-users", "u", false,
		"Scrape the member list (with avatars when combined with -m or -s)")

	// What to download
	cmd.Flags().BoolP("save-media", "m", false,
		"Download inline images referenced by posts")
	cmd.Flags().BoolP("save-attachments", "s", false,
		"Download post attachments")

	// Crawl behavior
	cmd.Flags().IntP("fetch-workers", "w", config.DefaultFetchWorkers,
		"Number of concurrent HTTP fetches")
	cmd.Flags().IntP("parse-workers", "p", config.DefaultParseWorkers,
		"Number of concurrent page parsers")
	cmd.Flags().IntP("retries", "r", config.DefaultMaxRetries,
		"Retry bound for transient connection failures")
	cmd.Flags().Count("force",
		"Re-scrape documents already on disk; given twice, also re-download existing files")
	cmd.Flags().Bool("parse-date", false,
		"Store dates as epoch seconds instead of the raw forum text")

	// Request shaping
	cmd.Flags().StringP("user-agent", "a", "",
		"Override the User-Agent request header")
	cmd.Flags().StringP("cookie", "c", "",
		"Send this Cookie header with every board request")

	// Output
	cmd.Flags().StringP("output", "o", "",
		"Output directory (default: the forum host name)")
	cmd.Flags().CountP("verbose", "v",
		"Raise log verbosity (-v info, -vv debug)")
	cmd.Flags().StringP("log-file", "l", "",
		"Write logs to this file instead of stderr")
	cmd.Flags().String("report", "",
		"Write a Markdown run report to this file instead of the stdout summary")
	cmd.Flags().String("config", "",
		"Configuration file path (default: .phpbbdump in current or home directory)")

	return cmd
}

// runScrapeCmd executes the scrape command.
func runScrapeCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, closeLog, err := log.NewWithFile(cfg.LogFile, cfg.Verbose)
	if err != nil {
		return err
	}
	defer func() { _ = closeLog() }() //nolint:errcheck // Best effort close on exit
	slog.SetDefault(logger)

	// Cancel the crawl on interrupt; in-flight documents are force
	// flushed so partial work is not lost.
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Info("received shutdown signal, cancelling...")
		cancel()
	}()

	return runScrape(ctx, cfg, logger)
}

// buildConfig creates a Config from cobra command flags plus the
// optional configuration file. Flags win over file values.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.New()

	if len(args) > 0 {
		cfg.URL = strings.TrimRight(args[0], "/")
	}

	var err error
	if cfg.FetchWorkers, err = cmd.Flags().GetInt("fetch-workers"); err != nil {
		return nil, err
	}
	if cfg.ParseWorkers, err = cmd.Flags().GetInt("parse-workers"); err != nil {
		return nil, err
	}
	if cfg.MaxRetries, err = cmd.Flags().GetInt("retries"); err != nil {
		return nil, err
	}
	if cfg.Force, err = cmd.Flags().GetCount("force"); err != nil {
		return nil, err
	}
	if cfg.SaveMedia, err = cmd.Flags().GetBool("save-media"); err != nil {
		return nil, err
	}
	if cfg.SaveAttachments, err = cmd.Flags().GetBool("save-attachments"); err != nil {
		return nil, err
	}
	if cfg.SaveUsers, err = cmd.Flags().GetBool("save-users"); err != nil {
		return nil, err
	}
	if cfg.ParseDate, err = cmd.Flags().GetBool("parse-date"); err != nil {
		return nil, err
	}
	if cfg.UserAgent, err = cmd.Flags().GetString("user-agent"); err != nil {
		return nil, err
	}
	if cfg.Cookie, err = cmd.Flags().GetString("cookie"); err != nil {
		return nil, err
	}
	if cfg.Output, err = cmd.Flags().GetString("output"); err != nil {
		return nil, err
	}
	if cfg.Verbose, err = cmd.Flags().GetCount("verbose"); err != nil {
		return nil, err
	}
	if cfg.LogFile, err = cmd.Flags().GetString("log-file"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = cmd.Flags().GetString("report"); err != nil {
		return nil, err
	}

	forumArgs, err := cmd.Flags().GetStringArray("forum")
	if err != nil {
		return nil, err
	}
	if cfg.Forums, err = config.ParseTargets(forumArgs, cfg.ForumPasswords); err != nil {
		return nil, err
	}
	topicArgs, err := cmd.Flags().GetStringArray("topic")
	if err != nil {
		return nil, err
	}
	if cfg.Topics, err = config.ParseTargets(topicArgs, cfg.TopicPasswords); err != nil {
		return nil, err
	}

	// Configuration file: an explicitly named file must exist; the
	// default lookup is best effort.
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	found := config.FindConfigFile(configPath)
	if found == "" && configPath != "" {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}
	if found != "" {
		cf, err := config.LoadConfigFile(found)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", found, err)
		}
		cfg.ApplyHostConfig(cf.HostConfig(cfg.Host()))
	}

	return cfg, nil
}

// runScrape executes the crawl.
func runScrape(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("starting scrape",
		"url", cfg.URL,
		"output", cfg.OutputRoot(),
		"forums", cfg.Forums,
		"topics", cfg.Topics,
		"fetchWorkers", cfg.FetchWorkers,
		"parseWorkers", cfg.ParseWorkers,
	)

	out := store.New(cfg.OutputRoot(), logger)

	// Force level 1+ ignores everything already on disk.
	var resume *store.ResumeIndex
	if cfg.Force == 0 {
		resume = store.ScanOutput(out.Root(), logger)
	}

	journal, err := database.Open(config.XDGDataDir(), cfg.Host())
	if err != nil {
		logger.Warn("crawl journal unavailable, drops will not be recorded", "error", err)
		journal = nil
	} else {
		defer func() { _ = journal.Close() }() //nolint:errcheck // Best effort close on exit
		logger.Info("crawl journal opened", "file", journal.Path())
	}

	site := phpbb.NewSite(cfg, out, resume, logger)
	fetcher := crawler.NewFetcher(cfg, logger)

	opts := []crawler.Option{
		crawler.WithLogger(logger),
		crawler.WithWorkers(cfg.FetchWorkers, cfg.ParseWorkers),
	}
	if journal != nil {
		opts = append(opts, crawler.WithJournal(journal))
	}
	engine := crawler.NewEngine(fetcher, opts...)

	seed, skipped := site.Seed()
	if len(seed) == 0 {
		logger.Info("everything requested is already scraped", "skipped", skipped)
	}

	summary, err := engine.Run(ctx, seed)
	if summary != nil {
		summary.URL = cfg.URL
		summary.Resumed = skipped
		summary.FilesSaved = out.FilesWritten()
		if werr := writeSummary(cfg, summary); werr != nil {
			logger.Error("failed to write summary", "error", werr)
		}
	}
	if err != nil {
		return fmt.Errorf("scrape interrupted: %w", err)
	}
	return nil
}

// writeSummary renders the run summary: Markdown to the --report file
// when given, a plain-text summary to stdout otherwise.
func writeSummary(cfg *config.Config, s *report.Summary) error {
	if cfg.ReportFile != "" {
		f, err := os.OpenFile(cfg.ReportFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create report file: %w", err)
		}
		defer func() { _ = f.Close() }() //nolint:errcheck // Best effort close after write
		_, err = report.NewMarkdownWriter(f).Write(s)
		return err
	}
	_, err := report.NewSimpleWriter(os.Stdout).Write(s)
	return err
}
