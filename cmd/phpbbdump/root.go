// Package main provides the entry point for the phpbbdump CLI.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/nao1215/phpbbdump/internal/config"
	"github.com/spf13/cobra"
)

// errUsage marks command-line parse failures, which exit with code 2
// so scripts can tell a bad invocation from a failed crawl.
var errUsage = errors.New("usage error")

// NewRootCmd creates the root command for phpbbdump.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "phpbbdump",
		Short: "Archive phpBB forums as JSON directory trees",
		Long: `phpbbdump crawls a phpBB board and archives it as a JSON directory
tree mirroring the forum hierarchy: one file per topic, _meta.json
forum descriptors along the way, and optionally attachments, inline
media, and the member list.

Interrupted runs resume for free: documents already on disk are
skipped on the next invocation unless --force is given.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", errUsage, err)
	})

	cmd.AddCommand(NewScrapeCmd())
	cmd.AddCommand(NewFailuresCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command and exits with 0 on success, 2 on a
// command-line error, 1 on anything else.
func Execute() {
	err := NewRootCmd().Execute()
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(exitCode(err))
}

// exitCode maps an execution error to the process exit code.
func exitCode(err error) int {
	if errors.Is(err, errUsage) || errors.Is(err, config.ErrBadTargetRange) {
		return 2
	}
	return 1
}
