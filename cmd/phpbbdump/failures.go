package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/nao1215/phpbbdump/internal/config"
	"github.com/nao1215/phpbbdump/internal/database"
	"github.com/spf13/cobra"
)

// NewFailuresCmd creates the failures command.
func NewFailuresCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "failures <forum-host>",
		Short: "List dropped tasks and incomplete documents from past runs",
		Long: `Failures lists what past scrape runs of a forum host could not finish:
tasks dropped after exhausting their retries or failing to parse, and
documents that were saved incomplete. Use it to decide which forums or
topics to re-run with --force.

Example:
  phpbbdump failures board.example.net`,
		Args: cobra.ExactArgs(1),
		RunE: runFailuresCmd,
	}
}

// runFailuresCmd executes the failures command.
func runFailuresCmd(cmd *cobra.Command, args []string) error {
	journal, err := database.Open(config.XDGDataDir(), args[0])
	if err != nil {
		return fmt.Errorf("failed to open crawl journal: %w", err)
	}
	defer func() { _ = journal.Close() }() //nolint:errcheck // Best effort close on exit

	ctx := cmd.Context()
	drops, err := journal.Drops(ctx)
	if err != nil {
		return err
	}
	incomplete, err := journal.Incomplete(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(drops) == 0 && len(incomplete) == 0 {
		fmt.Fprintf(out, "No failures recorded for %s\n", args[0])
		return nil
	}

	if len(drops) > 0 {
		fmt.Fprintf(out, "Dropped tasks (%d):\n", len(drops))
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "WHEN\tKIND\tTARGET\tREASON")
		for _, d := range drops {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
				d.CreatedAt.Format("2006-01-02 15:04:05"), d.Kind, d.Target, d.Reason)
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	if len(incomplete) > 0 {
		fmt.Fprintf(out, "\nIncomplete documents (%d):\n", len(incomplete))
		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "WHEN\tDOCUMENT\tMISSING\tTOTAL")
		for _, d := range incomplete {
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\n",
				d.CreatedAt.Format("2006-01-02 15:04:05"), d.Path, d.Remaining, d.Total)
		}
		if err := w.Flush(); err != nil {
			return err
		}
	}

	return nil
}
