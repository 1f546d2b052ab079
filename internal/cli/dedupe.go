package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// DedupeOptions holds flags for the dedupe command.
type DedupeOptions struct {
	*RootOptions
	DryRun bool
}

// DuplicateReport is one duplicate group in JSON output.
type DuplicateReport struct {
	Position string   `json:"position"`
	Keep     string   `json:"keep"`
	Remove   []string `json:"remove"`
}

// DedupeResult is the JSON payload of the dedupe command.
type DedupeResult struct {
	Groups    []DuplicateReport `json:"groups"`
	Removed   int               `json:"removed"`
	Remaining int               `json:"remaining"`
	DryRun    bool              `json:"dry_run"`
}

// NewDedupeCommand creates the dedupe command.
func NewDedupeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DedupeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "dedupe",
		Short: "Remove bookmarks that share a position",
		Long: `Find bookmarks stored at the same book, page and offsets. In each
group the oldest stored bookmark, the one match returns, is kept and the
rest are removed in one transaction.

Examples:
  readmark dedupe --dry-run
  readmark dedupe`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDedupe(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "only report duplicates")

	return cmd
}

func runDedupe(opts *DedupeOptions, cmd *cobra.Command) error {
	s, err := openSession(cmd, opts.RootOptions)
	if err != nil {
		return err
	}
	defer s.close()

	ctx := commandContext(cmd)
	groups, err := s.svc.FindDuplicatePositions(ctx)
	if err != nil {
		return s.fail(ExitFailure, CodeDedupeFailed, "dedupe failed", err)
	}

	result := DedupeResult{Groups: make([]DuplicateReport, 0, len(groups)), DryRun: opts.DryRun}
	for _, g := range groups {
		report := DuplicateReport{Position: g.Position.String(), Keep: g.Keep().ID}
		for _, b := range g.Extra() {
			report.Remove = append(report.Remove, b.ID)
		}
		result.Groups = append(result.Groups, report)
	}

	if !opts.DryRun && len(groups) > 0 {
		if result.Removed, err = s.svc.RemoveDuplicatePositions(ctx); err != nil {
			return s.fail(ExitFailure, CodeDedupeFailed, "dedupe failed", err)
		}
	}
	if result.Remaining, err = s.store.Count(ctx); err != nil {
		return s.fail(ExitFailure, CodeDedupeFailed, "dedupe failed", err)
	}

	if s.out.Format == "json" {
		return s.out.Success(result)
	}

	w := s.out.Writer
	if len(result.Groups) == 0 {
		fmt.Fprintln(w, "No duplicate positions.")
		return nil
	}
	for _, g := range result.Groups {
		fmt.Fprintf(w, "%s: keep %s, remove %v\n", g.Position, g.Keep, g.Remove)
	}
	if opts.DryRun {
		fmt.Fprintln(w, "Dry run: nothing removed.")
		return nil
	}
	fmt.Fprintf(w, "Removed %d duplicate bookmark(s), %d remain\n", result.Removed, result.Remaining)
	return nil
}
