package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/parleybot/parley/internal/adapter"
	"github.com/parleybot/parley/internal/convo"
	"github.com/parleybot/parley/internal/kind"
	"github.com/parleybot/parley/internal/store"
)

// PurgeResult holds purge results for JSON output.
type PurgeResult struct {
	Purged int `json:"purged"`
}

// NewPurgeCommand creates the purge command.
func NewPurgeCommand(rootOpts *RootOptions) *cobra.Command {
	var database string

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete orphaned pending-context records",
		Long: `Delete every persisted pending-context record from the database.

Offline counterpart of the startup cleanup: useful when the bot will not
be restarted soon but a crash left records behind. Runs with a discard
adapter, so no messages are retracted - only records are deleted.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPurge(rootOpts, database, cmd)
		},
	}

	cmd.Flags().StringVar(&database, "db", "", "path to SQLite database (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runPurge(opts *RootOptions, database string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	st, err := store.Open(database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	ctx := cmd.Context()

	before, err := st.Count(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to count records", err)
	}
	formatter.VerboseLog("Found %d pending-context record(s)", before)

	// Cleanup never starts the engine loop; the purge engine exists only
	// to reuse the reconciliation path.
	eng := convo.New(adapter.Discard{}, st, kind.NewRegistry())
	if err := eng.Cleanup(ctx); err != nil {
		return WrapExitError(ExitCommandError, "purge failed", err)
	}

	if opts.Format == "json" {
		return formatter.Success(PurgeResult{Purged: before})
	}
	return formatter.Success(fmt.Sprintf("purged %d record(s)", before))
}
