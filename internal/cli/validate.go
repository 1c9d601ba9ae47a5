package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/parleybot/parley/internal/kind"
	"github.com/parleybot/parley/internal/promptspec"
)

// ValidationResult holds validation results for JSON output.
type ValidationResult struct {
	Valid   bool                `json:"valid"`
	Prompts []promptspec.Prompt `json:"prompts,omitempty"`
	Errors  []string            `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <pack-dir>",
		Short: "Validate a CUE prompt pack",
		Long: `Validate a CUE prompt pack without running the engine.

Checks the pack against the structural schema and vets every prompt's
kind and extra arguments against the comparator registry, so malformed
definitions fail here instead of at the first reply.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, packDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	pack, err := promptspec.Load(packDir)
	if err != nil {
		var loadErr *promptspec.LoadError
		if errors.As(err, &loadErr) {
			_ = formatter.Fail(loadErr.Code, loadErr.Message, nil)
			return NewExitError(ExitCommandError, loadErr.Message)
		}
		_ = formatter.Fail(promptspec.ErrCodeInvalid, err.Error(), nil)
		return WrapExitError(ExitFailure, "pack validation failed", err)
	}

	formatter.VerboseLog("Found %d CUE file(s) in %s", pack.FileCount, packDir)

	if err := promptspec.Vet(pack.Prompts, kind.NewRegistry()); err != nil {
		_ = formatter.Fail(promptspec.ErrCodeInvalid, err.Error(), nil)
		return WrapExitError(ExitFailure, "pack validation failed", err)
	}

	if opts.Format == "json" {
		return formatter.Success(ValidationResult{Valid: true, Prompts: pack.Prompts})
	}
	return formatter.Success(fmt.Sprintf("pack valid: %d prompt(s)", len(pack.Prompts)))
}
