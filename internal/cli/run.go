package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/parleybot/parley/internal/adapter"
	"github.com/parleybot/parley/internal/convo"
	"github.com/parleybot/parley/internal/kind"
	"github.com/parleybot/parley/internal/promptspec"
	"github.com/parleybot/parley/internal/store"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Database string
	User     string
	Channel  string
	BotName  string
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <pack-dir>",
		Short: "Run the engine interactively against a prompt pack",
		Long: `Run the context engine with a console adapter.

Every prompt in the pack is pushed to the configured user and channel,
then stdin lines are offered to the engine as incoming messages.
Resolved answers are printed as they arrive. Startup reconciles
persisted records from a previous run before the first prompt goes out.

Example:
  parley run --db ./parley.db ./packs/onboarding
  parley run --db /tmp/parley.db --user alice --channel general ./demo`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEngine(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite database (required)")
	cmd.Flags().StringVar(&opts.User, "user", "you", "user identifier for the console session")
	cmd.Flags().StringVar(&opts.Channel, "channel", "console", "channel identifier for the console session")
	cmd.Flags().StringVar(&opts.BotName, "bot", "parley", "bot name stripped as a mention marker")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runEngine(opts *RunOptions, packDir string, cmd *cobra.Command) error {
	logLevel := slog.LevelInfo
	if opts.Verbose {
		logLevel = slog.LevelDebug
	}
	handler := slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: logLevel})
	slog.SetDefault(slog.New(handler))

	slog.Info("loading prompt pack", "dir", packDir)
	pack, err := promptspec.Load(packDir)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to load prompt pack", err)
	}

	registry := kind.NewRegistry()
	if err := promptspec.Vet(pack.Prompts, registry); err != nil {
		return WrapExitError(ExitFailure, "prompt pack failed validation", err)
	}
	slog.Info("prompt pack loaded", "prompts", len(pack.Prompts), "files", pack.FileCount)

	st, err := store.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer func() {
		if closeErr := st.Close(); closeErr != nil {
			slog.Error("error closing database", "error", closeErr)
		}
	}()

	console := adapter.NewConsole(cmd.OutOrStdout(), nil)
	eng := convo.New(console, st, registry, convo.WithMentionMarkers(opts.BotName))

	parentCtx := cmd.Context()
	if parentCtx == nil {
		parentCtx = context.Background()
	}
	ctx, cancel := context.WithCancel(parentCtx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	loopDone := make(chan error, 1)
	go func() {
		loopDone <- eng.Run(ctx)
	}()

	// Reconcile leftovers from a previous run before the first push.
	// Every record cleanup sees must be an orphan; a record persisted by
	// this session's pushes belongs to a live queued context and must
	// not be retracted.
	if err := eng.Cleanup(ctx); err != nil {
		slog.Error("startup cleanup failed", "error", err)
	}

	var answers sync.WaitGroup
	for _, prompt := range pack.Prompts {
		answer, err := eng.Push(ctx, convo.PushRequest{
			Prompt:  prompt.Text,
			User:    adapter.ID(opts.User),
			Channel: adapter.ID(opts.Channel),
			Kind:    prompt.Kind,
			Extra:   prompt.Extra,
		})
		if err != nil {
			cancel()
			answers.Wait()
			<-loopDone
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to push prompt %q", prompt.Name), err)
		}
		answers.Add(1)
		go func() {
			defer answers.Done()
			printAnswer(ctx, cmd, prompt.Name, answer)
		}()
	}

	fmt.Fprintln(cmd.OutOrStdout(), "Engine started. Type replies below; Ctrl-C or Ctrl-D to stop.")

	scanner := bufio.NewScanner(cmd.InOrStdin())
	for scanner.Scan() {
		matched, err := eng.Check(ctx, adapter.Envelope{
			User:    opts.User,
			Channel: opts.Channel,
			Text:    scanner.Text(),
		})
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, convo.ErrStopped) {
				break
			}
			cancel()
			answers.Wait()
			<-loopDone
			return WrapExitError(ExitFailure, "check failed", err)
		}
		if !matched {
			fmt.Fprintln(cmd.OutOrStdout(), "(no pending question matched that reply)")
		}
	}

	cancel()
	answers.Wait()
	if err := <-loopDone; err != nil && !errors.Is(err, context.Canceled) {
		return WrapExitError(ExitFailure, "engine error", err)
	}

	slog.Info("engine stopped gracefully")
	return nil
}

// printAnswer waits for one prompt's future and prints the result.
// A future that never resolves (supersession) prints nothing; shutdown
// releases the wait through the run context so the goroutine never
// outlives the session.
func printAnswer(ctx context.Context, cmd *cobra.Command, name string, answer *convo.Answer) {
	select {
	case <-answer.Done():
	case <-ctx.Done():
	}
	if value, ok := answer.Value(); ok {
		fmt.Fprintf(cmd.OutOrStdout(), "answered %s: %v\n", name, value)
	}
}
