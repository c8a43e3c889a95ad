// Package cli holds the shared plumbing behind the promptloom commands:
// engine construction, store selection, signal handling and result rendering.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"

	"golang.org/x/term"

	"github.com/promptloom/promptloom"
	"github.com/promptloom/promptloom/internal/logging"
	"github.com/promptloom/promptloom/internal/presentation/tui"
	"github.com/promptloom/promptloom/pkg/adapters/redis"
	"github.com/promptloom/promptloom/pkg/chain"
	"github.com/promptloom/promptloom/pkg/domain"
)

// RunOptions configures a chain run from the command line.
type RunOptions struct {
	FilePath  string
	SessionID string
	StepMode  bool
	JSON      bool
	RedisAddr string
	Debug     bool
}

// CreateLogger builds the CLI logger, verbose when debug is set.
func CreateLogger(debug bool) *slog.Logger {
	if debug {
		return logging.New(slog.LevelDebug)
	}
	return logging.New(slog.LevelWarn)
}

// NewEngine constructs the engine for a command invocation, wiring the Redis
// store and locker when an address is given.
func NewEngine(opts RunOptions, logger *slog.Logger) (*promptloom.Engine, error) {
	engineOpts := []promptloom.Option{
		promptloom.WithLogger(logger),
	}

	if opts.RedisAddr != "" {
		store := redis.New(opts.RedisAddr, "", 0)
		engineOpts = append(engineOpts,
			promptloom.WithStore(store),
			promptloom.WithLocker(redis.NewLocker(store.Client(), "promptloom:")),
		)
	}

	return promptloom.New(opts.FilePath, engineOpts...)
}

// RunChain executes a chain (fully, or one step in step mode) and renders
// the outcome to stdout.
func RunChain(opts RunOptions) error {
	logger := CreateLogger(opts.Debug)

	interactive := !opts.JSON && term.IsTerminal(int(os.Stdout.Fd()))
	if interactive {
		tui.PrintBanner()
	}

	eng, err := NewEngine(opts, logger)
	if err != nil {
		return fmt.Errorf("error initializing promptloom: %w", err)
	}

	sessionID := opts.SessionID
	if sessionID == "" {
		sessionID = "default"
	}

	ctx, stop := NewSignalContext(context.Background())
	defer stop()

	var mc *chain.MatrixChain
	var done bool
	if opts.StepMode {
		done, mc, err = eng.Step(ctx, sessionID)
	} else {
		mc, err = eng.Run(ctx, sessionID)
		done = err == nil
	}
	if err != nil {
		if mc != nil {
			logger.Warn("chain stopped early", "session_id", sessionID, "cursor", mc.Cursor())
		}
		return err
	}

	if opts.JSON {
		return printJSON(os.Stdout, sessionID, mc, done)
	}
	return printReport(sessionID, mc, done, interactive)
}

func printJSON(w *os.File, sessionID string, mc *chain.MatrixChain, done bool) error {
	out := map[string]any{
		"session_id": sessionID,
		"status":     mc.Status(),
		"cursor":     mc.Cursor(),
		"steps":      mc.StepCount(),
		"done":       done,
		"context":    mc.Context().Snapshot(),
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// printReport renders the run as markdown, through glamour when attached to
// a terminal.
func printReport(sessionID string, mc *chain.MatrixChain, done bool, interactive bool) error {
	var b strings.Builder
	fmt.Fprintf(&b, "# Chain `%s`\n\n", sessionID)
	fmt.Fprintf(&b, "**Status:** %s · step %d of %d\n\n", mc.Status(), mc.Cursor(), mc.StepCount())

	snapshot := mc.Context().Snapshot()
	keys := make([]string, 0, len(snapshot))
	for key := range snapshot {
		if _, ok := domain.ParseRef(key); ok {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	if len(keys) > 0 {
		b.WriteString("## Responses\n\n")
		for _, key := range keys {
			fmt.Fprintf(&b, "- `%s`: %v\n", key, snapshot[key])
		}
		b.WriteString("\n")
	}

	if !done {
		b.WriteString("_Run again to continue from the current step._\n")
	}

	if interactive {
		render := tui.NewRenderer()
		if out, err := render(b.String()); err == nil {
			fmt.Print(out)
			return nil
		}
	}
	fmt.Print(b.String())
	return nil
}
