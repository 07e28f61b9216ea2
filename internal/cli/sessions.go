package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/roach88/avhost/internal/journal"
)

// SessionsOptions holds flags for the sessions command.
type SessionsOptions struct {
	*RootOptions
	Database string
}

// NewSessionsCommand creates the sessions command.
func NewSessionsCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SessionsOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "sessions [session-id]",
		Short: "List recorded sessions or summarize one",
		Long: `Inspect a pacing journal written by "avhost run --journal".

Without an argument, lists every session. With a session id, prints the
aggregated pacing of that session.

Examples:
  avhost sessions --db ./pacing.db
  avhost sessions --db ./pacing.db 0192f0c4-...
  avhost sessions --db ./pacing.db --format json`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSessions(opts, args, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite journal (required)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runSessions(opts *SessionsOptions, args []string, cmd *cobra.Command) error {
	if _, err := os.Stat(opts.Database); err != nil {
		return NewExitError(ExitCommandError, fmt.Sprintf("journal not found: %s", opts.Database))
	}

	jr, err := journal.Open(opts.Database)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer jr.Close()

	out := opts.formatter(cmd)
	p := message.NewPrinter(language.English)
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if len(args) == 1 {
		sum, err := jr.Summarize(ctx, args[0])
		if errors.Is(err, journal.ErrSessionNotFound) {
			return NewExitError(ExitCommandError, fmt.Sprintf("session not found: %s", args[0]))
		}
		if err != nil {
			return WrapExitError(ExitFailure, "failed to summarize session", err)
		}
		return out.Success(sum, formatSummary(p, sum))
	}

	list, err := jr.ListSessions(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to list sessions", err)
	}
	if out.JSON() {
		return out.Success(list, "")
	}
	if len(list) == 0 {
		return out.Success(nil, "No sessions recorded.")
	}
	return out.Success(nil, formatSessionList(p, list))
}

func formatSessionList(p *message.Printer, list []journal.Session) string {
	s := p.Sprintf("%-36s  %-20s  %6s  %-8s  %s\n", "ID", "STARTED", "UPS", "END", "SCRIPT")
	for _, sess := range list {
		end := sess.EndReason
		if sess.EndedAt == nil {
			end = "running"
		}
		s += p.Sprintf("%-36s  %-20s  %6d  %-8s  %s\n",
			sess.ID,
			sess.StartedAt.Format(time.DateTime),
			sess.UpdatesPerSecond,
			end,
			sess.Script,
		)
	}
	return s + p.Sprintf("%d session(s)", len(list))
}

func formatSummary(p *message.Printer, sum journal.Summary) string {
	s := p.Sprintf("Session %s\n", sum.Session.ID)
	s += p.Sprintf("  script:        %s\n", sum.Session.Script)
	s += p.Sprintf("  started:       %s\n", sum.Session.StartedAt.Format(time.RFC3339))
	if sum.Session.EndedAt != nil {
		s += p.Sprintf("  ended:         %s (%s)\n", sum.Session.EndedAt.Format(time.RFC3339), sum.Session.EndReason)
	}
	s += p.Sprintf("  rate:          %d updates/s, bail after %d\n", sum.Session.UpdatesPerSecond, sum.Session.BailThreshold)
	s += p.Sprintf("  iterations:    %d\n", sum.Iterations)
	s += p.Sprintf("  updates:       %d (max %d per frame)\n", sum.Updates, sum.MaxUpdates)
	s += p.Sprintf("  bails:         %d (%d ticks dropped)\n", sum.Bails, sum.DroppedTicks)
	s += p.Sprintf("  idles/sleeps:  %d / %d\n", sum.Idles, sum.Sleeps)
	s += p.Sprintf("  last tick:     %d\n", sum.LastUpdated)
	s += p.Sprintf("  busy:          %.3fs", sum.BusySeconds)
	return s
}
