package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// ExpireSuggestionsCmd creates the expireSuggestions command
func ExpireSuggestionsCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "expireSuggestions",
		Short: "Expire pending suggestions whose week has ended",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := app.Engine.ExpireSuggestions(app.Ctx)
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ %d suggestions expired\n\n", n)
			return nil
		},
	}
}

// RunSweeperCmd creates the runSweeper command
func RunSweeperCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "runSweeper",
		Short: "Run the expiry sweep on the configured schedule until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(app.Ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()

			schedule, err := app.Cfg.ExpirySweep.Schedule(time.Now())
			if err != nil {
				return err
			}

			app.Logger.Info("Expiry sweeper started", zap.String("rrule", app.Cfg.ExpirySweep.RRule))

			for {
				next := schedule.After(time.Now(), false)
				if next.IsZero() {
					app.Logger.Info("Expiry schedule exhausted")
					return nil
				}

				app.Logger.Debug("Next expiry sweep", zap.Time("at", next))
				if err := sleepUntil(ctx, next); err != nil {
					app.Logger.Info("Expiry sweeper stopped")
					return nil
				}

				if _, err := app.Engine.ExpireSuggestions(ctx); err != nil {
					app.Logger.Error("Expiry sweep failed", zap.Error(err))
				}
			}
		},
	}
}

// LedgerStatsCmd creates the ledgerStats command
func LedgerStatsCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "ledgerStats <from> <to>",
		Short: "Show suggestion outcome counts and acceptance rates",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parseDate("from", args[0])
			if err != nil {
				return err
			}
			to, err := parseDate("to", args[1])
			if err != nil {
				return err
			}

			stats, err := app.Engine.LedgerStats(app.Ctx, app.Cfg.OrganizationID, from, to)
			if err != nil {
				return err
			}

			fmt.Printf("\n📊 Suggestions created %s to %s\n\n", args[0], args[1])
			fmt.Printf("Total:     %d\n", stats.Total)
			fmt.Printf("Pending:   %d\n", stats.Pending)
			fmt.Printf("Accepted:  %d\n", stats.Accepted)
			fmt.Printf("Modified:  %d\n", stats.Modified)
			fmt.Printf("Rejected:  %d\n", stats.Rejected)
			fmt.Printf("Expired:   %d\n\n", stats.Expired)
			fmt.Printf("Acceptance rate:   %.1f%%\n", stats.AcceptanceRate*100)
			fmt.Printf("Modification rate: %.1f%%\n\n", stats.ModificationRate*100)

			return nil
		},
	}
}

func sleepUntil(ctx context.Context, at time.Time) error {
	timer := time.NewTimer(time.Until(at))
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
