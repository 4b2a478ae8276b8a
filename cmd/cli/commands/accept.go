package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/carebridge/care-matching/pkg/core/services"
)

// AcceptCmd creates the accept command
func AcceptCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "accept <suggestion_id>",
		Short: "Accept a suggestion, optionally changing staff or times",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			decision, err := decisionFromFlags(cmd)
			if err != nil {
				return err
			}
			userID, _ := cmd.Flags().GetInt64("user")

			app.Logger.Debug("accept command", zap.String("suggestion_id", args[0]), zap.Int64("user_id", userID))

			assignmentID, err := app.Engine.AcceptSuggestion(app.Ctx, args[0], decision, userID)
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Suggestion accepted\n\nAssignment ID: %s\n\n", assignmentID)
			return nil
		},
	}

	cmd.Flags().Int64("staff", 0, "Assign this staff member instead of the suggested one")
	cmd.Flags().String("start", "", "Visit start (YYYY-MM-DDTHH:MM) instead of the suggested one")
	cmd.Flags().String("end", "", "Visit end (YYYY-MM-DDTHH:MM) instead of the suggested one")
	cmd.Flags().Int64("user", 0, "ID of the user making the decision")

	return cmd
}

// AcceptBatchCmd creates the acceptBatch command
func AcceptBatchCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "acceptBatch <decisions.yaml>",
		Short: "Accept a list of suggestions, each independently",
		Long: `Accept every decision in a YAML file, in order. Each item is its own transaction:
a failed item is reported and left pending without affecting the others.

  - suggestion_id: 6f1c...
    user_id: 12
  - suggestion_id: 9a0e...
    staff_id: 4
    start: 2025-01-06T10:00:00Z
    end: 2025-01-06T11:00:00Z`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read decisions file: %w", err)
			}

			var items []services.BatchItem
			if err := yaml.Unmarshal(data, &items); err != nil {
				return fmt.Errorf("failed to parse decisions file: %w", err)
			}

			app.Logger.Debug("acceptBatch command", zap.Int("items", len(items)))

			result := app.Engine.AcceptBatch(app.Ctx, items)

			fmt.Printf("\nBatch %s: %d accepted, %d failed\n\n", result.BatchID, len(result.Successful), len(result.Failed))
			for _, s := range result.Successful {
				fmt.Printf("  ✓ %s → assignment %s\n", s.SuggestionID, s.AssignmentID)
			}
			for _, f := range result.Failed {
				fmt.Printf("  ✗ %s: %v\n", f.SuggestionID, f.Err)
			}
			fmt.Println()

			return nil
		},
	}
}

// RejectCmd creates the reject command
func RejectCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reject <suggestion_id> [reason]",
		Short: "Reject a pending suggestion",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var reason string
			if len(args) > 1 {
				reason = args[1]
			}
			userID, _ := cmd.Flags().GetInt64("user")

			s, err := app.Engine.RejectSuggestion(app.Ctx, args[0], reason, userID)
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ Suggestion %s rejected after %ds\n\n", s.ID, *s.TimeToDecisionSeconds)
			return nil
		},
	}

	cmd.Flags().Int64("user", 0, "ID of the user making the decision")

	return cmd
}

func decisionFromFlags(cmd *cobra.Command) (services.Decision, error) {
	var d services.Decision

	if staffID, _ := cmd.Flags().GetInt64("staff"); staffID != 0 {
		d.StaffID = &staffID
	}
	if value, _ := cmd.Flags().GetString("start"); value != "" {
		start, err := parseDateTime("start", value)
		if err != nil {
			return d, err
		}
		d.Start = &start
	}
	if value, _ := cmd.Flags().GetString("end"); value != "" {
		end, err := parseDateTime("end", value)
		if err != nil {
			return d, err
		}
		d.End = &end
	}
	return d, nil
}
