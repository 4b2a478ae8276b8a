package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/carebridge/care-matching/pkg/core/marketplace"
)

// GenerateSuggestionsCmd creates the generateSuggestions command
func GenerateSuggestionsCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "generateSuggestions <week_start> [week_end]",
		Short: "Generate pending staff suggestions for every unscheduled requirement",
		Long:  "Rank staff for each unscheduled care requirement in the window and record one pending suggestion per requirement. Re-running returns the suggestions already pending.",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			weekStart, weekEnd, err := weekRange(args)
			if err != nil {
				return err
			}

			app.Logger.Debug("generateSuggestions command",
				zap.Time("week_start", weekStart),
				zap.Time("week_end", weekEnd))

			result, err := app.Engine.GenerateSuggestions(app.Ctx, app.Cfg.OrganizationID, weekStart, weekEnd)
			if err != nil {
				return err
			}

			fmt.Printf("\n✓ %d suggestions (%d new, %d already pending)\n\n",
				len(result.Suggestions), result.Created, result.Existing)

			for _, s := range result.Suggestions {
				fmt.Printf("  %s  patient %-6d service %-4d staff %-6s %-24s %s\n",
					s.ID, s.PatientID, s.ServiceTypeID,
					staffLabel(s.SuggestedStaffID),
					slotLabel(s.SuggestedStart, s.SuggestedEnd),
					scoreLabel(s.ConfidenceScore, s.MatchTier))
				printPartners(result.PartnerOptions[s.ID])
			}
			fmt.Println()

			return nil
		},
	}
}

// SuggestionCmd creates the suggestion command
func SuggestionCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suggestion <patient_id> <service_type_id> <week_start> [week_end]",
		Short: "Suggest staff for one patient's service, with alternatives",
		Args:  cobra.RangeArgs(3, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			patientID, err := parseID("patient_id", args[0])
			if err != nil {
				return err
			}
			serviceTypeID, err := parseID("service_type_id", args[1])
			if err != nil {
				return err
			}
			weekStart, weekEnd, err := weekRange(args[2:])
			if err != nil {
				return err
			}
			explain, _ := cmd.Flags().GetBool("explain")

			result, err := app.Engine.GetSuggestionForService(app.Ctx, app.Cfg.OrganizationID,
				patientID, serviceTypeID, weekStart, weekEnd, explain)
			if err != nil {
				return err
			}

			s := result.Suggestion
			fmt.Printf("\nSuggestion %s (%s)\n\n", s.ID, s.Outcome)
			fmt.Printf("Staff:      %s\n", staffLabel(s.SuggestedStaffID))
			fmt.Printf("Slot:       %s\n", slotLabel(s.SuggestedStart, s.SuggestedEnd))
			fmt.Printf("Confidence: %s\n\n", scoreLabel(s.ConfidenceScore, s.MatchTier))

			if len(s.ScoringFactors) > 0 {
				fmt.Println("Factors:")
				for _, r := range s.ScoringFactors {
					fmt.Printf("  %-22s weight %.2f  value %.3f  contribution %.3f\n",
						r.Factor, r.Weight, r.Value, r.Contribution)
				}
				fmt.Println()
			}
			printViolations("⚠️  Warnings", s.Warnings)

			if len(result.Alternatives) > 1 {
				fmt.Println("Alternatives:")
				for _, alt := range result.Alternatives[1:] {
					fmt.Printf("  staff %-6d %.3f (%s)\n", alt.StaffID, alt.Score, alt.MatchTier)
				}
				fmt.Println()
			}
			printPartners(result.PartnerOptions)

			if result.Explanation != "" {
				fmt.Printf("\n%s\n", result.Explanation)
			}
			fmt.Println()

			return nil
		},
	}

	cmd.Flags().Bool("explain", false, "Fetch rationale text from the explanation service")

	return cmd
}

func printPartners(options []marketplace.RankedOrganization) {
	for _, org := range options {
		fmt.Printf("      ↳ partner %-30s score %.3f  %.1fh available\n",
			org.Profile.OrganizationName, org.Score, org.AvailableHours)
	}
}
