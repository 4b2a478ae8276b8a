package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/carebridge/care-matching/pkg/core/marketplace"
)

// MarketplaceCmd creates the marketplace command
func MarketplaceCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "marketplace <service_type_id> <patient_id>",
		Short: "Rank partner organizations that could take a patient's service",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			serviceTypeID, err := parseID("service_type_id", args[0])
			if err != nil {
				return err
			}
			patientID, err := parseID("patient_id", args[1])
			if err != nil {
				return err
			}
			hours, _ := cmd.Flags().GetFloat64("hours")

			var requestedStart *time.Time
			if value, _ := cmd.Flags().GetString("start"); value != "" {
				start, err := parseDateTime("start", value)
				if err != nil {
					return err
				}
				requestedStart = &start
			}

			orgs, err := app.Engine.FindMatchingOrganizations(app.Ctx, serviceTypeID, patientID, requestedStart, hours)
			if err != nil {
				return err
			}

			if len(orgs) == 0 {
				fmt.Println("\nNo partner organization can take this service.")
				return nil
			}

			printRankedOrganizations(orgs)
			return nil
		},
	}

	cmd.Flags().String("start", "", "Requested first visit (YYYY-MM-DDTHH:MM)")
	cmd.Flags().Float64("hours", 0, "Estimated weekly hours the partner must have free")

	return cmd
}

// SspoRankingsCmd creates the sspoRankings command
func SspoRankingsCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "sspoRankings <service_type_id>",
		Short: "Rank every partner organization offering a service by capability",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			serviceTypeID, err := parseID("service_type_id", args[0])
			if err != nil {
				return err
			}

			orgs, err := app.Engine.GetSspoRankings(app.Ctx, serviceTypeID)
			if err != nil {
				return err
			}

			printRankedOrganizations(orgs)
			return nil
		},
	}
}

func printRankedOrganizations(orgs []marketplace.RankedOrganization) {
	fmt.Printf("\n%d partner organizations:\n\n", len(orgs))
	for i, org := range orgs {
		fmt.Printf("  %2d. %-30s score %.3f  %5.1fh free  %3.0f%% utilized\n",
			i+1, org.Profile.OrganizationName, org.Score, org.AvailableHours, org.UtilizationRatio*100)
		for _, r := range org.Reasons {
			fmt.Printf("      • %-16s %.3f × %.2f\n", r.Factor, r.Value, r.Weight)
		}
	}
	fmt.Println()
}
