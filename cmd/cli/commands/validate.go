package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/carebridge/care-matching/pkg/core/constraints"
)

// ValidateCmd creates the validate command
func ValidateCmd(app *AppContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <staff_id> <patient_id> <service_type_id> <start> <end>",
		Short: "Check a proposed visit against the scheduling rules",
		Args:  cobra.ExactArgs(5),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := proposalFromArgs(args)
			if err != nil {
				return err
			}

			result, err := app.Engine.ValidateAssignment(app.Ctx, app.Cfg.OrganizationID, p)
			if err != nil {
				return err
			}

			if result.IsValid {
				fmt.Printf("\n✓ Staff %d can take this visit\n\n", p.StaffID)
			} else {
				fmt.Printf("\n✗ Staff %d cannot take this visit\n\n", p.StaffID)
			}
			printViolations("Errors", result.Errors)
			printViolations("⚠️  Warnings", result.Warnings)
			fmt.Println()

			return nil
		},
	}
}

// EligibleStaffCmd creates the eligibleStaff command
func EligibleStaffCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eligibleStaff <patient_id> <service_type_id> <start> <end>",
		Short: "List the staff who could take a visit, best first",
		Args:  cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			patientID, err := parseID("patient_id", args[0])
			if err != nil {
				return err
			}
			serviceTypeID, err := parseID("service_type_id", args[1])
			if err != nil {
				return err
			}
			start, err := parseDateTime("start", args[2])
			if err != nil {
				return err
			}
			end, err := parseDateTime("end", args[3])
			if err != nil {
				return err
			}
			showIneligible, _ := cmd.Flags().GetBool("ineligible")

			result, err := app.Engine.GetEligibleStaff(app.Ctx, app.Cfg.OrganizationID, patientID, serviceTypeID, start, end)
			if err != nil {
				return err
			}

			fmt.Printf("\n%d eligible staff:\n\n", len(result.Eligible))
			for i, c := range result.Eligible {
				fmt.Printf("  %2d. %-30s %.3f (%s)\n", i+1, c.Staff.Name, c.Score.Score, c.Score.MatchTier)
				for _, w := range c.Warnings {
					fmt.Printf("      ⚠️  %s\n", w.Message)
				}
			}
			fmt.Println()

			if showIneligible && len(result.Ineligible) > 0 {
				fmt.Printf("%d ineligible staff:\n\n", len(result.Ineligible))
				for _, r := range result.Ineligible {
					fmt.Printf("  ✗ %s\n", r.Staff.Name)
					for _, v := range r.Errors {
						fmt.Printf("      • %s: %s\n", v.Kind, v.Message)
					}
				}
				fmt.Println()
			}

			return nil
		},
	}

	cmd.Flags().Bool("ineligible", false, "Also list staff who failed a rule, with the reasons")

	return cmd
}

func proposalFromArgs(args []string) (constraints.Proposal, error) {
	var p constraints.Proposal
	var err error

	if p.StaffID, err = parseID("staff_id", args[0]); err != nil {
		return p, err
	}
	if p.PatientID, err = parseID("patient_id", args[1]); err != nil {
		return p, err
	}
	if p.ServiceTypeID, err = parseID("service_type_id", args[2]); err != nil {
		return p, err
	}
	if p.Start, err = parseDateTime("start", args[3]); err != nil {
		return p, err
	}
	if p.End, err = parseDateTime("end", args[4]); err != nil {
		return p, err
	}
	return p, nil
}
