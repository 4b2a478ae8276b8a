package commands

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/carebridge/care-matching/pkg/core/services"
	"github.com/carebridge/care-matching/pkg/export"
)

// GridCmd creates the grid command
func GridCmd(app *AppContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grid <week_start> [week_end]",
		Short: "Show the scheduling grid: each staff member's visits and load",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			weekStart, weekEnd, err := weekRange(args)
			if err != nil {
				return err
			}
			xlsxPath, _ := cmd.Flags().GetString("xlsx")
			publish, _ := cmd.Flags().GetBool("sheet")

			grid, err := app.Engine.GetGridData(app.Ctx, app.Cfg.OrganizationID, weekStart, weekEnd)
			if err != nil {
				return err
			}

			if publish {
				spreadsheetID, _ := cmd.Flags().GetString("spreadsheet")
				return publishGrid(app, grid, spreadsheetID)
			}

			if xlsxPath != "" {
				data, err := export.GridXLSX(grid)
				if err != nil {
					return err
				}
				if err := os.WriteFile(xlsxPath, data, 0o644); err != nil {
					return fmt.Errorf("failed to write grid workbook: %w", err)
				}
				app.Logger.Info("Grid exported", zap.String("path", xlsxPath), zap.Int("rows", len(grid.Rows)))
				fmt.Printf("\n✓ Grid written to %s\n\n", xlsxPath)
				return nil
			}

			fmt.Printf("\n📅 Grid %s to %s\n\n", grid.WeekStart.Format("Mon 02 Jan"), grid.WeekEnd.AddDate(0, 0, -1).Format("Mon 02 Jan"))
			for _, row := range grid.Rows {
				fmt.Printf("%-30s %5.1fh  %3.0f%%\n", row.Staff.Name, row.ScheduledHours, row.UtilizationRatio*100)
				for i, visits := range row.Days {
					if len(visits) == 0 {
						continue
					}
					slots := make([]string, len(visits))
					for j, a := range visits {
						slots[j] = fmt.Sprintf("%s-%s p%d", a.Start.Format("15:04"), a.End.Format("15:04"), a.PatientID)
					}
					fmt.Printf("  %s  %s\n", grid.Days[i].Format("Mon 02"), strings.Join(slots, ", "))
				}
			}
			fmt.Println()

			if len(grid.Unscheduled) > 0 {
				fmt.Printf("⚠️  Unscheduled (%d):\n", len(grid.Unscheduled))
				for _, req := range grid.Unscheduled {
					fmt.Printf("  • patient %d service %d week of %s: %d visits, %d min\n",
						req.PatientID, req.ServiceTypeID, req.WeekStart.Format(time.DateOnly),
						req.RemainingFrequencyPerWeek, req.RemainingDurationMinutes)
				}
				fmt.Println()
			}

			return nil
		},
	}

	cmd.Flags().String("xlsx", "", "Write the grid to this .xlsx file instead of printing it")
	cmd.Flags().Bool("sheet", false, "Publish the grid to a tab of the configured Google spreadsheet")
	cmd.Flags().String("spreadsheet", "", "Spreadsheet ID to publish to (defaults to gridSpreadsheetID)")

	return cmd
}

func publishGrid(app *AppContext, grid *services.GridData, spreadsheetID string) error {
	if app.Sheets == nil {
		return fmt.Errorf("publishing needs SHEETS_CREDENTIALS_FILE to be set")
	}

	if spreadsheetID == "" {
		spreadsheetID = app.Cfg.GridSpreadsheetID
	}
	if spreadsheetID == "" {
		return fmt.Errorf("no spreadsheet: pass --spreadsheet or set gridSpreadsheetID")
	}

	tab, err := app.Sheets.PublishGrid(app.Ctx, spreadsheetID, grid.WeekStart, grid.WeekEnd, export.ScheduleTable(grid))
	if err != nil {
		return err
	}

	app.Logger.Info("Grid published", zap.String("spreadsheet_id", spreadsheetID), zap.String("tab", tab))
	fmt.Printf("\n✓ Grid published to tab %q\n\n", tab)
	return nil
}
