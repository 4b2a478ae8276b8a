package commands

import (
	"fmt"
	"strconv"
	"time"

	"github.com/carebridge/care-matching/pkg/core/model"
)

// dateTimeLayout is accepted wherever a visit time is entered
const dateTimeLayout = "2006-01-02T15:04"

func parseID(name, value string) (int64, error) {
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got: %s", name, value)
	}
	return id, nil
}

func parseDate(name, value string) (time.Time, error) {
	t, err := time.ParseInLocation(time.DateOnly, value, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be a date (YYYY-MM-DD), got: %s", name, value)
	}
	return t, nil
}

func parseDateTime(name, value string) (time.Time, error) {
	t, err := time.ParseInLocation(dateTimeLayout, value, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("%s must be a date and time (YYYY-MM-DDTHH:MM), got: %s", name, value)
	}
	return t, nil
}

// weekRange reads <week_start> [week_end]; the end defaults to one week later
func weekRange(args []string) (time.Time, time.Time, error) {
	start, err := parseDate("week_start", args[0])
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end := start.AddDate(0, 0, 7)
	if len(args) > 1 {
		if end, err = parseDate("week_end", args[1]); err != nil {
			return time.Time{}, time.Time{}, err
		}
	}
	return start, end, nil
}

func staffLabel(id *int64) string {
	if id == nil {
		return "none"
	}
	return strconv.FormatInt(*id, 10)
}

func slotLabel(start, end *time.Time) string {
	if start == nil || end == nil {
		return "-"
	}
	return fmt.Sprintf("%s %s-%s", start.Format("Mon 02 Jan"), start.Format("15:04"), end.Format("15:04"))
}

func scoreLabel(score *float64, tier model.MatchTier) string {
	if score == nil {
		return string(tier)
	}
	return fmt.Sprintf("%.3f (%s)", *score, tier)
}

func printViolations(title string, vs []model.Violation) {
	if len(vs) == 0 {
		return
	}
	fmt.Printf("%s (%d):\n", title, len(vs))
	for _, v := range vs {
		fmt.Printf("  • %s: %s\n", v.Kind, v.Message)
	}
}
