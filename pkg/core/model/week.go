package model

import "time"

// Week is the scheduling week length
const Week = 7 * 24 * time.Hour

// StartOfDay truncates t to midnight in its own location
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// WeekStartOf returns the Monday midnight on or before t
func WeekStartOf(t time.Time) time.Time {
	day := StartOfDay(t)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// MinuteOfDay returns the number of minutes since midnight
func MinuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}

// AtMinute returns the time on day's date at the given minute offset
func AtMinute(day time.Time, minute int) time.Time {
	return StartOfDay(day).Add(time.Duration(minute) * time.Minute)
}

// Overlaps is the half-open interval test: touching boundaries do not overlap
func Overlaps(startA, endA, startB, endB time.Time) bool {
	return startA.Before(endB) && startB.Before(endA)
}
