package model

import (
	"slices"
	"time"
)

// CapabilityProfile is a partner organization's capacity and quality
// snapshot for one service type. It is maintained by performance-tracking
// jobs and is read-only here.
type CapabilityProfile struct {
	OrganizationID   int64
	OrganizationName string
	ServiceTypeID    int64

	MaxWeeklyHours          float64
	CurrentUtilizationHours float64

	// Fractions in [0,1]
	QualityScore   float64
	AcceptanceRate float64
	CompletionRate float64

	// ServiceAreas are postal code prefixes
	ServiceAreas      []string
	AvailableDays     []time.Weekday
	WindowStartMinute int
	WindowEndMinute   int
	MinNoticeHours    float64
	SpecialCareFlags  []string

	Active      bool
	EffectiveTo *time.Time
}

// IsCurrent returns true if the profile is active and not expired at now
func (p *CapabilityProfile) IsCurrent(now time.Time) bool {
	if !p.Active {
		return false
	}
	return p.EffectiveTo == nil || p.EffectiveTo.After(now)
}

// AvailableHours is the capacity headroom for the week
func (p *CapabilityProfile) AvailableHours() float64 {
	return max(p.MaxWeeklyHours-p.CurrentUtilizationHours, 0)
}

// UtilizationRatio is current utilization over capacity (1 when no capacity is declared)
func (p *CapabilityProfile) UtilizationRatio() float64 {
	if p.MaxWeeklyHours <= 0 {
		return 1
	}
	return p.CurrentUtilizationHours / p.MaxWeeklyHours
}

// HasFlag returns true if the organization offers the special care flag
func (p *CapabilityProfile) HasFlag(flag string) bool {
	return slices.Contains(p.SpecialCareFlags, flag)
}

// ServesDay returns true if the organization works on the weekday
func (p *CapabilityProfile) ServesDay(day time.Weekday) bool {
	return slices.Contains(p.AvailableDays, day)
}
