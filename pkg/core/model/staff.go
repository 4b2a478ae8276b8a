package model

import "time"

// EmploymentType describes the contract a staff member works under
type EmploymentType string

const (
	EmploymentFullTime EmploymentType = "full_time"
	EmploymentPartTime EmploymentType = "part_time"
	EmploymentCasual   EmploymentType = "casual"
)

// Proficiency is a skill level on the novice-to-expert scale
type Proficiency int

const (
	ProficiencyNovice           Proficiency = 1
	ProficiencyAdvancedBeginner Proficiency = 2
	ProficiencyCompetent        Proficiency = 3
	ProficiencyProficient       Proficiency = 4
	ProficiencyExpert           Proficiency = 5
)

// StaffSkill is a skill held by a staff member
type StaffSkill struct {
	SkillID     int64
	Proficiency Proficiency
	// ExpiresAt is nil for skills that never lapse
	ExpiresAt *time.Time
}

// ValidAt returns true if the skill has not expired at the given time
func (s StaffSkill) ValidAt(at time.Time) bool {
	return s.ExpiresAt == nil || s.ExpiresAt.After(at)
}

// AvailabilityBlock is a recurring weekly window the staff member has declared
// themselves available for. Minutes are counted from local midnight.
type AvailabilityBlock struct {
	Weekday     time.Weekday
	StartMinute int
	EndMinute   int
}

// TimeOffStatus is the approval state of a time-off request
type TimeOffStatus string

const (
	TimeOffPending  TimeOffStatus = "pending"
	TimeOffApproved TimeOffStatus = "approved"
)

// TimeOff is an unavailability window requested by a staff member
type TimeOff struct {
	Start  time.Time
	End    time.Time
	Status TimeOffStatus
}

// Staff is a member of the roster as seen by the matching engine
type Staff struct {
	ID             int64
	OrganizationID int64
	Name           string
	RoleID         int64
	EmploymentType EmploymentType

	// OverflowEligible staff may be scheduled past their weekly ceiling
	// with a warning, the same as casual staff
	OverflowEligible bool

	// MaxWeeklyHours of zero means no ceiling is configured
	MaxWeeklyHours float64

	// SchedulingLocked staff are on an administrative hold and cannot
	// receive new assignments
	SchedulingLocked bool

	Location     *GeoPoint
	Skills       []StaffSkill
	Availability []AvailabilityBlock
	TimeOff      []TimeOff

	// PartnerOrganizationID is set when the staff member is employed by a
	// subcontracted partner organization rather than the home organization
	PartnerOrganizationID *int64
}

// IsPartner returns true if the staff member works for an SSPO
func (s *Staff) IsPartner() bool {
	return s.PartnerOrganizationID != nil
}

// CanExceedWeeklyHours returns true if a weekly-hours breach is a warning rather than an error
func (s *Staff) CanExceedWeeklyHours() bool {
	return s.EmploymentType == EmploymentCasual || s.OverflowEligible
}

// Skill looks up a skill that is still valid at the given time
func (s *Staff) Skill(skillID int64, at time.Time) (StaffSkill, bool) {
	for _, skill := range s.Skills {
		if skill.SkillID == skillID && skill.ValidAt(at) {
			return skill, true
		}
	}
	return StaffSkill{}, false
}

// AvailabilityOn returns the availability blocks declared for a weekday
func (s *Staff) AvailabilityOn(day time.Weekday) []AvailabilityBlock {
	var blocks []AvailabilityBlock
	for _, block := range s.Availability {
		if block.Weekday == day {
			blocks = append(blocks, block)
		}
	}
	return blocks
}

// Organization is a home-care provider or one of its subcontracted partners
type Organization struct {
	ID           int64
	Name         string
	IsPartner    bool
	ContactEmail string
}
