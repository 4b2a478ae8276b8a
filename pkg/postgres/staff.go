package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/carebridge/care-matching/pkg/core/model"
)

const staffColumns = `
	s.id, s.organization_id, s.partner_organization_id, s.name, s.role_id, s.employment_type,
	s.overflow_eligible, s.max_weekly_hours, s.scheduling_locked, s.lat, s.lng`

// GetStaff retrieves the organization's active roster with skills, availability and time off
func (d *DB) GetStaff(ctx context.Context, orgID int64) ([]model.Staff, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT `+staffColumns+`
		FROM staff s
		WHERE s.organization_id = $1 AND s.active
		ORDER BY s.id
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to query staff: %w", err)
	}

	staff, err := pgx.CollectRows(rows, scanStaff)
	if err != nil {
		return nil, fmt.Errorf("failed to scan staff: %w", err)
	}

	if err := loadStaffDetails(ctx, d.pool, staff); err != nil {
		return nil, err
	}
	return staff, nil
}

// GetStaffMember retrieves one staff member
func (d *DB) GetStaffMember(ctx context.Context, staffID int64) (*model.Staff, error) {
	return getStaffMember(ctx, d.pool, staffID, false)
}

// GetOrganization retrieves an organization
func (d *DB) GetOrganization(ctx context.Context, orgID int64) (*model.Organization, error) {
	var org model.Organization
	err := d.pool.QueryRow(ctx, `
		SELECT id, name, is_partner, contact_email FROM organization WHERE id = $1
	`, orgID).Scan(&org.ID, &org.Name, &org.IsPartner, &org.ContactEmail)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.NewNotFound("organization", orgID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query organization: %w", err)
	}
	return &org, nil
}

// getStaffMember reads one staff member, optionally locking the row
func getStaffMember(ctx context.Context, q querier, staffID int64, forUpdate bool) (*model.Staff, error) {
	sql := `SELECT ` + staffColumns + ` FROM staff s WHERE s.id = $1`
	if forUpdate {
		sql += ` FOR UPDATE`
	}

	rows, err := q.Query(ctx, sql, staffID)
	if err != nil {
		return nil, fmt.Errorf("failed to query staff member: %w", err)
	}
	staff, err := pgx.CollectExactlyOneRow(rows, scanStaff)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.NewNotFound("staff", staffID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan staff member: %w", err)
	}

	members := []model.Staff{staff}
	if err := loadStaffDetails(ctx, q, members); err != nil {
		return nil, err
	}
	return &members[0], nil
}

func scanStaff(row pgx.CollectableRow) (model.Staff, error) {
	var s model.Staff
	var employment string
	var lat, lng *float64
	err := row.Scan(&s.ID, &s.OrganizationID, &s.PartnerOrganizationID, &s.Name, &s.RoleID, &employment,
		&s.OverflowEligible, &s.MaxWeeklyHours, &s.SchedulingLocked, &lat, &lng)
	s.EmploymentType = model.EmploymentType(employment)
	s.Location = geoPoint(lat, lng)
	return s, err
}

// loadStaffDetails fills skills, availability and unresolved time off for the given staff
func loadStaffDetails(ctx context.Context, q querier, staff []model.Staff) error {
	if len(staff) == 0 {
		return nil
	}

	index := make(map[int64]*model.Staff, len(staff))
	ids := make([]int64, len(staff))
	for i := range staff {
		index[staff[i].ID] = &staff[i]
		ids[i] = staff[i].ID
	}

	rows, err := q.Query(ctx, `
		SELECT staff_id, skill_id, proficiency, expires_at
		FROM staff_skill WHERE staff_id = ANY($1)
		ORDER BY staff_id, skill_id
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to query staff skills: %w", err)
	}
	var staffID int64
	var skill model.StaffSkill
	_, err = pgx.ForEachRow(rows, []any{&staffID, &skill.SkillID, &skill.Proficiency, &skill.ExpiresAt}, func() error {
		s := index[staffID]
		s.Skills = append(s.Skills, skill)
		skill = model.StaffSkill{}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to scan staff skills: %w", err)
	}

	rows, err = q.Query(ctx, `
		SELECT staff_id, weekday, start_minute, end_minute
		FROM staff_availability WHERE staff_id = ANY($1)
		ORDER BY staff_id, weekday, start_minute
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to query staff availability: %w", err)
	}
	var weekday int
	var block model.AvailabilityBlock
	_, err = pgx.ForEachRow(rows, []any{&staffID, &weekday, &block.StartMinute, &block.EndMinute}, func() error {
		block.Weekday = time.Weekday(weekday)
		s := index[staffID]
		s.Availability = append(s.Availability, block)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to scan staff availability: %w", err)
	}

	rows, err = q.Query(ctx, `
		SELECT staff_id, start_at, end_at, status
		FROM staff_time_off WHERE staff_id = ANY($1) AND status IN ('pending', 'approved')
		ORDER BY staff_id, start_at
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to query staff time off: %w", err)
	}
	var off model.TimeOff
	var status string
	_, err = pgx.ForEachRow(rows, []any{&staffID, &off.Start, &off.End, &status}, func() error {
		off.Status = model.TimeOffStatus(status)
		s := index[staffID]
		s.TimeOff = append(s.TimeOff, off)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to scan staff time off: %w", err)
	}

	return nil
}

func geoPoint(lat, lng *float64) *model.GeoPoint {
	if lat == nil || lng == nil {
		return nil
	}
	return &model.GeoPoint{Lat: *lat, Lng: *lng}
}
