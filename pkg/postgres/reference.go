package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/carebridge/care-matching/pkg/core/model"
)

// GetServiceTypes retrieves every service type with its skill and role requirements
func (d *DB) GetServiceTypes(ctx context.Context) ([]model.ServiceType, error) {
	rows, err := d.pool.Query(ctx, `SELECT id, name FROM service_type ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query service types: %w", err)
	}
	serviceTypes, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.ServiceType, error) {
		var st model.ServiceType
		err := row.Scan(&st.ID, &st.Name)
		return st, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan service types: %w", err)
	}

	if err := d.loadServiceTypeRequirements(ctx, serviceTypes); err != nil {
		return nil, err
	}
	return serviceTypes, nil
}

// GetServiceType retrieves one service type
func (d *DB) GetServiceType(ctx context.Context, id int64) (*model.ServiceType, error) {
	var st model.ServiceType
	err := d.pool.QueryRow(ctx, `SELECT id, name FROM service_type WHERE id = $1`, id).Scan(&st.ID, &st.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.NewNotFound("service type", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query service type: %w", err)
	}

	serviceTypes := []model.ServiceType{st}
	if err := d.loadServiceTypeRequirements(ctx, serviceTypes); err != nil {
		return nil, err
	}
	return &serviceTypes[0], nil
}

func (d *DB) loadServiceTypeRequirements(ctx context.Context, serviceTypes []model.ServiceType) error {
	index := make(map[int64]*model.ServiceType, len(serviceTypes))
	ids := make([]int64, len(serviceTypes))
	for i := range serviceTypes {
		index[serviceTypes[i].ID] = &serviceTypes[i]
		ids[i] = serviceTypes[i].ID
	}

	rows, err := d.pool.Query(ctx, `
		SELECT service_type_id, skill_id, min_proficiency
		FROM service_type_skill WHERE service_type_id = ANY($1)
		ORDER BY service_type_id, skill_id
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to query service type skills: %w", err)
	}
	var serviceTypeID int64
	var req model.SkillRequirement
	_, err = pgx.ForEachRow(rows, []any{&serviceTypeID, &req.SkillID, &req.MinProficiency}, func() error {
		st := index[serviceTypeID]
		st.RequiredSkills = append(st.RequiredSkills, req)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to scan service type skills: %w", err)
	}

	rows, err = d.pool.Query(ctx, `
		SELECT service_type_id, role_id
		FROM service_type_role WHERE service_type_id = ANY($1)
		ORDER BY service_type_id, role_id
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to query service type roles: %w", err)
	}
	var roleID int64
	_, err = pgx.ForEachRow(rows, []any{&serviceTypeID, &roleID}, func() error {
		st := index[serviceTypeID]
		st.QualifiedRoleIDs = append(st.QualifiedRoleIDs, roleID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to scan service type roles: %w", err)
	}

	return nil
}

const patientColumns = `id, organization_id, name, lat, lng, postal_code, special_care_needs`

// GetPatients retrieves the organization's patients
func (d *DB) GetPatients(ctx context.Context, orgID int64) ([]model.Patient, error) {
	rows, err := d.pool.Query(ctx, `
		SELECT `+patientColumns+` FROM patient WHERE organization_id = $1 ORDER BY id
	`, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to query patients: %w", err)
	}
	patients, err := pgx.CollectRows(rows, scanPatient)
	if err != nil {
		return nil, fmt.Errorf("failed to scan patients: %w", err)
	}
	return patients, nil
}

// GetPatient retrieves one patient
func (d *DB) GetPatient(ctx context.Context, id int64) (*model.Patient, error) {
	rows, err := d.pool.Query(ctx, `SELECT `+patientColumns+` FROM patient WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to query patient: %w", err)
	}
	patient, err := pgx.CollectExactlyOneRow(rows, scanPatient)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.NewNotFound("patient", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan patient: %w", err)
	}
	return &patient, nil
}

func scanPatient(row pgx.CollectableRow) (model.Patient, error) {
	var p model.Patient
	var lat, lng *float64
	err := row.Scan(&p.ID, &p.OrganizationID, &p.Name, &lat, &lng, &p.PostalCode, &p.SpecialCareNeeds)
	p.Location = geoPoint(lat, lng)
	return p, err
}
