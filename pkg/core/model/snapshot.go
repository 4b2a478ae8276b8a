package model

import (
	"cmp"
	"slices"
	"time"
)

// Snapshot is an immutable view of the roster, assignments and reference
// data taken once at the start of a generation or ranking call. Utilization
// read from it does not change for the duration of the call.
type Snapshot struct {
	now          time.Time
	staff        []*Staff
	assignments  map[int64][]Assignment
	continuity   map[ContinuityKey]bool
	serviceTypes map[int64]*ServiceType
	patients     map[int64]*Patient
}

// SnapshotInput carries the raw data a Snapshot is built from
type SnapshotInput struct {
	Now          time.Time
	Staff        []Staff
	Assignments  []Assignment
	Continuity   []ContinuityKey
	ServiceTypes []ServiceType
	Patients     []Patient
}

// NewSnapshot copies the input into an indexed snapshot. Staff are ordered
// by ID and each staff member's assignments by start time.
func NewSnapshot(in SnapshotInput) *Snapshot {
	snap := &Snapshot{
		now:          in.Now,
		staff:        make([]*Staff, 0, len(in.Staff)),
		assignments:  make(map[int64][]Assignment),
		continuity:   make(map[ContinuityKey]bool),
		serviceTypes: make(map[int64]*ServiceType),
		patients:     make(map[int64]*Patient),
	}

	for i := range in.Staff {
		staff := in.Staff[i]
		snap.staff = append(snap.staff, &staff)
	}
	slices.SortFunc(snap.staff, func(a, b *Staff) int {
		return cmp.Compare(a.ID, b.ID)
	})

	for _, a := range in.Assignments {
		if !a.IsActive() {
			continue
		}
		snap.assignments[a.StaffID] = append(snap.assignments[a.StaffID], a)
	}
	for staffID := range snap.assignments {
		slices.SortFunc(snap.assignments[staffID], func(a, b Assignment) int {
			return a.Start.Compare(b.Start)
		})
	}

	for _, key := range in.Continuity {
		snap.continuity[key] = true
	}
	for i := range in.ServiceTypes {
		st := in.ServiceTypes[i]
		snap.serviceTypes[st.ID] = &st
	}
	for i := range in.Patients {
		p := in.Patients[i]
		snap.patients[p.ID] = &p
	}

	return snap
}

// Now is the clock reading taken when the snapshot was built
func (s *Snapshot) Now() time.Time {
	return s.now
}

// Staff returns the roster ordered by ID
func (s *Snapshot) Staff() []*Staff {
	return s.staff
}

// Assignments returns a staff member's active assignments ordered by start
func (s *Snapshot) Assignments(staffID int64) []Assignment {
	return s.assignments[staffID]
}

// ScheduledHours sums a staff member's active assignment hours in the week starting at weekStart
func (s *Snapshot) ScheduledHours(staffID int64, weekStart time.Time) float64 {
	return WeeklyHours(s.assignments[staffID], weekStart)
}

// HasContinuity returns true if the staff member already cares for the patient for the service type
func (s *Snapshot) HasContinuity(staffID, patientID, serviceTypeID int64) bool {
	return s.continuity[ContinuityKey{StaffID: staffID, PatientID: patientID, ServiceTypeID: serviceTypeID}]
}

// ServiceType looks up a service type
func (s *Snapshot) ServiceType(id int64) (*ServiceType, bool) {
	st, ok := s.serviceTypes[id]
	return st, ok
}

// Patient looks up a patient
func (s *Snapshot) Patient(id int64) (*Patient, bool) {
	p, ok := s.patients[id]
	return p, ok
}

// WeeklyHours sums the hours of active assignments starting inside the week
func WeeklyHours(assignments []Assignment, weekStart time.Time) float64 {
	weekEnd := weekStart.Add(Week)
	total := 0.0
	for _, a := range assignments {
		if !a.IsActive() {
			continue
		}
		if a.Start.Before(weekStart) || !a.Start.Before(weekEnd) {
			continue
		}
		total += a.Hours()
	}
	return total
}
