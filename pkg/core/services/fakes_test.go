package services

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/carebridge/care-matching/pkg/core/model"
	"github.com/carebridge/care-matching/pkg/db"
)

const (
	homeOrg    = 1
	partnerOrg = 50
	roleNurse  = 10

	nursing = 1
	physio  = 2
)

var (
	monday = time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC)
	clinic = &model.GeoPoint{Lat: 43.6532, Lng: -79.3832}
)

// fakeStore is an in-memory db.Database. Accept transactions run one at a
// time and stage their writes until fn returns nil.
type fakeStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	orgs         map[int64]model.Organization
	staff        []model.Staff
	patients     []model.Patient
	serviceTypes []model.ServiceType
	requirements []model.CareRequirement
	profiles     []model.CapabilityProfile
	assignments  []model.Assignment
	suggestions  []*model.Suggestion

	// failOutcomeUpdate makes the accept transaction's ledger write fail
	failOutcomeUpdate error
}

var _ db.Database = (*fakeStore)(nil)

func requirement(patientID, serviceTypeID int64, startHour int) model.CareRequirement {
	return model.CareRequirement{
		OrganizationID:            homeOrg,
		PatientID:                 patientID,
		ServiceTypeID:             serviceTypeID,
		WeekStart:                 monday,
		WeekEnd:                   monday.AddDate(0, 0, 7),
		RemainingFrequencyPerWeek: 1,
		RemainingDurationMinutes:  60,
		PreferredStartMinute:      startHour * 60,
		PreferredEndMinute:        (startHour + 1) * 60,
	}
}

func nurse(id int64, name string) model.Staff {
	return model.Staff{
		ID:             id,
		OrganizationID: homeOrg,
		Name:           name,
		RoleID:         roleNurse,
		EmploymentType: model.EmploymentFullTime,
		MaxWeeklyHours: 40,
		Location:       clinic,
		Availability: []model.AvailabilityBlock{
			{Weekday: time.Monday, StartMinute: 8 * 60, EndMinute: 17 * 60},
			{Weekday: time.Tuesday, StartMinute: 8 * 60, EndMinute: 17 * 60},
		},
	}
}

// newFakeStore seeds three nurses (the third employed by a partner), four
// patients and their requirements: patients 3 and 4 both want nursing at
// 09:00 on the same week, patient 6 at 14:00, and patient 5 needs
// physiotherapy which no staff member is qualified for.
func newFakeStore() *fakeStore {
	partner := nurse(3, "Carol")
	partnerID := int64(partnerOrg)
	partner.PartnerOrganizationID = &partnerID

	return &fakeStore{
		orgs: map[int64]model.Organization{
			homeOrg:    {ID: homeOrg, Name: "Home Care"},
			partnerOrg: {ID: partnerOrg, Name: "Partner Nursing", IsPartner: true, ContactEmail: "dispatch@partner.example"},
		},
		staff: []model.Staff{nurse(1, "Alice"), nurse(2, "Bob"), partner},
		patients: []model.Patient{
			{ID: 3, OrganizationID: homeOrg, Location: clinic, PostalCode: "M5V 1A1"},
			{ID: 4, OrganizationID: homeOrg, Location: clinic, PostalCode: "M5V 1A1"},
			{ID: 5, OrganizationID: homeOrg, Location: clinic, PostalCode: "M5V 2B2"},
			{ID: 6, OrganizationID: homeOrg, Location: clinic, PostalCode: "M5V 1A1"},
		},
		serviceTypes: []model.ServiceType{
			{ID: nursing, Name: "Nursing", QualifiedRoleIDs: []int64{roleNurse}},
			{ID: physio, Name: "Physiotherapy", QualifiedRoleIDs: []int64{99}},
		},
		requirements: []model.CareRequirement{
			requirement(3, nursing, 9),
			requirement(4, nursing, 9),
			requirement(5, physio, 10),
			requirement(6, nursing, 14),
		},
		profiles: []model.CapabilityProfile{
			{
				OrganizationID:   partnerOrg,
				OrganizationName: "Partner Nursing",
				ServiceTypeID:    physio,
				MaxWeeklyHours:   40,
				QualityScore:     0.9,
				AcceptanceRate:   0.8,
				CompletionRate:   0.7,
				ServiceAreas:     []string{"M5V"},
				Active:           true,
			},
		},
	}
}

func (f *fakeStore) GetUnscheduledRequirements(ctx context.Context, orgID int64, weekStart, weekEnd time.Time, patientID *int64) ([]model.CareRequirement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var reqs []model.CareRequirement
	for _, r := range f.requirements {
		if r.OrganizationID != orgID || !r.WeekStart.Equal(weekStart) {
			continue
		}
		if patientID != nil && r.PatientID != *patientID {
			continue
		}
		placed := 0
		for _, a := range f.assignments {
			if a.IsActive() && a.PatientID == r.PatientID && a.ServiceTypeID == r.ServiceTypeID &&
				!a.Start.Before(weekStart) && a.Start.Before(weekEnd) {
				placed++
			}
		}
		remaining := r.RemainingFrequencyPerWeek - placed
		if remaining <= 0 {
			continue
		}
		perVisit := r.RemainingDurationMinutes / r.RemainingFrequencyPerWeek
		r.RemainingFrequencyPerWeek = remaining
		r.RemainingDurationMinutes = remaining * perVisit
		r.WeekEnd = weekEnd
		reqs = append(reqs, r)
	}
	return reqs, nil
}

func (f *fakeStore) GetStaff(ctx context.Context, orgID int64) ([]model.Staff, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var staff []model.Staff
	for _, s := range f.staff {
		if s.OrganizationID == orgID {
			staff = append(staff, s)
		}
	}
	return staff, nil
}

func (f *fakeStore) GetStaffMember(ctx context.Context, staffID int64) (*model.Staff, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.staffMember(staffID)
}

func (f *fakeStore) staffMember(staffID int64) (*model.Staff, error) {
	for _, s := range f.staff {
		if s.ID == staffID {
			return &s, nil
		}
	}
	return nil, model.NewNotFound("staff", staffID)
}

func (f *fakeStore) GetOrganization(ctx context.Context, orgID int64) (*model.Organization, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	org, ok := f.orgs[orgID]
	if !ok {
		return nil, model.NewNotFound("organization", orgID)
	}
	return &org, nil
}

func (f *fakeStore) GetAssignments(ctx context.Context, orgID int64, from, to time.Time) ([]model.Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []model.Assignment
	for _, a := range f.assignments {
		if a.OrganizationID == orgID && a.IsActive() && !a.Start.Before(from) && a.Start.Before(to) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeStore) GetStaffAssignments(ctx context.Context, staffID int64, from, to time.Time) ([]model.Assignment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []model.Assignment
	for _, a := range f.assignments {
		if a.StaffID == staffID && a.IsActive() && model.Overlaps(a.Start, a.End, from, to) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeStore) GetContinuity(ctx context.Context, orgID int64) ([]model.ContinuityKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var keys []model.ContinuityKey
	for _, a := range f.assignments {
		if a.OrganizationID != orgID || !a.IsActive() {
			continue
		}
		key := model.ContinuityKey{StaffID: a.StaffID, PatientID: a.PatientID, ServiceTypeID: a.ServiceTypeID}
		if !slices.Contains(keys, key) {
			keys = append(keys, key)
		}
	}
	return keys, nil
}

func (f *fakeStore) GetServiceTypes(ctx context.Context) ([]model.ServiceType, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.serviceTypes), nil
}

func (f *fakeStore) GetServiceType(ctx context.Context, id int64) (*model.ServiceType, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, st := range f.serviceTypes {
		if st.ID == id {
			return &st, nil
		}
	}
	return nil, model.NewNotFound("service type", id)
}

func (f *fakeStore) GetPatients(ctx context.Context, orgID int64) ([]model.Patient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var patients []model.Patient
	for _, p := range f.patients {
		if p.OrganizationID == orgID {
			patients = append(patients, p)
		}
	}
	return patients, nil
}

func (f *fakeStore) GetPatient(ctx context.Context, id int64) (*model.Patient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, p := range f.patients {
		if p.ID == id {
			return &p, nil
		}
	}
	return nil, model.NewNotFound("patient", id)
}

func (f *fakeStore) InsertPendingSuggestion(ctx context.Context, s *model.Suggestion) (*model.Suggestion, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, existing := range f.suggestions {
		if existing.Outcome == model.OutcomePending && existing.Key() == s.Key() {
			stored := *existing
			return &stored, false, nil
		}
	}
	stored := *s
	f.suggestions = append(f.suggestions, &stored)
	return s, true, nil
}

func (f *fakeStore) GetSuggestion(ctx context.Context, id string) (*model.Suggestion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.suggestion(id)
}

func (f *fakeStore) suggestion(id string) (*model.Suggestion, error) {
	for _, s := range f.suggestions {
		if s.ID == id {
			out := *s
			return &out, nil
		}
	}
	return nil, model.NewNotFound("suggestion", id)
}

func (f *fakeStore) UpdateSuggestionOutcome(ctx context.Context, s *model.Suggestion) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.updateOutcome(s)
}

func (f *fakeStore) updateOutcome(s *model.Suggestion) error {
	for i, existing := range f.suggestions {
		if existing.ID != s.ID {
			continue
		}
		if existing.Outcome != model.OutcomePending {
			return &model.ConflictError{Reason: fmt.Sprintf("suggestion %s is no longer pending", s.ID)}
		}
		updated := *s
		f.suggestions[i] = &updated
		return nil
	}
	return model.NewNotFound("suggestion", s.ID)
}

func (f *fakeStore) ExpirePendingSuggestions(ctx context.Context, now time.Time) ([]model.Suggestion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var expired []model.Suggestion
	for _, s := range f.suggestions {
		if s.Outcome != model.OutcomePending || s.WeekEnd.After(now) {
			continue
		}
		userID := model.SystemUserID
		latency := int64(now.Sub(s.CreatedAt) / time.Second)
		s.Outcome = model.OutcomeExpired
		s.OutcomeAt = &now
		s.OutcomeUserID = &userID
		s.TimeToDecisionSeconds = &latency
		expired = append(expired, *s)
	}
	return expired, nil
}

func (f *fakeStore) CountOutcomes(ctx context.Context, orgID int64, from, to time.Time) (map[model.Outcome]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	counts := make(map[model.Outcome]int)
	for _, s := range f.suggestions {
		if s.OrganizationID == orgID && !s.CreatedAt.Before(from) && s.CreatedAt.Before(to) {
			counts[s.Outcome]++
		}
	}
	return counts, nil
}

func (f *fakeStore) GetCapabilityProfiles(ctx context.Context, serviceTypeID int64) ([]model.CapabilityProfile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []model.CapabilityProfile
	for _, p := range f.profiles {
		if p.ServiceTypeID == serviceTypeID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) WithinAcceptTx(ctx context.Context, fn func(tx db.AcceptTx) error) error {
	f.txMu.Lock()
	defer f.txMu.Unlock()

	tx := &fakeTx{store: f}
	if err := fn(tx); err != nil {
		return err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range tx.outcomes {
		if current, err := f.suggestion(s.ID); err != nil {
			return err
		} else if current.Outcome != model.OutcomePending {
			return &model.ConflictError{Reason: fmt.Sprintf("suggestion %s is no longer pending", s.ID)}
		}
	}
	for _, s := range tx.outcomes {
		if err := f.updateOutcome(s); err != nil {
			return err
		}
	}
	f.assignments = append(f.assignments, tx.assignments...)
	return nil
}

func (f *fakeStore) suggestionByPatient(t *testing.T, patientID int64) *model.Suggestion {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, s := range f.suggestions {
		if s.PatientID == patientID {
			out := *s
			return &out
		}
	}
	require.FailNow(t, "no suggestion for patient", "patient %d", patientID)
	return nil
}

func (f *fakeStore) activeAssignments() []model.Assignment {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []model.Assignment
	for _, a := range f.assignments {
		if a.IsActive() {
			out = append(out, a)
		}
	}
	return out
}

// fakeTx stages writes for fakeStore.WithinAcceptTx
type fakeTx struct {
	store       *fakeStore
	assignments []model.Assignment
	outcomes    []*model.Suggestion
}

func (t *fakeTx) LockSuggestion(ctx context.Context, id string) (*model.Suggestion, error) {
	return t.store.GetSuggestion(ctx, id)
}

func (t *fakeTx) LockStaff(ctx context.Context, staffID int64) (*model.Staff, error) {
	return t.store.GetStaffMember(ctx, staffID)
}

func (t *fakeTx) GetStaffAssignments(ctx context.Context, staffID int64, from, to time.Time) ([]model.Assignment, error) {
	t.store.mu.Lock()
	defer t.store.mu.Unlock()

	var out []model.Assignment
	for _, a := range append(slices.Clone(t.store.assignments), t.assignments...) {
		if a.StaffID == staffID && a.IsActive() && model.Overlaps(a.Start, a.End, from, to) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (t *fakeTx) InsertAssignment(ctx context.Context, a *model.Assignment) error {
	t.assignments = append(t.assignments, *a)
	return nil
}

func (t *fakeTx) UpdateSuggestionOutcome(ctx context.Context, s *model.Suggestion) error {
	if t.store.failOutcomeUpdate != nil {
		return t.store.failOutcomeUpdate
	}
	out := *s
	t.outcomes = append(t.outcomes, &out)
	return nil
}

type fakeNotifier struct {
	notices []model.PartnerNotice
	err     error
}

func (n *fakeNotifier) NotifyPartnerAssignment(ctx context.Context, notice model.PartnerNotice) error {
	n.notices = append(n.notices, notice)
	return n.err
}

type fakePublisher struct {
	published []model.Suggestion
	err       error
}

func (p *fakePublisher) PublishOutcome(ctx context.Context, s *model.Suggestion) error {
	p.published = append(p.published, *s)
	return p.err
}

type fakeExplainer struct {
	text string
	err  error
}

func (x *fakeExplainer) Explain(ctx context.Context, s *model.Suggestion) (string, error) {
	return x.text, x.err
}

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	return c.now
}

// testEnv is an engine wired to fakes, with the clock a week before the scheduled week
type testEnv struct {
	engine    *Engine
	store     *fakeStore
	notifier  *fakeNotifier
	publisher *fakePublisher
	explainer *fakeExplainer
	clock     *fakeClock
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		store:     newFakeStore(),
		notifier:  &fakeNotifier{},
		publisher: &fakePublisher{},
		explainer: &fakeExplainer{text: "Alice is available and qualified"},
		clock:     &fakeClock{now: monday.AddDate(0, 0, -7)},
	}

	engine, err := NewEngine(Deps{
		Store:     env.store,
		Logger:    zap.NewNop(),
		Notifier:  env.notifier,
		Explainer: env.explainer,
		Publisher: env.publisher,
		Now:       env.clock.Now,
	}, DefaultSettings())
	require.NoError(t, err)
	env.engine = engine
	return env
}

// generate runs suggestion generation for the seeded week
func (env *testEnv) generate(t *testing.T) *GenerationResult {
	t.Helper()
	result, err := env.engine.GenerateSuggestions(context.Background(), homeOrg, monday, monday.AddDate(0, 0, 7))
	require.NoError(t, err)
	return result
}

func ptr[T any](v T) *T {
	return &v
}
