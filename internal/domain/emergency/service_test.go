package emergency

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/hms/hms/internal/platform/apperr"
)

// -- Mocks --

type mockRepo struct {
	cases map[uuid.UUID]*Case
}

func newMockRepo() *mockRepo {
	return &mockRepo{cases: make(map[uuid.UUID]*Case)}
}

func (m *mockRepo) Create(_ context.Context, c *Case) error {
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	m.cases[c.ID] = c
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Case, error) {
	c, ok := m.cases[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return c, nil
}

func (m *mockRepo) Update(_ context.Context, c *Case) error {
	m.cases[c.ID] = c
	return nil
}

func (m *mockRepo) List(_ context.Context, status string, limit, offset int) ([]*Case, int, error) {
	var result []*Case
	for _, c := range m.cases {
		if status != "" && c.Status != status {
			continue
		}
		result = append(result, c)
	}
	return result, len(result), nil
}

var severityRank = map[string]int{SeverityCritical: 0, SeverityModerate: 1, SeverityLow: 2}

func (m *mockRepo) ListActive(_ context.Context) ([]*Case, error) {
	var result []*Case
	for _, c := range m.cases {
		if !c.Resolved() {
			result = append(result, c)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if severityRank[result[i].Severity] != severityRank[result[j].Severity] {
			return severityRank[result[i].Severity] < severityRank[result[j].Severity]
		}
		return result[i].ArrivedAt.Before(result[j].ArrivedAt)
	})
	return result, nil
}

type mockAdmissions struct {
	created []AdmissionRequest
	err     error
}

func (m *mockAdmissions) CreateEmergency(_ context.Context, req AdmissionRequest) (uuid.UUID, error) {
	if m.err != nil {
		return uuid.Nil, m.err
	}
	m.created = append(m.created, req)
	return uuid.New(), nil
}

// -- Tests --

func newTestService() (*Service, *mockRepo, *mockAdmissions) {
	repo := newMockRepo()
	adm := &mockAdmissions{}
	return NewService(repo, adm, zerolog.Nop()), repo, adm
}

func registerCase(t *testing.T, svc *Service, severity string) *Case {
	t.Helper()
	name := "John Doe"
	c, err := svc.Register(context.Background(), RegisterInput{
		TemporaryPatientName: &name,
		Severity:             severity,
		ChiefComplaint:       "chest pain",
		TriageNotes:          "triaged on arrival",
	}, uuid.New())
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return c
}

func TestRegister(t *testing.T) {
	svc, _, _ := newTestService()
	c := registerCase(t, svc, "critical")
	if c.Severity != SeverityCritical {
		t.Errorf("expected normalized CRITICAL, got %s", c.Severity)
	}
	if c.Status != StatusRegistered {
		t.Errorf("expected REGISTERED, got %s", c.Status)
	}
	if c.ArrivedAt.IsZero() {
		t.Error("expected arrival time to be set")
	}
}

func TestRegister_Validation(t *testing.T) {
	svc, _, _ := newTestService()
	name := "John Doe"

	_, err := svc.Register(context.Background(), RegisterInput{TemporaryPatientName: &name, Severity: "URGENT", TriageNotes: "x"}, uuid.New())
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error for bad severity, got %v", err)
	}
	_, err = svc.Register(context.Background(), RegisterInput{TemporaryPatientName: &name, Severity: "LOW"}, uuid.New())
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error without triage notes, got %v", err)
	}
	_, err = svc.Register(context.Background(), RegisterInput{Severity: "LOW", TriageNotes: "x"}, uuid.New())
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error without any patient identity, got %v", err)
	}
}

func TestAdmit_RequiresLinkedPatient(t *testing.T) {
	svc, _, _ := newTestService()
	c := registerCase(t, svc, "CRITICAL")

	_, err := svc.Admit(context.Background(), c.ID, AdmitInput{DoctorID: uuid.New(), WardID: uuid.New()})
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error without linked patient, got %v", err)
	}
}

func TestAdmit(t *testing.T) {
	svc, _, adm := newTestService()
	c := registerCase(t, svc, "CRITICAL")
	patientID := uuid.New()
	if _, err := svc.LinkPatient(context.Background(), c.ID, patientID); err != nil {
		t.Fatalf("link patient: %v", err)
	}

	c, err := svc.Admit(context.Background(), c.ID, AdmitInput{DoctorID: uuid.New(), WardID: uuid.New()})
	if err != nil {
		t.Fatalf("admit: %v", err)
	}
	if c.Status != StatusAdmitted {
		t.Errorf("expected ADMITTED, got %s", c.Status)
	}
	if c.AdmissionID == nil {
		t.Error("expected admission link")
	}
	if c.ResolvedAt != nil {
		t.Error("expected admitted case to remain open")
	}
	if len(adm.created) != 1 || adm.created[0].PatientID != patientID {
		t.Errorf("expected one admission for the linked patient, got %+v", adm.created)
	}

	// the inpatient stay ends with an outcome recorded on the case
	c, err = svc.Discharge(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("discharge after admit: %v", err)
	}
	if c.Status != StatusDischarged || c.ResolvedAt == nil {
		t.Errorf("unexpected discharged state: %+v", c)
	}

	// terminal cases reject further transitions
	if _, err := svc.MarkDeceased(context.Background(), c.ID); !apperr.IsKind(err, apperr.KindConflict) {
		t.Errorf("expected conflict, got %v", err)
	}
}

func TestAdmit_AdmissionFailurePropagates(t *testing.T) {
	svc, repo, adm := newTestService()
	adm.err = apperr.Conflict("bed is not available")
	c := registerCase(t, svc, "CRITICAL")
	svc.LinkPatient(context.Background(), c.ID, uuid.New())

	if _, err := svc.Admit(context.Background(), c.ID, AdmitInput{DoctorID: uuid.New(), WardID: uuid.New()}); !apperr.IsKind(err, apperr.KindConflict) {
		t.Errorf("expected conflict, got %v", err)
	}
	if repo.cases[c.ID].Status != StatusRegistered {
		t.Errorf("expected case still REGISTERED, got %s", repo.cases[c.ID].Status)
	}
}

func TestRefer(t *testing.T) {
	svc, _, _ := newTestService()
	c := registerCase(t, svc, "MODERATE")

	if _, err := svc.Refer(context.Background(), c.ID, "", "no ICU beds"); !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error without facility, got %v", err)
	}
	c, err := svc.Refer(context.Background(), c.ID, "County General", "no ICU beds")
	if err != nil {
		t.Fatalf("refer: %v", err)
	}
	if c.Status != StatusReferred || c.ReferralFacility == nil || c.ResolvedAt == nil {
		t.Errorf("unexpected referred state: %+v", c)
	}
}

func TestMarkDeceased(t *testing.T) {
	svc, _, _ := newTestService()
	c := registerCase(t, svc, "CRITICAL")
	c, err := svc.MarkDeceased(context.Background(), c.ID)
	if err != nil {
		t.Fatalf("mark deceased: %v", err)
	}
	if c.Status != StatusDeceased || c.ResolvedAt == nil {
		t.Errorf("unexpected state: %+v", c)
	}
}

func TestActiveCases_IncludesAdmitted(t *testing.T) {
	svc, _, _ := newTestService()
	c := registerCase(t, svc, "CRITICAL")
	svc.LinkPatient(context.Background(), c.ID, uuid.New())
	if _, err := svc.Admit(context.Background(), c.ID, AdmitInput{DoctorID: uuid.New(), WardID: uuid.New()}); err != nil {
		t.Fatalf("admit: %v", err)
	}

	active, err := svc.ActiveCases(context.Background())
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if len(active) != 1 || active[0].ID != c.ID {
		t.Errorf("expected the admitted case on the active queue, got %d cases", len(active))
	}
}

func TestActiveCases_Ordering(t *testing.T) {
	svc, repo, _ := newTestService()
	low := registerCase(t, svc, "LOW")
	critLate := registerCase(t, svc, "CRITICAL")
	critEarly := registerCase(t, svc, "CRITICAL")
	moderate := registerCase(t, svc, "MODERATE")
	resolved := registerCase(t, svc, "CRITICAL")
	svc.MarkDeceased(context.Background(), resolved.ID)

	base := time.Now()
	repo.cases[critEarly.ID].ArrivedAt = base.Add(-2 * time.Hour)
	repo.cases[critLate.ID].ArrivedAt = base.Add(-1 * time.Hour)
	repo.cases[moderate.ID].ArrivedAt = base.Add(-3 * time.Hour)
	repo.cases[low.ID].ArrivedAt = base.Add(-4 * time.Hour)

	active, err := svc.ActiveCases(context.Background())
	if err != nil {
		t.Fatalf("active: %v", err)
	}
	if len(active) != 4 {
		t.Fatalf("expected 4 active cases, got %d", len(active))
	}
	want := []uuid.UUID{critEarly.ID, critLate.ID, moderate.ID, low.ID}
	for i, id := range want {
		if active[i].ID != id {
			t.Errorf("position %d: expected case %s, got %s", i, id, active[i].ID)
		}
	}
}
