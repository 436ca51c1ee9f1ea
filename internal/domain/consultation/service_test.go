package consultation

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hms/hms/internal/platform/apperr"
)

type mockRepo struct {
	consultations map[uuid.UUID]*Consultation
}

func newMockRepo() *mockRepo {
	return &mockRepo{consultations: make(map[uuid.UUID]*Consultation)}
}

func (m *mockRepo) Create(_ context.Context, c *Consultation) error {
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	m.consultations[c.ID] = c
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Consultation, error) {
	c, ok := m.consultations[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return c, nil
}

func (m *mockRepo) Update(_ context.Context, c *Consultation) error {
	m.consultations[c.ID] = c
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.consultations, id)
	return nil
}

func (m *mockRepo) List(_ context.Context, limit, offset int) ([]*Consultation, int, error) {
	var result []*Consultation
	for _, c := range m.consultations {
		result = append(result, c)
	}
	return result, len(result), nil
}

func (m *mockRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*Consultation, int, error) {
	var result []*Consultation
	for _, c := range m.consultations {
		if c.PatientID == patientID {
			result = append(result, c)
		}
	}
	return result, len(result), nil
}

func (m *mockRepo) ListByDoctor(_ context.Context, doctorID uuid.UUID, limit, offset int) ([]*Consultation, int, error) {
	var result []*Consultation
	for _, c := range m.consultations {
		if c.DoctorID == doctorID {
			result = append(result, c)
		}
	}
	return result, len(result), nil
}

func newTestService() *Service {
	return NewService(newMockRepo())
}

func TestCreate(t *testing.T) {
	svc := newTestService()
	c, err := svc.Create(context.Background(), CreateInput{
		PatientID: uuid.New(),
		Diagnosis: "malaria",
		Symptoms:  []string{"fever", "chills"},
		Outcome:   "pharmacy",
	}, uuid.New())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if c.Outcome != OutcomePharmacy {
		t.Errorf("expected normalized outcome PHARMACY, got %s", c.Outcome)
	}
	if c.ConsultationDate.IsZero() {
		t.Error("expected consultation date to be set")
	}
	if c.LabRequests == nil {
		t.Error("expected lab requests to default to an empty list")
	}
}

func TestCreate_InvalidOutcome(t *testing.T) {
	svc := newTestService()
	_, err := svc.Create(context.Background(), CreateInput{
		PatientID: uuid.New(), Diagnosis: "malaria", Outcome: "SENT_HOME",
	}, uuid.New())
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestCreate_ReferralRequiresFacility(t *testing.T) {
	svc := newTestService()
	_, err := svc.Create(context.Background(), CreateInput{
		PatientID: uuid.New(), Diagnosis: "fracture", Outcome: "REFERRED",
	}, uuid.New())
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestCreate_FollowUpRequiresDate(t *testing.T) {
	svc := newTestService()
	_, err := svc.Create(context.Background(), CreateInput{
		PatientID: uuid.New(), Diagnosis: "hypertension", Outcome: "FOLLOW_UP",
	}, uuid.New())
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}

	past := time.Now().Add(-24 * time.Hour)
	_, err = svc.Create(context.Background(), CreateInput{
		PatientID: uuid.New(), Diagnosis: "hypertension", Outcome: "FOLLOW_UP", FollowUpDate: &past,
	}, uuid.New())
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error for past follow-up, got %v", err)
	}
}

func TestUpdate_OutcomeImmutable(t *testing.T) {
	svc := newTestService()
	c, err := svc.Create(context.Background(), CreateInput{
		PatientID: uuid.New(), Diagnosis: "malaria", Outcome: "DISCHARGED",
	}, uuid.New())
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	notes := "recovering well"
	updated, err := svc.Update(context.Background(), c.ID, UpdateInput{Notes: &notes})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Outcome != OutcomeDischarged {
		t.Errorf("outcome must not change on update, got %s", updated.Outcome)
	}
	if updated.Notes == nil || *updated.Notes != "recovering well" {
		t.Error("expected notes to be updated")
	}
}

func TestDelete(t *testing.T) {
	svc := newTestService()
	c, err := svc.Create(context.Background(), CreateInput{
		PatientID: uuid.New(), Diagnosis: "malaria", Outcome: "DISCHARGED",
	}, uuid.New())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.Delete(context.Background(), c.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(context.Background(), c.ID); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Errorf("expected not found after delete, got %v", err)
	}
}
