package patient

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hms/hms/internal/platform/apperr"
	"github.com/hms/hms/internal/platform/db"
)

// -- Mocks --

type mockRepo struct {
	patients map[uuid.UUID]*Patient
}

func newMockRepo() *mockRepo {
	return &mockRepo{patients: make(map[uuid.UUID]*Patient)}
}

func (m *mockRepo) Create(_ context.Context, p *Patient) error {
	p.ID = uuid.New()
	p.CreatedAt = time.Now()
	m.patients[p.ID] = p
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := m.patients[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return p, nil
}

func (m *mockRepo) GetByNumber(_ context.Context, number string) (*Patient, error) {
	for _, p := range m.patients {
		if p.PatientNumber == number {
			return p, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockRepo) Update(_ context.Context, p *Patient) error {
	m.patients[p.ID] = p
	return nil
}

func (m *mockRepo) Deactivate(_ context.Context, id uuid.UUID) error {
	if p, ok := m.patients[id]; ok {
		p.Active = false
	}
	return nil
}

func (m *mockRepo) List(_ context.Context, includeInactive bool, limit, offset int) ([]*Patient, int, error) {
	var result []*Patient
	for _, p := range m.patients {
		if !includeInactive && !p.Active {
			continue
		}
		result = append(result, p)
	}
	return result, len(result), nil
}

func (m *mockRepo) Search(_ context.Context, q string, limit, offset int) ([]*Patient, int, error) {
	var result []*Patient
	for _, p := range m.patients {
		if !p.Active {
			continue
		}
		if strings.Contains(strings.ToLower(p.FullName()), strings.ToLower(q)) ||
			strings.Contains(p.PatientNumber, q) || strings.Contains(p.Phone, q) {
			result = append(result, p)
		}
	}
	return result, len(result), nil
}

type mockSequencer struct {
	n int64
}

func (m *mockSequencer) NextFormatted(_ context.Context, _, prefix string) (string, error) {
	m.n++
	return db.FormatSequence(prefix, m.n), nil
}

// -- Tests --

func newTestService() (*Service, *mockRepo) {
	repo := newMockRepo()
	return NewService(repo, &mockSequencer{}), repo
}

func register(t *testing.T, svc *Service) *Patient {
	t.Helper()
	p, err := svc.Register(context.Background(), RegisterInput{
		FirstName:   "Kwame",
		LastName:    "Osei",
		DateOfBirth: time.Date(1990, 3, 14, 0, 0, 0, 0, time.UTC),
		Gender:      "male",
		Phone:       "0241234567",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return p
}

func TestRegister(t *testing.T) {
	svc, _ := newTestService()
	p := register(t, svc)

	if p.PatientNumber != "PAT-00001" {
		t.Errorf("expected PAT-00001, got %s", p.PatientNumber)
	}
	if p.Gender != "MALE" {
		t.Errorf("expected normalized gender MALE, got %s", p.Gender)
	}
	if !p.Active {
		t.Error("new patients should be active")
	}
	if p.Allergies == nil {
		t.Error("allergies should default to an empty list")
	}
}

func TestRegister_SequentialNumbers(t *testing.T) {
	svc, _ := newTestService()
	first := register(t, svc)
	second, err := svc.Register(context.Background(), RegisterInput{
		FirstName: "Ama", LastName: "Osei",
		DateOfBirth: time.Date(1992, 7, 1, 0, 0, 0, 0, time.UTC),
		Gender:      "FEMALE", Phone: "0249876543",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if first.PatientNumber != "PAT-00001" || second.PatientNumber != "PAT-00002" {
		t.Errorf("expected sequential numbers, got %s then %s", first.PatientNumber, second.PatientNumber)
	}
}

func TestRegister_FutureDateOfBirth(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Register(context.Background(), RegisterInput{
		FirstName: "Kwame", LastName: "Osei",
		DateOfBirth: time.Now().Add(48 * time.Hour),
		Gender:      "MALE", Phone: "0241234567",
	})
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestRegister_InvalidGender(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Register(context.Background(), RegisterInput{
		FirstName: "Kwame", LastName: "Osei",
		DateOfBirth: time.Date(1990, 3, 14, 0, 0, 0, 0, time.UTC),
		Gender:      "UNKNOWN", Phone: "0241234567",
	})
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestAge(t *testing.T) {
	p := &Patient{DateOfBirth: time.Now().AddDate(-30, 0, -1)}
	if got := p.Age(); got != 30 {
		t.Errorf("expected age 30, got %d", got)
	}
	p = &Patient{DateOfBirth: time.Now().AddDate(-30, 0, 1)}
	if got := p.Age(); got != 29 {
		t.Errorf("expected age 29 before birthday, got %d", got)
	}
}

func TestDeactivate_ExcludedFromList(t *testing.T) {
	svc, _ := newTestService()
	p := register(t, svc)
	if err := svc.Deactivate(context.Background(), p.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	items, _, err := svc.List(context.Background(), false, 20, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 0 {
		t.Errorf("expected deactivated patient excluded, got %d", len(items))
	}
}

func TestSearch(t *testing.T) {
	svc, _ := newTestService()
	p := register(t, svc)

	items, total, err := svc.Search(context.Background(), "kwame", 20, 0)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if total != 1 || items[0].ID != p.ID {
		t.Errorf("expected to find the patient by name, got %d results", total)
	}

	if _, _, err := svc.Search(context.Background(), "  ", 20, 0); !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error for empty query, got %v", err)
	}
}

func TestGetByNumber(t *testing.T) {
	svc, _ := newTestService()
	p := register(t, svc)
	got, err := svc.GetByNumber(context.Background(), "pat-00001")
	if err != nil {
		t.Fatalf("get by number: %v", err)
	}
	if got.ID != p.ID {
		t.Error("expected lookup by number to find the patient")
	}
}
