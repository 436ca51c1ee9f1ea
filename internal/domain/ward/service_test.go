package ward

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hms/hms/internal/platform/apperr"
)

// -- Mocks --

type mockWardRepo struct {
	wards map[uuid.UUID]*Ward
}

func newMockWardRepo() *mockWardRepo {
	return &mockWardRepo{wards: make(map[uuid.UUID]*Ward)}
}

func (m *mockWardRepo) Create(_ context.Context, w *Ward) error {
	w.ID = uuid.New()
	w.CreatedAt = time.Now()
	m.wards[w.ID] = w
	return nil
}

func (m *mockWardRepo) GetByID(_ context.Context, id uuid.UUID) (*Ward, error) {
	w, ok := m.wards[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return w, nil
}

func (m *mockWardRepo) GetByName(_ context.Context, name string) (*Ward, error) {
	for _, w := range m.wards {
		if w.Name == name {
			return w, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockWardRepo) Update(_ context.Context, w *Ward) error {
	m.wards[w.ID] = w
	return nil
}

func (m *mockWardRepo) Deactivate(_ context.Context, id uuid.UUID) error {
	if w, ok := m.wards[id]; ok {
		w.Active = false
	}
	return nil
}

func (m *mockWardRepo) List(_ context.Context, includeInactive bool, limit, offset int) ([]*Ward, int, error) {
	var result []*Ward
	for _, w := range m.wards {
		if !includeInactive && !w.Active {
			continue
		}
		result = append(result, w)
	}
	return result, len(result), nil
}

type mockBedRepo struct {
	beds map[uuid.UUID]*Bed
}

func newMockBedRepo() *mockBedRepo {
	return &mockBedRepo{beds: make(map[uuid.UUID]*Bed)}
}

func (m *mockBedRepo) Create(_ context.Context, b *Bed) error {
	b.ID = uuid.New()
	m.beds[b.ID] = b
	return nil
}

func (m *mockBedRepo) GetByID(_ context.Context, id uuid.UUID) (*Bed, error) {
	b, ok := m.beds[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return b, nil
}

func (m *mockBedRepo) GetByWardAndNumber(_ context.Context, wardID uuid.UUID, number string) (*Bed, error) {
	for _, b := range m.beds {
		if b.WardID == wardID && b.BedNumber == number {
			return b, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (m *mockBedRepo) Update(_ context.Context, b *Bed) error {
	m.beds[b.ID] = b
	return nil
}

func (m *mockBedRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.beds, id)
	return nil
}

func (m *mockBedRepo) ListByWard(_ context.Context, wardID uuid.UUID) ([]*Bed, error) {
	var result []*Bed
	for _, b := range m.beds {
		if b.WardID == wardID {
			result = append(result, b)
		}
	}
	return result, nil
}

func (m *mockBedRepo) CountByWard(_ context.Context, wardID uuid.UUID) (int, error) {
	count := 0
	for _, b := range m.beds {
		if b.WardID == wardID {
			count++
		}
	}
	return count, nil
}

func (m *mockBedRepo) ListAvailable(_ context.Context, wardType string) ([]*Bed, error) {
	var result []*Bed
	for _, b := range m.beds {
		if b.Status == BedAvailable {
			result = append(result, b)
		}
	}
	return result, nil
}

func (m *mockBedRepo) SetStatusIf(_ context.Context, id uuid.UUID, to string, from ...string) (bool, error) {
	b, ok := m.beds[id]
	if !ok {
		return false, nil
	}
	for _, f := range from {
		if b.Status == f {
			b.Status = to
			return true, nil
		}
	}
	return false, nil
}

// -- Tests --

func newTestService() *Service {
	return NewService(newMockWardRepo(), newMockBedRepo())
}

func makeWard(t *testing.T, svc *Service, capacity int) *Ward {
	t.Helper()
	w, err := svc.CreateWard(context.Background(), WardInput{Name: "Ward A", Type: "general", Capacity: capacity})
	if err != nil {
		t.Fatalf("create ward: %v", err)
	}
	return w
}

func TestCreateWard(t *testing.T) {
	svc := newTestService()
	w := makeWard(t, svc, 4)
	if w.Type != TypeGeneral {
		t.Errorf("expected normalized type GENERAL, got %s", w.Type)
	}
	if !w.Active {
		t.Error("new wards should be active")
	}
}

func TestCreateWard_Invalid(t *testing.T) {
	svc := newTestService()
	if _, err := svc.CreateWard(context.Background(), WardInput{Name: "W", Type: "PENTHOUSE", Capacity: 2}); !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error for bad type, got %v", err)
	}
	if _, err := svc.CreateWard(context.Background(), WardInput{Name: "W", Type: "ICU", Capacity: 0}); !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error for zero capacity, got %v", err)
	}
}

func TestCreateWard_Duplicate(t *testing.T) {
	svc := newTestService()
	makeWard(t, svc, 4)
	if _, err := svc.CreateWard(context.Background(), WardInput{Name: "Ward A", Type: "ICU", Capacity: 2}); !apperr.IsKind(err, apperr.KindConflict) {
		t.Errorf("expected conflict, got %v", err)
	}
}

func TestAddBed_Capacity(t *testing.T) {
	svc := newTestService()
	w := makeWard(t, svc, 2)

	if _, err := svc.AddBed(context.Background(), w.ID, BedInput{BedNumber: "A1"}); err != nil {
		t.Fatalf("add bed: %v", err)
	}
	if _, err := svc.AddBed(context.Background(), w.ID, BedInput{BedNumber: "A2"}); err != nil {
		t.Fatalf("add bed: %v", err)
	}
	if _, err := svc.AddBed(context.Background(), w.ID, BedInput{BedNumber: "A3"}); !apperr.IsKind(err, apperr.KindConflict) {
		t.Errorf("expected conflict at capacity, got %v", err)
	}
}

func TestAddBed_DuplicateNumber(t *testing.T) {
	svc := newTestService()
	w := makeWard(t, svc, 4)
	if _, err := svc.AddBed(context.Background(), w.ID, BedInput{BedNumber: "A1"}); err != nil {
		t.Fatalf("add bed: %v", err)
	}
	if _, err := svc.AddBed(context.Background(), w.ID, BedInput{BedNumber: "A1"}); !apperr.IsKind(err, apperr.KindConflict) {
		t.Errorf("expected conflict for duplicate bed number, got %v", err)
	}
}

func TestOccupyAndFree(t *testing.T) {
	svc := newTestService()
	w := makeWard(t, svc, 4)
	b, err := svc.AddBed(context.Background(), w.ID, BedInput{BedNumber: "A1"})
	if err != nil {
		t.Fatalf("add bed: %v", err)
	}

	if err := svc.Occupy(context.Background(), b.ID); err != nil {
		t.Fatalf("occupy: %v", err)
	}
	// second occupancy of the same bed must fail
	if err := svc.Occupy(context.Background(), b.ID); !apperr.IsKind(err, apperr.KindConflict) {
		t.Errorf("expected conflict occupying an occupied bed, got %v", err)
	}

	if err := svc.Free(context.Background(), b.ID); err != nil {
		t.Fatalf("free: %v", err)
	}
	got, err := svc.GetBed(context.Background(), b.ID)
	if err != nil {
		t.Fatalf("get bed: %v", err)
	}
	if got.Status != BedAvailable {
		t.Errorf("expected AVAILABLE after free, got %s", got.Status)
	}
}

func TestSetBedStatus_OccupiedGuard(t *testing.T) {
	svc := newTestService()
	w := makeWard(t, svc, 4)
	b, _ := svc.AddBed(context.Background(), w.ID, BedInput{BedNumber: "A1"})
	if err := svc.Occupy(context.Background(), b.ID); err != nil {
		t.Fatalf("occupy: %v", err)
	}
	if _, err := svc.SetBedStatus(context.Background(), b.ID, "MAINTENANCE"); !apperr.IsKind(err, apperr.KindConflict) {
		t.Errorf("expected conflict moving occupied bed to maintenance, got %v", err)
	}
}

func TestSetBedStatus_MaintenanceTimestamp(t *testing.T) {
	svc := newTestService()
	w := makeWard(t, svc, 4)
	b, _ := svc.AddBed(context.Background(), w.ID, BedInput{BedNumber: "A1"})
	updated, err := svc.SetBedStatus(context.Background(), b.ID, "maintenance")
	if err != nil {
		t.Fatalf("set status: %v", err)
	}
	if updated.LastMaintenance == nil {
		t.Error("expected last maintenance to be recorded")
	}
}

func TestDeleteBed_OccupiedGuard(t *testing.T) {
	svc := newTestService()
	w := makeWard(t, svc, 4)
	b, _ := svc.AddBed(context.Background(), w.ID, BedInput{BedNumber: "A1"})
	if err := svc.Occupy(context.Background(), b.ID); err != nil {
		t.Fatalf("occupy: %v", err)
	}
	if err := svc.DeleteBed(context.Background(), b.ID); !apperr.IsKind(err, apperr.KindConflict) {
		t.Errorf("expected conflict deleting occupied bed, got %v", err)
	}
}

func TestAvailableBeds_InvalidType(t *testing.T) {
	svc := newTestService()
	if _, err := svc.AvailableBeds(context.Background(), "PENTHOUSE"); !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}
