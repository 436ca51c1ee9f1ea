package scheduling

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hms/hms/internal/platform/apperr"
	"github.com/hms/hms/internal/platform/db"
)

// -- Mocks --

type mockRepo struct {
	appointments map[uuid.UUID]*Appointment
}

func newMockRepo() *mockRepo {
	return &mockRepo{appointments: make(map[uuid.UUID]*Appointment)}
}

func (m *mockRepo) Create(_ context.Context, a *Appointment) error {
	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	m.appointments[a.ID] = a
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	a, ok := m.appointments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return a, nil
}

func (m *mockRepo) Update(_ context.Context, a *Appointment) error {
	m.appointments[a.ID] = a
	return nil
}

func (m *mockRepo) List(_ context.Context, limit, offset int) ([]*Appointment, int, error) {
	var result []*Appointment
	for _, a := range m.appointments {
		result = append(result, a)
	}
	return result, len(result), nil
}

func (m *mockRepo) ListByPatient(_ context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	var result []*Appointment
	for _, a := range m.appointments {
		if a.PatientID == patientID {
			result = append(result, a)
		}
	}
	return result, len(result), nil
}

func (m *mockRepo) ListByDoctorDate(_ context.Context, doctorID uuid.UUID, date time.Time) ([]*Appointment, error) {
	var result []*Appointment
	for _, a := range m.appointments {
		if a.DoctorID == doctorID && a.Date.Equal(date) {
			result = append(result, a)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].TimeSlot < result[j].TimeSlot })
	return result, nil
}

func (m *mockRepo) SlotTaken(_ context.Context, doctorID uuid.UUID, date time.Time, slot string, exclude uuid.UUID) (bool, error) {
	for _, a := range m.appointments {
		if a.ID != exclude && a.DoctorID == doctorID && a.Date.Equal(date) && a.TimeSlot == slot && a.Active() {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRepo) BookedSlots(_ context.Context, doctorID uuid.UUID, date time.Time) ([]string, error) {
	var slots []string
	for _, a := range m.appointments {
		if a.DoctorID == doctorID && a.Date.Equal(date) && a.Status != StatusCancelled {
			slots = append(slots, a.TimeSlot)
		}
	}
	return slots, nil
}

type mockSequencer struct{ n int64 }

func (m *mockSequencer) NextFormatted(_ context.Context, _, prefix string) (string, error) {
	m.n++
	return db.FormatSequence(prefix, m.n), nil
}

// -- Tests --

func newTestService() (*Service, *mockRepo) {
	repo := newMockRepo()
	return NewService(repo, &mockSequencer{}), repo
}

func tomorrow() time.Time {
	return time.Now().Add(24 * time.Hour)
}

func makeAppointment(t *testing.T, svc *Service, doctorID uuid.UUID, slot string) *Appointment {
	t.Helper()
	a, err := svc.Create(context.Background(), CreateInput{
		PatientID:    uuid.New(),
		DoctorID:     doctorID,
		DepartmentID: uuid.New(),
		Date:         tomorrow(),
		TimeSlot:     slot,
	}, uuid.New())
	if err != nil {
		t.Fatalf("create appointment: %v", err)
	}
	return a
}

func TestCreate(t *testing.T) {
	svc, _ := newTestService()
	a := makeAppointment(t, svc, uuid.New(), "09:30")

	if a.AppointmentNumber != "APT-00001" {
		t.Errorf("expected APT-00001, got %s", a.AppointmentNumber)
	}
	if a.Status != StatusScheduled {
		t.Errorf("expected SCHEDULED, got %s", a.Status)
	}
	if a.Type != TypeNormal {
		t.Errorf("expected default type NORMAL, got %s", a.Type)
	}
}

func TestCreate_PastDate(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Create(context.Background(), CreateInput{
		PatientID: uuid.New(), DoctorID: uuid.New(), DepartmentID: uuid.New(),
		Date: time.Now().Add(-48 * time.Hour), TimeSlot: "09:00",
	}, uuid.New())
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error for past date, got %v", err)
	}
}

func TestCreate_TodayAllowed(t *testing.T) {
	// The past check compares dates only, so today is always bookable.
	svc, _ := newTestService()
	_, err := svc.Create(context.Background(), CreateInput{
		PatientID: uuid.New(), DoctorID: uuid.New(), DepartmentID: uuid.New(),
		Date: time.Now(), TimeSlot: "09:00",
	}, uuid.New())
	if err != nil {
		t.Errorf("expected same-day creation to succeed, got %v", err)
	}
}

func TestCreate_DoubleBooking(t *testing.T) {
	svc, _ := newTestService()
	doctorID := uuid.New()
	makeAppointment(t, svc, doctorID, "10:00")

	_, err := svc.Create(context.Background(), CreateInput{
		PatientID: uuid.New(), DoctorID: doctorID, DepartmentID: uuid.New(),
		Date: tomorrow(), TimeSlot: "10:00",
	}, uuid.New())
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Errorf("expected conflict for double booking, got %v", err)
	}
}

func TestCreate_CancelledSlotReusable(t *testing.T) {
	svc, _ := newTestService()
	doctorID := uuid.New()
	a := makeAppointment(t, svc, doctorID, "10:00")
	if _, err := svc.Cancel(context.Background(), a.ID, "patient request", uuid.New()); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	if _, err := svc.Create(context.Background(), CreateInput{
		PatientID: uuid.New(), DoctorID: doctorID, DepartmentID: uuid.New(),
		Date: tomorrow(), TimeSlot: "10:00",
	}, uuid.New()); err != nil {
		t.Errorf("expected cancelled slot to be reusable, got %v", err)
	}
}

func TestCreate_InvalidSlot(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.Create(context.Background(), CreateInput{
		PatientID: uuid.New(), DoctorID: uuid.New(), DepartmentID: uuid.New(),
		Date: tomorrow(), TimeSlot: "quarter past nine",
	}, uuid.New())
	if !apperr.IsKind(err, apperr.KindValidation) {
		t.Errorf("expected validation error, got %v", err)
	}
}

func TestLifecycle_StrictGuards(t *testing.T) {
	svc, _ := newTestService()
	a := makeAppointment(t, svc, uuid.New(), "11:00")

	// complete before start is rejected
	if _, err := svc.Complete(context.Background(), a.ID); !apperr.IsKind(err, apperr.KindConflict) {
		t.Errorf("expected conflict completing a scheduled appointment, got %v", err)
	}

	if _, err := svc.Start(context.Background(), a.ID); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := svc.Start(context.Background(), a.ID); !apperr.IsKind(err, apperr.KindConflict) {
		t.Errorf("expected conflict starting twice, got %v", err)
	}
	if _, err := svc.MarkNoShow(context.Background(), a.ID); !apperr.IsKind(err, apperr.KindConflict) {
		t.Errorf("expected conflict marking in-progress as no-show, got %v", err)
	}
	if _, err := svc.Cancel(context.Background(), a.ID, "too late", uuid.New()); !apperr.IsKind(err, apperr.KindConflict) {
		t.Errorf("expected conflict cancelling in-progress appointment, got %v", err)
	}

	done, err := svc.Complete(context.Background(), a.ID)
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	if done.Status != StatusCompleted {
		t.Errorf("expected COMPLETED, got %s", done.Status)
	}
}

func TestCancel_RecordsDetails(t *testing.T) {
	svc, _ := newTestService()
	a := makeAppointment(t, svc, uuid.New(), "11:30")
	actor := uuid.New()

	cancelled, err := svc.Cancel(context.Background(), a.ID, "patient request", actor)
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != StatusCancelled {
		t.Errorf("expected CANCELLED, got %s", cancelled.Status)
	}
	if cancelled.CancellationReason == nil || *cancelled.CancellationReason != "patient request" {
		t.Error("expected cancellation reason to be recorded")
	}
	if cancelled.CancelledBy == nil || *cancelled.CancelledBy != actor {
		t.Error("expected cancelling actor to be recorded")
	}
	if cancelled.CancelledAt == nil {
		t.Error("expected cancellation timestamp to be recorded")
	}

	if _, err := svc.Cancel(context.Background(), a.ID, "again", actor); !apperr.IsKind(err, apperr.KindConflict) {
		t.Errorf("expected conflict cancelling twice, got %v", err)
	}
}

func TestWorkingSlots(t *testing.T) {
	slots := WorkingSlots()
	if len(slots) != 16 {
		t.Fatalf("expected 16 slots, got %d", len(slots))
	}
	if slots[0] != "09:00" || slots[len(slots)-1] != "16:30" {
		t.Errorf("expected grid 09:00..16:30, got %s..%s", slots[0], slots[len(slots)-1])
	}
}

func TestAvailableSlots(t *testing.T) {
	svc, _ := newTestService()
	doctorID := uuid.New()
	makeAppointment(t, svc, doctorID, "09:00")
	makeAppointment(t, svc, doctorID, "14:30")

	slots, err := svc.AvailableSlots(context.Background(), doctorID, tomorrow())
	if err != nil {
		t.Fatalf("available slots: %v", err)
	}
	if len(slots) != 14 {
		t.Errorf("expected 14 available slots, got %d", len(slots))
	}
	for _, slot := range slots {
		if slot == "09:00" || slot == "14:30" {
			t.Errorf("booked slot %s should not be available", slot)
		}
	}
}

func TestUpdate_RescheduleConflict(t *testing.T) {
	svc, _ := newTestService()
	doctorID := uuid.New()
	makeAppointment(t, svc, doctorID, "09:00")
	b := makeAppointment(t, svc, doctorID, "09:30")

	newSlot := "09:00"
	_, err := svc.Update(context.Background(), b.ID, UpdateInput{TimeSlot: &newSlot})
	if !apperr.IsKind(err, apperr.KindConflict) {
		t.Errorf("expected conflict rescheduling onto a taken slot, got %v", err)
	}
}

func TestListByDoctorDate_SortedBySlot(t *testing.T) {
	svc, _ := newTestService()
	doctorID := uuid.New()
	makeAppointment(t, svc, doctorID, "15:00")
	makeAppointment(t, svc, doctorID, "09:30")
	makeAppointment(t, svc, doctorID, "11:00")

	items, err := svc.ListByDoctorDate(context.Background(), doctorID, tomorrow())
	if err != nil {
		t.Fatalf("list by doctor: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 appointments, got %d", len(items))
	}
	if items[0].TimeSlot != "09:30" || items[2].TimeSlot != "15:00" {
		t.Errorf("expected slot ordering, got %s, %s, %s", items[0].TimeSlot, items[1].TimeSlot, items[2].TimeSlot)
	}
}
