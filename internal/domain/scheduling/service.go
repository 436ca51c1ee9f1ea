package scheduling

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hms/hms/internal/platform/apperr"
)

var validTypes = map[string]bool{TypeNormal: true, TypeEmergency: true, TypeFollowUp: true}

type sequencer interface {
	NextFormatted(ctx context.Context, entity, prefix string) (string, error)
}

type Service struct {
	repo Repository
	seq  sequencer
}

func NewService(repo Repository, seq sequencer) *Service {
	return &Service{repo: repo, seq: seq}
}

type CreateInput struct {
	PatientID      uuid.UUID `json:"patient_id"`
	DoctorID       uuid.UUID `json:"doctor_id"`
	DepartmentID   uuid.UUID `json:"department_id"`
	Date           time.Time `json:"date"`
	TimeSlot       string    `json:"time_slot"`
	Type           string    `json:"type"`
	ReasonForVisit *string   `json:"reason_for_visit"`
	Notes          *string   `json:"notes"`
}

func (s *Service) Create(ctx context.Context, in CreateInput, createdBy uuid.UUID) (*Appointment, error) {
	if in.PatientID == uuid.Nil || in.DoctorID == uuid.Nil || in.DepartmentID == uuid.Nil {
		return nil, apperr.Validation("patient_id, doctor_id and department_id are required")
	}
	if in.Date.IsZero() {
		return nil, apperr.Validation("date is required")
	}
	date := truncateToDay(in.Date)
	if date.Before(truncateToDay(time.Now())) {
		return nil, apperr.Validation("date cannot be in the past")
	}
	slot, err := normalizeSlot(in.TimeSlot)
	if err != nil {
		return nil, err
	}
	apptType := strings.ToUpper(strings.TrimSpace(in.Type))
	if apptType == "" {
		apptType = TypeNormal
	}
	if !validTypes[apptType] {
		return nil, apperr.Validation("type must be NORMAL, EMERGENCY or FOLLOW_UP")
	}

	taken, err := s.repo.SlotTaken(ctx, in.DoctorID, date, slot, uuid.Nil)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if taken {
		return nil, apperr.Conflict("doctor already has an appointment at %s on %s", slot, date.Format("2006-01-02"))
	}

	number, err := s.seq.NextFormatted(ctx, "appointment", "APT")
	if err != nil {
		return nil, apperr.Internal(err)
	}

	a := &Appointment{
		AppointmentNumber: number,
		PatientID:         in.PatientID,
		DoctorID:          in.DoctorID,
		DepartmentID:      in.DepartmentID,
		Date:              date,
		TimeSlot:          slot,
		Type:              apptType,
		Status:            StatusScheduled,
		ReasonForVisit:    in.ReasonForVisit,
		Notes:             in.Notes,
		CreatedBy:         createdBy,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, apperr.Internal(err)
	}
	return a, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("appointment %s not found", id)
		}
		return nil, apperr.Internal(err)
	}
	return a, nil
}

type UpdateInput struct {
	Date           *time.Time `json:"date"`
	TimeSlot       *string    `json:"time_slot"`
	Type           *string    `json:"type"`
	ReasonForVisit *string    `json:"reason_for_visit"`
	Notes          *string    `json:"notes"`
}

// Update reschedules or annotates a SCHEDULED appointment. A changed
// date/slot goes through the same past-date and double-booking checks as
// creation.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*Appointment, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status != StatusScheduled {
		return nil, apperr.Conflict("only scheduled appointments can be updated")
	}

	date, slot := a.Date, a.TimeSlot
	if in.Date != nil {
		date = truncateToDay(*in.Date)
		if date.Before(truncateToDay(time.Now())) {
			return nil, apperr.Validation("date cannot be in the past")
		}
	}
	if in.TimeSlot != nil {
		slot, err = normalizeSlot(*in.TimeSlot)
		if err != nil {
			return nil, err
		}
	}
	if !date.Equal(a.Date) || slot != a.TimeSlot {
		taken, err := s.repo.SlotTaken(ctx, a.DoctorID, date, slot, a.ID)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		if taken {
			return nil, apperr.Conflict("doctor already has an appointment at %s on %s", slot, date.Format("2006-01-02"))
		}
	}
	a.Date, a.TimeSlot = date, slot

	if in.Type != nil {
		apptType := strings.ToUpper(strings.TrimSpace(*in.Type))
		if !validTypes[apptType] {
			return nil, apperr.Validation("type must be NORMAL, EMERGENCY or FOLLOW_UP")
		}
		a.Type = apptType
	}
	if in.ReasonForVisit != nil {
		a.ReasonForVisit = in.ReasonForVisit
	}
	if in.Notes != nil {
		a.Notes = in.Notes
	}

	if err := s.repo.Update(ctx, a); err != nil {
		return nil, apperr.Internal(err)
	}
	return a, nil
}

func (s *Service) Cancel(ctx context.Context, id uuid.UUID, reason string, cancelledBy uuid.UUID) (*Appointment, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status != StatusScheduled {
		return nil, apperr.Conflict("cannot cancel a %s appointment", a.Status)
	}
	now := time.Now()
	a.Status = StatusCancelled
	a.CancellationReason = &reason
	a.CancelledAt = &now
	a.CancelledBy = &cancelledBy
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, apperr.Internal(err)
	}
	return a, nil
}

func (s *Service) Start(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, StatusScheduled, StatusInProgress)
}

func (s *Service) Complete(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, StatusInProgress, StatusCompleted)
}

func (s *Service) MarkNoShow(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.transition(ctx, id, StatusScheduled, StatusNoShow)
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, from, to string) (*Appointment, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status != from {
		return nil, apperr.Conflict("cannot move a %s appointment to %s", a.Status, to)
	}
	a.Status = to
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, apperr.Internal(err)
	}
	return a, nil
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Appointment, int, error) {
	items, total, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	return items, total, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	items, total, err := s.repo.ListByPatient(ctx, patientID, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	return items, total, nil
}

func (s *Service) ListByDoctorDate(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]*Appointment, error) {
	items, err := s.repo.ListByDoctorDate(ctx, doctorID, truncateToDay(date))
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return items, nil
}

// AvailableSlots returns the working-hour grid minus the doctor's booked
// slots for that day.
func (s *Service) AvailableSlots(ctx context.Context, doctorID uuid.UUID, date time.Time) ([]string, error) {
	booked, err := s.repo.BookedSlots(ctx, doctorID, truncateToDay(date))
	if err != nil {
		return nil, apperr.Internal(err)
	}
	taken := make(map[string]bool, len(booked))
	for _, slot := range booked {
		taken[slot] = true
	}
	available := make([]string, 0, 16)
	for _, slot := range WorkingSlots() {
		if !taken[slot] {
			available = append(available, slot)
		}
	}
	return available, nil
}

func normalizeSlot(slot string) (string, error) {
	slot = strings.TrimSpace(slot)
	t, err := time.Parse("15:04", slot)
	if err != nil {
		return "", apperr.Validation("time_slot must be in HH:MM form")
	}
	return t.Format("15:04"), nil
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
