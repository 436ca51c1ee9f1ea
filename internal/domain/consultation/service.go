package consultation

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hms/hms/internal/platform/apperr"
)

var validOutcomes = map[string]bool{
	OutcomeDischarged: true,
	OutcomePharmacy:   true,
	OutcomeAdmitted:   true,
	OutcomeReferred:   true,
	OutcomeFollowUp:   true,
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

type CreateInput struct {
	AppointmentID    *uuid.UUID `json:"appointment_id"`
	PatientID        uuid.UUID  `json:"patient_id"`
	Diagnosis        string     `json:"diagnosis"`
	Symptoms         []string   `json:"symptoms"`
	LabRequests      []string   `json:"lab_requests"`
	Notes            *string    `json:"notes"`
	Outcome          string     `json:"outcome"`
	ReferralFacility *string    `json:"referral_facility"`
	ReferralReason   *string    `json:"referral_reason"`
	FollowUpDate     *time.Time `json:"follow_up_date"`
}

func (s *Service) Create(ctx context.Context, in CreateInput, doctorID uuid.UUID) (*Consultation, error) {
	if in.PatientID == uuid.Nil {
		return nil, apperr.Validation("patient_id is required")
	}
	if strings.TrimSpace(in.Diagnosis) == "" {
		return nil, apperr.Validation("diagnosis is required")
	}
	outcome := strings.ToUpper(strings.TrimSpace(in.Outcome))
	if !validOutcomes[outcome] {
		return nil, apperr.Validation("outcome must be one of DISCHARGED, PHARMACY, ADMITTED, REFERRED, FOLLOW_UP")
	}
	if outcome == OutcomeReferred && (in.ReferralFacility == nil || strings.TrimSpace(*in.ReferralFacility) == "") {
		return nil, apperr.Validation("referral_facility is required for a REFERRED outcome")
	}
	if outcome == OutcomeFollowUp {
		if in.FollowUpDate == nil {
			return nil, apperr.Validation("follow_up_date is required for a FOLLOW_UP outcome")
		}
		if in.FollowUpDate.Before(time.Now()) {
			return nil, apperr.Validation("follow_up_date cannot be in the past")
		}
	}

	symptoms := in.Symptoms
	if symptoms == nil {
		symptoms = []string{}
	}
	labRequests := in.LabRequests
	if labRequests == nil {
		labRequests = []string{}
	}

	c := &Consultation{
		AppointmentID:    in.AppointmentID,
		PatientID:        in.PatientID,
		DoctorID:         doctorID,
		Diagnosis:        strings.TrimSpace(in.Diagnosis),
		Symptoms:         symptoms,
		LabRequests:      labRequests,
		Notes:            in.Notes,
		Outcome:          outcome,
		ReferralFacility: in.ReferralFacility,
		ReferralReason:   in.ReferralReason,
		FollowUpDate:     in.FollowUpDate,
		ConsultationDate: time.Now(),
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, apperr.Internal(err)
	}
	return c, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Consultation, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("consultation %s not found", id)
		}
		return nil, apperr.Internal(err)
	}
	return c, nil
}

type UpdateInput struct {
	Diagnosis        *string    `json:"diagnosis"`
	Symptoms         []string   `json:"symptoms"`
	LabRequests      []string   `json:"lab_requests"`
	Notes            *string    `json:"notes"`
	ReferralFacility *string    `json:"referral_facility"`
	ReferralReason   *string    `json:"referral_reason"`
	FollowUpDate     *time.Time `json:"follow_up_date"`
}

// Update amends clinical detail. The outcome itself is immutable once
// recorded; downstream records may already have been created from it.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*Consultation, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.Diagnosis != nil {
		if strings.TrimSpace(*in.Diagnosis) == "" {
			return nil, apperr.Validation("diagnosis cannot be empty")
		}
		c.Diagnosis = strings.TrimSpace(*in.Diagnosis)
	}
	if in.Symptoms != nil {
		c.Symptoms = in.Symptoms
	}
	if in.LabRequests != nil {
		c.LabRequests = in.LabRequests
	}
	if in.Notes != nil {
		c.Notes = in.Notes
	}
	if in.ReferralFacility != nil {
		c.ReferralFacility = in.ReferralFacility
	}
	if in.ReferralReason != nil {
		c.ReferralReason = in.ReferralReason
	}
	if in.FollowUpDate != nil {
		c.FollowUpDate = in.FollowUpDate
	}
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, apperr.Internal(err)
	}
	return c, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Consultation, int, error) {
	items, total, err := s.repo.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	return items, total, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Consultation, int, error) {
	items, total, err := s.repo.ListByPatient(ctx, patientID, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	return items, total, nil
}

func (s *Service) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Consultation, int, error) {
	items, total, err := s.repo.ListByDoctor(ctx, doctorID, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	return items, total, nil
}
