package emergency

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/hms/hms/internal/platform/apperr"
)

var validSeverities = map[string]bool{SeverityLow: true, SeverityModerate: true, SeverityCritical: true}

// AdmissionRequest carries what the ward needs to open an emergency
// admission for a triaged case.
type AdmissionRequest struct {
	PatientID uuid.UUID
	DoctorID  uuid.UUID
	WardID    uuid.UUID
	BedID     *uuid.UUID
	Reason    string
}

// AdmissionCreator opens an emergency admission and returns its id.
type AdmissionCreator interface {
	CreateEmergency(ctx context.Context, req AdmissionRequest) (uuid.UUID, error)
}

type Service struct {
	repo       Repository
	admissions AdmissionCreator
	logger     zerolog.Logger
}

func NewService(repo Repository, admissions AdmissionCreator, logger zerolog.Logger) *Service {
	return &Service{repo: repo, admissions: admissions, logger: logger}
}

type RegisterInput struct {
	PatientID            *uuid.UUID `json:"patient_id"`
	TemporaryPatientName *string    `json:"temporary_patient_name"`
	Severity             string     `json:"severity"`
	ChiefComplaint       string     `json:"chief_complaint"`
	TriageNotes          string     `json:"triage_notes"`
	Temperature          *float64   `json:"temperature"`
	Pulse                *int       `json:"pulse"`
	BPSystolic           *int       `json:"bp_systolic"`
	BPDiastolic          *int       `json:"bp_diastolic"`
}

func (s *Service) Register(ctx context.Context, in RegisterInput, handledBy uuid.UUID) (*Case, error) {
	severity := strings.ToUpper(strings.TrimSpace(in.Severity))
	if !validSeverities[severity] {
		return nil, apperr.Validation("severity must be LOW, MODERATE or CRITICAL")
	}
	if strings.TrimSpace(in.TriageNotes) == "" {
		return nil, apperr.Validation("triage notes are required")
	}
	hasPatient := in.PatientID != nil && *in.PatientID != uuid.Nil
	hasName := in.TemporaryPatientName != nil && strings.TrimSpace(*in.TemporaryPatientName) != ""
	if !hasPatient && !hasName {
		return nil, apperr.Validation("either patient_id or temporary_patient_name is required")
	}

	c := &Case{
		PatientID:            in.PatientID,
		TemporaryPatientName: in.TemporaryPatientName,
		Severity:             severity,
		ChiefComplaint:       strings.TrimSpace(in.ChiefComplaint),
		TriageNotes:          strings.TrimSpace(in.TriageNotes),
		Temperature:          in.Temperature,
		Pulse:                in.Pulse,
		BPSystolic:           in.BPSystolic,
		BPDiastolic:          in.BPDiastolic,
		Status:               StatusRegistered,
		HandledBy:            &handledBy,
		ArrivedAt:            time.Now(),
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, apperr.Internal(err)
	}
	s.logger.Info().Str("severity", c.Severity).Str("case_id", c.ID.String()).Msg("emergency case registered")
	return c, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Case, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("emergency case %s not found", id)
		}
		return nil, apperr.Internal(err)
	}
	return c, nil
}

// LinkPatient attaches a registered patient record to an unresolved case,
// usually after a walk-in has been identified.
func (s *Service) LinkPatient(ctx context.Context, id, patientID uuid.UUID) (*Case, error) {
	if patientID == uuid.Nil {
		return nil, apperr.Validation("patient_id is required")
	}
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Resolved() {
		return nil, apperr.Conflict("case is already %s", c.Status)
	}
	c.PatientID = &patientID
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, apperr.Internal(err)
	}
	return c, nil
}

type AdmitInput struct {
	DoctorID uuid.UUID  `json:"doctor_id"`
	WardID   uuid.UUID  `json:"ward_id"`
	BedID    *uuid.UUID `json:"bed_id"`
}

// Admit turns a registered case into an inpatient admission. The case must
// have a patient record linked first.
func (s *Service) Admit(ctx context.Context, id uuid.UUID, in AdmitInput) (*Case, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status != StatusRegistered {
		return nil, apperr.Conflict("case is already %s", c.Status)
	}
	if c.PatientID == nil || *c.PatientID == uuid.Nil {
		return nil, apperr.Validation("a patient record must be linked before admitting")
	}
	if in.DoctorID == uuid.Nil || in.WardID == uuid.Nil {
		return nil, apperr.Validation("doctor_id and ward_id are required")
	}

	reason := c.ChiefComplaint
	if reason == "" {
		reason = c.TriageNotes
	}
	admissionID, err := s.admissions.CreateEmergency(ctx, AdmissionRequest{
		PatientID: *c.PatientID,
		DoctorID:  in.DoctorID,
		WardID:    in.WardID,
		BedID:     in.BedID,
		Reason:    reason,
	})
	if err != nil {
		return nil, err
	}

	c.Status = StatusAdmitted
	c.AdmissionID = &admissionID
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, apperr.Internal(err)
	}
	return c, nil
}

func (s *Service) Discharge(ctx context.Context, id uuid.UUID) (*Case, error) {
	return s.resolve(ctx, id, StatusDischarged, func(*Case) {})
}

func (s *Service) Refer(ctx context.Context, id uuid.UUID, facility, reason string) (*Case, error) {
	if strings.TrimSpace(facility) == "" {
		return nil, apperr.Validation("referral facility is required")
	}
	return s.resolve(ctx, id, StatusReferred, func(c *Case) {
		c.ReferralFacility = &facility
		if strings.TrimSpace(reason) != "" {
			c.ReferralReason = &reason
		}
	})
}

func (s *Service) MarkDeceased(ctx context.Context, id uuid.UUID) (*Case, error) {
	return s.resolve(ctx, id, StatusDeceased, func(*Case) {})
}

func (s *Service) resolve(ctx context.Context, id uuid.UUID, to string, apply func(*Case)) (*Case, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Resolved() {
		return nil, apperr.Conflict("case is already %s", c.Status)
	}
	now := time.Now()
	c.Status = to
	c.ResolvedAt = &now
	apply(c)
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, apperr.Internal(err)
	}
	return c, nil
}

func (s *Service) List(ctx context.Context, status string, limit, offset int) ([]*Case, int, error) {
	status = strings.ToUpper(strings.TrimSpace(status))
	if status != "" {
		switch status {
		case StatusRegistered, StatusAdmitted, StatusDischarged, StatusReferred, StatusDeceased:
		default:
			return nil, 0, apperr.Validation("unknown status %q", status)
		}
	}
	items, total, err := s.repo.List(ctx, status, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	return items, total, nil
}

// ActiveCases is the triage queue: unresolved cases, most urgent first.
func (s *Service) ActiveCases(ctx context.Context) ([]*Case, error) {
	items, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return items, nil
}
