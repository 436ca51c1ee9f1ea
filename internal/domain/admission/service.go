package admission

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

var validTypes = map[string]bool{TypeNormal: true, TypeEmergency: true, TypeTransfer: true}

type sequencer interface {
	NextFormatted(ctx context.Context, entity, prefix string) (string, error)
}

// BedAllocator flips bed occupancy. Occupy fails with a conflict when the
// bed is not free.
type BedAllocator interface {
	Occupy(ctx context.Context, bedID uuid.UUID) error
	Free(ctx context.Context, bedID uuid.UUID) error
}

type Service struct {
	repo   Repository
	beds   BedAllocator
	seq    sequencer
	logger zerolog.Logger
}

func NewService(repo Repository, beds BedAllocator, seq sequencer, logger zerolog.Logger) *Service {
	return &Service{repo: repo, beds: beds, seq: seq, logger: logger}
}

type CreateInput struct {
	PatientID             uuid.UUID  `json:"patient_id"`
	DoctorID              uuid.UUID  `json:"doctor_id"`
	WardID                uuid.UUID  `json:"ward_id"`
	BedID                 *uuid.UUID `json:"bed_id"`
	Type                  string     `json:"type"`
	Reason                string     `json:"reason"`
	ExpectedDischargeDate *time.Time `json:"expected_discharge_date"`
	Medications           []string   `json:"medications"`
}

// Create admits a patient. When a bed is supplied the occupancy flip is
// best-effort: a bed that turns out to be taken is logged and the admission
// stands without it.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Admission, error) {
	if in.PatientID == uuid.Nil || in.DoctorID == uuid.Nil || in.WardID == uuid.Nil {
		return nil, apperr.Validation("patient_id, doctor_id and ward_id are required")
	}
	if strings.TrimSpace(in.Reason) == "" {
		return nil, apperr.Validation("reason is required")
	}
	admType := strings.ToUpper(strings.TrimSpace(in.Type))
	if admType == "" {
		admType = TypeNormal
	}
	if !validTypes[admType] {
		return nil, apperr.Validation("type must be NORMAL, EMERGENCY or TRANSFER")
	}

	number, err := s.seq.NextFormatted(ctx, "admission", "ADM")
	if err != nil {
		return nil, apperr.Internal(err)
	}

	medications := in.Medications
	if medications == nil {
		medications = []string{}
	}

	a := &Admission{
		AdmissionNumber:       number,
		PatientID:             in.PatientID,
		DoctorID:              in.DoctorID,
		WardID:                in.WardID,
		BedID:                 in.BedID,
		Type:                  admType,
		Status:                StatusActive,
		Reason:                strings.TrimSpace(in.Reason),
		AdmissionDate:         time.Now(),
		ExpectedDischargeDate: in.ExpectedDischargeDate,
		Medications:           medications,
	}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, apperr.Internal(err)
	}

	if a.BedID != nil {
		if err := s.beds.Occupy(ctx, *a.BedID); err != nil {
			s.logger.Warn().Err(err).
				Str("admission", a.AdmissionNumber).
				Str("bed_id", a.BedID.String()).
				Msg("bed occupancy update failed")
			a.BedID = nil
			if uerr := s.repo.Update(ctx, a); uerr != nil {
				return nil, apperr.Internal(uerr)
			}
		}
	}
	return a, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Admission, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("admission %s not found", id)
		}
		return nil, apperr.Internal(err)
	}
	return a, nil
}

// Discharge closes an active admission. The status change and the bed
// release commit together.
func (s *Service) Discharge(ctx context.Context, id uuid.UUID, summary string) (*Admission, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status != StatusActive {
		return nil, apperr.Conflict("admission is already %s", a.Status)
	}
	if strings.TrimSpace(summary) == "" {
		return nil, apperr.Validation("discharge summary is required")
	}

	now := time.Now()
	a.Status = StatusDischarged
	a.DischargeDate = &now
	a.DischargeSummary = &summary

	err = s.repo.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.repo.Update(ctx, a); err != nil {
			return apperr.Internal(err)
		}
		if a.BedID != nil {
			if err := s.beds.Free(ctx, *a.BedID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

type TransferInput struct {
	WardID uuid.UUID  `json:"ward_id"`
	BedID  *uuid.UUID `json:"bed_id"`
	Reason string     `json:"reason"`
}

// Transfer closes an active admission as TRANSFERRED and opens a new one in
// the target ward. Old bed release and new bed occupancy commit with both
// records.
func (s *Service) Transfer(ctx context.Context, id uuid.UUID, in TransferInput) (*Admission, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.Status != StatusActive {
		return nil, apperr.Conflict("admission is already %s", a.Status)
	}
	if in.WardID == uuid.Nil {
		return nil, apperr.Validation("ward_id is required")
	}

	reason := strings.TrimSpace(in.Reason)
	if reason == "" {
		reason = a.Reason
	}

	number, err := s.seq.NextFormatted(ctx, "admission", "ADM")
	if err != nil {
		return nil, apperr.Internal(err)
	}

	next := &Admission{
		AdmissionNumber:       number,
		PatientID:             a.PatientID,
		DoctorID:              a.DoctorID,
		WardID:                in.WardID,
		BedID:                 in.BedID,
		Type:                  TypeTransfer,
		Status:                StatusActive,
		Reason:                reason,
		AdmissionDate:         time.Now(),
		ExpectedDischargeDate: a.ExpectedDischargeDate,
		Medications:           a.Medications,
	}

	err = s.repo.RunInTx(ctx, func(ctx context.Context) error {
		a.Status = StatusTransferred
		if err := s.repo.Update(ctx, a); err != nil {
			return apperr.Internal(err)
		}
		if a.BedID != nil {
			if err := s.beds.Free(ctx, *a.BedID); err != nil {
				return err
			}
		}
		if next.BedID != nil {
			if err := s.beds.Occupy(ctx, *next.BedID); err != nil {
				return err
			}
		}
		if err := s.repo.Create(ctx, next); err != nil {
			return apperr.Internal(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return next, nil
}

func (s *Service) List(ctx context.Context, status string, limit, offset int) ([]*Admission, int, error) {
	status = strings.ToUpper(strings.TrimSpace(status))
	if status != "" && status != StatusActive && status != StatusDischarged && status != StatusTransferred {
		return nil, 0, apperr.Validation("unknown status %q", status)
	}
	items, total, err := s.repo.List(ctx, status, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	return items, total, nil
}

func (s *Service) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Admission, int, error) {
	items, total, err := s.repo.ListByPatient(ctx, patientID, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	return items, total, nil
}

// -- Vital signs --

type VitalsInput struct {
	Temperature     *float64 `json:"temperature"`
	BPSystolic      *int     `json:"bp_systolic"`
	BPDiastolic     *int     `json:"bp_diastolic"`
	Pulse           *int     `json:"pulse"`
	RespiratoryRate *int     `json:"respiratory_rate"`
	SpO2            *int     `json:"spo2"`
	Glucose         *float64 `json:"glucose"`
	Weight          *float64 `json:"weight"`
	Height          *float64 `json:"height"`
	Notes           *string  `json:"notes"`
}

func (s *Service) RecordVitals(ctx context.Context, admissionID uuid.UUID, in VitalsInput, recordedBy uuid.UUID) (*VitalSigns, error) {
	a, err := s.Get(ctx, admissionID)
	if err != nil {
		return nil, err
	}
	if a.Status != StatusActive {
		return nil, apperr.Conflict("vitals can only be recorded for active admissions")
	}
	if in.Temperature != nil && (*in.Temperature < 30 || *in.Temperature > 45) {
		return nil, apperr.Validation("temperature must be between 30 and 45")
	}
	if in.Pulse != nil && (*in.Pulse < 0 || *in.Pulse > 300) {
		return nil, apperr.Validation("pulse must be between 0 and 300")
	}
	if in.RespiratoryRate != nil && (*in.RespiratoryRate < 0 || *in.RespiratoryRate > 100) {
		return nil, apperr.Validation("respiratory_rate must be between 0 and 100")
	}
	if in.SpO2 != nil && (*in.SpO2 < 0 || *in.SpO2 > 100) {
		return nil, apperr.Validation("spo2 must be between 0 and 100")
	}

	v := &VitalSigns{
		AdmissionID:     admissionID,
		RecordedBy:      recordedBy,
		Temperature:     in.Temperature,
		BPSystolic:      in.BPSystolic,
		BPDiastolic:     in.BPDiastolic,
		Pulse:           in.Pulse,
		RespiratoryRate: in.RespiratoryRate,
		SpO2:            in.SpO2,
		Glucose:         in.Glucose,
		Weight:          in.Weight,
		Height:          in.Height,
		Notes:           in.Notes,
		RecordedAt:      time.Now(),
	}
	if err := s.repo.CreateVitals(ctx, v); err != nil {
		return nil, apperr.Internal(err)
	}
	return v, nil
}

func (s *Service) ListVitals(ctx context.Context, admissionID uuid.UUID, limit, offset int) ([]*VitalSigns, int, error) {
	if _, err := s.Get(ctx, admissionID); err != nil {
		return nil, 0, err
	}
	items, total, err := s.repo.ListVitals(ctx, admissionID, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	return items, total, nil
}

// TrendPoint is one sample in a vital's time series.
type TrendPoint struct {
	RecordedAt time.Time `json:"recorded_at"`
	Value      float64   `json:"value"`
}

// VitalsTrend returns one vital's samples over a trailing window, oldest
// first. Records without that vital are skipped.
func (s *Service) VitalsTrend(ctx context.Context, admissionID uuid.UUID, vital string, window time.Duration) ([]TrendPoint, error) {
	if _, err := s.Get(ctx, admissionID); err != nil {
		return nil, err
	}
	if window <= 0 {
		window = 24 * time.Hour
	}
	records, err := s.repo.ListVitalsSince(ctx, admissionID, time.Now().Add(-window))
	if err != nil {
		return nil, apperr.Internal(err)
	}

	points := make([]TrendPoint, 0, len(records))
	for _, v := range records {
		var value *float64
		switch strings.ToLower(vital) {
		case "temperature":
			value = v.Temperature
		case "pulse":
			value = intValue(v.Pulse)
		case "bp_systolic":
			value = intValue(v.BPSystolic)
		case "bp_diastolic":
			value = intValue(v.BPDiastolic)
		case "respiratory_rate":
			value = intValue(v.RespiratoryRate)
		case "spo2":
			value = intValue(v.SpO2)
		case "glucose":
			value = v.Glucose
		case "weight":
			value = v.Weight
		default:
			return nil, apperr.Validation("unknown vital %q", vital)
		}
		if value != nil {
			points = append(points, TrendPoint{RecordedAt: v.RecordedAt, Value: *value})
		}
	}
	return points, nil
}

func intValue(n *int) *float64 {
	if n == nil {
		return nil
	}
	f := float64(*n)
	return &f
}
