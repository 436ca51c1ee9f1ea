package patient

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hms/hms/internal/platform/apperr"
)

var validGenders = map[string]bool{"MALE": true, "FEMALE": true, "OTHER": true}

// sequencer hands out the next PAT-xxxxx number.
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

type RegisterInput struct {
	FirstName             string    `json:"first_name"`
	LastName              string    `json:"last_name"`
	DateOfBirth           time.Time `json:"date_of_birth"`
	Gender                string    `json:"gender"`
	Phone                 string    `json:"phone"`
	Email                 *string   `json:"email"`
	Address               *string   `json:"address"`
	EmergencyContactName  *string   `json:"emergency_contact_name"`
	EmergencyContactPhone *string   `json:"emergency_contact_phone"`
	BloodGroup            *string   `json:"blood_group"`
	Allergies             []string  `json:"allergies"`
	CardIssued            bool      `json:"card_issued"`
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*Patient, error) {
	if in.FirstName == "" || in.LastName == "" {
		return nil, apperr.Validation("first_name and last_name are required")
	}
	if in.DateOfBirth.IsZero() {
		return nil, apperr.Validation("date_of_birth is required")
	}
	if in.DateOfBirth.After(time.Now()) {
		return nil, apperr.Validation("date_of_birth cannot be in the future")
	}
	gender := strings.ToUpper(strings.TrimSpace(in.Gender))
	if !validGenders[gender] {
		return nil, apperr.Validation("gender must be MALE, FEMALE or OTHER")
	}
	if strings.TrimSpace(in.Phone) == "" {
		return nil, apperr.Validation("phone is required")
	}

	number, err := s.seq.NextFormatted(ctx, "patient", "PAT")
	if err != nil {
		return nil, apperr.Internal(err)
	}

	allergies := in.Allergies
	if allergies == nil {
		allergies = []string{}
	}

	p := &Patient{
		PatientNumber:         number,
		FirstName:             strings.TrimSpace(in.FirstName),
		LastName:              strings.TrimSpace(in.LastName),
		DateOfBirth:           in.DateOfBirth,
		Gender:                gender,
		Phone:                 strings.TrimSpace(in.Phone),
		Email:                 in.Email,
		Address:               in.Address,
		EmergencyContactName:  in.EmergencyContactName,
		EmergencyContactPhone: in.EmergencyContactPhone,
		BloodGroup:            in.BloodGroup,
		Allergies:             allergies,
		CardIssued:            in.CardIssued,
		Active:                true,
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, apperr.Internal(err)
	}
	return p, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("patient %s not found", id)
		}
		return nil, apperr.Internal(err)
	}
	return p, nil
}

func (s *Service) GetByNumber(ctx context.Context, number string) (*Patient, error) {
	p, err := s.repo.GetByNumber(ctx, strings.ToUpper(strings.TrimSpace(number)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("patient %s not found", number)
		}
		return nil, apperr.Internal(err)
	}
	return p, nil
}

type UpdateInput struct {
	FirstName             *string    `json:"first_name"`
	LastName              *string    `json:"last_name"`
	DateOfBirth           *time.Time `json:"date_of_birth"`
	Gender                *string    `json:"gender"`
	Phone                 *string    `json:"phone"`
	Email                 *string    `json:"email"`
	Address               *string    `json:"address"`
	EmergencyContactName  *string    `json:"emergency_contact_name"`
	EmergencyContactPhone *string    `json:"emergency_contact_phone"`
	BloodGroup            *string    `json:"blood_group"`
	Allergies             []string   `json:"allergies"`
	CardIssued            *bool      `json:"card_issued"`
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*Patient, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if in.FirstName != nil {
		p.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		p.LastName = strings.TrimSpace(*in.LastName)
	}
	if in.DateOfBirth != nil {
		if in.DateOfBirth.After(time.Now()) {
			return nil, apperr.Validation("date_of_birth cannot be in the future")
		}
		p.DateOfBirth = *in.DateOfBirth
	}
	if in.Gender != nil {
		gender := strings.ToUpper(strings.TrimSpace(*in.Gender))
		if !validGenders[gender] {
			return nil, apperr.Validation("gender must be MALE, FEMALE or OTHER")
		}
		p.Gender = gender
	}
	if in.Phone != nil {
		p.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.Email != nil {
		p.Email = in.Email
	}
	if in.Address != nil {
		p.Address = in.Address
	}
	if in.EmergencyContactName != nil {
		p.EmergencyContactName = in.EmergencyContactName
	}
	if in.EmergencyContactPhone != nil {
		p.EmergencyContactPhone = in.EmergencyContactPhone
	}
	if in.BloodGroup != nil {
		p.BloodGroup = in.BloodGroup
	}
	if in.Allergies != nil {
		p.Allergies = in.Allergies
	}
	if in.CardIssued != nil {
		p.CardIssued = *in.CardIssued
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, apperr.Internal(err)
	}
	return p, nil
}

// Deactivate soft-deletes. History referencing the patient stays intact.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	p, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !p.Active {
		return apperr.NotFound("patient %s not found", id)
	}
	if err := s.repo.Deactivate(ctx, id); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

func (s *Service) List(ctx context.Context, includeInactive bool, limit, offset int) ([]*Patient, int, error) {
	items, total, err := s.repo.List(ctx, includeInactive, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	return items, total, nil
}

func (s *Service) Search(ctx context.Context, q string, limit, offset int) ([]*Patient, int, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return nil, 0, apperr.Validation("search query is required")
	}
	items, total, err := s.repo.Search(ctx, q, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	return items, total, nil
}
