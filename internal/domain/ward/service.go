package ward

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/hms/hms/internal/platform/apperr"
)

var validWardTypes = map[string]bool{
	TypeGeneral: true, TypePrivate: true, TypeICU: true,
	TypeEmergency: true, TypePediatric: true, TypeMaternity: true,
}

var validBedStatuses = map[string]bool{
	BedAvailable: true, BedOccupied: true, BedMaintenance: true, BedReserved: true,
}

type Service struct {
	wards WardRepository
	beds  BedRepository
}

func NewService(wards WardRepository, beds BedRepository) *Service {
	return &Service{wards: wards, beds: beds}
}

// -- Wards --

type WardInput struct {
	Name         string     `json:"name"`
	Type         string     `json:"type"`
	Capacity     int        `json:"capacity"`
	Floor        *string    `json:"floor"`
	DepartmentID *uuid.UUID `json:"department_id"`
}

func (s *Service) CreateWard(ctx context.Context, in WardInput) (*Ward, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, apperr.Validation("name is required")
	}
	wardType := strings.ToUpper(strings.TrimSpace(in.Type))
	if !validWardTypes[wardType] {
		return nil, apperr.Validation("type must be one of GENERAL, PRIVATE, ICU, EMERGENCY, PEDIATRIC, MATERNITY")
	}
	if in.Capacity < 1 {
		return nil, apperr.Validation("capacity must be at least 1")
	}
	if _, err := s.wards.GetByName(ctx, in.Name); err == nil {
		return nil, apperr.Conflict("ward %q already exists", in.Name)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.Internal(err)
	}

	w := &Ward{
		Name:         strings.TrimSpace(in.Name),
		Type:         wardType,
		Capacity:     in.Capacity,
		Floor:        in.Floor,
		DepartmentID: in.DepartmentID,
		Active:       true,
	}
	if err := s.wards.Create(ctx, w); err != nil {
		return nil, apperr.Internal(err)
	}
	return w, nil
}

func (s *Service) GetWard(ctx context.Context, id uuid.UUID) (*Ward, error) {
	w, err := s.wards.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("ward %s not found", id)
		}
		return nil, apperr.Internal(err)
	}
	return w, nil
}

func (s *Service) UpdateWard(ctx context.Context, id uuid.UUID, in WardInput) (*Ward, error) {
	w, err := s.GetWard(ctx, id)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Name) != "" {
		w.Name = strings.TrimSpace(in.Name)
	}
	if in.Type != "" {
		wardType := strings.ToUpper(strings.TrimSpace(in.Type))
		if !validWardTypes[wardType] {
			return nil, apperr.Validation("type must be one of GENERAL, PRIVATE, ICU, EMERGENCY, PEDIATRIC, MATERNITY")
		}
		w.Type = wardType
	}
	if in.Capacity > 0 {
		count, err := s.beds.CountByWard(ctx, id)
		if err != nil {
			return nil, apperr.Internal(err)
		}
		if in.Capacity < count {
			return nil, apperr.Conflict("capacity %d is below the ward's current bed count %d", in.Capacity, count)
		}
		w.Capacity = in.Capacity
	}
	if in.Floor != nil {
		w.Floor = in.Floor
	}
	if in.DepartmentID != nil {
		w.DepartmentID = in.DepartmentID
	}
	if err := s.wards.Update(ctx, w); err != nil {
		return nil, apperr.Internal(err)
	}
	return w, nil
}

func (s *Service) DeactivateWard(ctx context.Context, id uuid.UUID) error {
	if _, err := s.GetWard(ctx, id); err != nil {
		return err
	}
	beds, err := s.beds.ListByWard(ctx, id)
	if err != nil {
		return apperr.Internal(err)
	}
	for _, b := range beds {
		if b.Status == BedOccupied {
			return apperr.Conflict("ward has occupied beds")
		}
	}
	if err := s.wards.Deactivate(ctx, id); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

func (s *Service) ListWards(ctx context.Context, includeInactive bool, limit, offset int) ([]*Ward, int, error) {
	items, total, err := s.wards.List(ctx, includeInactive, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	return items, total, nil
}

// -- Beds --

type BedInput struct {
	BedNumber string   `json:"bed_number"`
	Features  []string `json:"features"`
}

func (s *Service) AddBed(ctx context.Context, wardID uuid.UUID, in BedInput) (*Bed, error) {
	w, err := s.GetWard(ctx, wardID)
	if err != nil {
		return nil, err
	}
	number := strings.TrimSpace(in.BedNumber)
	if number == "" {
		return nil, apperr.Validation("bed_number is required")
	}
	count, err := s.beds.CountByWard(ctx, wardID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	if count >= w.Capacity {
		return nil, apperr.Conflict("ward %s is at capacity (%d beds)", w.Name, w.Capacity)
	}
	if _, err := s.beds.GetByWardAndNumber(ctx, wardID, number); err == nil {
		return nil, apperr.Conflict("bed %s already exists in ward %s", number, w.Name)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.Internal(err)
	}

	features := in.Features
	if features == nil {
		features = []string{}
	}
	b := &Bed{
		WardID:    wardID,
		BedNumber: number,
		Status:    BedAvailable,
		Features:  features,
	}
	if err := s.beds.Create(ctx, b); err != nil {
		return nil, apperr.Internal(err)
	}
	return b, nil
}

func (s *Service) GetBed(ctx context.Context, id uuid.UUID) (*Bed, error) {
	b, err := s.beds.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("bed %s not found", id)
		}
		return nil, apperr.Internal(err)
	}
	return b, nil
}

func (s *Service) ListBeds(ctx context.Context, wardID uuid.UUID) ([]*Bed, error) {
	if _, err := s.GetWard(ctx, wardID); err != nil {
		return nil, err
	}
	beds, err := s.beds.ListByWard(ctx, wardID)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return beds, nil
}

// AvailableBeds lists free beds, optionally narrowed to a ward type.
func (s *Service) AvailableBeds(ctx context.Context, wardType string) ([]*Bed, error) {
	wardType = strings.ToUpper(strings.TrimSpace(wardType))
	if wardType != "" && !validWardTypes[wardType] {
		return nil, apperr.Validation("unknown ward type %q", wardType)
	}
	beds, err := s.beds.ListAvailable(ctx, wardType)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return beds, nil
}

// SetBedStatus handles manual status changes (maintenance, reservation).
// Occupancy transitions belong to admissions and go through Occupy/Free.
func (s *Service) SetBedStatus(ctx context.Context, id uuid.UUID, status string) (*Bed, error) {
	status = strings.ToUpper(strings.TrimSpace(status))
	if !validBedStatuses[status] {
		return nil, apperr.Validation("status must be one of AVAILABLE, OCCUPIED, MAINTENANCE, RESERVED")
	}
	b, err := s.GetBed(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Status == BedOccupied && status != BedAvailable {
		return nil, apperr.Conflict("bed is occupied by an active admission")
	}
	if status == BedMaintenance {
		now := time.Now()
		b.LastMaintenance = &now
	}
	b.Status = status
	if err := s.beds.Update(ctx, b); err != nil {
		return nil, apperr.Internal(err)
	}
	return b, nil
}

// Occupy marks a bed OCCUPIED. It fails with a conflict when the bed is not
// free, so two admissions cannot share a bed.
func (s *Service) Occupy(ctx context.Context, id uuid.UUID) error {
	ok, err := s.beds.SetStatusIf(ctx, id, BedOccupied, BedAvailable, BedReserved)
	if err != nil {
		return apperr.Internal(err)
	}
	if !ok {
		return apperr.Conflict("bed %s is not available", id)
	}
	return nil
}

// Free releases an occupied bed.
func (s *Service) Free(ctx context.Context, id uuid.UUID) error {
	ok, err := s.beds.SetStatusIf(ctx, id, BedAvailable, BedOccupied)
	if err != nil {
		return apperr.Internal(err)
	}
	if !ok {
		return apperr.Conflict("bed %s is not occupied", id)
	}
	return nil
}

func (s *Service) DeleteBed(ctx context.Context, id uuid.UUID) error {
	b, err := s.GetBed(ctx, id)
	if err != nil {
		return err
	}
	if b.Status == BedOccupied {
		return apperr.Conflict("bed is occupied by an active admission")
	}
	if err := s.beds.Delete(ctx, id); err != nil {
		return apperr.Internal(err)
	}
	return nil
}
