package pharmacy

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

// ErrInsufficientStock marks a stock deduction that would go negative.
// Wrapped inside the conflict error returned by Dispense.
var ErrInsufficientStock = errors.New("insufficient stock")

type sequencer interface {
	NextFormatted(ctx context.Context, entity, prefix string) (string, error)
}

type Service struct {
	drugs         DrugRepository
	prescriptions PrescriptionRepository
	restocks      RestockRepository
	tx            TxRunner
	seq           sequencer
	logger        zerolog.Logger
}

func NewService(drugs DrugRepository, prescriptions PrescriptionRepository, restocks RestockRepository, tx TxRunner, seq sequencer, logger zerolog.Logger) *Service {
	return &Service{drugs: drugs, prescriptions: prescriptions, restocks: restocks, tx: tx, seq: seq, logger: logger}
}

// -- Drugs --

type DrugInput struct {
	Name                 string     `json:"name"`
	GenericName          *string    `json:"generic_name"`
	Category             string     `json:"category"`
	Description          *string    `json:"description"`
	DosageForm           *string    `json:"dosage_form"`
	Strength             *string    `json:"strength"`
	UnitPrice            float64    `json:"unit_price"`
	StockQuantity        int        `json:"stock_quantity"`
	ReorderLevel         int        `json:"reorder_level"`
	Manufacturer         *string    `json:"manufacturer"`
	BatchNumber          *string    `json:"batch_number"`
	ExpiryDate           *time.Time `json:"expiry_date"`
	RequiresPrescription bool       `json:"requires_prescription"`
}

func (in *DrugInput) validate() *apperr.Error {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Category) == "" {
		return apperr.Validation("name and category are required")
	}
	if in.UnitPrice < 0 {
		return apperr.Validation("unit_price cannot be negative")
	}
	if in.StockQuantity < 0 {
		return apperr.Validation("stock_quantity cannot be negative")
	}
	if in.ReorderLevel < 0 {
		return apperr.Validation("reorder_level cannot be negative")
	}
	return nil
}

func (s *Service) CreateDrug(ctx context.Context, in DrugInput) (*Drug, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	name := strings.TrimSpace(in.Name)
	if existing, err := s.drugs.GetByName(ctx, name); err == nil && existing != nil {
		return nil, apperr.Conflict("drug %q already exists", name)
	} else if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.Internal(err)
	}

	d := &Drug{
		Name:                 name,
		GenericName:          in.GenericName,
		Category:             strings.TrimSpace(in.Category),
		Description:          in.Description,
		DosageForm:           in.DosageForm,
		Strength:             in.Strength,
		UnitPrice:            in.UnitPrice,
		StockQuantity:        in.StockQuantity,
		ReorderLevel:         in.ReorderLevel,
		Manufacturer:         in.Manufacturer,
		BatchNumber:          in.BatchNumber,
		ExpiryDate:           in.ExpiryDate,
		RequiresPrescription: in.RequiresPrescription,
		Active:               true,
	}
	if err := s.drugs.Create(ctx, d); err != nil {
		return nil, apperr.Internal(err)
	}
	return d, nil
}

func (s *Service) GetDrug(ctx context.Context, id uuid.UUID) (*Drug, error) {
	d, err := s.drugs.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("drug %s not found", id)
		}
		return nil, apperr.Internal(err)
	}
	return d, nil
}

// UpdateDrug replaces a drug's catalogue fields. Stock is adjusted only
// through dispensing, AddStock and restock fulfilment.
func (s *Service) UpdateDrug(ctx context.Context, id uuid.UUID, in DrugInput) (*Drug, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	d, err := s.GetDrug(ctx, id)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.Name)
	if !strings.EqualFold(name, d.Name) {
		if existing, err := s.drugs.GetByName(ctx, name); err == nil && existing != nil {
			return nil, apperr.Conflict("drug %q already exists", name)
		} else if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.Internal(err)
		}
	}

	d.Name = name
	d.GenericName = in.GenericName
	d.Category = strings.TrimSpace(in.Category)
	d.Description = in.Description
	d.DosageForm = in.DosageForm
	d.Strength = in.Strength
	d.UnitPrice = in.UnitPrice
	d.ReorderLevel = in.ReorderLevel
	d.Manufacturer = in.Manufacturer
	d.BatchNumber = in.BatchNumber
	d.ExpiryDate = in.ExpiryDate
	d.RequiresPrescription = in.RequiresPrescription
	if err := s.drugs.Update(ctx, d); err != nil {
		return nil, apperr.Internal(err)
	}
	return d, nil
}

func (s *Service) DeactivateDrug(ctx context.Context, id uuid.UUID) error {
	d, err := s.GetDrug(ctx, id)
	if err != nil {
		return err
	}
	if !d.Active {
		return apperr.NotFound("drug %s not found", id)
	}
	if err := s.drugs.Deactivate(ctx, id); err != nil {
		return apperr.Internal(err)
	}
	return nil
}

func (s *Service) ListDrugs(ctx context.Context, includeInactive bool, limit, offset int) ([]*Drug, int, error) {
	items, total, err := s.drugs.List(ctx, includeInactive, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	return items, total, nil
}

func (s *Service) LowStockDrugs(ctx context.Context) ([]*Drug, error) {
	items, err := s.drugs.ListLowStock(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return items, nil
}

func (s *Service) ExpiredDrugs(ctx context.Context) ([]*Drug, error) {
	items, err := s.drugs.ListExpired(ctx)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return items, nil
}

func (s *Service) AddStock(ctx context.Context, id uuid.UUID, quantity int) (*Drug, error) {
	if quantity <= 0 {
		return nil, apperr.Validation("quantity must be positive")
	}
	if _, err := s.GetDrug(ctx, id); err != nil {
		return nil, err
	}
	if err := s.drugs.AddStock(ctx, id, quantity); err != nil {
		return nil, apperr.Internal(err)
	}
	return s.GetDrug(ctx, id)
}

// -- Prescriptions --

type PrescriptionItemInput struct {
	DrugID    uuid.UUID `json:"drug_id"`
	Quantity  int       `json:"quantity"`
	Dosage    *string   `json:"dosage"`
	Frequency *string   `json:"frequency"`
	Duration  *string   `json:"duration"`
}

type PrescriptionInput struct {
	PatientID      uuid.UUID               `json:"patient_id"`
	ConsultationID *uuid.UUID              `json:"consultation_id"`
	Notes          *string                 `json:"notes"`
	Items          []PrescriptionItemInput `json:"items"`
}

func (s *Service) CreatePrescription(ctx context.Context, in PrescriptionInput, doctorID uuid.UUID) (*Prescription, error) {
	if in.PatientID == uuid.Nil {
		return nil, apperr.Validation("patient_id is required")
	}
	if len(in.Items) == 0 {
		return nil, apperr.Validation("at least one item is required")
	}

	items := make([]*PrescriptionItem, 0, len(in.Items))
	var total float64
	for _, it := range in.Items {
		if it.Quantity < 1 {
			return nil, apperr.Validation("item quantity must be at least 1")
		}
		d, err := s.GetDrug(ctx, it.DrugID)
		if err != nil {
			return nil, err
		}
		if !d.Active {
			return nil, apperr.Validation("drug %q is not active", d.Name)
		}
		lineTotal := float64(it.Quantity) * d.UnitPrice
		items = append(items, &PrescriptionItem{
			DrugID:     d.ID,
			DrugName:   d.Name,
			Quantity:   it.Quantity,
			Dosage:     it.Dosage,
			Frequency:  it.Frequency,
			Duration:   it.Duration,
			UnitPrice:  d.UnitPrice,
			TotalPrice: lineTotal,
		})
		total += lineTotal
	}

	number, err := s.seq.NextFormatted(ctx, "prescription", "PRE")
	if err != nil {
		return nil, apperr.Internal(err)
	}

	p := &Prescription{
		PrescriptionNumber: number,
		PatientID:          in.PatientID,
		DoctorID:           doctorID,
		ConsultationID:     in.ConsultationID,
		Status:             StatusPending,
		PaymentStatus:      PaymentAwaiting,
		TotalAmount:        total,
		Notes:              in.Notes,
		Items:              items,
	}
	if err := s.prescriptions.Create(ctx, p); err != nil {
		return nil, apperr.Internal(err)
	}
	return p, nil
}

func (s *Service) GetPrescription(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	p, err := s.prescriptions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("prescription %s not found", id)
		}
		return nil, apperr.Internal(err)
	}
	return p, nil
}

// MarkPaid accumulates a payment. Payment status only moves forward: a paid
// prescription never reverts on further payments.
func (s *Service) MarkPaid(ctx context.Context, id uuid.UUID, amount float64) (*Prescription, error) {
	if amount <= 0 {
		return nil, apperr.Validation("amount must be positive")
	}
	p, err := s.GetPrescription(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status == StatusCancelled {
		return nil, apperr.Conflict("prescription is cancelled")
	}

	p.AmountPaid += amount
	if p.AmountPaid >= p.TotalAmount {
		p.PaymentStatus = PaymentPaid
	} else {
		p.PaymentStatus = PaymentPartiallyPaid
	}
	if err := s.prescriptions.Update(ctx, p); err != nil {
		return nil, apperr.Internal(err)
	}
	return p, nil
}

// Dispense hands out a paid prescription's items, deducting drug stock.
// Without partial the whole prescription dispenses or nothing does. With
// partial, items the pharmacy can cover dispense now and the rest wait for
// a later call.
func (s *Service) Dispense(ctx context.Context, id uuid.UUID, dispensedBy uuid.UUID, partial bool) (*Prescription, error) {
	p, err := s.GetPrescription(ctx, id)
	if err != nil {
		return nil, err
	}
	switch p.Status {
	case StatusCancelled:
		return nil, apperr.Conflict("prescription is cancelled")
	case StatusDispensed:
		return nil, apperr.Conflict("prescription is already dispensed")
	}
	if p.PaymentStatus != PaymentPaid {
		return nil, apperr.Conflict("prescription must be paid before dispensing")
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		allDone := true
		dispensedAny := false
		for _, it := range p.Items {
			if it.Dispensed {
				continue
			}
			ok, err := s.drugs.DeductStock(ctx, it.DrugID, it.Quantity)
			if err != nil {
				return apperr.Internal(err)
			}
			if !ok {
				if !partial {
					return &apperr.Error{
						Kind:    apperr.KindConflict,
						Message: "insufficient stock for " + it.DrugName,
						Err:     ErrInsufficientStock,
					}
				}
				allDone = false
				continue
			}
			if err := s.prescriptions.MarkItemDispensed(ctx, it.ID); err != nil {
				return apperr.Internal(err)
			}
			it.Dispensed = true
			dispensedAny = true
		}
		if !dispensedAny {
			return &apperr.Error{
				Kind:    apperr.KindConflict,
				Message: "no items could be dispensed",
				Err:     ErrInsufficientStock,
			}
		}

		if allDone {
			now := time.Now()
			p.Status = StatusDispensed
			p.DispensedAt = &now
			p.DispensedBy = &dispensedBy
		} else {
			p.Status = StatusPartiallyDispensed
		}
		if err := s.prescriptions.Update(ctx, p); err != nil {
			return apperr.Internal(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info().
		Str("prescription", p.PrescriptionNumber).
		Str("status", p.Status).
		Msg("prescription dispensed")
	return p, nil
}

func (s *Service) CancelPrescription(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	p, err := s.GetPrescription(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status == StatusDispensed || p.Status == StatusCancelled {
		return nil, apperr.Conflict("prescription is already %s", p.Status)
	}
	p.Status = StatusCancelled
	if err := s.prescriptions.Update(ctx, p); err != nil {
		return nil, apperr.Internal(err)
	}
	return p, nil
}

func (s *Service) ListPrescriptions(ctx context.Context, limit, offset int) ([]*Prescription, int, error) {
	items, total, err := s.prescriptions.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	return items, total, nil
}

func (s *Service) ListPrescriptionsByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Prescription, int, error) {
	items, total, err := s.prescriptions.ListByPatient(ctx, patientID, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	return items, total, nil
}

func (s *Service) PendingPrescriptions(ctx context.Context, limit, offset int) ([]*Prescription, int, error) {
	items, total, err := s.prescriptions.ListPending(ctx, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	return items, total, nil
}

func (s *Service) UnpaidPrescriptions(ctx context.Context, limit, offset int) ([]*Prescription, int, error) {
	items, total, err := s.prescriptions.ListUnpaid(ctx, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	return items, total, nil
}

// -- Restock requests --

type RestockInput struct {
	DrugID   uuid.UUID `json:"drug_id"`
	Quantity int       `json:"quantity"`
	Reason   string    `json:"reason"`
	Notes    *string   `json:"notes"`
}

func (s *Service) CreateRestock(ctx context.Context, in RestockInput, requestedBy uuid.UUID) (*RestockRequest, error) {
	if in.Quantity < 1 {
		return nil, apperr.Validation("quantity must be at least 1")
	}
	if strings.TrimSpace(in.Reason) == "" {
		return nil, apperr.Validation("reason is required")
	}
	if _, err := s.GetDrug(ctx, in.DrugID); err != nil {
		return nil, err
	}

	rr := &RestockRequest{
		DrugID:            in.DrugID,
		RequestedQuantity: in.Quantity,
		Reason:            strings.TrimSpace(in.Reason),
		Status:            RestockPending,
		RequestedBy:       requestedBy,
		Notes:             in.Notes,
	}
	if err := s.restocks.Create(ctx, rr); err != nil {
		return nil, apperr.Internal(err)
	}
	return rr, nil
}

func (s *Service) GetRestock(ctx context.Context, id uuid.UUID) (*RestockRequest, error) {
	rr, err := s.restocks.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.NotFound("restock request %s not found", id)
		}
		return nil, apperr.Internal(err)
	}
	return rr, nil
}

func (s *Service) ApproveRestock(ctx context.Context, id uuid.UUID, approvedBy uuid.UUID) (*RestockRequest, error) {
	rr, err := s.GetRestock(ctx, id)
	if err != nil {
		return nil, err
	}
	if rr.Status != RestockPending {
		return nil, apperr.Conflict("restock request is %s, expected PENDING", rr.Status)
	}
	now := time.Now()
	rr.Status = RestockApproved
	rr.ApprovedBy = &approvedBy
	rr.ApprovedAt = &now
	if err := s.restocks.Update(ctx, rr); err != nil {
		return nil, apperr.Internal(err)
	}
	return rr, nil
}

func (s *Service) RejectRestock(ctx context.Context, id uuid.UUID, reason string) (*RestockRequest, error) {
	if strings.TrimSpace(reason) == "" {
		return nil, apperr.Validation("rejection reason is required")
	}
	rr, err := s.GetRestock(ctx, id)
	if err != nil {
		return nil, err
	}
	if rr.Status != RestockPending {
		return nil, apperr.Conflict("restock request is %s, expected PENDING", rr.Status)
	}
	rr.Status = RestockRejected
	rr.RejectionReason = &reason
	if err := s.restocks.Update(ctx, rr); err != nil {
		return nil, apperr.Internal(err)
	}
	return rr, nil
}

// FulfillRestock adds the delivered quantity to the drug's stock. A nil
// quantity means the delivery matched the request. Stock addition and
// request update commit together.
func (s *Service) FulfillRestock(ctx context.Context, id uuid.UUID, quantity *int) (*RestockRequest, error) {
	qty := 0
	if quantity != nil {
		if *quantity < 1 {
			return nil, apperr.Validation("fulfilled quantity must be at least 1")
		}
		qty = *quantity
	}
	rr, err := s.GetRestock(ctx, id)
	if err != nil {
		return nil, err
	}
	if rr.Status != RestockApproved {
		return nil, apperr.Conflict("restock request is %s, expected APPROVED", rr.Status)
	}
	if qty == 0 {
		qty = rr.RequestedQuantity
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.drugs.AddStock(ctx, rr.DrugID, qty); err != nil {
			return apperr.Internal(err)
		}
		now := time.Now()
		rr.Status = RestockFulfilled
		rr.FulfilledQuantity = &qty
		rr.FulfilledAt = &now
		if err := s.restocks.Update(ctx, rr); err != nil {
			return apperr.Internal(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rr, nil
}

func (s *Service) ListRestocks(ctx context.Context, status string, limit, offset int) ([]*RestockRequest, int, error) {
	status = strings.ToUpper(strings.TrimSpace(status))
	if status != "" && status != RestockPending && status != RestockApproved && status != RestockRejected && status != RestockFulfilled {
		return nil, 0, apperr.Validation("unknown status %q", status)
	}
	items, total, err := s.restocks.List(ctx, status, limit, offset)
	if err != nil {
		return nil, 0, apperr.Internal(err)
	}
	return items, total, nil
}
