package pharmacy

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hms/hms/internal/platform/db"
)

type txRunnerPG struct{ pool *pgxpool.Pool }

func NewTxRunner(pool *pgxpool.Pool) TxRunner { return &txRunnerPG{pool: pool} }

func (t *txRunnerPG) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return db.WithTx(ctx, t.pool, fn)
}

func conn(ctx context.Context, pool *pgxpool.Pool) db.Queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return pool
}

// -- Drugs --

type drugRepoPG struct{ pool *pgxpool.Pool }

func NewDrugRepoPG(pool *pgxpool.Pool) DrugRepository { return &drugRepoPG{pool: pool} }

const drugCols = `id, name, generic_name, category, description, dosage_form, strength, unit_price,
	stock_quantity, reorder_level, manufacturer, batch_number, expiry_date, requires_prescription,
	active, created_at, updated_at`

func scanDrug(row pgx.Row) (*Drug, error) {
	var d Drug
	err := row.Scan(&d.ID, &d.Name, &d.GenericName, &d.Category, &d.Description, &d.DosageForm, &d.Strength, &d.UnitPrice,
		&d.StockQuantity, &d.ReorderLevel, &d.Manufacturer, &d.BatchNumber, &d.ExpiryDate, &d.RequiresPrescription,
		&d.Active, &d.CreatedAt, &d.UpdatedAt)
	return &d, err
}

func collectDrugs(rows pgx.Rows) ([]*Drug, error) {
	defer rows.Close()
	var items []*Drug
	for rows.Next() {
		d, err := scanDrug(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, nil
}

func (r *drugRepoPG) Create(ctx context.Context, d *Drug) error {
	d.ID = uuid.New()
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO drug (id, name, generic_name, category, description, dosage_form, strength, unit_price,
			stock_quantity, reorder_level, manufacturer, batch_number, expiry_date, requires_prescription, active)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)`,
		d.ID, d.Name, d.GenericName, d.Category, d.Description, d.DosageForm, d.Strength, d.UnitPrice,
		d.StockQuantity, d.ReorderLevel, d.Manufacturer, d.BatchNumber, d.ExpiryDate, d.RequiresPrescription, d.Active)
	return err
}

func (r *drugRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Drug, error) {
	return scanDrug(conn(ctx, r.pool).QueryRow(ctx, `SELECT `+drugCols+` FROM drug WHERE id = $1`, id))
}

func (r *drugRepoPG) GetByName(ctx context.Context, name string) (*Drug, error) {
	return scanDrug(conn(ctx, r.pool).QueryRow(ctx, `SELECT `+drugCols+` FROM drug WHERE LOWER(name) = LOWER($1)`, name))
}

func (r *drugRepoPG) Update(ctx context.Context, d *Drug) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE drug SET name=$2, generic_name=$3, category=$4, description=$5, dosage_form=$6, strength=$7,
			unit_price=$8, reorder_level=$9, manufacturer=$10, batch_number=$11, expiry_date=$12,
			requires_prescription=$13, updated_at=NOW()
		WHERE id = $1`,
		d.ID, d.Name, d.GenericName, d.Category, d.Description, d.DosageForm, d.Strength,
		d.UnitPrice, d.ReorderLevel, d.Manufacturer, d.BatchNumber, d.ExpiryDate,
		d.RequiresPrescription)
	return err
}

func (r *drugRepoPG) Deactivate(ctx context.Context, id uuid.UUID) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `UPDATE drug SET active = false, updated_at = NOW() WHERE id = $1`, id)
	return err
}

func (r *drugRepoPG) List(ctx context.Context, includeInactive bool, limit, offset int) ([]*Drug, int, error) {
	where := ` WHERE active = true`
	if includeInactive {
		where = ``
	}

	var total int
	if err := conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM drug`+where).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := conn(ctx, r.pool).Query(ctx,
		fmt.Sprintf(`SELECT %s FROM drug%s ORDER BY name LIMIT $1 OFFSET $2`, drugCols, where), limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := collectDrugs(rows)
	return items, total, err
}

func (r *drugRepoPG) ListLowStock(ctx context.Context) ([]*Drug, error) {
	rows, err := conn(ctx, r.pool).Query(ctx,
		`SELECT `+drugCols+` FROM drug WHERE active = true AND stock_quantity <= reorder_level ORDER BY stock_quantity`)
	if err != nil {
		return nil, err
	}
	return collectDrugs(rows)
}

func (r *drugRepoPG) ListExpired(ctx context.Context) ([]*Drug, error) {
	rows, err := conn(ctx, r.pool).Query(ctx,
		`SELECT `+drugCols+` FROM drug WHERE active = true AND expiry_date IS NOT NULL AND expiry_date < NOW() ORDER BY expiry_date`)
	if err != nil {
		return nil, err
	}
	return collectDrugs(rows)
}

func (r *drugRepoPG) DeductStock(ctx context.Context, id uuid.UUID, quantity int) (bool, error) {
	tag, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE drug SET stock_quantity = stock_quantity - $2, updated_at = NOW()
		WHERE id = $1 AND stock_quantity >= $2`, id, quantity)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

func (r *drugRepoPG) AddStock(ctx context.Context, id uuid.UUID, quantity int) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE drug SET stock_quantity = stock_quantity + $2, updated_at = NOW() WHERE id = $1`, id, quantity)
	return err
}

// -- Prescriptions --

type prescriptionRepoPG struct{ pool *pgxpool.Pool }

func NewPrescriptionRepoPG(pool *pgxpool.Pool) PrescriptionRepository {
	return &prescriptionRepoPG{pool: pool}
}

const prescriptionCols = `id, prescription_number, patient_id, doctor_id, consultation_id, status,
	payment_status, total_amount, amount_paid, notes, dispensed_at, dispensed_by, created_at, updated_at`

const itemCols = `id, prescription_id, drug_id, drug_name, quantity, dosage, frequency, duration,
	unit_price, total_price, dispensed`

func scanPrescription(row pgx.Row) (*Prescription, error) {
	var p Prescription
	err := row.Scan(&p.ID, &p.PrescriptionNumber, &p.PatientID, &p.DoctorID, &p.ConsultationID, &p.Status,
		&p.PaymentStatus, &p.TotalAmount, &p.AmountPaid, &p.Notes, &p.DispensedAt, &p.DispensedBy, &p.CreatedAt, &p.UpdatedAt)
	return &p, err
}

func (r *prescriptionRepoPG) loadItems(ctx context.Context, p *Prescription) error {
	rows, err := conn(ctx, r.pool).Query(ctx,
		`SELECT `+itemCols+` FROM prescription_item WHERE prescription_id = $1 ORDER BY drug_name`, p.ID)
	if err != nil {
		return err
	}
	defer rows.Close()
	p.Items = []*PrescriptionItem{}
	for rows.Next() {
		var it PrescriptionItem
		if err := rows.Scan(&it.ID, &it.PrescriptionID, &it.DrugID, &it.DrugName, &it.Quantity, &it.Dosage,
			&it.Frequency, &it.Duration, &it.UnitPrice, &it.TotalPrice, &it.Dispensed); err != nil {
			return err
		}
		p.Items = append(p.Items, &it)
	}
	return nil
}

func (r *prescriptionRepoPG) Create(ctx context.Context, p *Prescription) error {
	p.ID = uuid.New()
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO prescription (id, prescription_number, patient_id, doctor_id, consultation_id, status,
			payment_status, total_amount, amount_paid, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		p.ID, p.PrescriptionNumber, p.PatientID, p.DoctorID, p.ConsultationID, p.Status,
		p.PaymentStatus, p.TotalAmount, p.AmountPaid, p.Notes)
	if err != nil {
		return err
	}
	for _, it := range p.Items {
		it.ID = uuid.New()
		it.PrescriptionID = p.ID
		_, err := conn(ctx, r.pool).Exec(ctx, `
			INSERT INTO prescription_item (id, prescription_id, drug_id, drug_name, quantity, dosage, frequency,
				duration, unit_price, total_price, dispensed)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
			it.ID, it.PrescriptionID, it.DrugID, it.DrugName, it.Quantity, it.Dosage, it.Frequency,
			it.Duration, it.UnitPrice, it.TotalPrice, it.Dispensed)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *prescriptionRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	p, err := scanPrescription(conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+prescriptionCols+` FROM prescription WHERE id = $1`, id))
	if err != nil {
		return nil, err
	}
	if err := r.loadItems(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (r *prescriptionRepoPG) Update(ctx context.Context, p *Prescription) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE prescription SET status=$2, payment_status=$3, total_amount=$4, amount_paid=$5, notes=$6,
			dispensed_at=$7, dispensed_by=$8, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.Status, p.PaymentStatus, p.TotalAmount, p.AmountPaid, p.Notes, p.DispensedAt, p.DispensedBy)
	return err
}

func (r *prescriptionRepoPG) MarkItemDispensed(ctx context.Context, itemID uuid.UUID) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `UPDATE prescription_item SET dispensed = true WHERE id = $1`, itemID)
	return err
}

func (r *prescriptionRepoPG) listWhere(ctx context.Context, where, order string, args []interface{}, limit, offset int) ([]*Prescription, int, error) {
	var total int
	if err := conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM prescription`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	n := len(args)
	query := fmt.Sprintf(`SELECT %s FROM prescription%s ORDER BY %s LIMIT $%d OFFSET $%d`,
		prescriptionCols, where, order, n+1, n+2)
	args = append(args, limit, offset)

	rows, err := conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Prescription
	for rows.Next() {
		p, err := scanPrescription(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	rows.Close()
	for _, p := range items {
		if err := r.loadItems(ctx, p); err != nil {
			return nil, 0, err
		}
	}
	return items, total, nil
}

func (r *prescriptionRepoPG) List(ctx context.Context, limit, offset int) ([]*Prescription, int, error) {
	return r.listWhere(ctx, ``, `created_at DESC`, nil, limit, offset)
}

func (r *prescriptionRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Prescription, int, error) {
	return r.listWhere(ctx, ` WHERE patient_id = $1`, `created_at DESC`, []interface{}{patientID}, limit, offset)
}

func (r *prescriptionRepoPG) ListPending(ctx context.Context, limit, offset int) ([]*Prescription, int, error) {
	return r.listWhere(ctx, ` WHERE status IN ('PENDING','PARTIALLY_DISPENSED') AND payment_status = 'PAID'`, `created_at ASC`, nil, limit, offset)
}

func (r *prescriptionRepoPG) ListUnpaid(ctx context.Context, limit, offset int) ([]*Prescription, int, error) {
	return r.listWhere(ctx, ` WHERE payment_status <> 'PAID' AND status <> 'CANCELLED'`, `created_at DESC`, nil, limit, offset)
}

// -- Restock requests --

type restockRepoPG struct{ pool *pgxpool.Pool }

func NewRestockRepoPG(pool *pgxpool.Pool) RestockRepository { return &restockRepoPG{pool: pool} }

const restockCols = `id, drug_id, requested_quantity, reason, status, requested_by, approved_by, approved_at,
	rejection_reason, fulfilled_quantity, fulfilled_at, notes, created_at, updated_at`

func scanRestock(row pgx.Row) (*RestockRequest, error) {
	var rr RestockRequest
	err := row.Scan(&rr.ID, &rr.DrugID, &rr.RequestedQuantity, &rr.Reason, &rr.Status, &rr.RequestedBy,
		&rr.ApprovedBy, &rr.ApprovedAt, &rr.RejectionReason, &rr.FulfilledQuantity, &rr.FulfilledAt,
		&rr.Notes, &rr.CreatedAt, &rr.UpdatedAt)
	return &rr, err
}

func (r *restockRepoPG) Create(ctx context.Context, rr *RestockRequest) error {
	rr.ID = uuid.New()
	_, err := conn(ctx, r.pool).Exec(ctx, `
		INSERT INTO restock_request (id, drug_id, requested_quantity, reason, status, requested_by, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		rr.ID, rr.DrugID, rr.RequestedQuantity, rr.Reason, rr.Status, rr.RequestedBy, rr.Notes)
	return err
}

func (r *restockRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*RestockRequest, error) {
	return scanRestock(conn(ctx, r.pool).QueryRow(ctx, `SELECT `+restockCols+` FROM restock_request WHERE id = $1`, id))
}

func (r *restockRepoPG) Update(ctx context.Context, rr *RestockRequest) error {
	_, err := conn(ctx, r.pool).Exec(ctx, `
		UPDATE restock_request SET status=$2, approved_by=$3, approved_at=$4, rejection_reason=$5,
			fulfilled_quantity=$6, fulfilled_at=$7, notes=$8, updated_at=NOW()
		WHERE id = $1`,
		rr.ID, rr.Status, rr.ApprovedBy, rr.ApprovedAt, rr.RejectionReason,
		rr.FulfilledQuantity, rr.FulfilledAt, rr.Notes)
	return err
}

func (r *restockRepoPG) List(ctx context.Context, status string, limit, offset int) ([]*RestockRequest, int, error) {
	where := ``
	var args []interface{}
	if status != "" {
		where = ` WHERE status = $1`
		args = append(args, status)
	}

	var total int
	if err := conn(ctx, r.pool).QueryRow(ctx, `SELECT COUNT(*) FROM restock_request`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	n := len(args)
	query := fmt.Sprintf(`SELECT %s FROM restock_request%s ORDER BY created_at DESC LIMIT $%d OFFSET $%d`,
		restockCols, where, n+1, n+2)
	args = append(args, limit, offset)

	rows, err := conn(ctx, r.pool).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*RestockRequest
	for rows.Next() {
		rr, err := scanRestock(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, rr)
	}
	return items, total, nil
}
