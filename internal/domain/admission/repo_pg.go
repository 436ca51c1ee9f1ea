package admission

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hms/hms/internal/platform/db"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) db.Queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *repoPG) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return db.WithTx(ctx, r.pool, fn)
}

const admissionCols = `id, admission_number, patient_id, doctor_id, ward_id, bed_id, type, status, reason,
	admission_date, expected_discharge_date, discharge_date, discharge_summary, medications,
	created_at, updated_at`

func (r *repoPG) scanAdmission(row pgx.Row) (*Admission, error) {
	var a Admission
	err := row.Scan(&a.ID, &a.AdmissionNumber, &a.PatientID, &a.DoctorID, &a.WardID, &a.BedID, &a.Type, &a.Status, &a.Reason,
		&a.AdmissionDate, &a.ExpectedDischargeDate, &a.DischargeDate, &a.DischargeSummary, &a.Medications,
		&a.CreatedAt, &a.UpdatedAt)
	return &a, err
}

func (r *repoPG) Create(ctx context.Context, a *Admission) error {
	a.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO admission (id, admission_number, patient_id, doctor_id, ward_id, bed_id, type, status, reason,
			admission_date, expected_discharge_date, medications)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		a.ID, a.AdmissionNumber, a.PatientID, a.DoctorID, a.WardID, a.BedID, a.Type, a.Status, a.Reason,
		a.AdmissionDate, a.ExpectedDischargeDate, a.Medications)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Admission, error) {
	return r.scanAdmission(r.conn(ctx).QueryRow(ctx, `SELECT `+admissionCols+` FROM admission WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, a *Admission) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE admission SET ward_id=$2, bed_id=$3, status=$4, reason=$5,
			expected_discharge_date=$6, discharge_date=$7, discharge_summary=$8, medications=$9,
			updated_at=NOW()
		WHERE id = $1`,
		a.ID, a.WardID, a.BedID, a.Status, a.Reason,
		a.ExpectedDischargeDate, a.DischargeDate, a.DischargeSummary, a.Medications)
	return err
}

func (r *repoPG) List(ctx context.Context, status string, limit, offset int) ([]*Admission, int, error) {
	where := ``
	var args []interface{}
	if status != "" {
		where = ` WHERE status = $1`
		args = append(args, status)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM admission`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	n := len(args)
	query := fmt.Sprintf(`SELECT %s FROM admission%s ORDER BY admission_date DESC LIMIT $%d OFFSET $%d`,
		admissionCols, where, n+1, n+2)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items, err := r.collect(rows)
	return items, total, err
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*Admission, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM admission WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+admissionCols+` FROM admission WHERE patient_id = $1 ORDER BY admission_date DESC LIMIT $2 OFFSET $3`, patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	items, err := r.collect(rows)
	return items, total, err
}

func (r *repoPG) collect(rows pgx.Rows) ([]*Admission, error) {
	var items []*Admission
	for rows.Next() {
		a, err := r.scanAdmission(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, nil
}

// -- Vital signs --

const vitalsCols = `id, admission_id, recorded_by, temperature, bp_systolic, bp_diastolic, pulse,
	respiratory_rate, spo2, glucose, weight, height, notes, recorded_at`

func (r *repoPG) scanVitals(row pgx.Row) (*VitalSigns, error) {
	var v VitalSigns
	err := row.Scan(&v.ID, &v.AdmissionID, &v.RecordedBy, &v.Temperature, &v.BPSystolic, &v.BPDiastolic, &v.Pulse,
		&v.RespiratoryRate, &v.SpO2, &v.Glucose, &v.Weight, &v.Height, &v.Notes, &v.RecordedAt)
	return &v, err
}

func (r *repoPG) CreateVitals(ctx context.Context, v *VitalSigns) error {
	v.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO vital_signs (id, admission_id, recorded_by, temperature, bp_systolic, bp_diastolic, pulse,
			respiratory_rate, spo2, glucose, weight, height, notes, recorded_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		v.ID, v.AdmissionID, v.RecordedBy, v.Temperature, v.BPSystolic, v.BPDiastolic, v.Pulse,
		v.RespiratoryRate, v.SpO2, v.Glucose, v.Weight, v.Height, v.Notes, v.RecordedAt)
	return err
}

func (r *repoPG) ListVitals(ctx context.Context, admissionID uuid.UUID, limit, offset int) ([]*VitalSigns, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM vital_signs WHERE admission_id = $1`, admissionID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+vitalsCols+` FROM vital_signs WHERE admission_id = $1 ORDER BY recorded_at DESC LIMIT $2 OFFSET $3`, admissionID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*VitalSigns
	for rows.Next() {
		v, err := r.scanVitals(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, v)
	}
	return items, total, nil
}

func (r *repoPG) ListVitalsSince(ctx context.Context, admissionID uuid.UUID, since time.Time) ([]*VitalSigns, error) {
	rows, err := r.conn(ctx).Query(ctx, `SELECT `+vitalsCols+` FROM vital_signs WHERE admission_id = $1 AND recorded_at >= $2 ORDER BY recorded_at`, admissionID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []*VitalSigns
	for rows.Next() {
		v, err := r.scanVitals(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, v)
	}
	return items, nil
}
