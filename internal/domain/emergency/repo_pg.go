package emergency

import (
	"context"
	"fmt"

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

const caseCols = `id, patient_id, temporary_patient_name, severity, chief_complaint, triage_notes,
	temperature, pulse, bp_systolic, bp_diastolic, status, handled_by, admission_id,
	referral_facility, referral_reason, arrived_at, resolved_at, created_at, updated_at`

func scanCase(row pgx.Row) (*Case, error) {
	var c Case
	err := row.Scan(&c.ID, &c.PatientID, &c.TemporaryPatientName, &c.Severity, &c.ChiefComplaint, &c.TriageNotes,
		&c.Temperature, &c.Pulse, &c.BPSystolic, &c.BPDiastolic, &c.Status, &c.HandledBy, &c.AdmissionID,
		&c.ReferralFacility, &c.ReferralReason, &c.ArrivedAt, &c.ResolvedAt, &c.CreatedAt, &c.UpdatedAt)
	return &c, err
}

func collectCases(rows pgx.Rows) ([]*Case, error) {
	defer rows.Close()
	var items []*Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, nil
}

func (r *repoPG) Create(ctx context.Context, c *Case) error {
	c.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO emergency_case (id, patient_id, temporary_patient_name, severity, chief_complaint, triage_notes,
			temperature, pulse, bp_systolic, bp_diastolic, status, handled_by, arrived_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		c.ID, c.PatientID, c.TemporaryPatientName, c.Severity, c.ChiefComplaint, c.TriageNotes,
		c.Temperature, c.Pulse, c.BPSystolic, c.BPDiastolic, c.Status, c.HandledBy, c.ArrivedAt)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Case, error) {
	return scanCase(r.conn(ctx).QueryRow(ctx, `SELECT `+caseCols+` FROM emergency_case WHERE id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, c *Case) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE emergency_case SET patient_id=$2, temporary_patient_name=$3, severity=$4, triage_notes=$5,
			status=$6, handled_by=$7, admission_id=$8, referral_facility=$9, referral_reason=$10,
			resolved_at=$11, updated_at=NOW()
		WHERE id = $1`,
		c.ID, c.PatientID, c.TemporaryPatientName, c.Severity, c.TriageNotes,
		c.Status, c.HandledBy, c.AdmissionID, c.ReferralFacility, c.ReferralReason,
		c.ResolvedAt)
	return err
}

func (r *repoPG) List(ctx context.Context, status string, limit, offset int) ([]*Case, int, error) {
	where := ``
	var args []interface{}
	if status != "" {
		where = ` WHERE status = $1`
		args = append(args, status)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM emergency_case`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	n := len(args)
	query := fmt.Sprintf(`SELECT %s FROM emergency_case%s ORDER BY arrived_at DESC LIMIT $%d OFFSET $%d`,
		caseCols, where, n+1, n+2)
	args = append(args, limit, offset)

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	items, err := collectCases(rows)
	return items, total, err
}

func (r *repoPG) ListActive(ctx context.Context) ([]*Case, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+caseCols+` FROM emergency_case
		WHERE status IN ('REGISTERED','ADMITTED')
		ORDER BY CASE severity WHEN 'CRITICAL' THEN 0 WHEN 'MODERATE' THEN 1 ELSE 2 END, arrived_at`)
	if err != nil {
		return nil, err
	}
	return collectCases(rows)
}
