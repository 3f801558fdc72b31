package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medicore/hms/internal/platform/db"
)

type billRepoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &billRepoPG{pool: pool}
}

func (r *billRepoPG) conn(ctx context.Context) db.Queryable {
	return db.Querier(ctx, r.pool)
}

const billCols = `id, patient_id, doctor_id, appointment_id, description, total_amount::float8, paid_amount::float8,
	status, is_active, created_date, created_by, modified_date, modified_by`

func scanBill(row pgx.Row) (*Bill, error) {
	var b Bill
	var status string
	err := row.Scan(&b.ID, &b.PatientID, &b.DoctorID, &b.AppointmentID, &b.Description,
		&b.TotalAmount, &b.PaidAmount, &status, &b.IsActive,
		&b.CreatedDate, &b.CreatedBy, &b.ModifiedDate, &b.ModifiedBy)
	if err != nil {
		return nil, err
	}
	b.Status = Status(status)
	return &b, nil
}

func (r *billRepoPG) Create(ctx context.Context, b *Bill) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO bills (patient_id, doctor_id, appointment_id, description, total_amount, paid_amount,
			status, is_active, created_date, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`,
		b.PatientID, b.DoctorID, b.AppointmentID, b.Description, b.TotalAmount, b.PaidAmount,
		string(b.Status), b.IsActive, b.CreatedDate, b.CreatedBy,
	).Scan(&b.ID)
}

func (r *billRepoPG) GetByID(ctx context.Context, id int64) (*Bill, error) {
	b, err := scanBill(r.conn(ctx).QueryRow(ctx,
		`SELECT `+billCols+` FROM bills WHERE id = $1 AND is_active`, id))
	if err != nil {
		return nil, db.NotFound(err, fmt.Sprintf("bill %d", id))
	}
	return b, nil
}

func (r *billRepoPG) Update(ctx context.Context, b *Bill) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE bills SET doctor_id=$2, appointment_id=$3, description=$4, total_amount=$5, paid_amount=$6,
			status=$7, modified_date=$8, modified_by=$9
		WHERE id = $1 AND is_active`,
		b.ID, b.DoctorID, b.AppointmentID, b.Description, b.TotalAmount, b.PaidAmount,
		string(b.Status), b.ModifiedDate, b.ModifiedBy)
	if err != nil {
		return fmt.Errorf("update bill %d: %w", b.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return db.NotFound(pgx.ErrNoRows, fmt.Sprintf("bill %d", b.ID))
	}
	return nil
}

func (r *billRepoPG) SoftDelete(ctx context.Context, id int64, actor string, at time.Time) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE bills SET is_active = FALSE, modified_date = $2, modified_by = $3 WHERE id = $1 AND is_active`,
		id, at, actor)
	if err != nil {
		return false, fmt.Errorf("soft delete bill %d: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

// AddPayment settles the status in the same statement so concurrent
// payments cannot both pass the overpay guard.
func (r *billRepoPG) AddPayment(ctx context.Context, id int64, amount float64, actor string, at time.Time) (*Bill, error) {
	b, err := scanBill(r.conn(ctx).QueryRow(ctx, `
		UPDATE bills SET
			paid_amount = paid_amount + $2,
			status = CASE WHEN paid_amount + $2 >= total_amount THEN 'Paid' ELSE 'PartiallyPaid' END,
			modified_date = $3, modified_by = $4
		WHERE id = $1 AND is_active AND paid_amount + $2 <= total_amount
		RETURNING `+billCols,
		id, amount, at, actor))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("record payment on bill %d: %w", id, err)
	}
	return b, nil
}

func (r *billRepoPG) List(ctx context.Context, status Status, limit, offset int) ([]*Bill, int, error) {
	if status == "" {
		return r.query(ctx, `is_active`, nil, limit, offset)
	}
	return r.query(ctx, `is_active AND status = $1`, []interface{}{string(status)}, limit, offset)
}

func (r *billRepoPG) ListByPatient(ctx context.Context, patientID int64, limit, offset int) ([]*Bill, int, error) {
	return r.query(ctx, `is_active AND patient_id = $1`, []interface{}{patientID}, limit, offset)
}

func (r *billRepoPG) query(ctx context.Context, where string, args []interface{}, limit, offset int) ([]*Bill, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM bills WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count bills: %w", err)
	}

	n := len(args)
	rows, err := r.conn(ctx).Query(ctx,
		fmt.Sprintf(`SELECT `+billCols+` FROM bills WHERE %s ORDER BY created_date DESC, id DESC LIMIT $%d OFFSET $%d`, where, n+1, n+2),
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list bills: %w", err)
	}
	defer rows.Close()

	var items []*Bill
	for rows.Next() {
		b, err := scanBill(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, b)
	}
	return items, total, rows.Err()
}
