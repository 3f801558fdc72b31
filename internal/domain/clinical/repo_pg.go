package clinical

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medicore/hms/internal/platform/db"
)

// -- Treatment History --

type treatmentRepoPG struct {
	pool *pgxpool.Pool
}

func NewTreatmentRepo(pool *pgxpool.Pool) TreatmentRepository {
	return &treatmentRepoPG{pool: pool}
}

func (r *treatmentRepoPG) conn(ctx context.Context) db.Queryable {
	return db.Querier(ctx, r.pool)
}

const treatmentCols = `id, patient_id, doctor_id, appointment_id, diagnosis, treatment, prescription, notes,
	treatment_date, is_active, created_date, created_by, modified_date, modified_by`

func scanTreatment(row pgx.Row) (*TreatmentHistory, error) {
	var t TreatmentHistory
	err := row.Scan(&t.ID, &t.PatientID, &t.DoctorID, &t.AppointmentID, &t.Diagnosis, &t.Treatment,
		&t.Prescription, &t.Notes, &t.TreatmentDate, &t.IsActive,
		&t.CreatedDate, &t.CreatedBy, &t.ModifiedDate, &t.ModifiedBy)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *treatmentRepoPG) Create(ctx context.Context, t *TreatmentHistory) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO treatment_histories (patient_id, doctor_id, appointment_id, diagnosis, treatment,
			prescription, notes, treatment_date, is_active, created_date, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`,
		t.PatientID, t.DoctorID, t.AppointmentID, t.Diagnosis, t.Treatment,
		t.Prescription, t.Notes, t.TreatmentDate, t.IsActive, t.CreatedDate, t.CreatedBy,
	).Scan(&t.ID)
}

func (r *treatmentRepoPG) GetByID(ctx context.Context, id int64) (*TreatmentHistory, error) {
	t, err := scanTreatment(r.conn(ctx).QueryRow(ctx,
		`SELECT `+treatmentCols+` FROM treatment_histories WHERE id = $1 AND is_active`, id))
	if err != nil {
		return nil, db.NotFound(err, fmt.Sprintf("treatment history %d", id))
	}
	return t, nil
}

func (r *treatmentRepoPG) Update(ctx context.Context, t *TreatmentHistory) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE treatment_histories SET doctor_id=$2, appointment_id=$3, diagnosis=$4, treatment=$5,
			prescription=$6, notes=$7, treatment_date=$8, modified_date=$9, modified_by=$10
		WHERE id = $1 AND is_active`,
		t.ID, t.DoctorID, t.AppointmentID, t.Diagnosis, t.Treatment,
		t.Prescription, t.Notes, t.TreatmentDate, t.ModifiedDate, t.ModifiedBy)
	if err != nil {
		return fmt.Errorf("update treatment history %d: %w", t.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return db.NotFound(pgx.ErrNoRows, fmt.Sprintf("treatment history %d", t.ID))
	}
	return nil
}

func (r *treatmentRepoPG) SoftDelete(ctx context.Context, id int64, actor string, at time.Time) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE treatment_histories SET is_active = FALSE, modified_date = $2, modified_by = $3 WHERE id = $1 AND is_active`,
		id, at, actor)
	if err != nil {
		return false, fmt.Errorf("soft delete treatment history %d: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *treatmentRepoPG) ListByPatient(ctx context.Context, patientID int64, limit, offset int) ([]*TreatmentHistory, int, error) {
	return r.query(ctx, `patient_id = $1`, patientID, limit, offset)
}

func (r *treatmentRepoPG) ListByDoctor(ctx context.Context, doctorID int64, limit, offset int) ([]*TreatmentHistory, int, error) {
	return r.query(ctx, `doctor_id = $1`, doctorID, limit, offset)
}

func (r *treatmentRepoPG) query(ctx context.Context, where string, id int64, limit, offset int) ([]*TreatmentHistory, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM treatment_histories WHERE is_active AND `+where, id).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count treatment histories: %w", err)
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+treatmentCols+` FROM treatment_histories WHERE is_active AND `+where+`
		ORDER BY treatment_date DESC, id DESC LIMIT $2 OFFSET $3`, id, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list treatment histories: %w", err)
	}
	defer rows.Close()

	var items []*TreatmentHistory
	for rows.Next() {
		t, err := scanTreatment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, t)
	}
	return items, total, rows.Err()
}

// -- Feedback --

type feedbackRepoPG struct {
	pool *pgxpool.Pool
}

func NewFeedbackRepo(pool *pgxpool.Pool) FeedbackRepository {
	return &feedbackRepoPG{pool: pool}
}

func (r *feedbackRepoPG) conn(ctx context.Context) db.Queryable {
	return db.Querier(ctx, r.pool)
}

const feedbackCols = `id, patient_id, doctor_id, appointment_id, rating, comments,
	is_active, created_date, created_by, modified_date, modified_by`

func (r *feedbackRepoPG) Create(ctx context.Context, f *Feedback) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO feedback (patient_id, doctor_id, appointment_id, rating, comments, is_active, created_date, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		f.PatientID, f.DoctorID, f.AppointmentID, f.Rating, f.Comments, f.IsActive, f.CreatedDate, f.CreatedBy,
	).Scan(&f.ID)
}

func (r *feedbackRepoPG) GetByID(ctx context.Context, id int64) (*Feedback, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+feedbackCols+` FROM feedback WHERE id = $1 AND is_active`, id)
	if err != nil {
		return nil, fmt.Errorf("get feedback %d: %w", id, err)
	}
	f, err := pgx.CollectExactlyOneRow(rows, pgx.RowToAddrOfStructByPos[feedbackRow])
	if err != nil {
		return nil, db.NotFound(err, fmt.Sprintf("feedback %d", id))
	}
	return f.toFeedback(), nil
}

func (r *feedbackRepoPG) SoftDelete(ctx context.Context, id int64, actor string, at time.Time) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE feedback SET is_active = FALSE, modified_date = $2, modified_by = $3 WHERE id = $1 AND is_active`,
		id, at, actor)
	if err != nil {
		return false, fmt.Errorf("soft delete feedback %d: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *feedbackRepoPG) ListByDoctor(ctx context.Context, doctorID int64, limit, offset int) ([]*Feedback, int, error) {
	return r.query(ctx, `doctor_id = $1`, doctorID, limit, offset)
}

func (r *feedbackRepoPG) ListByPatient(ctx context.Context, patientID int64, limit, offset int) ([]*Feedback, int, error) {
	return r.query(ctx, `patient_id = $1`, patientID, limit, offset)
}

func (r *feedbackRepoPG) query(ctx context.Context, where string, id int64, limit, offset int) ([]*Feedback, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx,
		`SELECT COUNT(*) FROM feedback WHERE is_active AND `+where, id).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count feedback: %w", err)
	}
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+feedbackCols+` FROM feedback WHERE is_active AND `+where+`
		ORDER BY created_date DESC, id DESC LIMIT $2 OFFSET $3`, id, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list feedback: %w", err)
	}
	recs, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByPos[feedbackRow])
	if err != nil {
		return nil, 0, fmt.Errorf("scan feedback: %w", err)
	}
	items := make([]*Feedback, len(recs))
	for i, rec := range recs {
		items[i] = rec.toFeedback()
	}
	return items, total, nil
}

// feedbackRow mirrors feedbackCols positionally for pgx's struct scanning.
type feedbackRow struct {
	ID            int64
	PatientID     int64
	DoctorID      int64
	AppointmentID int64
	Rating        int16
	Comments      string
	IsActive      bool
	CreatedDate   time.Time
	CreatedBy     string
	ModifiedDate  *time.Time
	ModifiedBy    *string
}

func (r *feedbackRow) toFeedback() *Feedback {
	f := &Feedback{
		ID:            r.ID,
		PatientID:     r.PatientID,
		DoctorID:      r.DoctorID,
		AppointmentID: r.AppointmentID,
		Rating:        int(r.Rating),
		Comments:      r.Comments,
		IsActive:      r.IsActive,
	}
	f.CreatedDate, f.CreatedBy = r.CreatedDate, r.CreatedBy
	f.ModifiedDate, f.ModifiedBy = r.ModifiedDate, r.ModifiedBy
	return f
}
