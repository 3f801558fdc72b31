package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medicore/hms/internal/platform/db"
)

// liveStatus filters appointments that still hold their slot.
const liveStatus = `status NOT IN ('Completed', 'Cancelled')`

// -- Free Slot Repository --

type slotRepoPG struct {
	pool *pgxpool.Pool
}

func NewSlotRepo(pool *pgxpool.Pool) SlotRepository {
	return &slotRepoPG{pool: pool}
}

func (r *slotRepoPG) conn(ctx context.Context) db.Queryable {
	return db.Querier(ctx, r.pool)
}

const slotCols = `id, doctor_id, start_time, end_time, is_active, created_date, created_by, modified_date, modified_by`

func scanSlot(row pgx.Row) (*FreeSlot, error) {
	var s FreeSlot
	err := row.Scan(&s.ID, &s.DoctorID, &s.StartTime, &s.EndTime, &s.IsActive,
		&s.CreatedDate, &s.CreatedBy, &s.ModifiedDate, &s.ModifiedBy)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *slotRepoPG) Create(ctx context.Context, s *FreeSlot) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO free_slots (doctor_id, start_time, end_time, is_active, created_date, created_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`,
		s.DoctorID, s.StartTime, s.EndTime, s.IsActive, s.CreatedDate, s.CreatedBy,
	).Scan(&s.ID)
}

func (r *slotRepoPG) GetByID(ctx context.Context, id int64) (*FreeSlot, error) {
	s, err := scanSlot(r.conn(ctx).QueryRow(ctx,
		`SELECT `+slotCols+` FROM free_slots WHERE id = $1 AND is_active`, id))
	if err != nil {
		return nil, db.NotFound(err, fmt.Sprintf("free slot %d", id))
	}
	return s, nil
}

func (r *slotRepoPG) GetForUpdate(ctx context.Context, id int64) (*FreeSlot, error) {
	s, err := scanSlot(r.conn(ctx).QueryRow(ctx,
		`SELECT `+slotCols+` FROM free_slots WHERE id = $1 FOR UPDATE`, id))
	if err != nil {
		return nil, db.NotFound(err, fmt.Sprintf("free slot %d", id))
	}
	return s, nil
}

func (r *slotRepoPG) Update(ctx context.Context, s *FreeSlot) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE free_slots SET start_time=$2, end_time=$3, modified_date=$4, modified_by=$5
		WHERE id = $1 AND is_active`,
		s.ID, s.StartTime, s.EndTime, s.ModifiedDate, s.ModifiedBy)
	if err != nil {
		return fmt.Errorf("update free slot %d: %w", s.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return db.NotFound(pgx.ErrNoRows, fmt.Sprintf("free slot %d", s.ID))
	}
	return nil
}

func (r *slotRepoPG) SoftDelete(ctx context.Context, id int64, actor string, at time.Time) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE free_slots SET is_active = FALSE, modified_date = $2, modified_by = $3 WHERE id = $1 AND is_active`,
		id, at, actor)
	if err != nil {
		return false, fmt.Errorf("soft delete free slot %d: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *slotRepoPG) ListByDoctor(ctx context.Context, doctorID int64) ([]*FreeSlot, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+slotCols+` FROM free_slots WHERE doctor_id = $1 AND is_active ORDER BY start_time, id`, doctorID)
	if err != nil {
		return nil, fmt.Errorf("list free slots of doctor %d: %w", doctorID, err)
	}
	defer rows.Close()

	var items []*FreeSlot
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

func (r *slotRepoPG) StartTimesBetween(ctx context.Context, doctorID int64, from, to time.Time) ([]time.Time, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT start_time FROM free_slots
		WHERE doctor_id = $1 AND is_active AND start_time >= $2 AND start_time < $3`,
		doctorID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list slot start times: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[time.Time])
}

func (r *slotRepoPG) DeactivatePast(ctx context.Context, now time.Time, actor string) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE free_slots s SET is_active = FALSE, modified_date = $1, modified_by = $2
		WHERE s.is_active AND s.start_time < $1
		  AND NOT EXISTS (
		    SELECT 1 FROM appointments a
		    WHERE a.free_slot_id = s.id AND a.is_active AND a.`+liveStatus+`
		  )`,
		now, actor)
	if err != nil {
		return 0, fmt.Errorf("deactivate past slots: %w", err)
	}
	return tag.RowsAffected(), nil
}

// -- Appointment Repository --

type appointmentRepoPG struct {
	pool *pgxpool.Pool
}

func NewAppointmentRepo(pool *pgxpool.Pool) AppointmentRepository {
	return &appointmentRepoPG{pool: pool}
}

func (r *appointmentRepoPG) conn(ctx context.Context) db.Queryable {
	return db.Querier(ctx, r.pool)
}

const apptCols = `id, patient_id, doctor_id, free_slot_id, appointment_date, reason, notes, status,
	is_paid, feedback_given, is_active, created_date, created_by, modified_date, modified_by`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.PatientID, &a.DoctorID, &a.FreeSlotID, &a.AppointmentDate, &a.Reason, &a.Notes,
		&a.Status, &a.IsPaid, &a.FeedbackGiven, &a.IsActive,
		&a.CreatedDate, &a.CreatedBy, &a.ModifiedDate, &a.ModifiedBy)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *appointmentRepoPG) Create(ctx context.Context, a *Appointment) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO appointments (patient_id, doctor_id, free_slot_id, appointment_date, reason, notes, status,
			is_paid, feedback_given, is_active, created_date, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING id`,
		a.PatientID, a.DoctorID, a.FreeSlotID, a.AppointmentDate, a.Reason, a.Notes, a.Status,
		a.IsPaid, a.FeedbackGiven, a.IsActive, a.CreatedDate, a.CreatedBy,
	).Scan(&a.ID)
}

func (r *appointmentRepoPG) GetByID(ctx context.Context, id int64) (*Appointment, error) {
	a, err := scanAppointment(r.conn(ctx).QueryRow(ctx,
		`SELECT `+apptCols+` FROM appointments WHERE id = $1 AND is_active`, id))
	if err != nil {
		return nil, db.NotFound(err, fmt.Sprintf("appointment %d", id))
	}
	return a, nil
}

func (r *appointmentRepoPG) Update(ctx context.Context, a *Appointment) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointments SET reason=$2, notes=$3, modified_date=$4, modified_by=$5
		WHERE id = $1 AND is_active`,
		a.ID, a.Reason, a.Notes, a.ModifiedDate, a.ModifiedBy)
	if err != nil {
		return fmt.Errorf("update appointment %d: %w", a.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return db.NotFound(pgx.ErrNoRows, fmt.Sprintf("appointment %d", a.ID))
	}
	return nil
}

func (r *appointmentRepoPG) SoftDelete(ctx context.Context, id int64, actor string, at time.Time) (bool, error) {
	return r.exec(ctx, `UPDATE appointments SET is_active = FALSE, modified_date = $2, modified_by = $3
		WHERE id = $1 AND is_active`, id, at, actor)
}

func (r *appointmentRepoPG) List(ctx context.Context, limit, offset int) ([]*Appointment, int, error) {
	return r.query(ctx, `is_active`, nil, limit, offset)
}

func (r *appointmentRepoPG) ListByPatient(ctx context.Context, patientID int64, limit, offset int) ([]*Appointment, int, error) {
	return r.query(ctx, `is_active AND patient_id = $1`, []interface{}{patientID}, limit, offset)
}

func (r *appointmentRepoPG) ListByDoctor(ctx context.Context, doctorID int64, limit, offset int) ([]*Appointment, int, error) {
	return r.query(ctx, `is_active AND doctor_id = $1`, []interface{}{doctorID}, limit, offset)
}

func (r *appointmentRepoPG) query(ctx context.Context, where string, args []interface{}, limit, offset int) ([]*Appointment, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM appointments WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count appointments: %w", err)
	}

	n := len(args)
	rows, err := r.conn(ctx).Query(ctx,
		fmt.Sprintf(`SELECT `+apptCols+` FROM appointments WHERE %s ORDER BY appointment_date DESC, id DESC LIMIT $%d OFFSET $%d`, where, n+1, n+2),
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	var items []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}

func (r *appointmentRepoPG) LiveSlotIDsForPatient(ctx context.Context, patientID int64) ([]int64, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT free_slot_id FROM appointments
		WHERE patient_id = $1 AND is_active AND free_slot_id IS NOT NULL AND `+liveStatus,
		patientID)
	if err != nil {
		return nil, fmt.Errorf("list booked slots of patient %d: %w", patientID, err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

func (r *appointmentRepoPG) HasLiveOnSlot(ctx context.Context, slotID int64) (bool, error) {
	var ok bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM appointments WHERE free_slot_id = $1 AND is_active AND `+liveStatus+`)`,
		slotID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check bookings on slot %d: %w", slotID, err)
	}
	return ok, nil
}

func (r *appointmentRepoPG) UpdateStatus(ctx context.Context, id int64, from, to Status, actor string, at time.Time) (bool, error) {
	return r.exec(ctx, `UPDATE appointments SET status = $3, modified_date = $4, modified_by = $5
		WHERE id = $1 AND is_active AND status = $2`, id, from, to, at, actor)
}

func (r *appointmentRepoPG) Cancel(ctx context.Context, id int64, actor string, at time.Time) (*Appointment, error) {
	a, err := scanAppointment(r.conn(ctx).QueryRow(ctx, `
		UPDATE appointments SET status = $2, is_active = FALSE, modified_date = $3, modified_by = $4
		WHERE id = $1 AND is_active AND status IN ($5, $6)
		RETURNING `+apptCols,
		id, StatusCancelled, at, actor, StatusPending, StatusConfirmed))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cancel appointment %d: %w", id, err)
	}
	return a, nil
}

func (r *appointmentRepoPG) MarkPaid(ctx context.Context, id int64, actor string, at time.Time) (bool, error) {
	return r.exec(ctx, `UPDATE appointments SET is_paid = TRUE, modified_date = $2, modified_by = $3
		WHERE id = $1 AND is_active`, id, at, actor)
}

func (r *appointmentRepoPG) MarkFeedbackGiven(ctx context.Context, id int64, actor string, at time.Time) (bool, error) {
	return r.exec(ctx, `UPDATE appointments SET feedback_given = TRUE, modified_date = $2, modified_by = $3
		WHERE id = $1 AND is_active AND NOT feedback_given`, id, at, actor)
}

func (r *appointmentRepoPG) exec(ctx context.Context, sql string, args ...interface{}) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx, sql, args...)
	if err != nil {
		return false, fmt.Errorf("update appointment %v: %w", args[0], err)
	}
	return tag.RowsAffected() == 1, nil
}
