package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medicore/hms/internal/platform/db"
)

func likePattern(q string) string { return "%" + q + "%" }

// -- Patient Repository --

type patientRepoPG struct {
	pool *pgxpool.Pool
}

func NewPatientRepo(pool *pgxpool.Pool) PatientRepository {
	return &patientRepoPG{pool: pool}
}

func (r *patientRepoPG) conn(ctx context.Context) db.Queryable {
	return db.Querier(ctx, r.pool)
}

const patientCols = `id, first_name, last_name, email, phone, date_of_birth, gender, address, blood_group,
	password_hash, is_active, created_date, created_by, modified_date, modified_by`

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.FirstName, &p.LastName, &p.Email, &p.Phone, &p.DateOfBirth, &p.Gender,
		&p.Address, &p.BloodGroup, &p.PasswordHash, &p.IsActive,
		&p.CreatedDate, &p.CreatedBy, &p.ModifiedDate, &p.ModifiedBy)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO patients (first_name, last_name, email, phone, date_of_birth, gender, address, blood_group,
			password_hash, is_active, created_date, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		RETURNING id`,
		p.FirstName, p.LastName, p.Email, p.Phone, p.DateOfBirth, p.Gender, p.Address, p.BloodGroup,
		p.PasswordHash, p.IsActive, p.CreatedDate, p.CreatedBy,
	).Scan(&p.ID)
}

func (r *patientRepoPG) GetByID(ctx context.Context, id int64) (*Patient, error) {
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patients WHERE id = $1 AND is_active`, id))
	if err != nil {
		return nil, db.NotFound(err, fmt.Sprintf("patient %d", id))
	}
	return p, nil
}

func (r *patientRepoPG) GetByEmail(ctx context.Context, email string) (*Patient, error) {
	p, err := scanPatient(r.conn(ctx).QueryRow(ctx,
		`SELECT `+patientCols+` FROM patients WHERE lower(email) = lower($1) AND is_active`, email))
	if err != nil {
		return nil, db.NotFound(err, "patient by email")
	}
	return p, nil
}

func (r *patientRepoPG) Update(ctx context.Context, p *Patient) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patients SET
			first_name=$2, last_name=$3, email=$4, phone=$5, date_of_birth=$6, gender=$7,
			address=$8, blood_group=$9, modified_date=$10, modified_by=$11
		WHERE id = $1 AND is_active`,
		p.ID, p.FirstName, p.LastName, p.Email, p.Phone, p.DateOfBirth, p.Gender,
		p.Address, p.BloodGroup, p.ModifiedDate, p.ModifiedBy,
	)
	return affectedOne(tag.RowsAffected(), err, "patient", p.ID)
}

func (r *patientRepoPG) UpdatePassword(ctx context.Context, id int64, hash, actor string, at time.Time) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE patients SET password_hash=$2, modified_date=$3, modified_by=$4
		WHERE id = $1 AND is_active`, id, hash, at, actor)
	return affectedOne(tag.RowsAffected(), err, "patient", id)
}

func (r *patientRepoPG) SoftDelete(ctx context.Context, id int64, actor string, at time.Time) (bool, error) {
	return softDelete(ctx, r.conn(ctx), "patients", id, actor, at)
}

func (r *patientRepoPG) Exists(ctx context.Context, id int64) (bool, error) {
	return exists(ctx, r.conn(ctx), "patients", id)
}

func (r *patientRepoPG) EmailInUse(ctx context.Context, email string, exceptID int64) (bool, error) {
	return emailInUse(ctx, r.conn(ctx), "patients", email, exceptID)
}

func (r *patientRepoPG) List(ctx context.Context, limit, offset int) ([]*Patient, int, error) {
	return r.query(ctx, `is_active`, nil, limit, offset)
}

func (r *patientRepoPG) Search(ctx context.Context, q string, limit, offset int) ([]*Patient, int, error) {
	return r.query(ctx,
		`is_active AND (first_name || ' ' || last_name ILIKE $1 OR email ILIKE $1 OR phone ILIKE $1)`,
		[]interface{}{likePattern(q)}, limit, offset)
}

func (r *patientRepoPG) query(ctx context.Context, where string, args []interface{}, limit, offset int) ([]*Patient, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patients WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count patients: %w", err)
	}

	n := len(args)
	rows, err := r.conn(ctx).Query(ctx,
		fmt.Sprintf(`SELECT `+patientCols+` FROM patients WHERE %s ORDER BY last_name, first_name, id LIMIT $%d OFFSET $%d`, where, n+1, n+2),
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list patients: %w", err)
	}
	defer rows.Close()

	var items []*Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

// -- Doctor Repository --

type doctorRepoPG struct {
	pool *pgxpool.Pool
}

func NewDoctorRepo(pool *pgxpool.Pool) DoctorRepository {
	return &doctorRepoPG{pool: pool}
}

func (r *doctorRepoPG) conn(ctx context.Context) db.Queryable {
	return db.Querier(ctx, r.pool)
}

const doctorCols = `id, first_name, last_name, email, phone, gender, address, department_id, specialization,
	consultation_fee, patients_treated, reputation_score, password_hash, is_active,
	created_date, created_by, modified_date, modified_by`

func scanDoctor(row pgx.Row) (*Doctor, error) {
	var d Doctor
	err := row.Scan(&d.ID, &d.FirstName, &d.LastName, &d.Email, &d.Phone, &d.Gender, &d.Address,
		&d.DepartmentID, &d.Specialization, &d.ConsultationFee, &d.PatientsTreated, &d.ReputationScore,
		&d.PasswordHash, &d.IsActive, &d.CreatedDate, &d.CreatedBy, &d.ModifiedDate, &d.ModifiedBy)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *doctorRepoPG) Create(ctx context.Context, d *Doctor) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO doctors (first_name, last_name, email, phone, gender, address, department_id,
			specialization, consultation_fee, password_hash, is_active, created_date, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		RETURNING id`,
		d.FirstName, d.LastName, d.Email, d.Phone, d.Gender, d.Address, d.DepartmentID,
		d.Specialization, d.ConsultationFee, d.PasswordHash, d.IsActive, d.CreatedDate, d.CreatedBy,
	).Scan(&d.ID)
}

func (r *doctorRepoPG) GetByID(ctx context.Context, id int64) (*Doctor, error) {
	d, err := scanDoctor(r.conn(ctx).QueryRow(ctx,
		`SELECT `+doctorCols+` FROM doctors WHERE id = $1 AND is_active`, id))
	if err != nil {
		return nil, db.NotFound(err, fmt.Sprintf("doctor %d", id))
	}
	return d, nil
}

func (r *doctorRepoPG) GetByEmail(ctx context.Context, email string) (*Doctor, error) {
	d, err := scanDoctor(r.conn(ctx).QueryRow(ctx,
		`SELECT `+doctorCols+` FROM doctors WHERE lower(email) = lower($1) AND is_active`, email))
	if err != nil {
		return nil, db.NotFound(err, "doctor by email")
	}
	return d, nil
}

func (r *doctorRepoPG) Update(ctx context.Context, d *Doctor) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE doctors SET
			first_name=$2, last_name=$3, email=$4, phone=$5, gender=$6, address=$7,
			department_id=$8, specialization=$9, consultation_fee=$10,
			modified_date=$11, modified_by=$12
		WHERE id = $1 AND is_active`,
		d.ID, d.FirstName, d.LastName, d.Email, d.Phone, d.Gender, d.Address,
		d.DepartmentID, d.Specialization, d.ConsultationFee, d.ModifiedDate, d.ModifiedBy,
	)
	return affectedOne(tag.RowsAffected(), err, "doctor", d.ID)
}

func (r *doctorRepoPG) UpdatePassword(ctx context.Context, id int64, hash, actor string, at time.Time) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE doctors SET password_hash=$2, modified_date=$3, modified_by=$4
		WHERE id = $1 AND is_active`, id, hash, at, actor)
	return affectedOne(tag.RowsAffected(), err, "doctor", id)
}

func (r *doctorRepoPG) SoftDelete(ctx context.Context, id int64, actor string, at time.Time) (bool, error) {
	return softDelete(ctx, r.conn(ctx), "doctors", id, actor, at)
}

func (r *doctorRepoPG) Exists(ctx context.Context, id int64) (bool, error) {
	return exists(ctx, r.conn(ctx), "doctors", id)
}

func (r *doctorRepoPG) EmailInUse(ctx context.Context, email string, exceptID int64) (bool, error) {
	return emailInUse(ctx, r.conn(ctx), "doctors", email, exceptID)
}

func (r *doctorRepoPG) List(ctx context.Context, limit, offset int) ([]*Doctor, int, error) {
	return r.query(ctx, `is_active`, nil, limit, offset)
}

func (r *doctorRepoPG) Search(ctx context.Context, q string, limit, offset int) ([]*Doctor, int, error) {
	return r.query(ctx,
		`is_active AND (first_name || ' ' || last_name ILIKE $1 OR email ILIKE $1 OR phone ILIKE $1 OR specialization ILIKE $1)`,
		[]interface{}{likePattern(q)}, limit, offset)
}

func (r *doctorRepoPG) ListByDepartment(ctx context.Context, departmentID int64) ([]*Doctor, error) {
	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+doctorCols+` FROM doctors WHERE department_id = $1 AND is_active ORDER BY last_name, first_name, id`,
		departmentID)
	if err != nil {
		return nil, fmt.Errorf("list doctors by department: %w", err)
	}
	defer rows.Close()

	var items []*Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, d)
	}
	return items, rows.Err()
}

func (r *doctorRepoPG) IncrementPatientsTreated(ctx context.Context, id int64) error {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE doctors SET patients_treated = patients_treated + 1 WHERE id = $1`, id)
	return affectedOne(tag.RowsAffected(), err, "doctor", id)
}

func (r *doctorRepoPG) RefreshReputation(ctx context.Context, id int64) (float64, error) {
	var score float64
	err := r.conn(ctx).QueryRow(ctx, `
		UPDATE doctors SET reputation_score = COALESCE(
			(SELECT ROUND(AVG(rating)::numeric, 2) FROM feedback WHERE doctor_id = $1 AND is_active), 0)
		WHERE id = $1
		RETURNING reputation_score`, id).Scan(&score)
	if err != nil {
		return 0, db.NotFound(err, fmt.Sprintf("refresh reputation of doctor %d", id))
	}
	return score, nil
}

func (r *doctorRepoPG) query(ctx context.Context, where string, args []interface{}, limit, offset int) ([]*Doctor, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM doctors WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count doctors: %w", err)
	}

	n := len(args)
	rows, err := r.conn(ctx).Query(ctx,
		fmt.Sprintf(`SELECT `+doctorCols+` FROM doctors WHERE %s ORDER BY last_name, first_name, id LIMIT $%d OFFSET $%d`, where, n+1, n+2),
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list doctors: %w", err)
	}
	defer rows.Close()

	var items []*Doctor
	for rows.Next() {
		d, err := scanDoctor(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, rows.Err()
}

// -- Staff Repository --

type staffRepoPG struct {
	pool *pgxpool.Pool
}

func NewStaffRepo(pool *pgxpool.Pool) StaffRepository {
	return &staffRepoPG{pool: pool}
}

func (r *staffRepoPG) conn(ctx context.Context) db.Queryable {
	return db.Querier(ctx, r.pool)
}

const staffCols = `id, first_name, last_name, email, phone, position, password_hash, is_active,
	created_date, created_by, modified_date, modified_by`

func scanStaff(row pgx.Row) (*Staff, error) {
	var s Staff
	err := row.Scan(&s.ID, &s.FirstName, &s.LastName, &s.Email, &s.Phone, &s.Position,
		&s.PasswordHash, &s.IsActive, &s.CreatedDate, &s.CreatedBy, &s.ModifiedDate, &s.ModifiedBy)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *staffRepoPG) Create(ctx context.Context, s *Staff) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO staff (first_name, last_name, email, phone, position, password_hash, is_active, created_date, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING id`,
		s.FirstName, s.LastName, s.Email, s.Phone, s.Position, s.PasswordHash, s.IsActive, s.CreatedDate, s.CreatedBy,
	).Scan(&s.ID)
}

func (r *staffRepoPG) GetByID(ctx context.Context, id int64) (*Staff, error) {
	s, err := scanStaff(r.conn(ctx).QueryRow(ctx,
		`SELECT `+staffCols+` FROM staff WHERE id = $1 AND is_active`, id))
	if err != nil {
		return nil, db.NotFound(err, fmt.Sprintf("staff %d", id))
	}
	return s, nil
}

func (r *staffRepoPG) GetByEmail(ctx context.Context, email string) (*Staff, error) {
	s, err := scanStaff(r.conn(ctx).QueryRow(ctx,
		`SELECT `+staffCols+` FROM staff WHERE lower(email) = lower($1) AND is_active`, email))
	if err != nil {
		return nil, db.NotFound(err, "staff by email")
	}
	return s, nil
}

func (r *staffRepoPG) Update(ctx context.Context, s *Staff) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE staff SET first_name=$2, last_name=$3, email=$4, phone=$5, position=$6,
			modified_date=$7, modified_by=$8
		WHERE id = $1 AND is_active`,
		s.ID, s.FirstName, s.LastName, s.Email, s.Phone, s.Position, s.ModifiedDate, s.ModifiedBy,
	)
	return affectedOne(tag.RowsAffected(), err, "staff", s.ID)
}

func (r *staffRepoPG) UpdatePassword(ctx context.Context, id int64, hash, actor string, at time.Time) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE staff SET password_hash=$2, modified_date=$3, modified_by=$4
		WHERE id = $1 AND is_active`, id, hash, at, actor)
	return affectedOne(tag.RowsAffected(), err, "staff", id)
}

func (r *staffRepoPG) SoftDelete(ctx context.Context, id int64, actor string, at time.Time) (bool, error) {
	return softDelete(ctx, r.conn(ctx), "staff", id, actor, at)
}

func (r *staffRepoPG) Exists(ctx context.Context, id int64) (bool, error) {
	return exists(ctx, r.conn(ctx), "staff", id)
}

func (r *staffRepoPG) EmailInUse(ctx context.Context, email string, exceptID int64) (bool, error) {
	return emailInUse(ctx, r.conn(ctx), "staff", email, exceptID)
}

func (r *staffRepoPG) List(ctx context.Context, limit, offset int) ([]*Staff, int, error) {
	return r.query(ctx, `is_active`, nil, limit, offset)
}

func (r *staffRepoPG) Search(ctx context.Context, q string, limit, offset int) ([]*Staff, int, error) {
	return r.query(ctx,
		`is_active AND (first_name || ' ' || last_name ILIKE $1 OR email ILIKE $1 OR position ILIKE $1)`,
		[]interface{}{likePattern(q)}, limit, offset)
}

func (r *staffRepoPG) query(ctx context.Context, where string, args []interface{}, limit, offset int) ([]*Staff, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM staff WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count staff: %w", err)
	}

	n := len(args)
	rows, err := r.conn(ctx).Query(ctx,
		fmt.Sprintf(`SELECT `+staffCols+` FROM staff WHERE %s ORDER BY last_name, first_name, id LIMIT $%d OFFSET $%d`, where, n+1, n+2),
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list staff: %w", err)
	}
	defer rows.Close()

	var items []*Staff
	for rows.Next() {
		s, err := scanStaff(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, s)
	}
	return items, total, rows.Err()
}

// -- shared statements --

// table is always one of the package's own constants, never user input.

func softDelete(ctx context.Context, q db.Queryable, table string, id int64, actor string, at time.Time) (bool, error) {
	tag, err := q.Exec(ctx,
		`UPDATE `+table+` SET is_active = FALSE, modified_date = $2, modified_by = $3 WHERE id = $1 AND is_active`,
		id, at, actor)
	if err != nil {
		return false, fmt.Errorf("soft delete %s %d: %w", table, id, err)
	}
	return tag.RowsAffected() == 1, nil
}

func exists(ctx context.Context, q db.Queryable, table string, id int64) (bool, error) {
	var ok bool
	err := q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM `+table+` WHERE id = $1 AND is_active)`, id).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check %s %d: %w", table, id, err)
	}
	return ok, nil
}

func emailInUse(ctx context.Context, q db.Queryable, table, email string, exceptID int64) (bool, error) {
	var ok bool
	err := q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM `+table+` WHERE lower(email) = lower($1) AND id <> $2)`,
		email, exceptID).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("check email in %s: %w", table, err)
	}
	return ok, nil
}

func affectedOne(n int64, err error, what string, id int64) error {
	if err != nil {
		return fmt.Errorf("update %s %d: %w", what, id, err)
	}
	if n == 0 {
		return db.NotFound(pgx.ErrNoRows, fmt.Sprintf("%s %d", what, id))
	}
	return nil
}
