package admin

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medicore/hms/internal/platform/db"
)

type departmentRepoPG struct {
	pool *pgxpool.Pool
}

func NewDepartmentRepo(pool *pgxpool.Pool) DepartmentRepository {
	return &departmentRepoPG{pool: pool}
}

func (r *departmentRepoPG) conn(ctx context.Context) db.Queryable {
	return db.Querier(ctx, r.pool)
}

const deptCols = `id, name, description, is_active, created_date, created_by, modified_date, modified_by`

func scanDepartment(row pgx.Row) (*Department, error) {
	var d Department
	err := row.Scan(&d.ID, &d.Name, &d.Description, &d.IsActive,
		&d.CreatedDate, &d.CreatedBy, &d.ModifiedDate, &d.ModifiedBy)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *departmentRepoPG) Create(ctx context.Context, d *Department) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO departments (name, description, is_active, created_date, created_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		d.Name, d.Description, d.IsActive, d.CreatedDate, d.CreatedBy,
	).Scan(&d.ID)
}

func (r *departmentRepoPG) GetByID(ctx context.Context, id int64) (*Department, error) {
	d, err := scanDepartment(r.conn(ctx).QueryRow(ctx,
		`SELECT `+deptCols+` FROM departments WHERE id = $1 AND is_active`, id))
	if err != nil {
		return nil, db.NotFound(err, fmt.Sprintf("department %d", id))
	}
	return d, nil
}

func (r *departmentRepoPG) Update(ctx context.Context, d *Department) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE departments SET name=$2, description=$3, modified_date=$4, modified_by=$5
		WHERE id = $1 AND is_active`,
		d.ID, d.Name, d.Description, d.ModifiedDate, d.ModifiedBy)
	if err != nil {
		return fmt.Errorf("update department %d: %w", d.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return db.NotFound(pgx.ErrNoRows, fmt.Sprintf("department %d", d.ID))
	}
	return nil
}

func (r *departmentRepoPG) SoftDelete(ctx context.Context, id int64, actor string, at time.Time) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE departments SET is_active = FALSE, modified_date = $2, modified_by = $3 WHERE id = $1 AND is_active`,
		id, at, actor)
	if err != nil {
		return false, fmt.Errorf("soft delete department %d: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *departmentRepoPG) Exists(ctx context.Context, id int64) (bool, error) {
	var ok bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM departments WHERE id = $1 AND is_active)`, id).Scan(&ok)
	return ok, err
}

func (r *departmentRepoPG) NameInUse(ctx context.Context, name string, exceptID int64) (bool, error) {
	var ok bool
	err := r.conn(ctx).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM departments WHERE lower(name) = lower($1) AND is_active AND id <> $2)`,
		name, exceptID).Scan(&ok)
	return ok, err
}

func (r *departmentRepoPG) List(ctx context.Context, limit, offset int) ([]*Department, int, error) {
	return r.query(ctx, `is_active`, nil, limit, offset)
}

func (r *departmentRepoPG) Search(ctx context.Context, q string, limit, offset int) ([]*Department, int, error) {
	return r.query(ctx, `is_active AND (name ILIKE $1 OR description ILIKE $1)`,
		[]interface{}{"%" + q + "%"}, limit, offset)
}

func (r *departmentRepoPG) query(ctx context.Context, where string, args []interface{}, limit, offset int) ([]*Department, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM departments WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count departments: %w", err)
	}

	n := len(args)
	rows, err := r.conn(ctx).Query(ctx,
		fmt.Sprintf(`SELECT `+deptCols+` FROM departments WHERE %s ORDER BY name, id LIMIT $%d OFFSET $%d`, where, n+1, n+2),
		append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list departments: %w", err)
	}
	defer rows.Close()

	var items []*Department
	for rows.Next() {
		d, err := scanDepartment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, rows.Err()
}
