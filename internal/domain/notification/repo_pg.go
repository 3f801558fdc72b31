package notification

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/medicore/hms/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) db.Queryable {
	return db.Querier(ctx, r.pool)
}

const cols = `id, patient_id, title, message, is_read, is_active, created_date, created_by, modified_date, modified_by`

func scan(row pgx.Row) (*Notification, error) {
	var n Notification
	err := row.Scan(&n.ID, &n.PatientID, &n.Title, &n.Message, &n.IsRead, &n.IsActive,
		&n.CreatedDate, &n.CreatedBy, &n.ModifiedDate, &n.ModifiedBy)
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *repoPG) Create(ctx context.Context, n *Notification) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO notifications (patient_id, title, message, is_read, is_active, created_date, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id`,
		n.PatientID, n.Title, n.Message, n.IsRead, n.IsActive, n.CreatedDate, n.CreatedBy,
	).Scan(&n.ID)
}

func (r *repoPG) GetByID(ctx context.Context, id int64) (*Notification, error) {
	n, err := scan(r.conn(ctx).QueryRow(ctx,
		`SELECT `+cols+` FROM notifications WHERE id = $1 AND is_active`, id))
	if err != nil {
		return nil, db.NotFound(err, fmt.Sprintf("notification %d", id))
	}
	return n, nil
}

func (r *repoPG) ListByPatient(ctx context.Context, patientID int64, unreadOnly bool, limit, offset int) ([]*Notification, int, error) {
	where := `patient_id = $1 AND is_active`
	if unreadOnly {
		where += ` AND NOT is_read`
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM notifications WHERE `+where, patientID).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count notifications: %w", err)
	}

	rows, err := r.conn(ctx).Query(ctx,
		`SELECT `+cols+` FROM notifications WHERE `+where+` ORDER BY created_date DESC, id DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var items []*Notification
	for rows.Next() {
		n, err := scan(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, n)
	}
	return items, total, rows.Err()
}

func (r *repoPG) MarkRead(ctx context.Context, id int64, actor string, at time.Time) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE notifications SET is_read = TRUE, modified_date = $2, modified_by = $3 WHERE id = $1 AND is_active`,
		id, at, actor)
	if err != nil {
		return false, fmt.Errorf("mark notification %d read: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *repoPG) SoftDelete(ctx context.Context, id int64, actor string, at time.Time) (bool, error) {
	tag, err := r.conn(ctx).Exec(ctx,
		`UPDATE notifications SET is_active = FALSE, modified_date = $2, modified_by = $3 WHERE id = $1 AND is_active`,
		id, at, actor)
	if err != nil {
		return false, fmt.Errorf("soft delete notification %d: %w", id, err)
	}
	return tag.RowsAffected() == 1, nil
}
