package admin

import (
	"context"
	"time"
)

type DepartmentRepository interface {
	Create(ctx context.Context, d *Department) error
	GetByID(ctx context.Context, id int64) (*Department, error)
	Update(ctx context.Context, d *Department) error
	SoftDelete(ctx context.Context, id int64, actor string, at time.Time) (bool, error)
	Exists(ctx context.Context, id int64) (bool, error)
	// NameInUse compares case-insensitively among active departments.
	NameInUse(ctx context.Context, name string, exceptID int64) (bool, error)
	List(ctx context.Context, limit, offset int) ([]*Department, int, error)
	Search(ctx context.Context, q string, limit, offset int) ([]*Department, int, error)
}
