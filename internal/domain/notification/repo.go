package notification

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, n *Notification) error
	GetByID(ctx context.Context, id int64) (*Notification, error)
	ListByPatient(ctx context.Context, patientID int64, unreadOnly bool, limit, offset int) ([]*Notification, int, error)
	MarkRead(ctx context.Context, id int64, actor string, at time.Time) (bool, error)
	SoftDelete(ctx context.Context, id int64, actor string, at time.Time) (bool, error)
}
