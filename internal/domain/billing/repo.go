package billing

import (
	"context"
	"time"
)

type Repository interface {
	Create(ctx context.Context, b *Bill) error
	GetByID(ctx context.Context, id int64) (*Bill, error)
	Update(ctx context.Context, b *Bill) error
	SoftDelete(ctx context.Context, id int64, actor string, at time.Time) (bool, error)
	List(ctx context.Context, status Status, limit, offset int) ([]*Bill, int, error)
	ListByPatient(ctx context.Context, patientID int64, limit, offset int) ([]*Bill, int, error)
	// AddPayment adds amount to the paid total unless that would exceed the
	// bill total, and returns the updated bill. It returns nil when the bill is
	// missing or the payment would overpay.
	AddPayment(ctx context.Context, id int64, amount float64, actor string, at time.Time) (*Bill, error)
}
