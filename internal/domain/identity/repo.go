package identity

import (
	"context"
	"time"
)

// Repositories only return active rows from GetByID, GetByEmail, List, Search
// and Exists. GetByID and GetByEmail return apperr.ErrNotFound when nothing
// matches. EmailInUse considers every row, active or not, across the table.

type PatientRepository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id int64) (*Patient, error)
	GetByEmail(ctx context.Context, email string) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	UpdatePassword(ctx context.Context, id int64, hash, actor string, at time.Time) error
	SoftDelete(ctx context.Context, id int64, actor string, at time.Time) (bool, error)
	Exists(ctx context.Context, id int64) (bool, error)
	EmailInUse(ctx context.Context, email string, exceptID int64) (bool, error)
	List(ctx context.Context, limit, offset int) ([]*Patient, int, error)
	Search(ctx context.Context, q string, limit, offset int) ([]*Patient, int, error)
}

type DoctorRepository interface {
	Create(ctx context.Context, d *Doctor) error
	GetByID(ctx context.Context, id int64) (*Doctor, error)
	GetByEmail(ctx context.Context, email string) (*Doctor, error)
	Update(ctx context.Context, d *Doctor) error
	UpdatePassword(ctx context.Context, id int64, hash, actor string, at time.Time) error
	SoftDelete(ctx context.Context, id int64, actor string, at time.Time) (bool, error)
	Exists(ctx context.Context, id int64) (bool, error)
	EmailInUse(ctx context.Context, email string, exceptID int64) (bool, error)
	List(ctx context.Context, limit, offset int) ([]*Doctor, int, error)
	Search(ctx context.Context, q string, limit, offset int) ([]*Doctor, int, error)
	ListByDepartment(ctx context.Context, departmentID int64) ([]*Doctor, error)
	IncrementPatientsTreated(ctx context.Context, id int64) error
	// RefreshReputation recomputes the score as the average active feedback rating.
	RefreshReputation(ctx context.Context, id int64) (float64, error)
}

type StaffRepository interface {
	Create(ctx context.Context, s *Staff) error
	GetByID(ctx context.Context, id int64) (*Staff, error)
	GetByEmail(ctx context.Context, email string) (*Staff, error)
	Update(ctx context.Context, s *Staff) error
	UpdatePassword(ctx context.Context, id int64, hash, actor string, at time.Time) error
	SoftDelete(ctx context.Context, id int64, actor string, at time.Time) (bool, error)
	Exists(ctx context.Context, id int64) (bool, error)
	EmailInUse(ctx context.Context, email string, exceptID int64) (bool, error)
	List(ctx context.Context, limit, offset int) ([]*Staff, int, error)
	Search(ctx context.Context, q string, limit, offset int) ([]*Staff, int, error)
}
