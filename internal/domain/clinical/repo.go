package clinical

import (
	"context"
	"time"
)

type TreatmentRepository interface {
	Create(ctx context.Context, t *TreatmentHistory) error
	GetByID(ctx context.Context, id int64) (*TreatmentHistory, error)
	Update(ctx context.Context, t *TreatmentHistory) error
	SoftDelete(ctx context.Context, id int64, actor string, at time.Time) (bool, error)
	ListByPatient(ctx context.Context, patientID int64, limit, offset int) ([]*TreatmentHistory, int, error)
	ListByDoctor(ctx context.Context, doctorID int64, limit, offset int) ([]*TreatmentHistory, int, error)
}

type FeedbackRepository interface {
	Create(ctx context.Context, f *Feedback) error
	GetByID(ctx context.Context, id int64) (*Feedback, error)
	SoftDelete(ctx context.Context, id int64, actor string, at time.Time) (bool, error)
	ListByDoctor(ctx context.Context, doctorID int64, limit, offset int) ([]*Feedback, int, error)
	ListByPatient(ctx context.Context, patientID int64, limit, offset int) ([]*Feedback, int, error)
}
