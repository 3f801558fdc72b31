package scheduling

import (
	"context"
	"time"
)

type SlotRepository interface {
	Create(ctx context.Context, s *FreeSlot) error
	// GetByID returns active slots only.
	GetByID(ctx context.Context, id int64) (*FreeSlot, error)
	// GetForUpdate locks the slot row, active or not, for the enclosing transaction.
	GetForUpdate(ctx context.Context, id int64) (*FreeSlot, error)
	Update(ctx context.Context, s *FreeSlot) error
	SoftDelete(ctx context.Context, id int64, actor string, at time.Time) (bool, error)
	// ListByDoctor returns the doctor's active slots ordered by start time.
	ListByDoctor(ctx context.Context, doctorID int64) ([]*FreeSlot, error)
	StartTimesBetween(ctx context.Context, doctorID int64, from, to time.Time) ([]time.Time, error)
	// DeactivatePast withdraws active slots that started before now and are
	// not held by a live appointment.
	DeactivatePast(ctx context.Context, now time.Time, actor string) (int64, error)
}

type AppointmentRepository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id int64) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	SoftDelete(ctx context.Context, id int64, actor string, at time.Time) (bool, error)
	List(ctx context.Context, limit, offset int) ([]*Appointment, int, error)
	ListByPatient(ctx context.Context, patientID int64, limit, offset int) ([]*Appointment, int, error)
	ListByDoctor(ctx context.Context, doctorID int64, limit, offset int) ([]*Appointment, int, error)

	// LiveSlotIDsForPatient returns the slot ids of the patient's active
	// appointments that are neither completed nor cancelled.
	LiveSlotIDsForPatient(ctx context.Context, patientID int64) ([]int64, error)
	HasLiveOnSlot(ctx context.Context, slotID int64) (bool, error)

	// UpdateStatus moves an active appointment from one status to another.
	// It reports false when the row is missing or no longer in from.
	UpdateStatus(ctx context.Context, id int64, from, to Status, actor string, at time.Time) (bool, error)
	// Cancel sets status Cancelled and is_active false in one statement, for
	// an active appointment whose status allows cancelling. It returns the
	// updated row, or nil when nothing matched.
	Cancel(ctx context.Context, id int64, actor string, at time.Time) (*Appointment, error)
	MarkPaid(ctx context.Context, id int64, actor string, at time.Time) (bool, error)
	MarkFeedbackGiven(ctx context.Context, id int64, actor string, at time.Time) (bool, error)
}
