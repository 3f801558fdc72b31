package scheduling

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/medicore/hms/internal/domain/identity"
	"github.com/medicore/hms/internal/domain/notification"
	"github.com/medicore/hms/internal/platform/apperr"
	"github.com/medicore/hms/internal/platform/db"
	"github.com/medicore/hms/internal/platform/lock"
	"github.com/medicore/hms/pkg/audit"
)

// Directory answers the identity questions booking needs. identity.Service
// satisfies it.
type Directory interface {
	PatientExists(ctx context.Context, id int64) (bool, error)
	DoctorExists(ctx context.Context, id int64) (bool, error)
	GetDoctor(ctx context.Context, id int64) (*identity.Doctor, error)
	IncrementPatientsTreated(ctx context.Context, doctorID int64) error
}

// Notifier posts in-app messages. notification.Service satisfies it.
type Notifier interface {
	Send(ctx context.Context, patientID int64, templateID string, data map[string]string, actor string) (*notification.Notification, error)
}

type Service struct {
	slots    SlotRepository
	appts    AppointmentRepository
	dir      Directory
	tx       db.TxRunner
	locker   lock.Locker
	notifier Notifier
	logger   zerolog.Logger
	now      func() time.Time
}

func NewService(slots SlotRepository, appts AppointmentRepository, dir Directory, tx db.TxRunner, locker lock.Locker, logger zerolog.Logger) *Service {
	if locker == nil {
		locker = lock.NoopLocker{}
	}
	return &Service{
		slots:  slots,
		appts:  appts,
		dir:    dir,
		tx:     tx,
		locker: locker,
		logger: logger.With().Str("component", "scheduling").Logger(),
		now:    time.Now,
	}
}

// SetNotifier attaches an optional Notifier. Booking and cancelling work
// without one.
func (s *Service) SetNotifier(n Notifier) {
	s.notifier = n
}

// notify is best effort: a failed notification never fails the booking.
func (s *Service) notify(ctx context.Context, a *Appointment, templateID, actor string) {
	if s.notifier == nil {
		return
	}
	doctor := fmt.Sprintf("doctor #%d", a.DoctorID)
	if d, err := s.dir.GetDoctor(ctx, a.DoctorID); err == nil {
		doctor = "Dr. " + d.FullName()
	}
	data := map[string]string{
		"doctor": doctor,
		"date":   a.AppointmentDate.UTC().Format("2006-01-02 15:04 MST"),
	}
	if _, err := s.notifier.Send(ctx, a.PatientID, templateID, data, actor); err != nil {
		s.logger.Warn().Err(err).
			Int64("appointment_id", a.ID).
			Str("template", templateID).
			Msg("notification failed")
	}
}

// -- Appointment queries --

func (s *Service) GetAppointment(ctx context.Context, id int64) (*Appointment, error) {
	if err := apperr.RequirePositive("id", id); err != nil {
		return nil, err
	}
	return s.appts.GetByID(ctx, id)
}

func (s *Service) ListAppointments(ctx context.Context, limit, offset int) ([]*Appointment, int, error) {
	return s.appts.List(ctx, limit, offset)
}

func (s *Service) ListAppointmentsByPatient(ctx context.Context, patientID int64, limit, offset int) ([]*Appointment, int, error) {
	if err := apperr.RequirePositive("patient_id", patientID); err != nil {
		return nil, 0, err
	}
	return s.appts.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) ListAppointmentsByDoctor(ctx context.Context, doctorID int64, limit, offset int) ([]*Appointment, int, error) {
	if err := apperr.RequirePositive("doctor_id", doctorID); err != nil {
		return nil, 0, err
	}
	return s.appts.ListByDoctor(ctx, doctorID, limit, offset)
}

// UpdateAppointmentNotes changes the free-text fields only.
func (s *Service) UpdateAppointmentNotes(ctx context.Context, id int64, reason, notes, actor string) (*Appointment, error) {
	a, err := s.GetAppointment(ctx, id)
	if err != nil {
		return nil, err
	}
	a.Reason = strings.TrimSpace(reason)
	a.Notes = strings.TrimSpace(notes)
	a.Modified(audit.Actor(actor), s.now())
	if err := s.appts.Update(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) DeleteAppointment(ctx context.Context, id int64, actor string) error {
	if err := apperr.RequirePositive("id", id); err != nil {
		return err
	}
	ok, err := s.appts.SoftDelete(ctx, id, audit.Actor(actor), s.now().UTC())
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("appointment %d: %w", id, apperr.ErrNotFound)
	}
	return nil
}

// MarkFeedbackGiven flags a rated appointment. It reports false when the
// appointment is missing or already rated.
func (s *Service) MarkFeedbackGiven(ctx context.Context, id int64, actor string) (bool, error) {
	if err := apperr.RequirePositive("id", id); err != nil {
		return false, err
	}
	return s.appts.MarkFeedbackGiven(ctx, id, audit.Actor(actor), s.now().UTC())
}
