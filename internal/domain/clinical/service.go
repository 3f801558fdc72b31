package clinical

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/medicore/hms/internal/domain/scheduling"
	"github.com/medicore/hms/internal/platform/apperr"
	"github.com/medicore/hms/internal/platform/db"
	"github.com/medicore/hms/pkg/audit"
)

var (
	ErrNotRateable  = fmt.Errorf("appointment cannot be rated: %w", apperr.ErrConflict)
	ErrAlreadyRated = fmt.Errorf("appointment already rated: %w", apperr.ErrConflict)
)

// Directory is satisfied by identity.Service.
type Directory interface {
	PatientExists(ctx context.Context, id int64) (bool, error)
	DoctorExists(ctx context.Context, id int64) (bool, error)
	RefreshReputation(ctx context.Context, doctorID int64) (float64, error)
}

// Appointments is satisfied by scheduling.Service.
type Appointments interface {
	GetAppointment(ctx context.Context, id int64) (*scheduling.Appointment, error)
	MarkFeedbackGiven(ctx context.Context, id int64, actor string) (bool, error)
}

type Service struct {
	treatments TreatmentRepository
	feedback   FeedbackRepository
	dir        Directory
	appts      Appointments
	tx         db.TxRunner
	now        func() time.Time
}

func NewService(treatments TreatmentRepository, feedback FeedbackRepository, dir Directory, appts Appointments, tx db.TxRunner) *Service {
	return &Service{
		treatments: treatments,
		feedback:   feedback,
		dir:        dir,
		appts:      appts,
		tx:         tx,
		now:        time.Now,
	}
}

func (s *Service) requirePatient(ctx context.Context, id int64) error {
	if err := apperr.RequirePositive("patient_id", id); err != nil {
		return err
	}
	ok, err := s.dir.PatientExists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Missing("patient")
	}
	return nil
}

func (s *Service) requireDoctor(ctx context.Context, id int64) error {
	ok, err := s.dir.DoctorExists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.Missing("doctor")
	}
	return nil
}

// appointment loads the referenced appointment, turning not-found into a
// missing reference.
func (s *Service) appointment(ctx context.Context, id int64) (*scheduling.Appointment, error) {
	if err := apperr.RequirePositive("appointment_id", id); err != nil {
		return nil, err
	}
	a, err := s.appts.GetAppointment(ctx, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.Missing("appointment")
	}
	return a, err
}

// -- Treatment History --

func (s *Service) validateTreatment(ctx context.Context, t *TreatmentHistory) error {
	t.Diagnosis = strings.TrimSpace(t.Diagnosis)
	if t.Diagnosis == "" {
		return apperr.Invalid("diagnosis", "is required")
	}
	t.Treatment = strings.TrimSpace(t.Treatment)
	t.Prescription = strings.TrimSpace(t.Prescription)
	t.Notes = strings.TrimSpace(t.Notes)

	if err := s.requirePatient(ctx, t.PatientID); err != nil {
		return err
	}
	if t.DoctorID != nil {
		if err := s.requireDoctor(ctx, *t.DoctorID); err != nil {
			return err
		}
	}
	if t.AppointmentID != nil {
		a, err := s.appointment(ctx, *t.AppointmentID)
		if err != nil {
			return err
		}
		if a.PatientID != t.PatientID {
			return apperr.Invalid("appointment_id", "belongs to another patient")
		}
		if t.DoctorID == nil {
			id := a.DoctorID
			t.DoctorID = &id
		}
		if t.TreatmentDate.IsZero() {
			t.TreatmentDate = a.AppointmentDate
		}
	}
	if t.TreatmentDate.IsZero() {
		t.TreatmentDate = s.now()
	}
	t.TreatmentDate = t.TreatmentDate.UTC()
	return nil
}

func (s *Service) CreateTreatment(ctx context.Context, t *TreatmentHistory, actor string) error {
	t.ID = 0
	if err := s.validateTreatment(ctx, t); err != nil {
		return err
	}
	t.IsActive = true
	t.Created(audit.Actor(actor), s.now())
	t.ModifiedDate, t.ModifiedBy = nil, nil
	if err := s.treatments.Create(ctx, t); err != nil {
		return fmt.Errorf("create treatment history: %w", err)
	}
	return nil
}

func (s *Service) GetTreatment(ctx context.Context, id int64) (*TreatmentHistory, error) {
	if err := apperr.RequirePositive("id", id); err != nil {
		return nil, err
	}
	return s.treatments.GetByID(ctx, id)
}

// UpdateTreatment rewrites the clinical fields. The patient is fixed.
func (s *Service) UpdateTreatment(ctx context.Context, t *TreatmentHistory, actor string) error {
	cur, err := s.GetTreatment(ctx, t.ID)
	if err != nil {
		return err
	}
	t.PatientID = cur.PatientID
	if err := s.validateTreatment(ctx, t); err != nil {
		return err
	}
	t.IsActive = true
	t.CreatedDate, t.CreatedBy = cur.CreatedDate, cur.CreatedBy
	t.Modified(audit.Actor(actor), s.now())
	return s.treatments.Update(ctx, t)
}

func (s *Service) DeleteTreatment(ctx context.Context, id int64, actor string) error {
	ok, err := s.treatments.SoftDelete(ctx, id, audit.Actor(actor), s.now().UTC())
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("treatment history %d: %w", id, apperr.ErrNotFound)
	}
	return nil
}

func (s *Service) ListTreatmentsByPatient(ctx context.Context, patientID int64, limit, offset int) ([]*TreatmentHistory, int, error) {
	if err := apperr.RequirePositive("patient_id", patientID); err != nil {
		return nil, 0, err
	}
	return s.treatments.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) ListTreatmentsByDoctor(ctx context.Context, doctorID int64, limit, offset int) ([]*TreatmentHistory, int, error) {
	if err := apperr.RequirePositive("doctor_id", doctorID); err != nil {
		return nil, 0, err
	}
	return s.treatments.ListByDoctor(ctx, doctorID, limit, offset)
}

// -- Feedback --

// SubmitFeedback rates a completed appointment. The appointment must belong
// to the patient and the doctor named in f and must not be rated yet. The
// feedback row, the appointment flag and the doctor's reputation score are
// written in one transaction.
func (s *Service) SubmitFeedback(ctx context.Context, f *Feedback, actor string) error {
	if f.Rating < MinRating || f.Rating > MaxRating {
		return apperr.Invalid("rating", fmt.Sprintf("must be between %d and %d", MinRating, MaxRating))
	}
	f.Comments = strings.TrimSpace(f.Comments)
	if err := s.requirePatient(ctx, f.PatientID); err != nil {
		return err
	}
	if err := apperr.RequirePositive("doctor_id", f.DoctorID); err != nil {
		return err
	}
	if err := s.requireDoctor(ctx, f.DoctorID); err != nil {
		return err
	}
	a, err := s.appointment(ctx, f.AppointmentID)
	if err != nil {
		return err
	}
	if a.PatientID != f.PatientID {
		return apperr.Invalid("appointment_id", "belongs to another patient")
	}
	if a.DoctorID != f.DoctorID {
		return apperr.Invalid("doctor_id", "does not match the appointment")
	}
	if a.Status != scheduling.StatusCompleted {
		return fmt.Errorf("appointment %d is %s: %w", a.ID, a.Status, ErrNotRateable)
	}
	if a.FeedbackGiven {
		return ErrAlreadyRated
	}

	actor = audit.Actor(actor)
	f.ID = 0
	f.IsActive = true
	f.Created(actor, s.now())
	f.ModifiedDate, f.ModifiedBy = nil, nil

	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		ok, err := s.appts.MarkFeedbackGiven(ctx, a.ID, actor)
		if err != nil {
			return err
		}
		if !ok {
			return ErrAlreadyRated
		}
		if err := s.feedback.Create(ctx, f); err != nil {
			return fmt.Errorf("create feedback: %w", err)
		}
		if _, err := s.dir.RefreshReputation(ctx, f.DoctorID); err != nil {
			return fmt.Errorf("refresh reputation: %w", err)
		}
		return nil
	})
}

func (s *Service) GetFeedback(ctx context.Context, id int64) (*Feedback, error) {
	if err := apperr.RequirePositive("id", id); err != nil {
		return nil, err
	}
	return s.feedback.GetByID(ctx, id)
}

// DeleteFeedback withdraws a rating and recomputes the doctor's score. The
// appointment stays flagged as rated.
func (s *Service) DeleteFeedback(ctx context.Context, id int64, actor string) error {
	f, err := s.GetFeedback(ctx, id)
	if err != nil {
		return err
	}
	return s.tx.WithTx(ctx, func(ctx context.Context) error {
		ok, err := s.feedback.SoftDelete(ctx, id, audit.Actor(actor), s.now().UTC())
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("feedback %d: %w", id, apperr.ErrNotFound)
		}
		_, err = s.dir.RefreshReputation(ctx, f.DoctorID)
		return err
	})
}

func (s *Service) ListFeedbackByDoctor(ctx context.Context, doctorID int64, limit, offset int) ([]*Feedback, int, error) {
	if err := apperr.RequirePositive("doctor_id", doctorID); err != nil {
		return nil, 0, err
	}
	return s.feedback.ListByDoctor(ctx, doctorID, limit, offset)
}

func (s *Service) ListFeedbackByPatient(ctx context.Context, patientID int64, limit, offset int) ([]*Feedback, int, error) {
	if err := apperr.RequirePositive("patient_id", patientID); err != nil {
		return nil, 0, err
	}
	return s.feedback.ListByPatient(ctx, patientID, limit, offset)
}
