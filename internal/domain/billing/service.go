package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/medicore/hms/internal/domain/notification"
	"github.com/medicore/hms/internal/domain/scheduling"
	"github.com/medicore/hms/internal/platform/apperr"
	"github.com/medicore/hms/pkg/audit"
)

// ErrOverpayment is returned when a payment would take the paid amount past
// the bill total.
var ErrOverpayment = fmt.Errorf("payment exceeds outstanding balance: %w", apperr.ErrConflict)

// Directory is satisfied by identity.Service.
type Directory interface {
	PatientExists(ctx context.Context, id int64) (bool, error)
	DoctorExists(ctx context.Context, id int64) (bool, error)
}

// Appointments is satisfied by scheduling.Service.
type Appointments interface {
	GetAppointment(ctx context.Context, id int64) (*scheduling.Appointment, error)
	MarkPaid(ctx context.Context, id int64, actor string) (bool, error)
}

type Notifier interface {
	Send(ctx context.Context, patientID int64, templateID string, data map[string]string, actor string) (*notification.Notification, error)
}

type Service struct {
	repo     Repository
	dir      Directory
	appts    Appointments
	notifier Notifier
	logger   zerolog.Logger
	now      func() time.Time
}

// NewService builds the billing service. appts may be nil, in which case
// bills cannot reference appointments.
func NewService(repo Repository, dir Directory, appts Appointments, logger zerolog.Logger) *Service {
	return &Service{repo: repo, dir: dir, appts: appts, logger: logger, now: time.Now}
}

func (s *Service) SetNotifier(n Notifier) { s.notifier = n }

func (s *Service) validate(ctx context.Context, b *Bill) error {
	if err := apperr.RequirePositive("patient_id", b.PatientID); err != nil {
		return err
	}
	if b.TotalAmount < 0 {
		return apperr.Invalid("total_amount", "must not be negative")
	}
	if b.PaidAmount < 0 {
		return apperr.Invalid("paid_amount", "must not be negative")
	}
	if roundCents(b.PaidAmount) > roundCents(b.TotalAmount) {
		return apperr.Invalid("paid_amount", "must not exceed total_amount")
	}
	b.TotalAmount, b.PaidAmount = roundCents(b.TotalAmount), roundCents(b.PaidAmount)
	b.Description = strings.TrimSpace(b.Description)

	if ok, err := s.dir.PatientExists(ctx, b.PatientID); err != nil {
		return err
	} else if !ok {
		return apperr.Missing("patient")
	}
	if b.DoctorID != nil {
		if ok, err := s.dir.DoctorExists(ctx, *b.DoctorID); err != nil {
			return err
		} else if !ok {
			return apperr.Missing("doctor")
		}
	}
	if b.AppointmentID != nil {
		if err := s.checkAppointment(ctx, b); err != nil {
			return err
		}
	}
	return nil
}

// checkAppointment requires a linked appointment to belong to the billed
// patient, and fills in the doctor from it when none was given.
func (s *Service) checkAppointment(ctx context.Context, b *Bill) error {
	if s.appts == nil {
		return apperr.Invalid("appointment_id", "appointments are not available")
	}
	a, err := s.appts.GetAppointment(ctx, *b.AppointmentID)
	if errors.Is(err, apperr.ErrNotFound) {
		return apperr.Missing("appointment")
	}
	if err != nil {
		return err
	}
	if a.PatientID != b.PatientID {
		return apperr.Invalid("appointment_id", "belongs to another patient")
	}
	if b.DoctorID == nil {
		id := a.DoctorID
		b.DoctorID = &id
	} else if *b.DoctorID != a.DoctorID {
		return apperr.Invalid("doctor_id", "does not match the appointment")
	}
	return nil
}

func (s *Service) CreateBill(ctx context.Context, b *Bill, actor string) error {
	b.ID = 0
	if err := s.validate(ctx, b); err != nil {
		return err
	}
	actor = audit.Actor(actor)
	b.IsActive = true
	b.Settle()
	b.Created(actor, s.now())
	b.ModifiedDate, b.ModifiedBy = nil, nil
	if err := s.repo.Create(ctx, b); err != nil {
		return fmt.Errorf("create bill: %w", err)
	}

	s.settleAppointment(ctx, b, actor)
	if s.notifier != nil {
		data := map[string]string{"amount": FormatAmount(b.TotalAmount), "description": b.Description}
		if data["description"] == "" {
			data["description"] = fmt.Sprintf("bill #%d", b.ID)
		}
		// Best effort: the bill stands even if the message is lost.
		if _, err := s.notifier.Send(ctx, b.PatientID, notification.TemplateBillIssued, data, actor); err != nil {
			s.logger.Warn().Err(err).
				Int64("bill_id", b.ID).
				Int64("patient_id", b.PatientID).
				Str("template", notification.TemplateBillIssued).
				Msg("notification failed")
		}
	}
	return nil
}

func (s *Service) GetBill(ctx context.Context, id int64) (*Bill, error) {
	if err := apperr.RequirePositive("id", id); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

// UpdateBill replaces the editable fields. The patient cannot change.
func (s *Service) UpdateBill(ctx context.Context, b *Bill, actor string) error {
	cur, err := s.GetBill(ctx, b.ID)
	if err != nil {
		return err
	}
	b.PatientID = cur.PatientID
	if err := s.validate(ctx, b); err != nil {
		return err
	}
	actor = audit.Actor(actor)
	b.IsActive = true
	b.Settle()
	b.CreatedDate, b.CreatedBy = cur.CreatedDate, cur.CreatedBy
	b.Modified(actor, s.now())
	if err := s.repo.Update(ctx, b); err != nil {
		return err
	}
	s.settleAppointment(ctx, b, actor)
	return nil
}

// RecordPayment adds a payment to the bill. Paying more than the balance
// fails with ErrOverpayment.
func (s *Service) RecordPayment(ctx context.Context, id int64, amount float64, actor string) (*Bill, error) {
	if err := apperr.RequirePositive("id", id); err != nil {
		return nil, err
	}
	amount = roundCents(amount)
	if amount <= 0 {
		return nil, apperr.Invalid("amount", "must be positive")
	}
	actor = audit.Actor(actor)

	b, err := s.repo.AddPayment(ctx, id, amount, actor, s.now().UTC())
	if err != nil {
		return nil, err
	}
	if b == nil {
		if _, err := s.repo.GetByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrOverpayment
	}
	s.settleAppointment(ctx, b, actor)
	return b, nil
}

// settleAppointment flags the linked appointment paid once the bill is.
func (s *Service) settleAppointment(ctx context.Context, b *Bill, actor string) {
	if s.appts == nil || b.AppointmentID == nil || b.Status != StatusPaid {
		return
	}
	if _, err := s.appts.MarkPaid(ctx, *b.AppointmentID, actor); err != nil {
		s.logger.Warn().Err(err).
			Int64("bill_id", b.ID).
			Int64("appointment_id", *b.AppointmentID).
			Msg("marking appointment paid failed")
	}
}

func (s *Service) DeleteBill(ctx context.Context, id int64, actor string) error {
	ok, err := s.repo.SoftDelete(ctx, id, audit.Actor(actor), s.now().UTC())
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("bill %d: %w", id, apperr.ErrNotFound)
	}
	return nil
}

func (s *Service) ListBills(ctx context.Context, status Status, limit, offset int) ([]*Bill, int, error) {
	return s.repo.List(ctx, status, limit, offset)
}

func (s *Service) ListBillsByPatient(ctx context.Context, patientID int64, limit, offset int) ([]*Bill, int, error) {
	if err := apperr.RequirePositive("patient_id", patientID); err != nil {
		return nil, 0, err
	}
	return s.repo.ListByPatient(ctx, patientID, limit, offset)
}

// Outstanding sums the balances of a patient's active bills.
func (s *Service) Outstanding(ctx context.Context, patientID int64) (float64, error) {
	if err := apperr.RequirePositive("patient_id", patientID); err != nil {
		return 0, err
	}
	var (
		sum    float64
		offset int
	)
	const page = 100
	for {
		bills, total, err := s.repo.ListByPatient(ctx, patientID, page, offset)
		if err != nil {
			return 0, err
		}
		for _, b := range bills {
			sum += b.Balance()
		}
		offset += len(bills)
		if len(bills) == 0 || offset >= total {
			break
		}
	}
	return roundCents(sum), nil
}
