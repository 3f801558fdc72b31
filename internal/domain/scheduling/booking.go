package scheduling

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/medicore/hms/internal/domain/notification"
	"github.com/medicore/hms/internal/platform/apperr"
	"github.com/medicore/hms/internal/platform/db"
	"github.com/medicore/hms/internal/platform/lock"
	"github.com/medicore/hms/pkg/audit"
)

var (
	ErrSlotAlreadyBooked = fmt.Errorf("free slot already booked: %w", apperr.ErrConflict)
	ErrSlotBeingBooked   = fmt.Errorf("free slot is being booked, please retry: %w", apperr.ErrConflict)
)

// ResolveAvailableSlots lists the doctor's active slots, in start-time order,
// minus those the patient already holds through a live appointment.
func (s *Service) ResolveAvailableSlots(ctx context.Context, doctorID, patientID int64) ([]*FreeSlot, error) {
	if err := apperr.RequirePositive("doctor_id", doctorID); err != nil {
		return nil, err
	}
	if err := apperr.RequirePositive("patient_id", patientID); err != nil {
		return nil, err
	}

	slots, err := s.slots.ListByDoctor(ctx, doctorID)
	if err != nil {
		return nil, err
	}
	if len(slots) == 0 {
		return []*FreeSlot{}, nil
	}

	booked, err := s.appts.LiveSlotIDsForPatient(ctx, patientID)
	if err != nil {
		return nil, err
	}
	taken := make(map[int64]struct{}, len(booked))
	for _, id := range booked {
		taken[id] = struct{}{}
	}

	out := make([]*FreeSlot, 0, len(slots))
	for _, sl := range slots {
		if _, ok := taken[sl.ID]; !ok {
			out = append(out, sl)
		}
	}
	return out, nil
}

// CreateAppointment books a free slot for a patient. References are checked
// in the order patient, doctor, free slot. The slot is then re-read under a
// row lock and rejected if a live appointment already holds it.
func (s *Service) CreateAppointment(ctx context.Context, req BookingRequest, actor string) (*Appointment, error) {
	if err := apperr.RequirePositive("patient_id", req.PatientID); err != nil {
		return nil, err
	}
	if err := apperr.RequirePositive("doctor_id", req.DoctorID); err != nil {
		return nil, err
	}
	if err := apperr.RequirePositive("free_slot_id", req.FreeSlotID); err != nil {
		return nil, err
	}
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return nil, apperr.Invalid("created_by", "is required")
	}

	if ok, err := s.dir.PatientExists(ctx, req.PatientID); err != nil {
		return nil, err
	} else if !ok {
		return nil, apperr.Missing("patient")
	}
	if ok, err := s.dir.DoctorExists(ctx, req.DoctorID); err != nil {
		return nil, err
	} else if !ok {
		return nil, apperr.Missing("doctor")
	}
	slot, err := s.slots.GetByID(ctx, req.FreeSlotID)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil, apperr.Missing("free slot")
	}
	if err != nil {
		return nil, err
	}
	if slot.DoctorID != req.DoctorID {
		return nil, apperr.Invalid("free_slot_id", "does not belong to the doctor")
	}

	date := req.Date
	if date.IsZero() {
		date = slot.StartTime
	}

	var created *Appointment
	err = s.locker.WithSlotLock(ctx, slot.ID, func(ctx context.Context) error {
		return s.tx.WithTx(ctx, func(ctx context.Context) error {
			locked, err := s.slots.GetForUpdate(ctx, slot.ID)
			if errors.Is(err, apperr.ErrNotFound) {
				return apperr.Missing("free slot")
			}
			if err != nil {
				return err
			}
			if !locked.IsActive {
				return apperr.Missing("free slot")
			}

			held, err := s.appts.HasLiveOnSlot(ctx, slot.ID)
			if err != nil {
				return err
			}
			if held {
				return ErrSlotAlreadyBooked
			}

			slotID := slot.ID
			a := &Appointment{
				PatientID:       req.PatientID,
				DoctorID:        req.DoctorID,
				FreeSlotID:      &slotID,
				AppointmentDate: date.UTC(),
				Reason:          strings.TrimSpace(req.Reason),
				Status:          StatusPending,
				IsPaid:          false,
				FeedbackGiven:   false,
				IsActive:        true,
			}
			a.Created(actor, s.now())
			if err := s.appts.Create(ctx, a); err != nil {
				if db.IsUniqueViolation(err) {
					return ErrSlotAlreadyBooked
				}
				return fmt.Errorf("create appointment: %w", err)
			}
			created = a
			return nil
		})
	})
	if err != nil {
		if errors.Is(err, lock.ErrLockNotAcquired) {
			return nil, ErrSlotBeingBooked
		}
		return nil, err
	}

	s.logger.Info().
		Int64("appointment_id", created.ID).
		Int64("patient_id", created.PatientID).
		Int64("doctor_id", created.DoctorID).
		Int64("free_slot_id", slot.ID).
		Msg("appointment booked")
	s.notify(ctx, created, notification.TemplateAppointmentRequested, actor)
	return created, nil
}

// CancelAppointment cancels and deactivates an appointment in one statement.
// It reports false when no active appointment has that id.
func (s *Service) CancelAppointment(ctx context.Context, id int64, actor string) (bool, error) {
	a, err := s.cancel(ctx, id, actor)
	if err != nil {
		return false, err
	}
	return a != nil, nil
}

// cancel returns the cancelled appointment, or nil when there is no active
// appointment with that id.
func (s *Service) cancel(ctx context.Context, id int64, actor string) (*Appointment, error) {
	if err := apperr.RequirePositive("id", id); err != nil {
		return nil, err
	}
	actor = audit.Actor(actor)

	a, err := s.appts.Cancel(ctx, id, actor, s.now().UTC())
	if err != nil {
		return nil, err
	}
	if a == nil {
		cur, err := s.appts.GetByID(ctx, id)
		if errors.Is(err, apperr.ErrNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return nil, CheckTransition(cur.Status, StatusCancelled)
	}

	s.logger.Info().Int64("appointment_id", id).Str("actor", actor).Msg("appointment cancelled")
	s.notify(ctx, a, notification.TemplateAppointmentCancelled, actor)
	return a, nil
}

// MarkPaid sets the paid flag of an active appointment, whatever its status.
func (s *Service) MarkPaid(ctx context.Context, id int64, actor string) (bool, error) {
	if err := apperr.RequirePositive("id", id); err != nil {
		return false, err
	}
	return s.appts.MarkPaid(ctx, id, audit.Actor(actor), s.now().UTC())
}

// Transition moves an appointment along the status table. Completing an
// appointment counts the patient towards the doctor's PatientsTreated in the
// same transaction.
func (s *Service) Transition(ctx context.Context, id int64, to Status, actor string) (*Appointment, error) {
	if err := apperr.RequirePositive("id", id); err != nil {
		return nil, err
	}
	if !to.Valid() {
		return nil, apperr.Invalid("status", fmt.Sprintf("unknown status %q", to))
	}
	if to == StatusCancelled {
		a, err := s.cancel(ctx, id, actor)
		if err != nil {
			return nil, err
		}
		if a == nil {
			return nil, fmt.Errorf("appointment %d: %w", id, apperr.ErrNotFound)
		}
		return a, nil
	}
	actor = audit.Actor(actor)

	var updated *Appointment
	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		a, err := s.appts.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if err := CheckTransition(a.Status, to); err != nil {
			return err
		}

		now := s.now()
		ok, err := s.appts.UpdateStatus(ctx, id, a.Status, to, actor, now.UTC())
		if err != nil {
			return err
		}
		if !ok {
			// Someone else moved it between our read and write.
			return fmt.Errorf("appointment %d changed concurrently: %w", id, ErrInvalidStatusTransition)
		}
		if to == StatusCompleted {
			if err := s.dir.IncrementPatientsTreated(ctx, a.DoctorID); err != nil {
				return fmt.Errorf("count treated patient: %w", err)
			}
		}

		a.Status = to
		a.Modified(actor, now)
		updated = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	if to == StatusConfirmed {
		s.notify(ctx, updated, notification.TemplateAppointmentConfirmed, actor)
	}
	return updated, nil
}
