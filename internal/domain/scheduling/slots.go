package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/medicore/hms/internal/platform/apperr"
	"github.com/medicore/hms/internal/platform/lock"
	"github.com/medicore/hms/pkg/audit"
)

const (
	maxGeneratedSlots = 200
	sweepActor        = "system:slot-sweeper"
)

func validateWindow(start, end time.Time) error {
	if start.IsZero() {
		return apperr.Invalid("start_time", "is required")
	}
	if !end.After(start) {
		return apperr.Invalid("end_time", "must be after start_time")
	}
	return nil
}

func (s *Service) CreateSlot(ctx context.Context, sl *FreeSlot, actor string) error {
	if err := apperr.RequirePositive("doctor_id", sl.DoctorID); err != nil {
		return err
	}
	if err := validateWindow(sl.StartTime, sl.EndTime); err != nil {
		return err
	}
	if ok, err := s.dir.DoctorExists(ctx, sl.DoctorID); err != nil {
		return err
	} else if !ok {
		return apperr.Missing("doctor")
	}

	sl.StartTime, sl.EndTime = sl.StartTime.UTC(), sl.EndTime.UTC()
	sl.IsActive = true
	sl.Created(audit.Actor(actor), s.now())
	sl.ModifiedDate, sl.ModifiedBy = nil, nil
	return s.slots.Create(ctx, sl)
}

func (s *Service) GetSlot(ctx context.Context, id int64) (*FreeSlot, error) {
	if err := apperr.RequirePositive("id", id); err != nil {
		return nil, err
	}
	return s.slots.GetByID(ctx, id)
}

func (s *Service) ListSlotsByDoctor(ctx context.Context, doctorID int64) ([]*FreeSlot, error) {
	if err := apperr.RequirePositive("doctor_id", doctorID); err != nil {
		return nil, err
	}
	return s.slots.ListByDoctor(ctx, doctorID)
}

// UpdateSlot moves a slot's window. A slot held by a live appointment cannot
// move. The hold check and the write run under the same slot lock and row
// lock that booking takes, so a concurrent booking either lands first and
// blocks the move or waits for it.
func (s *Service) UpdateSlot(ctx context.Context, id int64, start, end time.Time, actor string) (*FreeSlot, error) {
	if err := apperr.RequirePositive("id", id); err != nil {
		return nil, err
	}
	if err := validateWindow(start, end); err != nil {
		return nil, err
	}

	var moved *FreeSlot
	err := s.withHeldSlotCheck(ctx, id, func(ctx context.Context, sl *FreeSlot) error {
		sl.StartTime, sl.EndTime = start.UTC(), end.UTC()
		sl.Modified(audit.Actor(actor), s.now())
		if err := s.slots.Update(ctx, sl); err != nil {
			return err
		}
		moved = sl
		return nil
	})
	if err != nil {
		return nil, err
	}
	return moved, nil
}

// DeleteSlot withdraws a slot. A slot held by a live appointment stays.
func (s *Service) DeleteSlot(ctx context.Context, id int64, actor string) error {
	if err := apperr.RequirePositive("id", id); err != nil {
		return err
	}
	return s.withHeldSlotCheck(ctx, id, func(ctx context.Context, _ *FreeSlot) error {
		ok, err := s.slots.SoftDelete(ctx, id, audit.Actor(actor), s.now().UTC())
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("free slot %d: %w", id, apperr.ErrNotFound)
		}
		return nil
	})
}

// withHeldSlotCheck locks the active slot id, refuses with
// ErrSlotAlreadyBooked when a live appointment holds it, and otherwise runs
// fn in the same transaction.
func (s *Service) withHeldSlotCheck(ctx context.Context, id int64, fn func(ctx context.Context, sl *FreeSlot) error) error {
	err := s.locker.WithSlotLock(ctx, id, func(ctx context.Context) error {
		return s.tx.WithTx(ctx, func(ctx context.Context) error {
			sl, err := s.slots.GetForUpdate(ctx, id)
			if err != nil {
				return err
			}
			if !sl.IsActive {
				return fmt.Errorf("free slot %d: %w", id, apperr.ErrNotFound)
			}
			held, err := s.appts.HasLiveOnSlot(ctx, id)
			if err != nil {
				return err
			}
			if held {
				return ErrSlotAlreadyBooked
			}
			return fn(ctx, sl)
		})
	})
	if errors.Is(err, lock.ErrLockNotAcquired) {
		return ErrSlotBeingBooked
	}
	return err
}

// GenerateSlots opens consecutive windows of length every between from and
// to. Windows whose start time the doctor already has are skipped.
func (s *Service) GenerateSlots(ctx context.Context, doctorID int64, from, to time.Time, every time.Duration, actor string) ([]*FreeSlot, error) {
	if err := apperr.RequirePositive("doctor_id", doctorID); err != nil {
		return nil, err
	}
	if err := validateWindow(from, to); err != nil {
		return nil, err
	}
	if every < time.Minute {
		return nil, apperr.Invalid("every", "must be at least one minute")
	}
	if n := int(to.Sub(from) / every); n > maxGeneratedSlots {
		return nil, apperr.Invalid("every", fmt.Sprintf("would create %d slots, the limit is %d", n, maxGeneratedSlots))
	}
	if ok, err := s.dir.DoctorExists(ctx, doctorID); err != nil {
		return nil, err
	} else if !ok {
		return nil, apperr.Missing("doctor")
	}

	from, to = from.UTC(), to.UTC()
	actor = audit.Actor(actor)
	var created []*FreeSlot

	err := s.tx.WithTx(ctx, func(ctx context.Context) error {
		existing, err := s.slots.StartTimesBetween(ctx, doctorID, from, to)
		if err != nil {
			return err
		}
		seen := make(map[int64]struct{}, len(existing))
		for _, t := range existing {
			seen[t.UTC().Unix()] = struct{}{}
		}

		for start := from; !start.Add(every).After(to); start = start.Add(every) {
			if _, dup := seen[start.Unix()]; dup {
				continue
			}
			sl := &FreeSlot{DoctorID: doctorID, StartTime: start, EndTime: start.Add(every), IsActive: true}
			sl.Created(actor, s.now())
			if err := s.slots.Create(ctx, sl); err != nil {
				return fmt.Errorf("create slot at %s: %w", start.Format(time.RFC3339), err)
			}
			created = append(created, sl)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("doctor_id", doctorID).Int("created", len(created)).Msg("slots generated")
	return created, nil
}

// DeactivatePastSlots withdraws unbooked slots whose start has passed.
func (s *Service) DeactivatePastSlots(ctx context.Context, now time.Time) (int64, error) {
	return s.slots.DeactivatePast(ctx, now.UTC(), sweepActor)
}
