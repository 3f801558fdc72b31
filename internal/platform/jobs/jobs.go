// Package jobs runs periodic maintenance on a cron schedule.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/medicore/hms/internal/platform/db"
)

// SlotSweeper withdraws free slots that can no longer be booked.
type SlotSweeper interface {
	DeactivatePastSlots(ctx context.Context, now time.Time) (int64, error)
}

// TenantScope returns a context bound to one facility's schema.
type TenantScope func(ctx context.Context, tenantID string) (context.Context, func(), error)

// PoolScope scopes each run with db.ScopeToTenant.
func PoolScope(pool *pgxpool.Pool) TenantScope {
	return func(ctx context.Context, tenantID string) (context.Context, func(), error) {
		return db.ScopeToTenant(ctx, pool, tenantID)
	}
}

type Scheduler struct {
	cron    *cron.Cron
	scope   TenantScope
	tenants []string
	logger  zerolog.Logger
	timeout time.Duration
	now     func() time.Time
}

func NewScheduler(scope TenantScope, tenants []string, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		scope:   scope,
		tenants: tenants,
		logger:  logger.With().Str("component", "jobs").Logger(),
		timeout: 2 * time.Minute,
		now:     time.Now,
	}
}

// RegisterSlotSweep schedules the nightly sweep, e.g. "5 0 * * *".
func (s *Scheduler) RegisterSlotSweep(spec string, sweeper SlotSweeper) error {
	_, err := s.cron.AddFunc(spec, func() {
		s.SweepSlots(context.Background(), sweeper)
	})
	if err != nil {
		return fmt.Errorf("schedule slot sweep %q: %w", spec, err)
	}
	s.logger.Info().Str("schedule", spec).Msg("slot sweep registered")
	return nil
}

// SweepSlots runs the sweeper once per tenant. A failing tenant is logged and
// skipped. Returns the number of slots withdrawn across all tenants.
func (s *Scheduler) SweepSlots(ctx context.Context, sweeper SlotSweeper) int64 {
	start := s.now()
	var total int64

	for _, tenant := range s.tenants {
		n, err := s.sweepTenant(ctx, tenant, sweeper, start)
		if err != nil {
			s.logger.Error().Err(err).Str("tenant", tenant).Msg("slot sweep failed")
			continue
		}
		total += n
		s.logger.Info().Str("tenant", tenant).Int64("withdrawn", n).Msg("slot sweep done")
	}

	s.logger.Info().Int64("withdrawn", total).Dur("took", time.Since(start)).Msg("slot sweep finished")
	return total
}

func (s *Scheduler) sweepTenant(ctx context.Context, tenant string, sweeper SlotSweeper, now time.Time) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	ctx, release, err := s.scope(ctx, tenant)
	if err != nil {
		return 0, err
	}
	defer release()

	return sweeper.DeactivatePastSlots(ctx, now.UTC())
}

func (s *Scheduler) Start() { s.cron.Start() }

// Stop waits for running jobs to finish or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}
