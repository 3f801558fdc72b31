package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/spf13/cobra"

	"github.com/medicore/hms/internal/domain/admin"
	"github.com/medicore/hms/internal/domain/identity"
	"github.com/medicore/hms/internal/platform/apperr"
	"github.com/medicore/hms/internal/platform/db"
	"github.com/medicore/hms/internal/platform/lock"
)

const seedActor = "seed"

var specialties = []string{
	"Cardiology",
	"Dermatology",
	"General Practice",
	"Neurology",
	"Orthopedics",
	"Pediatrics",
	"Psychiatry",
	"Ophthalmology",
	"ENT",
	"Endocrinology",
}

var bloodGroups = []string{"A+", "A-", "B+", "B-", "AB+", "AB-", "O+", "O-"}

type seedOptions struct {
	Departments int
	Doctors     int
	Patients    int
	Days        int
	Password    string
}

func seedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Fill a facility with fake departments, doctors, patients and slots",
		RunE: func(cmd *cobra.Command, args []string) error {
			tenant, _ := cmd.Flags().GetString("tenant")
			seed, _ := cmd.Flags().GetInt64("seed")
			opts := seedOptions{}
			opts.Departments, _ = cmd.Flags().GetInt("departments")
			opts.Doctors, _ = cmd.Flags().GetInt("doctors")
			opts.Patients, _ = cmd.Flags().GetInt("patients")
			opts.Days, _ = cmd.Flags().GetInt("days")
			opts.Password, _ = cmd.Flags().GetString("password")

			if seed == 0 {
				seed = time.Now().UnixNano()
			}
			_ = gofakeit.Seed(seed)

			ctx := context.Background()
			cfg, pool, err := openPool(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()
			if tenant == "" {
				tenant = cfg.DefaultTenant
			}

			ctx, release, err := db.ScopeToTenant(ctx, pool, tenant)
			if err != nil {
				return err
			}
			defer release()

			logger := newLogger(cfg.Env)
			svc := newServices(pool, lock.NoopLocker{}, logger)
			if err := runSeed(ctx, svc, opts, time.Now().UTC()); err != nil {
				return err
			}
			logger.Info().Str("tenant", tenant).Msg("seed complete")
			return nil
		},
	}
	cmd.Flags().String("tenant", "", "Facility identifier (defaults to DEFAULT_TENANT)")
	cmd.Flags().Int64("seed", 0, "Random seed, 0 for time based")
	cmd.Flags().Int("departments", 4, "Departments to create")
	cmd.Flags().Int("doctors", 12, "Doctors to create")
	cmd.Flags().Int("patients", 50, "Patients to create")
	cmd.Flags().Int("days", 7, "Days of free slots to open per doctor")
	cmd.Flags().String("password", "changeme123", "Password for every seeded account")
	return cmd
}

func runSeed(ctx context.Context, svc *services, opts seedOptions, now time.Time) error {
	var deptIDs []int64
	for i := 0; i < opts.Departments && i < len(specialties); i++ {
		d := &admin.Department{Name: specialties[i], Description: specialties[i] + " department"}
		if err := svc.admin.CreateDepartment(ctx, d, seedActor); err != nil {
			if errors.Is(err, apperr.ErrDuplicate) {
				continue
			}
			return fmt.Errorf("seed department %q: %w", d.Name, err)
		}
		deptIDs = append(deptIDs, d.ID)
	}
	fmt.Printf("departments seeded: %d\n", len(deptIDs))

	var doctorIDs []int64
	for i := 0; i < opts.Doctors; i++ {
		d := fakeDoctor(i, deptIDs)
		if err := svc.identity.CreateDoctor(ctx, d, opts.Password, seedActor); err != nil {
			if errors.Is(err, apperr.ErrDuplicate) {
				continue
			}
			return fmt.Errorf("seed doctor: %w", err)
		}
		doctorIDs = append(doctorIDs, d.ID)
	}
	fmt.Printf("doctors seeded: %d\n", len(doctorIDs))

	patients := 0
	for i := 0; i < opts.Patients; i++ {
		p := fakePatient(i, now)
		if err := svc.identity.RegisterPatient(ctx, p, opts.Password, seedActor); err != nil {
			if errors.Is(err, apperr.ErrDuplicate) {
				continue
			}
			return fmt.Errorf("seed patient: %w", err)
		}
		patients++
	}
	fmt.Printf("patients seeded: %d\n", patients)

	slots := 0
	day := now.Truncate(24 * time.Hour).Add(24 * time.Hour)
	for _, id := range doctorIDs {
		for d := 0; d < opts.Days; d++ {
			from := day.AddDate(0, 0, d).Add(9 * time.Hour)
			created, err := svc.scheduling.GenerateSlots(ctx, id, from, from.Add(8*time.Hour), 30*time.Minute, seedActor)
			if err != nil {
				return fmt.Errorf("seed slots for doctor %d: %w", id, err)
			}
			slots += len(created)
		}
	}
	fmt.Printf("slots seeded: %d\n", slots)
	return nil
}

// seedEmail keeps seeded addresses unique across runs of the same size by
// folding in the index.
func seedEmail(first, last string, i int) string {
	local := strings.ToLower(first + "." + last)
	local = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || r == '.' {
			return r
		}
		return -1
	}, local)
	return fmt.Sprintf("%s.%d@%s", local, i, "example.org")
}

func fakeDoctor(i int, deptIDs []int64) *identity.Doctor {
	first, last := gofakeit.FirstName(), gofakeit.LastName()
	d := &identity.Doctor{
		FirstName:       first,
		LastName:        last,
		Email:           seedEmail(first, last, i),
		Phone:           gofakeit.Phone(),
		Gender:          gofakeit.Gender(),
		Address:         gofakeit.Street(),
		ConsultationFee: float64(gofakeit.Number(20, 200)) * 5,
	}
	if len(deptIDs) > 0 {
		idx := i % len(deptIDs)
		dept := deptIDs[idx]
		d.DepartmentID = &dept
		d.Specialization = specialties[idx%len(specialties)]
	}
	return d
}

func fakePatient(i int, now time.Time) *identity.Patient {
	first, last := gofakeit.FirstName(), gofakeit.LastName()
	dob := gofakeit.DateRange(now.AddDate(-90, 0, 0), now.AddDate(-1, 0, 0)).UTC().Truncate(24 * time.Hour)
	return &identity.Patient{
		FirstName:   first,
		LastName:    last,
		Email:       seedEmail(first, last, i),
		Phone:       gofakeit.Phone(),
		DateOfBirth: &dob,
		Gender:      gofakeit.Gender(),
		Address:     gofakeit.Street(),
		BloodGroup:  gofakeit.RandomString(bloodGroups),
	}
}
