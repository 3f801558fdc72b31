package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/medicore/hms/internal/platform/apperr"
	"github.com/medicore/hms/internal/platform/auth"
)

// -- Mock Repositories --

type mockPatientRepo struct {
	patients map[int64]*Patient
	nextID   int64
}

func newMockPatientRepo() *mockPatientRepo {
	return &mockPatientRepo{patients: make(map[int64]*Patient)}
}

func (m *mockPatientRepo) Create(_ context.Context, p *Patient) error {
	m.nextID++
	p.ID = m.nextID
	cp := *p
	m.patients[p.ID] = &cp
	return nil
}

func (m *mockPatientRepo) GetByID(_ context.Context, id int64) (*Patient, error) {
	p, ok := m.patients[id]
	if !ok || !p.IsActive {
		return nil, fmt.Errorf("patient %d: %w", id, apperr.ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (m *mockPatientRepo) GetByEmail(_ context.Context, email string) (*Patient, error) {
	for _, p := range m.patients {
		if p.IsActive && p.Email == email {
			cp := *p
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("patient %s: %w", email, apperr.ErrNotFound)
}

func (m *mockPatientRepo) Update(_ context.Context, p *Patient) error {
	old, ok := m.patients[p.ID]
	if !ok || !old.IsActive {
		return fmt.Errorf("patient %d: %w", p.ID, apperr.ErrNotFound)
	}
	p.PasswordHash = old.PasswordHash
	p.IsActive = true
	p.CreatedDate, p.CreatedBy = old.CreatedDate, old.CreatedBy
	cp := *p
	m.patients[p.ID] = &cp
	return nil
}

func (m *mockPatientRepo) UpdatePassword(_ context.Context, id int64, hash, _ string, _ time.Time) error {
	p, ok := m.patients[id]
	if !ok || !p.IsActive {
		return fmt.Errorf("patient %d: %w", id, apperr.ErrNotFound)
	}
	p.PasswordHash = hash
	return nil
}

func (m *mockPatientRepo) SoftDelete(_ context.Context, id int64, actor string, at time.Time) (bool, error) {
	p, ok := m.patients[id]
	if !ok || !p.IsActive {
		return false, nil
	}
	p.IsActive = false
	p.Modified(actor, at)
	return true, nil
}

func (m *mockPatientRepo) Exists(_ context.Context, id int64) (bool, error) {
	p, ok := m.patients[id]
	return ok && p.IsActive, nil
}

func (m *mockPatientRepo) EmailInUse(_ context.Context, email string, exceptID int64) (bool, error) {
	for _, p := range m.patients {
		if p.Email == email && p.ID != exceptID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockPatientRepo) List(_ context.Context, _, _ int) ([]*Patient, int, error) {
	var out []*Patient
	for _, p := range m.patients {
		if p.IsActive {
			out = append(out, p)
		}
	}
	return out, len(out), nil
}

func (m *mockPatientRepo) Search(_ context.Context, q string, _, _ int) ([]*Patient, int, error) {
	var out []*Patient
	for _, p := range m.patients {
		if p.IsActive && strings.Contains(strings.ToLower(p.FullName()+" "+p.Email), strings.ToLower(q)) {
			out = append(out, p)
		}
	}
	return out, len(out), nil
}

type mockDoctorRepo struct {
	doctors map[int64]*Doctor
	nextID  int64
	ratings map[int64][]int
}

func newMockDoctorRepo() *mockDoctorRepo {
	return &mockDoctorRepo{doctors: make(map[int64]*Doctor), ratings: make(map[int64][]int)}
}

func (m *mockDoctorRepo) Create(_ context.Context, d *Doctor) error {
	m.nextID++
	d.ID = m.nextID
	cp := *d
	m.doctors[d.ID] = &cp
	return nil
}

func (m *mockDoctorRepo) GetByID(_ context.Context, id int64) (*Doctor, error) {
	d, ok := m.doctors[id]
	if !ok || !d.IsActive {
		return nil, fmt.Errorf("doctor %d: %w", id, apperr.ErrNotFound)
	}
	cp := *d
	return &cp, nil
}

func (m *mockDoctorRepo) GetByEmail(_ context.Context, email string) (*Doctor, error) {
	for _, d := range m.doctors {
		if d.IsActive && d.Email == email {
			cp := *d
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("doctor %s: %w", email, apperr.ErrNotFound)
}

func (m *mockDoctorRepo) Update(_ context.Context, d *Doctor) error {
	old, ok := m.doctors[d.ID]
	if !ok || !old.IsActive {
		return fmt.Errorf("doctor %d: %w", d.ID, apperr.ErrNotFound)
	}
	d.PasswordHash = old.PasswordHash
	d.PatientsTreated, d.ReputationScore = old.PatientsTreated, old.ReputationScore
	d.IsActive = true
	cp := *d
	m.doctors[d.ID] = &cp
	return nil
}

func (m *mockDoctorRepo) UpdatePassword(_ context.Context, id int64, hash, _ string, _ time.Time) error {
	d, ok := m.doctors[id]
	if !ok || !d.IsActive {
		return fmt.Errorf("doctor %d: %w", id, apperr.ErrNotFound)
	}
	d.PasswordHash = hash
	return nil
}

func (m *mockDoctorRepo) SoftDelete(_ context.Context, id int64, actor string, at time.Time) (bool, error) {
	d, ok := m.doctors[id]
	if !ok || !d.IsActive {
		return false, nil
	}
	d.IsActive = false
	d.Modified(actor, at)
	return true, nil
}

func (m *mockDoctorRepo) Exists(_ context.Context, id int64) (bool, error) {
	d, ok := m.doctors[id]
	return ok && d.IsActive, nil
}

func (m *mockDoctorRepo) EmailInUse(_ context.Context, email string, exceptID int64) (bool, error) {
	for _, d := range m.doctors {
		if d.Email == email && d.ID != exceptID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockDoctorRepo) List(_ context.Context, _, _ int) ([]*Doctor, int, error) {
	var out []*Doctor
	for _, d := range m.doctors {
		if d.IsActive {
			out = append(out, d)
		}
	}
	return out, len(out), nil
}

func (m *mockDoctorRepo) Search(_ context.Context, q string, _, _ int) ([]*Doctor, int, error) {
	var out []*Doctor
	for _, d := range m.doctors {
		if d.IsActive && strings.Contains(strings.ToLower(d.FullName()), strings.ToLower(q)) {
			out = append(out, d)
		}
	}
	return out, len(out), nil
}

func (m *mockDoctorRepo) ListByDepartment(_ context.Context, departmentID int64) ([]*Doctor, error) {
	var out []*Doctor
	for _, d := range m.doctors {
		if d.IsActive && d.DepartmentID != nil && *d.DepartmentID == departmentID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *mockDoctorRepo) IncrementPatientsTreated(_ context.Context, id int64) error {
	d, ok := m.doctors[id]
	if !ok {
		return fmt.Errorf("doctor %d: %w", id, apperr.ErrNotFound)
	}
	d.PatientsTreated++
	return nil
}

func (m *mockDoctorRepo) RefreshReputation(_ context.Context, id int64) (float64, error) {
	d, ok := m.doctors[id]
	if !ok {
		return 0, fmt.Errorf("doctor %d: %w", id, apperr.ErrNotFound)
	}
	rs := m.ratings[id]
	if len(rs) == 0 {
		d.ReputationScore = 0
		return 0, nil
	}
	sum := 0
	for _, r := range rs {
		sum += r
	}
	d.ReputationScore = float64(sum) / float64(len(rs))
	return d.ReputationScore, nil
}

type mockStaffRepo struct {
	staff  map[int64]*Staff
	nextID int64
	err    error
}

func newMockStaffRepo() *mockStaffRepo {
	return &mockStaffRepo{staff: make(map[int64]*Staff)}
}

func (m *mockStaffRepo) Create(_ context.Context, s *Staff) error {
	m.nextID++
	s.ID = m.nextID
	cp := *s
	m.staff[s.ID] = &cp
	return nil
}

func (m *mockStaffRepo) GetByID(_ context.Context, id int64) (*Staff, error) {
	s, ok := m.staff[id]
	if !ok || !s.IsActive {
		return nil, fmt.Errorf("staff %d: %w", id, apperr.ErrNotFound)
	}
	cp := *s
	return &cp, nil
}

func (m *mockStaffRepo) GetByEmail(_ context.Context, email string) (*Staff, error) {
	if m.err != nil {
		return nil, m.err
	}
	for _, s := range m.staff {
		if s.IsActive && s.Email == email {
			cp := *s
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("staff %s: %w", email, apperr.ErrNotFound)
}

func (m *mockStaffRepo) Update(_ context.Context, s *Staff) error {
	old, ok := m.staff[s.ID]
	if !ok || !old.IsActive {
		return fmt.Errorf("staff %d: %w", s.ID, apperr.ErrNotFound)
	}
	s.PasswordHash = old.PasswordHash
	s.IsActive = true
	cp := *s
	m.staff[s.ID] = &cp
	return nil
}

func (m *mockStaffRepo) UpdatePassword(_ context.Context, id int64, hash, _ string, _ time.Time) error {
	s, ok := m.staff[id]
	if !ok || !s.IsActive {
		return fmt.Errorf("staff %d: %w", id, apperr.ErrNotFound)
	}
	s.PasswordHash = hash
	return nil
}

func (m *mockStaffRepo) SoftDelete(_ context.Context, id int64, actor string, at time.Time) (bool, error) {
	s, ok := m.staff[id]
	if !ok || !s.IsActive {
		return false, nil
	}
	s.IsActive = false
	s.Modified(actor, at)
	return true, nil
}

func (m *mockStaffRepo) Exists(_ context.Context, id int64) (bool, error) {
	s, ok := m.staff[id]
	return ok && s.IsActive, nil
}

func (m *mockStaffRepo) EmailInUse(_ context.Context, email string, exceptID int64) (bool, error) {
	for _, s := range m.staff {
		if s.Email == email && s.ID != exceptID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockStaffRepo) List(_ context.Context, _, _ int) ([]*Staff, int, error) {
	var out []*Staff
	for _, s := range m.staff {
		if s.IsActive {
			out = append(out, s)
		}
	}
	return out, len(out), nil
}

func (m *mockStaffRepo) Search(ctx context.Context, _ string, limit, offset int) ([]*Staff, int, error) {
	return m.List(ctx, limit, offset)
}

// -- Helpers --

var fixedNow = time.Date(2026, 3, 2, 9, 30, 0, 0, time.FixedZone("IST", 5*3600+1800))

func testHasher() auth.Hasher {
	return &auth.Argon2Hasher{Time: 1, Memory: 1024, Threads: 1, SaltLen: 16, KeyLen: 32}
}

type testRepos struct {
	patients *mockPatientRepo
	doctors  *mockDoctorRepo
	staff    *mockStaffRepo
}

func newTestServiceWithRepos() (*Service, *testRepos) {
	r := &testRepos{patients: newMockPatientRepo(), doctors: newMockDoctorRepo(), staff: newMockStaffRepo()}
	svc := NewService(r.patients, r.doctors, r.staff, testHasher())
	svc.now = func() time.Time { return fixedNow }
	return svc, r
}

func newTestService() *Service {
	svc, _ := newTestServiceWithRepos()
	return svc
}

func newPatient(email string) *Patient {
	return &Patient{FirstName: "Asha", LastName: "Rao", Email: email}
}

// -- Patient Tests --

func TestRegisterPatient(t *testing.T) {
	svc := newTestService()
	p := newPatient("  Asha.Rao@Example.com ")

	if err := svc.RegisterPatient(context.Background(), p, "correct horse", "front-desk"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.ID == 0 {
		t.Error("expected ID to be assigned")
	}
	if p.Email != "asha.rao@example.com" {
		t.Errorf("expected normalised email, got %q", p.Email)
	}
	if !p.IsActive {
		t.Error("expected new patient to be active")
	}
	if p.CreatedBy != "front-desk" {
		t.Errorf("expected created_by front-desk, got %q", p.CreatedBy)
	}
	if p.CreatedDate.Location() != time.UTC || !p.CreatedDate.Equal(fixedNow) {
		t.Errorf("expected created_date %v in UTC, got %v", fixedNow.UTC(), p.CreatedDate)
	}
	if !strings.HasPrefix(p.PasswordHash, "$argon2id$") {
		t.Errorf("expected argon2id hash, got %q", p.PasswordHash)
	}
}

func TestRegisterPatient_Validation(t *testing.T) {
	svc := newTestService()
	tests := []struct {
		name     string
		p        *Patient
		password string
		field    string
	}{
		{"missing first name", &Patient{LastName: "Rao", Email: "a@example.com"}, "password1", "first_name"},
		{"missing last name", &Patient{FirstName: "Asha", Email: "a@example.com"}, "password1", "last_name"},
		{"missing email", &Patient{FirstName: "Asha", LastName: "Rao"}, "password1", "email"},
		{"bad email", &Patient{FirstName: "Asha", LastName: "Rao", Email: "not-an-email"}, "password1", "email"},
		{"short password", newPatient("a@example.com"), "short", "password"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := svc.RegisterPatient(context.Background(), tt.p, tt.password, "x")
			var ve *apperr.ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if ve.Field != tt.field {
				t.Errorf("expected field %s, got %s", tt.field, ve.Field)
			}
		})
	}
}

func TestRegisterPatient_EmailUniqueAcrossPrincipals(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	if err := svc.CreateDoctor(ctx, &Doctor{FirstName: "Meera", LastName: "Iyer", Email: "meera@example.com"}, "password1", "admin"); err != nil {
		t.Fatalf("create doctor: %v", err)
	}

	err := svc.RegisterPatient(ctx, newPatient("MEERA@example.com"), "password1", "x")
	if !errors.Is(err, apperr.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestRegisterPatient_EmailOfDeletedAccountStaysTaken(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	p := newPatient("gone@example.com")
	if err := svc.RegisterPatient(ctx, p, "password1", "x"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := svc.DeletePatient(ctx, p.ID, "admin"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	err := svc.RegisterPatient(ctx, newPatient("gone@example.com"), "password1", "x")
	if !errors.Is(err, apperr.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestGetPatient_RejectsNonPositiveID(t *testing.T) {
	svc := newTestService()
	_, err := svc.GetPatient(context.Background(), 0)
	if !apperr.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdatePatient(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	p := newPatient("asha@example.com")
	if err := svc.RegisterPatient(ctx, p, "password1", "x"); err != nil {
		t.Fatalf("register: %v", err)
	}

	upd := &Patient{ID: p.ID, FirstName: "Asha", LastName: "Menon", Email: "asha@example.com", Phone: "555-0101"}
	if err := svc.UpdatePatient(ctx, upd, "nurse"); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := svc.GetPatient(ctx, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.LastName != "Menon" || got.Phone != "555-0101" {
		t.Errorf("update not applied: %+v", got)
	}
	if got.ModifiedBy == nil || *got.ModifiedBy != "nurse" {
		t.Errorf("expected modified_by nurse, got %v", got.ModifiedBy)
	}
	if got.PasswordHash != p.PasswordHash {
		t.Error("update must not touch the password hash")
	}
}

func TestUpdatePatient_EmailTakenBySomeoneElse(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	a := newPatient("a@example.com")
	b := newPatient("b@example.com")
	for _, p := range []*Patient{a, b} {
		if err := svc.RegisterPatient(ctx, p, "password1", "x"); err != nil {
			t.Fatalf("register: %v", err)
		}
	}

	upd := &Patient{ID: b.ID, FirstName: "B", LastName: "B", Email: "a@example.com"}
	if err := svc.UpdatePatient(ctx, upd, "x"); !errors.Is(err, apperr.ErrDuplicate) {
		t.Fatalf("expected ErrDuplicate, got %v", err)
	}
}

func TestDeletePatient_SoftDeleteRoundTrip(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	p := newPatient("asha@example.com")
	if err := svc.RegisterPatient(ctx, p, "password1", "x"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := svc.DeletePatient(ctx, p.ID, "admin"); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := svc.GetPatient(ctx, p.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
	exists, _ := svc.PatientExists(ctx, p.ID)
	if exists {
		t.Error("deleted patient must not exist")
	}
	list, total, _ := svc.ListPatients(ctx, 20, 0)
	if total != 0 || len(list) != 0 {
		t.Errorf("expected empty list, got %d", total)
	}

	if err := svc.DeletePatient(ctx, p.ID, "admin"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}
}

// -- Doctor Tests --

func TestCreateDoctor_ResetsDerivedFields(t *testing.T) {
	svc := newTestService()
	d := &Doctor{FirstName: "Meera", LastName: "Iyer", Email: "meera@example.com", PatientsTreated: 50, ReputationScore: 4.9}
	if err := svc.CreateDoctor(context.Background(), d, "password1", "admin"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if d.PatientsTreated != 0 || d.ReputationScore != 0 {
		t.Errorf("expected derived fields reset, got %d / %v", d.PatientsTreated, d.ReputationScore)
	}
}

func TestCreateDoctor_NegativeFee(t *testing.T) {
	svc := newTestService()
	d := &Doctor{FirstName: "Meera", LastName: "Iyer", Email: "meera@example.com", ConsultationFee: -1}
	if err := svc.CreateDoctor(context.Background(), d, "password1", "admin"); !apperr.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestListDoctorsByDepartment(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	cardio, neuro := int64(1), int64(2)

	for i, dept := range []*int64{&cardio, &cardio, &neuro, nil} {
		d := &Doctor{FirstName: "Dr", LastName: fmt.Sprint(i), Email: fmt.Sprintf("dr%d@example.com", i), DepartmentID: dept}
		if err := svc.CreateDoctor(ctx, d, "password1", "admin"); err != nil {
			t.Fatalf("create: %v", err)
		}
	}

	got, err := svc.ListDoctorsByDepartment(ctx, cardio)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("expected 2 cardiology doctors, got %d", len(got))
	}

	if _, err := svc.ListDoctorsByDepartment(ctx, 0); !apperr.IsValidation(err) {
		t.Errorf("expected validation error for department 0, got %v", err)
	}
}

func TestIncrementPatientsTreated(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()
	d := &Doctor{FirstName: "Meera", LastName: "Iyer", Email: "meera@example.com"}
	if err := svc.CreateDoctor(ctx, d, "password1", "admin"); err != nil {
		t.Fatalf("create: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := svc.IncrementPatientsTreated(ctx, d.ID); err != nil {
			t.Fatalf("increment: %v", err)
		}
	}
	got, _ := svc.GetDoctor(ctx, d.ID)
	if got.PatientsTreated != 3 {
		t.Errorf("expected 3, got %d", got.PatientsTreated)
	}
}

// -- Staff and credentials --

func TestCreateStaff_AndDelete(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	st := &Staff{FirstName: "Ravi", LastName: "Kumar", Email: "ravi@example.com", Position: "Receptionist"}
	if err := svc.CreateStaff(ctx, st, "password1", "root"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := svc.DeleteStaff(ctx, st.ID, "root"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.GetStaff(ctx, st.ID); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	svc, repos := newTestServiceWithRepos()
	ctx := context.Background()

	p := newPatient("asha@example.com")
	if err := svc.RegisterPatient(ctx, p, "password1", "x"); err != nil {
		t.Fatalf("register: %v", err)
	}
	before := repos.patients.patients[p.ID].PasswordHash

	if err := svc.ChangePassword(ctx, auth.RolePatient, p.ID, "new password", "x"); err != nil {
		t.Fatalf("change: %v", err)
	}
	after := repos.patients.patients[p.ID].PasswordHash
	if after == before {
		t.Error("expected password hash to change")
	}
	ok, _, err := testHasher().Verify("new password", after)
	if err != nil || !ok {
		t.Errorf("new password does not verify: %v", err)
	}

	if err := svc.ChangePassword(ctx, auth.Role("Nurse"), p.ID, "new password", "x"); !apperr.IsValidation(err) {
		t.Errorf("expected validation error for unknown role, got %v", err)
	}
}

// -- Login through the principal sources --

func TestPrincipalSources_Login(t *testing.T) {
	svc := newTestService()
	ctx := context.Background()

	if err := svc.CreateDoctor(ctx, &Doctor{FirstName: "Meera", LastName: "Iyer", Email: "meera@example.com"}, "password1", "admin"); err != nil {
		t.Fatalf("create doctor: %v", err)
	}
	st := &Staff{FirstName: "Ravi", LastName: "Kumar", Email: "ravi@example.com"}
	if err := svc.CreateStaff(ctx, st, "password2", "root"); err != nil {
		t.Fatalf("create staff: %v", err)
	}

	authn := auth.NewAuthenticator(testHasher(), zerolog.Nop(), svc.PrincipalSources()...)

	res, err := authn.ValidateLogin(ctx, "Meera@Example.com", "password1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !res.Success || res.Role != auth.RoleDoctor {
		t.Errorf("expected doctor login, got %+v", res)
	}

	res, _ = authn.ValidateLogin(ctx, "ravi@example.com", "password2")
	if !res.Success || res.Role != auth.RoleAdmin || res.UserID != st.ID {
		t.Errorf("expected admin login for staff, got %+v", res)
	}

	res, _ = authn.ValidateLogin(ctx, "nobody@example.com", "password1")
	if res.Success || res.Message != auth.InvalidCredentials {
		t.Errorf("expected opaque failure, got %+v", res)
	}
}

func TestPrincipalSources_PropagateStoreErrors(t *testing.T) {
	svc, repos := newTestServiceWithRepos()
	repos.staff.err = errors.New("connection reset")

	authn := auth.NewAuthenticator(testHasher(), zerolog.Nop(), svc.PrincipalSources()...)
	if _, err := authn.ValidateLogin(context.Background(), "ravi@example.com", "password1"); err == nil {
		t.Fatal("expected store error to propagate")
	}
}
