package scheduling

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/medicore/hms/internal/domain/identity"
	"github.com/medicore/hms/internal/domain/notification"
	"github.com/medicore/hms/internal/platform/apperr"
)

// -- In-memory stores --

type memSlots struct {
	mu     sync.Mutex
	slots  map[int64]*FreeSlot
	nextID int64
	err    error
	appts  *memAppointments
	// rowLocks records each GetForUpdate and whether it ran inside a transaction.
	rowLocks []rowLock
}

type rowLock struct {
	slotID int64
	inTx   bool
}

func newMemSlots() *memSlots {
	return &memSlots{slots: make(map[int64]*FreeSlot)}
}

func (m *memSlots) add(doctorID int64, start time.Time) *FreeSlot {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	sl := &FreeSlot{ID: m.nextID, DoctorID: doctorID, StartTime: start, EndTime: start.Add(30 * time.Minute), IsActive: true}
	m.slots[sl.ID] = sl
	return sl
}

func (m *memSlots) Create(_ context.Context, s *FreeSlot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	s.ID = m.nextID
	cp := *s
	m.slots[s.ID] = &cp
	return nil
}

func (m *memSlots) GetByID(_ context.Context, id int64) (*FreeSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	s, ok := m.slots[id]
	if !ok || !s.IsActive {
		return nil, fmt.Errorf("free slot %d: %w", id, apperr.ErrNotFound)
	}
	cp := *s
	return &cp, nil
}

func (m *memSlots) GetForUpdate(ctx context.Context, id int64) (*FreeSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, inTx := ctx.Value(inTxKey{}).(bool)
	m.rowLocks = append(m.rowLocks, rowLock{slotID: id, inTx: inTx})
	s, ok := m.slots[id]
	if !ok {
		return nil, fmt.Errorf("free slot %d: %w", id, apperr.ErrNotFound)
	}
	cp := *s
	return &cp, nil
}

func (m *memSlots) Update(_ context.Context, s *FreeSlot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.slots[s.ID] = &cp
	return nil
}

func (m *memSlots) SoftDelete(_ context.Context, id int64, actor string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.slots[id]
	if !ok || !s.IsActive {
		return false, nil
	}
	s.IsActive = false
	s.Modified(actor, at)
	return true, nil
}

func (m *memSlots) ListByDoctor(_ context.Context, doctorID int64) ([]*FreeSlot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []*FreeSlot
	for _, s := range m.slots {
		if s.IsActive && s.DoctorID == doctorID {
			cp := *s
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (m *memSlots) StartTimesBetween(_ context.Context, doctorID int64, from, to time.Time) ([]time.Time, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []time.Time
	for _, s := range m.slots {
		if s.IsActive && s.DoctorID == doctorID && !s.StartTime.Before(from) && s.StartTime.Before(to) {
			out = append(out, s.StartTime)
		}
	}
	return out, nil
}

func (m *memSlots) DeactivatePast(ctx context.Context, now time.Time, actor string) (int64, error) {
	m.mu.Lock()
	var candidates []*FreeSlot
	for _, s := range m.slots {
		if s.IsActive && s.StartTime.Before(now) {
			candidates = append(candidates, s)
		}
	}
	m.mu.Unlock()

	var n int64
	for _, s := range candidates {
		if m.appts != nil {
			if held, _ := m.appts.HasLiveOnSlot(ctx, s.ID); held {
				continue
			}
		}
		m.mu.Lock()
		s.IsActive = false
		s.Modified(actor, now)
		m.mu.Unlock()
		n++
	}
	return n, nil
}

type memAppointments struct {
	mu     sync.Mutex
	appts  map[int64]*Appointment
	nextID int64
	err    error
}

func newMemAppointments() *memAppointments {
	return &memAppointments{appts: make(map[int64]*Appointment)}
}

func (m *memAppointments) Create(_ context.Context, a *Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	a.ID = m.nextID
	cp := *a
	m.appts[a.ID] = &cp
	return nil
}

func (m *memAppointments) GetByID(_ context.Context, id int64) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok || !a.IsActive {
		return nil, fmt.Errorf("appointment %d: %w", id, apperr.ErrNotFound)
	}
	cp := *a
	return &cp, nil
}

func (m *memAppointments) Update(_ context.Context, a *Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.appts[a.ID]
	if !ok || !cur.IsActive {
		return fmt.Errorf("appointment %d: %w", a.ID, apperr.ErrNotFound)
	}
	cur.Reason, cur.Notes = a.Reason, a.Notes
	cur.ModifiedDate, cur.ModifiedBy = a.ModifiedDate, a.ModifiedBy
	return nil
}

func (m *memAppointments) SoftDelete(_ context.Context, id int64, actor string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok || !a.IsActive {
		return false, nil
	}
	a.IsActive = false
	a.Modified(actor, at)
	return true, nil
}

func (m *memAppointments) filter(keep func(*Appointment) bool) ([]*Appointment, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*Appointment
	for id := int64(1); id <= m.nextID; id++ {
		if a, ok := m.appts[id]; ok && a.IsActive && keep(a) {
			cp := *a
			out = append(out, &cp)
		}
	}
	return out, len(out), nil
}

func (m *memAppointments) List(_ context.Context, _, _ int) ([]*Appointment, int, error) {
	return m.filter(func(*Appointment) bool { return true })
}

func (m *memAppointments) ListByPatient(_ context.Context, patientID int64, _, _ int) ([]*Appointment, int, error) {
	return m.filter(func(a *Appointment) bool { return a.PatientID == patientID })
}

func (m *memAppointments) ListByDoctor(_ context.Context, doctorID int64, _, _ int) ([]*Appointment, int, error) {
	return m.filter(func(a *Appointment) bool { return a.DoctorID == doctorID })
}

func (m *memAppointments) LiveSlotIDsForPatient(_ context.Context, patientID int64) ([]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []int64
	for _, a := range m.appts {
		if a.IsActive && a.PatientID == patientID && a.FreeSlotID != nil && a.Status.Live() {
			out = append(out, *a.FreeSlotID)
		}
	}
	return out, nil
}

func (m *memAppointments) HasLiveOnSlot(_ context.Context, slotID int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range m.appts {
		if a.IsActive && a.FreeSlotID != nil && *a.FreeSlotID == slotID && a.Status.Live() {
			return true, nil
		}
	}
	return false, nil
}

func (m *memAppointments) UpdateStatus(_ context.Context, id int64, from, to Status, actor string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok || !a.IsActive || a.Status != from {
		return false, nil
	}
	a.Status = to
	a.Modified(actor, at)
	return true, nil
}

func (m *memAppointments) Cancel(_ context.Context, id int64, actor string, at time.Time) (*Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok || !a.IsActive || (a.Status != StatusPending && a.Status != StatusConfirmed) {
		return nil, nil
	}
	a.Status = StatusCancelled
	a.IsActive = false
	a.Modified(actor, at)
	cp := *a
	return &cp, nil
}

func (m *memAppointments) MarkPaid(_ context.Context, id int64, actor string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok || !a.IsActive {
		return false, nil
	}
	a.IsPaid = true
	a.Modified(actor, at)
	return true, nil
}

func (m *memAppointments) MarkFeedbackGiven(_ context.Context, id int64, actor string, at time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.appts[id]
	if !ok || !a.IsActive || a.FeedbackGiven {
		return false, nil
	}
	a.FeedbackGiven = true
	a.Modified(actor, at)
	return true, nil
}

// -- Collaborators --

type stubDirectory struct {
	mu       sync.Mutex
	patients map[int64]bool
	doctors  map[int64]*identity.Doctor
	treated  map[int64]int
	err      error
}

func newStubDirectory() *stubDirectory {
	return &stubDirectory{patients: map[int64]bool{}, doctors: map[int64]*identity.Doctor{}, treated: map[int64]int{}}
}

func (d *stubDirectory) PatientExists(_ context.Context, id int64) (bool, error) {
	if d.err != nil {
		return false, d.err
	}
	return d.patients[id], nil
}

func (d *stubDirectory) DoctorExists(_ context.Context, id int64) (bool, error) {
	_, ok := d.doctors[id]
	return ok, nil
}

func (d *stubDirectory) GetDoctor(_ context.Context, id int64) (*identity.Doctor, error) {
	doc, ok := d.doctors[id]
	if !ok {
		return nil, fmt.Errorf("doctor %d: %w", id, apperr.ErrNotFound)
	}
	return doc, nil
}

func (d *stubDirectory) IncrementPatientsTreated(_ context.Context, id int64) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.treated[id]++
	return nil
}

// serialTx runs one transaction at a time, standing in for the row lock.
type serialTx struct {
	mu      sync.Mutex
	commits int
	aborts  int
}

type inTxKey struct{}

func (t *serialTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := fn(context.WithValue(ctx, inTxKey{}, true)); err != nil {
		t.aborts++
		return err
	}
	t.commits++
	return nil
}

type busyLocker struct{ err error }

// countingLocker records the slots it locked and runs fn.
type countingLocker struct {
	mu    sync.Mutex
	slots []int64
}

func (l *countingLocker) WithSlotLock(ctx context.Context, slotID int64, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	l.slots = append(l.slots, slotID)
	l.mu.Unlock()
	return fn(ctx)
}

func (l busyLocker) WithSlotLock(context.Context, int64, func(ctx context.Context) error) error {
	return l.err
}

type sentNotification struct {
	patientID int64
	template  string
	data      map[string]string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
	err  error
}

func (n *recordingNotifier) Send(_ context.Context, patientID int64, templateID string, data map[string]string, _ string) (*notification.Notification, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return nil, n.err
	}
	n.sent = append(n.sent, sentNotification{patientID: patientID, template: templateID, data: data})
	return &notification.Notification{ID: int64(len(n.sent)), PatientID: patientID}, nil
}
