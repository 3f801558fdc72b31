package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/medicore/hms/internal/platform/apperr"
)

type mockRepo struct {
	items  map[int64]*Notification
	nextID int64
	err    error
}

func newMockRepo() *mockRepo {
	return &mockRepo{items: make(map[int64]*Notification)}
}

func (m *mockRepo) Create(_ context.Context, n *Notification) error {
	if m.err != nil {
		return m.err
	}
	m.nextID++
	n.ID = m.nextID
	cp := *n
	m.items[n.ID] = &cp
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id int64) (*Notification, error) {
	n, ok := m.items[id]
	if !ok || !n.IsActive {
		return nil, fmt.Errorf("notification %d: %w", id, apperr.ErrNotFound)
	}
	cp := *n
	return &cp, nil
}

func (m *mockRepo) ListByPatient(_ context.Context, patientID int64, unreadOnly bool, _, _ int) ([]*Notification, int, error) {
	var out []*Notification
	for id := int64(1); id <= m.nextID; id++ {
		n, ok := m.items[id]
		if !ok || !n.IsActive || n.PatientID != patientID || (unreadOnly && n.IsRead) {
			continue
		}
		out = append(out, n)
	}
	return out, len(out), nil
}

func (m *mockRepo) MarkRead(_ context.Context, id int64, actor string, at time.Time) (bool, error) {
	n, ok := m.items[id]
	if !ok || !n.IsActive {
		return false, nil
	}
	n.IsRead = true
	n.Modified(actor, at)
	return true, nil
}

func (m *mockRepo) SoftDelete(_ context.Context, id int64, actor string, at time.Time) (bool, error) {
	n, ok := m.items[id]
	if !ok || !n.IsActive {
		return false, nil
	}
	n.IsActive = false
	n.Modified(actor, at)
	return true, nil
}

func newTestService() (*Service, *mockRepo) {
	repo := newMockRepo()
	svc := NewService(repo)
	svc.now = func() time.Time { return time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC) }
	return svc, repo
}

func TestNotify(t *testing.T) {
	svc, _ := newTestService()
	n, err := svc.Notify(context.Background(), 7, "Hello", "World", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.ID == 0 || !n.IsActive || n.IsRead {
		t.Errorf("unexpected notification: %+v", n)
	}
	if n.CreatedBy != "system" {
		t.Errorf("expected blank actor to become system, got %q", n.CreatedBy)
	}
}

func TestNotify_Validation(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	if _, err := svc.Notify(ctx, 0, "t", "m", "x"); !apperr.IsValidation(err) {
		t.Errorf("expected validation error for patient 0, got %v", err)
	}
	if _, err := svc.Notify(ctx, 1, " ", "m", "x"); !apperr.IsValidation(err) {
		t.Errorf("expected validation error for blank title, got %v", err)
	}
	if _, err := svc.Notify(ctx, 1, "t", "", "x"); !apperr.IsValidation(err) {
		t.Errorf("expected validation error for blank message, got %v", err)
	}
}

func TestSend_RendersTemplate(t *testing.T) {
	svc, _ := newTestService()
	n, err := svc.Send(context.Background(), 3, TemplateAppointmentCancelled, map[string]string{
		"doctor": "Dr. Meera Iyer",
		"date":   "2026-02-03 10:00",
	}, "scheduler")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Title != "Appointment cancelled" {
		t.Errorf("title = %q", n.Title)
	}
	if !strings.Contains(n.Message, "Dr. Meera Iyer on 2026-02-03 10:00") {
		t.Errorf("message not rendered: %q", n.Message)
	}
}

func TestSend_UnknownTemplate(t *testing.T) {
	svc, repo := newTestService()
	if _, err := svc.Send(context.Background(), 3, "nope", nil, "x"); err == nil {
		t.Fatal("expected error for unknown template")
	}
	if len(repo.items) != 0 {
		t.Error("nothing should be stored for an unknown template")
	}
}

func TestListForPatient_UnreadFilter(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	a, _ := svc.Notify(ctx, 1, "a", "a", "x")
	svc.Notify(ctx, 1, "b", "b", "x")
	svc.Notify(ctx, 2, "c", "c", "x")

	if err := svc.MarkRead(ctx, a.ID, "x"); err != nil {
		t.Fatalf("mark read: %v", err)
	}

	all, total, _ := svc.ListForPatient(ctx, 1, false, 20, 0)
	if total != 2 || len(all) != 2 {
		t.Errorf("expected 2 notifications, got %d", total)
	}
	unread, total, _ := svc.ListForPatient(ctx, 1, true, 20, 0)
	if total != 1 || unread[0].Title != "b" {
		t.Errorf("expected only b unread, got %d", total)
	}
}

func TestMarkReadAndDelete_NotFound(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	if err := svc.MarkRead(ctx, 9, "x"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := svc.Delete(ctx, 9, "x"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestTemplateEngine_RegisterOverrides(t *testing.T) {
	eng := NewTemplateEngine()
	eng.RegisterTemplate(Template{ID: TemplateBillIssued, Title: "Invoice", Message: "Pay {{amount}}"})

	title, msg, err := eng.Render(TemplateBillIssued, map[string]string{"amount": "12.50"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if title != "Invoice" || msg != "Pay 12.50" {
		t.Errorf("got %q / %q", title, msg)
	}
}

func TestTemplateEngine_MissingKeysLeftAsIs(t *testing.T) {
	eng := NewTemplateEngine()
	_, msg, _ := eng.Render(TemplateAppointmentRequested, map[string]string{"doctor": "Dr. X"})
	if !strings.Contains(msg, "{{date}}") {
		t.Errorf("expected unreplaced placeholder, got %q", msg)
	}
}
