package notification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/medicore/hms/internal/platform/apperr"
	"github.com/medicore/hms/pkg/audit"
)

type Service struct {
	repo      Repository
	templates *TemplateEngine
	now       func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, templates: NewTemplateEngine(), now: time.Now}
}

func (s *Service) Templates() *TemplateEngine { return s.templates }

// Notify stores a notification for a patient.
func (s *Service) Notify(ctx context.Context, patientID int64, title, message, actor string) (*Notification, error) {
	if err := apperr.RequirePositive("patient_id", patientID); err != nil {
		return nil, err
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, apperr.Invalid("title", "is required")
	}
	if strings.TrimSpace(message) == "" {
		return nil, apperr.Invalid("message", "is required")
	}

	n := &Notification{PatientID: patientID, Title: title, Message: message, IsActive: true}
	n.Created(audit.Actor(actor), s.now())
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, fmt.Errorf("create notification: %w", err)
	}
	return n, nil
}

// Send renders a template and stores the result.
func (s *Service) Send(ctx context.Context, patientID int64, templateID string, data map[string]string, actor string) (*Notification, error) {
	title, message, err := s.templates.Render(templateID, data)
	if err != nil {
		return nil, err
	}
	return s.Notify(ctx, patientID, title, message, actor)
}

func (s *Service) Get(ctx context.Context, id int64) (*Notification, error) {
	if err := apperr.RequirePositive("id", id); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

func (s *Service) ListForPatient(ctx context.Context, patientID int64, unreadOnly bool, limit, offset int) ([]*Notification, int, error) {
	if err := apperr.RequirePositive("patient_id", patientID); err != nil {
		return nil, 0, err
	}
	return s.repo.ListByPatient(ctx, patientID, unreadOnly, limit, offset)
}

func (s *Service) MarkRead(ctx context.Context, id int64, actor string) error {
	ok, err := s.repo.MarkRead(ctx, id, audit.Actor(actor), s.now().UTC())
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("notification %d: %w", id, apperr.ErrNotFound)
	}
	return nil
}

func (s *Service) Delete(ctx context.Context, id int64, actor string) error {
	ok, err := s.repo.SoftDelete(ctx, id, audit.Actor(actor), s.now().UTC())
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("notification %d: %w", id, apperr.ErrNotFound)
	}
	return nil
}
