package notification

import (
	"fmt"
	"strings"
	"sync"
)

const (
	TemplateAppointmentRequested = "appointment-requested"
	TemplateAppointmentCancelled = "appointment-cancelled"
	TemplateAppointmentConfirmed = "appointment-confirmed"
	TemplateBillIssued           = "bill-issued"
)

// Template is a title/message pair with {{key}} placeholders.
type Template struct {
	ID      string
	Title   string
	Message string
}

type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// NewTemplateEngine creates a TemplateEngine with the built-in templates pre-registered.
func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{templates: make(map[string]*Template)}
	builtIn := []Template{
		{
			ID:      TemplateAppointmentRequested,
			Title:   "Appointment requested",
			Message: "Your appointment with {{doctor}} on {{date}} has been requested and is awaiting confirmation.",
		},
		{
			ID:      TemplateAppointmentConfirmed,
			Title:   "Appointment confirmed",
			Message: "Your appointment with {{doctor}} on {{date}} is confirmed.",
		},
		{
			ID:      TemplateAppointmentCancelled,
			Title:   "Appointment cancelled",
			Message: "Your appointment with {{doctor}} on {{date}} has been cancelled.",
		},
		{
			ID:      TemplateBillIssued,
			Title:   "New bill",
			Message: "A bill of {{amount}} has been issued: {{description}}.",
		},
	}
	for i := range builtIn {
		t := builtIn[i]
		e.templates[t.ID] = &t
	}
	return e
}

// RegisterTemplate adds or replaces a template in the engine.
func (e *TemplateEngine) RegisterTemplate(t Template) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[t.ID] = &t
}

// Render performs {{key}} replacement. Keys absent from data are left as-is.
func (e *TemplateEngine) Render(templateID string, data map[string]string) (title, message string, err error) {
	e.mu.RLock()
	t, ok := e.templates[templateID]
	e.mu.RUnlock()
	if !ok {
		return "", "", fmt.Errorf("template %q not found", templateID)
	}

	title, message = t.Title, t.Message
	for k, v := range data {
		placeholder := "{{" + k + "}}"
		title = strings.ReplaceAll(title, placeholder, v)
		message = strings.ReplaceAll(message, placeholder, v)
	}
	return title, message, nil
}
