package notification

import (
	"fmt"
	"strings"
	"sync"
)

// Template ids emitted by the interaction workflow.
const (
	TplAssignmentRequested  = "assignment-requested"
	TplAssignmentApproved   = "assignment-approved"
	TplAssignmentRejected   = "assignment-rejected"
	TplAppointmentRequested = "appointment-requested"
	TplAppointmentConfirmed = "appointment-confirmed"
	TplAppointmentRejected  = "appointment-rejected"
	TplAppointmentCancelled = "appointment-cancelled"
	TplAppointmentReminder  = "appointment-reminder"
)

type Template struct {
	ID    string
	Title string
	Body  string
}

// TemplateEngine renders {{key}} placeholders. Keys absent from the data
// are left as-is.
type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[string]Template
}

func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{templates: make(map[string]Template)}
	for _, t := range builtIn {
		e.templates[t.ID] = t
	}
	return e
}

var builtIn = []Template{
	{
		ID:    TplAssignmentRequested,
		Title: "New assignment request",
		Body:  "{{patient_name}} has asked you to become their doctor.",
	},
	{
		ID:    TplAssignmentApproved,
		Title: "Assignment approved",
		Body:  "Dr. {{doctor_name}} accepted your request and is now your doctor.",
	},
	{
		ID:    TplAssignmentRejected,
		Title: "Assignment rejected",
		Body:  "Dr. {{doctor_name}} declined your assignment request.",
	},
	{
		ID:    TplAppointmentRequested,
		Title: "New appointment request",
		Body:  "{{patient_name}} requested an appointment on {{date}}.",
	},
	{
		ID:    TplAppointmentConfirmed,
		Title: "Appointment confirmed",
		Body:  "Your appointment with Dr. {{doctor_name}} on {{date}} is confirmed.",
	},
	{
		ID:    TplAppointmentRejected,
		Title: "Appointment rejected",
		Body:  "Dr. {{doctor_name}} could not accept your appointment on {{date}}.",
	},
	{
		ID:    TplAppointmentCancelled,
		Title: "Appointment cancelled",
		Body:  "{{patient_name}} cancelled the appointment on {{date}}.",
	},
	{
		ID:    TplAppointmentReminder,
		Title: "Appointment reminder",
		Body:  "Reminder: you have an appointment with Dr. {{doctor_name}} on {{date}}.",
	},
}

func (e *TemplateEngine) Register(t Template) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[t.ID] = t
}

func (e *TemplateEngine) Render(id string, data map[string]string) (title, body string, err error) {
	e.mu.RLock()
	t, ok := e.templates[id]
	e.mu.RUnlock()
	if !ok {
		return "", "", fmt.Errorf("template %q not found", id)
	}

	title, body = t.Title, t.Body
	for k, v := range data {
		placeholder := "{{" + k + "}}"
		title = strings.ReplaceAll(title, placeholder, v)
		body = strings.ReplaceAll(body, placeholder, v)
	}
	return title, body, nil
}
