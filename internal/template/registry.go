// internal/template/registry.go
package template

import (
	"portal-notifier/internal/models"
)

// Template is a fixed per-type message template. Placeholders use the
// {{name}} form and resolve against the notification's context data.
type Template struct {
	Subject string
	Body    string
	// Schema validates context data before rendering. Context data is
	// immutable, so a payload failing validation is a terminal error.
	Schema map[string]interface{}
}

// Registry maps notification types to templates. The set is fixed at build
// time; unknown types are a terminal per-item error.
type Registry struct {
	templates map[string]Template
}

func NewRegistry() *Registry {
	return &Registry{templates: builtinTemplates()}
}

// Lookup returns the template for a notification type.
func (r *Registry) Lookup(notificationType string) (Template, bool) {
	t, ok := r.templates[notificationType]
	return t, ok
}

func builtinTemplates() map[string]Template {
	return map[string]Template{
		models.TypeTaskOverdue: {
			Subject: "Task overdue",
			Body:    "Reminder: task \"{{task_title}}\" in {{project_name}} is {{days_overdue}} day(s) overdue.",
			Schema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"task_id":      map[string]interface{}{"type": "string"},
					"task_title":   map[string]interface{}{"type": "string"},
					"project_name": map[string]interface{}{"type": "string"},
					"days_overdue": map[string]interface{}{"type": "integer", "minimum": 0},
				},
				"required": []interface{}{"task_title", "days_overdue"},
			},
		},
		models.TypeTaskAssigned: {
			Subject: "New task assigned",
			Body:    "You were assigned \"{{task_title}}\" in {{project_name}}, due {{due_date}}.",
			Schema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"task_title":   map[string]interface{}{"type": "string"},
					"project_name": map[string]interface{}{"type": "string"},
					"due_date":     map[string]interface{}{"type": "string"},
				},
				"required": []interface{}{"task_title"},
			},
		},
		models.TypeInvoiceDue: {
			Subject: "Invoice due soon",
			Body:    "Invoice {{invoice_number}} for {{client_name}} is due on {{due_date}} ({{amount}}).",
			Schema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"invoice_number": map[string]interface{}{"type": "string"},
					"client_name":    map[string]interface{}{"type": "string"},
					"due_date":       map[string]interface{}{"type": "string"},
					"amount":         map[string]interface{}{"type": "string"},
				},
				"required": []interface{}{"invoice_number", "due_date"},
			},
		},
		models.TypeDailyAgenda: {
			Subject: "Your agenda for today",
			Body:    "Good morning {{recipient_name}}! You have {{task_count}} task(s) and {{event_count}} event(s) today.",
			Schema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"recipient_name": map[string]interface{}{"type": "string"},
					"task_count":     map[string]interface{}{"type": "integer"},
					"event_count":    map[string]interface{}{"type": "integer"},
				},
				"required": []interface{}{"task_count"},
			},
		},
		models.TypeGoalCheckin: {
			Subject: "Goal check-in",
			Body:    "Weekly check-in: \"{{goal_title}}\" is at {{progress}}% with {{days_left}} day(s) left.",
			Schema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"goal_title": map[string]interface{}{"type": "string"},
					"progress":   map[string]interface{}{"type": "integer"},
					"days_left":  map[string]interface{}{"type": "integer"},
				},
				"required": []interface{}{"goal_title"},
			},
		},
	}
}
