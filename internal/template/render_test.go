// internal/template/render_test.go
package template

import (
	"testing"

	apperrors "portal-notifier/internal/common/errors"
	"portal-notifier/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Render_TaskOverdue(t *testing.T) {
	r := NewRegistry()

	out, err := r.Render(models.TypeTaskOverdue, map[string]interface{}{
		"task_title":   "Submit report",
		"project_name": "Q3 Planning",
		"days_overdue": 2,
	})

	require.NoError(t, err)
	assert.Equal(t, "Task overdue", out.Subject)
	assert.Equal(t, `Reminder: task "Submit report" in Q3 Planning is 2 day(s) overdue.`, out.Body)
}

// Context data round-trips through jsonb, so counts arrive as float64.
// Whole values must still render without a fractional part.
func TestRegistry_Render_JSONNumbers(t *testing.T) {
	r := NewRegistry()

	out, err := r.Render(models.TypeTaskOverdue, map[string]interface{}{
		"task_title":   "Submit report",
		"project_name": "Q3 Planning",
		"days_overdue": float64(2),
	})

	require.NoError(t, err)
	assert.Contains(t, out.Body, "is 2 day(s) overdue")
	assert.NotContains(t, out.Body, "2.0")
}

// Rendering is pure: the same input yields byte-identical output.
func TestRegistry_Render_Deterministic(t *testing.T) {
	r := NewRegistry()
	data := map[string]interface{}{
		"task_title":   "Submit report",
		"project_name": "Q3 Planning",
		"days_overdue": 2,
	}

	first, err := r.Render(models.TypeTaskOverdue, data)
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		again, err := r.Render(models.TypeTaskOverdue, data)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestRegistry_Render_StripsUnresolvedPlaceholders(t *testing.T) {
	r := NewRegistry()

	// project_name is optional; its placeholder must not leak through.
	out, err := r.Render(models.TypeTaskOverdue, map[string]interface{}{
		"task_title":   "Submit report",
		"days_overdue": 1,
	})

	require.NoError(t, err)
	assert.NotContains(t, out.Body, "{{")
	assert.NotContains(t, out.Body, "}}")
	assert.Contains(t, out.Body, "Submit report")
}

func TestRegistry_Render_UnknownType(t *testing.T) {
	r := NewRegistry()

	_, err := r.Render("password_reset", map[string]interface{}{})

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeTemplateNotFound, apperrors.CodeOf(err))
	assert.False(t, apperrors.IsRetryable(err))
}

func TestRegistry_Render_ContextValidation(t *testing.T) {
	tests := []struct {
		name             string
		notificationType string
		data             map[string]interface{}
	}{
		{
			name:             "missing required field",
			notificationType: models.TypeTaskOverdue,
			data:             map[string]interface{}{"task_title": "Submit report"},
		},
		{
			name:             "wrong field type",
			notificationType: models.TypeTaskOverdue,
			data: map[string]interface{}{
				"task_title":   "Submit report",
				"days_overdue": "two",
			},
		},
		{
			name:             "negative count",
			notificationType: models.TypeTaskOverdue,
			data: map[string]interface{}{
				"task_title":   "Submit report",
				"days_overdue": -1,
			},
		},
		{
			name:             "nil context with required fields",
			notificationType: models.TypeInvoiceDue,
			data:             nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRegistry().Render(tt.notificationType, tt.data)

			require.Error(t, err)
			assert.Equal(t, apperrors.ErrCodeContextInvalid, apperrors.CodeOf(err))
			assert.False(t, apperrors.IsRetryable(err), "invalid context can never succeed on retry")
		})
	}
}

func TestRegistry_Lookup_AllTypesRegistered(t *testing.T) {
	r := NewRegistry()

	for _, typ := range []string{
		models.TypeTaskOverdue,
		models.TypeTaskAssigned,
		models.TypeInvoiceDue,
		models.TypeDailyAgenda,
		models.TypeGoalCheckin,
	} {
		tmpl, ok := r.Lookup(typ)
		assert.True(t, ok, typ)
		assert.NotEmpty(t, tmpl.Body, typ)
		assert.NotEmpty(t, tmpl.Subject, typ)
	}
}
