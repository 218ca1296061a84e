// internal/store/tasks.go
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// OverdueTask is the slice of the portal's tasks table the reminder scan
// needs to build a task_overdue notification.
type OverdueTask struct {
	ID          string
	Title       string
	ProjectName string
	AssigneeID  string
	DueDate     time.Time
}

// TaskStore reads the portal's tasks table. The dispatcher never writes to it.
type TaskStore struct {
	db *sql.DB
}

func NewTaskStore(db *sql.DB) *TaskStore {
	return &TaskStore{db: db}
}

// ListOverdue returns open tasks past their due date that do not already have
// a task_overdue notification created today, capped at limit. The NOT EXISTS
// guard keeps the scan idempotent across repeated ticks within a day.
func (s *TaskStore) ListOverdue(ctx context.Context, now time.Time, limit int) ([]OverdueTask, error) {
	query := `
		SELECT t.id, t.title, COALESCE(p.name, ''), t.assignee_id, t.due_date
		FROM tasks t
		LEFT JOIN projects p ON p.id = t.project_id
		WHERE t.status NOT IN ('done', 'cancelled')
		  AND t.due_date < $1
		  AND t.assignee_id IS NOT NULL
		  AND NOT EXISTS (
			SELECT 1 FROM pending_notifications n
			WHERE n.notification_type = 'task_overdue'
			  AND n.context_data->>'task_id' = t.id::text
			  AND n.created_at >= $2
		  )
		ORDER BY t.due_date ASC
		LIMIT $3`

	since := now.Truncate(24 * time.Hour)
	rows, err := s.db.QueryContext(ctx, query, now, since, limit)
	if err != nil {
		return nil, fmt.Errorf("list overdue tasks: %w", err)
	}
	defer rows.Close()

	var out []OverdueTask
	for rows.Next() {
		var t OverdueTask
		if err := rows.Scan(&t.ID, &t.Title, &t.ProjectName, &t.AssigneeID, &t.DueDate); err != nil {
			return nil, fmt.Errorf("scan overdue task: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}
