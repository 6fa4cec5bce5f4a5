package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// TaskFilter narrows ListTasks results. Zero values are ignored.
type TaskFilter struct {
	Status         TaskStatus
	Category       TaskCategory
	AssignedUserID string
	LocationID     string
	FrameworkTag   string
	DueBefore      *time.Time
	DueAfter       *time.Time
	Offset         int
	Limit          int
}

// TaskPage is one page of tasks plus list-level aggregates.
type TaskPage struct {
	Tasks        []*Task        `json:"tasks"`
	TotalCount   int            `json:"total_count"`
	StatusCounts map[string]int `json:"status_counts"`
}

// CreateTasks inserts a batch of generated tasks in one transaction.
func (s *Store) CreateTasks(ctx context.Context, tasks []*Task) error {
	if len(tasks) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin task insert: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO tasks (id, company_id, location_id, title, description, compliance_context, action_required,
			status, category, priority, assigned_user_id, framework_tags_json, required_evidence,
			due_date, completed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare task insert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for _, t := range tasks {
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		if t.Status == "" {
			t.Status = StatusTodo
		}
		if t.Priority == "" {
			t.Priority = PriorityMedium
		}
		if t.RequiredEvidence == 0 {
			t.RequiredEvidence = 1
		}
		t.CreatedAt = now
		t.UpdatedAt = now

		tags, err := marshalJSON(t.FrameworkTags)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx,
			t.ID, t.CompanyID, nullStr(t.LocationID), t.Title, t.Description,
			t.ComplianceContext, t.ActionRequired, string(t.Status), string(t.Category),
			string(t.Priority), nullStr(t.AssignedUserID), tags, t.RequiredEvidence,
			nullTime(t.DueDate), nullTime(t.CompletedAt), t.CreatedAt, t.UpdatedAt,
		); err != nil {
			return fmt.Errorf("failed to insert task %q: %w", t.Title, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit task insert: %w", err)
	}
	return nil
}

const taskSelect = `
	SELECT id, company_id, location_id, title, description, compliance_context, action_required,
		status, category, priority, assigned_user_id, framework_tags_json, required_evidence,
		due_date, completed_at, created_at, updated_at
	FROM tasks`

func scanTask(scan func(dest ...any) error) (*Task, error) {
	var (
		t                  Task
		location, assignee sql.NullString
		context, action    sql.NullString
		tags               sql.NullString
		due, completed     sql.NullTime
	)
	if err := scan(&t.ID, &t.CompanyID, &location, &t.Title, &t.Description, &context, &action,
		&t.Status, &t.Category, &t.Priority, &assignee, &tags, &t.RequiredEvidence,
		&due, &completed, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.LocationID = location.String
	t.ComplianceContext = context.String
	t.ActionRequired = action.String
	t.AssignedUserID = assignee.String
	t.FrameworkTags = unmarshalStrings(tags)
	t.DueDate = timePtr(due)
	t.CompletedAt = timePtr(completed)
	return &t, nil
}

// GetTask returns a task scoped to the company.
func (s *Store) GetTask(ctx context.Context, companyID, id string) (*Task, error) {
	row := s.db.QueryRowContext(ctx, taskSelect+" WHERE id = ? AND company_id = ?", id, companyID)
	t, err := scanTask(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read task: %w", err)
	}
	return t, nil
}

func (f TaskFilter) whereClause(companyID string) (string, []any) {
	conds := []string{"company_id = ?"}
	args := []any{companyID}

	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.Category != "" {
		conds = append(conds, "category = ?")
		args = append(args, string(f.Category))
	}
	if f.AssignedUserID != "" {
		conds = append(conds, "assigned_user_id = ?")
		args = append(args, f.AssignedUserID)
	}
	if f.LocationID != "" {
		conds = append(conds, "location_id = ?")
		args = append(args, f.LocationID)
	}
	if f.FrameworkTag != "" {
		// Tags are stored as a JSON array of strings.
		conds = append(conds, "framework_tags_json LIKE ?")
		args = append(args, `%"`+f.FrameworkTag+`"%`)
	}
	if f.DueBefore != nil {
		conds = append(conds, "due_date <= ?")
		args = append(args, f.DueBefore.UTC())
	}
	if f.DueAfter != nil {
		conds = append(conds, "due_date >= ?")
		args = append(args, f.DueAfter.UTC())
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// ListTasks returns a filtered, paginated page of company tasks, newest
// first, with a total count and per-status counts over the same filter.
func (s *Store) ListTasks(ctx context.Context, companyID string, filter TaskFilter) (*TaskPage, error) {
	where, args := filter.whereClause(companyID)

	limit := filter.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.QueryContext(ctx,
		taskSelect+where+" ORDER BY created_at DESC LIMIT ? OFFSET ?",
		append(append([]any{}, args...), limit, offset)...)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	page := &TaskPage{StatusCounts: make(map[string]int)}
	for rows.Next() {
		t, err := scanTask(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		page.Tasks = append(page.Tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM tasks"+where, args...).Scan(&page.TotalCount); err != nil {
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}

	countRows, err := s.db.QueryContext(ctx,
		"SELECT status, COUNT(*) FROM tasks"+where+" GROUP BY status", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count task statuses: %w", err)
	}
	defer countRows.Close()
	for _, st := range TaskStatuses() {
		page.StatusCounts[string(st)] = 0
	}
	for countRows.Next() {
		var status string
		var n int
		if err := countRows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("failed to scan status count: %w", err)
		}
		page.StatusCounts[status] = n
	}
	return page, countRows.Err()
}

// ListAllTasks returns every task for a company without pagination, used
// by scoring and reporting.
func (s *Store) ListAllTasks(ctx context.Context, companyID string) ([]*Task, error) {
	rows, err := s.db.QueryContext(ctx, taskSelect+" WHERE company_id = ? ORDER BY created_at", companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		t, err := scanTask(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// UpdateTask persists task management fields. Moving into completed stamps
// completed_at; moving out clears it.
func (s *Store) UpdateTask(ctx context.Context, t *Task) error {
	t.UpdatedAt = time.Now().UTC()
	if t.Status == StatusCompleted {
		if t.CompletedAt == nil {
			now := time.Now().UTC()
			t.CompletedAt = &now
		}
	} else {
		t.CompletedAt = nil
	}

	tags, err := marshalJSON(t.FrameworkTags)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET title = ?, description = ?, compliance_context = ?, action_required = ?,
			status = ?, category = ?, priority = ?, assigned_user_id = ?, framework_tags_json = ?,
			required_evidence = ?, due_date = ?, completed_at = ?, updated_at = ?
		WHERE id = ? AND company_id = ?`,
		t.Title, t.Description, t.ComplianceContext, t.ActionRequired,
		string(t.Status), string(t.Category), string(t.Priority), nullStr(t.AssignedUserID), tags,
		t.RequiredEvidence, nullTime(t.DueDate), nullTime(t.CompletedAt), t.UpdatedAt,
		t.ID, t.CompanyID,
	)
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	return requireRow(res)
}

// AssignTask sets or clears the task assignee.
func (s *Store) AssignTask(ctx context.Context, companyID, taskID, userID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE tasks SET assigned_user_id = ?, updated_at = ? WHERE id = ? AND company_id = ?`,
		nullStr(userID), time.Now().UTC(), taskID, companyID,
	)
	if err != nil {
		return fmt.Errorf("failed to assign task: %w", err)
	}
	return requireRow(res)
}

// DeleteTasksByStatus removes tasks in the given status, returning the
// number removed. Used when a sector change regenerates untouched tasks.
func (s *Store) DeleteTasksByStatus(ctx context.Context, companyID string, status TaskStatus) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM tasks WHERE company_id = ? AND status = ?`, companyID, string(status))
	if err != nil {
		return 0, fmt.Errorf("failed to delete tasks: %w", err)
	}
	return res.RowsAffected()
}

// TaskStats aggregates company task counts for the overview endpoint.
type TaskStats struct {
	Total      int            `json:"total"`
	ByStatus   map[string]int `json:"by_status"`
	ByCategory map[string]int `json:"by_category"`
	ByPriority map[string]int `json:"by_priority"`
	Overdue    int            `json:"overdue"`
}

// TaskStats computes aggregate counts across all company tasks.
func (s *Store) TaskStats(ctx context.Context, companyID string) (*TaskStats, error) {
	stats := &TaskStats{
		ByStatus:   make(map[string]int),
		ByCategory: make(map[string]int),
		ByPriority: make(map[string]int),
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT status, category, priority, due_date FROM tasks WHERE company_id = ?`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to read task stats: %w", err)
	}
	defer rows.Close()

	now := time.Now().UTC()
	for rows.Next() {
		var status, category, priority string
		var due sql.NullTime
		if err := rows.Scan(&status, &category, &priority, &due); err != nil {
			return nil, fmt.Errorf("failed to scan task stats: %w", err)
		}
		stats.Total++
		stats.ByStatus[status]++
		stats.ByCategory[category]++
		stats.ByPriority[priority]++
		if due.Valid && due.Time.Before(now) && status != string(StatusCompleted) {
			stats.Overdue++
		}
	}
	return stats, rows.Err()
}
