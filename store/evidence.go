package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateEvidence records an uploaded evidence file.
func (s *Store) CreateEvidence(ctx context.Context, e *Evidence) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	e.UploadedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO evidence (id, task_id, file_path, original_filename, file_hash, file_size, mime_type, description, uploaded_by, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.TaskID, e.FilePath, e.OriginalFilename, e.FileHash, e.FileSize,
		e.MimeType, nullStr(e.Description), e.UploadedBy, e.UploadedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create evidence: %w", err)
	}
	return nil
}

const evidenceSelect = `
	SELECT e.id, e.task_id, e.file_path, e.original_filename, e.file_hash, e.file_size, e.mime_type,
		e.description, e.uploaded_by, e.uploaded_at
	FROM evidence e`

func scanEvidence(scan func(dest ...any) error) (*Evidence, error) {
	var (
		e    Evidence
		desc sql.NullString
	)
	if err := scan(&e.ID, &e.TaskID, &e.FilePath, &e.OriginalFilename, &e.FileHash,
		&e.FileSize, &e.MimeType, &desc, &e.UploadedBy, &e.UploadedAt); err != nil {
		return nil, err
	}
	e.Description = desc.String
	return &e, nil
}

// GetEvidence returns an evidence row, scoped to the owning company via
// its task.
func (s *Store) GetEvidence(ctx context.Context, companyID, id string) (*Evidence, error) {
	row := s.db.QueryRowContext(ctx, evidenceSelect+`
		JOIN tasks t ON t.id = e.task_id
		WHERE e.id = ? AND t.company_id = ?`, id, companyID)
	e, err := scanEvidence(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read evidence: %w", err)
	}
	return e, nil
}

// ListEvidenceByTask returns evidence rows for a task, newest first.
func (s *Store) ListEvidenceByTask(ctx context.Context, taskID string) ([]*Evidence, error) {
	rows, err := s.db.QueryContext(ctx, evidenceSelect+" WHERE e.task_id = ? ORDER BY e.uploaded_at DESC", taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list evidence: %w", err)
	}
	defer rows.Close()

	var out []*Evidence
	for rows.Next() {
		e, err := scanEvidence(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan evidence: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CountEvidenceByTask returns per-task evidence counts for a company.
func (s *Store) CountEvidenceByTask(ctx context.Context, companyID string) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.task_id, COUNT(*) FROM evidence e
		JOIN tasks t ON t.id = e.task_id
		WHERE t.company_id = ?
		GROUP BY e.task_id`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to count evidence: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var taskID string
		var n int
		if err := rows.Scan(&taskID, &n); err != nil {
			return nil, fmt.Errorf("failed to scan evidence count: %w", err)
		}
		counts[taskID] = n
	}
	return counts, rows.Err()
}

// DeleteEvidence removes an evidence row, scoped to the owning company.
// The caller is responsible for removing the file from disk.
func (s *Store) DeleteEvidence(ctx context.Context, companyID, id string) error {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM evidence WHERE id = ? AND task_id IN (SELECT id FROM tasks WHERE company_id = ?)`,
		id, companyID)
	if err != nil {
		return fmt.Errorf("failed to delete evidence: %w", err)
	}
	return requireRow(res)
}
