package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreateCompany inserts a new company tenant.
func (s *Store) CreateCompany(ctx context.Context, c *Company) error {
	return insertCompany(ctx, s.db, c)
}

func insertCompany(ctx context.Context, ex execer, c *Company) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now

	frameworks, err := marshalJSON(c.ActiveFrameworks)
	if err != nil {
		return err
	}
	_, err = ex.ExecContext(ctx, `
		INSERT INTO companies (id, name, main_location, business_sector, description, website, phone,
			active_frameworks_json, scoping_completed, scoping_completed_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.Name, c.MainLocation, string(c.BusinessSector), nullStr(c.Description),
		nullStr(c.Website), nullStr(c.Phone), frameworks, c.ScopingCompleted,
		nullTime(c.ScopingCompletedAt), c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create company: %w", err)
	}
	return nil
}

// CreateCompanyWithAdmin inserts a company and its first admin user in one
// transaction. A rejected user (duplicate email) leaves no orphaned
// company behind.
func (s *Store) CreateCompanyWithAdmin(ctx context.Context, c *Company, u *User) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin registration: %w", err)
	}
	defer tx.Rollback()

	if err := insertCompany(ctx, tx, c); err != nil {
		return err
	}
	u.CompanyID = c.ID
	if err := insertUser(ctx, tx, u); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit registration: %w", err)
	}
	return nil
}

const companySelect = `
	SELECT id, name, main_location, business_sector, description, website, phone,
		active_frameworks_json, scoping_completed, scoping_completed_at, created_at, updated_at
	FROM companies`

// GetCompany returns the company with the given ID.
func (s *Store) GetCompany(ctx context.Context, id string) (*Company, error) {
	var (
		c                  Company
		desc, web, phone   sql.NullString
		frameworks         sql.NullString
		scopingCompletedAt sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, companySelect+" WHERE id = ?", id).Scan(
		&c.ID, &c.Name, &c.MainLocation, &c.BusinessSector, &desc, &web, &phone,
		&frameworks, &c.ScopingCompleted, &scopingCompletedAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read company: %w", err)
	}
	c.Description = desc.String
	c.Website = web.String
	c.Phone = phone.String
	c.ActiveFrameworks = unmarshalStrings(frameworks)
	c.ScopingCompletedAt = timePtr(scopingCompletedAt)
	return &c, nil
}

// UpdateCompany persists mutable company fields.
func (s *Store) UpdateCompany(ctx context.Context, c *Company) error {
	c.UpdatedAt = time.Now().UTC()
	frameworks, err := marshalJSON(c.ActiveFrameworks)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE companies SET name = ?, main_location = ?, business_sector = ?, description = ?,
			website = ?, phone = ?, active_frameworks_json = ?, updated_at = ?
		WHERE id = ?`,
		c.Name, c.MainLocation, string(c.BusinessSector), nullStr(c.Description),
		nullStr(c.Website), nullStr(c.Phone), frameworks, c.UpdatedAt, c.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update company: %w", err)
	}
	return requireRow(res)
}

// MarkScopingComplete records completion of the scoping wizard and the
// sector the wizard settled on.
func (s *Store) MarkScopingComplete(ctx context.Context, companyID string, sector BusinessSector, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE companies SET scoping_completed = 1, scoping_completed_at = ?, business_sector = ?, updated_at = ?
		WHERE id = ?`,
		at.UTC(), string(sector), time.Now().UTC(), companyID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark scoping complete: %w", err)
	}
	return requireRow(res)
}

// CompanyStats summarizes a company's footprint on the platform.
type CompanyStats struct {
	TotalUsers           int     `json:"total_users"`
	TotalLocations       int     `json:"total_locations"`
	TotalTasks           int     `json:"total_tasks"`
	CompletedTasks       int     `json:"completed_tasks"`
	CompletionPercentage float64 `json:"completion_percentage"`
}

// CompanyStats aggregates user/location/task counts for the dashboard.
func (s *Store) CompanyStats(ctx context.Context, companyID string) (*CompanyStats, error) {
	var stats CompanyStats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM users WHERE company_id = ?),
			(SELECT COUNT(*) FROM locations WHERE company_id = ?),
			(SELECT COUNT(*) FROM tasks WHERE company_id = ?),
			(SELECT COUNT(*) FROM tasks WHERE company_id = ? AND status = ?)`,
		companyID, companyID, companyID, companyID, string(StatusCompleted),
	).Scan(&stats.TotalUsers, &stats.TotalLocations, &stats.TotalTasks, &stats.CompletedTasks)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate company stats: %w", err)
	}
	if stats.TotalTasks > 0 {
		stats.CompletionPercentage = float64(stats.CompletedTasks) / float64(stats.TotalTasks) * 100
	}
	return &stats, nil
}

// CreateLocation inserts a site for a company.
func (s *Store) CreateLocation(ctx context.Context, l *Location) error {
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.LocationType == "" {
		l.LocationType = LocationPrimary
	}
	now := time.Now().UTC()
	l.CreatedAt = now
	l.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO locations (id, company_id, name, location_type, parent_location_id, address, description, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.CompanyID, l.Name, string(l.LocationType), nullStr(l.ParentLocationID),
		nullStr(l.Address), nullStr(l.Description), l.CreatedAt, l.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create location: %w", err)
	}
	return nil
}

const locationSelect = `
	SELECT id, company_id, name, location_type, parent_location_id, address, description, created_at, updated_at
	FROM locations`

func scanLocation(scan func(dest ...any) error) (*Location, error) {
	var (
		l                  Location
		parent, addr, desc sql.NullString
	)
	if err := scan(&l.ID, &l.CompanyID, &l.Name, &l.LocationType, &parent, &addr, &desc, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return nil, err
	}
	l.ParentLocationID = parent.String
	l.Address = addr.String
	l.Description = desc.String
	return &l, nil
}

// GetLocation returns a location scoped to the company.
func (s *Store) GetLocation(ctx context.Context, companyID, id string) (*Location, error) {
	row := s.db.QueryRowContext(ctx, locationSelect+" WHERE id = ? AND company_id = ?", id, companyID)
	l, err := scanLocation(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read location: %w", err)
	}
	return l, nil
}

// ListLocations returns all company sites in creation order.
func (s *Store) ListLocations(ctx context.Context, companyID string) ([]*Location, error) {
	rows, err := s.db.QueryContext(ctx, locationSelect+" WHERE company_id = ? ORDER BY created_at", companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list locations: %w", err)
	}
	defer rows.Close()

	var locations []*Location
	for rows.Next() {
		l, err := scanLocation(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan location: %w", err)
		}
		locations = append(locations, l)
	}
	return locations, rows.Err()
}

// UpdateLocation persists mutable site fields, scoped to the company.
func (s *Store) UpdateLocation(ctx context.Context, l *Location) error {
	l.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE locations SET name = ?, location_type = ?, address = ?, description = ?, updated_at = ?
		WHERE id = ? AND company_id = ?`,
		l.Name, string(l.LocationType), nullStr(l.Address), nullStr(l.Description), l.UpdatedAt, l.ID, l.CompanyID,
	)
	if err != nil {
		return fmt.Errorf("failed to update location: %w", err)
	}
	return requireRow(res)
}

// DeleteLocation removes a site. Sites with tasks attached cannot be
// removed.
func (s *Store) DeleteLocation(ctx context.Context, companyID, id string) error {
	var taskCount int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM tasks WHERE location_id = ? AND company_id = ?`, id, companyID,
	).Scan(&taskCount)
	if err != nil {
		return fmt.Errorf("failed to check location tasks: %w", err)
	}
	if taskCount > 0 {
		return fmt.Errorf("location has %d tasks attached: %w", taskCount, ErrConflict)
	}

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM locations WHERE id = ? AND company_id = ?`, id, companyID)
	if err != nil {
		return fmt.Errorf("failed to delete location: %w", err)
	}
	return requireRow(res)
}
