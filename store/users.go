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

// CreateUser inserts a new user. The caller supplies the hashed password.
func (s *Store) CreateUser(ctx context.Context, u *User) error {
	return insertUser(ctx, s.db, u)
}

func insertUser(ctx context.Context, ex execer, u *User) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	_, err := ex.ExecContext(ctx, `
		INSERT INTO users (id, email, hashed_password, full_name, role, is_active, is_verified, company_id, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, strings.ToLower(u.Email), u.HashedPassword, u.FullName, string(u.Role),
		u.IsActive, u.IsVerified, u.CompanyID, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("email %s already registered: %w", u.Email, ErrConflict)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUser returns the user with the given ID.
func (s *Store) GetUser(ctx context.Context, id string) (*User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, userSelect+" WHERE id = ?", id))
}

// GetUserByEmail returns the user registered under email.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx, userSelect+" WHERE email = ?", strings.ToLower(email)))
}

const userSelect = `
	SELECT id, email, hashed_password, full_name, role, is_active, is_verified, company_id, created_at, updated_at, last_login
	FROM users`

func (s *Store) scanUser(row *sql.Row) (*User, error) {
	var (
		u         User
		fullName  sql.NullString
		lastLogin sql.NullTime
	)
	err := row.Scan(&u.ID, &u.Email, &u.HashedPassword, &fullName, &u.Role,
		&u.IsActive, &u.IsVerified, &u.CompanyID, &u.CreatedAt, &u.UpdatedAt, &lastLogin)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read user: %w", err)
	}
	u.FullName = fullName.String
	u.LastLogin = timePtr(lastLogin)
	return &u, nil
}

// UpdateUser persists mutable profile fields (full name, hashed password,
// role, active flags).
func (s *Store) UpdateUser(ctx context.Context, u *User) error {
	u.UpdatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET full_name = ?, hashed_password = ?, role = ?, is_active = ?, is_verified = ?, updated_at = ?
		WHERE id = ?`,
		u.FullName, u.HashedPassword, string(u.Role), u.IsActive, u.IsVerified, u.UpdatedAt, u.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return requireRow(res)
}

// TouchLastLogin records a successful login.
func (s *Store) TouchLastLogin(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET last_login = ? WHERE id = ?`, time.Now().UTC(), userID)
	if err != nil {
		return fmt.Errorf("failed to record login: %w", err)
	}
	return nil
}

// ListUsersByCompany returns every user in the company, newest first.
func (s *Store) ListUsersByCompany(ctx context.Context, companyID string) ([]*User, error) {
	rows, err := s.db.QueryContext(ctx, userSelect+" WHERE company_id = ? ORDER BY created_at DESC", companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		var (
			u         User
			fullName  sql.NullString
			lastLogin sql.NullTime
		)
		if err := rows.Scan(&u.ID, &u.Email, &u.HashedPassword, &fullName, &u.Role,
			&u.IsActive, &u.IsVerified, &u.CompanyID, &u.CreatedAt, &u.UpdatedAt, &lastLogin); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		u.FullName = fullName.String
		u.LastLogin = timePtr(lastLogin)
		users = append(users, &u)
	}
	return users, rows.Err()
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
