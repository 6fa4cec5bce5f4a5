package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// SaveScopingResponse stores one completed scoping wizard run.
func (s *Store) SaveScopingResponse(ctx context.Context, r *ScopingResponse) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.CreatedAt = time.Now().UTC()
	if r.CompletedAt.IsZero() {
		r.CompletedAt = r.CreatedAt
	}

	answers, err := marshalJSON(r.Answers)
	if err != nil {
		return err
	}
	prefs, err := marshalJSON(r.Preferences)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO scoping_responses (id, company_id, sector, answers_json, preferences_json, tasks_generated, assessment_score, completed_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.CompanyID, string(r.Sector), answers, prefs, r.TasksGenerated,
		r.AssessmentScore, r.CompletedAt, r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save scoping response: %w", err)
	}
	return nil
}

// LatestScopingResponse returns a company's most recent scoping run.
func (s *Store) LatestScopingResponse(ctx context.Context, companyID string) (*ScopingResponse, error) {
	var (
		r       ScopingResponse
		answers sql.NullString
		prefs   sql.NullString
		score   sql.NullFloat64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, company_id, sector, answers_json, preferences_json, tasks_generated, assessment_score, completed_at, created_at
		FROM scoping_responses WHERE company_id = ? ORDER BY completed_at DESC LIMIT 1`, companyID,
	).Scan(&r.ID, &r.CompanyID, &r.Sector, &answers, &prefs, &r.TasksGenerated, &score, &r.CompletedAt, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read scoping response: %w", err)
	}
	r.Answers = unmarshalStringMap(answers)
	r.Preferences = unmarshalStringMap(prefs)
	r.AssessmentScore = score.Float64
	return &r, nil
}

// CreateMeter registers a utility meter for a company.
func (s *Store) CreateMeter(ctx context.Context, m *UtilityMeter) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	m.CreatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO utility_meters (id, company_id, location_name, meter_type, meter_number, provider, unit, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.CompanyID, nullStr(m.LocationName), string(m.MeterType),
		nullStr(m.MeterNumber), nullStr(m.Provider), m.Unit, m.IsActive, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create meter: %w", err)
	}
	return nil
}

// ListMeters returns a company's utility meters in creation order.
func (s *Store) ListMeters(ctx context.Context, companyID string) ([]*UtilityMeter, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, company_id, location_name, meter_type, meter_number, provider, unit, is_active, created_at
		FROM utility_meters WHERE company_id = ? ORDER BY created_at`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list meters: %w", err)
	}
	defer rows.Close()

	var meters []*UtilityMeter
	for rows.Next() {
		var (
			m                      UtilityMeter
			location, number, prov sql.NullString
		)
		if err := rows.Scan(&m.ID, &m.CompanyID, &location, &m.MeterType, &number, &prov,
			&m.Unit, &m.IsActive, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan meter: %w", err)
		}
		m.LocationName = location.String
		m.MeterNumber = number.String
		m.Provider = prov.String
		meters = append(meters, &m)
	}
	return meters, rows.Err()
}

// GetMeter returns a meter scoped to the company.
func (s *Store) GetMeter(ctx context.Context, companyID, id string) (*UtilityMeter, error) {
	var (
		m                      UtilityMeter
		location, number, prov sql.NullString
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, company_id, location_name, meter_type, meter_number, provider, unit, is_active, created_at
		FROM utility_meters WHERE id = ? AND company_id = ?`, id, companyID,
	).Scan(&m.ID, &m.CompanyID, &location, &m.MeterType, &number, &prov, &m.Unit, &m.IsActive, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read meter: %w", err)
	}
	m.LocationName = location.String
	m.MeterNumber = number.String
	m.Provider = prov.String
	return &m, nil
}

// AddConsumptionRecord stores one billing-period reading for a meter.
func (s *Store) AddConsumptionRecord(ctx context.Context, r *ConsumptionRecord) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	r.UploadedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO consumption_records (id, meter_id, reading_date, consumption, unit_cost, total_cost, bill_reference, uploaded_by, uploaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.MeterID, r.ReadingDate.UTC(), r.Consumption, r.UnitCost, r.TotalCost,
		nullStr(r.BillReference), r.UploadedBy, r.UploadedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to add consumption record: %w", err)
	}
	return nil
}

// ListConsumptionRecords returns a meter's readings, newest first.
func (s *Store) ListConsumptionRecords(ctx context.Context, meterID string) ([]*ConsumptionRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, meter_id, reading_date, consumption, unit_cost, total_cost, bill_reference, uploaded_by, uploaded_at
		FROM consumption_records WHERE meter_id = ? ORDER BY reading_date DESC`, meterID)
	if err != nil {
		return nil, fmt.Errorf("failed to list consumption records: %w", err)
	}
	defer rows.Close()

	var records []*ConsumptionRecord
	for rows.Next() {
		var (
			r        ConsumptionRecord
			unitCost sql.NullFloat64
			total    sql.NullFloat64
			billRef  sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.MeterID, &r.ReadingDate, &r.Consumption, &unitCost,
			&total, &billRef, &r.UploadedBy, &r.UploadedAt); err != nil {
			return nil, fmt.Errorf("failed to scan consumption record: %w", err)
		}
		r.UnitCost = unitCost.Float64
		r.TotalCost = total.Float64
		r.BillReference = billRef.String
		records = append(records, &r)
	}
	return records, rows.Err()
}

// UpsertFrameworkRegistration creates or refreshes a company's framework
// registration.
func (s *Store) UpsertFrameworkRegistration(ctx context.Context, r *FrameworkRegistration) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.Status == "" {
		r.Status = "pending"
	}
	now := time.Now().UTC()
	r.CreatedAt = now
	r.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO framework_registrations (id, company_id, framework_name, registration_number, registration_date, status, renewal_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(company_id, framework_name) DO UPDATE SET
			registration_number = excluded.registration_number,
			registration_date = excluded.registration_date,
			status = excluded.status,
			renewal_date = excluded.renewal_date,
			updated_at = excluded.updated_at`,
		r.ID, r.CompanyID, r.FrameworkName, nullStr(r.RegistrationNumber),
		nullTime(r.RegistrationDate), r.Status, nullTime(r.RenewalDate), r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert framework registration: %w", err)
	}
	return nil
}

// ListFrameworkRegistrations returns a company's framework registrations.
func (s *Store) ListFrameworkRegistrations(ctx context.Context, companyID string) ([]*FrameworkRegistration, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, company_id, framework_name, registration_number, registration_date, status, renewal_date, created_at, updated_at
		FROM framework_registrations WHERE company_id = ? ORDER BY framework_name`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list framework registrations: %w", err)
	}
	defer rows.Close()

	var regs []*FrameworkRegistration
	for rows.Next() {
		var (
			r         FrameworkRegistration
			number    sql.NullString
			regDate   sql.NullTime
			renewDate sql.NullTime
		)
		if err := rows.Scan(&r.ID, &r.CompanyID, &r.FrameworkName, &number, &regDate,
			&r.Status, &renewDate, &r.CreatedAt, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan framework registration: %w", err)
		}
		r.RegistrationNumber = number.String
		r.RegistrationDate = timePtr(regDate)
		r.RenewalDate = timePtr(renewDate)
		regs = append(regs, &r)
	}
	return regs, rows.Err()
}
