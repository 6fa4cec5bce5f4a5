// Package api defines the JSON wire types for the greenscope HTTP API.
package api

import (
	"time"

	"github.com/greenscope/greenscope/report"
	"github.com/greenscope/greenscope/scoring"
	"github.com/greenscope/greenscope/store"
)

// Error is the JSON envelope returned on every failed request.
type Error struct {
	// Error code
	Code int32 `json:"code"`

	// Error message
	Message string `json:"message"`
}

// RegisterRequest creates the first user of a new company.
type RegisterRequest struct {
	Email          string `json:"email" binding:"required,email"`
	Password       string `json:"password" binding:"required"`
	FirstName      string `json:"first_name" binding:"required"`
	LastName       string `json:"last_name" binding:"required"`
	CompanyName    string `json:"company_name" binding:"required"`
	MainLocation   string `json:"main_location" binding:"required"`
	BusinessSector string `json:"business_sector,omitempty"`
	CompanyWebsite string `json:"company_website,omitempty"`
	CompanyPhone   string `json:"company_phone,omitempty"`
}

// LoginRequest exchanges credentials for a token pair.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest exchanges a refresh token for a new token pair.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// TokenPair is the credential response for register, login and refresh.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// AuthResponse bundles tokens with the authenticated user.
type AuthResponse struct {
	TokenPair
	User *store.User `json:"user"`
}

// UpdateProfileRequest patches the caller's own profile. A password
// change requires the current password alongside the new one.
type UpdateProfileRequest struct {
	FullName        *string `json:"full_name,omitempty"`
	CurrentPassword string  `json:"current_password,omitempty"`
	NewPassword     *string `json:"new_password,omitempty"`
}

// InviteRequest adds a user to the caller's company.
type InviteRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Role      string `json:"role" binding:"required"`
}

// UpdateCompanyRequest patches company profile fields. Nil fields are
// left unchanged.
type UpdateCompanyRequest struct {
	Name           *string  `json:"name,omitempty"`
	MainLocation   *string  `json:"main_location,omitempty"`
	BusinessSector *string  `json:"business_sector,omitempty"`
	Description    *string  `json:"description,omitempty"`
	Website        *string  `json:"website,omitempty"`
	Phone          *string  `json:"phone,omitempty"`
	Frameworks     []string `json:"active_frameworks,omitempty"`
}

// LocationRequest creates or updates a company site.
type LocationRequest struct {
	Name             string `json:"name" binding:"required"`
	LocationType     string `json:"location_type,omitempty"`
	ParentLocationID string `json:"parent_location_id,omitempty"`
	Address          string `json:"address,omitempty"`
	Description      string `json:"description,omitempty"`
}

// UpdateTaskRequest patches task fields. Nil fields are left unchanged.
type UpdateTaskRequest struct {
	Status      *string    `json:"status,omitempty"`
	Priority    *string    `json:"priority,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	LocationID  *string    `json:"location_id,omitempty"`
	Description *string    `json:"description,omitempty"`
}

// AssignTaskRequest sets or clears a task's assignee.
type AssignTaskRequest struct {
	UserID string `json:"user_id"`
}

// TaskListResponse pages through a company's tasks.
type TaskListResponse struct {
	Tasks        []*store.Task  `json:"tasks"`
	TotalCount   int            `json:"total_count"`
	StatusCounts map[string]int `json:"status_counts"`
	Offset       int            `json:"offset"`
	Limit        int            `json:"limit"`
}

// ScopingRequest submits the completed scoping wizard.
type ScopingRequest struct {
	Sector      string            `json:"sector" binding:"required"`
	Answers     map[string]string `json:"answers" binding:"required"`
	Preferences map[string]string `json:"preferences,omitempty"`
}

// ScopingResult reports the outcome of completing the wizard.
type ScopingResult struct {
	TasksGenerated  int            `json:"tasks_generated"`
	AssessmentScore float64        `json:"assessment_score"`
	Scores          scoring.Scores `json:"esg_scores"`
	PriorityTasks   []*store.Task  `json:"priority_tasks"`
}

// ScopingStatus reports whether the wizard has been completed.
type ScopingStatus struct {
	Completed   bool       `json:"completed"`
	Sector      string     `json:"sector,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	TaskCount   int        `json:"task_count"`
}

// SectorInfo describes one selectable business sector.
type SectorInfo struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Frameworks    []string `json:"frameworks"`
	QuestionCount int      `json:"question_count"`
}

// MeterRequest registers a utility meter.
type MeterRequest struct {
	LocationName string `json:"location_name,omitempty"`
	MeterType    string `json:"meter_type" binding:"required"`
	MeterNumber  string `json:"meter_number,omitempty"`
	Provider     string `json:"provider,omitempty"`
	Unit         string `json:"unit_of_measurement,omitempty"`
}

// ReadingRequest records a consumption reading against a meter.
type ReadingRequest struct {
	ReadingDate   time.Time `json:"reading_date" binding:"required"`
	Consumption   float64   `json:"consumption_amount" binding:"required"`
	UnitCost      float64   `json:"unit_cost,omitempty"`
	TotalCost     float64   `json:"total_cost,omitempty"`
	BillReference string    `json:"bill_reference,omitempty"`
}

// FrameworkRegistrationRequest records registration with an external
// framework.
type FrameworkRegistrationRequest struct {
	FrameworkName      string     `json:"framework_name" binding:"required"`
	RegistrationNumber string     `json:"registration_number,omitempty"`
	RegistrationDate   *time.Time `json:"registration_date,omitempty"`
	Status             string     `json:"status,omitempty"`
	RenewalDate        *time.Time `json:"renewal_date,omitempty"`
}

// AnalyticsResponse is the dashboard payload.
type AnalyticsResponse struct {
	Scores          scoring.Scores              `json:"esg_scores"`
	CarbonFootprint scoring.CarbonFootprint     `json:"carbon_footprint"`
	Benchmark       scoring.BenchmarkComparison `json:"benchmark_comparison"`
	ComplianceRates []scoring.ComplianceRate    `json:"compliance_rates"`
	TaskStats       *store.TaskStats            `json:"task_stats"`
	CompanyStats    *store.CompanyStats         `json:"company_stats"`
}

// ReportResponse wraps the full report payload for the JSON endpoint.
type ReportResponse struct {
	Report *report.Data `json:"report"`
}

// BackupInfo describes one backup archive.
type BackupInfo struct {
	Name      string    `json:"name"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}

// HealthStatus is the backup subsystem health payload.
type HealthStatus struct {
	Healthy     bool       `json:"healthy"`
	BackupCount int        `json:"backup_count"`
	LastBackup  *time.Time `json:"last_backup,omitempty"`
	Detail      string     `json:"detail,omitempty"`
}
