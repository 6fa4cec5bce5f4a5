package store

import "time"

// UserRole controls what a user may do inside their company.
type UserRole string

const (
	RoleAdmin       UserRole = "admin"
	RoleManager     UserRole = "manager"
	RoleContributor UserRole = "contributor"
	RoleViewer      UserRole = "viewer"
)

// roleRank orders roles for permission checks. Higher outranks lower.
var roleRank = map[UserRole]int{
	RoleViewer:      0,
	RoleContributor: 1,
	RoleManager:     2,
	RoleAdmin:       3,
}

// AtLeast reports whether r carries the permissions of required.
func (r UserRole) AtLeast(required UserRole) bool {
	return roleRank[r] >= roleRank[required]
}

// Valid reports whether r is a known role.
func (r UserRole) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// BusinessSector identifies a supported SME sector.
type BusinessSector string

const (
	SectorHospitality   BusinessSector = "hospitality"
	SectorConstruction  BusinessSector = "construction_real_estate"
	SectorManufacturing BusinessSector = "manufacturing"
	SectorLogistics     BusinessSector = "logistics_transportation"
	SectorEducation     BusinessSector = "education"
	SectorHealth        BusinessSector = "health"
)

// Sectors lists every supported sector in display order.
func Sectors() []BusinessSector {
	return []BusinessSector{
		SectorHospitality,
		SectorConstruction,
		SectorManufacturing,
		SectorLogistics,
		SectorEducation,
		SectorHealth,
	}
}

// TaskStatus tracks a compliance task through its lifecycle.
type TaskStatus string

const (
	StatusTodo          TaskStatus = "todo"
	StatusInProgress    TaskStatus = "in_progress"
	StatusPendingReview TaskStatus = "pending_review"
	StatusCompleted     TaskStatus = "completed"
)

// TaskStatuses lists every status in lifecycle order.
func TaskStatuses() []TaskStatus {
	return []TaskStatus{StatusTodo, StatusInProgress, StatusPendingReview, StatusCompleted}
}

// Valid reports whether s is a known status.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusPendingReview, StatusCompleted:
		return true
	}
	return false
}

// TaskCategory groups tasks by ESG concern.
type TaskCategory string

const (
	CategoryGovernance    TaskCategory = "governance"
	CategoryEnergy        TaskCategory = "energy"
	CategoryWater         TaskCategory = "water"
	CategoryWaste         TaskCategory = "waste"
	CategorySupplyChain   TaskCategory = "supply_chain"
	CategorySocial        TaskCategory = "social"
	CategoryEnvironmental TaskCategory = "environmental"
)

// TaskPriority orders tasks for attention.
type TaskPriority string

const (
	PriorityHigh   TaskPriority = "high"
	PriorityMedium TaskPriority = "medium"
	PriorityLow    TaskPriority = "low"
)

// User is an account scoped to a single company.
type User struct {
	ID             string     `json:"id"`
	Email          string     `json:"email"`
	HashedPassword string     `json:"-"`
	FullName       string     `json:"full_name"`
	Role           UserRole   `json:"role"`
	IsActive       bool       `json:"is_active"`
	IsVerified     bool       `json:"is_verified"`
	CompanyID      string     `json:"company_id"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	LastLogin      *time.Time `json:"last_login,omitempty"`
}

// Company is an SME tenant on the platform.
type Company struct {
	ID                 string         `json:"id"`
	Name               string         `json:"name"`
	MainLocation       string         `json:"main_location"`
	BusinessSector     BusinessSector `json:"business_sector"`
	Description        string         `json:"description,omitempty"`
	Website            string         `json:"website,omitempty"`
	Phone              string         `json:"phone,omitempty"`
	ActiveFrameworks   []string       `json:"active_frameworks,omitempty"`
	ScopingCompleted   bool           `json:"esg_scoping_completed"`
	ScopingCompletedAt *time.Time     `json:"scoping_completed_at,omitempty"`
	CreatedAt          time.Time      `json:"created_at"`
	UpdatedAt          time.Time      `json:"updated_at"`
}

// LocationType distinguishes a company's primary site from sub-sites.
type LocationType string

const (
	LocationPrimary LocationType = "primary"
	LocationSub     LocationType = "sub_location"
)

// Location is a physical site belonging to a company.
type Location struct {
	ID               string       `json:"id"`
	CompanyID        string       `json:"company_id"`
	Name             string       `json:"name"`
	LocationType     LocationType `json:"location_type"`
	ParentLocationID string       `json:"parent_location_id,omitempty"`
	Address          string       `json:"address,omitempty"`
	Description      string       `json:"description,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// Task is a compliance activity derived from the scoping wizard.
type Task struct {
	ID                string       `json:"id"`
	CompanyID         string       `json:"company_id"`
	LocationID        string       `json:"location_id,omitempty"`
	Title             string       `json:"title"`
	Description       string       `json:"description"`
	ComplianceContext string       `json:"compliance_context"`
	ActionRequired    string       `json:"action_required"`
	Status            TaskStatus   `json:"status"`
	Category          TaskCategory `json:"category"`
	Priority          TaskPriority `json:"priority"`
	AssignedUserID    string       `json:"assigned_user_id,omitempty"`
	FrameworkTags     []string     `json:"framework_tags"`
	RequiredEvidence  int          `json:"required_evidence_count"`
	DueDate           *time.Time   `json:"due_date,omitempty"`
	CompletedAt       *time.Time   `json:"completed_at,omitempty"`
	CreatedAt         time.Time    `json:"created_at"`
	UpdatedAt         time.Time    `json:"updated_at"`
}

// Evidence is an uploaded file proving completion of a task.
type Evidence struct {
	ID               string    `json:"id"`
	TaskID           string    `json:"task_id"`
	FilePath         string    `json:"-"`
	OriginalFilename string    `json:"original_filename"`
	FileHash         string    `json:"file_hash"`
	FileSize         int64     `json:"file_size"`
	MimeType         string    `json:"mime_type"`
	Description      string    `json:"description,omitempty"`
	UploadedBy       string    `json:"uploaded_by"`
	UploadedAt       time.Time `json:"uploaded_at"`
}

// AuditEntry records a traceable platform action.
type AuditEntry struct {
	ID           string            `json:"id"`
	UserID       string            `json:"user_id"`
	Action       string            `json:"action"`
	ResourceType string            `json:"resource_type"`
	ResourceID   string            `json:"resource_id"`
	Details      map[string]string `json:"details,omitempty"`
	IPAddress    string            `json:"ip_address,omitempty"`
	UserAgent    string            `json:"user_agent,omitempty"`
	Timestamp    time.Time         `json:"timestamp"`
}

// ScopingResponse stores one completed run of the scoping wizard.
type ScopingResponse struct {
	ID              string            `json:"id"`
	CompanyID       string            `json:"company_id"`
	Sector          BusinessSector    `json:"sector"`
	Answers         map[string]string `json:"answers"`
	Preferences     map[string]string `json:"preferences,omitempty"`
	TasksGenerated  int               `json:"tasks_generated_count"`
	AssessmentScore float64           `json:"assessment_score,omitempty"`
	CompletedAt     time.Time         `json:"completed_at"`
	CreatedAt       time.Time         `json:"created_at"`
}

// MeterType identifies what a utility meter measures.
type MeterType string

const (
	MeterElectricity MeterType = "electricity"
	MeterWater       MeterType = "water"
	MeterGas         MeterType = "gas"
)

// UtilityMeter tracks a metered utility at a company site.
type UtilityMeter struct {
	ID           string    `json:"id"`
	CompanyID    string    `json:"company_id"`
	LocationName string    `json:"location_name,omitempty"`
	MeterType    MeterType `json:"meter_type"`
	MeterNumber  string    `json:"meter_number,omitempty"`
	Provider     string    `json:"provider,omitempty"`
	Unit         string    `json:"unit_of_measurement"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// ConsumptionRecord is one billing-period reading of a meter.
type ConsumptionRecord struct {
	ID            string    `json:"id"`
	MeterID       string    `json:"meter_id"`
	ReadingDate   time.Time `json:"reading_date"`
	Consumption   float64   `json:"consumption_amount"`
	UnitCost      float64   `json:"unit_cost,omitempty"`
	TotalCost     float64   `json:"total_cost,omitempty"`
	BillReference string    `json:"bill_reference,omitempty"`
	UploadedBy    string    `json:"uploaded_by"`
	UploadedAt    time.Time `json:"uploaded_at"`
}

// FrameworkRegistration tracks a company's registration with an external
// certification or regulatory framework (DST, Green Key, ISO 14001, ...).
type FrameworkRegistration struct {
	ID                 string     `json:"id"`
	CompanyID          string     `json:"company_id"`
	FrameworkName      string     `json:"framework_name"`
	RegistrationNumber string     `json:"registration_number,omitempty"`
	RegistrationDate   *time.Time `json:"registration_date,omitempty"`
	Status             string     `json:"status"`
	RenewalDate        *time.Time `json:"renewal_date,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}
