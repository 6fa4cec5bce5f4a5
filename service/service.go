// Package service implements the greenscope HTTP API handlers.
package service

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/greenscope/greenscope/api"
	"github.com/greenscope/greenscope/auth"
	"github.com/greenscope/greenscope/backup"
	"github.com/greenscope/greenscope/catalog"
	"github.com/greenscope/greenscope/internal/middleware"
	"github.com/greenscope/greenscope/report"
	"github.com/greenscope/greenscope/scoring"
	"github.com/greenscope/greenscope/store"
	"github.com/greenscope/greenscope/taskgen"
)

// Limits for the credential endpoints.
const (
	loginAttempts  = 5
	loginWindow    = 5 * time.Minute
	registerLimit  = 3
	registerWindow = time.Hour
)

// Service holds the handler dependencies.
type Service struct {
	store     *store.Store
	catalog   *catalog.Catalog
	issuer    *auth.Issuer
	generator *taskgen.Generator
	calc      *scoring.Calculator
	reports   *report.Builder
	backups   *backup.Manager
	logger    *zap.Logger

	evidenceDir    string
	maxUploadBytes int64

	loginLimiter    *middleware.RateLimiter
	registerLimiter *middleware.RateLimiter
}

// Config carries the service's tunables.
type Config struct {
	EvidenceDir    string
	MaxUploadBytes int64
}

// NewService initializes a new Service instance.
func NewService(s *store.Store, c *catalog.Catalog, issuer *auth.Issuer, backups *backup.Manager, cfg Config, logger *zap.Logger) *Service {
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 50 << 20
	}
	return &Service{
		store:           s,
		catalog:         c,
		issuer:          issuer,
		generator:       taskgen.New(c),
		calc:            scoring.NewCalculator(),
		reports:         report.NewBuilder(s, c),
		backups:         backups,
		logger:          logger,
		evidenceDir:     cfg.EvidenceDir,
		maxUploadBytes:  cfg.MaxUploadBytes,
		loginLimiter:    middleware.NewRateLimiter(loginAttempts, loginWindow),
		registerLimiter: middleware.NewRateLimiter(registerLimit, registerWindow),
	}
}

// Register mounts all API routes on the router.
func (s *Service) Register(r *gin.Engine) {
	r.GET("/healthz", s.Healthz)
	r.GET("/api/sectors", s.ListSectors)

	authGroup := r.Group("/api/auth")
	authGroup.POST("/register", s.registerLimiter.Middleware(), s.RegisterAccount)
	authGroup.POST("/token", s.loginLimiter.Middleware(), s.Login)
	authGroup.POST("/refresh", s.Refresh)

	authed := r.Group("/api", middleware.BearerAuth(s.issuer, s.store))
	authed.POST("/auth/logout", s.Logout)
	authed.GET("/auth/me", s.Me)
	authed.PUT("/auth/me", s.UpdateMe)
	authed.POST("/auth/invite", middleware.RequireRole(store.RoleManager), s.InviteUser)

	authed.GET("/companies/me", s.GetCompany)
	authed.PATCH("/companies/me", middleware.RequireRole(store.RoleManager), s.UpdateCompany)
	authed.GET("/companies/me/stats", s.GetCompanyStats)
	authed.GET("/companies/me/users", s.ListUsers)
	authed.GET("/companies/me/locations", s.ListLocations)
	authed.POST("/companies/me/locations", middleware.RequireRole(store.RoleManager), s.CreateLocation)
	authed.PUT("/companies/me/locations/:id", middleware.RequireRole(store.RoleManager), s.UpdateLocation)
	authed.DELETE("/companies/me/locations/:id", middleware.RequireRole(store.RoleManager), s.DeleteLocation)

	authed.GET("/tasks", s.ListTasks)
	authed.GET("/tasks/stats", s.GetTaskStats)
	authed.GET("/tasks/:id", s.GetTask)
	authed.PATCH("/tasks/:id", middleware.RequireRole(store.RoleContributor), s.UpdateTask)
	authed.POST("/tasks/:id/assign", middleware.RequireRole(store.RoleManager), s.AssignTask)
	authed.POST("/tasks/generate", middleware.RequireRole(store.RoleManager), s.RegenerateTasks)

	authed.POST("/tasks/:id/evidence", middleware.RequireRole(store.RoleContributor), s.UploadEvidence)
	authed.GET("/tasks/:id/evidence", s.ListEvidence)
	authed.GET("/evidence/:id/download", s.DownloadEvidence)
	authed.DELETE("/evidence/:id", middleware.RequireRole(store.RoleManager), s.DeleteEvidence)

	authed.GET("/esg/questions/:sector", s.ListQuestions)
	authed.POST("/esg/scoping/complete", middleware.RequireRole(store.RoleManager), s.CompleteScoping)
	authed.GET("/esg/scoping/status", s.GetScopingStatus)

	authed.GET("/meters", s.ListMeters)
	authed.POST("/meters", middleware.RequireRole(store.RoleContributor), s.CreateMeter)
	authed.GET("/meters/:id/readings", s.ListReadings)
	authed.POST("/meters/:id/readings", middleware.RequireRole(store.RoleContributor), s.AddReading)

	authed.GET("/frameworks/registrations", s.ListFrameworkRegistrations)
	authed.PUT("/frameworks/registrations", middleware.RequireRole(store.RoleManager), s.UpsertFrameworkRegistration)

	authed.GET("/reports/esg", s.GetReport)
	authed.GET("/reports/analytics", s.GetAnalytics)

	admin := authed.Group("/admin", middleware.RequireRole(store.RoleAdmin))
	admin.POST("/backups", s.CreateBackup)
	admin.GET("/backups", s.ListBackups)
	admin.POST("/backups/restore", s.RestoreBackup)
	admin.GET("/backups/health", s.BackupHealth)
	admin.GET("/audit", s.ListAudit)
}

// Healthz reports liveness.
func (s *Service) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// ListSectors returns the selectable business sectors. Public so the
// registration form can populate its dropdown.
func (s *Service) ListSectors(c *gin.Context) {
	var sectors []api.SectorInfo
	for _, id := range s.catalog.SectorIDs() {
		sector, ok := s.catalog.SectorByID(id)
		if !ok {
			continue
		}
		sectors = append(sectors, api.SectorInfo{
			ID:            string(sector.ID),
			Name:          sector.Name,
			Frameworks:    catalog.NormalizeFrameworks(sector.Frameworks),
			QuestionCount: len(sector.Questions),
		})
	}
	c.JSON(http.StatusOK, sectors)
}

// sendError wraps sending of an error in the Error format.
func sendError(c *gin.Context, code int32, message string) {
	c.JSON(int(code), api.Error{Code: code, Message: message})
}

// sendStoreError maps store errors onto HTTP statuses.
func sendStoreError(c *gin.Context, err error, notFoundMsg string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		sendError(c, http.StatusNotFound, notFoundMsg)
	case errors.Is(err, store.ErrConflict):
		sendError(c, http.StatusConflict, "Resource conflicts with existing data")
	default:
		sendError(c, http.StatusInternalServerError, "Internal error")
	}
}

// audit records an action without ever failing the parent operation.
func (s *Service) audit(c *gin.Context, action, resourceType, resourceID string, details map[string]string) {
	user := middleware.CurrentUser(c)
	entry := &store.AuditEntry{
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Details:      details,
		IPAddress:    c.ClientIP(),
		UserAgent:    c.Request.UserAgent(),
	}
	if user != nil {
		entry.UserID = user.ID
	}
	if err := s.store.AppendAudit(c.Request.Context(), entry); err != nil {
		s.logger.Error("audit append failed", zap.String("action", action), zap.Error(err))
	}
}
