package service

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/greenscope/greenscope/backup"
)

// CreateBackup handles POST /api/admin/backups.
func (s *Service) CreateBackup(c *gin.Context) {
	info, err := s.backups.Create(c.Request.Context())
	if err != nil {
		s.logger.Error("backup failed", zap.Error(err))
		sendError(c, http.StatusInternalServerError, "Backup failed")
		return
	}

	s.audit(c, "backup_create", "backup", info.Name, nil)
	c.JSON(http.StatusCreated, info)
}

// ListBackups handles GET /api/admin/backups.
func (s *Service) ListBackups(c *gin.Context) {
	backups, err := s.backups.List()
	if err != nil {
		sendError(c, http.StatusInternalServerError, "Internal error")
		return
	}
	c.JSON(http.StatusOK, backups)
}

// RestoreBackup handles POST /api/admin/backups/restore. The optional
// name field selects an archive; the newest is used otherwise.
func (s *Service) RestoreBackup(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		sendError(c, http.StatusBadRequest, "Invalid restore payload")
		return
	}

	if err := s.backups.Restore(c.Request.Context(), req.Name); err != nil {
		if errors.Is(err, backup.ErrNoBackups) {
			sendError(c, http.StatusNotFound, "No backups available")
			return
		}
		s.logger.Error("restore failed", zap.String("archive", req.Name), zap.Error(err))
		sendError(c, http.StatusInternalServerError, "Restore failed")
		return
	}

	s.audit(c, "backup_restore", "backup", req.Name, nil)
	c.JSON(http.StatusOK, gin.H{"restored": true})
}

// BackupHealth handles GET /api/admin/backups/health.
func (s *Service) BackupHealth(c *gin.Context) {
	c.JSON(http.StatusOK, s.backups.Health())
}

// ListAudit handles GET /api/admin/audit.
func (s *Service) ListAudit(c *gin.Context) {
	limit := 100
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	entries, err := s.store.ListRecentAudit(c.Request.Context(), limit)
	if err != nil {
		sendError(c, http.StatusInternalServerError, "Internal error")
		return
	}
	c.JSON(http.StatusOK, entries)
}
