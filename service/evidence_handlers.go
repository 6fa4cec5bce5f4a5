package service

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/greenscope/greenscope/internal/middleware"
	"github.com/greenscope/greenscope/store"
)

// evidenceExt maps accepted upload MIME types to the extension stored on
// disk.
func evidenceExt(mimeType string) (string, bool) {
	switch mimeType {
	case "application/pdf":
		return ".pdf", true
	case "image/jpeg":
		return ".jpg", true
	case "image/png":
		return ".png", true
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return ".xlsx", true
	case "application/vnd.openxmlformats-officedocument.wordprocessingml.document":
		return ".docx", true
	case "application/msword":
		return ".doc", true
	case "application/vnd.ms-excel":
		return ".xls", true
	case "text/csv":
		return ".csv", true
	}
	return "", false
}

// UploadEvidence handles POST /api/tasks/:id/evidence as multipart form
// data. Files are renamed to a UUID under the task's evidence directory
// and hashed for integrity checks.
func (s *Service) UploadEvidence(c *gin.Context) {
	user := middleware.CurrentUser(c)
	ctx := c.Request.Context()

	task, err := s.store.GetTask(ctx, user.CompanyID, c.Param("id"))
	if err != nil {
		sendStoreError(c, err, "Task not found")
		return
	}

	header, err := c.FormFile("file")
	if err != nil {
		sendError(c, http.StatusBadRequest, "Missing file field")
		return
	}
	if header.Size > s.maxUploadBytes {
		sendError(c, http.StatusRequestEntityTooLarge,
			fmt.Sprintf("File exceeds the %d MB limit", s.maxUploadBytes>>20))
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = strings.TrimSpace(mimeType[:i])
	}
	ext, ok := evidenceExt(mimeType)
	if !ok {
		sendError(c, http.StatusUnsupportedMediaType, fmt.Sprintf("File type %q is not accepted", mimeType))
		return
	}

	src, err := header.Open()
	if err != nil {
		sendError(c, http.StatusBadRequest, "Unreadable upload")
		return
	}
	defer src.Close()

	taskDir := filepath.Join(s.evidenceDir, task.ID)
	if err := os.MkdirAll(taskDir, 0o755); err != nil {
		sendError(c, http.StatusInternalServerError, "Internal error")
		return
	}

	storedName := uuid.NewString() + ext
	dstPath := filepath.Join(taskDir, storedName)
	dst, err := os.OpenFile(dstPath, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o644)
	if err != nil {
		sendError(c, http.StatusInternalServerError, "Internal error")
		return
	}

	hasher := sha256.New()
	size, err := io.Copy(io.MultiWriter(dst, hasher), io.LimitReader(src, s.maxUploadBytes+1))
	dst.Close()
	if err != nil || size > s.maxUploadBytes {
		os.Remove(dstPath)
		if size > s.maxUploadBytes {
			sendError(c, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("File exceeds the %d MB limit", s.maxUploadBytes>>20))
			return
		}
		sendError(c, http.StatusInternalServerError, "Internal error")
		return
	}

	evidence := &store.Evidence{
		TaskID:           task.ID,
		FilePath:         dstPath,
		OriginalFilename: filepath.Base(header.Filename),
		FileHash:         hex.EncodeToString(hasher.Sum(nil)),
		FileSize:         size,
		MimeType:         mimeType,
		Description:      c.PostForm("description"),
		UploadedBy:       user.ID,
	}
	if err := s.store.CreateEvidence(ctx, evidence); err != nil {
		os.Remove(dstPath)
		sendError(c, http.StatusInternalServerError, "Internal error")
		return
	}

	s.audit(c, "evidence_upload", "evidence", evidence.ID, map[string]string{
		"task_id":  task.ID,
		"filename": evidence.OriginalFilename,
	})
	c.JSON(http.StatusCreated, evidence)
}

// ListEvidence handles GET /api/tasks/:id/evidence.
func (s *Service) ListEvidence(c *gin.Context) {
	user := middleware.CurrentUser(c)
	ctx := c.Request.Context()

	task, err := s.store.GetTask(ctx, user.CompanyID, c.Param("id"))
	if err != nil {
		sendStoreError(c, err, "Task not found")
		return
	}
	items, err := s.store.ListEvidenceByTask(ctx, task.ID)
	if err != nil {
		sendError(c, http.StatusInternalServerError, "Internal error")
		return
	}
	c.JSON(http.StatusOK, items)
}

// DownloadEvidence handles GET /api/evidence/:id/download.
func (s *Service) DownloadEvidence(c *gin.Context) {
	user := middleware.CurrentUser(c)

	evidence, err := s.store.GetEvidence(c.Request.Context(), user.CompanyID, c.Param("id"))
	if err != nil {
		sendStoreError(c, err, "Evidence not found")
		return
	}
	if _, err := os.Stat(evidence.FilePath); err != nil {
		s.logger.Error("evidence file missing on disk",
			zap.String("evidence_id", evidence.ID), zap.Error(err))
		sendError(c, http.StatusNotFound, "Evidence file is missing")
		return
	}

	c.FileAttachment(evidence.FilePath, evidence.OriginalFilename)
}

// DeleteEvidence handles DELETE /api/evidence/:id. The row goes first;
// a stray file is logged, not surfaced.
func (s *Service) DeleteEvidence(c *gin.Context) {
	user := middleware.CurrentUser(c)
	ctx := c.Request.Context()

	evidence, err := s.store.GetEvidence(ctx, user.CompanyID, c.Param("id"))
	if err != nil {
		sendStoreError(c, err, "Evidence not found")
		return
	}
	if err := s.store.DeleteEvidence(ctx, user.CompanyID, evidence.ID); err != nil {
		sendStoreError(c, err, "Evidence not found")
		return
	}
	if err := os.Remove(evidence.FilePath); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("failed to remove evidence file",
			zap.String("evidence_id", evidence.ID), zap.Error(err))
	}

	s.audit(c, "evidence_delete", "evidence", evidence.ID, map[string]string{"task_id": evidence.TaskID})
	c.Status(http.StatusNoContent)
}
