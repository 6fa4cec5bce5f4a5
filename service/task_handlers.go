package service

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/greenscope/greenscope/api"
	"github.com/greenscope/greenscope/internal/middleware"
	"github.com/greenscope/greenscope/store"
)

// ListTasks handles GET /api/tasks with filter query parameters.
func (s *Service) ListTasks(c *gin.Context) {
	user := middleware.CurrentUser(c)

	filter := store.TaskFilter{
		AssignedUserID: c.Query("assigned_to"),
		LocationID:     c.Query("location_id"),
		FrameworkTag:   c.Query("framework"),
	}
	if v := c.Query("status"); v != "" {
		status := store.TaskStatus(v)
		if !status.Valid() {
			sendError(c, http.StatusBadRequest, fmt.Sprintf("Unknown status %q", v))
			return
		}
		filter.Status = status
	}
	if v := c.Query("category"); v != "" {
		filter.Category = store.TaskCategory(v)
	}
	if v := c.Query("due_before"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			sendError(c, http.StatusBadRequest, "due_before must be RFC 3339")
			return
		}
		filter.DueBefore = &t
	}
	if v := c.Query("due_after"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			sendError(c, http.StatusBadRequest, "due_after must be RFC 3339")
			return
		}
		filter.DueAfter = &t
	}
	if v := c.Query("offset"); v != "" {
		filter.Offset, _ = strconv.Atoi(v)
	}
	if v := c.Query("limit"); v != "" {
		filter.Limit, _ = strconv.Atoi(v)
	}

	page, err := s.store.ListTasks(c.Request.Context(), user.CompanyID, filter)
	if err != nil {
		sendStoreError(c, err, "Tasks not found")
		return
	}
	c.JSON(http.StatusOK, api.TaskListResponse{
		Tasks:        page.Tasks,
		TotalCount:   page.TotalCount,
		StatusCounts: page.StatusCounts,
		Offset:       filter.Offset,
		Limit:        len(page.Tasks),
	})
}

// GetTask handles GET /api/tasks/:id.
func (s *Service) GetTask(c *gin.Context) {
	user := middleware.CurrentUser(c)
	task, err := s.store.GetTask(c.Request.Context(), user.CompanyID, c.Param("id"))
	if err != nil {
		sendStoreError(c, err, "Task not found")
		return
	}
	c.JSON(http.StatusOK, task)
}

// UpdateTask handles PATCH /api/tasks/:id.
func (s *Service) UpdateTask(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var req api.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid task payload")
		return
	}

	task, err := s.store.GetTask(c.Request.Context(), user.CompanyID, c.Param("id"))
	if err != nil {
		sendStoreError(c, err, "Task not found")
		return
	}

	if req.Status != nil {
		status := store.TaskStatus(*req.Status)
		if !status.Valid() {
			sendError(c, http.StatusBadRequest, fmt.Sprintf("Unknown status %q", *req.Status))
			return
		}
		task.Status = status
	}
	if req.Priority != nil {
		task.Priority = store.TaskPriority(*req.Priority)
	}
	if req.DueDate != nil {
		task.DueDate = req.DueDate
	}
	if req.LocationID != nil {
		task.LocationID = *req.LocationID
	}
	if req.Description != nil {
		task.Description = *req.Description
	}

	if err := s.store.UpdateTask(c.Request.Context(), task); err != nil {
		sendStoreError(c, err, "Task not found")
		return
	}

	s.audit(c, "task_update", "task", task.ID, map[string]string{"status": string(task.Status)})
	c.JSON(http.StatusOK, task)
}

// AssignTask handles POST /api/tasks/:id/assign. An empty user_id clears
// the assignment.
func (s *Service) AssignTask(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var req api.AssignTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid assignment payload")
		return
	}

	if req.UserID != "" {
		assignee, err := s.store.GetUser(c.Request.Context(), req.UserID)
		if err != nil {
			sendStoreError(c, err, "Assignee not found")
			return
		}
		if assignee.CompanyID != user.CompanyID {
			sendError(c, http.StatusForbidden, "Assignee belongs to another company")
			return
		}
	}

	if err := s.store.AssignTask(c.Request.Context(), user.CompanyID, c.Param("id"), req.UserID); err != nil {
		sendStoreError(c, err, "Task not found")
		return
	}

	s.audit(c, "task_assign", "task", c.Param("id"), map[string]string{"assignee": req.UserID})
	c.Status(http.StatusNoContent)
}

// GetTaskStats handles GET /api/tasks/stats.
func (s *Service) GetTaskStats(c *gin.Context) {
	user := middleware.CurrentUser(c)
	stats, err := s.store.TaskStats(c.Request.Context(), user.CompanyID)
	if err != nil {
		sendStoreError(c, err, "Tasks not found")
		return
	}
	c.JSON(http.StatusOK, stats)
}

// RegenerateTasks handles POST /api/tasks/generate. It re-runs generation
// from the latest scoping answers, replacing untouched todo tasks and
// keeping everything in progress or done.
func (s *Service) RegenerateTasks(c *gin.Context) {
	user := middleware.CurrentUser(c)
	ctx := c.Request.Context()

	resp, err := s.store.LatestScopingResponse(ctx, user.CompanyID)
	if err != nil {
		sendStoreError(c, err, "No scoping assessment on record; complete the wizard first")
		return
	}

	removed, err := s.store.DeleteTasksByStatus(ctx, user.CompanyID, store.StatusTodo)
	if err != nil {
		sendError(c, http.StatusInternalServerError, "Internal error")
		return
	}

	tasks := s.generator.GenerateFromScoping(user.CompanyID, resp.Sector, resp.Answers)
	if err := s.store.CreateTasks(ctx, tasks); err != nil {
		sendError(c, http.StatusInternalServerError, "Internal error")
		return
	}

	s.audit(c, "tasks_regenerate", "company", user.CompanyID, map[string]string{
		"removed":   strconv.FormatInt(removed, 10),
		"generated": strconv.Itoa(len(tasks)),
	})
	c.JSON(http.StatusOK, gin.H{
		"removed":   removed,
		"generated": len(tasks),
		"tasks":     tasks,
	})
}
