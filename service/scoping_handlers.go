package service

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/greenscope/greenscope/api"
	"github.com/greenscope/greenscope/internal/middleware"
	"github.com/greenscope/greenscope/scoring"
	"github.com/greenscope/greenscope/store"
	"github.com/greenscope/greenscope/taskgen"
)

// ListQuestions handles GET /api/esg/questions/:sector.
func (s *Service) ListQuestions(c *gin.Context) {
	sector := store.BusinessSector(c.Param("sector"))
	questions, ok := s.catalog.Questions(sector)
	if !ok {
		sendError(c, http.StatusNotFound, fmt.Sprintf("Unknown business sector %q", c.Param("sector")))
		return
	}
	c.JSON(http.StatusOK, questions)
}

// CompleteScoping handles POST /api/esg/scoping/complete. It stores the
// wizard answers, generates the compliance task list, and returns the
// initial scores.
func (s *Service) CompleteScoping(c *gin.Context) {
	user := middleware.CurrentUser(c)
	ctx := c.Request.Context()

	var req api.ScopingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid scoping payload")
		return
	}

	sector := store.BusinessSector(req.Sector)
	questions, ok := s.catalog.Questions(sector)
	if !ok {
		sendError(c, http.StatusBadRequest, fmt.Sprintf("Unknown business sector %q", req.Sector))
		return
	}

	tasks := s.generator.GenerateFromScoping(user.CompanyID, sector, req.Answers)
	if err := s.store.CreateTasks(ctx, tasks); err != nil {
		sendError(c, http.StatusInternalServerError, "Internal error")
		return
	}

	var answered []scoring.AnsweredQuestion
	for _, q := range questions {
		if answer, ok := req.Answers[q.ID]; ok {
			answered = append(answered, scoring.AnsweredQuestion{Question: q, Answer: answer})
		}
	}
	scores := s.calc.CalculateScores(answered, tasks, sector)

	now := time.Now().UTC()
	resp := &store.ScopingResponse{
		CompanyID:       user.CompanyID,
		Sector:          sector,
		Answers:         req.Answers,
		Preferences:     req.Preferences,
		TasksGenerated:  len(tasks),
		AssessmentScore: scores.Overall,
		CompletedAt:     now,
	}
	if err := s.store.SaveScopingResponse(ctx, resp); err != nil {
		sendError(c, http.StatusInternalServerError, "Internal error")
		return
	}
	if err := s.store.MarkScopingComplete(ctx, user.CompanyID, sector, now); err != nil {
		sendError(c, http.StatusInternalServerError, "Internal error")
		return
	}

	s.audit(c, "scoping_complete", "company", user.CompanyID, map[string]string{
		"sector":          string(sector),
		"tasks_generated": fmt.Sprint(len(tasks)),
	})
	s.logger.Info("scoping completed",
		zap.String("company_id", user.CompanyID),
		zap.String("sector", string(sector)),
		zap.Int("tasks", len(tasks)),
	)

	c.JSON(http.StatusCreated, api.ScopingResult{
		TasksGenerated:  len(tasks),
		AssessmentScore: scores.Overall,
		Scores:          scores,
		PriorityTasks:   taskgen.PriorityTasks(tasks, 5),
	})
}

// GetScopingStatus handles GET /api/esg/scoping/status.
func (s *Service) GetScopingStatus(c *gin.Context) {
	user := middleware.CurrentUser(c)
	ctx := c.Request.Context()

	company, err := s.store.GetCompany(ctx, user.CompanyID)
	if err != nil {
		sendStoreError(c, err, "Company not found")
		return
	}
	stats, err := s.store.TaskStats(ctx, user.CompanyID)
	if err != nil {
		sendError(c, http.StatusInternalServerError, "Internal error")
		return
	}

	status := api.ScopingStatus{
		Completed: company.ScopingCompleted,
		TaskCount: stats.Total,
	}
	if company.ScopingCompleted {
		status.Sector = string(company.BusinessSector)
		status.CompletedAt = company.ScopingCompletedAt
	}
	c.JSON(http.StatusOK, status)
}

// CreateMeter handles POST /api/meters.
func (s *Service) CreateMeter(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var req api.MeterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid meter payload")
		return
	}
	meterType := store.MeterType(req.MeterType)
	switch meterType {
	case store.MeterElectricity, store.MeterWater, store.MeterGas:
	default:
		sendError(c, http.StatusBadRequest, fmt.Sprintf("Unknown meter type %q", req.MeterType))
		return
	}

	meter := &store.UtilityMeter{
		CompanyID:    user.CompanyID,
		LocationName: req.LocationName,
		MeterType:    meterType,
		MeterNumber:  req.MeterNumber,
		Provider:     req.Provider,
		Unit:         req.Unit,
		IsActive:     true,
	}
	if meter.Unit == "" {
		meter.Unit = defaultUnit(meterType)
	}
	if err := s.store.CreateMeter(c.Request.Context(), meter); err != nil {
		sendError(c, http.StatusInternalServerError, "Internal error")
		return
	}

	s.audit(c, "meter_create", "meter", meter.ID, map[string]string{"type": string(meterType)})
	c.JSON(http.StatusCreated, meter)
}

func defaultUnit(t store.MeterType) string {
	switch t {
	case store.MeterWater:
		return "m3"
	case store.MeterGas:
		return "kg"
	default:
		return "kWh"
	}
}

// ListMeters handles GET /api/meters.
func (s *Service) ListMeters(c *gin.Context) {
	user := middleware.CurrentUser(c)
	meters, err := s.store.ListMeters(c.Request.Context(), user.CompanyID)
	if err != nil {
		sendError(c, http.StatusInternalServerError, "Internal error")
		return
	}
	c.JSON(http.StatusOK, meters)
}

// AddReading handles POST /api/meters/:id/readings.
func (s *Service) AddReading(c *gin.Context) {
	user := middleware.CurrentUser(c)
	ctx := c.Request.Context()

	meter, err := s.store.GetMeter(ctx, user.CompanyID, c.Param("id"))
	if err != nil {
		sendStoreError(c, err, "Meter not found")
		return
	}

	var req api.ReadingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid reading payload")
		return
	}
	if req.Consumption < 0 {
		sendError(c, http.StatusBadRequest, "Consumption cannot be negative")
		return
	}

	record := &store.ConsumptionRecord{
		MeterID:       meter.ID,
		ReadingDate:   req.ReadingDate,
		Consumption:   req.Consumption,
		UnitCost:      req.UnitCost,
		TotalCost:     req.TotalCost,
		BillReference: req.BillReference,
		UploadedBy:    user.ID,
	}
	if err := s.store.AddConsumptionRecord(ctx, record); err != nil {
		sendError(c, http.StatusInternalServerError, "Internal error")
		return
	}

	s.audit(c, "reading_add", "meter", meter.ID, map[string]string{"bill": req.BillReference})
	c.JSON(http.StatusCreated, record)
}

// ListReadings handles GET /api/meters/:id/readings.
func (s *Service) ListReadings(c *gin.Context) {
	user := middleware.CurrentUser(c)
	ctx := c.Request.Context()

	meter, err := s.store.GetMeter(ctx, user.CompanyID, c.Param("id"))
	if err != nil {
		sendStoreError(c, err, "Meter not found")
		return
	}
	records, err := s.store.ListConsumptionRecords(ctx, meter.ID)
	if err != nil {
		sendError(c, http.StatusInternalServerError, "Internal error")
		return
	}
	c.JSON(http.StatusOK, records)
}

// UpsertFrameworkRegistration handles PUT /api/frameworks/registrations.
func (s *Service) UpsertFrameworkRegistration(c *gin.Context) {
	user := middleware.CurrentUser(c)

	var req api.FrameworkRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		sendError(c, http.StatusBadRequest, "Invalid registration payload")
		return
	}

	reg := &store.FrameworkRegistration{
		CompanyID:          user.CompanyID,
		FrameworkName:      req.FrameworkName,
		RegistrationNumber: req.RegistrationNumber,
		RegistrationDate:   req.RegistrationDate,
		Status:             req.Status,
		RenewalDate:        req.RenewalDate,
	}
	if reg.Status == "" {
		reg.Status = "pending"
	}
	if err := s.store.UpsertFrameworkRegistration(c.Request.Context(), reg); err != nil {
		sendError(c, http.StatusInternalServerError, "Internal error")
		return
	}

	s.audit(c, "framework_register", "framework", reg.FrameworkName, map[string]string{"status": reg.Status})
	c.JSON(http.StatusOK, reg)
}

// ListFrameworkRegistrations handles GET /api/frameworks/registrations.
func (s *Service) ListFrameworkRegistrations(c *gin.Context) {
	user := middleware.CurrentUser(c)
	regs, err := s.store.ListFrameworkRegistrations(c.Request.Context(), user.CompanyID)
	if err != nil {
		sendError(c, http.StatusInternalServerError, "Internal error")
		return
	}
	c.JSON(http.StatusOK, regs)
}
