package service

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/greenscope/greenscope/api"
	"github.com/greenscope/greenscope/internal/middleware"
	"github.com/greenscope/greenscope/report"
)

// GetReport handles GET /api/reports/esg. The format query parameter
// selects json (default), html, or pdf output.
func (s *Service) GetReport(c *gin.Context) {
	user := middleware.CurrentUser(c)
	includeEvidence := c.Query("include_evidence") == "true"

	data, err := s.reports.Build(c.Request.Context(), user.CompanyID, includeEvidence)
	if err != nil {
		s.logger.Error("report build failed",
			zap.String("company_id", user.CompanyID), zap.Error(err))
		sendError(c, http.StatusInternalServerError, "Failed to build report")
		return
	}

	s.audit(c, "report_generate", "company", user.CompanyID, map[string]string{
		"format": c.DefaultQuery("format", "json"),
	})

	switch c.DefaultQuery("format", "json") {
	case "json":
		c.JSON(http.StatusOK, api.ReportResponse{Report: data})
	case "html":
		html, err := report.RenderHTML(data)
		if err != nil {
			sendError(c, http.StatusInternalServerError, "Failed to render report")
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", html)
	case "pdf":
		pdf, err := report.RenderPDF(data)
		if err != nil {
			sendError(c, http.StatusInternalServerError, "Failed to render report")
			return
		}
		filename := fmt.Sprintf("esg-report-%s.pdf", time.Now().UTC().Format("2006-01-02"))
		c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
		c.Data(http.StatusOK, "application/pdf", pdf)
	default:
		sendError(c, http.StatusBadRequest, "format must be json, html, or pdf")
	}
}

// GetAnalytics handles GET /api/reports/analytics, the dashboard payload.
func (s *Service) GetAnalytics(c *gin.Context) {
	user := middleware.CurrentUser(c)
	ctx := c.Request.Context()

	data, err := s.reports.Build(ctx, user.CompanyID, false)
	if err != nil {
		sendError(c, http.StatusInternalServerError, "Failed to build analytics")
		return
	}
	taskStats, err := s.store.TaskStats(ctx, user.CompanyID)
	if err != nil {
		sendError(c, http.StatusInternalServerError, "Internal error")
		return
	}
	companyStats, err := s.store.CompanyStats(ctx, user.CompanyID)
	if err != nil {
		sendError(c, http.StatusInternalServerError, "Internal error")
		return
	}

	c.JSON(http.StatusOK, api.AnalyticsResponse{
		Scores:          data.Scores,
		CarbonFootprint: data.CarbonFootprint,
		Benchmark:       data.Benchmark,
		ComplianceRates: data.ComplianceRates,
		TaskStats:       taskStats,
		CompanyStats:    companyStats,
	})
}
