package report

import (
	"fmt"
	"time"

	"github.com/greenscope/greenscope/scoring"
	"github.com/greenscope/greenscope/store"
)

// Issue flags a data quality problem found while assembling a report.
type Issue struct {
	Severity string `json:"severity"`
	Field    string `json:"field"`
	Message  string `json:"message"`
}

// ValidationResult summarizes how complete and trustworthy the report
// inputs are. Scores run 0-100.
type ValidationResult struct {
	CompletenessScore float64 `json:"completeness_score"`
	QualityScore      float64 `json:"quality_score"`
	Issues            []Issue `json:"issues,omitempty"`
}

// Validate checks the report inputs for gaps and inconsistencies. It never
// fails; missing data lowers the scores and adds issues instead.
func Validate(company *store.Company, tasks []*store.Task, resp *store.ScopingResponse, facilities []scoring.FacilityUsage) ValidationResult {
	var result ValidationResult
	var have, want float64

	check := func(ok bool, weight float64, severity, field, message string) {
		want += weight
		if ok {
			have += weight
			return
		}
		result.Issues = append(result.Issues, Issue{Severity: severity, Field: field, Message: message})
	}

	check(company.Name != "", 1, "error", "company.name", "company name is missing")
	check(company.BusinessSector != "", 2, "error", "company.business_sector", "business sector is not set; sector benchmarks unavailable")
	check(company.ScopingCompleted, 3, "warning", "company.esg_scoping_completed", "scoping wizard not completed; assessment scores are partial")
	check(resp != nil && len(resp.Answers) > 0, 2, "warning", "scoping.answers", "no scoping answers on record")
	check(len(tasks) > 0, 2, "warning", "tasks", "no compliance tasks generated yet")
	check(len(facilities) > 0, 2, "warning", "meters", "no utility readings on record; carbon footprint is zero")

	hasFloorArea := false
	for _, f := range facilities {
		if f.FloorAreaSqm > 0 {
			hasFloorArea = true
			break
		}
	}
	check(len(facilities) == 0 || hasFloorArea, 1, "info", "facilities.floor_area",
		"floor area unknown; intensity benchmarks degrade to unknown")

	if want > 0 {
		result.CompletenessScore = round1(have / want * 100)
	}

	result.QualityScore = qualityScore(tasks, resp, &result)
	return result
}

func qualityScore(tasks []*store.Task, resp *store.ScopingResponse, result *ValidationResult) float64 {
	score := 100.0
	now := time.Now().UTC()

	var overdue int
	for _, t := range tasks {
		if t.DueDate != nil && t.DueDate.Before(now) && t.Status != store.StatusCompleted {
			overdue++
		}
	}
	if overdue > 0 {
		score -= float64(overdue) * 2
		result.Issues = append(result.Issues, Issue{
			Severity: "warning", Field: "tasks.due_date",
			Message: fmt.Sprintf("%d tasks are overdue", overdue),
		})
	}

	if resp != nil && now.Sub(resp.CompletedAt) > 365*24*time.Hour {
		score -= 20
		result.Issues = append(result.Issues, Issue{
			Severity: "warning", Field: "scoping.completed_at",
			Message: "scoping assessment is over a year old; answers may be stale",
		})
	}

	if score < 0 {
		score = 0
	}
	return round1(score)
}

func round1(v float64) float64 {
	return float64(int(v*10+0.5)) / 10
}
