// Package report assembles ESG assessment reports from stored platform
// data and renders them as JSON, HTML, or PDF.
package report

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/greenscope/greenscope/catalog"
	"github.com/greenscope/greenscope/scoring"
	"github.com/greenscope/greenscope/store"
	"github.com/greenscope/greenscope/taskgen"
)

// Metadata describes a generated report.
type Metadata struct {
	CompanyName      string    `json:"company_name"`
	Sector           string    `json:"sector"`
	ReportingPeriod  string    `json:"reporting_period"`
	GenerationDate   time.Time `json:"generation_date"`
	Frameworks       []string  `json:"frameworks"`
	LocationsCount   int       `json:"locations_count"`
	DataCompleteness float64   `json:"data_completeness"`
}

// Statistics aggregates task progress for the report body.
type Statistics struct {
	TotalTasks        int                                  `json:"total_tasks"`
	CompletedTasks    int                                  `json:"completed_tasks"`
	InProgressTasks   int                                  `json:"in_progress_tasks"`
	PendingReview     int                                  `json:"pending_review_tasks"`
	TodoTasks         int                                  `json:"todo_tasks"`
	CompletionPercent float64                              `json:"completion_percentage"`
	ByCategory        map[string]int                       `json:"category_breakdown"`
	FrameworkCoverage map[string]taskgen.FrameworkCoverage `json:"framework_coverage"`
	EvidenceFiles     int                                  `json:"evidence_files"`
	TasksWithEvidence int                                  `json:"tasks_with_evidence"`
}

// Recommendation is one improvement suggestion in priority order.
type Recommendation struct {
	Priority string `json:"priority"`
	Area     string `json:"area"`
	Text     string `json:"text"`
}

// Data is the complete report payload.
type Data struct {
	Metadata        Metadata                     `json:"metadata"`
	Scores          scoring.Scores               `json:"esg_scores"`
	CarbonFootprint scoring.CarbonFootprint      `json:"carbon_footprint"`
	ComplianceRates []scoring.ComplianceRate     `json:"compliance_rates"`
	Benchmark       scoring.BenchmarkComparison  `json:"benchmark_comparison"`
	Statistics      Statistics                   `json:"statistics"`
	TasksByCategory map[string][]*store.Task     `json:"tasks_by_category"`
	EvidenceByTask  map[string][]*store.Evidence `json:"evidence_by_task,omitempty"`
	ScopingSummary  *store.ScopingResponse       `json:"scoping_summary,omitempty"`
	Recommendations []Recommendation             `json:"recommendations"`
	Validation      ValidationResult             `json:"validation"`
}

// Builder gathers report data from the store.
type Builder struct {
	store   *store.Store
	catalog *catalog.Catalog
	calc    *scoring.Calculator
}

// NewBuilder wires a report builder over the store and catalog.
func NewBuilder(s *store.Store, c *catalog.Catalog) *Builder {
	return &Builder{store: s, catalog: c, calc: scoring.NewCalculator()}
}

// Build assembles a full report for the company. includeEvidence controls
// whether per-task evidence listings are attached.
func (b *Builder) Build(ctx context.Context, companyID string, includeEvidence bool) (*Data, error) {
	company, err := b.store.GetCompany(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load company for report: %w", err)
	}

	tasks, err := b.store.ListAllTasks(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load tasks for report: %w", err)
	}

	locations, err := b.store.ListLocations(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load locations for report: %w", err)
	}

	scopingResp, err := b.store.LatestScopingResponse(ctx, companyID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("failed to load scoping response for report: %w", err)
	}

	evidenceCounts, err := b.store.CountEvidenceByTask(ctx, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to count evidence for report: %w", err)
	}

	facilities, employees, err := b.facilityUsage(ctx, company, scopingResp)
	if err != nil {
		return nil, err
	}

	answered := b.answeredQuestions(company.BusinessSector, scopingResp)
	frameworks := catalog.NormalizeFrameworks(b.catalog.Frameworks(company.BusinessSector))

	footprint := b.calc.CalculateCarbonFootprint(facilities, employees)
	data := &Data{
		Scores:          b.calc.CalculateScores(answered, tasks, company.BusinessSector),
		CarbonFootprint: footprint,
		ComplianceRates: b.calc.ComplianceRates(tasks, frameworks),
		Benchmark:       b.calc.CompareToBenchmarks(facilities, footprint, company.BusinessSector),
		Statistics:      buildStatistics(tasks, evidenceCounts),
		TasksByCategory: groupByCategory(tasks),
		ScopingSummary:  scopingResp,
	}
	data.Validation = Validate(company, tasks, scopingResp, facilities)
	data.Metadata = Metadata{
		CompanyName:      company.Name,
		Sector:           string(company.BusinessSector),
		ReportingPeriod:  time.Now().UTC().Format("2006"),
		GenerationDate:   time.Now().UTC(),
		Frameworks:       frameworks,
		LocationsCount:   len(locations),
		DataCompleteness: data.Validation.CompletenessScore,
	}
	data.Recommendations = recommend(data)

	if includeEvidence {
		evidenceByTask := make(map[string][]*store.Evidence)
		for _, t := range tasks {
			if evidenceCounts[t.ID] == 0 {
				continue
			}
			items, err := b.store.ListEvidenceByTask(ctx, t.ID)
			if err != nil {
				return nil, fmt.Errorf("failed to load evidence for report: %w", err)
			}
			evidenceByTask[t.ID] = items
		}
		data.EvidenceByTask = evidenceByTask
	}
	return data, nil
}

// facilityUsage derives facility consumption from utility meters and their
// most recent readings. Each meter's latest reading stands in for monthly
// consumption. Floor area comes from the scoping wizard preferences and is
// split evenly across facilities with meters.
func (b *Builder) facilityUsage(ctx context.Context, company *store.Company, resp *store.ScopingResponse) ([]scoring.FacilityUsage, int, error) {
	meters, err := b.store.ListMeters(ctx, company.ID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load meters for report: %w", err)
	}

	byLocation := make(map[string]*scoring.FacilityUsage)
	order := []string{}
	get := func(name string) *scoring.FacilityUsage {
		if f, ok := byLocation[name]; ok {
			return f
		}
		f := &scoring.FacilityUsage{Name: name}
		byLocation[name] = f
		order = append(order, name)
		return f
	}

	for _, m := range meters {
		if !m.IsActive {
			continue
		}
		records, err := b.store.ListConsumptionRecords(ctx, m.ID)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to load consumption for report: %w", err)
		}
		if len(records) == 0 {
			continue
		}
		latest := records[0].Consumption
		f := get(m.LocationName)
		switch m.MeterType {
		case store.MeterElectricity:
			f.Utilities.ElectricityKWh += latest
		case store.MeterWater:
			f.Utilities.WaterM3 += latest
		case store.MeterGas:
			f.Utilities.NaturalGasKg += latest
		}
	}

	usage := make([]scoring.FacilityUsage, 0, len(order))
	for _, name := range order {
		usage = append(usage, *byLocation[name])
	}

	if resp != nil && len(usage) > 0 {
		if raw, ok := resp.Preferences["floor_area_sqm"]; ok {
			if area, err := strconv.ParseFloat(raw, 64); err == nil && area > 0 {
				share := area / float64(len(usage))
				for i := range usage {
					usage[i].FloorAreaSqm = share
				}
			}
		}
	}

	// Employee headcount approximated by registered users until HR data
	// exists on the platform.
	stats, err := b.store.CompanyStats(ctx, company.ID)
	if err != nil {
		return nil, 0, err
	}
	return usage, stats.TotalUsers, nil
}

func (b *Builder) answeredQuestions(sector store.BusinessSector, resp *store.ScopingResponse) []scoring.AnsweredQuestion {
	if resp == nil {
		return nil
	}
	questions, ok := b.catalog.Questions(sector)
	if !ok {
		return nil
	}
	var answered []scoring.AnsweredQuestion
	for _, q := range questions {
		if answer, ok := resp.Answers[q.ID]; ok {
			answered = append(answered, scoring.AnsweredQuestion{Question: q, Answer: answer})
		}
	}
	return answered
}

func buildStatistics(tasks []*store.Task, evidenceCounts map[string]int) Statistics {
	stats := Statistics{
		ByCategory:        make(map[string]int),
		FrameworkCoverage: taskgen.Coverage(tasks),
	}
	for _, t := range tasks {
		stats.TotalTasks++
		stats.ByCategory[string(t.Category)]++
		switch t.Status {
		case store.StatusCompleted:
			stats.CompletedTasks++
		case store.StatusInProgress:
			stats.InProgressTasks++
		case store.StatusPendingReview:
			stats.PendingReview++
		default:
			stats.TodoTasks++
		}
	}
	if stats.TotalTasks > 0 {
		stats.CompletionPercent = float64(stats.CompletedTasks) / float64(stats.TotalTasks) * 100
	}
	for _, n := range evidenceCounts {
		stats.EvidenceFiles += n
		stats.TasksWithEvidence++
	}
	return stats
}

var priorityOrder = map[store.TaskPriority]int{
	store.PriorityHigh:   0,
	store.PriorityMedium: 1,
	store.PriorityLow:    2,
}

func sortTasksForDisplay(tasks []*store.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		if priorityOrder[tasks[i].Priority] != priorityOrder[tasks[j].Priority] {
			return priorityOrder[tasks[i].Priority] < priorityOrder[tasks[j].Priority]
		}
		return tasks[i].Title < tasks[j].Title
	})
}

func groupByCategory(tasks []*store.Task) map[string][]*store.Task {
	grouped := make(map[string][]*store.Task)
	for _, t := range tasks {
		grouped[string(t.Category)] = append(grouped[string(t.Category)], t)
	}
	return grouped
}

// recommend derives improvement suggestions from the weakest areas.
func recommend(d *Data) []Recommendation {
	var recs []Recommendation

	if d.Scores.Governance < 50 {
		recs = append(recs, Recommendation{
			Priority: "high", Area: "governance",
			Text: "Formalize a sustainability policy and appoint a coordinator; governance gaps block most certifications.",
		})
	}
	if d.Scores.Environmental < 50 {
		recs = append(recs, Recommendation{
			Priority: "high", Area: "environmental",
			Text: "Set up monthly utility tracking for all sites; consumption baselines are required by every framework in scope.",
		})
	}
	if d.Benchmark.Electricity == scoring.PerformanceInefficient {
		recs = append(recs, Recommendation{
			Priority: "medium", Area: "energy",
			Text: "Electricity intensity is above the sector benchmark; schedule an energy audit and prioritize HVAC and lighting retrofits.",
		})
	}
	if d.Benchmark.Water == scoring.PerformanceInefficient {
		recs = append(recs, Recommendation{
			Priority: "medium", Area: "water",
			Text: "Water intensity is above the sector benchmark; install low-flow fixtures and check irrigation schedules.",
		})
	}
	for _, rate := range d.ComplianceRates {
		if rate.Total > 0 && rate.Rate < 40 {
			recs = append(recs, Recommendation{
				Priority: "medium", Area: "compliance",
				Text: fmt.Sprintf("%s task completion is at %.0f%%; review open tasks and attach pending evidence.", rate.Framework, rate.Rate),
			})
		}
	}
	if d.Statistics.TotalTasks > 0 && d.Statistics.TasksWithEvidence == 0 {
		recs = append(recs, Recommendation{
			Priority: "low", Area: "evidence",
			Text: "No evidence files uploaded yet; start with utility bills and policy documents for completed tasks.",
		})
	}
	return recs
}
