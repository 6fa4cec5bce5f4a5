// Package scoring computes ESG scores, carbon footprints, framework
// compliance rates, and sector benchmark comparisons.
package scoring

import (
	"math"
	"strings"

	"github.com/greenscope/greenscope/catalog"
	"github.com/greenscope/greenscope/store"
)

// Scores is the ESG score breakdown, each on a 0..100 scale.
type Scores struct {
	Overall       float64 `json:"overall"`
	Environmental float64 `json:"environmental"`
	Social        float64 `json:"social"`
	Governance    float64 `json:"governance"`
}

// pillar maps a task category onto an ESG pillar.
func pillar(c store.TaskCategory) string {
	switch c {
	case store.CategoryGovernance, store.CategorySupplyChain:
		return "governance"
	case store.CategorySocial:
		return "social"
	default:
		return "environmental"
	}
}

// sectorWeights holds per-sector pillar weightings for the overall score.
var sectorWeights = map[store.BusinessSector][3]float64{
	// environmental, social, governance
	store.SectorHospitality:   {0.45, 0.35, 0.20},
	store.SectorManufacturing: {0.50, 0.30, 0.20},
	store.SectorConstruction:  {0.45, 0.35, 0.20},
	store.SectorHealth:        {0.35, 0.45, 0.20},
	store.SectorEducation:     {0.30, 0.50, 0.20},
	store.SectorLogistics:     {0.50, 0.25, 0.25},
}

var defaultWeights = [3]float64{0.40, 0.30, 0.30}

// AnsweredQuestion pairs a catalog question with the answer given.
type AnsweredQuestion struct {
	Question catalog.Question
	Answer   string
}

// Calculator is the ESG calculation engine.
type Calculator struct{}

// NewCalculator returns a calculator with the UAE factor tables.
func NewCalculator() *Calculator {
	return &Calculator{}
}

// CalculateScores combines wizard answers (40%) and task completion (60%)
// per pillar, then weights the pillars by sector.
func (c *Calculator) CalculateScores(answers []AnsweredQuestion, tasks []*store.Task, sector store.BusinessSector) Scores {
	env := c.pillarScore(answers, tasks, "environmental")
	soc := c.pillarScore(answers, tasks, "social")
	gov := c.pillarScore(answers, tasks, "governance")

	w, ok := sectorWeights[sector]
	if !ok {
		w = defaultWeights
	}
	overall := env*w[0] + soc*w[1] + gov*w[2]

	return Scores{
		Overall:       round1(clamp(overall)),
		Environmental: round1(env),
		Social:        round1(soc),
		Governance:    round1(gov),
	}
}

func (c *Calculator) pillarScore(answers []AnsweredQuestion, tasks []*store.Task, p string) float64 {
	var pillarAnswers []AnsweredQuestion
	for _, a := range answers {
		if pillar(a.Question.TaskCategory) == p {
			pillarAnswers = append(pillarAnswers, a)
		}
	}
	var pillarTasks []*store.Task
	for _, t := range tasks {
		if pillar(t.Category) == p {
			pillarTasks = append(pillarTasks, t)
		}
	}
	if len(pillarAnswers) == 0 && len(pillarTasks) == 0 {
		return 0
	}
	score := scoreAnswers(pillarAnswers)*0.4 + scoreTasks(pillarTasks)*0.6
	return clamp(score)
}

// scoreAnswers scores affirmative answers, weighting each question by the
// number of frameworks that reference it.
func scoreAnswers(answers []AnsweredQuestion) float64 {
	if len(answers) == 0 {
		return 0
	}
	var total, weight float64
	for _, a := range answers {
		w := math.Max(1, float64(len(a.Question.Frameworks)))
		var s float64
		switch a.Question.Type {
		case catalog.QuestionYesNo:
			if isAffirmative(a.Answer) {
				s = 100
			}
		default:
			if strings.TrimSpace(a.Answer) != "" {
				s = 100
			}
		}
		total += s * w
		weight += w
	}
	if weight == 0 {
		return 0
	}
	return total / weight
}

func isAffirmative(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "yes", "true", "1":
		return true
	}
	return false
}

// scoreTasks scores task completion: completed 100, in progress 50,
// otherwise 0, weighted by priority and framework count.
func scoreTasks(tasks []*store.Task) float64 {
	if len(tasks) == 0 {
		return 0
	}
	var total, weight float64
	for _, t := range tasks {
		pw := map[store.TaskPriority]float64{
			store.PriorityHigh:   3,
			store.PriorityMedium: 2,
			store.PriorityLow:    1,
		}[t.Priority]
		if pw == 0 {
			pw = 1
		}
		fw := math.Max(1, float64(len(t.FrameworkTags)))
		w := pw * fw

		var s float64
		switch t.Status {
		case store.StatusCompleted:
			s = 100
		case store.StatusInProgress:
			s = 50
		}
		total += s * w
		weight += w
	}
	if weight == 0 {
		return 0
	}
	return total / weight
}

// ComplianceRate is one framework's task completion ratio.
type ComplianceRate struct {
	Framework string  `json:"framework"`
	Rate      float64 `json:"rate"`
	Completed int     `json:"completed"`
	Total     int     `json:"total"`
}

// ComplianceRates computes the completion rate per framework.
func (c *Calculator) ComplianceRates(tasks []*store.Task, frameworks []string) []ComplianceRate {
	rates := make([]ComplianceRate, 0, len(frameworks))
	for _, framework := range frameworks {
		var total, completed int
		for _, t := range tasks {
			if !hasTag(t, framework) {
				continue
			}
			total++
			if t.Status == store.StatusCompleted {
				completed++
			}
		}
		rate := 0.0
		if total > 0 {
			rate = float64(completed) / float64(total) * 100
		}
		rates = append(rates, ComplianceRate{
			Framework: framework,
			Rate:      round1(rate),
			Completed: completed,
			Total:     total,
		})
	}
	return rates
}

func hasTag(t *store.Task, framework string) bool {
	for _, tag := range t.FrameworkTags {
		if strings.EqualFold(tag, framework) {
			return true
		}
	}
	return false
}

func clamp(v float64) float64 {
	return math.Min(100, math.Max(0, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
