// Package taskgen derives compliance tasks from scoping wizard answers.
// The rules are a deterministic table: which answers need follow-up, how
// urgent the follow-up is, and which framework-mandated tasks apply
// regardless of answers.
package taskgen

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/greenscope/greenscope/catalog"
	"github.com/greenscope/greenscope/store"
)

// Generator turns catalog questions plus answers into tasks.
type Generator struct {
	catalog *catalog.Catalog
	now     func() time.Time
}

// New builds a generator over the given catalog.
func New(c *catalog.Catalog) *Generator {
	return &Generator{catalog: c, now: time.Now}
}

var highPriorityKeywords = []string{
	"mandatory", "required", "compliance", "legal", "regulation",
	"policy", "management", "committee", "carbon calculator",
}

var mediumPriorityKeywords = []string{
	"training", "monitoring", "tracking", "reporting",
}

// GenerateFromScoping produces the task list for a completed wizard run.
// Answers are keyed by question ID. Unanswered questions produce no task.
func (g *Generator) GenerateFromScoping(companyID string, sector store.BusinessSector, answers map[string]string) []*store.Task {
	questions, ok := g.catalog.Questions(sector)
	if !ok {
		return nil
	}

	var tasks []*store.Task
	for _, q := range questions {
		answer, answered := answers[q.ID]
		if !answered {
			continue
		}
		if !taskNeeded(q.Type, answer) {
			continue
		}

		priority := questionPriority(q)
		due := g.dueDate(priority)
		tasks = append(tasks, &store.Task{
			CompanyID:         companyID,
			Title:             taskTitle(q.Text),
			Description:       q.Rationale,
			ComplianceContext: strings.Join(q.Frameworks, ", "),
			ActionRequired:    q.DataSource,
			Status:            store.StatusTodo,
			Category:          taskCategory(q),
			Priority:          priority,
			FrameworkTags:     catalog.NormalizeFrameworks(q.Frameworks),
			RequiredEvidence:  evidenceCount(q),
			DueDate:           &due,
		})
	}

	tasks = append(tasks, g.frameworkTasks(companyID, sector)...)
	sortTasks(tasks)
	return tasks
}

// taskNeeded decides whether an answer calls for a follow-up task.
// A "no" to a yes/no question means the control is missing; a zero count
// means nothing is in place; any free-text answer gets a follow-up.
func taskNeeded(qt catalog.QuestionType, answer string) bool {
	switch qt {
	case catalog.QuestionYesNo:
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "no", "false", "0":
			return true
		}
		return false
	case catalog.QuestionNumber:
		v, err := strconv.ParseFloat(strings.TrimSpace(answer), 64)
		if err != nil {
			return true
		}
		return v == 0
	default:
		return strings.TrimSpace(answer) != ""
	}
}

// taskTitle converts a wizard question into an actionable title.
func taskTitle(question string) string {
	trimmed := strings.TrimSuffix(strings.TrimSpace(question), "?")
	lower := strings.ToLower(trimmed)
	if strings.HasPrefix(lower, "do you ") {
		return "Implement " + trimmed[len("do you "):]
	}
	return "Establish " + strings.ToLower(trimmed)
}

func questionPriority(q catalog.Question) store.TaskPriority {
	haystack := strings.ToLower(q.Text + " " + strings.Join(q.Frameworks, " ") + " " + q.Rationale)
	for _, kw := range highPriorityKeywords {
		if strings.Contains(haystack, kw) {
			return store.PriorityHigh
		}
	}
	for _, kw := range mediumPriorityKeywords {
		if strings.Contains(haystack, kw) {
			return store.PriorityMedium
		}
	}
	return store.PriorityLow
}

// dueDate gives high-priority tasks 30 days, medium 60, low 90.
func (g *Generator) dueDate(p store.TaskPriority) time.Time {
	days := 90
	switch p {
	case store.PriorityHigh:
		days = 30
	case store.PriorityMedium:
		days = 60
	}
	return g.now().UTC().AddDate(0, 0, days)
}

func taskCategory(q catalog.Question) store.TaskCategory {
	if q.TaskCategory != "" {
		return q.TaskCategory
	}
	return store.CategoryEnvironmental
}

// evidenceCount honours the catalog's count when set, otherwise infers it
// from the data source: bills and invoices need multiple months, records
// need a couple of samples, a policy needs one document.
func evidenceCount(q catalog.Question) int {
	if q.Evidence > 0 {
		return q.Evidence
	}
	source := strings.ToLower(q.DataSource)
	switch {
	case strings.Contains(source, "bills") || strings.Contains(source, "invoices"):
		return 3
	case strings.Contains(source, "records") || strings.Contains(source, "logs"):
		return 2
	default:
		return 1
	}
}

// frameworkTasks are mandated by a framework's presence in the sector,
// independent of wizard answers.
func (g *Generator) frameworkTasks(companyID string, sector store.BusinessSector) []*store.Task {
	type mandate struct {
		framework string
		title     string
		desc      string
		category  store.TaskCategory
		priority  store.TaskPriority
		context   string
	}
	mandates := []mandate{
		{
			framework: "DST",
			title:     "Register for the DST Carbon Calculator",
			desc:      "Complete mandatory registration for the Dubai Sustainable Tourism Carbon Calculator.",
			category:  store.CategoryGovernance,
			priority:  store.PriorityHigh,
			context:   "Dubai Sustainable Tourism mandatory requirement",
		},
		{
			framework: "Green Key",
			title:     "Green Key certification assessment",
			desc:      "Conduct an initial gap assessment against the Green Key Global criteria.",
			category:  store.CategoryEnvironmental,
			priority:  store.PriorityMedium,
			context:   "Green Key Global voluntary certification",
		},
	}

	frameworks := catalog.NormalizeFrameworks(g.catalog.Frameworks(sector))
	active := make(map[string]bool, len(frameworks))
	for _, f := range frameworks {
		active[f] = true
	}

	var tasks []*store.Task
	for _, m := range mandates {
		if !active[m.framework] {
			continue
		}
		due := g.dueDate(m.priority)
		tasks = append(tasks, &store.Task{
			CompanyID:         companyID,
			Title:             m.title,
			Description:       m.desc,
			ComplianceContext: m.context,
			ActionRequired:    "Complete " + m.framework + " requirements",
			Status:            store.StatusTodo,
			Category:          m.category,
			Priority:          m.priority,
			FrameworkTags:     []string{m.framework},
			RequiredEvidence:  1,
			DueDate:           &due,
		})
	}
	return tasks
}

var priorityOrder = map[store.TaskPriority]int{
	store.PriorityHigh:   0,
	store.PriorityMedium: 1,
	store.PriorityLow:    2,
}

func sortTasks(tasks []*store.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		pi, pj := priorityOrder[tasks[i].Priority], priorityOrder[tasks[j].Priority]
		if pi != pj {
			return pi < pj
		}
		di, dj := tasks[i].DueDate, tasks[j].DueDate
		if di == nil || dj == nil {
			return dj == nil && di != nil
		}
		return di.Before(*dj)
	})
}

// FrameworkCoverage summarizes task progress per framework tag, the
// "collect once, use many" view of the task list.
type FrameworkCoverage struct {
	Total      int `json:"total"`
	Completed  int `json:"completed"`
	InProgress int `json:"in_progress"`
	Pending    int `json:"pending"`
}

// Coverage computes per-framework progress across tasks.
func Coverage(tasks []*store.Task) map[string]FrameworkCoverage {
	coverage := make(map[string]FrameworkCoverage)
	for _, t := range tasks {
		for _, framework := range t.FrameworkTags {
			c := coverage[framework]
			c.Total++
			switch t.Status {
			case store.StatusCompleted:
				c.Completed++
			case store.StatusInProgress:
				c.InProgress++
			case store.StatusPendingReview:
				c.Pending++
			}
			coverage[framework] = c
		}
	}
	return coverage
}

// PriorityTasks returns up to limit open tasks, mandatory-tagged tasks
// first, then by due date.
func PriorityTasks(tasks []*store.Task, limit int) []*store.Task {
	var open []*store.Task
	for _, t := range tasks {
		if t.Status == store.StatusTodo || t.Status == store.StatusInProgress {
			open = append(open, t)
		}
	}
	sort.SliceStable(open, func(i, j int) bool {
		mi, mj := hasMandatoryTag(open[i]), hasMandatoryTag(open[j])
		if mi != mj {
			return mi
		}
		di, dj := open[i].DueDate, open[j].DueDate
		if di == nil || dj == nil {
			return dj == nil && di != nil
		}
		return di.Before(*dj)
	})
	if limit > 0 && len(open) > limit {
		open = open[:limit]
	}
	return open
}

func hasMandatoryTag(t *store.Task) bool {
	haystack := strings.ToLower(t.ComplianceContext)
	for _, tag := range t.FrameworkTags {
		haystack += " " + strings.ToLower(tag)
	}
	return strings.Contains(haystack, "mandatory") || strings.Contains(haystack, "dst") ||
		strings.Contains(haystack, "climate law")
}
