package report

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"
)

var htmlTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"title": titleCase,
	"pct":   func(v float64) string { return fmt.Sprintf("%.1f%%", v) },
	"num":   func(v float64) string { return fmt.Sprintf("%.1f", v) },
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>ESG Report - {{.Metadata.CompanyName}}</title>
<style>
body { font-family: Arial, Helvetica, sans-serif; margin: 2rem auto; max-width: 60rem; color: #1f2933; }
h1 { color: #14532d; border-bottom: 3px solid #16a34a; padding-bottom: .5rem; }
h2 { color: #166534; margin-top: 2rem; }
table { border-collapse: collapse; width: 100%; margin: 1rem 0; }
th, td { border: 1px solid #d1d5db; padding: .5rem .75rem; text-align: left; }
th { background: #f0fdf4; }
.scorecard { display: flex; gap: 1rem; }
.score { flex: 1; border: 1px solid #d1d5db; border-radius: .5rem; padding: 1rem; text-align: center; }
.score strong { font-size: 2rem; display: block; color: #166534; }
.priority-high { color: #b91c1c; font-weight: bold; }
.priority-medium { color: #b45309; }
.priority-low { color: #4b5563; }
.meta { color: #6b7280; font-size: .9rem; }
</style>
</head>
<body>
<h1>ESG Assessment Report</h1>
<p class="meta">{{.Metadata.CompanyName}} &middot; {{title .Metadata.Sector}} &middot; Reporting period {{.Metadata.ReportingPeriod}} &middot; Generated {{.Metadata.GenerationDate.Format "2 Jan 2006"}}</p>

<h2>ESG Scores</h2>
<div class="scorecard">
<div class="score"><strong>{{num .Scores.Overall}}</strong>Overall</div>
<div class="score"><strong>{{num .Scores.Environmental}}</strong>Environmental</div>
<div class="score"><strong>{{num .Scores.Social}}</strong>Social</div>
<div class="score"><strong>{{num .Scores.Governance}}</strong>Governance</div>
</div>

<h2>Carbon Footprint</h2>
<table>
<tr><th>Total annual</th><td>{{num .CarbonFootprint.TotalAnnual}} tCO2e</td></tr>
<tr><th>Scope 1</th><td>{{num .CarbonFootprint.Scope1}} tCO2e</td></tr>
<tr><th>Scope 2</th><td>{{num .CarbonFootprint.Scope2}} tCO2e</td></tr>
<tr><th>Per square metre</th><td>{{printf "%.4f" .CarbonFootprint.EmissionsPerSqm}} tCO2e/sqm</td></tr>
<tr><th>Per employee</th><td>{{num .CarbonFootprint.EmissionsPerEmployee}} tCO2e</td></tr>
</table>

<h2>Benchmark Comparison</h2>
<table>
<tr><th>Electricity</th><th>Water</th><th>Carbon</th><th>Overall</th></tr>
<tr>
<td>{{title (printf "%s" .Benchmark.Electricity)}}</td>
<td>{{title (printf "%s" .Benchmark.Water)}}</td>
<td>{{title (printf "%s" .Benchmark.Carbon)}}</td>
<td>{{title (printf "%s" .Benchmark.OverallRanking)}}</td>
</tr>
</table>

<h2>Framework Compliance</h2>
<table>
<tr><th>Framework</th><th>Completed</th><th>Total</th><th>Rate</th></tr>
{{range .ComplianceRates}}
<tr><td>{{.Framework}}</td><td>{{.Completed}}</td><td>{{.Total}}</td><td>{{pct .Rate}}</td></tr>
{{end}}
</table>

<h2>Task Progress</h2>
<p>{{.Statistics.CompletedTasks}} of {{.Statistics.TotalTasks}} tasks completed ({{pct .Statistics.CompletionPercent}}). {{.Statistics.InProgressTasks}} in progress, {{.Statistics.PendingReview}} pending review, {{.Statistics.TodoTasks}} not started. {{.Statistics.EvidenceFiles}} evidence files across {{.Statistics.TasksWithEvidence}} tasks.</p>

{{range $category, $tasks := .TasksByCategory}}
<h2>{{title $category}} Tasks</h2>
<table>
<tr><th>Task</th><th>Priority</th><th>Status</th><th>Due</th></tr>
{{range $tasks}}
<tr>
<td>{{.Title}}</td>
<td class="priority-{{.Priority}}">{{title (printf "%s" .Priority)}}</td>
<td>{{title (printf "%s" .Status)}}</td>
<td>{{if .DueDate}}{{.DueDate.Format "2 Jan 2006"}}{{else}}&mdash;{{end}}</td>
</tr>
{{end}}
</table>
{{end}}

{{if .Recommendations}}
<h2>Recommendations</h2>
<table>
<tr><th>Priority</th><th>Area</th><th>Recommendation</th></tr>
{{range .Recommendations}}
<tr><td class="priority-{{.Priority}}">{{title .Priority}}</td><td>{{title .Area}}</td><td>{{.Text}}</td></tr>
{{end}}
</table>
{{end}}

{{if .Validation.Issues}}
<h2>Data Notes</h2>
<ul>
{{range .Validation.Issues}}<li><em>{{.Severity}}</em>: {{.Message}}</li>
{{end}}</ul>
<p class="meta">Data completeness {{pct .Validation.CompletenessScore}}, quality {{pct .Validation.QualityScore}}.</p>
{{end}}
</body>
</html>
`))

// RenderHTML renders the report as a standalone HTML document.
func RenderHTML(d *Data) ([]byte, error) {
	// Templates iterate maps in sorted key order, so category sections
	// come out stable without extra work. Pre-sort tasks inside each
	// category by priority for readability.
	for _, tasks := range d.TasksByCategory {
		sortTasksForDisplay(tasks)
	}
	var buf bytes.Buffer
	if err := htmlTemplate.Execute(&buf, d); err != nil {
		return nil, fmt.Errorf("failed to render HTML report: %w", err)
	}
	return buf.Bytes(), nil
}

func titleCase(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool { return r == '_' || r == ' ' })
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
