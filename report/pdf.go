package report

import (
	"bytes"
	"fmt"
	"sort"

	"github.com/go-pdf/fpdf"
)

const (
	pdfMarginMM   = 15
	pdfLineHeight = 6
)

// RenderPDF renders the report as an A4 PDF document.
func RenderPDF(d *Data) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMarginMM, pdfMarginMM, pdfMarginMM)
	pdf.SetAutoPageBreak(true, pdfMarginMM)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetTextColor(20, 83, 45)
	pdf.CellFormat(0, 10, "ESG Assessment Report", "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(107, 114, 128)
	meta := fmt.Sprintf("%s  |  %s  |  Reporting period %s  |  Generated %s",
		d.Metadata.CompanyName, titleCase(d.Metadata.Sector),
		d.Metadata.ReportingPeriod, d.Metadata.GenerationDate.Format("2 Jan 2006"))
	pdf.CellFormat(0, 6, meta, "", 1, "L", false, 0, "")
	pdf.Ln(4)

	writeScores(pdf, d)
	writeCarbon(pdf, d)
	writeBenchmark(pdf, d)
	writeCompliance(pdf, d)
	writeTasks(pdf, d)
	writeRecommendations(pdf, d)
	writeValidation(pdf, d)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render PDF report: %w", err)
	}
	return buf.Bytes(), nil
}

func sectionHeader(pdf *fpdf.Fpdf, title string) {
	pdf.Ln(3)
	pdf.SetFont("Helvetica", "B", 13)
	pdf.SetTextColor(22, 101, 52)
	pdf.CellFormat(0, 8, title, "", 1, "L", false, 0, "")
	pdf.SetTextColor(31, 41, 51)
}

func tableRow(pdf *fpdf.Fpdf, widths []float64, cells []string, header bool) {
	style := ""
	if header {
		style = "B"
		pdf.SetFillColor(240, 253, 244)
	}
	pdf.SetFont("Helvetica", style, 9)
	for i, cell := range cells {
		pdf.CellFormat(widths[i], pdfLineHeight, cell, "1", 0, "L", header, 0, "")
	}
	pdf.Ln(-1)
}

func writeScores(pdf *fpdf.Fpdf, d *Data) {
	sectionHeader(pdf, "ESG Scores")
	widths := []float64{45, 45, 45, 45}
	tableRow(pdf, widths, []string{"Overall", "Environmental", "Social", "Governance"}, true)
	tableRow(pdf, widths, []string{
		fmt.Sprintf("%.1f", d.Scores.Overall),
		fmt.Sprintf("%.1f", d.Scores.Environmental),
		fmt.Sprintf("%.1f", d.Scores.Social),
		fmt.Sprintf("%.1f", d.Scores.Governance),
	}, false)
}

func writeCarbon(pdf *fpdf.Fpdf, d *Data) {
	sectionHeader(pdf, "Carbon Footprint")
	widths := []float64{90, 90}
	tableRow(pdf, widths, []string{"Metric", "Value"}, true)
	tableRow(pdf, widths, []string{"Total annual", fmt.Sprintf("%.1f tCO2e", d.CarbonFootprint.TotalAnnual)}, false)
	tableRow(pdf, widths, []string{"Scope 1", fmt.Sprintf("%.1f tCO2e", d.CarbonFootprint.Scope1)}, false)
	tableRow(pdf, widths, []string{"Scope 2", fmt.Sprintf("%.1f tCO2e", d.CarbonFootprint.Scope2)}, false)
	tableRow(pdf, widths, []string{"Per square metre", fmt.Sprintf("%.4f tCO2e/sqm", d.CarbonFootprint.EmissionsPerSqm)}, false)
	tableRow(pdf, widths, []string{"Per employee", fmt.Sprintf("%.1f tCO2e", d.CarbonFootprint.EmissionsPerEmployee)}, false)
}

func writeBenchmark(pdf *fpdf.Fpdf, d *Data) {
	sectionHeader(pdf, "Benchmark Comparison")
	widths := []float64{45, 45, 45, 45}
	tableRow(pdf, widths, []string{"Electricity", "Water", "Carbon", "Overall"}, true)
	tableRow(pdf, widths, []string{
		titleCase(string(d.Benchmark.Electricity)),
		titleCase(string(d.Benchmark.Water)),
		titleCase(string(d.Benchmark.Carbon)),
		titleCase(string(d.Benchmark.OverallRanking)),
	}, false)
}

func writeCompliance(pdf *fpdf.Fpdf, d *Data) {
	if len(d.ComplianceRates) == 0 {
		return
	}
	sectionHeader(pdf, "Framework Compliance")
	widths := []float64{80, 35, 35, 30}
	tableRow(pdf, widths, []string{"Framework", "Completed", "Total", "Rate"}, true)
	for _, rate := range d.ComplianceRates {
		tableRow(pdf, widths, []string{
			rate.Framework,
			fmt.Sprintf("%d", rate.Completed),
			fmt.Sprintf("%d", rate.Total),
			fmt.Sprintf("%.1f%%", rate.Rate),
		}, false)
	}
}

func writeTasks(pdf *fpdf.Fpdf, d *Data) {
	categories := make([]string, 0, len(d.TasksByCategory))
	for c := range d.TasksByCategory {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	for _, category := range categories {
		tasks := d.TasksByCategory[category]
		sortTasksForDisplay(tasks)
		sectionHeader(pdf, titleCase(category)+" Tasks")
		widths := []float64{95, 25, 35, 25}
		tableRow(pdf, widths, []string{"Task", "Priority", "Status", "Due"}, true)
		for _, t := range tasks {
			due := "-"
			if t.DueDate != nil {
				due = t.DueDate.Format("2 Jan 2006")
			}
			tableRow(pdf, widths, []string{
				truncate(t.Title, 60),
				titleCase(string(t.Priority)),
				titleCase(string(t.Status)),
				due,
			}, false)
		}
	}
}

func writeRecommendations(pdf *fpdf.Fpdf, d *Data) {
	if len(d.Recommendations) == 0 {
		return
	}
	sectionHeader(pdf, "Recommendations")
	pdf.SetFont("Helvetica", "", 9)
	for _, rec := range d.Recommendations {
		line := fmt.Sprintf("[%s] %s: %s", titleCase(rec.Priority), titleCase(rec.Area), rec.Text)
		pdf.MultiCell(0, 5, line, "", "L", false)
		pdf.Ln(1)
	}
}

func writeValidation(pdf *fpdf.Fpdf, d *Data) {
	if len(d.Validation.Issues) == 0 {
		return
	}
	sectionHeader(pdf, "Data Notes")
	pdf.SetFont("Helvetica", "", 9)
	for _, issue := range d.Validation.Issues {
		pdf.MultiCell(0, 5, fmt.Sprintf("%s: %s", issue.Severity, issue.Message), "", "L", false)
	}
	pdf.SetFont("Helvetica", "I", 8)
	pdf.SetTextColor(107, 114, 128)
	pdf.CellFormat(0, 6, fmt.Sprintf("Data completeness %.1f%%, quality %.1f%%.",
		d.Validation.CompletenessScore, d.Validation.QualityScore), "", 1, "L", false, 0, "")
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
