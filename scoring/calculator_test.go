package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenscope/greenscope/catalog"
	"github.com/greenscope/greenscope/store"
)

func yesNoQuestion(id string, category store.TaskCategory, frameworks ...string) catalog.Question {
	return catalog.Question{
		ID:           id,
		Text:         "Do you " + id + "?",
		Type:         catalog.QuestionYesNo,
		TaskCategory: category,
		Frameworks:   frameworks,
	}
}

func TestCalculateScores(t *testing.T) {
	calc := NewCalculator()

	t.Run("all affirmative answers and completed tasks score 100", func(t *testing.T) {
		answers := []AnsweredQuestion{
			{Question: yesNoQuestion("q1", store.CategoryEnergy, "DST"), Answer: "yes"},
			{Question: yesNoQuestion("q2", store.CategoryGovernance, "Green Key"), Answer: "true"},
			{Question: yesNoQuestion("q3", store.CategorySocial), Answer: "1"},
		}
		tasks := []*store.Task{
			{Category: store.CategoryEnergy, Status: store.StatusCompleted, Priority: store.PriorityHigh},
			{Category: store.CategoryGovernance, Status: store.StatusCompleted, Priority: store.PriorityMedium},
			{Category: store.CategorySocial, Status: store.StatusCompleted, Priority: store.PriorityLow},
		}

		scores := calc.CalculateScores(answers, tasks, store.SectorHospitality)

		assert.Equal(t, 100.0, scores.Environmental)
		assert.Equal(t, 100.0, scores.Social)
		assert.Equal(t, 100.0, scores.Governance)
		assert.Equal(t, 100.0, scores.Overall)
	})

	t.Run("answers weigh 40 percent and tasks 60 percent", func(t *testing.T) {
		answers := []AnsweredQuestion{
			{Question: yesNoQuestion("q1", store.CategoryEnergy), Answer: "yes"},
		}
		tasks := []*store.Task{
			{Category: store.CategoryEnergy, Status: store.StatusTodo, Priority: store.PriorityHigh},
		}

		scores := calc.CalculateScores(answers, tasks, store.SectorHospitality)

		// 100*0.4 + 0*0.6
		assert.Equal(t, 40.0, scores.Environmental)
	})

	t.Run("in progress tasks score half", func(t *testing.T) {
		tasks := []*store.Task{
			{Category: store.CategoryEnergy, Status: store.StatusInProgress, Priority: store.PriorityHigh},
		}

		scores := calc.CalculateScores(nil, tasks, store.SectorHospitality)

		// 0*0.4 + 50*0.6
		assert.Equal(t, 30.0, scores.Environmental)
	})

	t.Run("pending review tasks earn nothing until completed", func(t *testing.T) {
		answers := []AnsweredQuestion{
			{Question: yesNoQuestion("q1", store.CategoryEnergy), Answer: "yes"},
		}
		tasks := []*store.Task{
			{Category: store.CategoryEnergy, Status: store.StatusPendingReview, Priority: store.PriorityHigh},
		}

		scores := calc.CalculateScores(answers, tasks, store.SectorHospitality)

		// 100*0.4 + 0*0.6
		assert.Equal(t, 40.0, scores.Environmental)
	})

	t.Run("sector weights shape the overall", func(t *testing.T) {
		tasks := []*store.Task{
			{Category: store.CategoryEnergy, Status: store.StatusCompleted, Priority: store.PriorityHigh},
		}
		// Environmental pillar 60, others 0.
		hospitality := calc.CalculateScores(nil, tasks, store.SectorHospitality)
		education := calc.CalculateScores(nil, tasks, store.SectorEducation)

		assert.Equal(t, 27.0, hospitality.Overall) // 60 * 0.45
		assert.Equal(t, 18.0, education.Overall)   // 60 * 0.30
	})

	t.Run("empty inputs score zero", func(t *testing.T) {
		scores := calc.CalculateScores(nil, nil, store.SectorHospitality)
		assert.Equal(t, Scores{}, scores)
	})
}

func TestComplianceRates(t *testing.T) {
	calc := NewCalculator()

	tasks := []*store.Task{
		{FrameworkTags: []string{"DST"}, Status: store.StatusCompleted},
		{FrameworkTags: []string{"DST"}, Status: store.StatusTodo},
		{FrameworkTags: []string{"dst"}, Status: store.StatusCompleted}, // case-insensitive
		{FrameworkTags: []string{"Green Key"}, Status: store.StatusTodo},
	}

	rates := calc.ComplianceRates(tasks, []string{"DST", "Green Key", "LEED"})
	require.Len(t, rates, 3)

	assert.Equal(t, ComplianceRate{Framework: "DST", Rate: 66.7, Completed: 2, Total: 3}, rates[0])
	assert.Equal(t, ComplianceRate{Framework: "Green Key", Rate: 0, Completed: 0, Total: 1}, rates[1])
	assert.Equal(t, ComplianceRate{Framework: "LEED", Rate: 0, Completed: 0, Total: 0}, rates[2])
}

func TestCalculateCarbonFootprint(t *testing.T) {
	calc := NewCalculator()

	t.Run("single facility", func(t *testing.T) {
		fp := calc.CalculateCarbonFootprint([]FacilityUsage{{
			FloorAreaSqm: 1000,
			Utilities: UtilityUsage{
				ElectricityKWh: 10000, // 10000*12*0.469/1000 = 56.28 t
				DieselLitres:   500,   // 500*12*2.68/1000 = 16.08 t
			},
		}}, 20)

		assert.Equal(t, 16.08, fp.Scope1)
		assert.Equal(t, 56.28, fp.Scope2)
		assert.Equal(t, 72.36, fp.TotalAnnual)
		assert.Equal(t, 0.07, fp.EmissionsPerSqm)
		assert.Equal(t, 3.62, fp.EmissionsPerEmployee)
	})

	t.Run("zero floor area and employees give zero intensities", func(t *testing.T) {
		fp := calc.CalculateCarbonFootprint([]FacilityUsage{{
			Utilities: UtilityUsage{ElectricityKWh: 1000},
		}}, 0)

		assert.Greater(t, fp.TotalAnnual, 0.0)
		assert.Zero(t, fp.EmissionsPerSqm)
		assert.Zero(t, fp.EmissionsPerEmployee)
	})

	t.Run("no facilities", func(t *testing.T) {
		fp := calc.CalculateCarbonFootprint(nil, 10)
		assert.Equal(t, CarbonFootprint{}, fp)
	})
}

func TestCompareToBenchmarks(t *testing.T) {
	calc := NewCalculator()

	t.Run("efficient hospitality site", func(t *testing.T) {
		facilities := []FacilityUsage{{
			FloorAreaSqm: 1200,
			Utilities: UtilityUsage{
				ElectricityKWh: 8000, // 80 kWh/sqm/yr, under 100
				WaterM3:        25,   // 250 L/sqm/yr, under 300
			},
		}}
		fp := calc.CalculateCarbonFootprint(facilities, 0)

		cmp := calc.CompareToBenchmarks(facilities, fp, store.SectorHospitality)

		assert.Equal(t, PerformanceEfficient, cmp.Electricity)
		assert.Equal(t, PerformanceEfficient, cmp.Water)
		assert.Equal(t, PerformanceEfficient, cmp.Carbon)
		assert.Equal(t, PerformanceEfficient, cmp.OverallRanking)
	})

	t.Run("inefficient electricity", func(t *testing.T) {
		facilities := []FacilityUsage{{
			FloorAreaSqm: 100,
			Utilities:    UtilityUsage{ElectricityKWh: 2000}, // 240 kWh/sqm/yr
		}}
		fp := calc.CalculateCarbonFootprint(facilities, 0)

		cmp := calc.CompareToBenchmarks(facilities, fp, store.SectorHospitality)

		assert.Equal(t, PerformanceInefficient, cmp.Electricity)
	})

	t.Run("unknown sector", func(t *testing.T) {
		cmp := calc.CompareToBenchmarks([]FacilityUsage{{FloorAreaSqm: 100}}, CarbonFootprint{}, "retail")
		assert.Equal(t, PerformanceUnknown, cmp.OverallRanking)
	})

	t.Run("zero floor area", func(t *testing.T) {
		cmp := calc.CompareToBenchmarks([]FacilityUsage{{Utilities: UtilityUsage{ElectricityKWh: 100}}},
			CarbonFootprint{}, store.SectorHospitality)
		assert.Equal(t, PerformanceUnknown, cmp.Electricity)
	})
}
