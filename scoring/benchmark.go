package scoring

import "github.com/greenscope/greenscope/store"

// Performance grades a consumption intensity against the sector benchmark.
type Performance string

const (
	PerformanceEfficient   Performance = "efficient"
	PerformanceAverage     Performance = "average"
	PerformanceInefficient Performance = "inefficient"
	PerformanceUnknown     Performance = "unknown"
)

// intensityBands holds the efficient/average thresholds for one metric.
// Values at or below Efficient grade "efficient"; at or below Average
// grade "average"; above grades "inefficient".
type intensityBands struct {
	Efficient float64
	Average   float64
}

type sectorBenchmark struct {
	ElectricityKWhPerSqm intensityBands // kWh/sqm/year
	WaterLPerSqm         intensityBands // L/sqm/year
	CarbonKgPerSqm       intensityBands // kg CO2e/sqm/year
}

// UAE SME sector benchmarks, annual intensities.
var sectorBenchmarks = map[store.BusinessSector]sectorBenchmark{
	store.SectorHospitality: {
		ElectricityKWhPerSqm: intensityBands{100, 150},
		WaterLPerSqm:         intensityBands{300, 500},
		CarbonKgPerSqm:       intensityBands{50, 75},
	},
	store.SectorManufacturing: {
		ElectricityKWhPerSqm: intensityBands{200, 300},
		WaterLPerSqm:         intensityBands{100, 200},
		CarbonKgPerSqm:       intensityBands{100, 150},
	},
	store.SectorConstruction: {
		ElectricityKWhPerSqm: intensityBands{80, 120},
		WaterLPerSqm:         intensityBands{150, 250},
		CarbonKgPerSqm:       intensityBands{40, 60},
	},
	store.SectorEducation: {
		ElectricityKWhPerSqm: intensityBands{60, 90},
		WaterLPerSqm:         intensityBands{200, 300},
		CarbonKgPerSqm:       intensityBands{30, 45},
	},
	store.SectorHealth: {
		ElectricityKWhPerSqm: intensityBands{250, 350},
		WaterLPerSqm:         intensityBands{400, 600},
		CarbonKgPerSqm:       intensityBands{120, 170},
	},
	store.SectorLogistics: {
		// Carbon thresholds run high here; fleets dominate the inventory.
		ElectricityKWhPerSqm: intensityBands{40, 60},
		WaterLPerSqm:         intensityBands{50, 100},
		CarbonKgPerSqm:       intensityBands{200, 300},
	},
}

// BenchmarkComparison grades a company against its sector's intensity
// benchmarks.
type BenchmarkComparison struct {
	Electricity    Performance `json:"electricity_performance"`
	Water          Performance `json:"water_performance"`
	Carbon         Performance `json:"carbon_performance"`
	OverallRanking Performance `json:"overall_ranking"`
}

// CompareToBenchmarks computes intensity metrics from facility usage and
// the carbon footprint and grades each against the sector's bands.
func (c *Calculator) CompareToBenchmarks(facilities []FacilityUsage, footprint CarbonFootprint, sector store.BusinessSector) BenchmarkComparison {
	unknown := BenchmarkComparison{
		Electricity:    PerformanceUnknown,
		Water:          PerformanceUnknown,
		Carbon:         PerformanceUnknown,
		OverallRanking: PerformanceUnknown,
	}

	bench, ok := sectorBenchmarks[sector]
	if !ok {
		return unknown
	}

	var electricity, water, floorArea float64
	for _, f := range facilities {
		electricity += f.Utilities.ElectricityKWh * 12
		water += f.Utilities.WaterM3 * 12
		floorArea += f.FloorAreaSqm
	}
	if floorArea == 0 {
		return unknown
	}

	electricityIntensity := electricity / floorArea     // kWh/sqm/year
	waterIntensity := water * 1000 / floorArea          // L/sqm/year
	carbonIntensity := footprint.EmissionsPerSqm * 1000 // kg CO2e/sqm/year

	cmp := BenchmarkComparison{
		Electricity: grade(electricityIntensity, bench.ElectricityKWhPerSqm),
		Water:       grade(waterIntensity, bench.WaterLPerSqm),
		Carbon:      grade(carbonIntensity, bench.CarbonKgPerSqm),
	}
	cmp.OverallRanking = overallRanking(cmp)
	return cmp
}

func grade(value float64, bands intensityBands) Performance {
	switch {
	case value <= bands.Efficient:
		return PerformanceEfficient
	case value <= bands.Average:
		return PerformanceAverage
	default:
		return PerformanceInefficient
	}
}

var performanceScore = map[Performance]int{
	PerformanceEfficient:   3,
	PerformanceAverage:     2,
	PerformanceInefficient: 1,
}

func overallRanking(cmp BenchmarkComparison) Performance {
	avg := float64(performanceScore[cmp.Electricity]+performanceScore[cmp.Water]+performanceScore[cmp.Carbon]) / 3
	switch {
	case avg >= 2.5:
		return PerformanceEfficient
	case avg >= 1.5:
		return PerformanceAverage
	default:
		return PerformanceInefficient
	}
}
