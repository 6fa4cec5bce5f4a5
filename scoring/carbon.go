package scoring

// UAE grid and fuel emission factors.
const (
	FactorElectricity     = 0.469 // kg CO2e/kWh (UAE grid average)
	FactorNaturalGas      = 2.75  // kg CO2e/kg
	FactorLPG             = 3.03  // kg CO2e/kg
	FactorDistrictCooling = 0.385 // kg CO2e/kWh
	FactorDiesel          = 2.68  // kg CO2e/litre
	FactorPetrol          = 2.31  // kg CO2e/litre
)

// UtilityUsage holds monthly consumption figures for one facility.
type UtilityUsage struct {
	ElectricityKWh     float64 `json:"electricity_kwh,omitempty"`
	NaturalGasKg       float64 `json:"natural_gas_kg,omitempty"`
	LPGKg              float64 `json:"lpg_kg,omitempty"`
	DistrictCoolingKWh float64 `json:"district_cooling_kwh,omitempty"`
	DieselLitres       float64 `json:"diesel_litres,omitempty"`
	PetrolLitres       float64 `json:"petrol_litres,omitempty"`
	WaterM3            float64 `json:"water_m3,omitempty"`
}

// FacilityUsage is one site's monthly utilities plus floor area.
type FacilityUsage struct {
	Name         string       `json:"name,omitempty"`
	FloorAreaSqm float64      `json:"floor_area_sqm"`
	Utilities    UtilityUsage `json:"utilities"`
}

// CarbonFootprint is the annual emissions result in tonnes CO2e.
type CarbonFootprint struct {
	TotalAnnual          float64 `json:"total_annual"`
	Scope1               float64 `json:"scope1"`
	Scope2               float64 `json:"scope2"`
	EmissionsPerSqm      float64 `json:"emissions_per_sqm"`
	EmissionsPerEmployee float64 `json:"emissions_per_employee"`
}

// CalculateCarbonFootprint annualizes monthly consumption and applies the
// UAE emission factors. Scope 1 covers fuels burned on site or in owned
// vehicles; scope 2 covers purchased electricity and district cooling.
func (c *Calculator) CalculateCarbonFootprint(facilities []FacilityUsage, employees int) CarbonFootprint {
	var scope1, scope2, floorArea float64

	for _, f := range facilities {
		floorArea += f.FloorAreaSqm
		u := f.Utilities

		// Annual scope 1 in tonnes (monthly kg or litres x12, factor in kg CO2e).
		scope1 += annualTonnes(u.NaturalGasKg, FactorNaturalGas)
		scope1 += annualTonnes(u.LPGKg, FactorLPG)
		scope1 += annualTonnes(u.DieselLitres, FactorDiesel)
		scope1 += annualTonnes(u.PetrolLitres, FactorPetrol)

		scope2 += annualTonnes(u.ElectricityKWh, FactorElectricity)
		scope2 += annualTonnes(u.DistrictCoolingKWh, FactorDistrictCooling)
	}

	total := scope1 + scope2
	fp := CarbonFootprint{
		TotalAnnual: round2(total),
		Scope1:      round2(scope1),
		Scope2:      round2(scope2),
	}
	if floorArea > 0 {
		fp.EmissionsPerSqm = round2(total / floorArea)
	}
	if employees > 0 {
		fp.EmissionsPerEmployee = round2(total / float64(employees))
	}
	return fp
}

func annualTonnes(monthly, factor float64) float64 {
	return monthly * 12 * factor / 1000
}
