// Package climate converts bottle counts into environmental impact figures.
// All functions are pure; the only failure mode is a negative bottle count.
package climate

import "errors"

// ErrNegativeBottles is returned when a bottle count below zero is supplied.
var ErrNegativeBottles = errors.New("bottle count must be >= 0")

const (
	co2PerBottleKg     = 0.045
	co2PerTreeKg       = 22.0
	waterPerBottleGal  = 0.5
	wastePerBottleKg   = 0.025
	gramsCO2PerMile    = 411.0
	avgCarMilesPerYear = 13500.0
	homeKgCO2PerYear   = 4500.0
)

// CO2Saved returns kilograms of CO2 avoided by recycling the given bottles.
func CO2Saved(bottles int) (float64, error) {
	if bottles < 0 {
		return 0, ErrNegativeBottles
	}
	return float64(bottles) * co2PerBottleKg, nil
}

// MustCO2Saved is CO2Saved for counts already known to be non-negative,
// such as sums over stored pickup records. Negative input yields zero.
func MustCO2Saved(bottles int) float64 {
	kg, err := CO2Saved(bottles)
	if err != nil {
		return 0
	}
	return kg
}

// TreesEquivalent converts kilograms of CO2 into a yearly tree-absorption count.
func TreesEquivalent(co2Kg float64) float64 {
	return co2Kg / co2PerTreeKg
}

// WaterSaved returns gallons of water saved.
func WaterSaved(bottles int) (float64, error) {
	if bottles < 0 {
		return 0, ErrNegativeBottles
	}
	return float64(bottles) * waterPerBottleGal, nil
}

// WasteReduced returns kilograms of landfill waste avoided.
func WasteReduced(bottles int) (float64, error) {
	if bottles < 0 {
		return 0, ErrNegativeBottles
	}
	return float64(bottles) * wastePerBottleKg, nil
}

// CarDaysEquivalent converts kilograms of CO2 into days of average car use.
func CarDaysEquivalent(co2Kg float64) float64 {
	perDay := (gramsCO2PerMile * avgCarMilesPerYear) / 365.0 / 1000.0
	return co2Kg / perDay
}

// HomeDaysEquivalent converts kilograms of CO2 into days of average home energy use.
func HomeDaysEquivalent(co2Kg float64) float64 {
	return co2Kg / (homeKgCO2PerYear / 365.0)
}
