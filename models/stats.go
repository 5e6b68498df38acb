// File: models/stats.go
package models

// PlatformStats is the platform-wide aggregate view.
type PlatformStats struct {
	TotalBottles       int     `json:"totalBottles"`
	TotalCO2Kg         float64 `json:"totalCo2Kg"`
	TotalActiveUsers   int     `json:"totalActiveUsers"`
	TotalJobsCompleted int     `json:"totalJobsCompleted"`
}

// CityStats aggregates today's pickups for one city.
type CityStats struct {
	City         string  `json:"city"`
	BottlesToday int     `json:"bottlesToday"`
	CO2TodayKg   float64 `json:"co2TodayKg"`
	PickupsToday int     `json:"pickupsToday"`
}
