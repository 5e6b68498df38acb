// File: models/ai.go
package models

// BottleAnalysis is the result of running a proof photo through the count
// oracle. Confidence below the override threshold requires the collector to
// confirm the count manually before completion.
type BottleAnalysis struct {
	Count      int               `json:"count"`
	Confidence float64           `json:"confidence"` // 0..100
	Materials  MaterialBreakdown `json:"materials"`
	Notes      string            `json:"notes,omitempty"`
}
