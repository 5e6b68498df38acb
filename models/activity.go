// File: models/activity.go
package models

import "time"

// ActivityKind distinguishes timeline entry sources.
type ActivityKind string

const (
	ActivityPickup ActivityKind = "pickup"
	ActivityWallet ActivityKind = "wallet"
)

// ActivityEvent is an ephemeral timeline entry synthesized from pickup
// records and wallet transactions. Never persisted.
type ActivityEvent struct {
	Kind        ActivityKind `json:"kind"`
	Title       string       `json:"title"`
	Amount      float64      `json:"amount,omitempty"`
	BottleCount int          `json:"bottleCount,omitempty"`
	Date        time.Time    `json:"date"`
	SourceID    string       `json:"sourceId"`
}
