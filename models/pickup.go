// File: models/pickup.go
package models

import "time"

// PickupRecord is the immutable receipt of a completed job. Created exactly
// once per completion and never mutated afterwards.
type PickupRecord struct {
	ID              string             `bson:"id" json:"id"`
	JobID           string             `bson:"jobId" json:"jobId"`
	CollectorID     string             `bson:"collectorId" json:"collectorId"`
	JobTitle        string             `bson:"jobTitle" json:"jobTitle"` // snapshot at completion
	BottleCount     int                `bson:"bottleCount" json:"bottleCount"`
	CollectorPayout float64            `bson:"collectorPayout" json:"collectorPayout"` // after platform fee
	Review          string             `bson:"review,omitempty" json:"review,omitempty"`
	CompletedAt     time.Time          `bson:"completedAt" json:"completedAt"`
	ProofPhotoID    string             `bson:"proofPhotoId,omitempty" json:"proofPhotoId,omitempty"`
	AIConfidence    *float64           `bson:"aiConfidence,omitempty" json:"aiConfidence,omitempty"`
	Materials       *MaterialBreakdown `bson:"materials,omitempty" json:"materials,omitempty"`
	City            string             `bson:"city,omitempty" json:"city,omitempty"`
}
