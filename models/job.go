// File: models/job.go
package models

import "time"

// JobTier classifies a collection point by volume and setting.
type JobTier string

const (
	TierResidential JobTier = "residential"
	TierBulk        JobTier = "bulk"
	TierCommercial  JobTier = "commercial"
)

// UnknownDistance is the sort key for jobs without a resolvable coordinate.
const UnknownDistance = 999.0

// MaterialBreakdown is the per-material split reported by the count oracle.
type MaterialBreakdown struct {
	Plastic  int `bson:"plastic" json:"plastic"`
	Aluminum int `bson:"aluminum" json:"aluminum"`
	Glass    int `bson:"glass" json:"glass"`
}

// HostFeedback is the host's post-completion review of the collector.
// At most one per job; keyed by (job, host).
type HostFeedback struct {
	HostID          string    `bson:"hostId" json:"hostId"`
	PickedInDaytime bool      `bson:"pickedInDaytime" json:"pickedInDaytime"`
	Rating          int       `bson:"rating" json:"rating"` // 1..5
	SubmittedAt     time.Time `bson:"submittedAt" json:"submittedAt"`
}

// Job is a posted collection point. Owned by its host until claimed; the
// claiming collector is referenced through ClaimedByID, never a second owner.
type Job struct {
	ID               string             `bson:"id" json:"id"`
	HostID           string             `bson:"hostId" json:"hostId"`
	ClaimedByID      string             `bson:"claimedById,omitempty" json:"claimedById,omitempty"`
	Title            string             `bson:"title" json:"title"`
	Address          string             `bson:"address" json:"address"`
	Location         GeoPoint           `bson:"location" json:"location"`
	BottleCount      int                `bson:"bottleCount" json:"bottleCount"`
	Payout           float64            `bson:"payout" json:"payout"`
	DemandMultiplier float64            `bson:"demandMultiplier" json:"demandMultiplier"`
	Tier             JobTier            `bson:"tier" json:"tier"`
	Schedule         string             `bson:"schedule,omitempty" json:"schedule,omitempty"`
	Notes            string             `bson:"notes,omitempty" json:"notes,omitempty"`
	HostRating       float64            `bson:"hostRating" json:"hostRating"`
	Recurring        bool               `bson:"recurring" json:"recurring"`
	Status           JobStatus          `bson:"status" json:"status"`
	CreatedAt        time.Time          `bson:"createdAt" json:"createdAt"`
	ExpiresAt        *time.Time         `bson:"expiresAt,omitempty" json:"expiresAt,omitempty"`
	AIConfidence     *float64           `bson:"aiConfidence,omitempty" json:"aiConfidence,omitempty"`
	Materials        *MaterialBreakdown `bson:"materials,omitempty" json:"materials,omitempty"`
	ProofPhotoIDs    []string           `bson:"proofPhotoIds,omitempty" json:"proofPhotoIds,omitempty"`
	Feedback         *HostFeedback      `bson:"feedback,omitempty" json:"feedback,omitempty"`

	// Distance from the requesting user in miles. Computed per request,
	// never stored authoritatively.
	Distance float64 `bson:"-" json:"distance,omitempty"`
}

// EstimatedValue is the gross value of the job before the platform fee.
func (j *Job) EstimatedValue() float64 {
	m := j.DemandMultiplier
	if m < 1.0 {
		m = 1.0
	}
	return j.Payout * m
}

// HasLocation reports whether the job carries a usable coordinate.
func (j *Job) HasLocation() bool {
	return j.Location.Latitude != 0 || j.Location.Longitude != 0
}

// Expired reports whether the job's expiry (if any) has passed.
func (j *Job) Expired(now time.Time) bool {
	return j.ExpiresAt != nil && !j.ExpiresAt.After(now)
}

// JobSpec is the host-supplied input for posting a new collection point.
type JobSpec struct {
	Title       string   `json:"title"`
	Address     string   `json:"address"`
	Location    GeoPoint `json:"location"`
	BottleCount int      `json:"bottleCount"`
	Payout      float64  `json:"payout"`
	Tier        JobTier  `json:"tier"`
	Schedule    string   `json:"schedule,omitempty"`
	Notes       string   `json:"notes,omitempty"`
	Recurring   bool     `json:"recurring"`
	// ExpiresInHours overrides the default 24h expiry when > 0.
	ExpiresInHours int `json:"expiresInHours,omitempty"`
}
