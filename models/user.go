// File: models/user.go
package models

import "time"

// Role separates the two sides of the marketplace. Set once at onboarding.
type Role string

const (
	RoleHost      Role = "host"
	RoleCollector Role = "collector"
)

// UserProfile is a platform user. Rating, ReviewCount, OnTimeRate and
// ReliabilityScore are owned by the rating aggregator; nothing else may
// write them.
type UserProfile struct {
	ID           string `bson:"id" json:"id"`
	Name         string `bson:"name" json:"name"`
	Email        string `bson:"email" json:"email"`
	PasswordHash string `bson:"passwordHash" json:"-"`
	Role         Role   `bson:"role" json:"role"`
	City         string `bson:"city,omitempty" json:"city,omitempty"`

	Rating           float64 `bson:"rating" json:"rating"`
	ReviewCount      int     `bson:"reviewCount" json:"reviewCount"`
	OnTimeRate       float64 `bson:"onTimeRate" json:"onTimeRate"`             // 0..100
	ReliabilityScore float64 `bson:"reliabilityScore" json:"reliabilityScore"` // 0..100

	CancellationCount int     `bson:"cancellationCount" json:"cancellationCount"`
	DisputeCount      int     `bson:"disputeCount" json:"disputeCount"`
	TotalBottles      int     `bson:"totalBottles" json:"totalBottles"`
	TotalEarnings     float64 `bson:"totalEarnings" json:"totalEarnings"`

	Badges   []string  `bson:"badges,omitempty" json:"badges,omitempty"`
	PhotoID  string    `bson:"photoId,omitempty" json:"photoId,omitempty"`
	FCMToken string    `bson:"fcmToken,omitempty" json:"-"`
	JoinedAt time.Time `bson:"joinedAt" json:"joinedAt"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// RatingAggregates is the slice of a profile owned by the rating aggregator.
type RatingAggregates struct {
	Rating           float64 `bson:"rating" json:"rating"`
	ReviewCount      int     `bson:"reviewCount" json:"reviewCount"`
	OnTimeRate       float64 `bson:"onTimeRate" json:"onTimeRate"`
	ReliabilityScore float64 `bson:"reliabilityScore" json:"reliabilityScore"`
}
