// Package rating owns the collector trust aggregates: rating, review count,
// on-time rate and the derived reliability score. No other component may
// write these fields.
package rating

import (
	"context"
	"errors"
	"fmt"

	userRepo "bottlebank/database/repository/user"
	"bottlebank/models"
)

// ErrInvalidRating is returned for stars outside 1..5.
var ErrInvalidRating = errors.New("rating must be between 1 and 5")

// ErrUserNotFound is returned when the target profile does not exist.
var ErrUserNotFound = errors.New("user not found")

// NextRating folds one new rating into a running weighted mean without
// storing history.
func NextRating(prev float64, prevCount int, stars int) (float64, int) {
	newCount := prevCount + 1
	return (prev*float64(prevCount) + float64(stars)) / float64(newCount), newCount
}

// NextOnTime folds a punctuality flag (mapped to 0/100) into the running
// on-time rate, weighted by the same review count as the rating.
func NextOnTime(prev float64, prevCount int, onTime bool) float64 {
	v := 0.0
	if onTime {
		v = 100.0
	}
	return (prev*float64(prevCount) + v) / float64(prevCount+1)
}

// Reliability derives the composite trust score, clamped to 0..100.
func Reliability(onTimeRate, ratingValue float64) float64 {
	score := onTimeRate*0.6 + ratingValue*20*0.4
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Aggregator applies feedback to user profiles. Callers must serialize
// invocations per collector; the sync engine does this with its per-user
// lock so the read-modify-write below stays one unit.
type Aggregator struct {
	Users userRepo.UserRepository
}

func NewAggregator(users userRepo.UserRepository) *Aggregator {
	return &Aggregator{Users: users}
}

// ApplyFeedback folds one feedback submission into the collector's
// aggregates and persists them.
func (a *Aggregator) ApplyFeedback(ctx context.Context, collectorID string, stars int, onTime bool) error {
	if stars < 1 || stars > 5 {
		return ErrInvalidRating
	}

	u, err := a.Users.GetByID(ctx, collectorID)
	if err != nil {
		return fmt.Errorf("load collector %s: %w", collectorID, err)
	}
	if u == nil {
		return ErrUserNotFound
	}

	newRating, newCount := NextRating(u.Rating, u.ReviewCount, stars)
	newOnTime := NextOnTime(u.OnTimeRate, u.ReviewCount, onTime)

	return a.Users.UpdateAggregates(ctx, collectorID, models.RatingAggregates{
		Rating:           newRating,
		ReviewCount:      newCount,
		OnTimeRate:       newOnTime,
		ReliabilityScore: Reliability(newOnTime, newRating),
	})
}
