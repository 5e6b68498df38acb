package rating

import (
	"context"
	"testing"

	localRepo "bottlebank/database/repository/local"
	"bottlebank/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextRatingConverges(t *testing.T) {
	var (
		r     float64
		count int
	)
	for i := 0; i < 5; i++ {
		r, count = NextRating(r, count, 5)
	}
	assert.InDelta(t, 5.0, r, 1e-9)
	assert.Equal(t, 5, count)
}

func TestNextRatingMixes(t *testing.T) {
	r, count := NextRating(0, 0, 1)
	r, count = NextRating(r, count, 5)
	assert.InDelta(t, 3.0, r, 1e-9)
	assert.Equal(t, 2, count)
}

func TestNextOnTime(t *testing.T) {
	rate := NextOnTime(0, 0, true)
	assert.InDelta(t, 100.0, rate, 1e-9)

	rate = NextOnTime(rate, 1, false)
	assert.InDelta(t, 50.0, rate, 1e-9)

	rate = NextOnTime(rate, 2, true)
	assert.InDelta(t, 200.0/3.0, rate, 1e-9)
}

func TestReliabilityClamped(t *testing.T) {
	assert.InDelta(t, 100.0, Reliability(100, 5), 1e-9)
	assert.InDelta(t, 0.0, Reliability(0, 0), 1e-9)
	assert.InDelta(t, 92.0, Reliability(100, 4), 1e-9)
	assert.InDelta(t, 70.0, Reliability(50, 5), 1e-9)
	assert.Equal(t, 0.0, Reliability(-10, 0))
}

func TestApplyFeedback(t *testing.T) {
	store := localRepo.NewStore(nil)
	ctx := context.Background()

	require.NoError(t, store.Users().Create(ctx, &models.UserProfile{
		ID: "col-1", Role: models.RoleCollector,
	}))

	agg := NewAggregator(store.Users())

	require.NoError(t, agg.ApplyFeedback(ctx, "col-1", 5, true))
	require.NoError(t, agg.ApplyFeedback(ctx, "col-1", 1, false))

	u, err := store.Users().GetByID(ctx, "col-1")
	require.NoError(t, err)
	assert.InDelta(t, 3.0, u.Rating, 1e-9)
	assert.Equal(t, 2, u.ReviewCount)
	assert.InDelta(t, 50.0, u.OnTimeRate, 1e-9)
	assert.InDelta(t, 50*0.6+3*20*0.4, u.ReliabilityScore, 1e-9)
}

func TestApplyFeedbackRejectsBadInput(t *testing.T) {
	store := localRepo.NewStore(nil)
	agg := NewAggregator(store.Users())
	ctx := context.Background()

	assert.ErrorIs(t, agg.ApplyFeedback(ctx, "col-1", 0, true), ErrInvalidRating)
	assert.ErrorIs(t, agg.ApplyFeedback(ctx, "col-1", 6, true), ErrInvalidRating)
	assert.ErrorIs(t, agg.ApplyFeedback(ctx, "ghost", 3, true), ErrUserNotFound)
}
