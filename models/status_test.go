package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeStatus(t *testing.T) {
	assert.Equal(t, StatusAvailable, NormalizeStatus("posted"))
	assert.Equal(t, StatusClaimed, NormalizeStatus("matched"))
	assert.Equal(t, StatusCompleted, NormalizeStatus(StatusCompleted))
}

func TestCanTransition(t *testing.T) {
	legal := []struct{ from, to JobStatus }{
		{StatusAvailable, StatusClaimed},
		{"posted", "matched"},
		{"matched", StatusInProgress},
		{StatusClaimed, StatusCompleted},
		{StatusInProgress, StatusCompleted},
		{StatusAvailable, StatusExpired},
		{"posted", StatusExpired},
		{StatusClaimed, StatusCancelled},
		{StatusInProgress, StatusCancelled},
		{StatusCompleted, StatusDisputed},
		{StatusClaimed, StatusAvailable}, // release
		{StatusInProgress, StatusArrived},
		{StatusArrived, StatusCompleted},
	}
	for _, tc := range legal {
		assert.True(t, CanTransition(tc.from, tc.to), "%s -> %s should be legal", tc.from, tc.to)
	}

	illegal := []struct{ from, to JobStatus }{
		{StatusAvailable, StatusCompleted},
		{StatusCompleted, StatusAvailable},
		{StatusExpired, StatusClaimed},
		{StatusCancelled, StatusCompleted},
		{StatusAvailable, StatusDisputed},
		{StatusDisputed, StatusCompleted},
	}
	for _, tc := range illegal {
		assert.False(t, CanTransition(tc.from, tc.to), "%s -> %s should be illegal", tc.from, tc.to)
	}
}

func TestCheckTransitionError(t *testing.T) {
	err := CheckTransition(StatusExpired, StatusClaimed)
	require.Error(t, err)

	var ite *InvalidTransitionError
	require.ErrorAs(t, err, &ite)
	assert.Equal(t, StatusExpired, ite.From)
	assert.Equal(t, StatusClaimed, ite.To)

	require.NoError(t, CheckTransition(StatusAvailable, StatusClaimed))
}

func TestStatusClaimHelpers(t *testing.T) {
	assert.True(t, StatusClaimed.HasActiveClaim())
	assert.True(t, StatusInProgress.HasActiveClaim())
	assert.True(t, StatusArrived.HasActiveClaim())
	assert.False(t, StatusCompleted.HasActiveClaim())
	assert.False(t, StatusAvailable.HasActiveClaim())

	assert.True(t, StatusAvailable.IsClaimable())
	assert.True(t, JobStatus("posted").IsClaimable())
	assert.False(t, StatusClaimed.IsClaimable())
}

func TestEstimatedValue(t *testing.T) {
	j := &Job{Payout: 10, DemandMultiplier: 1.1}
	assert.InDelta(t, 11.0, j.EstimatedValue(), 1e-9)

	// multiplier below 1.0 is floored to 1.0
	j = &Job{Payout: 10, DemandMultiplier: 0.5}
	assert.InDelta(t, 10.0, j.EstimatedValue(), 1e-9)
}
