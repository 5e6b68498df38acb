package localRepo

import (
	"context"
	"testing"
	"time"

	"bottlebank/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedJob(t *testing.T, s *Store, id string, status models.JobStatus) {
	t.Helper()
	require.NoError(t, s.Jobs().Create(context.Background(), &models.Job{
		ID: id, HostID: "host-1", Title: id, BottleCount: 10, Payout: 1,
		DemandMultiplier: 1.0, Status: status,
	}))
}

func TestTryClaimIsConditional(t *testing.T) {
	s := NewStore(nil)
	ctx := context.Background()
	now := time.Now().UTC()

	seedJob(t, s, "j1", models.StatusAvailable)

	ok, err := s.Jobs().TryClaim(ctx, "j1", "col-1", now)
	require.NoError(t, err)
	assert.True(t, ok)

	// A second claim on the same job must lose.
	ok, err = s.Jobs().TryClaim(ctx, "j1", "col-2", now)
	require.NoError(t, err)
	assert.False(t, ok)

	j, err := s.Jobs().GetByID(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, "col-1", j.ClaimedByID)
	assert.Equal(t, models.StatusClaimed, j.Status)
}

func TestTryClaimRespectsExpiry(t *testing.T) {
	s := NewStore(nil)
	ctx := context.Background()
	now := time.Now().UTC()
	past := now.Add(-time.Minute)

	require.NoError(t, s.Jobs().Create(ctx, &models.Job{
		ID: "stale", Status: models.StatusAvailable, ExpiresAt: &past,
	}))

	ok, err := s.Jobs().TryClaim(ctx, "stale", "col-1", now)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCompleteJobRejectsWrongHolder(t *testing.T) {
	s := NewStore(nil)
	ctx := context.Background()

	seedJob(t, s, "j1", models.StatusAvailable)
	require.NoError(t, s.Users().Create(ctx, &models.UserProfile{ID: "col-1", Role: models.RoleCollector}))

	ok, err := s.Jobs().TryClaim(ctx, "j1", "col-1", time.Now().UTC())
	require.NoError(t, err)
	require.True(t, ok)

	job, err := s.Jobs().GetByID(ctx, "j1")
	require.NoError(t, err)

	pickup := &models.PickupRecord{ID: "p1", JobID: "j1", CollectorID: "col-2", BottleCount: 10}
	txn := &models.WalletTransaction{ID: "t1", UserID: "col-2", Amount: 1}
	assert.Error(t, s.Jobs().CompleteJob(ctx, job, pickup, txn))

	// Nothing must have landed.
	rec, err := s.Pickups().GetByJobID(ctx, "j1")
	require.NoError(t, err)
	assert.Nil(t, rec)
}

func TestCompleteJobCommitsAllCollections(t *testing.T) {
	s := NewStore(nil)
	ctx := context.Background()

	seedJob(t, s, "j1", models.StatusAvailable)
	require.NoError(t, s.Users().Create(ctx, &models.UserProfile{ID: "col-1", Role: models.RoleCollector}))

	ok, err := s.Jobs().TryClaim(ctx, "j1", "col-1", time.Now().UTC())
	require.NoError(t, err)
	require.True(t, ok)

	job, err := s.Jobs().GetByID(ctx, "j1")
	require.NoError(t, err)
	job.BottleCount = 12

	pickup := &models.PickupRecord{ID: "p1", JobID: "j1", CollectorID: "col-1", BottleCount: 12, CollectorPayout: 0.92}
	txn := &models.WalletTransaction{ID: "t1", UserID: "col-1", Amount: 0.92, BottleCount: 12}
	require.NoError(t, s.Jobs().CompleteJob(ctx, job, pickup, txn))

	got, err := s.Jobs().GetByID(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, got.Status)
	assert.Equal(t, 12, got.BottleCount)

	rec, err := s.Pickups().GetByJobID(ctx, "j1")
	require.NoError(t, err)
	require.NotNil(t, rec)

	txns, err := s.Wallets().ListByUser(ctx, "col-1")
	require.NoError(t, err)
	require.Len(t, txns, 1)

	u, err := s.Users().GetByID(ctx, "col-1")
	require.NoError(t, err)
	assert.Equal(t, 12, u.TotalBottles)
	assert.InDelta(t, 0.92, u.TotalEarnings, 1e-9)
}

func TestUserUpdatePreservesAggregates(t *testing.T) {
	s := NewStore(nil)
	ctx := context.Background()

	require.NoError(t, s.Users().Create(ctx, &models.UserProfile{ID: "col-1", Name: "Sam", Role: models.RoleCollector}))
	require.NoError(t, s.Users().UpdateAggregates(ctx, "col-1", models.RatingAggregates{
		Rating: 4.5, ReviewCount: 2, OnTimeRate: 100, ReliabilityScore: 96,
	}))

	// A profile edit must not be able to touch aggregator-owned fields.
	edit := &models.UserProfile{ID: "col-1", Name: "Sam R.", Role: models.RoleCollector, Rating: 1.0}
	require.NoError(t, s.Users().Update(ctx, edit))

	u, err := s.Users().GetByID(ctx, "col-1")
	require.NoError(t, err)
	assert.Equal(t, "Sam R.", u.Name)
	assert.InDelta(t, 4.5, u.Rating, 1e-9)
	assert.Equal(t, 2, u.ReviewCount)
}

func TestWalletListNewestFirst(t *testing.T) {
	s := NewStore(nil)
	ctx := context.Background()
	base := time.Now().UTC()

	for i, id := range []string{"t1", "t2", "t3"} {
		require.NoError(t, s.Wallets().Append(ctx, &models.WalletTransaction{
			ID: id, UserID: "col-1", Date: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	txns, err := s.Wallets().ListByUser(ctx, "col-1")
	require.NoError(t, err)
	require.Len(t, txns, 3)
	assert.Equal(t, "t3", txns[0].ID)
	assert.Equal(t, "t1", txns[2].ID)
}

func TestWatchDeliversEvents(t *testing.T) {
	s := NewStore(nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := s.Jobs().Watch(ctx)
	require.NoError(t, err)

	seedJob(t, s, "j1", models.StatusAvailable)

	select {
	case ev := <-ch:
		assert.Equal(t, "jobs", ev.Collection)
		assert.Equal(t, "j1", ev.EntityID)
		assert.Equal(t, models.ChangeCreated, ev.Kind)
	case <-time.After(time.Second):
		t.Fatal("no change event delivered")
	}
}
