package sync

import (
	"context"
	"fmt"
	stdsync "sync"
	"testing"
	"time"

	localRepo "bottlebank/database/repository/local"
	"bottlebank/models"
	"bottlebank/services/rating"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T) (*DefaultEngine, *localRepo.Store) {
	t.Helper()
	store := localRepo.NewStore(nil)
	eng, err := NewDefaultEngine(EngineDeps{
		Jobs:                store.Jobs(),
		Pickups:             store.Pickups(),
		Users:               store.Users(),
		Wallets:             store.Wallets(),
		Rater:               rating.NewAggregator(store.Users()),
		PlatformFee:         0.08,
		ConfidenceThreshold: 70,
		ExpiryHours:         24,
	})
	require.NoError(t, err)
	return eng, store
}

func seedUser(t *testing.T, store *localRepo.Store, id string, role models.Role) {
	t.Helper()
	err := store.Users().Create(context.Background(), &models.UserProfile{
		ID:    id,
		Name:  id,
		Email: id + "@example.com",
		Role:  role,
	})
	require.NoError(t, err)
}

func postJob(t *testing.T, eng *DefaultEngine, hostID string, spec models.JobSpec) *models.Job {
	t.Helper()
	job, err := eng.CreateJob(context.Background(), hostID, spec)
	require.NoError(t, err)
	return job
}

func TestCreateJobDefaults(t *testing.T) {
	eng, store := newTestEngine(t)
	seedUser(t, store, "host-1", models.RoleHost)

	before := time.Now().UTC()
	job := postJob(t, eng, "host-1", models.JobSpec{
		Title:       "Garage bottles",
		Address:     "12 Pine St, Oakland",
		BottleCount: 120,
		Payout:      6.0,
		Tier:        models.TierBulk,
	})

	assert.Equal(t, models.StatusAvailable, job.Status)
	assert.Empty(t, job.ClaimedByID)
	assert.Equal(t, 1.1, job.DemandMultiplier)
	require.NotNil(t, job.ExpiresAt)
	assert.WithinDuration(t, before.Add(24*time.Hour), *job.ExpiresAt, time.Minute)

	stored, err := eng.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, stored.ID)
}

func TestCreateJobValidation(t *testing.T) {
	eng, store := newTestEngine(t)
	seedUser(t, store, "host-1", models.RoleHost)
	seedUser(t, store, "col-1", models.RoleCollector)

	_, err := eng.CreateJob(context.Background(), "host-1", models.JobSpec{Title: "", BottleCount: 10, Payout: 1})
	assert.Equal(t, CodeValidation, CodeOf(err))

	_, err = eng.CreateJob(context.Background(), "host-1", models.JobSpec{Title: "x", BottleCount: 0, Payout: 1})
	assert.Equal(t, CodeValidation, CodeOf(err))

	_, err = eng.CreateJob(context.Background(), "col-1", models.JobSpec{Title: "x", BottleCount: 10, Payout: 1})
	assert.Equal(t, CodeUnauthorized, CodeOf(err))

	_, err = eng.CreateJob(context.Background(), "nobody", models.JobSpec{Title: "x", BottleCount: 10, Payout: 1})
	assert.Equal(t, CodeNotFound, CodeOf(err))
}

func TestDemandMultiplier(t *testing.T) {
	cases := []struct {
		tier    models.JobTier
		bottles int
		want    float64
	}{
		{models.TierResidential, 50, 1.0},
		{models.TierResidential, 300, 1.1},
		{models.TierBulk, 100, 1.1},
		{models.TierBulk, 251, 1.2},
		{models.TierCommercial, 200, 1.2},
		{models.TierCommercial, 1000, 1.3},
	}
	for _, tc := range cases {
		got := DemandMultiplier(tc.tier, tc.bottles)
		assert.InDelta(t, tc.want, got, 1e-9, "tier=%s bottles=%d", tc.tier, tc.bottles)
		assert.GreaterOrEqual(t, got, 1.0)
		assert.LessOrEqual(t, got, 1.5)
	}
}

func TestClaimRaceExactlyOneWinner(t *testing.T) {
	eng, store := newTestEngine(t)
	seedUser(t, store, "host-1", models.RoleHost)

	const racers = 32
	for i := 0; i < racers; i++ {
		seedUser(t, store, fmt.Sprintf("col-%d", i), models.RoleCollector)
	}

	job := postJob(t, eng, "host-1", models.JobSpec{
		Title: "Race me", BottleCount: 40, Payout: 2.0, Tier: models.TierResidential,
	})

	var wg stdsync.WaitGroup
	errs := make([]error, racers)
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = eng.ClaimJob(context.Background(), fmt.Sprintf("col-%d", i), job.ID)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		} else {
			assert.Equal(t, CodeConflict, CodeOf(err))
		}
	}
	assert.Equal(t, 1, wins)

	stored, err := eng.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusClaimed, stored.Status)
	assert.NotEmpty(t, stored.ClaimedByID)
}

func TestAtMostOneActiveClaim(t *testing.T) {
	eng, store := newTestEngine(t)
	seedUser(t, store, "host-1", models.RoleHost)
	seedUser(t, store, "col-1", models.RoleCollector)

	a := postJob(t, eng, "host-1", models.JobSpec{Title: "A", BottleCount: 10, Payout: 1})
	b := postJob(t, eng, "host-1", models.JobSpec{Title: "B", BottleCount: 10, Payout: 1})

	_, err := eng.ClaimJob(context.Background(), "col-1", a.ID)
	require.NoError(t, err)

	_, err = eng.ClaimJob(context.Background(), "col-1", b.ID)
	assert.Equal(t, CodeConflict, CodeOf(err))

	_, err = eng.CompleteJob(context.Background(), CompleteRequest{
		JobID: a.ID, CollectorID: "col-1", BottleCount: 10,
	})
	require.NoError(t, err)

	// The claim slot frees up once the pickup is done.
	_, err = eng.ClaimJob(context.Background(), "col-1", b.ID)
	assert.NoError(t, err)
}

func TestCompleteCommitsEverythingTogether(t *testing.T) {
	eng, store := newTestEngine(t)
	seedUser(t, store, "host-1", models.RoleHost)
	seedUser(t, store, "col-1", models.RoleCollector)

	job := postJob(t, eng, "host-1", models.JobSpec{
		Title: "Bulk haul", BottleCount: 100, Payout: 10.0, Tier: models.TierBulk,
	})

	_, err := eng.ClaimJob(context.Background(), "col-1", job.ID)
	require.NoError(t, err)

	pickup, err := eng.CompleteJob(context.Background(), CompleteRequest{
		JobID:        job.ID,
		CollectorID:  "col-1",
		BottleCount:  104,
		ProofPhotoID: "photo-1",
	})
	require.NoError(t, err)

	// payout = 10.0 * 1.1 * (1 - 0.08)
	assert.InDelta(t, 10.12, pickup.CollectorPayout, 1e-9)
	assert.Equal(t, 104, pickup.BottleCount)
	assert.Equal(t, "Bulk haul", pickup.JobTitle)

	stored, err := eng.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, stored.Status)
	assert.Equal(t, 104, stored.BottleCount)

	rec, err := store.Pickups().GetByJobID(context.Background(), job.ID)
	require.NoError(t, err)
	require.NotNil(t, rec)

	txns, err := store.Wallets().ListByUser(context.Background(), "col-1")
	require.NoError(t, err)
	require.Len(t, txns, 1)
	assert.InDelta(t, pickup.CollectorPayout, txns[0].Amount, 1e-9)
	assert.Equal(t, 104, txns[0].BottleCount)

	col, err := store.Users().GetByID(context.Background(), "col-1")
	require.NoError(t, err)
	assert.Equal(t, 104, col.TotalBottles)
	assert.InDelta(t, pickup.CollectorPayout, col.TotalEarnings, 1e-9)
}

func TestCompleteConfidenceGate(t *testing.T) {
	eng, store := newTestEngine(t)
	seedUser(t, store, "host-1", models.RoleHost)
	seedUser(t, store, "col-1", models.RoleCollector)

	job := postJob(t, eng, "host-1", models.JobSpec{Title: "Fuzzy", BottleCount: 30, Payout: 2})
	_, err := eng.ClaimJob(context.Background(), "col-1", job.ID)
	require.NoError(t, err)

	low := 55.0
	_, err = eng.CompleteJob(context.Background(), CompleteRequest{
		JobID: job.ID, CollectorID: "col-1", BottleCount: 30, AIConfidence: &low,
	})
	assert.Equal(t, CodeValidation, CodeOf(err))

	_, err = eng.CompleteJob(context.Background(), CompleteRequest{
		JobID: job.ID, CollectorID: "col-1", BottleCount: 28,
		AIConfidence: &low, ManualOverride: true,
	})
	assert.NoError(t, err)
}

func TestCompleteOnlyByClaimHolder(t *testing.T) {
	eng, store := newTestEngine(t)
	seedUser(t, store, "host-1", models.RoleHost)
	seedUser(t, store, "col-1", models.RoleCollector)
	seedUser(t, store, "col-2", models.RoleCollector)

	job := postJob(t, eng, "host-1", models.JobSpec{Title: "Mine", BottleCount: 10, Payout: 1})
	_, err := eng.ClaimJob(context.Background(), "col-1", job.ID)
	require.NoError(t, err)

	_, err = eng.CompleteJob(context.Background(), CompleteRequest{
		JobID: job.ID, CollectorID: "col-2", BottleCount: 10,
	})
	assert.Equal(t, CodeUnauthorized, CodeOf(err))
}

func TestReleaseReturnsJobToPool(t *testing.T) {
	eng, store := newTestEngine(t)
	seedUser(t, store, "host-1", models.RoleHost)
	seedUser(t, store, "col-1", models.RoleCollector)
	seedUser(t, store, "col-2", models.RoleCollector)

	job := postJob(t, eng, "host-1", models.JobSpec{Title: "Passed on", BottleCount: 10, Payout: 1})

	_, err := eng.ClaimJob(context.Background(), "col-1", job.ID)
	require.NoError(t, err)

	err = eng.ReleaseJob(context.Background(), "col-2", job.ID)
	assert.Equal(t, CodeUnauthorized, CodeOf(err))

	require.NoError(t, eng.ReleaseJob(context.Background(), "col-1", job.ID))

	stored, err := eng.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusAvailable, stored.Status)
	assert.Empty(t, stored.ClaimedByID)

	// Someone else can now pick it up.
	_, err = eng.ClaimJob(context.Background(), "col-2", job.ID)
	assert.NoError(t, err)
}

func TestProgressTransitions(t *testing.T) {
	eng, store := newTestEngine(t)
	seedUser(t, store, "host-1", models.RoleHost)
	seedUser(t, store, "col-1", models.RoleCollector)

	job := postJob(t, eng, "host-1", models.JobSpec{Title: "Steps", BottleCount: 10, Payout: 1})
	ctx := context.Background()

	// Cannot start before claiming.
	assert.Error(t, eng.MarkInProgress(ctx, "col-1", job.ID))

	_, err := eng.ClaimJob(ctx, "col-1", job.ID)
	require.NoError(t, err)

	require.NoError(t, eng.MarkInProgress(ctx, "col-1", job.ID))

	// Release is only legal straight from claimed.
	assert.Equal(t, CodeConflict, CodeOf(eng.ReleaseJob(ctx, "col-1", job.ID)))

	require.NoError(t, eng.MarkArrived(ctx, "col-1", job.ID))

	// Arrived can only complete.
	assert.Error(t, eng.MarkInProgress(ctx, "col-1", job.ID))

	_, err = eng.CompleteJob(ctx, CompleteRequest{JobID: job.ID, CollectorID: "col-1", BottleCount: 10})
	assert.NoError(t, err)
}

func TestCancelCountsAgainstCollector(t *testing.T) {
	eng, store := newTestEngine(t)
	seedUser(t, store, "host-1", models.RoleHost)
	seedUser(t, store, "col-1", models.RoleCollector)

	job := postJob(t, eng, "host-1", models.JobSpec{Title: "Flaked", BottleCount: 10, Payout: 1})
	ctx := context.Background()

	_, err := eng.ClaimJob(ctx, "col-1", job.ID)
	require.NoError(t, err)
	require.NoError(t, eng.CancelJob(ctx, "col-1", job.ID))

	stored, err := eng.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCancelled, stored.Status)
	assert.Empty(t, stored.ClaimedByID)

	col, err := store.Users().GetByID(ctx, "col-1")
	require.NoError(t, err)
	assert.Equal(t, 1, col.CancellationCount)

	// A cancelled job frees the claim slot.
	other := postJob(t, eng, "host-1", models.JobSpec{Title: "Next", BottleCount: 10, Payout: 1})
	_, err = eng.ClaimJob(ctx, "col-1", other.ID)
	assert.NoError(t, err)
}

func TestDeletePostOnlyBeforeClaim(t *testing.T) {
	eng, store := newTestEngine(t)
	seedUser(t, store, "host-1", models.RoleHost)
	seedUser(t, store, "host-2", models.RoleHost)
	seedUser(t, store, "col-1", models.RoleCollector)

	job := postJob(t, eng, "host-1", models.JobSpec{Title: "Oops", BottleCount: 10, Payout: 1})
	ctx := context.Background()

	assert.Equal(t, CodeUnauthorized, CodeOf(eng.DeletePost(ctx, "host-2", job.ID)))

	_, err := eng.ClaimJob(ctx, "col-1", job.ID)
	require.NoError(t, err)
	assert.Equal(t, CodeConflict, CodeOf(eng.DeletePost(ctx, "host-1", job.ID)))

	require.NoError(t, eng.ReleaseJob(ctx, "col-1", job.ID))
	require.NoError(t, eng.DeletePost(ctx, "host-1", job.ID))

	_, err = eng.GetJob(ctx, job.ID)
	assert.Equal(t, CodeNotFound, CodeOf(err))
}

func TestFeedbackOncePerJob(t *testing.T) {
	eng, store := newTestEngine(t)
	seedUser(t, store, "host-1", models.RoleHost)
	seedUser(t, store, "col-1", models.RoleCollector)

	job := postJob(t, eng, "host-1", models.JobSpec{Title: "Reviewed", BottleCount: 10, Payout: 1})
	ctx := context.Background()

	_, err := eng.ClaimJob(ctx, "col-1", job.ID)
	require.NoError(t, err)

	fb := models.HostFeedback{Rating: 5, PickedInDaytime: true}

	// Feedback only opens once completed.
	assert.Equal(t, CodeConflict, CodeOf(eng.SubmitHostFeedback(ctx, "host-1", job.ID, fb)))

	_, err = eng.CompleteJob(ctx, CompleteRequest{JobID: job.ID, CollectorID: "col-1", BottleCount: 10})
	require.NoError(t, err)

	assert.Equal(t, CodeUnauthorized, CodeOf(eng.SubmitHostFeedback(ctx, "col-1", job.ID, fb)))
	require.NoError(t, eng.SubmitHostFeedback(ctx, "host-1", job.ID, fb))

	// A resubmission must not move the aggregates.
	assert.Equal(t, CodeConflict, CodeOf(eng.SubmitHostFeedback(ctx, "host-1", job.ID, fb)))

	col, err := store.Users().GetByID(ctx, "col-1")
	require.NoError(t, err)
	assert.Equal(t, 1, col.ReviewCount)
	assert.InDelta(t, 5.0, col.Rating, 1e-9)
	assert.InDelta(t, 100.0, col.OnTimeRate, 1e-9)
	assert.InDelta(t, 100.0, col.ReliabilityScore, 1e-9)
}

func TestDisputeAfterCompletion(t *testing.T) {
	eng, store := newTestEngine(t)
	seedUser(t, store, "host-1", models.RoleHost)
	seedUser(t, store, "col-1", models.RoleCollector)

	job := postJob(t, eng, "host-1", models.JobSpec{Title: "Contested", BottleCount: 10, Payout: 1})
	ctx := context.Background()

	_, err := eng.ClaimJob(ctx, "col-1", job.ID)
	require.NoError(t, err)

	assert.Equal(t, CodeConflict, CodeOf(eng.DisputeJob(ctx, "host-1", job.ID)))

	_, err = eng.CompleteJob(ctx, CompleteRequest{JobID: job.ID, CollectorID: "col-1", BottleCount: 10})
	require.NoError(t, err)

	require.NoError(t, eng.DisputeJob(ctx, "host-1", job.ID))

	stored, err := eng.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusDisputed, stored.Status)

	col, err := store.Users().GetByID(ctx, "col-1")
	require.NoError(t, err)
	assert.Equal(t, 1, col.DisputeCount)
}

func TestSweepExpiredIsIdempotent(t *testing.T) {
	eng, store := newTestEngine(t)
	seedUser(t, store, "host-1", models.RoleHost)
	seedUser(t, store, "col-1", models.RoleCollector)
	ctx := context.Background()

	past := time.Now().UTC().Add(-time.Hour)
	stale := &models.Job{
		ID: "stale-1", HostID: "host-1", Title: "Old post",
		BottleCount: 10, Payout: 1, DemandMultiplier: 1.0,
		Status: models.StatusAvailable, ExpiresAt: &past,
	}
	require.NoError(t, store.Jobs().Create(ctx, stale))

	fresh := postJob(t, eng, "host-1", models.JobSpec{Title: "Fresh", BottleCount: 10, Payout: 1})

	n, err := eng.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = eng.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	stored, err := eng.GetJob(ctx, "stale-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusExpired, stored.Status)

	// Expired jobs cannot be claimed; fresh ones still can.
	_, err = eng.ClaimJob(ctx, "col-1", "stale-1")
	assert.Equal(t, CodeConflict, CodeOf(err))
	_, err = eng.ClaimJob(ctx, "col-1", fresh.ID)
	assert.NoError(t, err)
}

func TestSubscribeSeesCommittedMutations(t *testing.T) {
	eng, store := newTestEngine(t)
	seedUser(t, store, "host-1", models.RoleHost)
	seedUser(t, store, "col-1", models.RoleCollector)

	var mu stdsync.Mutex
	var events []models.ChangeEvent
	unsub := eng.Subscribe(func(ev models.ChangeEvent) {
		mu.Lock()
		events = append(events, ev)
		mu.Unlock()
	})
	defer unsub()

	ctx := context.Background()
	job := postJob(t, eng, "host-1", models.JobSpec{Title: "Watched", BottleCount: 10, Payout: 1})
	_, err := eng.ClaimJob(ctx, "col-1", job.ID)
	require.NoError(t, err)
	_, err = eng.CompleteJob(ctx, CompleteRequest{JobID: job.ID, CollectorID: "col-1", BottleCount: 10})
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()

	var jobEvents []models.ChangeKind
	collections := map[string]bool{}
	for _, ev := range events {
		collections[ev.Collection] = true
		if ev.Collection == "jobs" && ev.EntityID == job.ID {
			jobEvents = append(jobEvents, ev.Kind)
		}
	}
	assert.Equal(t, []models.ChangeKind{models.ChangeCreated, models.ChangeUpdated, models.ChangeUpdated}, jobEvents)
	assert.True(t, collections["pickups"])
	assert.True(t, collections["wallets"])
	assert.True(t, collections["users"])
}

// Full lifecycle: post, race, progress, complete, review.
func TestMarketplaceScenario(t *testing.T) {
	eng, store := newTestEngine(t)
	seedUser(t, store, "host-1", models.RoleHost)
	seedUser(t, store, "col-a", models.RoleCollector)
	seedUser(t, store, "col-b", models.RoleCollector)
	ctx := context.Background()

	job := postJob(t, eng, "host-1", models.JobSpec{
		Title: "100 bottles, garage", BottleCount: 100, Payout: 10.0, Tier: models.TierBulk,
	})
	assert.InDelta(t, 11.0, job.EstimatedValue(), 1e-9)

	var wg stdsync.WaitGroup
	results := make(map[string]error, 2)
	var mu stdsync.Mutex
	for _, id := range []string{"col-a", "col-b"} {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := eng.ClaimJob(ctx, id, job.ID)
			mu.Lock()
			results[id] = err
			mu.Unlock()
		}(id)
	}
	wg.Wait()

	var winner string
	for id, err := range results {
		if err == nil {
			winner = id
		}
	}
	require.NotEmpty(t, winner)

	require.NoError(t, eng.MarkInProgress(ctx, winner, job.ID))
	require.NoError(t, eng.MarkArrived(ctx, winner, job.ID))

	conf := 91.0
	pickup, err := eng.CompleteJob(ctx, CompleteRequest{
		JobID: job.ID, CollectorID: winner, BottleCount: 100,
		AIConfidence: &conf,
		Materials:    &models.MaterialBreakdown{Plastic: 80, Aluminum: 15, Glass: 5},
	})
	require.NoError(t, err)
	assert.InDelta(t, 11.0*0.92, pickup.CollectorPayout, 1e-9)

	require.NoError(t, eng.SubmitHostFeedback(ctx, "host-1", job.ID, models.HostFeedback{
		Rating: 4, PickedInDaytime: true,
	}))

	col, err := store.Users().GetByID(ctx, winner)
	require.NoError(t, err)
	assert.InDelta(t, 4.0, col.Rating, 1e-9)
	assert.Equal(t, 100, col.TotalBottles)
	// reliability = 100*0.6 + 4*20*0.4
	assert.InDelta(t, 92.0, col.ReliabilityScore, 1e-9)
}

func TestWatchRelayInvalidatesAllCollections(t *testing.T) {
	eng, store := newTestEngine(t)

	watchCtx, cancelWatch := context.WithCancel(context.Background())
	defer cancelWatch()
	require.NoError(t, eng.StartWatch(watchCtx))
	defer eng.Close()

	events := make(chan models.ChangeEvent, 64)
	unsub := eng.Subscribe(func(ev models.ChangeEvent) { events <- ev })
	defer unsub()

	// A write made by another server instance reaches this one only
	// through the backend stream, which carries jobs alone. The relay
	// must still invalidate the collections a completion commits into.
	require.NoError(t, store.Jobs().Create(context.Background(), &models.Job{
		ID: "j-remote", HostID: "host-9", Title: "Remote post",
		BottleCount: 10, Payout: 1, DemandMultiplier: 1.0,
		Status: models.StatusAvailable,
	}))

	seen := map[string]bool{}
	timeout := time.After(2 * time.Second)
	for len(seen) < 4 {
		select {
		case ev := <-events:
			seen[ev.Collection] = true
		case <-timeout:
			t.Fatalf("only invalidated %v", seen)
		}
	}
	for _, coll := range []string{"jobs", "pickups", "wallets", "users"} {
		assert.True(t, seen[coll], coll)
	}
}
