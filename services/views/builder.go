package views

import (
	"context"
	"sync"
	"time"

	jobRepo "bottlebank/database/repository/job"
	pickupRepo "bottlebank/database/repository/pickup"
	userRepo "bottlebank/database/repository/user"
	walletRepo "bottlebank/database/repository/wallet"
	"bottlebank/models"
)

// Builder serves the derived views from a cached snapshot of the canonical
// collections. It subscribes to engine change events and marks the touched
// collection dirty; the next read reloads it. Rebuilds are idempotent, so a
// duplicate event (own write echoed back by the backend watcher) costs one
// redundant reload at worst.
type Builder struct {
	jobs    jobRepo.JobRepository
	pickups pickupRepo.PickupRepository
	users   userRepo.UserRepository
	wallets walletRepo.WalletRepository

	mu          sync.Mutex
	jobCache    []models.Job
	userCache   []models.UserProfile
	pickupCache []models.PickupRecord
	walletCache []models.WalletTransaction
	dirty       map[string]bool

	unsub func()
}

func NewBuilder(jobs jobRepo.JobRepository, pickups pickupRepo.PickupRepository, users userRepo.UserRepository, wallets walletRepo.WalletRepository) *Builder {
	return &Builder{
		jobs:    jobs,
		pickups: pickups,
		users:   users,
		wallets: wallets,
		dirty: map[string]bool{
			"jobs": true, "pickups": true, "users": true, "wallets": true,
		},
	}
}

// Attach subscribes the builder to a change event source, typically
// Engine.Subscribe. The callback only flips a dirty bit, so it is safe to
// run under the engine's entity locks.
func (b *Builder) Attach(subscribe func(func(models.ChangeEvent)) func()) {
	b.unsub = subscribe(func(ev models.ChangeEvent) {
		b.mu.Lock()
		b.dirty[ev.Collection] = true
		b.mu.Unlock()
	})
}

// Detach unsubscribes from the event source.
func (b *Builder) Detach() {
	if b.unsub != nil {
		b.unsub()
		b.unsub = nil
	}
}

// refresh reloads every dirty collection. Called with b.mu held.
func (b *Builder) refresh(ctx context.Context) error {
	if b.dirty["jobs"] {
		jobs, err := b.jobs.GetAll(ctx)
		if err != nil {
			return err
		}
		b.jobCache = jobs
		b.dirty["jobs"] = false
	}
	if b.dirty["users"] {
		users, err := b.users.GetAll(ctx)
		if err != nil {
			return err
		}
		b.userCache = users
		b.dirty["users"] = false
	}
	if b.dirty["pickups"] {
		pickups, err := b.pickups.ListAll(ctx)
		if err != nil {
			return err
		}
		b.pickupCache = pickups
		b.dirty["pickups"] = false
	}
	if b.dirty["wallets"] {
		txns, err := b.wallets.ListAll(ctx)
		if err != nil {
			return err
		}
		b.walletCache = txns
		b.dirty["wallets"] = false
	}
	return nil
}

// Available returns the claimable jobs nearest the viewer, excluding the
// viewer's own posts.
func (b *Builder) Available(ctx context.Context, viewerID string, viewer models.GeoPoint) ([]models.Job, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.refresh(ctx); err != nil {
		return nil, err
	}
	return AvailableForClaim(b.jobCache, viewerID, viewer, time.Now().UTC()), nil
}

// Claimed returns the collector's active jobs.
func (b *Builder) Claimed(ctx context.Context, collectorID string) ([]models.Job, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.refresh(ctx); err != nil {
		return nil, err
	}
	return MyClaimedJobs(b.jobCache, collectorID), nil
}

// Posted returns the host's posts, newest first.
func (b *Builder) Posted(ctx context.Context, hostID string) ([]models.Job, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.refresh(ctx); err != nil {
		return nil, err
	}
	return MyPostedJobs(b.jobCache, hostID), nil
}

// TopCollectors returns the leaderboard.
func (b *Builder) TopCollectors(ctx context.Context) ([]models.UserProfile, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.refresh(ctx); err != nil {
		return nil, err
	}
	return Leaderboard(b.userCache), nil
}

// Timeline returns the merged activity feed for one user.
func (b *Builder) Timeline(ctx context.Context, userID string) ([]models.ActivityEvent, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.refresh(ctx); err != nil {
		return nil, err
	}
	var pickups []models.PickupRecord
	for _, p := range b.pickupCache {
		if p.CollectorID == userID {
			pickups = append(pickups, p)
		}
	}
	var txns []models.WalletTransaction
	for _, t := range b.walletCache {
		if t.UserID == userID {
			txns = append(txns, t)
		}
	}
	return ActivityTimeline(pickups, txns), nil
}

// Stats returns the platform-wide counters.
func (b *Builder) Stats(ctx context.Context) (models.PlatformStats, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.refresh(ctx); err != nil {
		return models.PlatformStats{}, err
	}
	return PlatformStats(b.userCache, b.pickupCache), nil
}

// CityStats returns today's per-city aggregates.
func (b *Builder) CityStats(ctx context.Context) ([]models.CityStats, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.refresh(ctx); err != nil {
		return nil, err
	}
	return CityStatsToday(b.pickupCache, time.Now().UTC()), nil
}
