// Package sync is the write path of the marketplace. Every job mutation
// (post, claim, progress, completion, feedback, expiry) goes through the
// Engine, which serializes work per entity, enforces the lifecycle rules,
// and emits change events for the derived views.
package sync

import (
	"context"
	"fmt"
	stdsync "sync"

	jobRepo "bottlebank/database/repository/job"
	pickupRepo "bottlebank/database/repository/pickup"
	userRepo "bottlebank/database/repository/user"
	walletRepo "bottlebank/database/repository/wallet"
	"bottlebank/models"
	"bottlebank/services/notification"
	"bottlebank/services/rating"
	"bottlebank/utils"

	"go.uber.org/zap"
)

// Engine is the single mutation surface for the job marketplace.
type Engine interface {
	CreateJob(ctx context.Context, hostID string, spec models.JobSpec) (*models.Job, error)
	DeletePost(ctx context.Context, hostID, jobID string) error

	ClaimJob(ctx context.Context, collectorID, jobID string) (*models.Job, error)
	ReleaseJob(ctx context.Context, collectorID, jobID string) error
	MarkInProgress(ctx context.Context, collectorID, jobID string) error
	MarkArrived(ctx context.Context, collectorID, jobID string) error
	CancelJob(ctx context.Context, collectorID, jobID string) error
	CompleteJob(ctx context.Context, req CompleteRequest) (*models.PickupRecord, error)

	SubmitHostFeedback(ctx context.Context, hostID, jobID string, fb models.HostFeedback) error
	DisputeJob(ctx context.Context, hostID, jobID string) error

	SweepExpired(ctx context.Context) (int, error)

	GetJob(ctx context.Context, jobID string) (*models.Job, error)
	ListJobs(ctx context.Context) ([]models.Job, error)

	// Subscribe registers a callback for committed change events and
	// returns an unsubscribe func. Callbacks run synchronously on the
	// mutating goroutine; keep them short.
	Subscribe(fn func(models.ChangeEvent)) func()

	// Close stops the backend watcher, if one is running.
	Close()
}

// DefaultEngine is the production implementation. It works against
// whichever backend its repositories wrap; the claim CAS and the atomic
// completion are repository contracts, everything above them is shared.
type DefaultEngine struct {
	jobs    jobRepo.JobRepository
	pickups pickupRepo.PickupRepository
	users   userRepo.UserRepository
	wallets walletRepo.WalletRepository

	rater    *rating.Aggregator
	notifier notification.Dispatcher

	platformFee         float64
	confidenceThreshold float64
	expiryHours         int

	locks *entityLocks
	bus   *eventBus

	watchCancel context.CancelFunc
	wg          stdsync.WaitGroup
}

// EngineDeps bundles the collaborators for NewDefaultEngine.
type EngineDeps struct {
	Jobs    jobRepo.JobRepository
	Pickups pickupRepo.PickupRepository
	Users   userRepo.UserRepository
	Wallets walletRepo.WalletRepository

	Rater    *rating.Aggregator
	Notifier notification.Dispatcher // optional

	PlatformFee         float64 // fraction, e.g. 0.08
	ConfidenceThreshold float64 // percent, e.g. 70
	ExpiryHours         int     // default post lifetime
}

func NewDefaultEngine(deps EngineDeps) (*DefaultEngine, error) {
	if deps.Jobs == nil || deps.Pickups == nil || deps.Users == nil || deps.Wallets == nil {
		return nil, fmt.Errorf("engine initialization error: missing repository")
	}
	if deps.Rater == nil {
		return nil, fmt.Errorf("engine initialization error: rating aggregator is nil")
	}
	if deps.ExpiryHours <= 0 {
		deps.ExpiryHours = 24
	}
	return &DefaultEngine{
		jobs:                deps.Jobs,
		pickups:             deps.Pickups,
		users:               deps.Users,
		wallets:             deps.Wallets,
		rater:               deps.Rater,
		notifier:            deps.Notifier,
		platformFee:         deps.PlatformFee,
		confidenceThreshold: deps.ConfidenceThreshold,
		expiryHours:         deps.ExpiryHours,
		locks:               newEntityLocks(),
		bus:                 newEventBus(),
	}, nil
}

func (e *DefaultEngine) Subscribe(fn func(models.ChangeEvent)) func() {
	return e.bus.subscribe(fn)
}

// StartWatch relays backend change notifications into the event bus, so
// writes made by other server instances reach this instance's views. Each
// relayed event re-enters through the entity's lock, keeping the
// per-entity ordering guarantee. Own writes may arrive a second time;
// view rebuilds are idempotent, so that is harmless.
func (e *DefaultEngine) StartWatch(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	ch, err := e.jobs.Watch(ctx)
	if err != nil {
		cancel()
		return fmt.Errorf("engine: start backend watch: %w", err)
	}
	e.watchCancel = cancel

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		logger := utils.GetLogger()
		for ev := range ch {
			unlock := e.locks.lock(jobKey(ev.EntityID))
			e.bus.publish(ev)
			// The backend streams only the jobs collection, but a remote
			// completion also commits pickup, wallet, and user documents.
			// Fan the invalidation out so every derived view reloads.
			for _, coll := range []string{"pickups", "wallets", "users"} {
				e.bus.publish(models.ChangeEvent{
					Collection: coll,
					EntityID:   ev.EntityID,
					Kind:       models.ChangeUpdated,
				})
			}
			unlock()
			logger.Debug("engine: relayed backend event",
				zap.String("collection", ev.Collection),
				zap.String("entityId", ev.EntityID),
				zap.String("kind", string(ev.Kind)))
		}
	}()
	return nil
}

func (e *DefaultEngine) Close() {
	if e.watchCancel != nil {
		e.watchCancel()
	}
	e.wg.Wait()
}

// GetJob loads a single job.
func (e *DefaultEngine) GetJob(ctx context.Context, jobID string) (*models.Job, error) {
	job, err := e.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, backendErr(err)
	}
	if job == nil {
		return nil, notFoundErr("job", jobID)
	}
	return job, nil
}

// ListJobs loads the full job set. View filtering happens in services/views.
func (e *DefaultEngine) ListJobs(ctx context.Context) ([]models.Job, error) {
	jobs, err := e.jobs.GetAll(ctx)
	if err != nil {
		return nil, backendErr(err)
	}
	return jobs, nil
}

// notify runs a dispatch in the background; failures are logged, never
// surfaced to the caller.
func (e *DefaultEngine) notify(name string, send func(context.Context) error) {
	if e.notifier == nil {
		return
	}
	go func() {
		if err := send(context.Background()); err != nil {
			utils.GetLogger().Warn("engine: notification failed",
				zap.String("notification", name), zap.Error(err))
		}
	}()
}
