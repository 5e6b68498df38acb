package sync

import (
	"context"
	"time"

	"bottlebank/models"
	"bottlebank/utils"

	"go.uber.org/zap"
)

// ClaimJob attempts to claim an available job for the collector. A
// collector may hold at most one active claim at a time, and the claim
// write itself is a conditional update, so two racing collectors can never
// both win: the loser gets a Conflict.
func (e *DefaultEngine) ClaimJob(ctx context.Context, collectorID, jobID string) (*models.Job, error) {
	collector, err := e.users.GetByID(ctx, collectorID)
	if err != nil {
		return nil, backendErr(err)
	}
	if collector == nil {
		return nil, notFoundErr("user", collectorID)
	}
	if collector.Role != models.RoleCollector {
		return nil, unauthorizedErr("only collectors can claim jobs")
	}

	// Lock order is always job before user; feedback and completion take
	// the same order, so the two paths can never deadlock on each other.
	unlockJob := e.locks.lock(jobKey(jobID))
	defer unlockJob()

	job, err := e.jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, backendErr(err)
	}
	if job == nil {
		return nil, notFoundErr("job", jobID)
	}

	now := time.Now().UTC()
	if job.Expired(now) {
		return nil, conflictErr("this job has expired")
	}
	if !job.Status.IsClaimable() {
		return nil, conflictErr("this job is no longer available")
	}

	// The one-active-claim check and the claim write run under the
	// collector's lock, so a collector racing against themselves from two
	// devices still ends up with a single claim.
	unlockUser := e.locks.lock(userKey(collectorID))
	defer unlockUser()

	active, err := e.jobs.FindActiveClaim(ctx, collectorID)
	if err != nil {
		return nil, backendErr(err)
	}
	if active != nil {
		return nil, conflictErr("you already have an active pickup; finish or release it first")
	}

	ok, err := e.jobs.TryClaim(ctx, jobID, collectorID, now)
	if err != nil {
		return nil, backendErr(err)
	}
	if !ok {
		// Another collector's write landed between our read and the
		// conditional update.
		return nil, conflictErr("another collector claimed this job first")
	}

	job.Status = models.StatusClaimed
	job.ClaimedByID = collectorID

	e.bus.publish(models.ChangeEvent{Collection: "jobs", EntityID: jobID, Kind: models.ChangeUpdated})

	utils.GetLogger().Info("job claimed",
		zap.String("jobId", jobID),
		zap.String("collectorId", collectorID))

	e.notify("job_claimed", func(ctx context.Context) error {
		return e.notifier.NotifyJobClaimed(ctx, job)
	})

	return job, nil
}

// ReleaseJob hands a claimed job back to the pool. Only the claim holder
// can release, and only before work has started.
func (e *DefaultEngine) ReleaseJob(ctx context.Context, collectorID, jobID string) error {
	unlock := e.locks.lock(jobKey(jobID))
	defer unlock()

	job, err := e.jobs.GetByID(ctx, jobID)
	if err != nil {
		return backendErr(err)
	}
	if job == nil {
		return notFoundErr("job", jobID)
	}
	if job.ClaimedByID != collectorID {
		return unauthorizedErr("only the claiming collector can release this job")
	}
	if err := models.CheckTransition(job.Status, models.StatusAvailable); err != nil {
		return conflictErr(err.Error())
	}

	ok, err := e.jobs.Release(ctx, jobID, collectorID)
	if err != nil {
		return backendErr(err)
	}
	if !ok {
		return conflictErr("this job is not in a releasable state")
	}

	e.bus.publish(models.ChangeEvent{Collection: "jobs", EntityID: jobID, Kind: models.ChangeUpdated})
	return nil
}

// MarkInProgress records that the collector has started the pickup run.
func (e *DefaultEngine) MarkInProgress(ctx context.Context, collectorID, jobID string) error {
	return e.advance(ctx, collectorID, jobID, models.StatusInProgress)
}

// MarkArrived records that the collector is on site.
func (e *DefaultEngine) MarkArrived(ctx context.Context, collectorID, jobID string) error {
	return e.advance(ctx, collectorID, jobID, models.StatusArrived)
}

// CancelJob abandons an active claim mid-flight. The job does not return
// to the pool and the cancellation counts against the collector.
func (e *DefaultEngine) CancelJob(ctx context.Context, collectorID, jobID string) error {
	if err := e.advance(ctx, collectorID, jobID, models.StatusCancelled); err != nil {
		return err
	}
	if err := e.users.IncrementCancellations(ctx, collectorID); err != nil {
		utils.GetLogger().Warn("cancel: counter increment failed",
			zap.String("collectorId", collectorID), zap.Error(err))
	}
	e.bus.publish(models.ChangeEvent{Collection: "users", EntityID: collectorID, Kind: models.ChangeUpdated})
	return nil
}

// advance moves a claimed job to the target status on behalf of its claim
// holder, validating the transition against the lifecycle table first.
func (e *DefaultEngine) advance(ctx context.Context, collectorID, jobID string, to models.JobStatus) error {
	unlock := e.locks.lock(jobKey(jobID))
	defer unlock()

	job, err := e.jobs.GetByID(ctx, jobID)
	if err != nil {
		return backendErr(err)
	}
	if job == nil {
		return notFoundErr("job", jobID)
	}
	if job.ClaimedByID != collectorID {
		return unauthorizedErr("only the claiming collector can update this job")
	}
	if err := models.CheckTransition(job.Status, to); err != nil {
		return conflictErr(err.Error())
	}

	clearClaim := to == models.StatusCancelled
	ok, err := e.jobs.SetStatus(ctx, jobID, collectorID, []models.JobStatus{job.Status}, to, clearClaim)
	if err != nil {
		return backendErr(err)
	}
	if !ok {
		return conflictErr("the job changed underneath you; refresh and retry")
	}

	e.bus.publish(models.ChangeEvent{Collection: "jobs", EntityID: jobID, Kind: models.ChangeUpdated})
	return nil
}
