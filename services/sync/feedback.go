package sync

import (
	"context"
	"errors"
	"time"

	"bottlebank/models"
	"bottlebank/services/rating"
	"bottlebank/utils"

	"go.uber.org/zap"
)

// SubmitHostFeedback records the host's one-time review of the collector
// who completed their job and folds it into the collector's aggregates.
// Resubmissions are rejected: the feedback slot on the job is the
// dedupe key, written before the aggregates so a retry can never count a
// review twice.
func (e *DefaultEngine) SubmitHostFeedback(ctx context.Context, hostID, jobID string, fb models.HostFeedback) error {
	if fb.Rating < 1 || fb.Rating > 5 {
		return validationErr("rating must be between 1 and 5", "Pick a star rating from 1 to 5.")
	}

	unlockJob := e.locks.lock(jobKey(jobID))
	defer unlockJob()

	job, err := e.jobs.GetByID(ctx, jobID)
	if err != nil {
		return backendErr(err)
	}
	if job == nil {
		return notFoundErr("job", jobID)
	}
	if job.HostID != hostID {
		return unauthorizedErr("only the posting host can review this pickup")
	}
	if models.NormalizeStatus(job.Status) != models.StatusCompleted {
		return conflictErr("feedback is only open once the pickup is completed")
	}
	collectorID := job.ClaimedByID
	if collectorID == "" {
		return conflictErr("this job has no collector on record")
	}

	fb.HostID = hostID
	fb.SubmittedAt = time.Now().UTC()

	ok, err := e.jobs.SetFeedback(ctx, jobID, fb)
	if err != nil {
		return backendErr(err)
	}
	if !ok {
		return conflictErr("feedback for this pickup was already submitted")
	}

	unlockUser := e.locks.lock(userKey(collectorID))
	defer unlockUser()

	if err := e.rater.ApplyFeedback(ctx, collectorID, fb.Rating, fb.PickedInDaytime); err != nil {
		switch {
		case errors.Is(err, rating.ErrInvalidRating):
			return validationErr(err.Error(), "Pick a star rating from 1 to 5.")
		case errors.Is(err, rating.ErrUserNotFound):
			return notFoundErr("user", collectorID)
		default:
			return backendErr(err)
		}
	}

	e.bus.publish(models.ChangeEvent{Collection: "jobs", EntityID: jobID, Kind: models.ChangeUpdated})
	e.bus.publish(models.ChangeEvent{Collection: "users", EntityID: collectorID, Kind: models.ChangeUpdated})

	utils.GetLogger().Info("host feedback recorded",
		zap.String("jobId", jobID),
		zap.String("collectorId", collectorID),
		zap.Int("rating", fb.Rating))
	return nil
}

// DisputeJob lets the host contest a completed pickup. The job moves to
// disputed and the dispute counts against the collector; resolution is a
// support workflow, not part of the lifecycle.
func (e *DefaultEngine) DisputeJob(ctx context.Context, hostID, jobID string) error {
	unlock := e.locks.lock(jobKey(jobID))
	defer unlock()

	job, err := e.jobs.GetByID(ctx, jobID)
	if err != nil {
		return backendErr(err)
	}
	if job == nil {
		return notFoundErr("job", jobID)
	}
	if job.HostID != hostID {
		return unauthorizedErr("only the posting host can dispute this pickup")
	}
	if err := models.CheckTransition(job.Status, models.StatusDisputed); err != nil {
		return conflictErr(err.Error())
	}

	ok, err := e.jobs.SetStatus(ctx, jobID, "", []models.JobStatus{models.StatusCompleted}, models.StatusDisputed, false)
	if err != nil {
		return backendErr(err)
	}
	if !ok {
		return conflictErr("this pickup is not in a disputable state")
	}

	if job.ClaimedByID != "" {
		if err := e.users.IncrementDisputes(ctx, job.ClaimedByID); err != nil {
			utils.GetLogger().Warn("dispute: counter increment failed",
				zap.String("collectorId", job.ClaimedByID), zap.Error(err))
		}
		e.bus.publish(models.ChangeEvent{Collection: "users", EntityID: job.ClaimedByID, Kind: models.ChangeUpdated})
	}

	e.bus.publish(models.ChangeEvent{Collection: "jobs", EntityID: jobID, Kind: models.ChangeUpdated})
	return nil
}
