package sync

import (
	"context"
	"time"

	"bottlebank/models"
	"bottlebank/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	baseMultiplierResidential = 1.0
	baseMultiplierBulk        = 1.1
	baseMultiplierCommercial  = 1.2
	highVolumeBoost           = 0.1
	highVolumeThreshold       = 250
	multiplierCap             = 1.5
)

// DemandMultiplier prices a post by tier and volume. Always in [1.0, 1.5].
func DemandMultiplier(tier models.JobTier, bottleCount int) float64 {
	var m float64
	switch tier {
	case models.TierBulk:
		m = baseMultiplierBulk
	case models.TierCommercial:
		m = baseMultiplierCommercial
	default:
		m = baseMultiplierResidential
	}
	if bottleCount > highVolumeThreshold {
		m += highVolumeBoost
	}
	if m > multiplierCap {
		m = multiplierCap
	}
	return m
}

// CreateJob posts a new collection point for the host. The job starts
// available, priced with the demand multiplier, and expires after the
// configured lifetime unless the host asked for a different one.
func (e *DefaultEngine) CreateJob(ctx context.Context, hostID string, spec models.JobSpec) (*models.Job, error) {
	if spec.Title == "" {
		return nil, validationErr("a job needs a title", "Give the post a short descriptive title.")
	}
	if spec.BottleCount <= 0 {
		return nil, validationErr("bottle count must be positive", "Estimate how many bottles are waiting.")
	}
	if spec.Payout <= 0 {
		return nil, validationErr("payout must be positive", "Set the payout you are offering for the pickup.")
	}
	switch spec.Tier {
	case models.TierResidential, models.TierBulk, models.TierCommercial, "":
	default:
		return nil, validationErr("unknown job tier", "Use residential, bulk, or commercial.")
	}

	host, err := e.users.GetByID(ctx, hostID)
	if err != nil {
		return nil, backendErr(err)
	}
	if host == nil {
		return nil, notFoundErr("user", hostID)
	}
	if host.Role != models.RoleHost {
		return nil, unauthorizedErr("only hosts can post jobs")
	}

	now := time.Now().UTC()
	hours := e.expiryHours
	if spec.ExpiresInHours > 0 {
		hours = spec.ExpiresInHours
	}
	expiresAt := now.Add(time.Duration(hours) * time.Hour)

	tier := spec.Tier
	if tier == "" {
		tier = models.TierResidential
	}

	job := &models.Job{
		ID:               uuid.New().String(),
		HostID:           hostID,
		Title:            spec.Title,
		Address:          spec.Address,
		Location:         spec.Location,
		BottleCount:      spec.BottleCount,
		Payout:           spec.Payout,
		DemandMultiplier: DemandMultiplier(tier, spec.BottleCount),
		Tier:             tier,
		Schedule:         spec.Schedule,
		Notes:            spec.Notes,
		HostRating:       host.Rating,
		Recurring:        spec.Recurring,
		Status:           models.StatusAvailable,
		CreatedAt:        now,
		ExpiresAt:        &expiresAt,
	}

	unlock := e.locks.lock(jobKey(job.ID))
	defer unlock()

	if err := e.jobs.Create(ctx, job); err != nil {
		return nil, backendErr(err)
	}
	e.bus.publish(models.ChangeEvent{Collection: "jobs", EntityID: job.ID, Kind: models.ChangeCreated})

	utils.GetLogger().Info("job posted",
		zap.String("jobId", job.ID),
		zap.String("hostId", hostID),
		zap.String("tier", string(tier)),
		zap.Int("bottles", job.BottleCount))

	e.notify("new_job_nearby", func(ctx context.Context) error {
		return e.notifier.NotifyNewJobNearby(ctx, job)
	})

	return job, nil
}

// DeletePost removes a job the host no longer wants filled. Only allowed
// while the post is still available; once a collector holds a claim the
// host must wait for a release or cancellation.
func (e *DefaultEngine) DeletePost(ctx context.Context, hostID, jobID string) error {
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
		return unauthorizedErr("only the posting host can delete this job")
	}
	if job.Status != models.StatusAvailable || job.ClaimedByID != "" {
		return conflictErr("this job has an active claim and cannot be deleted")
	}

	if err := e.jobs.Delete(ctx, jobID); err != nil {
		return backendErr(err)
	}
	e.bus.publish(models.ChangeEvent{Collection: "jobs", EntityID: jobID, Kind: models.ChangeDeleted})
	return nil
}
