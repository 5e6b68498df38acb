package sync

import (
	"context"
	"fmt"
	"time"

	"bottlebank/models"
	"bottlebank/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CompleteRequest carries everything the collector submits when finishing
// a pickup.
type CompleteRequest struct {
	JobID       string `json:"jobId"`
	CollectorID string `json:"-"`

	// Verified bottle count. When the AI count is confident this is it;
	// otherwise the collector's manual count with ManualOverride set.
	BottleCount    int                       `json:"bottleCount"`
	ProofPhotoID   string                    `json:"proofPhotoId,omitempty"`
	AIConfidence   *float64                  `json:"aiConfidence,omitempty"`
	Materials      *models.MaterialBreakdown `json:"materials,omitempty"`
	ManualOverride bool                      `json:"manualOverride,omitempty"`
	Review         string                    `json:"review,omitempty"`
}

// CompleteJob finishes a pickup. The claim holder submits the verified
// bottle count; the engine derives the payout, then commits the status
// change, the pickup receipt, the wallet credit and the collector's
// lifetime counters as one unit through the repository.
func (e *DefaultEngine) CompleteJob(ctx context.Context, req CompleteRequest) (*models.PickupRecord, error) {
	if req.BottleCount <= 0 {
		return nil, validationErr("bottle count must be positive", "Count the bottles before completing.")
	}
	if req.AIConfidence != nil && *req.AIConfidence < e.confidenceThreshold && !req.ManualOverride {
		return nil, validationErr(
			fmt.Sprintf("bottle count confidence %.0f%% is below the %.0f%% threshold", *req.AIConfidence, e.confidenceThreshold),
			"Recount manually and resubmit with the manual override.",
		)
	}

	unlock := e.locks.lock(jobKey(req.JobID))
	defer unlock()

	job, err := e.jobs.GetByID(ctx, req.JobID)
	if err != nil {
		return nil, backendErr(err)
	}
	if job == nil {
		return nil, notFoundErr("job", req.JobID)
	}
	if job.ClaimedByID != req.CollectorID {
		return nil, unauthorizedErr("only the claiming collector can complete this job")
	}
	if err := models.CheckTransition(job.Status, models.StatusCompleted); err != nil {
		return nil, conflictErr(err.Error())
	}

	now := time.Now().UTC()
	payout := job.EstimatedValue() * (1 - e.platformFee)

	pickup := &models.PickupRecord{
		ID:              uuid.New().String(),
		JobID:           job.ID,
		CollectorID:     req.CollectorID,
		JobTitle:        job.Title,
		BottleCount:     req.BottleCount,
		CollectorPayout: payout,
		Review:          req.Review,
		CompletedAt:     now,
		ProofPhotoID:    req.ProofPhotoID,
		AIConfidence:    req.AIConfidence,
		Materials:       req.Materials,
		City:            job.Address,
	}
	txn := &models.WalletTransaction{
		ID:          uuid.New().String(),
		UserID:      req.CollectorID,
		Date:        now,
		Title:       job.Title,
		Amount:      payout,
		BottleCount: req.BottleCount,
	}

	job.Status = models.StatusCompleted
	job.BottleCount = req.BottleCount
	job.AIConfidence = req.AIConfidence
	job.Materials = req.Materials
	if req.ProofPhotoID != "" {
		job.ProofPhotoIDs = append(job.ProofPhotoIDs, req.ProofPhotoID)
	}

	if err := e.jobs.CompleteJob(ctx, job, pickup, txn); err != nil {
		return nil, backendErr(err)
	}

	e.bus.publish(models.ChangeEvent{Collection: "jobs", EntityID: job.ID, Kind: models.ChangeUpdated})
	e.bus.publish(models.ChangeEvent{Collection: "pickups", EntityID: pickup.ID, Kind: models.ChangeCreated})
	e.bus.publish(models.ChangeEvent{Collection: "wallets", EntityID: txn.ID, Kind: models.ChangeCreated})
	e.bus.publish(models.ChangeEvent{Collection: "users", EntityID: req.CollectorID, Kind: models.ChangeUpdated})

	utils.GetLogger().Info("job completed",
		zap.String("jobId", job.ID),
		zap.String("collectorId", req.CollectorID),
		zap.Int("bottles", req.BottleCount),
		zap.Float64("payout", payout))

	e.notify("job_completed", func(ctx context.Context) error {
		return e.notifier.NotifyJobCompleted(ctx, job, pickup)
	})

	return pickup, nil
}
