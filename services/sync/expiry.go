package sync

import (
	"context"
	"time"

	"bottlebank/models"
	"bottlebank/utils"

	"go.uber.org/zap"
)

// SweepExpired expires every unclaimed job whose lifetime has lapsed and
// returns how many it moved. The per-job write is conditional, so
// overlapping sweeps (or a sweep racing a claim) settle to exactly one
// outcome per job and the sweep stays idempotent.
func (e *DefaultEngine) SweepExpired(ctx context.Context) (int, error) {
	now := time.Now().UTC()

	candidates, err := e.jobs.FindExpiryCandidates(ctx, now)
	if err != nil {
		return 0, backendErr(err)
	}

	expired := 0
	for i := range candidates {
		id := candidates[i].ID

		unlock := e.locks.lock(jobKey(id))
		ok, err := e.jobs.MarkExpired(ctx, id, now)
		if err != nil {
			unlock()
			utils.GetLogger().Warn("expiry sweep: mark failed",
				zap.String("jobId", id), zap.Error(err))
			continue
		}
		if ok {
			e.bus.publish(models.ChangeEvent{Collection: "jobs", EntityID: id, Kind: models.ChangeUpdated})
			expired++
		}
		unlock()
	}

	if expired > 0 {
		utils.GetLogger().Info("expiry sweep done", zap.Int("expired", expired))
	}
	return expired, nil
}
