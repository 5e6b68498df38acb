package jobRepo

import (
	"context"
	"time"

	"bottlebank/models"
)

// JobRepository defines data access for jobs. Both the remote (Mongo) and
// the local in-memory backend implement it; the sync engine never knows
// which one it is talking to.
type JobRepository interface {
	// Create inserts a new job record.
	Create(ctx context.Context, job *models.Job) error
	// GetByID retrieves a job by its unique ID.
	GetByID(ctx context.Context, id string) (*models.Job, error)
	// GetAll retrieves all jobs.
	GetAll(ctx context.Context) ([]models.Job, error)
	// Delete removes a job record by its ID.
	Delete(ctx context.Context, id string) error

	// TryClaim atomically claims an unclaimed, unexpired job for the
	// collector. Returns false when the job was no longer claimable,
	// which is how a lost claim race surfaces.
	TryClaim(ctx context.Context, jobID, collectorID string, now time.Time) (bool, error)

	// Release reverts a claimed job held by the collector back to
	// available and clears the claim reference.
	Release(ctx context.Context, jobID, collectorID string) (bool, error)

	// SetStatus conditionally moves a job from one of the given statuses
	// to the target status. When collectorID is non-empty the job must be
	// claimed by that collector. clearClaim drops the claim reference as
	// part of the same write. Returns false if no matching document.
	SetStatus(ctx context.Context, jobID, collectorID string, from []models.JobStatus, to models.JobStatus, clearClaim bool) (bool, error)

	// FindActiveClaim returns the job the collector currently holds, or nil.
	FindActiveClaim(ctx context.Context, collectorID string) (*models.Job, error)

	// SetFeedback records host feedback exactly once per job. Returns
	// false when feedback is already present (duplicate submission).
	SetFeedback(ctx context.Context, jobID string, fb models.HostFeedback) (bool, error)

	// MarkExpired expires the job if it is still unclaimed and past its
	// expiry. Idempotent: an already-expired job returns false, nil.
	MarkExpired(ctx context.Context, jobID string, now time.Time) (bool, error)

	// FindExpiryCandidates lists unclaimed jobs whose expiry has passed.
	FindExpiryCandidates(ctx context.Context, now time.Time) ([]models.Job, error)

	// CompleteJob commits a completion as one unit: the job moves to
	// completed, the pickup record and wallet transaction are inserted,
	// and the collector's bottle/earnings counters are incremented.
	// Either everything lands or nothing does.
	CompleteJob(ctx context.Context, job *models.Job, pickup *models.PickupRecord, txn *models.WalletTransaction) error

	// Watch streams committed changes to the jobs collection until the
	// context is done.
	Watch(ctx context.Context) (<-chan models.ChangeEvent, error)
}
