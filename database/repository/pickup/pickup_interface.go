package pickupRepo

import (
	"context"

	"bottlebank/models"
)

// PickupRepository defines data access for pickup records. Records are
// append-only: there is no update or delete.
type PickupRepository interface {
	// Create inserts a new pickup record.
	Create(ctx context.Context, rec *models.PickupRecord) error
	// GetByJobID retrieves the record for a completed job, or nil.
	GetByJobID(ctx context.Context, jobID string) (*models.PickupRecord, error)
	// ListByCollector retrieves a collector's history, newest first.
	ListByCollector(ctx context.Context, collectorID string) ([]models.PickupRecord, error)
	// ListAll retrieves every pickup record.
	ListAll(ctx context.Context) ([]models.PickupRecord, error)
}
