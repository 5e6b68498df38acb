package userRepo

import (
	"context"

	"bottlebank/models"
)

// UserRepository defines data access for user profiles.
type UserRepository interface {
	// Create inserts a new user record.
	Create(ctx context.Context, user *models.UserProfile) error
	// GetByID retrieves a user by its unique ID, or nil.
	GetByID(ctx context.Context, id string) (*models.UserProfile, error)
	// GetByEmail retrieves a user by its email address, or nil.
	GetByEmail(ctx context.Context, email string) (*models.UserProfile, error)
	// GetAll retrieves all users.
	GetAll(ctx context.Context) ([]models.UserProfile, error)
	// Update modifies an existing user record. It must not be used for
	// rating aggregates or counters; those have dedicated writes.
	Update(ctx context.Context, user *models.UserProfile) error
	// UpdateAggregates writes the rating-owned slice of the profile.
	// Only the rating aggregator may call this.
	UpdateAggregates(ctx context.Context, id string, agg models.RatingAggregates) error
	// IncrementCounters adds to cumulative bottle/earnings totals using
	// field-level increment semantics.
	IncrementCounters(ctx context.Context, id string, bottles int, earnings float64) error
	// IncrementCancellations bumps the cancellation count.
	IncrementCancellations(ctx context.Context, id string) error
	// IncrementDisputes bumps the dispute count.
	IncrementDisputes(ctx context.Context, id string) error
}
