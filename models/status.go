package models

import "fmt"

// JobStatus is the lifecycle state of a collection point.
type JobStatus string

const (
	StatusAvailable  JobStatus = "available"
	StatusClaimed    JobStatus = "claimed"
	StatusInProgress JobStatus = "in_progress"
	StatusArrived    JobStatus = "arrived"
	StatusCompleted  JobStatus = "completed"
	StatusCancelled  JobStatus = "cancelled"
	StatusExpired    JobStatus = "expired"
	StatusDisputed   JobStatus = "disputed"
)

// NormalizeStatus maps legacy synonyms onto the canonical status set.
// Older clients and documents use "posted" for an unclaimed job and
// "matched" for a claimed one.
func NormalizeStatus(s JobStatus) JobStatus {
	switch s {
	case "posted":
		return StatusAvailable
	case "matched":
		return StatusClaimed
	}
	return s
}

// transitions holds every legal status move. Release of a claim is the
// only path back to available.
var transitions = map[JobStatus][]JobStatus{
	StatusAvailable:  {StatusClaimed, StatusExpired},
	StatusClaimed:    {StatusInProgress, StatusCompleted, StatusCancelled, StatusAvailable},
	StatusInProgress: {StatusArrived, StatusCompleted, StatusCancelled},
	StatusArrived:    {StatusCompleted},
	StatusCompleted:  {StatusDisputed},
}

// CanTransition reports whether moving from one status to another is legal.
// Both sides are normalized first.
func CanTransition(from, to JobStatus) bool {
	from = NormalizeStatus(from)
	to = NormalizeStatus(to)
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CheckTransition returns an InvalidTransitionError if the move is illegal.
// It performs no side effects, so callers can validate before touching any store.
func CheckTransition(from, to JobStatus) error {
	if !CanTransition(from, to) {
		return &InvalidTransitionError{From: from, To: to}
	}
	return nil
}

// InvalidTransitionError reports an illegal status move.
type InvalidTransitionError struct {
	From JobStatus
	To   JobStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid job status transition from %q to %q", e.From, e.To)
}

// HasActiveClaim reports whether a job in this status is currently held
// by a collector who may still act on it.
func (s JobStatus) HasActiveClaim() bool {
	switch NormalizeStatus(s) {
	case StatusClaimed, StatusInProgress, StatusArrived:
		return true
	}
	return false
}

// IsClaimable reports whether a collector may claim a job in this status.
func (s JobStatus) IsClaimable() bool {
	return NormalizeStatus(s) == StatusAvailable
}
