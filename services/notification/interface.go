package notification

import (
	"context"
	"fmt"
	"strings"

	userRepo "bottlebank/database/repository/user"
	"bottlebank/models"
	"bottlebank/utils"

	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
)

// Dispatcher sends lifecycle pushes. All methods are fire-and-forget from
// the engine's point of view: a delivery failure never fails the mutation
// that triggered it.
type Dispatcher interface {
	// NotifyNewJobNearby tells collectors in the job's city about a fresh post.
	NotifyNewJobNearby(ctx context.Context, job *models.Job) error
	// NotifyJobClaimed tells the host their job has been picked up by a collector.
	NotifyJobClaimed(ctx context.Context, job *models.Job) error
	// NotifyJobCompleted tells the host the pickup is done and feedback is open.
	NotifyJobCompleted(ctx context.Context, job *models.Job, pickup *models.PickupRecord) error
}

// FCMDispatcher is the production implementation, pushing through Firebase
// Cloud Messaging. Tokens are resolved from the user repository at send time.
type FCMDispatcher struct {
	users userRepo.UserRepository
}

func NewFCMDispatcher(users userRepo.UserRepository) (*FCMDispatcher, error) {
	if users == nil {
		return nil, fmt.Errorf("notification dispatcher initialization error: user repository is nil")
	}
	return &FCMDispatcher{users: users}, nil
}

func (d *FCMDispatcher) NotifyNewJobNearby(ctx context.Context, job *models.Job) error {
	logger := utils.GetLogger()

	collectors, err := d.users.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("NotifyNewJobNearby: could not list collectors: %w", err)
	}

	title := "New pickup nearby"
	body := fmt.Sprintf("%d bottles at %s", job.BottleCount, job.Address)
	data := map[string]string{"type": "new_job", "jobId": job.ID}

	sent := 0
	for i := range collectors {
		c := &collectors[i]
		if c.Role != models.RoleCollector || c.FCMToken == "" {
			continue
		}
		if c.City != "" && job.Address != "" && !sameCity(c.City, job.Address) {
			continue
		}
		if err := d.push(ctx, c.FCMToken, title, body, data); err != nil {
			logger.Warn("NotifyNewJobNearby: push failed",
				zap.String("collectorId", c.ID), zap.Error(err))
			continue
		}
		sent++
	}

	logger.Debug("NotifyNewJobNearby: fan-out done",
		zap.String("jobId", job.ID), zap.Int("sent", sent))
	return nil
}

func (d *FCMDispatcher) NotifyJobClaimed(ctx context.Context, job *models.Job) error {
	title := "Your job was claimed"
	body := fmt.Sprintf("A collector is on the way to pick up %q.", job.Title)
	return d.pushToUser(ctx, job.HostID, title, body, map[string]string{
		"type":  "job_claimed",
		"jobId": job.ID,
	})
}

func (d *FCMDispatcher) NotifyJobCompleted(ctx context.Context, job *models.Job, pickup *models.PickupRecord) error {
	title := "Pickup complete ♻️"
	body := fmt.Sprintf("%d bottles collected from %q. Leave a review for your collector!",
		pickup.BottleCount, job.Title)
	return d.pushToUser(ctx, job.HostID, title, body, map[string]string{
		"type":  "job_completed",
		"jobId": job.ID,
	})
}

func (d *FCMDispatcher) pushToUser(ctx context.Context, userID, title, body string, data map[string]string) error {
	u, err := d.users.GetByID(ctx, userID)
	if err != nil {
		return fmt.Errorf("pushToUser: could not find user %s: %w", userID, err)
	}
	if u == nil || u.FCMToken == "" {
		return nil // no push target
	}
	return d.push(ctx, u.FCMToken, title, body, data)
}

func (d *FCMDispatcher) push(ctx context.Context, token, title, body string, data map[string]string) error {
	msg := &messaging.Message{
		Token: token,
		Notification: &messaging.Notification{
			Title: title,
			Body:  body,
		},
		Data: data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				ChannelID: "high_priority",
				Sound:     "default",
			},
		},
	}
	if _, err := utils.FCMClient.Send(ctx, msg); err != nil {
		return fmt.Errorf("push: failed to send FCM message: %w", err)
	}
	return nil
}

// sameCity is a coarse match: the collector's city appears in the job address.
func sameCity(city, address string) bool {
	return strings.Contains(strings.ToLower(address), strings.ToLower(city))
}
