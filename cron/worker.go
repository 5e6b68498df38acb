// Package cron runs the background jobs: the periodic expiry sweep that
// retires stale posts.
package cron

import (
	"context"
	"log"
	"time"

	"bottlebank/config"
	"bottlebank/services/sync"

	"github.com/hibiken/asynq"
)

const TypeExpirySweep = "jobs:expiry_sweep"

// InitSweepWorker starts the asynq worker and schedules the expiry sweep
// every five minutes. The sweep itself is idempotent, so missed or doubled
// runs are harmless.
func InitSweepWorker(engine sync.Engine) {
	redisOpts := asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisSweepDB,
	}

	srv := asynq.NewServer(
		redisOpts,
		asynq.Config{
			Concurrency: 2,
			Queues: map[string]int{
				"default": 1,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeExpirySweep, handleExpirySweep(engine))

	go func() {
		log.Println("[SweepWorker] starting async worker...")
		const maxAttempts = 5
		for attempts := 1; attempts <= maxAttempts; attempts++ {
			if err := srv.Run(mux); err != nil {
				log.Printf("[SweepWorker] attempt %d/%d failed to start worker: %v", attempts, maxAttempts, err)
				if attempts == maxAttempts {
					log.Fatal("[SweepWorker] max retry attempts reached, exiting")
				}
				time.Sleep(time.Duration(attempts*2) * time.Second)
			} else {
				break
			}
		}
	}()

	go runScheduler(redisOpts)
}

func handleExpirySweep(engine sync.Engine) asynq.HandlerFunc {
	return func(ctx context.Context, task *asynq.Task) error {
		n, err := engine.SweepExpired(ctx)
		if err != nil {
			log.Printf("[SweepWorker] sweep failed: %v", err)
			return err
		}
		if n > 0 {
			log.Printf("[SweepWorker] expired %d stale posts", n)
		}
		return nil
	}
}

// runScheduler enqueues the sweep task on a fixed interval.
func runScheduler(redisOpts asynq.RedisClientOpt) {
	scheduler := asynq.NewScheduler(redisOpts, nil)
	if _, err := scheduler.Register("@every 5m", asynq.NewTask(TypeExpirySweep, nil)); err != nil {
		log.Printf("[SweepWorker] failed to register schedule: %v", err)
		return
	}
	if err := scheduler.Run(); err != nil {
		log.Printf("[SweepWorker] scheduler stopped: %v", err)
	}
}
