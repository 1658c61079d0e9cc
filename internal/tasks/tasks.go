package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cinebook/internal/logger"

	"github.com/hibiken/asynq"
)

// Task types routed through the asynq queue. The queue lives in Redis, so
// a scheduled expiry survives process restarts and is delivered
// at-least-once — handlers must stay idempotent.
const (
	TypeBookingExpire = "booking:expire"
	TypeBookingEmail  = "booking:email"
)

// BookingTaskPayload is the payload shared by both booking task types.
type BookingTaskPayload struct {
	BookingID string `json:"booking_id"`
}

// Scheduler enqueues durable tasks. It is the write side of the queue; the
// Worker in worker.go is the read side.
type Scheduler struct {
	client *asynq.Client
	logger *logger.Logger
}

func NewScheduler(redisOpt asynq.RedisClientOpt, log *logger.Logger) *Scheduler {
	return &Scheduler{
		client: asynq.NewClient(redisOpt),
		logger: log,
	}
}

// ScheduleExpiry arranges for the expiry evaluation to run once the hold
// window has elapsed, measured from now (commit time).
func (s *Scheduler) ScheduleExpiry(ctx context.Context, bookingID string, delay time.Duration) error {
	payload, err := json.Marshal(BookingTaskPayload{BookingID: bookingID})
	if err != nil {
		return err
	}

	task := asynq.NewTask(TypeBookingExpire, payload)
	info, err := s.client.EnqueueContext(ctx, task,
		asynq.ProcessIn(delay),
		asynq.MaxRetry(5),
	)
	if err != nil {
		return fmt.Errorf("enqueue expiry task: %w", err)
	}

	s.logger.LogTask(TypeBookingExpire, fmt.Sprintf("scheduled task %s for booking %s in %s", info.ID, bookingID, delay))
	return nil
}

// EnqueueConfirmationEmail queues the confirmation email for immediate
// delivery. Retries are asynq's problem, not the caller's.
func (s *Scheduler) EnqueueConfirmationEmail(ctx context.Context, bookingID string) error {
	payload, err := json.Marshal(BookingTaskPayload{BookingID: bookingID})
	if err != nil {
		return err
	}

	task := asynq.NewTask(TypeBookingEmail, payload)
	info, err := s.client.EnqueueContext(ctx, task,
		asynq.MaxRetry(10),
		asynq.Timeout(30*time.Second),
	)
	if err != nil {
		return fmt.Errorf("enqueue email task: %w", err)
	}

	s.logger.LogTask(TypeBookingEmail, fmt.Sprintf("queued task %s for booking %s", info.ID, bookingID))
	return nil
}

func (s *Scheduler) Close() error {
	return s.client.Close()
}
