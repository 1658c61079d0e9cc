package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"cinebook/internal/logger"

	"github.com/hibiken/asynq"
)

// ExpiryEvaluator runs the hold-release evaluation for one booking.
type ExpiryEvaluator interface {
	ReleaseExpired(ctx context.Context, bookingID string) error
}

// ConfirmationMailer sends the paid-booking email with the QR ticket.
type ConfirmationMailer interface {
	SendConfirmation(ctx context.Context, bookingID string) error
}

// Worker consumes the booking task queue.
type Worker struct {
	Bookings ExpiryEvaluator
	Mailer   ConfirmationMailer
	Logger   *logger.Logger

	srv *asynq.Server
}

func NewWorker(bookings ExpiryEvaluator, mailer ConfirmationMailer, log *logger.Logger) *Worker {
	return &Worker{Bookings: bookings, Mailer: mailer, Logger: log}
}

// HandleBookingExpire evaluates one scheduled expiry. Returning an error
// makes asynq redeliver, which is safe: the evaluation is idempotent.
func (w *Worker) HandleBookingExpire(ctx context.Context, t *asynq.Task) error {
	var payload BookingTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		w.Logger.Error("TASK", fmt.Sprintf("Bad %s payload: %v", TypeBookingExpire, err))
		return fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	if err := w.Bookings.ReleaseExpired(ctx, payload.BookingID); err != nil {
		w.Logger.Error("TASK", fmt.Sprintf("Expiry evaluation for booking %s failed: %v", payload.BookingID, err))
		return err
	}
	return nil
}

// HandleBookingEmail sends the confirmation email for a paid booking.
func (w *Worker) HandleBookingEmail(ctx context.Context, t *asynq.Task) error {
	var payload BookingTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		w.Logger.Error("TASK", fmt.Sprintf("Bad %s payload: %v", TypeBookingEmail, err))
		return fmt.Errorf("unmarshal payload: %v: %w", err, asynq.SkipRetry)
	}

	if err := w.Mailer.SendConfirmation(ctx, payload.BookingID); err != nil {
		w.Logger.Error("TASK", fmt.Sprintf("Confirmation email for booking %s failed: %v", payload.BookingID, err))
		return err
	}
	return nil
}

// Run starts the asynq server and blocks until Shutdown.
func (w *Worker) Run(redisOpt asynq.RedisClientOpt) error {
	w.srv = asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 10,
		Queues: map[string]int{
			"default": 10,
		},
	})

	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeBookingExpire, w.HandleBookingExpire)
	mux.HandleFunc(TypeBookingEmail, w.HandleBookingEmail)

	return w.srv.Run(mux)
}

func (w *Worker) Shutdown() {
	if w.srv != nil {
		w.srv.Shutdown()
	}
}
