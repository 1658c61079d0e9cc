package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"cinebook/internal/booking"
	"cinebook/internal/logger"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// maxWebhookBody caps the payload size read from Stripe.
const maxWebhookBody = 65536

// WebhookError carries a public-facing message separately from the detail
// that only belongs in logs.
type WebhookError struct {
	Category      string // "configuration", "validation", "processing"
	StatusCode    int
	PublicError   string
	InternalError string
	OriginalErr   error
}

func (e *WebhookError) Error() string {
	return e.InternalError
}

// PaymentConfirmer is the slice of the booking service the webhook needs.
// ConfirmPayment returns booking.ErrBookingNotFound when the booking no
// longer exists.
type PaymentConfirmer interface {
	ConfirmPayment(ctx context.Context, bookingID string) error
}

// WebhookHandler verifies and processes Stripe webhook deliveries.
type WebhookHandler struct {
	Secret   string
	Bookings PaymentConfirmer
	Logger   *logger.Logger
}

func NewWebhookHandler(secret string, bookings PaymentConfirmer, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{Secret: secret, Bookings: bookings, Logger: log}
}

// ServeHTTP handles POST /api/stripe/webhook. Signature failures reject
// with 400 before any processing; a booking that is already gone still acks
// 200 so Stripe stops retrying.
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := h.process(r); err != nil {
		var whErr *WebhookError
		if errors.As(err, &whErr) {
			h.Logger.Error("WEBHOOK", whErr.InternalError)
			http.Error(w, whErr.PublicError, whErr.StatusCode)
			return
		}
		h.Logger.Error("WEBHOOK", fmt.Sprintf("Webhook processing failed: %v", err))
		http.Error(w, "Webhook processing error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"received":true}`))
}

func (h *WebhookHandler) process(r *http.Request) error {
	if h.Secret == "" {
		return &WebhookError{
			Category:      "configuration",
			StatusCode:    http.StatusInternalServerError,
			PublicError:   "Webhook processing error",
			InternalError: "Stripe webhook secret is not configured",
		}
	}

	payload, err := io.ReadAll(http.MaxBytesReader(nil, r.Body, maxWebhookBody))
	if err != nil {
		return &WebhookError{
			Category:      "validation",
			StatusCode:    http.StatusBadRequest,
			PublicError:   "Invalid webhook payload",
			InternalError: fmt.Sprintf("Failed to read webhook payload: %v", err),
			OriginalErr:   err,
		}
	}

	// Verify signature with API version mismatch tolerance
	opts := webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	}
	event, err := webhook.ConstructEventWithOptions(payload, r.Header.Get("Stripe-Signature"), h.Secret, opts)
	if err != nil {
		return &WebhookError{
			Category:      "validation",
			StatusCode:    http.StatusBadRequest,
			PublicError:   "Invalid webhook signature",
			InternalError: fmt.Sprintf("Webhook signature verification failed: %v", err),
			OriginalErr:   err,
		}
	}

	h.Logger.Info("WEBHOOK", fmt.Sprintf("Processing Stripe webhook event: %s", event.Type))

	switch event.Type {
	case stripe.EventTypeCheckoutSessionCompleted:
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return &WebhookError{
				Category:      "processing",
				StatusCode:    http.StatusBadRequest,
				PublicError:   "Invalid event data",
				InternalError: fmt.Sprintf("Failed to unmarshal checkout session: %v", err),
				OriginalErr:   err,
			}
		}

		bookingID, exists := sess.Metadata["booking_id"]
		if !exists || bookingID == "" {
			return &WebhookError{
				Category:      "processing",
				StatusCode:    http.StatusBadRequest,
				PublicError:   "Invalid session data",
				InternalError: fmt.Sprintf("Checkout session %s has no booking_id in metadata", sess.ID),
			}
		}

		if err := h.Bookings.ConfirmPayment(r.Context(), bookingID); err != nil {
			if errors.Is(err, booking.ErrBookingNotFound) {
				// Hold window beat the payment: the booking was already
				// released and deleted. Ack anyway so Stripe stops retrying.
				h.Logger.Warn("WEBHOOK", fmt.Sprintf("Booking %s not found, possibly expired before payment settled", bookingID))
				return nil
			}
			return &WebhookError{
				Category:      "processing",
				StatusCode:    http.StatusInternalServerError,
				PublicError:   "Failed to process payment",
				InternalError: fmt.Sprintf("Failed to confirm payment for booking %s: %v", bookingID, err),
				OriginalErr:   err,
			}
		}

		h.Logger.Info("WEBHOOK", fmt.Sprintf("Successfully processed payment for booking %s", bookingID))

	default:
		h.Logger.Info("WEBHOOK", fmt.Sprintf("Unhandled event type: %s", event.Type))
	}

	return nil
}
