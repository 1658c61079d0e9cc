package payment

import (
	"context"
	"fmt"
	"math"
	"time"

	"cinebook/internal/config"
	"cinebook/internal/logger"
	"cinebook/internal/models"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
)

// InitStripe initializes the Stripe API with the secret key.
func InitStripe(secretKey string) {
	stripe.Key = secretKey
}

// sessionExpiry is the lifetime of a hosted checkout page. Stripe enforces
// a 30 minute minimum; the seat hold window (10m) is shorter, so a session
// can outlive its booking — the webhook handles that as "possibly expired".
const sessionExpiry = 30 * time.Minute

// amountInCents rounds instead of truncating: seat prices like 10.10 sum to
// a float just under the exact cent value.
func amountInCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// Checkout creates hosted Stripe Checkout Sessions for bookings.
type Checkout struct {
	cfg    config.StripeConfig
	logger *logger.Logger
}

func NewCheckout(cfg config.StripeConfig, log *logger.Logger) *Checkout {
	return &Checkout{cfg: cfg, logger: log}
}

// CreateCheckoutSession builds a one-line-item session for the booking
// amount. The booking id rides in the session metadata so the webhook can
// correlate the payment back to the booking.
func (c *Checkout) CreateCheckoutSession(ctx context.Context, booking *models.Booking, movieTitle string) (string, string, error) {
	if movieTitle == "" {
		movieTitle = "Movie ticket"
	}

	params := &stripe.CheckoutSessionParams{
		SuccessURL: stripe.String(c.cfg.SuccessURL),
		CancelURL:  stripe.String(c.cfg.CancelURL),
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(c.cfg.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(movieTitle),
					},
					// Stripe wants the smallest currency unit.
					UnitAmount: stripe.Int64(amountInCents(booking.Amount)),
				},
				Quantity: stripe.Int64(1),
			},
		},
		ExpiresAt: stripe.Int64(time.Now().Add(sessionExpiry).Unix()),
	}
	params.Context = ctx
	params.AddMetadata("booking_id", booking.BookingID)

	sess, err := session.New(params)
	if err != nil {
		return "", "", fmt.Errorf("create stripe checkout session: %w", err)
	}

	c.logger.Info("PAYMENT", fmt.Sprintf("Created checkout session %s for booking %s (%s %.2f)",
		sess.ID, booking.BookingID, c.cfg.Currency, booking.Amount))
	return sess.URL, sess.ID, nil
}
