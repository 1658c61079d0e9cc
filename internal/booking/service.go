package booking

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cinebook/internal/logger"
	"cinebook/internal/models"

	"github.com/google/uuid"
)

// ShowStore is the durable source of truth for per-seat occupancy.
// OccupySeats must behave as an atomic check-and-set: it fails with
// ErrSeatsUnavailable when a concurrent writer took any of the seats first.
type ShowStore interface {
	GetShow(ctx context.Context, showID string) (*models.Show, error)
	OccupySeats(ctx context.Context, showID string, seats []string, userID string) error
	ReleaseSeats(ctx context.Context, showID string, seats []string) error
}

// BookingStore persists bookings. ExpireBooking is the expiry side of the
// payment-vs-expiry race: it deletes the booking and frees its seats in one
// guarded transaction, and reports false when payment already landed.
type BookingStore interface {
	CreateBooking(ctx context.Context, booking *models.Booking) error
	GetBookingByID(ctx context.Context, bookingID string) (*models.Booking, error)
	SetPaymentSession(ctx context.Context, bookingID, link, sessionID string) error
	MarkBookingPaid(ctx context.Context, bookingID string) error
	ExpireBooking(ctx context.Context, bookingID string) (bool, error)
	GetBookingsByUser(ctx context.Context, userID string) ([]models.Booking, error)
}

// SeatHolds is the Redis fast path: short-lived per-seat locks that
// serialize concurrent booking attempts before they hit the store.
type SeatHolds interface {
	HoldSeats(showID string, seats []string, bookingID string) (bool, error)
	ReleaseHolds(showID string, seats []string, bookingID string) error
}

// CheckoutProvider creates a hosted payment session for a booking and
// returns the redirect URL plus the session id used for webhook correlation.
type CheckoutProvider interface {
	CreateCheckoutSession(ctx context.Context, booking *models.Booking, movieTitle string) (url string, sessionID string, err error)
}

// TaskScheduler is the durable task collaborator: at-least-once,
// crash-resumable execution of the expiry evaluation and the confirmation
// email.
type TaskScheduler interface {
	ScheduleExpiry(ctx context.Context, bookingID string, delay time.Duration) error
	EnqueueConfirmationEmail(ctx context.Context, bookingID string) error
}

type EventPublisher interface {
	PublishBookingCreated(booking models.Booking) error
	PublishBookingPaid(booking models.Booking) error
	PublishBookingExpired(booking models.Booking) error
}

type BookingService struct {
	Shows      ShowStore
	Bookings   BookingStore
	Holds      SeatHolds
	Checkout   CheckoutProvider
	Scheduler  TaskScheduler
	Events     EventPublisher
	HoldWindow time.Duration
	logger     *logger.Logger
}

func NewBookingService(
	shows ShowStore,
	bookings BookingStore,
	holds SeatHolds,
	checkout CheckoutProvider,
	scheduler TaskScheduler,
	events EventPublisher,
	holdWindow time.Duration,
	log *logger.Logger,
) *BookingService {
	return &BookingService{
		Shows:      shows,
		Bookings:   bookings,
		Holds:      holds,
		Checkout:   checkout,
		Scheduler:  scheduler,
		Events:     events,
		HoldWindow: holdWindow,
		logger:     log,
	}
}

// CheckAvailability reports whether every requested seat is currently free
// on the show. An unknown show fails closed (unavailable, no error).
func (s *BookingService) CheckAvailability(ctx context.Context, showID string, seats []string) (bool, error) {
	show, err := s.Shows.GetShow(ctx, showID)
	if err != nil {
		if err == ErrShowNotFound {
			return false, nil
		}
		return false, err
	}
	return show.SeatsFree(seats), nil
}

// CreateBooking places a seat hold and creates the unpaid booking, then
// kicks off the payment session, the expiry timer and the created event.
//
// Ordering matters: the Redis holds and the guarded store write both commit
// before anything externally visible happens. A failure after the seat write
// runs a compensating release, so a missing booking always implies the seats
// were not left marked occupied.
func (s *BookingService) CreateBooking(ctx context.Context, userID, userEmail, showID string, seats []string) (*models.BookingResponse, error) {
	show, err := s.Shows.GetShow(ctx, showID)
	if err != nil {
		if err == ErrShowNotFound {
			return nil, ErrShowNotFound
		}
		return nil, fmt.Errorf("fetch show %s: %w", showID, err)
	}

	if !show.SeatsFree(seats) {
		return nil, ErrSeatsUnavailable
	}

	bookingID := uuid.NewString()

	// Fast-path serialization: per-seat Redis holds. A loser here never
	// reaches the store.
	held, err := s.Holds.HoldSeats(showID, seats, bookingID)
	if err != nil {
		return nil, fmt.Errorf("seat hold: %w", err)
	}
	if !held {
		return nil, ErrSeatsUnavailable
	}

	// Guard of record: conditional write into the show document. Loses
	// cleanly if another commit raced past the Redis holds (e.g. holds
	// expired mid-flight).
	if err := s.Shows.OccupySeats(ctx, showID, seats, userID); err != nil {
		_ = s.Holds.ReleaseHolds(showID, seats, bookingID)
		if err == ErrSeatsUnavailable || err == ErrShowNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("occupy seats: %w", err)
	}

	movieTitle := ""
	if show.Movie != nil {
		movieTitle = show.Movie.Title
	}

	booking := &models.Booking{
		BookingID:   bookingID,
		UserID:      userID,
		UserEmail:   userEmail,
		ShowID:      showID,
		BookedSeats: seats,
		Amount:      show.ShowPrice * float64(len(seats)),
		IsPaid:      false,
		CreatedAt:   time.Now().UTC(),
	}
	booking.QRPayload, _ = json.Marshal(models.QRTicket{
		BookingID: bookingID,
		UserID:    userID,
		ShowID:    showID,
		Seats:     seats,
		Movie:     movieTitle,
		ShowTime:  show.ShowDateTime,
	})

	if err := s.Bookings.CreateBooking(ctx, booking); err != nil {
		// Compensate: seats must never stay occupied without a booking row.
		s.logger.Error("BOOKING", fmt.Sprintf("Failed to create booking %s, releasing seats: %v", bookingID, err))
		if relErr := s.Shows.ReleaseSeats(ctx, showID, seats); relErr != nil {
			s.logger.Error("BOOKING", fmt.Sprintf("Compensating seat release failed for show %s: %v", showID, relErr))
		}
		_ = s.Holds.ReleaseHolds(showID, seats, bookingID)
		return nil, fmt.Errorf("create booking: %w", err)
	}

	// The seat hold and booking are committed. Everything below is
	// fire-and-forget: a failure leaves an unpaid booking that the expiry
	// task cleans up on its own.
	if err := s.Scheduler.ScheduleExpiry(ctx, bookingID, s.HoldWindow); err != nil {
		s.logger.Error("BOOKING", fmt.Sprintf("Failed to schedule expiry for booking %s: %v", bookingID, err))
	}

	checkoutURL, sessionID, err := s.Checkout.CreateCheckoutSession(ctx, booking, movieTitle)
	if err != nil {
		s.logger.Error("PAYMENT", fmt.Sprintf("Checkout session for booking %s failed: %v", bookingID, err))
		return nil, fmt.Errorf("create checkout session: %w", err)
	}
	booking.PaymentLink = checkoutURL
	booking.PaymentSessionID = sessionID

	// Persist the link so the user can resume payment from their bookings
	// list. A failure here only degrades resume; the response below still
	// carries the URL.
	if err := s.Bookings.SetPaymentSession(ctx, bookingID, checkoutURL, sessionID); err != nil {
		s.logger.Error("BOOKING", fmt.Sprintf("Store payment session for booking %s: %v", bookingID, err))
	}

	if err := s.Events.PublishBookingCreated(*booking); err != nil {
		s.logger.Error("KAFKA", fmt.Sprintf("Publish booking created %s: %v", bookingID, err))
	}

	s.logger.LogBooking("CREATE", bookingID, fmt.Sprintf("held %d seat(s) on show %s for user %s", len(seats), showID, userID))

	return &models.BookingResponse{
		BookingID:   bookingID,
		CheckoutURL: checkoutURL,
	}, nil
}

// ConfirmPayment marks the booking paid. Called by the Stripe webhook once
// the checkout session completes; at-least-once delivery makes this
// idempotent. Never touches the show's seat map.
func (s *BookingService) ConfirmPayment(ctx context.Context, bookingID string) error {
	booking, err := s.Bookings.GetBookingByID(ctx, bookingID)
	if err != nil {
		return err
	}

	if booking.IsPaid {
		s.logger.LogBooking("PAY", bookingID, "already marked paid, ignoring duplicate confirmation")
		return nil
	}

	if err := s.Bookings.MarkBookingPaid(ctx, bookingID); err != nil {
		return fmt.Errorf("mark booking paid: %w", err)
	}
	booking.IsPaid = true
	booking.PaymentLink = ""

	if err := s.Events.PublishBookingPaid(*booking); err != nil {
		s.logger.Error("KAFKA", fmt.Sprintf("Publish booking paid %s: %v", bookingID, err))
	}
	if err := s.Scheduler.EnqueueConfirmationEmail(ctx, bookingID); err != nil {
		s.logger.Error("BOOKING", fmt.Sprintf("Enqueue confirmation email for %s: %v", bookingID, err))
	}

	s.logger.LogBooking("PAY", bookingID, "payment confirmed")
	return nil
}

// GetBooking returns one booking by id.
func (s *BookingService) GetBooking(ctx context.Context, bookingID string) (*models.Booking, error) {
	return s.Bookings.GetBookingByID(ctx, bookingID)
}

// UserBookings returns all bookings for a user, newest first.
func (s *BookingService) UserBookings(ctx context.Context, userID string) ([]models.Booking, error) {
	return s.Bookings.GetBookingsByUser(ctx, userID)
}

// OccupiedSeats returns the occupied seat labels of a show.
func (s *BookingService) OccupiedSeats(ctx context.Context, showID string) ([]string, error) {
	show, err := s.Shows.GetShow(ctx, showID)
	if err != nil {
		return nil, err
	}
	seats := make([]string, 0, len(show.OccupiedSeats))
	for seat := range show.OccupiedSeats {
		seats = append(seats, seat)
	}
	return seats, nil
}
