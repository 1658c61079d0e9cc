package models

import (
	"time"

	"github.com/uptrace/bun"
)

// Booking is a seat hold on one show. It is created unpaid; the Stripe
// webhook flips IsPaid, the expiry task deletes it if the hold window runs
// out first. BookedSeats stays a subset of the show's occupied map for the
// whole lifetime of the row.
type Booking struct {
	bun.BaseModel `bun:"table:bookings"`

	BookingID        string    `bun:"booking_id,pk" json:"booking_id"`
	UserID           string    `bun:"user_id,notnull" json:"user_id"`
	UserEmail        string    `bun:"user_email,nullzero" json:"-"`
	ShowID           string    `bun:"show_id,notnull" json:"show_id"`
	BookedSeats      []string  `bun:"booked_seats" json:"booked_seats"`
	Amount           float64   `bun:"amount,notnull" json:"amount"`
	IsPaid           bool      `bun:"is_paid,notnull,default:false" json:"is_paid"`
	PaymentLink      string    `bun:"payment_link,nullzero" json:"payment_link,omitempty"`
	PaymentSessionID string    `bun:"payment_session_id,nullzero" json:"-"`
	QRPayload        []byte    `bun:"qr_payload,nullzero" json:"-"`
	CreatedAt        time.Time `bun:"created_at,notnull" json:"created_at"`

	Show *Show `bun:"rel:belongs-to,join:show_id=show_id" json:"show,omitempty"`
}

type BookingRequest struct {
	ShowID        string   `json:"show_id" validate:"required"`
	SelectedSeats []string `json:"selected_seats" validate:"required,min=1,max=10,unique"`
}

type BookingResponse struct {
	BookingID   string `json:"booking_id"`
	CheckoutURL string `json:"checkout_url"`
}

// BookingEvent is the Kafka payload for booking lifecycle topics.
type BookingEvent struct {
	Type      string    `json:"type"`
	BookingID string    `json:"booking_id"`
	ShowID    string    `json:"show_id"`
	UserID    string    `json:"user_id"`
	Seats     []string  `json:"seats"`
	Amount    float64   `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}

// QRTicket is the payload baked into the confirmation QR code.
type QRTicket struct {
	BookingID string    `json:"booking_id"`
	UserID    string    `json:"user_id"`
	ShowID    string    `json:"show_id"`
	Seats     []string  `json:"seats"`
	Movie     string    `json:"movie"`
	ShowTime  time.Time `json:"show_time"`
}
