package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cinebook/internal/booking"
	"cinebook/internal/models"

	"github.com/uptrace/bun"
)

// occupyRetries bounds how often a seat write is retried after losing the
// version race to a concurrent writer on the same show.
const occupyRetries = 3

type DB struct {
	Bun *bun.DB
}

// ---------------- SHOWS ----------------

// GetShow → fetch one show with its movie.
func (d *DB) GetShow(ctx context.Context, showID string) (*models.Show, error) {
	var show models.Show
	err := d.Bun.NewSelect().
		Model(&show).
		Relation("Movie").
		Where("show.show_id = ?", showID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, booking.ErrShowNotFound
		}
		return nil, err
	}
	return &show, nil
}

// OccupySeats marks the seats held by userID. The write only lands if the
// show's version is unchanged since the read, which makes the whole thing a
// check-and-set: two racing commits for an overlapping seat set cannot both
// succeed. A plain read-modify-write here would be a double-booking bug.
func (d *DB) OccupySeats(ctx context.Context, showID string, seats []string, userID string) error {
	for attempt := 0; attempt < occupyRetries; attempt++ {
		var show models.Show
		err := d.Bun.NewSelect().
			Model(&show).
			Where("show_id = ?", showID).
			Limit(1).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return booking.ErrShowNotFound
			}
			return err
		}

		if show.OccupiedSeats == nil {
			show.OccupiedSeats = make(map[string]string, len(seats))
		}
		for _, seat := range seats {
			if _, taken := show.OccupiedSeats[seat]; taken {
				return booking.ErrSeatsUnavailable
			}
		}
		for _, seat := range seats {
			show.OccupiedSeats[seat] = userID
		}

		prev := show.Version
		show.Version = prev + 1

		res, err := d.Bun.NewUpdate().
			Model(&show).
			Column("occupied_seats", "version").
			Where("show_id = ? AND version = ?", showID, prev).
			Exec(ctx)
		if err != nil {
			return err
		}
		if rows, _ := res.RowsAffected(); rows == 1 {
			return nil
		}
		// Version moved under us; re-read and re-check the seats.
	}
	return booking.ErrSeatsUnavailable
}

// ReleaseSeats removes the labels from the show's occupied map. Labels
// already absent are skipped, so re-running a half-finished release
// converges to the same state.
func (d *DB) ReleaseSeats(ctx context.Context, showID string, seats []string) error {
	return releaseSeats(ctx, d.Bun, showID, seats)
}

func releaseSeats(ctx context.Context, idb bun.IDB, showID string, seats []string) error {
	for attempt := 0; attempt < occupyRetries; attempt++ {
		var show models.Show
		err := idb.NewSelect().
			Model(&show).
			Where("show_id = ?", showID).
			Limit(1).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return booking.ErrShowNotFound
			}
			return err
		}

		changed := false
		for _, seat := range seats {
			if _, taken := show.OccupiedSeats[seat]; taken {
				delete(show.OccupiedSeats, seat)
				changed = true
			}
		}
		if !changed {
			return nil
		}

		prev := show.Version
		show.Version = prev + 1

		res, err := idb.NewUpdate().
			Model(&show).
			Column("occupied_seats", "version").
			Where("show_id = ? AND version = ?", showID, prev).
			Exec(ctx)
		if err != nil {
			return err
		}
		if rows, _ := res.RowsAffected(); rows == 1 {
			return nil
		}
	}
	return fmt.Errorf("release seats on show %s: version conflict persisted", showID)
}

// ---------------- BOOKINGS ----------------

// CreateBooking → insert new booking.
func (d *DB) CreateBooking(ctx context.Context, b *models.Booking) error {
	_, err := d.Bun.NewInsert().Model(b).Exec(ctx)
	return err
}

// GetBookingByID → fetch one booking with its show and movie.
func (d *DB) GetBookingByID(ctx context.Context, bookingID string) (*models.Booking, error) {
	var b models.Booking
	err := d.Bun.NewSelect().
		Model(&b).
		Relation("Show").
		Relation("Show.Movie").
		Where("booking.booking_id = ?", bookingID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, booking.ErrBookingNotFound
		}
		return nil, err
	}
	return &b, nil
}

// MarkBookingPaid flips is_paid and clears the payment link. Updating an
// already-paid row is harmless, which keeps webhook retries idempotent.
func (d *DB) MarkBookingPaid(ctx context.Context, bookingID string) error {
	res, err := d.Bun.NewUpdate().
		Model((*models.Booking)(nil)).
		Set("is_paid = ?", true).
		Set("payment_link = NULL").
		Where("booking_id = ?", bookingID).
		Exec(ctx)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return booking.ErrBookingNotFound
	}
	return nil
}

// SetPaymentSession stores the checkout link and session id on the booking
// row once the payment session exists.
func (d *DB) SetPaymentSession(ctx context.Context, bookingID, link, sessionID string) error {
	res, err := d.Bun.NewUpdate().
		Model((*models.Booking)(nil)).
		Set("payment_link = ?", link).
		Set("payment_session_id = ?", sessionID).
		Where("booking_id = ?", bookingID).
		Exec(ctx)
	if err != nil {
		return err
	}
	if rows, _ := res.RowsAffected(); rows == 0 {
		return booking.ErrBookingNotFound
	}
	return nil
}

// ExpireBooking deletes the booking and frees its seats in one transaction,
// guarded on the booking still being unpaid at delete time. The delete and
// the seat release commit together, so a crash can never leave seats
// occupied by a booking that no longer exists. Returns false without
// touching anything when payment landed first or the booking is already
// gone.
func (d *DB) ExpireBooking(ctx context.Context, bookingID string) (bool, error) {
	released := false
	err := d.Bun.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		var b models.Booking
		err := tx.NewSelect().
			Model(&b).
			Where("booking_id = ?", bookingID).
			Limit(1).
			Scan(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			return err
		}

		res, err := tx.NewDelete().
			Model((*models.Booking)(nil)).
			Where("booking_id = ? AND is_paid = ?", bookingID, false).
			Exec(ctx)
		if err != nil {
			return err
		}
		if rows, _ := res.RowsAffected(); rows == 0 {
			// Payment won between the read and the delete.
			return nil
		}

		if err := releaseSeats(ctx, tx, b.ShowID, b.BookedSeats); err != nil {
			return err
		}
		released = true
		return nil
	})
	return released, err
}

// GetBookingsByUser → all bookings for a user, newest first.
func (d *DB) GetBookingsByUser(ctx context.Context, userID string) ([]models.Booking, error) {
	var bookings []models.Booking
	err := d.Bun.NewSelect().
		Model(&bookings).
		Relation("Show").
		Relation("Show.Movie").
		Where("booking.user_id = ?", userID).
		Order("booking.created_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}
	return bookings, nil
}
