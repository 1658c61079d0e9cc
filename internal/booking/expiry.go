package booking

import (
	"context"
	"fmt"
)

// ReleaseExpired is the expiry evaluation: it runs when the hold window
// elapses, delivered at-least-once by the task queue. Every branch is a safe
// no-op on re-delivery, and on state already cleaned up by a concurrent run.
func (s *BookingService) ReleaseExpired(ctx context.Context, bookingID string) error {
	booking, err := s.Bookings.GetBookingByID(ctx, bookingID)
	if err != nil {
		if err == ErrBookingNotFound {
			// Already deleted, or a concurrent evaluation got here first.
			s.logger.LogTask("booking:expire", fmt.Sprintf("booking %s already gone, nothing to release", bookingID))
			return nil
		}
		return fmt.Errorf("fetch booking %s: %w", bookingID, err)
	}

	if booking.IsPaid {
		// Payment won the race. The seats stay held for good.
		s.logger.LogTask("booking:expire", fmt.Sprintf("booking %s is paid, keeping seats", bookingID))
		return nil
	}

	// Unpaid past the hold window: drop the booking and free every booked
	// seat in one guarded transaction. The store rechecks the paid flag at
	// delete time, so a payment confirmation landing between the read above
	// and this call keeps both the booking and its seats.
	released, err := s.Bookings.ExpireBooking(ctx, bookingID)
	if err != nil {
		return fmt.Errorf("expire booking %s: %w", bookingID, err)
	}
	if !released {
		s.logger.LogTask("booking:expire", fmt.Sprintf("booking %s paid or gone before release, keeping state", bookingID))
		return nil
	}

	if err := s.Holds.ReleaseHolds(booking.ShowID, booking.BookedSeats, bookingID); err != nil {
		s.logger.Warn("BOOKING", fmt.Sprintf("Releasing redis holds for expired booking %s: %v", bookingID, err))
	}

	if err := s.Events.PublishBookingExpired(*booking); err != nil {
		s.logger.Error("KAFKA", fmt.Sprintf("Publish booking expired %s: %v", bookingID, err))
	}

	s.logger.LogBooking("EXPIRE", bookingID, fmt.Sprintf("released %d seat(s) on show %s", len(booking.BookedSeats), booking.ShowID))
	return nil
}
