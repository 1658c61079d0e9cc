package redis

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
)

// Redis keeps short-lived per-seat holds that serialize concurrent booking
// attempts before the store write. A hold key carries the booking id that
// owns it, and expires on its own a little after the booking hold window so
// a crashed process can never wedge a seat.
type Redis struct {
	Client  *redis.Client
	HoldTTL time.Duration
	Logger  *log.Logger
}

func NewRedis(client *redis.Client, holdTTL time.Duration) *Redis {
	return &Redis{
		Client:  client,
		HoldTTL: holdTTL,
		Logger:  log.Default(),
	}
}

func holdKey(showID, seat string) string {
	return fmt.Sprintf("seat_hold:%s:%s", showID, seat)
}

// HoldSeat takes a single seat hold. Returns false if another booking holds it.
func (r *Redis) HoldSeat(showID, seat, bookingID string) (bool, error) {
	ok, err := r.Client.SetNX(context.Background(), holdKey(showID, seat), bookingID, r.HoldTTL).Result()
	return ok, err
}

// ReleaseHold drops a single seat hold, but only if this booking owns it.
func (r *Redis) ReleaseHold(showID, seat, bookingID string) error {
	ctx := context.Background()
	key := holdKey(showID, seat)
	val, err := r.Client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil // already released or expired
	}
	if err != nil {
		return err
	}
	if val == bookingID {
		_, err := r.Client.Del(ctx, key).Result()
		return err
	}
	return nil
}

// HoldSeats takes holds for every seat, rolling back the ones already taken
// when any single seat is contested.
func (r *Redis) HoldSeats(showID string, seats []string, bookingID string) (bool, error) {
	held := []string{}
	for _, seat := range seats {
		ok, err := r.HoldSeat(showID, seat, bookingID)
		if err != nil {
			for _, h := range held {
				_ = r.ReleaseHold(showID, h, bookingID)
			}
			return false, err
		}
		if !ok {
			for _, h := range held {
				_ = r.ReleaseHold(showID, h, bookingID)
			}
			return false, nil
		}
		held = append(held, seat)
	}
	return true, nil
}

// ReleaseHolds drops every hold owned by the booking.
func (r *Redis) ReleaseHolds(showID string, seats []string, bookingID string) error {
	var firstErr error
	for _, seat := range seats {
		if err := r.ReleaseHold(showID, seat, bookingID); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
