package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a Redis client backed by miniredis so no real
// server is needed.
func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to create miniredis: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		mr.Close()
		t.Fatalf("Failed to connect to miniredis: %v", err)
	}

	return client, mr
}

func cleanupTestRedis(client *redis.Client, mr *miniredis.Miniredis) {
	if client != nil {
		client.Close()
	}
	if mr != nil {
		mr.Close()
	}
}

func TestHoldSeats(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer cleanupTestRedis(client, mr)

	r := NewRedis(client, 11*time.Minute)

	seats := []string{"A1", "A2", "A3"}

	// Hold all seats for one booking
	held, err := r.HoldSeats("show-1", seats, "booking-123")
	require.NoError(t, err)
	assert.True(t, held, "Should hold all free seats")

	// A second booking must not get any of the same seats
	held, err = r.HoldSeats("show-1", seats, "booking-456")
	require.NoError(t, err)
	assert.False(t, held, "Should not hold already held seats")

	// The same labels on another show are independent
	held, err = r.HoldSeats("show-2", seats, "booking-456")
	require.NoError(t, err)
	assert.True(t, held, "Holds are scoped per show")

	// Release and re-hold
	err = r.ReleaseHolds("show-1", seats, "booking-123")
	require.NoError(t, err)

	held, err = r.HoldSeats("show-1", seats, "booking-789")
	require.NoError(t, err)
	assert.True(t, held, "Released seats can be held again")
}

func TestHoldSeats_PartialConflictRollsBack(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer cleanupTestRedis(client, mr)

	r := NewRedis(client, 11*time.Minute)

	held, err := r.HoldSeats("show-1", []string{"B2"}, "booking-1")
	require.NoError(t, err)
	require.True(t, held)

	// B1 is free but B2 is contested: the whole request fails and B1 must
	// not be left held by the loser.
	held, err = r.HoldSeats("show-1", []string{"B1", "B2"}, "booking-2")
	require.NoError(t, err)
	assert.False(t, held)

	held, err = r.HoldSeats("show-1", []string{"B1"}, "booking-3")
	require.NoError(t, err)
	assert.True(t, held, "B1 should have been rolled back by the failed hold")
}

func TestReleaseHold_OnlyOwnerReleases(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer cleanupTestRedis(client, mr)

	r := NewRedis(client, 11*time.Minute)

	held, err := r.HoldSeats("show-1", []string{"C1"}, "booking-1")
	require.NoError(t, err)
	require.True(t, held)

	// A non-owner release is a silent no-op
	err = r.ReleaseHolds("show-1", []string{"C1"}, "booking-2")
	require.NoError(t, err)

	held, err = r.HoldSeats("show-1", []string{"C1"}, "booking-2")
	require.NoError(t, err)
	assert.False(t, held, "C1 must still be held by booking-1")

	// Releasing an already absent hold is fine too
	err = r.ReleaseHolds("show-1", []string{"Z9"}, "booking-1")
	assert.NoError(t, err)
}

func TestHolds_ExpireOnTheirOwn(t *testing.T) {
	client, mr := setupTestRedis(t)
	defer cleanupTestRedis(client, mr)

	r := NewRedis(client, time.Minute)

	held, err := r.HoldSeats("show-1", []string{"D1"}, "booking-1")
	require.NoError(t, err)
	require.True(t, held)

	// miniredis lets us jump past the TTL
	mr.FastForward(2 * time.Minute)

	held, err = r.HoldSeats("show-1", []string{"D1"}, "booking-2")
	require.NoError(t, err)
	assert.True(t, held, "Expired hold should be free again")
}
