package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"cinebook/internal/logger"
	"cinebook/internal/models"
)

// ---------------- mocks ----------------

type mockShowStore struct{ mock.Mock }

func (m *mockShowStore) GetShow(ctx context.Context, showID string) (*models.Show, error) {
	args := m.Called(ctx, showID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Show), args.Error(1)
}

func (m *mockShowStore) OccupySeats(ctx context.Context, showID string, seats []string, userID string) error {
	return m.Called(ctx, showID, seats, userID).Error(0)
}

func (m *mockShowStore) ReleaseSeats(ctx context.Context, showID string, seats []string) error {
	return m.Called(ctx, showID, seats).Error(0)
}

type mockBookingStore struct{ mock.Mock }

func (m *mockBookingStore) CreateBooking(ctx context.Context, b *models.Booking) error {
	return m.Called(ctx, b).Error(0)
}

func (m *mockBookingStore) GetBookingByID(ctx context.Context, bookingID string) (*models.Booking, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *mockBookingStore) SetPaymentSession(ctx context.Context, bookingID, link, sessionID string) error {
	return m.Called(ctx, bookingID, link, sessionID).Error(0)
}

func (m *mockBookingStore) MarkBookingPaid(ctx context.Context, bookingID string) error {
	return m.Called(ctx, bookingID).Error(0)
}

func (m *mockBookingStore) ExpireBooking(ctx context.Context, bookingID string) (bool, error) {
	args := m.Called(ctx, bookingID)
	return args.Bool(0), args.Error(1)
}

func (m *mockBookingStore) GetBookingsByUser(ctx context.Context, userID string) ([]models.Booking, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Booking), args.Error(1)
}

type mockSeatHolds struct{ mock.Mock }

func (m *mockSeatHolds) HoldSeats(showID string, seats []string, bookingID string) (bool, error) {
	args := m.Called(showID, seats, bookingID)
	return args.Bool(0), args.Error(1)
}

func (m *mockSeatHolds) ReleaseHolds(showID string, seats []string, bookingID string) error {
	return m.Called(showID, seats, bookingID).Error(0)
}

type mockCheckout struct{ mock.Mock }

func (m *mockCheckout) CreateCheckoutSession(ctx context.Context, b *models.Booking, movieTitle string) (string, string, error) {
	args := m.Called(ctx, b, movieTitle)
	return args.String(0), args.String(1), args.Error(2)
}

type mockScheduler struct{ mock.Mock }

func (m *mockScheduler) ScheduleExpiry(ctx context.Context, bookingID string, delay time.Duration) error {
	return m.Called(ctx, bookingID, delay).Error(0)
}

func (m *mockScheduler) EnqueueConfirmationEmail(ctx context.Context, bookingID string) error {
	return m.Called(ctx, bookingID).Error(0)
}

type mockPublisher struct{ mock.Mock }

func (m *mockPublisher) PublishBookingCreated(b models.Booking) error {
	return m.Called(b).Error(0)
}

func (m *mockPublisher) PublishBookingPaid(b models.Booking) error {
	return m.Called(b).Error(0)
}

func (m *mockPublisher) PublishBookingExpired(b models.Booking) error {
	return m.Called(b).Error(0)
}

type serviceMocks struct {
	shows     *mockShowStore
	bookings  *mockBookingStore
	holds     *mockSeatHolds
	checkout  *mockCheckout
	scheduler *mockScheduler
	events    *mockPublisher
}

func newTestService(t *testing.T) (*BookingService, *serviceMocks) {
	t.Helper()
	m := &serviceMocks{
		shows:     new(mockShowStore),
		bookings:  new(mockBookingStore),
		holds:     new(mockSeatHolds),
		checkout:  new(mockCheckout),
		scheduler: new(mockScheduler),
		events:    new(mockPublisher),
	}
	svc := NewBookingService(
		m.shows, m.bookings, m.holds, m.checkout, m.scheduler, m.events,
		10*time.Minute, logger.NewLogger(),
	)
	return svc, m
}

func testShow(occupied map[string]string) *models.Show {
	if occupied == nil {
		occupied = map[string]string{}
	}
	return &models.Show{
		ShowID:        "show-1",
		MovieID:       "550",
		ShowDateTime:  time.Now().Add(24 * time.Hour),
		ShowPrice:     10.00,
		OccupiedSeats: occupied,
		Movie:         &models.Movie{MovieID: "550", Title: "Fight Club"},
	}
}

// ---------------- CreateBooking ----------------

func TestCreateBooking_Success(t *testing.T) {
	svc, m := newTestService(t)
	ctx := context.Background()
	seats := []string{"A1", "A2"}

	m.shows.On("GetShow", ctx, "show-1").Return(testShow(nil), nil)
	m.holds.On("HoldSeats", "show-1", seats, mock.AnythingOfType("string")).Return(true, nil)
	m.shows.On("OccupySeats", ctx, "show-1", seats, "user-1").Return(nil)
	m.bookings.On("CreateBooking", ctx, mock.AnythingOfType("*models.Booking")).Return(nil)
	m.scheduler.On("ScheduleExpiry", ctx, mock.AnythingOfType("string"), 10*time.Minute).Return(nil)
	m.checkout.On("CreateCheckoutSession", ctx, mock.AnythingOfType("*models.Booking"), "Fight Club").
		Return("https://checkout.stripe.com/pay/cs_test_1", "cs_test_1", nil)
	m.bookings.On("SetPaymentSession", ctx, mock.AnythingOfType("string"),
		"https://checkout.stripe.com/pay/cs_test_1", "cs_test_1").Return(nil)
	m.events.On("PublishBookingCreated", mock.AnythingOfType("models.Booking")).Return(nil)

	resp, err := svc.CreateBooking(ctx, "user-1", "user@example.com", "show-1", seats)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.BookingID)
	assert.Equal(t, "https://checkout.stripe.com/pay/cs_test_1", resp.CheckoutURL)

	// The checkout link must land on the row, not just the response.
	m.bookings.AssertCalled(t, "SetPaymentSession", ctx, resp.BookingID,
		"https://checkout.stripe.com/pay/cs_test_1", "cs_test_1")

	created := m.bookings.Calls[0].Arguments.Get(1).(*models.Booking)
	assert.Equal(t, 20.00, created.Amount, "two seats at the show price")
	assert.False(t, created.IsPaid)
	assert.Equal(t, "user@example.com", created.UserEmail)

	m.shows.AssertExpectations(t)
	m.bookings.AssertExpectations(t)
	m.holds.AssertExpectations(t)
	m.scheduler.AssertExpectations(t)
}

func TestCreateBooking_SeatsAlreadyOccupied(t *testing.T) {
	svc, m := newTestService(t)
	ctx := context.Background()

	m.shows.On("GetShow", ctx, "show-1").Return(testShow(map[string]string{"A1": "user-9"}), nil)

	_, err := svc.CreateBooking(ctx, "user-1", "", "show-1", []string{"A1"})
	assert.ErrorIs(t, err, ErrSeatsUnavailable)

	m.holds.AssertNotCalled(t, "HoldSeats", mock.Anything, mock.Anything, mock.Anything)
	m.bookings.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything)
}

func TestCreateBooking_ShowNotFound(t *testing.T) {
	svc, m := newTestService(t)
	ctx := context.Background()

	m.shows.On("GetShow", ctx, "nope").Return(nil, ErrShowNotFound)

	_, err := svc.CreateBooking(ctx, "user-1", "", "nope", []string{"A1"})
	assert.ErrorIs(t, err, ErrShowNotFound)
}

func TestCreateBooking_HoldLost(t *testing.T) {
	svc, m := newTestService(t)
	ctx := context.Background()
	seats := []string{"A1"}

	m.shows.On("GetShow", ctx, "show-1").Return(testShow(nil), nil)
	m.holds.On("HoldSeats", "show-1", seats, mock.AnythingOfType("string")).Return(false, nil)

	_, err := svc.CreateBooking(ctx, "user-1", "", "show-1", seats)
	assert.ErrorIs(t, err, ErrSeatsUnavailable)

	m.shows.AssertNotCalled(t, "OccupySeats", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateBooking_StoreConflictReleasesHolds(t *testing.T) {
	svc, m := newTestService(t)
	ctx := context.Background()
	seats := []string{"A1"}

	m.shows.On("GetShow", ctx, "show-1").Return(testShow(nil), nil)
	m.holds.On("HoldSeats", "show-1", seats, mock.AnythingOfType("string")).Return(true, nil)
	m.shows.On("OccupySeats", ctx, "show-1", seats, "user-1").Return(ErrSeatsUnavailable)
	m.holds.On("ReleaseHolds", "show-1", seats, mock.AnythingOfType("string")).Return(nil)

	_, err := svc.CreateBooking(ctx, "user-1", "", "show-1", seats)
	assert.ErrorIs(t, err, ErrSeatsUnavailable)

	m.holds.AssertCalled(t, "ReleaseHolds", "show-1", seats, mock.AnythingOfType("string"))
	m.bookings.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything)
}

func TestCreateBooking_InsertFailureCompensates(t *testing.T) {
	svc, m := newTestService(t)
	ctx := context.Background()
	seats := []string{"A1", "A2"}

	m.shows.On("GetShow", ctx, "show-1").Return(testShow(nil), nil)
	m.holds.On("HoldSeats", "show-1", seats, mock.AnythingOfType("string")).Return(true, nil)
	m.shows.On("OccupySeats", ctx, "show-1", seats, "user-1").Return(nil)
	m.bookings.On("CreateBooking", ctx, mock.AnythingOfType("*models.Booking")).Return(errors.New("insert failed"))
	m.shows.On("ReleaseSeats", ctx, "show-1", seats).Return(nil)
	m.holds.On("ReleaseHolds", "show-1", seats, mock.AnythingOfType("string")).Return(nil)

	_, err := svc.CreateBooking(ctx, "user-1", "", "show-1", seats)
	require.Error(t, err)

	// Seats must never stay occupied without a booking row behind them.
	m.shows.AssertCalled(t, "ReleaseSeats", ctx, "show-1", seats)
	m.holds.AssertCalled(t, "ReleaseHolds", "show-1", seats, mock.AnythingOfType("string"))
	m.scheduler.AssertNotCalled(t, "ScheduleExpiry", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateBooking_CheckoutFailureKeepsBooking(t *testing.T) {
	svc, m := newTestService(t)
	ctx := context.Background()
	seats := []string{"A1"}

	m.shows.On("GetShow", ctx, "show-1").Return(testShow(nil), nil)
	m.holds.On("HoldSeats", "show-1", seats, mock.AnythingOfType("string")).Return(true, nil)
	m.shows.On("OccupySeats", ctx, "show-1", seats, "user-1").Return(nil)
	m.bookings.On("CreateBooking", ctx, mock.AnythingOfType("*models.Booking")).Return(nil)
	m.scheduler.On("ScheduleExpiry", ctx, mock.AnythingOfType("string"), 10*time.Minute).Return(nil)
	m.checkout.On("CreateCheckoutSession", ctx, mock.AnythingOfType("*models.Booking"), "Fight Club").
		Return("", "", errors.New("stripe down"))

	_, err := svc.CreateBooking(ctx, "user-1", "", "show-1", seats)
	require.Error(t, err)

	// No compensation here: the expiry task will clean the unpaid booking up.
	m.shows.AssertNotCalled(t, "ReleaseSeats", mock.Anything, mock.Anything, mock.Anything)
	m.bookings.AssertNotCalled(t, "SetPaymentSession", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	m.scheduler.AssertCalled(t, "ScheduleExpiry", ctx, mock.AnythingOfType("string"), 10*time.Minute)
}

// ---------------- ConfirmPayment ----------------

func TestConfirmPayment(t *testing.T) {
	svc, m := newTestService(t)
	ctx := context.Background()

	b := &models.Booking{BookingID: "booking-1", UserID: "user-1", ShowID: "show-1", IsPaid: false}
	m.bookings.On("GetBookingByID", ctx, "booking-1").Return(b, nil)
	m.bookings.On("MarkBookingPaid", ctx, "booking-1").Return(nil)
	m.events.On("PublishBookingPaid", mock.AnythingOfType("models.Booking")).Return(nil)
	m.scheduler.On("EnqueueConfirmationEmail", ctx, "booking-1").Return(nil)

	require.NoError(t, svc.ConfirmPayment(ctx, "booking-1"))
	m.bookings.AssertExpectations(t)
	m.scheduler.AssertExpectations(t)
}

func TestConfirmPayment_AlreadyPaid(t *testing.T) {
	svc, m := newTestService(t)
	ctx := context.Background()

	b := &models.Booking{BookingID: "booking-1", IsPaid: true}
	m.bookings.On("GetBookingByID", ctx, "booking-1").Return(b, nil)

	require.NoError(t, svc.ConfirmPayment(ctx, "booking-1"))
	m.bookings.AssertNotCalled(t, "MarkBookingPaid", mock.Anything, mock.Anything)
	m.events.AssertNotCalled(t, "PublishBookingPaid", mock.Anything)
}

func TestConfirmPayment_BookingGone(t *testing.T) {
	svc, m := newTestService(t)
	ctx := context.Background()

	m.bookings.On("GetBookingByID", ctx, "booking-1").Return(nil, ErrBookingNotFound)

	err := svc.ConfirmPayment(ctx, "booking-1")
	assert.ErrorIs(t, err, ErrBookingNotFound)
}

// ---------------- ReleaseExpired ----------------

func TestReleaseExpired_UnpaidBooking(t *testing.T) {
	svc, m := newTestService(t)
	ctx := context.Background()
	seats := []string{"A1", "A2"}

	b := &models.Booking{BookingID: "booking-1", ShowID: "show-1", BookedSeats: seats, IsPaid: false}
	m.bookings.On("GetBookingByID", ctx, "booking-1").Return(b, nil)
	m.bookings.On("ExpireBooking", ctx, "booking-1").Return(true, nil)
	m.holds.On("ReleaseHolds", "show-1", seats, "booking-1").Return(nil)
	m.events.On("PublishBookingExpired", mock.AnythingOfType("models.Booking")).Return(nil)

	require.NoError(t, svc.ReleaseExpired(ctx, "booking-1"))

	m.bookings.AssertCalled(t, "ExpireBooking", ctx, "booking-1")
	m.holds.AssertCalled(t, "ReleaseHolds", "show-1", seats, "booking-1")
	m.events.AssertCalled(t, "PublishBookingExpired", mock.AnythingOfType("models.Booking"))
}

func TestReleaseExpired_PaidBookingKeepsSeats(t *testing.T) {
	svc, m := newTestService(t)
	ctx := context.Background()

	b := &models.Booking{BookingID: "booking-1", ShowID: "show-1", BookedSeats: []string{"A1"}, IsPaid: true}
	m.bookings.On("GetBookingByID", ctx, "booking-1").Return(b, nil)

	require.NoError(t, svc.ReleaseExpired(ctx, "booking-1"))

	m.bookings.AssertNotCalled(t, "ExpireBooking", mock.Anything, mock.Anything)
}

func TestReleaseExpired_PaymentLandsBetweenReadAndDelete(t *testing.T) {
	svc, m := newTestService(t)
	ctx := context.Background()
	seats := []string{"A1"}

	// The read still sees the booking unpaid, but the guarded delete finds
	// payment already confirmed. Nothing may be released or announced.
	b := &models.Booking{BookingID: "booking-1", ShowID: "show-1", BookedSeats: seats, IsPaid: false}
	m.bookings.On("GetBookingByID", ctx, "booking-1").Return(b, nil)
	m.bookings.On("ExpireBooking", ctx, "booking-1").Return(false, nil)

	require.NoError(t, svc.ReleaseExpired(ctx, "booking-1"))

	m.holds.AssertNotCalled(t, "ReleaseHolds", mock.Anything, mock.Anything, mock.Anything)
	m.events.AssertNotCalled(t, "PublishBookingExpired", mock.Anything)
}

func TestReleaseExpired_BookingAlreadyGone(t *testing.T) {
	svc, m := newTestService(t)
	ctx := context.Background()

	m.bookings.On("GetBookingByID", ctx, "booking-1").Return(nil, ErrBookingNotFound)

	// A redelivered or raced expiry task finds nothing and succeeds.
	require.NoError(t, svc.ReleaseExpired(ctx, "booking-1"))
	m.bookings.AssertNotCalled(t, "ExpireBooking", mock.Anything, mock.Anything)
}

func TestReleaseExpired_RedeliveryConverges(t *testing.T) {
	svc, m := newTestService(t)
	ctx := context.Background()
	seats := []string{"A1"}

	b := &models.Booking{BookingID: "booking-1", ShowID: "show-1", BookedSeats: seats, IsPaid: false}
	// First delivery sees the booking, second finds it gone.
	m.bookings.On("GetBookingByID", ctx, "booking-1").Return(b, nil).Once()
	m.bookings.On("GetBookingByID", ctx, "booking-1").Return(nil, ErrBookingNotFound).Once()
	m.bookings.On("ExpireBooking", ctx, "booking-1").Return(true, nil)
	m.holds.On("ReleaseHolds", "show-1", seats, "booking-1").Return(nil)
	m.events.On("PublishBookingExpired", mock.AnythingOfType("models.Booking")).Return(nil)

	require.NoError(t, svc.ReleaseExpired(ctx, "booking-1"))
	require.NoError(t, svc.ReleaseExpired(ctx, "booking-1"))

	m.bookings.AssertNumberOfCalls(t, "ExpireBooking", 1)
	m.events.AssertNumberOfCalls(t, "PublishBookingExpired", 1)
}

// ---------------- CheckAvailability ----------------

func TestCheckAvailability(t *testing.T) {
	svc, m := newTestService(t)
	ctx := context.Background()

	m.shows.On("GetShow", ctx, "show-1").Return(testShow(map[string]string{"A1": "user-9"}), nil)

	free, err := svc.CheckAvailability(ctx, "show-1", []string{"A2", "A3"})
	require.NoError(t, err)
	assert.True(t, free)

	free, err = svc.CheckAvailability(ctx, "show-1", []string{"A1", "A2"})
	require.NoError(t, err)
	assert.False(t, free)
}

func TestCheckAvailability_UnknownShowFailsClosed(t *testing.T) {
	svc, m := newTestService(t)
	ctx := context.Background()

	m.shows.On("GetShow", ctx, "nope").Return(nil, ErrShowNotFound)

	free, err := svc.CheckAvailability(ctx, "nope", []string{"A1"})
	require.NoError(t, err)
	assert.False(t, free)
}
