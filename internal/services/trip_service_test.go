package services_test

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metro-ticketing/internal/apperr"
	"metro-ticketing/internal/events"
	"metro-ticketing/internal/models"
	"metro-ticketing/internal/services"
)

func TestIssueTripDebitsBalance(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t)
	f.deposit(t, user.ID, "20")
	from, to := f.route(t, "5.50")

	trip, err := f.svcs.Trips.Issue(ctx, user.ID, &models.IssueTripRequest{
		FromStation:        from.ID,
		ToStation:          to.ID,
		NumberOfPassengers: 2,
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(trip.TripCode, "TRP-"))
	assert.Equal(t, models.TripCreated, trip.Status)
	assert.Equal(t, models.PaymentBalance, trip.PaymentMethod)
	assert.Equal(t, models.PaymentCompleted, trip.PaymentStatus)
	assert.True(t, decimal.RequireFromString("11").Equal(trip.TotalAmount))
	assert.Equal(t, t0.Add(24*time.Hour), trip.ExpiresAt)
	assert.Equal(t, from.Name, trip.FromStation.Name)
	assert.True(t, decimal.RequireFromString("9").Equal(f.balance(t, user.ID)))

	entries, total, err := f.svcs.Balance.History(ctx, user.ID, 1, 10)
	require.NoError(t, err)
	require.Equal(t, 2, total)
	assert.Equal(t, models.EntryTripPurchase, entries[0].Type)
	assert.Equal(t, trip.TripCode, entries[0].Reference)
	assert.True(t, decimal.RequireFromString("-11").Equal(entries[0].Amount))

	assert.Equal(t, []string{events.BalanceDeposited, events.TripIssued}, f.events.Types())
}

func TestIssueTripInsufficientFunds(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t)
	f.deposit(t, user.ID, "5")
	from, to := f.route(t, "5.50")

	_, err := f.svcs.Trips.Issue(ctx, user.ID, &models.IssueTripRequest{FromStation: from.ID, ToStation: to.ID})
	require.ErrorIs(t, err, models.ErrInsufficientFunds)
	assert.Equal(t, apperr.KindStateConflict, apperr.KindOf(err))

	assert.True(t, decimal.NewFromInt(5).Equal(f.balance(t, user.ID)))
	_, total, err := f.svcs.Trips.History(ctx, user.ID, models.TripFilter{}, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestIssueTripCashSkipsBalance(t *testing.T) {
	f := newFixture(t)
	user := f.user(t)
	from, to := f.route(t, "5.50")

	trip, err := f.svcs.Trips.Issue(context.Background(), user.ID, &models.IssueTripRequest{
		FromStation:   from.ID,
		ToStation:     to.ID,
		PaymentMethod: models.PaymentCash,
	})
	require.NoError(t, err)
	assert.Equal(t, models.PaymentCash, trip.PaymentMethod)
	assert.True(t, f.balance(t, user.ID).IsZero())
}

func TestIssueTripRejects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t)
	f.deposit(t, user.ID, "100")
	from, to := f.route(t, "5")
	lonely := f.station(t, "Lonely")

	tests := []struct {
		name string
		req  models.IssueTripRequest
		want error
	}{
		{"no fare for route", models.IssueTripRequest{FromStation: to.ID, ToStation: lonely.ID}, models.ErrFareNotFound},
		{"reverse direction has no fare", models.IssueTripRequest{FromStation: to.ID, ToStation: from.ID}, models.ErrFareNotFound},
		{"unknown station", models.IssueTripRequest{FromStation: from.ID, ToStation: 9999}, models.ErrStationNotFound},
		{"same station", models.IssueTripRequest{FromStation: from.ID, ToStation: from.ID}, models.ErrSameStation},
		{"too many passengers", models.IssueTripRequest{FromStation: from.ID, ToStation: to.ID, NumberOfPassengers: 11}, services.ErrPassengerCount},
		{"bad payment method", models.IssueTripRequest{FromStation: from.ID, ToStation: to.ID, PaymentMethod: "crypto"}, models.ErrPaymentMethod},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			_, err := f.svcs.Trips.Issue(ctx, user.ID, &req)
			require.ErrorIs(t, err, tt.want)
		})
	}
	assert.True(t, decimal.NewFromInt(100).Equal(f.balance(t, user.ID)))
}

func TestIssueTripInactiveStation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t)
	from, to := f.route(t, "5")
	require.NoError(t, f.svcs.Stations.Deactivate(ctx, to.ID))

	_, err := f.svcs.Trips.Issue(ctx, user.ID, &models.IssueTripRequest{FromStation: from.ID, ToStation: to.ID, PaymentMethod: models.PaymentCard})
	require.ErrorIs(t, err, models.ErrStationInactive)
}

func TestIssueTripDeactivatedUser(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t)
	f.deposit(t, user.ID, "50")
	from, to := f.route(t, "5")
	require.NoError(t, f.svcs.Users.Deactivate(ctx, user.ID))

	for _, method := range []models.PaymentMethod{models.PaymentBalance, models.PaymentCash, models.PaymentCard} {
		t.Run(string(method), func(t *testing.T) {
			_, err := f.svcs.Trips.Issue(ctx, user.ID, &models.IssueTripRequest{
				FromStation:   from.ID,
				ToStation:     to.ID,
				PaymentMethod: method,
			})
			require.ErrorIs(t, err, models.ErrUserNotFound)
		})
	}

	_, total, err := f.svcs.Trips.History(ctx, user.ID, models.TripFilter{}, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestTripHistoryPageBeyondRange(t *testing.T) {
	f := newFixture(t)
	user := f.user(t)
	from, to := f.route(t, "5")
	_, err := f.svcs.Trips.Issue(context.Background(), user.ID, &models.IssueTripRequest{
		FromStation: from.ID, ToStation: to.ID, PaymentMethod: models.PaymentCash,
	})
	require.NoError(t, err)

	trips, total, err := f.svcs.Trips.History(context.Background(), user.ID, models.TripFilter{}, math.MaxInt/10, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Empty(t, trips)
}

func TestConcurrentIssueSingleWinner(t *testing.T) {
	f := newFixture(t)
	user := f.user(t)
	f.deposit(t, user.ID, "10")
	from, to := f.route(t, "10")

	const n = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		shortfall int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svcs.Trips.Issue(context.Background(), user.ID, &models.IssueTripRequest{FromStation: from.ID, ToStation: to.ID})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				successes++
			case errors.Is(err, models.ErrInsufficientFunds):
				shortfall++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, n-1, shortfall)
	assert.True(t, f.balance(t, user.ID).IsZero())
}

func issue(t *testing.T, f *fixture, userID int64) *models.Trip {
	t.Helper()
	from, to := f.route(t, "3")
	trip, err := f.svcs.Trips.Issue(context.Background(), userID, &models.IssueTripRequest{
		FromStation:   from.ID,
		ToStation:     to.ID,
		PaymentMethod: models.PaymentCard,
	})
	require.NoError(t, err)
	return trip
}

func TestRedeemTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t)
	trip := issue(t, f, user.ID)
	f.advance(time.Hour)

	used, err := f.svcs.Trips.Redeem(ctx, trip.TripCode)
	require.NoError(t, err)
	assert.Equal(t, models.TripUsed, used.Status)
	require.NotNil(t, used.UsedAt)
	assert.Equal(t, t0.Add(time.Hour), *used.UsedAt)

	_, err = f.svcs.Trips.Redeem(ctx, trip.TripCode)
	require.ErrorIs(t, err, models.ErrTripAlreadyUsed)
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

	_, err = f.svcs.Trips.Redeem(ctx, "TRP-NOPE")
	require.ErrorIs(t, err, models.ErrTripNotFound)

	u, err := f.svcs.Users.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, u.TotalTrips)
	assert.True(t, decimal.NewFromInt(3).Equal(u.TotalExpense))
}

func TestRedeemExpiredTrip(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t)
	trip := issue(t, f, user.ID)
	f.advance(24 * time.Hour)

	_, err := f.svcs.Trips.Redeem(ctx, trip.TripCode)
	require.ErrorIs(t, err, models.ErrTripExpired)

	got, err := f.svcs.Trips.Get(ctx, trip.ID, user.ID, false)
	require.NoError(t, err)
	assert.Equal(t, models.TripExpired, got.Status)

	_, err = f.svcs.Trips.Redeem(ctx, trip.TripCode)
	require.ErrorIs(t, err, models.ErrTripExpired)
}

func TestConcurrentRedeemSingleWinner(t *testing.T) {
	f := newFixture(t)
	user := f.user(t)
	trip := issue(t, f, user.ID)

	const n = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svcs.Trips.Redeem(context.Background(), trip.TripCode)
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, models.ErrTripAlreadyUsed)
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	u, err := f.svcs.Users.GetUserByID(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, u.TotalTrips)
}

func TestCompleteJourney(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t)
	other := f.user(t)
	trip := issue(t, f, owner.ID)

	_, err := f.svcs.Trips.CompleteJourney(ctx, trip.ID, owner.ID)
	require.ErrorIs(t, err, models.ErrTripNotUsed)
	assert.Equal(t, apperr.KindStateConflict, apperr.KindOf(err))

	_, err = f.svcs.Trips.Redeem(ctx, trip.TripCode)
	require.NoError(t, err)

	_, err = f.svcs.Trips.CompleteJourney(ctx, trip.ID, other.ID)
	require.ErrorIs(t, err, models.ErrNotTripOwner)

	f.advance(20 * time.Minute)
	done, err := f.svcs.Trips.CompleteJourney(ctx, trip.ID, owner.ID)
	require.NoError(t, err)
	require.NotNil(t, done.JourneyEndTime)
	assert.Equal(t, t0.Add(20*time.Minute), *done.JourneyEndTime)

	_, err = f.svcs.Trips.CompleteJourney(ctx, trip.ID, owner.ID)
	require.ErrorIs(t, err, models.ErrJourneyCompleted)

	_, err = f.svcs.Trips.CompleteJourney(ctx, 9999, owner.ID)
	require.ErrorIs(t, err, models.ErrTripNotFound)

	assert.Contains(t, f.events.Types(), events.TripCompleted)
}

func TestGetTripAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t)
	other := f.user(t)
	trip := issue(t, f, owner.ID)

	_, err := f.svcs.Trips.Get(ctx, trip.ID, owner.ID, false)
	require.NoError(t, err)
	_, err = f.svcs.Trips.Get(ctx, trip.ID, other.ID, false)
	require.ErrorIs(t, err, models.ErrNotTripOwner)
	_, err = f.svcs.Trips.Get(ctx, trip.ID, other.ID, true)
	require.NoError(t, err)
}

func TestUnusedAndHistory(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t)
	first := issue(t, f, user.ID)
	issue(t, f, user.ID)

	_, err := f.svcs.Trips.Redeem(ctx, first.TripCode)
	require.NoError(t, err)

	unused, err := f.svcs.Trips.Unused(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, unused, 1)

	used, total, err := f.svcs.Trips.History(ctx, user.ID, models.TripFilter{Status: models.TripUsed}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, first.ID, used[0].ID)

	_, _, err = f.svcs.Trips.History(ctx, user.ID, models.TripFilter{Status: "lost"}, 1, 10)
	require.ErrorIs(t, err, services.ErrTripStatus)

	f.advance(25 * time.Hour)
	unused, err = f.svcs.Trips.Unused(ctx, user.ID)
	require.NoError(t, err)
	assert.Empty(t, unused)
}
