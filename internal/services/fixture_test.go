package services_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"metro-ticketing/internal/events"
	"metro-ticketing/internal/models"
	"metro-ticketing/internal/services"
	"metro-ticketing/internal/store/memstore"
)

var t0 = time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)

type fixture struct {
	store  *memstore.Store
	svcs   *services.Services
	events *events.Recorder

	mu  sync.Mutex
	now time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:  memstore.New(),
		events: &events.Recorder{},
		now:    t0,
	}
	f.svcs = services.New(f.store.Repositories(), services.Options{
		JWTSecret: "test-secret",
		TokenTTL:  time.Hour,
		TripTTL:   24 * time.Hour,
	}, f.events, zerolog.Nop())
	f.svcs.SetClock(f.clock)
	return f
}

func (f *fixture) clock() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fixture) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

var userSeq int

func (f *fixture) user(t *testing.T) *models.User {
	t.Helper()
	userSeq++
	resp, err := f.svcs.Users.Register(context.Background(), &models.RegisterRequest{
		FullName: "Rider",
		Email:    fmt.Sprintf("rider%d@example.com", userSeq),
		Phone:    fmt.Sprintf("+9055500%05d", userSeq),
		Password: "secret123",
	})
	require.NoError(t, err)
	return resp.User
}

func (f *fixture) deposit(t *testing.T, userID int64, amount string) {
	t.Helper()
	_, err := f.svcs.Balance.Deposit(context.Background(), userID, &models.DepositRequest{
		Amount: decimal.RequireFromString(amount),
	})
	require.NoError(t, err)
}

func (f *fixture) station(t *testing.T, name string) *models.Station {
	t.Helper()
	st, err := f.svcs.Stations.Create(context.Background(), &models.CreateStationRequest{Name: name})
	require.NoError(t, err)
	return st
}

func (f *fixture) fare(t *testing.T, from, to *models.Station, amount string) *models.Fare {
	t.Helper()
	fare, err := f.svcs.Fares.Create(context.Background(), &models.CreateFareRequest{
		FromStationID: from.ID,
		ToStationID:   to.ID,
		Fare:          decimal.RequireFromString(amount),
		Distance:      4.2,
		Duration:      9,
	})
	require.NoError(t, err)
	return fare
}

// route creates two stations joined by a regular fare.
func (f *fixture) route(t *testing.T, amount string) (*models.Station, *models.Station) {
	t.Helper()
	userSeq++
	from := f.station(t, fmt.Sprintf("Kadikoy %d", userSeq))
	to := f.station(t, fmt.Sprintf("Uskudar %d", userSeq))
	f.fare(t, from, to, amount)
	return from, to
}

func (f *fixture) balance(t *testing.T, userID int64) decimal.Decimal {
	t.Helper()
	u, err := f.svcs.Users.GetUserByID(context.Background(), userID)
	require.NoError(t, err)
	return u.Balance
}
