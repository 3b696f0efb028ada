package services

import (
	"context"
	"errors"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"metro-ticketing/internal/events"
	"metro-ticketing/internal/store"
)

type Options struct {
	JWTSecret string
	TokenTTL  time.Duration
	TripTTL   time.Duration
}

type Services struct {
	Auth     *AuthService
	Users    *UserService
	Balance  *BalanceService
	Stations *StationService
	Fares    *FareService
	Trips    *TripService
}

func New(repos Repositories, opts Options, publisher events.Publisher, logger zerolog.Logger) *Services {
	if publisher == nil {
		publisher = events.Noop{}
	}
	ev := &eventSink{publisher: publisher, logger: logger}

	auth := NewAuthService(opts.JWTSecret, opts.TokenTTL, repos.Users, logger)
	fares := NewFareService(repos.Fares, repos.Stations, logger)
	return &Services{
		Auth:     auth,
		Users:    NewUserService(repos.Users, auth, logger),
		Balance:  NewBalanceService(repos.Users, ev, logger),
		Stations: NewStationService(repos.Stations, logger),
		Fares:    fares,
		Trips:    NewTripService(repos.Trips, repos.Users, repos.Stations, fares, opts.TripTTL, ev, logger),
	}
}

// SetClock replaces the time source of every service.
func (s *Services) SetClock(now func() time.Time) {
	s.Auth.now = now
	s.Users.now = now
	s.Balance.now = now
	s.Fares.now = now
	s.Trips.now = now
}

// eventSink publishes events without failing the caller's request.
type eventSink struct {
	publisher events.Publisher
	logger    zerolog.Logger
}

func (e *eventSink) publish(ctx context.Context, key string, payload any) {
	if err := e.publisher.Publish(ctx, key, payload); err != nil {
		e.logger.Warn().Err(err).Str("routing_key", key).Msg("Failed to publish event")
	}
}

// notFoundAs replaces store.ErrNotFound with the domain error nf.
func notFoundAs(err, nf error) error {
	if errors.Is(err, store.ErrNotFound) {
		return nf
	}
	return err
}

func newTripCode() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "TRP-" + strings.ToUpper(id[:12])
}

// Offset converts a 1-based page into a row offset.
func Offset(page, limit int) int {
	if page < 1 {
		page = 1
	}
	if limit > 0 && page-1 > math.MaxInt/limit {
		return math.MaxInt
	}
	return (page - 1) * limit
}
