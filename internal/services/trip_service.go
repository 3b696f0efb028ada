package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"metro-ticketing/internal/apperr"
	"metro-ticketing/internal/events"
	"metro-ticketing/internal/metrics"
	"metro-ticketing/internal/models"
	"metro-ticketing/internal/store"
)

const tripCodeAttempts = 3

var (
	ErrPassengerCount = apperr.Validation("numberOfPassengers must be between 1 and %d", models.MaxPassengers)
	ErrTripStatus     = apperr.Validation("status must be one of created, used, expired, cancelled")
)

type TripService struct {
	trips    TripRepository
	users    UserRepository
	stations StationRepository
	fares    *FareService
	ttl      time.Duration
	events   *eventSink
	logger   zerolog.Logger
	now      func() time.Time
}

func NewTripService(trips TripRepository, users UserRepository, stations StationRepository, fares *FareService, ttl time.Duration, ev *eventSink, logger zerolog.Logger) *TripService {
	if ttl <= 0 {
		ttl = models.DefaultTripTTL
	}
	return &TripService{
		trips:    trips,
		users:    users,
		stations: stations,
		fares:    fares,
		ttl:      ttl,
		events:   ev,
		logger:   logger,
		now:      time.Now,
	}
}

// Issue sells a ticket for the regular fare between two stations. Balance
// payments are debited in the same write that stores the trip.
func (s *TripService) Issue(ctx context.Context, userID int64, req *models.IssueTripRequest) (*models.Trip, error) {
	passengers := req.NumberOfPassengers
	if passengers == 0 {
		passengers = 1
	}
	if passengers < 1 || passengers > models.MaxPassengers {
		return nil, ErrPassengerCount
	}
	method := req.PaymentMethod
	if method == "" {
		method = models.PaymentBalance
	}
	if !method.Valid() {
		return nil, models.ErrPaymentMethod
	}
	if req.FromStation == req.ToStation {
		return nil, models.ErrSameStation
	}

	// Cash and card sales skip the balance row, so the account is checked here.
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, notFoundAs(err, models.ErrUserNotFound)
	}
	if !user.IsActive {
		return nil, models.ErrUserNotFound
	}

	from, err := requireActive(ctx, s.stations, req.FromStation)
	if err != nil {
		return nil, err
	}
	to, err := requireActive(ctx, s.stations, req.ToStation)
	if err != nil {
		return nil, err
	}
	fare, err := s.fares.FindFare(ctx, from.ID, to.ID, models.FareRegular)
	if err != nil {
		return nil, err
	}

	total := fare.Fare.Mul(decimal.NewFromInt(int64(passengers)))
	if !models.FitsMoneyColumn(total) {
		return nil, models.ErrAmountFormat
	}

	now := s.now().UTC()
	trip := &models.Trip{
		UserID:             userID,
		FromStation:        from.Ref(),
		ToStation:          to.Ref(),
		Fare:               fare.Fare,
		NumberOfPassengers: passengers,
		TotalAmount:        total,
		Status:             models.TripCreated,
		PaymentMethod:      method,
		PaymentStatus:      models.PaymentCompleted,
		ExpiresAt:          now.Add(s.ttl),
	}

	for attempt := 1; ; attempt++ {
		trip.TripCode = newTripCode()
		err = s.trips.Create(ctx, trip)
		if !errors.Is(err, store.ErrDuplicate) || attempt == tripCodeAttempts {
			break
		}
	}
	switch {
	case err == nil:
	case errors.Is(err, store.ErrInsufficientFunds):
		s.logger.Info().Int64("user_id", userID).Str("total_amount", trip.TotalAmount.String()).Msg("Trip rejected: insufficient balance")
		return nil, models.ErrInsufficientFunds
	case errors.Is(err, store.ErrNotFound):
		return nil, models.ErrUserNotFound
	default:
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("Error creating trip")
		return nil, fmt.Errorf("failed to create trip: %w", err)
	}

	metrics.TripsIssued.WithLabelValues(string(method)).Inc()
	s.logger.Info().
		Int64("trip_id", trip.ID).
		Str("trip_code", trip.TripCode).
		Int64("user_id", userID).
		Str("total_amount", trip.TotalAmount.String()).
		Str("payment_method", string(method)).
		Msg("Trip issued")
	s.events.publish(ctx, events.TripIssued, trip)
	return trip, nil
}

// Redeem marks a ticket as used at the gate. A lapsed ticket is moved to
// expired and stays unusable.
func (s *TripService) Redeem(ctx context.Context, tripCode string) (*models.Trip, error) {
	trip, err := s.trips.GetByCode(ctx, tripCode)
	if err != nil {
		err = notFoundAs(err, models.ErrTripNotFound)
		s.recordRedemption(err)
		return nil, err
	}

	now := s.now().UTC()
	prev := trip.Status
	if err := trip.Redeem(now); err != nil {
		if errors.Is(err, models.ErrTripExpired) && prev == models.TripCreated {
			if xerr := s.trips.MarkExpired(ctx, trip); xerr != nil && !errors.Is(xerr, store.ErrStaleState) {
				s.logger.Error().Err(xerr).Int64("trip_id", trip.ID).Msg("Error expiring trip")
				return nil, fmt.Errorf("failed to expire trip: %w", xerr)
			}
			s.logger.Info().Int64("trip_id", trip.ID).Str("trip_code", trip.TripCode).Msg("Trip expired at redemption")
		}
		s.recordRedemption(err)
		return nil, err
	}

	if err := s.trips.MarkUsed(ctx, trip, now); err != nil {
		if errors.Is(err, store.ErrStaleState) {
			s.recordRedemption(models.ErrTripAlreadyUsed)
			return nil, models.ErrTripAlreadyUsed
		}
		s.logger.Error().Err(err).Int64("trip_id", trip.ID).Msg("Error redeeming trip")
		return nil, fmt.Errorf("failed to redeem trip: %w", err)
	}

	s.recordRedemption(nil)
	s.logger.Info().Int64("trip_id", trip.ID).Str("trip_code", trip.TripCode).Int64("user_id", trip.UserID).Msg("Trip redeemed")
	s.events.publish(ctx, events.TripRedeemed, trip)
	return trip, nil
}

func (s *TripService) recordRedemption(err error) {
	result := "success"
	switch {
	case err == nil:
	case errors.Is(err, models.ErrTripAlreadyUsed):
		result = "already_used"
	case errors.Is(err, models.ErrTripExpired):
		result = "expired"
	case errors.Is(err, models.ErrTripCancelled):
		result = "cancelled"
	default:
		result = "not_found"
	}
	metrics.TripRedemptions.WithLabelValues(result).Inc()
}

func (s *TripService) CompleteJourney(ctx context.Context, tripID, requesterID int64) (*models.Trip, error) {
	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return nil, notFoundAs(err, models.ErrTripNotFound)
	}

	if err := trip.CompleteJourney(requesterID, s.now().UTC()); err != nil {
		return nil, err
	}
	if err := s.trips.CompleteJourney(ctx, trip); err != nil {
		if errors.Is(err, store.ErrStaleState) {
			return nil, models.ErrJourneyCompleted
		}
		s.logger.Error().Err(err).Int64("trip_id", trip.ID).Msg("Error completing journey")
		return nil, fmt.Errorf("failed to complete journey: %w", err)
	}

	s.logger.Info().Int64("trip_id", trip.ID).Int64("user_id", requesterID).Msg("Journey completed")
	s.events.publish(ctx, events.TripCompleted, trip)
	return trip, nil
}

// Get returns a trip to its owner or to an admin.
func (s *TripService) Get(ctx context.Context, tripID, requesterID int64, isAdmin bool) (*models.Trip, error) {
	trip, err := s.trips.GetByID(ctx, tripID)
	if err != nil {
		return nil, notFoundAs(err, models.ErrTripNotFound)
	}
	if trip.UserID != requesterID && !isAdmin {
		return nil, models.ErrNotTripOwner
	}
	return trip, nil
}

func (s *TripService) History(ctx context.Context, userID int64, filter models.TripFilter, page, limit int) ([]models.Trip, int, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, 0, ErrTripStatus
	}
	return s.trips.ListByUser(ctx, userID, filter, Offset(page, limit), limit)
}

// Unused lists tickets that can still be redeemed.
func (s *TripService) Unused(ctx context.Context, userID int64) ([]models.Trip, error) {
	return s.trips.ListUnused(ctx, userID, s.now().UTC())
}
