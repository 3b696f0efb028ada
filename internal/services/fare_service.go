package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"metro-ticketing/internal/models"
	"metro-ticketing/internal/store"
)

type FareService struct {
	fares    FareRepository
	stations StationRepository
	logger   zerolog.Logger
	now      func() time.Time
}

func NewFareService(fares FareRepository, stations StationRepository, logger zerolog.Logger) *FareService {
	return &FareService{
		fares:    fares,
		stations: stations,
		logger:   logger,
		now:      time.Now,
	}
}

// FindFare returns the fare in effect right now for the direct edge
// from -> to. There is no multi-hop fallback.
func (s *FareService) FindFare(ctx context.Context, from, to int64, fareType models.FareType) (*models.Fare, error) {
	if fareType == "" {
		fareType = models.FareRegular
	}
	fare, err := s.fares.FindEffective(ctx, from, to, fareType, s.now())
	if err != nil {
		return nil, notFoundAs(err, models.ErrFareNotFound)
	}
	return fare, nil
}

func (s *FareService) InBetween(ctx context.Context, from, to int64, fareType models.FareType) ([]models.Fare, error) {
	if fareType != "" && !fareType.Valid() {
		return nil, models.ErrFareTypeInvalid
	}
	fares, err := s.fares.ListBetween(ctx, from, to, fareType, s.now())
	if err != nil {
		return nil, err
	}
	if len(fares) == 0 {
		return nil, models.ErrFareNotFound
	}
	return fares, nil
}

func (s *FareService) Create(ctx context.Context, req *models.CreateFareRequest) (*models.Fare, error) {
	if req.FromStationID == req.ToStationID {
		return nil, models.ErrSameStation
	}
	fareType := req.FareType
	if fareType == "" {
		fareType = models.FareRegular
	}
	if !fareType.Valid() {
		return nil, models.ErrFareTypeInvalid
	}
	if err := checkFare(req.Fare); err != nil {
		return nil, err
	}
	if req.Distance < 0 || req.Duration < 0 {
		return nil, models.ErrFareMeasure
	}

	effectiveFrom := s.now().UTC()
	if req.EffectiveFrom != nil {
		effectiveFrom = req.EffectiveFrom.UTC()
	}
	if req.EffectiveTo != nil && !req.EffectiveTo.After(effectiveFrom) {
		return nil, models.ErrFareWindow
	}

	from, err := requireActive(ctx, s.stations, req.FromStationID)
	if err != nil {
		return nil, err
	}
	to, err := requireActive(ctx, s.stations, req.ToStationID)
	if err != nil {
		return nil, err
	}

	if _, err := s.fares.GetActiveByRoute(ctx, from.ID, to.ID, fareType); err == nil {
		return nil, models.ErrFareExists
	} else if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("check existing fare: %w", err)
	}

	fare := &models.Fare{
		FromStationID: from.ID,
		ToStationID:   to.ID,
		FareType:      fareType,
		Fare:          req.Fare,
		Distance:      req.Distance,
		Duration:      req.Duration,
		EffectiveFrom: effectiveFrom,
		EffectiveTo:   req.EffectiveTo,
		IsActive:      true,
	}
	if err := s.fares.Create(ctx, fare); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return nil, models.ErrFareExists
		}
		s.logger.Error().Err(err).Msg("Error creating fare")
		return nil, fmt.Errorf("failed to create fare: %w", err)
	}

	s.logger.Info().
		Int64("fare_id", fare.ID).
		Int64("from_station_id", fare.FromStationID).
		Int64("to_station_id", fare.ToStationID).
		Str("fare_type", string(fare.FareType)).
		Str("fare", fare.Fare.String()).
		Msg("Fare created")
	return fare, nil
}

func (s *FareService) Get(ctx context.Context, id int64) (*models.Fare, error) {
	fare, err := s.fares.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundAs(err, models.ErrFareNotFound)
	}
	return fare, nil
}

func (s *FareService) List(ctx context.Context, filter models.FareFilter, page, limit int) ([]models.Fare, int, error) {
	if filter.FareType != "" && !filter.FareType.Valid() {
		return nil, 0, models.ErrFareTypeInvalid
	}
	return s.fares.List(ctx, filter, Offset(page, limit), limit)
}

// Update changes price, distance, duration or the end of the effective
// window. The station pair and fare type are fixed for the life of a fare.
func (s *FareService) Update(ctx context.Context, id int64, req *models.UpdateFareRequest) (*models.Fare, error) {
	fare, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Fare != nil {
		if err := checkFare(*req.Fare); err != nil {
			return nil, err
		}
		fare.Fare = *req.Fare
	}
	if req.Distance != nil {
		fare.Distance = *req.Distance
	}
	if req.Duration != nil {
		fare.Duration = *req.Duration
	}
	if req.EffectiveTo != nil {
		if !req.EffectiveTo.After(fare.EffectiveFrom) {
			return nil, models.ErrFareWindow
		}
		to := req.EffectiveTo.UTC()
		fare.EffectiveTo = &to
	}
	if fare.Distance < 0 || fare.Duration < 0 {
		return nil, models.ErrFareMeasure
	}

	if err := s.save(ctx, fare); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("fare_id", fare.ID).Msg("Fare updated")
	return fare, nil
}

func (s *FareService) Deactivate(ctx context.Context, id int64) error {
	fare, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	fare.IsActive = false
	if err := s.save(ctx, fare); err != nil {
		return err
	}
	s.logger.Info().Int64("fare_id", fare.ID).Msg("Fare deactivated")
	return nil
}

func (s *FareService) save(ctx context.Context, fare *models.Fare) error {
	err := s.fares.Update(ctx, fare)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, store.ErrNotFound):
		return models.ErrFareNotFound
	case errors.Is(err, store.ErrDuplicate):
		return models.ErrFareExists
	}
	s.logger.Error().Err(err).Int64("fare_id", fare.ID).Msg("Error updating fare")
	return fmt.Errorf("failed to update fare: %w", err)
}

func checkFare(fare decimal.Decimal) error {
	if !fare.IsPositive() {
		return models.ErrInvalidFare
	}
	if !models.FitsMoneyColumn(fare) {
		return models.ErrFareFormat
	}
	return nil
}
