package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"metro-ticketing/internal/models"
)

// UserRepository persists users and their balance ledger. Credit and Debit
// apply the balance change and the ledger entry atomically; Debit never lets
// a balance go below zero and returns store.ErrInsufficientFunds instead.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByPhone(ctx context.Context, phone string) (*models.User, error)
	List(ctx context.Context, filter models.UserFilter, offset, limit int) ([]models.User, int, error)
	Update(ctx context.Context, user *models.User) error
	TouchLastLogin(ctx context.Context, id int64, at time.Time) error

	Credit(ctx context.Context, userID int64, amount decimal.Decimal, entry models.BalanceEntry) (*models.BalanceEntry, error)
	Debit(ctx context.Context, userID int64, amount decimal.Decimal, entry models.BalanceEntry) (*models.BalanceEntry, error)
	ListBalanceEntries(ctx context.Context, userID int64, offset, limit int) ([]models.BalanceEntry, int, error)
	SumBalanceEntries(ctx context.Context, userID int64) (decimal.Decimal, error)
}

// StationRepository lookups by name and code include inactive stations so
// uniqueness checks see retired rows too.
type StationRepository interface {
	Create(ctx context.Context, station *models.Station) error
	GetByID(ctx context.Context, id int64) (*models.Station, error)
	GetByName(ctx context.Context, name string) (*models.Station, error)
	GetByCode(ctx context.Context, code string) (*models.Station, error)
	List(ctx context.Context, filter models.StationFilter, offset, limit int) ([]models.Station, int, error)
	Nearby(ctx context.Context, lat, lng, radiusKm float64, limit int) ([]models.Station, error)
	Update(ctx context.Context, station *models.Station) error
}

type FareRepository interface {
	Create(ctx context.Context, fare *models.Fare) error
	GetByID(ctx context.Context, id int64) (*models.Fare, error)
	// FindEffective returns the active fare for the tuple whose window contains at.
	FindEffective(ctx context.Context, from, to int64, fareType models.FareType, at time.Time) (*models.Fare, error)
	// GetActiveByRoute ignores the effective window.
	GetActiveByRoute(ctx context.Context, from, to int64, fareType models.FareType) (*models.Fare, error)
	ListBetween(ctx context.Context, from, to int64, fareType models.FareType, at time.Time) ([]models.Fare, error)
	List(ctx context.Context, filter models.FareFilter, offset, limit int) ([]models.Fare, int, error)
	Update(ctx context.Context, fare *models.Fare) error
}

// TripRepository persists trips. Each state change is a compare-and-swap on
// the previous state and returns store.ErrStaleState when it loses.
type TripRepository interface {
	// Create inserts the trip. For balance payments it debits the owner by
	// TotalAmount and writes the ledger entry in the same transaction.
	Create(ctx context.Context, trip *models.Trip) error
	GetByID(ctx context.Context, id int64) (*models.Trip, error)
	GetByCode(ctx context.Context, code string) (*models.Trip, error)
	// MarkUsed moves created to used while the trip is unexpired at now and
	// bumps the owner's trip counters.
	MarkUsed(ctx context.Context, trip *models.Trip, now time.Time) error
	MarkExpired(ctx context.Context, trip *models.Trip) error
	CompleteJourney(ctx context.Context, trip *models.Trip) error
	ListByUser(ctx context.Context, userID int64, filter models.TripFilter, offset, limit int) ([]models.Trip, int, error)
	ListUnused(ctx context.Context, userID int64, now time.Time) ([]models.Trip, error)
}

type Repositories struct {
	Users    UserRepository
	Stations StationRepository
	Fares    FareRepository
	Trips    TripRepository
}
