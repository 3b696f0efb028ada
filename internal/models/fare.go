package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type FareType string

const (
	FareRegular FareType = "regular"
	FarePeak    FareType = "peak"
	FareOffPeak FareType = "off-peak"
	FareStudent FareType = "student"
	FareSenior  FareType = "senior"
)

func (t FareType) Valid() bool {
	switch t {
	case FareRegular, FarePeak, FareOffPeak, FareStudent, FareSenior:
		return true
	}
	return false
}

// Fare is a directed price edge between two stations. The reverse direction
// is a separate row.
type Fare struct {
	ID            int64           `json:"id"`
	FromStationID int64           `json:"fromStationId"`
	ToStationID   int64           `json:"toStationId"`
	FromStation   *StationRef     `json:"fromStation,omitempty"`
	ToStation     *StationRef     `json:"toStation,omitempty"`
	FareType      FareType        `json:"fareType"`
	Fare          decimal.Decimal `json:"fare"`
	Distance      float64         `json:"distance"`
	Duration      int             `json:"duration"`
	EffectiveFrom time.Time       `json:"effectiveFrom"`
	EffectiveTo   *time.Time      `json:"effectiveTo,omitempty"`
	IsActive      bool            `json:"isActive"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// EffectiveAt reports whether the fare is active and t falls inside
// [EffectiveFrom, EffectiveTo]. A nil EffectiveTo is unbounded.
func (f *Fare) EffectiveAt(t time.Time) bool {
	if !f.IsActive || t.Before(f.EffectiveFrom) {
		return false
	}
	return f.EffectiveTo == nil || !t.After(*f.EffectiveTo)
}

type FareFilter struct {
	FromStationID   int64
	ToStationID     int64
	FareType        FareType
	IncludeInactive bool
}

type CreateFareRequest struct {
	FromStationID int64           `json:"fromStationId" validate:"required,gt=0"`
	ToStationID   int64           `json:"toStationId" validate:"required,gt=0"`
	FareType      FareType        `json:"fareType" validate:"omitempty,oneof=regular peak off-peak student senior"`
	Fare          decimal.Decimal `json:"fare"`
	Distance      float64         `json:"distance" validate:"gte=0"`
	Duration      int             `json:"duration" validate:"gte=0"`
	EffectiveFrom *time.Time      `json:"effectiveFrom"`
	EffectiveTo   *time.Time      `json:"effectiveTo"`
}

// UpdateFareRequest never touches the station pair or the fare type.
type UpdateFareRequest struct {
	Fare        *decimal.Decimal `json:"fare"`
	Distance    *float64         `json:"distance" validate:"omitempty,gte=0"`
	Duration    *int             `json:"duration" validate:"omitempty,gte=0"`
	EffectiveTo *time.Time       `json:"effectiveTo"`
}
