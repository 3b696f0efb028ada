package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type TripStatus string

const (
	TripCreated   TripStatus = "created"
	TripUsed      TripStatus = "used"
	TripExpired   TripStatus = "expired"
	TripCancelled TripStatus = "cancelled"
)

func (s TripStatus) Valid() bool {
	switch s {
	case TripCreated, TripUsed, TripExpired, TripCancelled:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentBalance PaymentMethod = "balance"
	PaymentCash    PaymentMethod = "cash"
	PaymentCard    PaymentMethod = "card"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentBalance || m == PaymentCash || m == PaymentCard
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// DefaultTripTTL is how long an issued ticket stays redeemable.
const DefaultTripTTL = 24 * time.Hour

const MaxPassengers = 10

type Trip struct {
	ID                 int64           `json:"id"`
	TripCode           string          `json:"tripCode"`
	UserID             int64           `json:"userId"`
	FromStation        StationRef      `json:"fromStation"`
	ToStation          StationRef      `json:"toStation"`
	Fare               decimal.Decimal `json:"fare"`
	NumberOfPassengers int             `json:"numberOfPassengers"`
	TotalAmount        decimal.Decimal `json:"totalAmount"`
	Status             TripStatus      `json:"status"`
	PaymentMethod      PaymentMethod   `json:"paymentMethod"`
	PaymentStatus      PaymentStatus   `json:"paymentStatus"`
	ExpiresAt          time.Time       `json:"expiresAt"`
	UsedAt             *time.Time      `json:"usedAt,omitempty"`
	JourneyStartTime   *time.Time      `json:"journeyStartTime,omitempty"`
	JourneyEndTime     *time.Time      `json:"journeyEndTime,omitempty"`
	CreatedAt          time.Time       `json:"createdAt"`
	UpdatedAt          time.Time       `json:"updatedAt"`
}

// Lapsed reports whether the ticket can no longer be redeemed because of time.
func (t *Trip) Lapsed(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// Redeem moves a created trip to used. A created trip past its expiry is
// moved to expired instead and ErrTripExpired is returned; the caller must
// still persist that change.
func (t *Trip) Redeem(now time.Time) error {
	switch t.Status {
	case TripCreated:
	case TripUsed:
		return ErrTripAlreadyUsed
	case TripExpired:
		return ErrTripExpired
	case TripCancelled:
		return ErrTripCancelled
	default:
		return ErrTripNotFound
	}

	if t.Lapsed(now) {
		t.Status = TripExpired
		t.UpdatedAt = now
		return ErrTripExpired
	}

	t.Status = TripUsed
	t.UsedAt = &now
	t.JourneyStartTime = &now
	t.UpdatedAt = now
	return nil
}

// CompleteJourney records the end of the ride. Only the owner of a used trip
// may complete it, once.
func (t *Trip) CompleteJourney(requesterID int64, now time.Time) error {
	if t.Status != TripUsed {
		return ErrTripNotUsed
	}
	if t.UserID != requesterID {
		return ErrNotTripOwner
	}
	if t.JourneyEndTime != nil {
		return ErrJourneyCompleted
	}
	t.JourneyEndTime = &now
	t.UpdatedAt = now
	return nil
}

// Cancel voids a ticket that was never redeemed.
func (t *Trip) Cancel(now time.Time) error {
	if t.Status != TripCreated {
		return ErrTripNotCreated
	}
	t.Status = TripCancelled
	t.UpdatedAt = now
	return nil
}

type IssueTripRequest struct {
	FromStation        int64         `json:"fromStation" validate:"required,gt=0"`
	ToStation          int64         `json:"toStation" validate:"required,gt=0"`
	NumberOfPassengers int           `json:"numberOfPassengers" validate:"omitempty,min=1,max=10"`
	PaymentMethod      PaymentMethod `json:"paymentMethod" validate:"omitempty,oneof=balance cash card"`
}

type TripFilter struct {
	Status TripStatus
}
