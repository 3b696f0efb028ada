package models

import "metro-ticketing/internal/apperr"

// Domain errors. Compare with errors.Is; the kind decides the HTTP status.
var (
	ErrInvalidAmount     = apperr.New(apperr.KindValidation, "amount must be greater than zero")
	ErrAmountFormat      = apperr.New(apperr.KindValidation, "amount must have at most 2 decimal places and not exceed 9999999999.99")
	ErrInsufficientFunds = apperr.New(apperr.KindStateConflict, "insufficient balance")
	ErrBalanceLimit      = apperr.New(apperr.KindStateConflict, "balance cannot exceed 9999999999.99")

	ErrUserNotFound       = apperr.New(apperr.KindNotFound, "user not found")
	ErrEmailTaken         = apperr.New(apperr.KindConflict, "email is already registered")
	ErrPhoneTaken         = apperr.New(apperr.KindConflict, "phone is already registered")
	ErrInvalidCredentials = apperr.New(apperr.KindAuth, "invalid email or password")
	ErrAccountInactive    = apperr.New(apperr.KindAuth, "account is deactivated")
	ErrWrongPassword      = apperr.New(apperr.KindValidation, "current password is incorrect")

	ErrStationNotFound = apperr.New(apperr.KindNotFound, "station not found")
	ErrStationInactive = apperr.New(apperr.KindValidation, "station is not active")
	ErrStationNameUsed = apperr.New(apperr.KindConflict, "station name already exists")
	ErrStationCodeUsed = apperr.New(apperr.KindConflict, "station code already exists")
	ErrSameStation     = apperr.New(apperr.KindValidation, "from and to stations must be different")

	ErrFareNotFound = apperr.New(apperr.KindNotFound, "fare not found for this route")
	ErrFareExists   = apperr.New(apperr.KindConflict, "an active fare already exists for this route and type")
	ErrInvalidFare  = apperr.New(apperr.KindValidation, "fare must be greater than zero")
	ErrFareFormat   = apperr.New(apperr.KindValidation, "fare must have at most 2 decimal places and not exceed 9999999999.99")
	ErrFareWindow   = apperr.New(apperr.KindValidation, "effectiveTo must be after effectiveFrom")
	ErrFareMeasure  = apperr.New(apperr.KindValidation, "distance and duration cannot be negative")

	ErrFareTypeInvalid = apperr.New(apperr.KindValidation, "fareType must be one of regular, peak, off-peak, student, senior")

	// Redemption failures share the not-found kind and differ only in message.
	ErrTripNotFound    = apperr.New(apperr.KindNotFound, "trip not found")
	ErrTripAlreadyUsed = apperr.New(apperr.KindNotFound, "trip has already been used")
	ErrTripExpired     = apperr.New(apperr.KindNotFound, "trip has expired")
	ErrTripCancelled   = apperr.New(apperr.KindNotFound, "trip has been cancelled")

	ErrTripNotUsed      = apperr.New(apperr.KindStateConflict, "trip must be used before completing the journey")
	ErrJourneyCompleted = apperr.New(apperr.KindStateConflict, "journey is already completed")
	ErrTripNotCreated   = apperr.New(apperr.KindStateConflict, "only unused trips can be cancelled")
	ErrNotTripOwner     = apperr.New(apperr.KindForbidden, "you can only access your own trips")
	ErrPaymentMethod    = apperr.New(apperr.KindValidation, "unsupported payment method")
)
