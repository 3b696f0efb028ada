package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MaxAmount is the largest value the DECIMAL(12,2) money columns hold.
var MaxAmount = decimal.New(999999999999, -2)

// FitsMoneyColumn reports whether d can be stored without rounding or
// overflow: at most two decimal places and no more than MaxAmount.
func FitsMoneyColumn(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(2)) && d.Abs().LessThanOrEqual(MaxAmount)
}

type BalanceEntryType string

const (
	EntryDeposit      BalanceEntryType = "deposit"
	EntryDebit        BalanceEntryType = "debit"
	EntryTripPurchase BalanceEntryType = "trip_purchase"
)

// BalanceEntry is one row of a user's balance history. Amount is the signed
// change applied to the balance; BalanceAfter is the balance once it applied.
type BalanceEntry struct {
	ID            int64            `json:"id" db:"id"`
	UserID        int64            `json:"userId" db:"user_id"`
	Type          BalanceEntryType `json:"type" db:"type"`
	Amount        decimal.Decimal  `json:"amount" db:"amount"`
	BalanceAfter  decimal.Decimal  `json:"balanceAfter" db:"balance_after"`
	PaymentMethod string           `json:"paymentMethod,omitempty" db:"payment_method"`
	Reference     string           `json:"reference,omitempty" db:"reference"`
	CreatedAt     time.Time        `json:"createdAt" db:"created_at"`
}

type DepositRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"paymentMethod" validate:"omitempty,max=32"`
	TransactionID string          `json:"transactionId" validate:"omitempty,max=64"`
}

type DebitRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Reference string          `json:"reference" validate:"omitempty,max=64"`
}
