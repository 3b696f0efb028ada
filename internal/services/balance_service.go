package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"metro-ticketing/internal/events"
	"metro-ticketing/internal/metrics"
	"metro-ticketing/internal/models"
	"metro-ticketing/internal/store"
)

type BalanceService struct {
	users  UserRepository
	events *eventSink
	logger zerolog.Logger
	now    func() time.Time
}

func NewBalanceService(users UserRepository, ev *eventSink, logger zerolog.Logger) *BalanceService {
	return &BalanceService{
		users:  users,
		events: ev,
		logger: logger,
		now:    time.Now,
	}
}

// Reconciliation compares the stored balance with the sum of the ledger.
type Reconciliation struct {
	UserID     int64           `json:"userId"`
	Balance    decimal.Decimal `json:"balance"`
	LedgerSum  decimal.Decimal `json:"ledgerSum"`
	Consistent bool            `json:"consistent"`
}

func (s *BalanceService) Deposit(ctx context.Context, userID int64, req *models.DepositRequest) (*models.User, error) {
	if err := checkAmount(req.Amount); err != nil {
		return nil, err
	}

	method := strings.TrimSpace(req.PaymentMethod)
	if method == "" {
		method = "card"
	}
	entry, err := s.users.Credit(ctx, userID, req.Amount, models.BalanceEntry{
		Type:          models.EntryDeposit,
		PaymentMethod: method,
		Reference:     req.TransactionID,
	})
	switch {
	case err == nil:
	case errors.Is(err, store.ErrNotFound):
		return nil, models.ErrUserNotFound
	case errors.Is(err, store.ErrOutOfRange):
		return nil, models.ErrBalanceLimit
	default:
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("Error crediting balance")
		return nil, fmt.Errorf("failed to deposit: %w", err)
	}

	metrics.Deposits.Inc()
	s.logger.Info().
		Int64("user_id", userID).
		Str("amount", req.Amount.String()).
		Str("balance_after", entry.BalanceAfter.String()).
		Msg("Balance deposited")
	s.events.publish(ctx, events.BalanceDeposited, entry)

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, notFoundAs(err, models.ErrUserNotFound)
	}
	return user, nil
}

// Debit takes amount from the balance only if it covers it.
func (s *BalanceService) Debit(ctx context.Context, userID int64, amount decimal.Decimal, reference string) (*models.BalanceEntry, error) {
	if err := checkAmount(amount); err != nil {
		return nil, err
	}

	entry, err := s.users.Debit(ctx, userID, amount, models.BalanceEntry{
		Type:      models.EntryDebit,
		Reference: reference,
	})
	switch {
	case err == nil:
	case errors.Is(err, store.ErrInsufficientFunds):
		return nil, models.ErrInsufficientFunds
	case errors.Is(err, store.ErrNotFound):
		return nil, models.ErrUserNotFound
	default:
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("Error debiting balance")
		return nil, fmt.Errorf("failed to debit: %w", err)
	}

	s.logger.Info().
		Int64("user_id", userID).
		Str("amount", amount.String()).
		Str("balance_after", entry.BalanceAfter.String()).
		Msg("Balance debited")
	return entry, nil
}

func (s *BalanceService) History(ctx context.Context, userID int64, page, limit int) ([]models.BalanceEntry, int, error) {
	entries, total, err := s.users.ListBalanceEntries(ctx, userID, Offset(page, limit), limit)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("Error fetching balance history")
		return nil, 0, err
	}
	return entries, total, nil
}

func (s *BalanceService) Reconcile(ctx context.Context, userID int64) (*Reconciliation, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, notFoundAs(err, models.ErrUserNotFound)
	}
	sum, err := s.users.SumBalanceEntries(ctx, userID)
	if err != nil {
		return nil, err
	}

	rec := &Reconciliation{
		UserID:     userID,
		Balance:    user.Balance,
		LedgerSum:  sum,
		Consistent: user.Balance.Equal(sum),
	}
	if !rec.Consistent {
		s.logger.Warn().
			Int64("user_id", userID).
			Str("current_balance", user.Balance.String()).
			Str("calculated_balance", sum.String()).
			Msg("Balance discrepancy detected")
	}
	return rec, nil
}

func checkAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return models.ErrInvalidAmount
	}
	if !models.FitsMoneyColumn(amount) {
		return models.ErrAmountFormat
	}
	return nil
}
