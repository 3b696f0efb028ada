package mysqlstore

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"metro-ticketing/internal/models"
	"metro-ticketing/internal/store"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return sqlx.NewDb(conn, "mysql"), mock
}

func q(s string) string { return regexp.QuoteMeta(s) }

func TestDebitAppliesWhenBalanceCovers(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)
	amount := decimal.NewFromInt(60)

	mock.ExpectBegin()
	mock.ExpectExec(q("UPDATE users SET balance = balance - ?")).
		WithArgs(amount, sqlmock.AnyArg(), int64(7), amount).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(q("SELECT balance FROM users WHERE id = ?")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow("40.00"))
	mock.ExpectExec(q("INSERT INTO balance_history")).
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectCommit()

	entry, err := repo.Debit(context.Background(), 7, amount, models.BalanceEntry{Type: models.EntryDebit})
	require.NoError(t, err)
	assert.Equal(t, int64(11), entry.ID)
	assert.True(t, entry.Amount.Equal(decimal.NewFromInt(-60)))
	assert.True(t, entry.BalanceAfter.Equal(decimal.NewFromInt(40)))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDebitRejectsShortBalance(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(q("UPDATE users SET balance = balance - ?")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q("SELECT is_active FROM users WHERE id = ?")).
		WithArgs(int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"is_active"}).AddRow(true))
	mock.ExpectRollback()

	_, err := repo.Debit(context.Background(), 7, decimal.NewFromInt(500), models.BalanceEntry{Type: models.EntryDebit})
	assert.ErrorIs(t, err, store.ErrInsufficientFunds)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDebitUnknownUser(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(q("UPDATE users SET balance = balance - ?")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q("SELECT is_active FROM users WHERE id = ?")).
		WillReturnRows(sqlmock.NewRows([]string{"is_active"}))
	mock.ExpectRollback()

	_, err := repo.Debit(context.Background(), 99, decimal.NewFromInt(5), models.BalanceEntry{Type: models.EntryDebit})
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreditInactiveUser(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(q("UPDATE users SET balance = balance + ?")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := repo.Credit(context.Background(), 3, decimal.NewFromInt(5), models.BalanceEntry{Type: models.EntryDeposit})
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTripWithoutFundsWritesNothing(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTripRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(q("UPDATE users SET balance = balance - ?")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(q("SELECT is_active FROM users WHERE id = ?")).
		WillReturnRows(sqlmock.NewRows([]string{"is_active"}).AddRow(true))
	mock.ExpectRollback()

	trip := &models.Trip{
		TripCode:      "TRP-1",
		UserID:        7,
		TotalAmount:   decimal.NewFromInt(60),
		Status:        models.TripCreated,
		PaymentMethod: models.PaymentBalance,
		ExpiresAt:     time.Now().Add(time.Hour),
	}
	err := repo.Create(context.Background(), trip)
	assert.ErrorIs(t, err, store.ErrInsufficientFunds)
	assert.Zero(t, trip.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateCashTripSkipsDebit(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTripRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(q("INSERT INTO trips")).
		WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectCommit()

	trip := &models.Trip{
		TripCode:      "TRP-2",
		UserID:        7,
		TotalAmount:   decimal.NewFromInt(30),
		Status:        models.TripCreated,
		PaymentMethod: models.PaymentCash,
		PaymentStatus: models.PaymentCompleted,
		ExpiresAt:     time.Now().Add(time.Hour),
	}
	require.NoError(t, repo.Create(context.Background(), trip))
	assert.Equal(t, int64(42), trip.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkUsedLosesRace(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTripRepository(db)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec(q("UPDATE trips SET status = ?, used_at = ?")).
		WithArgs("used", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), int64(5), "created", now).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	trip := &models.Trip{ID: 5, UserID: 7, TotalAmount: decimal.NewFromInt(60), UsedAt: &now, JourneyStartTime: &now, UpdatedAt: now}
	err := repo.MarkUsed(context.Background(), trip, now)
	assert.ErrorIs(t, err, store.ErrStaleState)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkUsedBumpsStatsInSameTx(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTripRepository(db)
	now := time.Now().UTC()

	mock.ExpectBegin()
	mock.ExpectExec(q("UPDATE trips SET status = ?, used_at = ?")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(q("UPDATE users SET total_trips = total_trips + 1, total_expense = total_expense + ?")).
		WithArgs(decimal.NewFromInt(60), sqlmock.AnyArg(), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	trip := &models.Trip{ID: 5, UserID: 7, TotalAmount: decimal.NewFromInt(60), UsedAt: &now, JourneyStartTime: &now, UpdatedAt: now}
	require.NoError(t, repo.MarkUsed(context.Background(), trip, now))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCompleteJourneyAlreadyDone(t *testing.T) {
	db, mock := newMock(t)
	repo := NewTripRepository(db)
	now := time.Now().UTC()

	mock.ExpectExec(q("UPDATE trips SET journey_end_time = ?")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.CompleteJourney(context.Background(), &models.Trip{ID: 5, JourneyEndTime: &now, UpdatedAt: now})
	assert.ErrorIs(t, err, store.ErrStaleState)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreditOutOfRange(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(q("UPDATE users SET balance = balance + ?")).
		WillReturnError(&mysql.MySQLError{Number: errOutOfRange, Message: "Out of range value for column 'balance'"})
	mock.ExpectRollback()

	_, err := repo.Credit(context.Background(), 7, decimal.NewFromInt(1), models.BalanceEntry{Type: models.EntryDeposit})
	assert.ErrorIs(t, err, store.ErrOutOfRange)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateStationDuplicate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewStationRepository(db)

	mock.ExpectExec(q("INSERT INTO stations")).
		WillReturnError(&mysql.MySQLError{Number: errDuplicateEntry, Message: "Duplicate entry 'Central'"})

	err := repo.Create(context.Background(), &models.Station{Name: "Central", IsActive: true})
	assert.ErrorIs(t, err, store.ErrDuplicate)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetStationNotFound(t *testing.T) {
	db, mock := newMock(t)
	repo := NewStationRepository(db)

	mock.ExpectQuery(q("FROM stations WHERE id = ?")).
		WithArgs(int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByID(context.Background(), 9)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestFindEffectiveFare(t *testing.T) {
	db, mock := newMock(t)
	repo := NewFareRepository(db)
	at := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	cols := []string{"id", "from_station_id", "to_station_id", "fare_type", "fare", "distance", "duration",
		"effective_from", "effective_to", "is_active", "created_at", "updated_at",
		"from_name", "from_code", "to_name", "to_code"}
	mock.ExpectQuery(q("f.effective_from <= ? AND (f.effective_to IS NULL OR f.effective_to >= ?)")).
		WithArgs(int64(1), int64(2), "regular", at, at).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(
			3, 1, 2, "regular", "30.00", 4.2, 8,
			at.AddDate(0, -1, 0), nil, true, at, at,
			"Alpha", "A", "Beta", "",
		))

	fare, err := repo.FindEffective(context.Background(), 1, 2, models.FareRegular, at)
	require.NoError(t, err)
	assert.True(t, fare.Fare.Equal(decimal.NewFromInt(30)))
	assert.Nil(t, fare.EffectiveTo)
	assert.Equal(t, "Alpha", fare.FromStation.Name)
	assert.Equal(t, "Beta", fare.ToStation.Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLikePatternEscapes(t *testing.T) {
	assert.Equal(t, `%50\%\_off%`, likePattern("50%_off"))
}
