// Package mysqlstore implements the repositories on MySQL. Balance and trip
// state changes are conditional UPDATEs run inside a transaction; the number
// of affected rows decides whether the change applied.
package mysqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"metro-ticketing/internal/services"
	"metro-ticketing/internal/store"
)

const (
	errDuplicateEntry = 1062
	errOutOfRange     = 1264
)

var (
	_ services.UserRepository    = (*UserRepository)(nil)
	_ services.StationRepository = (*StationRepository)(nil)
	_ services.FareRepository    = (*FareRepository)(nil)
	_ services.TripRepository    = (*TripRepository)(nil)
)

// Repositories wires every MySQL repository onto one connection pool.
func Repositories(db *sqlx.DB) services.Repositories {
	return services.Repositories{
		Users:    NewUserRepository(db),
		Stations: NewStationRepository(db),
		Fares:    NewFareRepository(db),
		Trips:    NewTripRepository(db),
	}
}

func withTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// translate maps driver errors onto the store sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case errDuplicateEntry:
			return store.ErrDuplicate
		case errOutOfRange:
			return store.ErrOutOfRange
		}
	}
	return err
}

func affected(res sql.Result) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}

func now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

// where joins conditions with AND, or returns "" when there are none.
func where(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
