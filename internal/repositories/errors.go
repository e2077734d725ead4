package repositories

import (
	"database/sql"
	"errors"
)

var (
	// ErrNotFound is returned when a specific record is not found.
	ErrNotFound = errors.New("requested record not found")

	// ErrDatabaseError is returned for unexpected database errors.
	// It can be used to wrap more specific driver errors.
	ErrDatabaseError = errors.New("database error")

	// ErrDuplicateKey is returned when an insert/update violates a unique constraint.
	ErrDuplicateKey = errors.New("duplicate key value violates unique constraint")

	// ErrForeignKeyViolation is returned when a referenced record does not exist.
	ErrForeignKeyViolation = errors.New("referenced record does not exist")

	// ErrLockNotAvailable is returned when a row lock could not be acquired
	// within the session lock_timeout. Callers must not confuse this with a
	// business rejection; the write may be retried.
	ErrLockNotAvailable = errors.New("row lock not available")

	// ErrBalanceExceeded is returned by the guarded payment insert when the
	// amount is larger than the invoice's open balance at insert time.
	ErrBalanceExceeded = errors.New("payment amount exceeds open invoice balance")

	// ErrInvalidState is returned when a record's current state does not
	// allow the requested write (e.g. paying a cancelled invoice).
	ErrInvalidState = errors.New("record state does not allow this operation")
)

// SQLExecutor defines an interface that can be satisfied by *sql.DB or *sql.Tx
// This allows repository methods to be used within transactions or with a direct DB connection.
type SQLExecutor interface {
	Exec(query string, args ...interface{}) (sql.Result, error)
	QueryRow(query string, args ...interface{}) *sql.Row
	Query(query string, args ...interface{}) (*sql.Rows, error)
}

// SQLTx is a transaction handle: the executor plus commit/rollback control.
// *sql.Tx satisfies it. Services that orchestrate multi-table writes accept
// it instead of *sql.DB so the transaction boundary stays injectable.
type SQLTx interface {
	SQLExecutor
	Commit() error
	Rollback() error
}

// scanner is an interface satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}
