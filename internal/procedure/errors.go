package procedure

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// DatabaseError is any failure while beginning, calling, fetching or
// committing a procedure call. The transaction has been rolled back.
type DatabaseError struct {
	Procedure string
	Op        string
	Code      string // SQLSTATE, when the server reported one
	Err       error
}

func (e *DatabaseError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Procedure, e.Err)
}

func (e *DatabaseError) Unwrap() error { return e.Err }

func newDatabaseError(procedure, op string, err error) *DatabaseError {
	dbErr := &DatabaseError{Procedure: procedure, Op: op, Err: err}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		dbErr.Code = pgErr.Code
	}
	return dbErr
}

// SerializationError reports a result that cannot be encoded as JSON.
type SerializationError struct {
	Err error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("encode result: %v", e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }
