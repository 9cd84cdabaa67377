package procedure

import (
	"context"
	"reflect"
)

// Session is one checked-out connection with an open transaction.
type Session interface {
	// CallProc calls the procedure positionally and returns the argument
	// list as the driver hands it back, with the column names of those
	// values when they are known.
	CallProc(ctx context.Context, name string, args Args, mode Mode) (returned Args, columns []string, err error)
	// Fetch reads the rows produced by the last call.
	Fetch(ctx context.Context) (RawResult, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Pool hands out sessions, one per in-flight call.
type Pool interface {
	Begin(ctx context.Context) (Session, error)
}

type Invoker struct {
	pool Pool
}

func NewInvoker(pool Pool) *Invoker {
	return &Invoker{pool: pool}
}

// Invoke runs call with args inside its own transaction and commits it.
// Any failure rolls the transaction back and is returned as *DatabaseError.
func (inv *Invoker) Invoke(ctx context.Context, call Call, args Args) (RawResult, error) {
	sess, err := inv.pool.Begin(ctx)
	if err != nil {
		return RawResult{}, newDatabaseError(call.Name, "begin", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = sess.Rollback(context.WithoutCancel(ctx))
		}
	}()

	returned, columns, err := sess.CallProc(ctx, call.Name, args, call.Mode)
	if err != nil {
		return RawResult{}, newDatabaseError(call.Name, "call", err)
	}

	var result RawResult
	if call.Mode == ModeResultSet || (call.Mode == ModeAuto && sameArgs(args, returned)) {
		result, err = sess.Fetch(ctx)
		if err != nil {
			return RawResult{}, newDatabaseError(call.Name, "fetch", err)
		}
	} else {
		result = outResult(returned, columns)
	}

	if err := sess.Commit(ctx); err != nil {
		return RawResult{}, newDatabaseError(call.Name, "commit", err)
	}
	committed = true
	return result, nil
}

// outResult turns in/out values into a single-row result.
func outResult(returned Args, columns []string) RawResult {
	if len(returned) == 0 {
		return RawResult{Columns: columns, Rows: [][]any{}}
	}
	return RawResult{Columns: columns, Rows: [][]any{returned}}
}

func sameArgs(a, b Args) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !reflect.DeepEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}
