package procedure

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

// TxBeginner is satisfied by *pgxpool.Pool and *db.Db.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Repository opens Postgres sessions for the invoker.
type Repository struct {
	conn TxBeginner
}

func NewRepository(conn TxBeginner) *Repository {
	return &Repository{conn: conn}
}

func (r *Repository) Begin(ctx context.Context) (Session, error) {
	tx, err := r.conn.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return &pgSession{tx: tx}, nil
}

type pgSession struct {
	tx     pgx.Tx
	cursor pgx.Rows
}

var errNoResultSet = errors.New("no result set to fetch")

// CallProc runs functions as SELECT * FROM name(...), leaving the rows
// open for Fetch, and hands the arguments back unchanged. In ModeOutParams
// it runs CALL name(...) and returns the in/out row instead.
func (s *pgSession) CallProc(ctx context.Context, name string, args Args, mode Mode) (Args, []string, error) {
	ident, err := quoteProcedure(name)
	if err != nil {
		return nil, nil, err
	}
	s.closeCursor()

	if mode == ModeOutParams {
		rows, err := s.tx.Query(ctx, buildCmdText("CALL ", ident, len(args)), args...)
		if err != nil {
			return nil, nil, err
		}
		raw, err := collectRows(rows)
		if err != nil {
			return nil, nil, err
		}
		if len(raw.Rows) == 0 {
			return Args{}, raw.Columns, nil
		}
		return Args(raw.Rows[0]), raw.Columns, nil
	}

	rows, err := s.tx.Query(ctx, buildCmdText("SELECT * FROM ", ident, len(args)), args...)
	if err != nil {
		return nil, nil, err
	}
	s.cursor = rows
	return append(Args{}, args...), nil, nil
}

func (s *pgSession) Fetch(ctx context.Context) (RawResult, error) {
	if s.cursor == nil {
		return RawResult{}, errNoResultSet
	}
	rows := s.cursor
	s.cursor = nil
	return collectRows(rows)
}

func (s *pgSession) Commit(ctx context.Context) error {
	if err := s.closeCursor(); err != nil {
		return err
	}
	return s.tx.Commit(ctx)
}

func (s *pgSession) Rollback(ctx context.Context) error {
	_ = s.closeCursor()
	err := s.tx.Rollback(ctx)
	if errors.Is(err, pgx.ErrTxClosed) {
		return nil
	}
	return err
}

func (s *pgSession) closeCursor() error {
	if s.cursor == nil {
		return nil
	}
	s.cursor.Close()
	err := s.cursor.Err()
	s.cursor = nil
	return err
}

func collectRows(rows pgx.Rows) (RawResult, error) {
	defer rows.Close()

	out := RawResult{Rows: make([][]any, 0)}
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return RawResult{}, err
		}
		out.Rows = append(out.Rows, vals)
	}
	if err := rows.Err(); err != nil {
		return RawResult{}, err
	}

	fields := rows.FieldDescriptions()
	out.Columns = make([]string, len(fields))
	for i, f := range fields {
		out.Columns[i] = f.Name
	}
	return out, nil
}

// quoteProcedure folds name to lower case, as Postgres does for unquoted
// identifiers, and quotes each part.
func quoteProcedure(name string) (string, error) {
	if err := ValidateProcedureName(name); err != nil {
		return "", err
	}
	parts := strings.Split(strings.ToLower(name), ".")
	return pgx.Identifier(parts).Sanitize(), nil
}

func buildCmdText(verb, ident string, nargs int) string {
	var b strings.Builder
	b.WriteString(verb)
	b.WriteString(ident)
	b.WriteByte('(')
	for i := 0; i < nargs; i++ {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "$%d", i+1)
	}
	b.WriteByte(')')
	return b.String()
}
