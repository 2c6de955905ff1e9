package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/dukerupert/basket/internal/naming"
)

// querier is satisfied by *sql.DB and *sql.Tx so helpers can run inside or
// outside a transaction.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface{ Scan(...any) error }

func nullInt64(p *int64) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *p, Valid: true}
}

func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// likePattern builds a LIKE pattern matching key anywhere, escaping the
// wildcard characters with a backslash.
func likePattern(key string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(key) + "%"
}

// nameConflict turns a violation of a name_key UNIQUE constraint into
// naming.ErrDuplicateName. It catches writers racing past Validate.
func nameConflict(err error) error {
	var sqlErr *sqlite.Error
	if errors.As(err, &sqlErr) && sqlErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT &&
		strings.Contains(sqlErr.Error(), "UNIQUE constraint failed") &&
		strings.Contains(sqlErr.Error(), ".name_key") {
		return naming.ErrDuplicateName
	}
	return err
}
