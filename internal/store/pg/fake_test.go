package pg

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// fakeRow es una fila cruda tal como la devolvería el SELECT.
type fakeRow struct {
	keyID, keyString, algorithm string
	createdAt                   *int64
}

func ms(v int64) *int64 { return &v }

// fakeRows implementa pgx.Rows sobre un slice.
type fakeRows struct {
	rows    []fakeRow
	idx     int
	err     error
	scanErr error
	closed  bool
}

func (r *fakeRows) Close()                                       { r.closed = true }
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.NewCommandTag("SELECT") }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return nil, errors.New("not implemented") }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}
	r.idx++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	if r.scanErr != nil {
		return r.scanErr
	}
	row := r.rows[r.idx-1]
	*(dest[0].(*string)) = row.keyID
	*(dest[1].(*string)) = row.keyString
	*(dest[2].(*string)) = row.algorithm
	*(dest[3].(**int64)) = row.createdAt
	return nil
}

// fakeTx implementa pgx.Tx; sólo Query y Exec tienen comportamiento.
type fakeTx struct {
	pgx.Tx

	rows     *fakeRows
	queryErr error
	execErr  error

	lastSQL  string
	lastArgs []any
	execs    int
}

func (tx *fakeTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	tx.lastSQL, tx.lastArgs = sql, args
	if tx.queryErr != nil {
		return nil, tx.queryErr
	}
	if tx.rows == nil {
		tx.rows = &fakeRows{}
	}
	return tx.rows, nil
}

func (tx *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	tx.lastSQL, tx.lastArgs = sql, args
	tx.execs++
	if tx.execErr != nil {
		return pgconn.CommandTag{}, tx.execErr
	}
	return pgconn.NewCommandTag("INSERT 0 1"), nil
}

// fakeNames implementa TableNames.
type fakeNames struct{ schema, table, apps string }

func (n fakeNames) TableSchema() string         { return n.schema }
func (n fakeNames) JWTSigningKeysTable() string { return n.table }
func (n fakeNames) AppsTable() string           { return n.apps }

var defaultNames = fakeNames{schema: "public", table: "jwt_signing_keys", apps: "apps"}
