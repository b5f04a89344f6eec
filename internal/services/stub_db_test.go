package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type stubRow struct {
	values []any
	err    error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) != len(r.values) {
		return fmt.Errorf("expected %d scan targets, got %d", len(r.values), len(dest))
	}
	for i := range dest {
		switch target := dest[i].(type) {
		case *int64:
			*target = r.values[i].(int64)
		case *int:
			*target = r.values[i].(int)
		case *string:
			*target = r.values[i].(string)
		case *bool:
			*target = r.values[i].(bool)
		case *time.Time:
			*target = r.values[i].(time.Time)
		case **int64:
			if r.values[i] == nil {
				*target = nil
			} else {
				*target = r.values[i].(*int64)
			}
		case **time.Time:
			if r.values[i] == nil {
				*target = nil
			} else {
				*target = r.values[i].(*time.Time)
			}
		case *sql.NullString:
			switch v := r.values[i].(type) {
			case nil:
				*target = sql.NullString{}
			case string:
				*target = sql.NullString{String: v, Valid: true}
			default:
				return errors.New("unsupported null string value")
			}
		default:
			return errors.New("unsupported scan target")
		}
	}
	return nil
}

type stubRows struct {
	rows [][]any
	idx  int
	err  error
}

func (r *stubRows) Close()                                       {}
func (r *stubRows) Err() error                                   { return r.err }
func (r *stubRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *stubRows) FieldDescriptions() []pgconn.FieldDescription { return nil }

func (r *stubRows) Next() bool {
	r.idx++
	return r.idx <= len(r.rows)
}

func (r *stubRows) Scan(dest ...any) error {
	return stubRow{values: r.rows[r.idx-1]}.Scan(dest...)
}

func (r *stubRows) Values() ([]any, error) { return r.rows[r.idx-1], nil }
func (r *stubRows) RawValues() [][]byte    { return nil }
func (r *stubRows) Conn() *pgx.Conn        { return nil }

// stubTx satisfies pgx.Tx; queries dispatch to the configured functions so
// a test can route on SQL fragments.
type stubTx struct {
	queryRowFn func(query string, args []any) pgx.Row
	queryFn    func(query string, args []any) (pgx.Rows, error)
	execFn     func(query string, args []any) (pgconn.CommandTag, error)
	commitErr  error
	committed  bool
	rolledBack bool
}

func (t *stubTx) Begin(_ context.Context) (pgx.Tx, error) { return t, nil }

func (t *stubTx) Commit(_ context.Context) error {
	t.committed = true
	return t.commitErr
}

func (t *stubTx) Rollback(_ context.Context) error {
	t.rolledBack = true
	return nil
}

func (t *stubTx) CopyFrom(_ context.Context, _ pgx.Identifier, _ []string, _ pgx.CopyFromSource) (int64, error) {
	return 0, errors.New("not supported")
}

func (t *stubTx) SendBatch(_ context.Context, _ *pgx.Batch) pgx.BatchResults { return nil }
func (t *stubTx) LargeObjects() pgx.LargeObjects                             { return pgx.LargeObjects{} }

func (t *stubTx) Prepare(_ context.Context, _, _ string) (*pgconn.StatementDescription, error) {
	return nil, errors.New("not supported")
}

func (t *stubTx) Exec(_ context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	if t.execFn != nil {
		return t.execFn(query, args)
	}
	return pgconn.CommandTag{}, nil
}

func (t *stubTx) Query(_ context.Context, query string, args ...any) (pgx.Rows, error) {
	if t.queryFn != nil {
		return t.queryFn(query, args)
	}
	return &stubRows{}, nil
}

func (t *stubTx) QueryRow(_ context.Context, query string, args ...any) pgx.Row {
	if t.queryRowFn != nil {
		return t.queryRowFn(query, args)
	}
	return stubRow{err: errors.New("unexpected query")}
}

func (t *stubTx) Conn() *pgx.Conn { return nil }

// stubTransactor hands out one stubTx per Begin call, in order.
type stubTransactor struct {
	txs      []*stubTx
	beginErr error
	begins   int
}

func (d *stubTransactor) next() (pgx.Tx, error) {
	if d.beginErr != nil {
		return nil, d.beginErr
	}
	if d.begins >= len(d.txs) {
		return nil, errors.New("unexpected transaction")
	}
	tx := d.txs[d.begins]
	d.begins++
	return tx, nil
}

func (d *stubTransactor) Begin(_ context.Context) (pgx.Tx, error) { return d.next() }

func (d *stubTransactor) BeginTx(_ context.Context, _ pgx.TxOptions) (pgx.Tx, error) {
	return d.next()
}

// stubDBTX backs repositories running outside a transaction.
type stubDBTX struct {
	queryRowFn func(query string, args []any) pgx.Row
	queryFn    func(query string, args []any) (pgx.Rows, error)
	execFn     func(query string, args []any) (pgconn.CommandTag, error)
}

func (db *stubDBTX) Exec(_ context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	if db.execFn != nil {
		return db.execFn(query, args)
	}
	return pgconn.CommandTag{}, nil
}

func (db *stubDBTX) Query(_ context.Context, query string, args ...any) (pgx.Rows, error) {
	if db.queryFn != nil {
		return db.queryFn(query, args)
	}
	return &stubRows{}, nil
}

func (db *stubDBTX) QueryRow(_ context.Context, query string, args ...any) pgx.Row {
	if db.queryRowFn != nil {
		return db.queryRowFn(query, args)
	}
	return stubRow{err: errors.New("unexpected query")}
}
