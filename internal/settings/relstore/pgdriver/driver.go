// Package pgdriver runs relstore queries against PostgreSQL through pgx.
package pgdriver

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"settings-lite/internal/settings/relstore"
)

// maxParams is the PostgreSQL limit on bind parameters per statement.
const maxParams = 65535

// Querier is the subset of pgxpool.Pool and pgx.Tx the driver needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Driver implements relstore.Driver on a pgx connection.
type Driver struct {
	db   Querier
	pool *pgxpool.Pool
}

// New returns a driver running statements on pool. Writes go through a
// transaction.
func New(pool *pgxpool.Pool) *Driver {
	return &Driver{db: pool, pool: pool}
}

// NewWithQuerier returns a driver on an arbitrary querier, such as an open
// transaction. It does not start transactions of its own.
func NewWithQuerier(db Querier) *Driver {
	return &Driver{db: db}
}

func (d *Driver) Select(ctx context.Context, q relstore.Query, columns []string) ([][]any, error) {
	sql, args := renderSelect(q, columns)
	rows, err := d.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out [][]any
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, err
		}
		out = append(out, vals)
	}
	return out, rows.Err()
}

func (d *Driver) Insert(ctx context.Context, q relstore.Query, columns []string, rows [][]any) error {
	if len(columns) == 0 || len(rows) == 0 {
		return nil
	}
	batch := maxParams / len(columns)
	for start := 0; start < len(rows); start += batch {
		end := min(start+batch, len(rows))
		sql, args, err := renderInsert(q, columns, rows[start:end])
		if err != nil {
			return err
		}
		if _, err := d.db.Exec(ctx, sql, args...); err != nil {
			return err
		}
	}
	return nil
}

func (d *Driver) Update(ctx context.Context, q relstore.Query, set []relstore.Column) error {
	sql, args := renderUpdate(q, set)
	_, err := d.db.Exec(ctx, sql, args...)
	return err
}

func (d *Driver) Delete(ctx context.Context, q relstore.Query) error {
	sql, args := renderDelete(q)
	_, err := d.db.Exec(ctx, sql, args...)
	return err
}

// InTx runs fn inside a transaction on the pool. Drivers built with
// NewWithQuerier run fn directly.
func (d *Driver) InTx(ctx context.Context, fn func(relstore.Driver) error) (err error) {
	if d.pool == nil {
		return fn(d)
	}
	tx, err := d.pool.Begin(ctx)
	if err != nil {
		return err
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		// Never use the caller ctx for cleanup as it may be cancelled.
		rbCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if rbErr := tx.Rollback(rbCtx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			err = errors.Join(err, fmt.Errorf("rollback failed: %w", rbErr))
		}
	}()

	if err = fn(NewWithQuerier(tx)); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return err
	}
	committed = true
	return nil
}

func quoteTable(table string) string {
	return pgx.Identifier(strings.Split(table, ".")).Sanitize()
}

func quote(column string) string {
	return pgx.Identifier{column}.Sanitize()
}

type params struct {
	args []any
}

func (p *params) add(v any) string {
	p.args = append(p.args, v)
	return "$" + strconv.Itoa(len(p.args))
}

func renderWhere(q relstore.Query, p *params) string {
	var conds []string
	for _, f := range q.Filters {
		if f.Value == nil {
			conds = append(conds, quote(f.Name)+" IS NULL")
			continue
		}
		conds = append(conds, quote(f.Name)+" = "+p.add(f.Value))
	}
	if q.In != nil {
		if len(q.In.Values) == 0 {
			conds = append(conds, "FALSE")
		} else {
			// one array parameter however many keys are deleted
			conds = append(conds, quote(q.In.Column)+" = ANY("+p.add(textArray(q.In.Values))+")")
		}
	}
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

// textArray converts In values to a text[] parameter.
func textArray(values []any) []string {
	out := make([]string, len(values))
	for i, v := range values {
		switch x := v.(type) {
		case string:
			out[i] = x
		case []byte:
			out[i] = string(x)
		default:
			out[i] = fmt.Sprint(x)
		}
	}
	return out
}

func renderSelect(q relstore.Query, columns []string) (string, []any) {
	cols := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = quote(c)
	}
	p := &params{}
	sql := "SELECT " + strings.Join(cols, ", ") + " FROM " + quoteTable(q.Table) + renderWhere(q, p)
	return sql, p.args
}

func renderInsert(q relstore.Query, columns []string, rows [][]any) (string, []any, error) {
	cols := make([]string, len(columns))
	for i, c := range columns {
		cols[i] = quote(c)
	}
	p := &params{}
	tuples := make([]string, len(rows))
	for i, row := range rows {
		if len(row) != len(columns) {
			return "", nil, fmt.Errorf("insert into %s: %d values for %d columns", q.Table, len(row), len(columns))
		}
		ph := make([]string, len(row))
		for j, v := range row {
			ph[j] = p.add(v)
		}
		tuples[i] = "(" + strings.Join(ph, ", ") + ")"
	}
	sql := "INSERT INTO " + quoteTable(q.Table) + " (" + strings.Join(cols, ", ") + ") VALUES " + strings.Join(tuples, ", ")
	return sql, p.args, nil
}

func renderUpdate(q relstore.Query, set []relstore.Column) (string, []any) {
	p := &params{}
	assigns := make([]string, len(set))
	for i, c := range set {
		assigns[i] = quote(c.Name) + " = " + p.add(c.Value)
	}
	sql := "UPDATE " + quoteTable(q.Table) + " SET " + strings.Join(assigns, ", ") + renderWhere(q, p)
	return sql, p.args
}

func renderDelete(q relstore.Query) (string, []any) {
	p := &params{}
	sql := "DELETE FROM " + quoteTable(q.Table) + renderWhere(q, p)
	return sql, p.args
}

// Compile-time checks.
var (
	_ relstore.Driver     = (*Driver)(nil)
	_ relstore.Transactor = (*Driver)(nil)
)
