package relstore

import (
	"context"
	"fmt"
	"sync"
)

// Call is one statement recorded by MemDriver.
type Call struct {
	Op      string // select, insert, update or delete
	Query   Query
	Columns []string
	Rows    [][]any
	Set     []Column
}

// MemDriver is an in-process Driver keeping rows in memory. It records every
// statement so tests can assert on the exact delta a write produced.
type MemDriver struct {
	mu     sync.Mutex
	tables map[string][]map[string]any
	calls  []Call
}

// NewMemDriver returns an empty MemDriver.
func NewMemDriver() *MemDriver {
	return &MemDriver{tables: make(map[string][]map[string]any)}
}

// Calls returns the statements issued so far.
func (d *MemDriver) Calls() []Call {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Call, len(d.calls))
	copy(out, d.calls)
	return out
}

// CallsOf returns the recorded statements with the given op.
func (d *MemDriver) CallsOf(op string) []Call {
	var out []Call
	for _, c := range d.Calls() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// Reset forgets the recorded statements but keeps the rows.
func (d *MemDriver) Reset() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = nil
}

// Rows returns a copy of every row stored in table.
func (d *MemDriver) Rows(table string) []map[string]any {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]map[string]any, 0, len(d.tables[table]))
	for _, row := range d.tables[table] {
		out = append(out, copyRow(row))
	}
	return out
}

func (d *MemDriver) Select(ctx context.Context, q Query, columns []string) ([][]any, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, Call{Op: "select", Query: q, Columns: columns})

	var out [][]any
	for _, row := range d.tables[q.Table] {
		if !matches(row, q) {
			continue
		}
		vals := make([]any, len(columns))
		for i, c := range columns {
			vals[i] = row[c]
		}
		out = append(out, vals)
	}
	return out, nil
}

func (d *MemDriver) Insert(ctx context.Context, q Query, columns []string, rows [][]any) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, Call{Op: "insert", Query: q, Columns: columns, Rows: rows})

	for _, vals := range rows {
		if len(vals) != len(columns) {
			return fmt.Errorf("insert into %s: %d values for %d columns", q.Table, len(vals), len(columns))
		}
		row := make(map[string]any, len(columns))
		for i, c := range columns {
			row[c] = vals[i]
		}
		d.tables[q.Table] = append(d.tables[q.Table], row)
	}
	return nil
}

func (d *MemDriver) Update(ctx context.Context, q Query, set []Column) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, Call{Op: "update", Query: q, Set: set})

	for _, row := range d.tables[q.Table] {
		if !matches(row, q) {
			continue
		}
		for _, c := range set {
			row[c.Name] = c.Value
		}
	}
	return nil
}

func (d *MemDriver) Delete(ctx context.Context, q Query) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, Call{Op: "delete", Query: q})

	kept := d.tables[q.Table][:0]
	for _, row := range d.tables[q.Table] {
		if !matches(row, q) {
			kept = append(kept, row)
		}
	}
	d.tables[q.Table] = kept
	return nil
}

// matches compares values by their string form, the way a text column
// compares against a bound parameter.
func matches(row map[string]any, q Query) bool {
	for _, f := range q.Filters {
		v, ok := row[f.Name]
		if !ok || asString(v) != asString(f.Value) {
			return false
		}
	}
	if q.In != nil {
		v, ok := row[q.In.Column]
		if !ok {
			return false
		}
		found := false
		for _, want := range q.In.Values {
			if asString(v) == asString(want) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func copyRow(row map[string]any) map[string]any {
	out := make(map[string]any, len(row))
	for k, v := range row {
		out[k] = v
	}
	return out
}

var _ Driver = (*MemDriver)(nil)
