package relstore

import (
	"context"
	"fmt"
)

// Column is a column name paired with a value. It is used both for equality
// filters and for assignments.
type Column struct {
	Name  string
	Value any
}

// In restricts a query to rows whose column is one of Values. Values are
// compared as text.
type In struct {
	Column string
	Values []any
}

// Query describes the rows a statement applies to. Every filter is an
// equality test; they are combined with AND.
type Query struct {
	Table   string
	Filters []Column
	In      *In
}

// Where adds an equality filter.
func (q *Query) Where(column string, value any) *Query {
	q.Filters = append(q.Filters, Column{Name: column, Value: value})
	return q
}

// WhereIn restricts the query to rows whose column is in values.
func (q *Query) WhereIn(column string, values []any) *Query {
	q.In = &In{Column: column, Values: values}
	return q
}

// QueryHook customizes every query the store builds. insert is true for the
// query an INSERT is issued against; its filters are ignored by drivers.
type QueryHook func(q *Query, insert bool)

// Driver runs statements against a relational table.
type Driver interface {
	// Select returns the given columns, in order, for every matching row.
	Select(ctx context.Context, q Query, columns []string) ([][]any, error)

	// Insert adds one row per entry of rows. Each row holds a value for
	// every name in columns, in order.
	Insert(ctx context.Context, q Query, columns []string, rows [][]any) error

	// Update assigns set on every matching row.
	Update(ctx context.Context, q Query, set []Column) error

	// Delete removes every matching row.
	Delete(ctx context.Context, q Query) error
}

// Transactor is implemented by drivers that can run a group of statements
// atomically. The store runs its write delta through InTx when available.
type Transactor interface {
	InTx(ctx context.Context, fn func(Driver) error) error
}

// asString coerces a column value to the string a key is compared as.
func asString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []byte:
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}
