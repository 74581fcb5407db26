// Package relstore implements a settings backend over a relational table
// holding one row per flattened setting path.
//
// Writes are computed as a delta against the rows already stored: surviving
// keys are updated, new keys inserted in one batch and vanished keys deleted
// in one batch. Rows are never truncated and re-inserted.
package relstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"settings-lite/internal/settings"
	"settings-lite/internal/tree"
)

// Defaults for the table layout created by the migrations package.
const (
	DefaultTable       = "settings"
	DefaultKeyColumn   = "key"
	DefaultValueColumn = "value"
)

// TimestampFormat selects how created and updated timestamps are written.
type TimestampFormat string

const (
	// DateTime writes a time.Time, for DATETIME and TIMESTAMP columns.
	DateTime TimestampFormat = "datetime"
	// Epoch writes whole seconds since the Unix epoch as an int64, for
	// INTEGER and BIGINT columns.
	Epoch TimestampFormat = "epoch"
)

// ParseTimestampFormat returns the format named by s. The empty string is
// DateTime.
func ParseTimestampFormat(s string) (TimestampFormat, error) {
	switch TimestampFormat(s) {
	case "", DateTime:
		return DateTime, nil
	case Epoch:
		return Epoch, nil
	default:
		return "", fmt.Errorf("%w: unknown timestamp format %q (want %s or %s)",
			settings.ErrConfiguration, s, DateTime, Epoch)
	}
}

// Store implements settings.Backend on a relational table.
type Store struct {
	driver        Driver
	table         string
	keyColumn     string
	valueColumn   string
	createdColumn string
	updatedColumn string
	extra         []Column
	hook          QueryHook
	now           func() time.Time
	stampFormat   TimestampFormat
}

// Option configures a Store.
type Option func(*Store)

// WithTable sets the table name.
func WithTable(table string) Option {
	return func(s *Store) { s.table = table }
}

// WithKeyColumn sets the column holding the dotted key.
func WithKeyColumn(column string) Option {
	return func(s *Store) { s.keyColumn = column }
}

// WithValueColumn sets the column holding the string-coerced value.
func WithValueColumn(column string) Option {
	return func(s *Store) { s.valueColumn = column }
}

// WithTimestamps sets the creation and update timestamp columns. Either may
// be empty to leave it unset.
func WithTimestamps(created, updated string) Option {
	return func(s *Store) {
		s.createdColumn = created
		s.updatedColumn = updated
	}
}

// WithTimestampFormat sets how timestamp columns are written. The default is
// DateTime.
func WithTimestampFormat(format TimestampFormat) Option {
	return func(s *Store) { s.stampFormat = format }
}

// WithExtraColumns sets static columns that are written into every inserted
// row and applied as equality filters on every other query. They partition
// one shared table, for example by tenant.
func WithExtraColumns(columns map[string]any) Option {
	return func(s *Store) {
		names := make([]string, 0, len(columns))
		for name := range columns {
			names = append(names, name)
		}
		sort.Strings(names)
		s.extra = s.extra[:0]
		for _, name := range names {
			s.extra = append(s.extra, Column{Name: name, Value: columns[name]})
		}
	}
}

// WithQueryHook installs a hook called on every query the store builds.
func WithQueryHook(hook QueryHook) Option {
	return func(s *Store) { s.hook = hook }
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New returns a relational backend using driver.
func New(driver Driver, opts ...Option) (*Store, error) {
	s := &Store{
		driver:      driver,
		table:       DefaultTable,
		keyColumn:   DefaultKeyColumn,
		valueColumn: DefaultValueColumn,
		now:         time.Now,
		stampFormat: DateTime,
	}
	for _, opt := range opts {
		opt(s)
	}
	if driver == nil {
		return nil, fmt.Errorf("%w: nil relational driver", settings.ErrConfiguration)
	}
	if s.table == "" || s.keyColumn == "" || s.valueColumn == "" {
		return nil, fmt.Errorf("%w: table, key column and value column are required", settings.ErrConfiguration)
	}
	if _, err := ParseTimestampFormat(string(s.stampFormat)); err != nil {
		return nil, err
	}
	if s.keyColumn == s.valueColumn {
		return nil, fmt.Errorf("%w: key and value columns must differ", settings.ErrConfiguration)
	}
	return s, nil
}

// Table returns the configured table name.
func (s *Store) Table() string { return s.table }

// PruneEmptyAncestors implements settings.Pruner: an absent row is an absent
// key, so an empty nested container cannot be stored.
func (s *Store) PruneEmptyAncestors() bool { return true }

func (s *Store) newQuery(insert bool) Query {
	q := Query{Table: s.table}
	if !insert {
		for _, c := range s.extra {
			q.Where(c.Name, c.Value)
		}
	}
	if s.hook != nil {
		s.hook(&q, insert)
	}
	return q
}

// Read selects every row in the partition and rebuilds the nested tree.
func (s *Store) Read(ctx context.Context) (*tree.Tree, error) {
	rows, err := s.driver.Select(ctx, s.newQuery(false), []string{s.keyColumn, s.valueColumn})
	if err != nil {
		return nil, fmt.Errorf("%w: selecting from %s: %w", settings.ErrRead, s.table, err)
	}

	entries := make([]tree.Entry, 0, len(rows))
	for _, row := range rows {
		if len(row) != 2 {
			return nil, fmt.Errorf("%w: expected 2 columns, got %d", settings.ErrRead, len(row))
		}
		v := tree.Null()
		if row[1] != nil {
			v = tree.String(asString(row[1]))
		}
		entries = append(entries, tree.Entry{Path: asString(row[0]), Value: v})
	}

	t, err := tree.Unflatten(entries)
	if err != nil {
		return nil, fmt.Errorf("%w: rows of %s do not form a tree: %w", settings.ErrRead, s.table, err)
	}
	return t, nil
}

// Write brings the table in line with data using the fewest statements:
// one UPDATE per surviving key, one batched INSERT and one batched DELETE.
func (s *Store) Write(ctx context.Context, data *tree.Tree) error {
	write := func(d Driver) error { return s.writeDelta(ctx, d, data) }
	if tx, ok := s.driver.(Transactor); ok {
		return tx.InTx(ctx, write)
	}
	return write(s.driver)
}

func (s *Store) writeDelta(ctx context.Context, d Driver, data *tree.Tree) error {
	insertData := tree.Flatten(data)
	pending := make(map[string]int, len(insertData))
	for i, e := range insertData {
		pending[e.Path] = i
	}

	existing, err := d.Select(ctx, s.newQuery(false), []string{s.keyColumn})
	if err != nil {
		return fmt.Errorf("%w: selecting keys from %s: %w", settings.ErrWrite, s.table, err)
	}

	updated := make(map[string]bool)
	var deleteKeys []any
	for _, row := range existing {
		if len(row) == 0 {
			continue
		}
		key := asString(row[0])
		if _, ok := pending[key]; ok {
			updated[key] = true
		} else {
			deleteKeys = append(deleteKeys, key)
		}
	}

	var updateData, inserts []tree.Entry
	for _, e := range insertData {
		if updated[e.Path] {
			updateData = append(updateData, e)
		} else {
			inserts = append(inserts, e)
		}
	}

	now := s.stamp(s.now())
	if len(inserts) > 0 {
		if err := s.insert(ctx, d, inserts, now); err != nil {
			return err
		}
	}
	for _, e := range updateData {
		if err := s.update(ctx, d, e, now); err != nil {
			return err
		}
	}
	if len(deleteKeys) > 0 {
		q := s.newQuery(false)
		q.WhereIn(s.keyColumn, deleteKeys)
		if err := d.Delete(ctx, q); err != nil {
			return fmt.Errorf("%w: deleting from %s: %w", settings.ErrWrite, s.table, err)
		}
	}
	return nil
}

func (s *Store) insert(ctx context.Context, d Driver, entries []tree.Entry, now any) error {
	columns := []string{s.keyColumn, s.valueColumn}
	for _, c := range s.extra {
		columns = append(columns, c.Name)
	}
	if s.createdColumn != "" {
		columns = append(columns, s.createdColumn)
	}
	if s.updatedColumn != "" {
		columns = append(columns, s.updatedColumn)
	}

	rows := make([][]any, 0, len(entries))
	for _, e := range entries {
		row := []any{e.Path, columnValue(e.Value)}
		for _, c := range s.extra {
			row = append(row, c.Value)
		}
		if s.createdColumn != "" {
			row = append(row, now)
		}
		if s.updatedColumn != "" {
			row = append(row, now)
		}
		rows = append(rows, row)
	}

	if err := d.Insert(ctx, s.newQuery(true), columns, rows); err != nil {
		return fmt.Errorf("%w: inserting into %s: %w", settings.ErrWrite, s.table, err)
	}
	return nil
}

func (s *Store) update(ctx context.Context, d Driver, e tree.Entry, now any) error {
	set := []Column{{Name: s.valueColumn, Value: columnValue(e.Value)}}
	if s.updatedColumn != "" {
		set = append(set, Column{Name: s.updatedColumn, Value: now})
	}
	q := s.newQuery(false)
	q.Where(s.keyColumn, e.Path)
	if err := d.Update(ctx, q, set); err != nil {
		return fmt.Errorf("%w: updating %q in %s: %w", settings.ErrWrite, e.Path, s.table, err)
	}
	return nil
}

// stamp converts t to what the timestamp columns store.
func (s *Store) stamp(t time.Time) any {
	if s.stampFormat == Epoch {
		return t.Unix()
	}
	return t
}

// columnValue coerces a leaf to what the value column stores. Null stays
// NULL; every other scalar is stored as its string form.
func columnValue(v tree.Value) any {
	if v.IsNull() {
		return nil
	}
	return v.String()
}

// Compile-time checks.
var (
	_ settings.Backend = (*Store)(nil)
	_ settings.Pruner  = (*Store)(nil)
)
