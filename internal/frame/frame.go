// Package frame implements a small immutable, column-typed table used by the
// valuation pipeline. Every operation returns a new Table; the receiver is
// never modified.
package frame

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// Kind identifies the type of values stored in a column.
type Kind int

const (
	Int Kind = iota + 1
	Float
	String
	Date
)

func (k Kind) String() string {
	switch k {
	case Int:
		return "int"
	case Float:
		return "float"
	case String:
		return "string"
	case Date:
		return "date"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Column describes one named, typed column.
type Column struct {
	Name string
	Kind Kind
}

// Table errors. Use errors.Is to check for them.
var (
	ErrMissingColumn   = errors.New("missing column")
	ErrDuplicateColumn = errors.New("duplicate column")
	ErrDuplicateKey    = errors.New("duplicate key")
	ErrTypeMismatch    = errors.New("type mismatch")
	ErrNullValue       = errors.New("null value")
	ErrRowLength       = errors.New("row length does not match columns")
)

// Table is an ordered sequence of rows over a fixed column schema.
// A nil cell is a null.
type Table struct {
	columns []Column
	index   map[string]int
	rows    [][]any
}

// New builds a table, validating that each value matches its column kind.
// int values are accepted for Int and Float columns.
func New(columns []Column, rows ...[]any) (*Table, error) {
	index, err := buildIndex(columns)
	if err != nil {
		return nil, err
	}
	out := make([][]any, len(rows))
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, fmt.Errorf("row %d: %w: got %d values, want %d", i, ErrRowLength, len(row), len(columns))
		}
		copied := make([]any, len(row))
		for j, v := range row {
			cv, err := coerce(columns[j], v)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}
			copied[j] = cv
		}
		out[i] = copied
	}
	return &Table{columns: append([]Column(nil), columns...), index: index, rows: out}, nil
}

// Empty returns a table with the given columns and no rows.
func Empty(columns ...Column) (*Table, error) {
	return New(columns)
}

func buildIndex(columns []Column) (map[string]int, error) {
	index := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, ok := index[c.Name]; ok {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateColumn, c.Name)
		}
		index[c.Name] = i
	}
	return index, nil
}

// build assumes rows were already validated against columns.
func build(columns []Column, rows [][]any) (*Table, error) {
	index, err := buildIndex(columns)
	if err != nil {
		return nil, err
	}
	return &Table{columns: columns, index: index, rows: rows}, nil
}

func coerce(col Column, v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	switch col.Kind {
	case Int:
		switch x := v.(type) {
		case int64:
			return x, nil
		case int:
			return int64(x), nil
		case int32:
			return int64(x), nil
		}
	case Float:
		switch x := v.(type) {
		case float64:
			return x, nil
		case float32:
			return float64(x), nil
		case int:
			return float64(x), nil
		case int64:
			return float64(x), nil
		}
	case String:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case Date:
		if d, ok := v.(time.Time); ok {
			return d, nil
		}
	}
	return nil, fmt.Errorf("%w: column %s (%s) got %T", ErrTypeMismatch, col.Name, col.Kind, v)
}

// Len returns the number of rows.
func (t *Table) Len() int { return len(t.rows) }

// Columns returns a copy of the schema.
func (t *Table) Columns() []Column { return append([]Column(nil), t.columns...) }

// Names returns the column names in order.
func (t *Table) Names() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Has reports whether the table has a column with the given name.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Kind returns the kind of the named column.
func (t *Table) Kind(name string) (Kind, error) {
	i, err := t.col(name)
	if err != nil {
		return 0, err
	}
	return t.columns[i].Kind, nil
}

func (t *Table) col(name string) (int, error) {
	i, ok := t.index[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrMissingColumn, name)
	}
	return i, nil
}

func (t *Table) cols(names []string) ([]int, error) {
	idx := make([]int, len(names))
	for k, name := range names {
		i, err := t.col(name)
		if err != nil {
			return nil, err
		}
		idx[k] = i
	}
	return idx, nil
}

// Row returns a read-only view of row i.
func (t *Table) Row(i int) Row { return Row{t: t, i: i} }

// Rows returns read-only views of every row.
func (t *Table) Rows() []Row {
	rows := make([]Row, len(t.rows))
	for i := range t.rows {
		rows[i] = Row{t: t, i: i}
	}
	return rows
}

// Column returns a copy of the values of the named column.
func (t *Table) Column(name string) ([]any, error) {
	i, err := t.col(name)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(t.rows))
	for r, row := range t.rows {
		out[r] = row[i]
	}
	return out, nil
}

// Floats returns a numeric column as float64 values. Nulls are an error.
func (t *Table) Floats(name string) ([]float64, error) {
	out := make([]float64, len(t.rows))
	for r := range t.rows {
		f, err := t.Row(r).Float(name)
		if err != nil {
			return nil, err
		}
		out[r] = f
	}
	return out, nil
}

// Strings returns a string column. Nulls are an error.
func (t *Table) Strings(name string) ([]string, error) {
	out := make([]string, len(t.rows))
	for r := range t.rows {
		s, err := t.Row(r).String(name)
		if err != nil {
			return nil, err
		}
		out[r] = s
	}
	return out, nil
}

// Sum adds up a numeric column. An empty table sums to 0.
func (t *Table) Sum(name string) (float64, error) {
	values, err := t.Floats(name)
	if err != nil {
		return 0, err
	}
	var total float64
	for _, v := range values {
		total += v
	}
	return total, nil
}

// Row is a read-only view of a single table row.
type Row struct {
	t *Table
	i int
}

// Index returns the position of the row in its table.
func (r Row) Index() int { return r.i }

// Value returns the raw cell value, nil for null.
func (r Row) Value(name string) (any, error) {
	c, err := r.t.col(name)
	if err != nil {
		return nil, err
	}
	return r.t.rows[r.i][c], nil
}

// IsNull reports whether the cell is null.
func (r Row) IsNull(name string) (bool, error) {
	v, err := r.Value(name)
	if err != nil {
		return false, err
	}
	return v == nil, nil
}

// Float returns a numeric cell as float64.
func (r Row) Float(name string) (float64, error) {
	v, err := r.Value(name)
	if err != nil {
		return 0, err
	}
	switch x := v.(type) {
	case nil:
		return 0, fmt.Errorf("%w: %s row %d", ErrNullValue, name, r.i)
	case float64:
		return x, nil
	case int64:
		return float64(x), nil
	}
	return 0, fmt.Errorf("%w: %s is %T, not numeric", ErrTypeMismatch, name, v)
}

// Int returns an Int cell.
func (r Row) Int(name string) (int64, error) {
	v, err := r.Value(name)
	if err != nil {
		return 0, err
	}
	switch x := v.(type) {
	case nil:
		return 0, fmt.Errorf("%w: %s row %d", ErrNullValue, name, r.i)
	case int64:
		return x, nil
	}
	return 0, fmt.Errorf("%w: %s is %T, not int", ErrTypeMismatch, name, v)
}

// String returns a String cell.
func (r Row) String(name string) (string, error) {
	v, err := r.Value(name)
	if err != nil {
		return "", err
	}
	switch x := v.(type) {
	case nil:
		return "", fmt.Errorf("%w: %s row %d", ErrNullValue, name, r.i)
	case string:
		return x, nil
	}
	return "", fmt.Errorf("%w: %s is %T, not string", ErrTypeMismatch, name, v)
}

// Date returns a Date cell.
func (r Row) Date(name string) (time.Time, error) {
	v, err := r.Value(name)
	if err != nil {
		return time.Time{}, err
	}
	switch x := v.(type) {
	case nil:
		return time.Time{}, fmt.Errorf("%w: %s row %d", ErrNullValue, name, r.i)
	case time.Time:
		return x, nil
	}
	return time.Time{}, fmt.Errorf("%w: %s is %T, not date", ErrTypeMismatch, name, v)
}

// finite maps NaN and infinities to nil so they serialize as null.
func finite(v any) any {
	if f, ok := v.(float64); ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
		return nil
	}
	return v
}
