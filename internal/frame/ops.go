package frame

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Project keeps only the named columns, in the given order.
func (t *Table) Project(names ...string) (*Table, error) {
	idx, err := t.cols(names)
	if err != nil {
		return nil, err
	}
	columns := make([]Column, len(idx))
	for k, i := range idx {
		columns[k] = t.columns[i]
	}
	rows := make([][]any, len(t.rows))
	for r, row := range t.rows {
		out := make([]any, len(idx))
		for k, i := range idx {
			out[k] = row[i]
		}
		rows[r] = out
	}
	return build(columns, rows)
}

// Drop removes the named columns. Every name must exist.
func (t *Table) Drop(names ...string) (*Table, error) {
	drop := make(map[string]bool, len(names))
	for _, name := range names {
		if _, err := t.col(name); err != nil {
			return nil, err
		}
		drop[name] = true
	}
	keep := make([]string, 0, len(t.columns))
	for _, c := range t.columns {
		if !drop[c.Name] {
			keep = append(keep, c.Name)
		}
	}
	return t.Project(keep...)
}

// Rename renames columns using an old->new mapping.
func (t *Table) Rename(mapping map[string]string) (*Table, error) {
	for old := range mapping {
		if _, err := t.col(old); err != nil {
			return nil, err
		}
	}
	columns := t.Columns()
	for i, c := range columns {
		if name, ok := mapping[c.Name]; ok {
			columns[i].Name = name
		}
	}
	return build(columns, t.rows)
}

// WithColumn computes a column from each row. An existing column with the
// same name is replaced in place, otherwise the column is appended.
func (t *Table) WithColumn(col Column, fn func(Row) (any, error)) (*Table, error) {
	pos, exists := t.index[col.Name]
	columns := t.Columns()
	if exists {
		columns[pos] = col
	} else {
		pos = len(columns)
		columns = append(columns, col)
	}
	rows := make([][]any, len(t.rows))
	for r, row := range t.rows {
		v, err := fn(Row{t: t, i: r})
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", col.Name, err)
		}
		cv, err := coerce(col, v)
		if err != nil {
			return nil, err
		}
		out := make([]any, len(columns))
		copy(out, row)
		out[pos] = cv
		rows[r] = out
	}
	return build(columns, rows)
}

// Filter keeps the rows for which keep returns true, preserving order.
func (t *Table) Filter(keep func(Row) (bool, error)) (*Table, error) {
	rows := make([][]any, 0, len(t.rows))
	for r, row := range t.rows {
		ok, err := keep(Row{t: t, i: r})
		if err != nil {
			return nil, err
		}
		if ok {
			rows = append(rows, row)
		}
	}
	return build(t.Columns(), rows)
}

// Equal keeps the rows whose column equals value.
func (t *Table) Equal(name string, value any) (*Table, error) {
	i, err := t.col(name)
	if err != nil {
		return nil, err
	}
	want, err := coerce(t.columns[i], value)
	if err != nil {
		return nil, err
	}
	return t.Filter(func(r Row) (bool, error) {
		return t.rows[r.i][i] == want, nil
	})
}

// Sort orders rows by the given columns ascending. The sort is stable and
// nulls sort last.
func (t *Table) Sort(keys ...string) (*Table, error) {
	idx, err := t.cols(keys)
	if err != nil {
		return nil, err
	}
	rows := append([][]any(nil), t.rows...)
	sort.SliceStable(rows, func(a, b int) bool {
		for _, i := range idx {
			if c := compare(rows[a][i], rows[b][i]); c != 0 {
				return c < 0
			}
		}
		return false
	})
	return build(t.Columns(), rows)
}

func compare(a, b any) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	switch x := a.(type) {
	case int64:
		y := b.(int64)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
	case float64:
		y := b.(float64)
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
	case string:
		return strings.Compare(x, b.(string))
	case time.Time:
		return x.Compare(b.(time.Time))
	}
	return 0
}

// FillNull replaces nulls in the named column with value.
func (t *Table) FillNull(name string, value any) (*Table, error) {
	i, err := t.col(name)
	if err != nil {
		return nil, err
	}
	fill, err := coerce(t.columns[i], value)
	if err != nil {
		return nil, err
	}
	rows := make([][]any, len(t.rows))
	for r, row := range t.rows {
		if row[i] != nil {
			rows[r] = row
			continue
		}
		out := append([]any(nil), row...)
		out[i] = fill
		rows[r] = out
	}
	return build(t.Columns(), rows)
}

// Concat appends the rows of other, which must have the same schema.
func (t *Table) Concat(other *Table) (*Table, error) {
	if len(other.columns) != len(t.columns) {
		return nil, fmt.Errorf("%w: concat %d columns with %d", ErrTypeMismatch, len(t.columns), len(other.columns))
	}
	for i, c := range t.columns {
		if other.columns[i] != c {
			return nil, fmt.Errorf("%w: concat column %s with %s", ErrTypeMismatch, c.Name, other.columns[i].Name)
		}
	}
	rows := make([][]any, 0, len(t.rows)+len(other.rows))
	rows = append(rows, t.rows...)
	rows = append(rows, other.rows...)
	return build(t.Columns(), rows)
}
