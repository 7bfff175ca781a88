package frame

import "fmt"

// CumSum replaces a numeric column with its running total. With partition
// columns the total restarts for each distinct partition value, following
// row order inside the partition.
func (t *Table) CumSum(name string, partitionBy ...string) (*Table, error) {
	i, err := t.col(name)
	if err != nil {
		return nil, err
	}
	kind := t.columns[i].Kind
	if kind != Int && kind != Float {
		return nil, fmt.Errorf("%w: cannot cumulate %s column %s", ErrTypeMismatch, kind, name)
	}
	partIdx, err := t.cols(partitionBy)
	if err != nil {
		return nil, err
	}
	totals := map[string]any{}
	rows := make([][]any, len(t.rows))
	for r, row := range t.rows {
		if row[i] == nil {
			return nil, fmt.Errorf("%w: cumulate %s row %d", ErrNullValue, name, r)
		}
		key := rowKey(row, partIdx)
		total, ok := totals[key]
		if !ok {
			total = zeroOf(kind)
		}
		total = add(total, row[i])
		totals[key] = total
		out := append([]any(nil), row...)
		out[i] = total
		rows[r] = out
	}
	return build(t.Columns(), rows)
}

// Shift writes into out the value the named column had on the previous row
// of the same partition. The first row of every partition gets null.
func (t *Table) Shift(name, out string, partitionBy ...string) (*Table, error) {
	i, err := t.col(name)
	if err != nil {
		return nil, err
	}
	partIdx, err := t.cols(partitionBy)
	if err != nil {
		return nil, err
	}
	prev := map[string]any{}
	values := make([]any, len(t.rows))
	for r, row := range t.rows {
		key := rowKey(row, partIdx)
		values[r] = prev[key]
		prev[key] = row[i]
	}
	return t.WithColumn(Column{Name: out, Kind: t.columns[i].Kind}, func(r Row) (any, error) {
		return values[r.i], nil
	})
}

// FillForward replaces nulls in the named column with the last non-null
// value seen earlier in the same partition. Leading nulls stay null.
func (t *Table) FillForward(name string, partitionBy ...string) (*Table, error) {
	i, err := t.col(name)
	if err != nil {
		return nil, err
	}
	partIdx, err := t.cols(partitionBy)
	if err != nil {
		return nil, err
	}
	last := map[string]any{}
	rows := make([][]any, len(t.rows))
	for r, row := range t.rows {
		key := rowKey(row, partIdx)
		if row[i] != nil {
			last[key] = row[i]
			rows[r] = row
			continue
		}
		out := append([]any(nil), row...)
		out[i] = last[key]
		rows[r] = out
	}
	return build(t.Columns(), rows)
}
