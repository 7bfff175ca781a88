package frame

import "fmt"

// Pivot reshapes long rows into one row per distinct index value and one
// column per distinct value of the String column named by columns. Rows and
// columns appear in first-seen order; missing cells are null. Two rows with
// the same index and column value are an error.
func (t *Table) Pivot(index, columns, values string) (*Table, error) {
	ii, err := t.col(index)
	if err != nil {
		return nil, err
	}
	ci, err := t.col(columns)
	if err != nil {
		return nil, err
	}
	vi, err := t.col(values)
	if err != nil {
		return nil, err
	}
	if t.columns[ci].Kind != String {
		return nil, fmt.Errorf("%w: pivot columns from %s column %s", ErrTypeMismatch, t.columns[ci].Kind, columns)
	}

	schema := []Column{t.columns[ii]}
	colPos := map[string]int{}
	rowPos := map[string]int{}
	var cells [][]any
	seen := map[string]bool{}
	for r, row := range t.rows {
		name, ok := row[ci].(string)
		if !ok {
			return nil, fmt.Errorf("%w: pivot column %s row %d", ErrNullValue, columns, r)
		}
		if _, ok := colPos[name]; !ok {
			colPos[name] = len(schema)
			schema = append(schema, Column{Name: name, Kind: t.columns[vi].Kind})
		}
		key := rowKey(row, []int{ii})
		if _, ok := rowPos[key]; !ok {
			rowPos[key] = len(cells)
			cells = append(cells, []any{row[ii]})
		}
		cell := key + rowKey(row, []int{ci})
		if seen[cell] {
			return nil, fmt.Errorf("%w: %v/%s appears twice", ErrDuplicateKey, row[ii], name)
		}
		seen[cell] = true
	}

	rows := make([][]any, len(cells))
	for r, head := range cells {
		out := make([]any, len(schema))
		out[0] = head[0]
		rows[r] = out
	}
	for _, row := range t.rows {
		r := rowPos[rowKey(row, []int{ii})]
		rows[r][colPos[row[ci].(string)]] = row[vi]
	}
	return build(schema, rows)
}
