package frame

import "fmt"

// JoinHow selects which unmatched rows a join keeps.
type JoinHow int

const (
	// LeftJoin keeps every left row; unmatched right columns are null.
	LeftJoin JoinHow = iota
	// OuterJoin also appends right rows no left row matched. Their left key
	// columns take the right key values and other left columns are null.
	OuterJoin
)

// JoinOptions configures Join. RightOn defaults to On.
type JoinOptions struct {
	On      []string
	RightOn []string
	How     JoinHow
}

// Join combines t with other on equal key values. The output has every
// column of t followed by the non-key columns of other, in their orders.
// Left rows keep their order and each expands to its matches in right order.
// Null keys never match.
func (t *Table) Join(other *Table, opts JoinOptions) (*Table, error) {
	rightOn := opts.RightOn
	if len(rightOn) == 0 {
		rightOn = opts.On
	}
	if len(opts.On) == 0 || len(opts.On) != len(rightOn) {
		return nil, fmt.Errorf("join needs matching key lists, got %v and %v", opts.On, rightOn)
	}
	leftIdx, err := t.cols(opts.On)
	if err != nil {
		return nil, fmt.Errorf("left: %w", err)
	}
	rightIdx, err := other.cols(rightOn)
	if err != nil {
		return nil, fmt.Errorf("right: %w", err)
	}
	isRightKey := make(map[int]bool, len(rightIdx))
	for k := range leftIdx {
		lc, rc := t.columns[leftIdx[k]], other.columns[rightIdx[k]]
		if lc.Kind != rc.Kind {
			return nil, fmt.Errorf("%w: join key %s (%s) with %s (%s)", ErrTypeMismatch, lc.Name, lc.Kind, rc.Name, rc.Kind)
		}
		isRightKey[rightIdx[k]] = true
	}

	columns := t.Columns()
	var rightCols []int
	for i, c := range other.columns {
		if isRightKey[i] {
			continue
		}
		if t.Has(c.Name) {
			return nil, fmt.Errorf("%w: %s on both sides of join", ErrDuplicateColumn, c.Name)
		}
		columns = append(columns, c)
		rightCols = append(rightCols, i)
	}

	lookup := map[string][]int{}
	for r, row := range other.rows {
		if hasNull(row, rightIdx) {
			continue
		}
		key := rowKey(row, rightIdx)
		lookup[key] = append(lookup[key], r)
	}

	matched := make([]bool, len(other.rows))
	rows := make([][]any, 0, len(t.rows))
	width := len(columns)
	for _, row := range t.rows {
		var hits []int
		if !hasNull(row, leftIdx) {
			hits = lookup[rowKey(row, leftIdx)]
		}
		if len(hits) == 0 {
			out := make([]any, width)
			copy(out, row)
			rows = append(rows, out)
			continue
		}
		for _, h := range hits {
			matched[h] = true
			out := make([]any, width)
			copy(out, row)
			for k, i := range rightCols {
				out[len(t.columns)+k] = other.rows[h][i]
			}
			rows = append(rows, out)
		}
	}

	if opts.How == OuterJoin {
		for r, row := range other.rows {
			if matched[r] {
				continue
			}
			out := make([]any, width)
			for k, i := range leftIdx {
				out[i] = row[rightIdx[k]]
			}
			for k, i := range rightCols {
				out[len(t.columns)+k] = row[i]
			}
			rows = append(rows, out)
		}
	}
	return build(columns, rows)
}

func hasNull(row []any, idx []int) bool {
	for _, i := range idx {
		if row[i] == nil {
			return true
		}
	}
	return false
}
