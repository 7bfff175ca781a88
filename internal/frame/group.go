package frame

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// AggFunc names a group aggregation.
type AggFunc int

const (
	// Sum adds the numeric values of a group.
	Sum AggFunc = iota + 1
	// First takes the first non-null value of a group.
	First
	// Last takes the last non-null value of a group.
	Last
)

// Agg aggregates Column into As (Column when As is empty).
type Agg struct {
	Column string
	Func   AggFunc
	As     string
}

func (a Agg) name() string {
	if a.As != "" {
		return a.As
	}
	return a.Column
}

// GroupBy groups rows by the key columns and aggregates the rest. Groups
// appear in the order their first row appears; output columns are the keys
// followed by the aggregates. Summing a null is an error.
func (t *Table) GroupBy(keys []string, aggs ...Agg) (*Table, error) {
	keyIdx, err := t.cols(keys)
	if err != nil {
		return nil, err
	}
	columns := make([]Column, 0, len(keys)+len(aggs))
	for _, i := range keyIdx {
		columns = append(columns, t.columns[i])
	}
	aggIdx := make([]int, len(aggs))
	for k, a := range aggs {
		i, err := t.col(a.Column)
		if err != nil {
			return nil, err
		}
		col := t.columns[i]
		if a.Func == Sum && col.Kind != Int && col.Kind != Float {
			return nil, fmt.Errorf("%w: cannot sum %s column %s", ErrTypeMismatch, col.Kind, col.Name)
		}
		aggIdx[k] = i
		columns = append(columns, Column{Name: a.name(), Kind: col.Kind})
	}

	groups := map[string]int{}
	var out [][]any
	for r, row := range t.rows {
		key := rowKey(row, keyIdx)
		g, ok := groups[key]
		if !ok {
			g = len(out)
			groups[key] = g
			acc := make([]any, len(columns))
			for k, i := range keyIdx {
				acc[k] = row[i]
			}
			for k, a := range aggs {
				if a.Func == Sum {
					acc[len(keyIdx)+k] = zeroOf(t.columns[aggIdx[k]].Kind)
				}
			}
			out = append(out, acc)
		}
		acc := out[g]
		for k, a := range aggs {
			pos := len(keyIdx) + k
			v := row[aggIdx[k]]
			switch a.Func {
			case Sum:
				if v == nil {
					return nil, fmt.Errorf("%w: sum %s row %d", ErrNullValue, a.Column, r)
				}
				acc[pos] = add(acc[pos], v)
			case First:
				if acc[pos] == nil {
					acc[pos] = v
				}
			case Last:
				if v != nil {
					acc[pos] = v
				}
			default:
				return nil, fmt.Errorf("unknown aggregation %d for %s", a.Func, a.Column)
			}
		}
	}
	if out == nil {
		out = [][]any{}
	}
	return build(columns, out)
}

func zeroOf(k Kind) any {
	if k == Int {
		return int64(0)
	}
	return 0.0
}

func add(a, b any) any {
	if x, ok := a.(int64); ok {
		return x + b.(int64)
	}
	return a.(float64) + b.(float64)
}

// rowKey encodes the key cells so that distinct tuples never collide.
func rowKey(row []any, idx []int) string {
	var b strings.Builder
	for _, i := range idx {
		switch v := row[i].(type) {
		case nil:
			b.WriteString("n;")
		case int64:
			b.WriteString("i")
			b.WriteString(strconv.FormatInt(v, 10))
			b.WriteByte(';')
		case float64:
			b.WriteString("f")
			b.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
			b.WriteByte(';')
		case string:
			b.WriteString("s")
			b.WriteString(strconv.Quote(v))
			b.WriteByte(';')
		case time.Time:
			b.WriteString("d")
			b.WriteString(v.UTC().Format(time.RFC3339Nano))
			b.WriteByte(';')
		}
	}
	return b.String()
}
