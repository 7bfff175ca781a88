package frame

import (
	"bytes"
	"encoding/json"
	"time"
)

// DateLayout is the calendar-date format used when serializing Date cells.
const DateLayout = "2006-01-02"

// Records returns the rows as column-name keyed maps. Dates become
// YYYY-MM-DD strings and non-finite floats become nil.
func (t *Table) Records() []map[string]any {
	out := make([]map[string]any, len(t.rows))
	for r, row := range t.rows {
		rec := make(map[string]any, len(t.columns))
		for i, c := range t.columns {
			rec[c.Name] = cell(row[i])
		}
		out[r] = rec
	}
	return out
}

func cell(v any) any {
	if d, ok := v.(time.Time); ok {
		return d.Format(DateLayout)
	}
	return finite(v)
}

// MarshalJSON writes the table as a records-oriented array, keeping column
// order inside each object.
func (t *Table) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for r, row := range t.rows {
		if r > 0 {
			buf.WriteByte(',')
		}
		buf.WriteByte('{')
		for i, c := range t.columns {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(c.Name)
			if err != nil {
				return nil, err
			}
			val, err := json.Marshal(cell(row[i]))
			if err != nil {
				return nil, err
			}
			buf.Write(key)
			buf.WriteByte(':')
			buf.Write(val)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}
