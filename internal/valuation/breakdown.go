package valuation

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"folio/internal/frame"
)

// ParseSectorWeightings decodes a sector weight object such as
// {"consumer_defensive": 0.6, "technology": 0.4}. Underscores in sector
// names become dashes. An empty document has no sectors.
func ParseSectorWeightings(raw string) (map[string]float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "null" {
		return map[string]float64{}, nil
	}
	var weights map[string]float64
	if err := json.Unmarshal([]byte(raw), &weights); err != nil {
		return nil, fmt.Errorf("invalid sector weightings %q: %w", raw, err)
	}
	out := make(map[string]float64, len(weights))
	for name, w := range weights {
		out[strings.ReplaceAll(name, "_", "-")] += w
	}
	return out, nil
}

// ExpandBySector replaces the sector_weightings column with one Float column
// per sector found in any row, sorted by name. Sectors a row does not list
// get 0. The sector names are returned alongside the table. A sector named
// like a column of the breakdown pipeline is rejected.
func ExpandBySector(t *frame.Table) (*frame.Table, []string, error) {
	parsed := make([]map[string]float64, t.Len())
	seen := map[string]bool{}
	for _, row := range t.Rows() {
		null, err := row.IsNull(ColSectorWeightings)
		if err != nil {
			return nil, nil, err
		}
		raw := ""
		if !null {
			if raw, err = row.String(ColSectorWeightings); err != nil {
				return nil, nil, err
			}
		}
		weights, err := ParseSectorWeightings(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("row %d: %w", row.Index(), err)
		}
		parsed[row.Index()] = weights
		for name := range weights {
			seen[name] = true
		}
	}
	sectors := make([]string, 0, len(seen))
	for name := range seen {
		sectors = append(sectors, name)
	}
	sort.Strings(sectors)

	out, err := t.Drop(ColSectorWeightings)
	if err != nil {
		return nil, nil, err
	}
	for _, name := range sectors {
		if out.Has(name) || name == ColPercent || name == ColValue {
			return nil, nil, fmt.Errorf("%w: sector %s", frame.ErrDuplicateColumn, name)
		}
	}
	for _, name := range sectors {
		sector := name
		out, err = out.WithColumn(floatCol(sector), func(r frame.Row) (any, error) {
			return parsed[r.Index()][sector], nil
		})
		if err != nil {
			return nil, nil, err
		}
	}
	return out, sectors, nil
}

// PercentByMoniker replaces value with each row's share of the total value.
// A zero total gives every row 0.
func PercentByMoniker(t *frame.Table) (*frame.Table, error) {
	total, err := t.Sum(ColValue)
	if err != nil {
		return nil, err
	}
	out, err := t.WithColumn(floatCol(ColPercent), func(r frame.Row) (any, error) {
		v, err := r.Float(ColValue)
		if err != nil {
			return nil, err
		}
		return ratio(v, total), nil
	})
	if err != nil {
		return nil, err
	}
	return out.Drop(ColValue)
}

// StockTypeBreakdown sums percent per stock type, ordered by stock type.
func StockTypeBreakdown(t *frame.Table) (*frame.Table, error) {
	grouped, err := t.GroupBy([]string{ColStockType}, frame.Agg{Column: ColPercent, Func: frame.Sum})
	if err != nil {
		return nil, err
	}
	return grouped.Sort(ColStockType)
}

// SectorBreakdown weights each row's percent by its sector weights and sums
// per sector.
func SectorBreakdown(t *frame.Table, sectors []string) (*frame.Table, error) {
	rows := make([][]any, 0, len(sectors))
	for _, sector := range sectors {
		var total float64
		for _, row := range t.Rows() {
			p, err := row.Float(ColPercent)
			if err != nil {
				return nil, err
			}
			w, err := row.Float(sector)
			if err != nil {
				return nil, err
			}
			total += p * w
		}
		rows = append(rows, []any{sector, total})
	}
	return frame.New([]frame.Column{
		{Name: ColSector, Kind: frame.String},
		floatCol(ColPercent),
	}, rows...)
}
