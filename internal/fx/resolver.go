// Package fx resolves exchange rates and converts monetary table columns into
// a single target currency.
package fx

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// MonthLayout is the year-month bucket key format.
const MonthLayout = "2006-01"

// ErrMissingRate is matched by every *MissingRateError.
var ErrMissingRate = errors.New("missing exchange rate")

// MissingRateError reports that no rate existed at or before the reference date.
type MissingRateError struct {
	From string
	To   string
	On   time.Time
}

func (e *MissingRateError) Error() string {
	return fmt.Sprintf("no %s/%s exchange rate on or before %s", e.From, e.To, e.On.Format("2006-01-02"))
}

// Is makes errors.Is(err, ErrMissingRate) true.
func (e *MissingRateError) Is(target error) bool { return target == ErrMissingRate }

// Quote is one direct source->target rate observed on Date.
type Quote struct {
	From string
	Date time.Time
	Rate float64
}

// MonthKey addresses a month-bucketed rate.
type MonthKey struct {
	Currency string
	Month    string
}

// Resolver answers "latest rate at or before a date" lookups for one target
// currency. Quotes dated after the as-of date are ignored.
type Resolver struct {
	target string
	asOf   time.Time
	quotes map[string][]Quote
}

// NewResolver indexes quotes by source currency. Rates must be positive.
func NewResolver(target string, asOf time.Time, quotes []Quote) (*Resolver, error) {
	target = strings.ToUpper(strings.TrimSpace(target))
	if target == "" {
		return nil, errors.New("target currency is required")
	}
	r := &Resolver{target: target, asOf: day(asOf), quotes: map[string][]Quote{}}
	for _, q := range quotes {
		from := strings.ToUpper(strings.TrimSpace(q.From))
		if from == "" || from == target {
			continue
		}
		if !(q.Rate > 0) {
			return nil, fmt.Errorf("invalid %s/%s rate %v on %s", from, target, q.Rate, q.Date.Format("2006-01-02"))
		}
		if day(q.Date).After(r.asOf) {
			continue
		}
		q.From = from
		r.quotes[from] = append(r.quotes[from], q)
	}
	for from := range r.quotes {
		list := r.quotes[from]
		sort.SliceStable(list, func(a, b int) bool { return list[a].Date.Before(list[b].Date) })
	}
	return r, nil
}

// Target returns the target currency code.
func (r *Resolver) Target() string { return r.target }

// AsOf returns the reference date.
func (r *Resolver) AsOf() time.Time { return r.asOf }

// Rate returns the latest source->target rate dated at or before
// min(on, as-of). The target currency converts at 1.
func (r *Resolver) Rate(source string, on time.Time) (float64, error) {
	source = strings.ToUpper(strings.TrimSpace(source))
	if source == r.target {
		return 1, nil
	}
	ref := day(on)
	if ref.After(r.asOf) {
		ref = r.asOf
	}
	list := r.quotes[source]
	i := sort.Search(len(list), func(i int) bool { return day(list[i].Date).After(ref) })
	if i == 0 {
		return 0, &MissingRateError{From: source, To: r.target, On: ref}
	}
	return list[i-1].Rate, nil
}

// Rates resolves each source at the as-of date.
func (r *Resolver) Rates(sources []string) (map[string]float64, error) {
	out := make(map[string]float64, len(sources))
	for _, s := range sources {
		rate, err := r.Rate(s, r.asOf)
		if err != nil {
			return nil, err
		}
		out[s] = rate
	}
	return out, nil
}

// MonthlyRates resolves each (source, month) at the last day of the month,
// capped at the as-of date.
func (r *Resolver) MonthlyRates(keys []MonthKey) (map[MonthKey]float64, error) {
	out := make(map[MonthKey]float64, len(keys))
	for _, k := range keys {
		end, err := MonthEnd(k.Month)
		if err != nil {
			return nil, err
		}
		rate, err := r.Rate(k.Currency, end)
		if err != nil {
			return nil, err
		}
		out[k] = rate
	}
	return out, nil
}

// MonthEnd returns the last calendar day of a YYYY-MM month.
func MonthEnd(month string) (time.Time, error) {
	start, err := time.Parse(MonthLayout, month)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid month %q: %w", month, err)
	}
	return start.AddDate(0, 1, -1), nil
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
