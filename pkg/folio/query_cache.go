package folio

import (
	"time"

	"github.com/dgraph-io/ristretto"
)

// queryCache memoizes read-mostly report queries. Writes to the underlying
// tables must call invalidate.
type queryCache struct {
	c   *ristretto.Cache
	ttl time.Duration
}

func newQueryCache(maxCost int64, ttl time.Duration) (*queryCache, error) {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1e5,
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &queryCache{c: c, ttl: ttl}, nil
}

func (q *queryCache) getRateQuotes(key string) ([]RateQuote, bool) {
	v, ok := q.c.Get(key)
	if !ok {
		return nil, false
	}
	quotes, ok := v.([]RateQuote)
	if !ok {
		return nil, false
	}
	return append([]RateQuote(nil), quotes...), true
}

func (q *queryCache) setRateQuotes(key string, quotes []RateQuote) {
	q.c.SetWithTTL(key, append([]RateQuote(nil), quotes...), int64(len(quotes)+1), q.ttl)
	q.c.Wait()
}

func (q *queryCache) invalidate() {
	q.c.Clear()
}

func (q *queryCache) close() {
	q.c.Close()
}
