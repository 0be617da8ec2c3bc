package search

import (
	"context"
	"encoding/binary"
	"math"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/sartorproj/paxarima/sarima"
	"github.com/sartorproj/paxarima/timeseries"
)

// Fitter fits one order to a series. Implementations must be safe for
// concurrent use.
type Fitter interface {
	Fit(ctx context.Context, s *timeseries.Series, order sarima.Order) (*sarima.Model, error)
}

// SARIMAFitter fits with the conditional-sum-of-squares estimator.
// Condition is passed to every model; use Bounds.Condition so the criteria
// of all candidates of a grid compare.
type SARIMAFitter struct {
	Condition int
}

// Fit implements Fitter.
func (f SARIMAFitter) Fit(ctx context.Context, s *timeseries.Series, order sarima.Order) (*sarima.Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	model := sarima.NewFromOrder(order)
	model.Condition = f.Condition
	if err := model.Fit(s); err != nil {
		return nil, err
	}
	return model, nil
}

// FitterFunc adapts a function to the Fitter interface.
type FitterFunc func(ctx context.Context, s *timeseries.Series, order sarima.Order) (*sarima.Model, error)

// Fit implements Fitter.
func (f FitterFunc) Fit(ctx context.Context, s *timeseries.Series, order sarima.Order) (*sarima.Model, error) {
	return f(ctx, s, order)
}

type cacheKey struct {
	fingerprint uint64
	order       sarima.Order
}

type cacheEntry struct {
	model *sarima.Model
	err   error
}

// CachingFitter memoizes fits by series content and order in a bounded LRU.
// A forecast of a search winner reuses the fit the search already paid for.
// Failed fits are cached too; cancellations are not.
type CachingFitter struct {
	next   Fitter
	cache  *lru.Cache[cacheKey, cacheEntry]
	hits   atomic.Uint64
	misses atomic.Uint64
}

// NewCachingFitter wraps next with an LRU of the given size.
func NewCachingFitter(next Fitter, size int) (*CachingFitter, error) {
	cache, err := lru.New[cacheKey, cacheEntry](size)
	if err != nil {
		return nil, err
	}
	return &CachingFitter{next: next, cache: cache}, nil
}

// Fit implements Fitter.
func (c *CachingFitter) Fit(ctx context.Context, s *timeseries.Series, order sarima.Order) (*sarima.Model, error) {
	key := cacheKey{fingerprint: Fingerprint(s), order: order}
	if e, ok := c.cache.Get(key); ok {
		c.hits.Add(1)
		return e.model, e.err
	}
	c.misses.Add(1)

	model, err := c.next.Fit(ctx, s, order)
	if ctx.Err() == nil {
		c.cache.Add(key, cacheEntry{model: model, err: err})
	}
	return model, err
}

// Stats returns the hit and miss counts.
func (c *CachingFitter) Stats() (hits, misses uint64) {
	return c.hits.Load(), c.misses.Load()
}

// Len returns the number of cached fits.
func (c *CachingFitter) Len() int {
	return c.cache.Len()
}

// Fingerprint hashes the timestamps and values of s.
func Fingerprint(s *timeseries.Series) uint64 {
	d := xxhash.New()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(len(s.Values)))
	_, _ = d.Write(buf[:])
	for _, ts := range s.Timestamps {
		binary.LittleEndian.PutUint64(buf[:], uint64(ts.Unix()))
		_, _ = d.Write(buf[:])
	}
	for _, v := range s.Values {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		_, _ = d.Write(buf[:])
	}
	return d.Sum64()
}
