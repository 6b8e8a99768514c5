// Package timeseries reconstructs dense daily valuation series from sparse asset history
package timeseries

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/simaogato/assetflow-backend/internal/domain"
	"github.com/simaogato/assetflow-backend/internal/logging"
)

// DefaultCacheTTL bounds how long a reconstruction is served from memory
const DefaultCacheTTL = 5 * time.Minute

type cacheEntry struct {
	rows     []Row
	assetIDs map[string]struct{}
	expires  time.Time
}

// Engine reconstructs series and memoizes the result per asset set and filter.
// Mutations must call Invalidate for the assets they touched.
type Engine struct {
	logger *logging.Logger
	now    func() time.Time
	ttl    time.Duration

	mu    sync.Mutex
	cache map[string]*cacheEntry
}

// Option configures an Engine
type Option func(*Engine)

// WithClock overrides the wall clock, mainly for tests
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// WithCacheTTL sets the freshness window; zero disables caching
func WithCacheTTL(ttl time.Duration) Option {
	return func(e *Engine) {
		e.ttl = ttl
	}
}

// NewEngine creates a new Engine instance
func NewEngine(logger *logging.Logger, opts ...Option) *Engine {
	e := &Engine{
		logger: logger,
		now:    time.Now,
		ttl:    DefaultCacheTTL,
		cache:  make(map[string]*cacheEntry),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Today returns the current calendar day
func (e *Engine) Today() time.Time {
	return domain.Today(e.now())
}

// Reconstruct returns the dense daily rows of every asset matching filter
// (all assets when filter is empty) over the filter's window.
func (e *Engine) Reconstruct(assets []*domain.Asset, filter domain.AssetType) []Row {
	selected := domain.FilterByType(assets, filter)
	if len(selected) == 0 {
		return nil
	}

	today := e.Today()
	key := cacheKey(selected, filter, today)

	if rows, ok := e.lookup(key); ok {
		e.logger.Debug().Str("filter", string(filter)).Int("assets", len(selected)).Msg("series cache hit")
		return rows
	}

	rows := Resample(selected, WindowFor(filter, today), today)
	e.logger.Debug().Str("filter", string(filter)).Int("assets", len(selected)).Int("rows", len(rows)).
		Msg("series reconstructed")
	e.store(key, selected, rows)
	return append([]Row(nil), rows...)
}

// AssetSeries returns the dense series of one asset over its type's window
func (e *Engine) AssetSeries(a *domain.Asset) []Row {
	return e.Reconstruct([]*domain.Asset{a}, a.Type())
}

// Invalidate drops every memoized reconstruction involving one of the given assets
func (e *Engine) Invalidate(ids ...string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for key, entry := range e.cache {
		for _, id := range ids {
			if _, ok := entry.assetIDs[id]; ok {
				delete(e.cache, key)
				break
			}
		}
	}
}

// InvalidateAll empties the cache
func (e *Engine) InvalidateAll() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cache = make(map[string]*cacheEntry)
}

func (e *Engine) lookup(key string) ([]Row, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	entry, ok := e.cache[key]
	if !ok {
		return nil, false
	}
	if !e.now().Before(entry.expires) {
		delete(e.cache, key)
		return nil, false
	}
	return append([]Row(nil), entry.rows...), true
}

func (e *Engine) store(key string, assets []*domain.Asset, rows []Row) {
	if e.ttl <= 0 {
		return
	}
	ids := make(map[string]struct{}, len(assets))
	for _, a := range assets {
		ids[a.ID] = struct{}{}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.cache[key] = &cacheEntry{rows: rows, assetIDs: ids, expires: e.now().Add(e.ttl)}
}

// cacheKey identifies a reconstruction by filter, day and the (id, current value) pairs
func cacheKey(assets []*domain.Asset, filter domain.AssetType, today time.Time) string {
	parts := make([]string, 0, len(assets))
	for _, a := range assets {
		parts = append(parts, fmt.Sprintf("%s:%s", a.ID, a.CurrentValue.String()))
	}
	sort.Strings(parts)
	return string(filter) + "|" + domain.FormatDate(today) + "|" + strings.Join(parts, ",")
}
