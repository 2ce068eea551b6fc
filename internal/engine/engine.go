// Package engine owns the active dataset snapshot and answers station queries against it.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mohammed-shakir/seattle-ev-map/internal/cache/keys"
	"github.com/mohammed-shakir/seattle-ev-map/internal/core/model"
	"github.com/mohammed-shakir/seattle-ev-map/internal/core/observability"
	"github.com/mohammed-shakir/seattle-ev-map/internal/dataset"
	"github.com/mohammed-shakir/seattle-ev-map/internal/filter"
	"github.com/mohammed-shakir/seattle-ev-map/internal/geo"
	"github.com/mohammed-shakir/seattle-ev-map/internal/mapper"
	"github.com/mohammed-shakir/seattle-ev-map/internal/search"
	"github.com/mohammed-shakir/seattle-ev-map/internal/source"
)

var (
	ErrGeometryUnavailable = errors.New("geometry capability unavailable")
	ErrInvalidInput        = errors.New("invalid input")
	ErrUpstream            = errors.New("upstream dataset unavailable")
	ErrNotLoaded           = errors.New("dataset not loaded")
)

type Options struct {
	Stations      source.Fetcher
	Neighborhoods source.Fetcher
	Geometry      geo.Geometry
	// Cells assigns and aggregates H3 cells; nil disables clustering.
	Cells           mapper.Interface
	ClusterRes      int
	SearchCacheSize int
	FetchTimeout    time.Duration
	Logger          *slog.Logger
}

type snapshot struct {
	store *dataset.Store
	index *search.Index
}

type Engine struct {
	opts    Options
	log     *slog.Logger
	snap    atomic.Pointer[snapshot]
	memo    *lru.Cache[string, []model.SearchResult]
	version atomic.Uint64
	// serializes reloads, readers never take it
	reloadMu sync.Mutex
}

func New(opts Options) (*Engine, error) {
	if opts.Stations == nil || opts.Neighborhoods == nil {
		return nil, errors.New("engine: both dataset sources are required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.SearchCacheSize <= 0 {
		opts.SearchCacheSize = 512
	}
	memo, err := lru.New[string, []model.SearchResult](opts.SearchCacheSize)
	if err != nil {
		return nil, fmt.Errorf("search memo: %w", err)
	}
	return &Engine{
		opts: opts,
		log:  opts.Logger.With("component", "engine"),
		memo: memo,
	}, nil
}

// Reload fetches both datasets, builds a new store and swaps it in. On any
// error the previous snapshot stays active.
func (e *Engine) Reload(ctx context.Context) error {
	e.reloadMu.Lock()
	defer e.reloadMu.Unlock()

	if e.opts.FetchTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.FetchTimeout)
		defer cancel()
	}

	start := time.Now()
	stationsRaw, hoodsRaw, err := source.FetchBoth(ctx, e.opts.Stations, e.opts.Neighborhoods)
	if err != nil {
		observability.IncReload(err)
		return fmt.Errorf("%w: %w", ErrUpstream, err)
	}

	version := e.version.Load() + 1
	opts := dataset.Options{
		Geometry: e.opts.Geometry,
		Logger:   e.log,
		Version:  version,
		CellRes:  e.opts.ClusterRes,
	}
	if e.opts.Cells != nil {
		opts.Cells = e.opts.Cells
	}
	store, err := dataset.Load(stationsRaw, hoodsRaw, opts)
	if err != nil {
		observability.IncReload(err)
		return fmt.Errorf("load dataset: %w", err)
	}

	e.snap.Store(&snapshot{store: store, index: search.NewIndex(store.Stations())})
	e.version.Store(version)
	e.memo.Purge()

	st := store.Stats()
	observability.IncReload(nil)
	observability.SetDataset(version, st.Stations, st.Neighborhoods, st.Unmatched)
	e.log.Info("dataset snapshot active",
		"version", version,
		"stations", st.Stations,
		"neighborhoods", st.Neighborhoods,
		"degraded", st.Degraded,
		"took", time.Since(start).String())
	return nil
}

func (e *Engine) current() (*snapshot, error) {
	s := e.snap.Load()
	if s == nil {
		return nil, ErrNotLoaded
	}
	return s, nil
}

// Readiness reports whether a snapshot is active.
func (e *Engine) Readiness() (bool, []int32) {
	return e.snap.Load() != nil, nil
}

// Store returns the active store, or nil before the first load.
func (e *Engine) Store() *dataset.Store {
	if s := e.snap.Load(); s != nil {
		return s.store
	}
	return nil
}

// Filter evaluates c against the active stations. With clip set only
// stations inside some neighborhood are considered, unless the store was
// loaded without geometry, where nothing is enriched and clipping is skipped.
func (e *Engine) Filter(c model.FilterCriteria, clip bool) (filter.Result, error) {
	s, err := e.current()
	if err != nil {
		return filter.Result{}, err
	}
	base := s.store.Stations()
	if clip && !s.store.Stats().Degraded {
		base = s.store.Within()
	}
	res := filter.Evaluate(base, s.store.Neighborhoods(), c, e.opts.Geometry)
	observability.ObserveQuery("filter", string(res.Status), len(res.Stations))
	return res, nil
}

// SearchText runs a memoized text search. Callers own the returned slice.
func (e *Engine) SearchText(query string) ([]model.SearchResult, model.Status, error) {
	s, err := e.current()
	if err != nil {
		return nil, "", err
	}
	q := search.NormalizeQuery(query)
	if q == "" {
		observability.ObserveQuery("text", string(model.StatusNoResults), 0)
		return nil, model.StatusNoResults, nil
	}

	key := keys.Search(s.store.Version(), q)
	res, ok := e.memo.Get(key)
	if !ok {
		res = search.Text(q, s.store.Stations(), s.store.Neighborhoods())
		e.memo.Add(key, res)
	}
	status := model.StatusFor(len(res))
	observability.ObserveQuery("text", string(status), len(res))
	return slices.Clone(res), status, nil
}

// SearchRadius finds stations within miles of origin over the full station set.
func (e *Engine) SearchRadius(origin model.Coordinate, miles float64) (search.RadiusResult, error) {
	s, err := e.current()
	if err != nil {
		return search.RadiusResult{}, err
	}
	res, err := s.index.Radius(origin, miles, e.opts.Geometry)
	switch {
	case errors.Is(err, search.ErrGeometryUnavailable):
		observability.ObserveQuery("radius", "error", 0)
		return search.RadiusResult{}, fmt.Errorf("%w: %w", ErrGeometryUnavailable, err)
	case err != nil:
		observability.ObserveQuery("radius", "invalid", 0)
		return search.RadiusResult{}, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	observability.ObserveQuery("radius", string(res.Status), len(res.Stations))
	return res, nil
}

// Clusters aggregates the stations matching c into H3 cells at res.
func (e *Engine) Clusters(c model.FilterCriteria, res int, clip bool) ([]model.Cluster, error) {
	if e.opts.Cells == nil {
		return nil, fmt.Errorf("%w: clustering disabled", ErrGeometryUnavailable)
	}
	r, err := e.Filter(c, clip)
	if err != nil {
		return nil, err
	}
	out, err := e.opts.Cells.Cluster(r.Stations, res)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	observability.ObserveQuery("clusters", string(model.StatusFor(len(out))), len(out))
	return out, nil
}

func (e *Engine) NeighborhoodNames() ([]string, error) {
	s, err := e.current()
	if err != nil {
		return nil, err
	}
	return s.store.NeighborhoodNames(), nil
}

func (e *Engine) Version() uint64 { return e.version.Load() }
