// Package router implements the HTTP handlers of the station query API.
package router

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/mohammed-shakir/seattle-ev-map/internal/core/config"
	"github.com/mohammed-shakir/seattle-ev-map/internal/core/model"
	"github.com/mohammed-shakir/seattle-ev-map/internal/engine"
	"github.com/mohammed-shakir/seattle-ev-map/internal/filter"
	"github.com/mohammed-shakir/seattle-ev-map/internal/locate"
	mylog "github.com/mohammed-shakir/seattle-ev-map/internal/logger"
	"github.com/mohammed-shakir/seattle-ev-map/internal/search"
	"github.com/mohammed-shakir/seattle-ev-map/internal/view"
)

// Engine is the query surface the handlers need; *engine.Engine satisfies it.
type Engine interface {
	Filter(c model.FilterCriteria, clip bool) (filter.Result, error)
	SearchText(query string) ([]model.SearchResult, model.Status, error)
	SearchRadius(origin model.Coordinate, miles float64) (search.RadiusResult, error)
	Clusters(c model.FilterCriteria, res int, clip bool) ([]model.Cluster, error)
	NeighborhoodNames() ([]string, error)
	Version() uint64
}

type Handlers struct {
	logger  *slog.Logger
	cfg     config.Config
	engine  Engine
	locator locate.Locator
}

// New wires handlers. locator may be nil, in which case /nearby requires lon and lat.
func New(logger *slog.Logger, cfg config.Config, e Engine, locator locate.Locator) *Handlers {
	return &Handlers{logger: logger, cfg: cfg, engine: e, locator: locator}
}

type stationsResponse struct {
	Status   model.Status      `json:"status"`
	Count    int               `json:"count"`
	Stations []model.Station   `json:"stations"`
	Centroid *model.Coordinate `json:"centroid,omitempty"`
	View     []view.Command    `json:"view"`
}

type searchResponse struct {
	Status  model.Status         `json:"status"`
	Results []model.SearchResult `json:"results"`
	View    []view.Command       `json:"view"`
}

type nearbyResponse struct {
	Status       model.Status     `json:"status"`
	Origin       model.Coordinate `json:"origin"`
	OriginSource string           `json:"origin_source"`
	RadiusMiles  float64          `json:"radius_miles"`
	BBox         model.BBox       `json:"bbox"`
	Stations     []model.Station  `json:"stations"`
	View         []view.Command   `json:"view"`
}

type clustersResponse struct {
	Status   model.Status    `json:"status"`
	Res      int             `json:"res"`
	Clusters []model.Cluster `json:"clusters"`
}

func (h *Handlers) ctx(r *http.Request, mode string) context.Context {
	ctx := mylog.WithQueryMode(r.Context(), mode)
	return mylog.WithDatasetVersion(ctx, h.engine.Version())
}

// Stations serves the conjunctive dropdown filter.
func (h *Handlers) Stations(w http.ResponseWriter, r *http.Request) {
	ctx := h.ctx(r, "filter")
	q := r.URL.Query()
	c, err := ParseFilter(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	clip, err := ParseClip(q, h.cfg.ClipToNeighborhoods)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.engine.Filter(c, clip)
	if err != nil {
		h.fail(ctx, w, err)
		return
	}

	rec := &view.Recorder{}
	p := view.NewPresenter(rec)
	if c.IsEmpty() {
		p.Reset(res.Stations)
	} else {
		p.Filter(res)
	}
	h.logger.LogAttrs(ctx, slog.LevelDebug, "filter served",
		slog.Int("matched", len(res.Stations)), slog.Bool("clip", clip))
	writeJSON(w, http.StatusOK, stationsResponse{
		Status:   res.Status,
		Count:    len(res.Stations),
		Stations: nonNil(res.Stations),
		Centroid: res.Centroid,
		View:     rec.Commands(),
	})
}

// Search serves free-text search.
func (h *Handlers) Search(w http.ResponseWriter, r *http.Request) {
	ctx := h.ctx(r, "text")
	query, err := ParseSearchQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	results, status, err := h.engine.SearchText(query)
	if err != nil {
		h.fail(ctx, w, err)
		return
	}

	rec := &view.Recorder{}
	view.NewPresenter(rec).Search(results)
	if results == nil {
		results = []model.SearchResult{}
	}
	writeJSON(w, http.StatusOK, searchResponse{Status: status, Results: results, View: rec.Commands()})
}

// Nearby serves proximity search. Without lon/lat the origin comes from the client IP.
func (h *Handlers) Nearby(w http.ResponseWriter, r *http.Request) {
	ctx := h.ctx(r, "radius")
	q := r.URL.Query()
	miles, err := ParseRadius(q, h.cfg.DefaultRadiusMiles)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	origin, err := ParseOrigin(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	src := "query"
	if origin == nil {
		if h.locator == nil {
			writeError(w, http.StatusBadRequest, "lon and lat are required: geolocation is not configured")
			return
		}
		c, err := h.locator.Locate(ctx, locate.ClientIP(r))
		if err != nil {
			h.fail(ctx, w, err)
			return
		}
		origin, src = &c, "geolocation"
	}

	res, err := h.engine.SearchRadius(*origin, miles)
	if err != nil {
		h.fail(ctx, w, err)
		return
	}

	rec := &view.Recorder{}
	view.NewPresenter(rec).Nearby(res)
	writeJSON(w, http.StatusOK, nearbyResponse{
		Status:       res.Status,
		Origin:       res.Origin,
		OriginSource: src,
		RadiusMiles:  res.Miles,
		BBox:         res.BBox,
		Stations:     nonNil(res.Stations),
		View:         rec.Commands(),
	})
}

func (h *Handlers) Neighborhoods(w http.ResponseWriter, r *http.Request) {
	names, err := h.engine.NeighborhoodNames()
	if err != nil {
		h.fail(r.Context(), w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"neighborhoods": names})
}

// Clusters aggregates the filtered station set into H3 cells.
func (h *Handlers) Clusters(w http.ResponseWriter, r *http.Request) {
	ctx := h.ctx(r, "cluster")
	q := r.URL.Query()
	res, err := ParseRes(q, h.cfg.ClusterRes)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	c, err := ParseFilter(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	clip, err := ParseClip(q, h.cfg.ClipToNeighborhoods)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	clusters, err := h.engine.Clusters(c, res, clip)
	if err != nil {
		h.fail(ctx, w, err)
		return
	}
	if clusters == nil {
		clusters = []model.Cluster{}
	}
	writeJSON(w, http.StatusOK, clustersResponse{Status: model.StatusFor(len(clusters)), Res: res, Clusters: clusters})
}

// fail maps the error taxonomy onto status codes.
func (h *Handlers) fail(ctx context.Context, w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	msg := "internal error"
	switch {
	case errors.Is(err, engine.ErrInvalidInput):
		code, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, engine.ErrGeometryUnavailable):
		code, msg = http.StatusServiceUnavailable, "distance and containment queries are unavailable right now"
	case errors.Is(err, engine.ErrNotLoaded):
		code, msg = http.StatusServiceUnavailable, "station data is still loading, try again shortly"
	case errors.Is(err, locate.ErrTimeout):
		code, msg = http.StatusGatewayTimeout, "locating you took too long; pass lon and lat instead"
	case errors.Is(err, locate.ErrNoLocation):
		code, msg = http.StatusUnprocessableEntity, "could not determine your location; pass lon and lat instead"
	case errors.Is(err, context.Canceled):
		// client went away
		code, msg = 499, "request canceled"
	}
	lvl := slog.LevelWarn
	if code >= 500 {
		lvl = slog.LevelError
	}
	h.logger.LogAttrs(ctx, lvl, "query failed", slog.Int("status", code), slog.String("err", err.Error()))
	writeError(w, code, msg)
}

func nonNil(s []model.Station) []model.Station {
	if s == nil {
		return []model.Station{}
	}
	return s
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	writeJSON(w, code, map[string]string{"error": msg})
}
