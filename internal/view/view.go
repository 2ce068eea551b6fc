// Package view turns query results into map-surface commands.
package view

import (
	"fmt"
	"html"
	"strings"
	"sync"

	"github.com/mohammed-shakir/seattle-ev-map/internal/core/model"
	"github.com/mohammed-shakir/seattle-ev-map/internal/filter"
	"github.com/mohammed-shakir/seattle-ev-map/internal/search"
)

// Surface is the rendering collaborator. It is only ever written to.
type Surface interface {
	SetDisplayedStations(stations []model.Station)
	FlyTo(center model.Coordinate, zoom float64, durationMs int)
	FitBounds(bbox model.BBox, paddingPx int, durationMs int)
	ShowPopup(at model.Coordinate, htmlContent string)
	AddMarker(at model.Coordinate, style string)
}

var (
	DefaultCenter = model.Coordinate{Lon: -122.335, Lat: 47.623}
	DefaultZoom   = 10.5
)

const (
	searchZoom       = 15
	neighborhoodZoom = 13
	originZoom       = 14
	flyMs            = 1500
	fitMs            = 1000
	fitPaddingPx     = 40

	MarkerOrigin = "origin"
)

// Presenter maps engine results onto a Surface.
type Presenter struct {
	surface Surface
}

func NewPresenter(s Surface) *Presenter { return &Presenter{surface: s} }

// Search navigates to the first result, if any, and opens a popup there.
func (p *Presenter) Search(results []model.SearchResult) model.Status {
	if len(results) == 0 {
		return model.StatusNoResults
	}
	first := results[0]
	p.surface.FlyTo(first.Coordinate, searchZoom, flyMs)
	p.surface.ShowPopup(first.Coordinate, Popup(first))
	return model.StatusOK
}

// Filter displays the matched stations and re-centers on a single matched neighborhood.
func (p *Presenter) Filter(res filter.Result) {
	p.surface.SetDisplayedStations(res.Stations)
	if res.Centroid != nil {
		p.surface.FlyTo(*res.Centroid, neighborhoodZoom, flyMs)
	}
}

// Reset returns the map to the initial city-wide view.
func (p *Presenter) Reset(stations []model.Station) {
	p.surface.SetDisplayedStations(stations)
	p.surface.FlyTo(DefaultCenter, DefaultZoom, flyMs)
}

// Nearby replaces the displayed stations, marks the origin and frames the matches.
func (p *Presenter) Nearby(res search.RadiusResult) {
	p.surface.SetDisplayedStations(res.Stations)
	p.surface.AddMarker(res.Origin, MarkerOrigin)
	if len(res.Stations) == 0 {
		p.surface.FlyTo(res.Origin, originZoom, flyMs)
		return
	}
	p.surface.FitBounds(res.BBox, fitPaddingPx, fitMs)
}

// Popup renders the escaped label and, for stations, the address.
func Popup(r model.SearchResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<strong>%s</strong>", html.EscapeString(r.Label))
	if r.Address != "" {
		fmt.Fprintf(&b, "<br>%s", html.EscapeString(r.Address))
	}
	return b.String()
}

type Command struct {
	Op         string            `json:"op"`
	Center     *model.Coordinate `json:"center,omitempty"`
	Zoom       float64           `json:"zoom,omitempty"`
	DurationMs int               `json:"duration_ms,omitempty"`
	BBox       *model.BBox       `json:"bbox,omitempty"`
	PaddingPx  int               `json:"padding_px,omitempty"`
	HTML       string            `json:"html,omitempty"`
	Style      string            `json:"style,omitempty"`
	Count      *int              `json:"count,omitempty"`
}

// Recorder is a Surface that keeps the commands for a front end to replay.
type Recorder struct {
	mu   sync.Mutex
	cmds []Command
}

var _ Surface = (*Recorder)(nil)

func (r *Recorder) add(c Command) {
	r.mu.Lock()
	r.cmds = append(r.cmds, c)
	r.mu.Unlock()
}

func (r *Recorder) SetDisplayedStations(stations []model.Station) {
	n := len(stations)
	r.add(Command{Op: "setDisplayedStations", Count: &n})
}

func (r *Recorder) FlyTo(center model.Coordinate, zoom float64, durationMs int) {
	r.add(Command{Op: "flyTo", Center: &center, Zoom: zoom, DurationMs: durationMs})
}

func (r *Recorder) FitBounds(bbox model.BBox, paddingPx int, durationMs int) {
	r.add(Command{Op: "fitBounds", BBox: &bbox, PaddingPx: paddingPx, DurationMs: durationMs})
}

func (r *Recorder) ShowPopup(at model.Coordinate, htmlContent string) {
	r.add(Command{Op: "showPopup", Center: &at, HTML: htmlContent})
}

func (r *Recorder) AddMarker(at model.Coordinate, style string) {
	r.add(Command{Op: "addMarker", Center: &at, Style: style})
}

// Commands returns a copy of everything recorded so far.
func (r *Recorder) Commands() []Command {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Command, len(r.cmds))
	copy(out, r.cmds)
	return out
}
