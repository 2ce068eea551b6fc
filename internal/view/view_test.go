package view

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/mohammed-shakir/seattle-ev-map/internal/core/model"
	"github.com/mohammed-shakir/seattle-ev-map/internal/filter"
	"github.com/mohammed-shakir/seattle-ev-map/internal/search"
)

func ops(cmds []Command) string {
	out := make([]string, 0, len(cmds))
	for _, c := range cmds {
		out = append(out, c.Op)
	}
	return strings.Join(out, ",")
}

func TestSearch_FliesToFirstResult(t *testing.T) {
	rec := &Recorder{}
	p := NewPresenter(rec)
	first := model.SearchResult{Kind: model.KindStation, Label: "Blink <Denny>", Coordinate: model.Coordinate{Lon: -122.338, Lat: 47.618}, Address: "2121 Terry Ave, Seattle, WA 98121"}
	status := p.Search([]model.SearchResult{first, {Label: "second"}})

	if status != model.StatusOK {
		t.Fatalf("status=%s", status)
	}
	cmds := rec.Commands()
	if ops(cmds) != "flyTo,showPopup" {
		t.Fatalf("ops=%s", ops(cmds))
	}
	if *cmds[0].Center != first.Coordinate {
		t.Fatalf("flew to %+v", *cmds[0].Center)
	}
	if !strings.Contains(cmds[1].HTML, "Blink &lt;Denny&gt;") || !strings.Contains(cmds[1].HTML, "2121 Terry Ave") {
		t.Fatalf("popup=%q", cmds[1].HTML)
	}
}

func TestSearch_NoResultsIssuesNothing(t *testing.T) {
	rec := &Recorder{}
	if s := NewPresenter(rec).Search(nil); s != model.StatusNoResults {
		t.Fatalf("status=%s", s)
	}
	if len(rec.Commands()) != 0 {
		t.Fatalf("unexpected commands %s", ops(rec.Commands()))
	}
}

func TestFilter_CentroidRecenters(t *testing.T) {
	rec := &Recorder{}
	c := model.Coordinate{Lon: -122.38, Lat: 47.68}
	NewPresenter(rec).Filter(filter.Result{Stations: make([]model.Station, 2), Centroid: &c})
	cmds := rec.Commands()
	if ops(cmds) != "setDisplayedStations,flyTo" || *cmds[0].Count != 2 {
		t.Fatalf("cmds=%+v", cmds)
	}

	rec = &Recorder{}
	NewPresenter(rec).Filter(filter.Result{})
	if ops(rec.Commands()) != "setDisplayedStations" {
		t.Fatalf("ops=%s", ops(rec.Commands()))
	}
}

func TestNearby_FitsBoundsOrFliesToOrigin(t *testing.T) {
	origin := model.Coordinate{Lon: -122.335, Lat: 47.623}
	st := model.Station{Coordinate: model.Coordinate{Lon: -122.338, Lat: 47.618}}

	rec := &Recorder{}
	NewPresenter(rec).Nearby(search.RadiusResult{Origin: origin, Stations: []model.Station{st}, BBox: model.BBoxOf(origin).Extend(st.Coordinate)})
	cmds := rec.Commands()
	if ops(cmds) != "setDisplayedStations,addMarker,fitBounds" || cmds[1].Style != MarkerOrigin {
		t.Fatalf("cmds=%+v", cmds)
	}

	rec = &Recorder{}
	NewPresenter(rec).Nearby(search.RadiusResult{Origin: origin, BBox: model.BBoxOf(origin)})
	if ops(rec.Commands()) != "setDisplayedStations,addMarker,flyTo" {
		t.Fatalf("ops=%s", ops(rec.Commands()))
	}
}

func TestRecorder_JSON(t *testing.T) {
	rec := &Recorder{}
	rec.FitBounds(model.BBoxOf(DefaultCenter), 40, 1000)
	b, err := json.Marshal(rec.Commands())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(b), `"op":"fitBounds"`) || !strings.Contains(string(b), `"padding_px":40`) {
		t.Fatalf("json=%s", b)
	}
}

func TestReset_FliesToCity(t *testing.T) {
	rec := &Recorder{}
	NewPresenter(rec).Reset(make([]model.Station, 3))
	cmds := rec.Commands()
	if ops(cmds) != "setDisplayedStations,flyTo" || *cmds[1].Center != DefaultCenter || cmds[1].Zoom != DefaultZoom {
		t.Fatalf("cmds=%+v", cmds)
	}
}
