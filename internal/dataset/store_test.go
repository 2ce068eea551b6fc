package dataset

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mohammed-shakir/seattle-ev-map/internal/core/model"
	"github.com/mohammed-shakir/seattle-ev-map/internal/geo/orbgeo"
)

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	return b
}

func loadFixture(t *testing.T) *Store {
	t.Helper()
	s, err := Load(readFixture(t, "stations.geojson"), readFixture(t, "neighborhoods.geojson"), Options{
		Geometry: orbgeo.New(),
		Version:  3,
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return s
}

func TestLoad_EnrichesFirstContainingNeighborhood(t *testing.T) {
	s := loadFixture(t)

	want := map[string]string{
		"Ballard Library EV":   "Ballard",
		"Blink - Denny Garage": "Denny Triangle",
		"Capitol Hill Fast":    "Capitol Hill",
		"Airport Lot":          "",
	}
	if got := len(s.Stations()); got != len(want) {
		t.Fatalf("stations=%d want %d", got, len(want))
	}
	for _, st := range s.Stations() {
		if got := st.NeighborhoodName(); got != want[st.Name] {
			t.Fatalf("%s neighborhood=%q want %q", st.Name, got, want[st.Name])
		}
	}

	st := s.Stats()
	if st.Enriched != 3 || st.Unmatched != 1 || st.Degraded {
		t.Fatalf("stats=%+v", st)
	}
	if s.Version() != 3 {
		t.Fatalf("version=%d", s.Version())
	}
	if s.LoadedAt().IsZero() {
		t.Fatalf("loadedAt not set")
	}
}

func TestWithin_ExcludesUnmatched(t *testing.T) {
	s := loadFixture(t)
	for _, st := range s.Within() {
		if st.Neighborhood == nil {
			t.Fatalf("%s has no neighborhood but is in Within()", st.Name)
		}
	}
	if len(s.Within()) != 3 {
		t.Fatalf("within=%d want 3", len(s.Within()))
	}
}

func TestLoad_NilGeometryIsDegraded(t *testing.T) {
	s, err := Load(readFixture(t, "stations.geojson"), readFixture(t, "neighborhoods.geojson"), Options{})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	for _, st := range s.Stations() {
		if st.Neighborhood != nil {
			t.Fatalf("%s enriched without geometry", st.Name)
		}
	}
	if !s.Stats().Degraded || len(s.Within()) != 0 {
		t.Fatalf("stats=%+v within=%d", s.Stats(), len(s.Within()))
	}
}

func TestEnrich_OverlapTakesFirstInOrder(t *testing.T) {
	poly := model.Polygon{{
		{Lon: 0, Lat: 0}, {Lon: 1, Lat: 0}, {Lon: 1, Lat: 1}, {Lon: 0, Lat: 1}, {Lon: 0, Lat: 0},
	}}
	hoods := []model.Neighborhood{
		{SmallName: "First", Polygons: []model.Polygon{poly}},
		{SmallName: "Second", Polygons: []model.Polygon{poly}},
	}
	in := []model.Station{{Name: "x", Coordinate: model.Coordinate{Lon: 0.5, Lat: 0.5}}}

	out := Enrich(in, hoods, orbgeo.New())
	if out[0].NeighborhoodName() != "First" {
		t.Fatalf("got %q want First", out[0].NeighborhoodName())
	}
	if in[0].Neighborhood != nil {
		t.Fatalf("input was modified")
	}
}

func TestDecodeStations_Fields(t *testing.T) {
	stations, err := DecodeStations(readFixture(t, "stations.geojson"))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	blink := stations[1]
	if blink.Zip != "98121" {
		t.Fatalf("numeric zip=%q", blink.Zip)
	}
	if blink.Level2 != 4 || blink.Level1 != 0 || blink.DCFast != 0 {
		t.Fatalf("counts=%d/%d/%d", blink.Level1, blink.Level2, blink.DCFast)
	}
	if blink.ConnectorTypes != "J1772" {
		t.Fatalf("connectors=%q", blink.ConnectorTypes)
	}
	if got := blink.FormattedAddress(); got != "2121 Terry Ave, Seattle, WA 98121" {
		t.Fatalf("address=%q", got)
	}
}

func TestDecodeStations_Invalid(t *testing.T) {
	cases := map[string]string{
		"not json":       `{`,
		"polygon":        `{"type":"FeatureCollection","features":[{"type":"Feature","geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]},"properties":{"station_name":"a"}}]}`,
		"no name":        `{"type":"FeatureCollection","features":[{"type":"Feature","geometry":{"type":"Point","coordinates":[0,0]},"properties":{}}]}`,
		"negative count": `{"type":"FeatureCollection","features":[{"type":"Feature","geometry":{"type":"Point","coordinates":[0,0]},"properties":{"station_name":"a","ev_level2_evse_num":-1}}]}`,
		"bool count":     `{"type":"FeatureCollection","features":[{"type":"Feature","geometry":{"type":"Point","coordinates":[0,0]},"properties":{"station_name":"a","ev_dc_fast_count":true}}]}`,
		"out of range":   `{"type":"FeatureCollection","features":[{"type":"Feature","geometry":{"type":"Point","coordinates":[200,0]},"properties":{"station_name":"a"}}]}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := DecodeStations([]byte(raw)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestDecodeNeighborhoods_Invalid(t *testing.T) {
	short := `{"type":"FeatureCollection","features":[{"type":"Feature","geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[0,0]]]},"properties":{"S_HOOD":"a"}}]}`
	_, err := DecodeNeighborhoods([]byte(short))
	if err == nil || !strings.Contains(err.Error(), "neighborhood feature 0") {
		t.Fatalf("err=%v", err)
	}

	unnamed := `{"type":"FeatureCollection","features":[{"type":"Feature","geometry":{"type":"Polygon","coordinates":[[[0,0],[1,0],[1,1],[0,0]]]},"properties":{}}]}`
	if _, err := DecodeNeighborhoods([]byte(unnamed)); err == nil {
		t.Fatalf("expected error for unnamed neighborhood")
	}
}

func TestNeighborhoodLookup(t *testing.T) {
	s := loadFixture(t)
	if got := s.NeighborhoodsNamed("denny triangle"); len(got) != 1 || got[0].LargeName != "Downtown" {
		t.Fatalf("named=%+v", got)
	}
	if got := s.NeighborhoodsNamed("  "); got != nil {
		t.Fatalf("blank name should match nothing")
	}
	names := s.NeighborhoodNames()
	if strings.Join(names, "|") != "Ballard|Denny Triangle|Capitol Hill" {
		t.Fatalf("names=%v", names)
	}
}
