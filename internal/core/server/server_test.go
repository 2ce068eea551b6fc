package server

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"testing"
	"time"

	"github.com/mohammed-shakir/seattle-ev-map/internal/core/config"
	"github.com/mohammed-shakir/seattle-ev-map/internal/core/model"
	"github.com/mohammed-shakir/seattle-ev-map/internal/core/router"
	"github.com/mohammed-shakir/seattle-ev-map/internal/engine"
	"github.com/mohammed-shakir/seattle-ev-map/internal/geo/orbgeo"
	"github.com/mohammed-shakir/seattle-ev-map/internal/locate"
	h3mapper "github.com/mohammed-shakir/seattle-ev-map/internal/mapper/h3"
	"github.com/mohammed-shakir/seattle-ev-map/internal/source"
)

type stuckLocator struct{}

func (stuckLocator) Locate(ctx context.Context, _ string) (model.Coordinate, error) {
	<-ctx.Done()
	return model.Coordinate{}, ctx.Err()
}

func fixture(name string) string {
	return filepath.Join("..", "..", "dataset", "testdata", name)
}

func newTestServer(t *testing.T, load bool, loc locate.Locator) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	e, err := engine.New(engine.Options{
		Stations:      source.NewFile(fixture("stations.geojson")),
		Neighborhoods: source.NewFile(fixture("neighborhoods.geojson")),
		Geometry:      orbgeo.New(),
		Cells:         h3mapper.New(),
		ClusterRes:    8,
		Logger:        logger,
	})
	if err != nil {
		t.Fatalf("engine: %v", err)
	}
	if load {
		if err := e.Reload(context.Background()); err != nil {
			t.Fatalf("reload: %v", err)
		}
	}
	cfg := config.Config{DefaultRadiusMiles: 1, ClusterRes: 8, ClipToNeighborhoods: true}
	h := router.New(logger, cfg, e, loc)
	srv := httptest.NewServer(NewHandler(logger, h, e))
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, srv *httptest.Server, path string, q url.Values, out any) int {
	t.Helper()
	u := srv.URL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	resp, err := http.Get(u)
	if err != nil {
		t.Fatalf("GET %s: %v", u, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", u, err)
		}
	}
	return resp.StatusCode
}

type stationsBody struct {
	Status   string          `json:"status"`
	Stations []model.Station `json:"stations"`
	View     []struct {
		Op string `json:"op"`
	} `json:"view"`
}

func TestStations_BlinkLevel2(t *testing.T) {
	srv := newTestServer(t, true, nil)
	var body stationsBody
	code := get(t, srv, "/stations", url.Values{"level": {"level-2"}, "network": {"Blink Network"}}, &body)
	if code != http.StatusOK || body.Status != "ok" {
		t.Fatalf("code=%d status=%s", code, body.Status)
	}
	if len(body.Stations) != 1 || body.Stations[0].Name != "Blink - Denny Garage" {
		t.Fatalf("stations=%+v", body.Stations)
	}
	if len(body.View) == 0 || body.View[0].Op != "setDisplayedStations" {
		t.Fatalf("view=%+v", body.View)
	}
}

func TestStations_NoResultsAndBadLevel(t *testing.T) {
	srv := newTestServer(t, true, nil)
	var body stationsBody
	if code := get(t, srv, "/stations", url.Values{"network": {"Tesla"}}, &body); code != http.StatusOK || body.Status != "no_results" {
		t.Fatalf("code=%d status=%s", code, body.Status)
	}
	var e map[string]string
	if code := get(t, srv, "/stations", url.Values{"level": {"7"}}, &e); code != http.StatusBadRequest || e["error"] == "" {
		t.Fatalf("code=%d body=%v", code, e)
	}
}

func TestSearch_Denny(t *testing.T) {
	srv := newTestServer(t, true, nil)
	var body struct {
		Status  string               `json:"status"`
		Results []model.SearchResult `json:"results"`
		View    []struct {
			Op string `json:"op"`
		} `json:"view"`
	}
	if code := get(t, srv, "/search", url.Values{"q": {"Denny"}}, &body); code != http.StatusOK {
		t.Fatalf("code=%d", code)
	}
	if body.Status != "ok" || len(body.Results) != 2 || body.Results[1].Label != "Denny Triangle" {
		t.Fatalf("body=%+v", body)
	}
	if len(body.View) != 2 || body.View[0].Op != "flyTo" {
		t.Fatalf("view=%+v", body.View)
	}
}

type nearbyBody struct {
	Status       string          `json:"status"`
	OriginSource string          `json:"origin_source"`
	Stations     []model.Station `json:"stations"`
}

func TestNearby_ExplicitOrigin(t *testing.T) {
	srv := newTestServer(t, true, nil)
	q := url.Values{"lon": {"-122.335"}, "lat": {"47.623"}}

	var half, two nearbyBody
	q.Set("radius", "0.5")
	get(t, srv, "/nearby", q, &half)
	q.Set("radius", "2")
	get(t, srv, "/nearby", q, &two)
	if len(half.Stations) != 1 || len(two.Stations) != 2 || half.OriginSource != "query" {
		t.Fatalf("half=%+v two=%+v", half, two)
	}

	q.Set("radius", "-1")
	if code := get(t, srv, "/nearby", q, nil); code != http.StatusBadRequest {
		t.Fatalf("code=%d want 400", code)
	}
}

func TestNearby_Geolocation(t *testing.T) {
	srv := newTestServer(t, true, locate.Static{Origin: model.Coordinate{Lon: -122.335, Lat: 47.623}})
	var body nearbyBody
	if code := get(t, srv, "/nearby", url.Values{"radius": {"0.5"}}, &body); code != http.StatusOK {
		t.Fatalf("code=%d", code)
	}
	if body.OriginSource != "geolocation" || len(body.Stations) != 1 {
		t.Fatalf("body=%+v", body)
	}
}

func TestNearby_GeolocationTimeout(t *testing.T) {
	srv := newTestServer(t, true, locate.WithTimeout(stuckLocator{}, 20*time.Millisecond))
	if code := get(t, srv, "/nearby", nil, nil); code != http.StatusGatewayTimeout {
		t.Fatalf("code=%d want 504", code)
	}
}

func TestNearby_NoLocator(t *testing.T) {
	srv := newTestServer(t, true, nil)
	if code := get(t, srv, "/nearby", nil, nil); code != http.StatusBadRequest {
		t.Fatalf("code=%d want 400", code)
	}
}

func TestReadiness_BeforeLoad(t *testing.T) {
	srv := newTestServer(t, false, nil)
	if code := get(t, srv, "/readyz", nil, nil); code != http.StatusServiceUnavailable {
		t.Fatalf("readyz=%d want 503", code)
	}
	if code := get(t, srv, "/stations", nil, nil); code != http.StatusServiceUnavailable {
		t.Fatalf("stations=%d want 503", code)
	}
	if code := get(t, srv, "/healthz", nil, nil); code != http.StatusOK {
		t.Fatalf("healthz=%d", code)
	}
}

func TestNeighborhoodsAndClusters(t *testing.T) {
	srv := newTestServer(t, true, nil)
	var hoods struct {
		Neighborhoods []string `json:"neighborhoods"`
	}
	get(t, srv, "/neighborhoods", nil, &hoods)
	if len(hoods.Neighborhoods) != 3 {
		t.Fatalf("neighborhoods=%v", hoods.Neighborhoods)
	}

	var cl struct {
		Res      int             `json:"res"`
		Clusters []model.Cluster `json:"clusters"`
	}
	if code := get(t, srv, "/clusters", url.Values{"res": {"6"}, "clip": {"false"}}, &cl); code != http.StatusOK {
		t.Fatalf("code=%d", code)
	}
	total := 0
	for _, c := range cl.Clusters {
		total += c.Count
	}
	if cl.Res != 6 || total != 4 {
		t.Fatalf("res=%d total=%d", cl.Res, total)
	}
	if code := get(t, srv, "/clusters", url.Values{"res": {"20"}}, nil); code != http.StatusBadRequest {
		t.Fatalf("code=%d want 400", code)
	}
}
