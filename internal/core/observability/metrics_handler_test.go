package observability

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsHandler_Smoke(t *testing.T) {
	ExposeBuildInfo("test")
	ObserveHTTP("GET", "/stations", 200, 0.001)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status=%d want 200", rr.Code)
	}
	body := rr.Body.String()
	if !strings.Contains(body, "app_build_info") || !strings.Contains(body, "http_requests_total") {
		t.Fatalf("metrics payload did not contain expected metric names; got:\n%s", body)
	}
}

func TestQueryAndDatasetMetrics(t *testing.T) {
	before := testutil.ToFloat64(queriesTotal.WithLabelValues("radius", "no_results"))
	ObserveQuery("radius", "no_results", 0)
	if got := testutil.ToFloat64(queriesTotal.WithLabelValues("radius", "no_results")); got != before+1 {
		t.Fatalf("station_queries_total=%v want %v", got, before+1)
	}

	SetDataset(7, 120, 90, 4)
	if got := testutil.ToFloat64(datasetFeatures.WithLabelValues("stations")); got != 120 {
		t.Fatalf("dataset_features{stations}=%v", got)
	}
	if got := testutil.ToFloat64(datasetUnmatched); got != 4 {
		t.Fatalf("dataset_unmatched_stations=%v", got)
	}
	if got := testutil.ToFloat64(datasetVersion); got != 7 {
		t.Fatalf("dataset_version=%v", got)
	}

	beforeErr := testutil.ToFloat64(datasetReloads.WithLabelValues("error"))
	IncReload(errors.New("x"))
	if got := testutil.ToFloat64(datasetReloads.WithLabelValues("error")); got != beforeErr+1 {
		t.Fatalf("dataset_reloads_total{error}=%v", got)
	}
}
