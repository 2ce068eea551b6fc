// Package clean turns the raw AFDC station CSV export into the GeoJSON the
// server loads.
package clean

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Seattle area box; rows outside it are treated as bad coordinates.
const (
	MinLat = 47.3
	MaxLat = 47.8
	MinLon = -122.55
	MaxLon = -122.15
)

const (
	colLatitude  = "latitude"
	colLongitude = "longitude"
	colName      = "station_name"
	colAddress   = "street_address"
	colLevel1    = "ev_level1_evse_num"
	colLevel2    = "ev_level2_evse_num"
	colDCFast    = "ev_dc_fast_count"
	colConnector = "ev_connector_types"
)

var (
	nonKey        = regexp.MustCompile(`[^0-9a-zA-Z_]+`)
	connectorSeps = regexp.MustCompile(`[,;/\\]|\s+`)
)

type Report struct {
	RowsIn        int `json:"rows_in"`
	RowsOut       int `json:"rows_out"`
	InvalidCoords int `json:"invalid_coords"`
	Duplicates    int `json:"duplicates"`
}

// Row is one cleaned station keyed by normalized column name.
type Row struct {
	Lon, Lat   float64
	Props      map[string]string
	Level1     int
	Level2     int
	DCFast     int
	Connectors []string
}

type Result struct {
	Columns []string
	Rows    []Row
	Report  Report
}

// KeyName maps a CSV header to a snake_case property key.
func KeyName(h string) string {
	return strings.Trim(nonKey.ReplaceAllString(strings.ToLower(strings.TrimSpace(h)), "_"), "_")
}

// NormalizeConnectors splits on , ; / \ and whitespace, upper-cases and
// dedupes while keeping first-seen order.
func NormalizeConnectors(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	var out []string
	seen := map[string]struct{}{}
	for _, p := range connectorSeps.Split(s, -1) {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

type dedupeKey struct {
	name, addr string
	lat, lon   float64
}

// Clean reads the CSV export and returns the kept rows in input order.
func Clean(r io.Reader) (Result, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return Result{}, errors.New("empty csv")
	}
	if err != nil {
		return Result{}, fmt.Errorf("read header: %w", err)
	}
	keys := make([]string, len(header))
	for i, h := range header {
		keys[i] = KeyName(strings.TrimPrefix(h, "\ufeff"))
	}

	var res Result
	res.Columns = columns(keys)
	seen := map[dedupeKey]struct{}{}

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Result{}, fmt.Errorf("read row %d: %w", res.Report.RowsIn+1, err)
		}
		res.Report.RowsIn++

		props := make(map[string]string, len(keys))
		for i, k := range keys {
			if i < len(rec) && k != "" {
				props[k] = strings.TrimSpace(rec[i])
			}
		}

		lat, okLat := parseFloat(props[colLatitude])
		lon, okLon := parseFloat(props[colLongitude])
		if !okLat || !okLon || lat < MinLat || lat > MaxLat || lon < MinLon || lon > MaxLon {
			res.Report.InvalidCoords++
			continue
		}

		k := dedupeKey{
			name: strings.ToUpper(props[colName]),
			addr: strings.ToUpper(props[colAddress]),
			lat:  round6(lat),
			lon:  round6(lon),
		}
		if _, dup := seen[k]; dup {
			res.Report.Duplicates++
			continue
		}
		seen[k] = struct{}{}

		row := Row{
			Lon:        lon,
			Lat:        lat,
			Level1:     parseCount(props[colLevel1]),
			Level2:     parseCount(props[colLevel2]),
			DCFast:     parseCount(props[colDCFast]),
			Connectors: NormalizeConnectors(props[colConnector]),
		}
		for _, c := range []string{colLatitude, colLongitude, colLevel1, colLevel2, colDCFast, colConnector} {
			delete(props, c)
		}
		row.Props = props
		res.Rows = append(res.Rows, row)
	}
	res.Report.RowsOut = len(res.Rows)
	return res, nil
}

// FeatureCollection renders rows as Point features with typed counts and a
// connector list.
func (r Result) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, row := range r.Rows {
		f := geojson.NewFeature(orb.Point{row.Lon, row.Lat})
		for k, v := range row.Props {
			f.Properties[k] = v
		}
		f.Properties[colLevel1] = row.Level1
		f.Properties[colLevel2] = row.Level2
		f.Properties[colDCFast] = row.DCFast
		conn := row.Connectors
		if conn == nil {
			conn = []string{}
		}
		f.Properties[colConnector] = conn
		fc.Append(f)
	}
	return fc
}

// WriteCSV writes the cleaned table with connectors joined by ';'.
func (r Result) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(r.Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, row := range r.Rows {
		rec := make([]string, len(r.Columns))
		for i, c := range r.Columns {
			switch c {
			case colLatitude:
				rec[i] = strconv.FormatFloat(row.Lat, 'f', -1, 64)
			case colLongitude:
				rec[i] = strconv.FormatFloat(row.Lon, 'f', -1, 64)
			case colLevel1:
				rec[i] = strconv.Itoa(row.Level1)
			case colLevel2:
				rec[i] = strconv.Itoa(row.Level2)
			case colDCFast:
				rec[i] = strconv.Itoa(row.DCFast)
			case colConnector:
				rec[i] = strings.Join(row.Connectors, ";")
			default:
				rec[i] = row.Props[c]
			}
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// columns keeps source order minus lat/lon, then appends the typed fields.
func columns(keys []string) []string {
	out := make([]string, 0, len(keys)+6)
	has := map[string]bool{}
	for _, k := range keys {
		if k == "" || k == colLatitude || k == colLongitude || has[k] {
			continue
		}
		has[k] = true
		out = append(out, k)
	}
	for _, k := range []string{colLatitude, colLongitude, colLevel1, colLevel2, colDCFast, colConnector} {
		if !has[k] {
			has[k] = true
			out = append(out, k)
		}
	}
	return out
}

func parseFloat(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// missing or unparseable counts become 0
func parseCount(s string) int {
	f, ok := parseFloat(s)
	if !ok || f < 0 {
		return 0
	}
	return int(f)
}

func round6(f float64) float64 {
	return math.Round(f*1e6) / 1e6
}
