package dataset

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/mohammed-shakir/seattle-ev-map/internal/core/model"
	"github.com/mohammed-shakir/seattle-ev-map/internal/geo/orbgeo"
)

// property aliases, first non-empty wins
var (
	keysName      = []string{"station_name", "name"}
	keysAddress   = []string{"street_address", "address"}
	keysCity      = []string{"city"}
	keysState     = []string{"state"}
	keysZip       = []string{"zip", "postal_code"}
	keysNetwork   = []string{"ev_network", "network"}
	keysLevel1    = []string{"ev_level1_evse_num", "level1"}
	keysLevel2    = []string{"ev_level2_evse_num", "level2"}
	keysDCFast    = []string{"ev_dc_fast_count", "dc_fast"}
	keysConnector = []string{"ev_connector_types", "connector_types"}
	keysLargeName = []string{"L_HOOD", "l_hood", "large_name"}
	keysSmallName = []string{"S_HOOD", "s_hood", "small_name"}
)

// DecodeStations parses a station FeatureCollection into typed records.
func DecodeStations(raw []byte) ([]model.Station, error) {
	fc, err := geojson.UnmarshalFeatureCollection(raw)
	if err != nil {
		return nil, fmt.Errorf("parse stations geojson: %w", err)
	}
	out := make([]model.Station, 0, len(fc.Features))
	for i, f := range fc.Features {
		st, err := decodeStation(f)
		if err != nil {
			return nil, fmt.Errorf("station feature %d: %w", i, err)
		}
		out = append(out, st)
	}
	return out, nil
}

func decodeStation(f *geojson.Feature) (model.Station, error) {
	if f == nil || f.Geometry == nil {
		return model.Station{}, errors.New("missing geometry")
	}
	pt, ok := f.Geometry.(orb.Point)
	if !ok {
		return model.Station{}, fmt.Errorf("geometry type %q (want Point)", f.Geometry.GeoJSONType())
	}
	coord := orbgeo.FromPoint(pt)
	if !coord.Valid() {
		return model.Station{}, fmt.Errorf("coordinate out of range: [%v,%v]", coord.Lon, coord.Lat)
	}

	p := f.Properties
	st := model.Station{
		Coordinate: coord,
		Name:       str(p, keysName),
		Address:    str(p, keysAddress),
		City:       str(p, keysCity),
		State:      str(p, keysState),
		Zip:        str(p, keysZip),
		Network:    str(p, keysNetwork),
	}
	if st.Name == "" {
		return model.Station{}, errors.New("station name is required")
	}

	var err error
	if st.Level1, err = count(p, keysLevel1); err != nil {
		return model.Station{}, fmt.Errorf("level-1 count: %w", err)
	}
	if st.Level2, err = count(p, keysLevel2); err != nil {
		return model.Station{}, fmt.Errorf("level-2 count: %w", err)
	}
	if st.DCFast, err = count(p, keysDCFast); err != nil {
		return model.Station{}, fmt.Errorf("dc-fast count: %w", err)
	}
	if st.ConnectorTypes, err = connectors(p, keysConnector); err != nil {
		return model.Station{}, fmt.Errorf("connector types: %w", err)
	}
	return st, nil
}

// DecodeNeighborhoods parses a neighborhood FeatureCollection into typed records.
func DecodeNeighborhoods(raw []byte) ([]model.Neighborhood, error) {
	fc, err := geojson.UnmarshalFeatureCollection(raw)
	if err != nil {
		return nil, fmt.Errorf("parse neighborhoods geojson: %w", err)
	}
	out := make([]model.Neighborhood, 0, len(fc.Features))
	for i, f := range fc.Features {
		n, err := decodeNeighborhood(f)
		if err != nil {
			return nil, fmt.Errorf("neighborhood feature %d: %w", i, err)
		}
		out = append(out, n)
	}
	return out, nil
}

func decodeNeighborhood(f *geojson.Feature) (model.Neighborhood, error) {
	if f == nil || f.Geometry == nil {
		return model.Neighborhood{}, errors.New("missing geometry")
	}
	n := model.Neighborhood{
		LargeName: str(f.Properties, keysLargeName),
		SmallName: str(f.Properties, keysSmallName),
	}
	if n.Name() == "" {
		return model.Neighborhood{}, errors.New("neighborhood name is required (L_HOOD or S_HOOD)")
	}

	switch g := f.Geometry.(type) {
	case orb.Polygon:
		n.Polygons = []model.Polygon{orbgeo.FromPolygon(g)}
	case orb.MultiPolygon:
		for _, p := range g {
			n.Polygons = append(n.Polygons, orbgeo.FromPolygon(p))
		}
	default:
		return model.Neighborhood{}, fmt.Errorf("geometry type %q (want Polygon or MultiPolygon)", f.Geometry.GeoJSONType())
	}

	if len(n.Polygons) == 0 {
		return model.Neighborhood{}, errors.New("empty multipolygon")
	}
	for i, p := range n.Polygons {
		if len(p) == 0 || len(p[0]) < 4 {
			return model.Neighborhood{}, fmt.Errorf("polygon %d outer ring has < 4 vertices", i)
		}
	}
	return n, nil
}

func lookup(p geojson.Properties, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := p[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func str(p geojson.Properties, keys []string) string {
	for _, k := range keys {
		switch v := p[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			// zip codes sometimes arrive as numbers
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

func count(p geojson.Properties, keys []string) (int, error) {
	v, ok := lookup(p, keys)
	if !ok {
		return 0, nil
	}
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return 0, nil
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("parse %q: %w", s, err)
		}
		f = n
	case bool:
		return 0, fmt.Errorf("unexpected boolean %v", t)
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("not finite: %v", f)
	}
	if f < 0 {
		return 0, fmt.Errorf("negative count %v", f)
	}
	return int(f), nil
}

// connectors accepts "A, B" or ["A","B"] and returns the comma-separated form.
func connectors(p geojson.Properties, keys []string) (string, error) {
	v, ok := lookup(p, keys)
	if !ok {
		return "", nil
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), nil
	case []any:
		tags := make([]string, 0, len(t))
		for i, e := range t {
			s, ok := e.(string)
			if !ok {
				return "", fmt.Errorf("element %d is %T (want string)", i, e)
			}
			if s = strings.TrimSpace(s); s != "" {
				tags = append(tags, s)
			}
		}
		return strings.Join(tags, ","), nil
	default:
		return "", fmt.Errorf("unexpected type %T", v)
	}
}
