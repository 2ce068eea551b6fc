// Package filter evaluates conjunctive station filters.
package filter

import (
	"strings"

	"github.com/mohammed-shakir/seattle-ev-map/internal/core/model"
	"github.com/mohammed-shakir/seattle-ev-map/internal/geo"
)

type Result struct {
	Stations []model.Station   `json:"stations"`
	Status   model.Status      `json:"status"`
	Centroid *model.Coordinate `json:"centroid,omitempty"`
}

// Apply returns the stations matching every populated criterion, in input order.
func Apply(stations []model.Station, c model.FilterCriteria) []model.Station {
	out := make([]model.Station, 0, len(stations))
	for _, st := range stations {
		if Matches(st, c) {
			out = append(out, st)
		}
	}
	return out
}

func Matches(st model.Station, c model.FilterCriteria) bool {
	if c.Level != nil && !matchLevel(st, *c.Level) {
		return false
	}
	if t := strings.TrimSpace(c.ConnectorType); t != "" && !HasConnector(st.ConnectorTypes, t) {
		return false
	}
	if c.Network != "" && st.Network != c.Network {
		return false
	}
	if n := strings.TrimSpace(c.Neighborhood); n != "" {
		if st.Neighborhood == nil || !strings.EqualFold(*st.Neighborhood, n) {
			return false
		}
	}
	return true
}

func matchLevel(st model.Station, l model.ConnectorLevel) bool {
	switch l {
	case model.Level1:
		return st.Level1 > 0
	case model.Level2:
		return st.Level2 > 0
	case model.DCFast:
		return st.DCFast > 0
	default:
		return false
	}
}

// HasConnector reports whether tag is in the comma-separated list.
func HasConnector(list, tag string) bool {
	tag = strings.TrimSpace(tag)
	for t := range strings.SplitSeq(list, ",") {
		if strings.EqualFold(strings.TrimSpace(t), tag) {
			return true
		}
	}
	return false
}

// Evaluate applies c and, when the neighborhood criterion names exactly one
// neighborhood, attaches that neighborhood's centroid for re-centering.
func Evaluate(stations []model.Station, hoods []model.Neighborhood, c model.FilterCriteria, g geo.Geometry) Result {
	matched := Apply(stations, c)
	res := Result{Stations: matched, Status: model.StatusFor(len(matched))}

	name := strings.TrimSpace(c.Neighborhood)
	if name == "" || g == nil {
		return res
	}
	var hit *model.Neighborhood
	for i := range hoods {
		if !strings.EqualFold(hoods[i].Name(), name) {
			continue
		}
		if hit != nil {
			return res
		}
		hit = &hoods[i]
	}
	if hit == nil {
		return res
	}
	if ctr, ok := g.Centroid(hit.Polygons); ok {
		res.Centroid = &ctr
	}
	return res
}
