// Package orbgeo implements geo.Geometry on top of paulmach/orb.
package orbgeo

import (
	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"

	"github.com/mohammed-shakir/seattle-ev-map/internal/core/model"
	"github.com/mohammed-shakir/seattle-ev-map/internal/geo"
)

type Geometry struct{}

var _ geo.Geometry = Geometry{}

func New() Geometry { return Geometry{} }

func (Geometry) Contains(poly model.Polygon, pt model.Coordinate) bool {
	op := ToPolygon(poly)
	if len(op) == 0 {
		return false
	}
	p := ToPoint(pt)
	// bound check first, PolygonContains walks every edge
	if !op.Bound().Contains(p) {
		return false
	}
	return planar.PolygonContains(op, p)
}

// Distance rescales orb's haversine from its equatorial radius to the mean earth radius.
func (Geometry) Distance(a, b model.Coordinate) float64 {
	return orbgeo.DistanceHaversine(ToPoint(a), ToPoint(b)) / orb.EarthRadius * geo.EarthRadiusMiles
}

func (Geometry) Bound(polys []model.Polygon) model.BBox {
	var out model.BBox
	for _, p := range polys {
		for _, r := range p {
			for _, c := range r {
				out = out.Extend(c)
			}
		}
	}
	return out
}

func (Geometry) Centroid(polys []model.Polygon) (model.Coordinate, bool) {
	mp := ToMultiPolygon(polys)
	if len(mp) == 0 {
		return model.Coordinate{}, false
	}
	var g orb.Geometry = mp
	if len(mp) == 1 {
		g = mp[0]
	}
	c, area := planar.CentroidArea(g)
	if area == 0 {
		return model.Coordinate{}, false
	}
	return FromPoint(c), true
}

func ToPoint(c model.Coordinate) orb.Point { return orb.Point{c.Lon, c.Lat} }

func FromPoint(p orb.Point) model.Coordinate { return model.Coordinate{Lon: p.Lon(), Lat: p.Lat()} }

func ToPolygon(p model.Polygon) orb.Polygon {
	out := make(orb.Polygon, 0, len(p))
	for _, r := range p {
		ring := make(orb.Ring, 0, len(r))
		for _, c := range r {
			ring = append(ring, ToPoint(c))
		}
		out = append(out, ring)
	}
	return out
}

func ToMultiPolygon(polys []model.Polygon) orb.MultiPolygon {
	out := make(orb.MultiPolygon, 0, len(polys))
	for _, p := range polys {
		if op := ToPolygon(p); len(op) > 0 {
			out = append(out, op)
		}
	}
	return out
}

// FromPolygon converts an orb polygon, dropping nothing.
func FromPolygon(p orb.Polygon) model.Polygon {
	out := make(model.Polygon, 0, len(p))
	for _, r := range p {
		ring := make(model.Ring, 0, len(r))
		for _, pt := range r {
			ring = append(ring, FromPoint(pt))
		}
		out = append(out, ring)
	}
	return out
}
