// Package geo declares the geometry capabilities the query engine depends on.
package geo

import "github.com/mohammed-shakir/seattle-ev-map/internal/core/model"

// Geometry is the computational-geometry collaborator. A nil Geometry means the
// capability is unavailable and callers fall back to their degraded mode.
type Geometry interface {
	Contains(poly model.Polygon, pt model.Coordinate) bool
	// Distance returns the great-circle distance in miles.
	Distance(a, b model.Coordinate) float64
	Bound(polys []model.Polygon) model.BBox
	Centroid(polys []model.Polygon) (model.Coordinate, bool)
}

const (
	MetersPerMile    = 1609.344
	EarthRadiusMiles = 3958.8
)

// ContainsAny reports whether any polygon of a (multi)polygon contains pt.
func ContainsAny(g Geometry, polys []model.Polygon, pt model.Coordinate) bool {
	for _, p := range polys {
		if g.Contains(p, pt) {
			return true
		}
	}
	return false
}
