package search

import (
	"math"
	"sort"

	"github.com/tidwall/rtree"

	"github.com/mohammed-shakir/seattle-ev-map/internal/core/model"
	"github.com/mohammed-shakir/seattle-ev-map/internal/geo"
)

// miles per degree of latitude, rounded down so the search box over-covers
const milesPerDegreeLat = 68.0

// Index prefilters proximity candidates with an R-tree. Results match Radius.
type Index struct {
	tree     rtree.RTree
	stations []model.Station
}

func NewIndex(stations []model.Station) *Index {
	idx := &Index{stations: stations}
	for i, st := range stations {
		p := [2]float64{st.Coordinate.Lon, st.Coordinate.Lat}
		idx.tree.Insert(p, p, i)
	}
	return idx
}

func (x *Index) Len() int { return len(x.stations) }

func (x *Index) Radius(origin model.Coordinate, miles float64, g geo.Geometry) (RadiusResult, error) {
	if err := validate(origin, miles, g); err != nil {
		return RadiusResult{}, err
	}

	lo, hi, ok := searchBox(origin, miles)
	if !ok {
		return Radius(origin, miles, x.stations, g)
	}

	var cand []int
	x.tree.Search(lo, hi, func(_, _ [2]float64, data interface{}) bool {
		if i, ok := data.(int); ok {
			cand = append(cand, i)
		}
		return true
	})
	sort.Ints(cand)

	matched := make([]model.Station, 0, len(cand))
	for _, i := range cand {
		st := x.stations[i]
		if g.Distance(origin, st.Coordinate) <= miles {
			matched = append(matched, st)
		}
	}
	return newResult(origin, miles, matched), nil
}

// searchBox returns a lon/lat box that contains every point within miles of
// origin. ok is false when the box would wrap the antimeridian or a pole.
func searchBox(origin model.Coordinate, miles float64) (lo, hi [2]float64, ok bool) {
	dLat := miles / milesPerDegreeLat * 1.05
	maxAbsLat := math.Abs(origin.Lat) + dLat
	if maxAbsLat >= 89 {
		return lo, hi, false
	}
	dLon := dLat / math.Cos(maxAbsLat*math.Pi/180)
	if origin.Lon-dLon < -180 || origin.Lon+dLon > 180 {
		return lo, hi, false
	}
	lo = [2]float64{origin.Lon - dLon, origin.Lat - dLat}
	hi = [2]float64{origin.Lon + dLon, origin.Lat + dLat}
	return lo, hi, true
}
