package search

import (
	"errors"
	"fmt"
	"math"

	"github.com/mohammed-shakir/seattle-ev-map/internal/core/model"
	"github.com/mohammed-shakir/seattle-ev-map/internal/geo"
)

var (
	ErrInvalidRadius       = errors.New("radius must be a finite number greater than zero")
	ErrInvalidOrigin       = errors.New("origin must be a valid lon/lat coordinate")
	ErrGeometryUnavailable = errors.New("distance computation unavailable")
)

type RadiusResult struct {
	Origin   model.Coordinate `json:"origin"`
	Miles    float64          `json:"radius_miles"`
	Stations []model.Station  `json:"stations"`
	BBox     model.BBox       `json:"bbox"`
	Status   model.Status     `json:"status"`
}

func ValidateRadius(miles float64) error {
	if math.IsNaN(miles) || math.IsInf(miles, 0) || miles <= 0 {
		return fmt.Errorf("%w (got %v)", ErrInvalidRadius, miles)
	}
	return nil
}

func ValidateOrigin(c model.Coordinate) error {
	if !c.Valid() {
		return fmt.Errorf("%w (got [%v,%v])", ErrInvalidOrigin, c.Lon, c.Lat)
	}
	return nil
}

// Radius returns every station within miles of origin, boundary inclusive,
// in dataset order, with a bbox enclosing the origin and all matches.
func Radius(origin model.Coordinate, miles float64, stations []model.Station, g geo.Geometry) (RadiusResult, error) {
	if err := validate(origin, miles, g); err != nil {
		return RadiusResult{}, err
	}
	matched := make([]model.Station, 0)
	for _, st := range stations {
		if g.Distance(origin, st.Coordinate) <= miles {
			matched = append(matched, st)
		}
	}
	return newResult(origin, miles, matched), nil
}

func validate(origin model.Coordinate, miles float64, g geo.Geometry) error {
	if err := ValidateRadius(miles); err != nil {
		return err
	}
	if err := ValidateOrigin(origin); err != nil {
		return err
	}
	if g == nil {
		return ErrGeometryUnavailable
	}
	return nil
}

func newResult(origin model.Coordinate, miles float64, matched []model.Station) RadiusResult {
	bb := model.BBoxOf(origin)
	for _, st := range matched {
		bb = bb.Extend(st.Coordinate)
	}
	return RadiusResult{
		Origin:   origin,
		Miles:    miles,
		Stations: matched,
		BBox:     bb,
		Status:   model.StatusFor(len(matched)),
	}
}
