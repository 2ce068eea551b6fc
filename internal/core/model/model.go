// Package model defines core domain types shared across the service.
package model

import (
	"fmt"
	"math"
	"strings"
)

type Coordinate struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

func (c Coordinate) Valid() bool {
	if math.IsNaN(c.Lon) || math.IsNaN(c.Lat) || math.IsInf(c.Lon, 0) || math.IsInf(c.Lat, 0) {
		return false
	}
	return c.Lon >= -180 && c.Lon <= 180 && c.Lat >= -90 && c.Lat <= 90
}

// BBox is an axis-aligned lon/lat box. The zero value is empty.
type BBox struct {
	MinLon float64 `json:"min_lon"`
	MinLat float64 `json:"min_lat"`
	MaxLon float64 `json:"max_lon"`
	MaxLat float64 `json:"max_lat"`
	set    bool
}

func BBoxOf(c Coordinate) BBox {
	return BBox{MinLon: c.Lon, MinLat: c.Lat, MaxLon: c.Lon, MaxLat: c.Lat, set: true}
}

func (b BBox) Empty() bool { return !b.set }

// Extend grows the box to include c.
func (b BBox) Extend(c Coordinate) BBox {
	if !b.set {
		return BBoxOf(c)
	}
	b.MinLon = math.Min(b.MinLon, c.Lon)
	b.MinLat = math.Min(b.MinLat, c.Lat)
	b.MaxLon = math.Max(b.MaxLon, c.Lon)
	b.MaxLat = math.Max(b.MaxLat, c.Lat)
	return b
}

func (b BBox) Contains(c Coordinate) bool {
	return b.set && c.Lon >= b.MinLon && c.Lon <= b.MaxLon && c.Lat >= b.MinLat && c.Lat <= b.MaxLat
}

// String representation matching the x1,y1,x2,y2 order map clients expect
func (b BBox) String() string {
	return fmt.Sprintf("%.6f,%.6f,%.6f,%.6f", b.MinLon, b.MinLat, b.MaxLon, b.MaxLat)
}

type Station struct {
	Coordinate     Coordinate `json:"coordinate"`
	Name           string     `json:"name"`
	Address        string     `json:"address,omitempty"`
	City           string     `json:"city,omitempty"`
	State          string     `json:"state,omitempty"`
	Zip            string     `json:"zip,omitempty"`
	Network        string     `json:"network,omitempty"`
	Level1         int        `json:"level1"`
	Level2         int        `json:"level2"`
	DCFast         int        `json:"dc_fast"`
	ConnectorTypes string     `json:"connector_types,omitempty"`
	Neighborhood   *string    `json:"neighborhood"`
	H3Cell         string     `json:"h3_cell,omitempty"`
}

// FormattedAddress joins street, city and "state zip", skipping empty parts.
func (s Station) FormattedAddress() string {
	parts := make([]string, 0, 3)
	if v := strings.TrimSpace(s.Address); v != "" {
		parts = append(parts, v)
	}
	if v := strings.TrimSpace(s.City); v != "" {
		parts = append(parts, v)
	}
	tail := strings.TrimSpace(strings.TrimSpace(s.State) + " " + strings.TrimSpace(s.Zip))
	if tail != "" {
		parts = append(parts, tail)
	}
	return strings.Join(parts, ", ")
}

// NeighborhoodName returns the enriched neighborhood or "" when unassigned.
func (s Station) NeighborhoodName() string {
	if s.Neighborhood == nil {
		return ""
	}
	return *s.Neighborhood
}

// Ring is a closed loop of coordinates, Polygon is an outer ring followed by holes.
type (
	Ring    []Coordinate
	Polygon []Ring
)

type Neighborhood struct {
	LargeName string    `json:"large_name,omitempty"`
	SmallName string    `json:"small_name,omitempty"`
	Polygons  []Polygon `json:"-"`
}

// Name is the label used for enrichment and filtering.
func (n Neighborhood) Name() string {
	if s := strings.TrimSpace(n.SmallName); s != "" {
		return s
	}
	return strings.TrimSpace(n.LargeName)
}

// FirstVertex is the first vertex of the first ring, if any.
func (n Neighborhood) FirstVertex() (Coordinate, bool) {
	for _, p := range n.Polygons {
		for _, r := range p {
			if len(r) > 0 {
				return r[0], true
			}
		}
	}
	return Coordinate{}, false
}

type Cluster struct {
	Cell   string     `json:"cell"`
	Center Coordinate `json:"center"`
	Count  int        `json:"count"`
}
