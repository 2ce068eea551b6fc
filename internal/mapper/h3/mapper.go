package h3mapper

import (
	"fmt"
	"sort"

	h3 "github.com/uber/h3-go/v4"

	"github.com/mohammed-shakir/seattle-ev-map/internal/core/model"
	"github.com/mohammed-shakir/seattle-ev-map/internal/mapper"
)

type Mapper struct{}

var _ mapper.Interface = (*Mapper)(nil)

func New() *Mapper { return &Mapper{} }

func (m *Mapper) CellForPoint(c model.Coordinate, res int) (string, error) {
	if err := validateRes(res); err != nil {
		return "", err
	}
	if !c.Valid() {
		return "", fmt.Errorf("invalid coordinate [%v,%v]", c.Lon, c.Lat)
	}
	cell, err := h3.LatLngToCell(h3.LatLng{Lat: c.Lat, Lng: c.Lon}, res)
	if err != nil {
		return "", fmt.Errorf("h3 cell: %w", err)
	}
	return cell.String(), nil
}

// Cluster buckets stations by cell at res, sorted by cell id for determinism.
// Stations that already carry a finer cell are rolled up to their parent.
func (m *Mapper) Cluster(stations []model.Station, res int) ([]model.Cluster, error) {
	if err := validateRes(res); err != nil {
		return nil, err
	}
	counts := make(map[string]int)
	for i, st := range stations {
		cell, err := m.cellAt(st, res)
		if err != nil {
			return nil, fmt.Errorf("station %d: %w", i, err)
		}
		counts[cell]++
	}

	out := make([]model.Cluster, 0, len(counts))
	for cell, n := range counts {
		center, err := cellCenter(cell)
		if err != nil {
			return nil, err
		}
		out = append(out, model.Cluster{Cell: cell, Center: center, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Cell < out[j].Cell })
	return out, nil
}

func (m *Mapper) cellAt(st model.Station, res int) (string, error) {
	if st.H3Cell != "" {
		if p, err := m.ToParent(st.H3Cell, res); err == nil {
			return p, nil
		}
	}
	return m.CellForPoint(st.Coordinate, res)
}

// --- helpers ---

func validateRes(res int) error {
	if res < 0 || res > 15 {
		return fmt.Errorf("invalid H3 resolution %d (must be 0..15)", res)
	}
	return nil
}

func cellCenter(cell string) (model.Coordinate, error) {
	var c h3.Cell
	if err := c.UnmarshalText([]byte(cell)); err != nil {
		return model.Coordinate{}, fmt.Errorf("parse cell: %w", err)
	}
	ll, err := c.LatLng()
	if err != nil {
		return model.Coordinate{}, fmt.Errorf("h3 center: %w", err)
	}
	return model.Coordinate{Lon: ll.Lng, Lat: ll.Lat}, nil
}
