// Package dataset holds the loaded station and neighborhood collections.
package dataset

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mohammed-shakir/seattle-ev-map/internal/core/model"
	"github.com/mohammed-shakir/seattle-ev-map/internal/geo"
)

// CellAssigner maps a coordinate to a spatial cell id.
type CellAssigner interface {
	CellForPoint(c model.Coordinate, res int) (string, error)
}

type Options struct {
	Geometry geo.Geometry
	Logger   *slog.Logger
	Version  uint64
	Cells    CellAssigner
	CellRes  int
}

type Stats struct {
	Stations      int  `json:"stations"`
	Neighborhoods int  `json:"neighborhoods"`
	Enriched      int  `json:"enriched"`
	Unmatched     int  `json:"unmatched"`
	Degraded      bool `json:"degraded"`
}

// Store is read-only after construction.
type Store struct {
	stations      []model.Station
	within        []model.Station
	neighborhoods []model.Neighborhood
	version       uint64
	loadedAt      time.Time
	stats         Stats
}

// Load decodes both raw FeatureCollections and builds an enriched store.
func Load(stationsRaw, neighborhoodsRaw []byte, opts Options) (*Store, error) {
	stations, err := DecodeStations(stationsRaw)
	if err != nil {
		return nil, fmt.Errorf("decode stations: %w", err)
	}
	hoods, err := DecodeNeighborhoods(neighborhoodsRaw)
	if err != nil {
		return nil, fmt.Errorf("decode neighborhoods: %w", err)
	}
	return Build(stations, hoods, opts), nil
}

// Build enriches typed records. The inputs are not modified.
func Build(stations []model.Station, hoods []model.Neighborhood, opts Options) *Store {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	enriched := Enrich(stations, hoods, opts.Geometry)
	if opts.Cells != nil {
		assignCells(enriched, opts.Cells, opts.CellRes, log)
	}

	s := &Store{
		stations:      enriched,
		neighborhoods: append([]model.Neighborhood(nil), hoods...),
		version:       opts.Version,
		loadedAt:      time.Now(),
	}
	for _, st := range enriched {
		if st.Neighborhood != nil {
			s.within = append(s.within, st)
		}
	}
	s.stats = Stats{
		Stations:      len(enriched),
		Neighborhoods: len(hoods),
		Enriched:      len(s.within),
		Unmatched:     len(enriched) - len(s.within),
		Degraded:      opts.Geometry == nil,
	}

	if opts.Geometry == nil {
		log.Warn("geometry unavailable; stations left without neighborhood",
			"stations", len(enriched))
	}
	log.Info("dataset loaded",
		"version", s.version,
		"stations", s.stats.Stations,
		"neighborhoods", s.stats.Neighborhoods,
		"unmatched", s.stats.Unmatched)
	return s
}

// Enrich returns a copy of stations with Neighborhood set to the first
// containing neighborhood in dataset order, or nil. A nil geometry leaves
// every station unassigned.
func Enrich(stations []model.Station, hoods []model.Neighborhood, g geo.Geometry) []model.Station {
	out := make([]model.Station, len(stations))
	for i, st := range stations {
		st.Neighborhood = nil
		if g != nil {
			for _, n := range hoods {
				if geo.ContainsAny(g, n.Polygons, st.Coordinate) {
					name := n.Name()
					st.Neighborhood = &name
					break
				}
			}
		}
		out[i] = st
	}
	return out
}

func assignCells(stations []model.Station, cells CellAssigner, res int, log *slog.Logger) {
	failed := 0
	for i := range stations {
		c, err := cells.CellForPoint(stations[i].Coordinate, res)
		if err != nil {
			failed++
			continue
		}
		stations[i].H3Cell = c
	}
	if failed > 0 {
		log.Warn("cell assignment failed for some stations", "failed", failed, "res", res)
	}
}

func (s *Store) Stations() []model.Station { return s.stations }

// Within returns only stations inside some neighborhood.
func (s *Store) Within() []model.Station { return s.within }

func (s *Store) Neighborhoods() []model.Neighborhood { return s.neighborhoods }

func (s *Store) Version() uint64 { return s.version }

func (s *Store) LoadedAt() time.Time { return s.loadedAt }

func (s *Store) Stats() Stats { return s.stats }

// NeighborhoodsNamed returns neighborhoods whose name equals name, ignoring case.
func (s *Store) NeighborhoodsNamed(name string) []model.Neighborhood {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	var out []model.Neighborhood
	for _, n := range s.neighborhoods {
		if strings.EqualFold(n.Name(), name) {
			out = append(out, n)
		}
	}
	return out
}

// NeighborhoodNames lists names in dataset order without duplicates.
func (s *Store) NeighborhoodNames() []string {
	seen := make(map[string]struct{}, len(s.neighborhoods))
	out := make([]string, 0, len(s.neighborhoods))
	for _, n := range s.neighborhoods {
		k := n.Name()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}
