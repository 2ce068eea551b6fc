// Package search implements text and proximity queries over stations and neighborhoods.
package search

import (
	"strings"

	"github.com/mohammed-shakir/seattle-ev-map/internal/core/model"
)

// Text matches query as a case-insensitive substring. Station hits come
// before neighborhood hits; each group keeps dataset order. A neighborhood
// hit is anchored at the first vertex of its first ring.
func Text(query string, stations []model.Station, hoods []model.Neighborhood) []model.SearchResult {
	q := NormalizeQuery(query)
	if q == "" {
		return nil
	}

	var out []model.SearchResult
	for _, st := range stations {
		if containsFold(q, st.Name, st.Address, st.City, st.Zip, st.Network) {
			out = append(out, model.SearchResult{
				Kind:       model.KindStation,
				Label:      st.Name,
				Coordinate: st.Coordinate,
				Address:    st.FormattedAddress(),
			})
		}
	}
	for _, n := range hoods {
		if !containsFold(q, n.LargeName, n.SmallName) {
			continue
		}
		c, ok := n.FirstVertex()
		if !ok {
			continue
		}
		out = append(out, model.SearchResult{
			Kind:       model.KindNeighborhood,
			Label:      n.Name(),
			Coordinate: c,
		})
	}
	return out
}

// NormalizeQuery trims and lower-cases q.
func NormalizeQuery(q string) string {
	return strings.ToLower(strings.TrimSpace(q))
}

func containsFold(lowerQ string, fields ...string) bool {
	for _, f := range fields {
		if f != "" && strings.Contains(strings.ToLower(f), lowerQ) {
			return true
		}
	}
	return false
}
