// Package mapper converts between geometric coordinates and H3 cells.
package mapper

import (
	"github.com/mohammed-shakir/seattle-ev-map/internal/core/model"
)

type Interface interface {
	CellForPoint(c model.Coordinate, res int) (string, error)
	Cluster(stations []model.Station, res int) ([]model.Cluster, error)
}
