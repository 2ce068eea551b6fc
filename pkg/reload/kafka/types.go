package kafka

import (
	"fmt"
	"time"
)

const (
	DatasetStations      = "stations"
	DatasetNeighborhoods = "neighborhoods"
	DatasetAll           = "all"
)

// ReloadEvent asks every server to re-fetch one or both datasets.
type ReloadEvent struct {
	Version uint64    `json:"version"`
	Dataset string    `json:"dataset"`
	TS      time.Time `json:"ts"`
	Op      string    `json:"op,omitempty"`
}

func (e ReloadEvent) Validate() error {
	if e.Version == 0 {
		return fmt.Errorf("version must be > 0")
	}
	switch e.Dataset {
	case DatasetStations, DatasetNeighborhoods, DatasetAll:
	default:
		return fmt.Errorf("dataset must be stations|neighborhoods|all (got %q)", e.Dataset)
	}
	switch e.Op {
	case "", "reload", "refresh":
	default:
		return fmt.Errorf("op must be reload|refresh (got %q)", e.Op)
	}
	if e.TS.IsZero() {
		return fmt.Errorf("ts is required")
	}
	return nil
}

// datasets expands "all" into the concrete dataset kinds.
func (e ReloadEvent) datasets() []string {
	if e.Dataset == DatasetAll {
		return []string{DatasetStations, DatasetNeighborhoods}
	}
	return []string{e.Dataset}
}
