package model

import (
	"fmt"
	"strings"
)

type ConnectorLevel string

const (
	Level1 ConnectorLevel = "level-1"
	Level2 ConnectorLevel = "level-2"
	DCFast ConnectorLevel = "dc-fast"
)

// ParseConnectorLevel accepts the canonical names and the short dropdown values.
func ParseConnectorLevel(s string) (ConnectorLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "level-1", "level1", "1":
		return Level1, nil
	case "level-2", "level2", "2":
		return Level2, nil
	case "dc-fast", "dcfast", "dc":
		return DCFast, nil
	default:
		return "", fmt.Errorf("unknown connector level %q (want level-1|level-2|dc-fast)", s)
	}
}

// FilterCriteria holds optional constraints, empty fields impose none.
type FilterCriteria struct {
	Level         *ConnectorLevel `json:"level,omitempty"`
	ConnectorType string          `json:"connector_type,omitempty"`
	Network       string          `json:"network,omitempty"`
	Neighborhood  string          `json:"neighborhood,omitempty"`
}

func (c FilterCriteria) IsEmpty() bool {
	return c.Level == nil &&
		strings.TrimSpace(c.ConnectorType) == "" &&
		c.Network == "" &&
		strings.TrimSpace(c.Neighborhood) == ""
}

type ResultKind string

const (
	KindStation      ResultKind = "station"
	KindNeighborhood ResultKind = "neighborhood"
)

type SearchResult struct {
	Kind       ResultKind `json:"kind"`
	Label      string     `json:"label"`
	Coordinate Coordinate `json:"coordinate"`
	Address    string     `json:"address,omitempty"`
}

// Status separates a valid empty answer from a failure.
type Status string

const (
	StatusOK        Status = "ok"
	StatusNoResults Status = "no_results"
)

func StatusFor(n int) Status {
	if n == 0 {
		return StatusNoResults
	}
	return StatusOK
}
