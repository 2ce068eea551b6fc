package router

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/mohammed-shakir/seattle-ev-map/internal/core/model"
)

const maxQueryLen = 200

// ParseFilter reads level, connector, network and neighborhood. Empty values impose nothing.
func ParseFilter(v url.Values) (model.FilterCriteria, error) {
	var c model.FilterCriteria
	if raw := strings.TrimSpace(v.Get("level")); raw != "" {
		l, err := model.ParseConnectorLevel(raw)
		if err != nil {
			return model.FilterCriteria{}, err
		}
		c.Level = &l
	}
	c.ConnectorType = strings.TrimSpace(v.Get("connector"))
	// network is an exact match, only surrounding whitespace from the form is dropped
	c.Network = strings.TrimSpace(v.Get("network"))
	c.Neighborhood = strings.TrimSpace(v.Get("neighborhood"))
	return c, nil
}

func ParseClip(v url.Values, def bool) (bool, error) {
	raw := strings.TrimSpace(v.Get("clip"))
	if raw == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("clip must be true or false (got %q)", raw)
	}
	return b, nil
}

func ParseSearchQuery(v url.Values) (string, error) {
	q := v.Get("q")
	if len(q) > maxQueryLen {
		return "", fmt.Errorf("query longer than %d characters", maxQueryLen)
	}
	return q, nil
}

// ParseOrigin returns nil when neither lon nor lat is given.
func ParseOrigin(v url.Values) (*model.Coordinate, error) {
	rawLon, rawLat := strings.TrimSpace(v.Get("lon")), strings.TrimSpace(v.Get("lat"))
	if rawLon == "" && rawLat == "" {
		return nil, nil
	}
	if rawLon == "" || rawLat == "" {
		return nil, errors.New("lon and lat must be given together")
	}
	lon, err := parseFloat(rawLon)
	if err != nil {
		return nil, fmt.Errorf("lon: %w", err)
	}
	lat, err := parseFloat(rawLat)
	if err != nil {
		return nil, fmt.Errorf("lat: %w", err)
	}
	c := model.Coordinate{Lon: lon, Lat: lat}
	if !c.Valid() {
		return nil, errors.New("longitude must be in [-180,180] and latitude in [-90,90]")
	}
	return &c, nil
}

func ParseRadius(v url.Values, def float64) (float64, error) {
	raw := strings.TrimSpace(v.Get("radius"))
	if raw == "" {
		return def, nil
	}
	r, err := parseFloat(raw)
	if err != nil {
		return 0, fmt.Errorf("radius: %w", err)
	}
	if math.IsNaN(r) || math.IsInf(r, 0) || r <= 0 {
		return 0, fmt.Errorf("radius must be a positive number of miles (got %q)", raw)
	}
	return r, nil
}

func ParseRes(v url.Values, def int) (int, error) {
	raw := strings.TrimSpace(v.Get("res"))
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 || n > 15 {
		return 0, fmt.Errorf("res must be an integer in [0,15] (got %q)", raw)
	}
	return n, nil
}

func parseFloat(v string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
	if err != nil {
		return 0, fmt.Errorf("parse float: %w", err)
	}
	return f, nil
}
