package locate

import (
	"context"
	"fmt"
	"net"

	"github.com/oschwald/geoip2-golang"

	"github.com/mohammed-shakir/seattle-ev-map/internal/core/model"
)

type cityReader interface {
	City(ip net.IP) (*geoip2.City, error)
	Close() error
}

// GeoIP looks the client address up in a MaxMind City database.
type GeoIP struct {
	db cityReader
}

func OpenGeoIP(path string) (*GeoIP, error) {
	db, err := geoip2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open geoip db %s: %w", path, err)
	}
	return &GeoIP{db: db}, nil
}

func (g *GeoIP) Locate(ctx context.Context, ip string) (model.Coordinate, error) {
	if err := ctx.Err(); err != nil {
		return model.Coordinate{}, err
	}
	addr := net.ParseIP(ip)
	if addr == nil {
		return model.Coordinate{}, fmt.Errorf("%w: unparseable ip %q", ErrNoLocation, ip)
	}
	if addr.IsLoopback() || addr.IsPrivate() || addr.IsUnspecified() {
		return model.Coordinate{}, fmt.Errorf("%w: non-routable ip %s", ErrNoLocation, ip)
	}

	rec, err := g.db.City(addr)
	if err != nil {
		return model.Coordinate{}, fmt.Errorf("geoip lookup %s: %w", ip, err)
	}
	c := model.Coordinate{Lon: rec.Location.Longitude, Lat: rec.Location.Latitude}
	// the reader returns a zero location for addresses it does not know
	if (c.Lon == 0 && c.Lat == 0) || !c.Valid() {
		return model.Coordinate{}, fmt.Errorf("%w: %s", ErrNoLocation, ip)
	}
	return c, nil
}

func (g *GeoIP) Close() error {
	if err := g.db.Close(); err != nil {
		return fmt.Errorf("close geoip db: %w", err)
	}
	return nil
}
