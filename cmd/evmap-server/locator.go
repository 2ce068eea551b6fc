package main

import (
	"log/slog"

	"github.com/mohammed-shakir/seattle-ev-map/internal/core/config"
	"github.com/mohammed-shakir/seattle-ev-map/internal/locate"
	"github.com/mohammed-shakir/seattle-ev-map/internal/view"
)

// buildLocator prefers GeoIP when a database is configured and falls back to
// the configured default origin, then the map's default center.
func buildLocator(cfg config.Config, log *slog.Logger) locate.Locator {
	var chain locate.Chain
	if cfg.GeoIPDB != "" {
		g, err := locate.OpenGeoIP(cfg.GeoIPDB)
		if err != nil {
			log.Warn("geoip database unavailable", "path", cfg.GeoIPDB, "err", err)
		} else {
			chain = append(chain, g)
		}
	}
	origin := view.DefaultCenter
	if cfg.DefaultOrigin != nil {
		origin = *cfg.DefaultOrigin
	}
	chain = append(chain, locate.Static{Origin: origin})
	return locate.WithTimeout(chain, cfg.LocateTimeout)
}
