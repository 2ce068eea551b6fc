package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/mohammed-shakir/seattle-ev-map/internal/ingest/clean"
	"github.com/mohammed-shakir/seattle-ev-map/internal/logger"
)

func main() {
	in := flag.String("in", "assets/seattle_ev_cleaned.csv", "AFDC station CSV export")
	outGeo := flag.String("geojson", "assets/seattle_ev_cleaned_clean.geojson", "cleaned GeoJSON output")
	outCSV := flag.String("csv", "assets/seattle_ev_cleaned_clean.csv", "cleaned CSV output, empty to skip")
	flag.Parse()

	zl := logger.Build(logger.Config{Level: "info", Console: true, Component: "clean-stations"}, os.Stderr)

	if err := run(*in, *outGeo, *outCSV, func(r clean.Report) {
		zl.Info().
			Int("rows_in", r.RowsIn).
			Int("rows_out", r.RowsOut).
			Int("invalid_coords", r.InvalidCoords).
			Int("duplicates", r.Duplicates).
			Msg("stations cleaned")
	}); err != nil {
		zl.Error().Err(err).Msg("clean failed")
		os.Exit(1)
	}
}

func run(in, outGeo, outCSV string, report func(clean.Report)) error {
	f, err := os.Open(in)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer func() { _ = f.Close() }()

	res, err := clean.Clean(f)
	if err != nil {
		return fmt.Errorf("clean %s: %w", in, err)
	}

	b, err := json.MarshalIndent(res.FeatureCollection(), "", "  ")
	if err != nil {
		return fmt.Errorf("encode geojson: %w", err)
	}
	if err := os.WriteFile(outGeo, b, 0o644); err != nil {
		return fmt.Errorf("write geojson: %w", err)
	}

	if outCSV != "" {
		cf, err := os.Create(outCSV)
		if err != nil {
			return fmt.Errorf("create csv: %w", err)
		}
		if err := res.WriteCSV(cf); err != nil {
			_ = cf.Close()
			return fmt.Errorf("write csv: %w", err)
		}
		if err := cf.Close(); err != nil {
			return fmt.Errorf("close csv: %w", err)
		}
	}
	report(res.Report)
	return nil
}
