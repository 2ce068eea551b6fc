// Package source fetches the raw station and neighborhood GeoJSON payloads.
package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mohammed-shakir/seattle-ev-map/internal/core/observability"
)

// Fetcher returns the full raw payload of one dataset.
type Fetcher interface {
	Fetch(ctx context.Context) ([]byte, error)
	// Location is the URL or path the payload comes from.
	Location() string
}

type Options struct {
	Logger         *slog.Logger
	HTTPClient     *http.Client
	S3Region       string
	MinioAccessKey string
	MinioSecretKey string
	MinioSecure    bool
}

// Open selects a driver by the location's scheme. A bare path is a file.
func Open(ctx context.Context, location string, opts Options) (Fetcher, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, fmt.Errorf("empty source location")
	}
	u, err := url.Parse(location)
	if err != nil || u.Scheme == "" || len(u.Scheme) == 1 {
		// len 1 covers windows drive letters
		return NewFile(location), nil
	}

	switch u.Scheme {
	case "file":
		return NewFile(u.Path), nil
	case "http", "https":
		return NewHTTP(opts.HTTPClient, location), nil
	case "s3":
		return openS3(ctx, u, opts)
	case "minio":
		return openMinio(u, opts)
	default:
		return nil, fmt.Errorf("unsupported source scheme %q in %q", u.Scheme, location)
	}
}

// FetchBoth fetches both datasets concurrently and returns only when both are done.
func FetchBoth(ctx context.Context, stations, neighborhoods Fetcher) (stationsRaw, neighborhoodsRaw []byte, err error) {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		b, err := stations.Fetch(gctx)
		if err != nil {
			return fmt.Errorf("fetch stations from %s: %w", stations.Location(), err)
		}
		stationsRaw = b
		return nil
	})
	g.Go(func() error {
		b, err := neighborhoods.Fetch(gctx)
		if err != nil {
			return fmt.Errorf("fetch neighborhoods from %s: %w", neighborhoods.Location(), err)
		}
		neighborhoodsRaw = b
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return stationsRaw, neighborhoodsRaw, nil
}

func observe(driver string, start time.Time, err error) {
	observability.ObserveUpstreamLatency(driver, err, time.Since(start).Seconds())
}

func bucketAndKey(u *url.URL) (string, string, error) {
	bucket, key := u.Host, strings.TrimPrefix(u.Path, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("location %q must be <scheme>://bucket/key", u.String())
	}
	return bucket, key, nil
}
