package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/mohammed-shakir/seattle-ev-map/internal/core/model"
)

type SourceCfg struct {
	StationsURL      string
	NeighborhoodsURL string
	FetchTimeout     time.Duration
	CacheEnabled     bool
	CacheTTL         time.Duration
	S3Region         string
	MinioAccessKey   string
	MinioSecretKey   string
	MinioSecure      bool
}

type ReloadCfg struct {
	Enabled bool
	Brokers string
	Topic   string
	GroupID string
}

type Config struct {
	Addr                string
	LogLevel            string
	LogConsole          bool
	LogSampleN          int
	RedisAddr           string
	Source              SourceCfg
	GeoIPDB             string
	LocateTimeout       time.Duration
	DefaultOrigin       *model.Coordinate
	DefaultRadiusMiles  float64
	SearchCacheSize     int
	ClusterRes          int
	ClipToNeighborhoods bool
	Reload              ReloadCfg
}

// LoadDotEnv reads .env files if present, real environment variables win.
func LoadDotEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		_ = godotenv.Load(f)
	}
}

func FromEnv() Config {
	res := getint("CLUSTER_RES", 8)
	if res < 0 || res > 15 {
		res = 8
	}

	return Config{
		Addr:       getenv("ADDR", ":8090"),
		LogLevel:   getenv("LOG_LEVEL", "info"),
		LogConsole: getbool("LOG_CONSOLE", false),
		LogSampleN: getint("LOG_SAMPLE_N", 0),
		RedisAddr:  getenv("REDIS_ADDR", "localhost:6379"),
		Source: SourceCfg{
			StationsURL:      getenv("STATIONS_URL", "assets/seattle_ev_cleaned_clean.geojson"),
			NeighborhoodsURL: getenv("NEIGHBORHOODS_URL", "assets/neighborhoods_clean.geojson"),
			FetchTimeout:     getduration("FETCH_TIMEOUT", 30*time.Second),
			CacheEnabled:     getbool("SOURCE_CACHE_ENABLED", false),
			CacheTTL:         getduration("SOURCE_CACHE_TTL", time.Hour),
			S3Region:         getenv("S3_REGION", "us-west-2"),
			MinioAccessKey:   getenv("MINIO_ACCESS_KEY", ""),
			MinioSecretKey:   getenv("MINIO_SECRET_KEY", ""),
			MinioSecure:      getbool("MINIO_SECURE", true),
		},
		GeoIPDB:             getenv("GEOIP_DB", ""),
		LocateTimeout:       positive(getduration("LOCATE_TIMEOUT", defaultLocateTimeout), defaultLocateTimeout),
		DefaultOrigin:       parseCoordinate(getenv("DEFAULT_ORIGIN", "")),
		DefaultRadiusMiles:  getfloat("DEFAULT_RADIUS_MILES", 1.0),
		SearchCacheSize:     getint("SEARCH_CACHE_SIZE", 512),
		ClusterRes:          res,
		ClipToNeighborhoods: getbool("CLIP_TO_NEIGHBORHOODS", true),
		Reload: ReloadCfg{
			Enabled: getbool("RELOAD_ENABLED", false),
			Brokers: getenv("KAFKA_BROKERS", "localhost:9092"),
			Topic:   getenv("KAFKA_TOPIC", "dataset-reload"),
			GroupID: getenv("KAFKA_GROUP_ID", "evmap-reloader"),
		},
	}
}

const defaultLocateTimeout = 10 * time.Second

// a zero or negative bound would expire every lookup before it starts
func positive(d, def time.Duration) time.Duration {
	if d <= 0 {
		return def
	}
	return d
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getint(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v := os.Getenv(k); v != "" {
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "t", "true", "y", "yes":
			return true
		case "0", "f", "false", "n", "no":
			return false
		}
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v := os.Getenv(k); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getduration(k string, def time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// parse "lon,lat" into a coordinate, nil when absent or invalid
func parseCoordinate(s string) *model.Coordinate {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return nil
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return nil
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return nil
	}
	c := model.Coordinate{Lon: lon, Lat: lat}
	if !c.Valid() {
		return nil
	}
	return &c
}
