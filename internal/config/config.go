package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
	"github.com/joho/godotenv"
)

// Default sources. The SMN and ICAO tables are published gists; the registry
// is the FCEN station location page.
const (
	DefaultSMNURL      = "https://gist.githubusercontent.com/jeredeldo/80943d8e022f58e387d578b4e75ea680/raw/315aaf51efd7844a347f73d7449183cf9c0393cc/SMN.CSV"
	DefaultICAOURL     = "https://gist.githubusercontent.com/jeredeldo/571645d80a42dfb098c217529266a327/raw/36574b070a8d5e236559696cd54685bb69483723/ICAO.CSV"
	DefaultRegistryURL = "http://db.at.fcen.uba.ar/station/location_data"
	DefaultGeocoderURL = "https://iatageo.com"
)

// Config holds all run settings, populated from environment variables.
type Config struct {
	SMNURL      string
	ICAOURL     string
	RegistryURL string
	OutputDir   string

	LogLevel        string
	LogFormat       string
	HTTPAddr        string
	ShutdownTimeout time.Duration

	// ICAO geocoding API.
	GeocoderEnabled    bool
	GeocoderURL        string
	GeocoderTimeout    time.Duration
	GeocoderAttempts   int
	GeocoderRetryDelay time.Duration
	GeocoderCacheSize  int

	// Export options.
	IncludeMonths  bool
	XLSXEnabled    bool
	HeatmapCellDeg float64

	// Optional sinks.
	DatabaseURL    string
	KafkaBrokers   []string
	KafkaTopic     string
	PushgatewayURL string
}

// Load reads configuration from environment variables, applying defaults where
// unset. A .env file in the working directory, when present, seeds variables
// that are not already set.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	geocoderTimeout, err := parsePositiveDuration("GEOCODER_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	retryDelay, err := time.ParseDuration(sharedcfg.EnvOrDefault("GEOCODER_RETRY_DELAY", "1.5s"))
	if err != nil || retryDelay < 0 {
		return nil, errors.New("invalid GEOCODER_RETRY_DELAY")
	}

	attempts, err := strconv.Atoi(sharedcfg.EnvOrDefault("GEOCODER_ATTEMPTS", "3"))
	if err != nil || attempts < 1 || attempts > 10 {
		return nil, errors.New("invalid GEOCODER_ATTEMPTS: must be between 1 and 10")
	}

	cacheSize, err := strconv.Atoi(sharedcfg.EnvOrDefault("GEOCODER_CACHE_SIZE", "0"))
	if err != nil || cacheSize < 0 {
		return nil, errors.New("invalid GEOCODER_CACHE_SIZE")
	}

	cellDeg, err := strconv.ParseFloat(sharedcfg.EnvOrDefault("HEATMAP_CELL_DEG", "0.6"), 64)
	if err != nil || cellDeg <= 0 {
		return nil, errors.New("invalid HEATMAP_CELL_DEG")
	}

	geocoderEnabled, err := parseBool("GEOCODER_ENABLED", true)
	if err != nil {
		return nil, err
	}
	includeMonths, err := parseBool("INCLUDE_MONTHS", false)
	if err != nil {
		return nil, err
	}
	xlsxEnabled, err := parseBool("XLSX_ENABLED", false)
	if err != nil {
		return nil, err
	}

	var brokers []string
	if v := strings.TrimSpace(os.Getenv("KAFKA_BROKERS")); v != "" {
		brokers = sharedcfg.ParseBrokers(v)
	}

	cfg := &Config{
		SMNURL:      sharedcfg.EnvOrDefault("SMN_URL", DefaultSMNURL),
		ICAOURL:     sharedcfg.EnvOrDefault("ICAO_URL", DefaultICAOURL),
		RegistryURL: sharedcfg.EnvOrDefault("REGISTRY_URL", DefaultRegistryURL),
		OutputDir:   sharedcfg.EnvOrDefault("OUTPUT_DIR", "."),

		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "text"),
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		ShutdownTimeout: shutdownTimeout,

		GeocoderEnabled:    geocoderEnabled,
		GeocoderURL:        sharedcfg.EnvOrDefault("GEOCODER_URL", DefaultGeocoderURL),
		GeocoderTimeout:    geocoderTimeout,
		GeocoderAttempts:   attempts,
		GeocoderRetryDelay: retryDelay,
		GeocoderCacheSize:  cacheSize,

		IncludeMonths:  includeMonths,
		XLSXEnabled:    xlsxEnabled,
		HeatmapCellDeg: cellDeg,

		DatabaseURL:    os.Getenv("DATABASE_URL"),
		KafkaBrokers:   brokers,
		KafkaTopic:     sharedcfg.EnvOrDefault("KAFKA_TOPIC", "wind-stations"),
		PushgatewayURL: os.Getenv("PUSHGATEWAY_URL"),
	}

	if cfg.SMNURL == "" {
		return nil, errors.New("SMN_URL is required")
	}
	if cfg.ICAOURL == "" {
		return nil, errors.New("ICAO_URL is required")
	}
	if cfg.GeocoderEnabled && cfg.GeocoderURL == "" {
		return nil, errors.New("GEOCODER_ENABLED is true but GEOCODER_URL is not set")
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaTopic == "" {
		return nil, errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

func parsePositiveDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
