package common

import (
	"errors"
	"fmt"
	"os"
	"strconv"
)

// Config drives the demo binary. The SDK itself is configured through
// devino.Configuration; this only maps environment variables onto it.
type Config struct {
	APIKey         string
	ApplicationID  string
	APIHost        string
	APIPort        int
	GeoIntervalMin int
	StorageDir     string
	MetricsPort    int
	OTLPEndpoint   string
	ServiceName    string
}

func LoadConfig(service string) (*Config, error) {
	cfg := &Config{ServiceName: service}

	cfg.APIKey = os.Getenv("DEVINO_API_KEY")
	if cfg.APIKey == "" {
		return nil, errors.New("DEVINO_API_KEY must be provided")
	}
	cfg.ApplicationID = getEnv("DEVINO_APPLICATION_ID", "com.devino.demo")
	cfg.APIHost = os.Getenv("DEVINO_API_HOST")
	cfg.StorageDir = os.Getenv("DEVINO_STORAGE_DIR")
	cfg.OTLPEndpoint = os.Getenv("OTLP_ENDPOINT")

	apiPort, err := getEnvInt("DEVINO_API_PORT", 0)
	if err != nil {
		return nil, err
	}
	cfg.APIPort = apiPort

	geoInterval, err := getEnvInt("DEVINO_GEO_INTERVAL_MIN", 0)
	if err != nil {
		return nil, err
	}
	cfg.GeoIntervalMin = geoInterval

	metricsPort, err := getEnvInt("METRICS_PORT", 9090)
	if err != nil {
		return nil, err
	}
	cfg.MetricsPort = metricsPort

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	if v := os.Getenv(key); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("invalid value for %s: %w", key, err)
		}
		return parsed, nil
	}
	return fallback, nil
}
