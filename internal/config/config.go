package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Static geophysical datasets, loaded once at startup.
	Vs30DatasetPath   string
	FaultsGeoJSONPath string

	// Upstream seismic feed settings.
	ProviderTimeout time.Duration
	CacheTTL        time.Duration

	// Optional canonical event stream sink.
	KafkaBrokers  []string
	KafkaSinkTopic string
	KafkaEnabled  bool
}

// Load reads configuration from environment variables, applying defaults
// where unset. A .env file in the working directory is honored when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	providerTimeout, err := parseDuration("PROVIDER_TIMEOUT", "15s")
	if err != nil {
		return nil, err
	}
	cacheTTL, err := parseDuration("CACHE_TTL", "10m")
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	brokers := splitBrokers(os.Getenv("KAFKA_BROKERS"))
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	httpAddr := envOrDefault("HTTP_ADDR", "")
	if httpAddr == "" {
		// Legacy deployments configure a bare port number instead.
		if port := os.Getenv("VS30_PORT"); port != "" {
			httpAddr, err = ParsePort(port)
			if err != nil {
				return nil, err
			}
		} else {
			httpAddr = ":4000"
		}
	}

	cfg := &Config{
		HTTPAddr:          httpAddr,
		LogLevel:          envOrDefault("LOG_LEVEL", "info"),
		LogFormat:         envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout:   shutdownTimeout,
		Vs30DatasetPath:   envOrDefault("VS30_DATASET", "data/global_vs30.asc"),
		FaultsGeoJSONPath: envOrDefault("FAULTS_GEOJSON", "data/faults.geojson"),
		ProviderTimeout:   providerTimeout,
		CacheTTL:          cacheTTL,
		KafkaBrokers:      brokers,
		KafkaSinkTopic:    envOrDefault("KAFKA_SINK_TOPIC", "canonical-quake-events"),
		KafkaEnabled:      kafkaEnabled,
	}

	if cfg.Vs30DatasetPath == "" {
		return nil, errors.New("VS30_DATASET must not be empty")
	}
	if cfg.FaultsGeoJSONPath == "" {
		return nil, errors.New("FAULTS_GEOJSON must not be empty")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDuration(key, fallback string) (time.Duration, error) {
	raw := envOrDefault(key, fallback)
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, raw)
	}
	return d, nil
}

func splitBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// ParsePort is a convenience for deployments that provide a bare port number
// instead of a listen address.
func ParsePort(raw string) (string, error) {
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > 65535 {
		return "", fmt.Errorf("invalid port: %q", raw)
	}
	return ":" + raw, nil
}
