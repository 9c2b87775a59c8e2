package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// New creates the configuration from the environment. All problems with the environment are
// reported at once.
func New() (Config, error) {
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	basePath := getEnv("BASE_PATH", "")
	port, err := getEnvAsInt("PORT", 8080)
	collect(err)
	clusterTypesDir, err := requireEnv("CLUSTER_TYPES_DIR")
	collect(err)
	jwtSecret, err := requireEnv("JWT_SECRET")
	collect(err)
	logLevel, err := getEnvAsLogLevel("LOG_LEVEL", slog.LevelInfo)
	collect(err)
	logFormat, err := getEnvAsOneOf("LOG_FORMAT", "json", "json", "text")
	collect(err)
	remoteFetchTimeout, err := getEnvAsInt("REMOTE_FETCH_TIMEOUT_SECONDS", 10)
	collect(err)

	if err := errors.Join(errs...); err != nil {
		return Config{}, err
	}

	return Config{
		BasePath:           basePath,
		Port:               port,
		ClusterTypesDir:    clusterTypesDir,
		JWTSecret:          jwtSecret,
		LogLevel:           logLevel,
		LogFormat:          logFormat,
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
		RemoteFetchTimeout: time.Duration(remoteFetchTimeout) * time.Second,
	}, nil
}

type Config struct {
	BasePath string
	Port     int
	// ClusterTypesDir is the root of the cluster type catalogue. Every subdirectory holding a
	// cluster-type.yaml is a cluster type.
	ClusterTypesDir string
	// JWTSecret is shared with the billing middleware. It verifies incoming tokens and signs
	// outgoing ones.
	JWTSecret string
	LogLevel  slog.Level
	LogFormat string
	// CORSAllowedOrigins allows all origins if empty.
	CORSAllowedOrigins []string
	RemoteFetchTimeout time.Duration
}

// Address returns the address the HTTP server listens on.
func (c Config) Address() string {
	return fmt.Sprintf(":%d", c.Port)
}

func requireEnv(key string) (string, error) {
	value, exists := os.LookupEnv(key)
	if !exists {
		return "", fmt.Errorf("required environment variable %q not set", key)
	}
	return value, nil
}

func getEnv(key, fallback string) string {
	value, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return fallback, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("failed to parse environment variable %q as integer: %v", key, err)
	}
	return value, nil
}

func getEnvAsLogLevel(key string, fallback slog.Level) (slog.Level, error) {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return fallback, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(valueStr)); err != nil {
		return 0, fmt.Errorf("failed to parse environment variable %q as log level: %v", key, err)
	}
	return level, nil
}

func getEnvAsOneOf(key, fallback string, allowed ...string) (string, error) {
	value := strings.ToLower(getEnv(key, fallback))
	for _, a := range allowed {
		if value == a {
			return value, nil
		}
	}
	return "", fmt.Errorf("environment variable %q must be one of %s, got %q", key, strings.Join(allowed, ", "), value)
}

func getEnvAsList(key string) []string {
	var values []string
	for _, value := range strings.Split(getEnv(key, ""), ",") {
		value = strings.TrimSpace(value)
		if value != "" {
			values = append(values, value)
		}
	}
	return values
}
