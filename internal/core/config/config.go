// Package config provides configuration management for waypoint services.
package config

import (
	"encoding/base64"
	"fmt"
	"os"
	"strings"
	"time"
)

// Rule sources.
const (
	RuleSourceConfig   = "config"
	RuleSourceDatabase = "database"
)

// Session backends.
const (
	SessionMemory = "memory"
	SessionRedis  = "redis"
)

// Path mapping kinds.
const (
	MappingExact  = "exact"
	MappingPrefix = "prefix"
	MappingSuffix = "suffix"
)

// Config is the complete service configuration.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Navigation NavigationConfig
	Session    SessionConfig
	Metrics    MetricsConfig
}

// ServerConfig holds configuration for the gRPC navigation service.
type ServerConfig struct {
	Host           string
	Port           int
	MaxConnections int
	RequestTimeout time.Duration
	RequireAuth    bool
}

// DatabaseConfig locates the rule and audit database.
type DatabaseConfig struct {
	URL string // sqlite://path or postgres://...
}

// NavigationConfig controls rule loading and the navigator.
type NavigationConfig struct {
	RuleSource    string // config or database
	ErrorPage     string // target when recovery fails, "" = report the error
	DefaultSuffix string // implicit target normalization, "" = off
	StrictPages   bool   // reject pages not declared under navigation.pages
	Audit         bool   // persist navigation events to the database
	Mapping       MappingConfig
	Rules         []RuleDecl
	Pages         []PageDecl
}

// MappingConfig selects the path mapper.
type MappingConfig struct {
	Kind       string // exact, prefix or suffix
	Prefix     string // prefix kind, e.g. "/faces"
	Suffix     string // suffix kind transport extension, e.g. ".jsf"
	PageSuffix string // suffix kind page extension, e.g. ".xhtml"
}

// SessionConfig selects where session page state lives.
type SessionConfig struct {
	Backend   string // memory or redis
	TTL       time.Duration
	RedisAddr string
	KeyPrefix string
}

// MetricsConfig controls the prometheus exporter.
type MetricsConfig struct {
	Addr string // "" = disabled
}

// Address returns the gRPC listen address.
func (s ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DefaultConfig returns configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           50052,
			MaxConnections: 1000,
			RequestTimeout: 5 * time.Second,
			RequireAuth:    true,
		},
		Navigation: NavigationConfig{
			RuleSource: RuleSourceConfig,
			Mapping:    MappingConfig{Kind: MappingExact},
		},
		Session: SessionConfig{
			Backend:   SessionMemory,
			TTL:       30 * time.Minute,
			KeyPrefix: "waypoint",
		},
	}
}

// HMACSecrets extracts HMAC secrets from environment variables.
// Supports WP_HMAC_SECRET (single) and WP_HMAC_SECRET_N (rotation).
// Returns map of secret_id -> decoded secret bytes.
// Secret IDs are 32 hex chars (UUIDv7 without hyphens) matching the API key format.
func HMACSecrets() (map[string][]byte, error) {
	secrets := make(map[string][]byte)

	add := func(key, val string) error {
		secretID, decoded, err := ParseHMACSecretWithID(val)
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		if _, exists := secrets[secretID]; exists {
			return fmt.Errorf("duplicate secret_id '%s' found in environment variables (check WP_HMAC_SECRET and WP_HMAC_SECRET_* for conflicts)", secretID)
		}
		secrets[secretID] = decoded
		return nil
	}

	// Format: <secret_id>:<base64_secret>
	if val := os.Getenv("WP_HMAC_SECRET"); val != "" {
		if err := add("WP_HMAC_SECRET", val); err != nil {
			return nil, err
		}
	}

	// Numbered secrets keep old and new keys valid during rotation
	for i := 1; ; i++ {
		key := fmt.Sprintf("WP_HMAC_SECRET_%d", i)
		val := os.Getenv(key)
		if val == "" {
			break
		}
		if err := add(key, val); err != nil {
			return nil, err
		}
	}

	return secrets, nil
}

// ParseHMACSecretWithID parses secret_id:base64_secret format.
// Secret ID must be 32 lowercase hex chars.
func ParseHMACSecretWithID(envValue string) (secretID string, secret []byte, err error) {
	id, encoded, ok := strings.Cut(strings.TrimSpace(envValue), ":")
	if !ok {
		return "", nil, fmt.Errorf("format must be <secret_id>:<base64_secret>")
	}

	if len(id) != 32 {
		return "", nil, fmt.Errorf("secret_id must be 32 hex chars (UUIDv7 without hyphens)")
	}
	for _, c := range id {
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f')) {
			return "", nil, fmt.Errorf("secret_id must be hex chars only")
		}
	}

	secret, err = base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", nil, fmt.Errorf("invalid base64 encoding: %w", err)
	}
	if len(secret) < 32 {
		return "", nil, fmt.Errorf("secret must be at least 32 bytes, got %d", len(secret))
	}

	return id, secret, nil
}
