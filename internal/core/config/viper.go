package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Override sets a value with flag precedence, above environment and file.
type Override func(v *viper.Viper)

// WithDatabaseURL overrides database.url, typically from --db-url.
func WithDatabaseURL(url string) Override {
	return func(v *viper.Viper) {
		if url != "" {
			v.Set("database.url", url)
		}
	}
}

// LoadConfig loads configuration from file using viper.
// Overrides > environment > config file > defaults precedence.
func LoadConfig(configPath string, overrides ...Override) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// WP_SERVER_PORT overrides server.port
	v.SetEnvPrefix("WP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Secrets are environment-only
	if err := validateNoSecretsInConfig(v); err != nil {
		return nil, err
	}

	for _, o := range overrides {
		o(v)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:           v.GetString("server.host"),
			Port:           v.GetInt("server.port"),
			MaxConnections: v.GetInt("server.max_connections"),
			RequestTimeout: v.GetDuration("server.request_timeout"),
			RequireAuth:    v.GetBool("server.require_auth"),
		},
		Database: DatabaseConfig{
			URL: v.GetString("database.url"),
		},
		Navigation: NavigationConfig{
			RuleSource:    strings.ToLower(v.GetString("navigation.rule_source")),
			ErrorPage:     v.GetString("navigation.error_page"),
			DefaultSuffix: v.GetString("navigation.default_suffix"),
			StrictPages:   v.GetBool("navigation.strict_pages"),
			Audit:         v.GetBool("navigation.audit"),
			Mapping: MappingConfig{
				Kind:       strings.ToLower(v.GetString("navigation.mapping.kind")),
				Prefix:     v.GetString("navigation.mapping.prefix"),
				Suffix:     v.GetString("navigation.mapping.suffix"),
				PageSuffix: v.GetString("navigation.mapping.page_suffix"),
			},
		},
		Session: SessionConfig{
			Backend:   strings.ToLower(v.GetString("session.backend")),
			TTL:       v.GetDuration("session.ttl"),
			RedisAddr: v.GetString("session.redis_addr"),
			KeyPrefix: v.GetString("session.key_prefix"),
		},
		Metrics: MetricsConfig{
			Addr: v.GetString("metrics.addr"),
		},
	}

	if err := v.UnmarshalKey("navigation.rules", &cfg.Navigation.Rules); err != nil {
		return nil, fmt.Errorf("failed to decode navigation.rules: %w", err)
	}
	if err := v.UnmarshalKey("navigation.pages", &cfg.Navigation.Pages); err != nil {
		return nil, fmt.Errorf("failed to decode navigation.pages: %w", err)
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setDefaults mirrors DefaultConfig so env-only keys resolve through AutomaticEnv.
func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.max_connections", d.Server.MaxConnections)
	v.SetDefault("server.request_timeout", d.Server.RequestTimeout.String())
	v.SetDefault("server.require_auth", d.Server.RequireAuth)
	v.SetDefault("database.url", "")
	v.SetDefault("navigation.rule_source", d.Navigation.RuleSource)
	v.SetDefault("navigation.error_page", "")
	v.SetDefault("navigation.default_suffix", "")
	v.SetDefault("navigation.strict_pages", false)
	v.SetDefault("navigation.audit", false)
	v.SetDefault("navigation.mapping.kind", d.Navigation.Mapping.Kind)
	v.SetDefault("navigation.mapping.prefix", "")
	v.SetDefault("navigation.mapping.suffix", "")
	v.SetDefault("navigation.mapping.page_suffix", "")
	v.SetDefault("session.backend", d.Session.Backend)
	v.SetDefault("session.ttl", d.Session.TTL.String())
	v.SetDefault("session.redis_addr", "")
	v.SetDefault("session.key_prefix", d.Session.KeyPrefix)
	v.SetDefault("metrics.addr", "")
}

// validateConfig checks ranges and the combinations that cannot work together.
func validateConfig(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", cfg.Server.Port)
	}
	if cfg.Server.MaxConnections <= 0 {
		return fmt.Errorf("max_connections must be positive, got %d", cfg.Server.MaxConnections)
	}
	if cfg.Server.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %v", cfg.Server.RequestTimeout)
	}

	switch cfg.Navigation.RuleSource {
	case RuleSourceConfig:
	case RuleSourceDatabase:
		if cfg.Database.URL == "" {
			return fmt.Errorf("rule_source %q requires database.url", RuleSourceDatabase)
		}
	default:
		return fmt.Errorf("rule_source must be %q or %q, got %q", RuleSourceConfig, RuleSourceDatabase, cfg.Navigation.RuleSource)
	}
	if cfg.Navigation.Audit && cfg.Database.URL == "" {
		return fmt.Errorf("navigation.audit requires database.url")
	}

	switch cfg.Navigation.Mapping.Kind {
	case MappingExact:
	case MappingPrefix:
		if !strings.HasPrefix(cfg.Navigation.Mapping.Prefix, "/") {
			return fmt.Errorf("mapping prefix must start with '/', got %q", cfg.Navigation.Mapping.Prefix)
		}
	case MappingSuffix:
		if !strings.HasPrefix(cfg.Navigation.Mapping.Suffix, ".") || !strings.HasPrefix(cfg.Navigation.Mapping.PageSuffix, ".") {
			return fmt.Errorf("mapping suffix and page_suffix must start with '.'")
		}
	default:
		return fmt.Errorf("mapping kind must be exact, prefix or suffix, got %q", cfg.Navigation.Mapping.Kind)
	}

	switch cfg.Session.Backend {
	case SessionMemory:
	case SessionRedis:
		if cfg.Session.RedisAddr == "" {
			return fmt.Errorf("session backend %q requires session.redis_addr", SessionRedis)
		}
	default:
		return fmt.Errorf("session backend must be %q or %q, got %q", SessionMemory, SessionRedis, cfg.Session.Backend)
	}
	if cfg.Session.TTL < 0 {
		return fmt.Errorf("session ttl must not be negative, got %v", cfg.Session.TTL)
	}

	return nil
}

// validateNoSecretsInConfig enforces environment-only secrets (12-factor principle).
func validateNoSecretsInConfig(v *viper.Viper) error {
	if v.InConfig("hmac_secret") || v.InConfig("server.hmac_secret") {
		return fmt.Errorf("HMAC secrets not allowed in config files (use WP_HMAC_SECRET environment variable)")
	}
	return nil
}
