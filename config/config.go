package config

import (
	"log/slog"
	"net"
	"net/url"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/viper"
)

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

type ServerConfig struct {
	Address     string `mapstructure:"address"`
	Environment string `mapstructure:"environment"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type HealthConfig struct {
	Interval   string `mapstructure:"interval"`
	GatewayURL string `mapstructure:"gateway_url"`
	ScratchDir string `mapstructure:"scratch_dir"`
}

type APIConfig struct {
	Name             string   `mapstructure:"name"`
	BaseURL          string   `mapstructure:"base_url"`
	FallbackURLs     []string `mapstructure:"fallback_urls"`
	Timeout          string   `mapstructure:"timeout"`
	MaxRetries       int      `mapstructure:"max_retries"`
	BreakerThreshold int      `mapstructure:"breaker_threshold"`
	BreakerReset     string   `mapstructure:"breaker_reset"`
}

type RateLimitConfig struct {
	Name        string `mapstructure:"name"`
	MaxRequests int    `mapstructure:"max_requests"`
	Window      string `mapstructure:"window"`
}

type StoreConfig struct {
	Path string `mapstructure:"path"`
}

type Config struct {
	Server     ServerConfig      `mapstructure:"server"`
	Logging    LoggingConfig     `mapstructure:"logging"`
	Health     HealthConfig      `mapstructure:"health"`
	APIs       []APIConfig       `mapstructure:"apis"`
	RateLimits []RateLimitConfig `mapstructure:"rate_limits"`
	Store      StoreConfig       `mapstructure:"store"`
}

func Load() (*Config, error) {
	viper.SetDefault("server.environment", EnvDev)
	viper.SetDefault("server.address", ":8080")
	viper.SetDefault("logging.level", LogLevelInfo)
	viper.SetDefault("health.interval", "5m")
	viper.SetDefault("health.gateway_url", "wss://gateway.discord.gg")
	viper.SetDefault("health.scratch_dir", ".")
	viper.SetDefault("store.path", "data/guilds.json")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Error("failed to read config file", slog.String("error", err.Error()))
			return nil, err
		}
		slog.Warn("config file not found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", slog.String("file", viper.ConfigFileUsed()))
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		slog.Error("failed to unmarshal config", slog.String("error", err.Error()))
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Server,
			validation.Required,
			validation.By(func(value interface{}) error {
				sc, ok := value.(ServerConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a ServerConfig")
				}
				return validation.ValidateStruct(&sc,
					validation.Field(&sc.Environment,
						validation.Required,
						validation.In(EnvDev, EnvStaging, EnvProd),
					),
					validation.Field(&sc.Address,
						validation.Required,
						validation.By(validateHostPort),
					),
				)
			}),
		),
		validation.Field(&c.Logging,
			validation.Required,
			validation.By(func(value interface{}) error {
				lc, ok := value.(LoggingConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a LoggingConfig")
				}
				return validation.ValidateStruct(&lc,
					validation.Field(&lc.Level,
						validation.Required,
						validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
					),
				)
			}),
		),
		validation.Field(&c.Health,
			validation.Required,
			validation.By(func(value interface{}) error {
				hc, ok := value.(HealthConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a HealthConfig")
				}
				return validation.ValidateStruct(&hc,
					validation.Field(&hc.Interval,
						validation.Required,
						validation.By(validateDuration),
					),
					validation.Field(&hc.GatewayURL,
						validation.Required,
						validation.By(validateWebsocketURL),
					),
				)
			}),
		),
		validation.Field(&c.APIs,
			validation.Each(validation.By(validateAPIConfig)),
		),
		validation.Field(&c.RateLimits,
			validation.Each(validation.By(validateRateLimitConfig)),
		),
	)
}

// ParseDurations resolves an API entry's duration strings, returning
// zero values for unset fields so the upstream defaults apply.
func (a APIConfig) ParseDurations() (timeout, breakerReset time.Duration, err error) {
	if a.Timeout != "" {
		timeout, err = time.ParseDuration(a.Timeout)
		if err != nil {
			return 0, 0, err
		}
	}
	if a.BreakerReset != "" {
		breakerReset, err = time.ParseDuration(a.BreakerReset)
		if err != nil {
			return 0, 0, err
		}
	}
	return timeout, breakerReset, nil
}

func validateHostPort(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	if port == "" {
		return validation.NewError("validation_invalid_port", "port cannot be empty")
	}

	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}

	return nil
}

func validateDuration(value interface{}) error {
	durationStr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if _, err := time.ParseDuration(durationStr); err != nil {
		return validation.NewError("validation_invalid_duration", "must be a valid duration (e.g., 2s, 5m, 1h)")
	}

	return nil
}

func validateHTTPURL(value interface{}) error {
	serverURL, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if serverURL == "" {
		return validation.NewError("validation_empty_url", "URL cannot be empty")
	}

	parsedURL, err := url.Parse(serverURL)
	if err != nil {
		return validation.NewError("validation_invalid_url", "must be a valid URL")
	}

	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return validation.NewError("validation_invalid_scheme", "URL must use http or https scheme")
	}

	if parsedURL.Host == "" {
		return validation.NewError("validation_missing_host", "URL must have a host")
	}

	return nil
}

func validateWebsocketURL(value interface{}) error {
	gatewayURL, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	parsedURL, err := url.Parse(gatewayURL)
	if err != nil {
		return validation.NewError("validation_invalid_url", "must be a valid URL")
	}

	if parsedURL.Scheme != "ws" && parsedURL.Scheme != "wss" {
		return validation.NewError("validation_invalid_scheme", "URL must use ws or wss scheme")
	}

	if parsedURL.Host == "" {
		return validation.NewError("validation_missing_host", "URL must have a host")
	}

	return nil
}

func validateAPIConfig(value interface{}) error {
	apiCfg, ok := value.(APIConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be an APIConfig")
	}

	if apiCfg.Name == "" {
		return validation.NewError("validation_empty_name", "API name cannot be empty")
	}

	if err := validateHTTPURL(apiCfg.BaseURL); err != nil {
		return err
	}

	for _, fallback := range apiCfg.FallbackURLs {
		if err := validateHTTPURL(fallback); err != nil {
			return err
		}
	}

	if apiCfg.Timeout != "" {
		if err := validateDuration(apiCfg.Timeout); err != nil {
			return err
		}
	}

	if apiCfg.BreakerReset != "" {
		if err := validateDuration(apiCfg.BreakerReset); err != nil {
			return err
		}
	}

	if apiCfg.MaxRetries < 0 {
		return validation.NewError("validation_invalid_retries", "max_retries cannot be negative")
	}

	if apiCfg.BreakerThreshold < 0 {
		return validation.NewError("validation_invalid_threshold", "breaker_threshold cannot be negative")
	}

	return nil
}

func validateRateLimitConfig(value interface{}) error {
	limit, ok := value.(RateLimitConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a RateLimitConfig")
	}

	if limit.Name == "" {
		return validation.NewError("validation_empty_name", "rate limit name cannot be empty")
	}

	if limit.MaxRequests < 1 {
		return validation.NewError("validation_invalid_max", "max_requests must be at least 1")
	}

	return validateDuration(limit.Window)
}
