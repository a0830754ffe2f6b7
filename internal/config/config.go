package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. AAXFETCH_TRANSFER_MAX_ATTEMPTS
const EnvPrefix = "AAXFETCH"

// Config represents the entire application configuration
type Config struct {
	Transfer TransferConfig `mapstructure:"transfer"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Journal  JournalConfig  `mapstructure:"journal"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Audible  AudibleConfig  `mapstructure:"audible"`
}

// TransferConfig contains retry and write settings
type TransferConfig struct {
	ChunkSizeKB      int     `mapstructure:"chunk_size_kb"`
	MaxAttempts      int     `mapstructure:"max_attempts"`
	BaseDelay        string  `mapstructure:"base_delay"`
	MaxDelay         string  `mapstructure:"max_delay"`
	Jitter           float64 `mapstructure:"jitter"`
	ProgressInterval string  `mapstructure:"progress_interval"`
}

// HTTPConfig contains content service client settings
type HTTPConfig struct {
	UserAgent             string `mapstructure:"user_agent"`
	ResponseHeaderTimeout string `mapstructure:"response_header_timeout"`
	ProbeTimeout          string `mapstructure:"probe_timeout"`
}

// JournalConfig contains transfer history settings
type JournalConfig struct {
	Path string `mapstructure:"path"` // Empty disables the journal
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// AudibleConfig contains catalog defaults
type AudibleConfig struct {
	CustomerID    string `mapstructure:"customer_id"`
	Codec         string `mapstructure:"codec"`
	Authorization string `mapstructure:"authorization"`
}

// Load loads configuration from the optional file at configPath and the environment
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("transfer.chunk_size_kb", 1024)
	v.SetDefault("transfer.max_attempts", 8)
	v.SetDefault("transfer.base_delay", "1s")
	v.SetDefault("transfer.max_delay", "30s")
	v.SetDefault("transfer.jitter", 0.2)
	v.SetDefault("transfer.progress_interval", "10s")
	v.SetDefault("http.user_agent", "Audible ADM 6.6.0.19;Windows Vista  Build 9200")
	v.SetDefault("http.response_header_timeout", "30s")
	v.SetDefault("http.probe_timeout", "30s")
	v.SetDefault("journal.path", "")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("audible.customer_id", "")
	v.SetDefault("audible.codec", "LC_128_44100_Stereo")
	v.SetDefault("audible.authorization", "")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Transfer.ChunkSizeKB <= 0 {
		return errors.New("transfer.chunk_size_kb must be positive")
	}
	if c.Transfer.MaxAttempts < 1 {
		return errors.New("transfer.max_attempts must be at least 1")
	}
	if c.Transfer.Jitter < 0 || c.Transfer.Jitter > 1 {
		return errors.New("transfer.jitter must be between 0 and 1")
	}

	durations := map[string]string{
		"transfer.base_delay":          c.Transfer.BaseDelay,
		"transfer.max_delay":           c.Transfer.MaxDelay,
		"transfer.progress_interval":   c.Transfer.ProgressInterval,
		"http.response_header_timeout": c.HTTP.ResponseHeaderTimeout,
		"http.probe_timeout":           c.HTTP.ProbeTimeout,
	}
	for key, value := range durations {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s: %w", key, err)
		}
	}
	if c.Transfer.GetMaxDelay() < c.Transfer.GetBaseDelay() {
		return errors.New("transfer.max_delay must not be shorter than transfer.base_delay")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
		// Valid levels
	default:
		return fmt.Errorf("invalid logging.level: %s", c.Logging.Level)
	}

	switch c.Logging.Format {
	case "json", "text":
		// Valid formats
	default:
		return fmt.Errorf("invalid logging.format: %s", c.Logging.Format)
	}

	return nil
}

// GetChunkSize returns the chunk size in bytes
func (c *TransferConfig) GetChunkSize() int {
	if c.ChunkSizeKB <= 0 {
		return 1024 * 1024 // 1MB default
	}
	return c.ChunkSizeKB * 1024
}

// GetBaseDelay returns the first retry delay as time.Duration
func (c *TransferConfig) GetBaseDelay() time.Duration {
	d, _ := time.ParseDuration(c.BaseDelay)
	if d == 0 {
		return time.Second
	}
	return d
}

// GetMaxDelay returns the retry delay cap as time.Duration
func (c *TransferConfig) GetMaxDelay() time.Duration {
	d, _ := time.ParseDuration(c.MaxDelay)
	if d == 0 {
		return 30 * time.Second
	}
	return d
}

// GetProgressInterval returns the progress log interval as time.Duration
func (c *TransferConfig) GetProgressInterval() time.Duration {
	d, _ := time.ParseDuration(c.ProgressInterval)
	if d == 0 {
		return 10 * time.Second
	}
	return d
}

// GetResponseHeaderTimeout returns the response header timeout as time.Duration
func (c *HTTPConfig) GetResponseHeaderTimeout() time.Duration {
	d, _ := time.ParseDuration(c.ResponseHeaderTimeout)
	if d == 0 {
		return 30 * time.Second
	}
	return d
}

// GetProbeTimeout returns the probe timeout as time.Duration
func (c *HTTPConfig) GetProbeTimeout() time.Duration {
	d, _ := time.ParseDuration(c.ProbeTimeout)
	if d == 0 {
		return 30 * time.Second
	}
	return d
}
