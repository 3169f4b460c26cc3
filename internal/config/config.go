// Package config loads narracode configuration from file and environment
// with Viper and builds the process logger.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/HerbHall/narracode/internal/llm/hfhub"
	"github.com/HerbHall/narracode/internal/llm/together"
)

// Config is the typed view of the loaded configuration.
type Config struct {
	Logging  LoggingConfig  `mapstructure:"logging"`
	Database DatabaseConfig `mapstructure:"database"`
	Services ServicesConfig `mapstructure:"services"`
	Defaults DefaultsConfig `mapstructure:"defaults"`
	Batch    BatchConfig    `mapstructure:"batch"`
	Audit    AuditConfig    `mapstructure:"audit"`
}

// LoggingConfig is read by NewLogger.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DatabaseConfig locates the SQLite database holding the generation log.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// ServicesConfig holds one section per backend service.
type ServicesConfig struct {
	Together    together.Config `mapstructure:"together"`
	HuggingFace hfhub.Config    `mapstructure:"huggingface"`
}

// DefaultsConfig is the configuration a new session starts from. Empty
// values fall back to the first service, its first model and the default
// coding task.
type DefaultsConfig struct {
	Service     string  `mapstructure:"service"`
	CodingTask  string  `mapstructure:"coding_task"`
	Temperature float64 `mapstructure:"temperature"`
}

// BatchConfig bounds parallel one-shot coding.
type BatchConfig struct {
	Concurrency       int     `mapstructure:"concurrency"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// AuditConfig tunes generation log reads.
type AuditConfig struct {
	ReadTTL time.Duration `mapstructure:"read_ttl"`
}

// Load reads configuration from file and environment variables.
func Load(configPath string) (*viper.Viper, error) {
	v := viper.New()

	tg := together.DefaultConfig()
	hf := hfhub.DefaultConfig()

	// Defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("database.path", "./data/narracode.db")
	v.SetDefault("services.together.base_url", tg.BaseURL)
	v.SetDefault("services.together.api_key", "")
	v.SetDefault("services.together.timeout", tg.Timeout)
	v.SetDefault("services.together.models", tg.Models)
	v.SetDefault("services.huggingface.base_url", hf.BaseURL)
	v.SetDefault("services.huggingface.api_key", "")
	v.SetDefault("services.huggingface.timeout", hf.Timeout)
	v.SetDefault("services.huggingface.models", hf.Models)
	v.SetDefault("defaults.service", "")
	v.SetDefault("defaults.coding_task", "")
	v.SetDefault("defaults.temperature", 0.0)
	v.SetDefault("batch.concurrency", 4)
	v.SetDefault("batch.requests_per_second", 2.0)
	v.SetDefault("batch.burst", 4)
	v.SetDefault("audit.read_ttl", "0s")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("narracode")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/narracode")
	}

	// Environment variable support: NC_LOGGING_LEVEL=debug
	v.SetEnvPrefix("NC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The services' own variable names are honoured as well.
	if err := v.BindEnv("services.together.api_key", "NC_SERVICES_TOGETHER_API_KEY", "TOGETHER_API_KEY"); err != nil {
		return nil, err
	}
	if err := v.BindEnv("services.huggingface.api_key", "NC_SERVICES_HUGGINGFACE_API_KEY", "HF_API_KEY"); err != nil {
		return nil, err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is fine -- use defaults
	}

	return v, nil
}

// Parse unmarshals v into a Config and validates it.
func Parse(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first setting that cannot be used.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return errors.New("database.path must not be empty")
	}
	if err := checkModels("services.together.models", c.Services.Together.Models); err != nil {
		return err
	}
	if err := checkModels("services.huggingface.models", c.Services.HuggingFace.Models); err != nil {
		return err
	}
	if c.Defaults.Temperature < 0 {
		return fmt.Errorf("defaults.temperature must not be negative, got %v", c.Defaults.Temperature)
	}
	if c.Batch.Concurrency < 1 {
		return fmt.Errorf("batch.concurrency must be at least 1, got %d", c.Batch.Concurrency)
	}
	if c.Batch.RequestsPerSecond < 0 || c.Batch.Burst < 0 {
		return errors.New("batch.requests_per_second and batch.burst must not be negative")
	}
	if c.Audit.ReadTTL < 0 {
		return fmt.Errorf("audit.read_ttl must not be negative, got %s", c.Audit.ReadTTL)
	}
	return nil
}

func checkModels(key string, models []string) error {
	if len(models) == 0 {
		return fmt.Errorf("%s must list at least one model", key)
	}
	for i, m := range models {
		if strings.TrimSpace(m) == "" {
			return fmt.Errorf("%s[%d] is empty", key, i)
		}
	}
	return nil
}
