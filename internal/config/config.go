// Package config loads the imgbridge configuration from a YAML file plus
// IMGBRIDGE_* environment overrides. The resulting struct is built once at
// startup and passed by reference; there is no package-level state.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"imgbridge/pkg/apperrors"
)

type Config struct {
	Providers ProvidersConfig `mapstructure:"providers"`
	Defaults  DefaultsConfig  `mapstructure:"defaults"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	Preview   PreviewConfig   `mapstructure:"preview"`
	Budget    BudgetConfig    `mapstructure:"budget"`
	HTTP      HTTPConfig      `mapstructure:"http"`
	Log       LogConfig       `mapstructure:"log"`
}

type ProvidersConfig struct {
	Default string `mapstructure:"default"`
	// Fallback is accepted for config compatibility but no fallback logic is
	// wired; provider errors propagate unchanged.
	Fallback string         `mapstructure:"fallback"`
	OpenAI   ProviderConfig `mapstructure:"openai"`
	Gemini   ProviderConfig `mapstructure:"gemini"`
}

type ProviderConfig struct {
	APIKey  string        `mapstructure:"api_key"`
	BaseURL string        `mapstructure:"base_url"`
	Model   string        `mapstructure:"model"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type DefaultsConfig struct {
	Count       int    `mapstructure:"count"`
	AspectRatio string `mapstructure:"aspect_ratio"`
}

type StorageConfig struct {
	Provider        string `mapstructure:"provider"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	PublicURL       string `mapstructure:"public_url"`
	PathTemplate    string `mapstructure:"path_template"`
}

type LedgerConfig struct {
	Driver string `mapstructure:"driver"` // sqlite or mysql
	DSN    string `mapstructure:"dsn"`
}

type PreviewConfig struct {
	Dir           string `mapstructure:"dir"`
	RetentionDays int    `mapstructure:"retention_days"`
}

type BudgetConfig struct {
	MonthlyLimit   float64 `mapstructure:"monthly_limit"`
	AlertThreshold float64 `mapstructure:"alert_threshold"`
}

type HTTPConfig struct {
	Addr      string `mapstructure:"addr"`
	JWTSecret string `mapstructure:"jwt_secret"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// knownProviders and knownStorageProviders are the names config validation
// accepts. Only a subset is wired into the registries; the rest pass
// validation for forward compatibility and fail at lookup time.
var knownProviders = map[string]bool{
	"openai": true, "gemini": true,
	"replicate": true, "together": true, "huggingface": true,
}

var knownStorageProviders = map[string]bool{
	"s3": true, "r2": true, "minio": true, "b2": true, "wasabi": true,
}

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath("configs")
		v.AddConfigPath(".")
	}

	setDefaults(v)

	v.SetEnvPrefix("IMGBRIDGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		// The config file is optional when unnamed; env + defaults alone are
		// a valid setup.
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("providers.default", "openai")
	v.SetDefault("providers.openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("providers.openai.model", "gpt-image-1")
	v.SetDefault("providers.openai.timeout", "120s")
	v.SetDefault("providers.gemini.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("providers.gemini.model", "imagen-3.0-generate-002")
	v.SetDefault("providers.gemini.timeout", "120s")

	v.SetDefault("defaults.count", 1)
	v.SetDefault("defaults.aspect_ratio", "1:1")

	v.SetDefault("storage.provider", "s3")
	v.SetDefault("storage.path_template", "images/{year}/{month}/{day}/{filename}")

	v.SetDefault("ledger.driver", "sqlite")
	v.SetDefault("ledger.dsn", "imgbridge.db")

	v.SetDefault("preview.dir", ".imgbridge/previews")
	v.SetDefault("preview.retention_days", 7)

	v.SetDefault("budget.monthly_limit", 25.0)
	v.SetDefault("budget.alert_threshold", 0.8)

	v.SetDefault("http.addr", ":8080")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}

func (c *Config) Validate() error {
	name := strings.ToLower(strings.TrimSpace(c.Providers.Default))
	if !knownProviders[name] {
		return apperrors.Newf(apperrors.CodeInvalidParam, "unknown default provider %q", c.Providers.Default)
	}
	if fb := strings.ToLower(strings.TrimSpace(c.Providers.Fallback)); fb != "" && !knownProviders[fb] {
		return apperrors.Newf(apperrors.CodeInvalidParam, "unknown fallback provider %q", c.Providers.Fallback)
	}
	if sp := strings.ToLower(strings.TrimSpace(c.Storage.Provider)); !knownStorageProviders[sp] {
		return apperrors.Newf(apperrors.CodeInvalidParam, "unknown storage provider %q", c.Storage.Provider)
	}
	if c.Defaults.Count < 1 {
		return apperrors.New(apperrors.CodeInvalidParam, "defaults.count must be >= 1")
	}
	if c.Budget.AlertThreshold < 0 || c.Budget.AlertThreshold > 1 {
		return apperrors.New(apperrors.CodeInvalidParam, "budget.alert_threshold must be within [0, 1]")
	}
	switch strings.ToLower(c.Ledger.Driver) {
	case "sqlite", "mysql":
	default:
		return apperrors.Newf(apperrors.CodeInvalidParam, "unknown ledger driver %q", c.Ledger.Driver)
	}
	return nil
}
