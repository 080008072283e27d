// Package config loads application configuration from a YAML file,
// environment variables and built-in defaults, in that order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App        App        `mapstructure:"app"`
	Gemini     Gemini     `mapstructure:"gemini"`
	Generation Generation `mapstructure:"generation"`
	Quality    Quality    `mapstructure:"quality"`
	Dedup      Dedup      `mapstructure:"dedup"`
	Fetch      Fetch      `mapstructure:"fetch"`
}

// App holds general application configuration.
type App struct {
	DataDir   string `mapstructure:"data_dir"`
	OutputDir string `mapstructure:"output_dir"`
	LogLevel  string `mapstructure:"log_level"`
}

// Gemini holds generation backend configuration.
type Gemini struct {
	APIKey string `mapstructure:"api_key"`
	Model  string `mapstructure:"model"`
}

// Generation holds orchestrator configuration.
type Generation struct {
	MaxRetriesPerStrategy int     `mapstructure:"max_retries_per_strategy"`
	InitialBackoff        string  `mapstructure:"initial_backoff"`
	MaxBackoff            string  `mapstructure:"max_backoff"`
	QualityFloor          float64 `mapstructure:"quality_floor"`
	MinWordCount          int     `mapstructure:"min_word_count"`
	PreflightDedup        bool    `mapstructure:"preflight_dedup"`
}

// Quality holds scorer configuration.
type Quality struct {
	MinWordCount    int            `mapstructure:"min_word_count"`
	MaxWordCount    int            `mapstructure:"max_word_count"`
	TargetWordCount int            `mapstructure:"target_word_count"`
	Weights         QualityWeights `mapstructure:"weights"`
}

// QualityWeights holds the sub-score weights; they should sum to 1.0.
type QualityWeights struct {
	Readability float64 `mapstructure:"readability"`
	SEO         float64 `mapstructure:"seo"`
	Engagement  float64 `mapstructure:"engagement"`
	Technical   float64 `mapstructure:"technical"`
}

// Dedup holds duplicate-detection policy configuration.
type Dedup struct {
	TitleThreshold   float64 `mapstructure:"title_threshold"`
	BodyThreshold    float64 `mapstructure:"body_threshold"`
	RecencyDays      int     `mapstructure:"recency_days"`
	RetentionDays    int     `mapstructure:"retention_days"`
	BodyShingleSize  int     `mapstructure:"body_shingle_size"`
	TitleShingleSize int     `mapstructure:"title_shingle_size"`
}

// Fetch holds source-fetching configuration.
type Fetch struct {
	Timeout   string `mapstructure:"timeout"`
	UserAgent string `mapstructure:"user_agent"`
}

var loadedConfig *Config

// Load reads configuration from the given file (or the default search
// paths), the environment, and defaults. A missing config file is not an
// error; environment variables and defaults still apply.
func Load(configFile string) (*Config, error) {
	// A .env file is the conventional place for the API key.
	_ = godotenv.Load()

	v := viper.GetViper()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(".blogsmith")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
	}

	setDefaults(v)
	bindEnvironmentVariables(v)

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound && configFile != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	config := &Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.App.DataDir = expandPath(config.App.DataDir)
	config.App.OutputDir = expandPath(config.App.OutputDir)

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	loadedConfig = config
	return config, nil
}

// Get returns the loaded configuration, loading defaults if Load was never
// called.
func Get() *Config {
	if loadedConfig == nil {
		config, err := Load("")
		if err != nil {
			panic(fmt.Sprintf("failed to load default config: %v", err))
		}
		return config
	}
	return loadedConfig
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.data_dir", ".blogsmith")
	v.SetDefault("app.output_dir", "posts")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("gemini.model", "gemini-flash-lite-latest")

	v.SetDefault("generation.max_retries_per_strategy", 3)
	v.SetDefault("generation.initial_backoff", "2s")
	v.SetDefault("generation.max_backoff", "30s")
	v.SetDefault("generation.quality_floor", 40.0)
	v.SetDefault("generation.min_word_count", 300)
	v.SetDefault("generation.preflight_dedup", false)

	v.SetDefault("quality.min_word_count", 300)
	v.SetDefault("quality.max_word_count", 2000)
	v.SetDefault("quality.target_word_count", 800)
	v.SetDefault("quality.weights.readability", 0.25)
	v.SetDefault("quality.weights.seo", 0.30)
	v.SetDefault("quality.weights.engagement", 0.25)
	v.SetDefault("quality.weights.technical", 0.20)

	v.SetDefault("dedup.title_threshold", 0.85)
	v.SetDefault("dedup.body_threshold", 0.6)
	v.SetDefault("dedup.recency_days", 14)
	v.SetDefault("dedup.retention_days", 90)
	v.SetDefault("dedup.body_shingle_size", 5)
	v.SetDefault("dedup.title_shingle_size", 2)

	v.SetDefault("fetch.timeout", "30s")
	v.SetDefault("fetch.user_agent", "blogsmith/1.0")
}

func bindEnvironmentVariables(v *viper.Viper) {
	v.SetEnvPrefix("BLOGSMITH")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The API key keeps its conventional name outside the prefix.
	_ = v.BindEnv("gemini.api_key", "GEMINI_API_KEY")
	_ = v.BindEnv("gemini.model", "GEMINI_MODEL")
}

func validateConfig(config *Config) error {
	if config.Generation.MaxRetriesPerStrategy < 1 {
		return fmt.Errorf("generation.max_retries_per_strategy must be at least 1")
	}
	if _, err := time.ParseDuration(config.Generation.InitialBackoff); err != nil {
		return fmt.Errorf("generation.initial_backoff is not a duration: %w", err)
	}
	if _, err := time.ParseDuration(config.Generation.MaxBackoff); err != nil {
		return fmt.Errorf("generation.max_backoff is not a duration: %w", err)
	}

	w := config.Quality.Weights
	sum := w.Readability + w.SEO + w.Engagement + w.Technical
	if sum < 0.99 || sum > 1.01 {
		return fmt.Errorf("quality.weights must sum to 1.0, got %.2f", sum)
	}

	if config.Dedup.TitleThreshold <= 0 || config.Dedup.TitleThreshold > 1 {
		return fmt.Errorf("dedup.title_threshold must be in (0, 1]")
	}
	if config.Dedup.BodyThreshold <= 0 || config.Dedup.BodyThreshold > 1 {
		return fmt.Errorf("dedup.body_threshold must be in (0, 1]")
	}
	if config.Dedup.RecencyDays < 1 {
		return fmt.Errorf("dedup.recency_days must be at least 1")
	}

	if _, err := time.ParseDuration(config.Fetch.Timeout); err != nil {
		return fmt.Errorf("fetch.timeout is not a duration: %w", err)
	}

	return nil
}

// expandPath resolves a leading ~ against the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

// InitialBackoffDuration parses the configured initial backoff.
func (g Generation) InitialBackoffDuration() time.Duration {
	d, err := time.ParseDuration(g.InitialBackoff)
	if err != nil {
		return 2 * time.Second
	}
	return d
}

// MaxBackoffDuration parses the configured backoff cap.
func (g Generation) MaxBackoffDuration() time.Duration {
	d, err := time.ParseDuration(g.MaxBackoff)
	if err != nil {
		return 30 * time.Second
	}
	return d
}

// RecencyWindow converts the configured recency days to a duration.
func (d Dedup) RecencyWindow() time.Duration {
	return time.Duration(d.RecencyDays) * 24 * time.Hour
}

// RetentionHorizon converts the configured retention days to a duration.
func (d Dedup) RetentionHorizon() time.Duration {
	return time.Duration(d.RetentionDays) * 24 * time.Hour
}

// TimeoutDuration parses the configured fetch timeout.
func (f Fetch) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(f.Timeout)
	if err != nil {
		return 30 * time.Second
	}
	return d
}
