package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/harrison/mailscan/internal/decoder"
)

// HistoryConfig represents run history configuration
type HistoryConfig struct {
	// Enabled records every search run in the history database
	Enabled bool `yaml:"enabled"`

	// DBPath is the path to the history database (empty = $MAILSCAN_HOME/history.db)
	DBPath string `yaml:"db_path"`
}

// Config represents mailscan configuration options
type Config struct {
	// Workers is the maximum number of targets searched concurrently (0 = unlimited)
	Workers int `yaml:"workers"`

	// Timeout is the maximum duration of a search run (0 = no limit)
	Timeout time.Duration `yaml:"timeout"`

	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	// LogDir is the directory where run logs will be written
	LogDir string `yaml:"log_dir"`

	// Extensions lists the data file extensions to search
	Extensions []string `yaml:"extensions"`

	// ExcludeDirs lists directory names never descended into
	ExcludeDirs []string `yaml:"exclude_dirs"`

	// SkipHidden skips directories whose name starts with "."
	SkipHidden bool `yaml:"skip_hidden"`

	// Delimiter separates fields within a row
	Delimiter string `yaml:"delimiter"`

	// MaxLineBytes is the longest line decoded; longer lines are reported and skipped
	MaxLineBytes int `yaml:"max_line_bytes"`

	// FallbackEncoding decodes bytes that are not valid UTF-8
	FallbackEncoding string `yaml:"fallback_encoding"`

	// ProgressInterval is how often the progress bar is refreshed
	ProgressInterval time.Duration `yaml:"progress_interval"`

	// OutputName is the results file name used inside the search root when no output path is given
	OutputName string `yaml:"output_name"`

	// History contains run history configuration
	History HistoryConfig `yaml:"history"`
}

// DefaultConfig returns a Config with sensible default values
func DefaultConfig() *Config {
	return &Config{
		Workers:          runtime.NumCPU(),
		Timeout:          0, // No limit
		LogLevel:         "info",
		LogDir:           ".mailscan/logs",
		Extensions:       []string{".csv"},
		ExcludeDirs:      []string{".git"},
		SkipHidden:       false,
		Delimiter:        decoder.DefaultDelimiter,
		MaxLineBytes:     decoder.DefaultMaxLineBytes,
		FallbackEncoding: decoder.DefaultFallback,
		ProgressInterval: 500 * time.Millisecond,
		OutputName:       "email_search_results.txt",
		History: HistoryConfig{
			Enabled: true,
			DBPath:  "",
		},
	}
}

// LoadConfig loads configuration from the specified file path
// If the file doesn't exist, returns default configuration without error
// If the file exists but is malformed, returns an error
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Durations are read as strings so "30m" style values parse
	type yamlConfig struct {
		Workers          int           `yaml:"workers"`
		Timeout          string        `yaml:"timeout"`
		LogLevel         string        `yaml:"log_level"`
		LogDir           string        `yaml:"log_dir"`
		Extensions       []string      `yaml:"extensions"`
		ExcludeDirs      []string      `yaml:"exclude_dirs"`
		SkipHidden       bool          `yaml:"skip_hidden"`
		Delimiter        string        `yaml:"delimiter"`
		MaxLineBytes     int           `yaml:"max_line_bytes"`
		FallbackEncoding string        `yaml:"fallback_encoding"`
		ProgressInterval string        `yaml:"progress_interval"`
		OutputName       string        `yaml:"output_name"`
		History          HistoryConfig `yaml:"history"`
	}

	var yamlCfg yamlConfig
	if err := yaml.Unmarshal(data, &yamlCfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Apply non-zero values from file (merging with defaults)
	if yamlCfg.Timeout != "" {
		timeout, err := time.ParseDuration(yamlCfg.Timeout)
		if err != nil {
			return nil, fmt.Errorf("invalid timeout format %q: %w", yamlCfg.Timeout, err)
		}
		cfg.Timeout = timeout
	}
	if yamlCfg.LogLevel != "" {
		cfg.LogLevel = yamlCfg.LogLevel
	}
	if yamlCfg.LogDir != "" {
		cfg.LogDir = yamlCfg.LogDir
	}
	if len(yamlCfg.Extensions) > 0 {
		cfg.Extensions = yamlCfg.Extensions
	}
	if yamlCfg.ExcludeDirs != nil {
		cfg.ExcludeDirs = yamlCfg.ExcludeDirs
	}
	if yamlCfg.Delimiter != "" {
		cfg.Delimiter = yamlCfg.Delimiter
	}
	if yamlCfg.MaxLineBytes != 0 {
		cfg.MaxLineBytes = yamlCfg.MaxLineBytes
	}
	if yamlCfg.FallbackEncoding != "" {
		cfg.FallbackEncoding = yamlCfg.FallbackEncoding
	}
	if yamlCfg.ProgressInterval != "" {
		interval, err := time.ParseDuration(yamlCfg.ProgressInterval)
		if err != nil {
			return nil, fmt.Errorf("invalid progress_interval format %q: %w", yamlCfg.ProgressInterval, err)
		}
		cfg.ProgressInterval = interval
	}
	if yamlCfg.OutputName != "" {
		cfg.OutputName = yamlCfg.OutputName
	}

	// Values whose zero is meaningful apply whenever the key is present
	var rawMap map[string]interface{}
	if err := yaml.Unmarshal(data, &rawMap); err == nil {
		if _, exists := rawMap["workers"]; exists {
			cfg.Workers = yamlCfg.Workers
		}
		if _, exists := rawMap["skip_hidden"]; exists {
			cfg.SkipHidden = yamlCfg.SkipHidden
		}
		if historySection, exists := rawMap["history"]; exists && historySection != nil {
			historyMap, _ := historySection.(map[string]interface{})
			if _, exists := historyMap["enabled"]; exists {
				cfg.History.Enabled = yamlCfg.History.Enabled
			}
			if _, exists := historyMap["db_path"]; exists {
				cfg.History.DBPath = yamlCfg.History.DBPath
			}
		}
	}

	return cfg, nil
}

// LoadConfigFromDir loads configuration from .mailscan/config.yaml in the specified directory
// If the directory or file doesn't exist, returns default configuration without error
func LoadConfigFromDir(dir string) (*Config, error) {
	configPath := filepath.Join(dir, homeDirName, "config.yaml")
	return LoadConfig(configPath)
}

// Overrides carries CLI flag values. Nil fields leave the configuration unchanged.
type Overrides struct {
	Workers          *int
	Timeout          *time.Duration
	LogLevel         *string
	LogDir           *string
	Extensions       []string
	Delimiter        *string
	FallbackEncoding *string
	DisableHistory   bool
}

// MergeWithFlags merges CLI flags into the configuration
// This allows CLI flags to take precedence over config file settings
func (c *Config) MergeWithFlags(o Overrides) {
	if o.Workers != nil {
		c.Workers = *o.Workers
	}
	if o.Timeout != nil {
		c.Timeout = *o.Timeout
	}
	if o.LogLevel != nil {
		c.LogLevel = *o.LogLevel
	}
	if o.LogDir != nil {
		c.LogDir = *o.LogDir
	}
	if len(o.Extensions) > 0 {
		c.Extensions = o.Extensions
	}
	if o.Delimiter != nil {
		c.Delimiter = *o.Delimiter
	}
	if o.FallbackEncoding != nil {
		c.FallbackEncoding = *o.FallbackEncoding
	}
	if o.DisableHistory {
		c.History.Enabled = false
	}
}

// Validate validates the configuration values
// Returns an error if any values are invalid
func (c *Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("workers must be >= 0, got %d", c.Workers)
	}

	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}

	if c.Timeout < 0 {
		return fmt.Errorf("timeout must be >= 0, got %v", c.Timeout)
	}

	if len(c.Extensions) == 0 {
		return fmt.Errorf("extensions cannot be empty")
	}
	for _, ext := range c.Extensions {
		if strings.TrimSpace(strings.TrimPrefix(ext, ".")) == "" {
			return fmt.Errorf("invalid extension %q", ext)
		}
	}

	if c.Delimiter == "" {
		return fmt.Errorf("delimiter cannot be empty")
	}

	if c.MaxLineBytes <= 0 {
		return fmt.Errorf("max_line_bytes must be > 0, got %d", c.MaxLineBytes)
	}

	if _, err := decoder.LookupFallback(c.FallbackEncoding); err != nil {
		return fmt.Errorf("invalid fallback_encoding: %w", err)
	}

	if c.ProgressInterval <= 0 {
		return fmt.Errorf("progress_interval must be > 0, got %v", c.ProgressInterval)
	}

	if strings.TrimSpace(c.OutputName) == "" || strings.ContainsRune(c.OutputName, filepath.Separator) {
		return fmt.Errorf("output_name must be a plain file name, got %q", c.OutputName)
	}

	return nil
}
