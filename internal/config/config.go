// Package config loads the provenance engine's configuration, layering
// defaults, a user-global file, a project-level file, and environment
// variables, in order of increasing precedence.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the complete engine configuration.
type Config struct {
	Version int          `yaml:"version" json:"version"`
	Storage StorageConfig `yaml:"storage" json:"storage"`
	Search  SearchConfig  `yaml:"search" json:"search"`
	Embed   EmbedConfig   `yaml:"embed" json:"embed"`
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// StorageConfig configures where database files live and which
// directories the engine is permitted to read source documents from.
type StorageConfig struct {
	// Root is the directory holding per-database SQLite files.
	Root string `yaml:"root" json:"root"`
	// AllowedDirs adds directories ingestion may read from, on top of the
	// sandbox defaults (storage root, temp dir, home, working directory,
	// detected bind mounts). A path outside every allowed directory is
	// rejected with PERMISSION_DENIED.
	AllowedDirs []string `yaml:"allowed_dirs" json:"allowed_dirs"`
}

// SearchConfig configures hybrid search fusion parameters. Weights and the
// RRF constant are tunable via:
//  1. User config (~/.config/ocrprov/config.yaml)
//  2. Project config (ocrprov.yaml in the project root)
//  3. Env vars (OCRPROV_BM25_WEIGHT, OCRPROV_SEMANTIC_WEIGHT, OCRPROV_RRF_CONSTANT)
type SearchConfig struct {
	// BM25Weight is the RRF weight for the keyword leg (0.0-1.0).
	BM25Weight float64 `yaml:"bm25_weight" json:"bm25_weight"`
	// SemanticWeight is the RRF weight for the vector leg (0.0-1.0).
	SemanticWeight float64 `yaml:"semantic_weight" json:"semantic_weight"`
	// RRFConstant is the fusion smoothing parameter k. Default 60.
	RRFConstant int `yaml:"rrf_constant" json:"rrf_constant"`
	// MaxResults bounds results returned from a single search call.
	MaxResults int `yaml:"max_results" json:"max_results"`
}

// EmbedConfig echoes the embedding device the engine was configured for.
// The engine itself never runs inference; this is surfaced to callers
// (and worker subprocess invocations) so they select a matching backend.
type EmbedConfig struct {
	// Device is "cpu", "cuda", or "mps". Empty means auto-detect.
	Device string `yaml:"device" json:"device"`
	// Dimension is the embedding vector width used to size vector_ann rows.
	Dimension int `yaml:"dimension" json:"dimension"`
}

// LoggingConfig configures the engine's own structured logging.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	Path  string `yaml:"path" json:"path"`
}

// NewConfig returns a Config populated with sensible defaults.
func NewConfig() *Config {
	return &Config{
		Version: 1,
		Storage: StorageConfig{
			Root:        defaultStorageRoot(),
			AllowedDirs: nil,
		},
		Search: SearchConfig{
			BM25Weight:     0.5,
			SemanticWeight: 0.5,
			RRFConstant:    60,
			MaxResults:     20,
		},
		Embed: EmbedConfig{
			Device:    "",
			Dimension: 0,
		},
		Logging: LoggingConfig{
			Level: "info",
			Path:  defaultLogPath(),
		},
	}
}

func defaultStorageRoot() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".ocrprov", "databases")
	}
	return filepath.Join(home, ".ocrprov", "databases")
}

func defaultLogPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".ocrprov", "logs", "engine.log")
	}
	return filepath.Join(home, ".ocrprov", "logs", "engine.log")
}

// GetUserConfigPath returns the user/global configuration file path,
// following the XDG Base Directory spec:
//   - $XDG_CONFIG_HOME/ocrprov/config.yaml (if set)
//   - ~/.config/ocrprov/config.yaml (default)
func GetUserConfigPath() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "ocrprov", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".config", "ocrprov", "config.yaml")
	}
	return filepath.Join(home, ".config", "ocrprov", "config.yaml")
}

// GetUserConfigDir returns the directory containing the user configuration.
func GetUserConfigDir() string {
	return filepath.Dir(GetUserConfigPath())
}

// UserConfigExists reports whether the user configuration file exists.
func UserConfigExists() bool {
	return fileExists(GetUserConfigPath())
}

func loadUserConfig() (*Config, error) {
	configPath := GetUserConfigPath()
	if !fileExists(configPath) {
		return nil, nil
	}

	cfg := NewConfig()
	if err := cfg.loadYAML(configPath); err != nil {
		return nil, fmt.Errorf("failed to load user config from %s: %w", configPath, err)
	}
	return cfg, nil
}

// LoadUserConfig loads the user configuration file, or returns a nil
// config and nil error if none exists.
func LoadUserConfig() (*Config, error) {
	return loadUserConfig()
}

// Load loads configuration for a project directory, applying in order of
// increasing precedence: hardcoded defaults, user config, project config
// (ocrprov.yaml in dir), then OCRPROV_* environment variables.
func Load(dir string) (*Config, error) {
	cfg := NewConfig()

	if userCfg, err := loadUserConfig(); err != nil {
		return nil, fmt.Errorf("failed to load user config: %w", err)
	} else if userCfg != nil {
		cfg.mergeWith(userCfg)
	}

	if err := cfg.loadFromFile(dir); err != nil {
		return nil, err
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFromFile(dir string) error {
	yamlPath := filepath.Join(dir, "ocrprov.yaml")
	if _, err := os.Stat(yamlPath); err == nil {
		return c.loadYAML(yamlPath)
	}

	ymlPath := filepath.Join(dir, "ocrprov.yml")
	if _, err := os.Stat(ymlPath); err == nil {
		return c.loadYAML(ymlPath)
	}

	return nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	c.mergeWith(&parsed)
	return nil
}

// mergeWith merges non-zero-valued fields from other into c.
func (c *Config) mergeWith(other *Config) {
	if other.Version != 0 {
		c.Version = other.Version
	}

	if other.Storage.Root != "" {
		c.Storage.Root = other.Storage.Root
	}
	if len(other.Storage.AllowedDirs) > 0 {
		c.Storage.AllowedDirs = other.Storage.AllowedDirs
	}

	if other.Search.BM25Weight != 0 {
		c.Search.BM25Weight = other.Search.BM25Weight
	}
	if other.Search.SemanticWeight != 0 {
		c.Search.SemanticWeight = other.Search.SemanticWeight
	}
	if other.Search.RRFConstant != 0 {
		c.Search.RRFConstant = other.Search.RRFConstant
	}
	if other.Search.MaxResults != 0 {
		c.Search.MaxResults = other.Search.MaxResults
	}

	if other.Embed.Device != "" {
		c.Embed.Device = other.Embed.Device
	}
	if other.Embed.Dimension != 0 {
		c.Embed.Dimension = other.Embed.Dimension
	}

	if other.Logging.Level != "" {
		c.Logging.Level = other.Logging.Level
	}
	if other.Logging.Path != "" {
		c.Logging.Path = other.Logging.Path
	}
}

// applyEnvOverrides applies OCRPROV_* environment variable overrides, the
// highest-precedence layer.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("OCRPROV_STORAGE_ROOT"); v != "" {
		c.Storage.Root = v
	}
	if v := os.Getenv("OCRPROV_ALLOWED_DIRS"); v != "" {
		c.Storage.AllowedDirs = strings.Split(v, string(os.PathListSeparator))
	}

	if v := os.Getenv("OCRPROV_BM25_WEIGHT"); v != "" {
		if w, err := parseFloat64(v); err == nil && w >= 0 && w <= 1 {
			c.Search.BM25Weight = w
		}
	}
	if v := os.Getenv("OCRPROV_SEMANTIC_WEIGHT"); v != "" {
		if w, err := parseFloat64(v); err == nil && w >= 0 && w <= 1 {
			c.Search.SemanticWeight = w
		}
	}
	if v := os.Getenv("OCRPROV_RRF_CONSTANT"); v != "" {
		if k, err := strconv.Atoi(v); err == nil && k > 0 {
			c.Search.RRFConstant = k
		}
	}

	if v := os.Getenv("OCRPROV_EMBED_DEVICE"); v != "" {
		c.Embed.Device = v
	}
	if v := os.Getenv("OCRPROV_EMBED_DIMENSION"); v != "" {
		if d, err := strconv.Atoi(v); err == nil && d > 0 {
			c.Embed.Dimension = d
		}
	}

	if v := os.Getenv("OCRPROV_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("OCRPROV_LOG_PATH"); v != "" {
		c.Logging.Path = v
	}
}

func parseFloat64(s string) (float64, error) {
	var f float64
	_, err := fmt.Sscanf(strings.TrimSpace(s), "%f", &f)
	return f, err
}

// Validate checks the configuration for internal consistency.
func (c *Config) Validate() error {
	if c.Search.BM25Weight < 0 || c.Search.BM25Weight > 1 {
		return fmt.Errorf("bm25_weight must be between 0 and 1, got %f", c.Search.BM25Weight)
	}
	if c.Search.SemanticWeight < 0 || c.Search.SemanticWeight > 1 {
		return fmt.Errorf("semantic_weight must be between 0 and 1, got %f", c.Search.SemanticWeight)
	}
	if sum := c.Search.BM25Weight + c.Search.SemanticWeight; math.Abs(sum-1.0) > 0.01 {
		return fmt.Errorf("bm25_weight + semantic_weight must equal 1.0, got %.2f", sum)
	}
	if c.Search.MaxResults < 0 {
		return fmt.Errorf("max_results must be non-negative, got %d", c.Search.MaxResults)
	}
	if c.Search.RRFConstant < 0 {
		return fmt.Errorf("rrf_constant must be non-negative, got %d", c.Search.RRFConstant)
	}

	if c.Embed.Device != "" {
		validDevices := map[string]bool{"cpu": true, "cuda": true, "mps": true}
		if !validDevices[strings.ToLower(c.Embed.Device)] {
			return fmt.Errorf("embed.device must be 'cpu', 'cuda', 'mps', or empty (auto-detect), got %s", c.Embed.Device)
		}
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("logging.level must be 'debug', 'info', 'warn', or 'error', got %s", c.Logging.Level)
	}

	return nil
}

// WriteYAML writes the configuration to path.
func (c *Config) WriteYAML(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}
