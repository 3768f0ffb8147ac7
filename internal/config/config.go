package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/alnah/go-assimp/internal/fileutil"
	"github.com/alnah/go-assimp/internal/yamlutil"
)

// Sentinel errors for config operations.
var (
	ErrConfigNotFound  = errors.New("config file not found")
	ErrEmptyConfigName = errors.New("config name cannot be empty")
	ErrConfigParse     = errors.New("failed to parse config")
	ErrFieldTooLong    = errors.New("field exceeds maximum length")
	ErrInvalidValue    = errors.New("invalid config value")
)

// userDirName is the directory under the user config dir searched for
// named configs.
const userDirName = "go-assimp"

// Field limits.
const (
	MaxFormatLength = 10
	MaxPathLength   = 4096
	MaxURLLength    = 2048
	MaxWorkers      = 32
)

// Config holds the CLI configuration file contents.
type Config struct {
	Format  string       `yaml:"format"`  // default export format
	Workers int          `yaml:"workers"` // 0 = auto
	Input   InputConfig  `yaml:"input"`
	Output  OutputConfig `yaml:"output"`
	Engine  EngineConfig `yaml:"engine"`
}

// InputConfig defines input discovery options.
type InputConfig struct {
	Recursive bool `yaml:"recursive"` // descend into subdirectories
}

// OutputConfig defines output destination options.
type OutputConfig struct {
	Dir string `yaml:"dir"` // empty = beside each input, working directory for URLs
}

// EngineConfig defines how engines are located and run.
type EngineConfig struct {
	Backend   string `yaml:"backend"`   // "process" (default) or "browser"
	AssetBase string `yaml:"assetBase"` // packaged distribution root
	DevOrigin string `yaml:"devOrigin"` // enables development candidates when set
	AssetDir  string `yaml:"assetDir"`  // directory under each base, default "wasm"
	CacheDir  string `yaml:"cacheDir"`  // downloaded engine cache
	Timeout   string `yaml:"timeout"`   // per-conversion bound, e.g. "2m"
}

// TimeoutDuration parses Engine.Timeout. An empty value is zero.
func (c *Config) TimeoutDuration() (time.Duration, error) {
	if c.Engine.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Engine.Timeout)
	if err != nil {
		return 0, fmt.Errorf("%w: engine.timeout %q: %v", ErrInvalidValue, c.Engine.Timeout, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: engine.timeout must be positive, got %s", ErrInvalidValue, d)
	}
	return d, nil
}

// Validate checks field lengths and value ranges.
// Called automatically by LoadConfig.
func (c *Config) Validate() error {
	if err := validateFieldLength("format", c.Format, MaxFormatLength); err != nil {
		return err
	}
	if c.Workers < 0 || c.Workers > MaxWorkers {
		return fmt.Errorf("%w: workers must be between 0 and %d, got %d", ErrInvalidValue, MaxWorkers, c.Workers)
	}
	if err := validateFieldLength("output.dir", c.Output.Dir, MaxPathLength); err != nil {
		return err
	}

	switch strings.ToLower(c.Engine.Backend) {
	case "", "process", "browser":
	default:
		return fmt.Errorf("%w: engine.backend %q (must be process or browser)", ErrInvalidValue, c.Engine.Backend)
	}
	if err := validateFieldLength("engine.assetBase", c.Engine.AssetBase, MaxURLLength); err != nil {
		return err
	}
	if err := validateFieldLength("engine.devOrigin", c.Engine.DevOrigin, MaxURLLength); err != nil {
		return err
	}
	if c.Engine.DevOrigin != "" && !fileutil.IsURL(c.Engine.DevOrigin) {
		return fmt.Errorf("%w: engine.devOrigin must be an http(s) URL, got %q", ErrInvalidValue, c.Engine.DevOrigin)
	}
	if strings.ContainsAny(c.Engine.AssetDir, "/\\\x00") || c.Engine.AssetDir == ".." {
		return fmt.Errorf("%w: engine.assetDir must be a single directory name, got %q", ErrInvalidValue, c.Engine.AssetDir)
	}
	if err := validateFieldLength("engine.cacheDir", c.Engine.CacheDir, MaxPathLength); err != nil {
		return err
	}
	if _, err := c.TimeoutDuration(); err != nil {
		return err
	}
	return nil
}

// validateFieldLength checks if a field exceeds its maximum allowed length.
func validateFieldLength(fieldName, value string, maxLength int) error {
	if len(value) > maxLength {
		return fmt.Errorf("%w: %s (%d chars, max %d)", ErrFieldTooLong, fieldName, len(value), maxLength)
	}
	return nil
}

// YAML encodes c in the config file format, so the output can be saved
// and loaded back with LoadConfig.
func (c *Config) YAML() ([]byte, error) {
	return yamlutil.Marshal(c)
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Format: "glb",
		Engine: EngineConfig{Backend: "process"},
	}
}

// LoadConfig loads configuration from a file path or config name.
// If nameOrPath contains a path separator, it's treated as a file path.
// Otherwise, it's treated as a config name and searched in standard locations.
// Returns error if the file is not found (no silent fallback).
func LoadConfig(nameOrPath string) (*Config, error) {
	if nameOrPath == "" {
		return nil, ErrEmptyConfigName
	}

	configPath := nameOrPath
	if !fileutil.IsFilePath(nameOrPath) {
		var err error
		configPath, err = resolveConfigPath(nameOrPath)
		if err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(configPath) // #nosec G304 -- config path is user-provided
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, configPath)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yamlutil.UnmarshalStrict(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfigParse, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SearchPaths returns the locations tried for a config name, in order.
func SearchPaths(name string) []string {
	extensions := []string{".yaml", ".yml"}
	paths := make([]string, 0, len(extensions)*2)
	for _, ext := range extensions {
		paths = append(paths, name+ext)
	}
	if dir, err := os.UserConfigDir(); err == nil {
		for _, ext := range extensions {
			paths = append(paths, filepath.Join(dir, userDirName, name+ext))
		}
	}
	return paths
}

// resolveConfigPath returns the first existing entry of SearchPaths.
func resolveConfigPath(name string) (string, error) {
	tried := SearchPaths(name)
	for _, p := range tried {
		if fileutil.FileExists(p) {
			return p, nil
		}
	}
	return "", fmt.Errorf("%w: tried %s", ErrConfigNotFound, strings.Join(tried, ", "))
}
