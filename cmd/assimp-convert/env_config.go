package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/alnah/go-assimp/internal/config"
)

// envPrefix namespaces every environment variable the CLI reads.
const envPrefix = "ASSIMP"

// envKeys are the viper keys bound to ASSIMP_<KEY> variables.
var envKeys = []string{
	"config",     // ASSIMP_CONFIG: config name or path
	"format",     // ASSIMP_FORMAT: export format
	"output_dir", // ASSIMP_OUTPUT_DIR: output directory
	"backend",    // ASSIMP_BACKEND: process or browser
	"asset_base", // ASSIMP_ASSET_BASE: packaged distribution root
	"dev_origin", // ASSIMP_DEV_ORIGIN: development server origin
	"cache_dir",  // ASSIMP_CACHE_DIR: engine download cache
	"timeout",    // ASSIMP_TIMEOUT: per-conversion timeout
	"workers",    // ASSIMP_WORKERS: parallel conversions
	"container",  // ASSIMP_CONTAINER: 1 forces container detection in doctor
}

// envConfig holds configuration from environment variables.
// Provides CI/CD-friendly overrides without requiring YAML files.
type envConfig struct {
	ConfigPath string
	Format     string
	OutputDir  string
	Backend    string
	AssetBase  string
	DevOrigin  string
	CacheDir   string
	Timeout    string
	Workers    int
	HasWorkers bool
}

// envVarName returns the environment variable bound to key.
func envVarName(key string) string {
	return envPrefix + "_" + strings.ToUpper(key)
}

// loadEnvConfig reads the ASSIMP_* variables through viper.
// Malformed numbers and durations are reported, not ignored.
func loadEnvConfig() (*envConfig, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	for _, key := range envKeys {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("binding %s: %w", envVarName(key), err)
		}
	}

	cfg := &envConfig{
		ConfigPath: v.GetString("config"),
		Format:     v.GetString("format"),
		OutputDir:  v.GetString("output_dir"),
		Backend:    v.GetString("backend"),
		AssetBase:  v.GetString("asset_base"),
		DevOrigin:  v.GetString("dev_origin"),
		CacheDir:   v.GetString("cache_dir"),
		Timeout:    v.GetString("timeout"),
	}

	if cfg.Timeout != "" {
		if d, err := time.ParseDuration(cfg.Timeout); err != nil || d <= 0 {
			return nil, fmt.Errorf("%w: %s=%q is not a positive duration", config.ErrInvalidValue, envVarName("timeout"), cfg.Timeout)
		}
	}
	if raw := v.GetString("workers"); raw != "" {
		w, err := strconv.Atoi(raw)
		if err != nil || w < 0 {
			return nil, fmt.Errorf("%w: %s=%q is not a worker count", config.ErrInvalidValue, envVarName("workers"), raw)
		}
		cfg.Workers, cfg.HasWorkers = w, true
	}
	return cfg, nil
}

// warnUnknownEnvVars logs warnings for unrecognized ASSIMP_* variables.
// Helps catch typos like ASSIMP_FROMAT.
func warnUnknownEnvVars(w io.Writer, environ []string) {
	known := make(map[string]bool, len(envKeys))
	for _, key := range envKeys {
		known[envVarName(key)] = true
	}

	var unknown []string
	for _, kv := range environ {
		name, _, _ := strings.Cut(kv, "=")
		if strings.HasPrefix(name, envPrefix+"_") && !known[name] {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	for _, name := range unknown {
		fmt.Fprintf(w, "warning: unknown environment variable %s (typo?)\n", name)
	}
}

// applyEnvConfig overlays set environment values on cfg.
// Precedence: CLI flags > env vars > config file > defaults
// (flags are applied afterwards by applyFlags).
func applyEnvConfig(env *envConfig, cfg *config.Config) {
	if env.Format != "" {
		cfg.Format = env.Format
	}
	if env.OutputDir != "" {
		cfg.Output.Dir = env.OutputDir
	}
	if env.Backend != "" {
		cfg.Engine.Backend = env.Backend
	}
	if env.AssetBase != "" {
		cfg.Engine.AssetBase = env.AssetBase
	}
	if env.DevOrigin != "" {
		cfg.Engine.DevOrigin = env.DevOrigin
	}
	if env.CacheDir != "" {
		cfg.Engine.CacheDir = env.CacheDir
	}
	if env.Timeout != "" {
		cfg.Engine.Timeout = env.Timeout
	}
	if env.HasWorkers {
		cfg.Workers = env.Workers
	}
}
