package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	flag "github.com/spf13/pflag"

	assimp "github.com/alnah/go-assimp"
	"github.com/alnah/go-assimp/internal/config"
	"github.com/alnah/go-assimp/internal/procengine"
)

// settings is the resolved configuration of one CLI invocation.
type settings struct {
	format    assimp.ExportFormat
	outputDir string
	name      string
	workers   int
	timeout   time.Duration
	recursive bool
	backend   assimp.Backend
	bases     assimp.AssetBases
	assetDir  string
	cacheDir  string
}

// resolveConfig merges defaults, the config file, ASSIMP_* variables and
// flags that were explicitly set, in increasing precedence, and validates
// the result.
func resolveConfig(fs *flag.FlagSet, root *rootOptions, f *convertFlags, env *Environment) (*config.Config, error) {
	warnUnknownEnvVars(env.Stderr, os.Environ())

	envCfg, err := loadEnvConfig()
	if err != nil {
		return nil, err
	}

	cfg := config.DefaultConfig()
	configName := root.config
	if configName == "" {
		configName = envCfg.ConfigPath
	}
	if configName != "" {
		cfg, err = config.LoadConfig(configName)
		if err != nil {
			return nil, fmt.Errorf("loading config: %w", err)
		}
	}

	applyEnvConfig(envCfg, cfg)
	applyFlags(fs, f, cfg)
	if fs.Changed("timeout") {
		if f.timeout < 0 {
			return nil, fmt.Errorf("%w: --timeout must not be negative", ErrUsage)
		}
		cfg.Engine.Timeout = ""
		if f.timeout > 0 {
			cfg.Engine.Timeout = f.timeout.String()
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// resolveSettings turns the merged configuration into typed settings.
func resolveSettings(fs *flag.FlagSet, root *rootOptions, f *convertFlags, env *Environment) (*settings, error) {
	cfg, err := resolveConfig(fs, root, f, env)
	if err != nil {
		return nil, err
	}

	format, err := assimp.ParseFormat(cfg.Format)
	if err != nil {
		return nil, err
	}
	timeout, err := cfg.TimeoutDuration()
	if err != nil {
		return nil, err
	}

	s := &settings{
		format:    format,
		outputDir: cfg.Output.Dir,
		name:      f.name,
		workers:   cfg.Workers,
		timeout:   timeout,
		recursive: cfg.Input.Recursive,
		backend:   assimp.Backend(strings.ToLower(cfg.Engine.Backend)),
		assetDir:  cfg.Engine.AssetDir,
		cacheDir:  cfg.Engine.CacheDir,
	}
	if s.backend == "" {
		s.backend = assimp.BackendProcess
	}
	s.bases = assimp.DefaultBases()
	s.bases.DistBase = cfg.Engine.AssetBase
	if cfg.Engine.DevOrigin != "" {
		s.bases.Dev = true
		s.bases.DevOrigin = cfg.Engine.DevOrigin
	}
	return s, nil
}

// applyFlags copies flags the user set onto cfg so that unset flags never
// mask file or environment values.
func applyFlags(fs *flag.FlagSet, f *convertFlags, cfg *config.Config) {
	if fs.Changed("format") {
		cfg.Format = f.format
	}
	if fs.Changed("output") {
		cfg.Output.Dir = f.output
	}
	if fs.Changed("workers") {
		cfg.Workers = f.workers
	}
	if fs.Changed("recursive") {
		cfg.Input.Recursive = f.recursive
	}
	if fs.Changed("backend") {
		cfg.Engine.Backend = f.engine.backend
	}
	if fs.Changed("asset-base") {
		cfg.Engine.AssetBase = f.engine.assetBase
	}
	if fs.Changed("dev-origin") {
		cfg.Engine.DevOrigin = f.engine.devOrigin
	}
	if fs.Changed("asset-dir") {
		cfg.Engine.AssetDir = f.engine.assetDir
	}
	if fs.Changed("cache-dir") {
		cfg.Engine.CacheDir = f.engine.cacheDir
	}
}

// engineOptions returns the library options for s.
func (s *settings) engineOptions(logger assimp.Logger) []assimp.Option {
	opts := []assimp.Option{
		assimp.WithLogger(logger),
		assimp.WithBackend(s.backend),
		assimp.WithBases(s.bases),
		assimp.WithAssetDir(s.assetDir),
		assimp.WithCacheDir(s.cacheDir),
	}
	if s.timeout > 0 {
		opts = append(opts, assimp.WithTimeout(s.timeout))
	}
	return opts
}

// effectiveCacheDir is where the process backend caches downloads.
func (s *settings) effectiveCacheDir() string {
	if s.cacheDir != "" {
		return s.cacheDir
	}
	return procengine.DefaultCacheDir()
}
