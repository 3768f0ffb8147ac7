package main

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/alnah/go-assimp/internal/config"
)

// Tests here use t.Setenv and cannot run in parallel.

func TestLoadEnvConfig(t *testing.T) {
	t.Setenv("ASSIMP_CONFIG", "ci")
	t.Setenv("ASSIMP_FORMAT", "stl")
	t.Setenv("ASSIMP_OUTPUT_DIR", "/tmp/out")
	t.Setenv("ASSIMP_BACKEND", "browser")
	t.Setenv("ASSIMP_ASSET_BASE", "https://cdn.example.com/assimp")
	t.Setenv("ASSIMP_DEV_ORIGIN", "http://localhost:5173")
	t.Setenv("ASSIMP_CACHE_DIR", "/var/cache/assimp")
	t.Setenv("ASSIMP_TIMEOUT", "30s")
	t.Setenv("ASSIMP_WORKERS", "3")

	env, err := loadEnvConfig()
	if err != nil {
		t.Fatalf("loadEnvConfig() error = %v", err)
	}

	want := envConfig{
		ConfigPath: "ci",
		Format:     "stl",
		OutputDir:  "/tmp/out",
		Backend:    "browser",
		AssetBase:  "https://cdn.example.com/assimp",
		DevOrigin:  "http://localhost:5173",
		CacheDir:   "/var/cache/assimp",
		Timeout:    "30s",
		Workers:    3,
		HasWorkers: true,
	}
	if *env != want {
		t.Errorf("loadEnvConfig() = %+v\nwant %+v", *env, want)
	}
}

func TestLoadEnvConfig_Unset(t *testing.T) {
	for _, key := range envKeys {
		t.Setenv(envVarName(key), "")
	}

	env, err := loadEnvConfig()
	if err != nil {
		t.Fatalf("loadEnvConfig() error = %v", err)
	}
	if *env != (envConfig{}) {
		t.Errorf("loadEnvConfig() = %+v, want zero", *env)
	}
}

func TestLoadEnvConfig_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{name: "timeout not a duration", key: "ASSIMP_TIMEOUT", value: "soon"},
		{name: "negative timeout", key: "ASSIMP_TIMEOUT", value: "-1s"},
		{name: "workers not a number", key: "ASSIMP_WORKERS", value: "many"},
		{name: "negative workers", key: "ASSIMP_WORKERS", value: "-2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)

			_, err := loadEnvConfig()
			if !errors.Is(err, config.ErrInvalidValue) {
				t.Errorf("error = %v, want ErrInvalidValue", err)
			}
			if err != nil && !strings.Contains(err.Error(), tt.key) {
				t.Errorf("error %q does not name %s", err, tt.key)
			}
		})
	}
}

func TestWarnUnknownEnvVars(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	warnUnknownEnvVars(&buf, []string{
		"ASSIMP_FORMAT=glb",
		"ASSIMP_FROMAT=glb",
		"ASSIMP_WORKER=2",
		"ASSIMPX=1",
		"PATH=/usr/bin",
	})

	out := buf.String()
	if !strings.Contains(out, "ASSIMP_FROMAT") || !strings.Contains(out, "ASSIMP_WORKER ") {
		t.Errorf("output = %q, want warnings for both typos", out)
	}
	if strings.Contains(out, "ASSIMP_FORMAT ") || strings.Contains(out, "ASSIMPX") || strings.Contains(out, "PATH") {
		t.Errorf("output = %q, warned about a valid or foreign variable", out)
	}
	if strings.Index(out, "ASSIMP_FROMAT") > strings.Index(out, "ASSIMP_WORKER ") {
		t.Error("warnings not sorted")
	}
}

func TestApplyEnvConfig_OverridesFile(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultConfig()
	cfg.Format = "obj"
	cfg.Workers = 2
	cfg.Output.Dir = "from-file"

	applyEnvConfig(&envConfig{Format: "fbx", HasWorkers: true, Workers: 0}, cfg)

	if cfg.Format != "fbx" {
		t.Errorf("Format = %q, want env value", cfg.Format)
	}
	if cfg.Workers != 0 {
		t.Errorf("Workers = %d, want explicit env 0", cfg.Workers)
	}
	if cfg.Output.Dir != "from-file" {
		t.Errorf("Output.Dir = %q, unset env must not clear it", cfg.Output.Dir)
	}
}
