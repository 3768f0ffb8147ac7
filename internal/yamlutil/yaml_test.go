package yamlutil_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/alnah/go-assimp/internal/yamlutil"
)

type testConfig struct {
	Format  string `yaml:"format"`
	Workers int    `yaml:"workers"`
	Timeout string `yaml:"timeout"`
}

func TestUnmarshalStrict(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		data    []byte
		dest    any
		wantErr error
		check   func(t *testing.T, v any)
	}{
		{
			name: "known fields",
			data: []byte("format: glb\nworkers: 3\ntimeout: 90s"),
			dest: &testConfig{},
			check: func(t *testing.T, v any) {
				cfg := v.(*testConfig)
				if cfg.Format != "glb" || cfg.Workers != 3 || cfg.Timeout != "90s" {
					t.Errorf("decoded = %+v", cfg)
				}
			},
		},
		{
			name:    "unknown field",
			data:    []byte("format: glb\nformt: stl"),
			dest:    &testConfig{},
			wantErr: errors.New("yamlutil:"),
		},
		{
			name:    "malformed",
			data:    []byte("format: [unclosed"),
			dest:    &testConfig{},
			wantErr: errors.New("yamlutil:"),
		},
		{name: "nil data", data: nil, dest: &testConfig{}, wantErr: yamlutil.ErrNilData},
		{name: "empty data", data: []byte{}, dest: &testConfig{}, wantErr: yamlutil.ErrNilData},
		{name: "nil destination", data: []byte("format: glb"), dest: nil, wantErr: yamlutil.ErrNilDestination},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := yamlutil.UnmarshalStrict(tt.data, tt.dest)
			if tt.wantErr != nil {
				if err == nil {
					t.Fatalf("expected error containing %q, got nil", tt.wantErr)
				}
				if errors.Is(err, tt.wantErr) {
					return
				}
				if !strings.HasPrefix(err.Error(), tt.wantErr.Error()) {
					t.Fatalf("error = %q, want prefix %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.check != nil {
				tt.check(t, tt.dest)
			}
		})
	}
}

func TestMarshal(t *testing.T) {
	t.Parallel()

	data, err := yamlutil.Marshal(&testConfig{Format: "stl", Workers: 2})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	s := string(data)
	if !strings.Contains(s, "format: stl") || !strings.Contains(s, "workers: 2") {
		t.Errorf("Marshal() = %q", s)
	}
}

// Modifies MaxInputSize; not parallel.
func TestInputSizeLimit(t *testing.T) {
	orig := yamlutil.MaxInputSize
	t.Cleanup(func() { yamlutil.MaxInputSize = orig })

	yamlutil.MaxInputSize = 16
	err := yamlutil.UnmarshalStrict([]byte("format: "+strings.Repeat("x", 32)), &testConfig{})
	if !errors.Is(err, yamlutil.ErrInputTooLarge) {
		t.Fatalf("error = %v, want ErrInputTooLarge", err)
	}

	yamlutil.MaxInputSize = 64
	if err := yamlutil.UnmarshalStrict([]byte("format: obj"), &testConfig{}); err != nil {
		t.Fatalf("input under limit: %v", err)
	}
}
