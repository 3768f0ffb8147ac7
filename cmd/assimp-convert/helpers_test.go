package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	assimp "github.com/alnah/go-assimp"
)

// fakeConverter converts by prefixing the primary buffer with the target
// format. Inputs whose primary buffer name is in fail return that error.
type fakeConverter struct {
	mu      sync.Mutex
	warmErr error
	fail    map[string]*assimp.Error
	inputs  [][]string
	names   []string
	closed  bool
}

func (f *fakeConverter) Warm(context.Context) error { return f.warmErr }

func (f *fakeConverter) TryConvert(ctx context.Context, src assimp.InputSource, target assimp.ExportFormat, opts *assimp.ConvertOptions) assimp.ConversionResult {
	bufs, err := assimp.Normalize(ctx, src)
	if err != nil {
		var e *assimp.Error
		errors.As(err, &e)
		return assimp.ConversionResult{Err: e}
	}

	f.mu.Lock()
	names := make([]string, len(bufs))
	for i, b := range bufs {
		names[i] = b.Name
	}
	f.inputs = append(f.inputs, names)
	if opts != nil {
		f.names = append(f.names, opts.Name)
	}
	f.mu.Unlock()

	if e := f.fail[bufs[0].Name]; e != nil {
		return assimp.ConversionResult{Err: e}
	}
	name, err := assimp.OutputName(bufs, target, opts)
	if err != nil {
		var e *assimp.Error
		errors.As(err, &e)
		return assimp.ConversionResult{Err: e}
	}
	return assimp.ConversionResult{Data: append([]byte(string(target)+":"), bufs[0].Data...), Name: name}
}

func (f *fakeConverter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// testEnv returns an environment backed by conv with captured output.
func testEnv(conv *fakeConverter) (*Environment, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	env := &Environment{
		Stdout: &stdout,
		Stderr: &stderr,
		NewConverter: func(...assimp.Option) (CLIConverter, error) {
			return conv, nil
		},
		NewLoader:  assimp.NewEngineLoader,
		LookChrome: func() (string, bool) { return "", false },
	}
	return env, &stdout, &stderr
}

// writeFiles creates files (relative path -> content) under dir.
func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		p := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading %s: %v", path, err)
	}
	return string(data)
}
