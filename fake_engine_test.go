package assimp

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

// ---------------------------------------------------------------------------
// Fake engine
// ---------------------------------------------------------------------------

// fakeEngine echoes its input through a configurable convert function.
type fakeEngine struct {
	mu       sync.Mutex
	calls    int
	inputs   [][]OutputFile
	formats  []string
	readyErr error
	closed   atomic.Int32
	convert  func(ctx context.Context, files []OutputFile, format string) (*EngineResult, error)
}

func (e *fakeEngine) NewFileList() FileList {
	return &MemFileList{}
}

func (e *fakeEngine) ConvertFileList(ctx context.Context, list FileList, format string) (*EngineResult, error) {
	ml, ok := list.(*MemFileList)
	if !ok {
		return nil, errors.New("foreign list")
	}
	e.mu.Lock()
	e.calls++
	e.inputs = append(e.inputs, ml.Files)
	e.formats = append(e.formats, format)
	e.mu.Unlock()
	return e.convert(ctx, ml.Files, format)
}

func (e *fakeEngine) Ready(context.Context) error {
	return e.readyErr
}

func (e *fakeEngine) Close() error {
	e.closed.Add(1)
	return nil
}

func (e *fakeEngine) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// tokenExt mirrors the extensions assimp writes for each token.
var tokenExt = map[string]string{"glb2": "glb", "usdz": "usdz"}

// glbMagic prefixes every fake glTF-binary output.
const glbMagic = "glTF"

// importAsGLB turns the primary input into model.glb.
func importAsGLB(_ context.Context, files []OutputFile, _ string) (*EngineResult, error) {
	content := append([]byte(glbMagic), files[0].Content...)
	return &EngineResult{Success: true, Files: []OutputFile{{Path: "model.glb", Content: content}}}, nil
}

// exportAs writes input.<ext> whose content is "<token>|<input>".
func exportAs(_ context.Context, files []OutputFile, format string) (*EngineResult, error) {
	ext, ok := tokenExt[format]
	if !ok {
		ext = format
	}
	content := []byte(format + "|" + string(files[0].Content))
	if format == "glb2" {
		content = files[0].Content
	}
	return &EngineResult{Success: true, Files: []OutputFile{{Path: "input." + ext, Content: content}}}, nil
}

// ---------------------------------------------------------------------------
// Fake injector
// ---------------------------------------------------------------------------

// fakeSource injects a fakeEngine and counts every step of a load.
type fakeSource struct {
	engine *fakeEngine

	mu        sync.Mutex
	injected  []string
	failAt    map[string]error // Inject fails for these locations
	failAll   error            // Inject fails everywhere
	noFactory bool             // Inject succeeds without registering
	panicMsg  string

	factories atomic.Int32
	lastOpts  FactoryOptions
	gate      chan struct{} // factory blocks until closed
	started   chan struct{} // closed when the first factory call begins
	startOnce sync.Once
}

func newFakeSource(convert func(context.Context, []OutputFile, string) (*EngineResult, error)) *fakeSource {
	return &fakeSource{engine: &fakeEngine{convert: convert}}
}

func (s *fakeSource) Inject(_ context.Context, loc string, register func(Factory)) error {
	s.mu.Lock()
	s.injected = append(s.injected, loc)
	failAll, failAt, noFactory, panicMsg := s.failAll, s.failAt[loc], s.noFactory, s.panicMsg
	s.mu.Unlock()

	if panicMsg != "" {
		panic(panicMsg)
	}
	if failAll != nil {
		return failAll
	}
	if failAt != nil {
		return failAt
	}
	if noFactory {
		return nil
	}
	register(s.factory)
	return nil
}

func (s *fakeSource) factory(ctx context.Context, opts FactoryOptions) (Instance, error) {
	s.factories.Add(1)
	s.mu.Lock()
	s.lastOpts = opts
	s.mu.Unlock()
	if s.started != nil {
		s.startOnce.Do(func() { close(s.started) })
	}
	if s.gate != nil {
		select {
		case <-s.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.engine, nil
}

func (s *fakeSource) setFailAll(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failAll = err
}

func (s *fakeSource) injectCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.injected)
}

func (s *fakeSource) locations() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.injected...)
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// testBases yields exactly one candidate per asset: ./wasm/<name>.
var testBases = AssetBases{SiteRoot: "."}

func sourceOpts(imp, exp *fakeSource) []Option {
	return []Option{
		WithBases(testBases),
		WithEngineSource(RoleImporter, EngineSource{Bootstrap: "importer.js", Injector: imp}),
		WithEngineSource(RoleExporter, EngineSource{Bootstrap: "exporter.js", Injector: exp}),
	}
}

func newTestConverter(t *testing.T, imp, exp *fakeSource, opts ...Option) *Converter {
	t.Helper()
	c, err := NewConverter(append(sourceOpts(imp, exp), opts...)...)
	if err != nil {
		t.Fatalf("NewConverter() error = %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func newTestLoader(t *testing.T, imp, exp *fakeSource, opts ...Option) *EngineLoader {
	t.Helper()
	l, err := NewEngineLoader(append(sourceOpts(imp, exp), opts...)...)
	if err != nil {
		t.Fatalf("NewEngineLoader() error = %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func assertCode(t *testing.T, err error, want Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", want)
	}
	var e *Error
	if !errors.As(err, &e) {
		t.Fatalf("error %v (%T) is not *Error", err, err)
	}
	if e.Code != want {
		t.Fatalf("code = %s, want %s (error: %v)", e.Code, want, err)
	}
	if !errors.Is(err, sentinels[want]) {
		t.Errorf("errors.Is(err, %v) = false", sentinels[want])
	}
}

// recordingLogger collects messages per level.
type recordingLogger struct {
	mu    sync.Mutex
	lines []string
}

func (l *recordingLogger) log(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, level+" "+msg)
}

func (l *recordingLogger) Debug(msg string, _ ...any) { l.log("DEBUG", msg) }
func (l *recordingLogger) Info(msg string, _ ...any)  { l.log("INFO", msg) }
func (l *recordingLogger) Warn(msg string, _ ...any)  { l.log("WARN", msg) }
func (l *recordingLogger) Error(msg string, _ ...any) { l.log("ERROR", msg) }

func (l *recordingLogger) has(level, substr string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, line := range l.lines {
		if strings.HasPrefix(line, level+" ") && strings.Contains(line, substr) {
			return true
		}
	}
	return false
}
