package assimp

import (
	"fmt"
	"net/http"
	"time"

	"github.com/alnah/go-assimp/internal/engine"
	"github.com/alnah/go-assimp/internal/locator"
)

// Engine capability types, shared with custom engine implementations.
type (
	Engine         = engine.Engine
	FileList       = engine.FileList
	EngineResult   = engine.Result
	OutputFile     = engine.OutputFile
	Instance       = engine.Instance
	Factory        = engine.Factory
	FactoryOptions = engine.FactoryOptions
	Injector       = engine.Injector
	InjectorFunc   = engine.InjectorFunc
	MemFileList    = engine.MemFileList
)

// AssetBases are the roots engine asset candidates are derived from.
// See the locator order in the package documentation.
type AssetBases = locator.Bases

// Backend selects the built-in engine implementation.
type Backend string

// Built-in backends.
const (
	// BackendProcess runs the assimp command-line tool.
	BackendProcess Backend = "process"

	// BackendBrowser runs assimpjs inside headless Chrome.
	BackendBrowser Backend = "browser"
)

// Backends returns the built-in backends.
func Backends() []Backend {
	return []Backend{BackendProcess, BackendBrowser}
}

// HTTPClient is the interface for HTTP operations.
// *http.Client satisfies this interface.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Logger is the interface for diagnostic logging.
// Compatible with *slog.Logger and other structured loggers.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// EngineSource describes how to obtain the engine for one role.
type EngineSource struct {
	// Bootstrap is the asset name of the code that provides the factory.
	Bootstrap string

	// Payload is the asset name of the companion binary, "" when none.
	Payload string

	// Extra locations are tried after the conventional candidates.
	Extra []string

	// Injector loads the bootstrap from a location and registers its factory.
	Injector Injector
}

// Option configures a Converter or EngineLoader.
type Option func(*config)

// config holds settings shared by NewConverter and NewEngineLoader.
type config struct {
	logger     Logger
	httpClient HTTPClient
	backend    Backend
	bases      AssetBases
	assetDir   string
	cacheDir   string
	sources    map[Role]EngineSource
	timeout    time.Duration
	loader     *EngineLoader
}

func newConfig(opts []Option) *config {
	cfg := &config{
		logger:     nopLogger{},
		httpClient: http.DefaultClient,
		backend:    BackendProcess,
		bases:      DefaultBases(),
		assetDir:   locator.DefaultAssetDir,
		sources:    make(map[Role]EngineSource),
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

func (c *config) validate() error {
	switch c.backend {
	case BackendProcess, BackendBrowser:
	default:
		return fmt.Errorf("unknown backend %q", c.backend)
	}
	for role, src := range c.sources {
		if src.Injector == nil {
			return fmt.Errorf("engine source for %s has no injector", role)
		}
		if err := locator.ValidateAssetName(src.Bootstrap); err != nil {
			return fmt.Errorf("engine source for %s: %w", role, err)
		}
	}
	return nil
}

// WithLogger sets a logger for diagnostic output.
// If not set, logging is disabled.
func WithLogger(logger Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithHTTPClient sets the client used for asset and input fetches.
// If not set, http.DefaultClient is used.
func WithHTTPClient(client HTTPClient) Option {
	return func(c *config) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBackend selects the built-in engine backend (default BackendProcess).
func WithBackend(b Backend) Option {
	return func(c *config) {
		c.backend = b
	}
}

// WithBases replaces the asset candidate roots.
func WithBases(b AssetBases) Option {
	return func(c *config) {
		c.bases = b
	}
}

// WithAssetDir sets the directory name under each base holding engine assets
// (default "wasm").
func WithAssetDir(dir string) Option {
	return func(c *config) {
		if dir != "" {
			c.assetDir = dir
		}
	}
}

// WithCacheDir sets where downloaded engine binaries are cached.
// If not set, the user cache directory is used.
func WithCacheDir(dir string) Option {
	return func(c *config) {
		c.cacheDir = dir
	}
}

// WithEngineSource overrides how the engine for role is obtained.
func WithEngineSource(role Role, src EngineSource) Option {
	return func(c *config) {
		c.sources[role] = src
	}
}

// WithTimeout bounds each Convert call. Zero, the default, means no bound.
// Panics if d < 0 (programmer error, similar to time.NewTicker).
func WithTimeout(d time.Duration) Option {
	if d < 0 {
		panic("assimp: WithTimeout duration must not be negative")
	}
	return func(c *config) {
		c.timeout = d
	}
}

// WithEngineLoader makes the Converter use a shared loader instead of
// creating its own. The Converter does not close a shared loader.
func WithEngineLoader(l *EngineLoader) Option {
	return func(c *config) {
		c.loader = l
	}
}
