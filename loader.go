package assimp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/alnah/go-assimp/internal/engine"
	"github.com/alnah/go-assimp/internal/locator"
	"github.com/alnah/go-assimp/internal/procengine"
	"github.com/alnah/go-assimp/internal/rodengine"
)

// ErrLoaderClosed is wrapped by load errors once the loader was closed.
var ErrLoaderClosed = errors.New("engine loader closed")

// Role names an engine slot.
type Role string

// Engine roles.
const (
	RoleImporter Role = "importer"
	RoleExporter Role = "exporter"
)

// Roles returns both engine roles, importer first.
func Roles() []Role {
	return []Role{RoleImporter, RoleExporter}
}

func (r Role) valid() bool {
	return r == RoleImporter || r == RoleExporter
}

// Browser backend asset names per role.
var browserAssets = map[Role][2]string{
	RoleImporter: {"assimpjs-all.js", "assimpjs-all.wasm"},
	RoleExporter: {"assimpjs-exporter.js", "assimpjs-exporter.wasm"},
}

// Handle is a ready engine owned by one loader slot.
// It is safe to share between goroutines when the underlying engine is.
type Handle struct {
	role Role
	inst Instance
}

// Role returns the slot the handle belongs to.
func (h *Handle) Role() Role {
	return h.role
}

// NewFileList creates an empty collection owned by the engine.
func (h *Handle) NewFileList() FileList {
	return h.inst.NewFileList()
}

// ConvertFileList converts the collection to the engine format token.
func (h *Handle) ConvertFileList(ctx context.Context, list FileList, format string) (*EngineResult, error) {
	return h.inst.ConvertFileList(ctx, list, format)
}

func (h *Handle) close() error {
	if c, ok := h.inst.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// slot is the settled outcome of a load. Failures are kept until Reset.
type slot struct {
	handle *Handle
	err    error
}

// EngineLoader lazily loads one engine per role and shares it.
//
// Concurrent Get calls for a role issued before the load settles share a
// single load and all receive the same Handle or the same error. A failed
// load stays failed until Reset.
type EngineLoader struct {
	locator *locator.Locator
	sources map[Role]EngineSource
	closers []io.Closer
	logger  Logger

	group singleflight.Group

	mu      sync.Mutex
	slots   map[Role]*slot
	gen     uint64
	retired []*Handle
	closed  bool
}

// NewEngineLoader creates a loader. Nothing is loaded until first use.
func NewEngineLoader(opts ...Option) (*EngineLoader, error) {
	cfg := newConfig(opts)
	if err := cfg.validate(); err != nil {
		return nil, newError(CodeEngineLoadFailed, err, "invalid configuration")
	}
	return newEngineLoader(cfg), nil
}

func newEngineLoader(cfg *config) *EngineLoader {
	fetcher := locator.NewFetcher(cfg.httpClient)
	l := &EngineLoader{
		locator: locator.New(cfg.bases, cfg.assetDir, fetcher),
		sources: make(map[Role]EngineSource, 2),
		logger:  cfg.logger,
		slots:   make(map[Role]*slot, 2),
	}
	for role, src := range cfg.sources {
		l.sources[role] = src
	}

	var missing []Role
	for _, role := range Roles() {
		if _, ok := l.sources[role]; !ok {
			missing = append(missing, role)
		}
	}
	if len(missing) == 0 {
		return l
	}

	switch cfg.backend {
	case BackendBrowser:
		b := rodengine.New(rodengine.Config{Fetcher: fetcher})
		l.closers = append(l.closers, b)
		for _, role := range missing {
			assets := browserAssets[role]
			l.sources[role] = EngineSource{Bootstrap: assets[0], Payload: assets[1], Injector: b}
		}
	default:
		b := procengine.New(procengine.Config{CacheDir: cfg.cacheDir, Fetcher: fetcher})
		for _, role := range missing {
			l.sources[role] = EngineSource{
				Bootstrap: procengine.BinaryName(),
				Extra:     procengine.PathCandidates(),
				Injector:  b,
			}
		}
	}
	return l
}

// DefaultBases looks for assets next to the running executable and under
// the working directory.
func DefaultBases() AssetBases {
	b := AssetBases{SiteRoot: "."}
	if exe, err := os.Executable(); err == nil {
		b.ModuleDir = filepath.Dir(exe)
	}
	return b
}

// Importer returns the importer engine, loading it on first use.
func (l *EngineLoader) Importer(ctx context.Context) (*Handle, error) {
	return l.Get(ctx, RoleImporter)
}

// Exporter returns the exporter engine, loading it on first use.
func (l *EngineLoader) Exporter(ctx context.Context) (*Handle, error) {
	return l.Get(ctx, RoleExporter)
}

// Get returns the engine for role, loading it on first use.
//
// Cancelling ctx stops the wait, not a load other callers may share.
func (l *EngineLoader) Get(ctx context.Context, role Role) (*Handle, error) {
	if !role.valid() {
		return nil, newError(CodeEngineLoadFailed, nil, "unknown role %q", string(role))
	}

	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil, newError(CodeEngineLoadFailed, ErrLoaderClosed, "%s", role)
	}
	if s, ok := l.slots[role]; ok {
		l.mu.Unlock()
		return s.handle, s.err
	}
	gen := l.gen
	l.mu.Unlock()

	key := fmt.Sprintf("%s/%d", role, gen)
	ch := l.group.DoChan(key, func() (any, error) {
		return l.settle(context.WithoutCancel(ctx), role, gen)
	})

	select {
	case <-ctx.Done():
		return nil, newError(CodeEngineLoadFailed, ctx.Err(), "waiting for %s", role)
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*Handle), nil
	}
}

// settle runs or reuses the load for role in generation gen and records it.
func (l *EngineLoader) settle(ctx context.Context, role Role, gen uint64) (*Handle, error) {
	l.mu.Lock()
	if s, ok := l.slots[role]; ok && l.gen == gen {
		l.mu.Unlock()
		return s.handle, s.err
	}
	l.mu.Unlock()

	h, err := l.loadGuarded(ctx, role)

	l.mu.Lock()
	defer l.mu.Unlock()
	switch {
	case l.closed:
		if h != nil {
			_ = h.close()
		}
		return nil, newError(CodeEngineLoadFailed, ErrLoaderClosed, "%s", role)
	case l.gen != gen:
		// Reset while loading: the caller still gets the result, the
		// cache does not.
		if h != nil {
			l.retired = append(l.retired, h)
		}
	default:
		l.slots[role] = &slot{handle: h, err: err}
	}
	if err != nil {
		return nil, err
	}
	return h, nil
}

func (l *EngineLoader) loadGuarded(ctx context.Context, role Role) (h *Handle, err error) {
	defer func() {
		if r := recover(); r != nil {
			h, err = nil, newError(CodeEngineLoadFailed, recovered(r), "%s", role)
		}
	}()
	return l.load(ctx, role)
}

// load locates and injects the bootstrap, pre-fetches the payload,
// instantiates the factory and waits for readiness.
func (l *EngineLoader) load(ctx context.Context, role Role) (*Handle, error) {
	src := l.sources[role]
	start := time.Now()

	candidates, err := l.locator.Candidates(src.Bootstrap)
	if err != nil {
		return nil, l.loadFailed(role, err, "bootstrap %q", src.Bootstrap)
	}
	candidates = append(candidates, src.Extra...)
	l.logger.Debug("loading engine", "role", role, "bootstrap", src.Bootstrap, "candidates", len(candidates))

	var factory Factory
	from, err := l.locator.InjectFirst(ctx, candidates, func(ctx context.Context, loc string) error {
		var registered Factory
		if err := src.Injector.Inject(ctx, loc, func(f Factory) { registered = f }); err != nil {
			return err
		}
		if registered == nil {
			return fmt.Errorf("%w after injecting %s", engine.ErrNoFactory, loc)
		}
		factory = registered
		return nil
	})
	if err != nil {
		return nil, l.loadFailed(role, err, "injecting %s", src.Bootstrap)
	}

	opts := FactoryOptions{PayloadName: src.Payload}
	payloadFrom := ""
	if src.Payload != "" {
		locs, err := l.locator.Candidates(src.Payload)
		if err != nil {
			return nil, l.loadFailed(role, err, "payload %q", src.Payload)
		}
		if data, at, ok := l.locator.FetchFirstAvailable(ctx, locs); ok {
			opts.Binary = data
			payloadFrom = at
		} else {
			l.logger.Debug("payload not pre-fetched", "role", role, "payload", src.Payload)
		}
	}
	opts.LocateFile = func(name string) string {
		if name == src.Payload && payloadFrom != "" {
			return payloadFrom
		}
		return l.locator.Resolve(name)
	}

	inst, err := factory(ctx, opts)
	if err != nil {
		return nil, l.loadFailed(role, err, "instantiating engine from %s", from)
	}
	if inst == nil {
		return nil, l.loadFailed(role, engine.ErrNoFactory, "factory from %s returned no instance", from)
	}
	h := &Handle{role: role, inst: inst}
	if err := inst.Ready(ctx); err != nil {
		_ = h.close()
		return nil, l.loadFailed(role, err, "engine from %s", from)
	}

	l.logger.Info("engine loaded", "role", role, "from", from, "duration", time.Since(start))
	return h, nil
}

func (l *EngineLoader) loadFailed(role Role, cause error, format string, args ...any) *Error {
	e := newError(CodeEngineLoadFailed, cause, "%s: %s", role, fmt.Sprintf(format, args...))
	l.logger.Error("engine load failed", "role", role, "error", e)
	return e
}

// Reset drops both slots so the next Get loads from scratch. Handles
// already handed out keep working until Close.
func (l *EngineLoader) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.gen++
	for role, s := range l.slots {
		if s.handle != nil {
			l.retired = append(l.retired, s.handle)
		}
		delete(l.slots, role)
	}
	l.logger.Debug("engine loader reset", "generation", l.gen)
}

// Close releases every engine and backend resource. Later Get calls fail.
// It is safe to call more than once.
func (l *EngineLoader) Close() error {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return nil
	}
	l.closed = true
	handles := l.retired
	l.retired = nil
	for _, s := range l.slots {
		if s.handle != nil {
			handles = append(handles, s.handle)
		}
	}
	clear(l.slots)
	l.mu.Unlock()

	var errs []error
	for _, h := range handles {
		if err := h.close(); err != nil {
			errs = append(errs, err)
		}
	}
	for _, c := range l.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Locations returns the ordered candidates for each role's bootstrap.
func (l *EngineLoader) Locations() (map[Role][]string, error) {
	out := make(map[Role][]string, 2)
	for _, role := range Roles() {
		src := l.sources[role]
		c, err := l.locator.Candidates(src.Bootstrap)
		if err != nil {
			return nil, newError(CodeEngineLoadFailed, err, "%s bootstrap", role)
		}
		out[role] = append(c, src.Extra...)
	}
	return out, nil
}
