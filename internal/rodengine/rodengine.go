// Package rodengine runs the assimpjs WebAssembly engine inside headless
// Chrome through go-rod.
//
// Each successful injection gets its own blank page: the bootstrap script is
// fetched on the Go side and added inline, then the page must expose a global
// assimpjs factory. Buffers cross the DevTools boundary as base64.
package rodengine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/alnah/go-assimp/internal/engine"
	"github.com/alnah/go-assimp/internal/locator"
)

// Sentinel errors for the browser backend.
var (
	ErrBrowserConnect = errors.New("failed to connect to browser")
	ErrPageCreate     = errors.New("failed to create browser page")
	ErrScriptInject   = errors.New("failed to inject engine script")
	ErrEval           = errors.New("engine call failed")
	ErrClosed         = errors.New("browser backend closed")
)

// globalModule is where the instantiated module is kept on its page.
const globalModule = "__assimpModule"

// Launch starts or locates a browser and returns its DevTools control URL.
type Launch func() (string, error)

// Config configures a Backend.
type Config struct {
	Fetcher *locator.Fetcher // nil uses locator.NewFetcher(nil)
	Launch  Launch           // nil uses DefaultLaunch
}

// Backend owns one browser shared by every injected engine.
// It implements engine.Injector and is safe for concurrent use.
type Backend struct {
	fetcher *locator.Fetcher
	launch  Launch

	mu      sync.Mutex
	browser *rod.Browser
	pages   map[*rod.Page]struct{}
	closed  bool
}

// New creates a Backend. The browser is started on first injection.
func New(cfg Config) *Backend {
	b := &Backend{fetcher: cfg.Fetcher, launch: cfg.Launch, pages: make(map[*rod.Page]struct{})}
	if b.fetcher == nil {
		b.fetcher = locator.NewFetcher(nil)
	}
	if b.launch == nil {
		b.launch = DefaultLaunch
	}
	return b
}

// DefaultLaunch starts headless Chrome. ROD_BROWSER_BIN selects a
// pre-installed binary; the sandbox is disabled under CI, with
// ROD_NO_SANDBOX=1, or when a custom binary is used.
func DefaultLaunch() (string, error) {
	l := launcher.New().Headless(true)
	if bin := os.Getenv("ROD_BROWSER_BIN"); bin != "" {
		l = l.Bin(bin)
	}
	if NoSandbox() {
		l = l.NoSandbox(true)
	}
	return l.Launch()
}

// NoSandbox reports whether the environment asks for a sandbox-less browser.
func NoSandbox() bool {
	return os.Getenv("CI") == "true" ||
		os.Getenv("ROD_NO_SANDBOX") == "1" ||
		os.Getenv("ROD_BROWSER_BIN") != ""
}

// ensureBrowser lazily connects to the browser. Callers hold b.mu.
func (b *Backend) ensureBrowser() error {
	if b.closed {
		return ErrClosed
	}
	if b.browser != nil {
		return nil
	}
	u, err := b.launch()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}
	browser := rod.New().ControlURL(u)
	if err := browser.Connect(); err != nil {
		return fmt.Errorf("%w: %v", ErrBrowserConnect, err)
	}
	b.browser = browser
	return nil
}

func (b *Backend) newPage() (*rod.Page, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.ensureBrowser(); err != nil {
		return nil, err
	}
	page, err := b.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPageCreate, err)
	}
	b.pages[page] = struct{}{}
	return page, nil
}

func (b *Backend) closePage(page *rod.Page) error {
	b.mu.Lock()
	_, ok := b.pages[page]
	delete(b.pages, page)
	b.mu.Unlock()
	if !ok {
		return nil
	}
	return page.Close()
}

// Inject fetches the bootstrap script at loc, evaluates it on a fresh page
// and registers a factory when the page exposes assimpjs.
func (b *Backend) Inject(ctx context.Context, loc string, register func(engine.Factory)) error {
	script, err := b.fetcher.Fetch(ctx, loc)
	if err != nil {
		return err
	}
	page, err := b.newPage()
	if err != nil {
		return err
	}
	p := page.Context(ctx)
	if err := p.AddScriptTag("", string(script)); err != nil {
		_ = b.closePage(page)
		return fmt.Errorf("%w: %s: %v", ErrScriptInject, loc, err)
	}
	res, err := p.Eval(`() => typeof globalThis.assimpjs === 'function'`)
	if err != nil {
		_ = b.closePage(page)
		return fmt.Errorf("%w: %s: %v", ErrScriptInject, loc, err)
	}
	if !res.Value.Bool() {
		// Nothing to register; the caller reports the missing factory.
		_ = b.closePage(page)
		return nil
	}
	register(func(ctx context.Context, opts engine.FactoryOptions) (engine.Instance, error) {
		return b.instantiate(ctx, page, opts)
	})
	return nil
}

const instantiateJS = `async (key, wasm, locs) => {
	const opts = { locateFile: (p) => locs[p] || p };
	if (wasm) {
		const raw = atob(wasm);
		const buf = new Uint8Array(raw.length);
		for (let i = 0; i < raw.length; i++) buf[i] = raw.charCodeAt(i);
		opts.wasmBinary = buf;
	}
	const mod = await globalThis.assimpjs(opts);
	if (mod && mod.ready && typeof mod.ready.then === 'function') await mod.ready;
	globalThis[key] = mod;
	return !!mod;
}`

func (b *Backend) instantiate(ctx context.Context, page *rod.Page, opts engine.FactoryOptions) (engine.Instance, error) {
	locs := map[string]string{}
	if opts.LocateFile != nil && opts.PayloadName != "" {
		locs[opts.PayloadName] = opts.LocateFile(opts.PayloadName)
	}
	var wasm any
	if opts.Binary != nil {
		wasm = opts.Binary // serialized as base64
	}
	res, err := page.Context(ctx).Eval(instantiateJS, globalModule, wasm, locs)
	if err != nil {
		_ = b.closePage(page)
		return nil, fmt.Errorf("%w: instantiate: %v", ErrEval, err)
	}
	if !res.Value.Bool() {
		_ = b.closePage(page)
		return nil, fmt.Errorf("%w: factory returned no module", ErrEval)
	}
	return &Instance{page: page, backend: b}, nil
}

// Close closes every page and the browser. It is safe to call twice.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	var errs []error
	for page := range b.pages {
		if err := page.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	clear(b.pages)
	if b.browser != nil {
		if err := b.browser.Close(); err != nil {
			errs = append(errs, err)
		}
		b.browser = nil
	}
	return errors.Join(errs...)
}

// Instance is an assimpjs module living on one page.
type Instance struct {
	page    *rod.Page
	backend *Backend
}

// Ready confirms the module is still present on its page.
func (i *Instance) Ready(ctx context.Context) error {
	res, err := i.page.Context(ctx).Eval(`(key) => !!globalThis[key]`, globalModule)
	if err != nil {
		return fmt.Errorf("%w: %v", engine.ErrNotReady, err)
	}
	if !res.Value.Bool() {
		return engine.ErrNotReady
	}
	return nil
}

// NewFileList creates an empty in-memory collection.
func (i *Instance) NewFileList() engine.FileList {
	return &engine.MemFileList{}
}

const convertJS = `(key, files, format) => {
	const m = globalThis[key];
	const dec = (s) => {
		const raw = atob(s || '');
		const buf = new Uint8Array(raw.length);
		for (let i = 0; i < raw.length; i++) buf[i] = raw.charCodeAt(i);
		return buf;
	};
	const enc = (u) => {
		let s = '';
		for (let i = 0; i < u.length; i += 0x8000) {
			s += String.fromCharCode.apply(null, u.subarray(i, i + 0x8000));
		}
		return btoa(s);
	};
	const list = new m.FileList();
	for (const f of files) list.AddFile(f.name, dec(f.data));
	const res = m.ConvertFileList(list, format);
	const out = { success: !!(res && res.IsSuccess()), code: 0, files: [] };
	if (res && typeof res.GetErrorCode === 'function') out.code = res.GetErrorCode();
	if (out.success) {
		for (let i = 0; i < res.FileCount(); i++) {
			const f = res.GetFile(i);
			out.files.push({ path: f.GetPath(), data: enc(f.GetContent()) });
		}
	}
	return JSON.stringify(out);
}`

type wireFile struct {
	Name string `json:"name,omitempty"`
	Path string `json:"path,omitempty"`
	Data []byte `json:"data"`
}

type wireResult struct {
	Success bool       `json:"success"`
	Code    int        `json:"code"`
	Files   []wireFile `json:"files"`
}

// ConvertFileList runs the module's ConvertFileList on the page.
func (i *Instance) ConvertFileList(ctx context.Context, list engine.FileList, format string) (*engine.Result, error) {
	ml, ok := list.(*engine.MemFileList)
	if !ok {
		return nil, engine.ErrForeignFileList
	}
	files := make([]wireFile, ml.Len())
	for idx, f := range ml.Files {
		files[idx] = wireFile{Name: f.Path, Data: f.Content}
	}
	res, err := i.page.Context(ctx).Eval(convertJS, globalModule, files, format)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEval, err)
	}
	return decodeResult(res.Value.Str())
}

func decodeResult(raw string) (*engine.Result, error) {
	var w wireResult
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return nil, fmt.Errorf("%w: decoding result: %v", ErrEval, err)
	}
	out := &engine.Result{Success: w.Success, ErrorCode: w.Code}
	for _, f := range w.Files {
		out.Files = append(out.Files, engine.OutputFile{Path: f.Path, Content: f.Data})
	}
	return out, nil
}

// Close closes the instance's page.
func (i *Instance) Close() error {
	return i.backend.closePage(i.page)
}

// Compile-time interface checks.
var (
	_ engine.Injector = (*Backend)(nil)
	_ engine.Instance = (*Instance)(nil)
)
