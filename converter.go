package assimp

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alnah/go-assimp/internal/locator"
)

// EngineVersion identifies the engine build this package targets. It is a
// static string, not queried from the engine.
const EngineVersion = "assimpjs-exporter"

// defaultOutputBase is used when no output name can be derived.
const defaultOutputBase = "output"

// ConvertOptions tunes a conversion. The zero value is valid.
type ConvertOptions struct {
	// EmbedTextures and Binary are accepted for compatibility with the
	// assimpjs API; the engine decides both from the target token.
	EmbedTextures bool
	Binary        bool

	// Name overrides the output base name. Default: first input's base
	// name without extension.
	Name string
}

// ConversionResult is the outcome of TryConvert: either Data or Err is set.
type ConversionResult struct {
	Data []byte
	Name string // suggested output file name
	Err  *Error
}

// OK reports whether the conversion succeeded.
func (r ConversionResult) OK() bool {
	return r.Err == nil
}

// Converter runs the import, canonicalize and export pipeline.
// Create with NewConverter or CreateEngine, call Close when done.
// A Converter is safe for concurrent use.
type Converter struct {
	loader     *EngineLoader
	ownsLoader bool
	normalizer *inputNormalizer
	rep        reporter
	logger     Logger
	timeout    time.Duration
}

// NewConverter creates a Converter. Engines are loaded on first use.
func NewConverter(opts ...Option) (*Converter, error) {
	cfg := newConfig(opts)
	if err := cfg.validate(); err != nil {
		return nil, newError(CodeEngineLoadFailed, err, "invalid configuration")
	}

	c := &Converter{
		loader:     cfg.loader,
		normalizer: &inputNormalizer{fetcher: locator.NewFetcher(cfg.httpClient)},
		rep:        reporter{logger: cfg.logger},
		logger:     cfg.logger,
		timeout:    cfg.timeout,
	}
	if c.loader == nil {
		c.loader = newEngineLoader(cfg)
		c.ownsLoader = true
	}
	return c, nil
}

// CreateEngine creates a Converter and loads both engines before returning.
func CreateEngine(ctx context.Context, opts ...Option) (*Converter, error) {
	c, err := NewConverter(opts...)
	if err != nil {
		return nil, err
	}
	if err := c.Warm(ctx); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

// Warm loads the importer and exporter concurrently.
func (c *Converter) Warm(ctx context.Context) error {
	var g errgroup.Group
	for _, role := range Roles() {
		g.Go(func() error {
			_, err := c.loader.Get(ctx, role)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return classify(CodeEngineLoadFailed, err, "warming engines")
	}
	return nil
}

// Loader returns the engine loader used by c.
func (c *Converter) Loader() *EngineLoader {
	return c.loader
}

// Version returns EngineVersion.
func (c *Converter) Version() string {
	return EngineVersion
}

// Destroy resets the engine loader; the next conversion reloads both engines.
func (c *Converter) Destroy() {
	c.loader.Reset()
}

// Close releases engine resources owned by c. A loader passed with
// WithEngineLoader is left open.
func (c *Converter) Close() error {
	if !c.ownsLoader {
		return nil
	}
	return c.loader.Close()
}

// Convert converts src to target and returns the output file content.
// Every failure is an *Error.
func (c *Converter) Convert(ctx context.Context, src InputSource, target ExportFormat, opts *ConvertOptions) ([]byte, error) {
	data, _, err := c.run(ctx, src, target, opts)
	if err != nil {
		return nil, err
	}
	return data, nil
}

// TryConvert is Convert with the failure carried in the result.
func (c *Converter) TryConvert(ctx context.Context, src InputSource, target ExportFormat, opts *ConvertOptions) ConversionResult {
	data, name, err := c.run(ctx, src, target, opts)
	if err != nil {
		return ConversionResult{Err: err}
	}
	return ConversionResult{Data: data, Name: name}
}

func (c *Converter) run(ctx context.Context, src InputSource, target ExportFormat, opts *ConvertOptions) (data []byte, name string, err *Error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	buffers, nerr := c.normalizer.normalize(ctx, src)
	if nerr != nil {
		return nil, "", c.rep.fail(stageNormalize, CodeUnsupportedInput, nerr, "normalizing input")
	}

	// Validated before any engine is touched; used again at export.
	spec, ferr := MapFormat(target)
	if ferr != nil {
		return nil, "", c.rep.fail(stageFormat, CodeUnsupportedFormat, ferr, "%q", string(target))
	}

	importer, lerr := c.loader.Importer(ctx)
	if lerr != nil {
		return nil, "", c.rep.fail(stageImporter, CodeEngineLoadFailed, lerr, "importer")
	}
	canonical, err := c.importCanonical(ctx, importer, buffers)
	if err != nil {
		return nil, "", err
	}

	exporter, lerr := c.loader.Exporter(ctx)
	if lerr != nil {
		return nil, "", c.rep.fail(stageExporter, CodeEngineLoadFailed, lerr, "exporter")
	}
	data, err = c.exportTarget(ctx, exporter, canonical, spec)
	if err != nil {
		return nil, "", err
	}

	name = outputName(buffers, spec, opts)
	c.logger.Debug("converted", "input", buffers[0].Name, "inputs", len(buffers), "output", name, "bytes", len(data))
	return data, name, nil
}

// importCanonical converts the buffers to the intermediate format and
// returns its first output file.
func (c *Converter) importCanonical(ctx context.Context, h *Handle, buffers []NamedBuffer) ([]byte, *Error) {
	res, err := convertWith(ctx, h, buffers, IntermediateToken)
	if err != nil {
		return nil, c.rep.fail(stageImport, CodeImportFailed, err, "importer")
	}
	if !res.IsSuccess() || res.FileCount() == 0 {
		return nil, c.rep.fail(stageImport, CodeImportFailed, nil, "%s", engineFailure(res))
	}
	return res.File(0).Content, nil
}

// exportTarget converts the canonical buffer to spec and selects the
// output file carrying spec's extension.
func (c *Converter) exportTarget(ctx context.Context, h *Handle, canonical []byte, spec FormatSpec) ([]byte, *Error) {
	res, err := convertWith(ctx, h, []NamedBuffer{{Name: intermediateName, Data: canonical}}, spec.Token)
	if err != nil {
		return nil, c.rep.fail(stageExport, CodeExportFailed, err, "exporter")
	}
	if !res.IsSuccess() || res.FileCount() == 0 {
		return nil, c.rep.fail(stageExport, CodeExportFailed, nil, "%s", engineFailure(res))
	}

	out, matched := selectOutput(res.Files, spec.Extension)
	if !matched {
		// Kept for compatibility; may hide a format mismatch.
		c.logger.Warn("no output matched extension, using first file",
			"extension", spec.Extension, "file", out.Path, "files", res.FileCount())
	}
	return bytes.Clone(out.Content), nil
}

// convertWith runs one engine call. Panics from the engine become errors.
func convertWith(ctx context.Context, h *Handle, files []NamedBuffer, token string) (res *EngineResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			res, err = nil, recovered(r)
		}
	}()
	list := h.NewFileList()
	for _, f := range files {
		list.AddFile(f.Name, f.Data)
	}
	return h.ConvertFileList(ctx, list, token)
}

func engineFailure(res *EngineResult) string {
	if res == nil {
		return "engine returned no result"
	}
	msg := "engine reported failure"
	if res.IsSuccess() {
		msg = "engine reported no output files"
	}
	if res.ErrorCode != 0 {
		msg += fmt.Sprintf(" (code %d)", res.ErrorCode)
	}
	if res.Message != "" {
		msg += ": " + res.Message
	}
	return msg
}

// selectOutput returns the first file whose extension equals ext, case
// insensitively, or the first file when none does.
func selectOutput(files []OutputFile, ext string) (OutputFile, bool) {
	for _, f := range files {
		if strings.EqualFold(strings.TrimPrefix(path.Ext(f.Path), "."), ext) {
			return f, true
		}
	}
	return files[0], false
}

// OutputName returns the file name a conversion of buffers to target
// should be saved under.
func OutputName(buffers []NamedBuffer, target ExportFormat, opts *ConvertOptions) (string, error) {
	spec, err := MapFormat(target)
	if err != nil {
		return "", err
	}
	return outputName(buffers, spec, opts), nil
}

func outputName(buffers []NamedBuffer, spec FormatSpec, opts *ConvertOptions) string {
	base := ""
	if opts != nil && opts.Name != "" {
		base = path.Base(strings.ReplaceAll(opts.Name, "\\", "/"))
	} else if len(buffers) > 0 {
		n := path.Base(strings.ReplaceAll(buffers[0].Name, "\\", "/"))
		base = strings.TrimSuffix(n, path.Ext(n))
	}
	if base == "" || base == "." || base == "/" || base == ".." {
		base = defaultOutputBase
	}
	return base + "." + spec.Extension
}
