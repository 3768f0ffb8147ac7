// Package engine defines the capability contract between the conversion
// pipeline and an externally loaded conversion engine.
//
// # Lifecycle
//
//	Injector.Inject(url, register)   bootstrap code becomes available
//	    │
//	    └── register(Factory)        injected code announces its factory
//	            │
//	            └── Factory(opts)    one Instance per loader slot
//	                    │
//	                    └── Instance.Ready()   internal readiness signal
//
// The engine itself is opaque: it turns a collection of named files into
// another collection of named files in a requested format token.
package engine

import (
	"context"
	"errors"
)

// Sentinel errors for engine operations.
var (
	// ErrNoFactory indicates injection succeeded but nothing registered a factory.
	ErrNoFactory = errors.New("engine factory not available")

	// ErrNotReady indicates the instance failed its readiness check.
	ErrNotReady = errors.New("engine instance not ready")

	// ErrForeignFileList indicates a FileList created by another engine was passed in.
	ErrForeignFileList = errors.New("file list was not created by this engine")
)

// FileList is a mutable collection of named buffers handed to an engine.
// The first file added is the primary input.
type FileList interface {
	AddFile(name string, data []byte)
}

// OutputFile is one file produced by a conversion.
type OutputFile struct {
	Path    string
	Content []byte
}

// Result is the outcome of ConvertFileList.
type Result struct {
	Success   bool
	ErrorCode int
	Message   string // engine diagnostic, optional
	Files     []OutputFile
}

// IsSuccess reports whether the engine flagged the conversion as successful.
// A nil Result is never successful.
func (r *Result) IsSuccess() bool {
	return r != nil && r.Success
}

// FileCount returns the number of output files.
func (r *Result) FileCount() int {
	if r == nil {
		return 0
	}
	return len(r.Files)
}

// File returns output file i. It panics if i is out of range, like a slice index.
func (r *Result) File(i int) OutputFile {
	return r.Files[i]
}

// Engine is the conversion capability shared by importer and exporter roles.
type Engine interface {
	// NewFileList creates an empty collection owned by this engine.
	NewFileList() FileList

	// ConvertFileList converts the collection to the given engine format token.
	// A non-nil error means the engine could not run at all; a failed
	// conversion is reported through Result.
	ConvertFileList(ctx context.Context, list FileList, format string) (*Result, error)
}

// Instance is an engine produced by a Factory.
type Instance interface {
	Engine

	// Ready blocks until the instance finished its own initialization.
	Ready(ctx context.Context) error
}

// FactoryOptions are handed to a Factory when a loader slot instantiates it.
type FactoryOptions struct {
	// Binary is the pre-fetched companion payload, nil when it was not found.
	Binary []byte

	// PayloadName is the logical asset name of the companion payload.
	PayloadName string

	// LocateFile maps an asset name to the location the instance should load it from.
	LocateFile func(name string) string
}

// Factory instantiates an engine.
type Factory func(ctx context.Context, opts FactoryOptions) (Instance, error)

// Injector loads bootstrap code from a location. Implementations must call
// register before Inject returns successfully.
type Injector interface {
	Inject(ctx context.Context, url string, register func(Factory)) error
}

// InjectorFunc adapts a function to the Injector interface.
type InjectorFunc func(ctx context.Context, url string, register func(Factory)) error

// Inject calls f.
func (f InjectorFunc) Inject(ctx context.Context, url string, register func(Factory)) error {
	return f(ctx, url, register)
}

// MemFileList is an in-memory FileList. Engines that need nothing more
// than the ordered buffers use it as their collection type.
type MemFileList struct {
	Files []OutputFile
}

// AddFile appends a named buffer.
func (l *MemFileList) AddFile(name string, data []byte) {
	l.Files = append(l.Files, OutputFile{Path: name, Content: data})
}

// Len returns the number of files in the list.
func (l *MemFileList) Len() int {
	return len(l.Files)
}

// Compile-time interface check.
var _ FileList = (*MemFileList)(nil)
