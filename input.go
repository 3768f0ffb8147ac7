package assimp

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"io/fs"

	"github.com/alnah/go-assimp/internal/locator"
)

// defaultInputName is used when a source carries no usable file name.
const defaultInputName = "input.bin"

// NamedBuffer is a file name paired with its content. The name's extension
// is what the engine uses to detect the input format.
type NamedBuffer struct {
	Name string
	Data []byte
}

// InputSource is one of the supported input shapes:
//
//	URL          http(s) URL, file:// URL or local path, fetched on use
//	File         an open file handle, read fully
//	Blob         an anonymous stream, read fully
//	Bytes        raw bytes without a name
//	NamedBuffer  a single named buffer
//	FileSet      several named buffers, first is the primary input
//
// The set is closed: only the types in this package implement it.
type InputSource interface {
	inputSource()
}

// URL is a remote or local locator.
type URL string

// File wraps an open file handle. The name comes from Stat.
type File struct {
	Handle fs.File
}

// Blob wraps a stream without a name.
type Blob struct {
	Reader io.Reader
}

// Bytes is a raw buffer without a name.
type Bytes []byte

// FileSet is an ordered collection of named buffers, such as a model with
// its material and texture side files.
type FileSet struct {
	Files []NamedBuffer
}

func (URL) inputSource()         {}
func (File) inputSource()        {}
func (Blob) inputSource()        {}
func (Bytes) inputSource()       {}
func (NamedBuffer) inputSource() {}
func (FileSet) inputSource()     {}

// SourceOf lifts a plain Go value into an InputSource. Accepted values are
// InputSource variants, string, []byte, fs.File (including *os.File),
// io.Reader, NamedBuffer and []NamedBuffer. Anything else fails with
// CodeUnsupportedInput.
func SourceOf(v any) (InputSource, error) {
	switch x := v.(type) {
	case nil:
		return nil, newError(CodeUnsupportedInput, nil, "nil input")
	case InputSource:
		return x, nil
	case string:
		return URL(x), nil
	case []byte:
		return Bytes(x), nil
	case []NamedBuffer:
		return FileSet{Files: x}, nil
	case fs.File:
		return File{Handle: x}, nil
	case io.Reader:
		return Blob{Reader: x}, nil
	default:
		return nil, newError(CodeUnsupportedInput, nil, "input of type %T", v)
	}
}

// inputNormalizer turns an InputSource into named buffers.
type inputNormalizer struct {
	fetcher *locator.Fetcher
}

// Normalize converts src to an ordered, non-empty list of named buffers
// using a default fetcher for URL sources.
func Normalize(ctx context.Context, src InputSource) ([]NamedBuffer, error) {
	n := &inputNormalizer{fetcher: locator.NewFetcher(nil)}
	return n.normalize(ctx, src)
}

// normalize is total over the InputSource variants and fails closed for
// anything else. Returned buffers never alias caller memory.
func (n *inputNormalizer) normalize(ctx context.Context, src InputSource) ([]NamedBuffer, error) {
	switch s := src.(type) {
	case URL:
		return n.fromURL(ctx, string(s))
	case File:
		return fromFile(s)
	case Blob:
		if s.Reader == nil {
			return nil, newError(CodeUnsupportedInput, nil, "blob without reader")
		}
		data, err := io.ReadAll(s.Reader)
		if err != nil {
			return nil, newError(CodeUnsupportedInput, err, "reading blob")
		}
		return []NamedBuffer{{Name: defaultInputName, Data: data}}, nil
	case Bytes:
		return []NamedBuffer{{Name: defaultInputName, Data: bytes.Clone(s)}}, nil
	case NamedBuffer:
		return []NamedBuffer{cloneBuffer(s)}, nil
	case FileSet:
		if len(s.Files) == 0 {
			return nil, newError(CodeUnsupportedInput, nil, "empty file set")
		}
		out := make([]NamedBuffer, len(s.Files))
		for i, f := range s.Files {
			out[i] = cloneBuffer(f)
		}
		return out, nil
	default:
		return nil, newError(CodeUnsupportedInput, nil, "input of type %T", src)
	}
}

func (n *inputNormalizer) fromURL(ctx context.Context, loc string) ([]NamedBuffer, error) {
	if loc == "" {
		return nil, newError(CodeUnsupportedInput, nil, "empty locator")
	}
	data, err := n.fetcher.Fetch(ctx, loc)
	if err != nil {
		return nil, newError(CodeUnsupportedInput, err, "fetching input %s", loc)
	}
	name := locator.LastSegment(loc)
	if name == "" {
		name = defaultInputName
	}
	return []NamedBuffer{{Name: name, Data: data}}, nil
}

func fromFile(f File) ([]NamedBuffer, error) {
	if f.Handle == nil {
		return nil, newError(CodeUnsupportedInput, nil, "file without handle")
	}
	name := defaultInputName
	if info, err := f.Handle.Stat(); err == nil && info.Name() != "" {
		if info.IsDir() {
			return nil, newError(CodeUnsupportedInput, nil, "%s is a directory", info.Name())
		}
		name = info.Name()
	}
	data, err := io.ReadAll(f.Handle)
	if err != nil {
		return nil, newError(CodeUnsupportedInput, err, "reading %s", name)
	}
	return []NamedBuffer{{Name: name, Data: data}}, nil
}

func cloneBuffer(b NamedBuffer) NamedBuffer {
	name := b.Name
	if name == "" {
		name = defaultInputName
	}
	return NamedBuffer{Name: name, Data: bytes.Clone(b.Data)}
}

// String implements fmt.Stringer for log output.
func (b NamedBuffer) String() string {
	return fmt.Sprintf("%s (%d bytes)", b.Name, len(b.Data))
}
