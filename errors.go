package assimp

import (
	"errors"
	"fmt"
)

// Code classifies a conversion failure. Codes are stable across releases.
type Code string

// Failure codes, one per pipeline stage.
const (
	CodeEngineLoadFailed  Code = "EngineLoadFailed"
	CodeImportFailed      Code = "ImportFailed"
	CodeExportFailed      Code = "ExportFailed"
	CodeUnsupportedFormat Code = "UnsupportedFormat"
	CodeUnsupportedInput  Code = "UnsupportedInput"
)

// Sentinel errors matching each code through errors.Is.
var (
	ErrEngineLoadFailed  = errors.New("engine load failed")
	ErrImportFailed      = errors.New("import failed")
	ErrExportFailed      = errors.New("export failed")
	ErrUnsupportedFormat = errors.New("unsupported export format")
	ErrUnsupportedInput  = errors.New("unsupported input")
)

var sentinels = map[Code]error{
	CodeEngineLoadFailed:  ErrEngineLoadFailed,
	CodeImportFailed:      ErrImportFailed,
	CodeExportFailed:      ErrExportFailed,
	CodeUnsupportedFormat: ErrUnsupportedFormat,
	CodeUnsupportedInput:  ErrUnsupportedInput,
}

// Codes returns every failure code.
func Codes() []Code {
	return []Code{
		CodeEngineLoadFailed,
		CodeImportFailed,
		CodeExportFailed,
		CodeUnsupportedFormat,
		CodeUnsupportedInput,
	}
}

// Error is the only error type returned from the public API.
// It unwraps to its code's sentinel and to the underlying cause.
type Error struct {
	Code    Code
	Message string // optional diagnostic
	Err     error  // underlying cause, may be nil
}

func (e *Error) Error() string {
	msg := string(e.Code)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the code's sentinel and the cause to errors.Is and errors.As.
func (e *Error) Unwrap() []error {
	var errs []error
	if s, ok := sentinels[e.Code]; ok {
		errs = append(errs, s)
	}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// newError builds an Error for code with a formatted diagnostic.
func newError(code Code, cause error, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...), Err: cause}
}

// CodeOf returns the code carried by err, or "" when err is nil or was not
// produced by this package.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}
