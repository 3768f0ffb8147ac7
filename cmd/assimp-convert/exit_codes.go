package main

import (
	"errors"
	"os"

	assimp "github.com/alnah/go-assimp"
	"github.com/alnah/go-assimp/internal/config"
)

// Exit codes for assimp-convert.
// Follows Unix conventions: 0=success, 1=general, 2=usage, and custom codes < 126.
const (
	ExitSuccess    = 0 // All conversions succeeded
	ExitGeneral    = 1 // General/unexpected error
	ExitUsage      = 2 // Invalid flags, config, format or input
	ExitIO         = 3 // File not found, permission denied, write failure
	ExitEngine     = 4 // Engine could not be loaded
	ExitConversion = 5 // Import or export failed
)

// exitCodeFor returns the appropriate exit code for an error.
// It uses errors.Is to check wrapped errors, so callers must use fmt.Errorf("%w", err).
func exitCodeFor(err error) int {
	if err == nil {
		return ExitSuccess
	}

	switch assimp.CodeOf(err) {
	case assimp.CodeEngineLoadFailed:
		return ExitEngine
	case assimp.CodeImportFailed, assimp.CodeExportFailed:
		return ExitConversion
	case assimp.CodeUnsupportedFormat, assimp.CodeUnsupportedInput:
		return ExitUsage
	}

	if errors.Is(err, os.ErrNotExist) ||
		errors.Is(err, os.ErrPermission) ||
		errors.Is(err, ErrWriteOutput) ||
		errors.Is(err, ErrOutputIsInput) ||
		errors.Is(err, ErrNoInput) {
		return ExitIO
	}

	if errors.Is(err, ErrUsage) ||
		errors.Is(err, ErrUnsupportedExtension) ||
		errors.Is(err, config.ErrConfigNotFound) ||
		errors.Is(err, config.ErrEmptyConfigName) ||
		errors.Is(err, config.ErrConfigParse) ||
		errors.Is(err, config.ErrFieldTooLong) ||
		errors.Is(err, config.ErrInvalidValue) {
		return ExitUsage
	}

	return ExitGeneral
}
