package main

import (
	"context"
	"io"
	"os"

	"github.com/go-rod/rod/lib/launcher"

	assimp "github.com/alnah/go-assimp"
)

// CLIConverter is the part of the library the CLI drives.
type CLIConverter interface {
	Warm(ctx context.Context) error
	TryConvert(ctx context.Context, src assimp.InputSource, target assimp.ExportFormat, opts *assimp.ConvertOptions) assimp.ConversionResult
	Close() error
}

// Compile-time interface implementation check.
var _ CLIConverter = (*assimp.Converter)(nil)

// Environment holds injectable dependencies for testability.
type Environment struct {
	Stdout io.Writer
	Stderr io.Writer

	// NewConverter builds the converter shared by a batch.
	NewConverter func(opts ...assimp.Option) (CLIConverter, error)

	// NewLoader builds the loader doctor inspects.
	NewLoader func(opts ...assimp.Option) (*assimp.EngineLoader, error)

	// LookChrome finds a Chrome binary for doctor.
	LookChrome func() (string, bool)
}

// DefaultEnv returns the production environment.
func DefaultEnv() *Environment {
	return &Environment{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		NewConverter: func(opts ...assimp.Option) (CLIConverter, error) {
			return assimp.NewConverter(opts...)
		},
		NewLoader:  assimp.NewEngineLoader,
		LookChrome: launcher.LookPath,
	}
}
