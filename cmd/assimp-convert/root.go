package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/signal"

	"github.com/spf13/cobra"

	assimp "github.com/alnah/go-assimp"
	"github.com/alnah/go-assimp/internal/config"
	"github.com/alnah/go-assimp/internal/hints"
	"github.com/alnah/go-assimp/internal/rodengine"
)

// ErrUsage marks invalid command-line usage.
var ErrUsage = errors.New("invalid usage")

// rootOptions holds the persistent flags shared by every command.
type rootOptions struct {
	config  string
	quiet   bool
	verbose bool
}

// newRootCmd builds the command tree. Commands write to env and never to
// the process streams directly.
func newRootCmd(env *Environment) *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "assimp-convert",
		Short: "Convert 3-D models between formats",
		Long: `assimp-convert converts 3-D models (glb, gltf, obj, stl, ply, fbx, 3mf, vox, usd)
to glb, obj, stl, ply, fbx or usd through an assimp engine.

Every model is first imported to glTF binary and then exported to the
requested format. Engines are located under the asset directory of each
configured base; run 'assimp-convert doctor' to see where.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(env.Stdout)
	root.SetErr(env.Stderr)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fmt.Errorf("%w: %v", ErrUsage, err)
	})

	pf := root.PersistentFlags()
	pf.StringVarP(&opts.config, "config", "c", "", "config name or path (also ASSIMP_CONFIG)")
	pf.BoolVarP(&opts.quiet, "quiet", "q", false, "only print errors")
	pf.BoolVarP(&opts.verbose, "verbose", "v", false, "print timings and debug logs")
	root.MarkFlagsMutuallyExclusive("quiet", "verbose")

	root.AddCommand(
		newConvertCmd(env, opts),
		newFormatsCmd(env),
		newConfigCmd(env, opts),
		newDoctorCmd(env, opts),
		newVersionCmd(env),
	)
	return root
}

// run executes the CLI with args and returns the process exit code.
func run(args []string, env *Environment) int {
	ctx, stop := notifyContext(context.Background())
	defer stop()

	root := newRootCmd(env)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(env.Stderr, "error: %v%s\n", err, hintFor(err))
	}
	return exitCodeFor(err)
}

// hintFor returns an actionable hint for err, or "".
func hintFor(err error) string {
	switch {
	case errors.Is(err, assimp.ErrUnsupportedFormat):
		names := make([]string, 0, len(assimp.Formats()))
		for _, f := range assimp.Formats() {
			names = append(names, string(f))
		}
		return hints.ForUnsupportedFormat(names)
	case errors.Is(err, ErrUnsupportedExtension):
		return hints.ForUnsupportedInput(assimp.InputFormats())
	case errors.Is(err, config.ErrConfigNotFound):
		return hints.ForConfigNotFound(nil)
	case errors.Is(err, context.DeadlineExceeded):
		return hints.ForTimeout()
	case errors.Is(err, ErrWriteOutput):
		return hints.ForOutputDirectory()
	}

	var le *loadError
	if errors.As(err, &le) {
		if le.backend == assimp.BackendBrowser && errors.Is(err, rodengine.ErrBrowserConnect) {
			return hints.ForBrowserConnect()
		}
		return hints.ForEngineLoad(string(le.backend))
	}
	return ""
}

// notifyContext returns a context canceled on the first shutdown signal.
func notifyContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, shutdownSignals...)
}

// loadError records which backend failed to load an engine.
type loadError struct {
	backend assimp.Backend
	err     error
}

func (e *loadError) Error() string { return e.err.Error() }
func (e *loadError) Unwrap() error { return e.err }

// newLogger returns the structured logger handed to the library.
// Quiet discards everything, verbose logs at Debug, the default keeps
// only engine load errors.
func newLogger(w io.Writer, opts *rootOptions) *slog.Logger {
	if opts.quiet {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	level := slog.LevelError
	if opts.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
