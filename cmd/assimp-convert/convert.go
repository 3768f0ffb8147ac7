package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newConvertCmd(env *Environment, root *rootOptions) *cobra.Command {
	f := &convertFlags{}
	cmd := &cobra.Command{
		Use:   "convert [flags] <input>...",
		Short: "Convert models to another format",
		Long: `Convert reads each input (a model file, a directory of models, or an
http(s) URL) and writes the converted model under the input's base name with
the target extension. A sibling .mtl for .obj and .bin for .gltf are sent
along with the model.`,
		Example: `  assimp-convert convert -f glb chair.obj
  assimp-convert convert -f stl -o out/ -r scans/
  assimp-convert convert -f usd https://example.com/models/lamp.fbx`,
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) == 0 {
				return fmt.Errorf("%w: no input specified", ErrUsage)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConvert(cmd, args, root, f, env)
		},
	}
	addConvertFlags(cmd.Flags(), f)
	return cmd
}

// runConvert resolves settings, discovers inputs, warms both engines once
// and converts the batch.
func runConvert(cmd *cobra.Command, args []string, root *rootOptions, f *convertFlags, env *Environment) error {
	ctx := cmd.Context()

	s, err := resolveSettings(cmd.Flags(), root, f, env)
	if err != nil {
		return err
	}

	jobs, err := discoverJobs(args, s.outputDir, s.recursive)
	if err != nil {
		return fmt.Errorf("discovering inputs: %w", err)
	}
	if s.name != "" && len(jobs) > 1 {
		return fmt.Errorf("%w: --name needs exactly one input, got %d", ErrUsage, len(jobs))
	}

	logger := newLogger(env.Stderr, root)
	conv, err := env.NewConverter(s.engineOptions(logger)...)
	if err != nil {
		return err
	}
	defer func() { _ = conv.Close() }()

	if err := conv.Warm(ctx); err != nil {
		return &loadError{backend: s.backend, err: err}
	}

	results := convertBatch(ctx, conv, jobs, s)
	summary := printResults(env.Stdout, env.Stderr, results, root)
	if summary.Failed > 0 {
		return fmt.Errorf("%d of %d conversions failed: %w", summary.Failed, len(results), summary.FirstErr)
	}
	return nil
}
