package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newConfigCmd(env *Environment, root *rootOptions) *cobra.Command {
	f := &convertFlags{}
	cmd := &cobra.Command{
		Use:   "config [flags]",
		Short: "Print the effective configuration",
		Long: `Config prints the configuration convert would run with, after merging
the defaults, the config file, ASSIMP_* variables and the given flags.
The output is a valid config file.`,
		Example: `  assimp-convert config
  assimp-convert config -c ci -f stl > effective.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveConfig(cmd.Flags(), root, f, env)
			if err != nil {
				return err
			}
			out, err := cfg.YAML()
			if err != nil {
				return fmt.Errorf("encoding config: %w", err)
			}
			_, err = env.Stdout.Write(out)
			return err
		},
	}
	addConvertFlags(cmd.Flags(), f)
	return cmd
}
