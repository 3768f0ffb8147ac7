package main

import (
	"fmt"

	"github.com/spf13/cobra"

	assimp "github.com/alnah/go-assimp"
)

func newVersionCmd(env *Environment) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of assimp-convert",
		Args:  cobra.NoArgs,
		Run: func(*cobra.Command, []string) {
			fmt.Fprintf(env.Stdout, "assimp-convert %s (engine %s)\n", Version, assimp.EngineVersion)
		},
	}
}
