package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	assimp "github.com/alnah/go-assimp"
)

func newFormatsCmd(env *Environment) *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List export formats and recognized inputs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(env.Stdout, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "FORMAT\tENGINE TOKEN\tEXTENSION")
			for _, f := range assimp.Formats() {
				spec, err := assimp.MapFormat(f)
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%s\t.%s\n", f, spec.Token, spec.Extension)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(env.Stdout, "\nInputs: %s\n", strings.Join(assimp.InputFormats(), ", "))
			return nil
		},
	}
}
