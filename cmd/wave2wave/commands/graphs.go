package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/TEAMuP-dev/HARP-sub001/internal/inference"
)

func newGraphsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "graphs",
		Short: "List built-in graphs",
		Long: `List the graphs compiled into the binary. Any of them can be used as a
model path with the "builtin:" prefix, for example --model-path builtin:identity.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range inference.ListGraphs() {
				fmt.Fprintln(cmd.OutOrStdout(), inference.BuiltinPrefix+name)
			}
			return nil
		},
	}
}
