package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "anglectl",
		Short: "Derive and drag angle-diagram constructions from the terminal",
		Long: `anglectl runs the same construction pipeline as the lesson server.
It prints every derived point, the fallbacks taken for degenerate input and
the angle regions with their measure, which makes it handy for checking a
problem document before it reaches a classroom.`,
		Version:       "1.0.0",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newFamiliesCmd(), newDeriveCmd(), newDragCmd(), newRenderCmd(), newWatchCmd())
	return root
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
