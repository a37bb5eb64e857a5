package main

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/geotutor/geotutor/backend-go/internal/construction"
	"github.com/geotutor/geotutor/backend-go/internal/regions"
)

func newFamiliesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "families",
		Short: "List the construction families",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "FAMILY\tANCHORS\tHELD\tREGIONS")
			for _, k := range construction.Kinds() {
				f, err := construction.Lookup(k)
				if err != nil {
					return err
				}
				keys := regions.Keys(f.Regions())
				fmt.Fprintf(tw, "%s\t%d\t%d\t%s\n", k, f.AnchorCount(), f.HeldCount(), strings.Join(keys, ","))
			}
			return tw.Flush()
		},
	}
}

func newDeriveCmd() *cobra.Command {
	var flags problemFlags
	cmd := &cobra.Command{
		Use:   "derive",
		Short: "Derive every point and angle region of a construction",
		Long:  "Derive prints the full point set, any fallback taken for degenerate input and the angle regions with their measure.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := flags.session(os.ReadFile)
			if err != nil {
				return err
			}
			return printScene(cmd.OutOrStdout(), s.Snapshot(), flags.asJSON)
		},
	}
	flags.register(cmd)
	return cmd
}

func newDragCmd() *cobra.Command {
	var (
		flags problemFlags
		point int
		to    string
	)
	cmd := &cobra.Command{
		Use:   "drag",
		Short: "Drag one anchor and show which points moved",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := parseCoord(to)
			if err != nil {
				return fmt.Errorf("--to: %w", err)
			}
			s, err := flags.session(os.ReadFile)
			if err != nil {
				return err
			}

			before := s.RenderablePoints()
			if err := s.DragMove(point, target.X, target.Y); err != nil {
				return err
			}
			s.EndDrag()
			after := s.Snapshot()

			if flags.asJSON {
				return printScene(cmd.OutOrStdout(), after, true)
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Dragged point %d to (%g, %g)\n\n", point, target.X, target.Y)
			tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tFROM\tTO")
			for i, p := range after.Points {
				q := before[i]
				if p.X == q.X && p.Y == q.Y {
					continue
				}
				fmt.Fprintf(tw, "%d\t(%.4f, %.4f)\t(%.4f, %.4f)\n", p.ID, q.X, q.Y, p.X, p.Y)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintln(w)
			return printScene(w, after, false)
		},
	}
	flags.register(cmd)
	cmd.Flags().IntVarP(&point, "point", "p", 1, "anchor id to drag")
	cmd.Flags().StringVar(&to, "to", "", "target position x,y")
	cmd.MarkFlagRequired("to")
	return cmd
}

func newRenderCmd() *cobra.Command {
	var flags problemFlags
	cmd := &cobra.Command{
		Use:   "render",
		Short: "Print the draw commands the browser renderer receives",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := flags.session(os.ReadFile)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), s.Render())
			return err
		},
	}
	flags.register(cmd)
	return cmd
}
