package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/geotutor/geotutor/backend-go/internal/construction"
	"github.com/geotutor/geotutor/backend-go/internal/document"
	"github.com/geotutor/geotutor/backend-go/internal/engine"
)

// problemFlags selects the starting configuration shared by every command.
type problemFlags struct {
	family  string
	file    string
	anchors []string
	held    []string
	visible []string
	asJSON  bool
}

func (f *problemFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.family, "family", "f", string(construction.KindVertical), "construction family")
	cmd.Flags().StringVar(&f.file, "problem", "", "problem document (JSON file) instead of --family")
	cmd.Flags().StringArrayVar(&f.anchors, "anchor", nil, "anchor position x,y (repeat for each anchor)")
	cmd.Flags().StringArrayVar(&f.held, "held", nil, "held point position x,y (repeat for each held point)")
	cmd.Flags().StringSliceVar(&f.visible, "visible", nil, "region color keys shown initially")
	cmd.Flags().BoolVar(&f.asJSON, "json", false, "print the scene as JSON")
}

// session builds the interaction session the flags describe. Missing anchor
// or held positions fall back to the family's sample problem.
func (f *problemFlags) session(read func(string) ([]byte, error)) (*engine.Session, error) {
	var p *document.Problem
	if f.file != "" {
		data, err := read(f.file)
		if err != nil {
			return nil, err
		}
		if p, err = document.Parse(data); err != nil {
			return nil, err
		}
	} else {
		var err error
		if p, err = document.NewSampleProblem(construction.Kind(f.family)); err != nil {
			return nil, err
		}
	}

	if len(f.anchors) > 0 {
		coords, err := parseCoords(f.anchors)
		if err != nil {
			return nil, fmt.Errorf("--anchor: %w", err)
		}
		p.Anchors = coords
	}
	if len(f.held) > 0 {
		coords, err := parseCoords(f.held)
		if err != nil {
			return nil, fmt.Errorf("--held: %w", err)
		}
		p.Held = coords
	}
	if len(f.visible) > 0 {
		p.Visible = f.visible
	}
	return engine.NewSession(p)
}

func parseCoords(values []string) ([]document.Coord, error) {
	out := make([]document.Coord, 0, len(values))
	for _, v := range values {
		c, err := parseCoord(v)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

func parseCoord(v string) (document.Coord, error) {
	xs, ys, found := strings.Cut(v, ",")
	if !found {
		return document.Coord{}, fmt.Errorf("%q: expected x,y", v)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	if err != nil {
		return document.Coord{}, fmt.Errorf("%q: %w", v, err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	if err != nil {
		return document.Coord{}, fmt.Errorf("%q: %w", v, err)
	}
	return document.Coord{X: x, Y: y}, nil
}

func printScene(w io.Writer, snap engine.Snapshot, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}

	fmt.Fprintf(w, "Family: %s\n\n", snap.Family)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tROLE\tX\tY")
	for _, p := range snap.Points {
		fmt.Fprintf(tw, "%d\t%s\t%.4f\t%.4f\n", p.ID, p.Role, p.X, p.Y)
	}
	tw.Flush()

	if len(snap.Notes) > 0 {
		fmt.Fprintln(w, "\nFallbacks:")
		for _, n := range snap.Notes {
			fmt.Fprintf(w, "  point %d: %s\n", n.PointID, n.Reason)
		}
	}

	fmt.Fprintln(w, "\nRegions:")
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, r := range snap.Regions {
		shown := "hidden"
		if r.Visible {
			shown = "shown"
		}
		fmt.Fprintf(tw, "  %s\t%d vertices\t%.2f°\t%s\n", r.ColorKey, len(r.Vertices), r.Degrees, shown)
	}
	return tw.Flush()
}
