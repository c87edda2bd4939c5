package export

import (
	"bufio"
	"fmt"
	"io"

	"ChatDraw/internal/state"

	"github.com/pkg/errors"
)

// Text writes a human-readable summary of actions.
func Text(w io.Writer, actions []state.Action) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "ChatDraw Export\n")
	fmt.Fprintf(bw, "===============\n\n")
	fmt.Fprintf(bw, "Total actions: %d\n", len(actions))
	if b := state.Bounds(actions); !b.Empty() {
		fmt.Fprintf(bw, "Bounds: (%.0f, %.0f) %.0fx%.0f\n", b.X, b.Y, b.Width, b.Height)
	}
	fmt.Fprintln(bw)

	for i, a := range actions {
		fmt.Fprintf(bw, "Action %d: %s\n", i+1, a.Shape)
		fmt.Fprintf(bw, "  Color: %s\n", a.Color)
		fmt.Fprintf(bw, "  Width: %g\n", a.Width)
		vertices := a.Vertices()
		if a.Shape.IsPath() {
			fmt.Fprintf(bw, "  Points: %d\n", len(vertices))
		}
		if len(vertices) > 0 {
			fmt.Fprintf(bw, "  Start: (%d, %d)\n", vertices[0].X, vertices[0].Y)
		}
		if len(vertices) > 1 {
			last := vertices[len(vertices)-1]
			fmt.Fprintf(bw, "  End: (%d, %d)\n", last.X, last.Y)
		}
		fmt.Fprintln(bw)
	}
	if err := bw.Flush(); err != nil {
		return errors.Wrap(err, "write text export failed")
	}
	return nil
}
