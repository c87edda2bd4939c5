package state

import (
	"github.com/pkg/errors"
)

// Shape identifies what a drawing action renders as.
type Shape string

const (
	ShapeLine            Shape = "line"
	ShapeRectangle       Shape = "rectangle"
	ShapeOval            Shape = "oval"
	ShapeFreehandSegment Shape = "freehand-segment"
	ShapeFreehandPath    Shape = "freehand-path"
	ShapeEraserPath      Shape = "eraser-path"
)

// EraserWidth is the stroke width the eraser tool always uses.
const EraserWidth float32 = 16

var (
	ErrUnknownShape  = errors.New("unknown shape")
	ErrMissingColor  = errors.New("missing color")
	ErrInvalidWidth  = errors.New("stroke width must be positive")
	ErrMissingPoints = errors.New("path shape needs at least one point")
	ErrMissingEnds   = errors.New("segment shape needs both endpoints")
	ErrMixedGeometry = errors.New("action carries both segment and path geometry")
)

// IsSegment reports whether the shape is drawn from two endpoints.
func (s Shape) IsSegment() bool {
	switch s {
	case ShapeLine, ShapeRectangle, ShapeOval, ShapeFreehandSegment:
		return true
	}
	return false
}

// IsPath reports whether the shape is drawn from an ordered point list.
func (s Shape) IsPath() bool {
	return s == ShapeFreehandPath || s == ShapeEraserPath
}

type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Action is one completed stroke or shape. Once built it is never mutated:
// the registry stores it, replays it and rebroadcasts it verbatim.
type Action struct {
	Shape  Shape   `json:"shape"`
	From   *Point  `json:"from,omitempty"`
	To     *Point  `json:"to,omitempty"`
	Points []Point `json:"points,omitempty"`
	Color  string  `json:"color"`
	Width  float32 `json:"width"`
}

// NewSegment builds a two-endpoint action (line, rectangle, oval, freehand segment).
func NewSegment(shape Shape, from, to Point, color string, width float32) (Action, error) {
	a := Action{Shape: shape, From: &from, To: &to, Color: color, Width: width}
	if err := a.Validate(); err != nil {
		return Action{}, err
	}
	return a, nil
}

// NewPath builds a point-list action (freehand or eraser path). The points are copied.
func NewPath(shape Shape, points []Point, color string, width float32) (Action, error) {
	a := Action{Shape: shape, Points: append([]Point(nil), points...), Color: color, Width: width}
	if err := a.Validate(); err != nil {
		return Action{}, err
	}
	return a, nil
}

// Validate checks that exactly the variant named by Shape is populated.
func (a Action) Validate() error {
	if a.Color == "" {
		return ErrMissingColor
	}
	if _, err := ParseColor(a.Color); err != nil {
		return err
	}
	if a.Width <= 0 {
		return ErrInvalidWidth
	}
	switch {
	case a.Shape.IsSegment():
		if a.From == nil || a.To == nil {
			return ErrMissingEnds
		}
		if len(a.Points) > 0 {
			return ErrMixedGeometry
		}
	case a.Shape.IsPath():
		if len(a.Points) == 0 {
			return ErrMissingPoints
		}
		if a.From != nil || a.To != nil {
			return ErrMixedGeometry
		}
	default:
		return errors.Wrapf(ErrUnknownShape, "shape %q", a.Shape)
	}
	return nil
}

// Clone returns a copy that shares no memory with a.
func (a Action) Clone() Action {
	c := a
	if a.From != nil {
		from := *a.From
		c.From = &from
	}
	if a.To != nil {
		to := *a.To
		c.To = &to
	}
	if a.Points != nil {
		c.Points = append([]Point(nil), a.Points...)
	}
	return c
}

// Vertices returns the points that define the action's geometry.
func (a Action) Vertices() []Point {
	if a.Shape.IsSegment() && a.From != nil && a.To != nil {
		return []Point{*a.From, *a.To}
	}
	return a.Points
}
