package export

import (
	"io"
	"math"

	"ChatDraw/internal/state"

	"github.com/jung-kurt/gofpdf"
	"github.com/pkg/errors"
)

// page margin in mm
const margin = 10.0

// PDF draws actions on a single landscape A4 page, scaled so the whole drawing fits
// inside the margins.
func PDF(w io.Writer, actions []state.Action) error {
	p := gofpdf.New("L", "mm", "A4", "")
	p.SetTitle("ChatDraw board", true)
	p.SetCreator("chatdraw", true)
	p.AddPage()
	p.SetLineCapStyle("round")
	p.SetLineJoinStyle("round")

	pageW, pageH := p.GetPageSize()
	t := fitPage(state.Bounds(actions), pageW, pageH)
	for _, a := range actions {
		if err := drawAction(p, t, a); err != nil {
			return err
		}
	}
	if err := p.Output(w); err != nil {
		return errors.Wrap(err, "write pdf failed")
	}
	return nil
}

// transform maps canvas pixels to page millimetres.
type transform struct {
	scale  float64
	dx, dy float64
}

func fitPage(bounds state.Area, pageW, pageH float64) transform {
	if bounds.Empty() {
		return transform{scale: 1, dx: margin, dy: margin}
	}
	width := math.Max(float64(bounds.Width), 1)
	height := math.Max(float64(bounds.Height), 1)
	scale := math.Min((pageW-2*margin)/width, (pageH-2*margin)/height)
	return transform{
		scale: scale,
		dx:    margin - float64(bounds.X)*scale,
		dy:    margin - float64(bounds.Y)*scale,
	}
}

func (t transform) point(p state.Point) (float64, float64) {
	return float64(p.X)*t.scale + t.dx, float64(p.Y)*t.scale + t.dy
}

func drawAction(p *gofpdf.Fpdf, t transform, a state.Action) error {
	c, err := state.ParseColor(a.Color)
	if err != nil {
		return errors.Wrapf(err, "action %s", a.Shape)
	}
	p.SetDrawColor(int(c.R), int(c.G), int(c.B))
	p.SetFillColor(int(c.R), int(c.G), int(c.B))
	p.SetAlpha(float64(c.A)/255, "Normal")
	p.SetLineWidth(math.Max(float64(a.Width)*t.scale, 0.1))

	switch {
	case a.Shape.IsSegment():
		x1, y1 := t.point(*a.From)
		x2, y2 := t.point(*a.To)
		switch a.Shape {
		case state.ShapeRectangle:
			p.Rect(math.Min(x1, x2), math.Min(y1, y2), math.Abs(x2-x1), math.Abs(y2-y1), "D")
		case state.ShapeOval:
			p.Ellipse((x1+x2)/2, (y1+y2)/2, math.Abs(x2-x1)/2, math.Abs(y2-y1)/2, 0, "D")
		default:
			p.Line(x1, y1, x2, y2)
		}
	case a.Shape.IsPath():
		drawPath(p, t, a)
	default:
		return errors.Wrapf(state.ErrUnknownShape, "shape %q", a.Shape)
	}
	return p.Error()
}

func drawPath(p *gofpdf.Fpdf, t transform, a state.Action) {
	if len(a.Points) == 1 {
		x, y := t.point(a.Points[0])
		p.Circle(x, y, math.Max(float64(a.Width)*t.scale/2, 0.05), "F")
		return
	}
	x, y := t.point(a.Points[0])
	p.MoveTo(x, y)
	for _, pt := range a.Points[1:] {
		x, y = t.point(pt)
		p.LineTo(x, y)
	}
	p.DrawPath("D")
}
