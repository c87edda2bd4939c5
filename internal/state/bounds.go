package state

// Area is an axis-aligned rectangle on the canvas.
type Area struct {
	X      float32
	Y      float32
	Width  float32
	Height float32
}

// Empty reports whether the area covers nothing.
func (a Area) Empty() bool {
	return a.Width <= 0 && a.Height <= 0
}

// Bounds returns the bounding box of a single action, padded by half its stroke width.
func (a Action) Bounds() Area {
	return boundsOf(a.Vertices(), a.Width/2)
}

// Bounds returns the bounding box enclosing every action. An empty history has an
// empty area at the origin.
func Bounds(actions []Action) Area {
	var (
		out   Area
		found bool
	)
	for _, a := range actions {
		b := a.Bounds()
		if !found {
			out, found = b, true
			continue
		}
		out = mergeAreas(out, b)
	}
	return out
}

func boundsOf(points []Point, padding float32) Area {
	if len(points) == 0 {
		return Area{}
	}
	minX, minY := float32(points[0].X), float32(points[0].Y)
	maxX, maxY := minX, minY
	for _, p := range points[1:] {
		x, y := float32(p.X), float32(p.Y)
		if x < minX {
			minX = x
		}
		if x > maxX {
			maxX = x
		}
		if y < minY {
			minY = y
		}
		if y > maxY {
			maxY = y
		}
	}
	return Area{
		X:      minX - padding,
		Y:      minY - padding,
		Width:  maxX - minX + 2*padding,
		Height: maxY - minY + 2*padding,
	}
}

func mergeAreas(a, b Area) Area {
	minX := min(a.X, b.X)
	minY := min(a.Y, b.Y)
	maxX := max(a.X+a.Width, b.X+b.Width)
	maxY := max(a.Y+a.Height, b.Y+b.Height)
	return Area{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}
