package client

import (
	"strconv"
	"strings"

	"ChatDraw/internal/state"

	"github.com/mattn/go-shellwords"
	"github.com/pkg/errors"
)

var (
	ErrBadArguments = errors.New("bad arguments")
	ErrOddPoints    = errors.New("coordinates must come in x y pairs")
)

type CommandKind int

const (
	CommandChat CommandKind = iota
	CommandDraw
	CommandClear
	CommandPen
	CommandQuit
)

// Command is one parsed line of user input.
type Command struct {
	Kind   CommandKind
	Text   string
	Action state.Action
}

// Pen holds the color and width applied to the shapes the user draws.
type Pen struct {
	Color string
	Width float32
}

var segmentCommands = map[string]state.Shape{
	"/line":    state.ShapeLine,
	"/rect":    state.ShapeRectangle,
	"/oval":    state.ShapeOval,
	"/segment": state.ShapeFreehandSegment,
}

// Parse turns a line into a Command. /color and /width update p in place.
// Lines that are not a known command are chat.
func (p *Pen) Parse(line string) (Command, error) {
	line = strings.TrimRight(line, "\r\n")
	if !strings.HasPrefix(line, "/") {
		return Command{Kind: CommandChat, Text: line}, nil
	}
	args, err := shellwords.Parse(line)
	if err != nil {
		return Command{}, errors.Wrap(err, "parse command failed")
	}
	if len(args) == 0 {
		return Command{Kind: CommandChat, Text: line}, nil
	}

	name, args := args[0], args[1:]
	if shape, ok := segmentCommands[name]; ok {
		return p.segment(name, shape, args)
	}
	switch name {
	case "/pencil":
		return p.path(name, state.ShapeFreehandPath, p.Color, p.Width, args)
	case "/eraser":
		return p.path(name, state.ShapeEraserPath, state.ColorWhite, state.EraserWidth, args)
	case "/color":
		if len(args) != 1 {
			return Command{}, errors.Wrap(ErrBadArguments, "usage: /color #RRGGBB")
		}
		c, err := state.ParseColor(args[0])
		if err != nil {
			return Command{}, err
		}
		p.Color = state.FormatColor(c)
		return Command{Kind: CommandPen}, nil
	case "/width":
		if len(args) != 1 {
			return Command{}, errors.Wrap(ErrBadArguments, "usage: /width N")
		}
		w, err := strconv.ParseFloat(args[0], 32)
		if err != nil || w <= 0 {
			return Command{}, state.ErrInvalidWidth
		}
		p.Width = float32(w)
		return Command{Kind: CommandPen}, nil
	case "/clear":
		return Command{Kind: CommandClear}, nil
	case "/quit":
		return Command{Kind: CommandQuit}, nil
	}
	return Command{Kind: CommandChat, Text: line}, nil
}

func (p *Pen) segment(name string, shape state.Shape, args []string) (Command, error) {
	if len(args) != 4 {
		return Command{}, errors.Wrapf(ErrBadArguments, "usage: %s x1 y1 x2 y2", name)
	}
	pts, err := parsePoints(args)
	if err != nil {
		return Command{}, err
	}
	a, err := state.NewSegment(shape, pts[0], pts[1], p.Color, p.Width)
	if err != nil {
		return Command{}, err
	}
	return Command{Kind: CommandDraw, Action: a}, nil
}

func (p *Pen) path(name string, shape state.Shape, color string, width float32, args []string) (Command, error) {
	if len(args) == 0 {
		return Command{}, errors.Wrapf(ErrBadArguments, "usage: %s x y [x y ...]", name)
	}
	pts, err := parsePoints(args)
	if err != nil {
		return Command{}, err
	}
	a, err := state.NewPath(shape, pts, color, width)
	if err != nil {
		return Command{}, err
	}
	return Command{Kind: CommandDraw, Action: a}, nil
}

func parsePoints(args []string) ([]state.Point, error) {
	if len(args)%2 != 0 {
		return nil, ErrOddPoints
	}
	pts := make([]state.Point, 0, len(args)/2)
	for i := 0; i < len(args); i += 2 {
		x, err := strconv.Atoi(args[i])
		if err != nil {
			return nil, errors.Wrapf(ErrBadArguments, "x %q", args[i])
		}
		y, err := strconv.Atoi(args[i+1])
		if err != nil {
			return nil, errors.Wrapf(ErrBadArguments, "y %q", args[i+1])
		}
		pts = append(pts, state.Point{X: x, Y: y})
	}
	return pts, nil
}
