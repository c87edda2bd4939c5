// Package export renders a board's drawing actions to files.
package export

import (
	"io"
	"strings"

	"ChatDraw/internal/state"

	"github.com/pkg/errors"
)

const (
	FormatPDF  = "pdf"
	FormatText = "txt"
)

var ErrUnknownFormat = errors.New("unknown export format")

// Write renders actions to w in the named format.
func Write(w io.Writer, format string, actions []state.Action) error {
	switch strings.ToLower(format) {
	case FormatPDF:
		return PDF(w, actions)
	case FormatText, "text":
		return Text(w, actions)
	}
	return errors.Wrapf(ErrUnknownFormat, "format %q", format)
}
