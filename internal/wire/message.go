// Package wire defines the values exchanged between a ChatDraw server and its
// clients and the codecs that frame them on a persistent connection.
//
// Every value is a JSON object tagged by "type":
//
//	{"type":"name","name":"Alice"}                 client -> server, first value only
//	{"type":"history","history":[...]}             server -> client, first value only
//	{"type":"chat","text":"Alice: hi"}             both directions
//	{"type":"draw","action":{...}}                 both directions
//	{"type":"clear"}                               both directions
//
// On TCP each value is one line; on WebSocket each value is one text frame.
package wire

import (
	"ChatDraw/internal/state"

	"github.com/pkg/errors"
)

type Kind string

const (
	KindName    Kind = "name"
	KindHistory Kind = "history"
	KindChat    Kind = "chat"
	KindDraw    Kind = "draw"
	KindClear   Kind = "clear"
)

var (
	ErrUnknownKind   = errors.New("unknown message type")
	ErrEmptyName     = errors.New("name must not be empty")
	ErrMissingAction = errors.New("draw message without action")
)

// Message is the tagged union of all wire values. Only the fields belonging to
// Kind are meaningful.
type Message struct {
	Kind    Kind           `json:"type"`
	Name    string         `json:"name,omitempty"`
	Text    string         `json:"text,omitempty"`
	Action  *state.Action  `json:"action,omitempty"`
	History []state.Action `json:"history,omitempty"`
}

func Name(name string) Message {
	return Message{Kind: KindName, Name: name}
}

func History(actions []state.Action) Message {
	return Message{Kind: KindHistory, History: actions}
}

func Chat(text string) Message {
	return Message{Kind: KindChat, Text: text}
}

func Draw(a state.Action) Message {
	return Message{Kind: KindDraw, Action: &a}
}

func Clear() Message {
	return Message{Kind: KindClear}
}

// Validate checks that the fields required by Kind are present and well formed.
func (m Message) Validate() error {
	switch m.Kind {
	case KindName:
		if m.Name == "" {
			return ErrEmptyName
		}
	case KindHistory:
		for i, a := range m.History {
			if err := a.Validate(); err != nil {
				return errors.Wrapf(err, "history entry %d", i)
			}
		}
	case KindChat, KindClear:
	case KindDraw:
		if m.Action == nil {
			return ErrMissingAction
		}
		if err := m.Action.Validate(); err != nil {
			return errors.Wrap(err, "invalid action")
		}
	default:
		return errors.Wrapf(ErrUnknownKind, "type %q", m.Kind)
	}
	return nil
}
