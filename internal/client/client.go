// Package client implements a headless ChatDraw participant: it joins a
// session, keeps a local copy of the board and sends chat and drawings.
package client

import (
	"context"
	"strings"
	"sync"

	"ChatDraw/internal/state"
	"ChatDraw/internal/wire"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var logger logrus.FieldLogger = logrus.StandardLogger()

var (
	ErrNoName             = errors.New("client name must be set")
	ErrNotConnected       = errors.New("client is not connected")
	ErrUnexpectedGreeting = errors.New("server did not reply with history")
)

// Client is one participant connected to a session server.
type Client struct {
	serverAddr string
	transport  string
	socketPath string
	name       string

	board *Board
	codec wire.Codec

	// guards codec and serializes writes; reads happen on the Listen goroutine.
	mu sync.Mutex
}

// Cfg configures a Client.
type Cfg func(*Client) error

// WithServerAddr sets the host:port to connect to.
func WithServerAddr(addr string) Cfg {
	return func(c *Client) error {
		if addr == "" {
			return errors.New("server address must not be empty")
		}
		c.serverAddr = addr
		return nil
	}
}

// WithTransport selects TCP or WebSocket. path is the WebSocket endpoint.
func WithTransport(transport, path string) Cfg {
	return func(c *Client) error {
		c.transport = transport
		c.socketPath = path
		return nil
	}
}

// WithName sets the display name announced to the server.
func WithName(name string) Cfg {
	return func(c *Client) error {
		c.name = strings.TrimSpace(name)
		return nil
	}
}

// NewClient creates a new Client with the given configuration.
func NewClient(cfgs ...Cfg) (*Client, error) {
	client := &Client{
		transport:  wire.TransportTCP,
		socketPath: wire.DefaultSocketPath,
		board:      &Board{},
	}
	for _, cfg := range cfgs {
		if err := cfg(client); err != nil {
			return nil, errors.Wrap(err, "apply Client cfg failed")
		}
	}
	if client.name == "" {
		return nil, ErrNoName
	}
	if client.serverAddr == "" {
		return nil, errors.New("server address must be set")
	}
	return client, nil
}

func (c *Client) Name() string  { return c.name }
func (c *Client) Board() *Board { return c.board }

// Connect dials the server, introduces the client and loads the replayed history
// into the board.
func (c *Client) Connect(ctx context.Context) error {
	codec, err := wire.Dial(ctx, c.transport, c.serverAddr, c.socketPath)
	if err != nil {
		return err
	}
	if err := codec.WriteMessage(wire.Name(c.name)); err != nil {
		_ = codec.Close()
		return errors.Wrap(err, "send name failed")
	}
	msg, err := codec.ReadMessage()
	if err != nil {
		_ = codec.Close()
		return errors.Wrap(err, "receive history failed")
	}
	if msg.Kind != wire.KindHistory {
		_ = codec.Close()
		return errors.Wrapf(ErrUnexpectedGreeting, "got %s", msg.Kind)
	}
	c.board.Reset(msg.History)
	c.mu.Lock()
	c.codec = codec
	c.mu.Unlock()
	logger.WithFields(logrus.Fields{
		"server":  c.serverAddr,
		"name":    c.name,
		"history": len(msg.History),
	}).Info("connected")
	return nil
}

// Listen applies incoming messages to the board and passes each one to handle
// until the connection closes or ctx is cancelled. A nil handle is allowed.
func (c *Client) Listen(ctx context.Context, handle func(wire.Message)) error {
	c.mu.Lock()
	codec := c.codec
	c.mu.Unlock()
	if codec == nil {
		return ErrNotConnected
	}
	stop := context.AfterFunc(ctx, func() { _ = codec.Close() })
	defer stop()
	for {
		msg, err := codec.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if wire.IsDisconnect(err) {
				return errors.Wrap(err, "connection closed")
			}
			return errors.Wrap(err, "receive failed")
		}
		c.apply(msg)
		if handle != nil {
			handle(msg)
		}
	}
}

func (c *Client) apply(msg wire.Message) {
	switch msg.Kind {
	case wire.KindHistory:
		c.board.Reset(msg.History)
	case wire.KindDraw:
		c.board.Add(*msg.Action)
	case wire.KindClear:
		c.board.Clear()
	}
}

// SendChat sends text prefixed with the client's name.
func (c *Client) SendChat(text string) error {
	return c.send(wire.Chat(c.name + ": " + text))
}

// SendAction sends a completed drawing action.
func (c *Client) SendAction(a state.Action) error {
	if err := a.Validate(); err != nil {
		return errors.Wrap(err, "invalid action")
	}
	return c.send(wire.Draw(a))
}

// SendClear asks every participant to clear the board.
func (c *Client) SendClear() error {
	return c.send(wire.Clear())
}

// Do carries out a parsed command and reports whether the user asked to quit.
func (c *Client) Do(cmd Command) (quit bool, err error) {
	switch cmd.Kind {
	case CommandChat:
		if strings.TrimSpace(cmd.Text) == "" {
			return false, nil
		}
		return false, c.SendChat(cmd.Text)
	case CommandDraw:
		return false, c.SendAction(cmd.Action)
	case CommandClear:
		return false, c.SendClear()
	case CommandQuit:
		return true, nil
	}
	return false, nil
}

func (c *Client) send(msg wire.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.codec == nil {
		return ErrNotConnected
	}
	if err := c.codec.WriteMessage(msg); err != nil {
		return errors.Wrapf(err, "send %s failed", msg.Kind)
	}
	return nil
}

// Close disconnects from the server.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.codec == nil {
		return nil
	}
	err := c.codec.Close()
	c.codec = nil
	return err
}
