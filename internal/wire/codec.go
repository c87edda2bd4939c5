package wire

import (
	"bufio"
	"bytes"
	"encoding/json"
	"io"
	"net"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
)

var (
	// ErrMalformed is returned when bytes on the wire are not a valid message.
	ErrMalformed = errors.New("malformed message")
	// ErrListenerClosed is returned by Accept once the listener has been closed.
	ErrListenerClosed = errors.New("listener closed")
)

// Codec reads and writes whole messages on one connection. ReadMessage must only
// be called from a single goroutine and writes must be serialized by the caller.
type Codec interface {
	ReadMessage() (Message, error)
	WriteMessage(Message) error
	SetReadDeadline(time.Time) error
	SetWriteDeadline(time.Time) error
	RemoteAddr() string
	Close() error
}

// StreamCodec frames messages as newline-delimited JSON on a byte stream. A
// line longer than maxMessageSize is rejected as malformed.
type StreamCodec struct {
	conn net.Conn
	r    *bufio.Reader
	enc  *json.Encoder
}

func NewStreamCodec(conn net.Conn) *StreamCodec {
	return &StreamCodec{
		conn: conn,
		r:    bufio.NewReader(conn),
		enc:  json.NewEncoder(conn),
	}
}

func (c *StreamCodec) ReadMessage() (Message, error) {
	var line []byte
	for len(line) == 0 {
		var err error
		if line, err = c.readLine(); err != nil {
			return Message{}, err
		}
		line = bytes.TrimSpace(line)
	}
	var msg Message
	if err := json.Unmarshal(line, &msg); err != nil {
		return Message{}, classifyDecode(err)
	}
	if err := msg.Validate(); err != nil {
		return Message{}, errors.Wrap(ErrMalformed, err.Error())
	}
	return msg, nil
}

// readLine returns the next line without buffering more than maxMessageSize.
// A final line cut short by EOF is still returned.
func (c *StreamCodec) readLine() ([]byte, error) {
	var line []byte
	for {
		chunk, err := c.r.ReadSlice('\n')
		if len(line)+len(chunk) > maxMessageSize {
			return nil, errors.Wrapf(ErrMalformed, "message exceeds %d bytes", maxMessageSize)
		}
		line = append(line, chunk...)
		switch {
		case err == nil:
			return line, nil
		case errors.Is(err, bufio.ErrBufferFull):
			continue
		case errors.Is(err, io.EOF) && len(bytes.TrimSpace(line)) > 0:
			return line, nil
		default:
			return nil, err
		}
	}
}

func (c *StreamCodec) WriteMessage(msg Message) error {
	return c.enc.Encode(msg)
}

func (c *StreamCodec) SetReadDeadline(t time.Time) error  { return c.conn.SetReadDeadline(t) }
func (c *StreamCodec) SetWriteDeadline(t time.Time) error { return c.conn.SetWriteDeadline(t) }
func (c *StreamCodec) RemoteAddr() string                 { return c.conn.RemoteAddr().String() }
func (c *StreamCodec) Close() error                       { return c.conn.Close() }

// SocketCodec frames messages as WebSocket text frames holding one JSON object each.
type SocketCodec struct {
	conn *websocket.Conn
}

func NewSocketCodec(conn *websocket.Conn) *SocketCodec {
	return &SocketCodec{conn: conn}
}

func (c *SocketCodec) ReadMessage() (Message, error) {
	var msg Message
	if err := c.conn.ReadJSON(&msg); err != nil {
		return Message{}, classifyDecode(err)
	}
	if err := msg.Validate(); err != nil {
		return Message{}, errors.Wrap(ErrMalformed, err.Error())
	}
	return msg, nil
}

func (c *SocketCodec) WriteMessage(msg Message) error {
	return c.conn.WriteJSON(msg)
}

func (c *SocketCodec) SetReadDeadline(t time.Time) error  { return c.conn.SetReadDeadline(t) }
func (c *SocketCodec) SetWriteDeadline(t time.Time) error { return c.conn.SetWriteDeadline(t) }
func (c *SocketCodec) RemoteAddr() string                 { return c.conn.RemoteAddr().String() }

// Close sends a best-effort close frame before dropping the connection.
func (c *SocketCodec) Close() error {
	_ = c.conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
	return c.conn.Close()
}

func classifyDecode(err error) error {
	var (
		syntaxErr *json.SyntaxError
		typeErr   *json.UnmarshalTypeError
	)
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return errors.Wrap(ErrMalformed, err.Error())
	}
	return err
}

// IsDisconnect reports whether err means the peer went away (or went quiet past
// the idle deadline) rather than misbehaved.
func IsDisconnect(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
