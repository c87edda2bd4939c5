package session

import (
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"ChatDraw/internal/state"
	"ChatDraw/internal/wire"

	"github.com/stretchr/testify/require"
)

const waitTimeout = 2 * time.Second

// fakeCodec is an in-memory wire.Codec. Tests push client messages on in and
// read what the server wrote from out.
type fakeCodec struct {
	remote string
	in     chan wire.Message
	out    chan wire.Message

	mu       sync.Mutex
	writeErr error

	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeCodec(remote string) *fakeCodec {
	return &fakeCodec{
		remote: remote,
		in:     make(chan wire.Message, 16),
		out:    make(chan wire.Message, 1024),
		closed: make(chan struct{}),
	}
}

func (f *fakeCodec) ReadMessage() (wire.Message, error) {
	select {
	case <-f.closed:
		return wire.Message{}, io.EOF
	default:
	}
	select {
	case msg := <-f.in:
		if err := msg.Validate(); err != nil {
			return wire.Message{}, err
		}
		return msg, nil
	case <-f.closed:
		return wire.Message{}, io.EOF
	}
}

func (f *fakeCodec) WriteMessage(msg wire.Message) error {
	f.mu.Lock()
	err := f.writeErr
	f.mu.Unlock()
	if err != nil {
		return err
	}
	select {
	case <-f.closed:
		return net.ErrClosed
	default:
	}
	f.out <- msg
	return nil
}

func (f *fakeCodec) SetReadDeadline(time.Time) error  { return nil }
func (f *fakeCodec) SetWriteDeadline(time.Time) error { return nil }
func (f *fakeCodec) RemoteAddr() string               { return f.remote }

func (f *fakeCodec) Close() error {
	f.closeOnce.Do(func() { close(f.closed) })
	return nil
}

func (f *fakeCodec) failWrites(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writeErr = err
}

func (f *fakeCodec) isClosed() bool {
	select {
	case <-f.closed:
		return true
	default:
		return false
	}
}

// expect returns the next message the server wrote to f.
func expect(t *testing.T, f *fakeCodec) wire.Message {
	t.Helper()
	select {
	case msg := <-f.out:
		return msg
	case <-time.After(waitTimeout):
		require.FailNow(t, "timed out waiting for message", "client %s", f.remote)
		return wire.Message{}
	}
}

func expectChat(t *testing.T, f *fakeCodec, text string) {
	t.Helper()
	msg := expect(t, f)
	require.Equal(t, wire.KindChat, msg.Kind, "client %s", f.remote)
	require.Equal(t, text, msg.Text, "client %s", f.remote)
}

func expectNothing(t *testing.T, f *fakeCodec) {
	t.Helper()
	select {
	case msg := <-f.out:
		require.FailNow(t, "unexpected message", "client %s got %+v", f.remote, msg)
	case <-time.After(50 * time.Millisecond):
	}
}

// namedHandle returns a handle over a fresh fake codec with its name bound.
func namedHandle(t *testing.T, name string) (*Handle, *fakeCodec) {
	t.Helper()
	f := newFakeCodec(name)
	h := NewHandle(f, 0, 0)
	require.NoError(t, h.BindName(name))
	return h, f
}

func segment(t *testing.T, x int) state.Action {
	t.Helper()
	a, err := state.NewSegment(state.ShapeLine, state.Point{X: x}, state.Point{X: x, Y: 10}, state.ColorBlack, 2)
	require.NoError(t, err)
	return a
}
