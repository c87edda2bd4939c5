package session

import (
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"ChatDraw/internal/state"
	"ChatDraw/internal/wire"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

var (
	ErrNameBound    = errors.New("name already bound")
	ErrEmptyName    = errors.New("name must not be blank")
	ErrHandleClosed = errors.New("handle closed")
)

// Handle is the server side of one client connection. Reads belong to the
// connection's supervisor goroutine; writes may come from any dispatcher. Every
// write first reserves a slot and writes go out in slot order.
type Handle struct {
	id           uuid.UUID
	codec        wire.Codec
	writeTimeout time.Duration
	idleTimeout  time.Duration

	// name is bound once, before the handle is registered, and read-only after.
	name string

	next atomic.Uint64

	mu        sync.Mutex
	turn      *sync.Cond // signalled when served advances
	served    uint64
	closed    chan struct{}
	closeOnce sync.Once
	closeErr  error
}

// NewHandle wraps codec. Zero timeouts disable the matching deadline.
func NewHandle(codec wire.Codec, writeTimeout, idleTimeout time.Duration) *Handle {
	h := &Handle{
		id:           uuid.New(),
		codec:        codec,
		writeTimeout: writeTimeout,
		idleTimeout:  idleTimeout,
		closed:       make(chan struct{}),
	}
	h.turn = sync.NewCond(&h.mu)
	return h
}

// ID identifies the connection in logs and in the registry.
func (h *Handle) ID() uuid.UUID { return h.id }

// Name is the display name bound at handshake, empty before that.
func (h *Handle) Name() string { return h.name }

// RemoteAddr is the peer address as reported by the codec.
func (h *Handle) RemoteAddr() string { return h.codec.RemoteAddr() }

// BindName sets the display name. It can only succeed once.
func (h *Handle) BindName(name string) error {
	if h.name != "" {
		return ErrNameBound
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	h.name = name
	return nil
}

// Receive blocks for the next inbound message.
func (h *Handle) Receive() (wire.Message, error) {
	if h.idleTimeout > 0 {
		if err := h.codec.SetReadDeadline(time.Now().Add(h.idleTimeout)); err != nil {
			return wire.Message{}, errors.Wrap(err, "set read deadline failed")
		}
	}
	return h.codec.ReadMessage()
}

// Send writes one message after every write reserved before it.
func (h *Handle) Send(msg wire.Message) error {
	return h.sendAt(h.reserve(), &msg)
}

// reserve hands out the next write slot. Every slot must be passed to sendAt
// exactly once or later writes on the handle never run.
func (h *Handle) reserve() uint64 {
	return h.next.Add(1) - 1
}

// sendAt waits until every earlier slot has been served, then writes msg. A nil
// msg releases the slot without writing.
func (h *Handle) sendAt(slot uint64, msg *wire.Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	for h.served != slot {
		h.turn.Wait()
	}
	defer func() {
		h.served++
		h.turn.Broadcast()
	}()
	if msg == nil {
		return nil
	}
	return h.writeLocked(*msg)
}

// greet registers the handle through join and writes the history it returns
// ahead of any broadcast. The history slot is reserved before the handle becomes
// visible to dispatchers, so every broadcast slot comes after it.
func (h *Handle) greet(join func() []state.Action) error {
	slot := h.reserve()
	msg := wire.History(join())
	return h.sendAt(slot, &msg)
}

func (h *Handle) writeLocked(msg wire.Message) error {
	select {
	case <-h.closed:
		return ErrHandleClosed
	default:
	}
	if h.writeTimeout > 0 {
		if err := h.codec.SetWriteDeadline(time.Now().Add(h.writeTimeout)); err != nil {
			return errors.Wrap(err, "set write deadline failed")
		}
	}
	if err := h.codec.WriteMessage(msg); err != nil {
		return errors.Wrapf(err, "write %s failed", msg.Kind)
	}
	return nil
}

// Close closes the underlying connection. Later calls return the first result.
func (h *Handle) Close() error {
	h.closeOnce.Do(func() {
		close(h.closed)
		h.closeErr = h.codec.Close()
	})
	return h.closeErr
}

// Done is closed once the handle has been closed.
func (h *Handle) Done() <-chan struct{} {
	return h.closed
}
