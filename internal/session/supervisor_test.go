package session

import (
	"context"
	"testing"
	"time"

	"ChatDraw/internal/state"
	"ChatDraw/internal/wire"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// connect runs a connection through s and stops it when the test ends.
func connect(t *testing.T, s *Supervisor, remote string) *fakeCodec {
	t.Helper()
	f := newFakeCodec(remote)
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.ServeConn(context.Background(), f)
	}()
	t.Cleanup(func() {
		_ = f.Close()
		select {
		case <-done:
		case <-time.After(waitTimeout):
			t.Errorf("connection %s did not finish", remote)
		}
	})
	return f
}

// join connects a client, sends its name and returns it with the replayed history.
func join(t *testing.T, s *Supervisor, name string) (*fakeCodec, []state.Action) {
	t.Helper()
	f := connect(t, s, name)
	f.in <- wire.Name(name)
	msg := expect(t, f)
	require.Equal(t, wire.KindHistory, msg.Kind)
	return f, msg.History
}

func TestSupervisor_Session(t *testing.T) {
	s, err := NewSupervisor()
	require.NoError(t, err)

	alice, history := join(t, s, "Alice")
	assert.Empty(t, history)
	expectChat(t, alice, "Alice has joined.")

	p1, err := state.NewPath(state.ShapeFreehandPath, []state.Point{{X: 1, Y: 1}, {X: 4, Y: 6}}, state.ColorBlack, 2)
	require.NoError(t, err)
	alice.in <- wire.Draw(p1)
	msg := expect(t, alice)
	require.Equal(t, wire.KindDraw, msg.Kind)
	assert.Equal(t, p1, *msg.Action)

	bob, history := join(t, s, "Bob")
	assert.Equal(t, []state.Action{p1}, history)
	expectChat(t, bob, "Bob has joined.")
	expectChat(t, alice, "Bob has joined.")

	alice.in <- wire.Chat("Alice: hi")
	expectChat(t, alice, "Alice: hi")
	expectChat(t, bob, "Alice: hi")

	alice.in <- wire.Clear()
	assert.Equal(t, wire.KindClear, expect(t, alice).Kind)
	assert.Equal(t, wire.KindClear, expect(t, bob).Kind)
	assert.Empty(t, s.Registry().Snapshot())

	require.NoError(t, bob.Close())
	expectChat(t, alice, "Bob has left.")
	assert.Equal(t, 1, s.Registry().Stats().Members)
	expectNothing(t, alice)
}

func TestSupervisor_ReplaysFullHistory(t *testing.T) {
	s, err := NewSupervisor()
	require.NoError(t, err)

	alice, _ := join(t, s, "Alice")
	expectChat(t, alice, "Alice has joined.")

	var want []state.Action
	for i := range 20 {
		a := segment(t, i)
		want = append(want, a)
		alice.in <- wire.Draw(a)
	}
	for range want {
		assert.Equal(t, wire.KindDraw, expect(t, alice).Kind)
	}

	_, history := join(t, s, "Bob")
	assert.Equal(t, want, history)
}

func TestSupervisor_HandshakeFailure(t *testing.T) {
	tests := []struct {
		name  string
		first wire.Message
	}{
		{name: "chat before name", first: wire.Chat("hello")},
		{name: "clear before name", first: wire.Clear()},
		{name: "blank name", first: wire.Name("   ")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := NewSupervisor()
			require.NoError(t, err)
			alice, _ := join(t, s, "Alice")
			expectChat(t, alice, "Alice has joined.")

			bad := connect(t, s, "bad")
			bad.in <- tt.first
			require.Eventually(t, bad.isClosed, waitTimeout, 10*time.Millisecond)

			expectNothing(t, alice)
			expectNothing(t, bad)
			assert.Equal(t, 1, s.Registry().Stats().Members)
		})
	}
}

func TestSupervisor_ProtocolViolationAfterJoin(t *testing.T) {
	s, err := NewSupervisor()
	require.NoError(t, err)
	alice, _ := join(t, s, "Alice")
	expectChat(t, alice, "Alice has joined.")
	bob, _ := join(t, s, "Bob")
	expectChat(t, bob, "Bob has joined.")
	expectChat(t, alice, "Bob has joined.")

	bob.in <- wire.Name("Robert")
	expectChat(t, alice, "Bob has left.")
	require.Eventually(t, bob.isClosed, waitTimeout, 10*time.Millisecond)
	assert.Equal(t, 1, s.Registry().Stats().Members)
}

func TestSupervisor_NoEcho(t *testing.T) {
	s, err := NewSupervisor(WithEcho(false))
	require.NoError(t, err)

	alice, _ := join(t, s, "Alice")
	expectNothing(t, alice)

	bob, _ := join(t, s, "Bob")
	expectChat(t, alice, "Bob has joined.")
	expectNothing(t, bob)

	alice.in <- wire.Chat("Alice: hi")
	expectChat(t, bob, "Alice: hi")
	expectNothing(t, alice)
}

func TestNewSupervisor_InvalidCfg(t *testing.T) {
	_, err := NewSupervisor(WithWriteTimeout(-time.Second))
	assert.Error(t, err)
	_, err = NewSupervisor(WithIdleTimeout(-time.Second))
	assert.Error(t, err)
	_, err = NewSupervisor(WithRegistry(nil))
	assert.Error(t, err)
}

func TestSupervisor_ServeTCP(t *testing.T) {
	s, err := NewSupervisor(WithIdleTimeout(time.Minute))
	require.NoError(t, err)
	ln, err := wire.Listen(wire.TransportTCP, "127.0.0.1:0", "")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errc := make(chan error, 1)
	go func() { errc <- s.Serve(ctx, ln) }()

	codec, err := wire.Dial(ctx, wire.TransportTCP, ln.Addr().String(), "")
	require.NoError(t, err)
	defer codec.Close()

	require.NoError(t, codec.WriteMessage(wire.Name("Alice")))
	msg, err := codec.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, wire.KindHistory, msg.Kind)
	msg, err = codec.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, "Alice has joined.", msg.Text)

	cancel()
	select {
	case err := <-errc:
		assert.NoError(t, err)
	case <-time.After(waitTimeout):
		require.FailNow(t, "serve did not return")
	}
	_, err = codec.ReadMessage()
	assert.Error(t, err)
	assert.Zero(t, s.Registry().Stats().Members)
}

func TestSupervisor_IdleTimeout(t *testing.T) {
	s, err := NewSupervisor(WithIdleTimeout(100 * time.Millisecond))
	require.NoError(t, err)
	ln, err := wire.Listen(wire.TransportTCP, "127.0.0.1:0", "")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = s.Serve(ctx, ln) }()

	codec, err := wire.Dial(ctx, wire.TransportTCP, ln.Addr().String(), "")
	require.NoError(t, err)
	defer codec.Close()
	require.NoError(t, codec.WriteMessage(wire.Name("Alice")))

	_, err = codec.ReadMessage()
	require.NoError(t, err)
	_, err = codec.ReadMessage()
	require.NoError(t, err)

	require.NoError(t, codec.SetReadDeadline(time.Now().Add(waitTimeout)))
	_, err = codec.ReadMessage()
	assert.True(t, wire.IsDisconnect(err), "got %v", err)
	assert.Eventually(t, func() bool { return s.Registry().Stats().Members == 0 }, waitTimeout, 10*time.Millisecond)
}
