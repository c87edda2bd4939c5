package wire

import (
	"context"
	"io"
	"net"
	"os"
	"strings"
	"testing"
	"time"

	"ChatDraw/internal/state"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAction(t *testing.T) state.Action {
	t.Helper()
	a, err := state.NewPath(state.ShapeFreehandPath, []state.Point{{X: 1, Y: 2}, {X: 3, Y: 4}}, state.ColorBlack, 2)
	require.NoError(t, err)
	return a
}

func TestStreamCodec_ReadWrite(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	sc, cc := NewStreamCodec(server), NewStreamCodec(client)
	action := testAction(t)

	go func() {
		_ = cc.WriteMessage(Name("Alice"))
		_ = cc.WriteMessage(Draw(action))
		_ = cc.WriteMessage(Clear())
	}()

	msg, err := sc.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, Name("Alice"), msg)

	msg, err = sc.ReadMessage()
	require.NoError(t, err)
	require.Equal(t, KindDraw, msg.Kind)
	assert.Equal(t, action, *msg.Action)

	msg, err = sc.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, KindClear, msg.Kind)
}

func TestStreamCodec_Rejects(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{name: "not json", line: "hello\n"},
		{name: "unknown type", line: `{"type":"shout","text":"x"}` + "\n"},
		{name: "draw without action", line: `{"type":"draw"}` + "\n"},
		{name: "invalid action", line: `{"type":"draw","action":{"shape":"line","color":"#000000","width":1}}` + "\n"},
		{name: "empty name", line: `{"type":"name","name":""}` + "\n"},
		{name: "wrong field type", line: `{"type":"chat","text":12}` + "\n"},
		{name: "oversized line", line: `{"type":"chat","text":"` + strings.Repeat("x", maxMessageSize) + `"}` + "\n"},
		{name: "endless line", line: strings.Repeat(" ", maxMessageSize+1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server, client := net.Pipe()
			defer server.Close()
			defer client.Close()

			go func() { _, _ = io.WriteString(client, tt.line) }()

			_, err := NewStreamCodec(server).ReadMessage()
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformed), "got %v", err)
			assert.False(t, IsDisconnect(err))
		})
	}
}

func TestStreamCodec_SkipsBlankLinesAndReadsUnterminatedLast(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()

	go func() {
		_, _ = io.WriteString(client, "\n  \n"+`{"type":"chat","text":"a"}`+"\n"+`{"type":"clear"}`)
		_ = client.Close()
	}()

	codec := NewStreamCodec(server)
	msg, err := codec.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, KindChat, msg.Kind)
	assert.Equal(t, "a", msg.Text)
	msg, err = codec.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, KindClear, msg.Kind)
	_, err = codec.ReadMessage()
	assert.True(t, IsDisconnect(err), "got %v", err)
}

func TestHistory_EmptyRoundTrip(t *testing.T) {
	server, client := net.Pipe()
	defer server.Close()
	defer client.Close()

	go func() { _ = NewStreamCodec(server).WriteMessage(History(nil)) }()

	msg, err := NewStreamCodec(client).ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, KindHistory, msg.Kind)
	assert.Empty(t, msg.History)
}

func TestIsDisconnect(t *testing.T) {
	server, client := net.Pipe()
	client.Close()

	_, err := NewStreamCodec(server).ReadMessage()
	assert.True(t, IsDisconnect(err), "got %v", err)

	assert.True(t, IsDisconnect(errors.Wrap(io.EOF, "read failed")))
	assert.True(t, IsDisconnect(os.ErrDeadlineExceeded))
	assert.False(t, IsDisconnect(errors.New("boom")))
	assert.False(t, IsDisconnect(nil))
}

func TestSocketTransport(t *testing.T) {
	ln, err := Listen(TransportWebSocket, "127.0.0.1:0", "")
	require.NoError(t, err)
	defer ln.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	accepted := make(chan Codec, 1)
	go func() {
		c, err := ln.Accept()
		if err == nil {
			accepted <- c
		}
	}()

	client, err := Dial(ctx, TransportWebSocket, ln.Addr().String(), "")
	require.NoError(t, err)
	defer client.Close()

	var server Codec
	select {
	case server = <-accepted:
	case <-ctx.Done():
		t.Fatal("no connection accepted")
	}

	require.NoError(t, client.WriteMessage(Chat("Alice: hi")))
	msg, err := server.ReadMessage()
	require.NoError(t, err)
	assert.Equal(t, Chat("Alice: hi"), msg)

	require.NoError(t, server.WriteMessage(History([]state.Action{testAction(t)})))
	msg, err = client.ReadMessage()
	require.NoError(t, err)
	assert.Len(t, msg.History, 1)

	require.NoError(t, server.Close())
	_, err = client.ReadMessage()
	assert.True(t, IsDisconnect(err), "got %v", err)

	require.NoError(t, ln.Close())
	_, err = ln.Accept()
	assert.ErrorIs(t, err, ErrListenerClosed)
}

func TestListen_UnknownTransport(t *testing.T) {
	_, err := Listen("carrier-pigeon", "127.0.0.1:0", "")
	assert.True(t, errors.Is(err, ErrUnknownTransport))
}
