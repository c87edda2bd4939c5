package main

import (
	"bufio"
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveServer(t *testing.T) {
	addr, err := resolveServer([]string{"chatdraw://10.0.0.2:4000"}, "localhost:12345")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.2:4000", addr)

	addr, err = resolveServer(nil, "localhost:12345")
	require.NoError(t, err)
	assert.Equal(t, "localhost:12345", addr)

	_, err = resolveServer([]string{"chatdraw://nowhere"}, "localhost:12345")
	assert.Error(t, err)
}

func TestExportFormat(t *testing.T) {
	assert.Equal(t, "pdf", exportFormat("", "board.pdf"))
	assert.Equal(t, "txt", exportFormat("", "board.TXT"))
	assert.Equal(t, "txt", exportFormat("TXT", "board.pdf"))
	assert.Equal(t, "pdf", exportFormat("", "-"))
}

func TestCommandsRegistered(t *testing.T) {
	for _, name := range []string{"serve", "join", "snapshot", "discover"} {
		cmd, _, err := rootCmd.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
}

func TestReadLines(t *testing.T) {
	lines := make(chan string)
	go readLines(context.Background(), bufio.NewScanner(strings.NewReader("hi\n/clear\n")), lines)

	var got []string
	for line := range lines {
		got = append(got, line)
	}
	assert.Equal(t, []string{"hi", "/clear"}, got)
}

func TestReadLines_StopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	lines := make(chan string)
	done := make(chan struct{})
	go func() {
		defer close(done)
		readLines(ctx, bufio.NewScanner(strings.NewReader("a\nb\nc\n")), lines)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		require.FailNow(t, "reader still blocked after cancel")
	}
	_, ok := <-lines
	assert.False(t, ok)
}
