package wire

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var logger logrus.FieldLogger = logrus.StandardLogger()

// Supported transports.
const (
	TransportTCP       = "tcp"
	TransportWebSocket = "websocket"
)

// DefaultSocketPath is where the WebSocket listener upgrades connections.
const DefaultSocketPath = "/ws"

const (
	maxMessageSize    = 1 << 20
	readHeaderTimeout = 10 * time.Second
)

var ErrUnknownTransport = errors.New("unknown transport")

// Listener hands out one Codec per accepted connection.
type Listener interface {
	Accept() (Codec, error)
	Close() error
	Addr() net.Addr
}

// Listen binds addr with the given transport. path is only used by the WebSocket
// transport.
func Listen(transport, addr, path string) (Listener, error) {
	switch transport {
	case TransportTCP:
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return nil, errors.Wrapf(err, "listen on %s failed", addr)
		}
		return &streamListener{ln: ln}, nil
	case TransportWebSocket:
		return listenSocket(addr, path)
	default:
		return nil, errors.Wrapf(ErrUnknownTransport, "transport %q", transport)
	}
}

// Dial connects to a server and returns the client side codec.
func Dial(ctx context.Context, transport, addr, path string) (Codec, error) {
	switch transport {
	case TransportTCP:
		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, errors.Wrapf(err, "dial %s failed", addr)
		}
		return NewStreamCodec(conn), nil
	case TransportWebSocket:
		if path == "" {
			path = DefaultSocketPath
		}
		url := "ws://" + addr + path
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
		if err != nil {
			return nil, errors.Wrapf(err, "dial %s failed", url)
		}
		return NewSocketCodec(conn), nil
	default:
		return nil, errors.Wrapf(ErrUnknownTransport, "transport %q", transport)
	}
}

type streamListener struct {
	ln net.Listener
}

func (l *streamListener) Accept() (Codec, error) {
	conn, err := l.ln.Accept()
	if err != nil {
		if errors.Is(err, net.ErrClosed) {
			return nil, ErrListenerClosed
		}
		return nil, err
	}
	return NewStreamCodec(conn), nil
}

func (l *streamListener) Close() error   { return l.ln.Close() }
func (l *streamListener) Addr() net.Addr { return l.ln.Addr() }

type socketListener struct {
	ln        net.Listener
	srv       *http.Server
	upgrader  websocket.Upgrader
	conns     chan Codec
	done      chan struct{}
	closeOnce sync.Once
}

func listenSocket(addr, path string) (*socketListener, error) {
	if path == "" {
		path = DefaultSocketPath
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "listen on %s failed", addr)
	}
	l := &socketListener{
		ln: ln,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Clients are not browsers bound to an origin.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		conns: make(chan Codec),
		done:  make(chan struct{}),
	}
	mux := http.NewServeMux()
	mux.HandleFunc(path, l.upgrade)
	l.srv = &http.Server{Handler: mux, ReadHeaderTimeout: readHeaderTimeout}
	go func() {
		if err := l.srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("websocket listener stopped")
		}
	}()
	return l, nil
}

func (l *socketListener) upgrade(w http.ResponseWriter, r *http.Request) {
	conn, err := l.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.WithError(err).WithField("remote", r.RemoteAddr).Warn("websocket upgrade failed")
		return
	}
	conn.SetReadLimit(maxMessageSize)
	select {
	case l.conns <- NewSocketCodec(conn):
	case <-l.done:
		conn.Close()
	}
}

func (l *socketListener) Accept() (Codec, error) {
	select {
	case c := <-l.conns:
		return c, nil
	case <-l.done:
		return nil, ErrListenerClosed
	}
}

func (l *socketListener) Close() error {
	var err error
	l.closeOnce.Do(func() {
		close(l.done)
		err = l.srv.Close()
	})
	return err
}

func (l *socketListener) Addr() net.Addr { return l.ln.Addr() }
