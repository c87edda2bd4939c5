// Package session runs the server side of a ChatDraw session: it accepts
// connections, admits named clients, replays the drawing history to newcomers
// and relays chat and drawing traffic between members.
package session

import (
	"context"
	"sync"
	"time"

	chatlog "ChatDraw/internal/log"
	"ChatDraw/internal/state"
	"ChatDraw/internal/wire"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var logger logrus.FieldLogger = logrus.StandardLogger()

// ErrProtocol is returned when a client sends a message that is not allowed in
// its current state.
var ErrProtocol = errors.New("protocol violation")

// DefaultWriteTimeout bounds a single write to a client.
const DefaultWriteTimeout = 10 * time.Second

const acceptRetryDelay = 50 * time.Millisecond

// Supervisor owns the per-connection lifecycle: handshake, greeting, relay and
// cleanup.
type Supervisor struct {
	registry     *Registry
	dispatcher   *Dispatcher
	echo         bool
	writeTimeout time.Duration
	idleTimeout  time.Duration
	logger       logrus.FieldLogger

	wg sync.WaitGroup
}

// Cfg configures a Supervisor.
type Cfg func(*Supervisor) error

// WithRegistry shares an existing registry instead of creating a new one.
func WithRegistry(r *Registry) Cfg {
	return func(s *Supervisor) error {
		if r == nil {
			return errors.New("registry must not be nil")
		}
		s.registry = r
		return nil
	}
}

// WithEcho controls whether senders receive their own broadcasts.
func WithEcho(echo bool) Cfg {
	return func(s *Supervisor) error {
		s.echo = echo
		return nil
	}
}

// WithWriteTimeout bounds each write to a client. Zero disables the bound.
func WithWriteTimeout(d time.Duration) Cfg {
	return func(s *Supervisor) error {
		if d < 0 {
			return errors.Errorf("negative write timeout %s", d)
		}
		s.writeTimeout = d
		return nil
	}
}

// WithIdleTimeout disconnects clients that send nothing for d. Zero disables it.
func WithIdleTimeout(d time.Duration) Cfg {
	return func(s *Supervisor) error {
		if d < 0 {
			return errors.Errorf("negative idle timeout %s", d)
		}
		s.idleTimeout = d
		return nil
	}
}

// WithLogger sets the logger used for connection events.
func WithLogger(l logrus.FieldLogger) Cfg {
	return func(s *Supervisor) error {
		s.logger = l
		return nil
	}
}

// NewSupervisor creates a new Supervisor with the given configuration.
func NewSupervisor(cfgs ...Cfg) (*Supervisor, error) {
	s := &Supervisor{
		echo:         true,
		writeTimeout: DefaultWriteTimeout,
		logger:       logger,
	}
	for _, cfg := range cfgs {
		if err := cfg(s); err != nil {
			return nil, errors.Wrap(err, "apply Supervisor cfg failed")
		}
	}
	if s.registry == nil {
		s.registry = NewRegistry()
	}
	s.dispatcher = NewDispatcher(s.registry, s.echo, s.logger)
	return s, nil
}

func (s *Supervisor) Registry() *Registry     { return s.registry }
func (s *Supervisor) Dispatcher() *Dispatcher { return s.dispatcher }

// Serve accepts connections from ln until ctx is cancelled or ln is closed.
// Every open connection is closed and its goroutine finished before Serve returns.
func (s *Supervisor) Serve(ctx context.Context, ln wire.Listener) error {
	defer s.wg.Wait()
	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(connCtx, func() {
		if err := ln.Close(); err != nil {
			s.logger.WithError(err).Debug("close listener failed")
		}
	})
	defer stop()

	s.logger.WithField("addr", ln.Addr().String()).Info("accepting connections")
	for {
		codec, err := ln.Accept()
		if err != nil {
			if errors.Is(err, wire.ErrListenerClosed) {
				if ctx.Err() != nil {
					s.logger.Info("shutting down")
					return nil
				}
				return errors.Wrap(err, "accept failed")
			}
			s.logger.WithError(err).Warn("accept failed")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(acceptRetryDelay):
			}
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.ServeConn(connCtx, codec)
		}()
	}
}

// ServeConn runs one connection to completion. It returns once the connection
// is closed, either by the peer, by a failed write or by ctx being cancelled.
func (s *Supervisor) ServeConn(ctx context.Context, codec wire.Codec) {
	h := NewHandle(codec, s.writeTimeout, s.idleTimeout)
	stop := context.AfterFunc(ctx, func() { _ = h.Close() })
	defer stop()

	log := s.logger.WithFields(logrus.Fields{
		"conn":   h.ID().String(),
		"remote": h.RemoteAddr(),
	})
	log.Debug("new connection established")

	if err := s.handshake(h); err != nil {
		logReadError(log, err, "handshake failed")
		_ = h.Close()
		return
	}
	log = log.WithField("name", h.Name())

	err := h.greet(func() []state.Action { return s.registry.JoinAndSnapshot(h) })
	if err != nil {
		log.WithError(err).Warn("send history failed")
		s.registry.Leave(h)
		_ = h.Close()
		return
	}
	log.WithFields(s.registry.Stats().fields()).Info("client joined")
	defer s.cleanup(h, log)

	s.dispatcher.Broadcast(h, wire.Chat(h.Name()+" has joined."))
	s.relay(h, log)
}

// handshake reads the single name message that must open every connection.
func (s *Supervisor) handshake(h *Handle) error {
	msg, err := h.Receive()
	if err != nil {
		return errors.Wrap(err, "receive name failed")
	}
	if msg.Kind != wire.KindName {
		return errors.Wrapf(ErrProtocol, "expected name, got %s", msg.Kind)
	}
	if err := h.BindName(msg.Name); err != nil {
		return errors.Wrap(err, "bind name failed")
	}
	return nil
}

func (s *Supervisor) relay(h *Handle, log logrus.FieldLogger) {
	for {
		msg, err := h.Receive()
		if err != nil {
			logReadError(log, err, "client disconnected")
			return
		}
		log.WithFields(chatlog.MessageFields(msg)).Debug("received message")

		switch msg.Kind {
		case wire.KindChat:
			s.dispatcher.Broadcast(h, msg)
		case wire.KindDraw:
			s.dispatcher.BroadcastDrawing(h, *msg.Action)
		case wire.KindClear:
			s.dispatcher.BroadcastClear(h)
		default:
			log.WithError(errors.Wrapf(ErrProtocol, "unexpected %s", msg.Kind)).Warn("closing connection")
			return
		}
	}
}

func (s *Supervisor) cleanup(h *Handle, log logrus.FieldLogger) {
	defer func() { _ = h.Close() }()
	s.registry.Leave(h)
	s.dispatcher.Broadcast(nil, wire.Chat(h.Name()+" has left."))
	log.WithFields(s.registry.Stats().fields()).Info("client left")
}

// logReadError logs ordinary hang-ups quietly and everything else as a warning.
func logReadError(log logrus.FieldLogger, err error, msg string) {
	if wire.IsDisconnect(err) {
		log.WithField("reason", err.Error()).Info(msg)
		return
	}
	log.WithError(err).Warn(msg)
}

func (st Stats) fields() logrus.Fields {
	return logrus.Fields{"members": st.Members, "history": st.History}
}
