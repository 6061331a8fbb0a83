package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/arpanpaul-gh/InMemory-DB/internal/adapter/metrics"
	"github.com/arpanpaul-gh/InMemory-DB/internal/app/handlers"
	"github.com/arpanpaul-gh/InMemory-DB/internal/config"
	"github.com/arpanpaul-gh/InMemory-DB/internal/core/domain"
	"github.com/arpanpaul-gh/InMemory-DB/internal/core/ports"
)

// Server owns the listener and the per-connection workers. The connection
// registry is the shutdown fan-out set: Stop walks it and closes every
// socket so blocked readers wake immediately.
type Server struct {
	cfg      config.ServerConfig
	handler  *handlers.Handler
	bus      ports.PubSub
	metrics  *metrics.Metrics
	logger   *slog.Logger
	listener net.Listener
	conns    *xsync.Map[uint64, *connection]
	connSeq  atomic.Uint64
	closing  atomic.Bool
	wg       sync.WaitGroup
}

// NewServer wires the transport layer. Start must be called before the
// server accepts anything.
func NewServer(cfg config.ServerConfig, handler *handlers.Handler, bus ports.PubSub, m *metrics.Metrics, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:     cfg,
		handler: handler,
		bus:     bus,
		metrics: m,
		logger:  logger,
		conns:   xsync.NewMap[uint64, *connection](),
	}
}

// Start binds the listener and launches the accept loop. The returned error
// covers bind failures only; accept errors are handled inside the loop.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("binding %s: %w", addr, err)
	}
	s.listener = listener
	s.logger.Info("listening", "addr", listener.Addr().String())

	s.wg.Add(1)
	go s.acceptLoop(ctx)
	return nil
}

// Addr returns the bound address, useful when the configured port is 0.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop closes the listener and every tracked connection, then waits for the
// workers to drain.
func (s *Server) Stop(ctx context.Context) error {
	s.closing.Store(true)
	if s.listener != nil {
		_ = s.listener.Close()
	}
	s.conns.Range(func(id uint64, c *connection) bool {
		c.close()
		return true
	})

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for workers: %w", ctx.Err())
	}
}

func (s *Server) acceptLoop(ctx context.Context) {
	defer s.wg.Done()

	poll := s.cfg.PollInterval
	if poll <= 0 {
		poll = time.Second
	}
	tcp, _ := s.listener.(*net.TCPListener)

	for {
		if tcp != nil {
			_ = tcp.SetDeadline(time.Now().Add(poll))
		}
		sock, err := s.listener.Accept()
		if err != nil {
			if s.closing.Load() || errors.Is(err, net.ErrClosed) {
				return
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				if ctx.Err() != nil {
					return
				}
				continue
			}
			s.logger.Warn("accept failed", "error", err)
			continue
		}

		conn := newConnection(s.connSeq.Add(1), sock)
		s.conns.Store(conn.id, conn)
		s.metrics.ConnectionsTotal.Inc()
		s.metrics.ConnectionsActive.Inc()
		s.logger.Debug("client connected", "conn", conn.id, "remote", sock.RemoteAddr().String())

		s.wg.Add(1)
		go s.serveConn(ctx, conn)
	}
}

// serveConn is the per-connection worker: read one frame, dispatch, write
// the reply, repeat. Every exit path deregisters the connection, detaches
// it from every bus channel and closes the socket.
func (s *Server) serveConn(ctx context.Context, conn *connection) {
	defer s.wg.Done()
	defer func() {
		s.conns.Delete(conn.id)
		s.bus.Drop(conn)
		conn.close()
		s.metrics.ConnectionsActive.Dec()
		s.logger.Debug("client disconnected", "conn", conn.id)
	}()

	poll := s.cfg.PollInterval
	if poll <= 0 {
		poll = time.Second
	}

	for {
		if ctx.Err() != nil || s.closing.Load() {
			return
		}

		_ = conn.sock.SetReadDeadline(time.Now().Add(poll))
		frame, err := conn.readFrame(s.cfg.MaxFrameBytes)
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if errors.Is(err, domain.ErrFrameTooLarge) {
				s.logger.Warn("closing connection: oversized frame", "conn", conn.id)
			}
			return
		}
		if len(frame) == 0 {
			continue
		}

		reply := s.handler.Handle(frame, conn)
		if err := conn.writeFrame(reply); err != nil {
			s.logger.Debug("reply write failed", "conn", conn.id, "error", err)
			return
		}
	}
}
