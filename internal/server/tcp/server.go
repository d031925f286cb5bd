// Package tcp accepts client connections and runs one goroutine per
// connection that reads envelopes, hands them to the dispatcher and writes
// the responses back.
package tcp

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/pledgeboard/internal/common"
	"github.com/dmitrijs2005/pledgeboard/internal/logging"
	"github.com/dmitrijs2005/pledgeboard/internal/server/dispatch"
	"github.com/dmitrijs2005/pledgeboard/internal/server/metrics"
	"github.com/dmitrijs2005/pledgeboard/internal/wire"
)

type Handler interface {
	Handle(ctx context.Context, conn dispatch.ConnInfo, req *wire.Envelope) *wire.Envelope
}

// SessionCloser ends whatever session a connection held.
type SessionCloser interface {
	Logout(ctx context.Context, connID string) error
}

type Server struct {
	address    string
	handler    Handler
	sessions   SessionCloser
	maxClients int
	metrics    *metrics.Metrics
	logger     logging.Logger

	mu     sync.Mutex
	conns  map[string]net.Conn
	closed bool
	addr   net.Addr
	wg     sync.WaitGroup
	ready  chan net.Addr
}

type Option func(*Server)

// WithMaxClients sets the number of connections above which a warning is
// logged. Connections are never refused.
func WithMaxClients(n int) Option {
	return func(s *Server) { s.maxClients = n }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithSessionCloser makes the server log out the user of a connection
// when the connection ends.
func WithSessionCloser(c SessionCloser) Option {
	return func(s *Server) { s.sessions = c }
}

func NewServer(address string, h Handler, l logging.Logger, opts ...Option) *Server {
	s := &Server{
		address: address,
		handler: h,
		logger:  l.With("module", "tcp_server"),
		conns:   make(map[string]net.Conn),
		ready:   make(chan net.Addr, 1),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Ready yields the bound address once the listener is up.
func (s *Server) Ready() <-chan net.Addr { return s.ready }

// Addr is the bound address, nil before Run has started listening.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Run serves until ctx is cancelled. Cancellation closes the listener and
// every open connection; Run returns after all workers have finished.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.addr = listen.Addr()
	s.mu.Unlock()

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "Stopping TCP server...")
		case <-stop:
		}
		listen.Close()
		s.closeAll()
	}()

	s.logger.Info(ctx, "Starting TCP server", "address", listen.Addr().String())
	s.ready <- listen.Addr()

	err = s.acceptLoop(ctx, listen)
	if err != nil {
		listen.Close()
		s.closeAll()
	}
	s.wg.Wait()

	if ctx.Err() != nil {
		return nil
	}
	return err
}

func (s *Server) acceptLoop(ctx context.Context, listen net.Listener) error {
	var backoff time.Duration
	for {
		conn, err := listen.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				backoff = nextBackoff(backoff)
				s.logger.Warn(ctx, "accept failed, retrying", "error", err, "backoff", backoff)
				time.Sleep(backoff)
				continue
			}
			return err
		}
		backoff = 0

		id := uuid.NewString()
		active := s.track(id, conn)
		over := s.maxClients > 0 && active > s.maxClients
		s.metrics.ConnectionOpened(over)
		if over {
			s.logger.Warn(ctx, "more clients than configured maximum",
				"active", active, "max_clients", s.maxClients)
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.serve(ctx, id, conn)
		}()
	}
}

func (s *Server) serve(ctx context.Context, id string, conn net.Conn) {
	info := dispatch.ConnInfo{ID: id, RemoteAddr: conn.RemoteAddr().String()}
	logger := s.logger.With("conn_id", id, "remote", info.RemoteAddr)
	logger.Info(ctx, "client connected")

	defer func() {
		conn.Close()
		s.untrack(id)
		s.metrics.ConnectionClosed()
		s.closeSession(ctx, logger, id)
		logger.Info(ctx, "client disconnected")
	}()

	for {
		req, err := wire.ReadEnvelope(conn)
		if err != nil {
			switch {
			case errors.Is(err, wire.ErrFraming):
				s.metrics.FramingError()
				logger.Warn(ctx, "closing desynchronized connection", "error", err)
			case errors.Is(err, io.EOF), errors.Is(err, net.ErrClosed), ctx.Err() != nil:
			default:
				logger.Warn(ctx, "read failed", "error", err)
			}
			return
		}

		resp := s.handler.Handle(ctx, info, req)
		if err := wire.WriteEnvelope(conn, resp); err != nil {
			if ctx.Err() == nil {
				logger.Warn(ctx, "write failed", "type", resp.Type.String(), "error", err)
			}
			return
		}
	}
}

func (s *Server) closeSession(ctx context.Context, logger logging.Logger, id string) {
	if s.sessions == nil {
		return
	}
	err := s.sessions.Logout(context.WithoutCancel(ctx), id)
	if err != nil && !errors.Is(err, common.ErrNoSession) {
		logger.Error(ctx, "logout on disconnect failed", "error", err)
	}
}

func (s *Server) track(id string, conn net.Conn) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		// accepted while shutting down; the worker exits on its first read
		conn.Close()
	}
	s.conns[id] = conn
	return len(s.conns)
}

func (s *Server) untrack(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns, id)
}

func (s *Server) closeAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for _, c := range s.conns {
		c.Close()
	}
}

func nextBackoff(d time.Duration) time.Duration {
	if d == 0 {
		return 5 * time.Millisecond
	}
	if d *= 2; d > time.Second {
		d = time.Second
	}
	return d
}
