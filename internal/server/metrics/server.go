package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrijs2005/pledgeboard/internal/logging"
)

// Server serves /metrics until its context is cancelled.
type Server struct {
	address  string
	gatherer prometheus.Gatherer
	logger   logging.Logger
	ready    chan net.Addr
}

func NewServer(address string, g prometheus.Gatherer, l logging.Logger) *Server {
	return &Server{
		address:  address,
		gatherer: g,
		logger:   l.With("module", "metrics_server"),
		ready:    make(chan net.Addr, 1),
	}
}

// Ready yields the bound address once the listener is up.
func (s *Server) Ready() <-chan net.Addr { return s.ready }

func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping metrics server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting metrics server", "address", listen.Addr().String())
	s.ready <- listen.Addr()

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
