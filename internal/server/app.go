// Package server wires the pledge server together: it opens the configured
// persistence backend, loads the domain store, bootstraps the admin
// account, and runs the TCP, health and metrics listeners until shutdown.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/pledgeboard/internal/filex"
	"github.com/dmitrijs2005/pledgeboard/internal/logging"
	"github.com/dmitrijs2005/pledgeboard/internal/server/config"
	"github.com/dmitrijs2005/pledgeboard/internal/server/dispatch"
	"github.com/dmitrijs2005/pledgeboard/internal/server/evaluations"
	"github.com/dmitrijs2005/pledgeboard/internal/server/health"
	"github.com/dmitrijs2005/pledgeboard/internal/server/ingest"
	"github.com/dmitrijs2005/pledgeboard/internal/server/metrics"
	"github.com/dmitrijs2005/pledgeboard/internal/server/persistence"
	"github.com/dmitrijs2005/pledgeboard/internal/server/sessions"
	"github.com/dmitrijs2005/pledgeboard/internal/server/store"
	"github.com/dmitrijs2005/pledgeboard/internal/server/tcp"
	"github.com/dmitrijs2005/pledgeboard/internal/server/users"
)

const (
	boltFileName   = "pledgeboard.db"
	apiKeyFileName = "api_key.txt"
)

type App struct {
	config    *config.Config
	logger    logging.Logger
	persister persistence.Persister
	store     *store.Store
	users     *users.Service
	engine    *evaluations.Engine
	registry  *prometheus.Registry
	tcp       *tcp.Server
	started   chan net.Addr
}

func NewApp(c *config.Config) (*App, error) {
	return newApp(c, os.Stdout)
}

func newApp(c *config.Config, logOut io.Writer, opts ...users.Option) (*App, error) {
	logger := logging.NewJSON(logOut, c.LogLevel)

	p, err := openPersister(c)
	if err != nil {
		return nil, fmt.Errorf("persistence init error: %w", err)
	}

	snap, err := p.Load()
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("load data: %w", err)
	}

	st := store.New(p, store.WithLogger(logger), store.WithLimits(storeLimits(c.Limits)))
	st.Load(snap)

	reg := prometheus.NewRegistry()
	m, err := metrics.New(metrics.Options{Registerer: reg})
	if err != nil {
		p.Close()
		return nil, fmt.Errorf("metrics init error: %w", err)
	}

	registry := sessions.NewRegistry()
	us := users.NewService(users.NewStoreRepository(st), registry, logger, c, opts...)
	engine := evaluations.NewEngine(st, logger)

	key := c.OpenDataKey
	if key == "" {
		key = readAPIKey(c.DataDir)
	}
	source := ingest.NewHTTPSource(c.OpenDataURL, key, c.OpenDataTimeout)
	refresher := ingest.NewRefresher(source, st, p, logger)

	d := dispatch.New(us, engine, st, registry, logger,
		dispatch.WithRefresher(refresher), dispatch.WithMetrics(m))

	srv := tcp.NewServer(c.EndpointAddr, d, logger,
		tcp.WithMaxClients(c.MaxClients), tcp.WithMetrics(m), tcp.WithSessionCloser(us))

	counts := st.Counts()
	logger.Info(context.Background(), "data loaded",
		"storage", c.Storage, "elections", counts.Elections, "candidates", counts.Candidates,
		"pledges", counts.Pledges, "evaluations", counts.Evaluations, "users", counts.Users)

	return &App{
		config:    c,
		logger:    logger,
		persister: p,
		store:     st,
		users:     us,
		engine:    engine,
		registry:  reg,
		tcp:       srv,
		started:   make(chan net.Addr, 1),
	}, nil
}

func openPersister(c *config.Config) (persistence.Persister, error) {
	switch c.Storage {
	case config.StorageFile, "":
		return persistence.NewFlatFile(c.DataDir)
	case config.StorageBolt:
		dir, err := filex.EnsureDir(c.DataDir)
		if err != nil {
			return nil, err
		}
		return persistence.NewBolt(filepath.Join(dir, boltFileName))
	default:
		return nil, fmt.Errorf("unknown storage %q", c.Storage)
	}
}

// readAPIKey returns the trimmed first line of api_key.txt in dir, or ""
// when there is none.
func readAPIKey(dir string) string {
	b, err := os.ReadFile(filepath.Join(dir, apiKeyFileName))
	if err != nil {
		return ""
	}
	line, _, _ := strings.Cut(string(b), "\n")
	return strings.TrimSpace(line)
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

// Run serves until ctx is cancelled, a termination signal arrives or one
// of the listeners fails.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(cancelFunc)

	defer func() {
		if err := app.persister.Close(); err != nil {
			app.logger.Error(ctx, "close persistence", "error", err)
		}
	}()

	if _, err := app.users.Bootstrap(ctx); err != nil {
		return fmt.Errorf("bootstrap users: %w", err)
	}
	if err := app.engine.RecomputeAll(ctx); err != nil {
		return fmt.Errorf("recompute statistics: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	var hs *health.Server
	if app.config.HealthAddr != "" {
		hs = health.NewServer(app.config.HealthAddr, app.logger)
		g.Go(func() error { return hs.Run(ctx) })
	}

	if app.config.MetricsAddr != "" {
		ms := metrics.NewServer(app.config.MetricsAddr, app.registry, app.logger)
		g.Go(func() error { return ms.Run(ctx) })
	}

	g.Go(func() error { return app.tcp.Run(ctx) })

	g.Go(func() error {
		select {
		case addr := <-app.tcp.Ready():
			if hs != nil {
				hs.SetServing(true)
			}
			app.started <- addr
		case <-ctx.Done():
		}
		return nil
	})

	err := g.Wait()
	if err != nil && !errors.Is(err, context.Canceled) {
		app.logger.Error(ctx, "server stopped with error", "error", err)
		return err
	}

	app.logger.Info(ctx, "Server stopped")
	return nil
}

func storeLimits(l config.Limits) store.Limits {
	return store.Limits{
		Elections:   l.Elections,
		Candidates:  l.Candidates,
		Pledges:     l.Pledges,
		Evaluations: l.Evaluations,
		Users:       l.Users,
	}
}
