// Package dispatch routes decoded envelopes to the auth service, the
// evaluation engine, the read-only count handlers and the open-data
// refresher, and turns their results into response envelopes.
package dispatch

import (
	"context"
	"time"

	"github.com/dmitrijs2005/pledgeboard/internal/common"
	"github.com/dmitrijs2005/pledgeboard/internal/logging"
	"github.com/dmitrijs2005/pledgeboard/internal/server/ingest"
	"github.com/dmitrijs2005/pledgeboard/internal/server/metrics"
	"github.com/dmitrijs2005/pledgeboard/internal/server/models"
	"github.com/dmitrijs2005/pledgeboard/internal/server/sessions"
	"github.com/dmitrijs2005/pledgeboard/internal/server/store"
	"github.com/dmitrijs2005/pledgeboard/internal/wire"
)

// ConnInfo identifies the connection a request arrived on.
type ConnInfo struct {
	ID         string
	RemoteAddr string
}

type Auth interface {
	Register(ctx context.Context, userID, password string) error
	Login(ctx context.Context, connID, userID, password string) (*sessions.Session, error)
	Logout(ctx context.Context, connID string) error
}

type Evaluator interface {
	Vote(ctx context.Context, userID, pledgeID string, t models.EvaluationType) (models.EvaluationType, error)
	Cancel(ctx context.Context, userID, pledgeID string) (models.EvaluationType, error)
	Query(ctx context.Context, userID, pledgeID string) models.EvaluationType
	Statistics(ctx context.Context, pledgeID string) (*wire.Statistics, error)
}

type Refresher interface {
	Refresh(ctx context.Context, scope ingest.Scope) (ingest.Result, error)
}

type Counter interface {
	Counts() store.Counts
}

type handlerFunc func(ctx context.Context, conn ConnInfo, req *wire.Envelope) *wire.Envelope

type access int

const (
	public access = iota
	authenticated
	admin
)

type route struct {
	access  access
	handler handlerFunc
}

type Dispatcher struct {
	auth      Auth
	eval      Evaluator
	counts    Counter
	sessions  *sessions.Registry
	refresher Refresher
	metrics   *metrics.Metrics
	logger    logging.Logger
	routes    map[wire.MessageType]route
}

type Option func(*Dispatcher)

// WithRefresher enables the Refresh* message types. Without it they
// answer 500.
func WithRefresher(r Refresher) Option {
	return func(d *Dispatcher) { d.refresher = r }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

func New(auth Auth, eval Evaluator, counts Counter, reg *sessions.Registry, l logging.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		auth:     auth,
		eval:     eval,
		counts:   counts,
		sessions: reg,
		logger:   l.With("module", "dispatch"),
	}
	for _, o := range opts {
		o(d)
	}

	d.routes = map[wire.MessageType]route{
		wire.LoginRequest:      {public, d.handleLogin},
		wire.LogoutRequest:     {authenticated, d.handleLogout},
		wire.GetElections:      {public, d.handleGetElections},
		wire.GetCandidates:     {public, d.handleGetCandidates},
		wire.GetPledges:        {public, d.handleGetPledges},
		wire.EvaluatePledge:    {authenticated, d.handleEvaluate},
		wire.CancelEvaluation:  {authenticated, d.handleCancel},
		wire.GetUserEvaluation: {authenticated, d.handleUserEvaluation},
		wire.GetStatistics:     {public, d.handleStatistics},
		wire.RefreshElections:  {admin, d.refreshHandler(ingest.ScopeElections)},
		wire.RefreshCandidates: {admin, d.refreshHandler(ingest.ScopeCandidates)},
		wire.RefreshPledges:    {admin, d.refreshHandler(ingest.ScopePledges)},
		wire.RefreshAll:        {admin, d.refreshHandler(ingest.ScopeAll)},
	}
	return d
}

// Handle processes one request. It never returns nil and never panics on
// client input; every failure is reported in the response status.
func (d *Dispatcher) Handle(ctx context.Context, conn ConnInfo, req *wire.Envelope) *wire.Envelope {
	start := time.Now()
	resp := d.route(ctx, conn, req)
	d.metrics.ObserveRequest(req.Type.String(), int32(resp.Status), time.Since(start))

	if resp.Status != wire.StatusOK {
		d.logger.Debug(ctx, "request rejected",
			"conn_id", conn.ID, "type", req.Type.String(), "status", int32(resp.Status), "reason", resp.Text())
	}
	return resp
}

// route runs the handler for req. A handler panic is answered with 500 and
// leaves the connection and the process running.
func (d *Dispatcher) route(ctx context.Context, conn ConnInfo, req *wire.Envelope) (resp *wire.Envelope) {
	defer func() {
		if p := recover(); p != nil {
			d.logger.Error(ctx, "handler panicked", "conn_id", conn.ID, "type", req.Type.String(), "panic", p)
			resp = failure(req, wire.StatusInternalError, "internal error")
		}
	}()

	r, ok := d.routes[req.Type]
	if !ok {
		return failure(req, wire.StatusBadRequest, "unknown message type "+req.Type.String())
	}

	if denied := d.authorize(conn, req, r.access); denied != nil {
		return denied
	}
	return r.handler(ctx, conn, req)
}

// authorize returns nil when the request may proceed, otherwise the
// rejection to send.
func (d *Dispatcher) authorize(conn ConnInfo, req *wire.Envelope, level access) *wire.Envelope {
	if level == public {
		return nil
	}
	if err := d.sessions.Validate(conn.ID, req.UserID, req.SessionID); err != nil {
		return failure(req, wire.StatusUnauthorized, "invalid session")
	}
	d.sessions.Touch(conn.ID)

	if level == admin && req.UserID != common.DefaultAdminUserID {
		return failure(req, wire.StatusUnauthorized, "admin only")
	}
	return nil
}

func success(req *wire.Envelope, data string) *wire.Envelope {
	return &wire.Envelope{
		Type:      wire.Success,
		UserID:    req.UserID,
		SessionID: req.SessionID,
		Data:      []byte(data),
		Status:    wire.StatusOK,
	}
}

func failure(req *wire.Envelope, st wire.Status, msg string) *wire.Envelope {
	if len(msg) >= wire.DataFieldSize {
		msg = msg[:wire.DataFieldSize-1]
	}
	return &wire.Envelope{
		Type:   wire.Error,
		UserID: req.UserID,
		Data:   []byte(msg),
		Status: st,
	}
}
