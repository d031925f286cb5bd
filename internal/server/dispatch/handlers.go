package dispatch

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/pledgeboard/internal/server/ingest"
	"github.com/dmitrijs2005/pledgeboard/internal/server/models"
	"github.com/dmitrijs2005/pledgeboard/internal/wire"
)

// refreshCandidatesCommand in a GetCandidates request asks for a full
// refresh instead of the count.
const refreshCandidatesCommand = "refresh_candidates"

func (d *Dispatcher) handleLogin(ctx context.Context, conn ConnInfo, req *wire.Envelope) *wire.Envelope {
	p, err := wire.ParseLogin(req.Data)
	if err != nil {
		return fail(req, err)
	}

	if p.IsRegister() {
		if err := d.auth.Register(ctx, p.UserID, p.Password); err != nil {
			d.logger.Info(ctx, "registration refused", "conn_id", conn.ID, "user_id", p.UserID, "error", err)
			return fail(req, err)
		}
		return success(req, "registered "+p.UserID)
	}

	// a successful login replaces the connection's session; a refused one keeps it
	sess, err := d.auth.Login(ctx, conn.ID, p.UserID, p.Password)
	if err != nil {
		d.logger.Info(ctx, "login refused", "conn_id", conn.ID, "user_id", p.UserID, "error", err)
		return fail(req, err)
	}

	d.logger.Info(ctx, "logged in", "conn_id", conn.ID, "user_id", sess.UserID, "remote", conn.RemoteAddr)
	return &wire.Envelope{
		Type:      wire.LoginResponse,
		UserID:    sess.UserID,
		SessionID: sess.Token,
		Data:      []byte("login successful"),
		Status:    wire.StatusOK,
	}
}

func (d *Dispatcher) handleLogout(ctx context.Context, conn ConnInfo, req *wire.Envelope) *wire.Envelope {
	if err := d.auth.Logout(ctx, conn.ID); err != nil {
		return fail(req, err)
	}
	resp := success(req, "logged out")
	resp.SessionID = ""
	return resp
}

func (d *Dispatcher) handleGetElections(ctx context.Context, conn ConnInfo, req *wire.Envelope) *wire.Envelope {
	return success(req, fmt.Sprintf("elections: %d", d.counts.Counts().Elections))
}

func (d *Dispatcher) handleGetCandidates(ctx context.Context, conn ConnInfo, req *wire.Envelope) *wire.Envelope {
	if strings.TrimSpace(req.Text()) == refreshCandidatesCommand {
		if denied := d.authorize(conn, req, admin); denied != nil {
			return denied
		}
		return d.refresh(ctx, req, ingest.ScopeAll)
	}
	return success(req, fmt.Sprintf("candidates: %d", d.counts.Counts().Candidates))
}

func (d *Dispatcher) handleGetPledges(ctx context.Context, conn ConnInfo, req *wire.Envelope) *wire.Envelope {
	return success(req, fmt.Sprintf("pledges: %d", d.counts.Counts().Pledges))
}

func (d *Dispatcher) handleEvaluate(ctx context.Context, conn ConnInfo, req *wire.Envelope) *wire.Envelope {
	p, err := wire.ParseEvaluate(req.Data)
	if err != nil {
		return fail(req, err)
	}

	t := models.EvaluationType(p.Value)
	if _, err := d.eval.Vote(ctx, req.UserID, p.PledgeID, t); err != nil {
		return fail(req, err)
	}
	return success(req, fmt.Sprintf("%s %s", t.String(), p.PledgeID))
}

func (d *Dispatcher) handleCancel(ctx context.Context, conn ConnInfo, req *wire.Envelope) *wire.Envelope {
	id, err := wire.ParsePledgeRef(req.Data)
	if err != nil {
		return fail(req, err)
	}
	if _, err := d.eval.Cancel(ctx, req.UserID, id); err != nil {
		return fail(req, err)
	}
	return success(req, "cancelled "+id)
}

func (d *Dispatcher) handleUserEvaluation(ctx context.Context, conn ConnInfo, req *wire.Envelope) *wire.Envelope {
	id, err := wire.ParsePledgeRef(req.Data)
	if err != nil {
		return fail(req, err)
	}
	t := d.eval.Query(ctx, req.UserID, id)
	return success(req, strconv.Itoa(int(t)))
}

func (d *Dispatcher) handleStatistics(ctx context.Context, conn ConnInfo, req *wire.Envelope) *wire.Envelope {
	id, err := wire.ParsePledgeRef(req.Data)
	if err != nil {
		return fail(req, err)
	}
	st, err := d.eval.Statistics(ctx, id)
	if err != nil {
		return fail(req, err)
	}
	b, err := wire.MarshalStatistics(*st)
	if err != nil {
		return fail(req, err)
	}
	return success(req, string(b))
}

func (d *Dispatcher) refreshHandler(scope ingest.Scope) handlerFunc {
	return func(ctx context.Context, conn ConnInfo, req *wire.Envelope) *wire.Envelope {
		return d.refresh(ctx, req, scope)
	}
}

func (d *Dispatcher) refresh(ctx context.Context, req *wire.Envelope, scope ingest.Scope) *wire.Envelope {
	if d.refresher == nil {
		return failure(req, wire.StatusInternalError, "refresh is not configured")
	}

	res, err := d.refresher.Refresh(ctx, scope)
	d.metrics.Refresh(scope.String(), err)
	if err != nil {
		return failure(req, wire.StatusInternalError, "refresh failed")
	}

	return success(req, fmt.Sprintf("refreshed %s: elections=%d candidates=%d pledges=%d",
		scope.String(), res.Elections, res.Candidates, res.Pledges))
}
