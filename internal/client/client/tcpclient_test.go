package client

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/pledgeboard/internal/wire"
)

// fakeServer answers every envelope with reply(req). A nil reply leaves
// the request unanswered.
type fakeServer struct {
	ln    net.Listener
	reply func(*wire.Envelope) *wire.Envelope

	mu   sync.Mutex
	reqs []*wire.Envelope
}

func newFakeServer(t *testing.T, reply func(*wire.Envelope) *wire.Envelope) *fakeServer {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s := &fakeServer{ln: ln, reply: reply}
	t.Cleanup(func() { ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go s.serve(conn)
		}
	}()
	return s
}

func (s *fakeServer) serve(conn net.Conn) {
	defer conn.Close()
	for {
		req, err := wire.ReadEnvelope(conn)
		if err != nil {
			return
		}
		s.mu.Lock()
		s.reqs = append(s.reqs, req)
		s.mu.Unlock()

		resp := s.reply(req)
		if resp == nil {
			continue
		}
		if err := wire.WriteEnvelope(conn, resp); err != nil {
			return
		}
	}
}

func (s *fakeServer) last() *wire.Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reqs[len(s.reqs)-1]
}

func ok(data string) *wire.Envelope {
	return &wire.Envelope{Type: wire.Success, Status: wire.StatusOK, Data: []byte(data)}
}

func connect(t *testing.T, s *fakeServer, statsTimeout time.Duration) *TCPClient {
	t.Helper()
	c, err := NewPledgeClient(context.Background(), s.ln.Addr().String(), statsTimeout)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func loginReply(req *wire.Envelope) *wire.Envelope {
	if req.Type == wire.LoginRequest {
		p, _ := wire.ParseLogin(req.Data)
		if p.IsRegister() {
			return ok("registered")
		}
		return &wire.Envelope{Type: wire.LoginResponse, Status: wire.StatusOK, UserID: p.UserID, SessionID: "sess_abc"}
	}
	return ok("fine")
}

func TestTCPClient_LoginAttachesSession(t *testing.T) {
	s := newFakeServer(t, loginReply)
	c := connect(t, s, 0)
	ctx := context.Background()

	assert.ErrorIs(t, c.Vote(ctx, "p1", 1), ErrNotLoggedIn)

	require.NoError(t, c.Register(ctx, "alice", "pw1234"))
	p, err := wire.ParseLogin(s.last().Data)
	require.NoError(t, err)
	assert.True(t, p.IsRegister())

	require.NoError(t, c.Login(ctx, "alice", "pw1234"))
	assert.Equal(t, "alice", c.UserID())

	require.NoError(t, c.Vote(ctx, "p1", -1))
	req := s.last()
	assert.Equal(t, wire.EvaluatePledge, req.Type)
	assert.Equal(t, "alice", req.UserID)
	assert.Equal(t, "sess_abc", req.SessionID)
	assert.Equal(t, "p1|-1", req.Text())

	require.NoError(t, c.Cancel(ctx, "p1"))
	assert.Equal(t, wire.CancelEvaluation, s.last().Type)

	require.NoError(t, c.Logout(ctx))
	assert.Equal(t, wire.LogoutRequest, s.last().Type)
	assert.Empty(t, c.UserID())
	assert.ErrorIs(t, c.Cancel(ctx, "p1"), ErrNotLoggedIn)
}

func TestTCPClient_StatusErrors(t *testing.T) {
	s := newFakeServer(t, func(req *wire.Envelope) *wire.Envelope {
		switch req.Type {
		case wire.LoginRequest:
			return &wire.Envelope{Type: wire.Error, Status: wire.StatusUnauthorized, Data: []byte("unauthorized")}
		default:
			return &wire.Envelope{Type: wire.Error, Status: wire.StatusNotFound, Data: []byte("pledge \"x\": not found")}
		}
	})
	c := connect(t, s, 0)
	ctx := context.Background()

	err := c.Login(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Empty(t, c.UserID())

	_, err = c.Statistics(ctx, "x")
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, wire.StatusNotFound, se.Status)
	assert.NotErrorIs(t, err, ErrUnauthorized)
}

func TestTCPClient_StatisticsAndQueries(t *testing.T) {
	s := newFakeServer(t, func(req *wire.Envelope) *wire.Envelope {
		switch req.Type {
		case wire.GetStatistics:
			b, _ := wire.MarshalStatistics(wire.Statistics{PledgeID: req.Text(), LikeCount: 3, DislikeCount: 1, TotalVotes: 4, ApprovalRate: 75})
			return ok(string(b))
		case wire.GetUserEvaluation:
			return ok("-1")
		case wire.GetElections:
			return ok("elections: 2")
		case wire.GetCandidates:
			return ok("candidates: 5")
		case wire.GetPledges:
			return ok("pledges: 9")
		case wire.RefreshPledges:
			return ok("refreshed pledges")
		}
		return loginReply(req)
	})
	c := connect(t, s, time.Second)
	ctx := context.Background()

	st, err := c.Statistics(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "p1", st.PledgeID)
	assert.Equal(t, 3, st.LikeCount)
	assert.Equal(t, wire.Rate(75), st.ApprovalRate)

	counts, err := c.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, &Counts{Elections: "elections: 2", Candidates: "candidates: 5", Pledges: "pledges: 9"}, counts)

	require.NoError(t, c.Login(ctx, "admin", "admin"))
	v, err := c.MyEvaluation(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, -1, v)

	msg, err := c.Refresh(ctx, RefreshPledges)
	require.NoError(t, err)
	assert.Equal(t, "refreshed pledges", msg)

	_, err = c.Refresh(ctx, RefreshTarget("everything"))
	assert.Error(t, err)
}

func TestTCPClient_StatisticsBoundedWait(t *testing.T) {
	s := newFakeServer(t, func(req *wire.Envelope) *wire.Envelope {
		if req.Type == wire.GetStatistics {
			return nil
		}
		return ok("elections: 0")
	})
	c := connect(t, s, 100*time.Millisecond)

	start := time.Now()
	_, err := c.Statistics(context.Background(), "p1")
	assert.ErrorIs(t, err, ErrTimeout)
	assert.NotErrorIs(t, err, ErrUnavailable)
	assert.Less(t, time.Since(start), 2*time.Second)

	// the answer never comes, so the next request reconnects
	counts, err := c.Counts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "elections: 0", counts.Elections)
}

func TestTCPClient_SlowStatisticsKeepSession(t *testing.T) {
	release := make(chan struct{})
	s := newFakeServer(t, func(req *wire.Envelope) *wire.Envelope {
		switch req.Type {
		case wire.GetStatistics:
			<-release
			b, _ := wire.MarshalStatistics(wire.Statistics{PledgeID: req.Text(), TotalVotes: 1})
			return ok(string(b))
		case wire.GetUserEvaluation:
			return ok("1")
		}
		return loginReply(req)
	})
	c := connect(t, s, 100*time.Millisecond)
	ctx := context.Background()
	require.NoError(t, c.Login(ctx, "alice", "pw1234"))

	_, err := c.Statistics(ctx, "p1")
	require.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, "alice", c.UserID())

	// the late statistics answer is skipped, not taken for this response
	close(release)
	v, err := c.MyEvaluation(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, 1, v)
	assert.Equal(t, "alice", c.UserID())
	assert.Equal(t, "sess_abc", s.last().SessionID)
}

func TestNewPledgeClient_Unavailable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	_, err = NewPledgeClient(context.Background(), addr, 0)
	assert.ErrorIs(t, err, ErrUnavailable)
}
