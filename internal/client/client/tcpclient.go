package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"time"

	"github.com/dmitrijs2005/pledgeboard/internal/wire"
)

const (
	dialTimeout = 5 * time.Second
	// drainTimeout bounds the wait for late responses when no statistics
	// timeout is configured.
	drainTimeout = 5 * time.Second
)

var _ Client = (*TCPClient)(nil)

var refreshTypes = map[RefreshTarget]wire.MessageType{
	RefreshElections:  wire.RefreshElections,
	RefreshCandidates: wire.RefreshCandidates,
	RefreshPledges:    wire.RefreshPledges,
	RefreshAll:        wire.RefreshAll,
}

type TCPClient struct {
	endpointURL  string
	statsTimeout time.Duration

	mu     sync.Mutex
	conn   net.Conn
	userID string
	token  string
	// pending counts requests whose responses timed out and are still
	// due on conn.
	pending int
}

// NewPledgeClient connects to the server at endpointURL. statsTimeout
// bounds the wait for statistics responses; zero means no extra bound.
func NewPledgeClient(ctx context.Context, endpointURL string, statsTimeout time.Duration) (*TCPClient, error) {
	c := &TCPClient{endpointURL: endpointURL, statsTimeout: statsTimeout}
	if err := c.connect(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *TCPClient) connect(ctx context.Context) error {
	d := net.Dialer{Timeout: dialTimeout}
	conn, err := d.DialContext(ctx, "tcp", c.endpointURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	c.conn = conn
	c.pending = 0
	return nil
}

func (c *TCPClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// UserID is the logged in user, empty when logged out.
func (c *TCPClient) UserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID
}

func (c *TCPClient) Register(ctx context.Context, userID, password string) error {
	data := wire.MarshalLogin(wire.LoginPayload{UserID: userID, Password: password, Type: wire.RequestTypeRegister})
	_, err := c.do(ctx, &wire.Envelope{Type: wire.LoginRequest, UserID: userID, Data: data}, 0)
	return err
}

func (c *TCPClient) Login(ctx context.Context, userID, password string) error {
	data := wire.MarshalLogin(wire.LoginPayload{UserID: userID, Password: password})
	resp, err := c.do(ctx, &wire.Envelope{Type: wire.LoginRequest, UserID: userID, Data: data}, 0)
	if err != nil {
		return err
	}
	if resp.SessionID == "" {
		return fmt.Errorf("%w: login response carries no session", ErrUnauthorized)
	}

	c.mu.Lock()
	c.userID = userID
	c.token = resp.SessionID
	c.mu.Unlock()
	return nil
}

func (c *TCPClient) Logout(ctx context.Context) error {
	_, err := c.authed(ctx, wire.LogoutRequest, "", 0)
	if err != nil && !errors.Is(err, ErrUnauthorized) {
		return err
	}

	c.mu.Lock()
	c.userID, c.token = "", ""
	c.mu.Unlock()
	return err
}

func (c *TCPClient) Vote(ctx context.Context, pledgeID string, value int) error {
	data := wire.MarshalEvaluate(wire.EvaluatePayload{PledgeID: pledgeID, Value: value})
	_, err := c.authed(ctx, wire.EvaluatePledge, string(data), 0)
	return err
}

func (c *TCPClient) Cancel(ctx context.Context, pledgeID string) error {
	_, err := c.authed(ctx, wire.CancelEvaluation, pledgeID, 0)
	return err
}

func (c *TCPClient) MyEvaluation(ctx context.Context, pledgeID string) (int, error) {
	resp, err := c.authed(ctx, wire.GetUserEvaluation, pledgeID, 0)
	if err != nil {
		return 0, err
	}
	return wire.ParseUserEvaluation(resp.Data)
}

func (c *TCPClient) Statistics(ctx context.Context, pledgeID string) (*wire.Statistics, error) {
	resp, err := c.do(ctx, &wire.Envelope{Type: wire.GetStatistics, Data: []byte(pledgeID)}, c.statsTimeout)
	if err != nil {
		return nil, err
	}
	s, err := wire.ParseStatistics(resp.Data)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *TCPClient) Counts(ctx context.Context) (*Counts, error) {
	var out Counts
	for _, q := range []struct {
		t   wire.MessageType
		dst *string
	}{
		{wire.GetElections, &out.Elections},
		{wire.GetCandidates, &out.Candidates},
		{wire.GetPledges, &out.Pledges},
	} {
		resp, err := c.do(ctx, &wire.Envelope{Type: q.t}, 0)
		if err != nil {
			return nil, err
		}
		*q.dst = resp.Text()
	}
	return &out, nil
}

func (c *TCPClient) Refresh(ctx context.Context, target RefreshTarget) (string, error) {
	t, ok := refreshTypes[target]
	if !ok {
		return "", fmt.Errorf("unknown refresh target %q", target)
	}
	resp, err := c.authed(ctx, t, "", 0)
	if err != nil {
		return "", err
	}
	return resp.Text(), nil
}

func (c *TCPClient) authed(ctx context.Context, t wire.MessageType, data string, timeout time.Duration) (*wire.Envelope, error) {
	c.mu.Lock()
	userID, token := c.userID, c.token
	c.mu.Unlock()

	if token == "" {
		return nil, ErrNotLoggedIn
	}
	return c.do(ctx, &wire.Envelope{Type: t, UserID: userID, SessionID: token, Data: []byte(data)}, timeout)
}

// do sends req and waits for the response. A positive timeout bounds the
// wait further than ctx does. A response that times out before any of it
// arrived leaves the connection usable; it is skipped by the next request.
func (c *TCPClient) do(ctx context.Context, req *wire.Envelope, timeout time.Duration) (*wire.Envelope, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.conn != nil && c.pending > 0 {
		if err := c.drain(ctx); err != nil {
			c.drop()
		}
	}
	if c.conn == nil {
		if err := c.connect(ctx); err != nil {
			return nil, err
		}
	}

	deadline, ok := ctx.Deadline()
	if timeout > 0 {
		if d := time.Now().Add(timeout); !ok || d.Before(deadline) {
			deadline, ok = d, true
		}
	}
	if !ok {
		deadline = time.Time{}
	}
	if err := c.conn.SetDeadline(deadline); err != nil {
		return nil, c.broken(err)
	}

	if err := wire.WriteEnvelope(c.conn, req); err != nil {
		if errors.Is(err, wire.ErrFieldTooLong) {
			return nil, err
		}
		return nil, c.broken(err)
	}
	resp, late, err := c.readFrame()
	if late {
		c.pending++
		return nil, fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	if err != nil {
		return nil, c.broken(err)
	}

	if resp.Status != wire.StatusOK {
		return resp, &StatusError{Status: resp.Status, Message: resp.Text()}
	}
	return resp, nil
}

// readFrame reads one envelope. late reports a timeout that hit before
// the first byte, which keeps the stream aligned.
func (c *TCPClient) readFrame() (resp *wire.Envelope, late bool, err error) {
	buf := make([]byte, wire.EnvelopeSize)
	n, err := io.ReadFull(c.conn, buf)
	if err != nil {
		var ne net.Error
		if n == 0 && errors.As(err, &ne) && ne.Timeout() {
			return nil, true, err
		}
		return nil, false, err
	}
	resp, err = wire.Decode(buf)
	return resp, false, err
}

// drain discards the responses of timed out requests.
func (c *TCPClient) drain(ctx context.Context) error {
	wait := c.statsTimeout
	if wait <= 0 {
		wait = drainTimeout
	}
	deadline := time.Now().Add(wait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.conn.SetDeadline(deadline); err != nil {
		return err
	}

	for c.pending > 0 {
		if _, _, err := c.readFrame(); err != nil {
			return err
		}
		c.pending--
	}
	return nil
}

// broken drops a connection whose stream position is unknown and reports
// the server as unavailable.
func (c *TCPClient) broken(err error) error {
	c.drop()
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}

// drop closes the connection so the next request redials. The session does
// not survive the reconnect.
func (c *TCPClient) drop() {
	c.conn.Close()
	c.conn = nil
	c.pending = 0
	c.userID, c.token = "", ""
}
