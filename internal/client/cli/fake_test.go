package cli

import (
	"bufio"
	"bytes"
	"context"
	"strings"

	"github.com/dmitrijs2005/pledgeboard/internal/client/client"
	"github.com/dmitrijs2005/pledgeboard/internal/wire"
)

type fakeClient struct {
	// Register / Login
	regUser, regPass     string
	regErr               error
	loginUser, loginPass string
	loginErr             error
	logoutCalled         bool
	logoutErr            error

	// Vote / Cancel / MyEvaluation
	votes     []string
	voteErr   error
	cancelled []string
	cancelErr error
	my        int
	myErr     error

	// Statistics / Counts / Refresh
	stats      *wire.Statistics
	statsErr   error
	counts     *client.Counts
	countsErr  error
	refreshed  []client.RefreshTarget
	refreshErr error

	user string
}

func (f *fakeClient) Close() error { return nil }
func (f *fakeClient) Register(_ context.Context, user, pass string) error {
	f.regUser, f.regPass = user, pass
	return f.regErr
}
func (f *fakeClient) Login(_ context.Context, user, pass string) error {
	f.loginUser, f.loginPass = user, pass
	if f.loginErr == nil {
		f.user = user
	}
	return f.loginErr
}
func (f *fakeClient) Logout(context.Context) error {
	f.logoutCalled = true
	f.user = ""
	return f.logoutErr
}
func (f *fakeClient) UserID() string { return f.user }
func (f *fakeClient) Vote(_ context.Context, id string, v int) error {
	if f.voteErr != nil {
		return f.voteErr
	}
	f.votes = append(f.votes, string(wire.MarshalEvaluate(wire.EvaluatePayload{PledgeID: id, Value: v})))
	return nil
}
func (f *fakeClient) Cancel(_ context.Context, id string) error {
	f.cancelled = append(f.cancelled, id)
	return f.cancelErr
}
func (f *fakeClient) MyEvaluation(context.Context, string) (int, error) { return f.my, f.myErr }
func (f *fakeClient) Statistics(context.Context, string) (*wire.Statistics, error) {
	return f.stats, f.statsErr
}
func (f *fakeClient) Counts(context.Context) (*client.Counts, error) { return f.counts, f.countsErr }
func (f *fakeClient) Refresh(_ context.Context, target client.RefreshTarget) (string, error) {
	f.refreshed = append(f.refreshed, target)
	return "refreshed " + string(target), f.refreshErr
}

func newTestApp(fc *fakeClient, input ...string) (*App, *bytes.Buffer) {
	var out bytes.Buffer
	in := strings.Join(input, "\n")
	if in != "" {
		in += "\n"
	}
	return &App{client: fc, reader: bufio.NewReader(strings.NewReader(in)), out: &out}, &out
}
