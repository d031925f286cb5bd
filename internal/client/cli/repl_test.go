package cli

import (
	"bufio"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeExec struct {
	loggedIn bool

	calls []string
}

func (f *fakeExec) record(name string, args []string) error {
	f.calls = append(f.calls, strings.TrimSpace(name+" "+strings.Join(args, " ")))
	return nil
}

func (f *fakeExec) isLoggedIn() bool { return f.loggedIn }
func (f *fakeExec) Register(context.Context) error {
	return f.record("register", nil)
}
func (f *fakeExec) Login(context.Context) error {
	f.loggedIn = true
	return f.record("login", nil)
}
func (f *fakeExec) Logout(context.Context) error {
	f.loggedIn = false
	return f.record("logout", nil)
}
func (f *fakeExec) Vote(_ context.Context, args []string, v int) error {
	if v > 0 {
		return f.record("like", args)
	}
	return f.record("dislike", args)
}
func (f *fakeExec) Cancel(_ context.Context, args []string) error  { return f.record("cancel", args) }
func (f *fakeExec) My(_ context.Context, args []string) error      { return f.record("my", args) }
func (f *fakeExec) Stats(_ context.Context, args []string) error   { return f.record("stats", args) }
func (f *fakeExec) Counts(context.Context) error                   { return f.record("counts", nil) }
func (f *fakeExec) Refresh(_ context.Context, args []string) error { return f.record("refresh", args) }

func silencePrintln(t *testing.T) *[]string {
	t.Helper()
	var lines []string
	orig := printlnFn
	printlnFn = func(a ...any) (int, error) {
		parts := make([]string, len(a))
		for i, v := range a {
			parts[i] = v.(string)
		}
		lines = append(lines, strings.Join(parts, " "))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = orig })
	return &lines
}

func TestRunREPL_Commands(t *testing.T) {
	silencePrintln(t)

	input := strings.Join([]string{
		"help",
		"register",
		"login",
		"",
		"like p1",
		"dislike p1",
		"my p1",
		"cancel p1",
		"stats p1",
		"counts",
		"refresh pledges",
		"logout",
		"exit",
		"counts",
	}, "\n")

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "status" }, bufio.NewReader(strings.NewReader(input)))

	assert.Equal(t, []string{
		"register", "login", "like p1", "dislike p1", "my p1", "cancel p1",
		"stats p1", "counts", "refresh pledges", "logout",
	}, exec.calls)
}

func TestRunREPL_UnknownAndEOF(t *testing.T) {
	lines := silencePrintln(t)

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "" }, bufio.NewReader(strings.NewReader("foobar\nstats p9")))

	assert.Equal(t, []string{"stats p9"}, exec.calls)
	assert.Contains(t, *lines, "Unknown command: foobar")
}

func TestRunREPL_HelpDependsOnLogin(t *testing.T) {
	lines := silencePrintln(t)

	exec := &fakeExec{loggedIn: true}
	runREPL(context.Background(), exec, func() string { return "" }, bufio.NewReader(strings.NewReader("help\nquit\n")))

	assert.Contains(t, *lines, "Available commands: like, dislike, cancel, my, stats, counts, refresh, logout, exit")
	assert.Empty(t, exec.calls)
}
