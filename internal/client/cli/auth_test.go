package cli

import (
	"bufio"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/pledgeboard/internal/common"
)

func stubInputs(t *testing.T, username string, password []byte) {
	t.Helper()
	origST, origGP := getSimpleText, getPassword
	getSimpleText = func(_ *bufio.Reader, _ string, _ io.Writer) (string, error) { return username, nil }
	getPassword = func(_ *bufio.Reader, _ io.Writer) ([]byte, error) { return append([]byte(nil), password...), nil }
	t.Cleanup(func() {
		getSimpleText = origST
		getPassword = origGP
	})
}

func TestRegister_Success(t *testing.T) {
	f := &fakeClient{}
	a, out := newTestApp(f)
	stubInputs(t, "alice", []byte("pw1234"))

	require.NoError(t, a.Register(context.Background()))
	assert.Equal(t, "alice", f.regUser)
	assert.Equal(t, "pw1234", f.regPass)
	assert.Contains(t, out.String(), "Success!")
	assert.False(t, a.isLoggedIn())
}

func TestRegister_ValidatesLocally(t *testing.T) {
	tests := []struct {
		name, user, pass string
	}{
		{"short id", "al", "pw1234"},
		{"symbols in id", "al!ce", "pw1234"},
		{"short password", "alice", "pw"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeClient{}
			a, _ := newTestApp(f)
			stubInputs(t, tt.user, []byte(tt.pass))

			err := a.Register(context.Background())
			assert.ErrorIs(t, err, common.ErrorValidation)
			assert.Empty(t, f.regUser, "server must not be called")
		})
	}
}

func TestLogin(t *testing.T) {
	f := &fakeClient{}
	a, _ := newTestApp(f)
	stubInputs(t, "alice", []byte("pw1234"))

	require.NoError(t, a.Login(context.Background()))
	assert.True(t, a.isLoggedIn())
	assert.Equal(t, "(alice)", a.getStatus())
	assert.Equal(t, "pw1234", f.loginPass)
}

func TestLogin_Failure(t *testing.T) {
	f := &fakeClient{loginErr: errors.New("unauthorized")}
	a, _ := newTestApp(f)
	stubInputs(t, "alice", []byte("wrong"))

	assert.Error(t, a.Login(context.Background()))
	assert.False(t, a.isLoggedIn())
	assert.Empty(t, a.getStatus())
}

func TestLogout(t *testing.T) {
	f := &fakeClient{}
	a, _ := newTestApp(f)
	a.userName = "alice"

	require.NoError(t, a.Logout(context.Background()))
	assert.True(t, f.logoutCalled)
	assert.False(t, a.isLoggedIn())
}

func TestLogout_ErrorStillClearsState(t *testing.T) {
	f := &fakeClient{logoutErr: errors.New("gone")}
	a, _ := newTestApp(f)
	a.userName = "alice"

	assert.Error(t, a.Logout(context.Background()))
	assert.False(t, a.isLoggedIn())
}
