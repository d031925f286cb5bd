package cli

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrijs2005/pledgeboard/internal/client/config"
)

func TestGetStatus(t *testing.T) {
	a := &App{}
	assert.Empty(t, a.getStatus())

	a.userName = "alice"
	assert.Equal(t, "(alice)", a.getStatus())
}

func TestRoot_RunsUntilExit(t *testing.T) {
	silencePrintln(t)

	f := &fakeClient{}
	a, _ := newTestApp(f, "stats", "exit")
	a.config = &config.Config{ServerEndpointAddr: "127.0.0.1:8080"}

	a.Root(context.Background())
	assert.Empty(t, f.votes)
}
