package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, ":8080", c.EndpointAddr)
	assert.Equal(t, "data", c.DataDir)
	assert.Equal(t, StorageFile, c.Storage)
	assert.Equal(t, 10, c.MaxClients)
	assert.Equal(t, 5, c.MaxLoginAttempts)
	assert.Equal(t, time.Hour, c.SessionTimeout)
	assert.Empty(t, c.HealthAddr)
	assert.Empty(t, c.MetricsAddr)
	assert.Equal(t, "http://apis.data.go.kr/9760000", c.OpenDataURL)
	assert.Equal(t, 30*time.Second, c.OpenDataTimeout)
	assert.Equal(t, "info", c.LogLevel)
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"server"}

	c := LoadConfig()

	require.NotNil(t, c, "LoadConfig must not return nil")

	var want Config
	want.LoadDefaults()
	assert.Equal(t, &want, c)
}

func TestLoadConfig_Precedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	path := writeTempJSON(t, "", "", map[string]any{
		"endpoint_addr": "127.0.0.1:7000",
		"data_dir":      "from-json",
		"max_clients":   50,
	})
	os.Args = []string{"server", "-c", path, "-d", "from-flag", "9100"}

	c := LoadConfig()

	assert.Equal(t, "127.0.0.1:9100", c.EndpointAddr)
	assert.Equal(t, "from-flag", c.DataDir)
	assert.Equal(t, 50, c.MaxClients)
	assert.Equal(t, 5, c.MaxLoginAttempts)
}
