package app

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/elee1766/stepwise/src/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

func TestNew(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.API.BaseURL = "http://localhost:1/v1"
	cfg.Tools.Enabled = []string{"calculate", "run_command"}

	a, err := New(context.Background(), cfg, discard)
	require.NoError(t, err)
	t.Cleanup(func() { a.Close() })

	assert.Equal(t, []string{"calculate", "run_command"}, a.Toolbox.Names())
	assert.Equal(t, config.DefaultModel, a.Client.ModelName())
	assert.NotNil(t, a.NewOrchestrator(nil))
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.API.Model = ""

	_, err := New(context.Background(), cfg, discard)
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestClientConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.API.TimeoutSeconds = 9
	cfg.API.RetryDelayMs = 250

	cc := ClientConfig(cfg, discard)
	assert.Equal(t, 9*time.Second, cc.Timeout)
	assert.Equal(t, 250*time.Millisecond, cc.RetryDelay)
	assert.Equal(t, 3, cc.RetryCount)
	assert.Equal(t, config.DefaultBaseURL, cc.BaseURL)
}

func TestStartMCPServersWithoutServers(t *testing.T) {
	cfg := config.DefaultConfig()
	toolbox, err := NewToolbox(cfg, discard)
	require.NoError(t, err)

	m, err := StartMCPServers(context.Background(), cfg, toolbox, discard)
	require.NoError(t, err)
	assert.NoError(t, m.Close())
	assert.Equal(t, []string{"calculate", "run_script", "run_command"}, toolbox.Names())
}

func TestNewFailsOnBrokenMCPServer(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Tools.MCPServers = []config.MCPServerConfig{{Name: "broken", Command: "stepwise-no-such-mcp-server"}}

	_, err := New(context.Background(), cfg, discard)
	assert.ErrorContains(t, err, "mcp server broken")
}
