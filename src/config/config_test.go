package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Planner.MaxSteps != 50 {
		t.Errorf("Expected max steps 50, got %d", config.Planner.MaxSteps)
	}
	if config.Executor.MaxToolTurns != 8 {
		t.Errorf("Expected max tool turns 8, got %d", config.Executor.MaxToolTurns)
	}
	if config.Planner.MaxOutputTokens != 300 || config.Executor.MaxOutputTokens != 150 {
		t.Errorf("Unexpected output token caps %d/%d", config.Planner.MaxOutputTokens, config.Executor.MaxOutputTokens)
	}
	if err := Validate(config); err != nil {
		t.Errorf("Default config should validate: %v", err)
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
		field  string
	}{
		{name: "valid config", modify: func(c *Config) {}},
		{name: "missing base url", modify: func(c *Config) { c.API.BaseURL = "" }, field: "api.base_url"},
		{name: "base url not a url", modify: func(c *Config) { c.API.BaseURL = "localhost" }, field: "api.base_url"},
		{name: "missing model", modify: func(c *Config) { c.API.Model = "" }, field: "api.model"},
		{name: "zero turns", modify: func(c *Config) { c.Executor.MaxToolTurns = 0 }, field: "executor.max_tool_turns"},
		{name: "too many steps", modify: func(c *Config) { c.Planner.MaxSteps = 101 }, field: "planner.max_steps"},
		{name: "temperature", modify: func(c *Config) { c.Planner.Temperature = 3 }, field: "planner.temperature"},
		{name: "unknown tool", modify: func(c *Config) { c.Tools.Enabled = []string{"calculate", "rm_rf"} }, field: "tools.enabled[1]"},
		{name: "bad interpreter", modify: func(c *Config) { c.Tools.ScriptInterpreter = "ruby" }, field: "tools.script_interpreter"},
		{name: "log level", modify: func(c *Config) { c.Log.Level = "loud" }, field: "log.level"},
		{name: "log level any case", modify: func(c *Config) { c.Log.Level = "DEBUG" }},
		{name: "no tools", modify: func(c *Config) { c.Tools.Enabled = nil }},
		{name: "mcp server", modify: func(c *Config) {
			c.Tools.MCPServers = []MCPServerConfig{{Name: "files", Command: "mcp-files"}}
		}},
		{name: "mcp server without command", modify: func(c *Config) {
			c.Tools.MCPServers = []MCPServerConfig{{Name: "files"}}
		}, field: "tools.mcp_servers[0].command"},
		{name: "duplicate mcp servers", modify: func(c *Config) {
			c.Tools.MCPServers = []MCPServerConfig{{Name: "a", Command: "x"}, {Name: "a", Command: "y"}}
		}, field: "tools.mcp_servers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig()
			tt.modify(c)
			err := Validate(c)
			if tt.field == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrInvalidConfig)
			var verr ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func emptyEnv(string) string { return "" }

func newTestLoader(env map[string]string) *Loader {
	return &Loader{
		Getenv: func(k string) string { return env[k] },
		Search: func() (string, bool) { return "", false },
	}
}

func TestLoadYAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api:
  base_url: http://localhost:8080/v1
  model: llama3
executor:
  max_tool_turns: 4
tools:
  enabled: [calculate]
  mcp_servers:
    - name: files
      command: npx
      args: ["-y", "@modelcontextprotocol/server-filesystem", "/tmp"]
      timeout_seconds: 10
`), 0o644))

	config, used, err := newTestLoader(nil).Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, used)
	assert.Equal(t, "http://localhost:8080/v1", config.API.BaseURL)
	assert.Equal(t, "llama3", config.API.Model)
	assert.Equal(t, 4, config.Executor.MaxToolTurns)
	assert.Equal(t, []string{"calculate"}, config.Tools.Enabled)
	require.Len(t, config.Tools.MCPServers, 1)
	assert.Equal(t, "npx", config.Tools.MCPServers[0].Command)
	assert.Len(t, config.Tools.MCPServers[0].Args, 3)
	assert.Equal(t, 10*time.Second, config.Tools.MCPServers[0].Timeout())
	// untouched keys keep their defaults
	assert.Equal(t, 50, config.Planner.MaxSteps)
	assert.Equal(t, 3, config.API.RetryCount)
}

func TestLoadJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"planner":{"max_steps":5},"log":{"level":"debug"}}`), 0o644))

	config, _, err := newTestLoader(nil).Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, config.Planner.MaxSteps)
	assert.Equal(t, "debug", config.Log.Level)
}

func TestLoadRejectsUnknownKeys(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("api:\n  base_uri: x\n"), 0o644))
	jsonPath := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"planer":{}}`), 0o644))

	for _, path := range []string{yamlPath, jsonPath} {
		_, _, err := newTestLoader(nil).Load(path)
		assert.ErrorIs(t, err, ErrInvalidConfig, path)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, _, err := newTestLoader(nil).Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, ErrConfigNotFound)
}

func TestLoadSearchesWhenNoPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("api:\n  model: found\n"), 0o644))

	l := newTestLoader(nil)
	l.Search = func() (string, bool) { return path, true }
	config, used, err := l.Load("")
	require.NoError(t, err)
	assert.Equal(t, path, used)
	assert.Equal(t, "found", config.API.Model)
}

func TestEnvironmentOverrides(t *testing.T) {
	l := newTestLoader(map[string]string{
		"API_BASE":                        "http://fallback/v1",
		"API_KEY":                         "bare-key",
		"MODEL":                           "bare-model",
		"STEPWISE_MODEL":                  "prefixed-model",
		"STEPWISE_MAX_STEPS":              "7",
		"STEPWISE_TOOLS":                  "calculate, run_command",
		"STEPWISE_CONTINUE_ON_TURN_LIMIT": "true",
	})

	config, _, err := l.Load("")
	require.NoError(t, err)
	assert.Equal(t, "http://fallback/v1", config.API.BaseURL)
	assert.Equal(t, "bare-key", config.API.APIKey)
	// the prefixed variable wins
	assert.Equal(t, "prefixed-model", config.API.Model)
	assert.Equal(t, 7, config.Planner.MaxSteps)
	assert.Equal(t, []string{"calculate", "run_command"}, config.Tools.Enabled)
	assert.True(t, config.Run.ContinueOnTurnLimit)
}

func TestEnvironmentOverrideBadInteger(t *testing.T) {
	_, _, err := newTestLoader(map[string]string{"STEPWISE_MAX_TOOL_TURNS": "many"}).Load("")
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestDotenv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("STEPWISE_TEST_DOTENV_MODEL=from-dotenv\n"), 0o644))
	t.Cleanup(func() { os.Unsetenv("STEPWISE_TEST_DOTENV_MODEL") })

	l := &Loader{DotenvPaths: []string{path, filepath.Join(t.TempDir(), "missing.env")}, Getenv: emptyEnv}
	_, _, err := l.Load("")
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", os.Getenv("STEPWISE_TEST_DOTENV_MODEL"))
}

func TestRedactedAndMarshal(t *testing.T) {
	config := DefaultConfig()
	config.API.APIKey = "secret"
	config.Tools.MCPServers = []MCPServerConfig{{Name: "gh", Command: "gh-mcp", Env: map[string]string{"GITHUB_TOKEN": "ghp_secret"}}}

	redacted := config.Redacted()
	assert.Equal(t, "****", redacted.API.APIKey)
	assert.Equal(t, "secret", config.API.APIKey)
	assert.Equal(t, "****", redacted.Tools.MCPServers[0].Env["GITHUB_TOKEN"])
	assert.Equal(t, "ghp_secret", config.Tools.MCPServers[0].Env["GITHUB_TOKEN"])

	out, err := Marshal(redacted, "yaml")
	require.NoError(t, err)
	assert.Contains(t, string(out), "api_key: '****'")
	assert.NotContains(t, string(out), "secret")
	assert.Contains(t, string(out), "GITHUB_TOKEN")

	out, err = Marshal(redacted, "json")
	require.NoError(t, err)
	assert.Contains(t, string(out), `"max_tool_turns": 8`)
}
