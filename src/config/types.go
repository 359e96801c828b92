package config

import "time"

// Config is the complete stepwise configuration. It is loaded once and
// handed to constructors explicitly.
type Config struct {
	API      APIConfig      `json:"api" yaml:"api"`
	Planner  PlannerConfig  `json:"planner" yaml:"planner"`
	Executor ExecutorConfig `json:"executor" yaml:"executor"`
	Tools    ToolsConfig    `json:"tools" yaml:"tools"`
	Run      RunConfig      `json:"run" yaml:"run"`
	Log      LogConfig      `json:"log" yaml:"log"`
}

// APIConfig holds the language model service settings
type APIConfig struct {
	// BaseURL of an OpenAI compatible chat completions API
	BaseURL string `json:"base_url" yaml:"base_url" validate:"required,url"`

	// APIKey is sent as a bearer token. Some local servers accept none.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	Model string `json:"model" yaml:"model" validate:"required"`

	// TimeoutSeconds per HTTP attempt
	TimeoutSeconds int `json:"timeout_seconds" yaml:"timeout_seconds" validate:"min=1"`

	RetryCount   int `json:"retry_count" yaml:"retry_count" validate:"min=1,max=10"`
	RetryDelayMs int `json:"retry_delay_ms" yaml:"retry_delay_ms" validate:"min=0"`

	// SiteURL and SiteName are sent as OpenRouter ranking headers
	SiteURL  string `json:"site_url,omitempty" yaml:"site_url,omitempty" validate:"omitempty,url"`
	SiteName string `json:"site_name,omitempty" yaml:"site_name,omitempty"`
}

type PlannerConfig struct {
	MaxSteps        int     `json:"max_steps" yaml:"max_steps" validate:"min=1,max=100"`
	Temperature     float64 `json:"temperature" yaml:"temperature" validate:"min=0,max=2"`
	MaxOutputTokens int     `json:"max_output_tokens" yaml:"max_output_tokens" validate:"min=1"`
}

type ExecutorConfig struct {
	Temperature     float64 `json:"temperature" yaml:"temperature" validate:"min=0,max=2"`
	MaxOutputTokens int     `json:"max_output_tokens" yaml:"max_output_tokens" validate:"min=1"`
	MaxToolTurns    int     `json:"max_tool_turns" yaml:"max_tool_turns" validate:"min=1"`
}

type ToolsConfig struct {
	// Enabled lists the tools offered to the executor, in declaration order
	Enabled           []string `json:"enabled" yaml:"enabled" validate:"dive,tool_name"`
	ScriptInterpreter string   `json:"script_interpreter" yaml:"script_interpreter" validate:"oneof=sh bash python3 python node"`
	TimeoutSeconds    int      `json:"timeout_seconds" yaml:"timeout_seconds" validate:"min=1,max=600"`
	WorkingDir        string   `json:"working_dir,omitempty" yaml:"working_dir,omitempty"`

	// MCPServers are launched at startup; all of their tools are offered
	// alongside the enabled built-in tools
	MCPServers []MCPServerConfig `json:"mcp_servers,omitempty" yaml:"mcp_servers,omitempty" validate:"unique=Name,dive"`
}

// MCPServerConfig describes a Model Context Protocol server run over stdio
type MCPServerConfig struct {
	Name           string            `json:"name" yaml:"name" validate:"required,max=32"`
	Command        string            `json:"command" yaml:"command" validate:"required"`
	Args           []string          `json:"args,omitempty" yaml:"args,omitempty"`
	Env            map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
	WorkingDir     string            `json:"working_dir,omitempty" yaml:"working_dir,omitempty"`
	TimeoutSeconds int               `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty" validate:"min=0,max=600"`
}

type RunConfig struct {
	// ContinueOnTurnLimit moves on to the next step when a step runs out of
	// tool turns instead of failing the run
	ContinueOnTurnLimit bool `json:"continue_on_turn_limit" yaml:"continue_on_turn_limit"`
	ShowToolArguments   bool `json:"show_tool_arguments" yaml:"show_tool_arguments"`
	// MaxResultPreview cuts tool output in the trace, negative disables it
	MaxResultPreview int `json:"max_result_preview" yaml:"max_result_preview"`
}

type LogConfig struct {
	Level string `json:"level" yaml:"level" validate:"log_level"`
}

func (c APIConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c APIConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMs) * time.Millisecond
}

func (c ToolsConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c MCPServerConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Redacted returns a copy safe to print.
func (c Config) Redacted() Config {
	if c.API.APIKey != "" {
		c.API.APIKey = "****"
	}
	c.Tools.Enabled = append([]string(nil), c.Tools.Enabled...)
	// server env often carries tokens
	servers := make([]MCPServerConfig, len(c.Tools.MCPServers))
	for i, srv := range c.Tools.MCPServers {
		if len(srv.Env) > 0 {
			env := make(map[string]string, len(srv.Env))
			for k := range srv.Env {
				env[k] = "****"
			}
			srv.Env = env
		}
		servers[i] = srv
	}
	if c.Tools.MCPServers != nil {
		c.Tools.MCPServers = servers
	}
	return c
}
