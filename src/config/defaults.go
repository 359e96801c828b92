package config

import "github.com/elee1766/stepwise/src/stepagent/tools"

const (
	DefaultBaseURL = "https://openrouter.ai/api/v1"
	DefaultModel   = "openai/gpt-4o-mini"
)

// DefaultConfig returns the configuration used before any file, environment
// variable or flag is applied
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:        DefaultBaseURL,
			Model:          DefaultModel,
			TimeoutSeconds: 120,
			RetryCount:     3,
			RetryDelayMs:   1000,
		},
		Planner: PlannerConfig{
			MaxSteps:        50,
			Temperature:     0,
			MaxOutputTokens: 300,
		},
		Executor: ExecutorConfig{
			Temperature:     0,
			MaxOutputTokens: 150,
			MaxToolTurns:    8,
		},
		Tools: ToolsConfig{
			Enabled:           append([]string(nil), tools.DefaultEnabled...),
			ScriptInterpreter: "python3",
			TimeoutSeconds:    30,
		},
		Run: RunConfig{
			ShowToolArguments: true,
			MaxResultPreview:  200,
		},
		Log: LogConfig{
			Level: "warn",
		},
	}
}
