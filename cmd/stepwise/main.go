package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/elee1766/stepwise/src/app"
	"github.com/elee1766/stepwise/src/config"
)

// CLI represents the main CLI structure
type CLI struct {
	Config   string `short:"c" type:"path" help:"Config file. Defaults to stepwise/config.{yaml,yml,json} in the XDG config directories."`
	APIKey   string `env:"STEPWISE_API_KEY" help:"API key for the language model service"`
	BaseURL  string `help:"Base URL of an OpenAI compatible API"`
	Model    string `short:"m" help:"Model to plan and execute with"`
	LogLevel string `help:"Log level (debug, info, warn, error)"`
	NoColor  bool   `help:"Disable colored output. Also disabled by NO_COLOR."`

	Version kong.VersionFlag `help:"Print version and exit"`

	Run       RunCmd    `cmd:"" help:"Plan a task and execute every step"`
	Plan      PlanCmd   `cmd:"" help:"Plan a task without executing it"`
	Tools     ToolsCmd  `cmd:"" help:"Inspect and run tools"`
	ConfigCmd ConfigCmd `cmd:"" name:"config" help:"Inspect configuration"`
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("stepwise"),
		kong.Description("Break a task into steps and execute them one at a time with tools"),
		kong.UsageOnError(),
		kong.Vars{"version": app.Version},
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	kctx.BindTo(ctx, (*context.Context)(nil))

	err := kctx.Run(&cli)
	stop()
	if err != nil {
		NewErrorHandler(createCLILogger(cli.LogLevel)).HandleError(err)
	}
}

// loadConfig loads the configuration and applies the global flags.
func (cli *CLI) loadConfig() (*config.Config, error) {
	cfg, _, err := cli.loadConfigFrom()
	return cfg, err
}

// loadConfigFrom is loadConfig that also returns the file used, empty when
// none was found.
func (cli *CLI) loadConfigFrom() (*config.Config, string, error) {
	cfg, path, err := config.NewLoader().Load(cli.Config)
	if err != nil {
		return nil, "", err
	}
	if cli.APIKey != "" {
		cfg.API.APIKey = cli.APIKey
	}
	if cli.BaseURL != "" {
		cfg.API.BaseURL = cli.BaseURL
	}
	if cli.Model != "" {
		cfg.API.Model = cli.Model
	}
	if cli.LogLevel != "" {
		cfg.Log.Level = cli.LogLevel
	}
	return cfg, path, nil
}

func (cli *CLI) color() bool {
	return !cli.NoColor && os.Getenv("NO_COLOR") == ""
}
