// Package app wires the configured components of a run together.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/elee1766/stepwise/src/agent"
	"github.com/elee1766/stepwise/src/config"
	"github.com/elee1766/stepwise/src/executor"
	"github.com/elee1766/stepwise/src/mcp"
	"github.com/elee1766/stepwise/src/orchestrator"
	"github.com/elee1766/stepwise/src/orclient"
	"github.com/elee1766/stepwise/src/planner"
	"github.com/elee1766/stepwise/src/stepagent/tools"
	"github.com/elee1766/stepwise/src/storage"
	"github.com/spf13/afero"
)

// Version is reported to MCP servers. It is set at build time.
var Version = "dev"

// App holds every service a run needs
type App struct {
	Config   *config.Config
	Client   *orclient.Client
	Planner  *planner.Planner
	Executor *executor.Executor
	Toolbox  *agent.DefaultToolbox
	MCP      *mcp.Manager
	Journal  *storage.DB
	Logger   *slog.Logger
}

// New validates cfg and creates every service. The journal is an in-memory
// database and is gone when the App is closed.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	if err := config.Validate(cfg); err != nil {
		return nil, err
	}

	client, err := orclient.NewClient(ClientConfig(cfg, logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create model client: %w", err)
	}

	toolbox, err := NewToolbox(cfg, logger)
	if err != nil {
		return nil, err
	}

	servers, err := StartMCPServers(ctx, cfg, toolbox, logger)
	if err != nil {
		return nil, err
	}

	journal, err := storage.OpenMemory(ctx)
	if err != nil {
		_ = servers.Close()
		return nil, fmt.Errorf("failed to open run journal: %w", err)
	}

	return &App{
		Config: cfg,
		Client: client,
		Planner: planner.New(client, planner.Config{
			Temperature:     cfg.Planner.Temperature,
			MaxOutputTokens: cfg.Planner.MaxOutputTokens,
			Logger:          logger,
		}),
		Executor: executor.New(client, executor.Config{
			Temperature:     cfg.Executor.Temperature,
			MaxOutputTokens: cfg.Executor.MaxOutputTokens,
			Logger:          logger,
		}),
		Toolbox: toolbox,
		MCP:     servers,
		Journal: journal,
		Logger:  logger,
	}, nil
}

// ClientConfig maps the api section to the chat client config.
func ClientConfig(cfg *config.Config, logger *slog.Logger) orclient.Config {
	return orclient.Config{
		APIKey:     cfg.API.APIKey,
		BaseURL:    cfg.API.BaseURL,
		Model:      cfg.API.Model,
		Logger:     logger,
		Timeout:    cfg.API.Timeout(),
		RetryCount: cfg.API.RetryCount,
		RetryDelay: cfg.API.RetryDelay(),
		SiteURL:    cfg.API.SiteURL,
		SiteName:   cfg.API.SiteName,
	}
}

// NewToolbox builds the enabled tools. It needs no model client, so the
// tools commands can use it without API settings.
func NewToolbox(cfg *config.Config, logger *slog.Logger) (*agent.DefaultToolbox, error) {
	toolbox, err := tools.NewToolbox(tools.Config{
		Enabled:           cfg.Tools.Enabled,
		ScriptInterpreter: cfg.Tools.ScriptInterpreter,
		Timeout:           cfg.Tools.Timeout(),
		WorkingDir:        cfg.Tools.WorkingDir,
	}, afero.NewOsFs(), logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create toolbox: %w", err)
	}
	return toolbox, nil
}

// StartMCPServers launches the configured MCP servers and registers their
// tools in toolbox after the built-in ones. The returned manager must be
// closed to stop the servers.
func StartMCPServers(ctx context.Context, cfg *config.Config, toolbox *agent.DefaultToolbox, logger *slog.Logger) (*mcp.Manager, error) {
	m := mcp.NewManager(mcp.Implementation{Name: "stepwise", Version: Version}, logger)
	if len(cfg.Tools.MCPServers) == 0 {
		return m, nil
	}

	fail := func(err error) (*mcp.Manager, error) {
		_ = m.Close()
		return nil, err
	}
	for _, srv := range cfg.Tools.MCPServers {
		_, err := m.Start(ctx, mcp.ServerConfig{
			Name:       srv.Name,
			Command:    srv.Command,
			Args:       srv.Args,
			Env:        srv.Env,
			WorkingDir: srv.WorkingDir,
			Timeout:    srv.Timeout(),
		})
		if err != nil {
			return fail(err)
		}
	}

	remote, err := m.Tools(ctx)
	if err != nil {
		return fail(err)
	}
	for _, tool := range remote {
		if err := toolbox.RegisterTool(tool); err != nil {
			return fail(fmt.Errorf("failed to register mcp tool: %w", err))
		}
	}
	logger.Info("mcp tools registered", "servers", len(cfg.Tools.MCPServers), "tools", len(remote))
	return m, nil
}

// NewOrchestrator creates an orchestrator over the app's services that
// reports to sink.
func (a *App) NewOrchestrator(sink orchestrator.EventSink) *orchestrator.Orchestrator {
	return orchestrator.New(orchestrator.Config{
		MaxSteps:            a.Config.Planner.MaxSteps,
		MaxToolTurns:        a.Config.Executor.MaxToolTurns,
		ContinueOnTurnLimit: a.Config.Run.ContinueOnTurnLimit,
		Model:               a.Client.ModelName(),
		Logger:              a.Logger,
	}, a.Planner, a.Executor, a.Toolbox, sink, a.Journal)
}

// Close closes all resources held by the app
func (a *App) Close() error {
	var errs []error
	if a.MCP != nil {
		errs = append(errs, a.MCP.Close())
	}
	if a.Journal != nil {
		errs = append(errs, a.Journal.Close())
	}
	return errors.Join(errs...)
}
