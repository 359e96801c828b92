package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Manager owns the connections to the configured servers
type Manager struct {
	clientInfo Implementation
	logger     *slog.Logger

	mu      sync.Mutex
	clients []*Client
}

// NewManager creates a manager that introduces itself as clientInfo.
func NewManager(clientInfo Implementation, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{clientInfo: clientInfo, logger: logger.With("component", "mcp")}
}

// Start launches and initializes one server.
func (m *Manager) Start(ctx context.Context, config ServerConfig) (*Client, error) {
	transport, err := NewStdioTransport(config, m.logger)
	if err != nil {
		return nil, fmt.Errorf("mcp server %s: %w", config.Name, err)
	}
	return m.Connect(ctx, config.Name, transport, config)
}

// Connect initializes a server over an existing transport. The transport
// is closed when initialization fails.
func (m *Manager) Connect(ctx context.Context, name string, transport Transport, config ServerConfig) (*Client, error) {
	m.mu.Lock()
	for _, c := range m.clients {
		if c.Name() == name {
			m.mu.Unlock()
			_ = transport.Close()
			return nil, fmt.Errorf("mcp server %s is already connected", name)
		}
	}
	m.mu.Unlock()

	client := NewClient(name, transport, config.Timeout, m.logger)
	if _, err := client.Initialize(ctx, m.clientInfo); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("mcp server %s: failed to initialize: %w", name, err)
	}

	m.mu.Lock()
	m.clients = append(m.clients, client)
	m.mu.Unlock()
	return client, nil
}

// Tools lists the tools of every connected server in connection order.
func (m *Manager) Tools(ctx context.Context) ([]*RemoteTool, error) {
	m.mu.Lock()
	clients := append([]*Client(nil), m.clients...)
	m.mu.Unlock()

	var out []*RemoteTool
	for _, client := range clients {
		tools, err := client.ListTools(ctx)
		if err != nil {
			return nil, fmt.Errorf("mcp server %s: failed to list tools: %w", client.Name(), err)
		}
		for _, tool := range tools {
			rt, err := NewRemoteTool(client, tool)
			if err != nil {
				m.logger.Warn("skipping mcp tool", "server", client.Name(), "tool", tool.Name, "error", err)
				continue
			}
			out = append(out, rt)
		}
		m.logger.Debug("mcp tools listed", "server", client.Name(), "count", len(tools))
	}
	return out, nil
}

// Close closes all servers
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var errs []error
	for _, c := range m.clients {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close mcp server %s: %w", c.Name(), err))
		}
	}
	m.clients = nil
	return errors.Join(errs...)
}
