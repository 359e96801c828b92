package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

// DefaultTimeout bounds a request when the server config sets none.
const DefaultTimeout = 30 * time.Second

var (
	ErrNotInitialized = errors.New("mcp client is not initialized")
	ErrClientClosed   = errors.New("mcp client is closed")
)

// Client is a connection to one server. Responses are matched to requests
// by a background receive loop.
type Client struct {
	name      string
	timeout   time.Duration
	transport Transport
	logger    *slog.Logger

	requestID atomic.Int64
	pendingMu sync.Mutex
	pending   map[string]chan *Message

	initialized  atomic.Bool
	capabilities ServerCapability
	serverInfo   *Implementation

	done    chan struct{}
	loopErr error
}

// NewClient starts the receive loop over transport.
func NewClient(name string, transport Transport, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		name:      name,
		timeout:   timeout,
		transport: transport,
		logger:    logger.With("mcp_server", name),
		pending:   make(map[string]chan *Message),
		done:      make(chan struct{}),
	}
	go c.receiveLoop()
	return c
}

// Name returns the configured server name
func (c *Client) Name() string { return c.name }

// ServerInfo returns what the server reported in initialize
func (c *Client) ServerInfo() *Implementation { return c.serverInfo }

func (c *Client) receiveLoop() {
	defer close(c.done)

	for {
		msg, err := c.transport.Receive()
		if err != nil {
			c.loopErr = err
			c.failPending()
			return
		}

		switch {
		case msg.Method != "" && len(msg.ID) > 0:
			// requests from the server are not supported. The reply is sent
			// off the loop so a server blocked on writing cannot stall it.
			go c.reply(msg.ID, &Error{Code: ErrorCodeMethodNotFound, Message: "method not found: " + msg.Method})
		case msg.Method != "":
			c.logger.Debug("mcp notification", "method", msg.Method)
		case len(msg.ID) > 0:
			c.pendingMu.Lock()
			ch, ok := c.pending[string(msg.ID)]
			delete(c.pending, string(msg.ID))
			c.pendingMu.Unlock()
			if ok {
				ch <- msg
			} else {
				c.logger.Warn("mcp response for unknown request", "id", string(msg.ID))
			}
		}
	}
}

// failPending wakes every waiting request after the transport died.
func (c *Client) failPending() {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
}

func (c *Client) reply(id json.RawMessage, rpcErr *Error) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	if err := c.transport.Send(ctx, &Message{ID: id, Error: rpcErr}); err != nil {
		c.logger.Warn("failed to reply to server request", "error", err)
	}
}

// call sends a request and decodes the result into out.
func (c *Client) call(ctx context.Context, method string, params, out any) error {
	select {
	case <-c.done:
		return ErrClientClosed
	default:
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	id := json.RawMessage(strconv.FormatInt(c.requestID.Add(1), 10))
	req := &Message{ID: id, Method: method}
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("failed to marshal params: %w", err)
		}
		req.Params = data
	}

	respCh := make(chan *Message, 1)
	c.pendingMu.Lock()
	c.pending[string(id)] = respCh
	c.pendingMu.Unlock()

	forget := func() {
		c.pendingMu.Lock()
		delete(c.pending, string(id))
		c.pendingMu.Unlock()
	}

	if err := c.transport.Send(ctx, req); err != nil {
		forget()
		return fmt.Errorf("failed to send %s: %w", method, err)
	}

	select {
	case <-ctx.Done():
		forget()
		return fmt.Errorf("%s: %w", method, ctx.Err())
	case resp, ok := <-respCh:
		if !ok {
			return fmt.Errorf("%s: %w", method, ErrClientClosed)
		}
		if resp.Error != nil {
			return resp.Error
		}
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(resp.Result, out); err != nil {
			return fmt.Errorf("failed to unmarshal %s result: %w", method, err)
		}
		return nil
	}
}

// Initialize performs the protocol handshake
func (c *Client) Initialize(ctx context.Context, clientInfo Implementation) (*InitializeResult, error) {
	var result InitializeResult
	err := c.call(ctx, MethodInitialize, &InitializeParams{
		ProtocolVersion: ProtocolVersion,
		ClientInfo:      &clientInfo,
	}, &result)
	if err != nil {
		return nil, err
	}

	c.capabilities = result.Capabilities
	c.serverInfo = result.ServerInfo

	if err := c.transport.Send(ctx, &Message{Method: MethodInitialized}); err != nil {
		return nil, fmt.Errorf("failed to send %s: %w", MethodInitialized, err)
	}
	c.initialized.Store(true)

	c.logger.Info("mcp server initialized", "protocol", result.ProtocolVersion, "server_info", result.ServerInfo)
	return &result, nil
}

// ListTools returns the server's tools, or none when it has no tools
// capability.
func (c *Client) ListTools(ctx context.Context) ([]Tool, error) {
	if !c.initialized.Load() {
		return nil, ErrNotInitialized
	}
	if c.capabilities.Tools == nil {
		return nil, nil
	}

	var tools []Tool
	var cursor string
	for {
		var params any
		if cursor != "" {
			params = map[string]string{"cursor": cursor}
		}
		var page struct {
			Tools      []Tool `json:"tools"`
			NextCursor string `json:"nextCursor,omitempty"`
		}
		if err := c.call(ctx, MethodListTools, params, &page); err != nil {
			return nil, err
		}
		tools = append(tools, page.Tools...)
		if page.NextCursor == "" {
			return tools, nil
		}
		cursor = page.NextCursor
	}
}

// CallTool executes a tool
func (c *Client) CallTool(ctx context.Context, name string, arguments json.RawMessage) (*CallToolResult, error) {
	if !c.initialized.Load() {
		return nil, ErrNotInitialized
	}

	var result CallToolResult
	if err := c.call(ctx, MethodCallTool, CallToolParams{Name: name, Arguments: arguments}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Close closes the transport and waits for the receive loop to stop
func (c *Client) Close() error {
	err := c.transport.Close()
	<-c.done
	return err
}
