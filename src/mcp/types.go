// Package mcp connects to Model Context Protocol servers over stdio and
// exposes their tools to the toolbox.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// ProtocolVersion is the revision sent in initialize.
const ProtocolVersion = "2024-11-05"

// Standard JSON-RPC error codes
const (
	ErrorCodeParse          = -32700
	ErrorCodeInvalidRequest = -32600
	ErrorCodeMethodNotFound = -32601
	ErrorCodeInvalidParams  = -32602
	ErrorCodeInternal       = -32603
)

// Request methods
const (
	MethodInitialize  = "initialize"
	MethodInitialized = "notifications/initialized"
	MethodListTools   = "tools/list"
	MethodCallTool    = "tools/call"
	MethodPing        = "ping"
)

// Message represents a JSON-RPC message. ID is kept raw since servers may
// use numbers or strings for their own requests.
type Message struct {
	Jsonrpc string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *Error          `json:"error,omitempty"`
}

// Error represents a JSON-RPC error
type Error struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *Error) Error() string {
	return fmt.Sprintf("server error %d: %s", e.Code, e.Message)
}

// InitializeParams for the initialize request
type InitializeParams struct {
	ProtocolVersion string           `json:"protocolVersion"`
	Capabilities    ClientCapability `json:"capabilities"`
	ClientInfo      *Implementation  `json:"clientInfo,omitempty"`
}

// InitializeResult from the initialize response
type InitializeResult struct {
	ProtocolVersion string           `json:"protocolVersion"`
	Capabilities    ServerCapability `json:"capabilities"`
	ServerInfo      *Implementation  `json:"serverInfo,omitempty"`
}

// ClientCapability describes client capabilities. The client only consumes
// tools, so it advertises nothing.
type ClientCapability struct {
	Experimental map[string]any `json:"experimental,omitempty"`
}

// ServerCapability describes server capabilities
type ServerCapability struct {
	Tools        *ToolsCapability `json:"tools,omitempty"`
	Experimental map[string]any   `json:"experimental,omitempty"`
}

type ToolsCapability struct {
	ListChanged bool `json:"listChanged,omitempty"`
}

// Implementation names a client or server
type Implementation struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Tool is a tool as listed by a server
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// CallToolParams for tool execution
type CallToolParams struct {
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments,omitempty"`
}

// CallToolResult from tool execution
type CallToolResult struct {
	Content []ContentItem `json:"content"`
	IsError bool          `json:"isError,omitempty"`
}

// ContentItem represents a piece of content
type ContentItem struct {
	Type     string `json:"type"`
	Text     string `json:"text,omitempty"`
	Data     string `json:"data,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
}

// Transport moves JSON-RPC messages to and from a server. Receive blocks
// until a message arrives or the transport is closed.
type Transport interface {
	Send(ctx context.Context, message *Message) error
	Receive() (*Message, error)
	Close() error
}

// ServerConfig describes how to launch a server
type ServerConfig struct {
	Name       string
	Command    string
	Args       []string
	Env        map[string]string
	WorkingDir string
	// Timeout bounds every request. Zero means DefaultTimeout.
	Timeout time.Duration
}
