package mcp

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"sync"
	"sync/atomic"
	"time"
)

// ErrTransportClosed is returned by Send and Receive after Close.
var ErrTransportClosed = errors.New("transport is closed")

// maxMessageSize bounds a single newline-delimited message.
const maxMessageSize = 4 * 1024 * 1024

// StreamTransport exchanges newline-delimited JSON-RPC messages over a
// reader and a writer.
type StreamTransport struct {
	r       io.ReadCloser
	w       io.WriteCloser
	scanner *bufio.Scanner
	encoder *json.Encoder
	logger  *slog.Logger

	mu     sync.Mutex
	closed atomic.Bool
}

// NewStreamTransport reads messages from r and writes them to w. Close
// closes both.
func NewStreamTransport(r io.ReadCloser, w io.WriteCloser, logger *slog.Logger) *StreamTransport {
	if logger == nil {
		logger = slog.Default()
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxMessageSize)
	return &StreamTransport{
		r:       r,
		w:       w,
		scanner: scanner,
		encoder: json.NewEncoder(w),
		logger:  logger,
	}
}

// Send sends a message
func (t *StreamTransport) Send(ctx context.Context, message *Message) error {
	if t.closed.Load() {
		return ErrTransportClosed
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	message.Jsonrpc = "2.0"
	if err := t.encoder.Encode(message); err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}
	t.logger.Debug("mcp message sent", "method", message.Method, "id", string(message.ID))
	return nil
}

// Receive receives a message. Only one goroutine may call it at a time.
func (t *StreamTransport) Receive() (*Message, error) {
	for t.scanner.Scan() {
		line := t.scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var msg Message
		if err := json.Unmarshal(line, &msg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal message: %w", err)
		}
		return &msg, nil
	}
	if t.closed.Load() {
		return nil, ErrTransportClosed
	}
	if err := t.scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanner error: %w", err)
	}
	return nil, io.EOF
}

// Close closes the transport
func (t *StreamTransport) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	return errors.Join(t.w.Close(), t.r.Close())
}

// StdioTransport runs a server process and talks to it over its stdin and
// stdout. Stderr goes to the debug log.
type StdioTransport struct {
	*StreamTransport
	cmd *exec.Cmd
}

// NewStdioTransport starts the server process
func NewStdioTransport(config ServerConfig, logger *slog.Logger) (*StdioTransport, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("mcp_server", config.Name)

	cmd := exec.Command(config.Command, config.Args...)
	cmd.Env = os.Environ()
	for k, v := range config.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	if config.WorkingDir != "" {
		cmd.Dir = config.WorkingDir
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to get stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", config.Command, err)
	}

	go logStderr(stderr, logger)
	return &StdioTransport{
		StreamTransport: NewStreamTransport(stdout, stdin, logger),
		cmd:             cmd,
	}, nil
}

// Close closes the pipes, then interrupts the process and kills it if it
// has not exited within a second.
func (t *StdioTransport) Close() error {
	err := t.StreamTransport.Close()

	waited := make(chan struct{})
	go func() {
		_ = t.cmd.Wait()
		close(waited)
	}()

	select {
	case <-waited:
		return err
	case <-time.After(100 * time.Millisecond):
	}
	_ = t.cmd.Process.Signal(os.Interrupt)
	select {
	case <-waited:
	case <-time.After(time.Second):
		_ = t.cmd.Process.Kill()
		<-waited
	}
	return err
}

func logStderr(r io.Reader, logger *slog.Logger) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		logger.Debug("mcp server stderr", "line", scanner.Text())
	}
}
