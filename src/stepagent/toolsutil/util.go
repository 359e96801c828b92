// Package toolsutil holds helpers shared by the reference tools.
package toolsutil

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/elee1766/stepwise/src/shell"
)

// Package-level logger for tools
var logger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{
	Level: slog.LevelError, // Default to only showing errors
}))

// SetLogger allows setting a custom logger for the tools package
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l
	}
}

// GetLogger returns the package logger
func GetLogger() *slog.Logger {
	return logger
}

var (
	ErrInvalidParams       = errors.New("invalid parameters")
	ErrInterpreterRejected = errors.New("interpreter not allowed")
	ErrUnsafePath          = errors.New("unsafe path")
	ErrFileTooLarge        = errors.New("file too large")
)

// MaxFileSize bounds what the file tools hand back to the model.
const MaxFileSize = 1024 * 1024

// MaxTimeout caps any per-call timeout a model asks for.
const MaxTimeout = 10 * time.Minute

// Timeout converts a requested timeout in seconds, falling back to def when
// unset and capping at MaxTimeout.
func Timeout(seconds int, def time.Duration) time.Duration {
	if seconds <= 0 {
		return def
	}
	d := time.Duration(seconds) * time.Second
	if d > MaxTimeout {
		return MaxTimeout
	}
	return d
}

// ProcessReport renders a finished process for the model: stdout, then a
// stderr section when stderr is non-empty, then the exit status when it is
// non-zero.
func ProcessReport(res *shell.Result) string {
	var b strings.Builder
	b.WriteString(res.Stdout)
	if res.Stderr != "" {
		if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
			b.WriteByte('\n')
		}
		b.WriteString("stderr:\n")
		b.WriteString(res.Stderr)
	}
	if res.ExitCode != 0 {
		if b.Len() > 0 && !strings.HasSuffix(b.String(), "\n") {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "exit status %d", res.ExitCode)
	}
	return b.String()
}

// CombinedOutput joins stdout and stderr.
func CombinedOutput(res *shell.Result) string {
	if res.Stderr == "" {
		return res.Stdout
	}
	if res.Stdout == "" || strings.HasSuffix(res.Stdout, "\n") {
		return res.Stdout + res.Stderr
	}
	return res.Stdout + "\n" + res.Stderr
}

// FormatBytes formats byte count as human-readable string
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// system directories the file tools never read
var protectedDirs = []string{
	"/boot",
	"/dev",
	"/proc",
	"/sys",
	"/etc/shadow",
	"/etc/sudoers",
	"/root/.ssh",
}

// CheckPath rejects null bytes and protected system paths. resolved is the
// path after working directory resolution.
func CheckPath(resolved string) error {
	if strings.ContainsRune(resolved, 0) {
		return fmt.Errorf("%w: contains a null byte", ErrUnsafePath)
	}
	clean := filepath.ToSlash(filepath.Clean(resolved))
	for _, dir := range protectedDirs {
		if clean == dir || strings.HasPrefix(clean, dir+"/") {
			return fmt.Errorf("%w: %s", ErrUnsafePath, resolved)
		}
	}
	return nil
}

// ValidateFileSize checks if file size is within MaxFileSize
func ValidateFileSize(size int64) error {
	if size > MaxFileSize {
		return fmt.Errorf("%w: %s exceeds maximum %s", ErrFileTooLarge, FormatBytes(size), FormatBytes(MaxFileSize))
	}
	return nil
}

// IsTextFile checks if content appears to be text. Only the first 8KB are
// inspected.
func IsTextFile(content []byte) bool {
	sample := content
	if len(sample) > 8192 {
		sample = sample[:8192]
		// a multi-byte rune may be cut at the boundary
		for cut := 0; cut < utf8.UTFMax-1 && !utf8.Valid(sample); cut++ {
			sample = sample[:len(sample)-1]
		}
	}
	return bytes.IndexByte(sample, 0) < 0 && utf8.Valid(sample)
}
