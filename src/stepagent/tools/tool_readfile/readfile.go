package tool_readfile

import (
	"context"
	"fmt"
	"strings"

	"github.com/elee1766/stepwise/src/agent"
	"github.com/elee1766/stepwise/src/fs"
	"github.com/elee1766/stepwise/src/stepagent/toolsutil"
	"github.com/spf13/afero"
)

// Tool name constant
const Name = "read_file"

const (
	defaultLimit  = 2000
	maxLineLength = 2000
)

const readFilePrompt = `Reads a text file from the local filesystem.

Usage:
- path can be absolute or relative to the working directory
- By default up to 2000 lines are returned, starting at the first line
- offset (1-based) and limit select a range of lines
- line_numbers: true prefixes each line with its number ("12: content")
- Lines longer than 2000 characters are cut
- Binary files and files over 1MB are rejected`

// ReadFileInput represents the parameters for read_file
type ReadFileInput struct {
	Path        string `json:"path" required:"true" validate:"required" description:"The file path to read (absolute or relative to the working directory)"`
	Offset      int    `json:"offset,omitempty" validate:"omitempty,min=1" description:"First line to return, 1-based"`
	Limit       int    `json:"limit,omitempty" validate:"omitempty,min=1" description:"Maximum number of lines to return (default 2000)"`
	LineNumbers bool   `json:"line_numbers,omitempty" description:"Prefix lines with their number"`
}

// Tool returns the read_file tool definition using GenericTool
func Tool(fsys *fs.ContextualFs) (agent.Tool, error) {
	return agent.NewGenericTool(Name, readFilePrompt, makeReadFileHandler(fsys), agent.WithStrict())
}

func makeReadFileHandler(fsys *fs.ContextualFs) agent.GenericToolHandler[ReadFileInput] {
	return func(ctx context.Context, input ReadFileInput) (string, error) {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		logger := toolsutil.GetLogger()

		path := fsys.Resolve(input.Path)
		if err := toolsutil.CheckPath(path); err != nil {
			logger.Warn("unsafe path rejected", "path", path)
			return "", err
		}

		info, err := fsys.Stat(input.Path)
		if err != nil {
			return "", fmt.Errorf("file not found: %s", input.Path)
		}
		if info.IsDir() {
			return "", fmt.Errorf("%s is a directory", input.Path)
		}
		if err := toolsutil.ValidateFileSize(info.Size()); err != nil {
			return "", err
		}

		content, err := afero.ReadFile(fsys, input.Path)
		if err != nil {
			return "", fmt.Errorf("failed to read file: %w", err)
		}
		if !toolsutil.IsTextFile(content) {
			return "", fmt.Errorf("%s is not a text file", input.Path)
		}

		logger.Debug("file read", "path", path, "size", toolsutil.FormatBytes(int64(len(content))))
		return selectLines(string(content), input), nil
	}
}

// selectLines cuts the requested window out of content.
func selectLines(content string, input ReadFileInput) string {
	if content == "" {
		return ""
	}
	lines := strings.Split(strings.TrimSuffix(content, "\n"), "\n")

	start := max(input.Offset, 1) - 1
	if start >= len(lines) {
		return ""
	}
	limit := input.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	end := min(start+limit, len(lines))

	var b strings.Builder
	for i := start; i < end; i++ {
		line := lines[i]
		if len(line) > maxLineLength {
			line = line[:maxLineLength]
		}
		if input.LineNumbers {
			fmt.Fprintf(&b, "%d: ", i+1)
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}
