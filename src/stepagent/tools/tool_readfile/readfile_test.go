package tool_readfile

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/elee1766/stepwise/src/agent"
	"github.com/elee1766/stepwise/src/fs"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*agent.DefaultToolbox, afero.Fs) {
	t.Helper()
	base := afero.NewMemMapFs()
	work := filepath.FromSlash("/work")
	require.NoError(t, base.MkdirAll(work, 0o755))

	tool, err := Tool(fs.NewContextualFs(base, work))
	require.NoError(t, err)
	tb := agent.NewToolbox[agent.Tool]()
	require.NoError(t, tb.RegisterTool(tool))
	return tb, base
}

func dispatch(t *testing.T, tb *agent.DefaultToolbox, input ReadFileInput) string {
	t.Helper()
	args, err := json.Marshal(input)
	require.NoError(t, err)
	return tb.Dispatch(context.Background(), Name, args)
}

func TestReadFileTool(t *testing.T) {
	tb, base := setup(t)
	require.NoError(t, afero.WriteFile(base, filepath.FromSlash("/work/notes.txt"), []byte("one\ntwo\nthree\n"), 0o644))
	require.NoError(t, afero.WriteFile(base, filepath.FromSlash("/work/blob.bin"), []byte{0x00, 0x01, 0x02}, 0o644))
	require.NoError(t, afero.WriteFile(base, filepath.FromSlash("/work/empty.txt"), nil, 0o644))

	tests := []struct {
		name  string
		input ReadFileInput
		want  string
	}{
		{"relative path", ReadFileInput{Path: "notes.txt"}, "one\ntwo\nthree\n"},
		{"absolute path", ReadFileInput{Path: filepath.FromSlash("/work/notes.txt")}, "one\ntwo\nthree\n"},
		{"line numbers", ReadFileInput{Path: "notes.txt", LineNumbers: true}, "1: one\n2: two\n3: three\n"},
		{"window", ReadFileInput{Path: "notes.txt", Offset: 2, Limit: 1, LineNumbers: true}, "2: two\n"},
		{"offset past end", ReadFileInput{Path: "notes.txt", Offset: 10}, ""},
		{"empty file", ReadFileInput{Path: "empty.txt"}, ""},
		{"missing file", ReadFileInput{Path: "nope.txt"}, "Error: read_file returned error: file not found: nope.txt"},
		{"binary file", ReadFileInput{Path: "blob.bin"}, "Error: read_file returned error: blob.bin is not a text file"},
		{"directory", ReadFileInput{Path: "."}, "Error: read_file returned error: . is a directory"},
		{"missing path", ReadFileInput{}, "Error: read_file returned error: validation failed: field 'ReadFileInput.Path' failed on 'required'"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, dispatch(t, tb, tt.input))
		})
	}
}

func TestReadFileRejectsProtectedPaths(t *testing.T) {
	tb, _ := setup(t)
	out := dispatch(t, tb, ReadFileInput{Path: "/proc/self/environ"})
	assert.True(t, strings.HasPrefix(out, "Error: read_file returned error: unsafe path"), out)
}

func TestReadFileCutsLongLines(t *testing.T) {
	tb, base := setup(t)
	require.NoError(t, afero.WriteFile(base, filepath.FromSlash("/work/long.txt"), []byte(strings.Repeat("x", 3000)), 0o644))

	out := dispatch(t, tb, ReadFileInput{Path: "long.txt"})
	assert.Equal(t, strings.Repeat("x", maxLineLength)+"\n", out)
}
