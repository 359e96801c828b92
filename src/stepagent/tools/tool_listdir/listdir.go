package tool_listdir

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/elee1766/stepwise/src/agent"
	"github.com/elee1766/stepwise/src/fs"
	"github.com/elee1766/stepwise/src/stepagent/toolsutil"
	"github.com/spf13/afero"
)

// Tool name constant
const Name = "list_dir"

// maxEntries bounds a recursive listing.
const maxEntries = 1000

const listDirPrompt = `Lists files and directories in a given path. The path can be absolute or relative to the working directory.

Each line is one entry: directories end with "/", files are followed by their size.
Set recursive to true to walk subdirectories; at most 1000 entries are returned.`

// ListDirInput represents the input for listing a directory
type ListDirInput struct {
	Path      string `json:"path,omitempty" description:"The directory to list (default: the working directory)"`
	Recursive bool   `json:"recursive,omitempty" description:"Whether to list recursively"`
}

// Tool returns the list_dir tool definition using GenericTool
func Tool(fsys *fs.ContextualFs) (agent.Tool, error) {
	return agent.NewGenericTool(Name, listDirPrompt, makeListDirHandler(fsys), agent.WithStrict())
}

func makeListDirHandler(fsys *fs.ContextualFs) agent.GenericToolHandler[ListDirInput] {
	return func(ctx context.Context, input ListDirInput) (string, error) {
		logger := toolsutil.GetLogger()

		root := fsys.Resolve(input.Path)
		if err := toolsutil.CheckPath(root); err != nil {
			logger.Warn("unsafe path rejected", "path", root)
			return "", err
		}

		info, err := fsys.Stat(input.Path)
		if err != nil {
			return "", fmt.Errorf("directory not found: %s", displayPath(input.Path))
		}
		if !info.IsDir() {
			return "", fmt.Errorf("%s is not a directory", displayPath(input.Path))
		}

		var (
			b         strings.Builder
			count     int
			truncated bool
		)
		if input.Recursive {
			// walk the resolved root on the underlying fs so paths come back
			// relative to it
			err = afero.Walk(fsys.Fs, root, func(path string, info os.FileInfo, err error) error {
				if err != nil {
					return nil
				}
				if ctxErr := ctx.Err(); ctxErr != nil {
					return ctxErr
				}
				if path == root {
					return nil
				}
				if count == maxEntries {
					truncated = true
					return filepath.SkipAll
				}
				rel, relErr := filepath.Rel(root, path)
				if relErr != nil {
					rel = path
				}
				writeEntry(&b, filepath.ToSlash(rel), info)
				count++
				return nil
			})
			if err != nil && !errors.Is(err, filepath.SkipAll) {
				return "", fmt.Errorf("failed to walk directory: %w", err)
			}
		} else {
			entries, err := afero.ReadDir(fsys, input.Path)
			if err != nil {
				return "", fmt.Errorf("failed to read directory: %w", err)
			}
			for _, entry := range entries {
				writeEntry(&b, entry.Name(), entry)
				count++
			}
		}

		if count == 0 {
			return "(empty directory)\n", nil
		}
		if truncated {
			fmt.Fprintf(&b, "(listing cut at %d entries)\n", maxEntries)
		}
		logger.Debug("directory listed", "path", root, "count", count)
		return b.String(), nil
	}
}

func writeEntry(b *strings.Builder, name string, info os.FileInfo) {
	if info.IsDir() {
		fmt.Fprintf(b, "%s/\n", name)
		return
	}
	fmt.Fprintf(b, "%s (%s)\n", name, toolsutil.FormatBytes(info.Size()))
}

func displayPath(p string) string {
	if p == "" {
		return "."
	}
	return p
}
