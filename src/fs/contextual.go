// Package fs provides the filesystem view tools work through.
package fs

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
)

// ContextualFs is an afero.Fs that resolves relative paths against a working
// directory. Absolute paths pass through unchanged.
type ContextualFs struct {
	afero.Fs
	workingDir string
}

// NewContextualFs wraps baseFs. An empty workingDir leaves relative paths to
// the process working directory.
func NewContextualFs(baseFs afero.Fs, workingDir string) *ContextualFs {
	return &ContextualFs{
		Fs:         baseFs,
		workingDir: workingDir,
	}
}

// Resolve returns the path an operation on name would touch.
func (c *ContextualFs) Resolve(name string) string {
	if name == "" {
		if c.workingDir == "" {
			return "."
		}
		return c.workingDir
	}
	if filepath.IsAbs(name) || c.workingDir == "" {
		return filepath.Clean(name)
	}
	return filepath.Join(c.workingDir, name)
}

// WorkingDir returns the directory relative paths resolve against.
func (c *ContextualFs) WorkingDir() string {
	return c.workingDir
}

func (c *ContextualFs) Name() string { return "ContextualFs" }

func (c *ContextualFs) Open(name string) (afero.File, error) {
	return c.Fs.Open(c.Resolve(name))
}

func (c *ContextualFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	return c.Fs.OpenFile(c.Resolve(name), flag, perm)
}

func (c *ContextualFs) Create(name string) (afero.File, error) {
	return c.Fs.Create(c.Resolve(name))
}

func (c *ContextualFs) Stat(name string) (os.FileInfo, error) {
	return c.Fs.Stat(c.Resolve(name))
}

func (c *ContextualFs) Remove(name string) error {
	return c.Fs.Remove(c.Resolve(name))
}

func (c *ContextualFs) RemoveAll(path string) error {
	return c.Fs.RemoveAll(c.Resolve(path))
}

func (c *ContextualFs) Rename(oldname, newname string) error {
	return c.Fs.Rename(c.Resolve(oldname), c.Resolve(newname))
}

func (c *ContextualFs) Mkdir(name string, perm os.FileMode) error {
	return c.Fs.Mkdir(c.Resolve(name), perm)
}

func (c *ContextualFs) MkdirAll(path string, perm os.FileMode) error {
	return c.Fs.MkdirAll(c.Resolve(path), perm)
}

func (c *ContextualFs) Chmod(name string, mode os.FileMode) error {
	return c.Fs.Chmod(c.Resolve(name), mode)
}

func (c *ContextualFs) Chown(name string, uid, gid int) error {
	return c.Fs.Chown(c.Resolve(name), uid, gid)
}

func (c *ContextualFs) Chtimes(name string, atime, mtime time.Time) error {
	return c.Fs.Chtimes(c.Resolve(name), atime, mtime)
}
