// Package scratch hands out per-request temporary files. Every path it
// returns comes with a cleanup func that the caller defers.
package scratch

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Dir is a directory that holds short-lived upload and export files.
type Dir struct {
	root string
}

// New returns a Dir rooted at root, creating it if needed. An empty root
// means the OS temp directory.
func New(root string) (*Dir, error) {
	if root == "" {
		root = os.TempDir()
	}
	if !filepath.IsAbs(root) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("scratch: getwd: %w", err)
		}
		root = filepath.Join(cwd, root)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("scratch: mkdir %s: %w", root, err)
	}
	return &Dir{root: root}, nil
}

// Path reserves a unique file path that keeps the extension of name. The file
// exists (empty) when Path returns; cleanup removes it and never fails.
func (d *Dir) Path(prefix, name string) (string, func(), error) {
	ext := strings.ToLower(filepath.Ext(name))
	f, err := os.CreateTemp(d.root, prefix+"-*"+ext)
	if err != nil {
		return "", func() {}, fmt.Errorf("scratch: create: %w", err)
	}
	path := f.Name()
	_ = f.Close()

	return path, func() { _ = os.Remove(path) }, nil
}

// Root returns the absolute directory scratch files are created in.
func (d *Dir) Root() string {
	return d.root
}
