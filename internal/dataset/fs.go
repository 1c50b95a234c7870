package dataset

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/starford/walletgraph/internal/apperr"
)

// FS implements Provider backed by a directory on the local file system.
type FS struct {
	root string // absolute path to the dataset directory
}

// NewFS creates a new FS provider rooted at the given directory.
// The directory must already exist.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("dataset: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("dataset: stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("dataset: root is not a directory: %s", abs)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute dataset directory.
func (f *FS) Root() string {
	return f.root
}

// safePath resolves a dataset name against the root and rejects anything
// that escapes it or is not a YAML file.
func (f *FS) safePath(name string) (string, error) {
	if !IsDatasetFile(name) {
		return "", fmt.Errorf("dataset: %q is not a yaml file: %w", name, apperr.ErrInvalidInput)
	}
	cleaned := filepath.Clean(name)
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("dataset: absolute paths not allowed: %s", name)
	}
	abs, err := filepath.Abs(filepath.Join(f.root, cleaned))
	if err != nil {
		return "", fmt.Errorf("dataset: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, f.root+string(os.PathSeparator)) {
		return "", fmt.Errorf("dataset: path escapes root: %s", name)
	}
	return abs, nil
}

// List returns every dataset file directly under the root, sorted by name.
func (f *FS) List() ([]Info, error) {
	entries, err := os.ReadDir(f.root)
	if err != nil {
		return nil, fmt.Errorf("dataset: list: %w", err)
	}
	var out []Info
	for _, e := range entries {
		if e.IsDir() || !IsDatasetFile(e.Name()) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(f.root, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("dataset: list: %w", err)
		}
		out = append(out, Info{Name: e.Name(), Digest: Digest(data)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Read returns the raw bytes of a dataset file.
func (f *FS) Read(name string) ([]byte, error) {
	abs, err := f.safePath(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("dataset: read %s: %w", name, apperr.ErrNotFound)
		}
		return nil, fmt.Errorf("dataset: read %s: %w", name, err)
	}
	return data, nil
}

// IsDatasetFile reports whether name has a YAML extension.
func IsDatasetFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".yaml" || ext == ".yml"
}
