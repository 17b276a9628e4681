// Package drain empties the local lattice caches.
package drain

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Selection names which caches to drain.
type Selection string

const (
	All Selection = "all"
	OCI Selection = "oci"
	Lib Selection = "lib"
)

const (
	libCacheDir = "wasmcloudcache"
	ociCacheDir = "wasmcloud_ocicache"
)

// ParseSelection validates a selection name.
func ParseSelection(value string) (Selection, error) {
	switch sel := Selection(strings.ToLower(strings.TrimSpace(value))); sel {
	case All, OCI, Lib:
		return sel, nil
	}
	return "", fmt.Errorf("unknown drain selection %q (want all, oci or lib)", value)
}

// Paths returns the cache directories sel covers under root.
func (sel Selection) Paths(root string) []string {
	switch sel {
	case OCI:
		return []string{filepath.Join(root, ociCacheDir)}
	case Lib:
		return []string{filepath.Join(root, libCacheDir)}
	}
	return []string{filepath.Join(root, libCacheDir), filepath.Join(root, ociCacheDir)}
}

// Result lists the drained directories.
type Result struct {
	Drained []string `json:"drained" yaml:"drained"`
}

// Text renders the result for humans.
func (r Result) Text() string {
	return fmt.Sprintf("Successfully cleared caches at: %v", r.Drained)
}

// Drain removes the contents of every cache directory sel covers. The
// directories themselves stay; a missing directory counts as drained.
func Drain(sel Selection, root string) (Result, error) {
	var res Result
	for _, dir := range sel.Paths(root) {
		if err := removeContents(dir); err != nil {
			return res, err
		}
		res.Drained = append(res.Drained, dir)
	}
	return res, nil
}

func removeContents(dir string) error {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read cache %s: %w", dir, err)
	}
	for _, entry := range entries {
		if err := os.RemoveAll(filepath.Join(dir, entry.Name())); err != nil {
			return fmt.Errorf("drain %s: %w", dir, err)
		}
	}
	return nil
}
