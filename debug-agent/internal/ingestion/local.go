package ingestion

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// DefaultSuffixes are the file types indexed when none are configured.
var DefaultSuffixes = []string{".py"}

// skipDirs are never descended into.
var skipDirs = map[string]bool{
	"__pycache__":  true,
	"node_modules": true,
	"venv":         true,
}

// LoadLocalFiles lists files under root whose extension is in suffixes,
// sorted by path. A missing root is created and yields no files.
func LoadLocalFiles(root string, suffixes []string) ([]string, error) {
	if len(suffixes) == 0 {
		suffixes = DefaultSuffixes
	}
	if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
		if err := os.MkdirAll(root, 0o755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", root, err)
		}
		return nil, nil
	}

	var out []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			name := d.Name()
			if path != root && (skipDirs[name] || strings.HasPrefix(name, ".")) {
				return filepath.SkipDir
			}
			return nil
		}
		ext := strings.ToLower(filepath.Ext(path))
		for _, a := range suffixes {
			if ext == strings.ToLower(a) {
				out = append(out, path)
				break
			}
		}
		return nil
	})
	sort.Strings(out)
	return out, err
}
