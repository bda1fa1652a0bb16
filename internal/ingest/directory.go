package ingest

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/tenkanalyzer/tenk-analyzer/constants"
)

// CollectFilings walks root and returns the paths of every filing with an
// allowed extension, skipping hidden entries when requested. Unreadable
// entries are counted as failures and the walk continues.
func (in *Ingestor) CollectFilings(root string, skipHidden bool) ([]string, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("root path is required")
	}

	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		in.mu.Lock()
		in.stats.Scanned++
		in.mu.Unlock()

		if walkErr != nil {
			in.logger.Warn("ingest.walk.error", "path", path, "error", walkErr)
			in.mu.Lock()
			in.stats.Failed++
			in.mu.Unlock()
			return nil // continue walking
		}
		if skipHidden && IsHidden(path) && path != root {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !AllowedExt(constants.NormalizeExt(filepath.Ext(path))) {
			return nil
		}

		in.mu.Lock()
		in.stats.Matched++
		in.mu.Unlock()
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return paths, fmt.Errorf("walk: %w", err)
	}
	return paths, nil
}

// AllowedExt checks if a file extension is in the allowed set.
func AllowedExt(ext string) bool {
	_, ok := constants.AllowedExtensions[constants.NormalizeExt(ext)]
	return ok
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}
