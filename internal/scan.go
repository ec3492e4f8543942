package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// ScanEntry is one media file found on disk.
type ScanEntry struct {
	Path    string
	Size    int64
	IsImage bool
}

// ScanMedia walks inputDir recursively and returns every file matching the
// configured image or video extensions. Hidden directories are skipped.
// Results are sorted by path so repeated scans of the same tree ingest
// files in the same order.
func ScanMedia(inputDir string, cfg *Config) ([]ScanEntry, error) {
	var entries []ScanEntry
	err := filepath.Walk(inputDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			if name := info.Name(); strings.HasPrefix(name, ".") && path != inputDir {
				return filepath.SkipDir
			}
			return nil
		}

		ext := strings.ToLower(filepath.Ext(info.Name()))
		switch {
		case containsExt(cfg.ImageExt, ext):
			entries = append(entries, ScanEntry{Path: path, Size: info.Size(), IsImage: true})
		case containsExt(cfg.VideoExt, ext):
			entries = append(entries, ScanEntry{Path: path, Size: info.Size()})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error scanning files: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })
	return entries, nil
}

func containsExt(exts []string, ext string) bool {
	for _, e := range exts {
		if e == ext {
			return true
		}
	}
	return false
}
