package fsutil

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// imageExts lists the upload formats the pipeline accepts as input.
var imageExts = map[string]struct{}{
	".png":  {},
	".jpg":  {},
	".jpeg": {},
	".gif":  {},
	".bmp":  {},
	".tif":  {},
	".tiff": {},
	".webp": {},
}

// IsImageFile checks if a file has a supported input image extension.
func IsImageFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	_, ok := imageExts[ext]
	return ok
}

// EnsureOutputDir creates the run output directory and returns the
// root path. The frames/ subdirectory is created by the encoder only
// when a run persists frames, so runs without them stay clean.
func EnsureOutputDir(path string) (string, error) {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return "", err
	}
	return path, nil
}

// ListFrames returns the persisted frame files under dir in name order,
// which for zero-padded indices is generation order.
func ListFrames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, "frame_") && strings.HasSuffix(name, ".png") {
			files = append(files, filepath.Join(dir, name))
		}
	}
	sort.Strings(files)
	return files, nil
}

// FirstExisting returns the first path that exists.
func FirstExisting(paths ...string) string {
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}
