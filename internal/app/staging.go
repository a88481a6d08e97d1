package app

import (
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
)

// NewStagingDir picks a per-process staging directory under tempRoot (the OS
// temp directory when empty) and wipes it so every run starts from an empty
// directory, even after a crash left one behind under the same name. The
// random suffix keeps concurrent runs out of each other's staging space.
func NewStagingDir(tempRoot string) (string, error) {
	if tempRoot == "" {
		tempRoot = os.TempDir()
	}

	dir := filepath.Join(tempRoot, fmt.Sprintf("shuttle-stage-%03d", rand.IntN(1000)))
	if err := os.RemoveAll(dir); err != nil {
		return "", fmt.Errorf("wiping staging directory: %w", err)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("creating staging directory: %w", err)
	}
	return dir, nil
}
