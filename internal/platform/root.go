package platform

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultDirName is the data directory created next to the user's files.
const DefaultDirName = ".moss"

// FindRoot looks upwards from startDir for a directory holding a .moss
// data directory and returns the absolute path of that data directory.
func FindRoot(startDir string) (string, error) {
	abs, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	dir := abs
	for {
		candidate := filepath.Join(dir, DefaultDirName)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	return "", fmt.Errorf("no %s directory found above %s", DefaultDirName, abs)
}
