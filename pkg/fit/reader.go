package fit

import (
	"fmt"
	"os"
)

// ReadFile reads a whole capture into memory. The returned slice is owned
// by the caller and is never modified by this package.
func ReadFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read capture: %w", err)
	}
	return data, nil
}
