package utils

import (
	"errors"
	"os"
	"path/filepath"
)

var ErrSearchFile = errors.New("could not search file")

// SearchFileUpward looks for fileName in dir and its ancestors, nearest first.
func SearchFileUpward(dir string, fileName string) (string, error) {
	for {
		path := filepath.Join(dir, fileName)
		if s, err := os.Stat(path); err == nil && !s.IsDir() {
			return path, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ErrSearchFile
		}
		dir = parent
	}
}
