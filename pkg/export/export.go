// Package export stores rendered payloads out of the process.
//
// Drivers live in subpackages: fs (local directory) and s3 (S3 compatible object store).
// Use stores.Open to pick one from configuration.
package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// Driver names.
const (
	DriverFS = "fs"
	DriverS3 = "s3"
)

var ErrInvalidKey = errors.New("invalid export key")

// Info describes a stored object.
type Info struct {
	Driver      string `json:"driver"`
	Key         string `json:"key"`
	Location    string `json:"location"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type,omitempty"`
}

type Store interface {
	// Put stores content of r as key, overwriting the existing one.
	Put(ctx context.Context, key string, r io.Reader, contentType string) (Info, error)
}

// CleanKey normalizes a slash separated key.
//
// Keys should be relative and should not escape the root with "..".
func CleanKey(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("%w: empty", ErrInvalidKey)
	}
	if strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return "", fmt.Errorf("%w: %s", ErrInvalidKey, key)
	}
	cleaned := path.Clean(key)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", fmt.Errorf("%w: %s", ErrInvalidKey, key)
	}
	return cleaned, nil
}
