// Package mediastore keeps uploaded media (project videos, CVs) in object
// storage or on the local filesystem.
package mediastore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
)

// ErrInvalidKey is returned for keys that are empty or escape the storage root
var ErrInvalidKey = errors.New("invalid object key")

// Object describes a stored file
type Object struct {
	Key string
	URL string
}

// Storage stores media files
type Storage interface {
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (Object, error)
	Delete(ctx context.Context, key string) error
}

// cleanKey normalises key and rejects traversal outside the root
func cleanKey(key string) (string, error) {
	cleaned := path.Clean("/" + strings.TrimSpace(key))
	cleaned = strings.TrimPrefix(cleaned, "/")
	if cleaned == "" || cleaned == "." {
		return "", ErrInvalidKey
	}
	if strings.Contains(key, "..") {
		return "", fmt.Errorf("%w: %s", ErrInvalidKey, key)
	}
	return cleaned, nil
}

func joinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + key
}
