package mediastore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// LocalStorage writes files below a directory that the web server exposes at baseURL
type LocalStorage struct {
	root    string
	baseURL string
}

// NewLocalStorage creates the root directory if needed
func NewLocalStorage(root, baseURL string) (*LocalStorage, error) {
	if err := os.MkdirAll(root, os.ModePerm); err != nil {
		return nil, fmt.Errorf("cannot create media directory: %w", err)
	}
	return &LocalStorage{root: root, baseURL: baseURL}, nil
}

// Root returns the directory files are written to
func (l *LocalStorage) Root() string {
	return l.root
}

func (l *LocalStorage) Put(ctx context.Context, key, contentType string, body io.Reader, size int64) (Object, error) {
	key, err := cleanKey(key)
	if err != nil {
		return Object{}, err
	}
	if err := ctx.Err(); err != nil {
		return Object{}, err
	}

	target := filepath.Join(l.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(target), os.ModePerm); err != nil {
		return Object{}, err
	}

	// write to a temp file first so a failed upload never leaves a partial object
	tmp, err := os.CreateTemp(filepath.Dir(target), ".upload-*")
	if err != nil {
		return Object{}, err
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, body); err != nil {
		tmp.Close()
		return Object{}, fmt.Errorf("cannot write %s: %w", key, err)
	}
	if err := tmp.Close(); err != nil {
		return Object{}, err
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return Object{}, err
	}

	return Object{Key: key, URL: joinURL(l.baseURL, key)}, nil
}

func (l *LocalStorage) Delete(ctx context.Context, key string) error {
	key, err := cleanKey(key)
	if err != nil {
		return err
	}
	err = os.Remove(filepath.Join(l.root, filepath.FromSlash(key)))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}
