package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Local writes files under a directory that the API serves statically.
type Local struct {
	root    string
	baseURL string
}

func NewLocal(root, baseURL string) (*Local, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("local storage dir is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("creating storage dir: %w", err)
	}
	return &Local{root: abs, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

// Root is the directory files are written to.
func (l *Local) Root() string {
	return l.root
}

func (l *Local) Ping(context.Context) error {
	info, err := os.Stat(l.root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a directory", l.root)
	}
	return nil
}

func (l *Local) Put(_ context.Context, key, _ string, data []byte) (string, error) {
	target, err := l.resolve(key)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return "", err
	}
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", key, err)
	}
	return l.baseURL + "/" + filepath.ToSlash(key), nil
}

func (l *Local) Delete(_ context.Context, key string) error {
	target, err := l.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// resolve keeps key inside root.
func (l *Local) resolve(key string) (string, error) {
	clean := filepath.Clean("/" + strings.TrimSpace(key))
	if clean == "/" {
		return "", errors.New("object key is required")
	}
	return filepath.Join(l.root, clean), nil
}
