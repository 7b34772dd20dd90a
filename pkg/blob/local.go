package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// LocalStore writes blobs below a directory on disk and serves them under a URL prefix.
type LocalStore struct {
	root    string
	baseURL string
}

// NewLocalStore creates the root directory when missing.
func NewLocalStore(root, baseURL string) (*LocalStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("blob root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &LocalStore{root: root, baseURL: strings.TrimRight(baseURL, "/")}, nil
}

func (s *LocalStore) Put(ctx context.Context, key string, r io.Reader) (Object, error) {
	target, err := s.resolve(key)
	if err != nil {
		return Object{}, err
	}
	key = normalizeKey(key)
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return Object{}, fmt.Errorf("create blob directory: %w", err)
	}

	file, err := os.Create(target)
	if err != nil {
		return Object{}, fmt.Errorf("create blob: %w", err)
	}
	written, copyErr := io.Copy(file, r)
	closeErr := file.Close()
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(target)
		return Object{}, fmt.Errorf("write blob: %w", errors.Join(copyErr, closeErr))
	}
	if err := ctx.Err(); err != nil {
		_ = os.Remove(target)
		return Object{}, err
	}

	return Object{Key: key, URL: s.baseURL + "/" + key, Size: written}, nil
}

func (s *LocalStore) Delete(_ context.Context, key string) error {
	target, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(target); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (s *LocalStore) resolve(key string) (string, error) {
	cleaned := normalizeKey(key)
	if cleaned == "" {
		return "", fmt.Errorf("blob key is required")
	}
	return filepath.Join(s.root, filepath.FromSlash(cleaned)), nil
}

// normalizeKey strips traversal segments so keys always resolve below the root.
func normalizeKey(key string) string {
	return strings.TrimPrefix(path.Clean("/"+strings.TrimSpace(key)), "/")
}
