package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// LocalStore writes objects as files under root/bucket. It is meant for
// development runs and tests. It is safe for concurrent use.
type LocalStore struct {
	mu     sync.Mutex
	root   string
	bucket string
}

// NewLocalStore creates the bucket directory under root if needed.
func NewLocalStore(root, bucket string) (*LocalStore, error) {
	dir := filepath.Join(root, bucket)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("local: create bucket dir: %w", err)
	}
	return &LocalStore{root: root, bucket: bucket}, nil
}

func (s *LocalStore) Name() string   { return "local" }
func (s *LocalStore) Bucket() string { return s.bucket }

// Path returns the file an object key maps to.
func (s *LocalStore) Path(key string) string {
	return filepath.Join(s.root, s.bucket, filepath.FromSlash(key))
}

// Put writes data to the key's file, replacing any previous content. The
// content type is not persisted.
func (s *LocalStore) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.Contains(key, "..") {
		return fmt.Errorf("local: invalid key %q", key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p := s.Path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return fmt.Errorf("local: create dir for %q: %w", key, err)
	}
	tmp := p + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("local: write %q: %w", key, err)
	}
	if err := os.Rename(tmp, p); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("local: rename %q: %w", key, err)
	}
	return nil
}

func (s *LocalStore) Close() error {
	return nil
}
