package objectstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FSStore implements Store on a local filesystem tree: buckets are
// directories under the root, keys are files (slashes in keys become
// subdirectories).
//
// Put writes through a temporary file and renames, so a killed process never
// leaves a partially written object at the final path.
type FSStore struct {
	root string
}

// NewFSStore creates a filesystem store rooted at dir, creating it if needed.
func NewFSStore(dir string) (*FSStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("store root cannot be empty")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("creating store root %s: %w", dir, err)
	}
	return &FSStore{root: dir}, nil
}

func (s *FSStore) path(bucket, key string) (string, error) {
	if bucket == "" || key == "" {
		return "", fmt.Errorf("bucket and key cannot be empty")
	}
	p := filepath.Join(s.root, bucket, filepath.FromSlash(key))
	// Reject keys that escape the bucket directory.
	if !strings.HasPrefix(p, filepath.Join(s.root, bucket)+string(filepath.Separator)) {
		return "", fmt.Errorf("invalid key %q", key)
	}
	return p, nil
}

// Get returns the object content, or ErrNotFound.
func (s *FSStore) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	p, err := s.path(bucket, key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading object %s/%s: %w", bucket, key, err)
	}
	return data, nil
}

// Put stores the object, overwriting any prior version.
func (s *FSStore) Put(ctx context.Context, bucket, key string, data []byte) error {
	p, err := s.path(bucket, key)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return fmt.Errorf("creating object directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), ".put-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing object %s/%s: %w", bucket, key, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, p); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming object %s/%s: %w", bucket, key, err)
	}
	return nil
}

// Head returns object metadata without content, or ErrNotFound.
func (s *FSStore) Head(ctx context.Context, bucket, key string) (*Metadata, error) {
	p, err := s.path(bucket, key)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(p)
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("stat object %s/%s: %w", bucket, key, err)
	}
	return &Metadata{Size: info.Size(), LastModified: info.ModTime()}, nil
}

// Copy duplicates srcKey to dstKey within the bucket.
func (s *FSStore) Copy(ctx context.Context, bucket, srcKey, dstKey string) error {
	data, err := s.Get(ctx, bucket, srcKey)
	if err != nil {
		return err
	}
	return s.Put(ctx, bucket, dstKey, data)
}

// Delete removes the object. Deleting a missing object is not an error.
func (s *FSStore) Delete(ctx context.Context, bucket, key string) error {
	p, err := s.path(bucket, key)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting object %s/%s: %w", bucket, key, err)
	}
	return nil
}
