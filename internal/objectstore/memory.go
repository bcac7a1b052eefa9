package objectstore

import (
	"context"
	"sync"
	"time"
)

type memObject struct {
	data    []byte
	modTime time.Time
}

// MemoryStore is an in-memory Store for tests and local experiments.
//
// Now is the clock used for LastModified; tests override it to control
// cooldown windows deterministically.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memObject

	Now func() time.Time
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		objects: make(map[string]memObject),
		Now:     time.Now,
	}
}

func memKey(bucket, key string) string {
	return bucket + "/" + key
}

// Get returns the object content, or ErrNotFound.
func (s *MemoryStore) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[memKey(bucket, key)]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(obj.data))
	copy(out, obj.data)
	return out, nil
}

// Put stores the object, overwriting any prior version.
func (s *MemoryStore) Put(ctx context.Context, bucket, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]byte, len(data))
	copy(stored, data)
	s.objects[memKey(bucket, key)] = memObject{data: stored, modTime: s.Now()}
	return nil
}

// Head returns object metadata without content, or ErrNotFound.
func (s *MemoryStore) Head(ctx context.Context, bucket, key string) (*Metadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[memKey(bucket, key)]
	if !ok {
		return nil, ErrNotFound
	}
	return &Metadata{Size: int64(len(obj.data)), LastModified: obj.modTime}, nil
}

// Copy duplicates srcKey to dstKey within the bucket.
func (s *MemoryStore) Copy(ctx context.Context, bucket, srcKey, dstKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[memKey(bucket, srcKey)]
	if !ok {
		return ErrNotFound
	}
	stored := make([]byte, len(obj.data))
	copy(stored, obj.data)
	s.objects[memKey(bucket, dstKey)] = memObject{data: stored, modTime: s.Now()}
	return nil
}

// Delete removes the object. Deleting a missing object is not an error.
func (s *MemoryStore) Delete(ctx context.Context, bucket, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, memKey(bucket, key))
	return nil
}
