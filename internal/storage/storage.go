// Package storage defines the object-storage contract the media service
// consumes. The blob store itself is an external collaborator; only
// upload and delete-by-object-ID are exercised here.
package storage

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
)

// UploadResult is the external store's reference to a stored blob.
type UploadResult struct {
	ObjectID string
	URL      string
}

// ObjectStorage stores and deletes media blobs. Deleting an object that
// does not exist must be a no-op so cascade deletes stay idempotent.
type ObjectStorage interface {
	Upload(ctx context.Context, filename string, r io.Reader) (*UploadResult, error)
	Delete(ctx context.Context, objectID string) error
}

// MemoryStorage is an in-process ObjectStorage for tests and local runs.
type MemoryStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

// NewMemoryStorage creates an empty in-memory object store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{objects: make(map[string][]byte)}
}

// Upload implements ObjectStorage.
func (s *MemoryStorage) Upload(_ context.Context, filename string, r io.Reader) (*UploadResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	id := uuid.NewString()
	s.mu.Lock()
	s.objects[id] = data
	s.mu.Unlock()
	return &UploadResult{
		ObjectID: id,
		URL:      fmt.Sprintf("memory://%s/%s", id, filename),
	}, nil
}

// Delete implements ObjectStorage. Unknown IDs are a no-op.
func (s *MemoryStorage) Delete(_ context.Context, objectID string) error {
	s.mu.Lock()
	delete(s.objects, objectID)
	s.mu.Unlock()
	return nil
}

// Has reports whether the object is still stored. Test helper.
func (s *MemoryStorage) Has(objectID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objects[objectID]
	return ok
}
