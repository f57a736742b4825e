package blobstore

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"sync"
)

// MemoryStore is the test double for Store.
type MemoryStore struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

func (s *MemoryStore) Upload(_ context.Context, path string, r io.Reader, size int64, progress ProgressFunc) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	if progress != nil {
		progress(int64(len(data)), size)
	}

	s.mu.Lock()
	s.blobs[path] = data
	s.mu.Unlock()
	return "/files/" + url.PathEscape(path), nil
}

func (s *MemoryStore) Open(_ context.Context, path string) (io.ReadCloser, error) {
	s.mu.Lock()
	data, ok := s.blobs[path]
	s.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *MemoryStore) Delete(_ context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[path]; !ok {
		return ErrNotFound
	}
	delete(s.blobs, path)
	return nil
}
