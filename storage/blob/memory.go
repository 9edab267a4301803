package blob

import (
	"bytes"
	"context"
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/madrasa/core"
)

type memBlob struct {
	info core.BlobInfo
	data []byte
}

// MemoryStore keeps blobs in process memory. Used in tests and TEST mode.
type MemoryStore struct {
	mu   sync.RWMutex
	objs map[string]memBlob
}

var _ core.BlobStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{objs: make(map[string]memBlob)}
}

func (s *MemoryStore) Driver() core.BlobDriver { return core.BlobDriverMemory }

func (s *MemoryStore) Put(ctx context.Context, key string, r io.Reader, opts core.PutOptions) (core.BlobInfo, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return core.BlobInfo{}, errors.Wrap(err, "reading blob")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.objs[key]; exists {
		return core.BlobInfo{}, errors.Wrap(core.ErrBlobExists, key)
	}
	info := core.BlobInfo{
		Key:          key,
		Size:         int64(len(b)),
		ContentType:  opts.ContentType,
		Metadata:     cloneMetadata(opts.Metadata),
		LastModified: time.Now().UTC(),
	}
	s.objs[key] = memBlob{info: info, data: b}
	return info, nil
}

func (s *MemoryStore) Get(ctx context.Context, key string) (core.BlobInfo, io.ReadCloser, error) {
	s.mu.RLock()
	obj, ok := s.objs[key]
	s.mu.RUnlock()
	if !ok {
		return core.BlobInfo{}, nil, errors.Wrap(core.ErrBlobNotFound, key)
	}
	data := make([]byte, len(obj.data))
	copy(data, obj.data)
	info := obj.info
	info.Metadata = cloneMetadata(info.Metadata)
	return info, io.NopCloser(bytes.NewReader(data)), nil
}

func (s *MemoryStore) Head(ctx context.Context, key string) (core.BlobInfo, error) {
	s.mu.RLock()
	obj, ok := s.objs[key]
	s.mu.RUnlock()
	if !ok {
		return core.BlobInfo{}, errors.Wrap(core.ErrBlobNotFound, key)
	}
	info := obj.info
	info.Metadata = cloneMetadata(info.Metadata)
	return info, nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.objs[key]
	delete(s.objs, key)
	return ok, nil
}

func (s *MemoryStore) PresignURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return "", core.ErrBlobUnsupported
}

// Len returns the number of stored blobs.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objs)
}
