package core

import (
	"context"
	"errors"
	"io"
	"time"
)

// BlobDriver identifies a concrete BlobStore implementation.
type BlobDriver string

const (
	BlobDriverFilesystem BlobDriver = "fs"     // local filesystem (default, dev)
	BlobDriverS3         BlobDriver = "s3"     // S3 / MinIO compatible
	BlobDriverMemory     BlobDriver = "memory" // in-memory (tests)
)

var (
	ErrBlobNotFound    = errors.New("blob not found")
	ErrBlobExists      = errors.New("blob already exists")
	ErrBlobUnsupported = errors.New("blobstore: unsupported operation")
)

type (
	// PutOptions specifies optional parameters for BlobStore.Put.
	PutOptions struct {
		ContentType string
		Metadata    map[string]string
	}

	// BlobInfo describes a stored blob.
	BlobInfo struct {
		Key          string            `json:"key"`
		Size         int64             `json:"size_bytes"`
		ContentType  string            `json:"content_type,omitempty"`
		ETag         string            `json:"etag,omitempty"`
		Metadata     map[string]string `json:"metadata,omitempty"`
		LastModified time.Time         `json:"last_modified"`
	}

	// BlobStore is any service that can store uploaded documents.
	BlobStore interface {
		// Put stores a new blob; fails with ErrBlobExists if key is taken.
		Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (BlobInfo, error)
		Get(ctx context.Context, key string) (BlobInfo, io.ReadCloser, error)
		Head(ctx context.Context, key string) (BlobInfo, error)
		// Delete removes the blob, reporting whether it existed.
		Delete(ctx context.Context, key string) (bool, error)
		// PresignURL returns a time limited URL to the blob, or ErrBlobUnsupported.
		PresignURL(ctx context.Context, key string, expiry time.Duration) (string, error)
		Driver() BlobDriver
	}
)
