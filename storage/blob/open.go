// Package blob holds the document storage drivers behind core.BlobStore.
package blob

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/madrasa/core"
)

// Open returns the BlobStore selected by conf.Driver.
func Open(ctx context.Context, conf core.BlobConfig) (core.BlobStore, error) {
	switch core.BlobDriver(core.CleanString(conf.Driver, true /* lower */)) {
	case core.BlobDriverMemory:
		return NewMemoryStore(), nil
	case core.BlobDriverFilesystem, "":
		return NewFileStore(conf.FSRoot)
	case core.BlobDriverS3:
		return NewS3Store(ctx, S3Config{
			Bucket:    conf.S3Bucket,
			Region:    conf.S3Region,
			Endpoint:  conf.S3Endpoint,
			PathStyle: conf.S3PathStyle,
		})
	}
	return nil, errors.Errorf("unknown blob driver %q", conf.Driver)
}

func cloneMetadata(in map[string]string) map[string]string {
	if in == nil {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
