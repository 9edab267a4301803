package blob

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/madrasa/core"
)

// FileStore keeps blobs under a local directory. Each blob has a `.meta` JSON sidecar
// holding its content type and metadata.
type FileStore struct {
	root string
}

var _ core.BlobStore = (*FileStore)(nil)

type metaFile struct {
	ContentType string            `json:"content_type,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	ETag        string            `json:"etag"`
	Size        int64             `json:"size"`
	CreatedAt   time.Time         `json:"created_at"`
}

// NewFileStore returns a FileStore rooted at root, creating the directory if needed.
func NewFileStore(root string) (*FileStore, error) {
	if root == "" {
		root = "./blobdata"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, errors.Wrap(err, "creating blob root")
	}
	return &FileStore{root: root}, nil
}

func (s *FileStore) Driver() core.BlobDriver { return core.BlobDriverFilesystem }

// sanitizeKey forbids keys escaping the root directory.
func sanitizeKey(key string) (string, error) {
	if strings.TrimSpace(key) == "" {
		return "", errors.New("empty key")
	}
	if strings.Contains(key, "..") || strings.HasPrefix(key, "/") || strings.HasPrefix(key, `\`) {
		return "", errors.Errorf("invalid key %q", key)
	}
	return filepath.ToSlash(filepath.Clean(key)), nil
}

func (s *FileStore) pathFor(key string) (dataPath, metaPath string, err error) {
	k, err := sanitizeKey(key)
	if err != nil {
		return "", "", err
	}
	dataPath = filepath.Join(s.root, filepath.FromSlash(k))
	return dataPath, dataPath + ".meta", nil
}

func (s *FileStore) Put(ctx context.Context, key string, r io.Reader, opts core.PutOptions) (core.BlobInfo, error) {
	dataPath, metaPath, err := s.pathFor(key)
	if err != nil {
		return core.BlobInfo{}, err
	}
	if _, err := os.Stat(dataPath); err == nil {
		return core.BlobInfo{}, errors.Wrap(core.ErrBlobExists, key)
	}
	if err := os.MkdirAll(filepath.Dir(dataPath), 0o755); err != nil {
		return core.BlobInfo{}, errors.Wrap(err, "creating blob directory")
	}

	// stream to a temp file first, computing size & sha on the way
	tmp, err := os.CreateTemp(filepath.Dir(dataPath), ".tmp-*")
	if err != nil {
		return core.BlobInfo{}, errors.Wrap(err, "creating temp file")
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	h := sha256.New()
	size, err := io.Copy(io.MultiWriter(tmp, h), r)
	if err == nil {
		err = tmp.Sync()
	}
	if cErr := tmp.Close(); err == nil {
		err = cErr
	}
	if err != nil {
		return core.BlobInfo{}, errors.Wrap(err, "writing blob")
	}
	if err := os.Rename(tmp.Name(), dataPath); err != nil {
		return core.BlobInfo{}, errors.Wrap(err, "moving blob into place")
	}

	mf := metaFile{
		ContentType: opts.ContentType,
		Metadata:    cloneMetadata(opts.Metadata),
		ETag:        hex.EncodeToString(h.Sum(nil)),
		Size:        size,
		CreatedAt:   time.Now().UTC(),
	}
	b, err := json.MarshalIndent(mf, "", "  ")
	if err != nil {
		return core.BlobInfo{}, errors.Wrap(err, "encoding blob metadata")
	}
	if err := os.WriteFile(metaPath, b, 0o644); err != nil {
		_ = os.Remove(dataPath)
		return core.BlobInfo{}, errors.Wrap(err, "writing blob metadata")
	}
	return mf.info(key), nil
}

func (s *FileStore) Get(ctx context.Context, key string) (core.BlobInfo, io.ReadCloser, error) {
	dataPath, metaPath, err := s.pathFor(key)
	if err != nil {
		return core.BlobInfo{}, nil, err
	}
	file, err := os.Open(dataPath)
	if err != nil {
		return core.BlobInfo{}, nil, notFound(err, key)
	}
	mf, err := readMeta(metaPath)
	if err != nil {
		_ = file.Close()
		return core.BlobInfo{}, nil, notFound(err, key)
	}
	return mf.info(key), file, nil
}

func (s *FileStore) Head(ctx context.Context, key string) (core.BlobInfo, error) {
	_, metaPath, err := s.pathFor(key)
	if err != nil {
		return core.BlobInfo{}, err
	}
	mf, err := readMeta(metaPath)
	if err != nil {
		return core.BlobInfo{}, notFound(err, key)
	}
	return mf.info(key), nil
}

func (s *FileStore) Delete(ctx context.Context, key string) (bool, error) {
	dataPath, metaPath, err := s.pathFor(key)
	if err != nil {
		return false, err
	}
	if err := os.Remove(dataPath); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, errors.Wrap(err, "removing blob")
	}
	_ = os.Remove(metaPath)
	return true, nil
}

// PresignURL is unsupported: local files are streamed by the API instead.
func (s *FileStore) PresignURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return "", core.ErrBlobUnsupported
}

func (mf metaFile) info(key string) core.BlobInfo {
	return core.BlobInfo{
		Key:          key,
		Size:         mf.Size,
		ContentType:  mf.ContentType,
		ETag:         mf.ETag,
		Metadata:     cloneMetadata(mf.Metadata),
		LastModified: mf.CreatedAt,
	}
}

func readMeta(path string) (metaFile, error) {
	var mf metaFile
	b, err := os.ReadFile(path)
	if err != nil {
		return mf, err
	}
	err = json.Unmarshal(b, &mf)
	return mf, err
}

func notFound(err error, key string) error {
	if errors.Is(err, fs.ErrNotExist) {
		return errors.Wrap(core.ErrBlobNotFound, key)
	}
	return errors.Wrap(err, key)
}
