// Package schedule manages class timetables and their uploaded documents.
//
// Uploading is done in two phases: Acquire reads and stores the document bytes without
// touching any entry, then Attach resolves the target entry and commits the reference.
// An entry deleted while its document was being read is never resurrected.
package schedule

import (
	"bytes"
	"context"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/madrasa/core"
)

const (
	documentField = "document"
	keyPrefix     = "schedules/"
	sniffLen      = 512
)

var (
	NowFunc = time.Now // mockable

	// errors
	ErrTooLarge        = errors.New("document is too large")
	ErrUnsupportedType = errors.New("document type is not allowed")
	ErrNoDocument      = errors.New("no document uploaded")
)

type (
	// Document is an acquired blob not yet attached to an entry.
	Document struct {
		Key         string
		Name        string
		ContentType string
		Size        int64
	}

	// Download gives access to an entry's document: either a URL to redirect to, or its content.
	Download struct {
		Entry Entry
		URL   string
		Info  core.BlobInfo
		Body  io.ReadCloser
	}

	Service struct {
		store         *Store
		blobs         core.BlobStore
		upload        core.UploadConfig
		presignExpiry time.Duration
		logger        core.Logger
	}
)

func NewService(store *Store, blobs core.BlobStore, conf *core.Config, logger core.Logger) *Service {
	return &Service{
		store:         store,
		blobs:         blobs,
		upload:        conf.Upload,
		presignExpiry: conf.Blob.PresignExpiry,
		logger:        logger,
	}
}

func (svc *Service) Store() *Store { return svc.store }

// Acquire reads a document from r and saves it to the blob store.
// contentType is the declared MIME type; the sniffed type must be allowed as well.
func (svc *Service) Acquire(ctx context.Context, r io.Reader, filename, contentType string) (Document, error) {
	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(contextReader{ctx, r}, svc.upload.MaxBytes+1))
	if err != nil {
		return Document{}, errors.Wrap(err, "reading document")
	}
	if n > svc.upload.MaxBytes {
		return Document{}, invalidDocument(ErrTooLarge, "document is too large")
	}
	if n == 0 {
		return Document{}, invalidDocument(ErrUnsupportedType, "document is empty")
	}

	sniffed := mediaType(http.DetectContentType(buf.Bytes()[:min(n, sniffLen)]))
	declared := mediaType(contentType)
	if declared == "" {
		declared = sniffed
	}
	if !svc.allowed(declared) || !svc.allowed(sniffed) {
		return Document{}, invalidDocument(ErrUnsupportedType, "document type is not allowed")
	}

	doc := Document{
		Key:         keyPrefix + uuid.NewString(),
		Name:        cleanFilename(filename),
		ContentType: declared,
		Size:        n,
	}
	opts := core.PutOptions{ContentType: doc.ContentType, Metadata: map[string]string{"filename": doc.Name}}
	if _, err := svc.blobs.Put(ctx, doc.Key, &buf, opts); err != nil {
		return Document{}, errors.Wrap(err, "storing document")
	}
	return doc, nil
}

// Attach makes doc the document of the entry matching id, replacing (and deleting) any previous one.
// If the entry no longer exists, doc is discarded and crud.ErrNotFound returned.
func (svc *Service) Attach(ctx context.Context, id string, doc Document) (Entry, error) {
	var previous string
	entry, err := svc.store.Modify(id, func(e *Entry) error {
		previous = e.Document.String
		e.Document = null.StringFrom(doc.Key)
		e.DocumentName = null.StringFrom(doc.Name)
		e.ContentType = null.StringFrom(doc.ContentType)
		e.Size = null.Int64From(doc.Size)
		e.UploadedAt = null.TimeFrom(NowFunc().UTC())
		return nil
	})
	if err != nil {
		svc.discard(ctx, doc.Key)
		return entry, err
	}
	if previous != "" && previous != doc.Key {
		svc.discard(ctx, previous)
	}
	return entry, nil
}

// Upload acquires then attaches a document in one go.
func (svc *Service) Upload(ctx context.Context, id string, r io.Reader, filename, contentType string) (Entry, error) {
	if _, err := svc.store.Get(id); err != nil {
		return Entry{}, err
	}
	doc, err := svc.Acquire(ctx, r, filename, contentType)
	if err != nil {
		return Entry{}, err
	}
	return svc.Attach(ctx, id, doc)
}

// Detach removes the document of the entry matching id.
func (svc *Service) Detach(ctx context.Context, id string) (Entry, error) {
	var previous string
	entry, err := svc.store.Modify(id, func(e *Entry) error {
		if !e.Uploaded() {
			return ErrNoDocument
		}
		previous = e.Document.String
		e.clearDocument()
		return nil
	})
	if err != nil {
		return entry, err
	}
	svc.discard(ctx, previous)
	return entry, nil
}

// Remove deletes the entry matching id along with its document.
func (svc *Service) Remove(ctx context.Context, id string) error {
	entry, err := svc.store.Pop(id)
	if err != nil {
		return err
	}
	if entry.Uploaded() {
		svc.discard(ctx, entry.Document.String)
	}
	return nil
}

// Open returns the document of the entry matching id.
// A pre-signed URL is preferred when the blob store supports it; the caller must close Body otherwise.
func (svc *Service) Open(ctx context.Context, id string) (Download, error) {
	entry, err := svc.store.Get(id)
	if err != nil {
		return Download{}, err
	}
	if !entry.Uploaded() {
		return Download{}, ErrNoDocument
	}
	key := entry.Document.String

	url, err := svc.blobs.PresignURL(ctx, key, svc.presignExpiry)
	switch {
	case err == nil:
		return Download{Entry: entry, URL: url}, nil
	case !errors.Is(err, core.ErrBlobUnsupported):
		return Download{}, errors.Wrap(err, "presigning document")
	}

	info, body, err := svc.blobs.Get(ctx, key)
	if err != nil {
		if errors.Is(err, core.ErrBlobNotFound) {
			return Download{}, ErrNoDocument
		}
		return Download{}, errors.Wrap(err, "opening document")
	}
	if info.ContentType == "" {
		info.ContentType = entry.ContentType.String
	}
	return Download{Entry: entry, Info: info, Body: body}, nil
}

func (svc *Service) allowed(mediaType string) bool {
	for _, t := range svc.upload.AllowedTypes {
		if strings.EqualFold(core.CleanString(t), mediaType) {
			return true
		}
	}
	return false
}

// discard deletes a blob nothing refers to anymore. Failures only leave an orphan behind.
func (svc *Service) discard(ctx context.Context, key string) {
	if _, err := svc.blobs.Delete(context.WithoutCancel(ctx), key); err != nil {
		svc.logger.Warn("schedule: discarding document "+key, err)
	}
}

func invalidDocument(err error, msg string) error {
	return core.NewValidationError(err, core.FieldError{Field: documentField, Error: msg})
}

func mediaType(contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return ""
	}
	return mt
}

func cleanFilename(name string) string {
	name = core.CleanString(name)
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	if name == "" {
		return "document"
	}
	return name
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (cr contextReader) Read(p []byte) (int, error) {
	if err := cr.ctx.Err(); err != nil {
		return 0, err
	}
	return cr.r.Read(p)
}
