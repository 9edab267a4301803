package blob

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/pkg/errors"

	"github.com/trezcool/madrasa/core"
)

// S3Config configures an S3Store. Credentials come from the default AWS chain
// (AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY, shared config, ...).
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string // e.g. a MinIO server
	PathStyle bool
}

// S3Store keeps blobs in a single S3 (or S3 compatible) bucket.
type S3Store struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
}

var _ core.BlobStore = (*S3Store)(nil)

func NewS3Store(ctx context.Context, conf S3Config, optFns ...func(*config.LoadOptions) error) (*S3Store, error) {
	if conf.Bucket == "" {
		return nil, errors.New("s3 bucket required")
	}
	region := conf.Region
	if region == "" {
		region = "us-east-1"
	}
	awsConf, err := config.LoadDefaultConfig(ctx, append([]func(*config.LoadOptions) error{config.WithRegion(region)}, optFns...)...)
	if err != nil {
		return nil, errors.Wrap(err, "loading aws config")
	}
	client := s3.NewFromConfig(awsConf, func(o *s3.Options) {
		o.UsePathStyle = conf.PathStyle
		if conf.Endpoint != "" {
			o.BaseEndpoint = aws.String(conf.Endpoint)
		}
	})
	return &S3Store{client: client, presign: s3.NewPresignClient(client), bucket: conf.Bucket}, nil
}

func (s *S3Store) Driver() core.BlobDriver { return core.BlobDriverS3 }

func (s *S3Store) Put(ctx context.Context, key string, r io.Reader, opts core.PutOptions) (core.BlobInfo, error) {
	// create-only: refuse to overwrite an existing object
	if _, err := s.Head(ctx, key); err == nil {
		return core.BlobInfo{}, errors.Wrap(core.ErrBlobExists, key)
	} else if !errors.Is(err, core.ErrBlobNotFound) {
		return core.BlobInfo{}, err
	}

	// the SDK needs a seekable body to sign the payload
	body, ok := r.(io.ReadSeeker)
	if !ok {
		b, err := io.ReadAll(r)
		if err != nil {
			return core.BlobInfo{}, errors.Wrap(err, "reading blob")
		}
		body = bytes.NewReader(b)
	}

	input := &s3.PutObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key), Body: body}
	if opts.ContentType != "" {
		input.ContentType = aws.String(opts.ContentType)
	}
	if len(opts.Metadata) > 0 {
		input.Metadata = cloneMetadata(opts.Metadata)
	}
	if _, err := s.client.PutObject(ctx, input); err != nil {
		return core.BlobInfo{}, errors.Wrap(err, "putting object")
	}
	return s.Head(ctx, key)
}

func (s *S3Store) Get(ctx context.Context, key string) (core.BlobInfo, io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)})
	if err != nil {
		return core.BlobInfo{}, nil, s3Error(err, key)
	}
	info := blobInfo(key, out.ContentLength, out.ContentType, out.ETag, out.Metadata, out.LastModified)
	return info, out.Body, nil
}

func (s *S3Store) Head(ctx context.Context, key string) (core.BlobInfo, error) {
	out, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)})
	if err != nil {
		return core.BlobInfo{}, s3Error(err, key)
	}
	return blobInfo(key, out.ContentLength, out.ContentType, out.ETag, out.Metadata, out.LastModified), nil
}

func (s *S3Store) Delete(ctx context.Context, key string) (bool, error) {
	if _, err := s.Head(ctx, key); err != nil {
		if errors.Is(err, core.ErrBlobNotFound) {
			return false, nil
		}
		return false, err
	}
	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)}); err != nil {
		return false, errors.Wrap(err, "deleting object")
	}
	return true, nil
}

func (s *S3Store) PresignURL(ctx context.Context, key string, expiry time.Duration) (string, error) {
	if expiry <= 0 {
		expiry = 15 * time.Minute
	}
	req, err := s.presign.PresignGetObject(
		ctx,
		&s3.GetObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)},
		func(o *s3.PresignOptions) { o.Expires = expiry },
	)
	if err != nil {
		return "", errors.Wrap(err, "presigning object")
	}
	return req.URL, nil
}

func blobInfo(key string, size *int64, contentType, etag *string, md map[string]string, lastModified *time.Time) core.BlobInfo {
	info := core.BlobInfo{
		Key:          key,
		Size:         aws.ToInt64(size),
		ContentType:  aws.ToString(contentType),
		ETag:         strings.Trim(aws.ToString(etag), `"`),
		Metadata:     md,
		LastModified: aws.ToTime(lastModified),
	}
	if info.LastModified.IsZero() {
		info.LastModified = time.Now().UTC()
	}
	return info
}

func s3Error(err error, key string) error {
	var (
		noKey    *types.NoSuchKey
		notFound *types.NotFound
		respErr  *awshttp.ResponseError
	)
	if errors.As(err, &noKey) || errors.As(err, &notFound) {
		return errors.Wrap(core.ErrBlobNotFound, key)
	}
	if errors.As(err, &respErr) && respErr.HTTPStatusCode() == http.StatusNotFound {
		return errors.Wrap(core.ErrBlobNotFound, key)
	}
	return errors.Wrap(err, key)
}
