package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"imgbridge/internal/sanitize"
	"imgbridge/pkg/apperrors"
)

// S3Options configures an S3-compatible endpoint. Works against AWS S3,
// Cloudflare R2, and MinIO; B2 and Wasabi also speak this API through their
// S3 endpoints but are not special-cased.
type S3Options struct {
	Endpoint        string // host[:port], optionally with an http(s):// scheme
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Bucket          string
	PublicURL       string // public base URL the bucket is served from
	PathTemplate    string // storage-key template, see ExpandTemplate
}

type S3Store struct {
	client       *minio.Client
	bucket       string
	publicURL    string
	pathTemplate string
	now          func() time.Time
}

func NewS3Store(opts S3Options) (*S3Store, error) {
	endpoint := opts.Endpoint
	secure := true
	if strings.HasPrefix(endpoint, "http://") {
		endpoint = strings.TrimPrefix(endpoint, "http://")
		secure = false
	} else {
		endpoint = strings.TrimPrefix(endpoint, "https://")
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKeyID, opts.SecretAccessKey, ""),
		Secure: secure,
		Region: opts.Region,
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeUpstreamStorage, "storage client init failed")
	}

	tmpl := opts.PathTemplate
	if tmpl == "" {
		tmpl = "images/{year}/{month}/{day}/{filename}"
	}

	return &S3Store{
		client:       client,
		bucket:       opts.Bucket,
		publicURL:    strings.TrimRight(opts.PublicURL, "/"),
		pathTemplate: tmpl,
		now:          time.Now,
	}, nil
}

func (s *S3Store) Upload(ctx context.Context, in UploadInput) (*UploadOutput, error) {
	key := ExpandTemplateAt(s.pathTemplate, in.Filename, s.now())

	// Metadata travels as HTTP headers; values must stay printable ASCII.
	var meta map[string]string
	if len(in.Metadata) > 0 {
		meta = make(map[string]string, len(in.Metadata))
		for k, v := range in.Metadata {
			meta[k] = sanitize.Sanitize(v)
		}
	}

	info, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(in.Data), int64(len(in.Data)), minio.PutObjectOptions{
		ContentType:  in.ContentType,
		UserMetadata: meta,
	})
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeUpstreamStorage, "upload failed")
	}

	return &UploadOutput{
		Key:       key,
		PublicURL: fmt.Sprintf("%s/%s", s.publicURL, key),
		Size:      info.Size,
	}, nil
}

func (s *S3Store) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return apperrors.Wrap(err, apperrors.CodeUpstreamStorage, "delete failed")
	}
	return nil
}

func (s *S3Store) HealthCheck(ctx context.Context) error {
	ok, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeUpstreamStorage, "health check failed")
	}
	if !ok {
		return apperrors.Newf(apperrors.CodeUpstreamStorage, "bucket %q does not exist", s.bucket)
	}
	return nil
}
