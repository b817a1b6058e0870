// Package s3 keeps menu item images in an S3-compatible bucket (MinIO,
// Supabase storage, AWS).
package s3

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/vbonduro/platos/internal/imagestore"
)

const cacheControl = "max-age=3600"

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	// PublicURL is the browser-facing base for objects. Defaults to the
	// endpoint itself.
	PublicURL string
}

type S3ImageStore struct {
	client  *minio.Client
	bucket  string
	baseURL string
}

func NewS3ImageStore(cfg Config) (*S3ImageStore, error) {
	host, secure := splitEndpoint(cfg.Endpoint, cfg.UseSSL)
	if host == "" {
		return nil, fmt.Errorf("storage endpoint is not configured")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage bucket is not configured")
	}

	client, err := minio.New(host, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage client: %w", err)
	}

	public := cfg.PublicURL
	if public == "" {
		scheme := "http"
		if secure {
			scheme = "https"
		}
		public = scheme + "://" + host
	}

	return &S3ImageStore{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: strings.TrimRight(public, "/") + "/" + cfg.Bucket,
	}, nil
}

// EnsureBucket creates the bucket when it does not exist yet.
func (s *S3ImageStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", s.bucket, err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
	}
	return nil
}

func (s *S3ImageStore) Put(ctx context.Context, key, contentType string, r io.Reader, size int64) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: cacheControl,
	})
	if err != nil {
		return fmt.Errorf("failed to upload object %s: %w", key, err)
	}
	return nil
}

func (s *S3ImageStore) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, "", fmt.Errorf("failed to get object %s: %w", key, err)
	}
	info, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		if isNoSuchKey(err) {
			return nil, "", imagestore.ErrNotFound
		}
		return nil, "", fmt.Errorf("failed to stat object %s: %w", key, err)
	}
	return obj, info.ContentType, nil
}

// Delete removes key. S3 deletes are idempotent, so the object is checked
// first to report missing keys.
func (s *S3ImageStore) Delete(ctx context.Context, key string) error {
	if _, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err != nil {
		if isNoSuchKey(err) {
			return imagestore.ErrNotFound
		}
		return fmt.Errorf("failed to stat object %s: %w", key, err)
	}
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to remove object %s: %w", key, err)
	}
	return nil
}

func (s *S3ImageStore) URL(key string) string {
	return s.baseURL + "/" + url.PathEscape(key)
}

func (s *S3ImageStore) KeyFromURL(rawURL string) (string, bool) {
	return imagestore.KeyFromURL(s.baseURL, rawURL)
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}

// splitEndpoint accepts either host[:port] or a full URL. A URL scheme
// overrides useSSL.
func splitEndpoint(endpoint string, useSSL bool) (string, bool) {
	if !strings.Contains(endpoint, "://") {
		return strings.TrimRight(endpoint, "/"), useSSL
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", useSSL
	}
	return u.Host, u.Scheme == "https"
}
