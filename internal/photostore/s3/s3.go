// Package s3 stores photos in an S3-compatible bucket such as MinIO.
package s3

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/semanadefe/semanadefe/internal/photostore"
)

type Config struct {
	Endpoint   string
	AccessKey  string
	SecretKey  string
	Bucket     string
	UseSSL     bool
	PublicHost string // host used in public URLs; defaults to Endpoint
}

// S3PhotoStore keeps photos as objects in a public-read bucket.
type S3PhotoStore struct {
	client     *minio.Client
	bucket     string
	publicBase string
}

func NewS3PhotoStore(ctx context.Context, cfg Config) (*S3PhotoStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create s3 client: %w", err)
	}

	s := &S3PhotoStore{
		client:     client,
		bucket:     cfg.Bucket,
		publicBase: publicBase(cfg),
	}
	if err := s.ensureBucket(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

func publicBase(cfg Config) string {
	host := cfg.PublicHost
	if host == "" {
		host = cfg.Endpoint
	}
	scheme := "http"
	if cfg.UseSSL {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s", scheme, strings.TrimSuffix(host, "/"), cfg.Bucket)
}

func readPolicy(bucket string) string {
	return fmt.Sprintf(`{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},"Action":["s3:GetObject"],"Resource":["arn:aws:s3:::%s/*"]}]}`, bucket)
}

// ensureBucket creates the bucket on first use and makes its objects
// publicly readable so stored URLs resolve without credentials.
func (s *S3PhotoStore) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", s.bucket, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", s.bucket, err)
		}
		slog.Info("created photo bucket", "bucket", s.bucket)
	}
	if err := s.client.SetBucketPolicy(ctx, s.bucket, readPolicy(s.bucket)); err != nil {
		return fmt.Errorf("failed to set bucket policy: %w", err)
	}
	return nil
}

func (s *S3PhotoStore) Put(ctx context.Context, key, mimeType string, r io.Reader, size int64) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, minio.PutObjectOptions{ContentType: mimeType})
	if err != nil {
		return fmt.Errorf("failed to upload photo: %w", err)
	}
	return nil
}

func (s *S3PhotoStore) Get(ctx context.Context, key string) (io.ReadCloser, string, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, "", fmt.Errorf("failed to get photo: %w", err)
	}
	info, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, "", photostore.ErrNotFound
		}
		return nil, "", fmt.Errorf("failed to stat photo: %w", err)
	}
	mimeType := info.ContentType
	if mimeType == "" {
		mimeType = photostore.MIMEForKey(key)
	}
	return obj, mimeType, nil
}

func (s *S3PhotoStore) Delete(ctx context.Context, key string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete photo: %w", err)
	}
	return nil
}

func (s *S3PhotoStore) URL(key string) string {
	return s.publicBase + "/" + strings.TrimPrefix(key, "/")
}
