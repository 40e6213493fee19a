package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/feastro/apiserver/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinioClient stores videos in a MinIO (or any S3-compatible) bucket.
type MinioClient struct {
	client     *minio.Client
	bucket     string
	publicRead bool
}

func NewMinioClient(cfg config.MinioConfig) (*MinioClient, error) {
	switch {
	case strings.TrimSpace(cfg.Endpoint) == "":
		return nil, errors.New("minio endpoint is required")
	case cfg.AccessKey == "" || cfg.SecretKey == "":
		return nil, errors.New("minio access key and secret key are required")
	case strings.TrimSpace(cfg.Bucket) == "":
		return nil, errors.New("minio bucket is required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}
	return &MinioClient{client: client, bucket: cfg.Bucket, publicRead: cfg.PublicRead}, nil
}

// EnsureBucket creates the bucket when missing and, if configured, opens
// the videos/ prefix to anonymous reads.
func (m *MinioClient) EnsureBucket(ctx context.Context) error {
	exists, err := m.client.BucketExists(ctx, m.bucket)
	if err != nil {
		return err
	}
	if !exists {
		if err := m.client.MakeBucket(ctx, m.bucket, minio.MakeBucketOptions{}); err != nil {
			return err
		}
	}
	if !m.publicRead {
		return nil
	}
	if err := m.client.SetBucketPolicy(ctx, m.bucket, publicReadPolicy(m.bucket, "videos/")); err != nil {
		return fmt.Errorf("set bucket policy: %w", err)
	}
	return nil
}

// Put uploads r in multipart chunks. size may be -1 when unknown.
func (m *MinioClient) Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := m.client.PutObject(ctx, m.bucket, key, r, size, minio.PutObjectOptions{
		ContentType:  contentType,
		CacheControl: immutableCacheControl,
		PartSize:     partSize,
	})
	return err
}

func (m *MinioClient) Delete(ctx context.Context, key string) error {
	return m.client.RemoveObject(ctx, m.bucket, key, minio.RemoveObjectOptions{})
}

// URL returns the path-style object URL on the MinIO endpoint.
func (m *MinioClient) URL(key string) string {
	endpoint := m.client.EndpointURL()
	return (&url.URL{
		Scheme: endpoint.Scheme,
		Host:   endpoint.Host,
		Path:   "/" + m.bucket + "/" + strings.TrimLeft(key, "/"),
	}).String()
}

func (m *MinioClient) Bucket() string { return m.bucket }

func publicReadPolicy(bucket, prefix string) string {
	return fmt.Sprintf(`{"Version":"2012-10-17","Statement":[{"Effect":"Allow","Principal":{"AWS":["*"]},"Action":["s3:GetObject"],"Resource":["arn:aws:s3:::%s/%s*"]}]}`, bucket, prefix)
}
