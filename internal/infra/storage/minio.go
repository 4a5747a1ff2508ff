package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Store keeps raw completion text in a MinIO/S3 bucket.
type Store struct {
	client     *minio.Client
	bucketName string
	region     string
	prefix     string
}

// New connects to MinIO and creates bucket when it does not exist yet.
func New(ctx context.Context, endpoint, region, bucket, accessKey, secretKey string, useSSL bool) (*Store, error) {
	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
		Region: region,
	})
	if err != nil {
		return nil, err
	}

	exists, err := cli.BucketExists(ctx, bucket)
	if err != nil {
		return nil, err
	}
	if !exists {
		if err := cli.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
			return nil, err
		}
	}

	return &Store{client: cli, bucketName: bucket, region: region, prefix: "llm-responses"}, nil
}

// Archive stores raw under the llm-responses prefix and returns the object URL.
func (s *Store) Archive(ctx context.Context, key string, raw []byte) (string, error) {
	objectKey := ObjectKey(s.prefix, key)
	_, err := s.client.PutObject(ctx, s.bucketName, objectKey, bytes.NewReader(raw), int64(len(raw)), minio.PutObjectOptions{
		ContentType: contentType(objectKey),
	})
	if err != nil {
		return "", fmt.Errorf("put %s: %w", objectKey, err)
	}

	// Private buckets need a presigned URL to read this back.
	return fmt.Sprintf("%s/%s/%s", s.client.EndpointURL().String(), s.bucketName, objectKey), nil
}

// ObjectKey joins the archive prefix and key without leading slashes.
func ObjectKey(prefix, key string) string {
	return path.Clean(path.Join(prefix, key))
}

func contentType(key string) string {
	switch path.Ext(key) {
	case ".json":
		return "application/json"
	case ".txt", ".md":
		return "text/plain; charset=utf-8"
	}
	return "application/octet-stream"
}
