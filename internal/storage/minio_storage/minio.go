package minio_storage

import (
	"context"
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/ShaanSolanki/lms/internal/config"
)

type MinioStorage struct {
	client *minio.Client
}

func NewMinioStorage(endpoint, accessKey, secretKey string, useSSL bool) (*MinioStorage, error) {
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: useSSL,
	})
	if err != nil {
		return nil, err
	}
	return &MinioStorage{client: client}, nil
}

// Bucket returns the object store for bc, creating the bucket when it does not exist yet.
func (s *MinioStorage) Bucket(ctx context.Context, bc config.BucketConfig) (*ObjectStore, error) {
	exists, err := s.client.BucketExists(ctx, bc.Name)
	if err != nil {
		return nil, fmt.Errorf("error checking bucket %s: %w", bc.Name, err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, bc.Name, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("error creating bucket %s: %w", bc.Name, err)
		}
	}
	return &ObjectStore{client: s.client, bucket: bc.Name, presignTTL: bc.PresignTTL}, nil
}
