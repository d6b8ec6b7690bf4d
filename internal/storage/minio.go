package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/Build-Your-Web-2025/SafeCity/internal/config"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/sirupsen/logrus"
)

// PhotoStore - хранилище фотографий инцидентов на MinIO.
// Фотография опциональна: сбой загрузки не блокирует отправку инцидента.
type PhotoStore struct {
	client *minio.Client
	bucket string
	logger *logrus.Logger
}

// NewPhotoStore подключается к MinIO и создает бакет, если его нет
func NewPhotoStore(ctx context.Context, cfg *config.Config, log *logrus.Logger) (*PhotoStore, error) {
	client, err := minio.New(cfg.MinioEndpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.MinioAccessKey, cfg.MinioSecretKey, ""),
		Secure: cfg.MinioUseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.MinioBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to check bucket %s: %w", cfg.MinioBucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.MinioBucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.MinioBucket, err)
		}
		log.WithField("bucket", cfg.MinioBucket).Info("Created photo bucket")
	}

	return &PhotoStore{
		client: client,
		bucket: cfg.MinioBucket,
		logger: log,
	}, nil
}

// Upload сохраняет фотографию и возвращает URL для скачивания
func (s *PhotoStore) Upload(ctx context.Context, objectName string, r io.Reader, size int64, contentType string) (string, error) {
	_, err := s.client.PutObject(ctx, s.bucket, objectName, r, size, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload photo %s: %w", objectName, err)
	}

	url := fmt.Sprintf("%s/%s/%s", s.client.EndpointURL(), s.bucket, objectName)
	s.logger.WithField("object", objectName).Debug("Photo uploaded")
	return url, nil
}
