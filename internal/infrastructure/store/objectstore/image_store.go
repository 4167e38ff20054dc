package objectstore

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"archdiagram/internal/domain/entity"
	"archdiagram/internal/domain/repository"
	"archdiagram/internal/infrastructure/metrics"
)

type Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
}

// ImageStore keeps rendered images in an S3-compatible bucket.
type ImageStore struct {
	client     *minio.Client
	bucketName string
	region     string
	prefix     string
	logger     *slog.Logger

	initOnce sync.Once
	initErr  error
}

var _ repository.ImageStore = (*ImageStore)(nil)

func NewImageStore(cfg Config, logger *slog.Logger) (*ImageStore, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("s3 endpoint is required")
	}
	access := strings.TrimSpace(cfg.AccessKey)
	secret := strings.TrimSpace(cfg.SecretKey)
	if access == "" || secret == "" {
		return nil, fmt.Errorf("s3 access key and secret key are required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(access, secret, ""),
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init s3 client: %w", err)
	}

	return &ImageStore{
		client:     client,
		bucketName: bucket,
		region:     region,
		prefix:     normalizePrefix(cfg.Prefix),
		logger:     logger,
	}, nil
}

func (s *ImageStore) ensureBucket(ctx context.Context) error {
	s.initOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucketName)
		if err != nil {
			s.initErr = err
			return
		}
		if exists {
			return
		}
		s.initErr = s.client.MakeBucket(ctx, s.bucketName, minio.MakeBucketOptions{Region: s.region})
	})
	return s.initErr
}

// Publish uploads the rendered file and removes the local copy.
func (s *ImageStore) Publish(ctx context.Context, localPath string) (string, error) {
	metrics.IncImageOp("s3", "publish")

	if err := s.ensureBucket(ctx); err != nil {
		metrics.IncError("image_store", "ensure_bucket")
		return "", fmt.Errorf("ensure bucket: %w", err)
	}

	name := filepath.Base(localPath)
	_, err := s.client.FPutObject(ctx, s.bucketName, s.objectKey(name), localPath, minio.PutObjectOptions{
		ContentType: "image/png",
	})
	if err != nil {
		metrics.IncError("image_store", "put_object")
		return "", fmt.Errorf("upload image %s: %w", name, err)
	}

	if err := os.Remove(localPath); err != nil && !os.IsNotExist(err) {
		s.logger.Warn("remove local image after upload failed", "path", localPath, "err", err)
	}
	return name, nil
}

func (s *ImageStore) Open(ctx context.Context, name string) (io.ReadCloser, int64, error) {
	metrics.IncImageOp("s3", "open")

	if err := validName(name); err != nil {
		return nil, 0, err
	}
	obj, err := s.client.GetObject(ctx, s.bucketName, s.objectKey(name), minio.GetObjectOptions{})
	if err != nil {
		return nil, 0, s.mapError(name, err)
	}
	info, err := obj.Stat()
	if err != nil {
		_ = obj.Close()
		return nil, 0, s.mapError(name, err)
	}
	return obj, info.Size, nil
}

func (s *ImageStore) Delete(ctx context.Context, name string) error {
	metrics.IncImageOp("s3", "delete")

	if err := validName(name); err != nil {
		return err
	}
	if err := s.client.RemoveObject(ctx, s.bucketName, s.objectKey(name), minio.RemoveObjectOptions{}); err != nil {
		return s.mapError(name, err)
	}
	return nil
}

func (s *ImageStore) List(ctx context.Context) ([]string, error) {
	if err := s.ensureBucket(ctx); err != nil {
		return nil, fmt.Errorf("ensure bucket: %w", err)
	}

	names := make([]string, 0, 32)
	for obj := range s.client.ListObjects(ctx, s.bucketName, minio.ListObjectsOptions{
		Prefix:    s.prefix,
		Recursive: true,
	}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		if obj.Key == "" {
			continue
		}
		names = append(names, strings.TrimPrefix(obj.Key, s.prefix))
	}
	sort.Strings(names)
	return names, nil
}

func (s *ImageStore) objectKey(name string) string {
	return s.prefix + name
}

func (s *ImageStore) mapError(name string, err error) error {
	code := minio.ToErrorResponse(err).Code
	if code == "NoSuchKey" || code == "NoSuchBucket" {
		return fmt.Errorf("image %s: %w", name, entity.ErrNotFound)
	}
	metrics.IncError("image_store", "s3")
	return fmt.Errorf("image %s: %w", name, err)
}

func validName(name string) error {
	if name == "" || filepath.Base(name) != name || !strings.HasSuffix(name, ".png") {
		return fmt.Errorf("%w: invalid image name %q", entity.ErrInvalidInput, name)
	}
	return nil
}

func normalizePrefix(prefix string) string {
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		return ""
	}
	return prefix + "/"
}
