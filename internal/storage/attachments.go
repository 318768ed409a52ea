package storage

import (
	"context"
	"io"
	"path"
	"strings"

	"prepchat/internal/nlog"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// AttachmentStore owns the binaries referenced by messages. Store returns an
// opaque ref kept on the message; Delete is best-effort and reports whether
// the binary is actually gone.
type AttachmentStore interface {
	Store(ctx context.Context, filename, contentType string, r io.Reader, size int64) (string, error)
	Delete(ctx context.Context, ref string) bool
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

type MinioStore struct {
	cfg    MinioConfig
	client *minio.Client
	logger nlog.Logger
}

func NewMinioStore(cfg MinioConfig, logger nlog.Logger) (*MinioStore, error) {
	cl, err := minio.New(strings.TrimPrefix(cfg.Endpoint, "http://"), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, err
	}
	return &MinioStore{cfg: cfg, client: cl, logger: logger}, nil
}

func (s *MinioStore) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.cfg.Bucket)
	if err != nil {
		return err
	}
	if !exists {
		return s.client.MakeBucket(ctx, s.cfg.Bucket, minio.MakeBucketOptions{})
	}
	return nil
}

func (s *MinioStore) Store(ctx context.Context, filename, contentType string, r io.Reader, size int64) (string, error) {
	key := uuid.New().String() + path.Ext(filename)
	_, err := s.client.PutObject(ctx, s.cfg.Bucket, key, r, size,
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return "", err
	}
	return key, nil
}

func (s *MinioStore) Delete(ctx context.Context, ref string) bool {
	err := s.client.RemoveObject(ctx, s.cfg.Bucket, ref, minio.RemoveObjectOptions{})
	if err != nil {
		s.logger.Logf("Best-effort attachment delete failed for %s: %v", ref, err)
		return false
	}
	return true
}
