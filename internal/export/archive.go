package export

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Archiver keeps a copy of every generated export.
type Archiver interface {
	Archive(ctx context.Context, date time.Time, result *Result) error
}

// MinioConfig holds the object storage connection settings.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// MinioArchiver uploads exports to a MinIO or S3 bucket.
type MinioArchiver struct {
	client *minio.Client
	bucket string
}

// NewMinioArchiver connects and makes sure the bucket exists.
func NewMinioArchiver(ctx context.Context, cfg MinioConfig) (*MinioArchiver, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}

	exists, err := client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.Bucket, err)
		}
	}
	return &MinioArchiver{client: client, bucket: cfg.Bucket}, nil
}

// ObjectKey is where an export generated on date is stored.
func ObjectKey(date time.Time, filename string) string {
	return path.Join("exports", date.Format("2006-01-02"), filename)
}

func (a *MinioArchiver) Archive(ctx context.Context, date time.Time, result *Result) error {
	key := ObjectKey(date, result.Filename)
	_, err := a.client.PutObject(ctx, a.bucket, key, bytes.NewReader(result.Data), int64(len(result.Data)), minio.PutObjectOptions{
		ContentType: result.MimeType,
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", key, err)
	}
	return nil
}
