// Package archive stores raw upstream payloads in S3-compatible object
// storage so a sync can be inspected or replayed later.
package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// objectPutter is the subset of *minio.Client used here, for testability.
type objectPutter interface {
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// IsConfigured reports whether enough is set to reach a bucket.
func (c Config) IsConfigured() bool {
	return c.Endpoint != "" && c.Bucket != ""
}

// Store writes payloads under {collection}/{timestamp}.json.
type Store struct {
	client objectPutter
	bucket string
	now    func() time.Time
}

// New connects to the object store and creates the bucket if needed.
func New(ctx context.Context, cfg Config) (*Store, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create object storage client: %w", err)
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
	return newStore(client, cfg.Bucket), nil
}

func newStore(client objectPutter, bucket string) *Store {
	return &Store{
		client: client,
		bucket: bucket,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Put uploads payload and returns the object key.
func (s *Store) Put(ctx context.Context, collection string, payload []byte) (string, error) {
	if len(payload) == 0 {
		return "", fmt.Errorf("empty %s payload", collection)
	}
	key := ObjectKey(collection, s.now())
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(payload), int64(len(payload)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return key, nil
}

// ObjectKey builds the key a payload for collection fetched at t is stored
// under.
func ObjectKey(collection string, t time.Time) string {
	return path.Join(collection, t.UTC().Format("20060102T150405.000000000Z")+".json")
}
