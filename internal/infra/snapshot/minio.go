package snapshot

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/yanqian/searchcal/internal/domain/search"
)

// MinioSource reads and writes row snapshots in an S3-compatible bucket
// (MinIO, Cloudflare R2, AWS S3).
type MinioSource struct {
	client *minio.Client
	bucket string
	logger *slog.Logger
}

// NewMinioSource constructs the snapshot adapter.
func NewMinioSource(endpoint, accessKey, secretKey, bucket, region string, logger *slog.Logger) (*MinioSource, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if strings.TrimSpace(bucket) == "" {
		return nil, fmt.Errorf("snapshot bucket is required")
	}
	useSSL := strings.HasPrefix(strings.ToLower(strings.TrimSpace(endpoint)), "https")
	client, err := minio.New(sanitizeEndpoint(endpoint), &minio.Options{
		Creds:        credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure:       useSSL,
		Region:       region,
		BucketLookup: minio.BucketLookupPath,
	})
	if err != nil {
		return nil, fmt.Errorf("init snapshot client: %w", err)
	}
	return &MinioSource{client: client, bucket: bucket, logger: logger.With("component", "snapshot.minio")}, nil
}

// Load fetches the object and decodes its rows.
func (s *MinioSource) Load(ctx context.Context, key string) ([]search.Row, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()
	// GetObject is lazy; Stat surfaces a missing object before decoding.
	info, err := obj.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", key, err)
	}
	rows, err := Decode(obj, FormatFor(key))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", key, err)
	}
	s.logger.Info("snapshot loaded", "bucket", s.bucket, "key", key, "bytes", info.Size, "rows", len(rows))
	return rows, nil
}

// Save uploads rows as a snapshot object.
func (s *MinioSource) Save(ctx context.Context, key string, rows []search.Row) error {
	if err := s.ensureBucket(ctx); err != nil {
		return err
	}
	var buf bytes.Buffer
	format := FormatFor(key)
	if err := Encode(&buf, rows, format); err != nil {
		return err
	}
	contentType := "application/json"
	if format == FormatJSONL {
		contentType = "application/x-ndjson"
	}
	size := int64(buf.Len())
	_, err := s.client.PutObject(ctx, s.bucket, key, &buf, size, minio.PutObjectOptions{
		ContentType:      contentType,
		DisableMultipart: size < 5*1024*1024,
	})
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	s.logger.Info("snapshot saved", "bucket", s.bucket, "key", key, "rows", len(rows))
	return nil
}

func (s *MinioSource) ensureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err == nil && exists {
		return nil
	}
	err = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{})
	if err != nil && minio.ToErrorResponse(err).Code != "BucketAlreadyOwnedByYou" {
		return err
	}
	return nil
}

// sanitizeEndpoint removes schemes and paths to satisfy minio.New expectations.
func sanitizeEndpoint(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return raw
	}
	raw = strings.TrimPrefix(strings.TrimPrefix(raw, "https://"), "http://")
	if i := strings.Index(raw, "/"); i >= 0 {
		raw = raw[:i]
	}
	return raw
}
