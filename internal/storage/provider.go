package storage

import (
	"context"
	"fmt"
	"io"
)

type Object struct {
	Name string
	Size int64
}

// Provider abstracts the object storage service. The production
// implementation is S3Provider against MinIO; LocalProvider backs tests.
type Provider interface {
	// Ping reports whether the storage service is reachable.
	Ping(ctx context.Context) error

	// CreateBucket creates the bucket if it does not exist. Creating an
	// existing bucket is not an error.
	CreateBucket(ctx context.Context, bucket string) error

	// SetBucketPolicy applies an access policy document to the bucket.
	SetBucketPolicy(ctx context.Context, bucket, policy string) error

	PutObject(ctx context.Context, bucket, key string, data io.Reader) error

	GetObject(ctx context.Context, bucket, key string) ([]byte, error)

	ListObjects(ctx context.Context, bucket, prefix string) ([]Object, error)

	DeleteObjects(ctx context.Context, bucket, prefix string) error

	UploadDir(ctx context.Context, bucket, prefix, src string) error

	DownloadDir(ctx context.Context, bucket, prefix, dest string, overwrite bool) error
}

// PublicReadPolicy returns a bucket policy granting anonymous read access to
// every object in the bucket, matching what the monitoring service expects
// for serving stored report artifacts.
func PublicReadPolicy(bucket string) string {
	return fmt.Sprintf(`{
  "Version": "2012-10-17",
  "Statement": [
    {
      "Effect": "Allow",
      "Principal": {"AWS": ["*"]},
      "Action": ["s3:GetObject"],
      "Resource": ["arn:aws:s3:::%s/*"]
    }
  ]
}`, bucket)
}
