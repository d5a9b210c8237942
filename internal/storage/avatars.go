// Package storage holds avatar blobs in S3-compatible object storage.
package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ProgressFunc receives the fraction of the upload completed so far, in
// [0, 1]. It is called from the upload goroutine as bytes are consumed.
type ProgressFunc func(fraction float64)

// AvatarStore stores one avatar blob per uid and yields a reference URL.
type AvatarStore interface {
	Upload(ctx context.Context, uid string, r io.Reader, size int64, contentType string, progress ProgressFunc) (string, error)
}

// S3Store is the S3-compatible implementation. Works with MinIO via a custom
// endpoint and path-style addressing.
type S3Store struct {
	client   *s3.Client
	bucket   string
	endpoint string
}

// NewS3Store creates an S3-backed avatar store.
func NewS3Store(ctx context.Context, endpoint, region, bucket, accessKey, secretKey string) (*S3Store, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithBaseEndpoint(endpoint),
		awsconfig.WithCredentialsProvider(aws.CredentialsProviderFunc(
			func(ctx context.Context) (aws.Credentials, error) {
				return aws.Credentials{
					AccessKeyID:     accessKey,
					SecretAccessKey: secretKey,
				}, nil
			})),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
	})

	return &S3Store{client: client, bucket: bucket, endpoint: strings.TrimRight(endpoint, "/")}, nil
}

// Upload streams the avatar to the bucket under a per-uid key and returns the
// retrievable URL. One object per uid; a re-upload replaces the previous one.
func (s *S3Store) Upload(ctx context.Context, uid string, r io.Reader, size int64, contentType string, progress ProgressFunc) (string, error) {
	key := "avatars/" + uid

	body := io.Reader(r)
	if progress != nil && size > 0 {
		body = &progressReader{r: r, total: size, report: progress}
	}

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("put avatar: %w", err)
	}
	if progress != nil {
		progress(1.0)
	}

	return fmt.Sprintf("%s/%s/%s?v=%d", s.endpoint, s.bucket, key, time.Now().Unix()), nil
}

// progressReader reports fractional progress as the body is consumed.
type progressReader struct {
	r      io.Reader
	total  int64
	read   int64
	report ProgressFunc
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.read += int64(n)
		fraction := float64(p.read) / float64(p.total)
		if fraction > 1 {
			fraction = 1
		}
		p.report(fraction)
	}
	return n, err
}
