package secrets

import (
	"context"
	"errors"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"graphable/internal/domain"
)

// S3Config configures the S3 secret backend. Endpoint is optional and
// enables path-style addressing for S3-compatible stores.
type S3Config struct {
	Region   string
	Endpoint string
	KeyID    string
	Secret   string
}

// S3GetObjectAPI is the subset of *s3.Client used by S3Fetcher.
type S3GetObjectAPI interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Fetcher reads secret objects from S3. Versions map to S3 VersionId.
type S3Fetcher struct {
	client S3GetObjectAPI
}

var _ ObjectFetcher = (*S3Fetcher)(nil)

// NewS3Fetcher builds an S3 client from static credentials.
func NewS3Fetcher(cfg S3Config) *S3Fetcher {
	opts := s3.Options{
		Region:      cfg.Region,
		Credentials: credentials.NewStaticCredentialsProvider(cfg.KeyID, cfg.Secret, ""),
	}
	if cfg.KeyID == "" {
		opts.Credentials = aws.AnonymousCredentials{}
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
		opts.UsePathStyle = true
	}
	return &S3Fetcher{client: s3.New(opts)}
}

// NewS3FetcherWithClient wraps an existing client.
func NewS3FetcherWithClient(client S3GetObjectAPI) *S3Fetcher {
	return &S3Fetcher{client: client}
}

// Fetch implements ObjectFetcher.
func (f *S3Fetcher) Fetch(ctx context.Context, bucket, key, version string) (io.ReadCloser, error) {
	in := &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}
	if version != "" {
		in.VersionId = aws.String(version)
	}
	out, err := f.client.GetObject(ctx, in)
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, domain.ErrNotFound("secret object s3://%s/%s not found", bucket, key)
		}
		return nil, domain.ErrExecution(err, "get s3://%s/%s", bucket, key)
	}
	return out.Body, nil
}
