package secrets

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"graphable/internal/domain"
)

// GCSFetcher reads secret objects from Google Cloud Storage. Versions are
// object generation numbers.
type GCSFetcher struct {
	client *storage.Client
}

var _ ObjectFetcher = (*GCSFetcher)(nil)

// NewGCSFetcher creates a client from a service account key file, or from
// application default credentials when credentialsFile is empty.
func NewGCSFetcher(ctx context.Context, credentialsFile string) (*GCSFetcher, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithAuthCredentialsFile(option.ServiceAccount, credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create GCS client: %w", err)
	}
	return &GCSFetcher{client: client}, nil
}

// Fetch implements ObjectFetcher.
func (f *GCSFetcher) Fetch(ctx context.Context, bucket, key, version string) (io.ReadCloser, error) {
	obj := f.client.Bucket(bucket).Object(key)
	if version != "" {
		gen, err := ParseGeneration(version)
		if err != nil {
			return nil, err
		}
		obj = obj.Generation(gen)
	}
	r, err := obj.NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) || errors.Is(err, storage.ErrBucketNotExist) {
			return nil, domain.ErrNotFound("secret object gs://%s/%s not found", bucket, key)
		}
		return nil, domain.ErrExecution(err, "read gs://%s/%s", bucket, key)
	}
	return r, nil
}

// Close releases the client.
func (f *GCSFetcher) Close() error {
	return f.client.Close()
}

// ParseGeneration parses a GCS generation number.
func ParseGeneration(version string) (int64, error) {
	gen, err := strconv.ParseInt(version, 10, 64)
	if err != nil || gen <= 0 {
		return 0, domain.ErrValidation("gcs secret version must be a positive generation number, got %q", version)
	}
	return gen, nil
}
