package secrets

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	"graphable/internal/domain"
)

// maxPayloadBytes bounds how much of a secret object is read.
const maxPayloadBytes = 64 << 10

// ObjectFetcher reads one object version from a bucket-style store. An empty
// version means the current version.
type ObjectFetcher interface {
	Fetch(ctx context.Context, bucket, key, version string) (io.ReadCloser, error)
}

// ObjectProvider reads payloads stored as objects. VaultURL names the
// bucket (optionally as scheme://bucket/prefix) and SecretName the object
// key under it.
type ObjectProvider struct {
	scheme  string
	fetcher ObjectFetcher
}

var _ domain.SecretProvider = (*ObjectProvider)(nil)

// NewObjectProvider creates a provider that accepts VaultURLs with the
// given scheme (for example "s3") or bare bucket names.
func NewObjectProvider(scheme string, f ObjectFetcher) *ObjectProvider {
	return &ObjectProvider{scheme: scheme, fetcher: f}
}

// GetSecret fetches and returns the object's body, trimmed of surrounding
// whitespace.
func (p *ObjectProvider) GetSecret(ctx context.Context, ref domain.SecretReference) (string, error) {
	bucket, key, err := ObjectLocation(p.scheme, ref.VaultURL, ref.SecretName)
	if err != nil {
		return "", domain.ErrValidation("%v", err)
	}
	body, err := p.fetcher.Fetch(ctx, bucket, key, ref.Version)
	if err != nil {
		return "", err
	}
	defer body.Close() //nolint:errcheck

	data, err := io.ReadAll(io.LimitReader(body, maxPayloadBytes+1))
	if err != nil {
		return "", domain.ErrExecution(err, "read secret %q", ref.SecretName)
	}
	if len(data) > maxPayloadBytes {
		return "", domain.ErrValidation("secret %q exceeds %d bytes", ref.SecretName, maxPayloadBytes)
	}
	return strings.TrimSpace(string(data)), nil
}

// ObjectLocation splits vaultURL into a bucket and key prefix and joins the
// secret name onto the prefix. vaultURL may be "scheme://bucket/prefix",
// "bucket/prefix" or "bucket".
func ObjectLocation(scheme, vaultURL, secretName string) (bucket, key string, err error) {
	if secretName == "" {
		return "", "", fmt.Errorf("secret name is required")
	}
	var prefix string
	if strings.Contains(vaultURL, "://") {
		u, err := url.Parse(vaultURL)
		if err != nil {
			return "", "", fmt.Errorf("parse vault URL %q: %w", vaultURL, err)
		}
		if u.Scheme != scheme {
			return "", "", fmt.Errorf("expected %s:// vault URL, got %q", scheme, vaultURL)
		}
		bucket, prefix = u.Host, u.Path
	} else {
		bucket, prefix, _ = strings.Cut(vaultURL, "/")
	}
	if bucket == "" {
		return "", "", fmt.Errorf("vault URL %q has no bucket", vaultURL)
	}
	key = strings.TrimPrefix(path.Join(strings.Trim(prefix, "/"), secretName), "/")
	return bucket, key, nil
}
