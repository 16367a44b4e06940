package secrets

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphable/internal/cache"
	internaldb "graphable/internal/db"
	"graphable/internal/db/crypto"
	"graphable/internal/db/repository"
	"graphable/internal/domain"
)

const testKey = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

type countingProvider struct {
	payload string
	err     error
	calls   int
}

func (p *countingProvider) GetSecret(_ context.Context, _ domain.SecretReference) (string, error) {
	p.calls++
	return p.payload, p.err
}

func newLocalProvider(t *testing.T) *LocalProvider {
	t.Helper()
	store := internaldb.OpenTestStore(t)
	sealer, err := crypto.NewSealer(testKey)
	require.NoError(t, err)
	return NewLocalProvider(repository.NewSecretStoreRepo(store.Write), sealer)
}

func TestLocalProvider_PutAndGet(t *testing.T) {
	p := newLocalProvider(t)
	ctx := context.Background()
	ref := domain.SecretReference{Provider: domain.SecretProviderLocal, SecretName: "wh"}

	v1, err := p.PutSecret(ctx, ref, `{"host":"a"}`)
	require.NoError(t, err)
	require.NotEmpty(t, v1)
	time.Sleep(time.Millisecond)
	v2, err := p.PutSecret(ctx, ref, `{"host":"b"}`)
	require.NoError(t, err)
	assert.NotEqual(t, v1, v2)

	latest, err := p.GetSecret(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, `{"host":"b"}`, latest)

	ref.Version = v1
	old, err := p.GetSecret(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, `{"host":"a"}`, old)

	_, err = p.GetSecret(ctx, domain.SecretReference{SecretName: "missing"})
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestEnvProvider(t *testing.T) {
	env := map[string]string{"WAREHOUSE_CREDS": "payload", "PROD_DB_CREDS": "prod"}
	p := NewEnvProvider(func(k string) (string, bool) { v, ok := env[k]; return v, ok })
	ctx := context.Background()

	got, err := p.GetSecret(ctx, domain.SecretReference{SecretName: "warehouse-creds"})
	require.NoError(t, err)
	assert.Equal(t, "payload", got)

	got, err = p.GetSecret(ctx, domain.SecretReference{VaultURL: "prod", SecretName: "db.creds"})
	require.NoError(t, err)
	assert.Equal(t, "prod", got)

	_, err = p.GetSecret(ctx, domain.SecretReference{SecretName: "nope"})
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestRouter(t *testing.T) {
	r := NewRouter()
	env := &countingProvider{payload: "from-env"}
	r.Register(domain.SecretProviderEnv, env)
	assert.True(t, r.Registered(domain.SecretProviderEnv))

	got, err := r.GetSecret(context.Background(), domain.SecretReference{Provider: domain.SecretProviderEnv, SecretName: "x"})
	require.NoError(t, err)
	assert.Equal(t, "from-env", got)

	_, err = r.GetSecret(context.Background(), domain.SecretReference{Provider: domain.SecretProviderGCS, SecretName: "x"})
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestCachedProvider(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c, err := cache.New[string, string](16, 5*time.Minute, cache.WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	next := &countingProvider{payload: "p1"}
	p := NewCachedProvider(next, c)
	ctx := context.Background()
	ref := domain.SecretReference{Provider: "local", SecretName: "wh", Version: "v1"}

	for i := 0; i < 3; i++ {
		got, err := p.GetSecret(ctx, ref)
		require.NoError(t, err)
		assert.Equal(t, "p1", got)
	}
	assert.Equal(t, 1, next.calls)

	now = now.Add(5 * time.Minute)
	_, err = p.GetSecret(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, 2, next.calls, "expired entry refetched")

	other := ref
	other.Version = "v2"
	p.Prime(other, "primed")
	got, err := p.GetSecret(ctx, other)
	require.NoError(t, err)
	assert.Equal(t, "primed", got)
	assert.Equal(t, 2, next.calls)

	p.Invalidate(ref)
	next.err = errors.New("backend down")
	_, err = p.GetSecret(ctx, ref)
	require.Error(t, err)
	_, ok := c.Get(ref.CacheKey())
	assert.False(t, ok, "failures are not cached")
}

func TestObjectLocation(t *testing.T) {
	tests := []struct {
		name       string
		vaultURL   string
		secret     string
		wantBucket string
		wantKey    string
		wantErr    bool
	}{
		{"bare bucket", "secrets", "wh.json", "secrets", "wh.json", false},
		{"bucket with prefix", "secrets/prod/", "wh.json", "secrets", "prod/wh.json", false},
		{"scheme url", "s3://secrets/prod", "wh.json", "secrets", "prod/wh.json", false},
		{"wrong scheme", "gs://secrets", "wh.json", "", "", true},
		{"no bucket", "", "wh.json", "", "", true},
		{"no name", "secrets", "", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bucket, key, err := ObjectLocation("s3", tt.vaultURL, tt.secret)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantBucket, bucket)
			assert.Equal(t, tt.wantKey, key)
		})
	}
}

type fakeS3 struct {
	in   *s3.GetObjectInput
	body string
	err  error
}

func (f *fakeS3) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.in = in
	if f.err != nil {
		return nil, f.err
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(f.body))}, nil
}

func TestS3Provider(t *testing.T) {
	api := &fakeS3{body: "  postgres://u:p@db/app \n"}
	p := NewObjectProvider("s3", NewS3FetcherWithClient(api))

	got, err := p.GetSecret(context.Background(), domain.SecretReference{
		Provider:   domain.SecretProviderS3,
		VaultURL:   "s3://vault/tenants",
		SecretName: "acme.json",
		Version:    "3HL4kqtJ",
	})
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@db/app", got)
	assert.Equal(t, "vault", *api.in.Bucket)
	assert.Equal(t, "tenants/acme.json", *api.in.Key)
	assert.Equal(t, "3HL4kqtJ", *api.in.VersionId)

	api.err = &types.NoSuchKey{}
	_, err = p.GetSecret(context.Background(), domain.SecretReference{VaultURL: "vault", SecretName: "gone"})
	var nf *domain.NotFoundError
	require.ErrorAs(t, err, &nf)

	api.err = errors.New("throttled")
	_, err = p.GetSecret(context.Background(), domain.SecretReference{VaultURL: "vault", SecretName: "x"})
	var ee *domain.ExecutionError
	require.ErrorAs(t, err, &ee)
}

func TestObjectProvider_SizeLimit(t *testing.T) {
	api := &fakeS3{body: strings.Repeat("x", maxPayloadBytes+1)}
	p := NewObjectProvider("s3", NewS3FetcherWithClient(api))
	_, err := p.GetSecret(context.Background(), domain.SecretReference{VaultURL: "vault", SecretName: "big"})
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
}

func TestParseGeneration(t *testing.T) {
	gen, err := ParseGeneration("1700000000123456")
	require.NoError(t, err)
	assert.Equal(t, int64(1700000000123456), gen)

	_, err = ParseGeneration("latest")
	require.Error(t, err)
}

func TestNewAzureBlobFetcher_RequiresKey(t *testing.T) {
	_, err := NewAzureBlobFetcher("account", "")
	require.Error(t, err)
}
