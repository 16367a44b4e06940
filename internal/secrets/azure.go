package secrets

import (
	"context"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"

	"graphable/internal/domain"
)

// AzureBlobFetcher reads secret blobs from one storage account. Versions map
// to blob version IDs.
type AzureBlobFetcher struct {
	client *azblob.Client
}

var _ ObjectFetcher = (*AzureBlobFetcher)(nil)

// NewAzureBlobFetcher authenticates with an account shared key.
func NewAzureBlobFetcher(accountName, accountKey string) (*AzureBlobFetcher, error) {
	if accountName == "" || accountKey == "" {
		return nil, fmt.Errorf("azure account name and key are required")
	}
	cred, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, fmt.Errorf("create shared key credential: %w", err)
	}
	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", accountName)
	client, err := azblob.NewClientWithSharedKeyCredential(serviceURL, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("create Azure blob client: %w", err)
	}
	return &AzureBlobFetcher{client: client}, nil
}

// Fetch implements ObjectFetcher.
func (f *AzureBlobFetcher) Fetch(ctx context.Context, container, name, version string) (io.ReadCloser, error) {
	blobClient := f.client.ServiceClient().NewContainerClient(container).NewBlobClient(name)
	if version != "" {
		versioned, err := blobClient.WithVersionID(version)
		if err != nil {
			return nil, domain.ErrValidation("invalid blob version %q: %v", version, err)
		}
		blobClient = versioned
	}
	resp, err := blobClient.DownloadStream(ctx, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return nil, domain.ErrNotFound("secret blob %s/%s not found", container, name)
		}
		return nil, domain.ErrExecution(err, "download blob %s/%s", container, name)
	}
	return resp.Body, nil
}
