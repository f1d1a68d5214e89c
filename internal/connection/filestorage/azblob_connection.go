package connfilestorage

import (
	"fmt"
	"os"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/tizianocitro/blobquickstart/internal/connection"
	"github.com/tizianocitro/blobquickstart/pkg/filestorage"
)

// CreateAzBlobConnection creates an AzBlobClient. Credentials are checked by the first request.
// endpoint overrides the public blob endpoint (https://<account>.blob.core.windows.net)
// for credential based connections; it is ignored with a connection string.
func CreateAzBlobConnection(endpoint string, config *connection.AuthConfig, opts ...filestorage.Option) (*filestorage.AzBlobClient, error) {
	if config == nil {
		return nil, fmt.Errorf("AuthConfig cannot be nil")
	}
	if endpoint == "default" {
		endpoint = ""
	}

	var connStr string
	switch config.GetConnectType() {
	case connection.WithCredential:
		cs, err := connection.BuildAzureConnectionString(config.GetAccessKey(), config.GetSecretKey(), endpoint)
		if err != nil {
			return nil, err
		}
		connStr = cs
	case connection.WithEnv:
		if cs := os.Getenv("AZURE_STORAGE_CONNECTION_STRING"); cs != "" {
			connStr = cs
			break
		}
		accountName := os.Getenv("AZURE_STORAGE_ACCOUNT_NAME")
		accountKey := os.Getenv("AZURE_STORAGE_ACCOUNT_KEY")
		if accountName == "" || accountKey == "" {
			return nil, fmt.Errorf("environment variables AZURE_STORAGE_ACCOUNT_NAME and/or AZURE_STORAGE_ACCOUNT_KEY are not set")
		}
		cs, err := connection.BuildAzureConnectionString(accountName, accountKey, endpoint)
		if err != nil {
			return nil, err
		}
		connStr = cs
	case connection.WithConnectionString:
		if config.GetConnectionString() == "" {
			return nil, fmt.Errorf("connection string not set")
		}
		connStr = config.GetConnectionString()
	default:
		return nil, fmt.Errorf("invalid connection type for azure blob: %s", config.GetConnectType())
	}

	client, err := azblob.NewClientFromConnectionString(connStr, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create Azure Blob Storage client: %w", err)
	}

	return filestorage.NewAzBlobClient(client, config.GetProperties(), opts...)
}
