package filestorage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	common "github.com/tizianocitro/blobquickstart/pkg"
	"github.com/tizianocitro/blobquickstart/pkg/transform"
	"go.uber.org/zap"
)

// AzBlobClient is a client for interacting with Azure Blob Storage.
// It implements the FileStorage interface.
type AzBlobClient struct {
	client     *azblob.Client
	properties common.ConnectionProperties
	pipe       transform.Pipeline
	logger     *zap.Logger
}

// NewAzBlobClient wraps an azblob client. No request is sent: credential and network
// failures surface on the first operation, as service errors where the account answered.
func NewAzBlobClient(client *azblob.Client, properties common.ConnectionProperties, opts ...Option) (*AzBlobClient, error) {
	if client == nil {
		return nil, fmt.Errorf("failed to create AzBlobClient: client is nil")
	}

	pipe, err := transform.ForProperties(properties)
	if err != nil {
		return nil, fmt.Errorf("failed to create AzBlobClient: %w", err)
	}

	o := buildOptions(opts)
	return &AzBlobClient{
		client:     client,
		properties: properties,
		pipe:       pipe,
		logger:     o.logger.With(zap.String("provider", "azblob")),
	}, nil
}

// GetClient returns the underlying azblob client.
func (a *AzBlobClient) GetClient() *azblob.Client {
	return a.client
}

func (a *AzBlobClient) CreateContainerIfNotExists(ctx context.Context, storeBox string, publicRead bool) (bool, error) {
	var opts *azblob.CreateContainerOptions
	if publicRead {
		opts = &azblob.CreateContainerOptions{Access: to.Ptr(azblob.PublicAccessTypeContainer)}
	}

	_, err := a.client.CreateContainer(ctx, storeBox, opts)
	if err != nil {
		if bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
			a.logger.Debug("container already exists", zap.String("container", storeBox))
			return false, nil
		}
		return false, azServiceError("create container", err)
	}

	a.logger.Info("container created", zap.String("container", storeBox), zap.Bool("public_read", publicRead))
	return true, nil
}

func (a *AzBlobClient) DeleteContainerIfExists(ctx context.Context, storeBox string) (bool, error) {
	_, err := a.client.DeleteContainer(ctx, storeBox, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.ContainerNotFound) {
			a.logger.Debug("container not found", zap.String("container", storeBox))
			return false, nil
		}
		return false, azServiceError("delete container", err)
	}

	a.logger.Info("container deleted", zap.String("container", storeBox))
	return true, nil
}

func (a *AzBlobClient) PutObject(ctx context.Context, storeBox, fileName string, reader io.Reader) error {
	if reader == nil {
		return fmt.Errorf("reader is nil")
	}

	body, err := a.pipe.Wrap(reader)
	if err != nil {
		return fmt.Errorf("apply write pipeline: %w", err)
	}

	if _, err := a.client.UploadStream(ctx, storeBox, fileName, body, nil); err != nil {
		return azServiceError("azure upload stream", err)
	}

	a.logger.Info("blob uploaded", zap.String("container", storeBox), zap.String("blob", fileName))
	return nil
}

func (a *AzBlobClient) GetObject(ctx context.Context, storeBox string, fileName string) (io.ReadCloser, error) {
	get, err := a.client.DownloadStream(ctx, storeBox, fileName, nil)
	if err != nil {
		return nil, azServiceError("azure download stream", err)
	}

	retryReader := get.NewRetryReader(ctx, &azblob.RetryReaderOptions{})

	obj, err := a.pipe.Unwrap(retryReader)
	if err != nil {
		return nil, fmt.Errorf("apply read pipeline: %w", err)
	}

	a.logger.Debug("blob download started", zap.String("container", storeBox), zap.String("blob", fileName))
	return obj, nil
}

func (a *AzBlobClient) RemoveObject(ctx context.Context, storeBox string, fileName string) error {
	if _, err := a.client.DeleteBlob(ctx, storeBox, fileName, nil); err != nil {
		return azServiceError("delete blob", err)
	}
	return nil
}

// ListObjects lists every blob of storeBox with its absolute URL.
func (a *AzBlobClient) ListObjects(ctx context.Context, storeBox string) ([]common.ObjectInfo, error) {
	containerClient := a.client.ServiceClient().NewContainerClient(storeBox)
	pager := a.client.NewListBlobsFlatPager(storeBox, nil)

	var objects []common.ObjectInfo
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, azServiceError("list blobs", err)
		}

		for _, item := range resp.Segment.BlobItems {
			if item.Name == nil {
				continue
			}
			info := common.ObjectInfo{
				Name: *item.Name,
				URL:  containerClient.NewBlobClient(*item.Name).URL(),
			}
			if p := item.Properties; p != nil {
				if p.ContentLength != nil {
					info.Size = *p.ContentLength
				}
				if p.LastModified != nil {
					info.LastModified = *p.LastModified
				}
			}
			objects = append(objects, info)
		}
	}
	return objects, nil
}

func (a *AzBlobClient) GetConnectionProperties() common.ConnectionProperties {
	return a.properties
}

// azServiceError wraps err, promoting azcore response errors to common.ServiceError.
func azServiceError(op string, err error) error {
	var respErr *azcore.ResponseError
	if errors.As(err, &respErr) {
		return fmt.Errorf("%s: %w", op, &common.ServiceError{
			Provider:   "azblob",
			StatusCode: respErr.StatusCode,
			ErrorCode:  respErr.ErrorCode,
			Err:        err,
		})
	}
	return fmt.Errorf("%s: %w", op, err)
}
