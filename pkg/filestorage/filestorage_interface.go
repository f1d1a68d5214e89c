package filestorage

import (
	"context"
	"io"

	common "github.com/tizianocitro/blobquickstart/pkg"
	"go.uber.org/zap"
)

// FileStorage is the set of container and object operations the quickstart needs
// from a storage provider. A storeBox is an Azure container or an S3/MinIO bucket.
type FileStorage interface {
	// CreateContainerIfNotExists creates storeBox, granting anonymous read access when
	// publicRead is set. It reports false without error when storeBox already exists.
	CreateContainerIfNotExists(ctx context.Context, storeBox string, publicRead bool) (bool, error)
	// DeleteContainerIfExists deletes storeBox and everything in it. It reports false
	// without error when storeBox does not exist.
	DeleteContainerIfExists(ctx context.Context, storeBox string) (bool, error)
	PutObject(ctx context.Context, storeBox string, fileName string, reader io.Reader) error
	GetObject(ctx context.Context, storeBox string, fileName string) (io.ReadCloser, error)
	RemoveObject(ctx context.Context, storeBox string, fileName string) error
	ListObjects(ctx context.Context, storeBox string) ([]common.ObjectInfo, error)
	GetConnectionProperties() common.ConnectionProperties
}

// Option configures a storage client.
type Option func(*clientOptions)

type clientOptions struct {
	logger *zap.Logger
}

// WithLogger sets the logger used by a storage client. Clients log nothing by default.
func WithLogger(logger *zap.Logger) Option {
	return func(o *clientOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func buildOptions(opts []Option) clientOptions {
	o := clientOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

var (
	_ FileStorage = (*AzBlobClient)(nil)
	_ FileStorage = (*S3Client)(nil)
	_ FileStorage = (*MinioClient)(nil)
)
