package filestorage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/minio/minio-go/v7"
	common "github.com/tizianocitro/blobquickstart/pkg"
	"github.com/tizianocitro/blobquickstart/pkg/transform"
	"go.uber.org/zap"
)

// MinioClient is a client for interacting with MinIO storage.
// It implements the FileStorage interface.
type MinioClient struct {
	client     *minio.Client
	properties common.ConnectionProperties
	pipe       transform.Pipeline
	logger     *zap.Logger
}

// NewMinioClient wraps a MinIO client without contacting the server.
func NewMinioClient(client *minio.Client, properties common.ConnectionProperties, opts ...Option) (*MinioClient, error) {
	if client == nil {
		return nil, fmt.Errorf("failed to create MinIO client: client is nil")
	}

	pipe, err := transform.ForProperties(properties)
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	o := buildOptions(opts)
	return &MinioClient{
		client:     client,
		properties: properties,
		pipe:       pipe,
		logger:     o.logger.With(zap.String("provider", "minio")),
	}, nil
}

// GetClient returns the underlying MinIO client.
func (m *MinioClient) GetClient() *minio.Client {
	return m.client
}

func (m *MinioClient) CreateContainerIfNotExists(ctx context.Context, storeBox string, publicRead bool) (bool, error) {
	exists, err := m.client.BucketExists(ctx, storeBox)
	if err != nil {
		return false, minioServiceError("check bucket", err)
	}
	if exists {
		m.logger.Debug("bucket already exists", zap.String("bucket", storeBox))
		return false, nil
	}

	if err := m.client.MakeBucket(ctx, storeBox, minio.MakeBucketOptions{}); err != nil {
		if minio.ToErrorResponse(err).Code == "BucketAlreadyOwnedByYou" {
			return false, nil
		}
		return false, minioServiceError("make bucket", err)
	}

	if publicRead {
		doc, err := publicReadPolicy(storeBox)
		if err != nil {
			return true, err
		}
		if err := m.client.SetBucketPolicy(ctx, storeBox, doc); err != nil {
			return true, minioServiceError("set bucket policy", err)
		}
	}

	m.logger.Info("bucket created", zap.String("bucket", storeBox), zap.Bool("public_read", publicRead))
	return true, nil
}

// DeleteContainerIfExists removes every object of storeBox and then the bucket itself.
func (m *MinioClient) DeleteContainerIfExists(ctx context.Context, storeBox string) (bool, error) {
	exists, err := m.client.BucketExists(ctx, storeBox)
	if err != nil {
		return false, minioServiceError("check bucket", err)
	}
	if !exists {
		return false, nil
	}

	objectsCh := make(chan minio.ObjectInfo)
	go func() {
		defer close(objectsCh)
		for obj := range m.client.ListObjects(ctx, storeBox, minio.ListObjectsOptions{Recursive: true}) {
			if obj.Err != nil {
				m.logger.Warn("listing objects for removal failed", zap.String("bucket", storeBox), zap.Error(obj.Err))
				return
			}
			select {
			case objectsCh <- obj:
			case <-ctx.Done():
				return
			}
		}
	}()

	var errs []error
	for rErr := range m.client.RemoveObjects(ctx, storeBox, objectsCh, minio.RemoveObjectsOptions{}) {
		errs = append(errs, fmt.Errorf("remove %s: %w", rErr.ObjectName, rErr.Err))
	}
	if len(errs) > 0 {
		return false, errors.Join(errs...)
	}

	if err := m.client.RemoveBucket(ctx, storeBox); err != nil {
		return false, minioServiceError("remove bucket", err)
	}

	m.logger.Info("bucket deleted", zap.String("bucket", storeBox))
	return true, nil
}

// PutObject uploads an object to the specified bucket. Readers of unknown length are
// streamed with a multipart upload.
func (m *MinioClient) PutObject(ctx context.Context, storeBox string, fileName string, reader io.Reader) error {
	if reader == nil {
		return fmt.Errorf("reader is nil")
	}

	body, err := m.pipe.Wrap(reader)
	if err != nil {
		return fmt.Errorf("apply write pipeline: %w", err)
	}

	_, err = m.client.PutObject(ctx, storeBox, fileName, body, readerSize(body), minio.PutObjectOptions{})
	if err != nil {
		return minioServiceError("failed to put the object into minio bucket", err)
	}

	m.logger.Info("object uploaded", zap.String("bucket", storeBox), zap.String("key", fileName))
	return nil
}

// GetObject retrieves an object. The object is stat'ed first so that a missing bucket
// or key is reported here rather than on the first read.
func (m *MinioClient) GetObject(ctx context.Context, storeBox string, fileName string) (io.ReadCloser, error) {
	object, err := m.client.GetObject(ctx, storeBox, fileName, minio.GetObjectOptions{})
	if err != nil {
		return nil, minioServiceError("failed to get the object from MinIO client", err)
	}
	if _, err := object.Stat(); err != nil {
		_ = object.Close()
		return nil, minioServiceError("failed to get the object from MinIO client", err)
	}

	obj, err := m.pipe.Unwrap(object)
	if err != nil {
		return nil, fmt.Errorf("apply read pipeline: %w", err)
	}
	return obj, nil
}

func (m *MinioClient) RemoveObject(ctx context.Context, storeBox string, fileName string) error {
	if err := m.client.RemoveObject(ctx, storeBox, fileName, minio.RemoveObjectOptions{}); err != nil {
		return minioServiceError("failed to remove object from minio bucket", err)
	}
	return nil
}

func (m *MinioClient) ListObjects(ctx context.Context, storeBox string) ([]common.ObjectInfo, error) {
	endpoint := m.client.EndpointURL()

	var objects []common.ObjectInfo
	for obj := range m.client.ListObjects(ctx, storeBox, minio.ListObjectsOptions{Recursive: true}) {
		if obj.Err != nil {
			return nil, minioServiceError("list objects", obj.Err)
		}
		objects = append(objects, common.ObjectInfo{
			Name:         obj.Key,
			URL:          endpoint.JoinPath(storeBox, obj.Key).String(),
			Size:         obj.Size,
			LastModified: obj.LastModified,
		})
	}
	return objects, nil
}

func (m *MinioClient) GetConnectionProperties() common.ConnectionProperties {
	return m.properties
}

// readerSize returns the length of reader when it can be known without consuming it,
// and -1 otherwise.
func readerSize(reader io.Reader) int64 {
	switch r := reader.(type) {
	case *bytes.Reader:
		return int64(r.Len())
	case *strings.Reader:
		return int64(r.Len())
	case *bytes.Buffer:
		return int64(r.Len())
	}

	seeker, ok := reader.(io.Seeker)
	if !ok {
		return -1
	}
	cur, err := seeker.Seek(0, io.SeekCurrent)
	if err != nil {
		return -1
	}
	end, err := seeker.Seek(0, io.SeekEnd)
	if err != nil {
		return -1
	}
	if _, err := seeker.Seek(cur, io.SeekStart); err != nil {
		return -1
	}
	return end - cur
}

// minioServiceError wraps err, promoting MinIO error responses to common.ServiceError.
func minioServiceError(op string, err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.StatusCode != 0 {
		return fmt.Errorf("%s: %w", op, &common.ServiceError{
			Provider:   "minio",
			StatusCode: resp.StatusCode,
			ErrorCode:  resp.Code,
			Err:        err,
		})
	}
	return fmt.Errorf("%s: %w", op, err)
}
