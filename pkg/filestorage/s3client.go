package filestorage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
	common "github.com/tizianocitro/blobquickstart/pkg"
	"github.com/tizianocitro/blobquickstart/pkg/transform"
	"go.uber.org/zap"
)

const s3WaitTimeout = time.Minute

// S3Client is a client for interacting with AWS S3 or an S3-compatible endpoint.
// It implements the FileStorage interface.
type S3Client struct {
	client     *s3.Client
	properties common.ConnectionProperties
	pipe       transform.Pipeline
	endpoint   string
	region     string
	logger     *zap.Logger
}

// NewS3Client wraps an S3 client without contacting the service. Object URLs are derived from the client's base endpoint when one
// is set, otherwise from the regional virtual-hosted endpoint.
func NewS3Client(client *s3.Client, properties common.ConnectionProperties, opts ...Option) (*S3Client, error) {
	if client == nil {
		return nil, fmt.Errorf("failed to create S3Client: client is nil")
	}

	pipe, err := transform.ForProperties(properties)
	if err != nil {
		return nil, fmt.Errorf("failed to create S3Client: %w", err)
	}

	clientOpts := client.Options()
	o := buildOptions(opts)
	return &S3Client{
		client:     client,
		properties: properties,
		pipe:       pipe,
		endpoint:   aws.ToString(clientOpts.BaseEndpoint),
		region:     clientOpts.Region,
		logger:     o.logger.With(zap.String("provider", "s3")),
	}, nil
}

func (s *S3Client) GetClient() *s3.Client {
	return s.client
}

func (s *S3Client) CreateContainerIfNotExists(ctx context.Context, storeBox string, publicRead bool) (bool, error) {
	input := &s3.CreateBucketInput{Bucket: aws.String(storeBox)}
	if s.region != "" && s.region != "us-east-1" && s.region != "no-region" {
		input.CreateBucketConfiguration = &types.CreateBucketConfiguration{
			LocationConstraint: types.BucketLocationConstraint(s.region),
		}
	}

	_, err := s.client.CreateBucket(ctx, input)
	if err != nil {
		var owned *types.BucketAlreadyOwnedByYou
		if errors.As(err, &owned) {
			s.logger.Debug("bucket already owned", zap.String("bucket", storeBox))
			return false, nil
		}
		return false, s3ServiceError("create bucket", err)
	}

	err = s3.NewBucketExistsWaiter(s.client).Wait(
		ctx, &s3.HeadBucketInput{Bucket: aws.String(storeBox)}, s3WaitTimeout)
	if err != nil {
		return true, fmt.Errorf("wait for bucket %s to exist: %w", storeBox, err)
	}

	if publicRead {
		if publicRead, err = s.allowPublicRead(ctx, storeBox); err != nil {
			return true, err
		}
	}

	s.logger.Info("bucket created", zap.String("bucket", storeBox), zap.Bool("public_read", publicRead))
	return true, nil
}

// allowPublicRead lifts the bucket's Block Public Access settings, on by default for new
// AWS buckets, and attaches the anonymous read policy. When the account refuses either
// step the bucket stays private and false is returned without error.
func (s *S3Client) allowPublicRead(ctx context.Context, storeBox string) (bool, error) {
	_, err := s.client.DeletePublicAccessBlock(ctx, &s3.DeletePublicAccessBlockInput{Bucket: aws.String(storeBox)})
	if err != nil {
		if s3ErrorCode(err) == "AccessDenied" {
			s.logger.Warn("public access block cannot be removed, bucket stays private",
				zap.String("bucket", storeBox), zap.Error(err))
			return false, nil
		}
		return false, s3ServiceError("delete public access block", err)
	}

	doc, err := publicReadPolicy(storeBox)
	if err != nil {
		return false, err
	}
	_, err = s.client.PutBucketPolicy(ctx, &s3.PutBucketPolicyInput{
		Bucket: aws.String(storeBox),
		Policy: aws.String(doc),
	})
	if err != nil {
		if s3ErrorCode(err) == "AccessDenied" {
			s.logger.Warn("public read policy refused, bucket stays private",
				zap.String("bucket", storeBox), zap.Error(err))
			return false, nil
		}
		return false, s3ServiceError("put bucket policy", err)
	}
	return true, nil
}

// DeleteContainerIfExists empties storeBox before deleting it, since S3 refuses to
// delete a bucket that still holds objects.
func (s *S3Client) DeleteContainerIfExists(ctx context.Context, storeBox string) (bool, error) {
	if err := s.emptyBucket(ctx, storeBox); err != nil {
		if s3ErrorCode(err) == "NoSuchBucket" {
			return false, nil
		}
		return false, err
	}

	_, err := s.client.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: aws.String(storeBox)})
	if err != nil {
		if s3ErrorCode(err) == "NoSuchBucket" {
			return false, nil
		}
		return false, s3ServiceError("delete bucket", err)
	}

	err = s3.NewBucketNotExistsWaiter(s.client).Wait(
		ctx, &s3.HeadBucketInput{Bucket: aws.String(storeBox)}, s3WaitTimeout)
	if err != nil {
		s.logger.Warn("bucket deletion not yet visible", zap.String("bucket", storeBox), zap.Error(err))
	}

	s.logger.Info("bucket deleted", zap.String("bucket", storeBox))
	return true, nil
}

func (s *S3Client) emptyBucket(ctx context.Context, storeBox string) error {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{Bucket: aws.String(storeBox)})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return s3ServiceError("list objects", err)
		}
		if len(page.Contents) == 0 {
			continue
		}

		ids := make([]types.ObjectIdentifier, 0, len(page.Contents))
		for _, obj := range page.Contents {
			ids = append(ids, types.ObjectIdentifier{Key: obj.Key})
		}
		_, err = s.client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(storeBox),
			Delete: &types.Delete{Objects: ids, Quiet: aws.Bool(true)},
		})
		if err != nil {
			return s3ServiceError("delete objects", err)
		}
	}
	return nil
}

func (s *S3Client) PutObject(ctx context.Context, storeBox string, fileName string, reader io.Reader) error {
	if reader == nil {
		return fmt.Errorf("reader is nil")
	}

	body, err := s.pipe.Wrap(reader)
	if err != nil {
		return fmt.Errorf("apply write pipeline: %w", err)
	}

	// Signing a plain HTTP request needs a seekable body.
	if _, ok := body.(io.ReadSeeker); !ok {
		data, err := io.ReadAll(body)
		if err != nil {
			return fmt.Errorf("read object body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(storeBox),
		Key:    aws.String(fileName),
		Body:   body,
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) && apiErr.ErrorCode() == "EntityTooLarge" {
			s.logger.Warn("object too large for a single PUT", zap.String("bucket", storeBox), zap.String("key", fileName))
		}
		return s3ServiceError("put object", err)
	}

	err = s3.NewObjectExistsWaiter(s.client).Wait(
		ctx, &s3.HeadObjectInput{Bucket: aws.String(storeBox), Key: aws.String(fileName)}, s3WaitTimeout)
	if err != nil {
		return fmt.Errorf("wait for object %s to exist: %w", fileName, err)
	}

	s.logger.Info("object uploaded", zap.String("bucket", storeBox), zap.String("key", fileName))
	return nil
}

func (s *S3Client) GetObject(ctx context.Context, storeBox string, fileName string) (io.ReadCloser, error) {
	result, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(storeBox),
		Key:    aws.String(fileName),
	})
	if err != nil {
		return nil, s3ServiceError("get object", err)
	}

	obj, err := s.pipe.Unwrap(result.Body)
	if err != nil {
		return nil, fmt.Errorf("apply read pipeline: %w", err)
	}
	return obj, nil
}

func (s *S3Client) RemoveObject(ctx context.Context, storeBox string, fileName string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(storeBox),
		Key:    aws.String(fileName),
	})
	if err != nil {
		return s3ServiceError("delete object", err)
	}
	return nil
}

func (s *S3Client) ListObjects(ctx context.Context, storeBox string) ([]common.ObjectInfo, error) {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{Bucket: aws.String(storeBox)})

	var objects []common.ObjectInfo
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, s3ServiceError("list objects", err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			objects = append(objects, common.ObjectInfo{
				Name:         key,
				URL:          s.objectURL(storeBox, key),
				Size:         aws.ToInt64(obj.Size),
				LastModified: aws.ToTime(obj.LastModified),
			})
		}
	}
	return objects, nil
}

func (s *S3Client) GetConnectionProperties() common.ConnectionProperties {
	return s.properties
}

func (s *S3Client) objectURL(bucket, key string) string {
	if s.endpoint != "" {
		if u, err := url.JoinPath(s.endpoint, bucket, key); err == nil {
			return u
		}
	}
	return (&url.URL{
		Scheme: "https",
		Host:   fmt.Sprintf("%s.s3.%s.amazonaws.com", bucket, s.region),
		Path:   "/" + key,
	}).String()
}

// s3ErrorCode returns the service error code carried by err, or "".
func s3ErrorCode(err error) string {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode()
	}
	return ""
}

// s3ServiceError wraps err, promoting responses received from S3 to common.ServiceError.
func s3ServiceError(op string, err error) error {
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		return fmt.Errorf("%s: %w", op, &common.ServiceError{
			Provider:   "s3",
			StatusCode: respErr.HTTPStatusCode(),
			ErrorCode:  s3ErrorCode(err),
			Err:        err,
		})
	}
	return fmt.Errorf("%s: %w", op, err)
}
