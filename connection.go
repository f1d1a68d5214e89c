// Package blobquickstart connects to a blob storage provider (Azure Blob Storage,
// AWS S3 or MinIO) and returns a filestorage.FileStorage the quickstart runs against.
package blobquickstart

import (
	"fmt"

	"github.com/minio/minio-go/v7"
	"github.com/tizianocitro/blobquickstart/internal/connection"
	connfilestorage "github.com/tizianocitro/blobquickstart/internal/connection/filestorage"
	common "github.com/tizianocitro/blobquickstart/pkg"
	"github.com/tizianocitro/blobquickstart/pkg/filestorage"
	"go.uber.org/zap"
)

// ConnectionOptions holds the options for creating a connection.
// parameters:
// - ConnectionMethod: The method used to establish the connection.
// - SaveEncrypt: The encryption applied to objects before they are stored.
// - SaveCompress: The compression applied to objects before they are stored.
// - EncryptKey: The passphrase used when SaveEncrypt is AES256_ENCRYPTION.
// - Logger: Optional logger for the storage client.
type ConnectionOptions struct {
	ConnectionMethod connectionFunc
	SaveEncrypt      EncryptionAlgorithm
	SaveCompress     CompressionAlgorithm
	EncryptKey       string
	Logger           *zap.Logger
}

type connectionFunc *connection.AuthConfig

func (o ConnectionOptions) prepare(provider string, allowed ...string) (*connection.AuthConfig, error) {
	var authConfig *connection.AuthConfig = o.ConnectionMethod
	if authConfig == nil {
		return nil, fmt.Errorf("connectionMethod cannot be nil")
	}

	valid := false
	for _, t := range allowed {
		if authConfig.GetConnectType() == t {
			valid = true
			break
		}
	}
	if !valid {
		return nil, fmt.Errorf("invalid connection method for %s; use: %s", provider, methodNames(allowed))
	}

	authConfig.SetProperties(common.ConnectionProperties{
		SaveCompress: o.SaveCompress,
		SaveEncrypt:  o.SaveEncrypt,
		EncryptKey:   o.EncryptKey,
	})
	return authConfig, nil
}

func (o ConnectionOptions) clientOptions() []filestorage.Option {
	if o.Logger == nil {
		return nil
	}
	return []filestorage.Option{filestorage.WithLogger(o.Logger)}
}

// NewAzBlobConnection creates a new Azure Blob Storage connection.
// endpoint may be empty or "default" for https://<account>.blob.core.windows.net.
func NewAzBlobConnection(endpoint string, connectionOptions ConnectionOptions) (*filestorage.AzBlobClient, error) {
	authConfig, err := connectionOptions.prepare("Azure Blob",
		connection.WithCredential, connection.WithEnv, connection.WithConnectionString)
	if err != nil {
		return nil, err
	}
	return connfilestorage.CreateAzBlobConnection(endpoint, authConfig, connectionOptions.clientOptions()...)
}

// NewS3Connection creates a new AWS S3 connection.
func NewS3Connection(endpoint string, connectionOptions ConnectionOptions, awsRegion string) (*filestorage.S3Client, error) {
	authConfig, err := connectionOptions.prepare("AWS S3", connection.WithCredential, connection.WithEnv)
	if err != nil {
		return nil, err
	}
	return connfilestorage.CreateS3Connection(endpoint, authConfig, awsRegion, connectionOptions.clientOptions()...)
}

// NewMinIOConnection creates a new MinIO connection.
// It takes an endpoint, connection options, and optional MinIO options.
func NewMinIOConnection(endpoint string, connectionOptions ConnectionOptions, minioOptions *minio.Options) (*filestorage.MinioClient, error) {
	authConfig, err := connectionOptions.prepare("MinIO", connection.WithCredential, connection.WithEnv)
	if err != nil {
		return nil, err
	}
	return connfilestorage.CreateMinioConnection(endpoint, authConfig, minioOptions, connectionOptions.clientOptions()...)
}

// ConnectWithCredentials returns a connectionFunc configured with the provided credentials.
// For Azure, identity is the account name and secretAccessKey the account key.
func ConnectWithCredentials(identity string, secretAccessKey string) connectionFunc {
	authConfig := connection.NewAuthConfig()
	authConfig.SetConnectType(connection.WithCredential)
	authConfig.SetAccessKey(identity)
	authConfig.SetSecretKey(secretAccessKey)
	return authConfig
}

// ConnectWithEnvCredentials returns a connectionFunc configured to use environment credentials.
func ConnectWithEnvCredentials() connectionFunc {
	authConfig := connection.NewAuthConfig()
	authConfig.SetConnectType(connection.WithEnv)
	return authConfig
}

// ConnectWithConnectionString returns a connectionFunc configured with the connection string.
func ConnectWithConnectionString(connectionString string) connectionFunc {
	authConfig := connection.NewAuthConfig()
	authConfig.SetConnectType(connection.WithConnectionString)
	authConfig.SetConnectionString(connectionString)
	return authConfig
}

func methodNames(types []string) string {
	names := map[string]string{
		connection.WithCredential:       "ConnectWithCredentials",
		connection.WithEnv:              "ConnectWithEnvCredentials",
		connection.WithConnectionString: "ConnectWithConnectionString",
	}
	out := ""
	for i, t := range types {
		switch {
		case i == 0:
		case i == len(types)-1:
			out += " or "
		default:
			out += ", "
		}
		out += names[t]
	}
	return out
}

// Re-export types (type alias)
type CompressionAlgorithm = common.CompressionAlgorithm
type EncryptionAlgorithm = common.EncryptionAlgorithm

// Re-export constants
const (
	NO_COMPRESSION   = common.NO_COMPRESSION
	GZIP_COMPRESSION = common.GZIP_COMPRESSION

	NO_ENCRYPTION     = common.NO_ENCRYPTION
	AES256_ENCRYPTION = common.AES256_ENCRYPTION
)
