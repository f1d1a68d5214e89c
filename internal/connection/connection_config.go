package connection

import common "github.com/tizianocitro/blobquickstart/pkg"

// Connect types understood by the connection constructors.
const (
	WithCredential       = "withCredential"
	WithEnv              = "withEnv"
	WithConnectionString = "withConnectionString"
)

// AuthConfig describes how to authenticate against a storage provider.
// For Azure the access key is the account name and the secret key the account key.
type AuthConfig struct {
	connectType          string
	accessKey            string
	secretKey            string
	connectionString     string
	connectionProperties common.ConnectionProperties
}

func NewAuthConfig() *AuthConfig {
	return &AuthConfig{}
}

func (a *AuthConfig) GetConnectType() string {
	return a.connectType
}

func (a *AuthConfig) GetAccessKey() string {
	return a.accessKey
}

func (a *AuthConfig) GetSecretKey() string {
	return a.secretKey
}

func (a *AuthConfig) GetConnectionString() string {
	return a.connectionString
}

func (a *AuthConfig) SetConnectType(connectType string) {
	a.connectType = connectType
}

func (a *AuthConfig) SetAccessKey(accessKey string) {
	a.accessKey = accessKey
}

func (a *AuthConfig) SetSecretKey(secretKey string) {
	a.secretKey = secretKey
}

func (a *AuthConfig) SetConnectionString(connectionString string) {
	a.connectionString = connectionString
}

func (a *AuthConfig) GetProperties() common.ConnectionProperties {
	return a.connectionProperties
}

func (a *AuthConfig) SetProperties(properties common.ConnectionProperties) {
	a.connectionProperties = properties
}
