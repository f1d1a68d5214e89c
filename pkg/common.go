package common

import "time"

// CompressionAlgorithm selects how object payloads are compressed before upload.
type CompressionAlgorithm int

const (
	NO_COMPRESSION CompressionAlgorithm = iota
	GZIP_COMPRESSION
)

// EncryptionAlgorithm selects how object payloads are encrypted before upload.
type EncryptionAlgorithm int

const (
	NO_ENCRYPTION EncryptionAlgorithm = iota
	AES256_ENCRYPTION
)

// ConnectionProperties defines the properties for a connection.
// SaveCompress indicates the compression applied to data before it is stored.
// SaveEncrypt indicates the encryption applied to data before it is stored.
// EncryptKey is the passphrase used when SaveEncrypt is not NO_ENCRYPTION.
type ConnectionProperties struct {
	SaveCompress CompressionAlgorithm
	SaveEncrypt  EncryptionAlgorithm
	EncryptKey   string
}

// ObjectInfo describes one object found while listing a container.
type ObjectInfo struct {
	Name         string
	URL          string
	Size         int64
	LastModified time.Time
}

func (a CompressionAlgorithm) String() string {
	switch a {
	case NO_COMPRESSION:
		return "none"
	case GZIP_COMPRESSION:
		return "gzip"
	}
	return "unknown"
}

func (a EncryptionAlgorithm) String() string {
	switch a {
	case NO_ENCRYPTION:
		return "none"
	case AES256_ENCRYPTION:
		return "aes256"
	}
	return "unknown"
}
