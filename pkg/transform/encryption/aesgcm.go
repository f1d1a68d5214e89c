package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
)

// AESGCM seals payloads with AES-256-GCM. The stored form is nonce || ciphertext.
type AESGCM struct {
	Key string // passphrase, stretched to 32 bytes with SHA-256
}

func (AESGCM) Name() string { return "aes256-gcm" }

func (a AESGCM) Encode(data []byte) ([]byte, error) {
	aead, err := a.aead()
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, aead.NonceSize(), aead.NonceSize()+len(data)+aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("nonce: %w", err)
	}
	return aead.Seal(nonce, nonce, data, nil), nil
}

func (a AESGCM) Decode(data []byte) ([]byte, error) {
	aead, err := a.aead()
	if err != nil {
		return nil, err
	}
	if len(data) < aead.NonceSize() {
		return nil, errors.New("ciphertext too short")
	}

	nonce, sealed := data[:aead.NonceSize()], data[aead.NonceSize():]
	plain, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("decrypt: %w", err)
	}
	return plain, nil
}

func (a AESGCM) aead() (cipher.AEAD, error) {
	if a.Key == "" {
		return nil, errors.New("missing key")
	}
	key := sha256.Sum256([]byte(a.Key))
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("new cipher: %w", err)
	}
	return cipher.NewGCM(block)
}
