// Package crypto provides AES-256-GCM encryption for connection secrets at rest:
// webhook codes, OAuth client secrets, access and refresh tokens, and AI API keys.
//
// AES-256-GCM provides both confidentiality and authenticity. Each encryption
// uses a fresh random nonce, so encrypting the same secret twice yields two
// different ciphertexts.
//
// Example usage:
//
//	encryptor, err := crypto.NewSecretEncryptor(os.Getenv("ENCRYPTION_KEY"))
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	stored, err := encryptor.Encrypt(conn.APIKey)
//	...
//	apiKey, err := encryptor.Decrypt(stored)
package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"io"

	"golang.org/x/crypto/pbkdf2"

	"connection-broker/internal/common/errors"
)

const (
	keySalt       = "connection-broker-secrets"
	keyIterations = 10000
	keyLength     = 32
)

// SecretEncryptor encrypts and decrypts individual secret strings.
//
// The encryptor is safe for concurrent use by multiple goroutines.
type SecretEncryptor struct {
	aead cipher.AEAD
}

// NewSecretEncryptor creates a SecretEncryptor from a passphrase.
//
// The passphrase is stretched with PBKDF2-SHA256 into a 32-byte AES-256 key,
// so any non-empty input yields a full-strength key. The salt is static so the
// same passphrase always decrypts previously stored values.
//
// Parameters:
//   - key: The encryption passphrase. Must not be empty.
//
// Returns:
//   - *SecretEncryptor: A new encryptor instance
//   - error: A validation error if the key is empty
func NewSecretEncryptor(key string) (*SecretEncryptor, error) {
	if key == "" {
		return nil, errors.ValidationError("encryption key cannot be empty")
	}

	derivedKey := pbkdf2.Key([]byte(key), []byte(keySalt), keyIterations, keyLength, sha256.New)

	block, err := aes.NewCipher(derivedKey)
	if err != nil {
		return nil, errors.InternalError("failed to create cipher", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, errors.InternalError("failed to create GCM", err)
	}

	return &SecretEncryptor{aead: aead}, nil
}

// Encrypt encrypts plaintext and returns base64(nonce || ciphertext).
//
// Empty strings are returned unchanged so that "no secret stored" survives a
// round trip through the store.
func (e *SecretEncryptor) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	nonce := make([]byte, e.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", errors.InternalError("failed to create nonce", err)
	}

	sealed := e.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt.
//
// Tampered or truncated values, and values encrypted under another key, fail
// GCM authentication and return an error. Error messages never include the
// ciphertext or plaintext.
func (e *SecretEncryptor) Decrypt(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}

	data, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", errors.InternalError("failed to decode ciphertext", nil)
	}

	nonceSize := e.aead.NonceSize()
	if len(data) < nonceSize {
		return "", errors.ValidationError("ciphertext too short")
	}

	nonce, sealed := data[:nonceSize], data[nonceSize:]
	plaintext, err := e.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return "", errors.InternalError("failed to decrypt secret", nil)
	}

	return string(plaintext), nil
}

// EncryptAll encrypts each pointed-to string in place. On error the values
// already processed stay encrypted and the caller must discard them.
func (e *SecretEncryptor) EncryptAll(values ...*string) error {
	for _, v := range values {
		enc, err := e.Encrypt(*v)
		if err != nil {
			return err
		}
		*v = enc
	}
	return nil
}

// DecryptAll decrypts each pointed-to string in place.
func (e *SecretEncryptor) DecryptAll(values ...*string) error {
	for _, v := range values {
		dec, err := e.Decrypt(*v)
		if err != nil {
			return err
		}
		*v = dec
	}
	return nil
}
