package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"io"
)

// CredentialCipher encrypts provider secret material for storage and
// decrypts it on demand while building a gateway adapter. Plaintext must
// never outlive a single adapter call.
type CredentialCipher interface {
	Encrypt(plaintext string) (ciphertext, iv string, err error)
	Decrypt(ciphertext, iv string) (plaintext string, err error)
}

type aesCredentialCipher struct {
	key []byte
}

// NewAESCredentialCipher builds an AES-256-GCM cipher from a 64-hex-char key.
func NewAESCredentialCipher(hexKey string) (CredentialCipher, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, errors.New("invalid credential encryption key format")
	}
	if len(key) != 32 {
		return nil, errors.New("credential encryption key must be 32 bytes (64 hex chars)")
	}
	return &aesCredentialCipher{key: key}, nil
}

func (c *aesCredentialCipher) Encrypt(plaintext string) (string, string, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", "", err
	}

	iv := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", "", err
	}

	sealed := gcm.Seal(nil, iv, []byte(plaintext), nil)

	return base64.StdEncoding.EncodeToString(sealed),
		base64.StdEncoding.EncodeToString(iv),
		nil
}

func (c *aesCredentialCipher) Decrypt(ciphertextB64, ivB64 string) (string, error) {
	sealed, err := base64.StdEncoding.DecodeString(ciphertextB64)
	if err != nil {
		return "", err
	}

	iv, err := base64.StdEncoding.DecodeString(ivB64)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(c.key)
	if err != nil {
		return "", err
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", err
	}

	plaintext, err := gcm.Open(nil, iv, sealed, nil)
	if err != nil {
		return "", err
	}

	return string(plaintext), nil
}
