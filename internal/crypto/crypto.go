// internal/crypto/crypto.go
//
// This package encrypts the credentials sshconsole stores on disk (host
// passwords and the backend bearer token) with AES-256-GCM. The key is
// derived from the user's master passphrase with scrypt.

package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"io"

	"golang.org/x/crypto/scrypt"
)

const (
	// KEY_SIZE is the AES-256 key length in bytes.
	KEY_SIZE = 32

	// SaltSize is the length of the random scrypt salt kept in the config file.
	SaltSize = 16

	// scrypt cost parameters.
	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1

	// keyCheckPlaintext is encrypted once and stored so a wrong passphrase
	// is detected at unlock time rather than on the first decrypt.
	keyCheckPlaintext = "sshconsole-key-check"
)

// Cipher represents an AES-256-GCM cipher with a derived key.
type Cipher struct {
	key []byte
}

// NewSalt returns a fresh hex-encoded salt for DeriveCipher.
func NewSalt() (string, error) {
	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("failed to generate salt: %w", err)
	}
	return hex.EncodeToString(salt), nil
}

// DeriveCipher derives the encryption key from passphrase and a hex salt.
func DeriveCipher(passphrase, saltHex string) (*Cipher, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("passphrase cannot be empty")
	}
	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return nil, fmt.Errorf("invalid salt: %w", err)
	}
	if len(salt) == 0 {
		return nil, fmt.Errorf("salt cannot be empty")
	}
	key, err := scrypt.Key([]byte(passphrase), salt, scryptN, scryptR, scryptP, KEY_SIZE)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	return &Cipher{key: key}, nil
}

// Encrypt encrypts plaintext and returns hex(nonce || ciphertext).
func (c *Cipher) Encrypt(plaintext string) (string, error) {
	aesGCM, err := c.gcm()
	if err != nil {
		return "", err
	}

	nonce := make([]byte, aesGCM.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	// Seal appends to the nonce slice so the result is nonce || ciphertext.
	sealed := aesGCM.Seal(nonce, nonce, []byte(plaintext), nil)
	return hex.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt.
func (c *Cipher) Decrypt(encryptedHex string) (string, error) {
	combined, err := hex.DecodeString(encryptedHex)
	if err != nil {
		return "", fmt.Errorf("failed to decode hex: %w", err)
	}

	aesGCM, err := c.gcm()
	if err != nil {
		return "", err
	}

	nonceSize := aesGCM.NonceSize()
	if len(combined) < nonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}

	plaintext, err := aesGCM.Open(nil, combined[:nonceSize], combined[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}
	return string(plaintext), nil
}

// KeyCheck returns a value that VerifyKeyCheck accepts only for this key.
func (c *Cipher) KeyCheck() (string, error) {
	return c.Encrypt(keyCheckPlaintext)
}

// VerifyKeyCheck reports whether check was produced by KeyCheck with the same key.
func (c *Cipher) VerifyKeyCheck(check string) bool {
	plaintext, err := c.Decrypt(check)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(plaintext), []byte(keyCheckPlaintext)) == 1
}

func (c *Cipher) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aesGCM, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return aesGCM, nil
}
