package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/pbkdf2"

	apperrors "stockdesk/internal/errors"
)

const (
	// EncryptionKeySize is the size of the AES-256 key in bytes.
	EncryptionKeySize = 32
	// SaltSize is the size of the salt for key derivation.
	SaltSize = 16
	// NonceSize is the size of the GCM nonce.
	NonceSize = 12
	// PBKDF2Iterations is the number of iterations for key derivation.
	PBKDF2Iterations = 100000

	sealedPrefix = "v1:"
)

// Vault seals small secrets, such as TOTP seeds, before they are stored.
// Each value gets its own salt, so equal plaintexts never seal alike.
type Vault struct {
	passphrase []byte
}

// NewVault creates a vault keyed by passphrase.
func NewVault(passphrase string) (*Vault, error) {
	if passphrase == "" {
		return nil, apperrors.NewValidationError("store.secret_key", "", "must not be empty")
	}
	return &Vault{passphrase: []byte(passphrase)}, nil
}

// Seal encrypts plaintext. The empty string seals to itself.
func (v *Vault) Seal(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("generating salt: %w", err)
	}
	gcm, err := v.aead(salt)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, NonceSize)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("generating nonce: %w", err)
	}

	blob := append(append(salt, nonce...), gcm.Seal(nil, nonce, []byte(plaintext), nil)...)
	return sealedPrefix + base64.RawStdEncoding.EncodeToString(blob), nil
}

// Open decrypts a value produced by Seal. Values without the sealed prefix
// predate encryption and are returned unchanged.
func (v *Vault) Open(sealed string) (string, error) {
	if !strings.HasPrefix(sealed, sealedPrefix) {
		return sealed, nil
	}

	blob, err := base64.RawStdEncoding.DecodeString(strings.TrimPrefix(sealed, sealedPrefix))
	if err != nil || len(blob) < SaltSize+NonceSize {
		return "", fmt.Errorf("%w: malformed sealed value", apperrors.ErrCredentialAccess)
	}
	salt, nonce, ciphertext := blob[:SaltSize], blob[SaltSize:SaltSize+NonceSize], blob[SaltSize+NonceSize:]

	gcm, err := v.aead(salt)
	if err != nil {
		return "", err
	}
	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("%w: decrypting: %v", apperrors.ErrCredentialAccess, err)
	}
	return string(plaintext), nil
}

func (v *Vault) aead(salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key(v.passphrase, salt, PBKDF2Iterations, EncryptionKeySize, sha256.New)
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("creating cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("creating GCM: %w", err)
	}
	return gcm, nil
}

// LoadOrCreateKey reads the vault passphrase from path, generating a random
// one with owner-only permissions on first use.
func LoadOrCreateKey(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		key := strings.TrimSpace(string(data))
		if key == "" {
			return "", fmt.Errorf("%w: key file %s is empty", apperrors.ErrCredentialAccess, path)
		}
		return key, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("reading key file: %w", err)
	}

	raw := make([]byte, EncryptionKeySize)
	if _, err := io.ReadFull(rand.Reader, raw); err != nil {
		return "", fmt.Errorf("generating key: %w", err)
	}
	key := hex.EncodeToString(raw)
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return "", fmt.Errorf("creating key directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(key+"\n"), 0600); err != nil {
		return "", fmt.Errorf("writing key file: %w", err)
	}
	return key, nil
}
