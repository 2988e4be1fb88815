package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"io"

	"stablewallet/internal/errs"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// PBKDF2 parameters for wallet-at-rest encryption.
	// 100k iterations of HMAC-SHA256 keeps unlock latency acceptable on
	// mobile-class hardware while making offline brute force expensive.
	pbkdf2Iterations = 100_000
	keyLen           = 32

	saltLen  = 16
	nonceLen = 12

	// MinPasswordLen is the floor enforced before any key derivation happens.
	MinPasswordLen = 8
)

// AESGCMProvider implements CryptoProvider with PBKDF2-HMAC-SHA256 key
// derivation and AES-256-GCM authenticated encryption.
type AESGCMProvider struct{}

// NewAESGCMProvider returns the default provider.
func NewAESGCMProvider() *AESGCMProvider {
	return &AESGCMProvider{}
}

func (p *AESGCMProvider) DeriveKey(password, salt []byte) []byte {
	return pbkdf2.Key(password, salt, pbkdf2Iterations, keyLen, sha256.New)
}

func (p *AESGCMProvider) Seal(key, nonce, plaintext []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	return aead.Seal(nil, nonce, plaintext, nil), nil
}

func (p *AESGCMProvider) Open(key, nonce, sealed []byte) ([]byte, error) {
	aead, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	return aead.Open(nil, nonce, sealed, nil)
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}

// Encryptor is the encryption module used by the wallet manager. Blobs are
// laid out as salt(16) || nonce(12) || ciphertext+tag and base64 encoded for
// storage as JSON string fields.
type Encryptor struct {
	provider CryptoProvider
}

// NewEncryptor builds an Encryptor on top of the given provider.
func NewEncryptor(provider CryptoProvider) *Encryptor {
	return &Encryptor{provider: provider}
}

// Encrypt seals plaintext under a password-derived key. Salt and nonce are
// freshly generated per call, so encrypting the same plaintext twice never
// yields the same blob.
func (e *Encryptor) Encrypt(plaintext []byte, password string) (string, error) {
	if len(password) < MinPasswordLen {
		return "", errs.ErrInvalidPassword
	}

	salt := make([]byte, saltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", errs.ErrEncryptionFailed
	}
	nonce := make([]byte, nonceLen)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", errs.ErrEncryptionFailed
	}

	key := e.provider.DeriveKey([]byte(password), salt)
	defer Wipe(key)

	sealed, err := e.provider.Seal(key, nonce, plaintext)
	if err != nil {
		return "", errs.ErrEncryptionFailed
	}

	blob := make([]byte, 0, saltLen+nonceLen+len(sealed))
	blob = append(blob, salt...)
	blob = append(blob, nonce...)
	blob = append(blob, sealed...)
	return base64.StdEncoding.EncodeToString(blob), nil
}

// Decrypt opens a blob produced by Encrypt. Wrong password and corrupted
// ciphertext are indistinguishable on purpose: both surface as
// errs.ErrDecryptionFailed with no further detail.
func (e *Encryptor) Decrypt(encoded, password string) ([]byte, error) {
	blob, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, errs.ErrDecryptionFailed
	}
	if len(blob) < saltLen+nonceLen+1 {
		return nil, errs.ErrDecryptionFailed
	}

	salt := blob[:saltLen]
	nonce := blob[saltLen : saltLen+nonceLen]
	sealed := blob[saltLen+nonceLen:]

	key := e.provider.DeriveKey([]byte(password), salt)
	defer Wipe(key)

	plaintext, err := e.provider.Open(key, nonce, sealed)
	if err != nil {
		return nil, errs.ErrDecryptionFailed
	}
	return plaintext, nil
}
