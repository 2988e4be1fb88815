package crypto

import (
	"encoding/base64"
	"testing"

	"stablewallet/internal/errs"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEncryptor() *Encryptor {
	return NewEncryptor(NewAESGCMProvider())
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	e := newTestEncryptor()

	cases := [][]byte{
		[]byte("hello"),
		[]byte(""),
		[]byte("0xabcdef0123456789abcdef0123456789abcdef0123456789abcdef0123456789"),
		{0x00, 0xff, 0x10, 0x80},
	}
	for _, plaintext := range cases {
		blob, err := e.Encrypt(plaintext, "Secur3Pass!")
		require.NoError(t, err)

		got, err := e.Decrypt(blob, "Secur3Pass!")
		require.NoError(t, err)
		assert.Equal(t, plaintext, got)
	}
}

func TestEncryptRejectsShortPassword(t *testing.T) {
	e := newTestEncryptor()

	_, err := e.Encrypt([]byte("secret"), "short")
	assert.ErrorIs(t, err, errs.ErrInvalidPassword)

	_, err = e.Encrypt([]byte("secret"), "1234567")
	assert.ErrorIs(t, err, errs.ErrInvalidPassword)
}

func TestEncryptIsNonDeterministic(t *testing.T) {
	e := newTestEncryptor()

	first, err := e.Encrypt([]byte("same plaintext"), "Secur3Pass!")
	require.NoError(t, err)
	second, err := e.Encrypt([]byte("same plaintext"), "Secur3Pass!")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestDecryptWrongPassword(t *testing.T) {
	e := newTestEncryptor()

	blob, err := e.Encrypt([]byte("secret"), "Secur3Pass!")
	require.NoError(t, err)

	got, err := e.Decrypt(blob, "WrongPass!!")
	assert.ErrorIs(t, err, errs.ErrDecryptionFailed)
	assert.Nil(t, got)
}

func TestDecryptDetectsTampering(t *testing.T) {
	e := newTestEncryptor()

	blob, err := e.Encrypt([]byte("tamper target"), "Secur3Pass!")
	require.NoError(t, err)

	raw, err := base64.StdEncoding.DecodeString(blob)
	require.NoError(t, err)

	// Flipping any single byte of the decoded blob must break decryption:
	// salt and nonce changes alter the derived key or IV, ciphertext and tag
	// changes fail GCM authentication.
	for i := range raw {
		mutated := make([]byte, len(raw))
		copy(mutated, raw)
		mutated[i] ^= 0x01

		_, err := e.Decrypt(base64.StdEncoding.EncodeToString(mutated), "Secur3Pass!")
		assert.ErrorIs(t, err, errs.ErrDecryptionFailed, "byte %d", i)
	}
}

func TestDecryptRejectsGarbage(t *testing.T) {
	e := newTestEncryptor()

	_, err := e.Decrypt("not base64 at all!!!", "Secur3Pass!")
	assert.ErrorIs(t, err, errs.ErrDecryptionFailed)

	// Valid base64 but far too short to carry salt+nonce.
	_, err = e.Decrypt(base64.StdEncoding.EncodeToString([]byte("tiny")), "Secur3Pass!")
	assert.ErrorIs(t, err, errs.ErrDecryptionFailed)
}

func TestWipe(t *testing.T) {
	secret := []byte{1, 2, 3, 4}
	Wipe(secret)
	assert.Equal(t, []byte{0, 0, 0, 0}, secret)
}
