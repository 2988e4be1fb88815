package crypto

// CryptoProvider abstracts the key derivation and AEAD primitives so the
// wallet logic never touches a concrete cipher. Swapping in a certified
// implementation only requires a new provider.
type CryptoProvider interface {
	// DeriveKey stretches a password into a symmetric key using the given salt.
	DeriveKey(password, salt []byte) []byte
	// Seal encrypts and authenticates plaintext under key and nonce.
	Seal(key, nonce, plaintext []byte) ([]byte, error)
	// Open authenticates and decrypts a sealed blob. Any authentication
	// failure must be reported without detail.
	Open(key, nonce, sealed []byte) ([]byte, error)
}

// Wipe zeroes a secret byte slice in place. Callers should defer it as soon
// as a plaintext secret is materialized so every exit path clears it.
func Wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
