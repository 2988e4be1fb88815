package errs

import "errors"

// Wallet domain errors. Validation errors are raised synchronously before any
// I/O and stay distinguishable to the caller.
var (
	ErrInvalidPassword   = errors.New("password must be at least 8 characters")
	ErrInvalidMnemonic   = errors.New("invalid mnemonic phrase")
	ErrInvalidPrivateKey = errors.New("invalid private key")
	ErrWalletExists      = errors.New("wallet already exists")
	ErrNoWallet          = errors.New("no wallet found")
	ErrNoMnemonic        = errors.New("wallet has no mnemonic")
	ErrEncryptionFailed  = errors.New("encryption failed")

	// ErrDecryptionFailed deliberately covers wrong password, ciphertext
	// corruption and address-integrity mismatch with a single message.
	// Distinguishing those cases would give an attacker an oracle.
	ErrDecryptionFailed = errors.New("incorrect password or corrupted wallet")
)

// Multi-wallet registry errors.
var (
	ErrWalletNotFound = errors.New("wallet not found")
	ErrLastWallet     = errors.New("cannot delete the last remaining wallet")
)

// Transaction domain errors.
var (
	ErrTxTimeout  = errors.New("transaction confirmation timed out")
	ErrTxReverted = errors.New("transaction reverted on chain")
	ErrNetwork    = errors.New("network error")
)
