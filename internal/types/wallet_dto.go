package types

import (
	"crypto/ecdsa"
	"time"
)

// WalletKind tags a record as HD (recoverable mnemonic) or imported from a
// raw private key (no mnemonic, ever).
type WalletKind string

const (
	KindHD       WalletKind = "hd"
	KindImported WalletKind = "imported"
)

// WalletRecord is the persisted form of a single wallet identity. Only
// ciphertexts are stored; the address is plaintext because it is public.
// EncryptedMnemonic is empty if and only if Kind is imported.
type WalletRecord struct {
	EncryptedPrivateKey string     `json:"encryptedPrivateKey"`
	EncryptedMnemonic   string     `json:"encryptedMnemonic,omitempty"`
	Address             string     `json:"address"`
	CreatedAt           time.Time  `json:"createdAt"`
	Kind                WalletKind `json:"kind"`
}

// HasMnemonic reports whether the record carries a recoverable mnemonic.
func (r *WalletRecord) HasMnemonic() bool {
	return r.Kind == KindHD && r.EncryptedMnemonic != ""
}

// UnlockedWallet holds plaintext secrets for exactly one operation. It is
// never persisted, logged or cached; callers must defer Wipe immediately.
type UnlockedWallet struct {
	Address    string
	PrivateKey *ecdsa.PrivateKey
	Mnemonic   []byte // nil for imported wallets
	Kind       WalletKind
}

// Wipe clears the plaintext secrets in place. Safe to call more than once.
func (u *UnlockedWallet) Wipe() {
	if u.PrivateKey != nil && u.PrivateKey.D != nil {
		u.PrivateKey.D.SetInt64(0)
	}
	u.PrivateKey = nil
	for i := range u.Mnemonic {
		u.Mnemonic[i] = 0
	}
	u.Mnemonic = nil
}

// WalletBackup is the exported backup file. It repackages the already
// encrypted record; restoring requires the original password.
type WalletBackup struct {
	Version    string       `json:"version"`
	Wallet     WalletRecord `json:"wallet"`
	ExportedAt time.Time    `json:"exportedAt"`
	Type       string       `json:"type"`
}

// CreateWalletReq creates a fresh HD wallet protected by the password.
type CreateWalletReq struct {
	Password string `json:"password" validate:"required"`
}

// CreateWalletResp returns the mnemonic exactly once for user backup. It is
// not stored in plaintext anywhere; display-once discipline is the caller's.
type CreateWalletResp struct {
	Address  string `json:"address"`
	Mnemonic string `json:"mnemonic"`
}

type ImportMnemonicReq struct {
	Mnemonic string `json:"mnemonic" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type ImportPrivateKeyReq struct {
	PrivateKey string `json:"private_key" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

type ImportWalletResp struct {
	Address string `json:"address"`
}

type VerifyPasswordReq struct {
	Password string `json:"password" validate:"required"`
}

type VerifyPasswordResp struct {
	Valid bool `json:"valid"`
}

type ExportSecretReq struct {
	Password string `json:"password" validate:"required"`
}

type ExportPrivateKeyResp struct {
	PrivateKey string `json:"private_key"`
}

type ExportMnemonicResp struct {
	Mnemonic string `json:"mnemonic"`
}

type ExportBackupResp struct {
	Backup WalletBackup `json:"backup"`
}

type RestoreBackupReq struct {
	Backup   WalletBackup `json:"backup" validate:"required"`
	Password string       `json:"password" validate:"required"`
}

type DeleteWalletResp struct {
	Message string `json:"message"`
}
