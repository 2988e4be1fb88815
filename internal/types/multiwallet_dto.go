package types

import "time"

// MultiWalletRecord wraps a WalletRecord with registry identity and display
// metadata. The id is a cryptographically random opaque identifier.
type MultiWalletRecord struct {
	ID         string    `json:"id"`
	Label      string    `json:"label"`
	Color      string    `json:"color"`
	Icon       string    `json:"icon"`
	LastUsedAt time.Time `json:"lastUsedAt"`
	Order      int       `json:"order"`

	WalletRecord
}

// WalletSummary is the secret-free projection served to list views.
type WalletSummary struct {
	ID         string     `json:"id"`
	Label      string     `json:"label"`
	Address    string     `json:"address"`
	Color      string     `json:"color"`
	Icon       string     `json:"icon"`
	Kind       WalletKind `json:"kind"`
	CreatedAt  time.Time  `json:"createdAt"`
	LastUsedAt time.Time  `json:"lastUsedAt"`
	IsActive   bool       `json:"isActive"`
}

type AddWalletReq struct {
	Label    string `json:"label,optional"`
	Password string `json:"password" validate:"required"`
}

type AddWalletResp struct {
	ID       string `json:"id"`
	Address  string `json:"address"`
	Mnemonic string `json:"mnemonic,omitempty"`
}

type AddWalletMnemonicReq struct {
	Label    string `json:"label,optional"`
	Mnemonic string `json:"mnemonic" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type AddWalletPrivateKeyReq struct {
	Label      string `json:"label,optional"`
	PrivateKey string `json:"private_key" validate:"required"`
	Password   string `json:"password" validate:"required"`
}

type SwitchWalletReq struct {
	ID string `json:"id" validate:"required"`
}

// UpdateWalletMetaReq patches display metadata. Nil fields are left as is.
type UpdateWalletMetaReq struct {
	ID    string  `json:"id" validate:"required"`
	Label *string `json:"label,optional"`
	Color *string `json:"color,optional"`
	Icon  *string `json:"icon,optional"`
}

type RemoveWalletReq struct {
	ID string `json:"id" validate:"required"`
}

type ListWalletsResp struct {
	Wallets  []WalletSummary `json:"wallets"`
	ActiveID string          `json:"active_id"`
}
