package types

// TxStatus is the monitored lifecycle state of an outbound transaction.
// A transaction is created pending and transitions exactly once to a
// terminal state; terminal states are never reverted.
type TxStatus string

const (
	TxStatusPending   TxStatus = "pending"
	TxStatusConfirmed TxStatus = "confirmed"
	TxStatusFailed    TxStatus = "failed"
)

// TxKind classifies what the transaction does from the wallet's viewpoint.
type TxKind string

const (
	TxKindSend     TxKind = "send"
	TxKindReceive  TxKind = "receive"
	TxKindApprove  TxKind = "approve"
	TxKindContract TxKind = "contract"
)

// Transaction is the persisted history record. The monitor is its sole
// writer; everything else reads projections. Block fields stay empty until
// the transaction is mined.
type Transaction struct {
	Hash          string   `json:"hash"`
	From          string   `json:"from"`
	To            string   `json:"to,omitempty"` // empty for contract creation
	Value         string   `json:"value"`
	TokenAddress  string   `json:"tokenAddress,omitempty"` // empty for native transfers
	TokenSymbol   string   `json:"tokenSymbol,omitempty"`
	TokenDecimals int      `json:"tokenDecimals,omitempty"`
	Status        TxStatus `json:"status"`
	Kind          TxKind   `json:"kind"`
	BlockNumber   uint64   `json:"blockNumber,omitempty"`
	Timestamp     int64    `json:"timestamp,omitempty"`
	GasUsed       string   `json:"gasUsed,omitempty"`
	GasPrice      string   `json:"gasPrice,omitempty"`
	ChainID       int64    `json:"chainId"`
	Error         string   `json:"error,omitempty"`
}

// TxHandle is what the submission primitive hands to the monitor: the facts
// known at send time, before any receipt exists.
type TxHandle struct {
	Hash     string
	From     string
	To       string
	Value    string
	GasPrice string
	ChainID  int64
}

// TokenMeta describes the asset being moved, for display and history.
// Zero value means the chain's native asset.
type TokenMeta struct {
	Address  string
	Symbol   string
	Decimals int
}

type SendTxReq struct {
	Chain         string `json:"chain" validate:"required"`
	Password      string `json:"password" validate:"required"`
	WalletID      string `json:"wallet_id,optional"` // empty means active wallet
	ToAddress     string `json:"to_address" validate:"required"`
	Token         string `json:"token,optional"` // empty or zero address for native
	TokenSymbol   string `json:"token_symbol,optional"`
	TokenDecimals int    `json:"token_decimals,optional"`
	Amount        string `json:"amount" validate:"required"` // base units, decimal string
}

type SendTxResp struct {
	TxHash      string `json:"tx_hash"`
	Status      string `json:"status"`
	ExplorerUrl string `json:"explorer_url"`
	Message     string `json:"message"`
}

type ApproveTxReq struct {
	Chain          string `json:"chain" validate:"required"`
	Password       string `json:"password" validate:"required"`
	WalletID       string `json:"wallet_id,optional"`
	TokenAddress   string `json:"token_address" validate:"required"`
	SpenderAddress string `json:"spender_address" validate:"required"`
	Amount         string `json:"amount,optional"` // empty or "max" means unlimited
}

type ApproveTxResp struct {
	TxHash      string `json:"tx_hash"`
	Status      string `json:"status"`
	Allowance   string `json:"allowance"`
	ExplorerUrl string `json:"explorer_url"`
	Message     string `json:"message"`
}

type TxHistoryResp struct {
	Transactions []Transaction `json:"transactions"`
}

type BalanceReq struct {
	Chain   string `form:"chain" validate:"required"`
	Address string `form:"address,optional"` // empty means active wallet
}

type BalanceResp struct {
	Address string `json:"address"`
	Balance string `json:"balance"` // wei, decimal string
	Chain   string `json:"chain"`
}
