package constant

// Logical storage keys. The storage collaborator offers no transactions
// across keys, so writers must tolerate partial updates between them.
const (
	StorageKeyWallet       = "wallet_record"
	StorageKeyMultiWallets = "multi_wallets"
	StorageKeyActiveWallet = "active_wallet_id"
	StorageKeyTxHistory    = "tx_history"
)

// DerivationPath is the fixed BIP44 coordinate for every HD wallet the core
// creates or imports: m/44'/60'/0'/0/0.
const DerivationPath = "m/44'/60'/0'/0/0"

// BackupType tags exported backup files so restores can reject foreign JSON.
const (
	BackupType    = "stablecoin-wallet-backup"
	BackupVersion = "1.0"
)

// MnemonicWordCounts lists the BIP39 word counts accepted on import.
var MnemonicWordCounts = map[int]bool{
	12: true,
	15: true,
	18: true,
	21: true,
	24: true,
}

// WalletColors and WalletIcons are the display palettes the registry assigns
// from with a least-used heuristic. Values are opaque to the core.
var WalletColors = []string{
	"#4F6EF7",
	"#9B59F6",
	"#2BC8A6",
	"#F6A723",
	"#F75C6E",
	"#38BDF8",
}

var WalletIcons = []string{
	"wallet",
	"star",
	"shield",
	"diamond",
	"rocket",
	"leaf",
}

// Zero address and the conventional "native asset" placeholder. Transfers of
// the chain's native coin carry no token contract address.
var NativeTokenAddresses = []string{
	"0x0000000000000000000000000000000000000000",
	"0xEeeeeEeeeEeEeeEeEeEeeEEEeeeeEeeeeeeeEEeE",
}

// IsNativeToken reports whether a token address denotes the native asset.
func IsNativeToken(token string) bool {
	if token == "" {
		return true
	}
	for _, native := range NativeTokenAddresses {
		if token == native {
			return true
		}
	}
	return false
}
