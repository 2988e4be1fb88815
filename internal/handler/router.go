package handler

import (
	"net/http"
	"time"

	"stablewallet/internal/svc"

	"github.com/zeromicro/go-zero/rest"
)

func RegisterHandlers(server *rest.Server, serverCtx *svc.ServiceContext) {
	server.AddRoutes(
		[]rest.Route{
			// --- Wallet Routes ---
			{
				Method:  http.MethodPost,
				Path:    "/wallet/create",
				Handler: WalletCreateHandler(serverCtx),
			},
			{
				Method:  http.MethodPost,
				Path:    "/wallet/import_mnemonic",
				Handler: WalletImportMnemonicHandler(serverCtx),
			},
			{
				Method:  http.MethodPost,
				Path:    "/wallet/import_key",
				Handler: WalletImportKeyHandler(serverCtx),
			},
			{
				Method:  http.MethodPost,
				Path:    "/wallet/verify_password",
				Handler: WalletVerifyPasswordHandler(serverCtx),
			},
			{
				Method:  http.MethodPost,
				Path:    "/wallet/delete",
				Handler: WalletDeleteHandler(serverCtx),
			},
			{
				Method:  http.MethodPost,
				Path:    "/wallet/export_key",
				Handler: WalletExportKeyHandler(serverCtx),
			},
			{
				Method:  http.MethodPost,
				Path:    "/wallet/export_mnemonic",
				Handler: WalletExportMnemonicHandler(serverCtx),
			},
			{
				Method:  http.MethodGet,
				Path:    "/wallet/backup",
				Handler: WalletExportBackupHandler(serverCtx),
			},
			{
				Method:  http.MethodPost,
				Path:    "/wallet/restore",
				Handler: WalletRestoreBackupHandler(serverCtx),
			},
			// --- Multi-Wallet Routes ---
			{
				Method:  http.MethodPost,
				Path:    "/wallets/create",
				Handler: MultiWalletCreateHandler(serverCtx),
			},
			{
				Method:  http.MethodPost,
				Path:    "/wallets/import_mnemonic",
				Handler: MultiWalletImportMnemonicHandler(serverCtx),
			},
			{
				Method:  http.MethodPost,
				Path:    "/wallets/import_key",
				Handler: MultiWalletImportKeyHandler(serverCtx),
			},
			{
				Method:  http.MethodGet,
				Path:    "/wallets/list",
				Handler: MultiWalletListHandler(serverCtx),
			},
			{
				Method:  http.MethodPost,
				Path:    "/wallets/switch",
				Handler: MultiWalletSwitchHandler(serverCtx),
			},
			{
				Method:  http.MethodPost,
				Path:    "/wallets/update",
				Handler: MultiWalletUpdateMetaHandler(serverCtx),
			},
			{
				Method:  http.MethodPost,
				Path:    "/wallets/remove",
				Handler: MultiWalletRemoveHandler(serverCtx),
			},
			// --- Transaction Routes ---
			{
				Method:  http.MethodPost,
				Path:    "/transaction/send",
				Handler: TransactionSendHandler(serverCtx),
			},
			{
				Method:  http.MethodPost,
				Path:    "/transaction/approve",
				Handler: TransactionApproveHandler(serverCtx),
			},
			{
				Method:  http.MethodGet,
				Path:    "/transaction/history",
				Handler: TransactionHistoryHandler(serverCtx),
			},
			{
				Method:  http.MethodGet,
				Path:    "/balance",
				Handler: BalanceHandler(serverCtx),
			},
		},
		rest.WithPrefix("/api/"),
		rest.WithTimeout(30000*time.Millisecond),
	)
}
