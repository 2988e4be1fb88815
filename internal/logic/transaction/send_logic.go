package transaction

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"stablewallet/internal/constant"
	"stablewallet/internal/errs"
	"stablewallet/internal/logic/multiwallet"
	"stablewallet/internal/logic/wallet"
	"stablewallet/internal/types"

	"github.com/ethereum/go-ethereum/common"
)

// WrapSend 纯原生转账操作：解锁签名 -> 构建交易 -> 发送 -> 交给监控器跟踪
func (l *TransactionLogic) WrapSend(req *types.SendTxReq) (resp *types.SendTxResp, err error) {
	l.Infof("--- 开始处理 /transaction/send 请求 ---")

	// 1. 获取链配置和客户端
	l.Infof("步骤 1: 获取链配置 for chain: %s", req.Chain)
	chainClient, chainConf, err := l.svcCtx.ChainClient(req.Chain)
	if err != nil {
		l.Errorf("获取链配置失败: %v", err)
		return nil, err
	}

	// 2. 解锁签名钱包（临时明文，用完即擦除）
	l.Infof("步骤 2: 解锁签名钱包...")
	unlocked, err := l.unlockSigner(req.WalletID, req.Password)
	if err != nil {
		return nil, err
	}
	defer unlocked.Wipe()
	l.Infof("钱包解锁成功: %s", unlocked.Address)

	// 3. 解析转账金额
	amount, ok := new(big.Int).SetString(req.Amount, 10)
	if !ok || amount.Sign() < 0 {
		return nil, errors.New("invalid amount")
	}

	// 4. 检查收款地址类型（合约地址有 OOG 风险，只警告不阻止）
	toAddr := common.HexToAddress(req.ToAddress)
	if code, codeErr := chainClient.CodeAt(l.ctx, toAddr, nil); codeErr == nil && len(code) > 0 {
		l.Infof("警告：收款地址是合约地址，可能存在 gas 不足风险")
	}

	fromAddr := common.HexToAddress(unlocked.Address)
	isNative := constant.IsNativeToken(req.Token)

	// 5. 构建并发送交易
	var txHash string
	var gasPrice *big.Int
	var handleValue string
	var tokenMeta types.TokenMeta

	if isNative {
		l.Infof("=== 执行原生代币转账 ===")
		gasLimit, price, gasErr := l.EstimateNativeTransferGas(chainClient, fromAddr, toAddr, amount)
		if gasErr != nil {
			return nil, fmt.Errorf("gas estimation failed: %v", gasErr)
		}
		gasPrice = price

		txHash, err = l.BuildAndSendTransaction(chainClient, unlocked.PrivateKey, toAddr, amount, nil, gasLimit, gasPrice, chainConf.ChainId)
		if err != nil {
			l.Errorf("发送交易失败: %v", err)
			return nil, err
		}
		handleValue = amount.String()
	} else {
		l.Infof("=== 执行 ERC20 代币转账 ===")
		data := l.BuildERC20TransferData(req.ToAddress, amount)
		tokenAddr := common.HexToAddress(req.Token)

		gasLimit, price, gasErr := l.EstimateERC20TransferGas(chainClient, fromAddr, tokenAddr, data)
		if gasErr != nil {
			return nil, fmt.Errorf("ERC20 gas estimation failed: %v", gasErr)
		}
		gasPrice = price

		txHash, err = l.BuildAndSendTransaction(chainClient, unlocked.PrivateKey, tokenAddr, big.NewInt(0), data, gasLimit, gasPrice, chainConf.ChainId)
		if err != nil {
			l.Errorf("发送交易失败: %v", err)
			return nil, err
		}
		handleValue = amount.String()
		tokenMeta = types.TokenMeta{
			Address:  req.Token,
			Symbol:   req.TokenSymbol,
			Decimals: req.TokenDecimals,
		}
	}

	// 6. 交给监控器跟踪直到终态
	handle := types.TxHandle{
		Hash:     txHash,
		From:     unlocked.Address,
		To:       req.ToAddress,
		Value:    handleValue,
		GasPrice: gasPrice.String(),
		ChainID:  chainConf.ChainId,
	}
	if _, trackErr := l.svcCtx.Monitor.Track(handle, tokenMeta, types.TxKindSend, types.TxCallbacks{}); trackErr != nil {
		l.Errorf("登记交易监控失败: %v", trackErr)
	}

	l.Infof("--- /transaction/send 请求处理完成, TxHash: %s ---", txHash)
	return &types.SendTxResp{
		TxHash:      txHash,
		Status:      string(types.TxStatusPending),
		ExplorerUrl: l.BuildExplorerUrl(req.Chain, txHash),
		Message:     "✅ 转账已提交！交易正在链上确认中。",
	}, nil
}

// WrapApprove 执行 ERC20 approve 并跟踪
// amount 为空或 "max" 表示无限授权
func (l *TransactionLogic) WrapApprove(req *types.ApproveTxReq) (resp *types.ApproveTxResp, err error) {
	l.Infof("--- 开始处理 /transaction/approve 请求 ---")

	chainClient, chainConf, err := l.svcCtx.ChainClient(req.Chain)
	if err != nil {
		return nil, err
	}

	unlocked, err := l.unlockSigner(req.WalletID, req.Password)
	if err != nil {
		return nil, err
	}
	defer unlocked.Wipe()

	amount := maxApproveAmount()
	if req.Amount != "" && !strings.EqualFold(req.Amount, "max") {
		parsed, ok := new(big.Int).SetString(req.Amount, 10)
		if !ok || parsed.Sign() < 0 {
			return nil, errors.New("invalid amount")
		}
		amount = parsed
	}

	// 已有足额授权时跳过链上交易
	allowance, err := l.CheckAllowance(chainClient, req.TokenAddress, unlocked.Address, req.SpenderAddress)
	if err != nil {
		l.Infof("Allowance 查询失败，继续执行 approve: %v", err)
	} else if allowance.Cmp(amount) >= 0 {
		l.Infof("当前 allowance 已足够: %s", allowance.String())
		return &types.ApproveTxResp{
			Status:    "skipped",
			Allowance: allowance.String(),
			Message:   "当前授权额度已足够，无需重复授权。",
		}, nil
	}

	data := l.BuildERC20ApproveData(req.SpenderAddress, amount)
	fromAddr := common.HexToAddress(unlocked.Address)
	tokenAddr := common.HexToAddress(req.TokenAddress)

	gasLimit, gasPrice, err := l.EstimateERC20TransferGas(chainClient, fromAddr, tokenAddr, data)
	if err != nil {
		return nil, fmt.Errorf("gas estimation failed: %v", err)
	}

	txHash, err := l.BuildAndSendTransaction(chainClient, unlocked.PrivateKey, tokenAddr, big.NewInt(0), data, gasLimit, gasPrice, chainConf.ChainId)
	if err != nil {
		return nil, err
	}

	handle := types.TxHandle{
		Hash:     txHash,
		From:     unlocked.Address,
		To:       req.TokenAddress,
		Value:    "0",
		GasPrice: gasPrice.String(),
		ChainID:  chainConf.ChainId,
	}
	tokenMeta := types.TokenMeta{Address: req.TokenAddress}
	if _, trackErr := l.svcCtx.Monitor.Track(handle, tokenMeta, types.TxKindApprove, types.TxCallbacks{}); trackErr != nil {
		l.Errorf("登记交易监控失败: %v", trackErr)
	}

	l.Infof("--- /transaction/approve 请求处理完成, TxHash: %s ---", txHash)
	return &types.ApproveTxResp{
		TxHash:      txHash,
		Status:      string(types.TxStatusPending),
		ExplorerUrl: l.BuildExplorerUrl(req.Chain, txHash),
		Message:     "✅ 授权交易已提交！",
	}, nil
}

// History 返回持久化的交易历史（只读）
func (l *TransactionLogic) History() (resp *types.TxHistoryResp, err error) {
	history, err := l.svcCtx.Monitor.History(l.ctx)
	if err != nil {
		return nil, err
	}
	return &types.TxHistoryResp{Transactions: history}, nil
}

// Balance 查询地址余额，address 为空时使用当前活跃钱包
func (l *TransactionLogic) Balance(req *types.BalanceReq) (resp *types.BalanceResp, err error) {
	chainClient, _, err := l.svcCtx.ChainClient(req.Chain)
	if err != nil {
		return nil, err
	}

	address := req.Address
	if address == "" {
		record, recordErr := multiwallet.NewMultiWalletLogic(l.ctx, l.svcCtx).ActiveRecord()
		if recordErr != nil {
			return nil, recordErr
		}
		address = record.Address
	}

	balance, err := chainClient.BalanceAt(l.ctx, common.HexToAddress(address), nil)
	if err != nil {
		return nil, errs.ErrNetwork
	}

	return &types.BalanceResp{
		Address: address,
		Balance: balance.String(),
		Chain:   req.Chain,
	}, nil
}

// unlockSigner 解锁签名身份：带 wallet_id 走注册表，不带时优先活跃钱包，
// 注册表为空则退回单钱包记录
func (l *TransactionLogic) unlockSigner(walletID, password string) (*types.UnlockedWallet, error) {
	mw := multiwallet.NewMultiWalletLogic(l.ctx, l.svcCtx)
	if walletID != "" {
		return mw.Unlock(walletID, password)
	}

	if record, err := mw.ActiveRecord(); err == nil {
		return wallet.NewWalletLogic(l.ctx, l.svcCtx).UnlockRecord(&record.WalletRecord, password)
	}
	return wallet.NewWalletLogic(l.ctx, l.svcCtx).Unlock(password)
}

// maxApproveAmount 返回 2^256-1，即无限授权额度
func maxApproveAmount() *big.Int {
	max := new(big.Int).Lsh(big.NewInt(1), 256)
	return max.Sub(max, big.NewInt(1))
}
