package transaction

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"

	"stablewallet/internal/client"
	"stablewallet/internal/svc"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	evmTypes "github.com/ethereum/go-ethereum/core/types"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/zeromicro/go-zero/core/logx"
)

type TransactionLogic struct {
	ctx    context.Context
	svcCtx *svc.ServiceContext
	logx.Logger
}

func NewTransactionLogic(ctx context.Context, svcCtx *svc.ServiceContext) *TransactionLogic {
	return &TransactionLogic{
		ctx:    ctx,
		svcCtx: svcCtx,
		Logger: logx.WithContext(ctx),
	}
}

// BuildERC20TransferData 构建 ERC20 transfer 调用数据
func (l *TransactionLogic) BuildERC20TransferData(toAddress string, amount *big.Int) []byte {
	// transfer(address to, uint256 amount)
	// 方法签名: 0xa9059cbb
	transferMethodId := []byte{0xa9, 0x05, 0x9c, 0xbb}

	toAddr := common.HexToAddress(toAddress)
	paddedToAddress := common.LeftPadBytes(toAddr.Bytes(), 32)
	paddedAmount := common.LeftPadBytes(amount.Bytes(), 32)

	data := append(transferMethodId, paddedToAddress...)
	data = append(data, paddedAmount...)

	return data
}

// BuildERC20ApproveData 构建 ERC20 approve 调用数据
func (l *TransactionLogic) BuildERC20ApproveData(spenderAddress string, amount *big.Int) []byte {
	// approve(address spender, uint256 amount)
	// 方法签名: 0x095ea7b3
	approveMethodId := []byte{0x09, 0x5e, 0xa7, 0xb3}

	spender := common.HexToAddress(spenderAddress)
	paddedSpender := common.LeftPadBytes(spender.Bytes(), 32)
	paddedAmount := common.LeftPadBytes(amount.Bytes(), 32)

	data := append(approveMethodId, paddedSpender...)
	data = append(data, paddedAmount...)

	return data
}

// CheckAllowance 查询 ERC20 代币的当前 allowance
func (l *TransactionLogic) CheckAllowance(chainClient client.ChainClient, tokenAddress, owner, spender string) (*big.Int, error) {
	// allowance(address owner, address spender) returns (uint256)
	// 方法签名: 0xdd62ed3e
	allowanceMethodId := []byte{0xdd, 0x62, 0xed, 0x3e}

	ownerAddr := common.HexToAddress(owner)
	spenderAddr := common.HexToAddress(spender)

	data := append(allowanceMethodId, common.LeftPadBytes(ownerAddr.Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(spenderAddr.Bytes(), 32)...)

	tokenAddr := common.HexToAddress(tokenAddress)
	result, err := chainClient.CallContract(l.ctx, ethereum.CallMsg{
		To:   &tokenAddr,
		Data: data,
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to call allowance: %v", err)
	}

	return new(big.Int).SetBytes(result), nil
}

// EstimateNativeTransferGas 估算原生代币转账的 gas
func (l *TransactionLogic) EstimateNativeTransferGas(chainClient client.ChainClient, fromAddress, toAddress common.Address, value *big.Int) (uint64, *big.Int, error) {
	gasPrice, err := chainClient.SuggestGasPrice(l.ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to get gas price: %v", err)
	}

	gasLimit, err := chainClient.EstimateGas(l.ctx, ethereum.CallMsg{
		From:  fromAddress,
		To:    &toAddress,
		Value: value,
	})
	if err != nil {
		l.Infof("Gas 估算失败，使用默认值: %v", err)
		gasLimit = 21000
	}

	// 不低于最小值并加缓冲
	if gasLimit < 21000 {
		gasLimit = 21000
	}
	gasLimit = gasLimit * 110 / 100

	return gasLimit, gasPrice, nil
}

// EstimateERC20TransferGas 估算 ERC20 调用的 gas
func (l *TransactionLogic) EstimateERC20TransferGas(chainClient client.ChainClient, fromAddress, tokenAddress common.Address, data []byte) (uint64, *big.Int, error) {
	gasPrice, err := chainClient.SuggestGasPrice(l.ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to get gas price: %v", err)
	}

	gasLimit, err := chainClient.EstimateGas(l.ctx, ethereum.CallMsg{
		From: fromAddress,
		To:   &tokenAddress,
		Data: data,
	})
	if err != nil {
		l.Infof("ERC20 Gas 估算失败，使用默认值: %v", err)
		gasLimit = 100000
	}

	if gasLimit < 60000 {
		gasLimit = 60000
	}
	gasLimit = gasLimit * 120 / 100

	return gasLimit, gasPrice, nil
}

// BuildAndSendTransaction 构建、签名并发送交易，返回交易哈希
func (l *TransactionLogic) BuildAndSendTransaction(chainClient client.ChainClient, privateKey *ecdsa.PrivateKey, to common.Address, value *big.Int, data []byte, gasLimit uint64, gasPrice *big.Int, chainId int64) (string, error) {
	fromAddr := ethcrypto.PubkeyToAddress(privateKey.PublicKey)
	nonce, err := chainClient.PendingNonceAt(l.ctx, fromAddr)
	if err != nil {
		return "", fmt.Errorf("failed to get nonce: %v", err)
	}

	tx := evmTypes.NewTx(&evmTypes.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    value,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})

	signedTx, err := evmTypes.SignTx(tx, evmTypes.NewEIP155Signer(big.NewInt(chainId)), privateKey)
	if err != nil {
		return "", errors.New("failed to sign transaction")
	}

	if err := chainClient.SendTransaction(l.ctx, signedTx); err != nil {
		return "", fmt.Errorf("failed to send transaction: %v", err)
	}

	return signedTx.Hash().Hex(), nil
}

// BuildExplorerUrl 根据链类型构建区块浏览器链接
func (l *TransactionLogic) BuildExplorerUrl(chain, txHash string) string {
	switch chain {
	case "ETH":
		return fmt.Sprintf("https://etherscan.io/tx/%s", txHash)
	case "ETH-Sepolia":
		return fmt.Sprintf("https://sepolia.etherscan.io/tx/%s", txHash)
	case "BSC":
		return fmt.Sprintf("https://bscscan.com/tx/%s", txHash)
	case "BSC-TestNet":
		return fmt.Sprintf("https://testnet.bscscan.com/tx/%s", txHash)
	case "Polygon":
		return fmt.Sprintf("https://polygonscan.com/tx/%s", txHash)
	default:
		l.Infof("未知链类型 %s，返回通用浏览器链接", chain)
		return fmt.Sprintf("https://explorer.example.com/tx/%s", txHash)
	}
}
