package monitor

import (
	"math/big"

	"stablewallet/internal/types"

	"github.com/ethereum/go-ethereum/common"
	evmTypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

// ERC20 Transfer(address indexed from, address indexed to, uint256 value)
var transferEventSig = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))

// ParseTransferAmount 从回执日志中提取本钱包发出的 ERC20 Transfer 结算数额
// 只认目标代币合约发出的、from 是本钱包地址的 Transfer 事件；没有匹配时返回 nil
func ParseTransferAmount(logs []*evmTypes.Log, tokenAddress, fromAddress string) *big.Int {
	token := common.HexToAddress(tokenAddress)
	from := common.HexToAddress(fromAddress)

	for _, entry := range logs {
		if entry == nil || entry.Address != token {
			continue
		}
		// topics: [事件签名, from, to]
		if len(entry.Topics) < 3 || entry.Topics[0] != transferEventSig {
			continue
		}
		if common.BytesToAddress(entry.Topics[1].Bytes()) != from {
			continue
		}
		if len(entry.Data) == 0 {
			continue
		}
		return new(big.Int).SetBytes(entry.Data)
	}
	return nil
}

// ClassifyTransfer 根据日志方向判定交易类型：from 是本地址为 send，
// to 是本地址为 receive，其余归为 contract 交互
func ClassifyTransfer(logs []*evmTypes.Log, walletAddress string) types.TxKind {
	wallet := common.HexToAddress(walletAddress)

	for _, entry := range logs {
		if entry == nil || len(entry.Topics) < 3 || entry.Topics[0] != transferEventSig {
			continue
		}
		if common.BytesToAddress(entry.Topics[1].Bytes()) == wallet {
			return types.TxKindSend
		}
		if common.BytesToAddress(entry.Topics[2].Bytes()) == wallet {
			return types.TxKindReceive
		}
	}
	return types.TxKindContract
}
