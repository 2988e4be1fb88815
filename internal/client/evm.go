package client

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	evmTypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
)

// ChainClient is the chain-RPC collaborator consumed by the transaction and
// monitor logic. ethclient satisfies it in production; tests substitute a
// fake so receipt timing is deterministic.
type ChainClient interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*evmTypes.Receipt, error)
	HeaderByNumber(ctx context.Context, number *big.Int) (*evmTypes.Header, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	SendTransaction(ctx context.Context, tx *evmTypes.Transaction) error
}

// Dial connects to an EVM RPC endpoint.
func Dial(rawUrl string) (ChainClient, error) {
	c, err := ethclient.Dial(rawUrl)
	if err != nil {
		return nil, err
	}
	return c, nil
}
