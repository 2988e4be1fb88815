package monitor

import (
	"math/big"
	"testing"

	"stablewallet/internal/types"

	"github.com/ethereum/go-ethereum/common"
	evmTypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	tokenAddr  = common.HexToAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7")
	walletAddr = common.HexToAddress("0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	otherAddr  = common.HexToAddress("0xcccccccccccccccccccccccccccccccccccccccc")
)

func transferLog(token, from, to common.Address, amount *big.Int) *evmTypes.Log {
	return &evmTypes.Log{
		Address: token,
		Topics: []common.Hash{
			transferEventSig,
			common.BytesToHash(from.Bytes()),
			common.BytesToHash(to.Bytes()),
		},
		Data: common.LeftPadBytes(amount.Bytes(), 32),
	}
}

func TestParseTransferAmount(t *testing.T) {
	logs := []*evmTypes.Log{
		// 其他合约发出的同名事件，必须被跳过
		transferLog(otherAddr, walletAddr, otherAddr, big.NewInt(999)),
		// 目标代币、from 是本钱包：这条才算数
		transferLog(tokenAddr, walletAddr, otherAddr, big.NewInt(123456)),
	}

	amount := ParseTransferAmount(logs, tokenAddr.Hex(), walletAddr.Hex())
	require.NotNil(t, amount)
	assert.Equal(t, "123456", amount.String())
}

func TestParseTransferAmountNoMatch(t *testing.T) {
	// from 不是本钱包
	logs := []*evmTypes.Log{
		transferLog(tokenAddr, otherAddr, walletAddr, big.NewInt(42)),
	}
	assert.Nil(t, ParseTransferAmount(logs, tokenAddr.Hex(), walletAddr.Hex()))

	assert.Nil(t, ParseTransferAmount(nil, tokenAddr.Hex(), walletAddr.Hex()))
}

func TestClassifyTransfer(t *testing.T) {
	outgoing := []*evmTypes.Log{transferLog(tokenAddr, walletAddr, otherAddr, big.NewInt(1))}
	assert.Equal(t, types.TxKindSend, ClassifyTransfer(outgoing, walletAddr.Hex()))

	incoming := []*evmTypes.Log{transferLog(tokenAddr, otherAddr, walletAddr, big.NewInt(1))}
	assert.Equal(t, types.TxKindReceive, ClassifyTransfer(incoming, walletAddr.Hex()))

	// 与本钱包无关的日志归为合约交互
	unrelated := []*evmTypes.Log{transferLog(tokenAddr, otherAddr, otherAddr, big.NewInt(1))}
	assert.Equal(t, types.TxKindContract, ClassifyTransfer(unrelated, walletAddr.Hex()))
	assert.Equal(t, types.TxKindContract, ClassifyTransfer(nil, walletAddr.Hex()))
}
