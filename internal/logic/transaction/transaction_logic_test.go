package transaction

import (
	"context"
	"encoding/hex"
	"math/big"
	"testing"

	"stablewallet/internal/svc"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLogic() *TransactionLogic {
	return NewTransactionLogic(context.Background(), &svc.ServiceContext{})
}

func TestBuildERC20TransferData(t *testing.T) {
	l := newTestLogic()

	data := l.BuildERC20TransferData("0x000000000000000000000000000000000000dEaD", big.NewInt(1000))
	require.Len(t, data, 4+32+32)

	// transfer(address,uint256) 选择器
	assert.Equal(t, "a9059cbb", hex.EncodeToString(data[:4]))
	// 收款地址左补零到 32 字节
	assert.Equal(t, "000000000000000000000000000000000000dead", hex.EncodeToString(data[16:36]))
	// 金额 1000 = 0x3e8
	assert.Equal(t, "03e8", hex.EncodeToString(data[66:]))
}

func TestBuildERC20ApproveData(t *testing.T) {
	l := newTestLogic()

	data := l.BuildERC20ApproveData("0x000000000000000000000000000000000000dEaD", big.NewInt(1))
	require.Len(t, data, 4+32+32)
	assert.Equal(t, "095ea7b3", hex.EncodeToString(data[:4]))
}

func TestMaxApproveAmount(t *testing.T) {
	max := maxApproveAmount()
	// 2^256 - 1
	expected := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))
	assert.Zero(t, max.Cmp(expected))
}

func TestBuildExplorerUrl(t *testing.T) {
	l := newTestLogic()
	hash := "0xabc"

	assert.Equal(t, "https://etherscan.io/tx/0xabc", l.BuildExplorerUrl("ETH", hash))
	assert.Equal(t, "https://sepolia.etherscan.io/tx/0xabc", l.BuildExplorerUrl("ETH-Sepolia", hash))
	assert.Equal(t, "https://bscscan.com/tx/0xabc", l.BuildExplorerUrl("BSC", hash))
	assert.Equal(t, "https://polygonscan.com/tx/0xabc", l.BuildExplorerUrl("Polygon", hash))
	assert.Contains(t, l.BuildExplorerUrl("Unknown", hash), hash)
}
