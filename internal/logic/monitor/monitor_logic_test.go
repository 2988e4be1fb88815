package monitor

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"stablewallet/internal/client"
	"stablewallet/internal/errs"
	"stablewallet/internal/model"
	"stablewallet/internal/types"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	evmTypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeChainClient 只实现监控器用到的回执和区块头查询，其余方法返回零值
type fakeChainClient struct {
	mu       sync.Mutex
	receipts map[common.Hash]*evmTypes.Receipt
}

func newFakeChainClient() *fakeChainClient {
	return &fakeChainClient{receipts: make(map[common.Hash]*evmTypes.Receipt)}
}

func (f *fakeChainClient) setReceipt(hash string, receipt *evmTypes.Receipt) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.receipts[common.HexToHash(hash)] = receipt
}

func (f *fakeChainClient) TransactionReceipt(ctx context.Context, txHash common.Hash) (*evmTypes.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if receipt, ok := f.receipts[txHash]; ok {
		return receipt, nil
	}
	return nil, ethereum.NotFound
}

func (f *fakeChainClient) HeaderByNumber(ctx context.Context, number *big.Int) (*evmTypes.Header, error) {
	return &evmTypes.Header{Number: number, Time: 1_700_000_000}, nil
}

func (f *fakeChainClient) BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error) {
	return big.NewInt(0), nil
}

func (f *fakeChainClient) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	return big.NewInt(1_000_000_000), nil
}

func (f *fakeChainClient) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	return 0, nil
}

func (f *fakeChainClient) EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error) {
	return 21000, nil
}

func (f *fakeChainClient) CodeAt(ctx context.Context, account common.Address, blockNumber *big.Int) ([]byte, error) {
	return nil, nil
}

func (f *fakeChainClient) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	return nil, nil
}

func (f *fakeChainClient) SendTransaction(ctx context.Context, tx *evmTypes.Transaction) error {
	return nil
}

const testHash = "0x1111111111111111111111111111111111111111111111111111111111111111"

func successReceipt() *evmTypes.Receipt {
	return &evmTypes.Receipt{
		Status:            evmTypes.ReceiptStatusSuccessful,
		BlockNumber:       big.NewInt(123),
		GasUsed:           65000,
		EffectiveGasPrice: big.NewInt(2_000_000_000),
	}
}

func testHandle() types.TxHandle {
	return types.TxHandle{
		Hash:     testHash,
		From:     "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa",
		To:       "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb",
		Value:    "1000",
		GasPrice: "1000000000",
		ChainID:  1,
	}
}

func newTestMonitor(chainClient *fakeChainClient, timeout time.Duration) (*TxMonitor, *model.MemoryStorage) {
	storage := model.NewMemoryStorage()
	return NewTxMonitor(storage, chainClient, 10*time.Millisecond, timeout), storage
}

func findRecord(t *testing.T, m *TxMonitor, hash string) *types.Transaction {
	t.Helper()
	history, err := m.History(context.Background())
	require.NoError(t, err)
	for i := range history {
		if history[i].Hash == hash {
			return &history[i]
		}
	}
	return nil
}

func TestTrackConfirmsOnReceipt(t *testing.T) {
	chainClient := newFakeChainClient()
	chainClient.setReceipt(testHash, successReceipt())
	m, _ := newTestMonitor(chainClient, time.Minute)
	defer m.Stop()

	var updates []types.TxStatus
	var updatesMu sync.Mutex
	confirmed := make(chan *types.Transaction, 1)

	_, err := m.Track(testHandle(), types.TokenMeta{}, types.TxKindSend, types.TxCallbacks{
		OnUpdate: func(status types.TxStatus) {
			updatesMu.Lock()
			updates = append(updates, status)
			updatesMu.Unlock()
		},
		OnConfirmed: func(record *types.Transaction) {
			confirmed <- record
		},
	})
	require.NoError(t, err)

	select {
	case record := <-confirmed:
		assert.Equal(t, types.TxStatusConfirmed, record.Status)
		assert.Equal(t, uint64(123), record.BlockNumber)
		assert.Equal(t, "65000", record.GasUsed)
		assert.Equal(t, "2000000000", record.GasPrice)
		assert.Equal(t, int64(1_700_000_000), record.Timestamp)
	case <-time.After(3 * time.Second):
		t.Fatal("transaction was not confirmed in time")
	}

	// 状态序列：pending -> confirmed，终态只出现一次
	updatesMu.Lock()
	assert.Equal(t, []types.TxStatus{types.TxStatusPending, types.TxStatusConfirmed}, updates)
	updatesMu.Unlock()

	// 持久化记录与回调一致
	stored := findRecord(t, m, testHash)
	require.NotNil(t, stored)
	assert.Equal(t, types.TxStatusConfirmed, stored.Status)
	assert.Empty(t, stored.Error)
}

func TestTrackFailsOnRevertedReceipt(t *testing.T) {
	chainClient := newFakeChainClient()
	chainClient.setReceipt(testHash, &evmTypes.Receipt{
		Status:      evmTypes.ReceiptStatusFailed,
		BlockNumber: big.NewInt(99),
		GasUsed:     42000,
	})
	m, _ := newTestMonitor(chainClient, time.Minute)
	defer m.Stop()

	failed := make(chan error, 1)
	_, err := m.Track(testHandle(), types.TokenMeta{}, types.TxKindSend, types.TxCallbacks{
		OnFailed: func(record *types.Transaction, failErr error) {
			failed <- failErr
		},
	})
	require.NoError(t, err)

	select {
	case failErr := <-failed:
		assert.ErrorIs(t, failErr, errs.ErrTxReverted)
	case <-time.After(3 * time.Second):
		t.Fatal("transaction was not marked failed in time")
	}

	stored := findRecord(t, m, testHash)
	require.NotNil(t, stored)
	assert.Equal(t, types.TxStatusFailed, stored.Status)
	assert.NotEmpty(t, stored.Error)
	// EffectiveGasPrice 缺失时回退到提交时的 gas price
	assert.Equal(t, "1000000000", stored.GasPrice)
}

func TestTrackTimesOutWithoutReceipt(t *testing.T) {
	chainClient := newFakeChainClient() // 永远没有回执
	m, _ := newTestMonitor(chainClient, 50*time.Millisecond)
	defer m.Stop()

	failed := make(chan error, 1)
	_, err := m.Track(testHandle(), types.TokenMeta{}, types.TxKindSend, types.TxCallbacks{
		OnFailed: func(record *types.Transaction, failErr error) {
			failed <- failErr
		},
	})
	require.NoError(t, err)

	select {
	case failErr := <-failed:
		assert.ErrorIs(t, failErr, errs.ErrTxTimeout)
	case <-time.After(3 * time.Second):
		t.Fatal("transaction did not time out")
	}

	stored := findRecord(t, m, testHash)
	require.NotNil(t, stored)
	assert.Equal(t, types.TxStatusFailed, stored.Status)
	// 超时是历史记录上的终态，链上交易本身可能仍会落块
	assert.Zero(t, stored.BlockNumber)
}

func TestTerminalCallbackFiresExactlyOnce(t *testing.T) {
	chainClient := newFakeChainClient()
	chainClient.setReceipt(testHash, successReceipt())
	m, _ := newTestMonitor(chainClient, time.Minute)
	defer m.Stop()

	var confirmedCount atomic.Int32
	_, err := m.Track(testHandle(), types.TokenMeta{}, types.TxKindSend, types.TxCallbacks{
		OnConfirmed: func(record *types.Transaction) {
			confirmedCount.Add(1)
		},
	})
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return confirmedCount.Load() == 1
	}, 3*time.Second, 10*time.Millisecond)

	// 再等几个轮询周期，终态回调不得重复
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, int32(1), confirmedCount.Load())
}

func TestCancelSuppressesCallbacks(t *testing.T) {
	chainClient := newFakeChainClient()
	m, _ := newTestMonitor(chainClient, time.Minute)
	defer m.Stop()

	var confirmedCount atomic.Int32
	watch, err := m.Track(testHandle(), types.TokenMeta{}, types.TxKindSend, types.TxCallbacks{
		OnConfirmed: func(record *types.Transaction) {
			confirmedCount.Add(1)
		},
	})
	require.NoError(t, err)

	watch.Cancel()
	chainClient.setReceipt(testHash, successReceipt())
	time.Sleep(100 * time.Millisecond)

	// 取消后不再有任何回调，记录停留在 pending
	assert.Zero(t, confirmedCount.Load())
	stored := findRecord(t, m, testHash)
	require.NotNil(t, stored)
	assert.Equal(t, types.TxStatusPending, stored.Status)
}

func TestDuplicateTrackReplacesWatcher(t *testing.T) {
	chainClient := newFakeChainClient()
	m, _ := newTestMonitor(chainClient, time.Minute)
	defer m.Stop()

	first, err := m.Track(testHandle(), types.TokenMeta{}, types.TxKindSend, types.TxCallbacks{})
	require.NoError(t, err)

	second, err := m.Track(testHandle(), types.TokenMeta{}, types.TxKindSend, types.TxCallbacks{})
	require.NoError(t, err)

	// 旧的监控器被取消，新的接管；历史里同一哈希只有一条记录
	assert.True(t, first.Cancelled())
	assert.False(t, second.Cancelled())

	history, err := m.History(context.Background())
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestResumePending(t *testing.T) {
	chainClient := newFakeChainClient()
	m, storage := newTestMonitor(chainClient, time.Minute)

	// 模拟上个进程留下的历史：一笔已有回执，一笔仍未上链
	resolvedHash := testHash
	stuckHash := "0x2222222222222222222222222222222222222222222222222222222222222222"
	seed := []types.Transaction{
		{Hash: resolvedHash, From: "0xaaaa", Value: "1000", Status: types.TxStatusPending, Kind: types.TxKindSend, ChainID: 1},
		{Hash: stuckHash, From: "0xaaaa", Value: "2000", Status: types.TxStatusPending, Kind: types.TxKindSend, ChainID: 1},
		{Hash: "0x3333", From: "0xaaaa", Value: "3000", Status: types.TxStatusConfirmed, Kind: types.TxKindSend, ChainID: 1},
	}
	seedMonitor := NewTxMonitor(storage, chainClient, time.Hour, time.Hour)
	for i := len(seed) - 1; i >= 0; i-- {
		require.NoError(t, seedMonitor.upsertTransaction(&seed[i]))
	}
	chainClient.setReceipt(resolvedHash, successReceipt())

	require.NoError(t, m.ResumePending(context.Background()))
	defer m.Stop()

	// 已有回执的立即落终态
	stored := findRecord(t, m, resolvedHash)
	require.NotNil(t, stored)
	assert.Equal(t, types.TxStatusConfirmed, stored.Status)

	// 没有回执的重新进入轮询，之后出回执也能确认
	chainClient.setReceipt(stuckHash, successReceipt())
	require.Eventually(t, func() bool {
		record := findRecord(t, m, stuckHash)
		return record != nil && record.Status == types.TxStatusConfirmed
	}, 3*time.Second, 10*time.Millisecond)

	// 已终态的记录不被动过
	confirmed := findRecord(t, m, "0x3333")
	require.NotNil(t, confirmed)
	assert.Equal(t, types.TxStatusConfirmed, confirmed.Status)
}

func TestTrackRefusesTerminalRecord(t *testing.T) {
	chainClient := newFakeChainClient()
	chainClient.setReceipt(testHash, successReceipt())
	m, _ := newTestMonitor(chainClient, time.Minute)
	defer m.Stop()

	confirmed := make(chan struct{}, 1)
	_, err := m.Track(testHandle(), types.TokenMeta{}, types.TxKindSend, types.TxCallbacks{
		OnConfirmed: func(record *types.Transaction) { confirmed <- struct{}{} },
	})
	require.NoError(t, err)

	select {
	case <-confirmed:
	case <-time.After(3 * time.Second):
		t.Fatal("transaction was not confirmed in time")
	}

	// 重新登记已确认的哈希：记录不得被打回 pending，也不再有任何回调
	var updates atomic.Int32
	watch, err := m.Track(testHandle(), types.TokenMeta{}, types.TxKindSend, types.TxCallbacks{
		OnUpdate: func(status types.TxStatus) { updates.Add(1) },
	})
	require.NoError(t, err)
	require.NotNil(t, watch)

	time.Sleep(50 * time.Millisecond)
	stored := findRecord(t, m, testHash)
	require.NotNil(t, stored)
	assert.Equal(t, types.TxStatusConfirmed, stored.Status)
	assert.Zero(t, updates.Load())
}

func TestTrackUsesChainSpecificClient(t *testing.T) {
	defaultClient := newFakeChainClient() // 默认链上永远查不到这笔交易
	bscClient := newFakeChainClient()
	bscClient.setReceipt(testHash, successReceipt())

	m, _ := newTestMonitor(defaultClient, time.Minute)
	defer m.Stop()
	m.SetClientResolver(func(chainID int64) (client.ChainClient, error) {
		if chainID == 56 {
			return bscClient, nil
		}
		return nil, errors.New("unknown chain")
	})

	handle := testHandle()
	handle.ChainID = 56
	confirmed := make(chan *types.Transaction, 1)
	_, err := m.Track(handle, types.TokenMeta{}, types.TxKindSend, types.TxCallbacks{
		OnConfirmed: func(record *types.Transaction) { confirmed <- record },
	})
	require.NoError(t, err)

	// 回执必须来自交易所在链的客户端，而不是默认链
	select {
	case record := <-confirmed:
		assert.Equal(t, types.TxStatusConfirmed, record.Status)
		assert.Equal(t, int64(56), record.ChainID)
	case <-time.After(3 * time.Second):
		t.Fatal("receipt was not found on the transaction's own chain")
	}
}

func TestResumePendingCarriesGasPrice(t *testing.T) {
	chainClient := newFakeChainClient()
	m, storage := newTestMonitor(chainClient, time.Minute)
	defer m.Stop()

	seedMonitor := NewTxMonitor(storage, chainClient, time.Hour, time.Hour)
	seed := types.Transaction{Hash: testHash, From: "0xaaaa", Value: "1000", GasPrice: "777", Status: types.TxStatusPending, Kind: types.TxKindSend, ChainID: 1}
	require.NoError(t, seedMonitor.upsertTransaction(&seed))

	// 回执缺 EffectiveGasPrice 时回退到提交时的 gas price
	chainClient.setReceipt(testHash, &evmTypes.Receipt{
		Status:      evmTypes.ReceiptStatusSuccessful,
		BlockNumber: big.NewInt(5),
		GasUsed:     21000,
	})
	require.NoError(t, m.ResumePending(context.Background()))

	stored := findRecord(t, m, testHash)
	require.NotNil(t, stored)
	assert.Equal(t, types.TxStatusConfirmed, stored.Status)
	assert.Equal(t, "777", stored.GasPrice)
}

func TestStopCancelsAllWatchers(t *testing.T) {
	chainClient := newFakeChainClient()
	m, _ := newTestMonitor(chainClient, time.Minute)

	first, err := m.Track(testHandle(), types.TokenMeta{}, types.TxKindSend, types.TxCallbacks{})
	require.NoError(t, err)

	m.Stop()
	assert.True(t, first.Cancelled())
}
