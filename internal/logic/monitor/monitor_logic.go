package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"stablewallet/internal/client"
	"stablewallet/internal/constant"
	"stablewallet/internal/errs"
	"stablewallet/internal/model"
	"stablewallet/internal/types"

	"github.com/ethereum/go-ethereum/common"
	evmTypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/zeromicro/go-zero/core/logx"
	"github.com/zeromicro/go-zero/core/threading"
)

const (
	DefaultPollInterval = 5 * time.Second
	DefaultTimeout      = 5 * time.Minute
)

// Watch 是 Track 返回的取消句柄
// 取消是协作式的：进行中的网络调用不会被打断，只是之后的持久化和回调被抑制
type Watch struct {
	Hash      string
	cancelled atomic.Bool
	resolved  atomic.Bool
}

// Cancel 置取消标志，每次回调或落盘前都会检查它
func (w *Watch) Cancel() {
	w.cancelled.Store(true)
}

// Cancelled 返回该监控是否已被取消
func (w *Watch) Cancelled() bool {
	return w.cancelled.Load()
}

// ClientResolver 按链 ID 取回执查询用的 RPC 客户端
type ClientResolver func(chainID int64) (client.ChainClient, error)

// TxMonitor 跟踪已提交交易直到终态：pending -> confirmed/failed
// 它是交易历史的唯一写入方，UI 只做只读投影
type TxMonitor struct {
	storage  model.Storage
	client   client.ChainClient
	resolve  ClientResolver
	interval time.Duration
	timeout  time.Duration

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	watchers map[string]*Watch

	// storeMu 串行化对历史键的读-改-写，不同哈希的更新可以自由交错
	storeMu sync.Mutex

	logx.Logger
}

// NewTxMonitor 创建监控器，interval/timeout 传 0 使用默认值（5s / 5m）
func NewTxMonitor(storage model.Storage, chainClient client.ChainClient, interval, timeout time.Duration) *TxMonitor {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &TxMonitor{
		storage:  storage,
		client:   chainClient,
		interval: interval,
		timeout:  timeout,
		ctx:      ctx,
		cancel:   cancel,
		watchers: make(map[string]*Watch),
		Logger:   logx.WithContext(ctx),
	}
}

// SetClientResolver 配置按链 ID 选择客户端的回调
// 未配置或解析失败时回退到构造时传入的默认客户端
func (m *TxMonitor) SetClientResolver(resolve ClientResolver) {
	m.resolve = resolve
}

// clientFor 返回该链应使用的回执查询客户端
func (m *TxMonitor) clientFor(chainID int64) client.ChainClient {
	if m.resolve != nil {
		if c, err := m.resolve(chainID); err == nil && c != nil {
			return c
		}
		m.Errorf("链 %d 没有可用客户端，回退到默认链客户端", chainID)
	}
	return m.client
}

// Track 登记一笔 pending 交易并启动轮询
// 同一哈希重复 Track 会取消并替换旧的监控，绝不会有两个轮询器跑同一笔交易；
// 已到终态的哈希拒绝重新登记，终态一旦落盘就不会回退
func (m *TxMonitor) Track(handle types.TxHandle, tokenMeta types.TokenMeta, kind types.TxKind, callbacks types.TxCallbacks) (*Watch, error) {
	if existing, err := m.findTransaction(handle.Hash); err != nil {
		return nil, err
	} else if existing != nil && existing.Status != types.TxStatusPending {
		m.Infof("交易 %s 已处于终态 %s，跳过重复登记", handle.Hash, existing.Status)
		watch := &Watch{Hash: handle.Hash}
		watch.resolved.Store(true)
		return watch, nil
	}

	record := types.Transaction{
		Hash:          handle.Hash,
		From:          handle.From,
		To:            handle.To,
		Value:         handle.Value,
		TokenAddress:  tokenMeta.Address,
		TokenSymbol:   tokenMeta.Symbol,
		TokenDecimals: tokenMeta.Decimals,
		GasPrice:      handle.GasPrice,
		Status:        types.TxStatusPending,
		Kind:          kind,
		ChainID:       handle.ChainID,
	}

	if err := m.upsertTransaction(&record); err != nil {
		return nil, err
	}

	watch := &Watch{Hash: handle.Hash}
	m.mu.Lock()
	if existing, ok := m.watchers[handle.Hash]; ok {
		m.Infof("哈希 %s 已在监控中，取消旧的监控器", handle.Hash)
		existing.Cancel()
	}
	m.watchers[handle.Hash] = watch
	m.mu.Unlock()

	// 初始 pending 状态也要通知一次
	if callbacks.OnUpdate != nil && !watch.Cancelled() {
		callbacks.OnUpdate(types.TxStatusPending)
	}

	chainClient := m.clientFor(handle.ChainID)
	threading.GoSafe(func() {
		m.run(watch, record, handle, chainClient, callbacks)
	})

	m.Infof("开始监控交易: %s (间隔 %s, 超时 %s)", handle.Hash, m.interval, m.timeout)
	return watch, nil
}

// run 轮询回执直到出结果或超时，超时按墙上时钟计算，与轮询节拍无关
// 回执始终查交易提交时所在的链
func (m *TxMonitor) run(watch *Watch, record types.Transaction, handle types.TxHandle, chainClient client.ChainClient, callbacks types.TxCallbacks) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	deadline := time.NewTimer(m.timeout)
	defer deadline.Stop()

	txHash := common.HexToHash(record.Hash)

	for {
		select {
		case <-m.ctx.Done():
			m.removeWatch(watch)
			return

		case <-deadline.C:
			m.resolveTimeout(watch, &record, callbacks)
			return

		case <-ticker.C:
			if watch.Cancelled() {
				m.removeWatch(watch)
				return
			}

			receipt, err := chainClient.TransactionReceipt(m.ctx, txHash)
			if err != nil || receipt == nil {
				// 未上链或网络抖动，继续轮询直到超时，不做无界重试
				continue
			}

			m.resolveReceipt(watch, &record, handle, receipt, chainClient, callbacks)
			return
		}
	}
}

// resolveReceipt 根据回执做唯一一次终态迁移
func (m *TxMonitor) resolveReceipt(watch *Watch, record *types.Transaction, handle types.TxHandle, receipt *evmTypes.Receipt, chainClient client.ChainClient, callbacks types.TxCallbacks) {
	defer m.removeWatch(watch)

	if watch.Cancelled() || !watch.resolved.CompareAndSwap(false, true) {
		return
	}

	record.BlockNumber = receipt.BlockNumber.Uint64()
	record.GasUsed = fmt.Sprintf("%d", receipt.GasUsed)
	if receipt.EffectiveGasPrice != nil {
		record.GasPrice = receipt.EffectiveGasPrice.String()
	} else {
		record.GasPrice = handle.GasPrice
	}

	// 区块时间戳来自被打包区块的区块头
	if header, err := chainClient.HeaderByNumber(m.ctx, receipt.BlockNumber); err == nil && header != nil {
		record.Timestamp = int64(header.Time)
	}

	if receipt.Status == evmTypes.ReceiptStatusSuccessful {
		record.Status = types.TxStatusConfirmed

		// 代币转账的实际结算数额以回执日志为准
		if record.TokenAddress != "" {
			if amount := ParseTransferAmount(receipt.Logs, record.TokenAddress, record.From); amount != nil {
				record.Value = amount.String()
			}
		}

		// 未分类的合约交互根据日志方向细化类型
		if record.Kind == types.TxKindContract {
			record.Kind = ClassifyTransfer(receipt.Logs, record.From)
		}

		if err := m.upsertTransaction(record); err != nil {
			m.Errorf("更新交易记录失败 %s: %v", record.Hash, err)
		}
		m.Infof("✅ 交易已确认: %s (区块 %d)", record.Hash, record.BlockNumber)

		if callbacks.OnUpdate != nil {
			callbacks.OnUpdate(types.TxStatusConfirmed)
		}
		if callbacks.OnConfirmed != nil {
			callbacks.OnConfirmed(record)
		}
		return
	}

	record.Status = types.TxStatusFailed
	record.Error = errs.ErrTxReverted.Error()

	if err := m.upsertTransaction(record); err != nil {
		m.Errorf("更新交易记录失败 %s: %v", record.Hash, err)
	}
	m.Infof("❌ 交易已回滚: %s (区块 %d)", record.Hash, record.BlockNumber)

	if callbacks.OnUpdate != nil {
		callbacks.OnUpdate(types.TxStatusFailed)
	}
	if callbacks.OnFailed != nil {
		callbacks.OnFailed(record, errs.ErrTxReverted)
	}
}

// resolveTimeout 超时迁移到 failed(Timeout)
func (m *TxMonitor) resolveTimeout(watch *Watch, record *types.Transaction, callbacks types.TxCallbacks) {
	defer m.removeWatch(watch)

	if watch.Cancelled() || !watch.resolved.CompareAndSwap(false, true) {
		return
	}

	record.Status = types.TxStatusFailed
	record.Error = errs.ErrTxTimeout.Error()

	if err := m.upsertTransaction(record); err != nil {
		m.Errorf("更新交易记录失败 %s: %v", record.Hash, err)
	}
	m.Infof("⏰ 交易确认超时: %s", record.Hash)

	if callbacks.OnUpdate != nil {
		callbacks.OnUpdate(types.TxStatusFailed)
	}
	if callbacks.OnFailed != nil {
		callbacks.OnFailed(record, errs.ErrTxTimeout)
	}
}

// ResumePending 在进程启动时恢复监控
// 监控状态本身不跨进程持久化，所有 pending 记录先查一次链上回执：
// 已有回执的立即落终态，其余的重新起轮询器，不会重复提交交易
func (m *TxMonitor) ResumePending(ctx context.Context) error {
	history, err := m.loadHistory(ctx)
	if err != nil {
		return err
	}

	resumed := 0
	for i := range history {
		record := history[i]
		if record.Status != types.TxStatusPending {
			continue
		}

		// 提交时的 gas price 要带回句柄，回执缺 EffectiveGasPrice 时仍有回退值
		handle := types.TxHandle{
			Hash:     record.Hash,
			From:     record.From,
			To:       record.To,
			Value:    record.Value,
			GasPrice: record.GasPrice,
			ChainID:  record.ChainID,
		}

		chainClient := m.clientFor(record.ChainID)
		receipt, err := chainClient.TransactionReceipt(ctx, common.HexToHash(record.Hash))
		if err == nil && receipt != nil {
			// 进程不在时交易已经出结果，立即补记终态
			watch := &Watch{Hash: record.Hash}
			m.resolveReceipt(watch, &record, handle, receipt, chainClient, types.TxCallbacks{})
			resumed++
			continue
		}

		tokenMeta := types.TokenMeta{
			Address:  record.TokenAddress,
			Symbol:   record.TokenSymbol,
			Decimals: record.TokenDecimals,
		}
		if _, err := m.Track(handle, tokenMeta, record.Kind, types.TxCallbacks{}); err != nil {
			m.Errorf("恢复监控失败 %s: %v", record.Hash, err)
			continue
		}
		resumed++
	}

	if resumed > 0 {
		m.Infof("已恢复 %d 笔 pending 交易的监控", resumed)
	}
	return nil
}

// History 返回完整交易历史（只读投影）
func (m *TxMonitor) History(ctx context.Context) ([]types.Transaction, error) {
	return m.loadHistory(ctx)
}

// Stop 取消所有监控器并停止后台轮询
func (m *TxMonitor) Stop() {
	m.mu.Lock()
	for _, watch := range m.watchers {
		watch.Cancel()
	}
	m.mu.Unlock()
	m.cancel()
}

func (m *TxMonitor) removeWatch(watch *Watch) {
	m.mu.Lock()
	if current, ok := m.watchers[watch.Hash]; ok && current == watch {
		delete(m.watchers, watch.Hash)
	}
	m.mu.Unlock()
}

func (m *TxMonitor) loadHistory(ctx context.Context) ([]types.Transaction, error) {
	raw, err := m.storage.Get(ctx, constant.StorageKeyTxHistory)
	if err != nil {
		if model.ErrIsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	var history []types.Transaction
	if err := json.Unmarshal([]byte(raw), &history); err != nil {
		return nil, err
	}
	return history, nil
}

// findTransaction 按哈希查历史记录，没有时返回 nil
func (m *TxMonitor) findTransaction(hash string) (*types.Transaction, error) {
	history, err := m.loadHistory(m.ctx)
	if err != nil {
		return nil, err
	}
	for i := range history {
		if history[i].Hash == hash {
			return &history[i], nil
		}
	}
	return nil, nil
}

// upsertTransaction 以哈希为主键更新历史，新记录排在最前
func (m *TxMonitor) upsertTransaction(record *types.Transaction) error {
	m.storeMu.Lock()
	defer m.storeMu.Unlock()

	history, err := m.loadHistory(m.ctx)
	if err != nil {
		return err
	}

	found := false
	for i := range history {
		if history[i].Hash == record.Hash {
			history[i] = *record
			found = true
			break
		}
	}
	if !found {
		history = append([]types.Transaction{*record}, history...)
	}

	raw, err := json.Marshal(history)
	if err != nil {
		return err
	}
	return m.storage.Set(m.ctx, constant.StorageKeyTxHistory, string(raw))
}
