package multiwallet

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"stablewallet/internal/constant"
	"stablewallet/internal/crypto"
	"stablewallet/internal/errs"
	"stablewallet/internal/logic/wallet"
	"stablewallet/internal/model"
	"stablewallet/internal/svc"
	"stablewallet/internal/types"

	"github.com/google/uuid"
	"github.com/zeromicro/go-zero/core/logx"
)

type MultiWalletLogic struct {
	ctx    context.Context
	svcCtx *svc.ServiceContext
	logx.Logger

	walletLogic *wallet.WalletLogic
}

func NewMultiWalletLogic(ctx context.Context, svcCtx *svc.ServiceContext) *MultiWalletLogic {
	return &MultiWalletLogic{
		ctx:         ctx,
		svcCtx:      svcCtx,
		Logger:      logx.WithContext(ctx),
		walletLogic: wallet.NewWalletLogic(ctx, svcCtx),
	}
}

// Create 创建一个新的 HD 钱包并加入注册表，自动分配颜色/图标并设为活跃钱包
func (l *MultiWalletLogic) Create(req *types.AddWalletReq) (resp *types.AddWalletResp, err error) {
	l.Infof("--- 开始处理 /wallets/create 请求 ---")

	if len(req.Password) < crypto.MinPasswordLen {
		return nil, errs.ErrInvalidPassword
	}

	mnemonic, err := wallet.NewMnemonic()
	if err != nil {
		return nil, err
	}

	record, err := l.walletLogic.BuildHDRecord(mnemonic, req.Password)
	if err != nil {
		return nil, err
	}

	entry, err := l.appendRecord(record, req.Label)
	if err != nil {
		return nil, err
	}

	l.Infof("--- 新钱包已加入注册表: id=%s address=%s ---", entry.ID, entry.Address)
	return &types.AddWalletResp{
		ID:       entry.ID,
		Address:  entry.Address,
		Mnemonic: mnemonic,
	}, nil
}

// ImportFromMnemonic 从助记词导入一个钱包并加入注册表
func (l *MultiWalletLogic) ImportFromMnemonic(req *types.AddWalletMnemonicReq) (resp *types.AddWalletResp, err error) {
	l.Infof("--- 开始处理 /wallets/import_mnemonic 请求 ---")

	if len(req.Password) < crypto.MinPasswordLen {
		return nil, errs.ErrInvalidPassword
	}

	mnemonic := wallet.NormalizeMnemonic(req.Mnemonic)
	if err := wallet.ValidateMnemonic(mnemonic); err != nil {
		return nil, err
	}

	record, err := l.walletLogic.BuildHDRecord(mnemonic, req.Password)
	if err != nil {
		return nil, err
	}

	entry, err := l.appendRecord(record, req.Label)
	if err != nil {
		return nil, err
	}

	return &types.AddWalletResp{ID: entry.ID, Address: entry.Address}, nil
}

// ImportFromPrivateKey 从裸私钥导入一个钱包并加入注册表
func (l *MultiWalletLogic) ImportFromPrivateKey(req *types.AddWalletPrivateKeyReq) (resp *types.AddWalletResp, err error) {
	l.Infof("--- 开始处理 /wallets/import_key 请求 ---")

	if len(req.Password) < crypto.MinPasswordLen {
		return nil, errs.ErrInvalidPassword
	}

	record, err := l.walletLogic.BuildImportedRecord(req.PrivateKey, req.Password)
	if err != nil {
		return nil, err
	}

	entry, err := l.appendRecord(record, req.Label)
	if err != nil {
		return nil, err
	}

	return &types.AddWalletResp{ID: entry.ID, Address: entry.Address}, nil
}

// SwitchActive 切换活跃钱包指针，纯指针更新，不做任何解锁
func (l *MultiWalletLogic) SwitchActive(req *types.SwitchWalletReq) error {
	records, err := l.loadRecords()
	if err != nil {
		return err
	}

	index := findByID(records, req.ID)
	if index < 0 {
		return errs.ErrWalletNotFound
	}

	records[index].LastUsedAt = time.Now().UTC()
	if err := l.saveRecords(records); err != nil {
		return err
	}
	return l.setActiveID(req.ID)
}

// UpdateMetadata 更新展示元数据，nil 字段保持原值
func (l *MultiWalletLogic) UpdateMetadata(req *types.UpdateWalletMetaReq) error {
	records, err := l.loadRecords()
	if err != nil {
		return err
	}

	index := findByID(records, req.ID)
	if index < 0 {
		return errs.ErrWalletNotFound
	}

	if req.Label != nil {
		records[index].Label = *req.Label
	}
	if req.Color != nil {
		records[index].Color = *req.Color
	}
	if req.Icon != nil {
		records[index].Icon = *req.Icon
	}

	return l.saveRecords(records)
}

// Delete 从注册表删除一个钱包
// 注册表永远不会通过删除走到零：最后一个钱包不可删除
func (l *MultiWalletLogic) Delete(req *types.RemoveWalletReq) error {
	records, err := l.loadRecords()
	if err != nil {
		return err
	}

	index := findByID(records, req.ID)
	if index < 0 {
		return errs.ErrWalletNotFound
	}
	if len(records) == 1 {
		l.Errorf("拒绝删除最后一个钱包")
		return errs.ErrLastWallet
	}

	records = append(records[:index], records[index+1:]...)
	if err := l.saveRecords(records); err != nil {
		return err
	}

	// 活跃指针必须始终指向存在的记录
	activeID, err := l.activeID()
	if err != nil {
		return err
	}
	if activeID == req.ID {
		next := mostRecentlyUsed(records)
		if err := l.setActiveID(next.ID); err != nil {
			return err
		}
		l.Infof("活跃钱包已删除，切换到 %s", next.ID)
	}
	return nil
}

// ListSummaries 返回不含任何密文和秘密的展示投影
func (l *MultiWalletLogic) ListSummaries() (resp *types.ListWalletsResp, err error) {
	records, err := l.loadRecords()
	if err != nil {
		return nil, err
	}
	activeID, err := l.activeID()
	if err != nil {
		return nil, err
	}

	summaries := make([]types.WalletSummary, 0, len(records))
	for _, record := range records {
		summaries = append(summaries, types.WalletSummary{
			ID:         record.ID,
			Label:      record.Label,
			Address:    record.Address,
			Color:      record.Color,
			Icon:       record.Icon,
			Kind:       record.Kind,
			CreatedAt:  record.CreatedAt,
			LastUsedAt: record.LastUsedAt,
			IsActive:   record.ID == activeID,
		})
	}

	return &types.ListWalletsResp{Wallets: summaries, ActiveID: activeID}, nil
}

// Unlock 按 id 解锁指定钱包（不要求它是活跃钱包）
// 记录被临时取出并交给单钱包的解锁实现，逻辑不在此重复
func (l *MultiWalletLogic) Unlock(id, password string) (*types.UnlockedWallet, error) {
	records, err := l.loadRecords()
	if err != nil {
		return nil, err
	}

	index := findByID(records, id)
	if index < 0 {
		return nil, errs.ErrWalletNotFound
	}

	return l.walletLogic.UnlockRecord(&records[index].WalletRecord, password)
}

// ActiveRecord 返回当前活跃钱包的记录
func (l *MultiWalletLogic) ActiveRecord() (*types.MultiWalletRecord, error) {
	records, err := l.loadRecords()
	if err != nil {
		return nil, err
	}
	activeID, err := l.activeID()
	if err != nil {
		return nil, err
	}

	index := findByID(records, activeID)
	if index < 0 {
		return nil, errs.ErrWalletNotFound
	}
	return &records[index], nil
}

// appendRecord 把单钱包记录包装成注册表条目并持久化
func (l *MultiWalletLogic) appendRecord(record *types.WalletRecord, label string) (*types.MultiWalletRecord, error) {
	records, err := l.loadRecords()
	if err != nil {
		return nil, err
	}

	if label == "" {
		label = defaultLabel(len(records))
	}

	entry := types.MultiWalletRecord{
		ID:           uuid.NewString(),
		Label:        label,
		Color:        leastUsed(constant.WalletColors, records, func(r *types.MultiWalletRecord) string { return r.Color }),
		Icon:         leastUsed(constant.WalletIcons, records, func(r *types.MultiWalletRecord) string { return r.Icon }),
		LastUsedAt:   time.Now().UTC(),
		Order:        len(records),
		WalletRecord: *record,
	}
	records = append(records, entry)

	// 两个键的写入是顺序且非原子的：集合先写，活跃指针后写。
	// 进程在两次写入之间中断会留下指向旧记录的活跃指针（已知的待解决缺口）。
	if err := l.saveRecords(records); err != nil {
		return nil, err
	}
	if err := l.setActiveID(entry.ID); err != nil {
		return nil, err
	}

	return &entry, nil
}

// loadRecords 读取注册表集合，顺带完成单钱包到多钱包的一次性迁移
func (l *MultiWalletLogic) loadRecords() ([]types.MultiWalletRecord, error) {
	raw, err := l.svcCtx.Storage.Get(l.ctx, constant.StorageKeyMultiWallets)
	if err != nil {
		if model.ErrIsNotFound(err) {
			return l.migrateSingleWallet()
		}
		return nil, err
	}

	var records []types.MultiWalletRecord
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		return nil, err
	}
	return records, nil
}

// migrateSingleWallet 把旧的单钱包记录吸收进注册表
// 注意：旧键的删除和新键的写入同样没有跨键原子性
func (l *MultiWalletLogic) migrateSingleWallet() ([]types.MultiWalletRecord, error) {
	raw, err := l.svcCtx.Storage.Get(l.ctx, constant.StorageKeyWallet)
	if err != nil {
		if model.ErrIsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}

	var record types.WalletRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil, err
	}

	l.Infof("检测到单钱包记录，迁移到多钱包注册表")
	entry := types.MultiWalletRecord{
		ID:           uuid.NewString(),
		Label:        defaultLabel(0),
		Color:        constant.WalletColors[0],
		Icon:         constant.WalletIcons[0],
		LastUsedAt:   time.Now().UTC(),
		Order:        0,
		WalletRecord: record,
	}

	records := []types.MultiWalletRecord{entry}
	if err := l.saveRecords(records); err != nil {
		return nil, err
	}
	if err := l.setActiveID(entry.ID); err != nil {
		return nil, err
	}
	// 旧键留着会永久挡住单钱包创建路径，吸收完成后必须移除
	if err := l.svcCtx.Storage.Remove(l.ctx, constant.StorageKeyWallet); err != nil {
		return nil, err
	}
	return records, nil
}

func (l *MultiWalletLogic) saveRecords(records []types.MultiWalletRecord) error {
	raw, err := json.Marshal(records)
	if err != nil {
		return err
	}
	return l.svcCtx.Storage.Set(l.ctx, constant.StorageKeyMultiWallets, string(raw))
}

func (l *MultiWalletLogic) activeID() (string, error) {
	id, err := l.svcCtx.Storage.Get(l.ctx, constant.StorageKeyActiveWallet)
	if err != nil {
		if model.ErrIsNotFound(err) {
			return "", nil
		}
		return "", err
	}
	return id, nil
}

func (l *MultiWalletLogic) setActiveID(id string) error {
	return l.svcCtx.Storage.Set(l.ctx, constant.StorageKeyActiveWallet, id)
}

func findByID(records []types.MultiWalletRecord, id string) int {
	for i := range records {
		if records[i].ID == id {
			return i
		}
	}
	return -1
}

func mostRecentlyUsed(records []types.MultiWalletRecord) *types.MultiWalletRecord {
	best := &records[0]
	for i := range records {
		if records[i].LastUsedAt.After(best.LastUsedAt) {
			best = &records[i]
		}
	}
	return best
}

// leastUsed 在调色板里选当前出现次数最少的值，次数相同按调色板顺序取先
func leastUsed(palette []string, records []types.MultiWalletRecord, pick func(*types.MultiWalletRecord) string) string {
	counts := make(map[string]int, len(palette))
	for i := range records {
		counts[pick(&records[i])]++
	}

	best := palette[0]
	for _, candidate := range palette {
		if counts[candidate] < counts[best] {
			best = candidate
		}
	}
	return best
}

func defaultLabel(index int) string {
	return fmt.Sprintf("Wallet %d", index+1)
}
