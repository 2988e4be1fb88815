package wallet

import (
	"context"
	"crypto/ecdsa"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"stablewallet/internal/constant"
	"stablewallet/internal/crypto"
	"stablewallet/internal/errs"
	"stablewallet/internal/model"
	"stablewallet/internal/svc"
	"stablewallet/internal/types"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/tyler-smith/go-bip39"
	"github.com/zeromicro/go-zero/core/logx"
)

type WalletLogic struct {
	ctx    context.Context
	svcCtx *svc.ServiceContext
	logx.Logger
}

func NewWalletLogic(ctx context.Context, svcCtx *svc.ServiceContext) *WalletLogic {
	return &WalletLogic{
		ctx:    ctx,
		svcCtx: svcCtx,
		Logger: logx.WithContext(ctx),
	}
}

// Create 创建全新的 HD 钱包：生成 128 位熵 -> 12 词助记词 -> m/44'/60'/0'/0/0 派生
// 助记词只在本次响应中返回一次，调用方负责提示用户备份
func (l *WalletLogic) Create(req *types.CreateWalletReq) (resp *types.CreateWalletResp, err error) {
	l.Infof("--- 开始处理 /wallet/create 请求 ---")

	// 1. 校验密码强度（任何 I/O 之前）
	if len(req.Password) < crypto.MinPasswordLen {
		return nil, errs.ErrInvalidPassword
	}

	// 2. 已有钱包时拒绝覆盖，调用方必须先显式删除
	if _, loadErr := l.loadRecord(); loadErr == nil {
		l.Errorf("钱包已存在，拒绝创建")
		return nil, errs.ErrWalletExists
	} else if loadErr != errs.ErrNoWallet {
		return nil, loadErr
	}

	// 3. 生成熵和助记词
	mnemonic, err := NewMnemonic()
	if err != nil {
		l.Errorf("生成助记词失败: %v", err)
		return nil, errs.ErrEncryptionFailed
	}

	// 4. 构建加密记录并持久化
	record, err := l.BuildHDRecord(mnemonic, req.Password)
	if err != nil {
		return nil, err
	}
	if err := l.saveRecord(record); err != nil {
		return nil, err
	}

	l.Infof("--- 钱包创建成功: %s ---", record.Address)
	return &types.CreateWalletResp{
		Address:  record.Address,
		Mnemonic: mnemonic,
	}, nil
}

// ImportFromMnemonic 从助记词导入 HD 钱包
// 助记词先做规范化（去空白、小写），语义相同的输入必然导入同一地址
func (l *WalletLogic) ImportFromMnemonic(req *types.ImportMnemonicReq) (resp *types.ImportWalletResp, err error) {
	l.Infof("--- 开始处理 /wallet/import_mnemonic 请求 ---")

	if len(req.Password) < crypto.MinPasswordLen {
		return nil, errs.ErrInvalidPassword
	}

	mnemonic := NormalizeMnemonic(req.Mnemonic)
	if err := ValidateMnemonic(mnemonic); err != nil {
		return nil, err
	}

	if _, loadErr := l.loadRecord(); loadErr == nil {
		return nil, errs.ErrWalletExists
	} else if loadErr != errs.ErrNoWallet {
		return nil, loadErr
	}

	record, err := l.BuildHDRecord(mnemonic, req.Password)
	if err != nil {
		return nil, err
	}
	if err := l.saveRecord(record); err != nil {
		return nil, err
	}

	l.Infof("--- 助记词导入成功: %s ---", record.Address)
	return &types.ImportWalletResp{Address: record.Address}, nil
}

// ImportFromPrivateKey 从裸私钥导入钱包，带或不带 0x 前缀均可
// 该路径没有助记词，记录类型为 imported
func (l *WalletLogic) ImportFromPrivateKey(req *types.ImportPrivateKeyReq) (resp *types.ImportWalletResp, err error) {
	l.Infof("--- 开始处理 /wallet/import_key 请求 ---")

	if len(req.Password) < crypto.MinPasswordLen {
		return nil, errs.ErrInvalidPassword
	}

	if _, loadErr := l.loadRecord(); loadErr == nil {
		return nil, errs.ErrWalletExists
	} else if loadErr != errs.ErrNoWallet {
		return nil, loadErr
	}

	record, err := l.BuildImportedRecord(req.PrivateKey, req.Password)
	if err != nil {
		return nil, err
	}
	if err := l.saveRecord(record); err != nil {
		return nil, err
	}

	l.Infof("--- 私钥导入成功: %s ---", record.Address)
	return &types.ImportWalletResp{Address: record.Address}, nil
}

// Unlock 解锁当前钱包并返回临时明文秘密
// 调用方必须在单次操作（签名或展示）后立即 Wipe，严禁缓存
func (l *WalletLogic) Unlock(password string) (*types.UnlockedWallet, error) {
	record, err := l.loadRecord()
	if err != nil {
		return nil, err
	}
	return l.UnlockRecord(record, password)
}

// UnlockRecord 是唯一的解锁实现，单钱包和多钱包路径共用
// 解密私钥后重新派生地址并与记录中的地址比对，不一致视为解密失败（可能是
// 密码错误，也可能是存储被篡改，两者必须给出同一个错误）
func (l *WalletLogic) UnlockRecord(record *types.WalletRecord, password string) (*types.UnlockedWallet, error) {
	keyBytes, err := l.svcCtx.Encryptor.Decrypt(record.EncryptedPrivateKey, password)
	if err != nil {
		return nil, err
	}
	defer crypto.Wipe(keyBytes)

	privateKey, err := parsePrivateKeyHex(string(keyBytes))
	if err != nil {
		// 解出的内容不是合法私钥，按损坏处理
		return nil, errs.ErrDecryptionFailed
	}

	// 地址完整性校验，任何偏差都按解密失败关闭
	derived := ethcrypto.PubkeyToAddress(privateKey.PublicKey).Hex()
	if !strings.EqualFold(derived, record.Address) {
		l.Errorf("地址完整性校验失败")
		wipePrivateKey(privateKey)
		return nil, errs.ErrDecryptionFailed
	}

	unlocked := &types.UnlockedWallet{
		Address:    record.Address,
		PrivateKey: privateKey,
		Kind:       record.Kind,
	}

	if record.HasMnemonic() {
		mnemonicBytes, err := l.svcCtx.Encryptor.Decrypt(record.EncryptedMnemonic, password)
		if err != nil {
			unlocked.Wipe()
			return nil, err
		}
		unlocked.Mnemonic = mnemonicBytes
	}

	return unlocked, nil
}

// VerifyPassword 只验证密码能否解密，不构建也不返回任何秘密内容
// 用于在敏感操作前做轻量确认
func (l *WalletLogic) VerifyPassword(req *types.VerifyPasswordReq) (resp *types.VerifyPasswordResp, err error) {
	record, err := l.loadRecord()
	if err != nil {
		return nil, err
	}

	unlocked, err := l.UnlockRecord(record, req.Password)
	if err != nil {
		if err == errs.ErrDecryptionFailed {
			return &types.VerifyPasswordResp{Valid: false}, nil
		}
		return nil, err
	}
	unlocked.Wipe()

	return &types.VerifyPasswordResp{Valid: true}, nil
}

// Delete 不可逆地删除钱包记录，不做任何确认，调用方必须已完成备份
func (l *WalletLogic) Delete() (resp *types.DeleteWalletResp, err error) {
	if _, err := l.loadRecord(); err != nil {
		return nil, err
	}
	if err := l.svcCtx.Storage.Remove(l.ctx, constant.StorageKeyWallet); err != nil {
		return nil, err
	}

	l.Infof("--- 钱包已删除 ---")
	return &types.DeleteWalletResp{Message: "wallet deleted"}, nil
}

// ExportPrivateKey 解锁并返回私钥十六进制串
func (l *WalletLogic) ExportPrivateKey(req *types.ExportSecretReq) (resp *types.ExportPrivateKeyResp, err error) {
	unlocked, err := l.Unlock(req.Password)
	if err != nil {
		return nil, err
	}
	defer unlocked.Wipe()

	keyHex := "0x" + hex.EncodeToString(ethcrypto.FromECDSA(unlocked.PrivateKey))
	return &types.ExportPrivateKeyResp{PrivateKey: keyHex}, nil
}

// ExportMnemonic 解锁并返回助记词，imported 钱包没有助记词
func (l *WalletLogic) ExportMnemonic(req *types.ExportSecretReq) (resp *types.ExportMnemonicResp, err error) {
	record, err := l.loadRecord()
	if err != nil {
		return nil, err
	}
	if !record.HasMnemonic() {
		return nil, errs.ErrNoMnemonic
	}

	unlocked, err := l.UnlockRecord(record, req.Password)
	if err != nil {
		return nil, err
	}
	defer unlocked.Wipe()

	return &types.ExportMnemonicResp{Mnemonic: string(unlocked.Mnemonic)}, nil
}

// ExportBackup 导出备份文件，内容是已加密的记录本身，绝不含明文秘密
func (l *WalletLogic) ExportBackup() (resp *types.ExportBackupResp, err error) {
	record, err := l.loadRecord()
	if err != nil {
		return nil, err
	}

	return &types.ExportBackupResp{
		Backup: types.WalletBackup{
			Version:    constant.BackupVersion,
			Wallet:     *record,
			ExportedAt: time.Now().UTC(),
			Type:       constant.BackupType,
		},
	}, nil
}

// RestoreBackup 从备份文件恢复钱包
// 接受之前必须：类型/版本校验 -> 结构完整性校验 -> 用原密码试解密 -> 地址一致性校验
func (l *WalletLogic) RestoreBackup(req *types.RestoreBackupReq) (resp *types.ImportWalletResp, err error) {
	l.Infof("--- 开始处理 /wallet/restore 请求 ---")

	backup := req.Backup
	if backup.Type != constant.BackupType || backup.Version == "" {
		return nil, errs.ErrDecryptionFailed
	}
	if err := validateRecordShape(&backup.Wallet); err != nil {
		return nil, err
	}

	if _, loadErr := l.loadRecord(); loadErr == nil {
		return nil, errs.ErrWalletExists
	} else if loadErr != errs.ErrNoWallet {
		return nil, loadErr
	}

	// 试解密 + 地址派生校验，失败的备份直接拒绝
	unlocked, err := l.UnlockRecord(&backup.Wallet, req.Password)
	if err != nil {
		return nil, err
	}
	unlocked.Wipe()

	if err := l.saveRecord(&backup.Wallet); err != nil {
		return nil, err
	}

	l.Infof("--- 备份恢复成功: %s ---", backup.Wallet.Address)
	return &types.ImportWalletResp{Address: backup.Wallet.Address}, nil
}

// BuildHDRecord 从助记词构建加密的 HD 钱包记录
// 私钥和助记词走两次独立的加密调用（各自独立的盐和随机数），泄露其中一段
// 密文不会帮助破解另一段
func (l *WalletLogic) BuildHDRecord(mnemonic, password string) (*types.WalletRecord, error) {
	privateKey, address, err := DeriveFromMnemonic(mnemonic)
	if err != nil {
		return nil, err
	}
	defer wipePrivateKey(privateKey)

	keyHex := hex.EncodeToString(ethcrypto.FromECDSA(privateKey))
	keyBytes := []byte(keyHex)
	defer crypto.Wipe(keyBytes)

	encryptedKey, err := l.svcCtx.Encryptor.Encrypt(keyBytes, password)
	if err != nil {
		return nil, err
	}
	encryptedMnemonic, err := l.svcCtx.Encryptor.Encrypt([]byte(mnemonic), password)
	if err != nil {
		return nil, err
	}

	return &types.WalletRecord{
		EncryptedPrivateKey: encryptedKey,
		EncryptedMnemonic:   encryptedMnemonic,
		Address:             address,
		CreatedAt:           time.Now().UTC(),
		Kind:                types.KindHD,
	}, nil
}

// BuildImportedRecord 从裸私钥构建加密的 imported 钱包记录
func (l *WalletLogic) BuildImportedRecord(keyInput, password string) (*types.WalletRecord, error) {
	privateKey, err := ParsePrivateKey(keyInput)
	if err != nil {
		return nil, err
	}
	defer wipePrivateKey(privateKey)

	address := ethcrypto.PubkeyToAddress(privateKey.PublicKey).Hex()

	keyHex := hex.EncodeToString(ethcrypto.FromECDSA(privateKey))
	keyBytes := []byte(keyHex)
	defer crypto.Wipe(keyBytes)

	encryptedKey, err := l.svcCtx.Encryptor.Encrypt(keyBytes, password)
	if err != nil {
		return nil, err
	}

	return &types.WalletRecord{
		EncryptedPrivateKey: encryptedKey,
		Address:             address,
		CreatedAt:           time.Now().UTC(),
		Kind:                types.KindImported,
	}, nil
}

// validateRecordShape 校验备份记录的结构完整性
// HD 记录必须带助记词密文，imported 记录必须不带
func validateRecordShape(record *types.WalletRecord) error {
	if record.Address == "" || record.EncryptedPrivateKey == "" {
		return errs.ErrDecryptionFailed
	}
	switch record.Kind {
	case types.KindHD:
		if record.EncryptedMnemonic == "" {
			return errs.ErrDecryptionFailed
		}
	case types.KindImported:
		if record.EncryptedMnemonic != "" {
			return errs.ErrDecryptionFailed
		}
	default:
		return errs.ErrDecryptionFailed
	}
	return nil
}

func (l *WalletLogic) loadRecord() (*types.WalletRecord, error) {
	raw, err := l.svcCtx.Storage.Get(l.ctx, constant.StorageKeyWallet)
	if err != nil {
		if model.ErrIsNotFound(err) {
			return nil, errs.ErrNoWallet
		}
		return nil, err
	}

	var record types.WalletRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		// 记录本身损坏，与解密失败同级处理
		return nil, errs.ErrDecryptionFailed
	}
	return &record, nil
}

func (l *WalletLogic) saveRecord(record *types.WalletRecord) error {
	raw, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return l.svcCtx.Storage.Set(l.ctx, constant.StorageKeyWallet, string(raw))
}

// NewMnemonic 用 128 位熵生成一份新的 12 词 BIP39 助记词
func NewMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(128)
	if err != nil {
		return "", err
	}
	return bip39.NewMnemonic(entropy)
}

// NormalizeMnemonic 规范化助记词：去首尾空白、统一小写、压缩词间空白
func NormalizeMnemonic(mnemonic string) string {
	words := strings.Fields(strings.ToLower(strings.TrimSpace(mnemonic)))
	return strings.Join(words, " ")
}

// ValidateMnemonic 校验词数（12/15/18/21/24）和 BIP39 词表合法性
func ValidateMnemonic(mnemonic string) error {
	words := strings.Fields(mnemonic)
	if !constant.MnemonicWordCounts[len(words)] {
		return errs.ErrInvalidMnemonic
	}
	if !bip39.IsMnemonicValid(mnemonic) {
		return errs.ErrInvalidMnemonic
	}
	return nil
}

// DeriveFromMnemonic 沿固定路径 m/44'/60'/0'/0/0 派生私钥和 EIP-55 地址
func DeriveFromMnemonic(mnemonic string) (*ecdsa.PrivateKey, string, error) {
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, "")
	if err != nil {
		return nil, "", errs.ErrInvalidMnemonic
	}

	master, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, "", errs.ErrInvalidMnemonic
	}

	// m/44'/60'/0'/0/0
	path := []uint32{
		hdkeychain.HardenedKeyStart + 44,
		hdkeychain.HardenedKeyStart + 60,
		hdkeychain.HardenedKeyStart + 0,
		0,
		0,
	}
	key := master
	for _, index := range path {
		key, err = key.Derive(index)
		if err != nil {
			return nil, "", errs.ErrInvalidMnemonic
		}
	}

	ecPriv, err := key.ECPrivKey()
	if err != nil {
		return nil, "", errs.ErrInvalidMnemonic
	}
	privateKey := ecPriv.ToECDSA()
	address := ethcrypto.PubkeyToAddress(privateKey.PublicKey).Hex()

	return privateKey, address, nil
}

// ParsePrivateKey 解析十六进制私钥，0x 前缀可选，必须恰好 32 字节
func ParsePrivateKey(keyInput string) (*ecdsa.PrivateKey, error) {
	keyHex := strings.TrimSpace(keyInput)
	keyHex = strings.TrimPrefix(keyHex, "0x")
	keyHex = strings.TrimPrefix(keyHex, "0X")
	if len(keyHex) != 64 {
		return nil, errs.ErrInvalidPrivateKey
	}

	privateKey, err := ethcrypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, errs.ErrInvalidPrivateKey
	}
	return privateKey, nil
}

func parsePrivateKeyHex(keyHex string) (*ecdsa.PrivateKey, error) {
	return ethcrypto.HexToECDSA(strings.TrimPrefix(keyHex, "0x"))
}

func wipePrivateKey(key *ecdsa.PrivateKey) {
	if key != nil && key.D != nil {
		key.D.SetInt64(0)
	}
}
