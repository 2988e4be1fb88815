package wallet

import (
	"context"
	"strings"
	"testing"

	"stablewallet/internal/crypto"
	"stablewallet/internal/errs"
	"stablewallet/internal/model"
	"stablewallet/internal/svc"
	"stablewallet/internal/types"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPassword = "correct horse battery"

// BIP39 test vector, valid checksum
const testMnemonic = "legal winner thank year wave sausage worth useful legal winner thank yellow"

func newTestSvcCtx() *svc.ServiceContext {
	return &svc.ServiceContext{
		Storage:   model.NewMemoryStorage(),
		Encryptor: crypto.NewEncryptor(crypto.NewAESGCMProvider()),
	}
}

func TestCreateUnlockLifecycle(t *testing.T) {
	l := NewWalletLogic(context.Background(), newTestSvcCtx())

	resp, err := l.Create(&types.CreateWalletReq{Password: testPassword})
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(resp.Address, "0x"))
	require.Len(t, strings.Fields(resp.Mnemonic), 12)

	// 正确密码解锁，地址一致，助记词可读
	unlocked, err := l.Unlock(testPassword)
	require.NoError(t, err)
	assert.Equal(t, resp.Address, unlocked.Address)
	assert.Equal(t, resp.Mnemonic, string(unlocked.Mnemonic))
	assert.Equal(t, types.KindHD, unlocked.Kind)
	unlocked.Wipe()
	assert.Nil(t, unlocked.PrivateKey)
	assert.Nil(t, unlocked.Mnemonic)

	// 错误密码必须得到同一个折叠错误
	_, err = l.Unlock("wrong password!")
	assert.ErrorIs(t, err, errs.ErrDecryptionFailed)
}

func TestCreateRejectsShortPassword(t *testing.T) {
	l := NewWalletLogic(context.Background(), newTestSvcCtx())

	_, err := l.Create(&types.CreateWalletReq{Password: "short"})
	assert.ErrorIs(t, err, errs.ErrInvalidPassword)
}

func TestCreateRejectsOverwrite(t *testing.T) {
	l := NewWalletLogic(context.Background(), newTestSvcCtx())

	_, err := l.Create(&types.CreateWalletReq{Password: testPassword})
	require.NoError(t, err)

	_, err = l.Create(&types.CreateWalletReq{Password: testPassword})
	assert.ErrorIs(t, err, errs.ErrWalletExists)

	_, err = l.ImportFromMnemonic(&types.ImportMnemonicReq{Mnemonic: testMnemonic, Password: testPassword})
	assert.ErrorIs(t, err, errs.ErrWalletExists)
}

func TestImportMnemonicNormalization(t *testing.T) {
	// 大小写和空白差异不改变派生结果
	messy := "  Legal  WINNER thank year\twave sausage worth useful legal winner thank YELLOW  "
	normalized := NormalizeMnemonic(messy)
	require.Equal(t, testMnemonic, normalized)

	_, addrClean, err := DeriveFromMnemonic(testMnemonic)
	require.NoError(t, err)
	_, addrMessy, err := DeriveFromMnemonic(NormalizeMnemonic(messy))
	require.NoError(t, err)
	assert.Equal(t, addrClean, addrMessy)

	l := NewWalletLogic(context.Background(), newTestSvcCtx())
	resp, err := l.ImportFromMnemonic(&types.ImportMnemonicReq{Mnemonic: messy, Password: testPassword})
	require.NoError(t, err)
	assert.Equal(t, addrClean, resp.Address)
}

func TestValidateMnemonic(t *testing.T) {
	assert.NoError(t, ValidateMnemonic(testMnemonic))

	// 词数不合法
	assert.ErrorIs(t, ValidateMnemonic("legal winner thank"), errs.ErrInvalidMnemonic)

	// 词数对但校验和不对
	bad := "legal legal legal legal legal legal legal legal legal legal legal legal"
	assert.ErrorIs(t, ValidateMnemonic(bad), errs.ErrInvalidMnemonic)
}

func TestImportPrivateKey(t *testing.T) {
	keyHex := "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
	parsed, err := ParsePrivateKey(keyHex)
	require.NoError(t, err)
	expected := ethcrypto.PubkeyToAddress(parsed.PublicKey).Hex()

	l := NewWalletLogic(context.Background(), newTestSvcCtx())
	resp, err := l.ImportFromPrivateKey(&types.ImportPrivateKeyReq{PrivateKey: "0x" + keyHex, Password: testPassword})
	require.NoError(t, err)
	assert.Equal(t, expected, resp.Address)

	// imported 钱包没有助记词
	_, err = l.ExportMnemonic(&types.ExportSecretReq{Password: testPassword})
	assert.ErrorIs(t, err, errs.ErrNoMnemonic)

	// 私钥可以原样导出
	exported, err := l.ExportPrivateKey(&types.ExportSecretReq{Password: testPassword})
	require.NoError(t, err)
	assert.Equal(t, "0x"+keyHex, exported.PrivateKey)
}

func TestParsePrivateKeyRejectsMalformed(t *testing.T) {
	cases := []string{
		"",
		"abc123",
		strings.Repeat("0", 63),
		strings.Repeat("g", 64), // 非十六进制
		"0x" + strings.Repeat("0", 66),
	}
	for _, input := range cases {
		_, err := ParsePrivateKey(input)
		assert.ErrorIs(t, err, errs.ErrInvalidPrivateKey, "input: %q", input)
	}
}

func TestVerifyPassword(t *testing.T) {
	l := NewWalletLogic(context.Background(), newTestSvcCtx())

	_, err := l.Create(&types.CreateWalletReq{Password: testPassword})
	require.NoError(t, err)

	resp, err := l.VerifyPassword(&types.VerifyPasswordReq{Password: testPassword})
	require.NoError(t, err)
	assert.True(t, resp.Valid)

	resp, err = l.VerifyPassword(&types.VerifyPasswordReq{Password: "not the password"})
	require.NoError(t, err)
	assert.False(t, resp.Valid)
}

func TestUnlockDetectsTamperedRecord(t *testing.T) {
	l := NewWalletLogic(context.Background(), newTestSvcCtx())

	record, err := l.BuildHDRecord(testMnemonic, testPassword)
	require.NoError(t, err)

	// 密文被篡改
	corrupted := *record
	corrupted.EncryptedPrivateKey = "x" + corrupted.EncryptedPrivateKey[1:]
	_, err = l.UnlockRecord(&corrupted, testPassword)
	assert.ErrorIs(t, err, errs.ErrDecryptionFailed)

	// 地址被换掉：解密成功但完整性校验失败，错误必须不可区分
	swapped := *record
	swapped.Address = "0x0000000000000000000000000000000000000001"
	_, err = l.UnlockRecord(&swapped, testPassword)
	assert.ErrorIs(t, err, errs.ErrDecryptionFailed)
}

func TestDeleteWallet(t *testing.T) {
	l := NewWalletLogic(context.Background(), newTestSvcCtx())

	_, err := l.Delete()
	assert.ErrorIs(t, err, errs.ErrNoWallet)

	_, err = l.Create(&types.CreateWalletReq{Password: testPassword})
	require.NoError(t, err)

	_, err = l.Delete()
	require.NoError(t, err)

	_, err = l.Unlock(testPassword)
	assert.ErrorIs(t, err, errs.ErrNoWallet)
}

func TestBackupRestoreRoundTrip(t *testing.T) {
	source := NewWalletLogic(context.Background(), newTestSvcCtx())
	created, err := source.Create(&types.CreateWalletReq{Password: testPassword})
	require.NoError(t, err)

	backup, err := source.ExportBackup()
	require.NoError(t, err)
	assert.NotEmpty(t, backup.Backup.Version)
	assert.NotEmpty(t, backup.Backup.Type)
	// 备份文件只含密文
	assert.NotContains(t, backup.Backup.Wallet.EncryptedMnemonic, created.Mnemonic)

	// 在全新环境恢复
	target := NewWalletLogic(context.Background(), newTestSvcCtx())
	restored, err := target.RestoreBackup(&types.RestoreBackupReq{Backup: backup.Backup, Password: testPassword})
	require.NoError(t, err)
	assert.Equal(t, created.Address, restored.Address)

	unlocked, err := target.Unlock(testPassword)
	require.NoError(t, err)
	assert.Equal(t, created.Mnemonic, string(unlocked.Mnemonic))
	unlocked.Wipe()
}

func TestRestoreBackupRejections(t *testing.T) {
	source := NewWalletLogic(context.Background(), newTestSvcCtx())
	_, err := source.Create(&types.CreateWalletReq{Password: testPassword})
	require.NoError(t, err)
	backup, err := source.ExportBackup()
	require.NoError(t, err)

	// 密码不对
	target := NewWalletLogic(context.Background(), newTestSvcCtx())
	_, err = target.RestoreBackup(&types.RestoreBackupReq{Backup: backup.Backup, Password: "wrong password!"})
	assert.ErrorIs(t, err, errs.ErrDecryptionFailed)

	// 文件类型不对
	badType := backup.Backup
	badType.Type = "something-else"
	_, err = target.RestoreBackup(&types.RestoreBackupReq{Backup: badType, Password: testPassword})
	assert.ErrorIs(t, err, errs.ErrDecryptionFailed)

	// 结构不完整：HD 记录缺助记词密文
	badShape := backup.Backup
	badShape.Wallet.EncryptedMnemonic = ""
	_, err = target.RestoreBackup(&types.RestoreBackupReq{Backup: badShape, Password: testPassword})
	assert.ErrorIs(t, err, errs.ErrDecryptionFailed)

	// 已有钱包时拒绝覆盖
	_, err = source.RestoreBackup(&types.RestoreBackupReq{Backup: backup.Backup, Password: testPassword})
	assert.ErrorIs(t, err, errs.ErrWalletExists)
}

func TestEncryptionNonDeterministicAcrossRecords(t *testing.T) {
	l := NewWalletLogic(context.Background(), newTestSvcCtx())

	first, err := l.BuildHDRecord(testMnemonic, testPassword)
	require.NoError(t, err)
	second, err := l.BuildHDRecord(testMnemonic, testPassword)
	require.NoError(t, err)

	// 相同输入两次加密必须得到不同密文（盐和随机数每次新生成）
	assert.NotEqual(t, first.EncryptedPrivateKey, second.EncryptedPrivateKey)
	assert.NotEqual(t, first.EncryptedMnemonic, second.EncryptedMnemonic)
	assert.Equal(t, first.Address, second.Address)
}
