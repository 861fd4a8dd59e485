package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/scrypt"
)

// 固定盐值：密钥派生只依赖主密钥本身
// 注意：更换主密钥会导致所有已存密文无法解密（暂无 key-versioning 方案）
const keySalt = "crosslist-credential-vault"

// scrypt 参数 (N, r, p)
const (
	scryptN      = 1 << 15
	scryptR      = 8
	scryptP      = 1
	scryptKeyLen = 32 // AES-256
)

// VaultError 解密/加密失败统一错误类型
// 密文损坏与主密钥变更无法区分，统一按 VaultError 处理
type VaultError struct {
	Op  string
	Err error
}

func (e *VaultError) Error() string {
	return fmt.Sprintf("vault %s failed: %v", e.Op, e.Err)
}

func (e *VaultError) Unwrap() error {
	return e.Err
}

// IsVaultError 判断错误是否来自 Vault
func IsVaultError(err error) bool {
	var ve *VaultError
	return errors.As(err, &ve)
}

// Vault 凭证保险库
// 对称加密所有落库的敏感数据 (登录密码 / OAuth Token 对)
// 密钥材料在构造时一次性派生，之后只读，多协程并发安全
type Vault struct {
	aead cipher.AEAD
}

// New 从配置注入的主密钥构造 Vault
// masterSecret 来自进程配置，不与密文一起存储
func New(masterSecret string) (*Vault, error) {
	if masterSecret == "" {
		return nil, &VaultError{Op: "init", Err: errors.New("master secret 为空")}
	}

	// 1. scrypt 派生 AES-256 密钥
	key, err := scrypt.Key([]byte(masterSecret), []byte(keySalt), scryptN, scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return nil, &VaultError{Op: "init", Err: err}
	}

	// 2. 构建 AES-GCM
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, &VaultError{Op: "init", Err: err}
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, &VaultError{Op: "init", Err: err}
	}

	return &Vault{aead: aead}, nil
}

// Encrypt 加密明文，返回 base64(nonce || ciphertext)
// 每次加密都取新的随机 nonce，同一明文两次加密结果必然不同
func (v *Vault) Encrypt(plaintext string) (string, error) {
	nonce := make([]byte, v.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", &VaultError{Op: "encrypt", Err: err}
	}

	sealed := v.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt 解密 Encrypt 产出的密文块
// 密文格式非法或主密钥已变更时返回 VaultError
func (v *Vault) Decrypt(blob string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return "", &VaultError{Op: "decrypt", Err: fmt.Errorf("密文格式非法: %v", err)}
	}

	nonceSize := v.aead.NonceSize()
	if len(raw) < nonceSize+1 {
		return "", &VaultError{Op: "decrypt", Err: errors.New("密文长度不足")}
	}

	nonce, ciphertext := raw[:nonceSize], raw[nonceSize:]
	plaintext, err := v.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		// GCM 认证失败：密文被篡改或主密钥不匹配
		return "", &VaultError{Op: "decrypt", Err: err}
	}

	return string(plaintext), nil
}
