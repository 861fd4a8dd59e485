package service

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"crosslist_v1_202608/internal/adapter"
	"crosslist_v1_202608/internal/connector"
	"crosslist_v1_202608/internal/model"
	"crosslist_v1_202608/internal/repository"
	"crosslist_v1_202608/pkg/vault"
)

// Token 剩余有效期低于该值就提前刷新，避免发布中途过期
const tokenRefreshMargin = 2 * time.Minute

// TokenLifecycleManager Token 生命周期托管
// 调用方不接触密文也不关心过期：拿到的永远是解密后的可用凭证
// 刷新规则：
//  1. 执行前发现过期 (或临期) 先刷新
//  2. 执行中提供方返回 401 且本次还没刷新过，刷新一次后重试一次
//  3. 刷新被提供方拒绝 -> 账号停用，返回 CREDENTIAL_EXPIRED
type TokenLifecycleManager struct {
	AccountRepo repository.AccountRepository
	vault       *vault.Vault

	mu         sync.RWMutex
	connectors map[string]connector.OAuthConnector

	now func() time.Time
}

// NewTokenLifecycleManager 工厂方法
func NewTokenLifecycleManager(accountRepo repository.AccountRepository, v *vault.Vault) *TokenLifecycleManager {
	return &TokenLifecycleManager{
		AccountRepo: accountRepo,
		vault:       v,
		connectors:  make(map[string]connector.OAuthConnector),
		now:         time.Now,
	}
}

// RegisterConnector 注册市场的 OAuth 连接器
func (m *TokenLifecycleManager) RegisterConnector(c connector.OAuthConnector) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connectors[c.MarketplaceName()] = c
}

func (m *TokenLifecycleManager) connector(marketplace string) (connector.OAuthConnector, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.connectors[marketplace]
	return c, ok
}

// Do 解密凭证并执行 fn，透明处理 Token 过期
func (m *TokenLifecycleManager) Do(ctx context.Context, account *model.MarketplaceAccount, fn func(cred *adapter.Credential) error) error {
	refreshed := false

	// 1. 执行前检查：已过期/临期先刷新
	if account.HasOAuthToken() && account.TokenExpired(m.now().Add(tokenRefreshMargin)) {
		if err := m.refresh(ctx, account); err != nil {
			return err
		}
		refreshed = true
	}

	// 2. 解密出本次调用用的凭证
	cred, err := m.decryptCredential(account)
	if err != nil {
		return err
	}

	// 3. 执行业务动作
	err = fn(cred)
	if err == nil {
		return nil
	}

	// 4. 401 且还没刷新过：Token 可能在检查后刚好过期，刷新一次重试
	if adapter.IsUnauthorized(err) && !refreshed && account.HasOAuthToken() {
		log.Printf("[TokenManager] %s 返回 401，尝试刷新后重试", account.MarketplaceName)
		if rerr := m.refresh(ctx, account); rerr != nil {
			return rerr
		}
		cred, cerr := m.decryptCredential(account)
		if cerr != nil {
			return cerr
		}
		return fn(cred)
	}

	return err
}

// RefreshAccount 直接刷新一个账号的 Token (定时任务用)
func (m *TokenLifecycleManager) RefreshAccount(ctx context.Context, account *model.MarketplaceAccount) error {
	if !account.HasOAuthToken() {
		return nil
	}
	return m.refresh(ctx, account)
}

// ==================== 内部实现 ====================

// decryptCredential 把落库密文还原成内存凭证
func (m *TokenLifecycleManager) decryptCredential(account *model.MarketplaceAccount) (*adapter.Credential, error) {
	cred := &adapter.Credential{Email: account.Email}

	if account.EncryptedPassword != "" {
		password, err := m.vault.Decrypt(account.EncryptedPassword)
		if err != nil {
			return nil, adapter.WrapError(adapter.CodeVaultError, "decrypt_password", err)
		}
		cred.Password = password
	}
	if account.AccessToken != "" {
		token, err := m.vault.Decrypt(account.AccessToken)
		if err != nil {
			return nil, adapter.WrapError(adapter.CodeVaultError, "decrypt_token", err)
		}
		cred.AccessToken = token
	}

	return cred, nil
}

// refresh 调提供方刷新 Token 并回写密文
// 刷新被拒说明授权已吊销，停用账号等用户重新授权
func (m *TokenLifecycleManager) refresh(ctx context.Context, account *model.MarketplaceAccount) error {
	c, ok := m.connector(account.MarketplaceName)
	if !ok {
		return adapter.NewError(adapter.CodeInternal, "refresh_token",
			fmt.Sprintf("市场 %s 没有注册 OAuth 连接器", account.MarketplaceName))
	}

	// 1. 解出 refresh_token
	refreshToken, err := m.vault.Decrypt(account.RefreshToken)
	if err != nil {
		return adapter.WrapError(adapter.CodeVaultError, "decrypt_refresh_token", err)
	}

	// 2. 换新 Token
	pair, err := c.RefreshToken(ctx, refreshToken)
	if err != nil {
		// 刷新被拒：停用账号，后续发布直接提示重新授权
		if derr := m.AccountRepo.Deactivate(ctx, account.UserID, account.MarketplaceName); derr != nil {
			log.Printf("[TokenManager] 停用账号失败 user=%d market=%s: %v",
				account.UserID, account.MarketplaceName, derr)
		}
		account.IsActive = false
		return adapter.WrapError(adapter.CodeCredentialExpired, "refresh_token", err)
	}

	// 3. 新 Token 加密落库，明文不出内存
	encAccess, err := m.vault.Encrypt(pair.AccessToken)
	if err != nil {
		return adapter.WrapError(adapter.CodeVaultError, "encrypt_token", err)
	}
	encRefresh, err := m.vault.Encrypt(pair.RefreshToken)
	if err != nil {
		return adapter.WrapError(adapter.CodeVaultError, "encrypt_token", err)
	}
	if err := m.AccountRepo.UpdateToken(ctx, account.ID, encAccess, encRefresh, pair.ExpiresAt.Unix()); err != nil {
		return adapter.WrapError(adapter.CodeInternal, "persist_token", err)
	}

	// 4. 同步内存里的账号对象，本次调用直接用新 Token
	account.AccessToken = encAccess
	account.RefreshToken = encRefresh
	expiresAt := pair.ExpiresAt
	account.TokenExpiresAt = &expiresAt

	log.Printf("[TokenManager] %s Token 已刷新 user=%d 有效期至 %s",
		account.MarketplaceName, account.UserID, expiresAt.Format(time.RFC3339))
	return nil
}
