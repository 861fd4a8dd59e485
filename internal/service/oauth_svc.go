package service

import (
	"context"
	"fmt"
	"log"
	"sync"

	"crosslist_v1_202608/internal/connector"
	"crosslist_v1_202608/internal/model"
	"crosslist_v1_202608/internal/repository"
	"crosslist_v1_202608/pkg/utils"
	"crosslist_v1_202608/pkg/vault"
)

// OAuthService OAuth 授权流程
// 发起授权 -> 用户在提供方页面确认 -> 回调换 Token -> 密文落库
type OAuthService struct {
	AccountRepo repository.AccountRepository
	vault       *vault.Vault
	notifier    Notifier

	mu         sync.RWMutex
	connectors map[string]connector.OAuthConnector
}

// NewOAuthService 工厂方法
func NewOAuthService(accountRepo repository.AccountRepository, v *vault.Vault, notifier Notifier) *OAuthService {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	return &OAuthService{
		AccountRepo: accountRepo,
		vault:       v,
		notifier:    notifier,
		connectors:  make(map[string]connector.OAuthConnector),
	}
}

// RegisterConnector 注册市场连接器
func (s *OAuthService) RegisterConnector(c connector.OAuthConnector) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connectors[c.MarketplaceName()] = c
}

func (s *OAuthService) connector(marketplace string) (connector.OAuthConnector, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.connectors[marketplace]
	return c, ok
}

// GetAuthorizationURL 为用户生成某市场的授权跳转链接
func (s *OAuthService) GetAuthorizationURL(userID int64, marketplace string) (string, error) {
	c, ok := s.connector(marketplace)
	if !ok {
		return "", fmt.Errorf("市场 %s 不支持 OAuth 授权", marketplace)
	}

	// state 携带 user_id，回调时靠它对应回用户
	state := utils.NewOAuthState(userID)
	return c.AuthorizationURL(state.Encode())
}

// HandleCallback 处理提供方授权回调
// errParam 是提供方回调带的 error 参数，非空即用户拒绝授权
func (s *OAuthService) HandleCallback(ctx context.Context, marketplace, code, state, errParam string) (*model.MarketplaceAccount, error) {
	// 1. 用户在授权页点了拒绝
	if errParam != "" {
		return nil, fmt.Errorf("%w: %s", connector.ErrOAuthDenied, errParam)
	}
	if code == "" {
		return nil, fmt.Errorf("%w: 回调缺少 code", connector.ErrTokenExchangeFailed)
	}

	// 2. 还原 state 对应回用户
	oauthState, err := utils.DecodeOAuthState(state)
	if err != nil {
		return nil, err
	}

	// 3. code 换 Token
	c, ok := s.connector(marketplace)
	if !ok {
		return nil, fmt.Errorf("市场 %s 不支持 OAuth 授权", marketplace)
	}
	pair, err := c.ExchangeCode(ctx, code, state)
	if err != nil {
		return nil, err
	}

	// 4. Token 对过 Vault 加密后落库
	encAccess, err := s.vault.Encrypt(pair.AccessToken)
	if err != nil {
		return nil, err
	}
	encRefresh, err := s.vault.Encrypt(pair.RefreshToken)
	if err != nil {
		return nil, err
	}

	expiresAt := pair.ExpiresAt
	account := &model.MarketplaceAccount{
		UserID:          oauthState.UserID,
		MarketplaceName: marketplace,
		AccessToken:     encAccess,
		RefreshToken:    encRefresh,
		TokenExpiresAt:  &expiresAt,
		IsActive:        true,
	}
	if err := s.AccountRepo.Upsert(ctx, account); err != nil {
		return nil, fmt.Errorf("账号入库失败: %v", err)
	}

	log.Printf("[OAuth] 用户 %d 完成 %s 授权", oauthState.UserID, marketplace)
	s.notifier.MarketplaceConnected(oauthState.UserID, marketplace)
	return account, nil
}
