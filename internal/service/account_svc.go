package service

import (
	"context"
	"fmt"
	"log"

	"crosslist_v1_202608/internal/adapter"
	"crosslist_v1_202608/internal/api/dto"
	"crosslist_v1_202608/internal/model"
	"crosslist_v1_202608/internal/repository"
	"crosslist_v1_202608/pkg/vault"
)

// Notifier 账号连接事件通知
// 目前只做日志，后续接站内信/邮件时换实现
type Notifier interface {
	MarketplaceConnected(userID int64, marketplace string)
}

// LogNotifier 日志版通知
type LogNotifier struct{}

func (LogNotifier) MarketplaceConnected(userID int64, marketplace string) {
	log.Printf("[Notify] 用户 %d 已连接市场 %s", userID, marketplace)
}

// AccountService 市场账号管理
type AccountService struct {
	AccountRepo repository.AccountRepository
	registry    *adapter.Registry
	vault       *vault.Vault
	oauth       *OAuthService
	notifier    Notifier
}

// NewAccountService 工厂方法
func NewAccountService(accountRepo repository.AccountRepository, registry *adapter.Registry,
	v *vault.Vault, oauth *OAuthService, notifier Notifier) *AccountService {
	if notifier == nil {
		notifier = LogNotifier{}
	}
	return &AccountService{
		AccountRepo: accountRepo,
		registry:    registry,
		vault:       v,
		oauth:       oauth,
		notifier:    notifier,
	}
}

// BulkConnect 用同一套邮箱/密码一次性连接多个市场
// 密码类市场直接落库 (密码过 Vault 加密)；OAuth 市场不能用密码，
// 改为下发授权链接让用户走授权流程。单个市场失败不影响其它市场
func (s *AccountService) BulkConnect(ctx context.Context, userID int64, req *dto.BulkConnectRequest) (*dto.BulkConnectResponse, error) {
	resp := &dto.BulkConnectResponse{
		Results: make([]dto.ConnectResult, 0, len(req.Marketplaces)),
	}

	for _, name := range req.Marketplaces {
		result := s.connectOne(ctx, userID, name, req.Email, req.Password)
		if result.Connected {
			resp.ConnectedCount++
		}
		resp.Results = append(resp.Results, result)
	}

	return resp, nil
}

func (s *AccountService) connectOne(ctx context.Context, userID int64, marketplace, email, password string) dto.ConnectResult {
	result := dto.ConnectResult{Marketplace: marketplace}

	// 1. 市场必须在注册表里
	entry, ok := s.registry.Resolve(marketplace)
	if !ok {
		result.Error = fmt.Sprintf("未知市场: %s", marketplace)
		return result
	}

	// 2. OAuth 市场密码没用，下发授权链接
	if entry.OAuthCapable {
		authURL, err := s.oauth.GetAuthorizationURL(userID, marketplace)
		if err != nil {
			result.Error = fmt.Sprintf("生成授权链接失败: %v", err)
			return result
		}
		result.AuthorizationURL = authURL
		result.Error = "该市场使用 OAuth 授权，请通过 authorization_url 完成连接"
		return result
	}

	// 3. 密码过 Vault 加密后 upsert，断开过的账号在这里复活
	encrypted, err := s.vault.Encrypt(password)
	if err != nil {
		result.Error = fmt.Sprintf("凭证加密失败: %v", err)
		return result
	}

	account := &model.MarketplaceAccount{
		UserID:            userID,
		MarketplaceName:   marketplace,
		AccountName:       email,
		Email:             email,
		EncryptedPassword: encrypted,
		IsActive:          true,
	}
	if err := s.AccountRepo.Upsert(ctx, account); err != nil {
		result.Error = fmt.Sprintf("账号入库失败: %v", err)
		return result
	}

	s.notifier.MarketplaceConnected(userID, marketplace)
	result.Connected = true
	return result
}

// ListConnected 当前用户已连接的市场
func (s *AccountService) ListConnected(ctx context.Context, userID int64) ([]dto.ConnectedMarketplaceVO, error) {
	accounts, err := s.AccountRepo.ListActiveByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	vos := make([]dto.ConnectedMarketplaceVO, 0, len(accounts))
	for _, a := range accounts {
		vos = append(vos, dto.ConnectedMarketplaceVO{
			Marketplace:     a.MarketplaceName,
			AccountName:     a.AccountName,
			Email:           a.Email,
			AutoSyncEnabled: a.AutoSyncEnabled,
			TokenExpiresAt:  a.TokenExpiresAt,
			ConnectedAt:     a.UpdatedAt,
		})
	}
	return vos, nil
}

// Disconnect 断开市场连接
// 软停用：凭证密文保留在行里，重连走 upsert 复活同一行
func (s *AccountService) Disconnect(ctx context.Context, userID int64, marketplace string) error {
	return s.AccountRepo.Deactivate(ctx, userID, marketplace)
}

// SetAutoSync 开关自动同步
func (s *AccountService) SetAutoSync(ctx context.Context, userID int64, marketplace string, enabled bool) error {
	account, err := s.AccountRepo.GetActive(ctx, userID, marketplace)
	if err != nil {
		return err
	}
	return s.AccountRepo.UpdateFields(ctx, account.ID, map[string]interface{}{
		"auto_sync_enabled": enabled,
	})
}
