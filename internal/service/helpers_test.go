package service

import (
	"context"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"crosslist_v1_202608/internal/adapter"
	"crosslist_v1_202608/internal/connector"
	"crosslist_v1_202608/internal/model"
	"crosslist_v1_202608/internal/repository"
	"crosslist_v1_202608/pkg/vault"
)

// ==================== 测试辅助 ====================

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}
	if err := db.AutoMigrate(
		&model.MarketplaceAccount{},
		&model.Listing{},
		&model.ListingMarketplaceStatus{},
	); err != nil {
		t.Fatalf("建表失败: %v", err)
	}
	return db
}

func testVault(t *testing.T) *vault.Vault {
	v, err := vault.New("test-master-secret")
	if err != nil {
		t.Fatalf("构造 vault 失败: %v", err)
	}
	return v
}

func seedListing(t *testing.T, db *gorm.DB, userID int64) *model.Listing {
	listing := &model.Listing{
		UserID:      userID,
		Title:       "Vintage Camera",
		Description: "Works great",
		Category:    "electronics",
		Condition:   "good",
		City:        "Brooklyn",
		PostalCode:  "11201",
		Photos:      []string{"https://img.example.com/1.jpg"},
		Status:      model.ListingStatusDraft,
	}
	listing.SetPrice(40)
	if err := db.Create(listing).Error; err != nil {
		t.Fatalf("写入测试商品失败: %v", err)
	}
	return listing
}

// seedPasswordAccount 密码类市场账号 (密码过 vault 加密)
func seedPasswordAccount(t *testing.T, db *gorm.DB, v *vault.Vault, userID int64, marketplace string) *model.MarketplaceAccount {
	encrypted, err := v.Encrypt("hunter2")
	if err != nil {
		t.Fatalf("加密失败: %v", err)
	}
	account := &model.MarketplaceAccount{
		UserID:            userID,
		MarketplaceName:   marketplace,
		Email:             "seller@example.com",
		EncryptedPassword: encrypted,
		IsActive:          true,
	}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("写入测试账号失败: %v", err)
	}
	return account
}

// seedOAuthAccount OAuth 类市场账号 (token 对过 vault 加密)
func seedOAuthAccount(t *testing.T, db *gorm.DB, v *vault.Vault, userID int64, marketplace string, expiresAt time.Time) *model.MarketplaceAccount {
	encAccess, _ := v.Encrypt("plain-access-token")
	encRefresh, _ := v.Encrypt("plain-refresh-token")
	account := &model.MarketplaceAccount{
		UserID:          userID,
		MarketplaceName: marketplace,
		AccessToken:     encAccess,
		RefreshToken:    encRefresh,
		TokenExpiresAt:  &expiresAt,
		IsActive:        true,
	}
	if err := db.Create(account).Error; err != nil {
		t.Fatalf("写入测试账号失败: %v", err)
	}
	return account
}

// ==================== Mock Adapter ====================

// mockAdapter 可编程市场 adapter
type mockAdapter struct {
	cred        *adapter.Credential
	draftFunc   func(cred *adapter.Credential, spec *adapter.ListingSpec) (*adapter.DraftHandle, error)
	publishFunc func(cred *adapter.Credential, handle *adapter.DraftHandle) (*adapter.PublishOutcome, error)
	available   bool
}

func (m *mockAdapter) CreateDraft(ctx context.Context, spec *adapter.ListingSpec) (*adapter.DraftHandle, error) {
	if m.draftFunc != nil {
		return m.draftFunc(m.cred, spec)
	}
	return &adapter.DraftHandle{SKU: spec.SKU, ExternalID: "draft-1"}, nil
}

func (m *mockAdapter) Publish(ctx context.Context, handle *adapter.DraftHandle) (*adapter.PublishOutcome, error) {
	if m.publishFunc != nil {
		return m.publishFunc(m.cred, handle)
	}
	return &adapter.PublishOutcome{ExternalID: "ext-1", ExternalURL: "https://market.example.com/ext-1"}, nil
}

func (m *mockAdapter) IsAvailable(ctx context.Context) bool {
	return m.available
}

// registerMock 往注册表里挂一个可编程市场
func registerMock(registry *adapter.Registry, name string, kind adapter.Kind, oauthCapable bool, template *mockAdapter) {
	registry.Register(name, adapter.Entry{
		Kind:         kind,
		OAuthCapable: oauthCapable,
		Factory: func(cred *adapter.Credential) adapter.MarketplaceAdapter {
			return &mockAdapter{
				cred:        cred,
				draftFunc:   template.draftFunc,
				publishFunc: template.publishFunc,
				available:   template.available,
			}
		},
	})
}

// ==================== Mock Connector ====================

// mockConnector 可编程 OAuth 连接器
type mockConnector struct {
	name         string
	refreshFunc  func(refreshToken string) (*connector.TokenPair, error)
	exchangeFunc func(code, state string) (*connector.TokenPair, error)
	refreshCalls int
}

func (m *mockConnector) MarketplaceName() string { return m.name }

func (m *mockConnector) AuthorizationURL(state string) (string, error) {
	return "https://auth.example.com/connect?state=" + state, nil
}

func (m *mockConnector) ExchangeCode(ctx context.Context, code, state string) (*connector.TokenPair, error) {
	if m.exchangeFunc != nil {
		return m.exchangeFunc(code, state)
	}
	return &connector.TokenPair{
		AccessToken:  "exchanged-access",
		RefreshToken: "exchanged-refresh",
		ExpiresAt:    time.Now().Add(time.Hour),
	}, nil
}

func (m *mockConnector) RefreshToken(ctx context.Context, refreshToken string) (*connector.TokenPair, error) {
	m.refreshCalls++
	if m.refreshFunc != nil {
		return m.refreshFunc(refreshToken)
	}
	return &connector.TokenPair{
		AccessToken:  "refreshed-access",
		RefreshToken: "refreshed-refresh",
		ExpiresAt:    time.Now().Add(time.Hour),
	}, nil
}

// ==================== 组装 ====================

type testEnv struct {
	db          *gorm.DB
	vault       *vault.Vault
	registry    *adapter.Registry
	accountRepo repository.AccountRepository
	listingRepo repository.ListingRepository
	tokens      *TokenLifecycleManager
	oauth       *OAuthService
	orch        *PublishOrchestrator
}

func newTestEnv(t *testing.T) *testEnv {
	db := setupTestDB(t)
	v := testVault(t)
	registry := adapter.NewRegistry()
	accountRepo := repository.NewAccountRepository(db)
	listingRepo := repository.NewListingRepository(db)
	tokens := NewTokenLifecycleManager(accountRepo, v)
	oauth := NewOAuthService(accountRepo, v, nil)
	orch := NewPublishOrchestrator(registry, accountRepo, listingRepo, tokens, oauth)

	return &testEnv{
		db:          db,
		vault:       v,
		registry:    registry,
		accountRepo: accountRepo,
		listingRepo: listingRepo,
		tokens:      tokens,
		oauth:       oauth,
		orch:        orch,
	}
}
