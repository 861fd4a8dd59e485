package model

import (
	"time"
)

// 市场名称常量
// 注册表 (adapter.Registry) 以这些名字为 key，新增市场时两边同步
const (
	MarketplaceEbay       = "ebay"
	MarketplaceEtsy       = "etsy"
	MarketplaceCraigslist = "craigslist"
	MarketplaceFacebook   = "facebook"
)

// MarketplaceAccount 用户在某个外部市场的账号凭证
// (user_id, marketplace_name) 全局唯一；断开连接只置 is_active=false，
// 重新连接通过 upsert 复活同一行，永远不会产生第二行
type MarketplaceAccount struct {
	BaseModel

	// 联合唯一索引：一个用户在一个市场最多一条记录
	UserID          int64  `gorm:"index;uniqueIndex:idx_user_marketplace;not null" json:"user_id"`
	MarketplaceName string `gorm:"size:50;uniqueIndex:idx_user_marketplace;not null" json:"marketplace_name"`

	AccountName string `gorm:"size:100" json:"account_name"`

	// 1. 密码类凭证 (自动化/手工市场)
	// 密码经 Vault 加密后落库，任何路径下不得出现明文
	Email             string `gorm:"size:100" json:"email"`
	EncryptedPassword string `gorm:"size:500" json:"-"`

	// 2. OAuth 类凭证 (API 市场)
	// Token 对同样经 Vault 加密存储
	AccessToken    string     `gorm:"size:2000" json:"-"`
	RefreshToken   string     `gorm:"size:2000" json:"-"`
	TokenExpiresAt *time.Time `json:"token_expires_at,omitempty"`

	// 不能挂 default 标签：gorm 会把显式的 false 当零值丢掉
	IsActive        bool `gorm:"index" json:"is_active"`
	AutoSyncEnabled bool `gorm:"default:false" json:"auto_sync_enabled"`
}

func (MarketplaceAccount) TableName() string {
	return "marketplace_accounts"
}

// HasOAuthToken 是否持有 OAuth Token 对
func (a *MarketplaceAccount) HasOAuthToken() bool {
	return a.AccessToken != "" && a.RefreshToken != ""
}

// TokenExpired 判断 access token 是否已过期
func (a *MarketplaceAccount) TokenExpired(now time.Time) bool {
	if a.TokenExpiresAt == nil {
		return false
	}
	return now.After(*a.TokenExpiresAt)
}
