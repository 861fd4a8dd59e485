package dto

import "time"

// BulkConnectRequest 批量连接请求
// 同一套邮箱/密码一次性连接多个密码类市场
type BulkConnectRequest struct {
	Email        string   `json:"email" binding:"required,email"`
	Password     string   `json:"password" binding:"required"`
	Marketplaces []string `json:"marketplaces" binding:"required,min=1"`
}

// ConnectResult 单个市场的连接结果
type ConnectResult struct {
	Marketplace string `json:"marketplace"`
	Connected   bool   `json:"connected"`
	Error       string `json:"error,omitempty"`

	// OAuth 市场不能用密码连接，转而下发授权链接
	AuthorizationURL string `json:"authorization_url,omitempty"`
}

// BulkConnectResponse 批量连接响应
type BulkConnectResponse struct {
	Results        []ConnectResult `json:"results"`
	ConnectedCount int             `json:"connected_count"`
}

// ConnectedMarketplaceVO 已连接市场视图
type ConnectedMarketplaceVO struct {
	Marketplace     string     `json:"marketplace"`
	AccountName     string     `json:"account_name"`
	Email           string     `json:"email,omitempty"`
	AutoSyncEnabled bool       `json:"auto_sync_enabled"`
	TokenExpiresAt  *time.Time `json:"token_expires_at,omitempty"`
	ConnectedAt     time.Time  `json:"connected_at"`
}
