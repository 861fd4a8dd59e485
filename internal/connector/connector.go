package connector

import (
	"context"
	"errors"
	"time"
)

// OAuth 流程错误
var (
	// ErrOAuthDenied 用户在提供方页面拒绝了授权
	ErrOAuthDenied = errors.New("用户拒绝授权")
	// ErrTokenExchangeFailed code 换 token 或刷新失败
	ErrTokenExchangeFailed = errors.New("token 交换失败")
	// ErrMissingConfiguration client_id 等应用配置缺失
	ErrMissingConfiguration = errors.New("缺少 OAuth 应用配置")
)

// TokenPair 一次授权/刷新拿到的 token
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// OAuthConnector 提供方 OAuth 流程抽象
// 授权链接生成和 token 交换各家细节不同 (PKCE / Basic 认证)，
// 上层服务只认这个接口
type OAuthConnector interface {
	// MarketplaceName 连接器对应的市场名
	MarketplaceName() string
	// AuthorizationURL 生成带 state 的授权跳转链接
	AuthorizationURL(state string) (string, error)
	// ExchangeCode 回调 code 换 token
	ExchangeCode(ctx context.Context, code, state string) (*TokenPair, error)
	// RefreshToken 用 refresh_token 换新 token
	RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error)
}
