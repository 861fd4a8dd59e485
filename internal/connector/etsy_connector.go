package connector

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"crosslist_v1_202608/pkg/utils"
)

// Etsy OAuth 端点
const (
	etsyConnectURL      = "https://www.etsy.com/oauth/connect"
	defaultEtsyTokenURL = "https://api.etsy.com/v3/public/oauth/token"
)

// etsyScopes 发布商品所需的最小权限集
const etsyScopes = "listings_r listings_w listings_d shops_r shops_w email_r"

// EtsyConnectorConfig Etsy OAuth 应用配置
type EtsyConnectorConfig struct {
	ClientID    string // Etsy 后台的 keystring
	CallbackURL string // 必须与 Etsy 后台填写的完全一致
	TokenURL    string // 留空用官方端点，测试时指向 httptest
}

// EtsyConnector Etsy OAuth 2.0 + PKCE
// verifier 不落库：授权发起时按 state 缓存，回调时取出用掉
type EtsyConnector struct {
	config *EtsyConnectorConfig
	client *resty.Client
}

// NewEtsyConnector 工厂方法
func NewEtsyConnector(config *EtsyConnectorConfig) *EtsyConnector {
	return &EtsyConnector{
		config: config,
		client: resty.New().SetTimeout(15 * time.Second),
	}
}

func (c *EtsyConnector) MarketplaceName() string {
	return "etsy"
}

func (c *EtsyConnector) tokenURL() string {
	if c.config.TokenURL != "" {
		return c.config.TokenURL
	}
	return defaultEtsyTokenURL
}

// AuthorizationURL 生成带 PKCE challenge 的授权链接
func (c *EtsyConnector) AuthorizationURL(state string) (string, error) {
	if c.config.ClientID == "" || c.config.CallbackURL == "" {
		return "", ErrMissingConfiguration
	}

	// 1. 生成 PKCE 安全参数
	verifier, err := utils.GenerateRandomString(32)
	if err != nil {
		return "", err
	}
	challenge := utils.GenerateCodeChallenge(verifier)

	// 2. 缓存 Verifier (key=state)，回调时取出
	utils.SetCache(state, verifier)

	// 3. 拼接 Etsy 官方授权 URL
	authURL := fmt.Sprintf(
		"%s?response_type=code&client_id=%s&redirect_uri=%s&scope=%s&state=%s&code_challenge=%s&code_challenge_method=S256",
		etsyConnectURL, c.config.ClientID, c.config.CallbackURL, etsyScopes, state, challenge,
	)
	return authURL, nil
}

// ExchangeCode 回调 code 换 token
func (c *EtsyConnector) ExchangeCode(ctx context.Context, code, state string) (*TokenPair, error) {
	// 1. 校验 State 取回 verifier
	verifier, exists := utils.GetCache(state)
	if !exists {
		return nil, fmt.Errorf("%w: 授权超时或 state 无效", ErrTokenExchangeFailed)
	}
	defer utils.DeleteCache(state)

	// 2. 换 token
	return c.requestToken(ctx, map[string]string{
		"grant_type":    "authorization_code",
		"client_id":     c.config.ClientID,
		"redirect_uri":  c.config.CallbackURL,
		"code":          code,
		"code_verifier": verifier,
	})
}

// RefreshToken 刷新 token，Etsy 每次都轮换 refresh_token
func (c *EtsyConnector) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	return c.requestToken(ctx, map[string]string{
		"grant_type":    "refresh_token",
		"client_id":     c.config.ClientID,
		"refresh_token": refreshToken,
	})
}

func (c *EtsyConnector) requestToken(ctx context.Context, form map[string]string) (*TokenPair, error) {
	var result tokenResp

	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetFormData(form).
		SetResult(&result).
		Post(c.tokenURL())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenExchangeFailed, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: etsy 返回 %d", ErrTokenExchangeFailed, resp.StatusCode())
	}
	if result.AccessToken == "" {
		return nil, fmt.Errorf("%w: 响应缺少 access_token", ErrTokenExchangeFailed)
	}

	return &TokenPair{
		AccessToken:  result.AccessToken,
		RefreshToken: result.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Duration(result.ExpiresIn) * time.Second),
	}, nil
}

// tokenResp token 端点响应
type tokenResp struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int    `json:"expires_in"`
	Error        string `json:"error,omitempty"`
}
