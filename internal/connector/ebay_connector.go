package connector

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
)

// eBay OAuth 端点
const (
	ebayAuthorizeURL    = "https://auth.ebay.com/oauth2/authorize"
	defaultEbayTokenURL = "https://api.ebay.com/identity/v1/oauth2/token"
)

// ebayScopes 发布商品所需的权限集
const ebayScopes = "https://api.ebay.com/oauth/api_scope/sell.inventory"

// EbayConnectorConfig eBay OAuth 应用配置
type EbayConnectorConfig struct {
	ClientID     string
	ClientSecret string
	RuName       string // eBay 后台注册的 redirect_uri name
	TokenURL     string // 留空用官方端点
}

// EbayConnector eBay OAuth 2.0
// 与 Etsy 不同：不走 PKCE，token 端点用 client_id:client_secret Basic 认证
type EbayConnector struct {
	config *EbayConnectorConfig
	client *resty.Client
}

// NewEbayConnector 工厂方法
func NewEbayConnector(config *EbayConnectorConfig) *EbayConnector {
	return &EbayConnector{
		config: config,
		client: resty.New().SetTimeout(15 * time.Second),
	}
}

func (c *EbayConnector) MarketplaceName() string {
	return "ebay"
}

func (c *EbayConnector) tokenURL() string {
	if c.config.TokenURL != "" {
		return c.config.TokenURL
	}
	return defaultEbayTokenURL
}

// AuthorizationURL 生成带 state 的授权链接
func (c *EbayConnector) AuthorizationURL(state string) (string, error) {
	if c.config.ClientID == "" || c.config.ClientSecret == "" || c.config.RuName == "" {
		return "", ErrMissingConfiguration
	}

	q := url.Values{}
	q.Set("client_id", c.config.ClientID)
	q.Set("response_type", "code")
	q.Set("redirect_uri", c.config.RuName)
	q.Set("scope", ebayScopes)
	q.Set("state", state)

	return ebayAuthorizeURL + "?" + q.Encode(), nil
}

// ExchangeCode 回调 code 换 token
func (c *EbayConnector) ExchangeCode(ctx context.Context, code, state string) (*TokenPair, error) {
	return c.requestToken(ctx, map[string]string{
		"grant_type":   "authorization_code",
		"code":         code,
		"redirect_uri": c.config.RuName,
	})
}

// RefreshToken 刷新 token
// eBay 的 refresh_token 长期有效且不轮换，刷新响应里没有新的
func (c *EbayConnector) RefreshToken(ctx context.Context, refreshToken string) (*TokenPair, error) {
	pair, err := c.requestToken(ctx, map[string]string{
		"grant_type":    "refresh_token",
		"refresh_token": refreshToken,
		"scope":         ebayScopes,
	})
	if err != nil {
		return nil, err
	}
	if pair.RefreshToken == "" {
		pair.RefreshToken = refreshToken
	}
	return pair, nil
}

func (c *EbayConnector) requestToken(ctx context.Context, form map[string]string) (*TokenPair, error) {
	var result tokenResp

	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/x-www-form-urlencoded").
		SetBasicAuth(c.config.ClientID, c.config.ClientSecret).
		SetFormData(form).
		SetResult(&result).
		Post(c.tokenURL())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenExchangeFailed, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("%w: ebay 返回 %d", ErrTokenExchangeFailed, resp.StatusCode())
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
