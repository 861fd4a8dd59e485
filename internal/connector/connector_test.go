package connector

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"crosslist_v1_202608/pkg/utils"
)

func fakeTokenEndpoint(t *testing.T, check func(r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token":  "new-access",
			"refresh_token": "new-refresh",
			"expires_in":    3600,
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestEtsyAuthorizationURLCachesVerifier(t *testing.T) {
	c := NewEtsyConnector(&EtsyConnectorConfig{
		ClientID:    "etsy-key",
		CallbackURL: "https://example.com/api/oauth/etsy/callback",
	})

	authURL, err := c.AuthorizationURL("state-abc")
	if err != nil {
		t.Fatalf("AuthorizationURL: %v", err)
	}
	if !strings.HasPrefix(authURL, "https://www.etsy.com/oauth/connect?") {
		t.Errorf("authURL = %s", authURL)
	}
	for _, frag := range []string{"client_id=etsy-key", "state=state-abc", "code_challenge_method=S256", "code_challenge="} {
		if !strings.Contains(authURL, frag) {
			t.Errorf("authURL 缺少 %s: %s", frag, authURL)
		}
	}
	// verifier 必须已按 state 缓存，回调时要用
	if _, ok := utils.GetCache("state-abc"); !ok {
		t.Error("verifier 未缓存")
	}
	utils.DeleteCache("state-abc")
}

func TestEtsyExchangeCodeSendsVerifier(t *testing.T) {
	var gotVerifier, gotGrant string
	srv := fakeTokenEndpoint(t, func(r *http.Request) {
		r.ParseForm()
		gotVerifier = r.PostFormValue("code_verifier")
		gotGrant = r.PostFormValue("grant_type")
	})

	c := NewEtsyConnector(&EtsyConnectorConfig{
		ClientID:    "etsy-key",
		CallbackURL: "https://example.com/cb",
		TokenURL:    srv.URL,
	})
	if _, err := c.AuthorizationURL("state-x"); err != nil {
		t.Fatal(err)
	}

	pair, err := c.ExchangeCode(context.Background(), "code-1", "state-x")
	if err != nil {
		t.Fatalf("ExchangeCode: %v", err)
	}
	if pair.AccessToken != "new-access" || pair.RefreshToken != "new-refresh" {
		t.Errorf("pair = %+v", pair)
	}
	if pair.ExpiresAt.IsZero() {
		t.Error("ExpiresAt 未设置")
	}
	if gotGrant != "authorization_code" {
		t.Errorf("grant_type = %s", gotGrant)
	}
	if gotVerifier == "" {
		t.Error("code_verifier 未随请求发送")
	}

	// verifier 一次性使用，换完即删
	if _, ok := utils.GetCache("state-x"); ok {
		t.Error("verifier 用后应删除")
	}
}

func TestEtsyExchangeCodeUnknownState(t *testing.T) {
	c := NewEtsyConnector(&EtsyConnectorConfig{ClientID: "k", CallbackURL: "https://example.com/cb"})
	_, err := c.ExchangeCode(context.Background(), "code", "never-issued")
	if !errors.Is(err, ErrTokenExchangeFailed) {
		t.Errorf("未知 state 应失败, err = %v", err)
	}
}

func TestEtsyRefreshToken(t *testing.T) {
	var gotRefresh string
	srv := fakeTokenEndpoint(t, func(r *http.Request) {
		r.ParseForm()
		gotRefresh = r.PostFormValue("refresh_token")
	})

	c := NewEtsyConnector(&EtsyConnectorConfig{ClientID: "k", CallbackURL: "cb", TokenURL: srv.URL})
	pair, err := c.RefreshToken(context.Background(), "old-refresh")
	if err != nil {
		t.Fatalf("RefreshToken: %v", err)
	}
	if gotRefresh != "old-refresh" {
		t.Errorf("refresh_token = %s", gotRefresh)
	}
	if pair.RefreshToken != "new-refresh" {
		t.Error("etsy 轮换的新 refresh_token 应被带回")
	}
}

func TestEtsyMissingConfiguration(t *testing.T) {
	c := NewEtsyConnector(&EtsyConnectorConfig{})
	if _, err := c.AuthorizationURL("s"); !errors.Is(err, ErrMissingConfiguration) {
		t.Errorf("缺配置应报 ErrMissingConfiguration, got %v", err)
	}
}

func TestEbayAuthorizationURL(t *testing.T) {
	c := NewEbayConnector(&EbayConnectorConfig{
		ClientID:     "ebay-app",
		ClientSecret: "secret",
		RuName:       "Example-ru-name",
	})
	authURL, err := c.AuthorizationURL("state-1")
	if err != nil {
		t.Fatalf("AuthorizationURL: %v", err)
	}
	if !strings.HasPrefix(authURL, "https://auth.ebay.com/oauth2/authorize?") {
		t.Errorf("authURL = %s", authURL)
	}
	if !strings.Contains(authURL, "state=state-1") {
		t.Errorf("authURL 缺少 state: %s", authURL)
	}
}

func TestEbayExchangeUsesBasicAuth(t *testing.T) {
	var user, pass string
	var basicOK bool
	srv := fakeTokenEndpoint(t, func(r *http.Request) {
		user, pass, basicOK = r.BasicAuth()
	})

	c := NewEbayConnector(&EbayConnectorConfig{
		ClientID:     "ebay-app",
		ClientSecret: "secret",
		RuName:       "ru",
		TokenURL:     srv.URL,
	})
	if _, err := c.ExchangeCode(context.Background(), "code", "state"); err != nil {
		t.Fatalf("ExchangeCode: %v", err)
	}
	if !basicOK || user != "ebay-app" || pass != "secret" {
		t.Errorf("token 端点必须用 Basic 认证, got %s:%s ok=%v", user, pass, basicOK)
	}
}

func TestEbayRefreshKeepsOldRefreshToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// eBay 刷新响应不带新 refresh_token
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "fresh-access",
			"expires_in":   7200,
		})
	}))
	defer srv.Close()

	c := NewEbayConnector(&EbayConnectorConfig{
		ClientID: "app", ClientSecret: "s", RuName: "ru", TokenURL: srv.URL,
	})
	pair, err := c.RefreshToken(context.Background(), "long-lived-refresh")
	if err != nil {
		t.Fatalf("RefreshToken: %v", err)
	}
	if pair.AccessToken != "fresh-access" {
		t.Errorf("AccessToken = %s", pair.AccessToken)
	}
	if pair.RefreshToken != "long-lived-refresh" {
		t.Error("刷新后应保留原 refresh_token")
	}
}

func TestEbayTokenEndpointRejects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "invalid_grant"})
	}))
	defer srv.Close()

	c := NewEbayConnector(&EbayConnectorConfig{
		ClientID: "app", ClientSecret: "s", RuName: "ru", TokenURL: srv.URL,
	})
	_, err := c.RefreshToken(context.Background(), "revoked")
	if !errors.Is(err, ErrTokenExchangeFailed) {
		t.Errorf("端点拒绝应报 ErrTokenExchangeFailed, got %v", err)
	}
}
