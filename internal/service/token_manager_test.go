package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"crosslist_v1_202608/internal/adapter"
	"crosslist_v1_202608/internal/connector"
	"crosslist_v1_202608/internal/model"
	"crosslist_v1_202608/pkg/vault"
)

// 执行前发现过期先刷新，且整次调用最多刷新一次
func TestTokenManagerRefreshesExpiredOnce(t *testing.T) {
	env := newTestEnv(t)
	conn := &mockConnector{name: "etsy"}
	env.tokens.RegisterConnector(conn)

	account := seedOAuthAccount(t, env.db, env.vault, 1, "etsy", time.Now().Add(-time.Hour))

	var seenTokens []string
	err := env.tokens.Do(context.Background(), account, func(cred *adapter.Credential) error {
		seenTokens = append(seenTokens, cred.AccessToken)
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if conn.refreshCalls != 1 {
		t.Fatalf("刷新次数 = %d, want 1", conn.refreshCalls)
	}
	if len(seenTokens) != 1 || seenTokens[0] != "refreshed-access" {
		t.Errorf("业务动作应拿到刷新后的明文 token, got %v", seenTokens)
	}

	// 新 token 必须加密落库，且数据库里不出现明文
	var fresh model.MarketplaceAccount
	env.db.First(&fresh, account.ID)
	if fresh.AccessToken == "refreshed-access" || fresh.AccessToken == "" {
		t.Errorf("落库 token 必须是密文, got %q", fresh.AccessToken)
	}
	plain, derr := env.vault.Decrypt(fresh.AccessToken)
	if derr != nil || plain != "refreshed-access" {
		t.Errorf("密文应能解出新 token, got %q err %v", plain, derr)
	}
	if fresh.TokenExpiresAt == nil || !fresh.TokenExpiresAt.After(time.Now()) {
		t.Error("过期时间应更新到未来")
	}
}

// token 未过期不触发刷新
func TestTokenManagerSkipsValidToken(t *testing.T) {
	env := newTestEnv(t)
	conn := &mockConnector{name: "etsy"}
	env.tokens.RegisterConnector(conn)

	account := seedOAuthAccount(t, env.db, env.vault, 1, "etsy", time.Now().Add(time.Hour))

	err := env.tokens.Do(context.Background(), account, func(cred *adapter.Credential) error {
		if cred.AccessToken != "plain-access-token" {
			t.Errorf("应拿到原 token, got %s", cred.AccessToken)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if conn.refreshCalls != 0 {
		t.Errorf("未过期不应刷新, calls = %d", conn.refreshCalls)
	}
}

// 业务动作 401：刷新一次并重试一次，再失败就放弃
func TestTokenManagerRetriesOnceOn401(t *testing.T) {
	env := newTestEnv(t)
	conn := &mockConnector{name: "etsy"}
	env.tokens.RegisterConnector(conn)

	account := seedOAuthAccount(t, env.db, env.vault, 1, "etsy", time.Now().Add(time.Hour))

	attempts := 0
	err := env.tokens.Do(context.Background(), account, func(cred *adapter.Credential) error {
		attempts++
		if attempts == 1 {
			return adapter.StatusError("publish_offer", 401, "token expired")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("刷新后重试应成功: %v", err)
	}
	if attempts != 2 {
		t.Errorf("执行次数 = %d, want 2", attempts)
	}
	if conn.refreshCalls != 1 {
		t.Errorf("刷新次数 = %d, want 1", conn.refreshCalls)
	}

	// 重试仍 401 不再继续
	attempts = 0
	conn.refreshCalls = 0
	err = env.tokens.Do(context.Background(), account, func(cred *adapter.Credential) error {
		attempts++
		return adapter.StatusError("publish_offer", 401, "still expired")
	})
	if err == nil {
		t.Fatal("重试后仍 401 应失败")
	}
	if attempts != 2 || conn.refreshCalls != 1 {
		t.Errorf("attempts = %d refreshes = %d, want 2/1", attempts, conn.refreshCalls)
	}
}

// 非 401 错误不触发刷新重试
func TestTokenManagerNoRetryOnOtherErrors(t *testing.T) {
	env := newTestEnv(t)
	conn := &mockConnector{name: "etsy"}
	env.tokens.RegisterConnector(conn)

	account := seedOAuthAccount(t, env.db, env.vault, 1, "etsy", time.Now().Add(time.Hour))

	attempts := 0
	err := env.tokens.Do(context.Background(), account, func(cred *adapter.Credential) error {
		attempts++
		return adapter.StatusError("create_offer", 400, "bad category")
	})
	if err == nil {
		t.Fatal("应透传业务错误")
	}
	if attempts != 1 || conn.refreshCalls != 0 {
		t.Errorf("attempts = %d refreshes = %d, want 1/0", attempts, conn.refreshCalls)
	}
}

// 刷新被提供方拒绝：账号停用 + CREDENTIAL_EXPIRED
func TestTokenManagerRefreshDeniedDeactivates(t *testing.T) {
	env := newTestEnv(t)
	conn := &mockConnector{
		name: "etsy",
		refreshFunc: func(refreshToken string) (*connector.TokenPair, error) {
			return nil, errors.New("invalid_grant")
		},
	}
	env.tokens.RegisterConnector(conn)

	account := seedOAuthAccount(t, env.db, env.vault, 1, "etsy", time.Now().Add(-time.Hour))

	err := env.tokens.Do(context.Background(), account, func(cred *adapter.Credential) error {
		t.Fatal("刷新失败不应执行业务动作")
		return nil
	})
	if adapter.CodeOf(err) != adapter.CodeCredentialExpired {
		t.Errorf("CodeOf = %s", adapter.CodeOf(err))
	}

	var fresh model.MarketplaceAccount
	env.db.First(&fresh, account.ID)
	if fresh.IsActive {
		t.Error("刷新被拒后账号应停用")
	}
}

// 主密钥不匹配：归为 VAULT_ERROR
func TestTokenManagerVaultMismatch(t *testing.T) {
	env := newTestEnv(t)
	account := seedOAuthAccount(t, env.db, env.vault, 1, "etsy", time.Now().Add(time.Hour))

	// 换一把主密钥的 manager，解不开已有密文
	otherVault, verr := vault.New("a-different-master-secret")
	if verr != nil {
		t.Fatalf("构造 vault 失败: %v", verr)
	}
	manager := NewTokenLifecycleManager(env.accountRepo, otherVault)

	err := manager.Do(context.Background(), account, func(cred *adapter.Credential) error {
		t.Fatal("解密失败不应执行业务动作")
		return nil
	})
	if adapter.CodeOf(err) != adapter.CodeVaultError {
		t.Errorf("CodeOf = %s", adapter.CodeOf(err))
	}
}

// 密码类账号没有 token，Do 只做解密透传
func TestTokenManagerPasswordAccount(t *testing.T) {
	env := newTestEnv(t)
	account := seedPasswordAccount(t, env.db, env.vault, 1, "craigslist")

	err := env.tokens.Do(context.Background(), account, func(cred *adapter.Credential) error {
		if cred.Password != "hunter2" {
			t.Errorf("Password = %q", cred.Password)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
}
