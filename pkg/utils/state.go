package utils

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// OAuthState 授权回调关联参数
// 回调端点无法鉴权，只能靠 state 把请求对应回发起授权的用户
// 注意：当前编码可逆且未签名，能猜到/截获 state 的一方可以伪造回调
// TODO: 改成 HMAC 签名 + 一次性使用 + 短 TTL
type OAuthState struct {
	UserID    int64  `json:"user_id"`
	Timestamp int64  `json:"ts"`
	Nonce     string `json:"nonce"`
}

// NewOAuthState 为用户生成一个新的 state
func NewOAuthState(userID int64) *OAuthState {
	return &OAuthState{
		UserID:    userID,
		Timestamp: time.Now().Unix(),
		Nonce:     uuid.NewString(),
	}
}

// Encode 编码为 URL 安全的不透明字符串
func (s *OAuthState) Encode() string {
	raw, _ := json.Marshal(s)
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeOAuthState 还原 state，格式非法时报错
func DecodeOAuthState(encoded string) (*OAuthState, error) {
	raw, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("state 格式非法: %v", err)
	}

	var state OAuthState
	if err := json.Unmarshal(raw, &state); err != nil {
		return nil, fmt.Errorf("state 解析失败: %v", err)
	}

	if state.UserID <= 0 {
		return nil, fmt.Errorf("state 缺少 user_id")
	}

	return &state, nil
}
