package adapter

import (
	"errors"
	"fmt"
	"net/http"
)

// 发布失败错误码
// 编排层把这些码原样放进 PublishResult，前端据此决定恢复动作
const (
	CodeCredentialMissing     = "CREDENTIAL_MISSING"     // 未连接该市场，引导用户连接
	CodeCredentialExpired     = "CREDENTIAL_EXPIRED"     // 刷新失败，引导用户重新授权
	CodeProviderRejected      = "PROVIDER_REJECTED"      // 4xx，数据/政策问题，重试无意义
	CodeProviderUnavailable   = "PROVIDER_UNAVAILABLE"   // 5xx/超时，稍后重试
	CodeAutomationUnavailable = "AUTOMATION_UNAVAILABLE" // 没有可用的浏览器后端
	CodeAutomationStepFailed  = "AUTOMATION_STEP_FAILED" // 页面元素/导航未按预期出现
	CodeVaultError            = "VAULT_ERROR"            // 凭证损坏或主密钥不匹配
	CodeListingNotFound       = "LISTING_NOT_FOUND"      // 商品不存在 (批次级错误)
	CodeInternal              = "INTERNAL"               // 兜底
)

// PublishError 发布流程统一错误
// Step 记录流水线中出错的环节，多步 API 管线和浏览器状态机都用它定位
type PublishError struct {
	Code       string
	Step       string
	Message    string
	StatusCode int // 提供方返回的 HTTP 状态码，非 HTTP 场景为 0
	Err        error
}

func (e *PublishError) Error() string {
	if e.Step != "" {
		return fmt.Sprintf("[%s] %s: %s", e.Code, e.Step, e.Message)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}

// NewError 构造 PublishError
func NewError(code, step, message string) *PublishError {
	return &PublishError{Code: code, Step: step, Message: message}
}

// WrapError 包装底层错误
func WrapError(code, step string, err error) *PublishError {
	return &PublishError{Code: code, Step: step, Message: err.Error(), Err: err}
}

// CodeOf 取出错误码，非 PublishError 时归为 INTERNAL
func CodeOf(err error) string {
	var pe *PublishError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return CodeInternal
}

// StepOf 取出出错环节
func StepOf(err error) string {
	var pe *PublishError
	if errors.As(err, &pe) {
		return pe.Step
	}
	return ""
}

// IsUnauthorized 提供方返回 401，Token 可能刚好过期
func IsUnauthorized(err error) bool {
	var pe *PublishError
	return errors.As(err, &pe) && pe.StatusCode == http.StatusUnauthorized
}

// ClassifyStatus 按提供方 HTTP 状态码归类错误码
// 4xx 是数据/政策问题不重试，5xx 和超时可以稍后再试
func ClassifyStatus(status int) string {
	switch {
	case status >= 400 && status < 500:
		return CodeProviderRejected
	case status >= 500:
		return CodeProviderUnavailable
	default:
		return CodeProviderUnavailable
	}
}

// StatusError 由 HTTP 状态码构造提供方错误
func StatusError(step string, status int, body string) *PublishError {
	return &PublishError{
		Code:       ClassifyStatus(status),
		Step:       step,
		Message:    fmt.Sprintf("provider returned %d: %s", status, truncate(body, 300)),
		StatusCode: status,
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
