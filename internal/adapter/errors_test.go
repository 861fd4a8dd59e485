package adapter

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassifyStatus(t *testing.T) {
	cases := []struct {
		status int
		want   string
	}{
		{400, CodeProviderRejected},
		{401, CodeProviderRejected},
		{422, CodeProviderRejected},
		{500, CodeProviderUnavailable},
		{503, CodeProviderUnavailable},
		{0, CodeProviderUnavailable}, // 超时/网络错误没有状态码
	}
	for _, c := range cases {
		if got := ClassifyStatus(c.status); got != c.want {
			t.Errorf("ClassifyStatus(%d) = %s, want %s", c.status, got, c.want)
		}
	}
}

func TestCodeOfAndStepOf(t *testing.T) {
	err := NewError(CodeProviderRejected, "create_offer", "类目无效")
	if CodeOf(err) != CodeProviderRejected {
		t.Errorf("CodeOf = %s", CodeOf(err))
	}
	if StepOf(err) != "create_offer" {
		t.Errorf("StepOf = %s", StepOf(err))
	}

	// 包一层后仍能取出
	wrapped := fmt.Errorf("发布失败: %w", err)
	if CodeOf(wrapped) != CodeProviderRejected {
		t.Errorf("包装后 CodeOf = %s", CodeOf(wrapped))
	}

	// 普通错误归为 INTERNAL
	if CodeOf(errors.New("boom")) != CodeInternal {
		t.Errorf("普通错误应归为 INTERNAL")
	}
}

func TestIsUnauthorized(t *testing.T) {
	if !IsUnauthorized(StatusError("publish_offer", 401, "token expired")) {
		t.Error("401 应判定为 unauthorized")
	}
	if IsUnauthorized(StatusError("publish_offer", 403, "forbidden")) {
		t.Error("403 不应判定为 unauthorized")
	}
	if IsUnauthorized(errors.New("boom")) {
		t.Error("普通错误不应判定为 unauthorized")
	}
}

func TestStatusErrorTruncatesBody(t *testing.T) {
	long := make([]byte, 1000)
	for i := range long {
		long[i] = 'x'
	}
	err := StatusError("create_listing", 500, string(long))
	if len(err.Message) > 400 {
		t.Errorf("响应体应被截断, len = %d", len(err.Message))
	}
	if err.StatusCode != 500 {
		t.Errorf("StatusCode = %d", err.StatusCode)
	}
}
