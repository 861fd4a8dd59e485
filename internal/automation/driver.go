package automation

import "context"

// PageDriver 浏览器页面操作抽象
// 状态机只依赖这组动作，不接触任何 chromedp 细节，测试用 mock 驱动
type PageDriver interface {
	// Navigate 跳转到指定 URL 并等待页面加载完成
	Navigate(ctx context.Context, url string) error
	// WaitVisible 等待元素可见，超时返回错误
	WaitVisible(ctx context.Context, selector string) error
	// Exists 检查元素是否存在，不等待
	Exists(ctx context.Context, selector string) (bool, error)
	// Fill 清空并填入文本
	Fill(ctx context.Context, selector, value string) error
	// Click 点击元素
	Click(ctx context.Context, selector string) error
	// Text 读取元素文本
	Text(ctx context.Context, selector string) (string, error)
	// CurrentURL 当前页面地址
	CurrentURL(ctx context.Context) (string, error)
	// Close 释放浏览器会话
	Close() error
}

// SessionProvider 按需创建浏览器会话
// 每次发布一个独立会话，互不串 cookie
type SessionProvider interface {
	Acquire(ctx context.Context) (PageDriver, error)
	// Available 快速探测后端是否存在，不实际起浏览器
	Available(ctx context.Context) bool
}
