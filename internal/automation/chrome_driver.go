package automation

import (
	"context"
	"log"
	"os/exec"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"
)

const defaultStepTimeout = 10 * time.Second

// ChromeConfig 浏览器后端配置
type ChromeConfig struct {
	// RemoteURL 远程 Chrome 实例地址 (ws://...)，留空则本机拉起
	RemoteURL string
	// Headless 无头模式，服务器环境默认开
	Headless bool
	// NoSandbox Docker/root 下运行必须开
	NoSandbox bool
	// StepTimeout 单步操作超时
	StepTimeout time.Duration
}

// DefaultChromeConfig 服务器环境默认配置
func DefaultChromeConfig() *ChromeConfig {
	return &ChromeConfig{
		Headless:    true,
		NoSandbox:   true,
		StepTimeout: defaultStepTimeout,
	}
}

// ChromeSessionProvider 基于 chromedp 的会话提供者
// 优先连远程实例，连不上或没配置远程地址时本机 exec 拉起
type ChromeSessionProvider struct {
	config *ChromeConfig

	// 测试替换点
	attachRemote func(ctx context.Context) (PageDriver, error)
	launchLocal  func(ctx context.Context) (PageDriver, error)
}

// NewChromeSessionProvider 创建会话提供者
func NewChromeSessionProvider(config *ChromeConfig) *ChromeSessionProvider {
	if config == nil {
		config = DefaultChromeConfig()
	}
	if config.StepTimeout == 0 {
		config.StepTimeout = defaultStepTimeout
	}
	p := &ChromeSessionProvider{config: config}
	p.attachRemote = p.remoteDriver
	p.launchLocal = p.localDriver
	return p
}

// Available 配置了远程地址或本机装了 Chrome 即认为可用
func (p *ChromeSessionProvider) Available(ctx context.Context) bool {
	if p.config.RemoteURL != "" {
		return true
	}
	for _, bin := range []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser"} {
		if _, err := exec.LookPath(bin); err == nil {
			return true
		}
	}
	return false
}

// Acquire 创建一个新的浏览器会话
// 远程实例连不上不算终局失败：降级为本机拉起再试一次
func (p *ChromeSessionProvider) Acquire(ctx context.Context) (PageDriver, error) {
	// 1. 有远程实例先连远程
	if p.config.RemoteURL != "" {
		log.Printf("[Chrome] 连接远程浏览器: %s", p.config.RemoteURL)
		driver, err := p.attachRemote(ctx)
		if err == nil {
			return driver, nil
		}
		// 2. 远程不可达，降级本机拉起
		log.Printf("[Chrome] 远程浏览器连接失败，降级本机拉起: %v", err)
	}

	return p.launchLocal(ctx)
}

// remoteDriver 连接已存在的远程浏览器实例
func (p *ChromeSessionProvider) remoteDriver(ctx context.Context) (PageDriver, error) {
	allocCtx, allocCancel := chromedp.NewRemoteAllocator(context.Background(), p.config.RemoteURL)
	return p.verify(allocCtx, allocCancel)
}

// localDriver 本机 exec 拉起一个浏览器进程
func (p *ChromeSessionProvider) localDriver(ctx context.Context) (PageDriver, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", p.config.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-dev-shm-usage", true), // Docker 下必须
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-sync", true),
	)
	if p.config.NoSandbox {
		opts = append(opts, chromedp.Flag("no-sandbox", true))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	return p.verify(allocCtx, allocCancel)
}

// verify 起一个空页面验证浏览器真的能用
func (p *ChromeSessionProvider) verify(allocCtx context.Context, allocCancel context.CancelFunc) (PageDriver, error) {
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	startCtx, cancel := context.WithTimeout(browserCtx, 15*time.Second)
	defer cancel()
	if err := chromedp.Run(startCtx, chromedp.Navigate("about:blank")); err != nil {
		browserCancel()
		allocCancel()
		return nil, err
	}

	return &chromeDriver{
		browserCtx:  browserCtx,
		cancels:     []context.CancelFunc{browserCancel, allocCancel},
		stepTimeout: p.config.StepTimeout,
	}, nil
}

// chromeDriver 一次发布会话里的页面驱动
type chromeDriver struct {
	browserCtx  context.Context
	cancels     []context.CancelFunc
	stepTimeout time.Duration
}

// run 在有界超时内执行一组动作
func (d *chromeDriver) run(ctx context.Context, actions ...chromedp.Action) error {
	stepCtx, cancel := context.WithTimeout(d.browserCtx, d.stepTimeout)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- chromedp.Run(stepCtx, actions...) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		cancel()
		<-done
		return ctx.Err()
	}
}

func (d *chromeDriver) Navigate(ctx context.Context, url string) error {
	return d.run(ctx, chromedp.Navigate(url))
}

func (d *chromeDriver) WaitVisible(ctx context.Context, selector string) error {
	return d.run(ctx, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

func (d *chromeDriver) Exists(ctx context.Context, selector string) (bool, error) {
	var nodes []*cdp.Node
	err := d.run(ctx, chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0)))
	if err != nil {
		return false, err
	}
	return len(nodes) > 0, nil
}

func (d *chromeDriver) Fill(ctx context.Context, selector, value string) error {
	return d.run(ctx,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Clear(selector, chromedp.ByQuery),
		chromedp.SendKeys(selector, value, chromedp.ByQuery),
	)
}

func (d *chromeDriver) Click(ctx context.Context, selector string) error {
	return d.run(ctx,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery),
	)
}

func (d *chromeDriver) Text(ctx context.Context, selector string) (string, error) {
	var text string
	err := d.run(ctx, chromedp.Text(selector, &text, chromedp.ByQuery))
	return text, err
}

func (d *chromeDriver) CurrentURL(ctx context.Context) (string, error) {
	var url string
	err := d.run(ctx, chromedp.Location(&url))
	return url, err
}

// Close 释放会话和浏览器进程
func (d *chromeDriver) Close() error {
	for _, cancel := range d.cancels {
		cancel()
	}
	return nil
}
