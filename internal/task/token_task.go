package task

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"crosslist_v1_202608/internal/model"
	"crosslist_v1_202608/internal/repository"
	"crosslist_v1_202608/internal/service"
)

// Token 剩余有效期低于 1 小时即进入本轮刷新
const refreshWindowSeconds = int64(3600)

// TokenTask OAuth Token 保活任务
// 周期扫描临期 Token 提前刷新，尽量让发布请求永远不撞上过期 Token
type TokenTask struct {
	AccountRepo  repository.AccountRepository
	TokenManager *service.TokenLifecycleManager
	Cron         *cron.Cron

	// 控制并发刷新的数量，防止对提供方打出突刺
	concurrencyLimit int
	sleepTime        time.Duration
}

// NewTokenTask 工厂方法
func NewTokenTask(accountRepo repository.AccountRepository, tokenManager *service.TokenLifecycleManager) *TokenTask {
	return &TokenTask{
		AccountRepo:      accountRepo,
		TokenManager:     tokenManager,
		Cron:             cron.New(cron.WithSeconds()), // 支持秒级控制
		concurrencyLimit: 10,
		sleepTime:        50 * time.Millisecond, // 每个协程启动间隔，平滑波峰
	}
}

// Start 启动定时任务
func (t *TokenTask) Start() {
	// 首次执行：服务可能停了很久，先把过期的都补上
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		log.Println("[Task] 服务启动，正在执行首次 Token 检查...")
		t.refreshJob(ctx)
	}()

	_, err := t.Cron.AddFunc("0 0/40 * * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		t.refreshJob(ctx)
	})
	if err != nil {
		log.Fatalf("无法启动 Token 定时任务: %v", err)
	}

	t.Cron.Start()
	log.Println("Token 保活任务已启动 (每40分钟检查一次)")
}

// Stop 停止定时任务
func (t *TokenTask) Stop() {
	t.Cron.Stop()
}

// refreshJob 扫描临期账号并发刷新
func (t *TokenTask) refreshJob(ctx context.Context) {
	accounts, err := t.AccountRepo.FindExpiringTokens(ctx, refreshWindowSeconds)
	if err != nil {
		log.Printf("[Cron] 临期 Token 查询失败: %v", err)
		return
	}
	if len(accounts) == 0 {
		return
	}

	// 1. 信号量限流
	sem := make(chan struct{}, t.concurrencyLimit)
	var wg sync.WaitGroup

	log.Printf("[Cron] 开始刷新 %d 个账号的 Token，并发上限: %d", len(accounts), t.concurrencyLimit)

	for _, account := range accounts {
		select {
		case <-ctx.Done():
			log.Println("[Cron] 任务超时停止")
			return
		default:
		}

		// 2. 获取信号量（满则阻塞，起到限流作用）
		sem <- struct{}{}
		wg.Add(1)

		// 3. 平滑波峰
		time.Sleep(t.sleepTime)

		go func(a model.MarketplaceAccount) {
			defer wg.Done()
			defer func() { <-sem }()

			if err := t.TokenManager.RefreshAccount(ctx, &a); err != nil {
				// 日志仅记录，不中断其他协程
				log.Printf("[Cron] 账号刷新失败 user=%d market=%s: %v", a.UserID, a.MarketplaceName, err)
			}
		}(account)
	}

	wg.Wait()
	log.Println("[Cron] 本轮 Token 刷新任务完成")
}
