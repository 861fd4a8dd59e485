package task

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"crosslist_v1_202608/internal/adapter"
	"crosslist_v1_202608/internal/model"
	"crosslist_v1_202608/internal/repository"
	"crosslist_v1_202608/internal/service"
)

// SyncTask 连接健康巡检
// 对开启自动同步的账号周期探测市场可用性：
// 凭证解不开、Token 刷不动的账号在这里提前暴露，而不是等到用户发布时才发现
type SyncTask struct {
	AccountRepo  repository.AccountRepository
	TokenManager *service.TokenLifecycleManager
	Registry     *adapter.Registry
	Cron         *cron.Cron

	concurrencyLimit int
}

// NewSyncTask 工厂方法
func NewSyncTask(accountRepo repository.AccountRepository, tokenManager *service.TokenLifecycleManager,
	registry *adapter.Registry) *SyncTask {
	return &SyncTask{
		AccountRepo:      accountRepo,
		TokenManager:     tokenManager,
		Registry:         registry,
		Cron:             cron.New(cron.WithSeconds()),
		concurrencyLimit: 5,
	}
}

// Start 启动巡检 (每小时)
func (t *SyncTask) Start() {
	_, err := t.Cron.AddFunc("0 10 * * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		t.CheckOnce(ctx)
	})
	if err != nil {
		log.Fatalf("无法启动连接巡检任务: %v", err)
	}

	t.Cron.Start()
	log.Println("连接健康巡检任务已启动 (每小时)")
}

// Stop 停止巡检
func (t *SyncTask) Stop() {
	t.Cron.Stop()
}

// CheckOnce 执行一轮巡检
func (t *SyncTask) CheckOnce(ctx context.Context) {
	accounts, err := t.AccountRepo.FindAutoSync(ctx)
	if err != nil {
		log.Printf("[Sync] 自动同步账号查询失败: %v", err)
		return
	}
	if len(accounts) == 0 {
		return
	}

	sem := make(chan struct{}, t.concurrencyLimit)
	var wg sync.WaitGroup

	for _, account := range accounts {
		select {
		case <-ctx.Done():
			return
		default:
		}

		sem <- struct{}{}
		wg.Add(1)

		go func(a model.MarketplaceAccount) {
			defer wg.Done()
			defer func() { <-sem }()
			t.checkAccount(ctx, &a)
		}(account)
	}

	wg.Wait()
}

// checkAccount 探测单个账号的凭证与市场可用性
func (t *SyncTask) checkAccount(ctx context.Context, account *model.MarketplaceAccount) {
	entry, ok := t.Registry.Resolve(account.MarketplaceName)
	if !ok {
		log.Printf("[Sync] 账号指向未注册的市场 user=%d market=%s", account.UserID, account.MarketplaceName)
		return
	}

	err := t.TokenManager.Do(ctx, account, func(cred *adapter.Credential) error {
		if !entry.Factory(cred).IsAvailable(ctx) {
			log.Printf("[Sync] 市场当前不可用 user=%d market=%s", account.UserID, account.MarketplaceName)
		}
		return nil
	})
	if err != nil {
		// Do 内部已处理停用逻辑，这里只记录
		log.Printf("[Sync] 账号巡检失败 user=%d market=%s: %v", account.UserID, account.MarketplaceName, err)
	}
}
