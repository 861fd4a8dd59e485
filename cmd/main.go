package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"crosslist_v1_202608/internal/adapter"
	"crosslist_v1_202608/internal/automation"
	"crosslist_v1_202608/internal/connector"
	"crosslist_v1_202608/internal/controller"
	"crosslist_v1_202608/internal/middleware"
	"crosslist_v1_202608/internal/model"
	"crosslist_v1_202608/internal/repository"
	"crosslist_v1_202608/internal/router"
	"crosslist_v1_202608/internal/service"
	"crosslist_v1_202608/internal/task"
	"crosslist_v1_202608/pkg/database"
	"crosslist_v1_202608/pkg/vault"
)

func main() {
	// 1. 初始化数据库
	db := initDatabase()

	// 2. 初始化依赖
	deps := initDependencies(db)

	// 3. 启动定时任务
	initTasks(deps)

	// 4. 初始化路由
	r := router.SetupRouter(deps.Controllers)

	// 5. 启动服务
	startServer(r)
}

// ==================== 依赖容器 ====================

// Dependencies 依赖容器
type Dependencies struct {
	DB          *gorm.DB
	Repos       *Repositories
	Registry    *adapter.Registry
	Controllers *router.Controllers
	Services    *Services
}

// Repositories 仓库集合
type Repositories struct {
	Account repository.AccountRepository
	Listing repository.ListingRepository
}

// Services 服务集合
type Services struct {
	Tokens       *service.TokenLifecycleManager
	OAuth        *service.OAuthService
	Account      *service.AccountService
	Orchestrator *service.PublishOrchestrator
}

// ==================== 初始化函数 ====================

// initDatabase 初始化数据库
func initDatabase() *gorm.DB {
	return database.InitDB(
		getEnv("DATABASE_DSN", ""),
		&model.MarketplaceAccount{},
		&model.Listing{},
		&model.ListingMarketplaceStatus{},
	)
}

// initDependencies 初始化所有依赖
func initDependencies(db *gorm.DB) *Dependencies {
	// -------- JWT --------
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		cfg := middleware.DefaultJWTConfig()
		cfg.SecretKey = secret
		middleware.SetJWTConfig(cfg)
	}

	// -------- Repo 层 --------
	repos := &Repositories{
		Account: repository.NewAccountRepository(db),
		Listing: repository.NewListingRepository(db),
	}

	// -------- 凭证保险库 --------
	credVault, err := vault.New(getEnv("CRED_VAULT_KEY", ""))
	if err != nil {
		log.Fatalf("凭证保险库初始化失败 (检查 CRED_VAULT_KEY): %v", err)
	}

	// -------- OAuth 连接器 --------
	etsyConn := connector.NewEtsyConnector(&connector.EtsyConnectorConfig{
		ClientID:    getEnv("ETSY_CLIENT_ID", ""),
		CallbackURL: getEnv("ETSY_CALLBACK_URL", "http://localhost:8080/api/oauth/etsy/callback"),
	})
	ebayConn := connector.NewEbayConnector(&connector.EbayConnectorConfig{
		ClientID:     getEnv("EBAY_CLIENT_ID", ""),
		ClientSecret: getEnv("EBAY_CLIENT_SECRET", ""),
		RuName:       getEnv("EBAY_RU_NAME", ""),
	})

	// -------- 业务服务 --------
	services := &Services{}
	services.Tokens = service.NewTokenLifecycleManager(repos.Account, credVault)
	services.Tokens.RegisterConnector(etsyConn)
	services.Tokens.RegisterConnector(ebayConn)

	services.OAuth = service.NewOAuthService(repos.Account, credVault, nil)
	services.OAuth.RegisterConnector(etsyConn)
	services.OAuth.RegisterConnector(ebayConn)

	// -------- Adapter 注册表 --------
	registry := initRegistry()

	services.Account = service.NewAccountService(repos.Account, registry, credVault, services.OAuth, nil)
	services.Orchestrator = service.NewPublishOrchestrator(
		registry, repos.Account, repos.Listing, services.Tokens, services.OAuth)

	// -------- Controller 层 --------
	controllers := &router.Controllers{
		Account: controller.NewAccountController(services.Account),
		OAuth:   controller.NewOAuthController(services.OAuth),
		Publish: controller.NewPublishController(services.Orchestrator),
	}

	return &Dependencies{
		DB:          db,
		Repos:       repos,
		Registry:    registry,
		Controllers: controllers,
		Services:    services,
	}
}

// initRegistry 注册全部市场
// 新增市场只需要在这里挂一个 Entry
func initRegistry() *adapter.Registry {
	registry := adapter.NewRegistry()

	ebayConfig := &adapter.EbayConfig{
		BaseURL:             getEnv("EBAY_API_URL", "https://api.ebay.com"),
		MarketplaceID:       getEnv("EBAY_MARKETPLACE_ID", "EBAY_US"),
		FulfillmentPolicyID: getEnv("EBAY_FULFILLMENT_POLICY_ID", ""),
		PaymentPolicyID:     getEnv("EBAY_PAYMENT_POLICY_ID", ""),
		ReturnPolicyID:      getEnv("EBAY_RETURN_POLICY_ID", ""),
		MerchantLocationKey: getEnv("EBAY_MERCHANT_LOCATION_KEY", ""),
	}
	registry.Register(model.MarketplaceEbay, adapter.Entry{
		Kind:         adapter.KindAPI,
		OAuthCapable: true,
		Factory: func(cred *adapter.Credential) adapter.MarketplaceAdapter {
			return adapter.NewEbayAdapter(ebayConfig, cred)
		},
	})

	etsyConfig := &adapter.EtsyConfig{
		BaseURL: getEnv("ETSY_API_URL", "https://openapi.etsy.com"),
		APIKey:  getEnv("ETSY_CLIENT_ID", ""),
	}
	registry.Register(model.MarketplaceEtsy, adapter.Entry{
		Kind:         adapter.KindAPI,
		OAuthCapable: true,
		Factory: func(cred *adapter.Credential) adapter.MarketplaceAdapter {
			return adapter.NewEtsyAdapter(etsyConfig, cred)
		},
	})

	sessions := automation.NewChromeSessionProvider(&automation.ChromeConfig{
		RemoteURL: getEnv("CHROME_REMOTE_URL", ""),
		Headless:  getEnv("CHROME_HEADLESS", "true") == "true",
		NoSandbox: getEnv("CHROME_NO_SANDBOX", "true") == "true",
	})
	registry.Register(model.MarketplaceCraigslist, adapter.Entry{
		Kind: adapter.KindAutomation,
		Factory: func(cred *adapter.Credential) adapter.MarketplaceAdapter {
			return automation.NewCraigslistAdapter(sessions, cred)
		},
	})

	registry.Register(model.MarketplaceFacebook, adapter.Entry{
		Kind: adapter.KindAssistedCopy,
		Factory: func(cred *adapter.Credential) adapter.MarketplaceAdapter {
			return adapter.NewFacebookCopyAdapter(cred)
		},
	})

	log.Printf("已注册市场: %v", registry.Names())
	return registry
}

// ==================== 定时任务 ====================

// initTasks 初始化定时任务
func initTasks(deps *Dependencies) {
	// Token 保活
	tokenTask := task.NewTokenTask(deps.Repos.Account, deps.Services.Tokens)
	tokenTask.Start()

	// 连接健康巡检
	syncTask := task.NewSyncTask(deps.Repos.Account, deps.Services.Tokens, deps.Registry)
	syncTask.Start()

	log.Println("定时任务已启动")
}

// ==================== 服务启动 ====================

// startServer 启动服务
func startServer(r *gin.Engine) {
	port := getEnv("SERVER_PORT", "8080")

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	// 异步启动服务
	go func() {
		log.Printf("服务启动在 :%s", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("服务启动失败: %v", err)
		}
	}()

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("正在关闭服务...")

	// 优雅关闭
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("服务强制关闭: %v", err)
	}

	log.Println("服务已退出")
}

// ==================== 工具函数 ====================

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
