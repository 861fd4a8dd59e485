package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"crosslist_v1_202608/internal/controller"
	"crosslist_v1_202608/internal/middleware"
)

// Controllers 控制器集合
type Controllers struct {
	Account *controller.AccountController
	OAuth   *controller.OAuthController
	Publish *controller.PublishController
}

// SetupRouter 注册所有路由
func SetupRouter(ctls *Controllers) *gin.Engine {
	r := gin.Default()

	// 1. Swagger 文档路由
	// 访问 http://localhost:8080/swagger/index.html 即可查看
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 2. OAuth 回调不能要求登录：请求来自提供方重定向，用户身份在 state 里
	callback := r.Group("/api/oauth")
	{
		// GET /api/oauth/:marketplace/callback
		callback.GET("/:marketplace/callback", ctls.OAuth.Callback)
	}

	// 3. 业务 API 路由组 (JWT 鉴权)
	api := r.Group("/api", middleware.JWTAuth())
	{
		// accounts 账号组
		accounts := api.Group("/accounts")
		{
			// POST /api/accounts/connect
			accounts.POST("/connect", ctls.Account.BulkConnect)
			// GET /api/accounts
			accounts.GET("", ctls.Account.ListConnected)
			// DELETE /api/accounts/:marketplace
			accounts.DELETE("/:marketplace", ctls.Account.Disconnect)
			// PUT /api/accounts/:marketplace/auto-sync
			accounts.PUT("/:marketplace/auto-sync", ctls.Account.SetAutoSync)
		}

		// oauth 授权组
		oauth := api.Group("/oauth")
		{
			// GET /api/oauth/:marketplace/login
			oauth.GET("/:marketplace/login", ctls.OAuth.Login)
		}

		// publish 发布组
		// POST /api/publish
		api.POST("/publish", ctls.Publish.Publish)
	}

	return r
}
