package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"crosslist_v1_202608/internal/connector"
	"crosslist_v1_202608/internal/middleware"
	"crosslist_v1_202608/internal/service"
)

type OAuthController struct {
	oauthService *service.OAuthService
}

func NewOAuthController(s *service.OAuthService) *OAuthController {
	return &OAuthController{oauthService: s}
}

// Login
// @Summary 获取市场授权链接
// @Description 生成 OAuth 授权跳转链接，前端引导用户打开完成授权
// @Tags OAuth (授权模块)
// @Produce json
// @Param marketplace path string true "市场名 (ebay / etsy)"
// @Success 200 {object} map[string]string "auth_url"
// @Failure 400 {object} map[string]string "该市场不支持 OAuth"
// @Router /oauth/{marketplace}/login [get]
func (ctrl *OAuthController) Login(c *gin.Context) {
	marketplace := c.Param("marketplace")
	userID := middleware.GetUserID(c)

	url, err := ctrl.oauthService.GetAuthorizationURL(userID, marketplace)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "生成授权链接失败", "detail": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "获取成功",
		"auth_url": url,
	})
}

// Callback
// @Summary 市场授权回调
// @Description 接收提供方返回的 code 和 state，换取 Token 并加密入库
// @Tags OAuth (授权模块)
// @Produce json
// @Param marketplace path string true "市场名"
// @Param code query string true "授权码"
// @Param state query string true "安全校验码"
// @Success 200 {object} map[string]interface{} "授权成功信息"
// @Failure 400 {object} map[string]string "拒绝授权/参数错误"
// @Router /oauth/{marketplace}/callback [get]
func (ctrl *OAuthController) Callback(c *gin.Context) {
	marketplace := c.Param("marketplace")
	code := c.Query("code")
	state := c.Query("state")
	errParam := c.Query("error")

	account, err := ctrl.oauthService.HandleCallback(c.Request.Context(), marketplace, code, state, errParam)
	if err != nil {
		if errors.Is(err, connector.ErrOAuthDenied) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "用户拒绝了授权", "detail": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "授权失败", "detail": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":     "市场连接成功",
		"marketplace": account.MarketplaceName,
		"expire_at":   account.TokenExpiresAt,
	})
}
