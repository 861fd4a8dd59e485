package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"crosslist_v1_202608/internal/api/dto"
	"crosslist_v1_202608/internal/middleware"
	"crosslist_v1_202608/internal/repository"
	"crosslist_v1_202608/internal/service"
)

type AccountController struct {
	accountService *service.AccountService
}

func NewAccountController(s *service.AccountService) *AccountController {
	return &AccountController{accountService: s}
}

// BulkConnect
// @Summary 批量连接市场
// @Description 用同一套邮箱/密码一次性连接多个市场；OAuth 市场会返回授权链接
// @Tags Accounts (账号模块)
// @Accept json
// @Produce json
// @Param request body dto.BulkConnectRequest true "连接请求"
// @Success 200 {object} dto.BulkConnectResponse "每个市场的连接结果"
// @Failure 400 {object} map[string]string "参数错误"
// @Router /accounts/connect [post]
func (ctrl *AccountController) BulkConnect(c *gin.Context) {
	var req dto.BulkConnectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误", "detail": err.Error()})
		return
	}

	userID := middleware.GetUserID(c)
	resp, err := ctrl.accountService.BulkConnect(c.Request.Context(), userID, &req)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "连接失败", "detail": err.Error()})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListConnected
// @Summary 已连接市场列表
// @Tags Accounts (账号模块)
// @Produce json
// @Success 200 {array} dto.ConnectedMarketplaceVO
// @Router /accounts [get]
func (ctrl *AccountController) ListConnected(c *gin.Context) {
	userID := middleware.GetUserID(c)
	vos, err := ctrl.accountService.ListConnected(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "查询失败", "detail": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"marketplaces": vos})
}

// Disconnect
// @Summary 断开市场连接
// @Description 软停用，凭证保留；重新连接会复用同一条记录
// @Tags Accounts (账号模块)
// @Produce json
// @Param marketplace path string true "市场名"
// @Success 200 {object} map[string]string
// @Failure 404 {object} map[string]string "未连接该市场"
// @Router /accounts/{marketplace} [delete]
func (ctrl *AccountController) Disconnect(c *gin.Context) {
	marketplace := c.Param("marketplace")
	userID := middleware.GetUserID(c)

	if err := ctrl.accountService.Disconnect(c.Request.Context(), userID, marketplace); err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "未连接该市场"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "断开失败", "detail": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "已断开 " + marketplace})
}

// SetAutoSync
// @Summary 开关自动同步
// @Tags Accounts (账号模块)
// @Accept json
// @Produce json
// @Param marketplace path string true "市场名"
// @Param request body map[string]bool true "{\"enabled\": true}"
// @Success 200 {object} map[string]string
// @Router /accounts/{marketplace}/auto-sync [put]
func (ctrl *AccountController) SetAutoSync(c *gin.Context) {
	marketplace := c.Param("marketplace")
	userID := middleware.GetUserID(c)

	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误", "detail": err.Error()})
		return
	}

	if err := ctrl.accountService.SetAutoSync(c.Request.Context(), userID, marketplace, req.Enabled); err != nil {
		if errors.Is(err, repository.ErrAccountNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "未连接该市场"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "设置失败", "detail": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "设置成功"})
}
