package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"crosslist_v1_202608/internal/adapter"
	"crosslist_v1_202608/internal/api/dto"
	"crosslist_v1_202608/internal/middleware"
	"crosslist_v1_202608/internal/service"
)

type PublishController struct {
	orchestrator *service.PublishOrchestrator
}

func NewPublishController(o *service.PublishOrchestrator) *PublishController {
	return &PublishController{orchestrator: o}
}

// Publish
// @Summary 批量发布商品
// @Description 把一个商品发布到多个市场；各市场互不影响，逐一返回结果
// @Tags Publish (发布模块)
// @Accept json
// @Produce json
// @Param request body dto.PublishRequest true "发布请求"
// @Success 200 {object} dto.PublishBatchResult "每个市场一条结果"
// @Failure 400 {object} map[string]string "参数错误"
// @Failure 404 {object} map[string]string "商品不存在"
// @Router /publish [post]
func (ctrl *PublishController) Publish(c *gin.Context) {
	var req dto.PublishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "参数错误", "detail": err.Error()})
		return
	}

	userID := middleware.GetUserID(c)
	batch, err := ctrl.orchestrator.Publish(c.Request.Context(), userID, &req)
	if err != nil {
		// 商品不存在是唯一的批次级失败
		if adapter.CodeOf(err) == adapter.CodeListingNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "商品不存在", "detail": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "发布失败", "detail": err.Error()})
		return
	}

	c.JSON(http.StatusOK, batch)
}
