package trailer

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// BuildWorldProfile 合成世界观档案
// @Summary      生成世界观档案
// @Description  逐章提取世界观线索并合成全书统一的时代、风格与服制档案。已存在则跳过。
// @Tags         世界观
// @Produce      json
// @Param        novel_id  path      string  true  "小说ID"
// @Success      200       {object}  map[string]interface{}  "成功响应"
// @Failure      500       {object}  ErrorResponse  "服务器内部错误"
// @Router       /api/v1/novels/{novel_id}/world-profile [post]
func (h *Handler) BuildWorldProfile(c *gin.Context) {
	novelID := c.Param("novel_id")

	if err := h.trailerService.BuildWorldProfile(c.Request.Context(), novelID); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    50001,
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "世界观档案生成完成",
	})
}

// GetWorldProfile 获取世界观档案
// @Summary      获取世界观档案
// @Tags         世界观
// @Produce      json
// @Param        novel_id  path      string  true  "小说ID"
// @Success      200       {object}  map[string]interface{}  "成功响应"
// @Failure      404       {object}  ErrorResponse  "档案不存在"
// @Router       /api/v1/novels/{novel_id}/world-profile [get]
func (h *Handler) GetWorldProfile(c *gin.Context) {
	novelID := c.Param("novel_id")

	profile, err := h.trailerService.GetWorldProfile(c.Request.Context(), novelID)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Code:    40401,
			Message: "world profile not found",
			Detail:  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "获取成功",
		"data":    profile,
	})
}
