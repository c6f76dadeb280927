package trailer

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// PlanTrailerScript 规划预告片节拍脚本
// @Summary      规划预告片脚本
// @Description  基于全书场景规划 4-6 个节拍的预告片脚本（钩子开场、悬念收尾）。已存在则直接返回。
// @Tags         预告片脚本
// @Produce      json
// @Param        novel_id  path      string  true  "小说ID"
// @Success      200       {object}  map[string]interface{}  "成功响应"
// @Failure      500       {object}  ErrorResponse  "服务器内部错误"
// @Router       /api/v1/novels/{novel_id}/trailer-script [post]
func (h *Handler) PlanTrailerScript(c *gin.Context) {
	novelID := c.Param("novel_id")

	script, err := h.trailerService.PlanTrailerScript(c.Request.Context(), novelID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    50001,
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "预告片脚本规划完成",
		"data":    script,
	})
}

// GetTrailerScript 获取预告片脚本
// @Summary      获取预告片脚本
// @Tags         预告片脚本
// @Produce      json
// @Param        novel_id  path      string  true  "小说ID"
// @Success      200       {object}  map[string]interface{}  "成功响应"
// @Failure      404       {object}  ErrorResponse  "脚本不存在"
// @Router       /api/v1/novels/{novel_id}/trailer-script [get]
func (h *Handler) GetTrailerScript(c *gin.Context) {
	novelID := c.Param("novel_id")

	script, err := h.trailerService.GetTrailerScript(c.Request.Context(), novelID)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Code:    40401,
			Message: "trailer script not found",
			Detail:  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "获取成功",
		"data":    script,
	})
}
