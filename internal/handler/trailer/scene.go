package trailer

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ExtractScenes 逐章抽取场景
// @Summary      抽取场景
// @Description  对小说的每一章做场景抽取，已有结果的章节自动跳过。可重复调用续跑失败章节。
// @Tags         场景抽取
// @Produce      json
// @Param        novel_id  path      string  true  "小说ID"
// @Success      200       {object}  map[string]interface{}  "成功响应"
// @Failure      500       {object}  ErrorResponse  "服务器内部错误"
// @Router       /api/v1/novels/{novel_id}/scenes/extract [post]
func (h *Handler) ExtractScenes(c *gin.Context) {
	novelID := c.Param("novel_id")

	summary, err := h.trailerService.ExtractScenes(c.Request.Context(), novelID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    50001,
			Message: err.Error(),
		})
		return
	}

	respondSummary(c, "场景抽取完成", summary)
}

// GetScenes 获取全书场景
// @Summary      获取场景
// @Description  按章节顺序返回全书的场景抽取结果
// @Tags         场景抽取
// @Produce      json
// @Param        novel_id  path      string  true  "小说ID"
// @Success      200       {object}  map[string]interface{}  "成功响应"
// @Failure      404       {object}  ErrorResponse  "场景不存在"
// @Router       /api/v1/novels/{novel_id}/scenes [get]
func (h *Handler) GetScenes(c *gin.Context) {
	novelID := c.Param("novel_id")

	scenes, err := h.trailerService.GetScenes(c.Request.Context(), novelID)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Code:    40401,
			Message: "scenes not found",
			Detail:  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "获取成功",
		"data":    scenes,
	})
}
