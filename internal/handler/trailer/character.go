package trailer

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ExtractCharacters 逐章抽取角色提及
// @Summary      抽取角色
// @Description  对每一章抽取出场角色及其戏份，已有结果的章节自动跳过
// @Tags         角色档案
// @Produce      json
// @Param        novel_id  path      string  true  "小说ID"
// @Success      200       {object}  map[string]interface{}  "成功响应"
// @Failure      500       {object}  ErrorResponse  "服务器内部错误"
// @Router       /api/v1/novels/{novel_id}/characters/extract [post]
func (h *Handler) ExtractCharacters(c *gin.Context) {
	novelID := c.Param("novel_id")

	summary, err := h.trailerService.ExtractCharacters(c.Request.Context(), novelID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    50001,
			Message: err.Error(),
		})
		return
	}

	respondSummary(c, "角色抽取完成", summary)
}

// BuildCharacterProfiles 聚合评分并生成主角基底档案
// @Summary      生成主角档案
// @Description  汇总全书角色提及，按戏份评分选出主角并生成外貌基底档案。要求角色抽取已覆盖全部章节。
// @Tags         角色档案
// @Produce      json
// @Param        novel_id  path      string  true  "小说ID"
// @Success      200       {object}  map[string]interface{}  "成功响应"
// @Failure      500       {object}  ErrorResponse  "服务器内部错误"
// @Router       /api/v1/novels/{novel_id}/characters/profiles [post]
func (h *Handler) BuildCharacterProfiles(c *gin.Context) {
	novelID := c.Param("novel_id")

	summary, err := h.trailerService.BuildCharacterProfiles(c.Request.Context(), novelID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    50001,
			Message: err.Error(),
		})
		return
	}

	respondSummary(c, "主角档案生成完成", summary)
}

// GetCharacterProfiles 获取主角档案列表
// @Summary      获取主角档案
// @Description  按戏份评分降序返回主角基底档案
// @Tags         角色档案
// @Produce      json
// @Param        novel_id  path      string  true  "小说ID"
// @Success      200       {object}  map[string]interface{}  "成功响应"
// @Failure      500       {object}  ErrorResponse  "服务器内部错误"
// @Router       /api/v1/novels/{novel_id}/characters/profiles [get]
func (h *Handler) GetCharacterProfiles(c *gin.Context) {
	novelID := c.Param("novel_id")

	profiles, err := h.trailerService.GetCharacterProfiles(c.Request.Context(), novelID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    50001,
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "获取成功",
		"data":    profiles,
	})
}
