package trailer

import (
	"net/http"

	"github.com/gin-gonic/gin"

	trailermodel "novel2trailer/internal/model/trailer"
)

// DeriveKeyframes 从节拍脚本派生关键帧计划
// @Summary      派生关键帧
// @Description  为每个节拍派生 2-3 个关键帧并拼装整条计划。任一节拍失败整阶段失败。
// @Tags         关键帧
// @Produce      json
// @Param        novel_id  path      string  true  "小说ID"
// @Success      200       {object}  map[string]interface{}  "成功响应"
// @Failure      500       {object}  ErrorResponse  "服务器内部错误"
// @Router       /api/v1/novels/{novel_id}/keyframes/derive [post]
func (h *Handler) DeriveKeyframes(c *gin.Context) {
	novelID := c.Param("novel_id")

	summary, err := h.trailerService.DeriveKeyframes(c.Request.Context(), novelID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    50001,
			Message: err.Error(),
		})
		return
	}

	respondSummary(c, "关键帧派生完成", summary)
}

// GetKeyframePlan 获取关键帧计划
// @Summary      获取关键帧计划
// @Description  按阶段获取关键帧计划，stage 取 derived（派生原始）或 styled（风格统一后）
// @Tags         关键帧
// @Produce      json
// @Param        novel_id  path      string  true   "小说ID"
// @Param        stage     query     string  false  "计划阶段（derived/styled，默认 styled）"
// @Success      200       {object}  map[string]interface{}  "成功响应"
// @Failure      400       {object}  ErrorResponse  "请求参数错误"
// @Failure      404       {object}  ErrorResponse  "计划不存在"
// @Router       /api/v1/novels/{novel_id}/keyframes [get]
func (h *Handler) GetKeyframePlan(c *gin.Context) {
	novelID := c.Param("novel_id")

	stage := trailermodel.PlanStage(c.DefaultQuery("stage", string(trailermodel.PlanStageStyled)))
	if stage != trailermodel.PlanStageDerived && stage != trailermodel.PlanStageStyled {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40001,
			Message: "stage must be derived or styled",
		})
		return
	}

	plan, err := h.trailerService.GetKeyframePlan(c.Request.Context(), novelID, stage)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Code:    40401,
			Message: "keyframe plan not found",
			Detail:  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "获取成功",
		"data":    plan,
	})
}

// ApplyStyle 风格统一
// @Summary      风格统一
// @Description  基于完整关键帧计划合成风格指南，并整批重写关键帧出图提示词
// @Tags         关键帧
// @Produce      json
// @Param        novel_id  path      string  true  "小说ID"
// @Success      200       {object}  map[string]interface{}  "成功响应"
// @Failure      500       {object}  ErrorResponse  "服务器内部错误"
// @Router       /api/v1/novels/{novel_id}/keyframes/style [post]
func (h *Handler) ApplyStyle(c *gin.Context) {
	novelID := c.Param("novel_id")

	summary, err := h.trailerService.ApplyStyle(c.Request.Context(), novelID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    50001,
			Message: err.Error(),
		})
		return
	}

	respondSummary(c, "风格统一完成", summary)
}
