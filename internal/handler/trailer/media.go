package trailer

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// GeneratePortraits 生成主角立绘
// @Summary      生成主角立绘
// @Description  为每个主角生成一张全身立绘，作为关键帧出图的参考图。已有立绘的角色跳过。
// @Tags         素材生成
// @Produce      json
// @Param        novel_id  path      string  true  "小说ID"
// @Success      200       {object}  map[string]interface{}  "成功响应"
// @Failure      500       {object}  ErrorResponse  "服务器内部错误"
// @Router       /api/v1/novels/{novel_id}/portraits [post]
func (h *Handler) GeneratePortraits(c *gin.Context) {
	novelID := c.Param("novel_id")

	summary, err := h.trailerService.GeneratePortraits(c.Request.Context(), novelID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    50001,
			Message: err.Error(),
		})
		return
	}

	respondSummary(c, "主角立绘生成完成", summary)
}

// GenerateKeyframeImages 生成关键帧静帧图
// @Summary      生成关键帧图
// @Description  对风格化后的每个关键帧出静帧图，帧内角色立绘作为参考图。已有图的关键帧跳过。
// @Tags         素材生成
// @Produce      json
// @Param        novel_id  path      string  true  "小说ID"
// @Success      200       {object}  map[string]interface{}  "成功响应"
// @Failure      500       {object}  ErrorResponse  "服务器内部错误"
// @Router       /api/v1/novels/{novel_id}/keyframe-images [post]
func (h *Handler) GenerateKeyframeImages(c *gin.Context) {
	novelID := c.Param("novel_id")

	summary, err := h.trailerService.GenerateKeyframeImages(c.Request.Context(), novelID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    50001,
			Message: err.Error(),
		})
		return
	}

	respondSummary(c, "关键帧图生成完成", summary)
}

// GenerateKeyframeVideos 生成关键帧视频片段
// @Summary      生成关键帧视频
// @Description  以关键帧图为首帧生成短视频片段。已有片段的关键帧跳过。
// @Tags         素材生成
// @Produce      json
// @Param        novel_id  path      string  true  "小说ID"
// @Success      200       {object}  map[string]interface{}  "成功响应"
// @Failure      500       {object}  ErrorResponse  "服务器内部错误"
// @Router       /api/v1/novels/{novel_id}/keyframe-videos [post]
func (h *Handler) GenerateKeyframeVideos(c *gin.Context) {
	novelID := c.Param("novel_id")

	summary, err := h.trailerService.GenerateKeyframeVideos(c.Request.Context(), novelID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    50001,
			Message: err.Error(),
		})
		return
	}

	respondSummary(c, "关键帧视频生成完成", summary)
}

// DecomposeLayersRequest 图层分解请求
type DecomposeLayersRequest struct {
	NumLayers int `json:"num_layers"` // 期望图层数（缺省由服务端决定）
}

// DecomposeKeyframeLayers 关键帧图层分解
// @Summary      关键帧图层分解
// @Description  将某个关键帧的静帧图分解为有序图层，用于运镜与视差后期
// @Tags         素材生成
// @Accept       json
// @Produce      json
// @Param        novel_id  path      string                  true   "小说ID"
// @Param        kf_id     path      string                  true   "关键帧ID"
// @Param        request   body      DecomposeLayersRequest  false  "图层分解请求"
// @Success      200       {object}  map[string]interface{}  "成功响应"
// @Failure      500       {object}  ErrorResponse  "服务器内部错误"
// @Router       /api/v1/novels/{novel_id}/keyframes/{kf_id}/layers [post]
func (h *Handler) DecomposeKeyframeLayers(c *gin.Context) {
	novelID := c.Param("novel_id")
	kfID := c.Param("kf_id")

	var req DecomposeLayersRequest
	_ = c.ShouldBindJSON(&req)

	layers, err := h.trailerService.DecomposeKeyframeLayers(c.Request.Context(), novelID, kfID, req.NumLayers)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    50001,
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "图层分解完成",
		"data":    layers,
	})
}

// ConcatFinalVideo 拼接成片
// @Summary      拼接成片
// @Description  按关键帧顺序把片段标准化、叠字、拼接为最终预告片。缺视频片段的关键帧用静帧兜底。
// @Tags         素材生成
// @Produce      json
// @Param        novel_id  path      string  true  "小说ID"
// @Success      200       {object}  map[string]interface{}  "成功响应"
// @Failure      500       {object}  ErrorResponse  "服务器内部错误"
// @Router       /api/v1/novels/{novel_id}/concat [post]
func (h *Handler) ConcatFinalVideo(c *gin.Context) {
	novelID := c.Param("novel_id")

	asset, err := h.trailerService.ConcatFinalVideo(c.Request.Context(), novelID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    50001,
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "预告片拼接完成",
		"data":    asset,
	})
}
