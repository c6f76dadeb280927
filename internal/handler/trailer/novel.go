package trailer

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"novel2trailer/internal/service/trailer"
)

// CreateNovelRequest 创建小说请求
type CreateNovelRequest struct {
	Title    string `json:"title" binding:"required"`   // 小说名称（必填）
	Author   string `json:"author"`                     // 作者
	Summary  string `json:"summary"`                    // 简介
	Language string `json:"language"`                   // 语言（zh/en）
	Content  string `json:"content" binding:"required"` // 小说全文（必填）
}

// CreateNovel 创建小说并切分章节
// @Summary      创建小说
// @Description  上传小说全文，自动切分章节并统计字数。这是流水线的入口。
// @Tags         小说管理
// @Accept       json
// @Produce      json
// @Param        request  body      CreateNovelRequest  true  "创建小说请求"
// @Success      200      {object}  map[string]interface{}  "成功响应"
// @Failure      400      {object}  ErrorResponse  "请求参数错误"
// @Failure      500      {object}  ErrorResponse  "服务器内部错误"
// @Router       /api/v1/novels [post]
func (h *Handler) CreateNovel(c *gin.Context) {
	var req CreateNovelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40001,
			Message: "Invalid request body",
			Detail:  err.Error(),
		})
		return
	}

	novelID, err := h.trailerService.CreateNovel(c.Request.Context(), &trailer.CreateNovelRequest{
		Title:    req.Title,
		Author:   req.Author,
		Summary:  req.Summary,
		Language: req.Language,
		Content:  req.Content,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    50001,
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "小说创建成功",
		"data":    gin.H{"novel_id": novelID},
	})
}

// GetNovel 获取小说详情
// @Summary      获取小说
// @Description  按ID获取小说元数据与统计信息
// @Tags         小说管理
// @Produce      json
// @Param        novel_id  path      string  true  "小说ID"
// @Success      200       {object}  map[string]interface{}  "成功响应"
// @Failure      404       {object}  ErrorResponse  "小说不存在"
// @Router       /api/v1/novels/{novel_id} [get]
func (h *Handler) GetNovel(c *gin.Context) {
	novelID := c.Param("novel_id")

	novelEntity, err := h.trailerService.GetNovel(c.Request.Context(), novelID)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{
			Code:    40401,
			Message: "novel not found",
			Detail:  err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "获取成功",
		"data":    toNovelInfo(novelEntity),
	})
}

// GetChapters 获取章节列表
// @Summary      获取章节列表
// @Description  按序号获取小说的全部章节（不含原文）
// @Tags         小说管理
// @Produce      json
// @Param        novel_id  path      string  true  "小说ID"
// @Success      200       {object}  map[string]interface{}  "成功响应"
// @Failure      500       {object}  ErrorResponse  "服务器内部错误"
// @Router       /api/v1/novels/{novel_id}/chapters [get]
func (h *Handler) GetChapters(c *gin.Context) {
	novelID := c.Param("novel_id")

	chapters, err := h.trailerService.GetChapters(c.Request.Context(), novelID)
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
		"data":    toChapterInfoList(chapters),
	})
}

// SearchBooks 搜索公版书
// @Summary      搜索公版书
// @Description  在 Gutendex 公版书库按书名搜索
// @Tags         公版书
// @Produce      json
// @Param        title  query     string  true  "书名关键词"
// @Success      200    {object}  map[string]interface{}  "成功响应"
// @Failure      400    {object}  ErrorResponse  "请求参数错误"
// @Failure      502    {object}  ErrorResponse  "上游服务错误"
// @Router       /api/v1/books/search [get]
func (h *Handler) SearchBooks(c *gin.Context) {
	title := c.Query("title")
	if title == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40001,
			Message: "title query parameter is required",
		})
		return
	}

	books, err := h.trailerService.SearchBooks(c.Request.Context(), title)
	if err != nil {
		c.JSON(http.StatusBadGateway, ErrorResponse{
			Code:    50201,
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "搜索成功",
		"data":    books,
	})
}

// ImportBookRequest 导入公版书请求
type ImportBookRequest struct {
	Title string `json:"title" binding:"required"` // 书名（必填）
}

// ImportBook 导入公版书
// @Summary      导入公版书
// @Description  从 Gutendex 下载公版书全文并创建为小说
// @Tags         公版书
// @Accept       json
// @Produce      json
// @Param        request  body      ImportBookRequest  true  "导入请求"
// @Success      200      {object}  map[string]interface{}  "成功响应"
// @Failure      400      {object}  ErrorResponse  "请求参数错误"
// @Failure      500      {object}  ErrorResponse  "服务器内部错误"
// @Router       /api/v1/books/import [post]
func (h *Handler) ImportBook(c *gin.Context) {
	var req ImportBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Code:    40001,
			Message: "Invalid request body",
			Detail:  err.Error(),
		})
		return
	}

	novelID, err := h.trailerService.ImportBook(c.Request.Context(), req.Title)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Code:    50001,
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "公版书导入成功",
		"data":    gin.H{"novel_id": novelID},
	})
}
