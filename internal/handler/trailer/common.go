package trailer

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	trailermodel "novel2trailer/internal/model/trailer"
	httputil "novel2trailer/internal/pkg/http"
	"novel2trailer/internal/service/trailer"
)

// ErrorResponse 错误响应类型别名（使用共用的 http.ErrorResponse）
type ErrorResponse = httputil.ErrorResponse

// NovelInfo 小说信息 DTO
type NovelInfo struct {
	ID           string `json:"id"`                 // 小说ID
	Title        string `json:"title"`              // 小说名称
	Author       string `json:"author,omitempty"`   // 作者
	Summary      string `json:"summary,omitempty"`  // 简介
	Language     string `json:"language,omitempty"` // 语言
	RuneCount    int    `json:"rune_count"`         // 总字符数
	WordCount    int    `json:"word_count"`         // 总字数
	ChapterCount int    `json:"chapter_count"`      // 章节数
	CreatedAt    string `json:"created_at"`         // 创建时间
	UpdatedAt    string `json:"updated_at"`         // 更新时间
}

// toNovelInfo 将 Novel 实体转换为 NovelInfo DTO
func toNovelInfo(novelEntity *trailermodel.Novel) NovelInfo {
	return NovelInfo{
		ID:           novelEntity.ID,
		Title:        novelEntity.Title,
		Author:       novelEntity.Author,
		Summary:      novelEntity.Summary,
		Language:     novelEntity.Language,
		RuneCount:    novelEntity.RuneCount,
		WordCount:    novelEntity.WordCount,
		ChapterCount: novelEntity.ChapterCount,
		CreatedAt:    novelEntity.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    novelEntity.UpdatedAt.Format(time.RFC3339),
	}
}

// ChapterInfo 章节信息 DTO
type ChapterInfo struct {
	ID         string `json:"id"`                    // 文档ID
	NovelID    string `json:"novel_id"`              // 小说ID
	ChapterID  string `json:"chapter_id"`            // 业务章节ID
	Sequence   int    `json:"sequence"`              // 章节序号
	VolumeName string `json:"volume_name,omitempty"` // 卷名
	Title      string `json:"title"`                 // 章节标题
	RuneCount  int    `json:"rune_count"`            // 章节总字符数
	WordCount  int    `json:"word_count"`            // 章节总字数
	LineCount  int    `json:"line_count"`            // 章节行数
}

// toChapterInfoList 将 Chapter 实体列表转换为 ChapterInfo DTO 列表（不带原文）
func toChapterInfoList(chapters []*trailermodel.Chapter) []ChapterInfo {
	list := make([]ChapterInfo, len(chapters))
	for i, chapter := range chapters {
		list[i] = ChapterInfo{
			ID:         chapter.ID,
			NovelID:    chapter.NovelID,
			ChapterID:  chapter.ChapterID,
			Sequence:   chapter.Sequence,
			VolumeName: chapter.VolumeName,
			Title:      chapter.Title,
			RuneCount:  chapter.RuneCount,
			WordCount:  chapter.WordCount,
			LineCount:  chapter.LineCount,
		}
	}
	return list
}

// respondSummary 阶段执行汇总的统一响应
func respondSummary(c *gin.Context, message string, summary *trailer.StageSummary) {
	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": message,
		"data":    summary,
	})
}
