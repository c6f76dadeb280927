package trailer

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"novel2trailer/internal/model/trailer"
	"novel2trailer/internal/pkg/gutendex"
	"novel2trailer/internal/pkg/id"
)

// CreateNovel 第一步：入库小说原文并切分章节
// 章节 ID 采用全书唯一的 v{卷:02d}_ch{章:03d} 编号，后续所有阶段都以它为引用键
func (s *trailerService) CreateNovel(ctx context.Context, req *CreateNovelRequest) (string, error) {
	if strings.TrimSpace(req.Title) == "" {
		return "", fmt.Errorf("novel title is required")
	}
	if strings.TrimSpace(req.Content) == "" {
		return "", fmt.Errorf("novel content is empty")
	}

	targetChapters := s.cfg.TargetChapters
	segments := s.splitter.Split(req.Content, targetChapters)
	if len(segments) == 0 {
		return "", fmt.Errorf("no chapters split from novel content")
	}

	novelID := id.New()
	stats := s.textAnalyzer.Analyze(req.Content)

	novelEntity := &trailer.Novel{
		ID:           novelID,
		Title:        req.Title,
		Author:       req.Author,
		Summary:      req.Summary,
		Language:     req.Language,
		RuneCount:    stats.RuneCount,
		WordCount:    stats.WordCount,
		ChapterCount: len(segments),
	}
	if err := s.novelRepo.Create(ctx, novelEntity); err != nil {
		return "", fmt.Errorf("failed to create novel: %w", err)
	}

	for i, seg := range segments {
		chStats := s.textAnalyzer.Analyze(seg.ChapterText)
		chapterEntity := &trailer.Chapter{
			ID:         id.New(),
			NovelID:    novelID,
			ChapterID:  seg.ChapterID,
			Sequence:   i + 1,
			VolumeName: seg.VolumeName,
			Title:      seg.ChapterTitle,
			Text:       seg.ChapterText,
			RuneCount:  chStats.RuneCount,
			WordCount:  chStats.WordCount,
			LineCount:  chStats.LineCount,
		}
		if err := s.chapterRepo.Create(ctx, chapterEntity); err != nil {
			return "", fmt.Errorf("failed to create chapter %s: %w", seg.ChapterID, err)
		}
	}

	log.Info().
		Str("novel_id", novelID).
		Str("title", req.Title).
		Int("chapters", len(segments)).
		Int("rune_count", stats.RuneCount).
		Msg("小说创建完成")

	return novelID, nil
}

// SearchBooks 按标题检索古腾堡书目
func (s *trailerService) SearchBooks(ctx context.Context, title string) ([]gutendex.Book, error) {
	if s.gutendex == nil {
		return nil, fmt.Errorf("gutendex client is not configured")
	}
	return s.gutendex.Search(ctx, title, 5)
}

// ImportBook 从古腾堡检索并导入第一本匹配的公版书
func (s *trailerService) ImportBook(ctx context.Context, title string) (string, error) {
	if s.gutendex == nil {
		return "", fmt.Errorf("gutendex client is not configured")
	}

	books, err := s.gutendex.Search(ctx, title, 1)
	if err != nil {
		return "", fmt.Errorf("failed to search books: %w", err)
	}
	if len(books) == 0 {
		return "", fmt.Errorf("no book found for title %q", title)
	}

	book := books[0]
	content, err := s.gutendex.FetchText(ctx, book)
	if err != nil {
		return "", fmt.Errorf("failed to fetch book text: %w", err)
	}

	return s.CreateNovel(ctx, &CreateNovelRequest{
		Title:    book.Title,
		Author:   book.Author,
		Language: "en",
		Content:  content,
	})
}

// GetNovel 获取小说信息
func (s *trailerService) GetNovel(ctx context.Context, novelID string) (*trailer.Novel, error) {
	return s.novelRepo.FindByID(ctx, novelID)
}

// GetChapters 获取小说的全部章节
func (s *trailerService) GetChapters(ctx context.Context, novelID string) ([]*trailer.Chapter, error) {
	return s.chapterRepo.FindByNovelID(ctx, novelID)
}
