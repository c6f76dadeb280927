package trailertools

import (
	"strings"
	"unicode"

	"github.com/go-ego/gse"
)

// TextStats 章节文本统计（落库后用于小说详情展示与切分质量检查）
type TextStats struct {
	RuneCount int `bson:"rune_count" json:"rune_count"` // 总字符数（rune）
	WordCount int `bson:"word_count" json:"word_count"` // 分词后的词数
	LineCount int `bson:"line_count" json:"line_count"` // 非空行数
}

// TextAnalyzer 基于 gse 分词的文本统计器
// 分词器初始化失败时降级为按字符统计（中文一字一词）
type TextAnalyzer struct {
	segmenter *gse.Segmenter
}

// NewTextAnalyzer 创建文本统计器实例
func NewTextAnalyzer() *TextAnalyzer {
	segmenter, err := gse.New()
	if err != nil {
		return &TextAnalyzer{}
	}
	return &TextAnalyzer{segmenter: &segmenter}
}

// Analyze 统计一段文本
func (a *TextAnalyzer) Analyze(text string) TextStats {
	stats := TextStats{
		RuneCount: len([]rune(text)),
	}

	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) != "" {
			stats.LineCount++
		}
	}

	if a.segmenter != nil {
		words := a.segmenter.Cut(text, true)
		for _, w := range words {
			if strings.TrimSpace(w) == "" {
				continue
			}
			if isPunctOnly(w) {
				continue
			}
			stats.WordCount++
		}
		return stats
	}

	// 降级：CJK 一字一词，其余按空白分词
	for _, r := range text {
		if unicode.Is(unicode.Han, r) {
			stats.WordCount++
		}
	}
	stats.WordCount += len(strings.Fields(removeHan(text)))
	return stats
}

func isPunctOnly(s string) bool {
	for _, r := range s {
		if !unicode.IsPunct(r) && !unicode.IsSymbol(r) && !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

func removeHan(s string) string {
	var b strings.Builder
	for _, r := range s {
		if unicode.Is(unicode.Han, r) {
			b.WriteRune(' ')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
