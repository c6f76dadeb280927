package trailertools

import (
	"bufio"
	"regexp"
	"sort"
	"strings"
)

// 章节切分：把整本小说文本切成带全局章节 ID 的 ChapterInput 列表
//
// 逻辑：
//  1. 先按卷标题模式切分（第X卷 / Volume N / Book N）；识别不到卷时整本视为第 1 卷
//  2. 卷内再按章节标题模式切分（第X章 / Chapter N / 章节 N）
//  3. 识别不到章节标题时按长度平均切分为 targetChapters 段
//  4. 章节 ID 按 (卷序号, 卷内章序号) 经 FormatChapterID 单调分配

// ChapterSplitter 章节切分器
type ChapterSplitter struct {
	defaultTargetChapters int
	// 小于此 rune 数的章节被过滤；0 表示只要非空就保留
	minChapterLength int
}

// NewChapterSplitter 创建章节切分器实例
func NewChapterSplitter() *ChapterSplitter {
	return &ChapterSplitter{
		defaultTargetChapters: 50,
		minChapterLength:      0,
	}
}

// SetMinChapterLength 设置最小章节长度（rune 数）
func (cs *ChapterSplitter) SetMinChapterLength(length int) {
	cs.minChapterLength = length
}

// Split 把小说全文切分为带全局章节 ID 的输入列表
// targetChapters <= 0 时使用默认值；超过目标数只保留前 N 章
func (cs *ChapterSplitter) Split(novelContent string, targetChapters int) []ChapterInput {
	novelContent = normalizeNovelText(novelContent)
	if novelContent == "" {
		return nil
	}
	if targetChapters <= 0 {
		targetChapters = cs.defaultTargetChapters
	}

	volumes := splitByVolumeTitles(novelContent)

	var result []ChapterInput
	for vi, vol := range volumes {
		chunks := splitByChapterTitles(vol.text, cs.minChapterLength)
		if len(chunks) < 2 {
			// 识别不到章节标题：按长度平均切分（只对单卷小说生效，
			// 多卷小说每卷至少有卷标题，卷内即使只有一段也按一章处理）
			if len(volumes) == 1 {
				chunks = splitByLength(vol.text, targetChapters)
			} else {
				chunks = []string{vol.text}
			}
		}
		for ci, text := range chunks {
			if len(result) >= targetChapters {
				return result
			}
			result = append(result, ChapterInput{
				ChapterID:    FormatChapterID(vi+1, ci+1),
				ChapterTitle: extractChapterTitle(text),
				VolumeName:   vol.title,
				ChapterText:  text,
			})
		}
	}
	return result
}

type volumeSegment struct {
	title string
	text  string
}

func normalizeNovelText(s string) string {
	lines := strings.Split(s, "\n")
	var out []string
	blank := false
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			if !blank {
				out = append(out, "")
				blank = true
			}
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}

var volumeTitlePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?im)^第[一二三四五六七八九十百0-9\d]+卷[^\n]*`),
	regexp.MustCompile(`(?im)^volume\s*\d+[^\n]*`),
	regexp.MustCompile(`(?im)^book\s*\d+[^\n]*`),
}

var chapterTitlePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?im)^第[一二三四五六七八九十百千万0-9\d]+章[^\n]*`),
	regexp.MustCompile(`(?im)^chapter\s*\d+[^\n]*`),
	regexp.MustCompile(`(?im)^章节\s*\d+[^\n]*`),
}

func splitByVolumeTitles(novelContent string) []volumeSegment {
	var matches []int
	for _, re := range volumeTitlePatterns {
		idxs := re.FindAllStringIndex(novelContent, -1)
		if len(idxs) >= 2 {
			for _, idx := range idxs {
				matches = append(matches, idx[0])
			}
			break
		}
	}
	if len(matches) < 2 {
		return []volumeSegment{{title: "", text: novelContent}}
	}

	matches = uniqueSortedInts(matches)
	var volumes []volumeSegment
	for i := 0; i < len(matches); i++ {
		start := matches[i]
		end := len(novelContent)
		if i+1 < len(matches) {
			end = matches[i+1]
		}
		text := strings.TrimSpace(novelContent[start:end])
		if text == "" {
			continue
		}
		volumes = append(volumes, volumeSegment{
			title: firstLine(text),
			text:  text,
		})
	}
	return volumes
}

func splitByChapterTitles(content string, minLength int) []string {
	var matches []int
	for _, re := range chapterTitlePatterns {
		idxs := re.FindAllStringIndex(content, -1)
		if len(idxs) >= 2 {
			for _, idx := range idxs {
				matches = append(matches, idx[0])
			}
			break
		}
	}
	if len(matches) < 2 {
		return nil
	}

	matches = uniqueSortedInts(matches)
	var chapters []string
	for i := 0; i < len(matches); i++ {
		start := matches[i]
		end := len(content)
		if i+1 < len(matches) {
			end = matches[i+1]
		}
		ch := strings.TrimSpace(content[start:end])
		if ch == "" {
			continue
		}
		if minLength > 0 && len([]rune(ch)) < minLength {
			continue
		}
		chapters = append(chapters, ch)
	}
	return chapters
}

func splitByLength(content string, targetChapters int) []string {
	r := []rune(content)
	total := len(r)
	if total == 0 {
		return nil
	}
	chunk := total / targetChapters
	if chunk <= 0 {
		return []string{content}
	}

	chapters := make([]string, 0, targetChapters)
	for i := 0; i < targetChapters; i++ {
		start := i * chunk
		end := (i + 1) * chunk
		if i == targetChapters-1 || end > total {
			end = total
		}
		part := strings.TrimSpace(string(r[start:end]))
		if part != "" {
			chapters = append(chapters, part)
		}
	}
	return chapters
}

func uniqueSortedInts(a []int) []int {
	if len(a) == 0 {
		return a
	}
	m := make(map[int]struct{}, len(a))
	for _, v := range a {
		m[v] = struct{}{}
	}
	out := make([]int, 0, len(m))
	for v := range m {
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}

func firstLine(text string) string {
	sc := bufio.NewScanner(strings.NewReader(text))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line != "" {
			return line
		}
	}
	return ""
}

// extractChapterTitle 取章节标题：优先匹配标题模式，否则取首行前 30 字
func extractChapterTitle(text string) string {
	line := firstLine(text)
	if line == "" {
		return ""
	}
	for _, re := range chapterTitlePatterns {
		if re.MatchString(line) {
			return line
		}
	}
	if len([]rune(line)) > 30 {
		return string([]rune(line)[:30])
	}
	return line
}
