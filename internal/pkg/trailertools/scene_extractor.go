package trailertools

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// SceneExtractor 场景抽取器：把单章节全文转成有序的场景列表
//
// 设计原则：
//   - 只负责组装 prompt、调用注入的 LLM 客户端并做严格的结构校验
//   - chapter_id 由调用方按卷/章位置单调分配（FormatChapterID），本层不生成
//   - 内容策略拦截视为该章节的终态：返回空场景列表，整批继续
type SceneExtractor struct {
	llmProvider LLMProvider
	retryPolicy RetryPolicy
}

// NewSceneExtractor 创建场景抽取器实例
func NewSceneExtractor(llmProvider LLMProvider) *SceneExtractor {
	return &SceneExtractor{
		llmProvider: llmProvider,
		retryPolicy: DefaultRetryPolicy(),
	}
}

// ChapterInput 场景抽取的单章节输入
type ChapterInput struct {
	ChapterID    string // 全局章节 ID（v01_ch001 格式）
	ChapterTitle string
	VolumeName   string
	ChapterText  string
}

// ExtractScenesForChapter 对单个章节做场景抽取
// 空章节返回空的 ChapterScenes（警告，不报错）；schema 不符返回 SchemaError
func (e *SceneExtractor) ExtractScenesForChapter(
	ctx context.Context,
	novelTitle string,
	novelSummary string,
	language string,
	ch ChapterInput,
) (*ChapterScenes, error) {
	if e.llmProvider == nil {
		return nil, fmt.Errorf("llmProvider is required")
	}
	if strings.TrimSpace(ch.ChapterID) == "" {
		return nil, fmt.Errorf("chapterID is required")
	}

	empty := &ChapterScenes{
		ChapterID:    ch.ChapterID,
		ChapterTitle: ch.ChapterTitle,
		VolumeName:   ch.VolumeName,
		Scenes:       []Scene{},
	}

	if strings.TrimSpace(ch.ChapterText) == "" {
		log.Warn().Str("chapter_id", ch.ChapterID).Msg("章节内容为空，跳过场景抽取")
		return empty, nil
	}

	prompt := buildSceneExtractionPrompt(novelTitle, novelSummary, language, ch)

	var raw string
	err := WithRetry(ctx, e.retryPolicy, ch.ChapterID, func() error {
		var genErr error
		raw, genErr = e.llmProvider.Generate(ctx, prompt)
		return genErr
	})
	if err != nil {
		if IsContentBlocked(err) {
			log.Warn().Str("chapter_id", ch.ChapterID).Err(err).
				Msg("章节被内容策略拦截，返回空场景列表")
			return empty, nil
		}
		return nil, err
	}

	var result ChapterScenes
	if err := UnmarshalStrict(ch.ChapterID, raw, &result); err != nil {
		return nil, err
	}

	// 模型可能没有如实回填元信息，这里强制对齐调用方给定的值
	result.ChapterID = ch.ChapterID
	result.ChapterTitle = ch.ChapterTitle
	result.VolumeName = ch.VolumeName

	normalizeSceneIDs(&result)

	log.Info().
		Str("chapter_id", ch.ChapterID).
		Int("scenes_count", len(result.Scenes)).
		Msg("章节场景抽取完成")

	return &result, nil
}

// normalizeSceneIDs 保证 scene_id 为章节内 1 起的连续序号且 chapter 字段对齐
func normalizeSceneIDs(cs *ChapterScenes) {
	for i := range cs.Scenes {
		cs.Scenes[i].SceneID = fmt.Sprintf("%d", i+1)
		cs.Scenes[i].Chapter = cs.ChapterID
	}
}

// buildSceneExtractionPrompt 构造单章节场景抽取的提示词
// 输出必须是 ChapterScenes 结构的 JSON
func buildSceneExtractionPrompt(novelTitle, novelSummary, language string, ch ChapterInput) string {
	var b strings.Builder
	b.WriteString("You are a novel structure analysis assistant, good at extracting important or emotional scenes from novels.\n")
	fmt.Fprintf(&b, "You will receive the FULL TEXT of ONE chapter of a web novel. The novel is about: %q.\n\n", novelSummary)

	b.WriteString("Your task:\n")
	b.WriteString("- Extract all major plot beats of the chapter, especially emotional turns and key decisions which impact the overall story arc.\n")
	b.WriteString("- For each scene, fill in the required fields of the JSON schema described below.\n")
	b.WriteString("- You MUST strictly follow the JSON schema. Do NOT add extra top-level fields.\n\n")

	b.WriteString("[Output JSON object: ChapterScenes]\n")
	b.WriteString("You MUST output a single JSON object with fields:\n")
	fmt.Fprintf(&b, "- chapter_id: MUST be exactly: %q\n", ch.ChapterID)
	fmt.Fprintf(&b, "- chapter_title: MUST be exactly: %q\n", ch.ChapterTitle)
	fmt.Fprintf(&b, "- volume_name: MUST be exactly: %q\n", ch.VolumeName)
	b.WriteString("- scenes: an array of Scene objects. Each Scene has:\n")
	b.WriteString("  - scene_id: string index within this chapter, starting from \"1\", then \"2\",\"3\",...\n")
	fmt.Fprintf(&b, "  - chapter: a short identifier for this chapter, you SHOULD use %q\n", ch.ChapterID)
	b.WriteString("  - brief: one or two sentences summarizing what happens in this scene (concise but concrete)\n")
	b.WriteString("  - original_text: the original text content of this scene, at most 5 sentences extracted from the original chapter\n")
	b.WriteString("  - characters: list of important characters appearing in this scene (use names as in the text)\n")
	b.WriteString("  - emotion_tags: list of emotion or tone tags, e.g. [\"angst\",\"romance\",\"suspense\",\"warm\",\"tragic\",\"tension\",\"relief\"]\n")
	b.WriteString("  - function: the narrative function of this scene in the overall story,\n")
	b.WriteString("    for example: \"first_meeting\",\"foreshadowing\",\"reveal_truth\",\"backstory\",\n")
	b.WriteString("                 \"internal_conflict\",\"external_conflict\",\"breakup\",\"reconciliation\",\n")
	b.WriteString("                 \"climax\",\"turning_point\",\"slice_of_life\"\n\n")

	b.WriteString("[Novel info]\n")
	fmt.Fprintf(&b, "- novel_title: %s\n", novelTitle)
	fmt.Fprintf(&b, "- chapter_id: %s\n", ch.ChapterID)
	fmt.Fprintf(&b, "- chapter_title: %s\n", ch.ChapterTitle)
	fmt.Fprintf(&b, "- volume_name: %s\n", ch.VolumeName)
	fmt.Fprintf(&b, "- language: %s\n\n", language)

	b.WriteString("Output ONLY valid JSON. No markdown fences, no commentary outside the JSON object.\n\n")

	b.WriteString("[CHAPTER TEXT START]\n")
	b.WriteString(ch.ChapterText)
	b.WriteString("\n[CHAPTER TEXT END]\n")

	return b.String()
}
