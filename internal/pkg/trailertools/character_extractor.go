package trailertools

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// CharacterExtractor 角色证据抽取器：逐章收集角色出现证据与特征片段
// 只做章节尺度的判断；跨章节的同一性合并交给 CharacterAggregator
type CharacterExtractor struct {
	llmProvider LLMProvider
	retryPolicy RetryPolicy
}

// NewCharacterExtractor 创建角色证据抽取器实例
func NewCharacterExtractor(llmProvider LLMProvider) *CharacterExtractor {
	return &CharacterExtractor{
		llmProvider: llmProvider,
		retryPolicy: DefaultRetryPolicy(),
	}
}

// ExtractCharactersForChapter 对单个章节抽取角色提及证据
// 空章节或内容策略拦截时返回空列表，整批继续
func (e *CharacterExtractor) ExtractCharactersForChapter(
	ctx context.Context,
	novelName string,
	ch ChapterInput,
) (*ChapterCharacters, error) {
	if e.llmProvider == nil {
		return nil, fmt.Errorf("llmProvider is required")
	}
	if strings.TrimSpace(ch.ChapterID) == "" {
		return nil, fmt.Errorf("chapterID is required")
	}

	empty := &ChapterCharacters{
		ChapterID:  ch.ChapterID,
		Characters: []CharacterMention{},
	}

	if strings.TrimSpace(ch.ChapterText) == "" {
		log.Warn().Str("chapter_id", ch.ChapterID).Msg("章节内容为空，跳过角色抽取")
		return empty, nil
	}

	prompt := buildCharacterExtractionPrompt(novelName, ch)

	var raw string
	err := WithRetry(ctx, e.retryPolicy, ch.ChapterID, func() error {
		var genErr error
		raw, genErr = e.llmProvider.Generate(ctx, prompt)
		return genErr
	})
	if err != nil {
		if IsContentBlocked(err) {
			log.Warn().Str("chapter_id", ch.ChapterID).Err(err).
				Msg("章节被内容策略拦截，返回空角色列表")
			return empty, nil
		}
		return nil, err
	}

	var result ChapterCharacters
	if err := UnmarshalStrict(ch.ChapterID, raw, &result); err != nil {
		return nil, err
	}

	result.ChapterID = ch.ChapterID
	for i := range result.Characters {
		result.Characters[i].ChapterID = ch.ChapterID
	}

	log.Info().
		Str("chapter_id", ch.ChapterID).
		Int("characters_count", len(result.Characters)).
		Msg("章节角色抽取完成")

	return &result, nil
}

// buildCharacterExtractionPrompt 构造单章节角色证据抽取的提示词
func buildCharacterExtractionPrompt(novelName string, ch ChapterInput) string {
	var b strings.Builder
	b.WriteString("You are a literary analysis assistant specialized in character identification.\n")
	fmt.Fprintf(&b, "You will receive the FULL TEXT of ONE chapter of the novel %q.\n\n", novelName)

	b.WriteString("Your task: list every named character appearing in this chapter, with evidence.\n\n")

	b.WriteString("[Output JSON object: ChapterCharacters]\n")
	fmt.Fprintf(&b, "- chapter_id: MUST be exactly: %q\n", ch.ChapterID)
	b.WriteString("- characters: an array, one entry per distinct character. Each entry has:\n")
	b.WriteString("  - canonical_name: the most formal / complete name used in THIS chapter\n")
	b.WriteString("  - aliases: other names, titles or nicknames used for the same person in this chapter\n")
	b.WriteString("  - importance: one of \"main_protagonist\",\"secondary_lead\",\"supporting\",\"minor\"\n")
	b.WriteString("    judged from THIS chapter only (how central they are to this chapter's events)\n")
	fmt.Fprintf(&b, "  - chapter_id: MUST be exactly: %q\n", ch.ChapterID)
	b.WriteString("  - chapter_role_summary: one sentence describing what the character does in this chapter\n")
	b.WriteString("  - trait_snippets: an array of appearance / temperament evidence. Each snippet has:\n")
	b.WriteString("    - category: one of \"physical_appearance\",\"temperament\",\"hairstyle\",\"clothing\",\"status\",\"other\"\n")
	b.WriteString("    - original_text: the EXACT sentence from the chapter that supports this trait\n")
	b.WriteString("    - normalized: a short normalized description (a few words)\n\n")

	b.WriteString("Rules:\n")
	b.WriteString("- Only include characters actually present or directly described in this chapter.\n")
	b.WriteString("- Do NOT merge characters across chapters; judge names as this chapter uses them.\n")
	b.WriteString("- trait_snippets may be empty if the chapter gives no physical description.\n")
	b.WriteString("- Output ONLY valid JSON. No markdown fences, no commentary.\n\n")

	b.WriteString("[CHAPTER TEXT START]\n")
	b.WriteString(ch.ChapterText)
	b.WriteString("\n[CHAPTER TEXT END]\n")

	return b.String()
}
