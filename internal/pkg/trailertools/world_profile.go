package trailertools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// 世界观档案：两轮流程
//   1) 逐章抽取世界观线索（ChapterWorldHints）
//   2) 全书合成唯一的 WorldProfile，合成后视为不可变常量
//
// wardrobe_guide 必须覆盖 RequiredWardrobeRoles 中的全部角色键；
// 线索不足时填占位文本而不是省略键，下游按键取值不做存在性判断

// RequiredWardrobeRoles wardrobe_guide 必须包含的角色键
var RequiredWardrobeRoles = []string{
	"noblewoman",
	"young_general",
	"soldiers",
	"imperial_officials",
	"commoners",
}

// WardrobePlaceholder 线索不足时的占位描述
const WardrobePlaceholder = "not clearly specified"

// WorldProfileBuilder 世界观档案构建器
type WorldProfileBuilder struct {
	llmProvider LLMProvider
	retryPolicy RetryPolicy
}

// NewWorldProfileBuilder 创建世界观档案构建器实例
func NewWorldProfileBuilder(llmProvider LLMProvider) *WorldProfileBuilder {
	return &WorldProfileBuilder{
		llmProvider: llmProvider,
		retryPolicy: DefaultRetryPolicy(),
	}
}

// ExtractChapterHints 对单个章节抽取世界观线索
// 空章节或内容策略拦截时返回空线索，整批继续
func (w *WorldProfileBuilder) ExtractChapterHints(
	ctx context.Context,
	novelName string,
	ch ChapterInput,
) (*ChapterWorldHints, error) {
	if w.llmProvider == nil {
		return nil, fmt.Errorf("llmProvider is required")
	}

	empty := &ChapterWorldHints{
		NovelName: novelName,
		ChapterID: ch.ChapterID,
	}

	if strings.TrimSpace(ch.ChapterText) == "" {
		log.Warn().Str("chapter_id", ch.ChapterID).Msg("章节内容为空，跳过世界观线索抽取")
		return empty, nil
	}

	prompt := buildWorldHintsPrompt(novelName, ch)

	var raw string
	err := WithRetry(ctx, w.retryPolicy, ch.ChapterID, func() error {
		var genErr error
		raw, genErr = w.llmProvider.Generate(ctx, prompt)
		return genErr
	})
	if err != nil {
		if IsContentBlocked(err) {
			log.Warn().Str("chapter_id", ch.ChapterID).Err(err).
				Msg("章节被内容策略拦截，返回空世界观线索")
			return empty, nil
		}
		return nil, err
	}

	var hints ChapterWorldHints
	if err := UnmarshalStrict(ch.ChapterID, raw, &hints); err != nil {
		return nil, err
	}
	hints.NovelName = novelName
	hints.ChapterID = ch.ChapterID
	return &hints, nil
}

// SynthesizeWorldProfile 把逐章线索合成为全书唯一的世界观档案
func (w *WorldProfileBuilder) SynthesizeWorldProfile(
	ctx context.Context,
	novelName string,
	hints []ChapterWorldHints,
) (*WorldProfile, error) {
	if w.llmProvider == nil {
		return nil, fmt.Errorf("llmProvider is required")
	}
	if len(hints) == 0 {
		return nil, fmt.Errorf("no chapter hints to synthesize")
	}

	prompt, err := buildWorldSynthesisPrompt(novelName, hints)
	if err != nil {
		return nil, err
	}

	var raw string
	err = WithRetry(ctx, w.retryPolicy, novelName, func() error {
		var genErr error
		raw, genErr = w.llmProvider.Generate(ctx, prompt)
		return genErr
	})
	if err != nil {
		return nil, err
	}

	var profile WorldProfile
	if err := UnmarshalStrict(novelName, raw, &profile); err != nil {
		return nil, err
	}
	profile.NovelName = novelName
	EnsureWardrobeRoles(&profile)

	log.Info().
		Str("novel", novelName).
		Int("hint_chapters", len(hints)).
		Str("era", profile.EraLabel).
		Msg("世界观档案合成完成")

	return &profile, nil
}

// EnsureWardrobeRoles 补齐 wardrobe_guide 缺失的必备角色键
func EnsureWardrobeRoles(profile *WorldProfile) {
	if profile.WardrobeGuide == nil {
		profile.WardrobeGuide = make(map[string]string, len(RequiredWardrobeRoles))
	}
	for _, role := range RequiredWardrobeRoles {
		if strings.TrimSpace(profile.WardrobeGuide[role]) == "" {
			profile.WardrobeGuide[role] = WardrobePlaceholder
		}
	}
}

func buildWorldHintsPrompt(novelName string, ch ChapterInput) string {
	var b strings.Builder
	b.WriteString("You are a worldbuilding analysis assistant for visual adaptation of novels.\n")
	fmt.Fprintf(&b, "You will receive the FULL TEXT of ONE chapter of the novel %q.\n\n", novelName)

	b.WriteString("Your task: extract every hint about the STORY WORLD (not the plot) from this chapter.\n\n")

	b.WriteString("[Output JSON object: ChapterWorldHints]\n")
	fmt.Fprintf(&b, "- novel_name: MUST be exactly: %q\n", novelName)
	fmt.Fprintf(&b, "- chapter_id: MUST be exactly: %q\n", ch.ChapterID)
	b.WriteString("- time_and_era: era / dynasty / period hinted by this chapter (\"\" if none)\n")
	b.WriteString("- geography_and_region: geography, climate, region style hints\n")
	b.WriteString("- social_structure: court, clans, hierarchy, institutions mentioned\n")
	b.WriteString("- tech_and_warfare: technology level, weapons, transportation\n")
	b.WriteString("- typical_locales: list of recurring locations (palace hall, border camp, ...)\n")
	b.WriteString("- clothing_and_wardrobe: object mapping social role -> clothing description, using\n")
	b.WriteString("  role keys like \"noblewoman\",\"young_general\",\"soldiers\",\"imperial_officials\",\"commoners\"\n")
	b.WriteString("- color_and_mood: dominant colors and atmosphere of this chapter's settings\n")
	b.WriteString("- visual_motifs: recurring visual symbols (jade pendant, plum blossom, war banner, ...)\n")
	b.WriteString("- global_style: leave as \"\" at chapter level\n\n")

	b.WriteString("Rules:\n")
	b.WriteString("- Only report what the text supports. Leave fields empty when the chapter is silent.\n")
	b.WriteString("- Output ONLY valid JSON.\n\n")

	b.WriteString("[CHAPTER TEXT START]\n")
	b.WriteString(ch.ChapterText)
	b.WriteString("\n[CHAPTER TEXT END]\n")

	return b.String()
}

func buildWorldSynthesisPrompt(novelName string, hints []ChapterWorldHints) (string, error) {
	hintsJSON, err := json.MarshalIndent(hints, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal hints: %w", err)
	}

	var b strings.Builder
	b.WriteString("You are a worldbuilding synthesis assistant for visual adaptation of novels.\n")
	fmt.Fprintf(&b, "Below are per-chapter world hints collected from the novel %q.\n", novelName)
	b.WriteString("Synthesize them into ONE consistent world profile for the whole book.\n\n")

	b.WriteString("[Output JSON object: WorldProfile]\n")
	fmt.Fprintf(&b, "- novel_name: MUST be exactly: %q\n", novelName)
	b.WriteString("- world_summary: 2-3 sentences describing the world\n")
	b.WriteString("- era_label: short era label (e.g. \"fictional ancient Chinese dynasty\")\n")
	b.WriteString("- region_style: dominant regional / architectural style\n")
	b.WriteString("- tech_level: technology and warfare level\n")
	b.WriteString("- social_structure: one-paragraph summary of social hierarchy\n")
	b.WriteString("- typical_locales: merged, deduplicated list of recurring locations\n")
	b.WriteString("- wardrobe_guide: object mapping social role -> canonical clothing description.\n")
	b.WriteString("  It MUST contain at least these keys:\n")
	for _, role := range RequiredWardrobeRoles {
		fmt.Fprintf(&b, "    %q\n", role)
	}
	fmt.Fprintf(&b, "  If the hints give nothing for a role, use the value %q.\n", WardrobePlaceholder)
	b.WriteString("- color_and_mood: dominant palette and overall atmosphere of the book\n")
	b.WriteString("- visual_motifs: merged list of recurring visual symbols\n")
	b.WriteString("- global_style: ONE sentence of style text that will be appended to every image\n")
	b.WriteString("  prompt downstream (era + palette + mood, NO rendering-technique words)\n\n")

	b.WriteString("Rules:\n")
	b.WriteString("- When chapters conflict, prefer the majority reading.\n")
	b.WriteString("- Output ONLY valid JSON.\n\n")

	b.WriteString("[CHAPTER HINTS START]\n")
	b.Write(hintsJSON)
	b.WriteString("\n[CHAPTER HINTS END]\n")

	return b.String(), nil
}
