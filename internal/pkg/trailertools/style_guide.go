package trailertools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// 风格指南合成：必须看到全部关键帧后一次性产出
// 逐帧独立定风格会导致跨帧漂移，所以这里不提供流式/分批接口

// StyleGuideBuilder 预告片风格指南合成器
type StyleGuideBuilder struct {
	llmProvider LLMProvider
	retryPolicy RetryPolicy
}

// NewStyleGuideBuilder 创建风格指南合成器实例
func NewStyleGuideBuilder(llmProvider LLMProvider) *StyleGuideBuilder {
	return &StyleGuideBuilder{
		llmProvider: llmProvider,
		retryPolicy: DefaultRetryPolicy(),
	}
}

// BuildStyleGuide 从整条关键帧计划合成风格指南
// worldProfile / profiles 为可选的增强输入，缺失时只依据关键帧内容推断
func (s *StyleGuideBuilder) BuildStyleGuide(
	ctx context.Context,
	plan *KeyframePlan,
	worldProfile *WorldProfile,
	profiles []CharacterBaseProfile,
) (*TrailerStyleGuide, error) {
	if s.llmProvider == nil {
		return nil, fmt.Errorf("llmProvider is required")
	}
	if plan == nil || len(plan.Keyframes) == 0 {
		return nil, fmt.Errorf("keyframe plan is empty")
	}

	prompt, err := buildStyleGuidePrompt(plan, worldProfile, profiles)
	if err != nil {
		return nil, err
	}

	var raw string
	err = WithRetry(ctx, s.retryPolicy, plan.NovelID, func() error {
		var genErr error
		raw, genErr = s.llmProvider.Generate(ctx, prompt)
		return genErr
	})
	if err != nil {
		return nil, err
	}

	var guide TrailerStyleGuide
	if err := UnmarshalStrict(plan.NovelID, raw, &guide); err != nil {
		return nil, err
	}
	guide.NovelID = plan.NovelID
	guide.Title = plan.Title

	uncovered := CheckCharacterCoverage(&guide, plan)
	if len(uncovered) > 0 {
		// 覆盖缺口是软约束：告警后继续，重写器对未覆盖角色按帧内描述处理
		log.Warn().
			Str("novel_id", plan.NovelID).
			Strs("uncovered_characters", uncovered).
			Msg("风格指南未覆盖部分角色")
	}

	log.Info().
		Str("novel_id", plan.NovelID).
		Int("characters", len(guide.Characters)).
		Msg("预告片风格指南合成完成")

	return &guide, nil
}

// CheckCharacterCoverage 返回关键帧引用了但风格指南未覆盖的角色名
func CheckCharacterCoverage(guide *TrailerStyleGuide, plan *KeyframePlan) []string {
	var uncovered []string
	for _, name := range plan.CharacterNames() {
		if _, ok := guide.FindCharacter(name); !ok {
			uncovered = append(uncovered, name)
		}
	}
	return uncovered
}

func buildStyleGuidePrompt(
	plan *KeyframePlan,
	worldProfile *WorldProfile,
	profiles []CharacterBaseProfile,
) (string, error) {
	planJSON, err := json.MarshalIndent(plan.Keyframes, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal keyframes: %w", err)
	}

	var b strings.Builder
	b.WriteString("You are an art director establishing ONE unified visual style for a novel trailer.\n")
	fmt.Fprintf(&b, "Below are ALL keyframes planned for the trailer of %q.\n", plan.Title)
	b.WriteString("Decide the global rendering rules and one canonical visual description per character,\n")
	b.WriteString("so that every generated image looks like it belongs to the same production.\n\n")

	b.WriteString("[Output JSON object: TrailerStyleGuide]\n")
	fmt.Fprintf(&b, "- novel_id: MUST be exactly: %q\n", plan.NovelID)
	fmt.Fprintf(&b, "- title: MUST be exactly: %q\n", plan.Title)
	b.WriteString("- global_style: object with:\n")
	b.WriteString("  - rendering_style: the single rendering style for ALL images\n")
	b.WriteString("  - lighting_style: global lighting approach\n")
	b.WriteString("  - color_palette: global palette description\n")
	b.WriteString("  - environment_style: how environments are treated\n")
	b.WriteString("  - notes: extra consistency notes\n")
	b.WriteString("- characters: one entry PER CHARACTER referenced by any keyframe below:\n")
	fmt.Fprintf(&b, "  referenced characters: %s\n", strings.Join(plan.CharacterNames(), ", "))
	b.WriteString("  Each entry has:\n")
	b.WriteString("  - name: exactly as referenced in the keyframes\n")
	b.WriteString("  - role: a short role label (heroine, young general, rival, ...)\n")
	b.WriteString("  - visual_description: ONE canonical description (face, hair, build, typical outfit)\n")
	b.WriteString("    to be reused verbatim whenever the character appears\n\n")

	if worldProfile != nil {
		wpJSON, err := json.MarshalIndent(worldProfile, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshal world profile: %w", err)
		}
		b.WriteString("[WORLD PROFILE — era, wardrobe and palette constraints to respect]\n")
		b.Write(wpJSON)
		b.WriteString("\n\n")
	}
	if len(profiles) > 0 {
		ppJSON, err := json.MarshalIndent(profiles, "", "  ")
		if err != nil {
			return "", fmt.Errorf("marshal character profiles: %w", err)
		}
		b.WriteString("[CHARACTER BASE PROFILES — appearance evidence from the novel]\n")
		b.Write(ppJSON)
		b.WriteString("\n\n")
	}

	b.WriteString("Output ONLY valid JSON.\n\n")

	b.WriteString("[ALL KEYFRAMES START]\n")
	b.Write(planJSON)
	b.WriteString("\n[ALL KEYFRAMES END]\n")

	return b.String(), nil
}
