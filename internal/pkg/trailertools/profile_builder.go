package trailertools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// ProfileBuilder 主角基底特征合成器
// 第二轮：把某个主角跨章节的全部证据浓缩成一份稳定的视觉基底档案
type ProfileBuilder struct {
	llmProvider LLMProvider
	retryPolicy RetryPolicy
}

// NewProfileBuilder 创建基底特征合成器实例
func NewProfileBuilder(llmProvider LLMProvider) *ProfileBuilder {
	return &ProfileBuilder{
		llmProvider: llmProvider,
		retryPolicy: DefaultRetryPolicy(),
	}
}

// BuildBaseProfile 为单个主角合成基底特征档案
func (b *ProfileBuilder) BuildBaseProfile(
	ctx context.Context,
	novelName string,
	character AggregatedCharacter,
) (*CharacterBaseProfile, error) {
	if b.llmProvider == nil {
		return nil, fmt.Errorf("llmProvider is required")
	}
	if character.Name == "" {
		return nil, fmt.Errorf("character name is required")
	}

	prompt, err := buildProfileSynthesisPrompt(novelName, character)
	if err != nil {
		return nil, err
	}

	var raw string
	err = WithRetry(ctx, b.retryPolicy, character.Name, func() error {
		var genErr error
		raw, genErr = b.llmProvider.Generate(ctx, prompt)
		return genErr
	})
	if err != nil {
		return nil, err
	}

	var profile CharacterBaseProfile
	if err := UnmarshalStrict(character.Name, raw, &profile); err != nil {
		return nil, err
	}

	profile.NovelName = novelName
	profile.CharacterName = character.Name
	if len(profile.Aliases) == 0 {
		profile.Aliases = character.Aliases
	}

	log.Info().
		Str("character", character.Name).
		Int("chapters_seen", len(character.ChaptersSeen)).
		Msg("主角基底特征合成完成")

	return &profile, nil
}

// buildProfileSynthesisPrompt 构造基底特征合成的提示词
// 证据以 JSON 形式内嵌，要求模型只依据证据归纳、冲突时取更常见描述
func buildProfileSynthesisPrompt(novelName string, character AggregatedCharacter) (string, error) {
	evidence, err := json.MarshalIndent(character.Mentions, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal mentions: %w", err)
	}

	var b strings.Builder
	b.WriteString("You are a character design assistant for visual adaptation of novels.\n")
	fmt.Fprintf(&b, "Below is ALL collected evidence about the character %q from the novel %q,\n", character.Name, novelName)
	b.WriteString("gathered chapter by chapter (appearance quotes, temperament notes, clothing descriptions).\n\n")

	b.WriteString("Your task: synthesize ONE stable base profile describing how this character should\n")
	b.WriteString("consistently look across all generated images.\n\n")

	b.WriteString("[Output JSON object: CharacterBaseProfile]\n")
	fmt.Fprintf(&b, "- novel_name: MUST be exactly: %q\n", novelName)
	fmt.Fprintf(&b, "- character_name: MUST be exactly: %q\n", character.Name)
	b.WriteString("- aliases: known aliases of the character\n")
	b.WriteString("- core_appearance: object with keys \"age_range\",\"body_type\",\"face\",\"hair\"\n")
	b.WriteString("  describing the STABLE physical appearance (what never changes between scenes)\n")
	b.WriteString("- baseline_outfit: object with keys \"style\",\"materials\",\"colours\"\n")
	b.WriteString("  describing the character's typical everyday clothing\n")
	b.WriteString("- temperament_baseline: list of stable temperament keywords (e.g. \"cold\",\"gentle\",\"sharp-eyed\")\n")
	b.WriteString("- scene_variants: list of objects {\"situation\":...,\"change\":...} for notable\n")
	b.WriteString("  situational looks (armor in battle, sickbed pallor). May be empty.\n")
	b.WriteString("- supporting_quotes: 3-6 original sentences from the evidence that best support the profile\n\n")

	b.WriteString("Rules:\n")
	b.WriteString("- Base everything ONLY on the evidence below. Do not invent traits.\n")
	b.WriteString("- When evidence conflicts, prefer the description that appears more often.\n")
	b.WriteString("- If a field has no evidence at all, write \"not clearly specified\".\n")
	b.WriteString("- Output ONLY valid JSON.\n\n")

	b.WriteString("[EVIDENCE START]\n")
	b.Write(evidence)
	b.WriteString("\n[EVIDENCE END]\n")

	return b.String(), nil
}
