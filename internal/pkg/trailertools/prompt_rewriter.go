package trailertools

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// 风格统一重写：逐帧把纯内容 prompt 改写为「内容 + 全局风格 + 角色规范描述」的最终出图 prompt
//
// 行为约束：
//   - 只替换 image_prompt，其余派生字段原样保留（通过 Keyframe.WithImagePrompt 产生副本）
//   - 最终 prompt 必须是手绘数字插画表述，禁止照片/film still 措辞；
//     内容 prompt 里混入的风格词由全局风格覆盖
//   - 内容策略拦截或改写结果为空时保留原 prompt，告警后继续整批
//   - 风格指南只读，重写器不得回写修改

// PromptRewriter 关键帧 prompt 风格统一重写器
type PromptRewriter struct {
	llmProvider LLMProvider
	retryPolicy RetryPolicy
}

// NewPromptRewriter 创建重写器实例
func NewPromptRewriter(llmProvider LLMProvider) *PromptRewriter {
	return &PromptRewriter{
		llmProvider: llmProvider,
		retryPolicy: DefaultRetryPolicy(),
	}
}

// RewriteKeyframe 重写单个关键帧的 image_prompt
// 返回替换了 prompt 的副本；失败兜底时副本与原帧 prompt 相同
func (r *PromptRewriter) RewriteKeyframe(
	ctx context.Context,
	kf Keyframe,
	guide *TrailerStyleGuide,
) (Keyframe, error) {
	if r.llmProvider == nil {
		return kf, fmt.Errorf("llmProvider is required")
	}
	if guide == nil {
		return kf, fmt.Errorf("style guide is required")
	}

	prompt := buildRewritePrompt(kf, guide)

	var raw string
	err := WithRetry(ctx, r.retryPolicy, kf.KFID, func() error {
		var genErr error
		raw, genErr = r.llmProvider.Generate(ctx, prompt)
		return genErr
	})
	if err != nil {
		if IsContentBlocked(err) {
			log.Warn().Str("kf_id", kf.KFID).Err(err).
				Msg("关键帧重写被内容策略拦截，保留原 prompt")
			return kf.WithImagePrompt(kf.ImagePrompt), nil
		}
		return kf, err
	}

	rewritten := strings.TrimSpace(CleanJSONContent(raw))
	rewritten = strings.Trim(rewritten, `"`)
	if rewritten == "" {
		log.Warn().Str("kf_id", kf.KFID).Msg("关键帧重写结果为空，保留原 prompt")
		return kf.WithImagePrompt(kf.ImagePrompt), nil
	}

	return kf.WithImagePrompt(rewritten), nil
}

// RewritePlan 重写整条关键帧计划，返回新计划，原计划不修改
// 单帧失败不终止整批：该帧保留原 prompt 并计入失败数
func (r *PromptRewriter) RewritePlan(
	ctx context.Context,
	plan *KeyframePlan,
	guide *TrailerStyleGuide,
) (*KeyframePlan, error) {
	if plan == nil {
		return nil, fmt.Errorf("keyframe plan is required")
	}

	out := &KeyframePlan{
		NovelID:   plan.NovelID,
		Title:     plan.Title,
		Keyframes: make([]Keyframe, 0, len(plan.Keyframes)),
	}

	failed := 0
	for _, kf := range plan.Keyframes {
		styled, err := r.RewriteKeyframe(ctx, kf, guide)
		if err != nil {
			log.Error().Str("kf_id", kf.KFID).Err(err).
				Msg("关键帧重写失败，保留原 prompt")
			styled = kf.WithImagePrompt(kf.ImagePrompt)
			failed++
		}
		out.Keyframes = append(out.Keyframes, styled)
	}

	log.Info().
		Str("novel_id", plan.NovelID).
		Int("total", len(out.Keyframes)).
		Int("fallback", failed).
		Msg("关键帧风格统一完成")

	return out, nil
}

// buildRewritePrompt 构造单帧风格重写的提示词
// 只注入该帧出现角色的规范描述，避免无关角色污染画面
func buildRewritePrompt(kf Keyframe, guide *TrailerStyleGuide) string {
	var b strings.Builder
	b.WriteString("You are a prompt engineer for an image generation model.\n")
	b.WriteString("Rewrite the CONTENT prompt below into ONE final image prompt that bakes in the\n")
	b.WriteString("unified trailer style, while preserving every content detail (subject, pose,\n")
	b.WriteString("setting, light direction, mood, shot framing).\n\n")

	b.WriteString("[GLOBAL STYLE — apply to the whole image]\n")
	fmt.Fprintf(&b, "- rendering_style: %s\n", guide.GlobalStyle.RenderingStyle)
	fmt.Fprintf(&b, "- lighting_style: %s\n", guide.GlobalStyle.LightingStyle)
	fmt.Fprintf(&b, "- color_palette: %s\n", guide.GlobalStyle.ColorPalette)
	fmt.Fprintf(&b, "- environment_style: %s\n", guide.GlobalStyle.EnvironmentStyle)
	if guide.GlobalStyle.Notes != "" {
		fmt.Fprintf(&b, "- notes: %s\n", guide.GlobalStyle.Notes)
	}
	b.WriteString("\n")

	if len(kf.Characters) > 0 {
		b.WriteString("[CHARACTERS IN THIS FRAME — use these canonical descriptions verbatim]\n")
		for _, name := range kf.Characters {
			if cs, ok := guide.FindCharacter(name); ok {
				fmt.Fprintf(&b, "- %s (%s): %s\n", cs.Name, cs.Role, cs.VisualDescription)
			} else {
				fmt.Fprintf(&b, "- %s: no canonical description, keep as described in the content prompt\n", name)
			}
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "[SHOT] %s, %s, %s\n\n", kf.ShotType, kf.CameraAngle, kf.Composition)

	b.WriteString("[CONTENT PROMPT]\n")
	b.WriteString(kf.ImagePrompt)
	b.WriteString("\n\n")

	b.WriteString("Rules:\n")
	b.WriteString("- Output ONLY the final prompt as plain text. No JSON, no markdown, no commentary.\n")
	b.WriteString("- One paragraph. Keep it under 150 words.\n")
	b.WriteString("- Never drop a content detail; style wraps content, it does not replace it.\n")
	b.WriteString("- The final image MUST be a hand-painted digital illustration. Do NOT describe\n")
	b.WriteString("  it as a photograph, photo, or cinematic shot, and never call it a \"film still\".\n")
	b.WriteString("- If the content prompt already contains style or rendering words, strip them;\n")
	b.WriteString("  the GLOBAL STYLE above overrides any style wording in the content prompt.\n")

	return b.String()
}
