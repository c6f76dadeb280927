package trailertools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// 节拍规划：把全书场景索引压缩成 4-6 个节拍的预告片脚本
//
// 结构不变量（ValidateTrailerScript 强制）：
//   - 节拍数在 [MinBeats, MaxBeats] 内
//   - hook 恰好一个且在首位，cliffhanger 恰好一个且在末位
//   - 中间节拍只能是 conflict / escalation
//   - 各节拍时长之和不超过 max_duration_sec
//   - source_scenes 全部能在场景索引中解析；引用悬空的节拍整个剔除，
//     剔除后若结构不变量被破坏则整份脚本拒绝

const (
	// MinBeats 预告片最少节拍数
	MinBeats = 4
	// MaxBeats 预告片最多节拍数
	MaxBeats = 6
)

// BeatPlanner 预告片节拍规划器
type BeatPlanner struct {
	llmProvider LLMProvider
	retryPolicy RetryPolicy
}

// NewBeatPlanner 创建节拍规划器实例
func NewBeatPlanner(llmProvider LLMProvider) *BeatPlanner {
	return &BeatPlanner{
		llmProvider: llmProvider,
		retryPolicy: DefaultRetryPolicy(),
	}
}

// PlanRequest 节拍规划请求参数
type PlanRequest struct {
	NovelID        string
	Title          string
	TargetAudience string
	Platform       string // douyin/bilibili/tiktok/youtube_short
	MaxDurationSec int
	StyleTags      []string
}

// PlanTrailerScript 生成并校验预告片脚本
// 校验失败的脚本不返回：要么剔除坏节拍后仍合法，要么整份拒绝
func (p *BeatPlanner) PlanTrailerScript(
	ctx context.Context,
	req PlanRequest,
	scenes *NovelScenes,
	index *SceneIndex,
) (*TrailerScript, error) {
	if p.llmProvider == nil {
		return nil, fmt.Errorf("llmProvider is required")
	}
	if scenes == nil || index == nil {
		return nil, fmt.Errorf("scenes and index are required")
	}
	if index.Len() == 0 {
		return nil, fmt.Errorf("scene index is empty")
	}
	if req.MaxDurationSec <= 0 {
		return nil, fmt.Errorf("maxDurationSec must be positive")
	}

	prompt, err := buildBeatPlanningPrompt(req, scenes)
	if err != nil {
		return nil, err
	}

	var raw string
	err = WithRetry(ctx, p.retryPolicy, req.NovelID, func() error {
		var genErr error
		raw, genErr = p.llmProvider.Generate(ctx, prompt)
		return genErr
	})
	if err != nil {
		return nil, err
	}

	var script TrailerScript
	if err := UnmarshalStrict(req.NovelID, raw, &script); err != nil {
		return nil, err
	}
	script.NovelID = req.NovelID
	script.Title = req.Title
	script.Platform = req.Platform
	script.MaxDurationSec = req.MaxDurationSec

	if err := ValidateTrailerScript(&script, index); err != nil {
		return nil, err
	}

	log.Info().
		Str("novel_id", req.NovelID).
		Int("beats", len(script.Beats)).
		Str("platform", req.Platform).
		Msg("预告片脚本规划完成")

	return &script, nil
}

// ValidateTrailerScript 校验并原地修剪脚本
// 先剔除引用悬空的节拍（告警），再检查结构不变量；任何结构违规都使整份脚本无效
func ValidateTrailerScript(script *TrailerScript, index *SceneIndex) error {
	kept := script.Beats[:0]
	for _, beat := range script.Beats {
		_, missing := index.ResolveAll(beat.SourceScenes)
		if len(missing) > 0 {
			log.Warn().
				Str("beat_id", beat.BeatID).
				Strs("missing_scenes", missing).
				Msg("节拍引用了不存在的场景，整个节拍剔除")
			continue
		}
		kept = append(kept, beat)
	}
	script.Beats = kept

	n := len(script.Beats)
	if n < MinBeats || n > MaxBeats {
		return fmt.Errorf("script has %d beats, want %d-%d", n, MinBeats, MaxBeats)
	}

	hookCount, cliffCount := 0, 0
	for i, beat := range script.Beats {
		switch beat.Role {
		case BeatRoleHook:
			hookCount++
			if i != 0 {
				return fmt.Errorf("hook beat %s is not first", beat.BeatID)
			}
		case BeatRoleCliffhanger:
			cliffCount++
			if i != n-1 {
				return fmt.Errorf("cliffhanger beat %s is not last", beat.BeatID)
			}
		case BeatRoleConflict, BeatRoleEscalation:
			// 中间节拍合法角色
		default:
			return fmt.Errorf("beat %s has unknown role %q", beat.BeatID, beat.Role)
		}
		if beat.DurationSec <= 0 {
			return fmt.Errorf("beat %s has non-positive duration", beat.BeatID)
		}
		if len(beat.SourceScenes) == 0 {
			return fmt.Errorf("beat %s has no source scenes", beat.BeatID)
		}
	}
	if hookCount != 1 {
		return fmt.Errorf("script has %d hook beats, want exactly 1", hookCount)
	}
	if cliffCount != 1 {
		return fmt.Errorf("script has %d cliffhanger beats, want exactly 1", cliffCount)
	}

	var total float64
	for _, beat := range script.Beats {
		total += beat.DurationSec
	}
	if total > float64(script.MaxDurationSec) {
		return fmt.Errorf("total beat duration %.1fs exceeds limit %ds", total, script.MaxDurationSec)
	}

	return nil
}

// buildBeatPlanningPrompt 构造节拍规划的提示词
// 场景索引整体内嵌（brief/characters/emotion/function，不含原文全文，控制 token）
func buildBeatPlanningPrompt(req PlanRequest, scenes *NovelScenes) (string, error) {
	type sceneDigest struct {
		SceneID     string   `json:"scene_id"`
		Brief       string   `json:"brief"`
		Characters  []string `json:"characters"`
		EmotionTags []string `json:"emotion_tags"`
		Function    string   `json:"function"`
	}
	var digests []sceneDigest
	for _, ch := range scenes.Chapters {
		for _, s := range ch.Scenes {
			digests = append(digests, sceneDigest{
				SceneID:     CompoundSceneID(ch.ChapterID, s.SceneID),
				Brief:       s.Brief,
				Characters:  s.Characters,
				EmotionTags: s.EmotionTags,
				Function:    s.Function,
			})
		}
	}
	digestJSON, err := json.MarshalIndent(digests, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal scene digests: %w", err)
	}

	var b strings.Builder
	b.WriteString("You are a short-video trailer director for novel adaptations.\n")
	fmt.Fprintf(&b, "Below is the full scene index of the novel %q. Plan a trailer script.\n\n", req.Title)

	b.WriteString("[Output JSON object: TrailerScript]\n")
	fmt.Fprintf(&b, "- novel_id: MUST be exactly: %q\n", req.NovelID)
	fmt.Fprintf(&b, "- title: MUST be exactly: %q\n", req.Title)
	fmt.Fprintf(&b, "- target_audience: %q\n", req.TargetAudience)
	fmt.Fprintf(&b, "- platform: MUST be exactly: %q\n", req.Platform)
	fmt.Fprintf(&b, "- max_duration_sec: MUST be exactly: %d\n", req.MaxDurationSec)
	if len(req.StyleTags) > 0 {
		fmt.Fprintf(&b, "- style_tags: %s\n", strings.Join(req.StyleTags, ", "))
	}
	fmt.Fprintf(&b, "- beats: an ORDERED array of %d to %d beat objects. Each beat has:\n", MinBeats, MaxBeats)
	b.WriteString("  - beat_id: \"B1\",\"B2\",... in playback order\n")
	b.WriteString("  - role: one of \"hook\",\"conflict\",\"escalation\",\"cliffhanger\"\n")
	b.WriteString("    STRUCTURE RULES (mandatory):\n")
	b.WriteString("    * the FIRST beat MUST have role \"hook\" and it is the ONLY hook\n")
	b.WriteString("    * the LAST beat MUST have role \"cliffhanger\" and it is the ONLY cliffhanger\n")
	b.WriteString("    * middle beats are \"conflict\" or \"escalation\"\n")
	b.WriteString("  - duration_sec: seconds for this beat (number). The SUM over all beats MUST NOT\n")
	fmt.Fprintf(&b, "    exceed %d seconds.\n", req.MaxDurationSec)
	b.WriteString("  - source_scenes: list of scene_id values COPIED EXACTLY from the scene index below.\n")
	b.WriteString("    Never invent scene ids.\n")
	b.WriteString("  - characters: main characters appearing in this beat\n")
	b.WriteString("  - logline: one punchy sentence describing the beat\n")
	b.WriteString("  - visual_idea: what the audience sees (imagery, not plot summary)\n")
	b.WriteString("  - key_moments: 2-4 short visual moments\n")
	b.WriteString("  - dialogue_or_text: 0-2 short lines of narration or on-screen text\n")
	b.WriteString("  - spoiler_level: one of \"none\",\"light\",\"medium\",\"heavy\".\n")
	b.WriteString("    Never spoil the final resolution; the cliffhanger must raise a question, not answer it.\n")
	b.WriteString("  - reasoning: one sentence on why this beat earns its place\n")
	b.WriteString("- notes_for_storyboard: optional free-form notes\n\n")

	b.WriteString("Output ONLY valid JSON.\n\n")

	b.WriteString("[SCENE INDEX START]\n")
	b.Write(digestJSON)
	b.WriteString("\n[SCENE INDEX END]\n")

	return b.String(), nil
}
