package trailertools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
)

// 关键帧派生：把每个节拍拆成 2-3 个可直接出图的静帧单元
//
// 派生不变量（NormalizeBeatKeyframes + ValidateBeatKeyframes 强制）：
//   - kf_id 格式为 KF_{beat_id}_{2位序号}，节拍内 1 起稠密编号
//   - characters 从父节拍原样继承，不采信模型的重新推断
//   - story_grounding.scene_ids 只能引用父节拍的 source_scenes
//   - dialogue_or_text 恰好一句非空短文本
//   - image_prompt 是纯内容描述，不得携带渲染风格词（见 bannedStyleTerms）

const (
	// MinKeyframesPerBeat 单节拍最少关键帧数
	MinKeyframesPerBeat = 2
	// MaxKeyframesPerBeat 单节拍最多关键帧数
	MaxKeyframesPerBeat = 3
)

// bannedStyleTerms 派生阶段禁止出现在 image_prompt 里的渲染风格词
// 风格统一交给后置的重写阶段，这里混入风格词会让全局风格失去单一出口
var bannedStyleTerms = []string{
	"photorealistic",
	"anime",
	"oil painting",
	"cinematic lighting",
	"4k",
	"8k",
	"hdr",
	"concept art",
	"illustration",
	"digital art",
	"3d",
	"film still",
	"sketch",
}

// validShotTypes 十二种合法镜头类型
var validShotTypes = map[ShotType]struct{}{
	ShotELS: {}, ShotLS: {}, ShotMLS: {}, ShotMS: {}, ShotMCU: {}, ShotCU: {},
	ShotECU: {}, ShotInsert: {}, ShotLow: {}, ShotHigh: {}, ShotBirdsEye: {}, ShotWormsEye: {},
}

// FormatKeyframeID 生成关键帧 ID（KF_B1_01 格式）
func FormatKeyframeID(beatID string, order int) string {
	return fmt.Sprintf("KF_%s_%02d", beatID, order)
}

// FindStyleTerms 返回 prompt 中出现的禁用风格词（大小写不敏感）
func FindStyleTerms(prompt string) []string {
	lower := strings.ToLower(prompt)
	var found []string
	for _, term := range bannedStyleTerms {
		if strings.Contains(lower, term) {
			found = append(found, term)
		}
	}
	return found
}

// KeyframeDeriver 关键帧派生器
type KeyframeDeriver struct {
	llmProvider LLMProvider
	retryPolicy RetryPolicy
}

// NewKeyframeDeriver 创建关键帧派生器实例
func NewKeyframeDeriver(llmProvider LLMProvider) *KeyframeDeriver {
	return &KeyframeDeriver{
		llmProvider: llmProvider,
		retryPolicy: DefaultRetryPolicy(),
	}
}

// DeriveBeatKeyframes 为单个节拍派生关键帧
// 返回的关键帧已归一化（ID、编号、角色继承）并通过校验；
// 无法解析的场景引用告警后剔除，节拍一个场景都解析不到时返回 0 个关键帧而非报错
func (d *KeyframeDeriver) DeriveBeatKeyframes(
	ctx context.Context,
	beat TrailerBeat,
	index *SceneIndex,
) (*BeatKeyframes, error) {
	if d.llmProvider == nil {
		return nil, fmt.Errorf("llmProvider is required")
	}
	if index == nil {
		return nil, fmt.Errorf("scene index is required")
	}

	var sourceRefs []string
	var sourceScenes []*Scene
	var missing []string
	for _, ref := range beat.SourceScenes {
		if s, ok := index.Resolve(ref); ok {
			sourceRefs = append(sourceRefs, ref)
			sourceScenes = append(sourceScenes, s)
		} else {
			missing = append(missing, ref)
		}
	}
	if len(missing) > 0 {
		log.Warn().
			Str("beat_id", beat.BeatID).
			Strs("missing", missing).
			Msg("节拍引用的部分场景无法解析，仅按可解析场景派生")
	}
	if len(sourceScenes) == 0 {
		log.Warn().Str("beat_id", beat.BeatID).
			Msg("节拍没有任何可解析的来源场景，产出 0 个关键帧")
		return &BeatKeyframes{
			BeatID:    beat.BeatID,
			Role:      string(beat.Role),
			Keyframes: []Keyframe{},
		}, nil
	}

	// 提示词里只暴露可解析的引用，悬空引用不进入模型视野
	promptBeat := beat
	promptBeat.SourceScenes = sourceRefs
	prompt, err := buildKeyframeDerivationPrompt(promptBeat, sourceRefs, sourceScenes)
	if err != nil {
		return nil, err
	}

	var raw string
	err = WithRetry(ctx, d.retryPolicy, beat.BeatID, func() error {
		var genErr error
		raw, genErr = d.llmProvider.Generate(ctx, prompt)
		return genErr
	})
	if err != nil {
		return nil, err
	}

	var result BeatKeyframes
	if err := UnmarshalStrict(beat.BeatID, raw, &result); err != nil {
		return nil, err
	}
	result.BeatID = beat.BeatID
	result.Role = string(beat.Role)

	NormalizeBeatKeyframes(&result, beat)
	if err := ValidateBeatKeyframes(&result, beat); err != nil {
		return nil, err
	}

	log.Info().
		Str("beat_id", beat.BeatID).
		Int("keyframes", len(result.Keyframes)).
		Msg("节拍关键帧派生完成")

	return &result, nil
}

// NormalizeBeatKeyframes 归一化关键帧的派生字段
// ID 与节拍内编号按列表位置重写；characters 从父节拍原样继承
func NormalizeBeatKeyframes(bk *BeatKeyframes, beat TrailerBeat) {
	for i := range bk.Keyframes {
		kf := &bk.Keyframes[i]
		kf.BeatID = beat.BeatID
		kf.OrderInBeat = i + 1
		kf.KFID = FormatKeyframeID(beat.BeatID, kf.OrderInBeat)
		kf.Characters = append([]string(nil), beat.Characters...)
	}
}

// ValidateBeatKeyframes 校验单节拍关键帧的派生不变量
func ValidateBeatKeyframes(bk *BeatKeyframes, beat TrailerBeat) error {
	n := len(bk.Keyframes)
	if n < MinKeyframesPerBeat || n > MaxKeyframesPerBeat {
		return fmt.Errorf("beat %s derived %d keyframes, want %d-%d",
			beat.BeatID, n, MinKeyframesPerBeat, MaxKeyframesPerBeat)
	}

	allowedScenes := make(map[string]struct{}, len(beat.SourceScenes))
	for _, id := range beat.SourceScenes {
		allowedScenes[id] = struct{}{}
	}

	for _, kf := range bk.Keyframes {
		if _, ok := validShotTypes[kf.ShotType]; !ok {
			return fmt.Errorf("keyframe %s has invalid shot_type %q", kf.KFID, kf.ShotType)
		}
		if strings.TrimSpace(kf.DialogueOrText) == "" {
			return fmt.Errorf("keyframe %s has empty dialogue_or_text", kf.KFID)
		}
		if strings.TrimSpace(kf.ImagePrompt) == "" {
			return fmt.Errorf("keyframe %s has empty image_prompt", kf.KFID)
		}
		if terms := FindStyleTerms(kf.ImagePrompt); len(terms) > 0 {
			return fmt.Errorf("keyframe %s image_prompt contains style terms: %s",
				kf.KFID, strings.Join(terms, ","))
		}
		for _, sceneID := range kf.StoryGrounding.SceneIDs {
			if _, ok := allowedScenes[sceneID]; !ok {
				return fmt.Errorf("keyframe %s grounding references scene %q outside beat %s",
					kf.KFID, sceneID, beat.BeatID)
			}
		}
	}
	return nil
}

// AssembleKeyframePlan 把各节拍的派生结果按节拍顺序拼成整条计划
func AssembleKeyframePlan(novelID, title string, beats []BeatKeyframes) *KeyframePlan {
	plan := &KeyframePlan{
		NovelID:   novelID,
		Title:     title,
		Keyframes: []Keyframe{},
	}
	for _, bk := range beats {
		plan.Keyframes = append(plan.Keyframes, bk.Keyframes...)
	}
	return plan
}

// buildKeyframeDerivationPrompt 构造单节拍关键帧派生的提示词
// 原文摘录随场景一起内嵌，保证 story_grounding 有据可引
// sourceRefs 与 sourceScenes 一一对应，只含可解析的引用
func buildKeyframeDerivationPrompt(beat TrailerBeat, sourceRefs []string, sourceScenes []*Scene) (string, error) {
	beatJSON, err := json.MarshalIndent(beat, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal beat: %w", err)
	}

	type sceneRef struct {
		SceneID      string `json:"scene_id"`
		Brief        string `json:"brief"`
		OriginalText string `json:"original_text"`
	}
	refs := make([]sceneRef, 0, len(sourceScenes))
	for i, s := range sourceScenes {
		refs = append(refs, sceneRef{
			SceneID:      sourceRefs[i],
			Brief:        s.Brief,
			OriginalText: s.OriginalText,
		})
	}
	refsJSON, err := json.MarshalIndent(refs, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal scene refs: %w", err)
	}

	var b strings.Builder
	b.WriteString("You are a storyboard artist breaking a trailer beat into still keyframes.\n\n")

	b.WriteString("[Output JSON object: BeatKeyframes]\n")
	fmt.Fprintf(&b, "- beat_id: MUST be exactly: %q\n", beat.BeatID)
	fmt.Fprintf(&b, "- role: MUST be exactly: %q\n", beat.Role)
	fmt.Fprintf(&b, "- keyframes: an ORDERED array of %d or %d keyframe objects. Each keyframe has:\n",
		MinKeyframesPerBeat, MaxKeyframesPerBeat)
	b.WriteString("  - kf_id: leave as \"\" (assigned by the system)\n")
	fmt.Fprintf(&b, "  - beat_id: %q\n", beat.BeatID)
	b.WriteString("  - order_in_beat: 1,2,... in display order\n")
	b.WriteString("  - suggested_duration_sec: seconds this frame holds on screen (number)\n")
	b.WriteString("  - shot_type: one of \"ELS\",\"LS\",\"MLS\",\"MS\",\"MCU\",\"CU\",\"ECU\",\"Insert\",\n")
	b.WriteString("               \"Low\",\"High\",\"BirdsEye\",\"WormsEye\"\n")
	b.WriteString("  - camera_angle: short camera angle description\n")
	b.WriteString("  - composition: how the frame is composed (foreground/background, framing)\n")
	b.WriteString("  - action: what is happening in the frozen moment\n")
	b.WriteString("  - emotion_tags: emotional tone of this frame\n")
	fmt.Fprintf(&b, "  - characters: MUST be exactly the beat's characters: %s\n",
		strings.Join(beat.Characters, ", "))
	b.WriteString("  - story_grounding: object with:\n")
	b.WriteString("    - scene_ids: which of the beat's source scenes this frame comes from\n")
	fmt.Fprintf(&b, "      (only values from: %s)\n", strings.Join(sourceRefs, ", "))
	b.WriteString("    - novel_lines: 1-2 sentences quoted from the scene original_text below\n")
	b.WriteString("  - dialogue_or_text: EXACTLY ONE short line of on-screen text or dialogue (non-empty)\n")
	b.WriteString("  - image_prompt: a CONTENT-ONLY description of the image: subject, pose, setting,\n")
	b.WriteString("    light direction, mood. It MUST NOT contain any rendering-style words such as:\n")
	fmt.Fprintf(&b, "    %s\n", strings.Join(bannedStyleTerms, ", "))
	b.WriteString("    Style is applied by a later unification stage.\n\n")

	b.WriteString("Output ONLY valid JSON.\n\n")

	b.WriteString("[TRAILER BEAT]\n")
	b.Write(beatJSON)
	b.WriteString("\n\n[SOURCE SCENES WITH ORIGINAL TEXT]\n")
	b.Write(refsJSON)
	b.WriteString("\n")

	return b.String(), nil
}
