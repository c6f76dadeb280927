package trailertools

// 本包是预告片生成流水线的纯逻辑层
// 设计原则：
//   - 不负责落库 / 不依赖 HTTP / 不操作资源，只负责数据结构、ID 组合、聚合与校验
//   - 具体的「如何调用大模型」由调用方通过 LLMProvider 注入，方便单测和替换实现
// 各阶段之间的 JSON 字段即为持久化产物的线上契约，必须可无损往返

// Scene 场景：一个章节内部的一个独立叙事单元
// scene_id 仅在章节内唯一，全局引用必须使用复合 ID（见 CompoundSceneID）
type Scene struct {
	SceneID      string   `bson:"scene_id" json:"scene_id"`           // 章节内序号（字符串，"1","2",...）
	Chapter      string   `bson:"chapter" json:"chapter"`             // 所属章节 ID（如 "v01_ch001"）
	Brief        string   `bson:"brief" json:"brief"`                 // 一两句话的场景概述
	OriginalText string   `bson:"original_text" json:"original_text"` // 原文摘录（有长度上限，最多 5 句）
	Characters   []string `bson:"characters" json:"characters"`       // 场景中出现的重要角色名
	EmotionTags  []string `bson:"emotion_tags" json:"emotion_tags"`   // 情绪标签，如 ["angst","suspense"]
	Function     string   `bson:"function" json:"function"`           // 叙事功能标签（first_meeting/foreshadowing/climax 等）
}

// ChapterScenes 单章节的场景抽取结果
type ChapterScenes struct {
	ChapterID    string  `bson:"chapter_id" json:"chapter_id"`
	ChapterTitle string  `bson:"chapter_title" json:"chapter_title"`
	VolumeName   string  `bson:"volume_name,omitempty" json:"volume_name,omitempty"`
	Scenes       []Scene `bson:"scenes" json:"scenes"`
}

// NovelScenes 整本小说的场景索引（scene 抽取阶段的最终产物）
type NovelScenes struct {
	NovelID  string          `bson:"novel_id" json:"novel_id"`
	Title    string          `bson:"title,omitempty" json:"title,omitempty"`
	Author   string          `bson:"author,omitempty" json:"author,omitempty"`
	Language string          `bson:"language,omitempty" json:"language,omitempty"`
	Chapters []ChapterScenes `bson:"chapters" json:"chapters"`
}

// TraitCategory 角色特征片段的类别
type TraitCategory string

const (
	TraitPhysicalAppearance TraitCategory = "physical_appearance" // 身材、脸型、五官、年龄感
	TraitTemperament        TraitCategory = "temperament"         // 气质、神态、给人的感觉
	TraitHairstyle          TraitCategory = "hairstyle"           // 头发长度、颜色、发型
	TraitClothing           TraitCategory = "clothing"            // 服饰风格、材质、颜色
	TraitStatus             TraitCategory = "status"              // 身份地位、当前状态（病重、负伤等）
	TraitOther              TraitCategory = "other"               // 其他人物相关描述
)

// Importance 角色重要度档位（逐章判断，聚合阶段加权求和）
type Importance string

const (
	ImportanceMainProtagonist Importance = "main_protagonist" // 绝对主角
	ImportanceSecondaryLead   Importance = "secondary_lead"   // 重要配角 / 双主角
	ImportanceSupporting      Importance = "supporting"       // 普通配角
	ImportanceMinor           Importance = "minor"            // 路人角色
)

// TraitSnippet 一条带原文出处的角色特征
type TraitSnippet struct {
	Category     TraitCategory `bson:"category" json:"category"`
	OriginalText string        `bson:"original_text" json:"original_text"` // 章节原文引述
	Normalized   string        `bson:"normalized" json:"normalized"`       // 归一化后的简短描述
}

// CharacterMention 单章节内某个角色的出现证据
// canonical_name 是章节内的规范名猜测；跨章节同一性由聚合器处理，抽取阶段不做
type CharacterMention struct {
	CanonicalName      string         `bson:"canonical_name" json:"canonical_name"`
	Aliases            []string       `bson:"aliases" json:"aliases"`
	Importance         Importance     `bson:"importance" json:"importance"`
	ChapterID          string         `bson:"chapter_id" json:"chapter_id"`
	ChapterRoleSummary string         `bson:"chapter_role_summary" json:"chapter_role_summary"`
	TraitSnippets      []TraitSnippet `bson:"trait_snippets" json:"trait_snippets"`
}

// ChapterCharacters 单章节的角色抽取结果
type ChapterCharacters struct {
	ChapterID  string             `bson:"chapter_id" json:"chapter_id"`
	Characters []CharacterMention `bson:"characters" json:"characters"`
}

// AggregatedCharacter 跨章节合并后的角色身份（聚合器产物）
// 按 canonical_name 精确匹配分组；同名异拼会分裂成两个条目，这是已知的精度缺口
type AggregatedCharacter struct {
	Name             string             `bson:"name" json:"name"`
	Aliases          []string           `bson:"aliases" json:"aliases"`                     // 去重后的别名并集（按首次出现排序）
	ChaptersSeen     []string           `bson:"chapters_seen" json:"chapters_seen"`         // 出现过的章节 ID（去重，按访问顺序）
	ImportanceCounts map[Importance]int `bson:"importance_counts" json:"importance_counts"` // 各档位的提及次数
	Mentions         []CharacterMention `bson:"mentions" json:"mentions"`                   // 原始提及记录（章节访问顺序）
}

// CharacterBaseProfile 主角基底特征（第二轮合成产物，供立绘与关键帧使用）
type CharacterBaseProfile struct {
	NovelName           string              `bson:"novel_name" json:"novel_name"`
	CharacterName       string              `bson:"character_name" json:"character_name"`
	Aliases             []string            `bson:"aliases" json:"aliases"`
	CoreAppearance      map[string]string   `bson:"core_appearance" json:"core_appearance"`           // 稳定外貌：age_range/body_type/face/hair
	BaselineOutfit      map[string]string   `bson:"baseline_outfit" json:"baseline_outfit"`           // 常规服装：style/materials/colours
	TemperamentBaseline []string            `bson:"temperament_baseline" json:"temperament_baseline"` // 稳定气质关键词
	SceneVariants       []map[string]string `bson:"scene_variants" json:"scene_variants"`             // 特定情境的变体（可为空）
	SupportingQuotes    []string            `bson:"supporting_quotes" json:"supporting_quotes"`       // 支撑性原文引述
}

// ChapterWorldHints 单章节的世界观线索（字段集合与 WorldProfile 相同，章节尺度）
type ChapterWorldHints struct {
	NovelName          string            `bson:"novel_name" json:"novel_name"`
	ChapterID          string            `bson:"chapter_id" json:"chapter_id"`
	TimeAndEra         string            `bson:"time_and_era" json:"time_and_era"`
	GeographyAndRegion string            `bson:"geography_and_region" json:"geography_and_region"`
	SocialStructure    string            `bson:"social_structure" json:"social_structure"`
	TechAndWarfare     string            `bson:"tech_and_warfare" json:"tech_and_warfare"`
	TypicalLocales     []string          `bson:"typical_locales" json:"typical_locales"`
	ClothingWardrobe   map[string]string `bson:"clothing_and_wardrobe" json:"clothing_and_wardrobe"`
	ColorAndMood       string            `bson:"color_and_mood" json:"color_and_mood"`
	VisualMotifs       []string          `bson:"visual_motifs" json:"visual_motifs"`
	GlobalStyle        string            `bson:"global_style" json:"global_style"`
}

// WorldProfile 全书唯一的世界观档案（合成后视为不可变常量）
type WorldProfile struct {
	NovelName       string            `bson:"novel_name" json:"novel_name"`
	WorldSummary    string            `bson:"world_summary" json:"world_summary"`
	EraLabel        string            `bson:"era_label" json:"era_label"`
	RegionStyle     string            `bson:"region_style" json:"region_style"`
	TechLevel       string            `bson:"tech_level" json:"tech_level"`
	SocialStructure string            `bson:"social_structure" json:"social_structure"`
	TypicalLocales  []string          `bson:"typical_locales" json:"typical_locales"`
	WardrobeGuide   map[string]string `bson:"wardrobe_guide" json:"wardrobe_guide"` // 至少包含 RequiredWardrobeRoles 中的全部角色键
	ColorAndMood    string            `bson:"color_and_mood" json:"color_and_mood"`
	VisualMotifs    []string          `bson:"visual_motifs" json:"visual_motifs"`
	GlobalStyle     string            `bson:"global_style" json:"global_style"` // 注入所有下游图片 prompt 的全局风格文本
}

// BeatRole 预告片节拍在叙事弧线中的位置
type BeatRole string

const (
	BeatRoleHook        BeatRole = "hook"
	BeatRoleConflict    BeatRole = "conflict"
	BeatRoleEscalation  BeatRole = "escalation"
	BeatRoleCliffhanger BeatRole = "cliffhanger"
)

// SpoilerLevel 剧透程度
type SpoilerLevel string

const (
	SpoilerNone   SpoilerLevel = "none"
	SpoilerLight  SpoilerLevel = "light"
	SpoilerMedium SpoilerLevel = "medium"
	SpoilerHeavy  SpoilerLevel = "heavy"
)

// TrailerBeat 预告片的一个叙事节拍（4-6 个，hook→conflict→escalation→cliffhanger）
type TrailerBeat struct {
	BeatID         string       `bson:"beat_id" json:"beat_id"` // "B1".."B6"
	Role           BeatRole     `bson:"role" json:"role"`
	DurationSec    float64      `bson:"duration_sec" json:"duration_sec"`
	SourceScenes   []string     `bson:"source_scenes" json:"source_scenes"` // 复合场景 ID（必须能在场景索引中解析）
	Characters     []string     `bson:"characters" json:"characters"`       // 节拍中出现的主要角色名
	Logline        string       `bson:"logline" json:"logline"`
	VisualIdea     string       `bson:"visual_idea" json:"visual_idea"`
	KeyMoments     []string     `bson:"key_moments" json:"key_moments"`           // 2-4 个关键画面
	DialogueOrText []string     `bson:"dialogue_or_text" json:"dialogue_or_text"` // 0-2 句旁白
	SpoilerLevel   SpoilerLevel `bson:"spoiler_level" json:"spoiler_level"`
	Reasoning      string       `bson:"reasoning,omitempty" json:"reasoning,omitempty"`
}

// TrailerScript 预告片脚本（节拍规划阶段的最终产物）
type TrailerScript struct {
	NovelID            string        `bson:"novel_id" json:"novel_id"`
	Title              string        `bson:"title" json:"title"`
	TargetAudience     string        `bson:"target_audience,omitempty" json:"target_audience,omitempty"`
	Platform           string        `bson:"platform" json:"platform"` // douyin/bilibili/tiktok/youtube_short
	MaxDurationSec     int           `bson:"max_duration_sec" json:"max_duration_sec"`
	StyleTags          []string      `bson:"style_tags,omitempty" json:"style_tags,omitempty"`
	Beats              []TrailerBeat `bson:"beats" json:"beats"` // 有序，列表位置即放映顺序
	NotesForStoryboard string        `bson:"notes_for_storyboard,omitempty" json:"notes_for_storyboard,omitempty"`
}

// ShotType 十二种电影镜头类型
type ShotType string

const (
	ShotELS      ShotType = "ELS"
	ShotLS       ShotType = "LS"
	ShotMLS      ShotType = "MLS"
	ShotMS       ShotType = "MS"
	ShotMCU      ShotType = "MCU"
	ShotCU       ShotType = "CU"
	ShotECU      ShotType = "ECU"
	ShotInsert   ShotType = "Insert"
	ShotLow      ShotType = "Low"
	ShotHigh     ShotType = "High"
	ShotBirdsEye ShotType = "BirdsEye"
	ShotWormsEye ShotType = "WormsEye"
)

// StoryGrounding 关键帧回溯到小说原文的证据
type StoryGrounding struct {
	SceneIDs   []string `bson:"scene_ids" json:"scene_ids"`     // 复合场景 ID
	NovelLines []string `bson:"novel_lines" json:"novel_lines"` // 1-2 句原文关键语句
}

// Keyframe 节拍内的一个静帧单元（每个节拍 2-3 个）
// 派生内容在创建后冻结，唯一例外是 image_prompt：
// 风格统一阶段通过 WithImagePrompt 产生替换了 prompt 的副本，而不是原地修改，
// 这样不变量校验可以表达成纯函数（所有权从派生器移交给重写器）
type Keyframe struct {
	KFID                 string         `bson:"kf_id" json:"kf_id"`       // 格式 KF_{beat_id}_{2位序号}，全局唯一
	BeatID               string         `bson:"beat_id" json:"beat_id"`   // 回指所属节拍
	OrderInBeat          int            `bson:"order_in_beat" json:"order_in_beat"` // 节拍内 1 起稠密编号
	SuggestedDurationSec float64        `bson:"suggested_duration_sec" json:"suggested_duration_sec"`
	ShotType             ShotType       `bson:"shot_type" json:"shot_type"`
	CameraAngle          string         `bson:"camera_angle" json:"camera_angle"`
	Composition          string         `bson:"composition" json:"composition"`
	Action               string         `bson:"action" json:"action"`
	EmotionTags          []string       `bson:"emotion_tags" json:"emotion_tags"`
	Characters           []string       `bson:"characters" json:"characters"` // 从父节拍原样继承，不重新推断
	StoryGrounding       StoryGrounding `bson:"story_grounding" json:"story_grounding"`
	DialogueOrText       string         `bson:"dialogue_or_text" json:"dialogue_or_text"` // 恰好一句短文本，必填非空
	ImagePrompt          string         `bson:"image_prompt" json:"image_prompt"`         // 派生阶段为纯内容描述，禁止风格词
}

// WithImagePrompt 返回替换了 image_prompt 的副本，其余字段保持不变
func (k Keyframe) WithImagePrompt(prompt string) Keyframe {
	k.ImagePrompt = prompt
	return k
}

// BeatKeyframes 单节拍的关键帧派生结果（LLM 输出的中间结构）
type BeatKeyframes struct {
	BeatID    string     `bson:"beat_id" json:"beat_id"`
	Role      string     `bson:"role" json:"role"`
	Keyframes []Keyframe `bson:"keyframes" json:"keyframes"`
}

// KeyframePlan 整条预告片的关键帧计划（派生阶段与风格化阶段共用的产物格式）
type KeyframePlan struct {
	NovelID   string     `bson:"novel_id" json:"novel_id"`
	Title     string     `bson:"title" json:"title"`
	Keyframes []Keyframe `bson:"keyframes" json:"keyframes"`
}

// CharacterStyle 某个角色在整条预告片中的规范视觉描述
type CharacterStyle struct {
	Name              string `bson:"name" json:"name"`
	Role              string `bson:"role" json:"role"` // 简短角色标签：heroine/young general/rival 等
	VisualDescription string `bson:"visual_description" json:"visual_description"`
}

// GlobalStyle 预告片全局渲染规则
type GlobalStyle struct {
	RenderingStyle   string `bson:"rendering_style" json:"rendering_style"`
	LightingStyle    string `bson:"lighting_style" json:"lighting_style"`
	ColorPalette     string `bson:"color_palette" json:"color_palette"`
	EnvironmentStyle string `bson:"environment_style" json:"environment_style"`
	Notes            string `bson:"notes" json:"notes"`
}

// TrailerStyleGuide 单条预告片唯一的风格指南
// 合成后不可变，重写器只读取不修改
type TrailerStyleGuide struct {
	NovelID     string           `bson:"novel_id" json:"novel_id"`
	Title       string           `bson:"title" json:"title"`
	GlobalStyle GlobalStyle      `bson:"global_style" json:"global_style"`
	Characters  []CharacterStyle `bson:"characters" json:"characters"` // 覆盖所有关键帧引用到的角色（尽力而为）
}

// CharacterNames 收集所有关键帧引用过的角色名（去重，按首次出现排序）
func (p *KeyframePlan) CharacterNames() []string {
	seen := make(map[string]struct{})
	var names []string
	for _, kf := range p.Keyframes {
		for _, c := range kf.Characters {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			names = append(names, c)
		}
	}
	return names
}

// FindCharacter 按角色名查找风格条目
func (g *TrailerStyleGuide) FindCharacter(name string) (CharacterStyle, bool) {
	for _, c := range g.Characters {
		if c.Name == name {
			return c, true
		}
	}
	return CharacterStyle{}, false
}
