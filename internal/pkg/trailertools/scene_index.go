package trailertools

import (
	"fmt"
	"strings"
)

// 复合场景 ID 方案
// chapter_id 格式为 v{卷:02d}_ch{章:03d}，scene_id 为章节内序号字符串
// 复合引用 = "{chapter_id}_s{scene_id}"，是全书唯一的场景引用形式
// 场景抽取、节拍规划引用、关键帧派生解析三处必须使用同一套组合函数

// FormatChapterID 生成全局章节 ID，如 FormatChapterID(1, 1) == "v01_ch001"
func FormatChapterID(volume, chapter int) string {
	return fmt.Sprintf("v%02d_ch%03d", volume, chapter)
}

// CompoundSceneID 组合章节 ID 与章节内场景序号为全局唯一引用
// 纯函数：CompoundSceneID("v01_ch001", "4") == "v01_ch001_s4"
func CompoundSceneID(chapterID, sceneID string) string {
	return fmt.Sprintf("%s_s%s", chapterID, sceneID)
}

// SceneIndex 场景索引：复合 ID / 裸 scene_id → Scene
// 裸 ID 查询仅用于向后兼容旧脚本引用；裸 ID 跨章节有歧义，
// 复合形式与裸形式同时命中时必须优先复合形式
type SceneIndex struct {
	compound map[string]*Scene
	bare     map[string]*Scene
	order    []string // 复合 ID 的插入顺序，用于确定性遍历
}

// BuildSceneIndex 把 NovelScenes 里的所有场景摊平成索引
func BuildSceneIndex(ns *NovelScenes) *SceneIndex {
	idx := &SceneIndex{
		compound: make(map[string]*Scene),
		bare:     make(map[string]*Scene),
	}
	if ns == nil {
		return idx
	}
	for ci := range ns.Chapters {
		ch := &ns.Chapters[ci]
		for si := range ch.Scenes {
			s := &ch.Scenes[si]
			if strings.TrimSpace(s.SceneID) == "" {
				continue
			}
			if ch.ChapterID != "" {
				key := CompoundSceneID(ch.ChapterID, s.SceneID)
				if _, dup := idx.compound[key]; !dup {
					idx.compound[key] = s
					idx.order = append(idx.order, key)
				}
			}
			// 裸 ID 后写覆盖先写，与歧义语义一致：只有复合形式可靠
			idx.bare[s.SceneID] = s
		}
	}
	return idx
}

// Resolve 解析一个场景引用，复合形式优先于裸 scene_id
func (idx *SceneIndex) Resolve(ref string) (*Scene, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, false
	}
	if s, ok := idx.compound[ref]; ok {
		return s, true
	}
	if s, ok := idx.bare[ref]; ok {
		return s, true
	}
	return nil, false
}

// ResolveAll 批量解析，返回命中的场景与未解析的引用列表
func (idx *SceneIndex) ResolveAll(refs []string) (scenes []*Scene, missing []string) {
	for _, ref := range refs {
		if s, ok := idx.Resolve(ref); ok {
			scenes = append(scenes, s)
		} else {
			missing = append(missing, ref)
		}
	}
	return scenes, missing
}

// Len 复合 ID 数量
func (idx *SceneIndex) Len() int {
	return len(idx.compound)
}

// CompoundIDs 按插入顺序返回全部复合 ID
func (idx *SceneIndex) CompoundIDs() []string {
	out := make([]string, len(idx.order))
	copy(out, idx.order)
	return out
}
