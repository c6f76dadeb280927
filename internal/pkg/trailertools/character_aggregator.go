package trailertools

import (
	"sort"
	"strings"

	"github.com/rs/zerolog/log"
)

// 角色聚合与主角选择
//
// 合并规则：按去除首尾空白后的 canonical_name 精确匹配分组（大小写敏感）。
// 不做模糊别名合并——同一角色在不同章节用了不同规范名时会分裂成多个条目，
// 这是已知的精度缺口，换来的是结果完全可复现、不受相似度阈值影响。

// 重要度权重（档位提及次数加权求和，再加出现章节数的出场广度分）
const (
	weightMainProtagonist = 3.0
	weightSecondaryLead   = 2.0
	weightSupporting      = 1.0
	weightChapterSeen     = 0.5
)

// AggregateCharacters 跨章节合并角色提及证据
// chapters 必须按章节顺序传入；输出条目按首次出现顺序排列
func AggregateCharacters(chapters []ChapterCharacters) []AggregatedCharacter {
	byName := make(map[string]*AggregatedCharacter)
	var order []string

	for _, ch := range chapters {
		for _, m := range ch.Characters {
			name := strings.TrimSpace(m.CanonicalName)
			if name == "" {
				log.Warn().Str("chapter_id", ch.ChapterID).
					Msg("角色提及缺少规范名，跳过")
				continue
			}
			agg, ok := byName[name]
			if !ok {
				agg = &AggregatedCharacter{
					Name:             name,
					Aliases:          []string{},
					ChaptersSeen:     []string{},
					ImportanceCounts: map[Importance]int{},
					Mentions:         []CharacterMention{},
				}
				byName[name] = agg
				order = append(order, name)
			}

			for _, alias := range m.Aliases {
				alias := strings.TrimSpace(alias)
				if alias == "" || alias == agg.Name {
					continue
				}
				if !containsString(agg.Aliases, alias) {
					agg.Aliases = append(agg.Aliases, alias)
				}
			}
			if !containsString(agg.ChaptersSeen, m.ChapterID) {
				agg.ChaptersSeen = append(agg.ChaptersSeen, m.ChapterID)
			}
			agg.ImportanceCounts[m.Importance]++
			agg.Mentions = append(agg.Mentions, m)
		}
	}

	result := make([]AggregatedCharacter, 0, len(order))
	for _, name := range order {
		result = append(result, *byName[name])
	}
	return result
}

// ScoreCharacter 计算角色的综合重要度分
func ScoreCharacter(c AggregatedCharacter) float64 {
	score := weightMainProtagonist*float64(c.ImportanceCounts[ImportanceMainProtagonist]) +
		weightSecondaryLead*float64(c.ImportanceCounts[ImportanceSecondaryLead]) +
		weightSupporting*float64(c.ImportanceCounts[ImportanceSupporting])
	score += weightChapterSeen * float64(len(c.ChaptersSeen))
	return score
}

// SelectMainCharacters 按分数降序选出主角名单
// 先剔除低于 minScore 的边缘角色（minScore 非正时不过滤），再截断前 topN 个；
// 稳定排序：同分时保持首次出现顺序，保证结果可复现
func SelectMainCharacters(characters []AggregatedCharacter, topN int, minScore float64) []AggregatedCharacter {
	if topN <= 0 {
		return []AggregatedCharacter{}
	}

	sorted := make([]AggregatedCharacter, len(characters))
	copy(sorted, characters)
	sort.SliceStable(sorted, func(i, j int) bool {
		return ScoreCharacter(sorted[i]) > ScoreCharacter(sorted[j])
	})

	if minScore > 0 {
		kept := sorted[:0]
		for _, c := range sorted {
			if ScoreCharacter(c) >= minScore {
				kept = append(kept, c)
			}
		}
		sorted = kept
	}

	if topN > len(sorted) {
		topN = len(sorted)
	}
	return sorted[:topN]
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
