package trailertools

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestAggregateCharacters(t *testing.T) {
	Convey("AggregateCharacters 跨章节合并角色证据", t, func() {
		chapters := []ChapterCharacters{
			{
				ChapterID: "v01_ch001",
				Characters: []CharacterMention{
					{CanonicalName: "沈青梧", Aliases: []string{"青梧"}, Importance: ImportanceMainProtagonist, ChapterID: "v01_ch001"},
					{CanonicalName: "萧策", Aliases: []string{"小将军"}, Importance: ImportanceSecondaryLead, ChapterID: "v01_ch001"},
				},
			},
			{
				ChapterID: "v01_ch002",
				Characters: []CharacterMention{
					{CanonicalName: "沈青梧", Aliases: []string{"沈氏", "青梧"}, Importance: ImportanceMainProtagonist, ChapterID: "v01_ch002"},
					{CanonicalName: "老管家", Importance: ImportanceMinor, ChapterID: "v01_ch002"},
				},
			},
		}

		result := AggregateCharacters(chapters)

		Convey("按 canonical_name 精确匹配分组，顺序为首次出现顺序", func() {
			So(len(result), ShouldEqual, 3)
			So(result[0].Name, ShouldEqual, "沈青梧")
			So(result[1].Name, ShouldEqual, "萧策")
			So(result[2].Name, ShouldEqual, "老管家")
		})

		Convey("别名取并集并去重，不含规范名本身", func() {
			So(result[0].Aliases, ShouldResemble, []string{"青梧", "沈氏"})
		})

		Convey("chapters_seen 去重并保持访问顺序", func() {
			So(result[0].ChaptersSeen, ShouldResemble, []string{"v01_ch001", "v01_ch002"})
			So(result[1].ChaptersSeen, ShouldResemble, []string{"v01_ch001"})
		})

		Convey("importance_counts 统计各档位提及次数", func() {
			So(result[0].ImportanceCounts[ImportanceMainProtagonist], ShouldEqual, 2)
			So(result[1].ImportanceCounts[ImportanceSecondaryLead], ShouldEqual, 1)
			So(result[2].ImportanceCounts[ImportanceMinor], ShouldEqual, 1)
		})

		Convey("原始提及记录按访问顺序保留", func() {
			So(len(result[0].Mentions), ShouldEqual, 2)
			So(result[0].Mentions[0].ChapterID, ShouldEqual, "v01_ch001")
			So(result[0].Mentions[1].ChapterID, ShouldEqual, "v01_ch002")
		})

		Convey("规范名首尾空白在分组前剔除", func() {
			padded := append(chapters, ChapterCharacters{
				ChapterID: "v01_ch003",
				Characters: []CharacterMention{
					{CanonicalName: " 沈青梧 ", Aliases: []string{" 青梧"}, Importance: ImportanceMainProtagonist, ChapterID: "v01_ch003"},
				},
			})
			merged := AggregateCharacters(padded)
			So(len(merged), ShouldEqual, 3)
			So(merged[0].Name, ShouldEqual, "沈青梧")
			So(merged[0].ImportanceCounts[ImportanceMainProtagonist], ShouldEqual, 3)
			So(merged[0].Aliases, ShouldResemble, []string{"青梧", "沈氏"})
		})

		Convey("同名异拼不合并（精确匹配分裂为两个条目）", func() {
			extra := append(chapters, ChapterCharacters{
				ChapterID: "v01_ch003",
				Characters: []CharacterMention{
					{CanonicalName: "沈 青梧", Importance: ImportanceMainProtagonist, ChapterID: "v01_ch003"},
				},
			})
			split := AggregateCharacters(extra)
			So(len(split), ShouldEqual, 4)
		})

		Convey("空或纯空白规范名的提及被跳过", func() {
			withEmpty := []ChapterCharacters{
				{ChapterID: "v01_ch001", Characters: []CharacterMention{
					{CanonicalName: ""},
					{CanonicalName: "   "},
				}},
			}
			So(len(AggregateCharacters(withEmpty)), ShouldEqual, 0)
		})
	})
}

func TestScoreCharacter(t *testing.T) {
	Convey("ScoreCharacter 按档位权重与出场广度打分", t, func() {
		c := AggregatedCharacter{
			ChaptersSeen: []string{"v01_ch001", "v01_ch002"},
			ImportanceCounts: map[Importance]int{
				ImportanceMainProtagonist: 2,
				ImportanceSecondaryLead:   1,
				ImportanceSupporting:      3,
				ImportanceMinor:           5,
			},
		}
		// 3*2 + 2*1 + 1*3 + 0.5*2 = 12；minor 不计分
		So(ScoreCharacter(c), ShouldEqual, 12.0)
	})
}

func TestSelectMainCharacters(t *testing.T) {
	Convey("SelectMainCharacters 按分数降序选出主角", t, func() {
		chars := []AggregatedCharacter{
			{Name: "甲", ChaptersSeen: []string{"c1"}, ImportanceCounts: map[Importance]int{ImportanceSupporting: 1}},
			{Name: "乙", ChaptersSeen: []string{"c1", "c2"}, ImportanceCounts: map[Importance]int{ImportanceMainProtagonist: 3}},
			{Name: "丙", ChaptersSeen: []string{"c1"}, ImportanceCounts: map[Importance]int{ImportanceSupporting: 1}},
		}

		Convey("高分在前，topN 截断", func() {
			top := SelectMainCharacters(chars, 2, 0)
			So(len(top), ShouldEqual, 2)
			So(top[0].Name, ShouldEqual, "乙")
		})

		Convey("同分保持首次出现顺序（稳定排序）", func() {
			top := SelectMainCharacters(chars, 3, 0)
			So(top[1].Name, ShouldEqual, "甲")
			So(top[2].Name, ShouldEqual, "丙")
		})

		Convey("低于 minScore 的角色即使名额未满也不入选", func() {
			lead := AggregatedCharacter{
				Name:         "乙",
				ChaptersSeen: []string{"c1", "c2"},
				ImportanceCounts: map[Importance]int{
					ImportanceMainProtagonist: 5, // 3*5 + 0.5*2 = 16
				},
			}
			walkOn := AggregatedCharacter{
				Name:         "甲",
				ChaptersSeen: []string{"c1"},
				ImportanceCounts: map[Importance]int{
					ImportanceSupporting: 1, // 1 + 0.5 = 1.5
				},
			}
			top := SelectMainCharacters([]AggregatedCharacter{lead, walkOn}, 3, 3.0)
			So(len(top), ShouldEqual, 1)
			So(top[0].Name, ShouldEqual, "乙")
		})

		Convey("minScore 非正时不过滤", func() {
			So(len(SelectMainCharacters(chars, 3, 0)), ShouldEqual, 3)
			So(len(SelectMainCharacters(chars, 3, -1)), ShouldEqual, 3)
		})

		Convey("topN 超过总数时返回全部", func() {
			So(len(SelectMainCharacters(chars, 10, 0)), ShouldEqual, 3)
		})

		Convey("topN 非正数返回空", func() {
			So(len(SelectMainCharacters(chars, 0, 3.0)), ShouldEqual, 0)
		})

		Convey("不修改原切片顺序", func() {
			_ = SelectMainCharacters(chars, 3, 0)
			So(chars[0].Name, ShouldEqual, "甲")
		})
	})
}
