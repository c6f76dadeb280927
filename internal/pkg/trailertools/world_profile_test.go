package trailertools

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestEnsureWardrobeRoles(t *testing.T) {
	Convey("EnsureWardrobeRoles 补齐必备角色键", t, func() {
		Convey("nil map 时补齐全部占位", func() {
			profile := &WorldProfile{}
			EnsureWardrobeRoles(profile)
			for _, role := range RequiredWardrobeRoles {
				So(profile.WardrobeGuide[role], ShouldEqual, WardrobePlaceholder)
			}
		})

		Convey("已有值保留，缺失与空白的补占位", func() {
			profile := &WorldProfile{
				WardrobeGuide: map[string]string{
					"noblewoman":    "layered silk robes in muted jade tones",
					"young_general": "   ",
					"merchants":     "plain hemp robes", // 额外键不受影响
				},
			}
			EnsureWardrobeRoles(profile)
			So(profile.WardrobeGuide["noblewoman"], ShouldEqual, "layered silk robes in muted jade tones")
			So(profile.WardrobeGuide["young_general"], ShouldEqual, WardrobePlaceholder)
			So(profile.WardrobeGuide["soldiers"], ShouldEqual, WardrobePlaceholder)
			So(profile.WardrobeGuide["imperial_officials"], ShouldEqual, WardrobePlaceholder)
			So(profile.WardrobeGuide["commoners"], ShouldEqual, WardrobePlaceholder)
			So(profile.WardrobeGuide["merchants"], ShouldEqual, "plain hemp robes")
		})
	})
}

func TestSynthesizeWorldProfile(t *testing.T) {
	Convey("SynthesizeWorldProfile 合成全书世界观档案", t, func() {
		hints := []ChapterWorldHints{
			{ChapterID: "v01_ch001", TimeAndEra: "架空古代王朝"},
			{ChapterID: "v01_ch002", GeographyAndRegion: "北境边关"},
		}

		Convey("合法返回经 wardrobe 补齐后返回", func() {
			builder := NewWorldProfileBuilder(&fakeLLM{responses: []string{`{
				"novel_name": "测试小说",
				"world_summary": "架空古代王朝的权谋故事",
				"era_label": "fictional ancient Chinese dynasty",
				"wardrobe_guide": {"noblewoman": "silk court dress"}
			}`}})
			builder.retryPolicy = fastRetry()

			profile, err := builder.SynthesizeWorldProfile(context.Background(), "测试小说", hints)
			So(err, ShouldBeNil)
			So(profile.NovelName, ShouldEqual, "测试小说")
			So(profile.WardrobeGuide["noblewoman"], ShouldEqual, "silk court dress")
			So(profile.WardrobeGuide["soldiers"], ShouldEqual, WardrobePlaceholder)
		})

		Convey("无线索时报错", func() {
			builder := NewWorldProfileBuilder(&fakeLLM{})
			_, err := builder.SynthesizeWorldProfile(context.Background(), "测试小说", nil)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestExtractChapterHints(t *testing.T) {
	Convey("ExtractChapterHints 逐章抽取世界观线索", t, func() {
		ch := ChapterInput{
			ChapterID:   "v01_ch001",
			ChapterText: "第一章 边关的雪下了三日……",
		}

		Convey("空章节返回空线索", func() {
			builder := NewWorldProfileBuilder(&fakeLLM{})
			hints, err := builder.ExtractChapterHints(context.Background(), "测试小说",
				ChapterInput{ChapterID: "v01_ch001", ChapterText: "  "})
			So(err, ShouldBeNil)
			So(hints.ChapterID, ShouldEqual, "v01_ch001")
			So(hints.TimeAndEra, ShouldEqual, "")
		})

		Convey("合法返回被解析且元信息对齐", func() {
			builder := NewWorldProfileBuilder(&fakeLLM{responses: []string{`{
				"novel_name": "别的名字",
				"chapter_id": "别的章节",
				"time_and_era": "架空古代王朝",
				"typical_locales": ["边关军营"]
			}`}})
			builder.retryPolicy = fastRetry()

			hints, err := builder.ExtractChapterHints(context.Background(), "测试小说", ch)
			So(err, ShouldBeNil)
			So(hints.NovelName, ShouldEqual, "测试小说")
			So(hints.ChapterID, ShouldEqual, "v01_ch001")
			So(hints.TimeAndEra, ShouldEqual, "架空古代王朝")
		})
	})
}
