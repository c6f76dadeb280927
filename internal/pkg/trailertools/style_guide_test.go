package trailertools

import (
	"context"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func testKeyframePlan() *KeyframePlan {
	kf1 := testKeyframe(1)
	kf1.KFID = "KF_B1_01"
	kf1.Characters = []string{"沈青梧"}
	kf2 := testKeyframe(2)
	kf2.KFID = "KF_B2_01"
	kf2.Characters = []string{"沈青梧", "萧策"}
	return &KeyframePlan{
		NovelID:   "novel-1",
		Title:     "测试小说",
		Keyframes: []Keyframe{kf1, kf2},
	}
}

func TestCheckCharacterCoverage(t *testing.T) {
	Convey("CheckCharacterCoverage 找出风格指南未覆盖的角色", t, func() {
		plan := testKeyframePlan()

		Convey("全覆盖时返回空", func() {
			guide := &TrailerStyleGuide{Characters: []CharacterStyle{
				{Name: "沈青梧", VisualDescription: "d1"},
				{Name: "萧策", VisualDescription: "d2"},
			}}
			So(CheckCharacterCoverage(guide, plan), ShouldBeEmpty)
		})

		Convey("缺失角色被列出", func() {
			guide := &TrailerStyleGuide{Characters: []CharacterStyle{
				{Name: "沈青梧", VisualDescription: "d1"},
			}}
			So(CheckCharacterCoverage(guide, plan), ShouldResemble, []string{"萧策"})
		})
	})
}

func TestBuildStyleGuide(t *testing.T) {
	Convey("BuildStyleGuide 从整条关键帧计划合成风格指南", t, func() {
		plan := testKeyframePlan()

		Convey("合法返回被解析且元信息对齐", func() {
			llm := &fakeLLM{responses: []string{`{
				"novel_id": "乱填的",
				"title": "乱填的",
				"global_style": {
					"rendering_style": "painterly drama key visual",
					"lighting_style": "low candlelight",
					"color_palette": "ink blue and vermilion",
					"environment_style": "palace interiors"
				},
				"characters": [
					{"name": "沈青梧", "role": "heroine", "visual_description": "d1"},
					{"name": "萧策", "role": "young general", "visual_description": "d2"}
				]
			}`}}
			builder := NewStyleGuideBuilder(llm)
			builder.retryPolicy = fastRetry()

			guide, err := builder.BuildStyleGuide(context.Background(), plan, nil, nil)
			So(err, ShouldBeNil)
			So(guide.NovelID, ShouldEqual, "novel-1")
			So(guide.Title, ShouldEqual, "测试小说")
			So(guide.GlobalStyle.ColorPalette, ShouldEqual, "ink blue and vermilion")
			So(len(guide.Characters), ShouldEqual, 2)
		})

		Convey("提示词携带全部关键帧与被引用角色名单", func() {
			llm := &fakeLLM{responses: []string{`{
				"global_style": {"rendering_style": "r"},
				"characters": [
					{"name": "沈青梧", "visual_description": "d1"},
					{"name": "萧策", "visual_description": "d2"}
				]
			}`}}
			builder := NewStyleGuideBuilder(llm)
			builder.retryPolicy = fastRetry()

			_, err := builder.BuildStyleGuide(context.Background(), plan, nil, nil)
			So(err, ShouldBeNil)
			So(llm.prompts[0], ShouldContainSubstring, "KF_B1_01")
			So(llm.prompts[0], ShouldContainSubstring, "KF_B2_01")
			So(llm.prompts[0], ShouldContainSubstring, "沈青梧, 萧策")
		})

		Convey("世界观档案与人物档案注入提示词", func() {
			llm := &fakeLLM{responses: []string{`{
				"global_style": {"rendering_style": "r"},
				"characters": [
					{"name": "沈青梧", "visual_description": "d1"},
					{"name": "萧策", "visual_description": "d2"}
				]
			}`}}
			builder := NewStyleGuideBuilder(llm)
			builder.retryPolicy = fastRetry()

			wp := &WorldProfile{NovelName: "测试小说", EraLabel: "fictional ancient dynasty"}
			profiles := []CharacterBaseProfile{{
				CharacterName:  "沈青梧",
				CoreAppearance: map[string]string{"hair": "long black hair"},
			}}

			_, err := builder.BuildStyleGuide(context.Background(), plan, wp, profiles)
			So(err, ShouldBeNil)
			So(llm.prompts[0], ShouldContainSubstring, "fictional ancient dynasty")
			So(llm.prompts[0], ShouldContainSubstring, "long black hair")
		})

		Convey("覆盖缺口只是软约束，不影响返回", func() {
			llm := &fakeLLM{responses: []string{`{
				"global_style": {"rendering_style": "r"},
				"characters": [{"name": "沈青梧", "visual_description": "d1"}]
			}`}}
			builder := NewStyleGuideBuilder(llm)
			builder.retryPolicy = fastRetry()

			guide, err := builder.BuildStyleGuide(context.Background(), plan, nil, nil)
			So(err, ShouldBeNil)
			So(len(guide.Characters), ShouldEqual, 1)
		})

		Convey("空计划报错", func() {
			builder := NewStyleGuideBuilder(&fakeLLM{})
			_, err := builder.BuildStyleGuide(context.Background(), &KeyframePlan{}, nil, nil)
			So(err, ShouldNotBeNil)
		})

		Convey("非 JSON 返回报 SchemaError", func() {
			builder := NewStyleGuideBuilder(&fakeLLM{responses: []string{"不是 JSON"}})
			builder.retryPolicy = fastRetry()

			_, err := builder.BuildStyleGuide(context.Background(), plan, nil, nil)
			var schemaErr *SchemaError
			So(errors.As(err, &schemaErr), ShouldBeTrue)
		})
	})
}
