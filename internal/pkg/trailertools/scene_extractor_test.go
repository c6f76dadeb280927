package trailertools

import (
	"context"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestExtractScenesForChapter(t *testing.T) {
	Convey("ExtractScenesForChapter 单章节场景抽取", t, func() {
		ch := ChapterInput{
			ChapterID:    "v01_ch001",
			ChapterTitle: "第一章 初遇",
			VolumeName:   "第一卷",
			ChapterText:  "她在宫门外第一次见到那位将军……",
		}

		Convey("合法返回被解析且 scene_id 归一化为稠密序号", func() {
			extractor := NewSceneExtractor(&fakeLLM{responses: []string{"```json\n" + `{
				"chapter_id": "乱填的",
				"chapter_title": "乱填的",
				"scenes": [
					{"scene_id":"3","chapter":"x","brief":"初遇","original_text":"她在宫门外……","characters":["沈青梧"],"emotion_tags":["tension"],"function":"first_meeting"},
					{"scene_id":"9","chapter":"x","brief":"对峙","original_text":"将军勒马……","characters":["萧策"],"emotion_tags":["suspense"],"function":"external_conflict"}
				]
			}` + "\n```"}})
			extractor.retryPolicy = fastRetry()

			result, err := extractor.ExtractScenesForChapter(context.Background(), "测试小说", "概要", "zh", ch)
			So(err, ShouldBeNil)
			So(result.ChapterID, ShouldEqual, "v01_ch001")
			So(result.ChapterTitle, ShouldEqual, "第一章 初遇")
			So(result.VolumeName, ShouldEqual, "第一卷")
			So(len(result.Scenes), ShouldEqual, 2)
			So(result.Scenes[0].SceneID, ShouldEqual, "1")
			So(result.Scenes[0].Chapter, ShouldEqual, "v01_ch001")
			So(result.Scenes[1].SceneID, ShouldEqual, "2")
		})

		Convey("空章节返回空场景列表不报错", func() {
			extractor := NewSceneExtractor(&fakeLLM{})
			empty := ch
			empty.ChapterText = "  \n "

			result, err := extractor.ExtractScenesForChapter(context.Background(), "测试小说", "概要", "zh", empty)
			So(err, ShouldBeNil)
			So(result.Scenes, ShouldBeEmpty)
			So(result.ChapterID, ShouldEqual, "v01_ch001")
		})

		Convey("内容策略拦截时返回空场景列表不报错", func() {
			extractor := NewSceneExtractor(&fakeLLM{errs: []error{
				errors.New("generation blocked by safety system"),
			}})
			extractor.retryPolicy = fastRetry()

			result, err := extractor.ExtractScenesForChapter(context.Background(), "测试小说", "概要", "zh", ch)
			So(err, ShouldBeNil)
			So(result.Scenes, ShouldBeEmpty)
		})

		Convey("非 JSON 返回报 SchemaError", func() {
			extractor := NewSceneExtractor(&fakeLLM{responses: []string{"这不是 JSON"}})
			extractor.retryPolicy = fastRetry()

			_, err := extractor.ExtractScenesForChapter(context.Background(), "测试小说", "概要", "zh", ch)
			var schemaErr *SchemaError
			So(errors.As(err, &schemaErr), ShouldBeTrue)
			So(schemaErr.Unit, ShouldEqual, "v01_ch001")
		})

		Convey("瞬时过载时退避重试后成功", func() {
			extractor := NewSceneExtractor(&fakeLLM{
				errs: []error{errors.New("503 overloaded"), nil},
				responses: []string{"",
					`{"chapter_id":"v01_ch001","chapter_title":"t","scenes":[]}`},
			})
			extractor.retryPolicy = fastRetry()

			result, err := extractor.ExtractScenesForChapter(context.Background(), "测试小说", "概要", "zh", ch)
			So(err, ShouldBeNil)
			So(result.Scenes, ShouldBeEmpty)
		})

		Convey("缺少 chapterID 时直接报错", func() {
			extractor := NewSceneExtractor(&fakeLLM{})
			bad := ch
			bad.ChapterID = ""
			_, err := extractor.ExtractScenesForChapter(context.Background(), "测试小说", "概要", "zh", bad)
			So(err, ShouldNotBeNil)
		})
	})
}
