package trailertools

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func testSceneIndex() *SceneIndex {
	ns := &NovelScenes{
		Chapters: []ChapterScenes{
			{
				ChapterID: "v01_ch001",
				Scenes: []Scene{
					{SceneID: "1", Brief: "初遇"},
					{SceneID: "2", Brief: "冲突"},
					{SceneID: "3", Brief: "转折"},
				},
			},
			{
				ChapterID: "v01_ch002",
				Scenes: []Scene{
					{SceneID: "1", Brief: "夜谈"},
					{SceneID: "2", Brief: "决裂"},
				},
			},
		},
	}
	return BuildSceneIndex(ns)
}

func validScript() *TrailerScript {
	return &TrailerScript{
		NovelID:        "novel-1",
		Title:          "测试小说",
		Platform:       "douyin",
		MaxDurationSec: 60,
		Beats: []TrailerBeat{
			{BeatID: "B1", Role: BeatRoleHook, DurationSec: 8, SourceScenes: []string{"v01_ch001_s1"}},
			{BeatID: "B2", Role: BeatRoleConflict, DurationSec: 12, SourceScenes: []string{"v01_ch001_s2"}},
			{BeatID: "B3", Role: BeatRoleEscalation, DurationSec: 12, SourceScenes: []string{"v01_ch002_s1"}},
			{BeatID: "B4", Role: BeatRoleCliffhanger, DurationSec: 10, SourceScenes: []string{"v01_ch002_s2"}},
		},
	}
}

func TestValidateTrailerScript(t *testing.T) {
	Convey("ValidateTrailerScript 校验预告片脚本结构", t, func() {
		idx := testSceneIndex()

		Convey("合法脚本通过校验", func() {
			script := validScript()
			So(ValidateTrailerScript(script, idx), ShouldBeNil)
			So(len(script.Beats), ShouldEqual, 4)
		})

		Convey("引用悬空的节拍被整个剔除", func() {
			script := validScript()
			script.Beats = append(script.Beats[:3:3], TrailerBeat{
				BeatID: "B4", Role: BeatRoleConflict, DurationSec: 5,
				SourceScenes: []string{"v01_ch001_s2", "v09_ch099_s1"},
			}, validScript().Beats[3])

			So(ValidateTrailerScript(script, idx), ShouldBeNil)
			So(len(script.Beats), ShouldEqual, 4)
			for _, b := range script.Beats {
				So(b.SourceScenes, ShouldNotContain, "v09_ch099_s1")
			}
		})

		Convey("剔除坏节拍后少于下限时整份脚本拒绝", func() {
			script := validScript()
			script.Beats[1].SourceScenes = []string{"v09_ch099_s1"}
			So(ValidateTrailerScript(script, idx), ShouldNotBeNil)
		})

		Convey("剔除 hook 节拍后整份脚本拒绝", func() {
			script := validScript()
			script.Beats = append(script.Beats, TrailerBeat{
				BeatID: "B5", Role: BeatRoleEscalation, DurationSec: 5,
				SourceScenes: []string{"v01_ch001_s3"},
			})
			// hook 引用悬空被剔除，剩余 4 个节拍但没有 hook
			script.Beats[0].SourceScenes = []string{"v09_ch099_s1"}
			So(ValidateTrailerScript(script, idx), ShouldNotBeNil)
		})

		Convey("hook 不在首位时拒绝", func() {
			script := validScript()
			script.Beats[0].Role = BeatRoleConflict
			script.Beats[1].Role = BeatRoleHook
			So(ValidateTrailerScript(script, idx), ShouldNotBeNil)
		})

		Convey("cliffhanger 不在末位时拒绝", func() {
			script := validScript()
			script.Beats[2].Role = BeatRoleCliffhanger
			script.Beats[3].Role = BeatRoleEscalation
			So(ValidateTrailerScript(script, idx), ShouldNotBeNil)
		})

		Convey("hook 多于一个时拒绝", func() {
			script := validScript()
			script.Beats[1].Role = BeatRoleHook
			So(ValidateTrailerScript(script, idx), ShouldNotBeNil)
		})

		Convey("总时长超过上限时拒绝", func() {
			script := validScript()
			script.MaxDurationSec = 30
			So(ValidateTrailerScript(script, idx), ShouldNotBeNil)
		})

		Convey("节拍数超过上限时拒绝", func() {
			script := validScript()
			middle := TrailerBeat{Role: BeatRoleEscalation, DurationSec: 1, SourceScenes: []string{"v01_ch001_s3"}}
			script.Beats = []TrailerBeat{
				script.Beats[0], middle, middle, middle, middle, middle, script.Beats[3],
			}
			So(ValidateTrailerScript(script, idx), ShouldNotBeNil)
		})

		Convey("未知节拍角色时拒绝", func() {
			script := validScript()
			script.Beats[1].Role = BeatRole("montage")
			So(ValidateTrailerScript(script, idx), ShouldNotBeNil)
		})

		Convey("时长非正数时拒绝", func() {
			script := validScript()
			script.Beats[2].DurationSec = 0
			So(ValidateTrailerScript(script, idx), ShouldNotBeNil)
		})
	})
}

func TestPlanTrailerScript(t *testing.T) {
	Convey("PlanTrailerScript 生成并校验脚本", t, func() {
		idx := testSceneIndex()
		ns := &NovelScenes{
			Chapters: []ChapterScenes{
				{ChapterID: "v01_ch001", Scenes: []Scene{{SceneID: "1", Brief: "初遇"}, {SceneID: "2", Brief: "冲突"}, {SceneID: "3", Brief: "转折"}}},
				{ChapterID: "v01_ch002", Scenes: []Scene{{SceneID: "1", Brief: "夜谈"}, {SceneID: "2", Brief: "决裂"}}},
			},
		}

		scriptJSON := `{
			"novel_id": "novel-1",
			"title": "测试小说",
			"platform": "douyin",
			"max_duration_sec": 60,
			"beats": [
				{"beat_id":"B1","role":"hook","duration_sec":8,"source_scenes":["v01_ch001_s1"],"characters":["沈青梧"],"logline":"l1","visual_idea":"v1","key_moments":["m1","m2"],"dialogue_or_text":[],"spoiler_level":"none"},
				{"beat_id":"B2","role":"conflict","duration_sec":12,"source_scenes":["v01_ch001_s2"],"characters":["沈青梧"],"logline":"l2","visual_idea":"v2","key_moments":["m1","m2"],"dialogue_or_text":[],"spoiler_level":"light"},
				{"beat_id":"B3","role":"escalation","duration_sec":12,"source_scenes":["v01_ch002_s1"],"characters":["萧策"],"logline":"l3","visual_idea":"v3","key_moments":["m1","m2"],"dialogue_or_text":[],"spoiler_level":"medium"},
				{"beat_id":"B4","role":"cliffhanger","duration_sec":10,"source_scenes":["v01_ch002_s2"],"characters":["沈青梧","萧策"],"logline":"l4","visual_idea":"v4","key_moments":["m1","m2"],"dialogue_or_text":[],"spoiler_level":"light"}
			]
		}`

		req := PlanRequest{
			NovelID:        "novel-1",
			Title:          "测试小说",
			Platform:       "douyin",
			MaxDurationSec: 60,
		}

		Convey("合法返回被解析并通过校验", func() {
			planner := NewBeatPlanner(&fakeLLM{responses: []string{scriptJSON}})
			planner.retryPolicy = fastRetry()

			script, err := planner.PlanTrailerScript(context.Background(), req, ns, idx)
			So(err, ShouldBeNil)
			So(len(script.Beats), ShouldEqual, 4)
			So(script.Beats[0].Role, ShouldEqual, BeatRoleHook)
			So(script.NovelID, ShouldEqual, "novel-1")
		})

		Convey("markdown 代码块包裹的返回也能解析", func() {
			planner := NewBeatPlanner(&fakeLLM{responses: []string{"```json\n" + scriptJSON + "\n```"}})
			planner.retryPolicy = fastRetry()

			script, err := planner.PlanTrailerScript(context.Background(), req, ns, idx)
			So(err, ShouldBeNil)
			So(len(script.Beats), ShouldEqual, 4)
		})

		Convey("非 JSON 返回报 SchemaError 并保留原始内容", func() {
			planner := NewBeatPlanner(&fakeLLM{responses: []string{"抱歉，我不能生成"}})
			planner.retryPolicy = fastRetry()

			_, err := planner.PlanTrailerScript(context.Background(), req, ns, idx)
			So(err, ShouldNotBeNil)
			schemaErr, ok := err.(*SchemaError)
			So(ok, ShouldBeTrue)
			So(schemaErr.RawPayload, ShouldContainSubstring, "抱歉")
		})

		Convey("max_duration_sec 非正数时直接报错", func() {
			planner := NewBeatPlanner(&fakeLLM{})
			bad := req
			bad.MaxDurationSec = 0
			_, err := planner.PlanTrailerScript(context.Background(), bad, ns, idx)
			So(err, ShouldNotBeNil)
		})
	})
}
