package trailertools

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func testBeat() TrailerBeat {
	return TrailerBeat{
		BeatID:       "B2",
		Role:         BeatRoleConflict,
		DurationSec:  12,
		SourceScenes: []string{"v01_ch001_s2", "v01_ch002_s1"},
		Characters:   []string{"沈青梧", "萧策"},
	}
}

func testKeyframe(order int) Keyframe {
	return Keyframe{
		OrderInBeat:          order,
		SuggestedDurationSec: 3,
		ShotType:             ShotMS,
		CameraAngle:          "eye level",
		Composition:          "two figures facing each other",
		Action:               "对峙",
		Characters:           []string{"路人甲"}, // 模型擅自推断的角色，归一化时会被覆盖
		StoryGrounding: StoryGrounding{
			SceneIDs:   []string{"v01_ch001_s2"},
			NovelLines: []string{"她抬起头。"},
		},
		DialogueOrText: "你当真要走？",
		ImagePrompt:    "a young woman in court dress confronting a general in a torchlit hall",
	}
}

func TestFindStyleTerms(t *testing.T) {
	Convey("FindStyleTerms 检出禁用风格词", t, func() {
		So(FindStyleTerms("a woman standing in the rain"), ShouldBeNil)
		So(FindStyleTerms("Anime style, 4K, cinematic lighting"), ShouldResemble,
			[]string{"anime", "cinematic lighting", "4k"})
		So(FindStyleTerms("OIL PAINTING of a battle"), ShouldResemble, []string{"oil painting"})
	})
}

func TestFormatKeyframeID(t *testing.T) {
	Convey("FormatKeyframeID 生成 KF_{beat}_{2位序号}", t, func() {
		So(FormatKeyframeID("B1", 1), ShouldEqual, "KF_B1_01")
		So(FormatKeyframeID("B4", 12), ShouldEqual, "KF_B4_12")
	})
}

func TestNormalizeBeatKeyframes(t *testing.T) {
	Convey("NormalizeBeatKeyframes 归一化派生字段", t, func() {
		beat := testBeat()
		bk := &BeatKeyframes{
			BeatID:    beat.BeatID,
			Keyframes: []Keyframe{testKeyframe(7), testKeyframe(9)},
		}
		NormalizeBeatKeyframes(bk, beat)

		Convey("ID 与节拍内编号按列表位置重写为稠密 1 起", func() {
			So(bk.Keyframes[0].KFID, ShouldEqual, "KF_B2_01")
			So(bk.Keyframes[0].OrderInBeat, ShouldEqual, 1)
			So(bk.Keyframes[1].KFID, ShouldEqual, "KF_B2_02")
			So(bk.Keyframes[1].OrderInBeat, ShouldEqual, 2)
		})

		Convey("characters 从父节拍原样继承，覆盖模型输出", func() {
			So(bk.Keyframes[0].Characters, ShouldResemble, []string{"沈青梧", "萧策"})
			So(bk.Keyframes[1].Characters, ShouldResemble, []string{"沈青梧", "萧策"})
		})

		Convey("继承是副本，修改关键帧不影响节拍", func() {
			bk.Keyframes[0].Characters[0] = "改名"
			So(beat.Characters[0], ShouldEqual, "沈青梧")
		})
	})
}

func TestValidateBeatKeyframes(t *testing.T) {
	Convey("ValidateBeatKeyframes 校验派生不变量", t, func() {
		beat := testBeat()

		makeBK := func(kfs ...Keyframe) *BeatKeyframes {
			bk := &BeatKeyframes{BeatID: beat.BeatID, Keyframes: kfs}
			NormalizeBeatKeyframes(bk, beat)
			return bk
		}

		Convey("2-3 个合法关键帧通过校验", func() {
			So(ValidateBeatKeyframes(makeBK(testKeyframe(1), testKeyframe(2)), beat), ShouldBeNil)
			So(ValidateBeatKeyframes(makeBK(testKeyframe(1), testKeyframe(2), testKeyframe(3)), beat), ShouldBeNil)
		})

		Convey("关键帧数出界时拒绝", func() {
			So(ValidateBeatKeyframes(makeBK(testKeyframe(1)), beat), ShouldNotBeNil)
			So(ValidateBeatKeyframes(
				makeBK(testKeyframe(1), testKeyframe(2), testKeyframe(3), testKeyframe(4)), beat),
				ShouldNotBeNil)
		})

		Convey("非法镜头类型时拒绝", func() {
			kf := testKeyframe(1)
			kf.ShotType = ShotType("Dolly")
			So(ValidateBeatKeyframes(makeBK(kf, testKeyframe(2)), beat), ShouldNotBeNil)
		})

		Convey("dialogue_or_text 为空时拒绝", func() {
			kf := testKeyframe(1)
			kf.DialogueOrText = "  "
			So(ValidateBeatKeyframes(makeBK(kf, testKeyframe(2)), beat), ShouldNotBeNil)
		})

		Convey("image_prompt 含风格词时拒绝", func() {
			kf := testKeyframe(1)
			kf.ImagePrompt = "photorealistic portrait of a general"
			So(ValidateBeatKeyframes(makeBK(kf, testKeyframe(2)), beat), ShouldNotBeNil)
		})

		Convey("story_grounding 引用节拍外场景时拒绝", func() {
			kf := testKeyframe(1)
			kf.StoryGrounding.SceneIDs = []string{"v01_ch009_s1"}
			So(ValidateBeatKeyframes(makeBK(kf, testKeyframe(2)), beat), ShouldNotBeNil)
		})
	})
}

func TestDeriveBeatKeyframes(t *testing.T) {
	Convey("DeriveBeatKeyframes 派生并归一化单节拍关键帧", t, func() {
		idx := testSceneIndex()
		beat := testBeat()

		goodJSON := `{
			"beat_id": "B2",
			"role": "conflict",
			"keyframes": [
				{"kf_id":"","beat_id":"B2","order_in_beat":1,"suggested_duration_sec":3,
				 "shot_type":"MS","camera_angle":"eye level","composition":"c1","action":"a1",
				 "emotion_tags":["tension"],"characters":["错误角色"],
				 "story_grounding":{"scene_ids":["v01_ch001_s2"],"novel_lines":["她抬起头。"]},
				 "dialogue_or_text":"你当真要走？",
				 "image_prompt":"a woman confronting a general in a torchlit hall"},
				{"kf_id":"","beat_id":"B2","order_in_beat":2,"suggested_duration_sec":2,
				 "shot_type":"CU","camera_angle":"low angle","composition":"c2","action":"a2",
				 "emotion_tags":["angst"],"characters":[],
				 "story_grounding":{"scene_ids":["v01_ch002_s1"],"novel_lines":["夜色渐深。"]},
				 "dialogue_or_text":"夜还长。",
				 "image_prompt":"close up of a hand gripping a sword hilt"}
			]
		}`

		Convey("合法返回经归一化后通过校验", func() {
			deriver := NewKeyframeDeriver(&fakeLLM{responses: []string{goodJSON}})
			deriver.retryPolicy = fastRetry()

			bk, err := deriver.DeriveBeatKeyframes(context.Background(), beat, idx)
			So(err, ShouldBeNil)
			So(len(bk.Keyframes), ShouldEqual, 2)
			So(bk.Keyframes[0].KFID, ShouldEqual, "KF_B2_01")
			So(bk.Keyframes[0].Characters, ShouldResemble, []string{"沈青梧", "萧策"})
			So(bk.Keyframes[1].KFID, ShouldEqual, "KF_B2_02")
		})

		Convey("部分场景引用悬空时按可解析子集派生", func() {
			llm := &fakeLLM{responses: []string{goodJSON}}
			deriver := NewKeyframeDeriver(llm)
			deriver.retryPolicy = fastRetry()

			partial := beat
			partial.SourceScenes = []string{"v01_ch001_s2", "v01_ch002_s1", "v01_ch001_s9"}
			bk, err := deriver.DeriveBeatKeyframes(context.Background(), partial, idx)
			So(err, ShouldBeNil)
			So(len(bk.Keyframes), ShouldEqual, 2)
			// 悬空引用不进入提示词
			So(llm.prompts[0], ShouldNotContainSubstring, "v01_ch001_s9")
			So(llm.prompts[0], ShouldContainSubstring, "v01_ch001_s2")
		})

		Convey("场景引用全部悬空时返回 0 个关键帧且不调用模型", func() {
			llm := &fakeLLM{responses: []string{goodJSON}}
			deriver := NewKeyframeDeriver(llm)
			deriver.retryPolicy = fastRetry()

			orphan := beat
			orphan.SourceScenes = []string{"v09_ch099_s1"}
			bk, err := deriver.DeriveBeatKeyframes(context.Background(), orphan, idx)
			So(err, ShouldBeNil)
			So(bk.BeatID, ShouldEqual, beat.BeatID)
			So(len(bk.Keyframes), ShouldEqual, 0)
			So(llm.calls, ShouldEqual, 0)
		})
	})
}

func TestAssembleKeyframePlan(t *testing.T) {
	Convey("AssembleKeyframePlan 按节拍顺序拼接计划", t, func() {
		beats := []BeatKeyframes{
			{BeatID: "B1", Keyframes: []Keyframe{{KFID: "KF_B1_01"}, {KFID: "KF_B1_02"}}},
			{BeatID: "B2", Keyframes: []Keyframe{{KFID: "KF_B2_01"}}},
		}
		plan := AssembleKeyframePlan("novel-1", "测试小说", beats)
		So(plan.NovelID, ShouldEqual, "novel-1")
		So(len(plan.Keyframes), ShouldEqual, 3)
		So(plan.Keyframes[0].KFID, ShouldEqual, "KF_B1_01")
		So(plan.Keyframes[2].KFID, ShouldEqual, "KF_B2_01")
	})
}
