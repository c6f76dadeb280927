package trailertools

import (
	"context"
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func testStyleGuide() *TrailerStyleGuide {
	return &TrailerStyleGuide{
		NovelID: "novel-1",
		Title:   "测试小说",
		GlobalStyle: GlobalStyle{
			RenderingStyle:   "painterly ancient-Chinese drama key visual",
			LightingStyle:    "low warm candlelight",
			ColorPalette:     "ink blue and vermilion",
			EnvironmentStyle: "palace interiors with deep shadow",
		},
		Characters: []CharacterStyle{
			{Name: "沈青梧", Role: "heroine", VisualDescription: "pale noblewoman with long black hair in a dark green court dress"},
		},
	}
}

func TestRewriteKeyframe(t *testing.T) {
	Convey("RewriteKeyframe 重写单帧 prompt", t, func() {
		guide := testStyleGuide()
		kf := testKeyframe(1)
		kf.KFID = "KF_B2_01"
		kf.Characters = []string{"沈青梧"}

		Convey("成功时只替换 image_prompt，其余字段不变", func() {
			rewriter := NewPromptRewriter(&fakeLLM{responses: []string{
				"styled final prompt with palette and character description",
			}})
			rewriter.retryPolicy = fastRetry()

			styled, err := rewriter.RewriteKeyframe(context.Background(), kf, guide)
			So(err, ShouldBeNil)
			So(styled.ImagePrompt, ShouldEqual, "styled final prompt with palette and character description")
			So(styled.KFID, ShouldEqual, kf.KFID)
			So(styled.ShotType, ShouldEqual, kf.ShotType)
			So(styled.DialogueOrText, ShouldEqual, kf.DialogueOrText)
			So(styled.Characters, ShouldResemble, kf.Characters)
			// 原帧不被修改
			So(kf.ImagePrompt, ShouldEqual, testKeyframe(1).ImagePrompt)
		})

		Convey("提示词注入全局风格与帧内角色的规范描述", func() {
			llm := &fakeLLM{responses: []string{"ok"}}
			rewriter := NewPromptRewriter(llm)
			rewriter.retryPolicy = fastRetry()

			_, err := rewriter.RewriteKeyframe(context.Background(), kf, guide)
			So(err, ShouldBeNil)
			So(llm.prompts[0], ShouldContainSubstring, "ink blue and vermilion")
			So(llm.prompts[0], ShouldContainSubstring, "dark green court dress")
			So(llm.prompts[0], ShouldContainSubstring, kf.ImagePrompt)
		})

		Convey("提示词强制手绘插画表述并覆盖内容里的风格词", func() {
			llm := &fakeLLM{responses: []string{"ok"}}
			rewriter := NewPromptRewriter(llm)
			rewriter.retryPolicy = fastRetry()

			_, err := rewriter.RewriteKeyframe(context.Background(), kf, guide)
			So(err, ShouldBeNil)
			So(llm.prompts[0], ShouldContainSubstring, "hand-painted digital illustration")
			So(llm.prompts[0], ShouldContainSubstring, "photograph")
			So(llm.prompts[0], ShouldContainSubstring, "film still")
			So(llm.prompts[0], ShouldContainSubstring, "overrides any style wording")
		})

		Convey("内容策略拦截时保留原 prompt 不报错", func() {
			rewriter := NewPromptRewriter(&fakeLLM{errs: []error{
				errors.New("request rejected: content policy violation"),
			}})
			rewriter.retryPolicy = fastRetry()

			styled, err := rewriter.RewriteKeyframe(context.Background(), kf, guide)
			So(err, ShouldBeNil)
			So(styled.ImagePrompt, ShouldEqual, kf.ImagePrompt)
		})

		Convey("重写结果为空时保留原 prompt", func() {
			rewriter := NewPromptRewriter(&fakeLLM{responses: []string{"   "}})
			rewriter.retryPolicy = fastRetry()

			styled, err := rewriter.RewriteKeyframe(context.Background(), kf, guide)
			So(err, ShouldBeNil)
			So(styled.ImagePrompt, ShouldEqual, kf.ImagePrompt)
		})

		Convey("已统一风格的帧再次重写是不动点", func() {
			styledPrompt := "hand-painted illustration of a noblewoman in a torchlit hall, ink blue palette"
			first := NewPromptRewriter(&fakeLLM{responses: []string{styledPrompt}})
			first.retryPolicy = fastRetry()

			styled, err := first.RewriteKeyframe(context.Background(), kf, guide)
			So(err, ShouldBeNil)
			So(styled.ImagePrompt, ShouldEqual, styledPrompt)

			llm := &fakeLLM{responses: []string{styledPrompt}}
			second := NewPromptRewriter(llm)
			second.retryPolicy = fastRetry()

			restyled, err := second.RewriteKeyframe(context.Background(), styled, guide)
			So(err, ShouldBeNil)
			// 第二轮以已统一的 prompt 为内容输入
			So(llm.prompts[0], ShouldContainSubstring, styledPrompt)
			So(restyled.ImagePrompt, ShouldEqual, styled.ImagePrompt)

			// prompt 之外的派生字段逐位不变
			a, b := restyled, styled
			a.ImagePrompt, b.ImagePrompt = "", ""
			So(a, ShouldResemble, b)
		})

		Convey("其他错误原样返回", func() {
			rewriter := NewPromptRewriter(&fakeLLM{errs: []error{errors.New("connection refused")}})
			rewriter.retryPolicy = fastRetry()

			_, err := rewriter.RewriteKeyframe(context.Background(), kf, guide)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestRewritePlan(t *testing.T) {
	Convey("RewritePlan 整批重写，单帧失败不终止", t, func() {
		guide := testStyleGuide()
		kf1 := testKeyframe(1)
		kf1.KFID = "KF_B1_01"
		kf2 := testKeyframe(2)
		kf2.KFID = "KF_B1_02"
		plan := &KeyframePlan{
			NovelID:   "novel-1",
			Title:     "测试小说",
			Keyframes: []Keyframe{kf1, kf2},
		}

		Convey("全部成功时每帧拿到新 prompt", func() {
			rewriter := NewPromptRewriter(&fakeLLM{responses: []string{"styled-1", "styled-2"}})
			rewriter.retryPolicy = fastRetry()

			out, err := rewriter.RewritePlan(context.Background(), plan, guide)
			So(err, ShouldBeNil)
			So(out.Keyframes[0].ImagePrompt, ShouldEqual, "styled-1")
			So(out.Keyframes[1].ImagePrompt, ShouldEqual, "styled-2")
			// 原计划不被修改
			So(plan.Keyframes[0].ImagePrompt, ShouldEqual, kf1.ImagePrompt)
		})

		Convey("单帧失败时该帧保留原 prompt，整批继续", func() {
			rewriter := NewPromptRewriter(&fakeLLM{
				responses: []string{"", "styled-2"},
				errs:      []error{errors.New("connection refused"), nil},
			})
			rewriter.retryPolicy = fastRetry()

			out, err := rewriter.RewritePlan(context.Background(), plan, guide)
			So(err, ShouldBeNil)
			So(out.Keyframes[0].ImagePrompt, ShouldEqual, kf1.ImagePrompt)
			So(out.Keyframes[1].ImagePrompt, ShouldEqual, "styled-2")
		})
	})
}
