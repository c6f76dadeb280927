package trailertools

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestFormatChapterID(t *testing.T) {
	Convey("FormatChapterID 生成卷章复合 ID", t, func() {
		So(FormatChapterID(1, 1), ShouldEqual, "v01_ch001")
		So(FormatChapterID(2, 34), ShouldEqual, "v02_ch034")
		So(FormatChapterID(12, 345), ShouldEqual, "v12_ch345")
	})
}

func TestCompoundSceneID(t *testing.T) {
	Convey("CompoundSceneID 组合章节与场景序号", t, func() {
		So(CompoundSceneID("v01_ch001", "4"), ShouldEqual, "v01_ch001_s4")
		So(CompoundSceneID("v02_ch010", "12"), ShouldEqual, "v02_ch010_s12")
	})
}

func TestSceneIndex(t *testing.T) {
	Convey("SceneIndex 场景索引的构建与解析", t, func() {
		ns := &NovelScenes{
			NovelID: "novel-1",
			Chapters: []ChapterScenes{
				{
					ChapterID: "v01_ch001",
					Scenes: []Scene{
						{SceneID: "1", Chapter: "v01_ch001", Brief: "初遇"},
						{SceneID: "2", Chapter: "v01_ch001", Brief: "冲突"},
					},
				},
				{
					ChapterID: "v01_ch002",
					Scenes: []Scene{
						// 裸 scene_id "1" 跨章节重复
						{SceneID: "1", Chapter: "v01_ch002", Brief: "夜谈"},
					},
				},
			},
		}
		idx := BuildSceneIndex(ns)

		Convey("复合 ID 数量与插入顺序", func() {
			So(idx.Len(), ShouldEqual, 3)
			So(idx.CompoundIDs(), ShouldResemble, []string{
				"v01_ch001_s1", "v01_ch001_s2", "v01_ch002_s1",
			})
		})

		Convey("复合形式解析命中对应章节的场景", func() {
			s, ok := idx.Resolve("v01_ch001_s1")
			So(ok, ShouldBeTrue)
			So(s.Brief, ShouldEqual, "初遇")

			s, ok = idx.Resolve("v01_ch002_s1")
			So(ok, ShouldBeTrue)
			So(s.Brief, ShouldEqual, "夜谈")
		})

		Convey("裸 scene_id 解析时后写覆盖先写", func() {
			s, ok := idx.Resolve("1")
			So(ok, ShouldBeTrue)
			So(s.Brief, ShouldEqual, "夜谈")
		})

		Convey("复合形式与裸形式同名时优先复合形式", func() {
			// 构造一个裸 scene_id 恰好等于某个复合 ID 的场景
			ns2 := &NovelScenes{
				Chapters: []ChapterScenes{
					{
						ChapterID: "v01_ch001",
						Scenes:    []Scene{{SceneID: "1", Brief: "正主"}},
					},
					{
						ChapterID: "v09_ch099",
						Scenes:    []Scene{{SceneID: "v01_ch001_s1", Brief: "冒名"}},
					},
				},
			}
			idx2 := BuildSceneIndex(ns2)
			s, ok := idx2.Resolve("v01_ch001_s1")
			So(ok, ShouldBeTrue)
			So(s.Brief, ShouldEqual, "正主")
		})

		Convey("ResolveAll 返回命中场景与未解析引用", func() {
			scenes, missing := idx.ResolveAll([]string{"v01_ch001_s2", "v01_ch009_s1"})
			So(len(scenes), ShouldEqual, 1)
			So(scenes[0].Brief, ShouldEqual, "冲突")
			So(missing, ShouldResemble, []string{"v01_ch009_s1"})
		})

		Convey("空 scene_id 的场景不进索引", func() {
			ns3 := &NovelScenes{
				Chapters: []ChapterScenes{
					{ChapterID: "v01_ch001", Scenes: []Scene{{SceneID: " ", Brief: "无效"}}},
				},
			}
			So(BuildSceneIndex(ns3).Len(), ShouldEqual, 0)
		})

		Convey("nil 输入返回空索引", func() {
			So(BuildSceneIndex(nil).Len(), ShouldEqual, 0)
		})
	})
}
