package trailertools

import (
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestChapterSplitter_Split(t *testing.T) {
	Convey("ChapterSplitter.Split 切分小说并分配全局章节 ID", t, func() {
		splitter := NewChapterSplitter()

		Convey("空内容返回 nil", func() {
			So(splitter.Split("", 50), ShouldBeNil)
			So(splitter.Split("   \n\n  ", 50), ShouldBeNil)
		})

		Convey("单卷小说按章节标题切分，ID 从 v01_ch001 起", func() {
			content := `第一章 初遇
她在宫门外第一次见到那位将军。

第二章 对峙
将军勒马，长枪直指城门。

第三章 夜谈
夜色渐深，烛火摇曳。`

			result := splitter.Split(content, 50)
			So(len(result), ShouldEqual, 3)
			So(result[0].ChapterID, ShouldEqual, "v01_ch001")
			So(result[0].ChapterTitle, ShouldContainSubstring, "第一章")
			So(result[0].ChapterText, ShouldContainSubstring, "宫门外")
			So(result[1].ChapterID, ShouldEqual, "v01_ch002")
			So(result[2].ChapterID, ShouldEqual, "v01_ch003")
			So(result[0].VolumeName, ShouldEqual, "")
		})

		Convey("多卷小说卷内章节序号重新起算", func() {
			content := `第一卷 京华
第一章 初遇
她在宫门外第一次见到那位将军。

第二章 对峙
将军勒马。

第二卷 北境
第一章 出征
大军开拔，旌旗蔽日。

第二章 围城
粮道被断。`

			result := splitter.Split(content, 50)
			So(len(result), ShouldEqual, 4)
			So(result[0].ChapterID, ShouldEqual, "v01_ch001")
			So(result[0].VolumeName, ShouldContainSubstring, "第一卷")
			So(result[1].ChapterID, ShouldEqual, "v01_ch002")
			So(result[2].ChapterID, ShouldEqual, "v02_ch001")
			So(result[2].VolumeName, ShouldContainSubstring, "第二卷")
			So(result[3].ChapterID, ShouldEqual, "v02_ch002")
		})

		Convey("英文章节标题（Chapter N）也能识别", func() {
			content := `Chapter 1 The Meeting
She first saw the general outside the palace gate.

Chapter 2 The Standoff
The general reined in his horse.`

			result := splitter.Split(content, 50)
			So(len(result), ShouldEqual, 2)
			So(result[0].ChapterTitle, ShouldContainSubstring, "Chapter 1")
		})

		Convey("识别不到章节标题时按长度平均切分", func() {
			content := strings.Repeat("这是一段没有任何章节标题的长文本内容。", 100)
			result := splitter.Split(content, 5)
			So(len(result), ShouldEqual, 5)
			So(result[0].ChapterID, ShouldEqual, "v01_ch001")
			So(result[4].ChapterID, ShouldEqual, "v01_ch005")
		})

		Convey("章节数超过目标时只保留前 N 章", func() {
			var b strings.Builder
			for i := 1; i <= 10; i++ {
				b.WriteString("第")
				b.WriteString([]string{"一", "二", "三", "四", "五", "六", "七", "八", "九", "十"}[i-1])
				b.WriteString("章 标题\n这一章的正文内容。\n\n")
			}
			result := splitter.Split(b.String(), 4)
			So(len(result), ShouldEqual, 4)
		})

		Convey("最小章节长度过滤生效", func() {
			splitter2 := NewChapterSplitter()
			splitter2.SetMinChapterLength(20)
			content := `第一章 短
太短。

第二章 足够长
这一章的内容足够长，超过了设定的最小章节长度阈值，所以会被保留下来。

第三章 同样足够长
这一章的内容同样足够长，也超过了设定的最小章节长度阈值，同样会被保留。`
			result := splitter2.Split(content, 50)
			So(len(result), ShouldEqual, 2)
			So(result[0].ChapterTitle, ShouldContainSubstring, "第二章")
			So(result[1].ChapterTitle, ShouldContainSubstring, "第三章")
		})
	})
}
