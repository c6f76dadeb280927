package trailertools

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestTextAnalyzer(t *testing.T) {
	Convey("TextAnalyzer 统计章节文本", t, func() {
		Convey("NewTextAnalyzer 返回可用的统计器", func() {
			analyzer := NewTextAnalyzer()
			So(analyzer, ShouldNotBeNil)

			stats := analyzer.Analyze("她抬起头。\n\n夜色渐深。")
			So(stats.RuneCount, ShouldEqual, 12)
			So(stats.LineCount, ShouldEqual, 2)
			So(stats.WordCount, ShouldBeGreaterThan, 0)
		})

		Convey("空文本各项为零", func() {
			stats := NewTextAnalyzer().Analyze("")
			So(stats.RuneCount, ShouldEqual, 0)
			So(stats.WordCount, ShouldEqual, 0)
			So(stats.LineCount, ShouldEqual, 0)
		})

		Convey("分词器缺失时降级为按字符统计", func() {
			analyzer := &TextAnalyzer{}
			stats := analyzer.Analyze("青梧 said hello")
			// CJK 一字一词（2），其余按空白分词（2）
			So(stats.WordCount, ShouldEqual, 4)
			So(stats.LineCount, ShouldEqual, 1)
		})
	})
}
