package trailertools

import (
	"errors"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestCleanJSONContent(t *testing.T) {
	Convey("CleanJSONContent 清理模型返回的 JSON 文本", t, func() {
		Convey("裸 JSON 原样返回", func() {
			So(CleanJSONContent(`{"a":1}`), ShouldEqual, `{"a":1}`)
		})

		Convey("去掉 ```json 代码块标记", func() {
			So(CleanJSONContent("```json\n{\"a\":1}\n```"), ShouldEqual, `{"a":1}`)
		})

		Convey("去掉无语言标记的代码块", func() {
			So(CleanJSONContent("```\n{\"a\":1}\n```"), ShouldEqual, `{"a":1}`)
		})

		Convey("首尾空白被去除", func() {
			So(CleanJSONContent("  \n{\"a\":1}\n  "), ShouldEqual, `{"a":1}`)
		})
	})
}

func TestUnmarshalStrict(t *testing.T) {
	Convey("UnmarshalStrict 严格解析并保留诊断信息", t, func() {
		Convey("合法 JSON 解析成功", func() {
			var dest struct {
				A int `json:"a"`
			}
			So(UnmarshalStrict("u1", "```json\n{\"a\":7}\n```", &dest), ShouldBeNil)
			So(dest.A, ShouldEqual, 7)
		})

		Convey("非法 JSON 返回 SchemaError 且携带原始内容", func() {
			var dest map[string]any
			err := UnmarshalStrict("v01_ch003", "模型拒绝了请求", &dest)
			var schemaErr *SchemaError
			So(errors.As(err, &schemaErr), ShouldBeTrue)
			So(schemaErr.Unit, ShouldEqual, "v01_ch003")
			So(schemaErr.RawPayload, ShouldEqual, "模型拒绝了请求")
		})

		Convey("空返回也是 SchemaError", func() {
			var dest map[string]any
			err := UnmarshalStrict("u2", "  ", &dest)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestIsOverloadedAndBlocked(t *testing.T) {
	Convey("错误分类判断", t, func() {
		Convey("IsOverloaded 识别瞬时过载", func() {
			So(IsOverloaded(errors.New("503 Service Unavailable")), ShouldBeTrue)
			So(IsOverloaded(errors.New("model is OVERLOADED")), ShouldBeTrue)
			So(IsOverloaded(errors.New("rate limit exceeded")), ShouldBeTrue)
			So(IsOverloaded(errors.New("invalid api key")), ShouldBeFalse)
			So(IsOverloaded(nil), ShouldBeFalse)
		})

		Convey("IsContentBlocked 识别内容策略拦截", func() {
			So(IsContentBlocked(errors.New("request blocked by moderation")), ShouldBeTrue)
			So(IsContentBlocked(errors.New("violates content policy")), ShouldBeTrue)
			So(IsContentBlocked(errors.New("flagged by SAFETY system")), ShouldBeTrue)
			So(IsContentBlocked(errors.New("timeout")), ShouldBeFalse)
			So(IsContentBlocked(nil), ShouldBeFalse)
		})
	})
}
