package trailertools

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestWithRetry(t *testing.T) {
	Convey("WithRetry 瞬时过载退避重试", t, func() {
		Convey("首次成功不重试", func() {
			calls := 0
			err := WithRetry(context.Background(), fastRetry(), "u1", func() error {
				calls++
				return nil
			})
			So(err, ShouldBeNil)
			So(calls, ShouldEqual, 1)
		})

		Convey("过载后重试并最终成功", func() {
			calls := 0
			err := WithRetry(context.Background(), fastRetry(), "u1", func() error {
				calls++
				if calls < 3 {
					return errors.New("503 overloaded")
				}
				return nil
			})
			So(err, ShouldBeNil)
			So(calls, ShouldEqual, 3)
		})

		Convey("非过载错误立即返回", func() {
			calls := 0
			err := WithRetry(context.Background(), fastRetry(), "u1", func() error {
				calls++
				return errors.New("invalid api key")
			})
			So(err, ShouldNotBeNil)
			So(calls, ShouldEqual, 1)
		})

		Convey("重试耗尽后返回最后一次错误", func() {
			calls := 0
			overloaded := errors.New("too many requests")
			err := WithRetry(context.Background(), fastRetry(), "u1", func() error {
				calls++
				return overloaded
			})
			So(err, ShouldEqual, overloaded)
			So(calls, ShouldEqual, fastRetry().MaxRetries)
		})

		Convey("ctx 取消时在退避间隙退出", func() {
			ctx, cancel := context.WithCancel(context.Background())
			cancel()
			err := WithRetry(ctx, RetryPolicy{MaxRetries: 3, BaseDelay: time.Minute}, "u1", func() error {
				return errors.New("503 overloaded")
			})
			So(err, ShouldEqual, context.Canceled)
		})
	})
}
