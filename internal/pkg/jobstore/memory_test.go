package jobstore

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()

	Convey("内存任务存储", t, func() {
		store := NewMemoryStore(time.Hour)

		Convey("写入后可以按ID读回", func() {
			job := &Job{ID: "job-1", NovelID: "novel-1", Status: StatusPending}
			err := store.Put(ctx, job)
			So(err, ShouldBeNil)

			got, err := store.Get(ctx, "job-1")
			So(err, ShouldBeNil)
			So(got.NovelID, ShouldEqual, "novel-1")
			So(got.Status, ShouldEqual, StatusPending)
			So(got.UpdatedAt.IsZero(), ShouldBeFalse)
		})

		Convey("不存在的任务返回 ErrNotFound", func() {
			_, err := store.Get(ctx, "missing")
			So(err, ShouldEqual, ErrNotFound)
		})

		Convey("Put 整条覆盖旧状态", func() {
			So(store.Put(ctx, &Job{ID: "job-1", Status: StatusRunning, Stage: "scene_extraction"}), ShouldBeNil)
			So(store.Put(ctx, &Job{ID: "job-1", Status: StatusCompleted, Stage: "concat"}), ShouldBeNil)

			got, err := store.Get(ctx, "job-1")
			So(err, ShouldBeNil)
			So(got.Status, ShouldEqual, StatusCompleted)
			So(got.Stage, ShouldEqual, "concat")
		})

		Convey("读回的是副本，修改不影响存储内状态", func() {
			So(store.Put(ctx, &Job{ID: "job-1", Status: StatusRunning}), ShouldBeNil)

			got, err := store.Get(ctx, "job-1")
			So(err, ShouldBeNil)
			got.Status = StatusFailed

			again, err := store.Get(ctx, "job-1")
			So(err, ShouldBeNil)
			So(again.Status, ShouldEqual, StatusRunning)
		})

		Convey("List 返回全部未过期任务", func() {
			So(store.Put(ctx, &Job{ID: "job-1", Status: StatusRunning}), ShouldBeNil)
			So(store.Put(ctx, &Job{ID: "job-2", Status: StatusCompleted}), ShouldBeNil)

			jobs, err := store.List(ctx)
			So(err, ShouldBeNil)
			So(len(jobs), ShouldEqual, 2)
		})

		Convey("到期的任务被淘汰", func() {
			shortStore := NewMemoryStore(10 * time.Millisecond)
			So(shortStore.Put(ctx, &Job{ID: "job-ttl", Status: StatusCompleted}), ShouldBeNil)

			time.Sleep(30 * time.Millisecond)

			_, err := shortStore.Get(ctx, "job-ttl")
			So(err, ShouldEqual, ErrNotFound)
		})
	})
}
