package jobstore

import (
	"context"
	"errors"
	"time"
)

// 流水线任务登记表
// 任务状态必须有界存活：无论内存实现还是 Redis 实现都带 TTL，
// 终态任务到期自动清除，不会随运行次数无限增长

// ErrNotFound 任务不存在或已过期清除
var ErrNotFound = errors.New("jobstore: job not found")

// Status 任务状态
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Job 一次异步流水线运行的状态快照
type Job struct {
	ID        string    `json:"id"`
	NovelID   string    `json:"novel_id"`
	Stage     string    `json:"stage"` // 当前执行到的阶段名
	Status    Status    `json:"status"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store 任务存储接口
// Put 整条覆盖写入；Get 未命中返回 ErrNotFound
type Store interface {
	Put(ctx context.Context, job *Job) error
	Get(ctx context.Context, id string) (*Job, error)
	List(ctx context.Context) ([]*Job, error)
}
