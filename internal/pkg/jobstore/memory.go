package jobstore

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

const (
	// DefaultTTL 默认任务存活时长
	DefaultTTL = 24 * time.Hour
	// DefaultCleanupInterval 过期清理间隔
	DefaultCleanupInterval = 10 * time.Minute
)

// MemoryStore 进程内任务存储（go-cache，TTL 到期自动淘汰）
type MemoryStore struct {
	cache *gocache.Cache
	ttl   time.Duration
}

// NewMemoryStore 创建进程内任务存储
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{
		cache: gocache.New(ttl, DefaultCleanupInterval),
		ttl:   ttl,
	}
}

// Put 写入任务（覆盖并刷新 TTL）
func (s *MemoryStore) Put(_ context.Context, job *Job) error {
	job.UpdatedAt = time.Now()
	s.cache.Set(job.ID, *job, s.ttl)
	return nil
}

// Get 查询任务
func (s *MemoryStore) Get(_ context.Context, id string) (*Job, error) {
	v, ok := s.cache.Get(id)
	if !ok {
		return nil, ErrNotFound
	}
	job := v.(Job)
	return &job, nil
}

// List 列出全部未过期任务
func (s *MemoryStore) List(_ context.Context) ([]*Job, error) {
	items := s.cache.Items()
	jobs := make([]*Job, 0, len(items))
	for _, item := range items {
		job := item.Object.(Job)
		jobs = append(jobs, &job)
	}
	return jobs, nil
}
