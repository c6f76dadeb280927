package trailer

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"novel2trailer/internal/model/trailer"
	"novel2trailer/internal/pkg/id"
)

// SceneRepository 场景仓库接口
type SceneRepository interface {
	Upsert(ctx context.Context, set *trailer.ChapterSceneSet) error
	FindByNovelID(ctx context.Context, novelID string) ([]*trailer.ChapterSceneSet, error)
	Exists(ctx context.Context, novelID, chapterID string) (bool, error)
}

// SceneRepo 场景仓库
type SceneRepo struct {
	coll *mongo.Collection
}

// NewSceneRepo 创建场景仓库
func NewSceneRepo(db *mongo.Database) *SceneRepo {
	var s trailer.ChapterSceneSet
	return &SceneRepo{coll: db.Collection(s.Collection())}
}

// Upsert 写入单章节场景抽取结果（按 novel_id+chapter_id 覆盖，重跑幂等）
func (r *SceneRepo) Upsert(ctx context.Context, set *trailer.ChapterSceneSet) error {
	now := time.Now()
	set.UpdatedAt = now
	if set.ID == "" {
		set.ID = id.New()
	}
	if set.CreatedAt.IsZero() {
		set.CreatedAt = now
	}
	filter := bson.M{"novel_id": set.NovelID, "chapter_id": set.ChapterID}
	_, err := r.coll.ReplaceOne(ctx, filter, set, options.Replace().SetUpsert(true))
	return err
}

// FindByNovelID 查询小说全部章节的场景（按章节ID排序）
func (r *SceneRepo) FindByNovelID(ctx context.Context, novelID string) ([]*trailer.ChapterSceneSet, error) {
	opts := options.Find().SetSort(bson.M{"chapter_id": 1})
	cur, err := r.coll.Find(ctx, bson.M{"novel_id": novelID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var sets []*trailer.ChapterSceneSet
	if err := cur.All(ctx, &sets); err != nil {
		return nil, err
	}
	return sets, nil
}

// Exists 判断某章节是否已有抽取结果（幂等跳过用）
func (r *SceneRepo) Exists(ctx context.Context, novelID, chapterID string) (bool, error) {
	count, err := r.coll.CountDocuments(ctx, bson.M{"novel_id": novelID, "chapter_id": chapterID})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
