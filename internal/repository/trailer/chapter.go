package trailer

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"novel2trailer/internal/model/trailer"
)

// ChapterRepository 章节仓库接口
type ChapterRepository interface {
	Create(ctx context.Context, chapter *trailer.Chapter) error
	FindByNovelID(ctx context.Context, novelID string) ([]*trailer.Chapter, error)
	FindByChapterID(ctx context.Context, novelID, chapterID string) (*trailer.Chapter, error)
	CountByNovelID(ctx context.Context, novelID string) (int64, error)
}

// ChapterRepo 章节仓库
type ChapterRepo struct {
	coll *mongo.Collection
}

// NewChapterRepo 创建章节仓库
func NewChapterRepo(db *mongo.Database) *ChapterRepo {
	var c trailer.Chapter
	return &ChapterRepo{coll: db.Collection(c.Collection())}
}

// Create 创建章节
func (r *ChapterRepo) Create(ctx context.Context, chapter *trailer.Chapter) error {
	now := time.Now()
	chapter.CreatedAt = now
	chapter.UpdatedAt = now
	_, err := r.coll.InsertOne(ctx, chapter)
	return err
}

// FindByNovelID 查询小说的全部章节（按全书顺序号）
func (r *ChapterRepo) FindByNovelID(ctx context.Context, novelID string) ([]*trailer.Chapter, error) {
	opts := options.Find().SetSort(bson.M{"sequence": 1})
	cur, err := r.coll.Find(ctx, bson.M{"novel_id": novelID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var chapters []*trailer.Chapter
	if err := cur.All(ctx, &chapters); err != nil {
		return nil, err
	}
	return chapters, nil
}

// FindByChapterID 按业务章节ID查询
func (r *ChapterRepo) FindByChapterID(ctx context.Context, novelID, chapterID string) (*trailer.Chapter, error) {
	var c trailer.Chapter
	if err := r.coll.FindOne(ctx, bson.M{"novel_id": novelID, "chapter_id": chapterID}).Decode(&c); err != nil {
		return nil, err
	}
	return &c, nil
}

// CountByNovelID 统计小说章节数
func (r *ChapterRepo) CountByNovelID(ctx context.Context, novelID string) (int64, error) {
	return r.coll.CountDocuments(ctx, bson.M{"novel_id": novelID})
}
