package trailer

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"novel2trailer/internal/model/trailer"
)

// NovelRepository 小说仓库接口（供 service 层依赖）
type NovelRepository interface {
	Create(ctx context.Context, novel *trailer.Novel) error
	FindByID(ctx context.Context, id string) (*trailer.Novel, error)
	List(ctx context.Context, limit int64) ([]*trailer.Novel, error)
	UpdateStats(ctx context.Context, id string, runeCount, wordCount, chapterCount int) error
}

// NovelRepo 小说仓库
type NovelRepo struct {
	coll *mongo.Collection
}

// NewNovelRepo 创建小说仓库
func NewNovelRepo(db *mongo.Database) *NovelRepo {
	var n trailer.Novel
	return &NovelRepo{coll: db.Collection(n.Collection())}
}

// Create 创建小说
func (r *NovelRepo) Create(ctx context.Context, novel *trailer.Novel) error {
	now := time.Now()
	novel.CreatedAt = now
	novel.UpdatedAt = now
	_, err := r.coll.InsertOne(ctx, novel)
	return err
}

// FindByID 根据ID查询
func (r *NovelRepo) FindByID(ctx context.Context, id string) (*trailer.Novel, error) {
	var n trailer.Novel
	if err := r.coll.FindOne(ctx, bson.M{"id": id, "deleted_at": nil}).Decode(&n); err != nil {
		return nil, err
	}
	return &n, nil
}

// List 按创建时间倒序列出小说
func (r *NovelRepo) List(ctx context.Context, limit int64) ([]*trailer.Novel, error) {
	opts := options.Find().SetSort(bson.M{"created_at": -1})
	if limit > 0 {
		opts.SetLimit(limit)
	}
	cur, err := r.coll.Find(ctx, bson.M{"deleted_at": nil}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var novels []*trailer.Novel
	if err := cur.All(ctx, &novels); err != nil {
		return nil, err
	}
	return novels, nil
}

// UpdateStats 更新统计字段（章节切分完成后回填）
func (r *NovelRepo) UpdateStats(ctx context.Context, id string, runeCount, wordCount, chapterCount int) error {
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"id": id},
		bson.M{"$set": bson.M{
			"rune_count":    runeCount,
			"word_count":    wordCount,
			"chapter_count": chapterCount,
			"updated_at":    time.Now(),
		}},
	)
	return err
}
