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

// WorldProfileRepository 世界观档案仓库接口
type WorldProfileRepository interface {
	Upsert(ctx context.Context, doc *trailer.WorldProfileDoc) error
	FindByNovelID(ctx context.Context, novelID string) (*trailer.WorldProfileDoc, error)
	Exists(ctx context.Context, novelID string) (bool, error)
}

// WorldProfileRepo 世界观档案仓库
type WorldProfileRepo struct {
	coll *mongo.Collection
}

// NewWorldProfileRepo 创建世界观档案仓库
func NewWorldProfileRepo(db *mongo.Database) *WorldProfileRepo {
	var w trailer.WorldProfileDoc
	return &WorldProfileRepo{coll: db.Collection(w.Collection())}
}

// Upsert 写入世界观档案（按 novel_id 整条覆盖）
func (r *WorldProfileRepo) Upsert(ctx context.Context, doc *trailer.WorldProfileDoc) error {
	now := time.Now()
	doc.UpdatedAt = now
	if doc.ID == "" {
		doc.ID = id.New()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	filter := bson.M{"novel_id": doc.NovelID}
	_, err := r.coll.ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(true))
	return err
}

// FindByNovelID 查询小说的世界观档案
func (r *WorldProfileRepo) FindByNovelID(ctx context.Context, novelID string) (*trailer.WorldProfileDoc, error) {
	var doc trailer.WorldProfileDoc
	if err := r.coll.FindOne(ctx, bson.M{"novel_id": novelID}).Decode(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Exists 判断小说是否已有世界观档案
func (r *WorldProfileRepo) Exists(ctx context.Context, novelID string) (bool, error) {
	count, err := r.coll.CountDocuments(ctx, bson.M{"novel_id": novelID})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
