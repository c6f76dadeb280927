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

// ScriptRepository 预告片脚本仓库接口
type ScriptRepository interface {
	Upsert(ctx context.Context, doc *trailer.TrailerScriptDoc) error
	FindByNovelID(ctx context.Context, novelID string) (*trailer.TrailerScriptDoc, error)
	Exists(ctx context.Context, novelID string) (bool, error)
}

// ScriptRepo 预告片脚本仓库
type ScriptRepo struct {
	coll *mongo.Collection
}

// NewScriptRepo 创建预告片脚本仓库
func NewScriptRepo(db *mongo.Database) *ScriptRepo {
	var s trailer.TrailerScriptDoc
	return &ScriptRepo{coll: db.Collection(s.Collection())}
}

// Upsert 写入预告片脚本（按 novel_id 整条覆盖）
func (r *ScriptRepo) Upsert(ctx context.Context, doc *trailer.TrailerScriptDoc) error {
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

// FindByNovelID 查询小说的预告片脚本
func (r *ScriptRepo) FindByNovelID(ctx context.Context, novelID string) (*trailer.TrailerScriptDoc, error) {
	var doc trailer.TrailerScriptDoc
	if err := r.coll.FindOne(ctx, bson.M{"novel_id": novelID}).Decode(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// Exists 判断小说是否已有预告片脚本
func (r *ScriptRepo) Exists(ctx context.Context, novelID string) (bool, error) {
	count, err := r.coll.CountDocuments(ctx, bson.M{"novel_id": novelID})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
