package trailer

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"novel2trailer/internal/pkg/trailertools"
)

// TrailerScriptDoc 预告片脚本（节拍规划阶段产物，一本小说一条）
type TrailerScriptDoc struct {
	ID      string `bson:"id" json:"id"`
	NovelID string `bson:"novel_id" json:"novel_id"`

	Script trailertools.TrailerScript `bson:"script" json:"script"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Collection 返回集合名称
func (s *TrailerScriptDoc) Collection() string { return "trailer_scripts" }

// EnsureIndexes 创建和维护索引
func (s *TrailerScriptDoc) EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection(s.Collection())
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "novel_id", Value: 1}},
			Options: options.Index().SetName("idx_novel_id").SetUnique(true),
		},
	}
	_, err := coll.Indexes().CreateMany(ctx, indexes)
	return err
}
