package trailer

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"novel2trailer/internal/pkg/trailertools"
)

// WorldProfileDoc 全书唯一的世界观档案（一本小说一条）
// 合成完成后视为只读，重跑世界观阶段按 novel_id 整条覆盖
type WorldProfileDoc struct {
	ID      string `bson:"id" json:"id"`
	NovelID string `bson:"novel_id" json:"novel_id"`

	Profile trailertools.WorldProfile       `bson:"profile" json:"profile"`
	Hints   []trailertools.ChapterWorldHints `bson:"hints,omitempty" json:"hints,omitempty"` // 逐章线索（留档，便于重新合成）

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Collection 返回集合名称
func (w *WorldProfileDoc) Collection() string { return "world_profiles" }

// EnsureIndexes 创建和维护索引
func (w *WorldProfileDoc) EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection(w.Collection())
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "novel_id", Value: 1}},
			Options: options.Index().SetName("idx_novel_id").SetUnique(true),
		},
	}
	_, err := coll.Indexes().CreateMany(ctx, indexes)
	return err
}
