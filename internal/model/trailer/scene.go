package trailer

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"novel2trailer/internal/pkg/trailertools"
)

// ChapterSceneSet 单章节的场景抽取结果（一章一条，幂等重跑按章节覆盖）
type ChapterSceneSet struct {
	ID        string `bson:"id" json:"id"`
	NovelID   string `bson:"novel_id" json:"novel_id"`
	ChapterID string `bson:"chapter_id" json:"chapter_id"`

	Scenes trailertools.ChapterScenes `bson:"scenes" json:"scenes"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Collection 返回集合名称
func (s *ChapterSceneSet) Collection() string { return "chapter_scenes" }

// EnsureIndexes 创建和维护索引
func (s *ChapterSceneSet) EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection(s.Collection())
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "novel_id", Value: 1}, {Key: "chapter_id", Value: 1}},
			Options: options.Index().SetName("idx_novel_chapter").SetUnique(true),
		},
	}
	_, err := coll.Indexes().CreateMany(ctx, indexes)
	return err
}
