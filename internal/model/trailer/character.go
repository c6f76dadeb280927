package trailer

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"novel2trailer/internal/pkg/trailertools"
)

// ChapterCharacterSet 单章节的角色提及抽取结果
type ChapterCharacterSet struct {
	ID        string `bson:"id" json:"id"`
	NovelID   string `bson:"novel_id" json:"novel_id"`
	ChapterID string `bson:"chapter_id" json:"chapter_id"`

	Characters trailertools.ChapterCharacters `bson:"characters" json:"characters"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Collection 返回集合名称
func (c *ChapterCharacterSet) Collection() string { return "chapter_characters" }

// EnsureIndexes 创建和维护索引
func (c *ChapterCharacterSet) EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection(c.Collection())
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "novel_id", Value: 1}, {Key: "chapter_id", Value: 1}},
			Options: options.Index().SetName("idx_novel_chapter").SetUnique(true),
		},
	}
	_, err := coll.Indexes().CreateMany(ctx, indexes)
	return err
}

// CharacterProfile 主角档案：聚合结果 + 重要度评分 + 基底特征合成产物
// 只有入选主角名单（Top-N）的角色才会写入本集合
type CharacterProfile struct {
	ID      string `bson:"id" json:"id"`
	NovelID string `bson:"novel_id" json:"novel_id"`
	Name    string `bson:"name" json:"name"` // 聚合规范名

	Score      float64                           `bson:"score" json:"score"` // 3/2/1/0.5 加权得分
	Aggregated trailertools.AggregatedCharacter  `bson:"aggregated" json:"aggregated"`
	Profile    trailertools.CharacterBaseProfile `bson:"profile" json:"profile"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Collection 返回集合名称
func (p *CharacterProfile) Collection() string { return "character_profiles" }

// EnsureIndexes 创建和维护索引
func (p *CharacterProfile) EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection(p.Collection())
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "novel_id", Value: 1}, {Key: "name", Value: 1}},
			Options: options.Index().SetName("idx_novel_name").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "novel_id", Value: 1}, {Key: "score", Value: -1}},
			Options: options.Index().SetName("idx_novel_score"),
		},
	}
	_, err := coll.Indexes().CreateMany(ctx, indexes)
	return err
}
