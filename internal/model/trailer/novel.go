package trailer

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Novel 小说实体（主表）
// 用途：预告片流水线的核心实体，所有阶段产物都以 novel_id 关联
type Novel struct {
	ID string `bson:"id" json:"id"` // 小说ID（UUID）

	// 小说元数据
	Title    string `bson:"title" json:"title"`                           // 小说名称
	Author   string `bson:"author,omitempty" json:"author,omitempty"`     // 作者
	Summary  string `bson:"summary,omitempty" json:"summary,omitempty"`   // 简介（注入抽取提示词）
	Language string `bson:"language,omitempty" json:"language,omitempty"` // 语言（zh/en）

	// 原文统计（gse 分词）
	RuneCount    int `bson:"rune_count" json:"rune_count"`
	WordCount    int `bson:"word_count" json:"word_count"`
	ChapterCount int `bson:"chapter_count" json:"chapter_count"`

	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time  `bson:"updated_at" json:"updated_at"`
	DeletedAt *time.Time `bson:"deleted_at,omitempty" json:"deleted_at,omitempty"`
}

// Collection 返回集合名称
func (n *Novel) Collection() string { return "novels" }

// EnsureIndexes 创建和维护索引
func (n *Novel) EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection(n.Collection())
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetName("idx_id").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "title", Value: 1}},
			Options: options.Index().SetName("idx_title"),
		},
		{
			Keys:    bson.D{{Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_created"),
		},
	}
	_, err := coll.Indexes().CreateMany(ctx, indexes)
	return err
}
