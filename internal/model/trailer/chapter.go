package trailer

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Chapter 章节实体
// chapter_id 是全书唯一的业务 ID（v01_ch001），区别于 Mongo 文档 ID
type Chapter struct {
	ID      string `bson:"id" json:"id"`             // 文档ID（UUID）
	NovelID string `bson:"novel_id" json:"novel_id"` // 所属小说ID

	ChapterID  string `bson:"chapter_id" json:"chapter_id"` // 业务章节ID：v{卷:02d}_ch{章:03d}
	Sequence   int    `bson:"sequence" json:"sequence"`     // 全书内 1 起顺序号
	VolumeName string `bson:"volume_name,omitempty" json:"volume_name,omitempty"`
	Title      string `bson:"title" json:"title"`
	Text       string `bson:"text" json:"text"` // 章节原文

	// 统计信息
	RuneCount int `bson:"rune_count" json:"rune_count"`
	WordCount int `bson:"word_count" json:"word_count"`
	LineCount int `bson:"line_count" json:"line_count"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Collection 返回集合名称
func (c *Chapter) Collection() string { return "chapters" }

// EnsureIndexes 创建和维护索引
func (c *Chapter) EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection(c.Collection())
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "novel_id", Value: 1}, {Key: "sequence", Value: 1}},
			Options: options.Index().SetName("idx_novel_sequence").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "novel_id", Value: 1}, {Key: "chapter_id", Value: 1}},
			Options: options.Index().SetName("idx_novel_chapter").SetUnique(true),
		},
	}
	_, err := coll.Indexes().CreateMany(ctx, indexes)
	return err
}
