package trailer

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"novel2trailer/internal/pkg/trailertools"
)

// PlanStage 关键帧计划所处的阶段
type PlanStage string

const (
	PlanStageDerived PlanStage = "derived" // 派生阶段：纯内容 prompt
	PlanStageStyled  PlanStage = "styled"  // 风格化阶段：统一风格后的 prompt
)

// KeyframePlanDoc 关键帧计划（派生与风格化各存一条，stage 区分）
type KeyframePlanDoc struct {
	ID      string    `bson:"id" json:"id"`
	NovelID string    `bson:"novel_id" json:"novel_id"`
	Stage   PlanStage `bson:"stage" json:"stage"`

	Plan trailertools.KeyframePlan `bson:"plan" json:"plan"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Collection 返回集合名称
func (k *KeyframePlanDoc) Collection() string { return "keyframe_plans" }

// EnsureIndexes 创建和维护索引
func (k *KeyframePlanDoc) EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection(k.Collection())
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "novel_id", Value: 1}, {Key: "stage", Value: 1}},
			Options: options.Index().SetName("idx_novel_stage").SetUnique(true),
		},
	}
	_, err := coll.Indexes().CreateMany(ctx, indexes)
	return err
}

// StyleGuideDoc 预告片风格指南（一本小说一条，合成后只读）
type StyleGuideDoc struct {
	ID      string `bson:"id" json:"id"`
	NovelID string `bson:"novel_id" json:"novel_id"`

	Guide trailertools.TrailerStyleGuide `bson:"guide" json:"guide"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Collection 返回集合名称
func (s *StyleGuideDoc) Collection() string { return "style_guides" }

// EnsureIndexes 创建和维护索引
func (s *StyleGuideDoc) EnsureIndexes(ctx context.Context, db *mongo.Database) error {
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
