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

// KeyframeRepository 关键帧计划与风格指南仓库接口
type KeyframeRepository interface {
	UpsertPlan(ctx context.Context, doc *trailer.KeyframePlanDoc) error
	FindPlan(ctx context.Context, novelID string, stage trailer.PlanStage) (*trailer.KeyframePlanDoc, error)
	PlanExists(ctx context.Context, novelID string, stage trailer.PlanStage) (bool, error)

	UpsertStyleGuide(ctx context.Context, doc *trailer.StyleGuideDoc) error
	FindStyleGuide(ctx context.Context, novelID string) (*trailer.StyleGuideDoc, error)
}

// KeyframeRepo 关键帧仓库
type KeyframeRepo struct {
	planColl  *mongo.Collection
	guideColl *mongo.Collection
}

// NewKeyframeRepo 创建关键帧仓库
func NewKeyframeRepo(db *mongo.Database) *KeyframeRepo {
	var p trailer.KeyframePlanDoc
	var g trailer.StyleGuideDoc
	return &KeyframeRepo{
		planColl:  db.Collection(p.Collection()),
		guideColl: db.Collection(g.Collection()),
	}
}

// UpsertPlan 写入关键帧计划（按 novel_id+stage 覆盖）
func (r *KeyframeRepo) UpsertPlan(ctx context.Context, doc *trailer.KeyframePlanDoc) error {
	now := time.Now()
	doc.UpdatedAt = now
	if doc.ID == "" {
		doc.ID = id.New()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	filter := bson.M{"novel_id": doc.NovelID, "stage": doc.Stage}
	_, err := r.planColl.ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(true))
	return err
}

// FindPlan 查询某阶段的关键帧计划
func (r *KeyframeRepo) FindPlan(ctx context.Context, novelID string, stage trailer.PlanStage) (*trailer.KeyframePlanDoc, error) {
	var doc trailer.KeyframePlanDoc
	if err := r.planColl.FindOne(ctx, bson.M{"novel_id": novelID, "stage": stage}).Decode(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// PlanExists 判断某阶段的关键帧计划是否存在
func (r *KeyframeRepo) PlanExists(ctx context.Context, novelID string, stage trailer.PlanStage) (bool, error) {
	count, err := r.planColl.CountDocuments(ctx, bson.M{"novel_id": novelID, "stage": stage})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// UpsertStyleGuide 写入风格指南（按 novel_id 覆盖）
func (r *KeyframeRepo) UpsertStyleGuide(ctx context.Context, doc *trailer.StyleGuideDoc) error {
	now := time.Now()
	doc.UpdatedAt = now
	if doc.ID == "" {
		doc.ID = id.New()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	filter := bson.M{"novel_id": doc.NovelID}
	_, err := r.guideColl.ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(true))
	return err
}

// FindStyleGuide 查询小说的风格指南
func (r *KeyframeRepo) FindStyleGuide(ctx context.Context, novelID string) (*trailer.StyleGuideDoc, error) {
	var doc trailer.StyleGuideDoc
	if err := r.guideColl.FindOne(ctx, bson.M{"novel_id": novelID}).Decode(&doc); err != nil {
		return nil, err
	}
	return &doc, nil
}
