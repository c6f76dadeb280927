package trailer

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// AssetKind 生成产物类型
type AssetKind string

const (
	AssetPortrait      AssetKind = "portrait"       // 角色立绘
	AssetKeyframeImage AssetKind = "keyframe_image" // 关键帧静帧图
	AssetKeyframeVideo AssetKind = "keyframe_video" // 关键帧短视频片段
	AssetFinalVideo    AssetKind = "final_video"    // 拼接后的成片
	AssetImageLayer    AssetKind = "image_layer"    // 图层分解产物
	AssetArtifact      AssetKind = "artifact"       // 阶段 JSON 工件
)

// TrailerAsset 生成产物登记表
// ref_id 按类型取不同业务键：立绘=角色名、帧图/片段=kf_id、图层=kf_id:index、工件=文件名
// 幂等性依赖 (novel_id, kind, ref_id) 唯一：生成前先查，存在即跳过
type TrailerAsset struct {
	ID      string    `bson:"id" json:"id"`
	NovelID string    `bson:"novel_id" json:"novel_id"`
	Kind    AssetKind `bson:"kind" json:"kind"`
	RefID   string    `bson:"ref_id" json:"ref_id"`

	StorageKey  string  `bson:"storage_key" json:"storage_key"` // 存储层对象键
	URL         string  `bson:"url,omitempty" json:"url,omitempty"`
	ContentType string  `bson:"content_type,omitempty" json:"content_type,omitempty"`
	SizeBytes   int64   `bson:"size_bytes,omitempty" json:"size_bytes,omitempty"`
	DurationSec float64 `bson:"duration_sec,omitempty" json:"duration_sec,omitempty"` // 视频类产物

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// Collection 返回集合名称
func (a *TrailerAsset) Collection() string { return "trailer_assets" }

// EnsureIndexes 创建和维护索引
func (a *TrailerAsset) EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection(a.Collection())
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "novel_id", Value: 1}, {Key: "kind", Value: 1}, {Key: "ref_id", Value: 1}},
			Options: options.Index().SetName("idx_novel_kind_ref").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "novel_id", Value: 1}, {Key: "created_at", Value: -1}},
			Options: options.Index().SetName("idx_novel_created"),
		},
	}
	_, err := coll.Indexes().CreateMany(ctx, indexes)
	return err
}
