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

// AssetRepository 生成产物仓库接口
type AssetRepository interface {
	Upsert(ctx context.Context, asset *trailer.TrailerAsset) error
	Find(ctx context.Context, novelID string, kind trailer.AssetKind, refID string) (*trailer.TrailerAsset, error)
	FindByKind(ctx context.Context, novelID string, kind trailer.AssetKind) ([]*trailer.TrailerAsset, error)
	Exists(ctx context.Context, novelID string, kind trailer.AssetKind, refID string) (bool, error)
}

// AssetRepo 生成产物仓库
type AssetRepo struct {
	coll *mongo.Collection
}

// NewAssetRepo 创建生成产物仓库
func NewAssetRepo(db *mongo.Database) *AssetRepo {
	var a trailer.TrailerAsset
	return &AssetRepo{coll: db.Collection(a.Collection())}
}

// Upsert 登记生成产物（按 novel_id+kind+ref_id 覆盖）
func (r *AssetRepo) Upsert(ctx context.Context, asset *trailer.TrailerAsset) error {
	now := time.Now()
	asset.UpdatedAt = now
	if asset.ID == "" {
		asset.ID = id.New()
	}
	if asset.CreatedAt.IsZero() {
		asset.CreatedAt = now
	}
	filter := bson.M{"novel_id": asset.NovelID, "kind": asset.Kind, "ref_id": asset.RefID}
	_, err := r.coll.ReplaceOne(ctx, filter, asset, options.Replace().SetUpsert(true))
	return err
}

// Find 查询单个产物
func (r *AssetRepo) Find(ctx context.Context, novelID string, kind trailer.AssetKind, refID string) (*trailer.TrailerAsset, error) {
	var a trailer.TrailerAsset
	filter := bson.M{"novel_id": novelID, "kind": kind, "ref_id": refID}
	if err := r.coll.FindOne(ctx, filter).Decode(&a); err != nil {
		return nil, err
	}
	return &a, nil
}

// FindByKind 查询某类型的全部产物（按 ref_id 排序，帧图/片段即计划顺序）
func (r *AssetRepo) FindByKind(ctx context.Context, novelID string, kind trailer.AssetKind) ([]*trailer.TrailerAsset, error) {
	opts := options.Find().SetSort(bson.M{"ref_id": 1})
	cur, err := r.coll.Find(ctx, bson.M{"novel_id": novelID, "kind": kind}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var assets []*trailer.TrailerAsset
	if err := cur.All(ctx, &assets); err != nil {
		return nil, err
	}
	return assets, nil
}

// Exists 判断产物是否已生成（幂等跳过用）
func (r *AssetRepo) Exists(ctx context.Context, novelID string, kind trailer.AssetKind, refID string) (bool, error) {
	count, err := r.coll.CountDocuments(ctx, bson.M{"novel_id": novelID, "kind": kind, "ref_id": refID})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
