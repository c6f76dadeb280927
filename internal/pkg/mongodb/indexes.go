package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"

	"novel2trailer/internal/model/trailer"
)

// EnsureIndexes 创建所有模型的索引
// 这是一个统一的入口，用于在应用启动时创建所有模型的索引
// 模型实现 Model 接口后在这里登记，索引定义跟着实体走
func EnsureIndexes(db *mongo.Database) error {
	ctx := context.Background()

	models := []Model{
		&trailer.Novel{},
		&trailer.Chapter{},
		&trailer.ChapterSceneSet{},
		&trailer.ChapterCharacterSet{},
		&trailer.CharacterProfile{},
		&trailer.WorldProfileDoc{},
		&trailer.TrailerScriptDoc{},
		&trailer.KeyframePlanDoc{},
		&trailer.StyleGuideDoc{},
		&trailer.TrailerAsset{},
	}

	return EnsureAllIndexes(ctx, db, models...)
}
