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

// CharacterRepository 角色仓库接口（章节提及 + 主角档案）
type CharacterRepository interface {
	UpsertMentions(ctx context.Context, set *trailer.ChapterCharacterSet) error
	FindMentionsByNovelID(ctx context.Context, novelID string) ([]*trailer.ChapterCharacterSet, error)
	MentionsExist(ctx context.Context, novelID, chapterID string) (bool, error)

	UpsertProfile(ctx context.Context, profile *trailer.CharacterProfile) error
	FindProfilesByNovelID(ctx context.Context, novelID string) ([]*trailer.CharacterProfile, error)
	ProfileExists(ctx context.Context, novelID, name string) (bool, error)
}

// CharacterRepo 角色仓库
type CharacterRepo struct {
	mentionColl *mongo.Collection
	profileColl *mongo.Collection
}

// NewCharacterRepo 创建角色仓库
func NewCharacterRepo(db *mongo.Database) *CharacterRepo {
	var m trailer.ChapterCharacterSet
	var p trailer.CharacterProfile
	return &CharacterRepo{
		mentionColl: db.Collection(m.Collection()),
		profileColl: db.Collection(p.Collection()),
	}
}

// UpsertMentions 写入单章节角色提及（按 novel_id+chapter_id 覆盖）
func (r *CharacterRepo) UpsertMentions(ctx context.Context, set *trailer.ChapterCharacterSet) error {
	now := time.Now()
	set.UpdatedAt = now
	if set.ID == "" {
		set.ID = id.New()
	}
	if set.CreatedAt.IsZero() {
		set.CreatedAt = now
	}
	filter := bson.M{"novel_id": set.NovelID, "chapter_id": set.ChapterID}
	_, err := r.mentionColl.ReplaceOne(ctx, filter, set, options.Replace().SetUpsert(true))
	return err
}

// FindMentionsByNovelID 查询小说全部章节的角色提及（按章节ID排序）
func (r *CharacterRepo) FindMentionsByNovelID(ctx context.Context, novelID string) ([]*trailer.ChapterCharacterSet, error) {
	opts := options.Find().SetSort(bson.M{"chapter_id": 1})
	cur, err := r.mentionColl.Find(ctx, bson.M{"novel_id": novelID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var sets []*trailer.ChapterCharacterSet
	if err := cur.All(ctx, &sets); err != nil {
		return nil, err
	}
	return sets, nil
}

// MentionsExist 判断某章节是否已有角色提及
func (r *CharacterRepo) MentionsExist(ctx context.Context, novelID, chapterID string) (bool, error) {
	count, err := r.mentionColl.CountDocuments(ctx, bson.M{"novel_id": novelID, "chapter_id": chapterID})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// UpsertProfile 写入主角档案（按 novel_id+name 覆盖）
func (r *CharacterRepo) UpsertProfile(ctx context.Context, profile *trailer.CharacterProfile) error {
	now := time.Now()
	profile.UpdatedAt = now
	if profile.ID == "" {
		profile.ID = id.New()
	}
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	filter := bson.M{"novel_id": profile.NovelID, "name": profile.Name}
	_, err := r.profileColl.ReplaceOne(ctx, filter, profile, options.Replace().SetUpsert(true))
	return err
}

// FindProfilesByNovelID 查询小说的主角档案（按得分倒序）
func (r *CharacterRepo) FindProfilesByNovelID(ctx context.Context, novelID string) ([]*trailer.CharacterProfile, error) {
	opts := options.Find().SetSort(bson.M{"score": -1})
	cur, err := r.profileColl.Find(ctx, bson.M{"novel_id": novelID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var profiles []*trailer.CharacterProfile
	if err := cur.All(ctx, &profiles); err != nil {
		return nil, err
	}
	return profiles, nil
}

// ProfileExists 判断某角色是否已有档案
func (r *CharacterRepo) ProfileExists(ctx context.Context, novelID, name string) (bool, error) {
	count, err := r.profileColl.CountDocuments(ctx, bson.M{"novel_id": novelID, "name": name})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
