package trailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog/log"

	model "novel2trailer/internal/model/trailer"
)

// 阶段工件：每个阶段在落库之外同时写一份 JSON 到存储层
// 工件是线上契约的快照，便于离线核对与跨系统交接；写失败只告警不阻塞

// artifactKey 工件对象键
func artifactKey(novelID, name string) string {
	return fmt.Sprintf("trailer/%s/artifacts/%s", novelID, name)
}

// assetKey 生成产物对象键
func assetKey(novelID, kind, name string) string {
	return fmt.Sprintf("trailer/%s/%s/%s", novelID, kind, name)
}

// writeArtifact 把阶段产物序列化后写入存储层并登记
func (s *trailerService) writeArtifact(ctx context.Context, novelID, name string, v any) {
	if s.storage == nil {
		return
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		log.Warn().Err(err).Str("artifact", name).Msg("工件序列化失败")
		return
	}

	key := artifactKey(novelID, name)
	url, err := s.storage.Upload(ctx, key, bytes.NewReader(data), "application/json")
	if err != nil {
		log.Warn().Err(err).Str("artifact", name).Msg("工件写入失败")
		return
	}

	if s.assetRepo != nil {
		asset := &model.TrailerAsset{
			NovelID:     novelID,
			Kind:        model.AssetArtifact,
			RefID:       name,
			StorageKey:  key,
			URL:         url,
			ContentType: "application/json",
			SizeBytes:   int64(len(data)),
		}
		if err := s.assetRepo.Upsert(ctx, asset); err != nil {
			log.Warn().Err(err).Str("artifact", name).Msg("工件登记失败")
		}
	}

	log.Debug().Str("key", key).Int("bytes", len(data)).Msg("阶段工件已写入")
}
