package trailer

import (
	"novel2trailer/internal/pkg/jobstore"
	"novel2trailer/internal/service/trailer"
)

// Handler 预告片流水线处理器
// 所有trailer相关的Handler方法都通过这个结构体访问Service
type Handler struct {
	trailerService trailer.TrailerService
	jobs           jobstore.Store
}

// NewHandler 创建预告片流水线处理器
func NewHandler(trailerService trailer.TrailerService, jobs jobstore.Store) *Handler {
	return &Handler{
		trailerService: trailerService,
		jobs:           jobs,
	}
}
