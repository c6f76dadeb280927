package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"novel2trailer/internal/ai/component"
	"novel2trailer/internal/config"
	"novel2trailer/internal/handler"
	trailerHandler "novel2trailer/internal/handler/trailer"
	"novel2trailer/internal/pkg/cache"
	"novel2trailer/internal/pkg/ffmpeg"
	"novel2trailer/internal/pkg/gutendex"
	"novel2trailer/internal/pkg/jobstore"
	"novel2trailer/internal/pkg/mongodb"
	"novel2trailer/internal/pkg/storagefactory"
	"novel2trailer/internal/pkg/trailertools"
	"novel2trailer/internal/pkg/trailertools/providers"
	trailerRepo "novel2trailer/internal/repository/trailer"
	"novel2trailer/internal/server/middleware"
	trailerSvc "novel2trailer/internal/service/trailer"
)

// Server HTTP 服务器
type Server struct {
	cfg    *config.Config
	engine *gin.Engine
	mongo  *mongodb.Client
	redis  *cache.RedisCache
}

// New 创建服务器实例
func New(cfg *config.Config) (*Server, error) {
	// 设置 Gin 模式
	switch cfg.Server.Mode {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	// 创建 Gin 引擎
	engine := gin.New()

	// 初始化 MongoDB（流水线阶段产物全部落库，未配置时仅保留健康检查）
	var mongoClient *mongodb.Client
	if cfg.Mongo.URI != "" {
		client, err := mongodb.New(&cfg.Mongo)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to MongoDB, continuing without it")
		} else {
			mongoClient = client
			log.Info().Str("database", cfg.Mongo.Database).Msg("connected to MongoDB")

			// 创建索引
			if err := mongodb.EnsureIndexes(mongoClient.Database()); err != nil {
				log.Warn().Err(err).Msg("failed to ensure indexes")
			}
		}
	}

	// 初始化 Redis (可选)
	var redisCache *cache.RedisCache
	if cfg.Redis.Addr != "" {
		rc, err := cache.NewRedisCache(&cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("failed to connect to Redis, continuing without it")
		} else {
			redisCache = rc
			log.Info().Str("addr", cfg.Redis.Addr).Msg("connected to Redis")
		}
	}

	srv := &Server{
		cfg:    cfg,
		engine: engine,
		mongo:  mongoClient,
		redis:  redisCache,
	}

	// 设置路由
	if err := srv.setupRoutes(); err != nil {
		return nil, err
	}

	return srv, nil
}

// setupRoutes 设置路由
func (s *Server) setupRoutes() error {
	// 全局中间件
	s.engine.Use(middleware.Recovery())
	s.engine.Use(middleware.RequestID())
	s.engine.Use(middleware.Logger())
	s.engine.Use(middleware.CORS())

	// 健康检查
	healthHandler := handler.NewHealthHandler()
	s.engine.GET("/health", healthHandler.Health)
	s.engine.GET("/ready", healthHandler.Ready)

	// Swagger 文档
	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	if s.mongo == nil {
		log.Warn().Msg("MongoDB not configured, trailer endpoints disabled")
		return nil
	}

	svc, err := s.buildTrailerService()
	if err != nil {
		return err
	}

	hdl := trailerHandler.NewHandler(svc, s.buildJobStore())

	// API v1
	v1 := s.engine.Group("/api/v1")
	{
		// 小说与章节
		v1.POST("/novels", hdl.CreateNovel)
		v1.GET("/novels/:novel_id", hdl.GetNovel)
		v1.GET("/novels/:novel_id/chapters", hdl.GetChapters)

		// 公版书导入
		v1.GET("/books/search", hdl.SearchBooks)
		v1.POST("/books/import", hdl.ImportBook)

		// 场景抽取
		v1.POST("/novels/:novel_id/scenes/extract", hdl.ExtractScenes)
		v1.GET("/novels/:novel_id/scenes", hdl.GetScenes)

		// 角色档案
		v1.POST("/novels/:novel_id/characters/extract", hdl.ExtractCharacters)
		v1.POST("/novels/:novel_id/characters/profiles", hdl.BuildCharacterProfiles)
		v1.GET("/novels/:novel_id/characters/profiles", hdl.GetCharacterProfiles)

		// 世界观档案
		v1.POST("/novels/:novel_id/world-profile", hdl.BuildWorldProfile)
		v1.GET("/novels/:novel_id/world-profile", hdl.GetWorldProfile)

		// 预告片脚本
		v1.POST("/novels/:novel_id/trailer-script", hdl.PlanTrailerScript)
		v1.GET("/novels/:novel_id/trailer-script", hdl.GetTrailerScript)

		// 关键帧与风格统一
		v1.POST("/novels/:novel_id/keyframes/derive", hdl.DeriveKeyframes)
		v1.GET("/novels/:novel_id/keyframes", hdl.GetKeyframePlan)
		v1.POST("/novels/:novel_id/keyframes/style", hdl.ApplyStyle)
		v1.POST("/novels/:novel_id/keyframes/:kf_id/layers", hdl.DecomposeKeyframeLayers)

		// 素材生成与成片
		v1.POST("/novels/:novel_id/portraits", hdl.GeneratePortraits)
		v1.POST("/novels/:novel_id/keyframe-images", hdl.GenerateKeyframeImages)
		v1.POST("/novels/:novel_id/keyframe-videos", hdl.GenerateKeyframeVideos)
		v1.POST("/novels/:novel_id/concat", hdl.ConcatFinalVideo)

		// 流水线编排
		v1.POST("/novels/:novel_id/pipeline", hdl.RunPipeline)
		v1.GET("/jobs", hdl.ListJobs)
		v1.GET("/jobs/:job_id", hdl.GetJob)
	}

	return nil
}

// buildTrailerService 装配预告片流水线服务
// 文本模型未配置时抽取/规划类接口会在调用时报错，但服务仍可启动查询已有产物
func (s *Server) buildTrailerService() (trailerSvc.TrailerService, error) {
	ctx := context.Background()
	db := s.mongo.Database()

	// 对象存储
	store, err := storagefactory.NewStorage(ctx, &s.cfg.Storage)
	if err != nil {
		return nil, err
	}

	// 文本模型（eino ChatModel，openai/azure/ark 可切换）
	var llmProvider trailertools.LLMProvider
	if s.cfg.AI.APIKey != "" {
		chatModel, err := component.NewChatModel(ctx, &s.cfg.AI)
		if err != nil {
			log.Warn().Err(err).Msg("failed to initialize chat model, LLM stages disabled")
		} else {
			llmProvider = providers.NewEinoProvider(chatModel)
			log.Info().Str("provider", s.cfg.AI.Provider).Str("model", s.cfg.AI.Model).Msg("initialized chat model")
		}
	}

	// 生成类服务端到端依赖环境变量，缺配置时对应阶段不可用
	imageProvider, err := providers.NewArkImageProvider()
	if err != nil {
		log.Warn().Err(err).Msg("ark image provider unavailable, keyframe image stage disabled")
	}
	portraitProvider, err := providers.NewT2PProvider()
	if err != nil {
		log.Warn().Err(err).Msg("t2p provider unavailable, portrait stage disabled")
	}
	videoProvider, err := providers.NewArkVideoProvider()
	if err != nil {
		log.Warn().Err(err).Msg("ark video provider unavailable, keyframe video stage disabled")
	}
	layerProvider, err := providers.NewLayerServiceProvider()
	if err != nil {
		log.Warn().Err(err).Msg("layer service unavailable, layer decomposition disabled")
	}

	return trailerSvc.NewTrailerService(trailerSvc.Options{
		NovelRepo:     trailerRepo.NewNovelRepo(db),
		ChapterRepo:   trailerRepo.NewChapterRepo(db),
		SceneRepo:     trailerRepo.NewSceneRepo(db),
		CharacterRepo: trailerRepo.NewCharacterRepo(db),
		WorldRepo:     trailerRepo.NewWorldProfileRepo(db),
		ScriptRepo:    trailerRepo.NewScriptRepo(db),
		KeyframeRepo:  trailerRepo.NewKeyframeRepo(db),
		AssetRepo:     trailerRepo.NewAssetRepo(db),

		LLMProvider:      llmProvider,
		ImageProvider:    imageProvider,
		PortraitProvider: portraitProvider,
		VideoProvider:    videoProvider,
		LayerProvider:    layerProvider,

		Storage:  store,
		FFmpeg:   ffmpeg.NewClient(),
		Gutendex: gutendex.NewClient(s.cfg.Gutendex.BaseURL),

		Config: &s.cfg.Trailer,
	}), nil
}

// buildJobStore 选择任务登记表实现
func (s *Server) buildJobStore() jobstore.Store {
	ttl := s.cfg.Jobs.TTL
	if s.cfg.Jobs.Store == "redis" {
		if s.redis != nil {
			log.Info().Msg("using redis job store")
			return jobstore.NewRedisStore(s.redis.Client(), ttl)
		}
		log.Warn().Msg("redis job store configured but redis unavailable, falling back to memory")
	}
	return jobstore.NewMemoryStore(ttl)
}

// Run 启动服务器
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	// 启动服务器
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// 等待关闭信号或错误
	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down server...")

		// 关闭连接
		if s.mongo != nil {
			if err := s.mongo.Close(context.Background()); err != nil {
				log.Error().Err(err).Msg("failed to close MongoDB connection")
			}
		}
		if s.redis != nil {
			if err := s.redis.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close Redis connection")
			}
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// Engine 获取 Gin 引擎 (用于测试)
func (s *Server) Engine() *gin.Engine {
	return s.engine
}
