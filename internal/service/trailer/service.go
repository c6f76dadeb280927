package trailer

import (
	"context"

	"golang.org/x/time/rate"

	"novel2trailer/internal/config"
	"novel2trailer/internal/model/trailer"
	"novel2trailer/internal/pkg/ffmpeg"
	"novel2trailer/internal/pkg/gutendex"
	"novel2trailer/internal/pkg/storage"
	"novel2trailer/internal/pkg/trailertools"
	repo "novel2trailer/internal/repository/trailer"
)

// TrailerService 预告片流水线服务接口
// 各阶段独立可重入：已有产物的单元默认跳过，整阶段重跑按单元覆盖
type TrailerService interface {
	// 小说与章节
	CreateNovel(ctx context.Context, req *CreateNovelRequest) (string, error)
	ImportBook(ctx context.Context, title string) (string, error)
	GetNovel(ctx context.Context, novelID string) (*trailer.Novel, error)
	GetChapters(ctx context.Context, novelID string) ([]*trailer.Chapter, error)
	SearchBooks(ctx context.Context, title string) ([]gutendex.Book, error)

	// 场景抽取
	ExtractScenes(ctx context.Context, novelID string) (*StageSummary, error)
	GetScenes(ctx context.Context, novelID string) (*trailertools.NovelScenes, error)

	// 角色抽取与主角档案
	ExtractCharacters(ctx context.Context, novelID string) (*StageSummary, error)
	BuildCharacterProfiles(ctx context.Context, novelID string) (*StageSummary, error)
	GetCharacterProfiles(ctx context.Context, novelID string) ([]*trailer.CharacterProfile, error)

	// 世界观档案
	BuildWorldProfile(ctx context.Context, novelID string) error
	GetWorldProfile(ctx context.Context, novelID string) (*trailertools.WorldProfile, error)

	// 节拍规划
	PlanTrailerScript(ctx context.Context, novelID string) (*trailertools.TrailerScript, error)
	GetTrailerScript(ctx context.Context, novelID string) (*trailertools.TrailerScript, error)

	// 关键帧派生与风格统一
	DeriveKeyframes(ctx context.Context, novelID string) (*StageSummary, error)
	GetKeyframePlan(ctx context.Context, novelID string, stage trailer.PlanStage) (*trailertools.KeyframePlan, error)
	ApplyStyle(ctx context.Context, novelID string) (*StageSummary, error)

	// 生成环节
	GeneratePortraits(ctx context.Context, novelID string) (*StageSummary, error)
	GenerateKeyframeImages(ctx context.Context, novelID string) (*StageSummary, error)
	GenerateKeyframeVideos(ctx context.Context, novelID string) (*StageSummary, error)
	DecomposeKeyframeLayers(ctx context.Context, novelID, kfID string, numLayers int) ([]trailertools.ImageLayer, error)
	ConcatFinalVideo(ctx context.Context, novelID string) (*trailer.TrailerAsset, error)

	// 全流程编排
	RunPipeline(ctx context.Context, novelID string, progress func(stage string)) error
}

// StageSummary 阶段执行汇总（结构化日志与响应共用）
type StageSummary struct {
	Total     int `json:"total"`
	Processed int `json:"processed"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// CreateNovelRequest 创建小说请求
type CreateNovelRequest struct {
	Title    string
	Author   string
	Summary  string
	Language string
	Content  string // 小说全文
}

// Options 服务依赖装配
type Options struct {
	NovelRepo     repo.NovelRepository
	ChapterRepo   repo.ChapterRepository
	SceneRepo     repo.SceneRepository
	CharacterRepo repo.CharacterRepository
	WorldRepo     repo.WorldProfileRepository
	ScriptRepo    repo.ScriptRepository
	KeyframeRepo  repo.KeyframeRepository
	AssetRepo     repo.AssetRepository

	LLMProvider      trailertools.LLMProvider
	ImageProvider    trailertools.ImageProvider // 关键帧帧图（支持参考图）
	PortraitProvider trailertools.ImageProvider // 角色立绘
	VideoProvider    trailertools.VideoProvider
	LayerProvider    trailertools.LayerProvider

	Storage  storage.Storage
	FFmpeg   *ffmpeg.Client
	Gutendex *gutendex.Client

	Config *config.TrailerConfig
}

// trailerService 预告片流水线服务实现
type trailerService struct {
	novelRepo     repo.NovelRepository
	chapterRepo   repo.ChapterRepository
	sceneRepo     repo.SceneRepository
	characterRepo repo.CharacterRepository
	worldRepo     repo.WorldProfileRepository
	scriptRepo    repo.ScriptRepository
	keyframeRepo  repo.KeyframeRepository
	assetRepo     repo.AssetRepository

	llmProvider      trailertools.LLMProvider
	imageProvider    trailertools.ImageProvider
	portraitProvider trailertools.ImageProvider
	videoProvider    trailertools.VideoProvider
	layerProvider    trailertools.LayerProvider

	storage  storage.Storage
	ffmpeg   *ffmpeg.Client
	gutendex *gutendex.Client

	cfg *config.TrailerConfig

	// 外部生成服务共用一个限速器，避免触发平台限流
	genLimiter *rate.Limiter

	splitter       *trailertools.ChapterSplitter
	textAnalyzer   *trailertools.TextAnalyzer
	sceneExtractor *trailertools.SceneExtractor
	charExtractor  *trailertools.CharacterExtractor
	profileBuilder *trailertools.ProfileBuilder
	worldBuilder   *trailertools.WorldProfileBuilder
	beatPlanner    *trailertools.BeatPlanner
	kfDeriver      *trailertools.KeyframeDeriver
	styleBuilder   *trailertools.StyleGuideBuilder
	promptRewriter *trailertools.PromptRewriter
}

// NewTrailerService 创建预告片流水线服务
func NewTrailerService(opts Options) TrailerService {
	rps := opts.Config.GenerateRPS
	if rps <= 0 {
		rps = 0.5
	}

	splitter := trailertools.NewChapterSplitter()
	if opts.Config.MinChapterLength > 0 {
		splitter.SetMinChapterLength(opts.Config.MinChapterLength)
	}

	return &trailerService{
		novelRepo:     opts.NovelRepo,
		chapterRepo:   opts.ChapterRepo,
		sceneRepo:     opts.SceneRepo,
		characterRepo: opts.CharacterRepo,
		worldRepo:     opts.WorldRepo,
		scriptRepo:    opts.ScriptRepo,
		keyframeRepo:  opts.KeyframeRepo,
		assetRepo:     opts.AssetRepo,

		llmProvider:      opts.LLMProvider,
		imageProvider:    opts.ImageProvider,
		portraitProvider: opts.PortraitProvider,
		videoProvider:    opts.VideoProvider,
		layerProvider:    opts.LayerProvider,

		storage:  opts.Storage,
		ffmpeg:   opts.FFmpeg,
		gutendex: opts.Gutendex,

		cfg: opts.Config,

		genLimiter: rate.NewLimiter(rate.Limit(rps), 1),

		splitter:       splitter,
		textAnalyzer:   trailertools.NewTextAnalyzer(),
		sceneExtractor: trailertools.NewSceneExtractor(opts.LLMProvider),
		charExtractor:  trailertools.NewCharacterExtractor(opts.LLMProvider),
		profileBuilder: trailertools.NewProfileBuilder(opts.LLMProvider),
		worldBuilder:   trailertools.NewWorldProfileBuilder(opts.LLMProvider),
		beatPlanner:    trailertools.NewBeatPlanner(opts.LLMProvider),
		kfDeriver:      trailertools.NewKeyframeDeriver(opts.LLMProvider),
		styleBuilder:   trailertools.NewStyleGuideBuilder(opts.LLMProvider),
		promptRewriter: trailertools.NewPromptRewriter(opts.LLMProvider),
	}
}
