package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"novel2trailer/internal/ai/component"
	"novel2trailer/internal/pkg/ffmpeg"
	"novel2trailer/internal/pkg/gutendex"
	"novel2trailer/internal/pkg/mongodb"
	"novel2trailer/internal/pkg/storagefactory"
	"novel2trailer/internal/pkg/trailertools"
	"novel2trailer/internal/pkg/trailertools/providers"
	trailerRepo "novel2trailer/internal/repository/trailer"
	trailerSvc "novel2trailer/internal/service/trailer"
)

var (
	pipelineNovelID    string
	pipelineNovelFile  string
	pipelineNovelTitle string
	pipelineImport     bool
)

var pipelineCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Run the full trailer pipeline for one novel",
	Long: `Run the full trailer pipeline for one novel without starting the API server.
Give an existing novel with --novel-id, create one from a local text file with
--file and --title, or import a public-domain book by title with --import --title.
All stages are idempotent, so rerunning after a failure resumes from where it stopped.`,
	RunE: runPipeline,
}

func init() {
	rootCmd.AddCommand(pipelineCmd)

	flags := pipelineCmd.Flags()
	flags.StringVar(&pipelineNovelID, "novel-id", "", "ID of an existing novel")
	flags.StringVar(&pipelineNovelFile, "file", "", "path to a novel text file to create first")
	flags.StringVar(&pipelineNovelTitle, "title", "", "novel title (required with --file or --import)")
	flags.BoolVar(&pipelineImport, "import", false, "import a public-domain book by title before running")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	cfg := GetConfig()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	if pipelineNovelID == "" && pipelineNovelFile == "" && !pipelineImport {
		return fmt.Errorf("one of --novel-id, --file or --import is required")
	}
	if (pipelineNovelFile != "" || pipelineImport) && pipelineNovelTitle == "" {
		return fmt.Errorf("--title is required with --file or --import")
	}

	// Ctrl-C 终止当前阶段，重跑即续跑
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	}()

	mongoClient, err := mongodb.New(&cfg.Mongo)
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	defer func() { _ = mongoClient.Close(context.Background()) }()

	if err := mongodb.EnsureIndexes(mongoClient.Database()); err != nil {
		log.Warn().Err(err).Msg("failed to ensure indexes")
	}

	svc, err := buildPipelineService(ctx, mongoClient)
	if err != nil {
		return err
	}

	novelID := pipelineNovelID
	switch {
	case pipelineNovelFile != "":
		content, err := os.ReadFile(pipelineNovelFile)
		if err != nil {
			return fmt.Errorf("failed to read novel file: %w", err)
		}
		novelID, err = svc.CreateNovel(ctx, &trailerSvc.CreateNovelRequest{
			Title:   pipelineNovelTitle,
			Content: string(content),
		})
		if err != nil {
			return fmt.Errorf("failed to create novel: %w", err)
		}
		log.Info().Str("novel_id", novelID).Msg("novel created from file")
	case pipelineImport:
		novelID, err = svc.ImportBook(ctx, pipelineNovelTitle)
		if err != nil {
			return fmt.Errorf("failed to import book: %w", err)
		}
		log.Info().Str("novel_id", novelID).Msg("book imported")
	}

	return svc.RunPipeline(ctx, novelID, func(stage string) {
		fmt.Printf("==> %s\n", stage)
	})
}

// buildPipelineService 批处理模式的服务装配（不经过 HTTP 层）
func buildPipelineService(ctx context.Context, mongoClient *mongodb.Client) (trailerSvc.TrailerService, error) {
	cfg := GetConfig()
	db := mongoClient.Database()

	store, err := storagefactory.NewStorage(ctx, &cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("failed to init storage: %w", err)
	}

	var llmProvider trailertools.LLMProvider
	if cfg.AI.APIKey != "" {
		chatModel, err := component.NewChatModel(ctx, &cfg.AI)
		if err != nil {
			return nil, fmt.Errorf("failed to init chat model: %w", err)
		}
		llmProvider = providers.NewEinoProvider(chatModel)
	}

	imageProvider, err := providers.NewArkImageProvider()
	if err != nil {
		log.Warn().Err(err).Msg("ark image provider unavailable")
	}
	portraitProvider, err := providers.NewT2PProvider()
	if err != nil {
		log.Warn().Err(err).Msg("t2p provider unavailable")
	}
	videoProvider, err := providers.NewArkVideoProvider()
	if err != nil {
		log.Warn().Err(err).Msg("ark video provider unavailable")
	}
	layerProvider, err := providers.NewLayerServiceProvider()
	if err != nil {
		log.Warn().Err(err).Msg("layer service unavailable")
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
		Gutendex: gutendex.NewClient(cfg.Gutendex.BaseURL),

		Config: &cfg.Trailer,
	}), nil
}
