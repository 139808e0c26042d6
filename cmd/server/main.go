package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/iai-solution/invoice-analyzer/internal/ai"
	"github.com/iai-solution/invoice-analyzer/internal/analysis"
	"github.com/iai-solution/invoice-analyzer/internal/archive"
	"github.com/iai-solution/invoice-analyzer/internal/chat"
	"github.com/iai-solution/invoice-analyzer/internal/config"
	"github.com/iai-solution/invoice-analyzer/internal/document"
	"github.com/iai-solution/invoice-analyzer/internal/embedding"
	"github.com/iai-solution/invoice-analyzer/internal/export"
	"github.com/iai-solution/invoice-analyzer/internal/policy"
	"github.com/iai-solution/invoice-analyzer/internal/repository"
	"github.com/iai-solution/invoice-analyzer/internal/server"
	"github.com/iai-solution/invoice-analyzer/pkg/database"
	"github.com/iai-solution/invoice-analyzer/pkg/utils"
)

func main() {
	// Load .env if present; real environments set variables directly
	_ = gotenv.Load()

	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting Invoice Reimbursement Analyzer",
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.Int("port", cfg.Server.Port))

	// Database and migrations
	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	resultRepo := repository.NewResultRepository(db.DB, logger)

	// Embedding service must be reachable before accepting work
	embedder := embedding.NewClient(embedding.Config{
		BaseURL:   cfg.Embedding.BaseURL,
		Model:     cfg.Embedding.Model,
		Dimension: cfg.Embedding.Dimension,
		Timeout:   cfg.Embedding.Timeout,
	}, logger)

	probeCtx, cancelProbe := context.WithTimeout(context.Background(), cfg.Embedding.Timeout)
	if err := embedder.Probe(probeCtx); err != nil {
		cancelProbe()
		logger.Fatal("Embedding service unavailable", zap.Error(err))
	}
	cancelProbe()

	// Language model clients
	llmClient := ai.NewClient(cfg.LLM.APIKey, cfg.LLM.BaseURL)
	llmConfig := ai.Config{
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	}
	classifier := ai.NewClassifier(llmClient, llmConfig, logger)
	answerer := ai.NewAnswerer(llmClient, llmConfig, logger)

	// Analysis pipeline
	unpacker := archive.NewUnpacker(cfg.Upload.InvoiceExtensions, logger)
	extractor := document.NewExtractor(logger)
	policies := policy.NewProvider(extractor, logger)
	rules := policy.NewRuleEngine(logger)

	orchestrator := analysis.NewOrchestrator(
		analysis.Config{
			MaxFileSize:       cfg.Upload.MaxFileSize,
			ArchiveExtensions: cfg.Upload.ArchiveExtensions,
			InvoiceExtensions: cfg.Upload.InvoiceExtensions,
			Workers:           cfg.Analysis.Workers,
		},
		unpacker,
		extractor,
		policies,
		rules,
		classifier,
		embedder,
		resultRepo,
		embedding.InvoiceText,
		logger,
	)

	chatService := chat.NewService(chat.Config{
		TopK:                cfg.Search.TopK,
		SimilarityThreshold: cfg.Search.SimilarityThreshold,
	}, embedder, resultRepo, answerer, logger)

	reporter := export.NewExcelReporter(logger)

	// HTTP server
	handlers := server.NewHandlers(orchestrator, chatService, resultRepo, reporter, logger)
	srv := server.NewServer(server.Config{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, handlers, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil {
		logger.Fatal("Server error", zap.Error(err))
	}

	logger.Info("Shutdown complete")
}
