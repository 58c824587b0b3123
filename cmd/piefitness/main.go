package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"piefitness/internal/backend"
	"piefitness/internal/chat"
	"piefitness/internal/config"
	"piefitness/internal/logging"
	"piefitness/internal/server"
	"piefitness/internal/store"
)

var (
	configPath string
	verbose    bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "piefitness",
	Short: "PieFitness conversational fitness assistant",
	Long: `piefitness serves the PieFitness AI assistant: a multi-turn fitness
coach backed by interchangeable language-model providers with a
deterministic rule-based fallback.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zcfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runServe,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE:  runServe,
}

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Archive conversations idle for more than 30 days",
	RunE:  runArchive,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "piefitness.yaml", "path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(archiveCmd)
}

func setup() (*config.Config, *chat.Service, *store.SQLiteStore, *chat.CatalogHolder, error) {
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("load config: %w", err)
	}

	if err := logging.Initialize(cfg.Store.DataDir, logging.Settings{
		DebugMode:  cfg.Logging.DebugMode || verbose,
		Categories: cfg.Logging.Categories,
		Level:      cfg.Logging.Level,
		JSONFormat: cfg.Logging.Format == "json",
	}); err != nil {
		return nil, nil, nil, nil, fmt.Errorf("initialize logging: %w", err)
	}
	logging.Boot("%s %s starting", cfg.Name, cfg.Version)

	db, err := store.Open(cfg.Store.DatabasePath)
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("open store: %w", err)
	}

	catalog := chat.DefaultCatalog()
	if cfg.Chat.CatalogPath != "" {
		if loaded, err := chat.LoadCatalog(cfg.Chat.CatalogPath); err == nil {
			catalog = loaded
		} else {
			logger.Warn("pattern catalog not loaded, using builtin",
				zap.String("path", cfg.Chat.CatalogPath), zap.Error(err))
		}
	}
	catalogs := chat.NewCatalogHolder(catalog)
	if cfg.Chat.CatalogPath != "" {
		if err := catalogs.Watch(cfg.Chat.CatalogPath); err != nil {
			logger.Warn("catalog hot reload disabled", zap.Error(err))
		}
	}

	chain := backend.NewChainFromConfig(cfg.Backends)
	if !chain.Available() {
		logger.Warn("no language-model backend configured, responses will be rule-based")
	}

	suggest := chat.NewSuggestionEngine()
	generator := chat.NewGenerator(chain, catalogs, suggest)
	generator.HistoryWindow = cfg.Chat.HistoryWindow
	svc := chat.NewService(db, catalogs, generator, suggest)
	if cfg.Chat.MaxMessageLen > 0 {
		svc.MaxMessageLen = cfg.Chat.MaxMessageLen
	}

	return cfg, svc, db, catalogs, nil
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, svc, db, catalogs, err := setup()
	if err != nil {
		return err
	}
	defer db.Close()
	defer catalogs.Close()
	defer logging.CloseAll()

	srv := server.New(fmt.Sprintf(":%d", cfg.Server.Port), svc)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	logger.Info("server started", zap.Int("port", cfg.Server.Port))

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case s := <-sig:
		logger.Info("shutting down", zap.String("signal", s.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeoutDuration())
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

func runArchive(cmd *cobra.Command, args []string) error {
	_, svc, db, catalogs, err := setup()
	if err != nil {
		return err
	}
	defer db.Close()
	defer catalogs.Close()
	defer logging.CloseAll()

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	n, err := svc.ArchiveOldConversations(ctx, 30*24*time.Hour)
	if err != nil {
		return err
	}
	logger.Info("archive complete", zap.Int64("archived", n))
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
