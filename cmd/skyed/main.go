// Command skyed runs the learning path advisor daemon.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/skyelabs/skye-agent/catalog"
	"github.com/skyelabs/skye-agent/config"
	"github.com/skyelabs/skye-agent/embedder"
	"github.com/skyelabs/skye-agent/embedder/cache"
	"github.com/skyelabs/skye-agent/embedder/mock"
	"github.com/skyelabs/skye-agent/engine"
	"github.com/skyelabs/skye-agent/extract"
	"github.com/skyelabs/skye-agent/server"
	"github.com/skyelabs/skye-agent/tools"
	"github.com/skyelabs/skye-agent/workflow"
	"github.com/skyelabs/skye-agent/workspace"
	wschromem "github.com/skyelabs/skye-agent/workspace/store/chromem"
)

const embedderCacheEntries = 10_000

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "skyed",
		Short:         "Learning path advisor agent",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")

	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), configPath)
		},
	}
	root.AddCommand(serve)
	return root
}

func runServe(parent context.Context, configPath string) error {
	// A missing .env is fine; the environment may be set directly.
	_ = godotenv.Load()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	log, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	var clientOpts []option.RequestOption
	if cfg.AnthropicAPIKey != "" {
		clientOpts = append(clientOpts, option.WithAPIKey(cfg.AnthropicAPIKey))
	}
	client := anthropic.NewClient(clientOpts...)
	completer := engine.NewAnthropicCompleter(&client)

	emb, err := buildEmbedder(cfg)
	if err != nil {
		return fmt.Errorf("build embedder: %w", err)
	}

	cat, err := catalog.New(emb, log)
	if err != nil {
		return fmt.Errorf("build catalog: %w", err)
	}
	if cfg.CatalogPath != "" {
		if err := cat.LoadFile(ctx, cfg.CatalogPath); err != nil {
			return fmt.Errorf("seed catalog: %w", err)
		}
	}

	registry := engine.NewToolRegistry(tools.SkyeTools(cat)...)
	extractor := extract.New(completer, cfg.ExtractionModel, log)
	eng := engine.NewEngine(completer, registry, extractor,
		engine.WithModel(cfg.Model),
		engine.WithMaxTokens(cfg.MaxTokens),
		engine.WithLogger(log),
	)

	store, err := buildStore(cfg, log)
	if err != nil {
		return err
	}
	wf := workflow.New(eng, store, log)

	matcher := workspace.NewMatcher(wschromem.New(log), emb, log)

	srv := server.New(server.Config{Addr: cfg.Addr, Log: log}, wf, matcher)
	return srv.Run(ctx)
}

func buildEmbedder(cfg *config.Config) (embedder.Embedder, error) {
	return cache.New(mock.NewWithDimensions(cfg.EmbedderDims), embedderCacheEntries)
}

func buildStore(cfg *config.Config, log *zap.Logger) (workflow.Store, error) {
	if cfg.RedisURL == "" {
		log.Info("using in-memory checkpoint store")
		return workflow.NewMemoryStore(), nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	log.Info("using redis checkpoint store", zap.String("addr", opt.Addr))
	return workflow.NewRedisStore(redis.NewClient(opt), cfg.SessionTTL), nil
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}
