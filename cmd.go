package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"meditation-bot/internal/ai"
	"meditation-bot/internal/api"
	"meditation-bot/internal/apikeys"
	"meditation-bot/internal/bot"
	"meditation-bot/internal/broker"
	"meditation-bot/internal/config"
	"meditation-bot/internal/i18n"
	"meditation-bot/internal/meditation"
	"meditation-bot/internal/proxy"
	"meditation-bot/internal/storage"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "meditation-bot",
		Short:         "Guided meditation generator: Telegram bot and REST API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newBotCmd(), newServeCmd(), newRunCmd())
	return cmd
}

func newBotCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bot",
		Short: "Run the Telegram bot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), true, false)
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the REST API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), false, true)
		},
	}
}

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the Telegram bot and the REST API together",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), true, true)
		},
	}
}

func newLogger(level string) (*zap.Logger, error) {
	if level == "debug" {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL %q: %w", level, err)
	}
	cfg.Level = lvl
	return cfg.Build()
}

// app holds the shared dependencies of both surfaces.
type app struct {
	cfg        *config.Config
	logger     *zap.Logger
	db         *storage.Storage
	broker     *broker.Broker
	gemini     *ai.GeminiService
	service    *meditation.Service
	translator *i18n.Translator
}

func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (_ *app, err error) {
	a := &app{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	if a.db, err = storage.New(cfg.DatabasePath, logger); err != nil {
		return nil, fmt.Errorf("could not initialize database: %w", err)
	}
	if a.broker, err = broker.Connect(cfg.NATSURL, cfg.NATSStoreDir, logger); err != nil {
		return nil, err
	}
	blobs, err := a.broker.ObjectStore(cfg.BackgroundBucket)
	if err != nil {
		return nil, err
	}

	geminiKeys, err := apikeys.NewManager("gemini", cfg.GeminiAPIKeys, logger)
	if err != nil {
		return nil, err
	}
	elevenLabsKeys, err := apikeys.NewManager("elevenlabs", cfg.ElevenLabsAPIKeys, logger)
	if err != nil {
		return nil, err
	}
	if a.gemini, err = ai.NewGeminiService(ctx, geminiKeys, cfg.GeminiAPIKeys, logger); err != nil {
		return nil, fmt.Errorf("could not initialize Gemini service: %w", err)
	}
	var elevenLabsOpts []ai.ElevenLabsOption
	if len(cfg.ProxyURLs) > 0 {
		proxies, err := proxy.NewManager(cfg.ProxyURLs, logger)
		if err != nil {
			return nil, fmt.Errorf("could not initialize proxy manager: %w", err)
		}
		logger.Info("Routing ElevenLabs requests through proxies", zap.Int("count", proxies.GetTotalProxies()))
		elevenLabsOpts = append(elevenLabsOpts, ai.WithProxyManager(proxies))
	}
	speech := ai.NewElevenLabsService(elevenLabsKeys, cfg.ElevenLabsModelID, cfg.VoicesFile, logger, elevenLabsOpts...)

	a.service = meditation.NewService(a.gemini, speech, blobs, a.db, a.broker, cfg.BackgroundsDir, logger)
	if installed := a.service.InstalledBackgrounds(); len(installed) == 0 {
		logger.Warn("No system background tracks installed", zap.String("dir", cfg.BackgroundsDir))
	} else {
		logger.Info("System background tracks", zap.Int("count", len(installed)))
	}

	if a.translator, err = i18n.New(cfg.DefaultLang); err != nil {
		return nil, fmt.Errorf("could not load translations: %w", err)
	}
	return a, nil
}

func (a *app) close() {
	if a.gemini != nil {
		a.gemini.Close()
	}
	if a.broker != nil {
		a.broker.Close()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("Failed to close database", zap.Error(err))
		}
	}
}

func run(parent context.Context, withBot, withAPI bool) error {
	cfg, err := config.Load(withBot)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync()

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		logger.Error("Startup failed", zap.Error(err))
		return err
	}
	defer a.close()

	g, gctx := errgroup.WithContext(ctx)
	if withBot {
		telegramBot, err := bot.New(cfg, a.translator, a.db, a.service, a.db, logger)
		if err != nil {
			return fmt.Errorf("could not initialize bot: %w", err)
		}
		g.Go(func() error {
			telegramBot.Start(gctx)
			return nil
		})
	}
	if withAPI {
		srv := api.NewServer(cfg.HTTPAddr, api.NewRouter(a.service, a.db, logger), logger)
		g.Go(func() error {
			return srv.Run(gctx)
		})
	}
	logger.Info("Meditation bot started", zap.Bool("bot", withBot), zap.Bool("api", withAPI))
	err = g.Wait()
	logger.Info("Meditation bot stopped")
	return err
}
