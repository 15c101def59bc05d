package main

import (
	"context"
	"log"
	"time"

	"go.uber.org/zap"

	"github.com/roomyhq/roomy-server/internal/ai"
	"github.com/roomyhq/roomy-server/internal/billing"
	"github.com/roomyhq/roomy-server/internal/config"
	"github.com/roomyhq/roomy-server/internal/logging"
	"github.com/roomyhq/roomy-server/internal/media"
	"github.com/roomyhq/roomy-server/internal/render"
	"github.com/roomyhq/roomy-server/internal/repository/minio"
	"github.com/roomyhq/roomy-server/internal/repository/postgres"
	"github.com/roomyhq/roomy-server/internal/repository/rediscache"
	"github.com/roomyhq/roomy-server/internal/scrape"
	"github.com/roomyhq/roomy-server/internal/service"
	transport "github.com/roomyhq/roomy-server/internal/transport/http"
	"github.com/roomyhq/roomy-server/internal/transport/mail"
	"github.com/roomyhq/roomy-server/internal/util"
)

func main() {
	cfg := config.Load()

	logger, cleanup, err := logging.NewLogger(cfg.Env, cfg.LogstashTCPAddr)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer cleanup()
	defer func() { _ = logger.Sync() }()

	if err := render.CheckRegistry(); err != nil {
		logger.Fatal("render registry incomplete", zap.Error(err))
	}

	db, err := postgres.New(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("connect postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := rediscache.NewClient(cfg.RedisAddr, cfg.RedisPassword, 0)
	if err != nil {
		logger.Fatal("connect redis", zap.Error(err))
	}
	defer redisClient.Close()

	minioClient, err := minio.NewClient(cfg.MinIOEndpoint, cfg.MinIOAccessKey, cfg.MinIOSecretKey, cfg.MinIOUseSSL)
	if err != nil {
		logger.Fatal("connect minio", zap.Error(err))
	}

	users := postgres.NewUserRepo(db)
	sessions := postgres.NewSessionRepo(db)
	guidebooks := postgres.NewGuidebookRepo(db)
	blocks := postgres.NewBlockRepo(db)
	shortLinks := postgres.NewShortLinkRepo(db)
	subscriptions := postgres.NewSubscriptionRepo(db)
	viewStats := postgres.NewViewStatsRepo(db)
	clicks := rediscache.NewClickCounter(redisClient, "")
	storage := minio.NewStorage(minioClient, cfg.MinIOPublicURL, cfg.MinIOUseSSL)

	sessionTTL, err := time.ParseDuration(cfg.SessionTTL)
	if err != nil {
		logger.Fatal("parse SESSION_TTL", zap.Error(err))
	}
	statsCacheTTL, err := time.ParseDuration(cfg.StatsCacheTTL)
	if err != nil {
		logger.Fatal("parse STATS_CACHE_TTL", zap.Error(err))
	}

	tokens := util.NewJWTManager(cfg.JWTSecret, sessionTTL)
	authService := service.NewAuthService(users, sessions, tokens, service.AuthConfig{
		SessionTTL: sessionTTL,
		GoogleAud:  cfg.GoogleAudience,
	})

	guidebookService := service.NewGuidebookService(guidebooks, blocks, users)
	blockService := service.NewBlockService(blocks, guidebooks)
	importService := service.NewListingImportService(
		scrape.NewListingFetcher(0),
		guidebookService,
		blockService,
		guidebooks,
	)
	shortLinkService := service.NewShortLinkService(shortLinks, guidebooks, clicks, service.ShortLinkConfig{
		PublicBaseURL: cfg.PublicBaseURL,
	})
	viewStatsService := service.NewViewStatsService(viewStats, guidebooks, logger, service.ViewStatsConfig{
		CacheTTL:   statsCacheTTL,
		VisitorKey: cfg.VisitorHashKey,
	})
	subscriptionService := service.NewSubscriptionService(subscriptions, users, billing.NewTossClient(billing.TossConfig{
		SecretKey: cfg.TossSecretKey,
	}))
	assistantService := service.NewAssistantService(
		ai.NewOpenAICompleter(cfg.OpenAIAPIKey, cfg.OpenAIModel),
		users, guidebooks, blocks,
	)
	mediaService := service.NewMediaService(guidebooks, storage, media.NewImageProcessor(cfg.UploadMaxDim), service.MediaServiceConfig{
		Bucket:       cfg.MinIOBucketMedia,
		PublicBase:   cfg.MinIOPublicURL,
		MaxBytes:     cfg.UploadMaxBytes,
		MaxDimension: cfg.UploadMaxDim,
	})

	nudgeService := service.NewReviewNudgeService(users, guidebooks, nil)
	if cfg.SMTPHost != "" {
		mailer := mail.NewReviewNudgeMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom)
		nudgeService = service.NewReviewNudgeService(users, guidebooks, mailer)
	}

	renderer := render.New(logger)

	e := transport.NewRouter(cfg.AllowOrigins, logger)
	transport.RegisterPages(e, cfg.DashboardURL)
	transport.RegisterSwagger(e)
	transport.RegisterAuth(e, authService)
	transport.RegisterGuidebooks(e, authService, guidebookService, importService, viewStatsService, nudgeService)
	transport.RegisterBlocks(e, authService, blockService, assistantService)
	transport.RegisterGuestPages(e, guidebookService, assistantService, viewStatsService, renderer)
	transport.RegisterShortLinks(e, authService, shortLinkService)
	transport.RegisterBilling(e, authService, subscriptionService)
	transport.RegisterMedia(e, authService, mediaService)

	flushCtx, stopFlush := context.WithCancel(context.Background())
	defer stopFlush()
	go flushClicks(flushCtx, shortLinkService, logger, time.Duration(cfg.ClickFlushSeconds)*time.Second)

	logger.Info("starting server", zap.String("port", cfg.Port), zap.String("env", cfg.Env))
	if err := e.Start(":" + cfg.Port); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

// flushClicks periodically moves hot Redis counters into Postgres day
// buckets.
func flushClicks(ctx context.Context, links *service.ShortLinkService, logger *zap.Logger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := links.FlushClicks(ctx); err != nil {
				logger.Warn("flush clicks", zap.Error(err))
			}
		}
	}
}
