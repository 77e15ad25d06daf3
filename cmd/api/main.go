package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"xupload/internal/config"
	"xupload/internal/domain/upload"
	"xupload/internal/handler"
	"xupload/internal/metrics"
	"xupload/internal/middleware"
	"xupload/internal/redis"
	"xupload/internal/repository"
	"xupload/internal/server"
	"xupload/internal/services"
	"xupload/internal/storage"
	"xupload/internal/thumbnail"
	"xupload/internal/websocket"
	"xupload/pkg/database"
	"xupload/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	mode := logger.DevelopmentMode
	if cfg.IsProduction() {
		mode = logger.ProductionMode
	}
	l := logger.New(mode)
	defer l.Sync()
	logger.SetGlobalLogger(l)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, l); err != nil {
		l.Error(ctx, "server exited", zap.Error(err))
		l.Sync()
		log.Fatal(err)
	}
}

func run(ctx context.Context, cfg *config.Config, l *logger.Logger) error {
	db, err := database.Connect(ctx, cfg.Database.DSN())
	if err != nil {
		return err
	}
	defer db.Close()

	if err := repository.MigrateUp(ctx, db); err != nil {
		return err
	}

	var rdb *goredis.Client
	if cfg.Session.Driver == "redis" {
		rdb, err = redis.NewClient(ctx, redis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return err
		}
		defer rdb.Close()
	}

	store, err := newObjectStorage(ctx, cfg.Storage)
	if err != nil {
		return err
	}

	m := metrics.New(prometheus.DefaultRegisterer)
	hub := websocket.NewHub()
	go hub.Run(ctx)

	var (
		sessionStore services.SessionStore  = services.NewMemorySessionStore()
		userPub      services.UserPublisher = hub
		limiter      middleware.UploadLimiter
	)
	if rdb != nil {
		sessionStore = redis.NewSessionStore(rdb, cfg.Session.TTL)
		userPub = redis.NewPublisher(rdb)
		limiter = redis.NewRateLimiter(rdb, redis.RateLimitConfig{
			UploadLimit:  cfg.RateLimit.UploadLimit,
			UploadWindow: cfg.RateLimit.UploadWindow,
		})

		bridge := websocket.NewRedisBridge(redis.NewSubscriber(rdb), hub)
		go func() {
			if err := bridge.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				l.Error(ctx, "event bridge stopped", zap.Error(err))
			}
		}()
	}

	auth := services.NewAuthService(cfg.Auth)
	uploads := services.NewUploadService(
		repository.NewAlbumRepository(db),
		repository.NewProfileRepository(db),
		services.NewSessionFiles(sessionStore),
		store,
		thumbnail.NewGenerator(cfg.Upload.ThumbWidth, cfg.Upload.ThumbHeight),
		services.NewEventPublisher(userPub),
		m,
		services.UploadOptions{
			BasePath: cfg.Upload.BasePath,
			Rules: upload.Rules{
				MaxSize:           cfg.Upload.MaxSize,
				MinSize:           cfg.Upload.MinSize,
				AllowedExtensions: cfg.Upload.AllowedExtensions,
				AllowedTypes:      cfg.Upload.AllowedTypes,
			},
			ContentType:     cfg.Storage.ContentType,
			SetProfileImage: cfg.Upload.SetProfileImage,
		},
	)

	checks := map[string]handler.Pinger{
		"database": func(ctx context.Context) error { return database.HealthCheck(ctx, db) },
	}
	if rdb != nil {
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}

	mw := server.Middleware{Auth: middleware.AuthMiddleware(auth)}
	if limiter != nil {
		mw.RateLimit = middleware.UploadRateLimitMiddleware(limiter)
	}

	srv := server.New(cfg, l)
	srv.SetupRoutes(&server.Handlers{
		Upload: handler.NewUploadHandler(uploads, handler.UploadHandlerOptions{
			FileField:    cfg.Upload.FileField,
			SubfolderVar: cfg.Upload.SubfolderVar,
			MaxSize:      cfg.Upload.MaxSize,
		}),
		Health:  handler.NewHealthHandler(checks),
		Events:  websocket.NewHandler(hub, l),
		Metrics: promhttp.Handler(),
	}, mw, m)

	return srv.Start(ctx)
}

func newObjectStorage(ctx context.Context, cfg config.StorageConfig) (storage.ObjectStorage, error) {
	var (
		backend storage.ObjectStorage
		err     error
	)
	switch cfg.Driver {
	case "minio":
		backend, err = storage.NewMinioStorage(ctx, storage.MinioConfig{
			Endpoint:   cfg.Endpoint,
			AccessKey:  cfg.AccessKey,
			SecretKey:  cfg.SecretKey,
			Bucket:     cfg.Bucket,
			Region:     cfg.Region,
			PublicBase: cfg.PublicBase,
			UseSSL:     cfg.UseSSL,
		})
	default:
		backend, err = storage.NewClient(ctx, storage.S3Config{
			Region:     cfg.Region,
			Bucket:     cfg.Bucket,
			AccessKey:  cfg.AccessKey,
			SecretKey:  cfg.SecretKey,
			Endpoint:   cfg.Endpoint,
			PublicBase: cfg.PublicBase,
			ACL:        cfg.ACL,
		})
	}
	if err != nil {
		return nil, err
	}
	return storage.NewRetryingStorage(backend, cfg.RetryAttempts, cfg.Timeout), nil
}
